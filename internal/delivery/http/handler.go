package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/platelog/backend/internal/domain"
	"github.com/platelog/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	orders  *usecase.OrderService
	ingest  *usecase.IngestService
	matcher *usecase.MatchingService
	parser  *usecase.OrderParser
	log     *zap.SugaredLogger
}

// NewHandler creates a new HTTP handler
func NewHandler(orders *usecase.OrderService, ingest *usecase.IngestService, matcher *usecase.MatchingService, parser *usecase.OrderParser, log *zap.SugaredLogger) *Handler {
	return &Handler{
		orders:  orders,
		ingest:  ingest,
		matcher: matcher,
		parser:  parser,
		log:     log,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "platelog-backend",
		"version": "1.0.0",
	})
}

type ingestRequest struct {
	Name             string   `json:"name"`
	URL              string   `json:"url" binding:"required"`
	Kind             string   `json:"kind"`
	Hall             string   `json:"hall"`
	Station          string   `json:"station"`
	MealTypes        []string `json:"mealTypes"`
	MenuDate         string   `json:"menuDate"`
	Dining           bool     `json:"dining"`
	LabelURLTemplate string   `json:"labelUrlTemplate"`
	Backfill         bool     `json:"backfill"`
	BackfillLimit    int      `json:"backfillLimit"`
}

// IngestMenu pulls one menu source and upserts its rows into the
// catalog. With backfill=true it instead fills nutrition for rows the
// source already created.
func (h *Handler) IngestMenu(c *gin.Context) {
	if h.ingest == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Ingestion service not configured",
		})
		return
	}

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	src, err := sourceFromRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Backfill {
		limit := req.BackfillLimit
		if limit <= 0 {
			limit = 100
		}
		result, err := h.ingest.BackfillNutrition(c.Request.Context(), src, limit)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"updated": result.Updated,
			"scanned": result.Scanned,
		})
		return
	}

	result, err := h.ingest.IngestSource(c.Request.Context(), src)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": result.Added})
}

func sourceFromRequest(req ingestRequest) (usecase.IngestSource, error) {
	src := usecase.IngestSource{
		Name:             req.Name,
		URL:              req.URL,
		Hall:             req.Hall,
		Station:          req.Station,
		MealTypes:        req.MealTypes,
		Dining:           req.Dining,
		LabelURLTemplate: req.LabelURLTemplate,
	}

	switch req.Kind {
	case "", "json":
		src.Kind = usecase.SourceJSON
	case "html":
		src.Kind = usecase.SourceHTML
	case "pdf":
		src.Kind = usecase.SourcePDF
	default:
		return src, errors.New("kind must be one of: json, html, pdf")
	}

	if req.MenuDate != "" {
		d, err := parseDate(req.MenuDate)
		if err != nil {
			return src, err
		}
		src.MenuDate = &d
	}
	return src, nil
}

type parseOrderRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	HTML    string `json:"html"`
}

// ParseOrder parses an order email body without tracking anything.
func (h *Handler) ParseOrder(c *gin.Context) {
	var req parseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.Body == "" && req.HTML == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body or html is required"})
		return
	}

	order := h.parser.ParseOrderEmail(req.Subject, req.Body, req.HTML)
	c.JSON(http.StatusOK, gin.H{
		"restaurant":    order.Restaurant,
		"orderId":       order.OrderID,
		"items":         order.Items,
		"receiptPdfUrl": order.ReceiptPDFURL,
	})
}

type syncOrderRequest struct {
	UserID   string `json:"userId" binding:"required"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	HTML     string `json:"html"`
	MealType string `json:"mealType"`
	Date     string `json:"date"`
}

// SyncOrder parses an order email, matches its items against the
// catalog, and records tracked meals for the user.
func (h *Handler) SyncOrder(c *gin.Context) {
	if h.orders == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Order service not configured",
		})
		return
	}

	var req syncOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if req.Body == "" && req.HTML == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body or html is required"})
		return
	}

	in, err := syncInputFromRequest(req.UserID, req.From, req.Subject, req.Body, req.HTML, req.MealType, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.orders.SyncOrderEmail(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"matched": result.Matched,
		"total":   result.Total,
	})
}

type receiptRequest struct {
	UserID   string `json:"userId" binding:"required"`
	MealType string `json:"mealType"`
	Date     string `json:"date"`
	PDF      string `json:"pdf" binding:"required"` // base64-encoded receipt
}

// UploadReceipt reconciles a receipt PDF the user uploaded directly.
func (h *Handler) UploadReceipt(c *gin.Context) {
	if h.orders == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Order service not configured",
		})
		return
	}

	var req receiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	pdfData, err := base64.StdEncoding.DecodeString(req.PDF)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pdf must be base64-encoded"})
		return
	}

	in, err := syncInputFromRequest(req.UserID, "", "", "", "", req.MealType, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.orders.SyncReceiptPDF(c.Request.Context(), in, pdfData)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"matched": result.Matched,
		"total":   result.Total,
	})
}

type matchRequest struct {
	Name string `json:"name" binding:"required"`
	Hall string `json:"hall"`
}

// MatchItem resolves one order item name against the catalog.
func (h *Handler) MatchItem(c *gin.Context) {
	if h.matcher == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Matching service not configured",
		})
		return
	}

	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	catalog, err := h.matcher.BuildCatalog(c.Request.Context(), req.Hall)
	if err != nil {
		h.respondError(c, err)
		return
	}

	matched, err := h.matcher.Match(req.Name, catalog)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": matched.Item})
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNoMatch), errors.Is(err, domain.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSourceFetch):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream source unavailable"})
	case errors.Is(err, domain.ErrMalformedDocument):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		if h.log != nil {
			h.log.Errorw("request failed", "path", c.FullPath(), "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func syncInputFromRequest(userID, from, subject, body, html, mealType, date string) (usecase.SyncOrderInput, error) {
	in := usecase.SyncOrderInput{
		UserID:   userID,
		From:     from,
		Subject:  subject,
		Body:     body,
		HTML:     html,
		MealType: mealType,
	}
	if date != "" {
		d, err := parseDate(date)
		if err != nil {
			return in, err
		}
		in.Date = d
	}
	return in, nil
}

// parseDate accepts RFC3339 timestamps or bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.New("date must be RFC3339 or YYYY-MM-DD")
	}
	return t, nil
}
