package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/platelog/backend/internal/domain"
)

// OrderService turns one order document into tracked meals: parse the
// lines, match each against the catalog, log what matched, and record
// what didn't so it can be resolved by hand.
type OrderService struct {
	parser  *OrderParser
	matcher *MatchingService
	meals   domain.MealRepository
	fetcher Fetcher
	pdf     PDFTextExtractor
	log     *zap.SugaredLogger
}

func NewOrderService(parser *OrderParser, matcher *MatchingService, meals domain.MealRepository, fetcher Fetcher, pdf PDFTextExtractor, log *zap.SugaredLogger) *OrderService {
	return &OrderService{
		parser:  parser,
		matcher: matcher,
		meals:   meals,
		fetcher: fetcher,
		pdf:     pdf,
		log:     log,
	}
}

// SyncOrderInput is one order email to reconcile for one user. HTML
// carries the email's HTML alternative when the message is multipart.
type SyncOrderInput struct {
	UserID   string
	From     string
	Subject  string
	Body     string
	HTML     string
	MealType string
	Date     time.Time
}

// SyncOrderEmail parses an order confirmation email and logs its items.
// When the email body yields nothing but links a receipt PDF, the PDF is
// fetched and parsed instead.
func (s *OrderService) SyncOrderEmail(ctx context.Context, in SyncOrderInput) (domain.SyncResult, error) {
	if !LooksLikeOrderEmail(in.Subject, in.Body+"\n"+in.HTML) {
		return domain.SyncResult{}, fmt.Errorf("%w: not an order email", domain.ErrInvalidRequest)
	}

	order := s.parser.ParseOrderEmail(in.Subject, in.Body, in.HTML)
	if order.Restaurant == "" {
		order.Restaurant = restaurantFromSender(in.From)
	}
	if len(order.Items) == 0 && order.ReceiptPDFURL != "" {
		items, restaurant, err := s.itemsFromReceiptURL(ctx, order.ReceiptPDFURL)
		if err != nil {
			return domain.SyncResult{}, err
		}
		order.Items = items
		if order.Restaurant == "" {
			order.Restaurant = restaurant
		}
	}

	return s.trackItems(ctx, in, order)
}

// SyncReceiptPDF reconciles a receipt PDF the user uploaded directly.
func (s *OrderService) SyncReceiptPDF(ctx context.Context, in SyncOrderInput, pdfData []byte) (domain.SyncResult, error) {
	text, err := s.pdf.Text(pdfData)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("reading receipt pdf: %w", err)
	}
	order := domain.ParsedOrder{
		Restaurant: detectRestaurant(text),
		Items:      s.parser.ParseReceiptText(text),
	}
	return s.trackItems(ctx, in, order)
}

func (s *OrderService) itemsFromReceiptURL(ctx context.Context, url string) ([]domain.ParsedOrderItem, string, error) {
	data, err := s.fetcher.FetchBytes(ctx, url)
	if err != nil {
		return nil, "", fmt.Errorf("%w: receipt pdf %s: %v", domain.ErrSourceFetch, url, err)
	}
	text, err := s.pdf.Text(data)
	if err != nil {
		return nil, "", fmt.Errorf("reading receipt pdf %s: %w", url, err)
	}
	return s.parser.ParseReceiptText(text), detectRestaurant(text), nil
}

// trackItems matches every parsed line and records the outcome. A line
// that matches nothing is persisted as unmatched rather than dropped.
func (s *OrderService) trackItems(ctx context.Context, in SyncOrderInput, order domain.ParsedOrder) (domain.SyncResult, error) {
	result := domain.SyncResult{Total: len(order.Items)}
	if result.Total == 0 {
		return result, nil
	}

	catalog, err := s.matcher.BuildCatalog(ctx, order.Restaurant)
	if err != nil {
		return result, err
	}

	mealType := in.MealType
	if mealType == "" {
		mealType = inferMealType(in.Date)
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	for _, item := range order.Items {
		matched, err := s.matcher.Match(item.Name, catalog)
		if err != nil {
			if s.log != nil {
				s.log.Infow("order line unmatched", "item", item.Name, "restaurant", order.Restaurant)
			}
			unmatched := domain.UnmatchedOrderItem{
				UserID:     in.UserID,
				Restaurant: order.Restaurant,
				ItemName:   item.Name,
				Quantity:   item.Quantity,
			}
			if err := s.meals.AddUnmatchedItem(ctx, unmatched); err != nil {
				return result, fmt.Errorf("recording unmatched item %q: %w", item.Name, err)
			}
			continue
		}
		if err := s.meals.AddTrackedMeal(ctx, in.UserID, matched.Item.ID, mealType, date, item.Quantity); err != nil {
			return result, fmt.Errorf("tracking %q: %w", matched.Item.Name, err)
		}
		result.Matched++
	}
	return result, nil
}

// inferMealType picks the meal period from the order's local hour.
func inferMealType(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	switch hour := t.Hour(); {
	case hour < 11:
		return "Breakfast"
	case hour < 16:
		return "Lunch"
	default:
		return "Dinner"
	}
}
