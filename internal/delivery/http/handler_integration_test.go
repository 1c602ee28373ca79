package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/platelog/backend/config"
	"github.com/platelog/backend/internal/domain"
	"github.com/platelog/backend/internal/infrastructure/catalog"
	"github.com/platelog/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

type stubFetcher struct {
	json map[string]interface{}
}

func (f *stubFetcher) FetchJSON(ctx context.Context, url string) (interface{}, error) {
	if doc, ok := f.json[url]; ok {
		return doc, nil
	}
	return nil, errors.New("not found")
}

func (f *stubFetcher) FetchText(ctx context.Context, url string) (string, error) {
	return "", errors.New("not found")
}

func (f *stubFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return nil, errors.New("not found")
}

type stubPDF struct {
	text string
}

func (s *stubPDF) Text(data []byte) (string, error) {
	if s.text == "" {
		return "", domain.ErrMalformedDocument
	}
	return s.text, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:3000", "https://*"},
		},
		Catalog: config.CatalogConfig{Type: "memory"},
	}
}

// setupTestRouter wires real services over the in-memory stores, with a
// canned PDF extractor and fetcher.
func setupTestRouter(t *testing.T, pdfText string) (*gin.Engine, *catalog.MemoryMealLog) {
	t.Helper()

	store := catalog.NewMemoryStore()
	seed := []domain.FoodItem{
		{Name: "Big Mac", DiningHall: "McDonald's", ServingSize: "1 each", Calories: 590, Protein: 25, Carbs: 46, Fat: 34},
		{Name: "Sweet Tea", DiningHall: "McDonald's", ServingSize: "16 oz", Calories: 160, Protein: 0, Carbs: 43, Fat: 0},
	}
	for i := range seed {
		if err := store.Insert(context.Background(), &seed[i]); err != nil {
			t.Fatalf("seeding catalog: %v", err)
		}
	}

	meals := catalog.NewMemoryMealLog()
	pdf := &stubPDF{text: pdfText}
	fetcher := &stubFetcher{json: map[string]interface{}{
		"https://dining.test/menu": map[string]interface{}{
			"menu": []interface{}{
				map[string]interface{}{
					"name": "Herb Roasted Chicken", "id": "1234*5",
					"calories": float64(280), "protein": float64(39), "carbs": float64(2), "fat": float64(12),
				},
			},
		},
	}}

	parser := usecase.NewOrderParser(nil)
	matcher := usecase.NewMatchingService(store, nil)
	orders := usecase.NewOrderService(parser, matcher, meals, fetcher, pdf, nil)
	ingest := usecase.NewIngestService(store, fetcher, pdf, nil, false, nil)

	handler := NewHandler(orders, ingest, matcher, parser, nil)
	return SetupRouter(testConfig(), handler), meals
}

func postJSON(router *gin.Engine, path, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return response
}

func TestHealthCheckEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t, "")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	response := decodeBody(t, w)
	if response["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", response["status"])
	}
	if response["service"] != "platelog-backend" {
		t.Errorf("service = %v, want platelog-backend", response["service"])
	}
}

func TestParseOrderEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t, "")

	t.Run("parses bulleted item section", func(t *testing.T) {
		payload := `{"subject":"Your McDonald's order is confirmed","body":"Thanks!\nItems:\n- Big Mac x2\n- Sweet Tea\nTotal $13.58"}`
		w := postJSON(router, "/api/v1/orders/parse", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, body %s", w.Code, w.Body.String())
		}
		response := decodeBody(t, w)
		if response["restaurant"] != "McDonald's" {
			t.Errorf("restaurant = %v, want McDonald's", response["restaurant"])
		}
		items, ok := response["items"].([]interface{})
		if !ok || len(items) != 2 {
			t.Fatalf("items = %v, want 2 entries", response["items"])
		}
	})

	t.Run("parses items from html part", func(t *testing.T) {
		payload := `{"subject":"Your McDonald's order is confirmed","body":"See your order online.","html":"<html><body><div>Items:</div><div>- Big Mac x2</div><div>Total $13.58</div></body></html>"}`
		w := postJSON(router, "/api/v1/orders/parse", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, body %s", w.Code, w.Body.String())
		}
		response := decodeBody(t, w)
		items, ok := response["items"].([]interface{})
		if !ok || len(items) != 1 {
			t.Fatalf("items = %v, want 1 entry", response["items"])
		}
	})

	t.Run("rejects missing body", func(t *testing.T) {
		w := postJSON(router, "/api/v1/orders/parse", `{"subject":"no body"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		w := postJSON(router, "/api/v1/orders/parse", `{not json}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestSyncOrderEndpoint(t *testing.T) {
	t.Run("tracks matched items", func(t *testing.T) {
		router, meals := setupTestRouter(t, "")

		payload := `{"userId":"u1","subject":"Your McDonald's order is confirmed","body":"Items:\n- Big Mac x2\nTotal $13.58","date":"2025-03-01T12:30:00Z"}`
		w := postJSON(router, "/api/v1/orders/sync", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, body %s", w.Code, w.Body.String())
		}
		response := decodeBody(t, w)
		if response["matched"] != float64(1) || response["total"] != float64(1) {
			t.Errorf("sync result = %v", response)
		}

		tracked := meals.Meals()
		if len(tracked) != 1 {
			t.Fatalf("tracked %d meals, want 1", len(tracked))
		}
		if tracked[0].Quantity != 2 {
			t.Errorf("quantity = %d, want 2", tracked[0].Quantity)
		}
		if tracked[0].MealType != "Lunch" {
			t.Errorf("mealType = %s, want Lunch (12:30 order)", tracked[0].MealType)
		}
	})

	t.Run("tracks items from html-only email", func(t *testing.T) {
		router, meals := setupTestRouter(t, "")

		payload := `{"userId":"u1","subject":"Your McDonald's order is confirmed","html":"<html><body><div>Items:</div><div>- Big Mac</div><div>Total $5.99</div></body></html>"}`
		w := postJSON(router, "/api/v1/orders/sync", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, body %s", w.Code, w.Body.String())
		}
		if len(meals.Meals()) != 1 {
			t.Fatalf("tracked %d meals, want 1", len(meals.Meals()))
		}
	})

	t.Run("records unmatched items", func(t *testing.T) {
		router, meals := setupTestRouter(t, "")

		payload := `{"userId":"u1","subject":"Your McDonald's order is confirmed","body":"Items:\n- Quantum Flux Burger\nTotal $9.99"}`
		w := postJSON(router, "/api/v1/orders/sync", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, body %s", w.Code, w.Body.String())
		}
		response := decodeBody(t, w)
		if response["matched"] != float64(0) || response["total"] != float64(1) {
			t.Errorf("sync result = %v", response)
		}
		if len(meals.Unmatched()) != 1 {
			t.Errorf("unmatched count = %d, want 1", len(meals.Unmatched()))
		}
	})

	t.Run("rejects non-order email", func(t *testing.T) {
		router, _ := setupTestRouter(t, "")

		payload := `{"userId":"u1","subject":"Weekly deals just for you","body":"50% off everything"}`
		w := postJSON(router, "/api/v1/orders/sync", payload)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejects bad date", func(t *testing.T) {
		router, _ := setupTestRouter(t, "")

		payload := `{"userId":"u1","subject":"order","body":"Items:\n- Big Mac","date":"next tuesday"}`
		w := postJSON(router, "/api/v1/orders/sync", payload)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestUploadReceiptEndpoint(t *testing.T) {
	t.Run("tracks items from receipt text", func(t *testing.T) {
		receiptText := "McDonald's\n1  Big Mac  $5.99\nTotal $5.99"
		router, meals := setupTestRouter(t, receiptText)

		pdf := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake"))
		payload := `{"userId":"u2","mealType":"Dinner","pdf":"` + pdf + `"}`
		w := postJSON(router, "/api/v1/orders/receipt", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, body %s", w.Code, w.Body.String())
		}
		response := decodeBody(t, w)
		if response["matched"] != float64(1) || response["total"] != float64(1) {
			t.Errorf("sync result = %v", response)
		}
		tracked := meals.Meals()
		if len(tracked) != 1 || tracked[0].MealType != "Dinner" {
			t.Errorf("tracked = %+v", tracked)
		}
	})

	t.Run("rejects non-base64 payload", func(t *testing.T) {
		router, _ := setupTestRouter(t, "irrelevant")

		w := postJSON(router, "/api/v1/orders/receipt", `{"userId":"u2","pdf":"not base64!!!"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("maps malformed PDF to 422", func(t *testing.T) {
		router, _ := setupTestRouter(t, "") // stub returns ErrMalformedDocument

		pdf := base64.StdEncoding.EncodeToString([]byte("not a pdf"))
		w := postJSON(router, "/api/v1/orders/receipt", `{"userId":"u2","pdf":"`+pdf+`"}`)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
	})
}

func TestMatchEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t, "")

	t.Run("resolves a catalog item", func(t *testing.T) {
		w := postJSON(router, "/api/v1/match", `{"name":"Big Mac","hall":"McDonald's"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, body %s", w.Code, w.Body.String())
		}
		response := decodeBody(t, w)
		item, ok := response["item"].(map[string]interface{})
		if !ok {
			t.Fatalf("item missing: %v", response)
		}
		if item["name"] != "Big Mac" {
			t.Errorf("item.name = %v, want Big Mac", item["name"])
		}
	})

	t.Run("returns 404 when nothing matches", func(t *testing.T) {
		w := postJSON(router, "/api/v1/match", `{"name":"Quantum Flux Burger","hall":"McDonald's"}`)
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestIngestEndpoint(t *testing.T) {
	t.Run("ingests a JSON menu source", func(t *testing.T) {
		router, _ := setupTestRouter(t, "")

		payload := `{"name":"dining","url":"https://dining.test/menu","kind":"json","hall":"South Campus","station":"Grill","mealTypes":["Lunch"],"dining":true}`
		w := postJSON(router, "/api/v1/ingest", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, body %s", w.Code, w.Body.String())
		}
		response := decodeBody(t, w)
		if response["added"] != float64(1) {
			t.Errorf("added = %v, want 1", response["added"])
		}
	})

	t.Run("rejects unknown source kind", func(t *testing.T) {
		router, _ := setupTestRouter(t, "")

		w := postJSON(router, "/api/v1/ingest", `{"url":"https://dining.test/menu","kind":"csv"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 502 when the source is unreachable", func(t *testing.T) {
		router, _ := setupTestRouter(t, "")

		w := postJSON(router, "/api/v1/ingest", `{"url":"https://unknown.test/menu","kind":"json"}`)
		if w.Code != http.StatusBadGateway {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadGateway)
		}
	})

	t.Run("returns 501 when ingestion is not configured", func(t *testing.T) {
		handler := NewHandler(nil, nil, nil, usecase.NewOrderParser(nil), nil)
		router := SetupRouter(testConfig(), handler)

		w := postJSON(router, "/api/v1/ingest", `{"url":"https://dining.test/menu"}`)
		if w.Code != http.StatusNotImplemented {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotImplemented)
		}
	})
}

func TestCORSIntegration(t *testing.T) {
	router, _ := setupTestRouter(t, "")

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want localhost origin", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	router, _ := setupTestRouter(t, "")
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	req := httptest.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
