package usecase

import (
	"errors"
	"testing"

	"github.com/platelog/backend/internal/domain"
)

func catalogOf(names ...string) []domain.CatalogItem {
	rows := make([]domain.FoodItem, 0, len(names))
	for i, n := range names {
		rows = append(rows, domain.FoodItem{ID: int64(i + 1), Name: n})
	}
	return PrepareCatalog(rows)
}

func newTestMatcher() *MatchingService {
	return NewMatchingService(nil, nil)
}

func TestMatchExactNormalized(t *testing.T) {
	catalog := catalogOf("Classic Chicken Sandwich", "Spicy Chicken Sandwich")
	got, err := newTestMatcher().Match("classic chicken sandwich!", catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Item.Name != "Classic Chicken Sandwich" {
		t.Errorf("matched %q", got.Item.Name)
	}
}

func TestMatchNumberFilter(t *testing.T) {
	catalog := catalogOf("Wings (6 pc)", "Wings (10 pc)", "Wings (16 pc)")
	got, err := newTestMatcher().Match("10 pc Wings", catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Item.Name != "Wings (10 pc)" {
		t.Errorf("matched %q, want the 10 pc row", got.Item.Name)
	}
}

func TestMatchNumberFilterWidensWhenEmpty(t *testing.T) {
	// No row carries a 12; the count filter must widen instead of
	// failing the match.
	catalog := catalogOf("Chicken Nuggets")
	got, err := newTestMatcher().Match("12 pc Chicken Nuggets", catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Item.Name != "Chicken Nuggets" {
		t.Errorf("matched %q", got.Item.Name)
	}
}

func TestMatchFlavorFilter(t *testing.T) {
	catalog := catalogOf("Wings Honey BBQ (6 pc)", "Wings Lemon Pepper (6 pc)", "Wings Buffalo (6 pc)")
	got, err := newTestMatcher().Match("6 pc Lemon Pepper Wings", catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Item.Name != "Wings Lemon Pepper (6 pc)" {
		t.Errorf("matched %q", got.Item.Name)
	}
}

func TestMatchFlavorMissKeepsCountPool(t *testing.T) {
	// The order's flavor word appears in no row, but the count filter
	// already narrowed to the right one; the flavor filter must not
	// throw that pool away.
	catalog := catalogOf("Wings (10 pc)", "Honey Mustard Dip")
	got, err := newTestMatcher().Match("10 pc Honey Wings", catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Item.Name != "Wings (10 pc)" {
		t.Errorf("matched %q, want the 10 pc row", got.Item.Name)
	}
}

func TestFilterByFlavorsSubstring(t *testing.T) {
	// Flavor tokens match by containment, not whole words.
	catalog := catalogOf("Spicymayo Wrap", "Plain Wrap")
	got := filterByFlavors(catalog, []string{"spicy"})
	if len(got) != 1 || got[0].Item.Name != "Spicymayo Wrap" {
		t.Errorf("filterByFlavors = %+v", got)
	}
}

func TestMatchTokenKeyWordOrder(t *testing.T) {
	catalog := catalogOf("Chicken Wrap BBQ")
	got, err := newTestMatcher().Match("BBQ Chicken Wrap", catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Item.ID != 1 {
		t.Errorf("matched id %d", got.Item.ID)
	}
}

func TestMatchLooseContainment(t *testing.T) {
	catalog := catalogOf("Signature Hot Chicken Sandwich Combo")
	got, err := newTestMatcher().Match("Signature Hot Chicken Sandwich", catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Item.ID != 1 {
		t.Errorf("matched id %d", got.Item.ID)
	}
}

func TestMatchClassicDropped(t *testing.T) {
	catalog := catalogOf("Classic Fries")
	got, err := newTestMatcher().Match("Fries", catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Item.ID != 1 {
		t.Errorf("matched id %d", got.Item.ID)
	}
}

func TestMatchClassicDroppedOnOrderSide(t *testing.T) {
	catalog := catalogOf("Fries")
	got, err := newTestMatcher().Match("Classic Fries", catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Item.ID != 1 {
		t.Errorf("matched id %d", got.Item.ID)
	}
}

func TestMatchNoMatch(t *testing.T) {
	catalog := catalogOf("Caesar Salad")
	_, err := newTestMatcher().Match("Chocolate Shake", catalog)
	if !errors.Is(err, domain.ErrNoMatch) {
		t.Fatalf("err = %v, want ErrNoMatch", err)
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	if _, err := newTestMatcher().Match("", catalogOf("Fries")); !errors.Is(err, domain.ErrNoMatch) {
		t.Errorf("empty name: err = %v", err)
	}
	if _, err := newTestMatcher().Match("Fries", nil); !errors.Is(err, domain.ErrNoMatch) {
		t.Errorf("empty catalog: err = %v", err)
	}
}
