package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/platelog/backend/internal/domain"
	"github.com/platelog/backend/internal/extract"
)

// flavorWords are the flavor descriptors that disambiguate otherwise
// identical menu lines ("6 pc Honey BBQ Wings" vs "6 pc Lemon Pepper
// Wings"). An order name carrying one narrows the candidate pool to
// items carrying it too.
var flavorWords = []string{
	"sweet", "spicy", "bbq", "buffalo", "garlic", "honey", "lemon",
	"pepper", "signature", "ranch", "parmesan", "cajun", "mild", "hot",
}

// MatchingService resolves parsed order lines to catalog rows.
type MatchingService struct {
	catalog domain.CatalogRepository
	log     *zap.SugaredLogger
}

func NewMatchingService(catalog domain.CatalogRepository, log *zap.SugaredLogger) *MatchingService {
	return &MatchingService{catalog: catalog, log: log}
}

// BuildCatalog loads the rows for one restaurant or dining hall (all
// rows when hall is empty) and derives the comparison forms the matcher
// works on. The derived catalog is per-session; callers reuse it across
// the lines of one order.
func (s *MatchingService) BuildCatalog(ctx context.Context, hall string) ([]domain.CatalogItem, error) {
	var rows []domain.FoodItem
	var err error
	if hall == "" {
		rows, err = s.catalog.ListAll(ctx)
	} else {
		rows, err = s.catalog.ListByHall(ctx, hall)
	}
	if err != nil {
		return nil, fmt.Errorf("loading catalog for %q: %w", hall, err)
	}
	return PrepareCatalog(rows), nil
}

// PrepareCatalog derives the comparable forms for each row.
func PrepareCatalog(rows []domain.FoodItem) []domain.CatalogItem {
	catalog := make([]domain.CatalogItem, 0, len(rows))
	for _, row := range rows {
		catalog = append(catalog, domain.CatalogItem{
			Item:       row,
			Normalized: NormalizeFoodName(row.Name),
			Loose:      NormalizeLoose(row.Name),
			TokenKey:   TokenKey(row.Name),
			Numbers:    extract.ExtractIntegers(row.Name + " " + row.ServingSize),
		})
	}
	return catalog
}

// Match finds the catalog row for one order line. The cascade runs from
// strict to loose: exact normalized equality, then a count filter, then
// a flavor filter, then containment and token-set checks over whatever
// pool survived. Returns domain.ErrNoMatch when nothing fits.
func (s *MatchingService) Match(orderName string, catalog []domain.CatalogItem) (*domain.CatalogItem, error) {
	normalized := NormalizeFoodName(orderName)
	if normalized == "" || len(catalog) == 0 {
		return nil, domain.ErrNoMatch
	}

	for i := range catalog {
		if catalog[i].Normalized == normalized {
			return &catalog[i], nil
		}
	}

	// Count filter: "10 pc Wings" must not land on the 6 pc row. An
	// order line with numbers keeps only rows carrying all of them.
	numberFiltered := catalog
	if orderNumbers := extract.ExtractIntegers(orderName); len(orderNumbers) > 0 {
		numberFiltered = filterByNumbers(catalog, orderNumbers)
	}

	// Flavor filter over the count-filtered rows. When it empties the
	// pool the count-filtered rows stand, and only when those are empty
	// too does the search widen back to the full catalog.
	pool := numberFiltered
	if flavors := flavorTokens(normalized); len(flavors) > 0 {
		if filtered := filterByFlavors(numberFiltered, flavors); len(filtered) > 0 {
			pool = filtered
		}
	}
	if len(pool) == 0 {
		pool = catalog
	}

	loose := NormalizeLoose(orderName)
	noClassic := StripClassic(loose)
	key := TokenKey(orderName)
	for i := range pool {
		c := &pool[i]
		if containsEither(c.Normalized, normalized) ||
			containsEither(c.Loose, loose) ||
			containsEither(c.Loose, noClassic) ||
			(key != "" && c.TokenKey == key) {
			if s.log != nil {
				s.log.Debugw("fuzzy match", "order", orderName, "item", c.Item.Name)
			}
			return c, nil
		}
	}
	return nil, domain.ErrNoMatch
}

func filterByNumbers(catalog []domain.CatalogItem, orderNumbers []int) []domain.CatalogItem {
	var out []domain.CatalogItem
	for _, c := range catalog {
		if containsAllNumbers(c.Numbers, orderNumbers) {
			out = append(out, c)
		}
	}
	return out
}

func containsAllNumbers(have, want []int) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// flavorTokens returns the flavor words present in a normalized name.
func flavorTokens(normalized string) []string {
	fields := strings.Fields(normalized)
	var out []string
	for _, flavor := range flavorWords {
		for _, f := range fields {
			if f == flavor {
				out = append(out, flavor)
				break
			}
		}
	}
	return out
}

// filterByFlavors keeps rows whose normalized name contains every
// flavor token as a substring.
func filterByFlavors(catalog []domain.CatalogItem, flavors []string) []domain.CatalogItem {
	var out []domain.CatalogItem
	for _, c := range catalog {
		all := true
		for _, flavor := range flavors {
			if !strings.Contains(c.Normalized, flavor) {
				all = false
				break
			}
		}
		if all {
			out = append(out, c)
		}
	}
	return out
}

// containsEither reports whether either normalized name contains the
// other. Both directions matter: receipts abbreviate menu names and
// menus abbreviate receipt names.
func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
