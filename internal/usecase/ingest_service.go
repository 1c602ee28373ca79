package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/platelog/backend/internal/domain"
	"github.com/platelog/backend/internal/extract"
)

// Fetcher is the outbound HTTP boundary for menu and receipt sources.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string) (interface{}, error)
	FetchText(ctx context.Context, url string) (string, error)
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// PDFTextExtractor turns raw PDF bytes into row-ordered text.
type PDFTextExtractor interface {
	Text(data []byte) (string, error)
}

// SourceKind selects how a source URL's response is interpreted.
type SourceKind string

const (
	SourceJSON SourceKind = "json"
	SourceHTML SourceKind = "html"
	SourcePDF  SourceKind = "pdf"
)

// IngestSource describes one menu source to pull.
type IngestSource struct {
	Name      string
	URL       string
	Kind      SourceKind
	Hall      string
	Station   string
	MealTypes []string
	MenuDate  *time.Time
	// Dining indicates a dining-hall source whose rows dedupe on the
	// full menu position rather than on the bare name.
	Dining bool
	// LabelURLTemplate, when set, expands a row's record id into the URL
	// of its nutrition label page. Used by backfill.
	LabelURLTemplate string
}

var badNamePattern = regexp.MustCompile(`(?i)nutrition\s*\|\s*label`)

const defaultMealTypes = "|Breakfast|Lunch|Dinner|"

// IngestService pulls menu sources, extracts nutrition records, and
// upserts them into the catalog. Fetches are paced by a shared limiter
// so a scrape run doesn't hammer the upstream.
type IngestService struct {
	catalog domain.CatalogRepository
	fetcher Fetcher
	pdf     PDFTextExtractor
	limiter *rate.Limiter

	// forceStationUpdate overwrites a stored station with the source's
	// station on conflict, instead of keeping the first one seen.
	forceStationUpdate bool

	log *zap.SugaredLogger
}

func NewIngestService(catalog domain.CatalogRepository, fetcher Fetcher, pdf PDFTextExtractor, limiter *rate.Limiter, forceStationUpdate bool, log *zap.SugaredLogger) *IngestService {
	return &IngestService{
		catalog:            catalog,
		fetcher:            fetcher,
		pdf:                pdf,
		limiter:            limiter,
		forceStationUpdate: forceStationUpdate,
		log:                log,
	}
}

// IngestSource pulls one source and upserts everything extractable from
// it. Records that keep their name but lose their macros still get a
// zero-filled placeholder row, so backfill can find them later.
func (s *IngestService) IngestSource(ctx context.Context, src IngestSource) (domain.IngestResult, error) {
	records, err := s.extractSource(ctx, src)
	if err != nil {
		return domain.IngestResult{}, err
	}

	var result domain.IngestResult
	for _, record := range records {
		// Restaurant sources must come with full macros; dining sources
		// may insert placeholders that backfill completes later.
		if !record.Usable() && !src.Dining {
			continue
		}
		inserted, err := s.upsert(ctx, src, record)
		if err != nil {
			return result, fmt.Errorf("upserting %q: %w", record.Name, err)
		}
		if inserted {
			result.Added++
		}
	}
	if s.log != nil {
		s.log.Infow("source ingested", "source", src.Name, "records", len(records), "added", result.Added)
	}
	return result, nil
}

func (s *IngestService) extractSource(ctx context.Context, src IngestSource) ([]domain.ExtractedNutrition, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	var payload extract.Payload
	switch src.Kind {
	case SourceJSON:
		doc, err := s.fetcher.FetchJSON(ctx, src.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceFetch, src.URL, err)
		}
		payload.JSON = doc
	case SourcePDF:
		data, err := s.fetcher.FetchBytes(ctx, src.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceFetch, src.URL, err)
		}
		text, err := s.pdf.Text(data)
		if err != nil {
			return nil, fmt.Errorf("extracting pdf text from %s: %w", src.URL, err)
		}
		payload.PDFText = text
	default:
		body, err := s.fetcher.FetchText(ctx, src.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceFetch, src.URL, err)
		}
		payload.HTML = body
	}

	return extract.RunAll(payload), nil
}

// upsert reconciles one extracted record with the stored catalog.
// Returns true when a new row was inserted.
func (s *IngestService) upsert(ctx context.Context, src IngestSource, record domain.ExtractedNutrition) (bool, error) {
	if src.Dining {
		return s.upsertDining(ctx, src, record)
	}
	return s.upsertByName(ctx, src, record)
}

// upsertByName dedupes restaurant rows on (name, hall).
func (s *IngestService) upsertByName(ctx context.Context, src IngestSource, record domain.ExtractedNutrition) (bool, error) {
	existing, err := s.catalog.FindByNameAndHall(ctx, record.Name, src.Hall)
	if err != nil {
		return false, err
	}
	if existing == nil {
		item := newFoodItem(src, record)
		return true, s.catalog.Insert(ctx, &item)
	}
	if record.Usable() && existing.Calories == 0 {
		return false, s.catalog.Update(ctx, existing.ID, nutritionUpdate(record))
	}
	return false, nil
}

// upsertDining dedupes dining rows on the full menu position, probing
// progressively wider: the exact slot first, then without a menu date
// (rows scraped before dates existed have none), then without a meal
// type so a new meal period unions into the stored row instead of
// duplicating it.
func (s *IngestService) upsertDining(ctx context.Context, src IngestSource, record domain.ExtractedNutrition) (bool, error) {
	if record.ItemID == "" {
		// No upstream record id to dedupe on; fall back to the name key.
		return s.upsertByName(ctx, src, record)
	}

	base := domain.DiningMenuQuery{
		RecNumAndPort: record.ItemID,
		DiningHall:    src.Hall,
		Station:       src.Station,
		MealType:      firstMealType(src.MealTypes),
		MenuDate:      src.MenuDate,
	}
	if s.forceStationUpdate {
		base.Station = ""
	}

	probes := []domain.DiningMenuQuery{base}
	if base.MenuDate != nil {
		noDate := base
		noDate.MenuDate = nil
		probes = append(probes, noDate)
	}
	if base.MealType != "" {
		noMeal := base
		noMeal.MealType = ""
		probes = append(probes, noMeal)
		if base.MenuDate != nil {
			noBoth := noMeal
			noBoth.MenuDate = nil
			probes = append(probes, noBoth)
		}
	}

	var existing *domain.FoodItem
	var err error
	for _, q := range probes {
		if existing, err = s.catalog.FindDiningEntry(ctx, q); err != nil {
			return false, err
		}
		if existing != nil {
			break
		}
	}

	if existing == nil {
		item := newFoodItem(src, record)
		return true, s.catalog.Insert(ctx, &item)
	}

	update := domain.FoodItemUpdate{}
	changed := false

	if merged := mergeMealTypes(existing.MealTypes, src.MealTypes); merged != existing.MealTypes {
		update.MealTypes = &merged
		changed = true
	}
	if s.forceStationUpdate && src.Station != "" && src.Station != existing.Station {
		update.Station = &src.Station
		changed = true
	}
	if badNamePattern.MatchString(existing.Name) && record.Name != "" && !badNamePattern.MatchString(record.Name) {
		update.Name = &record.Name
		changed = true
	}
	if record.Usable() && existing.Calories == 0 {
		nut := nutritionUpdate(record)
		nut.MealTypes = update.MealTypes
		nut.Station = update.Station
		nut.Name = update.Name
		update = nut
		changed = true
	}

	if !changed {
		return false, nil
	}
	return false, s.catalog.Update(ctx, existing.ID, update)
}

// BackfillNutrition revisits placeholder rows (calories still zero) and
// pulls their nutrition label pages.
func (s *IngestService) BackfillNutrition(ctx context.Context, src IngestSource, limit int) (domain.BackfillResult, error) {
	if src.LabelURLTemplate == "" {
		return domain.BackfillResult{}, fmt.Errorf("%w: source %q has no label url template", domain.ErrInvalidRequest, src.Name)
	}

	rows, err := s.catalog.ListMissingNutrition(ctx, []string{src.Hall}, limit)
	if err != nil {
		return domain.BackfillResult{}, err
	}

	var result domain.BackfillResult
	for _, row := range rows {
		result.Scanned++
		if row.RecNumAndPort == "" {
			continue
		}
		if err := s.wait(ctx); err != nil {
			return result, err
		}

		url := fmt.Sprintf(src.LabelURLTemplate, row.RecNumAndPort)
		body, err := s.fetcher.FetchText(ctx, url)
		if err != nil {
			if s.log != nil {
				s.log.Warnw("label page fetch failed", "item", row.Name, "url", url, "error", err)
			}
			continue
		}

		records := extract.Run(extract.Payload{HTML: body})
		if len(records) == 0 {
			continue
		}
		update := nutritionUpdate(records[0])
		if badNamePattern.MatchString(row.Name) && records[0].Name != "" {
			update.Name = &records[0].Name
		}
		if err := s.catalog.Update(ctx, row.ID, update); err != nil {
			return result, fmt.Errorf("updating %q: %w", row.Name, err)
		}
		result.Updated++
	}
	return result, nil
}

func (s *IngestService) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// newFoodItem builds the row for a fresh insert. Unusable records become
// zero-filled placeholders that backfill targets later.
func newFoodItem(src IngestSource, record domain.ExtractedNutrition) domain.FoodItem {
	item := domain.FoodItem{
		Name:          record.Name,
		DiningHall:    src.Hall,
		Station:       src.Station,
		RecNumAndPort: record.ItemID,
		ServingSize:   record.ServingSize,
		MealTypes:     mergeMealTypes("", src.MealTypes),
		MenuDate:      src.MenuDate,
		SaturatedFat:  record.SaturatedFat,
		TransFat:      record.TransFat,
		Cholesterol:   record.Cholesterol,
		Sodium:        record.Sodium,
		Fiber:         record.Fiber,
		Sugars:        record.Sugars,
		Ingredients:   record.Ingredients,
		LastUpdated:   time.Now().UTC(),
	}
	if len(record.Allergens) > 0 {
		item.Allergens = `["` + strings.Join(record.Allergens, `","`) + `"]`
	}
	if record.Usable() {
		item.Calories = *record.Calories
		item.Protein = *record.Protein
		item.Carbs = *record.Carbs
		item.Fat = *record.Fat
	}
	return item
}

func nutritionUpdate(record domain.ExtractedNutrition) domain.FoodItemUpdate {
	update := domain.FoodItemUpdate{
		Calories:     record.Calories,
		Protein:      record.Protein,
		Carbs:        record.Carbs,
		Fat:          record.Fat,
		SaturatedFat: record.SaturatedFat,
		TransFat:     record.TransFat,
		Cholesterol:  record.Cholesterol,
		Sodium:       record.Sodium,
		Fiber:        record.Fiber,
		Sugars:       record.Sugars,
	}
	if record.ServingSize != "" {
		update.ServingSize = &record.ServingSize
	}
	if record.Ingredients != "" {
		update.Ingredients = &record.Ingredients
	}
	return update
}

// mergeMealTypes unions a stored pipe-delimited list with a source's
// meal types, preserving stored order and defaulting to all three meals
// when both sides are empty.
func mergeMealTypes(stored string, incoming []string) string {
	if stored == "" && len(incoming) == 0 {
		return defaultMealTypes
	}
	seen := make(map[string]bool)
	var meals []string
	for _, m := range strings.Split(strings.Trim(stored, "|"), "|") {
		if m = strings.TrimSpace(m); m != "" && !seen[strings.ToLower(m)] {
			seen[strings.ToLower(m)] = true
			meals = append(meals, m)
		}
	}
	for _, m := range incoming {
		if m = strings.TrimSpace(m); m != "" && !seen[strings.ToLower(m)] {
			seen[strings.ToLower(m)] = true
			meals = append(meals, m)
		}
	}
	if len(meals) == 0 {
		return defaultMealTypes
	}
	return "|" + strings.Join(meals, "|") + "|"
}

func firstMealType(meals []string) string {
	if len(meals) == 0 {
		return ""
	}
	return meals[0]
}
