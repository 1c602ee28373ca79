package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/platelog/backend/config"
	"github.com/platelog/backend/internal/infrastructure/catalog"
	"github.com/platelog/backend/internal/infrastructure/fetch"
	"github.com/platelog/backend/internal/infrastructure/pdftext"
	"github.com/platelog/backend/internal/usecase"
)

// sourceSpec is one entry in a -sources file.
type sourceSpec struct {
	Name             string   `json:"name"`
	URL              string   `json:"url"`
	Kind             string   `json:"kind"`
	Hall             string   `json:"hall"`
	Station          string   `json:"station"`
	MealTypes        []string `json:"mealTypes"`
	MenuDate         string   `json:"menuDate"`
	Dining           bool     `json:"dining"`
	LabelURLTemplate string   `json:"labelUrlTemplate"`
}

func main() {
	var (
		sourcesPath = flag.String("sources", "", "path to a JSON file listing menu sources")
		sourceURL   = flag.String("url", "", "single source URL (alternative to -sources)")
		kind        = flag.String("kind", "json", "source kind: json, html, or pdf")
		hall        = flag.String("hall", "", "dining hall or restaurant name")
		station     = flag.String("station", "", "station within the hall")
		mealsFlag   = flag.String("meals", "", "comma-separated meal types, e.g. Breakfast,Lunch")
		dateFlag    = flag.String("date", "", "menu date (YYYY-MM-DD)")
		dining      = flag.Bool("dining", false, "dedupe rows on menu position instead of name")
		labelTmpl   = flag.String("label-template", "", "nutrition label URL template for backfill, %s expands to the record id")
		backfill    = flag.Bool("backfill", false, "fill nutrition for existing placeholder rows instead of ingesting")
		limit       = flag.Int("limit", 0, "max rows to backfill (default from config)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	sources, err := loadSources(*sourcesPath, sourceSpec{
		URL: *sourceURL, Kind: *kind, Hall: *hall, Station: *station,
		MealTypes: splitMeals(*mealsFlag), MenuDate: *dateFlag,
		Dining: *dining, LabelURLTemplate: *labelTmpl,
	})
	if err != nil {
		log.Fatalf("Failed to load sources: %v", err)
	}
	if len(sources) == 0 {
		log.Fatal("No sources given: pass -sources FILE or -url URL")
	}

	store, err := catalog.OpenSQLite(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("Failed to open catalog database %s: %v", cfg.Catalog.Path, err)
	}
	defer store.Close()

	fetcher := fetch.NewClient(cfg.Scrape.FetchTimeout, 0, sugar)
	limiter := rate.NewLimiter(rate.Every(cfg.Scrape.RequestInterval), 1)
	ingest := usecase.NewIngestService(store, fetcher, pdftext.NewReader(), limiter, cfg.Scrape.ForceStationUpdate, sugar)

	ctx := context.Background()
	if *backfill {
		runBackfill(ctx, ingest, sources, pickLimit(*limit, cfg.Scrape.BackfillLimit))
		return
	}
	runIngest(ctx, ingest, sources)
}

func runIngest(ctx context.Context, ingest *usecase.IngestService, sources []usecase.IngestSource) {
	total := 0
	for _, src := range sources {
		result, err := ingest.IngestSource(ctx, src)
		if err != nil {
			log.Printf("%s: %v", sourceLabel(src), err)
			continue
		}
		log.Printf("%s: added %d", sourceLabel(src), result.Added)
		total += result.Added
	}
	log.Printf("Done: %d rows added", total)
}

func runBackfill(ctx context.Context, ingest *usecase.IngestService, sources []usecase.IngestSource, limit int) {
	for _, src := range sources {
		result, err := ingest.BackfillNutrition(ctx, src, limit)
		if err != nil {
			log.Printf("%s: %v", sourceLabel(src), err)
			continue
		}
		log.Printf("%s: updated %d of %d scanned", sourceLabel(src), result.Updated, result.Scanned)
	}
}

// loadSources reads the sources file, or falls back to the single
// source described by flags.
func loadSources(path string, single sourceSpec) ([]usecase.IngestSource, error) {
	var specs []sourceSpec
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &specs); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if single.URL != "" {
		specs = []sourceSpec{single}
	}

	sources := make([]usecase.IngestSource, 0, len(specs))
	for _, spec := range specs {
		src, err := toIngestSource(spec)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func toIngestSource(spec sourceSpec) (usecase.IngestSource, error) {
	src := usecase.IngestSource{
		Name:             spec.Name,
		URL:              spec.URL,
		Hall:             spec.Hall,
		Station:          spec.Station,
		MealTypes:        spec.MealTypes,
		Dining:           spec.Dining,
		LabelURLTemplate: spec.LabelURLTemplate,
	}
	switch spec.Kind {
	case "", "json":
		src.Kind = usecase.SourceJSON
	case "html":
		src.Kind = usecase.SourceHTML
	case "pdf":
		src.Kind = usecase.SourcePDF
	default:
		return src, fmt.Errorf("unknown source kind %q", spec.Kind)
	}
	if spec.MenuDate != "" {
		d, err := time.Parse("2006-01-02", spec.MenuDate)
		if err != nil {
			return src, fmt.Errorf("menu date %q: %w", spec.MenuDate, err)
		}
		src.MenuDate = &d
	}
	return src, nil
}

func splitMeals(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	meals := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			meals = append(meals, p)
		}
	}
	return meals
}

func sourceLabel(src usecase.IngestSource) string {
	if src.Name != "" {
		return src.Name
	}
	return src.URL
}

func pickLimit(flagLimit, configLimit int) int {
	if flagLimit > 0 {
		return flagLimit
	}
	return configLimit
}
