package extract

import (
	"github.com/platelog/backend/internal/domain"
)

// Payload carries the raw material one source fetch produced. A source
// usually fills exactly one field; strategies ignore the fields they
// don't read.
type Payload struct {
	JSON    interface{} // decoded JSON document, when the source returned one
	HTML    string      // raw HTML body
	PDFText string      // text already pulled out of a PDF, one line per row
}

// Strategy is one extraction pass over a payload. Strategies never error:
// a pass that finds nothing returns an empty slice and the runner moves on.
type Strategy func(Payload) []domain.ExtractedNutrition

// DefaultStrategies returns the standard cascade, ordered from the most
// structured source shape to the most heuristic.
func DefaultStrategies() []Strategy {
	return []Strategy{
		FromStructured,
		FromNutrientList,
		FromTree,
		FromTables,
		FromPDFText,
		FromLabelPage,
	}
}

// Run applies strategies in order and returns the results of the first
// one that yields at least one usable record, filtered down to the usable
// records. Returns nil when every strategy comes up empty.
func Run(p Payload, strategies ...Strategy) []domain.ExtractedNutrition {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	for _, strategy := range strategies {
		records := strategy(p)
		usable := make([]domain.ExtractedNutrition, 0, len(records))
		for _, r := range records {
			if r.Usable() {
				usable = append(usable, r)
			}
		}
		if len(usable) > 0 {
			return usable
		}
	}
	return nil
}

// RunAll is Run without the usable filter: the first strategy yielding
// any named record wins, partial records included. Ingestion uses this
// to insert placeholder rows for items whose nutrition is published
// separately from the menu listing.
func RunAll(p Payload, strategies ...Strategy) []domain.ExtractedNutrition {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	for _, strategy := range strategies {
		records := strategy(p)
		named := make([]domain.ExtractedNutrition, 0, len(records))
		for _, r := range records {
			if r.Name != "" {
				named = append(named, r)
			}
		}
		if len(named) > 0 {
			return named
		}
	}
	return nil
}
