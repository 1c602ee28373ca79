package extract

import (
	"regexp"
	"strings"

	"github.com/platelog/backend/internal/domain"
)

// Nutrition guide PDFs render as one row per item: the name, an optional
// serving column, then a fixed run of numeric columns. Some vendors add a
// "% daily value" column after calories, giving 11 numbers instead of 10.

var (
	wideGapPattern   = regexp.MustCompile(`\s{2,}`)
	nutrientKeywords = []string{"calories", "total fat", "saturated", "trans", "cholesterol", "sodium", "carbohydrate", "fiber", "sugars", "protein", "serving"}
)

const (
	minRowTokens       = 10
	fullRowTokens      = 11
	mergeNextMinTokens = 10
)

func isColumnHeaderLine(lower string) bool {
	return strings.Contains(lower, "calories") &&
		strings.Contains(lower, "total fat") &&
		strings.Contains(lower, "protein")
}

func countNutrientKeywords(lower string) int {
	count := 0
	for _, kw := range nutrientKeywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}

// FromPDFText parses positional rows out of nutrition guide text. Rows
// with too few numbers borrow the next line once, covering names that
// wrapped onto their own line above the number run.
func FromPDFText(p Payload) []domain.ExtractedNutrition {
	if p.PDFText == "" {
		return nil
	}

	lines := strings.Split(p.PDFText, "\n")
	var out []domain.ExtractedNutrition
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if isColumnHeaderLine(lower) || countNutrientKeywords(lower) >= 2 {
			continue
		}
		if strings.HasPrefix(lower, "protein") || strings.HasPrefix(lower, "calories") {
			continue
		}

		tokens := ParseNumericTokens(line)
		if len(tokens) == 0 && i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if len(ParseNumericTokens(next)) >= mergeNextMinTokens {
				line = line + "  " + next
				tokens = ParseNumericTokens(line)
				i++
			}
		}
		if len(tokens) < minRowTokens {
			continue
		}

		if record, ok := rowToNutrition(line, tokens); ok {
			out = append(out, record)
		}
	}
	return out
}

func rowToNutrition(line string, tokens []NumericToken) (domain.ExtractedNutrition, bool) {
	take := fullRowTokens
	if len(tokens) < fullRowTokens {
		take = minRowTokens
	}
	tokens = tokens[len(tokens)-take:]

	name, serving := splitNameAndServing(line[:tokens[0].Index])
	if name == "" {
		return domain.ExtractedNutrition{}, false
	}

	values := make([]*int, len(tokens))
	for i, tok := range tokens {
		values[i] = TokenToNumber(tok.Text)
	}

	record := domain.ExtractedNutrition{Name: name, ServingSize: serving}
	if take == fullRowTokens {
		// calories, fat %DV, fat, sat fat, trans fat, cholesterol,
		// sodium, carbs, fiber, sugars, protein
		record.Calories = values[0]
		record.Fat = values[2]
		record.SaturatedFat = values[3]
		record.TransFat = values[4]
		record.Cholesterol = values[5]
		record.Sodium = values[6]
		record.Carbs = values[7]
		record.Fiber = values[8]
		record.Sugars = values[9]
		record.Protein = values[10]
	} else {
		record.Calories = values[0]
		record.Fat = values[1]
		record.SaturatedFat = values[2]
		record.TransFat = values[3]
		record.Cholesterol = values[4]
		record.Sodium = values[5]
		record.Carbs = values[6]
		record.Fiber = values[7]
		record.Sugars = values[8]
		record.Protein = values[9]
	}
	return record, record.Usable()
}

// splitNameAndServing cuts the text left of the number run at the first
// wide gap: the name column ends where the serving column begins.
func splitNameAndServing(prefix string) (string, string) {
	prefix = strings.TrimRight(prefix, " \t")
	parts := wideGapPattern.Split(prefix, 2)
	name := strings.TrimSpace(parts[0])
	serving := ""
	if len(parts) > 1 {
		serving = strings.TrimSpace(parts[1])
	}
	return name, serving
}
