package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/platelog/backend/internal/domain"
)

// Dining-hall label pages render a single nutrition facts panel as loose
// markup with no tables or embedded JSON. This strategy falls back to
// regex scans over the page text.

var (
	caloriesPerServingPattern = regexp.MustCompile(`(?i)calories\s+per\s+serving[^0-9]*([\d,]+)`)
	caloriesKcalPattern       = regexp.MustCompile(`(?i)calories\s*:?\s*([\d,]+)\s*kcal`)
	caloriesLoosePattern      = regexp.MustCompile(`(?i)calories[^0-9]*([\d,]+)`)

	proteinGPattern  = regexp.MustCompile(`(?i)protein[^0-9]*([\d.]+)\s*g`)
	carbsGPattern    = regexp.MustCompile(`(?i)total\s+carbohydrate[^0-9]*([\d.]+)\s*g`)
	fatGPattern      = regexp.MustCompile(`(?i)total\s+fat[^0-9]*([\d.]+)\s*g`)
	satFatGPattern   = regexp.MustCompile(`(?i)saturated\s+fat[^0-9]*([\d.]+)\s*g`)
	transFatGPattern = regexp.MustCompile(`(?i)trans\s+fat[^0-9]*([\d.]+)\s*g`)
	fiberGPattern    = regexp.MustCompile(`(?i)dietary\s+fiber[^0-9]*([\d.]+)\s*g`)
	sugarsGPattern   = regexp.MustCompile(`(?i)total\s+sugars[^0-9]*([\d.]+)\s*g`)
	cholMgPattern    = regexp.MustCompile(`(?i)cholesterol[^0-9]*([\d,.]+)\s*mg`)
	sodiumMgPattern  = regexp.MustCompile(`(?i)sodium[^0-9]*([\d,.]+)\s*mg`)

	ingredientsPattern = regexp.MustCompile(`(?is)ingredients:?\s*(.+?)(?:allergens|\z)`)
	allergensPattern   = regexp.MustCompile(`(?i)allergens:?\s*([^.\n]+)`)
	allergenSplit      = regexp.MustCompile(`[,;]`)
)

// FromLabelPage extracts one record from a nutrition label page. The
// required macros must all be present in the text or nothing is returned.
func FromLabelPage(p Payload) []domain.ExtractedNutrition {
	if p.HTML == "" {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(p.HTML))
	if err != nil {
		return nil
	}
	text := nodeText(doc)
	if text == "" {
		return nil
	}

	record := domain.ExtractedNutrition{
		Name:         labelPageName(doc),
		ServingSize:  labelServingSize(doc),
		Calories:     firstGroupNumber(text, caloriesPerServingPattern, caloriesKcalPattern, caloriesLoosePattern),
		Protein:      firstGroupNumber(text, proteinGPattern),
		Carbs:        firstGroupNumber(text, carbsGPattern),
		Fat:          firstGroupNumber(text, fatGPattern),
		SaturatedFat: firstGroupNumber(text, satFatGPattern),
		TransFat:     firstGroupNumber(text, transFatGPattern),
		Cholesterol:  firstGroupNumber(text, cholMgPattern),
		Sodium:       firstGroupNumber(text, sodiumMgPattern),
		Fiber:        firstGroupNumber(text, fiberGPattern),
		Sugars:       firstGroupNumber(text, sugarsGPattern),
	}
	if m := ingredientsPattern.FindStringSubmatch(text); m != nil {
		record.Ingredients = strings.TrimSpace(m[1])
	}
	if m := allergensPattern.FindStringSubmatch(text); m != nil {
		for _, a := range allergenSplit.Split(m[1], -1) {
			if a = strings.TrimSpace(a); a != "" {
				record.Allergens = append(record.Allergens, a)
			}
		}
	}
	if !record.Usable() || record.Name == "" {
		return nil
	}
	return []domain.ExtractedNutrition{record}
}

func firstGroupNumber(text string, patterns ...*regexp.Regexp) *int {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			if n := ExtractNumber(m[1]); n != nil {
				return n
			}
		}
	}
	return nil
}

// labelPageName takes the first heading, falling back to the page title.
func labelPageName(doc *html.Node) string {
	for _, tag := range []string{"h1", "h2", "title"} {
		for _, n := range elementsByTag(doc, tag) {
			if text := nodeText(n); text != "" {
				return text
			}
		}
	}
	return ""
}

// labelServingSize reads the last element carrying the serving-size
// class; label pages repeat it and the final occurrence is the resolved
// value.
func labelServingSize(doc *html.Node) string {
	var serving string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "class" && strings.Contains(strings.ToLower(attr.Val), "servsize") {
					if text := nodeText(n); text != "" {
						serving = text
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return serving
}
