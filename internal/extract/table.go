package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/platelog/backend/internal/domain"
)

var repeatedHeaderPattern = regexp.MustCompile(`(?i)calories|nutrition`)

// tableColumns maps each output field to its header candidates, tried
// exact-first then by containment. Excludes guard the containment pass
// against columns like "Calories From Fat".
type tableColumn struct {
	candidates []string
	excludes   []string
}

var (
	nameColumn     = tableColumn{candidates: []string{"item", "menuitem", "name"}}
	servingColumn  = tableColumn{candidates: []string{"servingsize", "serving"}}
	caloriesColumn = tableColumn{candidates: []string{"calories"}, excludes: []string{"fromfat"}}
	proteinColumn  = tableColumn{candidates: []string{"protein"}}
	carbsColumn    = tableColumn{candidates: []string{"totalcarbohydrate", "carbohydrates", "carbohydrate", "carbs"}}
	fatColumn      = tableColumn{candidates: []string{"totalfat", "fat"}, excludes: []string{"saturated", "trans", "fromfat"}}
	satFatColumn   = tableColumn{candidates: []string{"saturatedfat"}}
	transFatColumn = tableColumn{candidates: []string{"transfat"}}
	cholColumn     = tableColumn{candidates: []string{"cholesterol"}}
	sodiumColumn   = tableColumn{candidates: []string{"sodium"}}
	fiberColumn    = tableColumn{candidates: []string{"dietaryfiber", "fiber", "fibre"}}
	sugarsColumn   = tableColumn{candidates: []string{"totalsugars", "sugars", "sugar"}, excludes: []string{"added"}}
)

// FromTables reads nutrition tables out of an HTML page. A table
// qualifies when its header row names an item column and a calories
// column; remaining columns are resolved by header text.
func FromTables(p Payload) []domain.ExtractedNutrition {
	if p.HTML == "" {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(p.HTML))
	if err != nil {
		return nil
	}

	var out []domain.ExtractedNutrition
	for _, table := range elementsByTag(doc, "table") {
		out = append(out, itemsFromTable(table)...)
	}
	return out
}

func itemsFromTable(table *html.Node) []domain.ExtractedNutrition {
	rows := elementsByTag(table, "tr")
	if len(rows) < 2 {
		return nil
	}

	headers := make([]string, 0, 8)
	for _, cell := range rowCells(rows[0]) {
		headers = append(headers, NormalizeKey(nodeText(cell)))
	}
	nameIdx := findColumn(headers, nameColumn)
	calIdx := findColumn(headers, caloriesColumn)
	if nameIdx < 0 || calIdx < 0 {
		return nil
	}
	servingIdx := findColumn(headers, servingColumn)
	proteinIdx := findColumn(headers, proteinColumn)
	carbsIdx := findColumn(headers, carbsColumn)
	fatIdx := findColumn(headers, fatColumn)
	satIdx := findColumn(headers, satFatColumn)
	transIdx := findColumn(headers, transFatColumn)
	cholIdx := findColumn(headers, cholColumn)
	sodiumIdx := findColumn(headers, sodiumColumn)
	fiberIdx := findColumn(headers, fiberColumn)
	sugarsIdx := findColumn(headers, sugarsColumn)

	var out []domain.ExtractedNutrition
	for _, row := range rows[1:] {
		cells := rowCells(row)
		name := strings.TrimSpace(cellText(cells, nameIdx))
		if name == "" || repeatedHeaderPattern.MatchString(name) {
			continue
		}
		out = append(out, domain.ExtractedNutrition{
			Name:         name,
			ServingSize:  strings.TrimSpace(cellText(cells, servingIdx)),
			Calories:     cellNumber(cells, calIdx),
			Protein:      cellNumber(cells, proteinIdx),
			Carbs:        cellNumber(cells, carbsIdx),
			Fat:          cellNumber(cells, fatIdx),
			SaturatedFat: cellNumber(cells, satIdx),
			TransFat:     cellNumber(cells, transIdx),
			Cholesterol:  cellNumber(cells, cholIdx),
			Sodium:       cellNumber(cells, sodiumIdx),
			Fiber:        cellNumber(cells, fiberIdx),
			Sugars:       cellNumber(cells, sugarsIdx),
		})
	}
	return out
}

// findColumn resolves a header index: exact normalized match first, then
// containment, skipping any header carrying an excluded fragment.
func findColumn(headers []string, col tableColumn) int {
	excluded := func(h string) bool {
		for _, ex := range col.excludes {
			if strings.Contains(h, ex) {
				return true
			}
		}
		return false
	}
	for _, cand := range col.candidates {
		for i, h := range headers {
			if h == cand && !excluded(h) {
				return i
			}
		}
	}
	for _, cand := range col.candidates {
		for i, h := range headers {
			if strings.Contains(h, cand) && !excluded(h) {
				return i
			}
		}
	}
	return -1
}

func rowCells(row *html.Node) []*html.Node {
	cells := elementsByTag(row, "td")
	if len(cells) == 0 {
		cells = elementsByTag(row, "th")
	}
	return cells
}

func cellText(cells []*html.Node, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return nodeText(cells[idx])
}

func cellNumber(cells []*html.Node, idx int) *int {
	if idx < 0 || idx >= len(cells) {
		return nil
	}
	return ExtractNumber(nodeText(cells[idx]))
}

func elementsByTag(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
			if tag == "table" || tag == "tr" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
