package usecase

import (
	"regexp"
	"strings"

	"github.com/platelog/backend/internal/domain"
	"github.com/platelog/backend/internal/extract"
)

// Receipt PDFs flatten to text as one line per printed row. The item
// rows carry a quantity, the name, and a price; a flavor choice often
// prints on its own line right below the item it modifies.

var (
	receiptStopPattern = regexp.MustCompile(`(?i)^\s*(?:subtotal|sub-total|taxes?|total|fees?|service fee|delivery|tip|gratuity|visa|mastercard|amex|payment|paid\b|thank)`)

	receiptPricedPattern = regexp.MustCompile(`^\s*(\d{1,2})\s+(.+?)\s+\$?\d[\d,.]*\s*$`)
	blockQtyPrefix       = regexp.MustCompile(`^\s*(\d{1,2})\s*[xX]?\s+(\S.*)$`)
	blockQtySuffix       = regexp.MustCompile(`(?i)^\s*(.*\S)\s+x\s?(\d{1,2})\s*$`)
	blockPriced          = regexp.MustCompile(`^\s*(.*\S)\s+\$\d[\d,.]*\s*$`)

	flavorHintNoise = regexp.MustCompile(`(?i)\b(?:pcs?|pieces?|bone[\s-]?in|wings?|sauce|popeyes|signature)\b|\d+|[^A-Za-z\s]`)
)

// ParseReceiptText pulls line items out of extracted receipt text.
func (p *OrderParser) ParseReceiptText(text string) []domain.ParsedOrderItem {
	lines := strings.Split(text, "\n")
	var items []domain.ParsedOrderItem

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if receiptStopPattern.MatchString(line) {
			break
		}
		m := receiptPricedPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := domain.ParsedOrderItem{
			Name:     NormalizeOrderItemName(m[2]),
			Quantity: atoiDefault(m[1], 1),
		}
		if !plausibleItemName(item.Name) {
			continue
		}

		if i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if flavorLinePattern.MatchString(next) && !receiptStopPattern.MatchString(next) && len(extract.ParseNumericTokens(next)) == 0 {
				if hint := ExtractFlavorHint(next); hint != "" {
					item.Name = item.Name + " " + hint
				}
				i++
			}
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		items = parseReceiptBlock(lines)
	}
	return dedupeItems(items)
}

// parseReceiptBlock scans the lines between an "Items" header and the
// first stop marker, accepting the qty-prefix, qty-suffix, and priced
// line shapes.
func parseReceiptBlock(lines []string) []domain.ParsedOrderItem {
	var items []domain.ParsedOrderItem
	inside := false
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !inside {
			if itemsHeaderPattern.MatchString(line) || itemsInlinePattern.MatchString(line) {
				inside = true
			}
			continue
		}
		if receiptStopPattern.MatchString(line) {
			break
		}

		var item domain.ParsedOrderItem
		if m := blockQtyPrefix.FindStringSubmatch(line); m != nil {
			item = domain.ParsedOrderItem{Name: m[2], Quantity: atoiDefault(m[1], 1)}
		} else if m := blockQtySuffix.FindStringSubmatch(line); m != nil {
			item = domain.ParsedOrderItem{Name: m[1], Quantity: atoiDefault(m[2], 1)}
		} else if m := blockPriced.FindStringSubmatch(line); m != nil {
			item = domain.ParsedOrderItem{Name: m[1], Quantity: 1}
		} else {
			continue
		}
		item.Name = NormalizeOrderItemName(item.Name)
		if plausibleItemName(item.Name) {
			items = append(items, item)
		}
	}
	return items
}

// ExtractFlavorHint reduces a flavor line to the words worth appending
// to the item above it: counts, piece words, and boilerplate go, the
// flavor itself stays. "6 pc Honey BBQ Sauce" becomes "Honey BBQ".
func ExtractFlavorHint(line string) string {
	cleaned := flavorHintNoise.ReplaceAllString(line, " ")
	return collapseSpaces(cleaned)
}
