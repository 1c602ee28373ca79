package usecase

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/platelog/backend/internal/domain"
	"github.com/platelog/backend/internal/extract"
)

// OrderParser recovers line items from order confirmation emails and
// receipt text. Vendors format these inconsistently, so parsing runs a
// strict line-oriented pass first and falls back to progressively
// looser scans when it comes up empty.
type OrderParser struct {
	log *zap.SugaredLogger
}

func NewOrderParser(log *zap.SugaredLogger) *OrderParser {
	return &OrderParser{log: log}
}

var (
	itemsHeaderPattern = regexp.MustCompile(`(?i)^\s*(?:items?:?|your items:?|order details:?|order summary:?)\s*$`)
	itemsInlinePattern = regexp.MustCompile(`(?i)^\s*items?:\s*(\S.*)$`)

	// A line starting with any of these ends the item section.
	sectionEndPattern = regexp.MustCompile(`(?i)^\s*(?:subtotal|sub-total|taxes?|total|fees?|service fee|delivery|tip|gratuity|discounts?|promotions?|promo\b|order\b|payment|paid\b|pickup|pick-up|completed|receipt|support|account|visa|mastercard|amex|thank)`)
	addressPattern    = regexp.MustCompile(`(?i)\b(?:street|ave|avenue|blvd|boulevard|suite|ste|apt|floor)\b|\b\d{5}(?:-\d{4})?$`)

	bulletLinePattern  = regexp.MustCompile(`^\s*[-•*·]+\s*(\S.*)$`)
	leadingQtyPattern  = regexp.MustCompile(`^\s*(\d{1,2})\s*[xX]\s+(\S.*)$`)
	trailingQtyPattern = regexp.MustCompile(`(?i)^\s*(.*\S)\s+x\s?(\d{1,2})\s*$`)
	pricedLinePattern  = regexp.MustCompile(`^\s*(.*\S)\s+\$\s?\d[\d,]*(?:\.\d{2})?\s*$`)
	qtyOnlyPattern     = regexp.MustCompile(`(?i)^\s*(?:qty|quantity)[:\s]+(\d{1,2})\s*$`)
	orderIDPattern     = regexp.MustCompile(`(?i)order\s*(?:#|number|id)[:\s]*([A-Z0-9-]{4,})`)

	positionalPattern = regexp.MustCompile(`^\s*(\d{1,2})\s+(.+?)\s+\$?\d[\d,]*(?:\.\d{2})?\s*$`)
	qtyPricePattern   = regexp.MustCompile(`(?i)^\s*(.*\S)\s+x\s?(\d{1,2})\s+\$\s?\d[\d,]*(?:\.\d{2})?\s*$`)
	flavorLinePattern = regexp.MustCompile(`(?i)sauce|spicy|bbq|garlic|honey|buffalo|sweet|parmesan|ranch|mustard`)

	pdfURLPattern  = regexp.MustCompile(`https?://\S+\.pdf\b\S*`)
	hrefPattern    = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)
	hasLetter      = regexp.MustCompile(`[A-Za-z]`)
	htmlTagPattern = regexp.MustCompile(`(?i)<\s*(?:html|body|div|table|br|p)\b`)
)

// restaurantAliases maps a lowercase fragment found in the subject or
// body to the canonical restaurant name used in the catalog.
var restaurantAliases = []struct {
	fragment string
	name     string
}{
	{"mcdonald", "McDonald's"},
	{"popeyes", "Popeyes"},
	{"potbelly", "Potbelly"},
	{"uber eats", "Uber Eats"},
	{"ubereats", "Uber Eats"},
	{"doordash", "DoorDash"},
	{"grubhub", "Grubhub"},
}

// ParseOrderEmail extracts the ordered items, the restaurant, and any
// linked receipt PDF from one confirmation email. htmlPart is the
// email's HTML alternative, empty when the message is plain text.
// Parsing never errors: an email with nothing recognizable yields an
// order with no items.
func (p *OrderParser) ParseOrderEmail(subject, body, htmlPart string) domain.ParsedOrder {
	htmlText := ""
	if htmlPart != "" {
		htmlText = stripHTML(htmlPart)
	}
	text := subject + "\n" + body + "\n" + htmlText

	order := domain.ParsedOrder{
		Restaurant:    detectRestaurant(text),
		ReceiptPDFURL: findReceiptPDFURL(body, htmlPart),
	}
	if m := orderIDPattern.FindStringSubmatch(text); m != nil {
		order.OrderID = strings.ToUpper(m[1])
	}

	items := p.parseItemSection(body)
	if len(items) == 0 && htmlText != "" {
		items = p.parseItemSection(htmlText)
	}
	if len(items) == 0 && htmlTagPattern.MatchString(body) {
		items = p.parseItemSection(stripHTML(body))
	}
	if len(items) == 0 {
		items = p.parsePositional(text)
	}
	if len(items) == 0 {
		items = p.parseItemsBlock(text)
	}

	order.Items = dedupeItems(items)
	if p.log != nil {
		p.log.Debugw("parsed order email", "restaurant", order.Restaurant, "items", len(order.Items))
	}
	return order
}

// parseItemSection is the strict pass: find the item section header,
// read item-shaped lines until a section-end marker.
func (p *OrderParser) parseItemSection(body string) []domain.ParsedOrderItem {
	var items []domain.ParsedOrderItem
	inside := false
	lastCandidate := -1

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if !inside {
			if itemsHeaderPattern.MatchString(line) {
				inside = true
				continue
			}
			if m := itemsInlinePattern.FindStringSubmatch(line); m != nil {
				inside = true
				items = append(items, splitInlineItems(m[1])...)
			}
			continue
		}

		// A qty line amends the item right above it.
		if m := qtyOnlyPattern.FindStringSubmatch(line); m != nil {
			if lastCandidate >= 0 {
				items[lastCandidate].Quantity = atoiDefault(m[1], 1)
			}
			continue
		}
		if sectionEndPattern.MatchString(line) || addressPattern.MatchString(line) {
			inside = false
			continue
		}

		text := line
		if m := bulletLinePattern.FindStringSubmatch(line); m != nil {
			text = m[1]
		}
		if strings.Contains(text, ",") && strings.Count(text, ",") >= 2 {
			items = append(items, splitInlineItems(text)...)
			lastCandidate = len(items) - 1
			continue
		}
		if item, ok := parseItemText(text); ok {
			items = append(items, item)
			lastCandidate = len(items) - 1
		}
	}
	return items
}

// parsePositional is the looser pass for receipt-styled bodies: numeric
// quantity prefix plus trailing price, with a lookahead for a flavor
// line describing the item above it.
func (p *OrderParser) parsePositional(body string) []domain.ParsedOrderItem {
	lines := strings.Split(body, "\n")
	var items []domain.ParsedOrderItem

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || sectionEndPattern.MatchString(line) {
			continue
		}

		var item domain.ParsedOrderItem
		if m := positionalPattern.FindStringSubmatch(line); m != nil {
			item = domain.ParsedOrderItem{Name: m[2], Quantity: atoiDefault(m[1], 1)}
		} else if m := qtyPricePattern.FindStringSubmatch(line); m != nil {
			item = domain.ParsedOrderItem{Name: m[1], Quantity: atoiDefault(m[2], 1)}
		} else {
			continue
		}
		if !plausibleItemName(item.Name) {
			continue
		}

		// Qty on the following line overrides the parsed count.
		if i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if m := qtyOnlyPattern.FindStringSubmatch(next); m != nil {
				item.Quantity = atoiDefault(m[1], item.Quantity)
				i++
			} else if flavorLinePattern.MatchString(next) && !sectionEndPattern.MatchString(next) && len(extract.ParseNumericTokens(next)) == 0 {
				if hint := ExtractFlavorHint(next); hint != "" {
					item.Name = item.Name + " " + hint
				}
				i++
			}
		}
		item.Name = NormalizeOrderItemName(item.Name)
		items = append(items, item)
	}
	return items
}

// parseItemsBlock is the last resort: grab everything between an
// "items" mention and the first money/section marker and split it on
// commas and bullets.
func (p *OrderParser) parseItemsBlock(body string) []domain.ParsedOrderItem {
	lower := strings.ToLower(body)
	start := strings.Index(lower, "items")
	if start < 0 {
		return nil
	}
	block := body[start+len("items"):]
	end := len(block)
	for _, marker := range []string{"total", "order", "payment", "delivery", "pickup"} {
		if idx := strings.Index(strings.ToLower(block), marker); idx >= 0 && idx < end {
			end = idx
		}
	}
	block = strings.TrimLeft(block[:end], ": \n\t")

	var items []domain.ParsedOrderItem
	for _, part := range regexp.MustCompile(`[,\n•·]+|\s-\s`).Split(block, -1) {
		if item, ok := parseItemText(strings.TrimSpace(part)); ok {
			items = append(items, item)
		}
	}
	return items
}

// splitInlineItems handles "Items: Big Mac x2, Fries, Apple Pie".
func splitInlineItems(text string) []domain.ParsedOrderItem {
	var items []domain.ParsedOrderItem
	for _, part := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '•' || r == '·' || r == ';'
	}) {
		if item, ok := parseItemText(strings.TrimSpace(part)); ok {
			items = append(items, item)
		}
	}
	return items
}

// parseItemText reads one candidate item: leading "2 x", trailing "x2",
// or trailing price forms, defaulting to quantity 1.
func parseItemText(text string) (domain.ParsedOrderItem, bool) {
	qty := 1
	if m := pricedLinePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if m := leadingQtyPattern.FindStringSubmatch(text); m != nil {
		qty = atoiDefault(m[1], 1)
		text = m[2]
	} else if m := trailingQtyPattern.FindStringSubmatch(text); m != nil {
		text = m[1]
		qty = atoiDefault(m[2], 1)
	}
	name := NormalizeOrderItemName(text)
	if !plausibleItemName(name) {
		return domain.ParsedOrderItem{}, false
	}
	return domain.ParsedOrderItem{Name: name, Quantity: qty}, true
}

func plausibleItemName(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 80 {
		return false
	}
	if !hasLetter.MatchString(name) {
		return false
	}
	return !sectionEndPattern.MatchString(name)
}

// dedupeItems merges repeated lines by normalized name, summing
// quantities and keeping first-seen order.
func dedupeItems(items []domain.ParsedOrderItem) []domain.ParsedOrderItem {
	index := make(map[string]int, len(items))
	out := make([]domain.ParsedOrderItem, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(NormalizeOrderItemName(item.Name))
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, item)
	}
	return out
}

func detectRestaurant(text string) string {
	lower := strings.ToLower(text)
	for _, alias := range restaurantAliases {
		if strings.Contains(lower, alias.fragment) {
			return alias.name
		}
	}
	return ""
}

// findReceiptPDFURL locates a receipt PDF link: a bare .pdf URL in the
// plain-text body, or an anchor in the HTML part whose target mentions
// pdf or download. pdf links win over plain download links. Scheme- and
// root-relative hrefs resolve against the ordering site.
func findReceiptPDFURL(body, htmlPart string) string {
	if m := pdfURLPattern.FindString(body); m != "" {
		return strings.TrimRight(m, `"'>)`)
	}
	hrefSource := htmlPart
	if hrefSource == "" {
		hrefSource = body
	}

	var candidates []string
	for _, m := range hrefPattern.FindAllStringSubmatch(hrefSource, -1) {
		href := m[1]
		lower := strings.ToLower(href)
		if strings.Contains(lower, ".pdf") || strings.Contains(lower, "download") {
			candidates = append(candidates, href)
		}
	}
	pick := ""
	for _, href := range candidates {
		if strings.Contains(strings.ToLower(href), "pdf") {
			pick = href
			break
		}
	}
	if pick == "" && len(candidates) > 0 {
		pick = candidates[0]
	}
	if pick == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(pick, "//"):
		return "https:" + pick
	case strings.HasPrefix(pick, "/"):
		return "https://www.ubereats.com" + pick
	default:
		return pick
	}
}

// stripHTML flattens an HTML body to text, one block element per line.
func stripHTML(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return body
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "br", "p", "div", "tr", "li", "td", "h1", "h2", "h3":
				sb.WriteString("\n")
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}

func atoiDefault(s string, def int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return def
	}
	return n
}
