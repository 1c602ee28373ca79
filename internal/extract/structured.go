package extract

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"

	"github.com/platelog/backend/internal/domain"
)

// FromStructured reads the machine-readable blocks menu pages embed:
// application/ld+json scripts and Next.js __NEXT_DATA__ payloads. The
// decoded documents are handed to the tree walker, so any product shape
// it understands works here too.
func FromStructured(p Payload) []domain.ExtractedNutrition {
	if p.HTML == "" {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(p.HTML))
	if err != nil {
		return nil
	}

	var out []domain.ExtractedNutrition
	seen := make(map[string]bool)
	for _, raw := range structuredScripts(doc) {
		var decoded interface{}
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			continue
		}
		for _, record := range FromTree(Payload{JSON: decoded}) {
			key := NormalizeKey(record.Name) + ":" + record.ItemID
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, record)
		}
	}
	return out
}

// structuredScripts collects the text of every JSON-bearing script node.
func structuredScripts(doc *html.Node) []string {
	var scripts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" && isStructuredScript(n) {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			if text := strings.TrimSpace(sb.String()); text != "" {
				scripts = append(scripts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return scripts
}

func isStructuredScript(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "type":
			if strings.EqualFold(strings.TrimSpace(attr.Val), "application/ld+json") {
				return true
			}
		case "id":
			if attr.Val == "__NEXT_DATA__" {
				return true
			}
		}
	}
	return false
}
