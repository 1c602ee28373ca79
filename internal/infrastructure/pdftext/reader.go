package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/platelog/backend/internal/domain"
)

// Reader flattens PDF documents to row-ordered text. Downstream parsers
// rely on two properties: one output line per printed row, and a run of
// two or more spaces wherever the PDF leaves a visible column gap.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// estimated glyph width in points, used to spot column gaps
const glyphWidth = 5.0
const columnGap = 12.0

// Text extracts all pages of a PDF as text.
func (r *Reader) Text(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", domain.ErrMalformedDocument, pageNum, err)
		}
		for _, row := range rows {
			writeRow(&sb, row.Content)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// writeRow joins one row's words, widening the separator where the
// horizontal jump between words is bigger than the text would explain.
func writeRow(sb *strings.Builder, words []pdf.Text) {
	for i, word := range words {
		if i > 0 {
			prev := words[i-1]
			if word.X-(prev.X+float64(len(prev.S))*glyphWidth) > columnGap {
				sb.WriteString("  ")
			} else {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(word.S)
	}
}
