package extract

import (
	"strings"

	"github.com/ledongthuc/pdf"
)

// colGap is the horizontal whitespace, in points, that separates two
// cells on the same physical line. Tuned against 300 DPI OCR output.
const colGap = 18.0

// minTableRows is the shortest run of multi-cell lines treated as a
// table rather than incidental alignment.
const minTableRows = 2

// tablesFromRows groups a page's positioned rows into tables: each
// line is split into cells on large horizontal gaps, and consecutive
// lines with two or more cells form one table.
func tablesFromRows(rows pdf.Rows) [][][]string {
	var tables [][][]string
	var current [][]string

	flush := func() {
		if len(current) >= minTableRows {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, row := range rows {
		cells := splitCells(row.Content)
		if len(cells) >= 2 {
			current = append(current, cells)
			continue
		}
		flush()
	}
	flush()
	return tables
}

// splitCells walks a line's glyphs left to right and starts a new cell
// whenever the gap to the previous glyph exceeds colGap.
func splitCells(texts pdf.TextHorizontal) []string {
	var cells []string
	var b strings.Builder
	lastEnd := 0.0

	for i, t := range texts {
		if i > 0 && t.X-lastEnd > colGap {
			if s := strings.TrimSpace(b.String()); s != "" {
				cells = append(cells, s)
			}
			b.Reset()
		}
		b.WriteString(t.S)
		lastEnd = t.X + t.W
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		cells = append(cells, s)
	}
	return cells
}
