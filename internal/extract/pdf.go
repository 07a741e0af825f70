package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/docketvault/intake/internal/common"
)

// PDFExtractor reads the embedded text layer of a converted PDF. Pages
// with no extractable text contribute nothing; that is not an error.
type PDFExtractor struct {
	Logger *slog.Logger
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{Logger: logger}
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (doc Document, err error) {
	doc.Tables = make([][][]string, 0)

	// The parser panics on some malformed cross-reference tables;
	// surface that as an extraction failure instead of killing the
	// worker.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: parse %s: %v", common.ErrExtractionFailed, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return doc, fmt.Errorf("%w: open %s: %v", common.ErrExtractionFailed, path, err)
	}
	defer f.Close()

	var text []string
	doc.Pages = r.NumPage()
	for i := 1; i <= doc.Pages; i++ {
		if err := ctx.Err(); err != nil {
			return doc, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			e.Logger.Warn("extract.page.text", "path", path, "page", i, "error", err)
			continue
		}
		if s := strings.TrimSpace(content); s != "" {
			text = append(text, s)
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			e.Logger.Warn("extract.page.rows", "path", path, "page", i, "error", err)
			continue
		}
		doc.Tables = append(doc.Tables, tablesFromRows(rows)...)
	}
	doc.Text = strings.Join(text, "\n")
	return doc, nil
}
