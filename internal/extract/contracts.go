package extract

import "context"

// TextExtractor opens a converted document and produces its ordered
// page text plus any tabular data found on each page.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (Document, error)
}

// Document is the structured sidecar payload: the concatenated page
// text and every table found in the document. Tables is empty, never
// nil, when the document has none.
type Document struct {
	Text   string       `json:"text"`
	Tables [][][]string `json:"tables"`

	// Pages is informational (log context); it is not serialized.
	Pages int `json:"-"`
}
