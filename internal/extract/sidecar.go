package extract

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteSidecar serializes the structured sidecar document to path.
func WriteSidecar(path string, doc Document) error {
	if doc.Tables == nil {
		doc.Tables = make([][][]string, 0)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write sidecar %s: %w", path, err)
	}
	return nil
}

// ReadSidecar loads a structured sidecar document from path.
func ReadSidecar(path string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode sidecar %s: %w", path, err)
	}
	return doc, nil
}
