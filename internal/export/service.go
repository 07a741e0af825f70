// Package export renders the custody trail to an XLSX report for
// review outside the system.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/docketvault/intake/internal/custody"
	"github.com/docketvault/intake/internal/entity"
)

// Service produces XLSX bytes from custody records and the artifact
// index.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BuildReport returns a workbook with one Custody sheet (the log rows,
// in append order) and one Artifacts sheet (the processed index).
func (s *Service) BuildReport(records []custody.Record, artifacts []entity.ProcessedArtifact) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	const custodySheet = "Custody"
	const artifactSheet = "Artifacts"

	// The default sheet becomes the custody sheet.
	if err := f.SetSheetName("Sheet1", custodySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(artifactSheet); err != nil {
		return nil, err
	}

	custodyHeaders := []string{"Timestamp", "Filename", "SHA-256", "Commit ID"}
	for i, h := range custodyHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(custodySheet, cell, h)
	}
	for i, rec := range records {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, i+2)
			_ = f.SetCellValue(custodySheet, cell, v)
		}
		write(1, rec.Timestamp.UTC().Format(time.RFC3339))
		write(2, rec.Filename)
		write(3, rec.Digest)
		write(4, rec.CommitID)
	}

	artifactHeaders := []string{"Original", "Converted PDF", "Text Sidecar", "Structured Sidecar", "SHA-256", "Commit ID", "Processed At", "Status"}
	for i, h := range artifactHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(artifactSheet, cell, h)
	}
	for i, a := range artifacts {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, i+2)
			_ = f.SetCellValue(artifactSheet, cell, v)
		}
		write(1, a.OriginalPath)
		write(2, a.PDFPath)
		write(3, a.TextSidecarPath)
		write(4, a.JSONSidecarPath)
		write(5, a.Digest)
		write(6, a.CommitID)
		write(7, a.ProcessedAt.UTC().Format(time.RFC3339))
		write(8, string(a.Status))
	}

	_ = f.SetColWidth(custodySheet, "A", "A", 24)
	_ = f.SetColWidth(custodySheet, "B", "B", 48)
	_ = f.SetColWidth(custodySheet, "C", "D", 66)
	_ = f.SetColWidth(artifactSheet, "A", "D", 44)
	_ = f.SetColWidth(artifactSheet, "E", "F", 66)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"custody_rows", len(records),
		"artifact_rows", len(artifacts),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
