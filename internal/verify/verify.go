// Package verify audits the chain-of-custody log against the ledger:
// every row must resolve to a commit whose committed content
// reproduces the recorded digest.
package verify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/docketvault/intake/internal/custody"
	"github.com/docketvault/intake/internal/digest"
	"github.com/docketvault/intake/internal/entity"
	"github.com/docketvault/intake/internal/ledger"
	"github.com/docketvault/intake/internal/repository"
)

// Finding reports one custody row that failed verification.
type Finding struct {
	Row      int // 1-based position in the log, header excluded
	Filename string
	CommitID string
	Problem  string
}

// Report is the outcome of one verification pass.
type Report struct {
	Checked  int
	Findings []Finding
	// Unlogged lists artifacts whose content commit landed but whose
	// custody append did not. They need manual reconciliation.
	Unlogged []entity.ProcessedArtifact
}

// OK reports whether the pass found a fully consistent trail.
func (r *Report) OK() bool {
	return len(r.Findings) == 0 && len(r.Unlogged) == 0
}

// Verifier cross-checks log, ledger and index.
type Verifier struct {
	ProcessedDir string
	Ledger       *ledger.Ledger
	Custody      *custody.Log
	Artifacts    repository.ArtifactRepository // optional
	Logger       *slog.Logger
}

// Run verifies every custody row. Row order is preserved; a bad row is
// reported and does not stop the pass.
func (v *Verifier) Run(ctx context.Context) (*Report, error) {
	logger := v.Logger
	if logger == nil {
		logger = slog.Default()
	}

	records, err := v.Custody.Records()
	if err != nil {
		return nil, fmt.Errorf("read custody log: %w", err)
	}

	report := &Report{}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Checked++
		if problem := v.check(rec); problem != "" {
			logger.Warn("verify.row.failed", "row", i+1, "filename", rec.Filename, "problem", problem)
			report.Findings = append(report.Findings, Finding{
				Row:      i + 1,
				Filename: rec.Filename,
				CommitID: rec.CommitID,
				Problem:  problem,
			})
		}
	}

	if v.Artifacts != nil {
		unlogged, err := v.Artifacts.ListByStatus(ctx, entity.StatusCommittedUnlogged)
		if err != nil {
			return nil, fmt.Errorf("list unlogged artifacts: %w", err)
		}
		report.Unlogged = unlogged
	}

	logger.Info("verify.done", "checked", report.Checked, "findings", len(report.Findings), "unlogged", len(report.Unlogged))
	return report, nil
}

func (v *Verifier) check(rec custody.Record) string {
	if !v.Ledger.HasCommit(rec.CommitID) {
		return fmt.Sprintf("commit %s not found in ledger", rec.CommitID)
	}

	base := filepath.Base(rec.Filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	pdfPath := filepath.Join(v.ProcessedDir, name+"_ocr.pdf")
	jsonPath := filepath.Join(v.ProcessedDir, name+".json")

	rd, err := v.Ledger.FileAt(rec.CommitID, pdfPath)
	if err != nil {
		return fmt.Sprintf("converted document missing from commit: %v", err)
	}
	sum, err := digest.Reader(rd)
	rd.Close()
	if err != nil {
		return fmt.Sprintf("rehash committed content: %v", err)
	}
	if sum != rec.Digest {
		return fmt.Sprintf("digest mismatch: log has %s, committed content is %s", rec.Digest, sum)
	}

	sc, err := v.Ledger.FileAt(rec.CommitID, jsonPath)
	if err != nil {
		return fmt.Sprintf("structured sidecar missing from commit: %v", err)
	}
	data, err := io.ReadAll(sc)
	sc.Close()
	if err != nil {
		return fmt.Sprintf("read committed sidecar: %v", err)
	}
	if err := validateSidecar(data); err != nil {
		return err.Error()
	}
	return ""
}
