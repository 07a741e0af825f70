// Package pipeline orchestrates the per-file intake state machine:
// optical-recognition conversion, text extraction, hashing, ledger
// commit and chain-of-custody append.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docketvault/intake/internal/common"
	"github.com/docketvault/intake/internal/convert"
	"github.com/docketvault/intake/internal/custody"
	"github.com/docketvault/intake/internal/digest"
	"github.com/docketvault/intake/internal/entity"
	"github.com/docketvault/intake/internal/extract"
	"github.com/docketvault/intake/internal/ledger"
	"github.com/docketvault/intake/internal/repository"
)

// Processor runs the intake pipeline for one file at a time per call.
// Distinct files may be processed concurrently up through hashing; a
// single mutex serializes every ledger stage/commit and every custody
// append, so history entries and log rows never interleave.
type Processor struct {
	ProcessedDir string

	Converter *convert.Converter
	Extractor extract.TextExtractor
	Ledger    *ledger.Ledger
	Custody   *custody.Log
	Artifacts repository.ArtifactRepository // optional
	Logger    *slog.Logger

	commitMu sync.Mutex
}

func NewProcessor(
	processedDir string,
	conv *convert.Converter,
	ex extract.TextExtractor,
	led *ledger.Ledger,
	log *custody.Log,
	artifacts repository.ArtifactRepository,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		ProcessedDir: processedDir,
		Converter:    conv,
		Extractor:    ex,
		Ledger:       led,
		Custody:      log,
		Artifacts:    artifacts,
		Logger:       logger,
	}
}

// Process drives one intake event through the full state machine and
// returns the resulting artifact. On failure the returned error is a
// *StageError; the source file is never deleted or moved, and nothing
// reaches the ledger or the custody log unless the artifact commit
// completed.
func (p *Processor) Process(ctx context.Context, ev entity.IntakeEvent) (*entity.ProcessedArtifact, error) {
	base := filepath.Base(ev.Path)
	logger := p.Logger.With("path", ev.Path, "trace_id", ev.TraceID.String())
	logger.Info("pipeline.received")

	if err := os.MkdirAll(p.ProcessedDir, 0o755); err != nil {
		return nil, failed(StageConvert, ev.Path, err)
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	outPDF := filepath.Join(p.ProcessedDir, name+"_ocr.pdf")
	sidecarTxt := filepath.Join(p.ProcessedDir, name+".txt")
	sidecarJSON := filepath.Join(p.ProcessedDir, name+".json")

	// Received -> Converted. Blocking call to the external tool; runs
	// to completion or tool failure, no retry.
	if err := p.Converter.Convert(ctx, ev.Path, outPDF, sidecarTxt); err != nil {
		logger.Error("pipeline.convert.failed", "error", err)
		return nil, failed(StageConvert, ev.Path, err)
	}
	logger.Info("pipeline.convert.ok", "out", outPDF)

	// Converted -> Extracted.
	doc, err := p.Extractor.Extract(ctx, outPDF)
	if err != nil {
		logger.Error("pipeline.extract.failed", "error", err)
		return nil, failed(StageExtract, ev.Path, err)
	}
	if err := extract.WriteSidecar(sidecarJSON, doc); err != nil {
		logger.Error("pipeline.extract.failed", "error", err)
		return nil, failed(StageExtract, ev.Path, err)
	}
	logger.Info("pipeline.extract.ok", "pages", doc.Pages, "tables", len(doc.Tables))

	// Extracted -> Hashed.
	sum, err := digest.File(outPDF)
	if err != nil {
		logger.Error("pipeline.hash.failed", "error", err)
		return nil, failed(StageHash, ev.Path, err)
	}

	artifact := &entity.ProcessedArtifact{
		OriginalPath:    ev.Path,
		PDFPath:         outPDF,
		TextSidecarPath: sidecarTxt,
		JSONSidecarPath: sidecarJSON,
		Digest:          sum,
		ProcessedAt:     time.Now().UTC(),
	}

	// Hashed -> Committed -> Logged. One critical section for both
	// commits and the custody append; concurrent files queue here.
	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	if err := p.Ledger.Stage(outPDF, sidecarTxt, sidecarJSON); err != nil {
		logger.Error("pipeline.commit.failed", "error", err)
		return nil, failed(StageCommit, ev.Path, fmt.Errorf("%w: %v", common.ErrCommitFailed, err))
	}
	commitID, err := p.Ledger.Commit(fmt.Sprintf("Process %s", base))
	if err != nil {
		logger.Error("pipeline.commit.failed", "error", err)
		return nil, failed(StageCommit, ev.Path, fmt.Errorf("%w: %v", common.ErrCommitFailed, err))
	}
	artifact.CommitID = commitID
	logger.Info("pipeline.commit.ok", "commit_id", commitID, "digest", sum)

	// The custody row references the content commit; a second,
	// separate commit then anchors the updated log itself. A row can
	// therefore never exist for unanchored content.
	if err := p.appendAndCommitLog(ctx, ev, base, artifact); err != nil {
		artifact.Status = entity.StatusCommittedUnlogged
		p.index(ctx, logger, artifact)
		logger.Error("pipeline.log.failed", "commit_id", commitID, "error", err)
		return artifact, failed(StageLog, ev.Path, fmt.Errorf("%w: %v", common.ErrLogAppendFailed, err))
	}

	artifact.Status = entity.StatusLogged
	p.index(ctx, logger, artifact)
	logger.Info("pipeline.done", "commit_id", commitID)
	return artifact, nil
}

func (p *Processor) appendAndCommitLog(ctx context.Context, ev entity.IntakeEvent, base string, artifact *entity.ProcessedArtifact) error {
	rec := custody.Record{
		Timestamp: time.Now().UTC(),
		Filename:  ev.Path,
		Digest:    artifact.Digest,
		CommitID:  artifact.CommitID,
	}
	if err := p.Custody.Append(rec); err != nil {
		return err
	}
	if err := p.Ledger.Stage(p.Custody.Path()); err != nil {
		return err
	}
	if _, err := p.Ledger.Commit(fmt.Sprintf("Log %s", base)); err != nil {
		return err
	}
	return nil
}

// index records the artifact in the processed index. The index is an
// operator aid, not part of the custody guarantee, so a failure here
// is logged and swallowed.
func (p *Processor) index(ctx context.Context, logger *slog.Logger, artifact *entity.ProcessedArtifact) {
	if p.Artifacts == nil {
		return
	}
	if err := p.Artifacts.Insert(ctx, *artifact); err != nil {
		logger.Warn("pipeline.index.failed", "error", err)
	}
}
