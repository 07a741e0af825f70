package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docketvault/intake/internal/common"
	"github.com/docketvault/intake/internal/convert"
	"github.com/docketvault/intake/internal/custody"
	"github.com/docketvault/intake/internal/digest"
	"github.com/docketvault/intake/internal/entity"
	"github.com/docketvault/intake/internal/extract"
	"github.com/docketvault/intake/internal/ledger"
	"github.com/docketvault/intake/internal/repository"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

// scriptedRunner stands in for the recognition tool. On success it
// writes the archival output and text sidecar the tool would produce;
// for sources named bad.pdf it exits non-zero without output.
type scriptedRunner struct{}

func (scriptedRunner) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	sidecar := args[3]
	src := args[len(args)-2]
	out := args[len(args)-1]

	if filepath.Base(src) == "bad.pdf" {
		return nil, []byte("PriorOcrFoundError: page already has text"), errors.New("exit status 2")
	}

	original, err := os.ReadFile(src)
	if err != nil {
		return nil, []byte(err.Error()), err
	}
	converted := append([]byte("%PDF-1.7 converted\n"), original...)
	if err := os.WriteFile(out, converted, 0o644); err != nil {
		return nil, nil, err
	}
	if err := os.WriteFile(sidecar, []byte("recognized text"), 0o644); err != nil {
		return nil, nil, err
	}
	return nil, nil, nil
}

// stubExtractor returns a fixed document without parsing anything.
type stubExtractor struct {
	doc extract.Document
	err error
}

func (s stubExtractor) Extract(context.Context, string) (extract.Document, error) {
	return s.doc, s.err
}

type fixture struct {
	root      string
	vault     string
	processed string
	led       *ledger.Ledger
	log       *custody.Log
	artifacts repository.ArtifactRepository
	proc      *Processor
}

func newFixture(t *testing.T, ex extract.TextExtractor) *fixture {
	t.Helper()
	root := t.TempDir()

	led, err := ledger.Init(root, nil)
	require.NoError(t, err)

	vault := filepath.Join(root, "incoming")
	processed := filepath.Join(root, "processed")
	require.NoError(t, os.MkdirAll(vault, 0o755))

	log, err := custody.NewLog(filepath.Join(root, "Chain_of_Custody_Log.csv"))
	require.NoError(t, err)

	db, err := repository.Open(context.Background(), filepath.Join(root, "intake_index.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	if ex == nil {
		ex = stubExtractor{doc: extract.Document{
			Text:   "page one\npage two",
			Tables: [][][]string{{{"Name", "Date"}, {"Deed", "2026-01-05"}}},
			Pages:  2,
		}}
	}

	conv := convert.NewConverter(convert.Config{OCRCmd: "ocrmypdf", TesseractCmd: "tesseract", ImageDPI: 300}, scriptedRunner{}, nil)
	artifacts := repository.NewArtifactRepository(db, nil)
	return &fixture{
		root:      root,
		vault:     vault,
		processed: processed,
		led:       led,
		log:       log,
		artifacts: artifacts,
		proc:      NewProcessor(processed, conv, ex, led, log, artifacts, nil),
	}
}

func (f *fixture) drop(t *testing.T, name string) entity.IntakeEvent {
	t.Helper()
	path := filepath.Join(f.vault, name)
	require.NoError(t, os.WriteFile(path, []byte("scanned image bytes of "+name), 0o644))
	return entity.IntakeEvent{Path: path, DetectedAt: time.Now().UTC(), TraceID: uuid.New()}
}

func TestProcess_TwoPageScan(t *testing.T) {
	f := newFixture(t, nil)
	ev := f.drop(t, "exhibit_12.pdf")

	artifact, err := f.proc.Process(context.Background(), ev)
	require.NoError(t, err)

	assert.Regexp(t, hexDigest, artifact.Digest)
	assert.Equal(t, entity.StatusLogged, artifact.Status)

	// Digest matches an independent recomputation over the converted
	// document's bytes.
	recomputed, err := digest.File(artifact.PDFPath)
	require.NoError(t, err)
	assert.Equal(t, recomputed, artifact.Digest)

	// Exactly one custody row, referencing the original path and the
	// artifact (first) commit, not the log (second) commit.
	rows, err := f.log.Records()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ev.Path, rows[0].Filename)
	assert.Equal(t, artifact.Digest, rows[0].Digest)
	assert.Equal(t, artifact.CommitID, rows[0].CommitID)

	head, err := f.led.Head()
	require.NoError(t, err)
	assert.NotEqual(t, rows[0].CommitID, head, "custody row must reference the content commit, not the log commit")

	// The row's commit resolves to content reproducing the digest.
	rd, err := f.led.FileAt(rows[0].CommitID, artifact.PDFPath)
	require.NoError(t, err)
	committedSum, err := digest.Reader(rd)
	rd.Close()
	require.NoError(t, err)
	assert.Equal(t, rows[0].Digest, committedSum)

	// Both sidecars were produced next to the converted document.
	assert.FileExists(t, filepath.Join(f.processed, "exhibit_12.txt"))
	doc, err := extract.ReadSidecar(filepath.Join(f.processed, "exhibit_12.json"))
	require.NoError(t, err)
	assert.Equal(t, "page one\npage two", doc.Text)

	indexed, err := f.artifacts.List(context.Background())
	require.NoError(t, err)
	require.Len(t, indexed, 1)
	assert.Equal(t, entity.StatusLogged, indexed[0].Status)
}

func TestProcess_ConversionFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t, nil)

	// One good file first, so ledger state afterwards is comparable.
	_, err := f.proc.Process(context.Background(), f.drop(t, "good.pdf"))
	require.NoError(t, err)
	headBefore, err := f.led.Head()
	require.NoError(t, err)

	ev := f.drop(t, "bad.pdf")
	_, err = f.proc.Process(context.Background(), ev)
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageConvert, se.Stage)
	assert.ErrorIs(t, err, common.ErrConversionFailed)

	// Zero new commits, zero new rows, original untouched.
	headAfter, err := f.led.Head()
	require.NoError(t, err)
	assert.Equal(t, headBefore, headAfter)

	rows, err := f.log.Records()
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	original, err := os.ReadFile(ev.Path)
	require.NoError(t, err)
	assert.Equal(t, "scanned image bytes of bad.pdf", string(original))
}

func TestProcess_ExtractionFailure(t *testing.T) {
	f := newFixture(t, stubExtractor{err: fmt.Errorf("%w: damaged xref", common.ErrExtractionFailed)})
	ev := f.drop(t, "exhibit.pdf")

	_, err := f.proc.Process(context.Background(), ev)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageExtract, se.Stage)
	assert.ErrorIs(t, err, common.ErrExtractionFailed)

	rows, err := f.log.Records()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestProcess_ReprocessAppendsNewRow(t *testing.T) {
	f := newFixture(t, nil)
	ev := f.drop(t, "deed.pdf")

	first, err := f.proc.Process(context.Background(), ev)
	require.NoError(t, err)
	rowsBefore, err := f.log.Records()
	require.NoError(t, err)
	require.Len(t, rowsBefore, 1)

	second, err := f.proc.Process(context.Background(), ev)
	require.NoError(t, err)
	assert.NotEqual(t, first.CommitID, second.CommitID)

	rows, err := f.log.Records()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// The prior row is unchanged.
	assert.Equal(t, rowsBefore[0], rows[0])
	assert.Equal(t, second.CommitID, rows[1].CommitID)
}

func TestProcess_LogAppendFailureLeavesCommittedUnlogged(t *testing.T) {
	f := newFixture(t, nil)
	ev := f.drop(t, "exhibit.pdf")

	// Make the custody log unwritable: a directory at its path.
	require.NoError(t, os.Remove(f.log.Path()))
	require.NoError(t, os.Mkdir(f.log.Path(), 0o755))

	artifact, err := f.proc.Process(context.Background(), ev)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageLog, se.Stage)
	assert.ErrorIs(t, err, common.ErrLogAppendFailed)

	// The content commit stands; the state is detectable, not retried.
	require.NotNil(t, artifact)
	assert.Equal(t, entity.StatusCommittedUnlogged, artifact.Status)
	assert.True(t, f.led.HasCommit(artifact.CommitID))

	unlogged, err := f.artifacts.ListByStatus(context.Background(), entity.StatusCommittedUnlogged)
	require.NoError(t, err)
	require.Len(t, unlogged, 1)
	assert.Equal(t, artifact.CommitID, unlogged[0].CommitID)
}

func TestProcess_ConcurrentDistinctFiles(t *testing.T) {
	f := newFixture(t, nil)
	evA := f.drop(t, "alpha.pdf")
	evB := f.drop(t, "beta.pdf")

	var wg sync.WaitGroup
	results := make([]*entity.ProcessedArtifact, 2)
	for i, ev := range []entity.IntakeEvent{evA, evB} {
		wg.Add(1)
		go func(i int, ev entity.IntakeEvent) {
			defer wg.Done()
			a, err := f.proc.Process(context.Background(), ev)
			assert.NoError(t, err)
			results[i] = a
		}(i, ev)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.NotEqual(t, results[0].CommitID, results[1].CommitID)

	// Both rows are complete; the log parser enforces field count.
	rows, err := f.log.Records()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
