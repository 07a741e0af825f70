// intakectl is operator tooling around the intake vault: reprocess a
// single file, verify the custody trail, or export it for review.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/docketvault/intake/internal/common"
	"github.com/docketvault/intake/internal/convert"
	"github.com/docketvault/intake/internal/custody"
	"github.com/docketvault/intake/internal/entity"
	"github.com/docketvault/intake/internal/export"
	"github.com/docketvault/intake/internal/extract"
	"github.com/docketvault/intake/internal/ledger"
	"github.com/docketvault/intake/internal/pipeline"
	"github.com/docketvault/intake/internal/repository"
	"github.com/docketvault/intake/internal/verify"
)

const usage = `usage:
  intakectl [-config file] [-ledger dir] process <file>
  intakectl [-config file] [-ledger dir] verify
  intakectl [-config file] [-ledger dir] export <out.xlsx>`

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "configuration file")
		ledgerRoot = flag.String("ledger", ".", "ledger worktree root")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	app, err := buildApp(ctx, cfg, *ledgerRoot, logger)
	if err != nil {
		logger.Error("startup", "error", err)
		os.Exit(1)
	}
	defer app.db.Close()

	switch flag.Arg(0) {
	case "process":
		if flag.NArg() != 2 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(app.process(ctx, flag.Arg(1)))
	case "verify":
		os.Exit(app.verify(ctx))
	case "export":
		if flag.NArg() != 2 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(app.export(ctx, flag.Arg(1)))
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	led       *ledger.Ledger
	db        *sql.DB
	artifacts repository.ArtifactRepository
	custody   *custody.Log
}

func buildApp(ctx context.Context, cfg *common.Config, ledgerRoot string, logger *slog.Logger) (*app, error) {
	led, err := ledger.Open(ledgerRoot, logger)
	if err != nil {
		return nil, err
	}
	db, err := repository.Open(ctx, cfg.Index.Path, logger)
	if err != nil {
		return nil, err
	}
	custodyLog, err := custody.NewLog(cfg.Intake.LogFile)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &app{
		cfg:       cfg,
		logger:    logger,
		led:       led,
		db:        db,
		artifacts: repository.NewArtifactRepository(db, logger),
		custody:   custodyLog,
	}, nil
}

// process runs the pipeline once over a single file, the manual
// resubmission path for failed intakes.
func (a *app) process(ctx context.Context, path string) int {
	conv := convert.NewConverter(convert.Config{
		OCRCmd:       a.cfg.OCR.OCRCmd,
		TesseractCmd: a.cfg.OCR.TesseractCmd,
		ImageDPI:     a.cfg.OCR.ImageDPI,
	}, nil, a.logger)

	proc := pipeline.NewProcessor(
		a.cfg.Intake.ProcessedDir,
		conv,
		extract.NewPDFExtractor(a.logger),
		a.led,
		a.custody,
		a.artifacts,
		a.logger,
	)

	ev := entity.IntakeEvent{Path: path, DetectedAt: time.Now().UTC(), TraceID: uuid.New()}
	artifact, err := proc.Process(ctx, ev)
	if err != nil {
		a.logger.Error("processing failed", "path", path, "error", err)
		return 1
	}
	fmt.Printf("processed %s\n  digest   %s\n  commit   %s\n", path, artifact.Digest, artifact.CommitID)
	return 0
}

func (a *app) verify(ctx context.Context) int {
	v := &verify.Verifier{
		ProcessedDir: a.cfg.Intake.ProcessedDir,
		Ledger:       a.led,
		Custody:      a.custody,
		Artifacts:    a.artifacts,
		Logger:       a.logger,
	}
	report, err := v.Run(ctx)
	if err != nil {
		a.logger.Error("verification failed to run", "error", err)
		return 1
	}
	fmt.Printf("checked %d custody rows\n", report.Checked)
	for _, f := range report.Findings {
		fmt.Printf("row %d (%s): %s\n", f.Row, f.Filename, f.Problem)
	}
	for _, u := range report.Unlogged {
		fmt.Printf("committed but unlogged: %s (commit %s)\n", u.OriginalPath, u.CommitID)
	}
	if !report.OK() {
		return 1
	}
	fmt.Println("custody trail verified")
	return 0
}

func (a *app) export(ctx context.Context, out string) int {
	records, err := a.custody.Records()
	if err != nil {
		a.logger.Error("read custody log", "error", err)
		return 1
	}
	artifacts, err := a.artifacts.List(ctx)
	if err != nil {
		a.logger.Error("list artifacts", "error", err)
		return 1
	}
	data, err := export.NewService(a.logger).BuildReport(records, artifacts)
	if err != nil {
		a.logger.Error("build report", "error", err)
		return 1
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		a.logger.Error("write report", "path", out, "error", err)
		return 1
	}
	fmt.Printf("wrote %s (%d custody rows, %d artifacts)\n", out, len(records), len(artifacts))
	return 0
}
