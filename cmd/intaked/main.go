package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docketvault/intake/internal/async"
	"github.com/docketvault/intake/internal/common"
	"github.com/docketvault/intake/internal/convert"
	"github.com/docketvault/intake/internal/custody"
	"github.com/docketvault/intake/internal/extract"
	"github.com/docketvault/intake/internal/intake"
	"github.com/docketvault/intake/internal/ledger"
	"github.com/docketvault/intake/internal/pipeline"
	"github.com/docketvault/intake/internal/repository"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "configuration file")
		ledgerRoot = flag.String("ledger", ".", "ledger worktree root")
		initLedger = flag.Bool("init", false, "create the ledger repository if missing")
	)
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger, logCloser, err := common.NewLogger(cfg.Intake.AppLog)
	if err != nil {
		slog.Error("open app log", "error", err)
		os.Exit(1)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{cfg.Intake.VaultRoot, cfg.Intake.ProcessedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("create directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	// The ledger backs every custody guarantee; not having one is fatal.
	open := ledger.Open
	if *initLedger {
		open = ledger.Init
	}
	led, err := open(*ledgerRoot, logger)
	if err != nil {
		logger.Error("open ledger", "root", *ledgerRoot, "error", err)
		os.Exit(1)
	}

	db, err := repository.Open(ctx, cfg.Index.Path, logger)
	if err != nil {
		logger.Error("open artifact index", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	artifacts := repository.NewArtifactRepository(db, logger)

	custodyLog, err := custody.NewLog(cfg.Intake.LogFile)
	if err != nil {
		logger.Error("init custody log", "error", err)
		os.Exit(1)
	}

	conv := convert.NewConverter(convert.Config{
		OCRCmd:       cfg.OCR.OCRCmd,
		TesseractCmd: cfg.OCR.TesseractCmd,
		ImageDPI:     cfg.OCR.ImageDPI,
	}, nil, logger)

	proc := pipeline.NewProcessor(
		cfg.Intake.ProcessedDir,
		conv,
		extract.NewPDFExtractor(logger),
		led,
		custodyLog,
		artifacts,
		logger,
	)

	queue := async.NewQueue(proc, logger,
		async.WithWorkers(cfg.Intake.Workers),
		async.WithQueueSize(cfg.Intake.QueueSize),
	)

	selfPaths := []string{
		cfg.Intake.LogFile,
		cfg.Intake.ProcessedDir,
		cfg.Intake.AppLog,
		cfg.Index.Path,
		".git",
	}
	watcher, err := intake.NewWatcher(cfg.Intake.VaultRoot, selfPaths, cfg.Intake.PollInterval, queue, logger)
	if err != nil {
		logger.Error("create watcher", "error", err)
		os.Exit(1)
	}

	if err := watcher.Run(ctx); err != nil {
		logger.Error("watcher exited", "error", err)
	}

	// Interrupt received: stop intake, let in-flight work finish.
	logger.Info("shutting down")
	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	queue.Shutdown(drainCtx)
	logger.Info("stopped")
}
