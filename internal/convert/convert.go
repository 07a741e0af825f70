// Package convert invokes the external optical-recognition tool that
// turns a source document into an archival PDF with an embedded text
// layer plus a plain-text sidecar.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/docketvault/intake/internal/common"
)

// Config selects the recognition toolchain.
type Config struct {
	OCRCmd       string // e.g. "ocrmypdf"
	TesseractCmd string // recognition engine handed through to the tool
	ImageDPI     int    // fixed recognition resolution
}

// Converter runs one conversion per source file. It never retries: a
// failed conversion leaves the source untouched and is resubmitted by
// an operator.
type Converter struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewConverter(cfg Config, runner Runner, logger *slog.Logger) *Converter {
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OCRCmd == "" {
		cfg.OCRCmd = "ocrmypdf"
	}
	if cfg.TesseractCmd == "" {
		cfg.TesseractCmd = "tesseract"
	}
	if cfg.ImageDPI <= 0 {
		cfg.ImageDPI = 300
	}
	return &Converter{cfg: cfg, runner: runner, logger: logger}
}

// Convert produces an archival PDF at outPDF and a plain-text sidecar
// at sidecarTxt from the document at src. A non-zero exit from the
// tool is a conversion failure: no output is trusted and the error
// carries the tool's stderr for manual reprocessing.
func (c *Converter) Convert(ctx context.Context, src, outPDF, sidecarTxt string) error {
	args := []string{
		"--output-type", "pdfa",
		"--sidecar", sidecarTxt,
		"--image-dpi", strconv.Itoa(c.cfg.ImageDPI),
		"--tesseract", c.cfg.TesseractCmd,
		src,
		outPDF,
	}
	_, stderr, err := c.runner.Run(ctx, c.cfg.OCRCmd, args...)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v: %s",
			common.ErrConversionFailed, c.cfg.OCRCmd, src, err, truncate(string(stderr), 2<<10))
	}
	return nil
}
