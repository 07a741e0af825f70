package convert

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docketvault/intake/internal/common"
)

// captureRunner records the invocation instead of executing it.
type captureRunner struct {
	name   string
	args   []string
	stderr []byte
	err    error
}

func (r *captureRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.name = name
	r.args = args
	return nil, r.stderr, r.err
}

func TestConvert_BuildsOCRInvocation(t *testing.T) {
	runner := &captureRunner{}
	c := NewConverter(Config{OCRCmd: "ocrmypdf", TesseractCmd: "/opt/tesseract", ImageDPI: 400}, runner, nil)

	err := c.Convert(context.Background(), "incoming/exhibit_12.pdf", "processed/exhibit_12_ocr.pdf", "processed/exhibit_12.txt")
	require.NoError(t, err)

	assert.Equal(t, "ocrmypdf", runner.name)
	assert.Equal(t, []string{
		"--output-type", "pdfa",
		"--sidecar", "processed/exhibit_12.txt",
		"--image-dpi", "400",
		"--tesseract", "/opt/tesseract",
		"incoming/exhibit_12.pdf",
		"processed/exhibit_12_ocr.pdf",
	}, runner.args)
}

func TestConvert_NonZeroExitCarriesStderr(t *testing.T) {
	runner := &captureRunner{
		stderr: []byte("InputFileError: file is encrypted"),
		err:    errors.New("exit status 1"),
	}
	c := NewConverter(Config{}, runner, nil)

	err := c.Convert(context.Background(), "incoming/bad.pdf", "out.pdf", "out.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConversionFailed)
	assert.Contains(t, err.Error(), "InputFileError")
	assert.Contains(t, err.Error(), "incoming/bad.pdf")
}

func TestNewConverter_Defaults(t *testing.T) {
	runner := &captureRunner{}
	c := NewConverter(Config{}, runner, nil)
	require.NoError(t, c.Convert(context.Background(), "a.pdf", "b.pdf", "b.txt"))

	assert.Equal(t, "ocrmypdf", runner.name)
	assert.Contains(t, runner.args, "tesseract")
	assert.Contains(t, runner.args, "300")
}
