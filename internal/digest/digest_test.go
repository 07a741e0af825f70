package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.pdf")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	sum, err := File(path)
	require.NoError(t, err)
	// sha256("hello world")
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", sum)
	assert.Len(t, sum, HexLength)
}

func TestFile_Missing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}

func TestReader_LargeInput(t *testing.T) {
	// Larger than any internal copy buffer; digest must still match a
	// one-shot hash of the same bytes.
	payload := strings.Repeat("0123456789abcdef", 64*1024) // 1 MiB
	sum, err := Reader(strings.NewReader(payload))
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
	fromFile, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, sum, fromFile)
}
