// Package digest computes content fingerprints for finalized artifacts.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// HexLength is the length of a rendered digest string.
const HexLength = sha256.Size * 2

// File streams the file at path through SHA-256 and returns the
// lowercase hex digest. Reads go through a bounded copy buffer, so
// memory use does not grow with file size.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Reader(f)
}

// Reader consumes r to EOF and returns the lowercase hex SHA-256 digest.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
