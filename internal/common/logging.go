package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process logger. With an app_log path it appends
// JSON records to that file; otherwise it writes text to stderr. The
// returned closer is non-nil only when a file was opened.
func NewLogger(appLog string) (*slog.Logger, io.Closer, error) {
	if appLog == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil)), nil, nil
	}
	f, err := os.OpenFile(appLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open app log %s: %w", appLog, err)
	}
	return slog.New(slog.NewJSONHandler(f, nil)), f, nil
}
