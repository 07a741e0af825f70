package repository

import (
	"context"
	"database/sql"
	"log/slog"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_artifacts (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	original_path     TEXT NOT NULL,
	pdf_path          TEXT NOT NULL,
	text_sidecar_path TEXT NOT NULL,
	json_sidecar_path TEXT NOT NULL,
	digest            TEXT NOT NULL,
	commit_id         TEXT NOT NULL,
	processed_at      TIMESTAMP NOT NULL,
	status            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_status ON processed_artifacts (status);
CREATE INDEX IF NOT EXISTS idx_artifacts_original ON processed_artifacts (original_path);
`

// Open opens (creating if necessary) the artifact index database and
// ensures its schema. An unopenable index is fatal at startup, like
// the ledger.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opening artifact index", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("failed to open artifact index", "path", path, "error", err)
		return nil, err
	}
	// The sqlite driver serializes writers; one connection avoids
	// SQLITE_BUSY churn under concurrent workers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		logger.Error("failed to ensure index schema", "error", err)
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
