package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/docketvault/intake/internal/entity"
)

// ArtifactRepository indexes processed artifacts so that operators can
// list what was produced and detect committed-but-unlogged content.
type ArtifactRepository interface {
	Insert(ctx context.Context, a entity.ProcessedArtifact) error
	List(ctx context.Context) ([]entity.ProcessedArtifact, error)
	ListByStatus(ctx context.Context, status entity.ArtifactStatus) ([]entity.ProcessedArtifact, error)
}

type artifactRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewArtifactRepository(db *sql.DB, logger *slog.Logger) ArtifactRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &artifactRepo{db: db, logger: logger}
}

const insertArtifactSQL = `
INSERT INTO processed_artifacts
	(original_path, pdf_path, text_sidecar_path, json_sidecar_path, digest, commit_id, processed_at, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (r *artifactRepo) Insert(ctx context.Context, a entity.ProcessedArtifact) error {
	_, err := r.db.ExecContext(ctx, insertArtifactSQL,
		a.OriginalPath,
		a.PDFPath,
		a.TextSidecarPath,
		a.JSONSidecarPath,
		a.Digest,
		a.CommitID,
		a.ProcessedAt.UTC().Format(time.RFC3339Nano),
		string(a.Status),
	)
	if err != nil {
		r.logger.Error("failed to index artifact", "original_path", a.OriginalPath, "error", err)
		return err
	}
	return nil
}

const selectArtifactSQL = `
SELECT original_path, pdf_path, text_sidecar_path, json_sidecar_path, digest, commit_id, processed_at, status
FROM processed_artifacts`

func (r *artifactRepo) List(ctx context.Context) ([]entity.ProcessedArtifact, error) {
	return r.query(ctx, selectArtifactSQL+` ORDER BY id`)
}

func (r *artifactRepo) ListByStatus(ctx context.Context, status entity.ArtifactStatus) ([]entity.ProcessedArtifact, error) {
	return r.query(ctx, selectArtifactSQL+` WHERE status = ? ORDER BY id`, string(status))
}

func (r *artifactRepo) query(ctx context.Context, q string, args ...any) ([]entity.ProcessedArtifact, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		r.logger.Error("failed to list artifacts", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []entity.ProcessedArtifact
	for rows.Next() {
		var a entity.ProcessedArtifact
		var processedAt, status string
		if err := rows.Scan(
			&a.OriginalPath,
			&a.PDFPath,
			&a.TextSidecarPath,
			&a.JSONSidecarPath,
			&a.Digest,
			&a.CommitID,
			&processedAt,
			&status,
		); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, processedAt); err == nil {
			a.ProcessedAt = ts
		}
		a.Status = entity.ArtifactStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}
