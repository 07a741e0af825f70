package entity

import (
	"time"

	"github.com/google/uuid"
)

// IntakeEvent is a file-creation notification from the watched inbox.
// It is transient: created by the watcher, consumed by the pipeline,
// never persisted.
type IntakeEvent struct {
	Path       string    `json:"path"`
	DetectedAt time.Time `json:"detected_at"`
	TraceID    uuid.UUID `json:"trace_id"`
}

// ArtifactStatus is the terminal disposition of a processed artifact.
type ArtifactStatus string

const (
	// StatusLogged means both the content commit and the custody-log
	// commit completed.
	StatusLogged ArtifactStatus = "logged"
	// StatusCommittedUnlogged means the content commit landed but the
	// custody append or its commit did not. Reconciled manually.
	StatusCommittedUnlogged ArtifactStatus = "committed_unlogged"
)

// ProcessedArtifact represents one completed conversion for data
// transfer between layers. It is created only after conversion
// succeeds and never mutated afterwards; reprocessing the same source
// produces a new artifact.
type ProcessedArtifact struct {
	OriginalPath    string         `json:"original_path"`
	PDFPath         string         `json:"pdf_path"`
	TextSidecarPath string         `json:"text_sidecar_path"`
	JSONSidecarPath string         `json:"json_sidecar_path"`
	Digest          string         `json:"digest"`
	CommitID        string         `json:"commit_id"`
	ProcessedAt     time.Time      `json:"processed_at"`
	Status          ArtifactStatus `json:"status"`
}
