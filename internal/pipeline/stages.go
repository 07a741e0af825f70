package pipeline

import "fmt"

// Stage names a step of the per-file state machine. A file advances
// Received -> Converted -> Extracted -> Hashed -> Committed -> Logged
// -> Done; any step can instead terminate in a tagged failure.
type Stage string

const (
	StageReceived Stage = "received"
	StageConvert  Stage = "convert"
	StageExtract  Stage = "extract"
	StageHash     Stage = "hash"
	StageCommit   Stage = "commit"
	StageLog      Stage = "log"
	StageDone     Stage = "done"
)

// StageError tags a per-file failure with the stage that produced it.
// Branching on Stage replaces catch-all handling at the dispatch
// boundary: the boundary only logs and moves on, the tag says what an
// operator must do about it.
type StageError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func failed(stage Stage, path string, err error) *StageError {
	return &StageError{Stage: stage, Path: path, Err: err}
}
