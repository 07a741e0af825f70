package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docketvault/intake/internal/entity"
	"github.com/docketvault/intake/internal/pipeline"
)

// recordingProcessor counts calls and fails the paths it is told to.
type recordingProcessor struct {
	mu        sync.Mutex
	processed []string
	failPaths map[string]error
}

func (p *recordingProcessor) Process(_ context.Context, ev entity.IntakeEvent) (*entity.ProcessedArtifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, ev.Path)
	if err, ok := p.failPaths[ev.Path]; ok {
		return nil, err
	}
	return &entity.ProcessedArtifact{OriginalPath: ev.Path}, nil
}

func (p *recordingProcessor) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.processed...)
}

func event(path string) entity.IntakeEvent {
	return entity.IntakeEvent{Path: path, DetectedAt: time.Now().UTC(), TraceID: uuid.New()}
}

func TestQueue_ProcessesAllEvents(t *testing.T) {
	proc := &recordingProcessor{}
	q := NewQueue(proc, nil, WithWorkers(3), WithQueueSize(8))

	paths := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"}
	for _, p := range paths {
		q.Enqueue(event(p))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.ElementsMatch(t, paths, proc.seen())
}

func TestQueue_FailureDoesNotStopWorkers(t *testing.T) {
	proc := &recordingProcessor{
		failPaths: map[string]error{
			"bad.pdf": &pipeline.StageError{Stage: pipeline.StageConvert, Path: "bad.pdf", Err: errors.New("exit status 2")},
		},
	}
	q := NewQueue(proc, nil, WithWorkers(1))

	q.Enqueue(event("bad.pdf"))
	q.Enqueue(event("good.pdf"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	// The failing dispatch was isolated: the next event was handled.
	require.Equal(t, []string{"bad.pdf", "good.pdf"}, proc.seen())
}

func TestQueue_EnqueueAfterShutdownIsDropped(t *testing.T) {
	proc := &recordingProcessor{}
	q := NewQueue(proc, nil, WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	q.Enqueue(event("late.pdf"))
	assert.Empty(t, proc.seen())
}

func TestQueue_ShutdownIsIdempotent(t *testing.T) {
	q := NewQueue(&recordingProcessor{}, nil, WithWorkers(1))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)
	q.Shutdown(ctx)
}
