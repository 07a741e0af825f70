// Package async decouples detection from processing: the watcher
// produces intake events, a bounded worker pool consumes them.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/docketvault/intake/internal/entity"
	"github.com/docketvault/intake/internal/pipeline"
)

// FileProcessor is what a worker runs per event. Satisfied by
// *pipeline.Processor.
type FileProcessor interface {
	Process(ctx context.Context, ev entity.IntakeEvent) (*entity.ProcessedArtifact, error)
}

// Queue feeds intake events to a fixed set of workers. Per-file
// failures stop here: they are logged with the path and the failed
// stage and never reach the watch loop.
type Queue struct {
	proc    FileProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan entity.IntakeEvent
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan entity.IntakeEvent, n)
		}
	}
}

// WithProcessTimeout bounds a single file's pipeline run. Zero means
// no timeout; conversion is never cancelled mid-flight by default.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		q.timeout = d
	}
}

func NewQueue(proc FileProcessor, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		ch:      make(chan entity.IntakeEvent, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for ev := range q.ch {
					q.handle(workerID, ev)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) handle(workerID int, ev entity.IntakeEvent) {
	ctx := context.Background()
	var cancel context.CancelFunc = func() {}
	if q.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
	}
	defer cancel()

	_, err := q.proc.Process(ctx, ev)
	if err == nil {
		q.logger.Info("intake processed", "worker_id", workerID, "path", ev.Path, "trace_id", ev.TraceID.String())
		return
	}

	// Outermost per-file boundary: tag the stage, log, continue.
	var se *pipeline.StageError
	if errors.As(err, &se) {
		q.logger.Error("intake failed",
			"worker_id", workerID,
			"path", ev.Path,
			"stage", string(se.Stage),
			"trace_id", ev.TraceID.String(),
			"error", se.Err,
		)
		return
	}
	q.logger.Error("intake failed", "worker_id", workerID, "path", ev.Path, "trace_id", ev.TraceID.String(), "error", err)
}

// Enqueue submits an event, blocking when the queue is full. A queue
// that is shutting down drops the event with a warning.
func (q *Queue) Enqueue(ev entity.IntakeEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", ev.Path)
		return
	}
	select {
	case q.ch <- ev:
	default:
		q.logger.Warn("queue full, applying backpressure", "path", ev.Path)
		q.ch <- ev
	}
}

// Shutdown stops intake and waits for in-flight work, or gives up when
// ctx expires.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
