// Package intake watches the inbox directory and turns file-creation
// notifications into intake events.
package intake

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/docketvault/intake/internal/entity"
)

// Dispatcher receives detected events. Satisfied by *async.Queue.
type Dispatcher interface {
	Enqueue(ev entity.IntakeEvent)
}

// Watcher observes one directory, non-recursively, for newly created
// files. Directories and the pipeline's own outputs are ignored. Each
// dispatch is isolated: nothing a single file does can stop the loop.
type Watcher struct {
	root     string
	ignore   []string // absolute paths; directories match by prefix
	poll     time.Duration
	dispatch Dispatcher
	logger   *slog.Logger

	// seen tracks paths already dispatched this session. A failed file
	// is still seen: reprocessing requires a fresh creation event, not
	// an automatic retry.
	seen map[string]struct{}
}

func NewWatcher(root string, ignore []string, poll time.Duration, dispatch Dispatcher, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	var ign []string
	for _, p := range ignore {
		if p == "" {
			continue
		}
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		ign = append(ign, a)
	}
	return &Watcher{
		root:     abs,
		ignore:   ign,
		poll:     poll,
		dispatch: dispatch,
		logger:   logger,
		seen:     make(map[string]struct{}),
	}, nil
}

// Run watches until ctx is cancelled. Between notifications, a sweep
// every poll interval picks up files the notifier missed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("failed to create fsnotify watcher", "error", err)
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.root); err != nil {
		w.logger.Error("failed to watch inbox", "root", w.root, "error", err)
		return err
	}
	w.logger.Info("watching", "root", w.root)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping")
			return nil
		case e, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if e.Op&fsnotify.Create == fsnotify.Create {
				w.consider(e.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep re-lists the inbox and dispatches anything never seen this
// session, covering notifications lost while the process was busy.
func (w *Watcher) sweep() {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		w.logger.Error("sweep failed", "root", w.root, "error", err)
		return
	}
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		w.consider(filepath.Join(w.root, ent.Name()))
	}
}

func (w *Watcher) consider(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		w.logger.Error("bad event path", "path", path, "error", err)
		return
	}
	if w.ignored(abs) {
		return
	}
	if info, err := os.Stat(abs); err != nil || info.IsDir() {
		return
	}
	if _, ok := w.seen[abs]; ok {
		return
	}
	w.seen[abs] = struct{}{}

	ev := entity.IntakeEvent{
		Path:       abs,
		DetectedAt: time.Now().UTC(),
		TraceID:    uuid.New(),
	}
	w.logger.Info("watcher.dispatch", "path", abs, "trace_id", ev.TraceID.String())
	w.dispatch.Enqueue(ev)
}

func (w *Watcher) ignored(abs string) bool {
	for _, ign := range w.ignore {
		if abs == ign || strings.HasPrefix(abs, ign+string(filepath.Separator)) {
			return true
		}
	}
	// temp and hidden files never enter the pipeline
	base := filepath.Base(abs)
	return strings.HasPrefix(base, ".")
}
