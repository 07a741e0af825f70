// Package ledger wraps a content-addressed git history store. It is the
// single source of durable, tamper-evident storage for both converted
// artifacts and the chain-of-custody log file.
package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/docketvault/intake/internal/common"
)

const (
	committerName  = "intake"
	committerEmail = "intake@localhost"
)

// Ledger is a thin adapter over a git worktree. It creates history
// entries and resolves them; it never interprets history beyond that.
// Callers serialize Stage/Commit externally; the adapter itself holds
// no lock.
type Ledger struct {
	root   string
	repo   *git.Repository
	logger *slog.Logger
}

// Open opens the repository rooted at root. Unavailability here is
// fatal to the caller: the ledger backs every custody guarantee.
func Open(root string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpen(abs)
	if err != nil {
		return nil, common.NewAppError("LEDGER_OPEN", fmt.Sprintf("open ledger at %s", abs), common.ErrLedgerUnavailable)
	}
	return &Ledger{root: abs, repo: repo, logger: logger}, nil
}

// Init creates a repository at root if none exists, then opens it.
func Init(root string, logger *slog.Logger) (*Ledger, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := git.PlainInit(abs, false); err != nil && err != git.ErrRepositoryAlreadyExists {
		return nil, common.NewAppError("LEDGER_INIT", fmt.Sprintf("init ledger at %s", abs), err)
	}
	return Open(abs, logger)
}

// Root returns the worktree root the ledger was opened at.
func (l *Ledger) Root() string { return l.root }

// Stage adds the given paths to the index. Paths may be absolute or
// relative to the process working directory; they must resolve inside
// the worktree.
func (l *Ledger) Stage(paths ...string) error {
	wt, err := l.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	for _, p := range paths {
		rel, err := l.relPath(p)
		if err != nil {
			return err
		}
		if _, err := wt.Add(rel); err != nil {
			return fmt.Errorf("stage %s: %w", rel, err)
		}
	}
	return nil
}

// Commit creates one discrete history entry over the staged tree and
// returns its identifier. Identical content still produces a new
// entry: reprocessing an unchanged document must be visible as its own
// point in history.
func (l *Ledger) Commit(message string) (string, error) {
	wt, err := l.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  committerName,
			Email: committerEmail,
			When:  time.Now(),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", fmt.Errorf("commit %q: %w", message, err)
	}
	l.logger.Debug("ledger.commit", "id", hash.String(), "message", message)
	return hash.String(), nil
}

// Head returns the identifier of the most recent history entry.
func (l *Ledger) Head() (string, error) {
	ref, err := l.repo.Head()
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	return ref.Hash().String(), nil
}

// FileAt opens the content of path as committed in the history entry
// commitID. The caller closes the reader.
func (l *Ledger) FileAt(commitID, path string) (io.ReadCloser, error) {
	commit, err := l.repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		return nil, fmt.Errorf("resolve commit %s: %w", commitID, err)
	}
	rel, err := l.relPath(path)
	if err != nil {
		return nil, err
	}
	f, err := commit.File(rel)
	if err != nil {
		return nil, fmt.Errorf("file %s at %s: %w", rel, commitID, err)
	}
	return f.Reader()
}

// HasCommit reports whether commitID resolves to a history entry.
func (l *Ledger) HasCommit(commitID string) bool {
	_, err := l.repo.CommitObject(plumbing.NewHash(commitID))
	return err == nil
}

func (l *Ledger) relPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(l.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %s is outside the ledger worktree %s", p, l.root)
	}
	return filepath.ToSlash(rel), nil
}
