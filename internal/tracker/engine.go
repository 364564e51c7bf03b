package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options gates behavior that is still awaiting product confirmation.
type Options struct {
	// ReopenEpics makes epic completion two-directional: a DONE epic with an
	// unfinished child is moved back to IN_PROGRESS.
	ReopenEpics bool
	// StrictTransitions rejects issue status moves outside validTransitions.
	StrictTransitions bool
}

// Persister is the durable store behind an Engine. Save must fail with
// ErrConflict when the stored version is not prev.Version.
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, prev, next Snapshot) error
}

// CommandObserver wraps the execution of every command, e.g. for tracing.
type CommandObserver interface {
	Observe(ctx context.Context, command string, run func(ctx context.Context) error) error
}

type Option func(*Engine)

func WithOptions(o Options) Option { return func(e *Engine) { e.opts = o } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithIDGenerator(newID func() string) Option { return func(e *Engine) { e.newID = newID } }

func WithPersister(p Persister) Option { return func(e *Engine) { e.store = p } }

func WithObserver(o CommandObserver) Option { return func(e *Engine) { e.observer = o } }

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithRetry sets the backoff policy used when Save reports a conflict.
func WithRetry(newBackOff func() backoff.BackOff) Option {
	return func(e *Engine) { e.newBackOff = newBackOff }
}

const maxConflictRetries = 5

// Engine serializes every command against one canonical snapshot. Commands
// compute a new snapshot from the current one, persist it, and publish it in
// one step; readers always see a complete snapshot.
type Engine struct {
	mu   sync.Mutex
	snap Snapshot

	opts       Options
	now        func() time.Time
	newID      func() string
	store      Persister
	observer   CommandObserver
	log        zerolog.Logger
	newBackOff func() backoff.BackOff

	subs    map[int]func(Snapshot)
	nextSub int
}

func NewEngine(initial Snapshot, opts ...Option) *Engine {
	e := &Engine{
		snap:  initial,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
		log:   zerolog.Nop(),
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 10 * time.Millisecond
			bo.MaxElapsedTime = 2 * time.Second
			return backoff.WithMaxRetries(bo, maxConflictRetries)
		},
		subs: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open loads the current snapshot from p and returns an engine backed by it.
func Open(ctx context.Context, p Persister, opts ...Option) (*Engine, error) {
	snap, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return NewEngine(snap, append([]Option{WithPersister(p)}, opts...)...), nil
}

// Snapshot returns the latest published snapshot.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Subscribe registers fn to receive every published snapshot in commit order.
// fn runs while the engine is locked and must not issue commands.
func (e *Engine) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// apply runs one command. When the stored snapshot has moved on, either
// because Save reports a conflict or because the command failed against
// stale state, the engine reloads and re-runs the command on the latest
// snapshot. The lock is held for one attempt at a time, not across backoff
// sleeps.
func (e *Engine) apply(ctx context.Context, name string, fn func(tx *txn) error) (Snapshot, error) {
	var committed Snapshot
	attempt := func() error {
		e.mu.Lock()
		defer e.mu.Unlock()

		base := e.snap
		tx := newTxn(base, e.now(), e.newID, e.opts)
		if err := fn(tx); err != nil {
			if e.store != nil && e.refresh(ctx, name, base) {
				return err
			}
			return backoff.Permanent(err)
		}
		next := tx.settle()
		next.Version = base.Version + 1
		if e.store != nil {
			if err := e.store.Save(ctx, base, next); err != nil {
				if !errors.Is(err, ErrConflict) {
					return backoff.Permanent(fmt.Errorf("%s: save: %w", name, err))
				}
				e.log.Warn().Str("command", name).Int64("version", base.Version).Msg("snapshot conflict; reloading")
				latest, lerr := e.store.Load(ctx)
				if lerr != nil {
					return backoff.Permanent(fmt.Errorf("%s: reload: %w", name, lerr))
				}
				e.snap = latest
				return err
			}
		}
		e.snap = next
		committed = next
		e.log.Debug().Str("command", name).Int64("version", next.Version).Msg("committed")
		for _, sub := range e.subs {
			sub(next)
		}
		return nil
	}
	run := func(ctx context.Context) error {
		return backoff.Retry(attempt, backoff.WithContext(e.newBackOff(), ctx))
	}
	var err error
	if e.observer != nil {
		err = e.observer.Observe(ctx, name, run)
	} else {
		err = run(ctx)
	}
	return committed, err
}

// refresh reloads the stored snapshot after a failed command and reports
// whether it differs from base, in which case the command is worth retrying.
// Called with e.mu held.
func (e *Engine) refresh(ctx context.Context, name string, base Snapshot) bool {
	latest, err := e.store.Load(ctx)
	if err != nil {
		e.log.Warn().Err(err).Str("command", name).Msg("reload after failed command")
		return false
	}
	if latest.Version == base.Version {
		return false
	}
	e.log.Debug().Str("command", name).Int64("from", base.Version).Int64("to", latest.Version).Msg("stale snapshot; retrying")
	e.snap = latest
	return true
}

func (e *Engine) CreateProject(ctx context.Context, in ProjectInput) (Project, error) {
	var out Project
	_, err := e.apply(ctx, "createProject", func(tx *txn) (err error) {
		out, err = createProject(tx, in)
		return err
	})
	return out, err
}

// DeleteProject removes the project and its issues, returning the removed
// issue ids.
func (e *Engine) DeleteProject(ctx context.Context, projectID string) ([]string, error) {
	var out []string
	_, err := e.apply(ctx, "deleteProject", func(tx *txn) (err error) {
		out, err = deleteProject(tx, projectID)
		return err
	})
	return out, err
}

func (e *Engine) CreateSprint(ctx context.Context, in SprintInput) (Sprint, error) {
	var out Sprint
	_, err := e.apply(ctx, "createSprint", func(tx *txn) (err error) {
		out, err = createSprint(tx, in)
		return err
	})
	return out, err
}

func (e *Engine) UpdateSprint(ctx context.Context, in Sprint) (Sprint, error) {
	var out Sprint
	_, err := e.apply(ctx, "updateSprint", func(tx *txn) (err error) {
		out, err = updateSprint(tx, in)
		return err
	})
	return out, err
}

// DeleteSprint removes the sprint and returns the issues it unlinked.
func (e *Engine) DeleteSprint(ctx context.Context, sprintID string) ([]Issue, error) {
	var out []Issue
	_, err := e.apply(ctx, "deleteSprint", func(tx *txn) (err error) {
		out, err = deleteSprint(tx, sprintID)
		return err
	})
	return out, err
}

func (e *Engine) StartSprint(ctx context.Context, sprintID string, opts StartOptions) (Sprint, error) {
	var out Sprint
	_, err := e.apply(ctx, "startSprint", func(tx *txn) (err error) {
		out, err = startSprint(tx, sprintID, opts)
		return err
	})
	return out, err
}

func (e *Engine) CompleteSprint(ctx context.Context, sprintID string) (Sprint, error) {
	var out Sprint
	_, err := e.apply(ctx, "completeSprint", func(tx *txn) (err error) {
		out, err = completeSprint(tx, sprintID)
		return err
	})
	return out, err
}

func (e *Engine) CreateIssue(ctx context.Context, projectID string, in IssueInput) (Issue, error) {
	var out Issue
	snap, err := e.apply(ctx, "createIssue", func(tx *txn) (err error) {
		out, err = createIssue(tx, projectID, in)
		return err
	})
	return settled(snap, out), err
}

func (e *Engine) UpdateIssue(ctx context.Context, in Issue) (Issue, error) {
	var out Issue
	snap, err := e.apply(ctx, "updateIssue", func(tx *txn) (err error) {
		out, err = updateIssue(tx, in)
		return err
	})
	return settled(snap, out), err
}

func (e *Engine) UpdateIssueStatus(ctx context.Context, issueID string, to Status) (Issue, error) {
	var out Issue
	snap, err := e.apply(ctx, "updateIssueStatus", func(tx *txn) (err error) {
		out, err = updateIssueStatus(tx, issueID, to)
		return err
	})
	return settled(snap, out), err
}

// DeleteIssue removes the issue and, for epics, all children. It returns the
// ids of every removed issue.
func (e *Engine) DeleteIssue(ctx context.Context, issueID string) ([]string, error) {
	var out []string
	_, err := e.apply(ctx, "deleteIssue", func(tx *txn) (err error) {
		out, err = deleteIssue(tx, issueID)
		return err
	})
	return out, err
}

func (e *Engine) AddComment(ctx context.Context, author Author, issueID, content string) (Comment, error) {
	var out Comment
	_, err := e.apply(ctx, "addComment", func(tx *txn) (err error) {
		out, err = addComment(tx, author, issueID, content)
		return err
	})
	return out, err
}

func (e *Engine) AddToSprint(ctx context.Context, sprintID string, issueIDs ...string) ([]Issue, error) {
	var out []Issue
	_, err := e.apply(ctx, "addToSprint", func(tx *txn) (err error) {
		out, err = addToSprint(tx, sprintID, issueIDs)
		return err
	})
	return out, err
}

func (e *Engine) MoveToBacklog(ctx context.Context, issueIDs ...string) ([]Issue, error) {
	var out []Issue
	_, err := e.apply(ctx, "moveToBacklog", func(tx *txn) (err error) {
		out, err = moveToBacklog(tx, issueIDs)
		return err
	})
	return out, err
}

// settled returns is as it appears in the committed snapshot, which includes
// any change made by the consistency pass.
func settled(snap Snapshot, is Issue) Issue {
	if cur, ok := snap.Issue(is.ID); ok {
		return cur
	}
	return is
}
