package tracker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satyaki-up/sprintboard/internal/tracker"
)

// memStore is a Persister that keeps one snapshot in memory and enforces the
// same version check as the SQLite store.
type memStore struct {
	mu      sync.Mutex
	snap    tracker.Snapshot
	saves   int
	loads   int
	saveErr error
	stale   int
}

func (m *memStore) Load(context.Context) (tracker.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	return m.snap, nil
}

func (m *memStore) Save(_ context.Context, prev, next tracker.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.stale > 0 {
		m.stale--
		return tracker.ErrConflict
	}
	if prev.Version != m.snap.Version {
		return tracker.ErrConflict
	}
	m.saves++
	m.snap = next
	return nil
}

func noWait() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
}

func TestOpenLoadsStoredSnapshot(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	writer, err := tracker.Open(ctx, store)
	require.NoError(t, err)
	p, err := writer.CreateProject(ctx, tracker.ProjectInput{Key: "WEB", Name: "Web"})
	require.NoError(t, err)

	reader, err := tracker.Open(ctx, store)
	require.NoError(t, err)
	snap := reader.Snapshot()
	assert.Equal(t, int64(1), snap.Version)
	assert.Equal(t, []tracker.Project{p}, snap.Projects)
}

func TestConflictReloadsAndRetries(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	a, err := tracker.Open(ctx, store, tracker.WithRetry(noWait))
	require.NoError(t, err)
	b, err := tracker.Open(ctx, store, tracker.WithRetry(noWait))
	require.NoError(t, err)

	web, err := b.CreateProject(ctx, tracker.ProjectInput{Key: "WEB", Name: "Web"})
	require.NoError(t, err)

	// a still holds version 0 and cannot see b's project. The failed command
	// makes it reload, and the retry runs against the stored snapshot.
	is, err := a.CreateIssue(ctx, web.ID, tracker.IssueInput{})
	require.NoError(t, err)
	assert.Equal(t, "WEB-1", is.Key)

	snap := a.Snapshot()
	assert.Equal(t, int64(2), snap.Version)
	assert.Equal(t, snap, store.snap)
	assert.Equal(t, 2, store.saves)
}

func TestConflictRetriesAreBounded(t *testing.T) {
	ctx := context.Background()
	store := &memStore{stale: 100}
	eng, err := tracker.Open(ctx, store, tracker.WithRetry(noWait))
	require.NoError(t, err)

	_, err = eng.CreateSprint(ctx, tracker.SprintInput{Name: "S1"})
	assert.ErrorIs(t, err, tracker.ErrConflict)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, 1+4, store.loads, "one open plus one reload per attempt")
	assert.Empty(t, eng.Snapshot().Sprints)
}

func TestSaveFailureIsNotRetried(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	store := &memStore{saveErr: boom}
	eng, err := tracker.Open(ctx, store, tracker.WithRetry(noWait))
	require.NoError(t, err)

	var published int
	eng.Subscribe(func(tracker.Snapshot) { published++ })
	_, err = eng.CreateSprint(ctx, tracker.SprintInput{Name: "S1"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.loads)
	assert.Empty(t, eng.Snapshot().Sprints)
	assert.Zero(t, published)
}

func TestValidationErrorsAreNotRetried(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	eng, err := tracker.Open(ctx, store, tracker.WithRetry(noWait))
	require.NoError(t, err)

	_, err = eng.CreateSprint(ctx, tracker.SprintInput{})
	var ve *tracker.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)
	assert.Equal(t, 2, store.loads, "one open plus one reload that finds nothing newer")
}

func TestStaleSaveConflictIsRetried(t *testing.T) {
	ctx := context.Background()
	store := &memStore{stale: 1}
	eng, err := tracker.Open(ctx, store, tracker.WithRetry(noWait))
	require.NoError(t, err)

	sp, err := eng.CreateSprint(ctx, tracker.SprintInput{Name: "S1"})
	require.NoError(t, err)
	assert.Equal(t, []tracker.Sprint{sp}, store.snap.Sprints)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 2, store.loads)
}

// readingBackOff reads the engine snapshot each time it is asked for a delay,
// which deadlocks if the engine lock is held across retries.
type readingBackOff struct {
	eng   *tracker.Engine
	reads int
}

func (b *readingBackOff) NextBackOff() time.Duration {
	b.reads++
	_ = b.eng.Snapshot()
	if b.reads > 3 {
		return backoff.Stop
	}
	return 0
}

func (b *readingBackOff) Reset() {}

func TestSnapshotReadableBetweenRetries(t *testing.T) {
	ctx := context.Background()
	store := &memStore{stale: 2}
	bo := &readingBackOff{}
	eng, err := tracker.Open(ctx, store, tracker.WithRetry(func() backoff.BackOff { return bo }))
	require.NoError(t, err)
	bo.eng = eng

	done := make(chan error, 1)
	go func() {
		_, err := eng.CreateSprint(ctx, tracker.SprintInput{Name: "S1"})
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("command blocked while waiting to retry")
	}
	assert.Equal(t, 2, bo.reads)
	assert.Len(t, eng.Snapshot().Sprints, 1)
}
