package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satyaki-up/sprintboard/internal/config"
	"github.com/satyaki-up/sprintboard/internal/tracker"
)

func TestRenderErrorExitCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&tracker.ValidationError{Field: "title", Reason: "is required"}, 2},
		{fmt.Errorf("%w: BACKLOG -> DONE", tracker.ErrInvalidStateTransition), 2},
		{&tracker.NotFoundError{Kind: tracker.KindIssue, ID: "WEB-9"}, 3},
		{&tracker.InvariantError{Reason: "sprint is completed"}, 4},
		{tracker.ErrConflict, 4},
		{assert.AnError, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, renderError(tt.err), tt.err.Error())
	}
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, tracker.StatusInProgress, parseStatus("in-progress"))
	assert.Equal(t, tracker.StatusDone, parseStatus(" done "))
}

func TestResolvers(t *testing.T) {
	app.cfg = &config.Config{Project: "WEB"}
	t.Cleanup(func() { app.cfg = nil })

	goal := "g"
	snap := tracker.Snapshot{
		Projects: []tracker.Project{{ID: "p1", Key: "WEB"}},
		Sprints: []tracker.Sprint{
			{ID: "s1", Name: "Sprint 1", Status: tracker.SprintActive},
			{ID: "s2", Name: "Later", Goal: &goal},
			{ID: "s3", Name: "later"},
		},
		Issues: []tracker.Issue{{ID: "i1", Key: "WEB-1", ProjectID: "p1"}},
	}

	p, err := resolveProject(snap, "")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	_, err = resolveProject(snap, "API")
	assert.ErrorIs(t, err, tracker.ErrNotFound)

	is, err := resolveIssue(snap, "web-1")
	require.NoError(t, err)
	assert.Equal(t, "i1", is.ID)

	sp, err := resolveSprint(snap, "sprint 1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sp.ID)
	_, err = resolveSprint(snap, "LATER")
	assert.ErrorIs(t, err, tracker.ErrInvalidInput, "ambiguous names need an id")

	active, err := activeOrNamed(snap, "")
	require.NoError(t, err)
	assert.Equal(t, "s1", active.ID)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("startDate", "2026-05-04")
	require.NoError(t, err)
	assert.Equal(t, "2026-05-04", d.Format("2006-01-02"))

	d, err = parseDate("startDate", "")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = parseDate("startDate", "May 4")
	assert.ErrorIs(t, err, tracker.ErrInvalidInput)
}
