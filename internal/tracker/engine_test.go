package tracker_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satyaki-up/sprintboard/internal/tracker"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t   *testing.T
	ctx context.Context
	eng *tracker.Engine
	now time.Time
}

func newFixture(t *testing.T, opts ...tracker.Option) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), now: epoch}
	seq := 0
	base := []tracker.Option{
		tracker.WithClock(func() time.Time { return f.now }),
		tracker.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	}
	f.eng = tracker.NewEngine(tracker.Snapshot{}, append(base, opts...)...)
	return f
}

func (f *fixture) tick() { f.now = f.now.Add(time.Minute) }

func (f *fixture) project(key string) tracker.Project {
	f.t.Helper()
	p, err := f.eng.CreateProject(f.ctx, tracker.ProjectInput{Key: key, Name: key + " project"})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) sprint(name string) tracker.Sprint {
	f.t.Helper()
	sp, err := f.eng.CreateSprint(f.ctx, tracker.SprintInput{Name: name})
	require.NoError(f.t, err)
	return sp
}

func (f *fixture) epic(p tracker.Project, title string) tracker.Issue {
	f.t.Helper()
	typ := tracker.TypeEpic
	is, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{Title: &title, Type: &typ})
	require.NoError(f.t, err)
	return is
}

func (f *fixture) child(p tracker.Project, epic tracker.Issue, title string, st tracker.Status) tracker.Issue {
	f.t.Helper()
	is, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{Title: &title, ParentID: &epic.ID, Status: &st})
	require.NoError(f.t, err)
	return is
}

func (f *fixture) inSprint(p tracker.Project, sp tracker.Sprint, title string, st tracker.Status) tracker.Issue {
	f.t.Helper()
	is, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{Title: &title, SprintID: &sp.ID, Status: &st})
	require.NoError(f.t, err)
	return is
}

func (f *fixture) issue(id string) tracker.Issue {
	f.t.Helper()
	is, ok := f.eng.Snapshot().Issue(id)
	require.True(f.t, ok, "issue %s missing", id)
	return is
}

func (f *fixture) sprintByID(id string) tracker.Sprint {
	f.t.Helper()
	sp, ok := f.eng.Snapshot().Sprint(id)
	require.True(f.t, ok, "sprint %s missing", id)
	return sp
}

func ptr[T any](v T) *T { return &v }

func TestUpdateStatusCompletesEpicWhenLastChildDone(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	e1 := f.epic(p, "E1")
	// B goes in first so that A arriving DONE leaves an open sibling.
	b := f.child(p, e1, "B", tracker.StatusInProgress)
	f.child(p, e1, "A", tracker.StatusDone)
	require.Equal(t, tracker.StatusBacklog, f.issue(e1.ID).Status)

	f.tick()
	updated, err := f.eng.UpdateIssueStatus(f.ctx, b.ID, tracker.StatusDone)
	require.NoError(t, err)

	assert.Equal(t, tracker.StatusDone, updated.Status)
	assert.Equal(t, f.now, updated.UpdatedAt)
	epic := f.issue(e1.ID)
	assert.Equal(t, tracker.StatusDone, epic.Status)
	assert.Equal(t, f.now, epic.UpdatedAt)
}

func TestEpicCompletionIsOneDirectionalByDefault(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	e := f.epic(p, "E")
	a := f.child(p, e, "A", tracker.StatusInProgress)
	_, err := f.eng.UpdateIssueStatus(f.ctx, a.ID, tracker.StatusDone)
	require.NoError(t, err)
	require.Equal(t, tracker.StatusDone, f.issue(e.ID).Status)

	_, err = f.eng.UpdateIssueStatus(f.ctx, a.ID, tracker.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusDone, f.issue(e.ID).Status)
}

func TestReopenEpicsOption(t *testing.T) {
	f := newFixture(t, tracker.WithOptions(tracker.Options{ReopenEpics: true}))
	p := f.project("WEB")
	e := f.epic(p, "E")
	a := f.child(p, e, "A", tracker.StatusInProgress)
	_, err := f.eng.UpdateIssueStatus(f.ctx, a.ID, tracker.StatusDone)
	require.NoError(t, err)
	require.Equal(t, tracker.StatusDone, f.issue(e.ID).Status)

	_, err = f.eng.UpdateIssueStatus(f.ctx, a.ID, tracker.StatusInReview)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusInProgress, f.issue(e.ID).Status)
}

func TestEpicWithoutChildrenIsNotCompleted(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	e := f.epic(p, "Lonely")
	orphan, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{Status: ptr(tracker.StatusDone)})
	require.NoError(t, err)

	_, err = f.eng.UpdateIssueStatus(f.ctx, orphan.ID, tracker.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusBacklog, f.issue(e.ID).Status)
	assert.True(t, tracker.IsOrphan(f.issue(orphan.ID)))
}

func TestStartSprintDemotesActiveAndSelectsIssues(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	s1 := f.sprint("S1")
	s2 := f.sprint("S2")
	_, err := f.eng.StartSprint(f.ctx, s2.ID, tracker.StartOptions{})
	require.NoError(t, err)
	x := f.inSprint(p, s1, "X", tracker.StatusInProgress)
	other := f.inSprint(p, s2, "Other", tracker.StatusInReview)

	f.tick()
	started, err := f.eng.StartSprint(f.ctx, s1.ID, tracker.StartOptions{})
	require.NoError(t, err)

	assert.Equal(t, tracker.SprintActive, started.Status)
	assert.Equal(t, tracker.SprintPlanned, f.sprintByID(s2.ID).Status)
	assert.Equal(t, tracker.SprintActive, f.sprintByID(s1.ID).Status)
	assert.Equal(t, tracker.StatusSelected, f.issue(x.ID).Status)
	assert.Equal(t, f.now, f.issue(x.ID).UpdatedAt)
	assert.Equal(t, tracker.StatusInReview, f.issue(other.ID).Status)
}

func TestStartSprintAdoptsOverriddenDates(t *testing.T) {
	f := newFixture(t)
	sp := f.sprint("S1")
	start := epoch.AddDate(0, 0, 3)
	end := start.AddDate(0, 0, 7)

	started, err := f.eng.StartSprint(f.ctx, sp.ID, tracker.StartOptions{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, start, started.StartDate)
	assert.Equal(t, end, started.EndDate)

	_, err = f.eng.StartSprint(f.ctx, sp.ID, tracker.StartOptions{})
	assert.ErrorIs(t, err, tracker.ErrInvalidStateTransition)
}

func TestCompleteSprintSplitsDoneAndUnfinished(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	s1 := f.sprint("S1")
	_, err := f.eng.StartSprint(f.ctx, s1.ID, tracker.StartOptions{})
	require.NoError(t, err)
	x := f.inSprint(p, s1, "X", tracker.StatusDone)
	y := f.inSprint(p, s1, "Y", tracker.StatusInProgress)

	done, err := f.eng.CompleteSprint(f.ctx, s1.ID)
	require.NoError(t, err)

	assert.Equal(t, tracker.SprintCompleted, done.Status)
	require.NotNil(t, f.issue(x.ID).SprintID)
	assert.Equal(t, s1.ID, *f.issue(x.ID).SprintID)
	assert.Equal(t, tracker.StatusDone, f.issue(x.ID).Status)
	assert.Nil(t, f.issue(y.ID).SprintID)
	assert.Equal(t, tracker.StatusBacklog, f.issue(y.ID).Status)

	_, err = f.eng.CompleteSprint(f.ctx, s1.ID)
	assert.ErrorIs(t, err, tracker.ErrInvalidStateTransition)
}

func TestCompletePlannedSprintIsRejected(t *testing.T) {
	f := newFixture(t)
	sp := f.sprint("S1")
	_, err := f.eng.CompleteSprint(f.ctx, sp.ID)
	assert.ErrorIs(t, err, tracker.ErrInvalidStateTransition)
}

func TestSprintCommandsOnMissingSprint(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.StartSprint(f.ctx, "nope", tracker.StartOptions{})
	var nf *tracker.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, tracker.KindSprint, nf.Kind)
	assert.Equal(t, "nope", nf.ID)

	_, err = f.eng.CompleteSprint(f.ctx, "nope")
	assert.ErrorIs(t, err, tracker.ErrNotFound)
	_, err = f.eng.DeleteSprint(f.ctx, "nope")
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestDeleteSprintUnlinksIssues(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	sp := f.sprint("S1")
	done := f.inSprint(p, sp, "done", tracker.StatusDone)
	open := f.inSprint(p, sp, "open", tracker.StatusInReview)

	unlinked, err := f.eng.DeleteSprint(f.ctx, sp.ID)
	require.NoError(t, err)
	assert.Len(t, unlinked, 2)

	_, ok := f.eng.Snapshot().Sprint(sp.ID)
	assert.False(t, ok)
	assert.Nil(t, f.issue(done.ID).SprintID)
	assert.Equal(t, tracker.StatusDone, f.issue(done.ID).Status)
	assert.Nil(t, f.issue(open.ID).SprintID)
	assert.Equal(t, tracker.StatusBacklog, f.issue(open.ID).Status)
}

func TestDeleteEpicCascadesToChildren(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	e2 := f.epic(p, "E2")
	c := f.child(p, e2, "C", tracker.StatusBacklog)
	d := f.child(p, e2, "D", tracker.StatusInProgress)
	other := f.epic(p, "Other")
	keep := f.child(p, other, "Keep", tracker.StatusBacklog)

	removed, err := f.eng.DeleteIssue(f.ctx, e2.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{e2.ID, c.ID, d.ID}, removed)

	snap := f.eng.Snapshot()
	for _, id := range []string{e2.ID, c.ID, d.ID} {
		_, ok := snap.Issue(id)
		assert.False(t, ok, "issue %s should be gone", id)
	}
	assert.Equal(t, keep, f.issue(keep.ID))
	assert.Equal(t, tracker.StatusBacklog, f.issue(other.ID).Status)
	assert.Len(t, snap.Issues, 2)
}

func TestDeleteLastOpenChildCompletesEpic(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	e3 := f.epic(p, "E3")
	r := f.child(p, e3, "R", tracker.StatusInProgress)
	f.child(p, e3, "P", tracker.StatusDone)
	f.child(p, e3, "Q", tracker.StatusDone)
	require.Equal(t, tracker.StatusBacklog, f.issue(e3.ID).Status)

	_, err := f.eng.DeleteIssue(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusDone, f.issue(e3.ID).Status)
}

func TestDeleteMissingIssue(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.DeleteIssue(f.ctx, "ghost")
	var nf *tracker.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, tracker.KindIssue, nf.Kind)
}

func TestCreateIssueMintsSequentialKeys(t *testing.T) {
	f := newFixture(t)
	p := f.project("PROJ")
	for i := 0; i < 2; i++ {
		_, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
		require.NoError(t, err)
	}
	stored, _ := f.eng.Snapshot().Project(p.ID)
	require.Equal(t, 2, stored.IssueCount)

	third, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)
	fourth, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)

	assert.Equal(t, "PROJ-3", third.Key)
	assert.Equal(t, "PROJ-4", fourth.Key)
	stored, _ = f.eng.Snapshot().Project(p.ID)
	assert.Equal(t, 4, stored.IssueCount)
}

func TestKeysAreNotReusedAfterDelete(t *testing.T) {
	f := newFixture(t)
	p := f.project("OPS")
	first, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)
	_, err = f.eng.DeleteIssue(f.ctx, first.ID)
	require.NoError(t, err)

	next, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)
	assert.Equal(t, "OPS-2", next.Key)
}

func TestCreateIssueDefaults(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	is, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)

	assert.Equal(t, tracker.DefaultTitle, is.Title)
	assert.Equal(t, tracker.PriorityMedium, is.Priority)
	assert.Equal(t, tracker.TypeTask, is.Type)
	assert.Equal(t, tracker.StatusBacklog, is.Status)
	assert.Equal(t, 0, is.StoryPoints)
	assert.Nil(t, is.SprintID)
	assert.Nil(t, is.ParentID)
	assert.Equal(t, p.ID, is.ProjectID)
	assert.Equal(t, epoch, is.UpdatedAt)
	assert.Empty(t, is.Comments)
}

func TestCreateIssueInSprintIsSelected(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	sp := f.sprint("S1")
	is, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{SprintID: &sp.ID})
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusSelected, is.Status)
}

func TestCreateIssueFailures(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	other := f.project("API")
	epic := f.epic(p, "E")
	task, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)
	done := f.sprint("Done sprint")
	_, err = f.eng.StartSprint(f.ctx, done.ID, tracker.StartOptions{})
	require.NoError(t, err)
	_, err = f.eng.CompleteSprint(f.ctx, done.ID)
	require.NoError(t, err)

	tests := []struct {
		name      string
		projectID string
		in        tracker.IssueInput
		want      error
	}{
		{"missing project", "nope", tracker.IssueInput{}, tracker.ErrNotFound},
		{"blank title", p.ID, tracker.IssueInput{Title: ptr("  ")}, tracker.ErrInvalidInput},
		{"negative points", p.ID, tracker.IssueInput{StoryPoints: ptr(-1)}, tracker.ErrInvalidInput},
		{"unknown status", p.ID, tracker.IssueInput{Status: ptr(tracker.Status("LATER"))}, tracker.ErrInvalidInput},
		{"epic with parent", p.ID, tracker.IssueInput{Type: ptr(tracker.TypeEpic), ParentID: &epic.ID}, tracker.ErrInvalidInput},
		{"missing parent", p.ID, tracker.IssueInput{ParentID: ptr("ghost")}, tracker.ErrNotFound},
		{"parent not epic", p.ID, tracker.IssueInput{ParentID: &task.ID}, tracker.ErrInvariantViolation},
		{"parent in other project", other.ID, tracker.IssueInput{ParentID: &epic.ID}, tracker.ErrInvariantViolation},
		{"completed sprint", p.ID, tracker.IssueInput{SprintID: &done.ID}, tracker.ErrInvariantViolation},
		{"missing sprint", p.ID, tracker.IssueInput{SprintID: ptr("ghost")}, tracker.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.eng.Snapshot()
			_, err := f.eng.CreateIssue(f.ctx, tt.projectID, tt.in)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, f.eng.Snapshot())
		})
	}
}

func TestCreateProjectValidation(t *testing.T) {
	f := newFixture(t)
	f.project("WEB")

	_, err := f.eng.CreateProject(f.ctx, tracker.ProjectInput{Key: "web", Name: "dup"})
	assert.ErrorIs(t, err, tracker.ErrInvariantViolation)
	_, err = f.eng.CreateProject(f.ctx, tracker.ProjectInput{Key: "1AB", Name: "digits"})
	assert.ErrorIs(t, err, tracker.ErrInvalidInput)
	_, err = f.eng.CreateProject(f.ctx, tracker.ProjectInput{Key: "NEW"})
	var ve *tracker.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)
}

func TestDeleteProjectRemovesItsIssuesOnly(t *testing.T) {
	f := newFixture(t)
	web := f.project("WEB")
	api := f.project("API")
	e := f.epic(web, "E")
	f.child(web, e, "C", tracker.StatusDone)
	keep, err := f.eng.CreateIssue(f.ctx, api.ID, tracker.IssueInput{})
	require.NoError(t, err)
	sp := f.sprint("S1")

	removed, err := f.eng.DeleteProject(f.ctx, web.ID)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	snap := f.eng.Snapshot()
	_, ok := snap.Project(web.ID)
	assert.False(t, ok)
	assert.Equal(t, []tracker.Issue{keep}, snap.Issues)
	_, ok = snap.Sprint(sp.ID)
	assert.True(t, ok)

	_, err = f.eng.DeleteProject(f.ctx, web.ID)
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestUpdateIssueReplacesMutableFields(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	e := f.epic(p, "E")
	is, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)

	edit := is
	edit.Title = "  Ship login  "
	edit.Priority = tracker.PriorityHigh
	edit.Type = tracker.TypeBug
	edit.StoryPoints = 5
	edit.ParentID = &e.ID
	edit.Key = "HIJACK-1"
	edit.ProjectID = "other"
	f.tick()
	updated, err := f.eng.UpdateIssue(f.ctx, edit)
	require.NoError(t, err)

	assert.Equal(t, "Ship login", updated.Title)
	assert.Equal(t, tracker.PriorityHigh, updated.Priority)
	assert.Equal(t, tracker.TypeBug, updated.Type)
	assert.Equal(t, 5, updated.StoryPoints)
	assert.Equal(t, e.ID, *updated.ParentID)
	assert.Equal(t, is.Key, updated.Key)
	assert.Equal(t, p.ID, updated.ProjectID)
	assert.Equal(t, f.now, updated.UpdatedAt)
	assert.False(t, tracker.IsOrphan(updated))
}

func TestUpdateIssueStatusToDoneViaFullUpdateCompletesEpic(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	e := f.epic(p, "E")
	a := f.child(p, e, "A", tracker.StatusInReview)

	edit := a
	edit.Status = tracker.StatusDone
	_, err := f.eng.UpdateIssue(f.ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusDone, f.issue(e.ID).Status)
}

func TestReparentingSettlesOldEpic(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	oldEpic := f.epic(p, "Old")
	newEpic := f.epic(p, "New")
	f.child(p, oldEpic, "done", tracker.StatusDone)
	moving := f.child(p, oldEpic, "moving", tracker.StatusInProgress)
	f.child(p, newEpic, "open", tracker.StatusBacklog)

	edit := moving
	edit.ParentID = &newEpic.ID
	_, err := f.eng.UpdateIssue(f.ctx, edit)
	require.NoError(t, err)

	assert.Equal(t, tracker.StatusDone, f.issue(oldEpic.ID).Status)
	assert.Equal(t, tracker.StatusBacklog, f.issue(newEpic.ID).Status)
}

func TestUpdateIssueRejectsInvalidEdits(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	e := f.epic(p, "E")
	c := f.child(p, e, "C", tracker.StatusBacklog)

	demote := e
	demote.Type = tracker.TypeStory
	_, err := f.eng.UpdateIssue(f.ctx, demote)
	assert.ErrorIs(t, err, tracker.ErrInvariantViolation)

	parented := e
	parented.ParentID = &e.ID
	_, err = f.eng.UpdateIssue(f.ctx, parented)
	assert.ErrorIs(t, err, tracker.ErrInvalidInput)

	blank := c
	blank.Title = ""
	_, err = f.eng.UpdateIssue(f.ctx, blank)
	assert.ErrorIs(t, err, tracker.ErrInvalidInput)

	ghost := c
	ghost.ID = "ghost"
	_, err = f.eng.UpdateIssue(f.ctx, ghost)
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestUpdateIssueSprintMoveFollowsMembershipRules(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	sp := f.sprint("S1")
	is, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)

	edit := is
	edit.SprintID = &sp.ID
	moved, err := f.eng.UpdateIssue(f.ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusSelected, moved.Status)

	edit = moved
	edit.SprintID = nil
	back, err := f.eng.UpdateIssue(f.ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusBacklog, back.Status)
}

func TestUpdateIssueKeepsHistoricalSprintLink(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	sp := f.sprint("S1")
	_, err := f.eng.StartSprint(f.ctx, sp.ID, tracker.StartOptions{})
	require.NoError(t, err)
	done := f.inSprint(p, sp, "done", tracker.StatusDone)
	_, err = f.eng.CompleteSprint(f.ctx, sp.ID)
	require.NoError(t, err)

	edit := f.issue(done.ID)
	edit.Title = "renamed"
	_, err = f.eng.UpdateIssue(f.ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, sp.ID, *f.issue(done.ID).SprintID)
}

func TestReopenedIssueLeavesCompletedSprint(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	sp := f.sprint("S1")
	_, err := f.eng.StartSprint(f.ctx, sp.ID, tracker.StartOptions{})
	require.NoError(t, err)
	x := f.inSprint(p, sp, "X", tracker.StatusDone)
	y := f.inSprint(p, sp, "Y", tracker.StatusDone)
	_, err = f.eng.CompleteSprint(f.ctx, sp.ID)
	require.NoError(t, err)
	require.Equal(t, sp.ID, *f.issue(x.ID).SprintID)

	reopened, err := f.eng.UpdateIssueStatus(f.ctx, x.ID, tracker.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusInProgress, reopened.Status)
	assert.Nil(t, reopened.SprintID)

	edit := f.issue(y.ID)
	edit.Status = tracker.StatusInReview
	_, err = f.eng.UpdateIssue(f.ctx, edit)
	require.NoError(t, err)
	assert.Nil(t, f.issue(y.ID).SprintID)

	assert.ElementsMatch(t, []string{x.ID, y.ID}, ids(f.eng.Snapshot().Backlog(p.ID)))
	assert.Empty(t, f.eng.Snapshot().SprintIssues(sp.ID))
}

func TestDirectEpicEditIsResettled(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	sp := f.sprint("S1")
	e := f.epic(p, "E")
	f.child(p, e, "A", tracker.StatusDone)
	require.Equal(t, tracker.StatusDone, f.issue(e.ID).Status)

	added, err := f.eng.AddToSprint(f.ctx, sp.ID, e.ID)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, tracker.StatusDone, f.issue(e.ID).Status)

	_, err = f.eng.MoveToBacklog(f.ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusDone, f.issue(e.ID).Status)

	back, err := f.eng.UpdateIssueStatus(f.ctx, e.ID, tracker.StatusBacklog)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusDone, back.Status)
}

func TestStrictTransitions(t *testing.T) {
	f := newFixture(t, tracker.WithOptions(tracker.Options{StrictTransitions: true}))
	p := f.project("WEB")
	is, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)

	_, err = f.eng.UpdateIssueStatus(f.ctx, is.ID, tracker.StatusDone)
	assert.ErrorIs(t, err, tracker.ErrInvalidStateTransition)
	_, err = f.eng.UpdateIssueStatus(f.ctx, is.ID, tracker.StatusInProgress)
	require.NoError(t, err)
	_, err = f.eng.UpdateIssueStatus(f.ctx, is.ID, tracker.StatusDone)
	assert.NoError(t, err)
}

func TestLenientTransitionsAllowAnyMove(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	is, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)
	_, err = f.eng.UpdateIssueStatus(f.ctx, is.ID, tracker.StatusDone)
	assert.NoError(t, err)
	_, err = f.eng.UpdateIssueStatus(f.ctx, is.ID, tracker.Status("NOPE"))
	assert.ErrorIs(t, err, tracker.ErrInvalidInput)
}

func TestAddToSprintAndMoveToBacklog(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	sp := f.sprint("S1")
	a, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)
	b, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{Status: ptr(tracker.StatusInProgress)})
	require.NoError(t, err)

	added, err := f.eng.AddToSprint(f.ctx, sp.ID, a.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, added, 2)
	for _, is := range added {
		assert.Equal(t, tracker.StatusSelected, is.Status)
		assert.Equal(t, sp.ID, *is.SprintID)
	}
	assert.Len(t, f.eng.Snapshot().SprintIssues(sp.ID), 2)
	assert.Empty(t, f.eng.Snapshot().Backlog(p.ID))

	moved, err := f.eng.MoveToBacklog(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, moved[0].SprintID)
	assert.Equal(t, tracker.StatusBacklog, moved[0].Status)
	assert.Equal(t, []tracker.Issue{f.issue(a.ID)}, f.eng.Snapshot().Backlog(p.ID))

	_, err = f.eng.AddToSprint(f.ctx, sp.ID, "ghost")
	assert.ErrorIs(t, err, tracker.ErrNotFound)
	assert.Nil(t, f.issue(a.ID).SprintID, "failed bulk add must not apply partially")
}

func TestAddToCompletedSprintIsRejected(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	sp := f.sprint("S1")
	_, err := f.eng.StartSprint(f.ctx, sp.ID, tracker.StartOptions{})
	require.NoError(t, err)
	_, err = f.eng.CompleteSprint(f.ctx, sp.ID)
	require.NoError(t, err)
	is, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)

	_, err = f.eng.AddToSprint(f.ctx, sp.ID, is.ID)
	var ie *tracker.InvariantError
	require.ErrorAs(t, err, &ie)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	is, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{})
	require.NoError(t, err)
	before := f.eng.Snapshot()

	c, err := f.eng.AddComment(f.ctx, tracker.Author{ID: "u-1", Name: "Ada"}, is.ID, "  looks good ")
	require.NoError(t, err)
	assert.Equal(t, "looks good", c.Content)
	assert.Equal(t, "Ada", c.UserName)
	assert.Equal(t, is.ID, c.IssueID)
	assert.Equal(t, []tracker.Comment{c}, f.issue(is.ID).Comments)

	prev, _ := before.Issue(is.ID)
	assert.Empty(t, prev.Comments, "earlier snapshots must not change")

	_, err = f.eng.AddComment(f.ctx, tracker.Author{}, is.ID, "anonymous")
	assert.ErrorIs(t, err, tracker.ErrInvalidInput)
	_, err = f.eng.AddComment(f.ctx, tracker.Author{ID: "u-1"}, is.ID, " ")
	assert.ErrorIs(t, err, tracker.ErrInvalidInput)
	_, err = f.eng.AddComment(f.ctx, tracker.Author{ID: "u-1"}, "ghost", "hi")
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestUpdateSprint(t *testing.T) {
	f := newFixture(t)
	sp := f.sprint("S1")

	edit := sp
	edit.Name = "Sprint one"
	edit.Goal = ptr("Ship login")
	updated, err := f.eng.UpdateSprint(f.ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, "Sprint one", updated.Name)
	assert.Equal(t, "Ship login", *updated.Goal)

	edit.Status = tracker.SprintActive
	_, err = f.eng.UpdateSprint(f.ctx, edit)
	assert.ErrorIs(t, err, tracker.ErrInvariantViolation)

	edit = updated
	edit.EndDate = edit.StartDate.Add(-time.Hour)
	_, err = f.eng.UpdateSprint(f.ctx, edit)
	assert.ErrorIs(t, err, tracker.ErrInvalidInput)
}

func TestSubscribersSeeEveryCommit(t *testing.T) {
	f := newFixture(t)
	var versions []int64
	unsubscribe := f.eng.Subscribe(func(s tracker.Snapshot) { versions = append(versions, s.Version) })

	f.project("WEB")
	f.sprint("S1")
	_, err := f.eng.DeleteIssue(f.ctx, "ghost")
	require.Error(t, err)
	unsubscribe()
	f.sprint("S2")

	assert.Equal(t, []int64{1, 2}, versions)
}

func TestFailedCommandLeavesSnapshotUntouched(t *testing.T) {
	f := newFixture(t)
	p := f.project("WEB")
	before := f.eng.Snapshot()

	_, err := f.eng.CreateIssue(f.ctx, p.ID, tracker.IssueInput{Title: ptr("")})
	require.Error(t, err)
	assert.Equal(t, before, f.eng.Snapshot())
}
