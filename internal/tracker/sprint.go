package tracker

import (
	"strings"
	"time"
)

// StartOptions optionally overrides a sprint's planned dates when it starts.
type StartOptions struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// AdjustForDrift shifts a sprint so it starts on today's date while keeping
// its planned duration. It returns ok=false when no shift is needed.
func AdjustForDrift(sp Sprint, today time.Time) (StartOptions, bool) {
	day := startOfDay(today.In(sp.StartDate.Location()))
	if startOfDay(sp.StartDate).Equal(day) {
		return StartOptions{}, false
	}
	start := day
	end := day.Add(sp.Duration())
	return StartOptions{StartDate: &start, EndDate: &end}, true
}

// startSprint activates the sprint, demotes any other ACTIVE sprint back to
// PLANNED and moves every linked issue to SELECTED.
func startSprint(tx *txn, sprintID string, opts StartOptions) (Sprint, error) {
	si := tx.snap.sprintIndex(sprintID)
	if si < 0 {
		return Sprint{}, notFound(KindSprint, sprintID)
	}
	sp := tx.snap.Sprints[si]
	if err := ValidateSprintTransition(sp.Status, SprintActive); err != nil {
		return Sprint{}, err
	}
	if opts.StartDate != nil {
		sp.StartDate = *opts.StartDate
	}
	if opts.EndDate != nil {
		sp.EndDate = *opts.EndDate
	}
	if sp.EndDate.Before(sp.StartDate) {
		return Sprint{}, invalid("endDate", "must not precede startDate")
	}

	for i := range tx.snap.Sprints {
		if i != si && tx.snap.Sprints[i].Status == SprintActive {
			tx.snap.Sprints[i].Status = SprintPlanned
		}
	}
	sp.Status = SprintActive
	tx.snap.Sprints[si] = sp

	for i, is := range tx.snap.Issues {
		if is.InSprint(sprintID) {
			tx.put(i, withStatus(is, StatusSelected, tx.now))
		}
	}
	return sp, nil
}

// completeSprint closes the sprint. Unfinished issues go back to the backlog;
// DONE issues keep their sprint link for velocity reporting.
func completeSprint(tx *txn, sprintID string) (Sprint, error) {
	si := tx.snap.sprintIndex(sprintID)
	if si < 0 {
		return Sprint{}, notFound(KindSprint, sprintID)
	}
	sp := tx.snap.Sprints[si]
	if err := ValidateSprintTransition(sp.Status, SprintCompleted); err != nil {
		return Sprint{}, err
	}
	sp.Status = SprintCompleted
	tx.snap.Sprints[si] = sp

	for i, is := range tx.snap.Issues {
		if is.InSprint(sprintID) && is.Status != StatusDone {
			tx.put(i, detachToBacklog(is, tx.now))
		}
	}
	return sp, nil
}

// deleteSprint removes the sprint and unlinks its issues without deleting them.
func deleteSprint(tx *txn, sprintID string) ([]Issue, error) {
	si := tx.snap.sprintIndex(sprintID)
	if si < 0 {
		return nil, notFound(KindSprint, sprintID)
	}
	tx.snap.Sprints = append(tx.snap.Sprints[:si], tx.snap.Sprints[si+1:]...)

	var unlinked []Issue
	for i, is := range tx.snap.Issues {
		if is.InSprint(sprintID) {
			next := unlinkSprint(is, tx.now)
			tx.put(i, next)
			unlinked = append(unlinked, next)
		}
	}
	return unlinked, nil
}

// updateSprint edits name, goal and dates. Status only moves through
// startSprint and completeSprint.
func updateSprint(tx *txn, in Sprint) (Sprint, error) {
	si := tx.snap.sprintIndex(in.ID)
	if si < 0 {
		return Sprint{}, notFound(KindSprint, in.ID)
	}
	cur := tx.snap.Sprints[si]
	if in.Status != "" && in.Status != cur.Status {
		return Sprint{}, invariant("sprint status changes only through start or complete")
	}
	next := cur
	next.Name = strings.TrimSpace(in.Name)
	next.Goal = trimmedOrNil(in.Goal)
	if next.Name == "" {
		return Sprint{}, invalid("name", "is required")
	}
	if !in.StartDate.IsZero() {
		next.StartDate = in.StartDate
	}
	if !in.EndDate.IsZero() {
		next.EndDate = in.EndDate
	}
	if cur.Status == SprintCompleted && (!next.StartDate.Equal(cur.StartDate) || !next.EndDate.Equal(cur.EndDate)) {
		return Sprint{}, invariant("dates of completed sprint %q are fixed", cur.Name)
	}
	if next.EndDate.Before(next.StartDate) {
		return Sprint{}, invalid("endDate", "must not precede startDate")
	}
	tx.snap.Sprints[si] = next
	return next, nil
}
