package tracker

import "time"

// The helpers below are the only places that set status and sprint links on
// an issue. Status updates, sprint lifecycle and bulk membership all go
// through them.

func withStatus(is Issue, st Status, now time.Time) Issue {
	is.Status = st
	is.UpdatedAt = now
	return is
}

// attachToSprint links the issue to sprintID and marks it SELECTED.
func attachToSprint(is Issue, sprintID string, now time.Time) Issue {
	is.SprintID = strPtr(sprintID)
	return withStatus(is, StatusSelected, now)
}

// detachToBacklog clears the sprint link and returns the issue to BACKLOG.
func detachToBacklog(is Issue, now time.Time) Issue {
	is.SprintID = nil
	return withStatus(is, StatusBacklog, now)
}

// unlinkSprint clears the sprint link; finished work keeps its DONE status.
func unlinkSprint(is Issue, now time.Time) Issue {
	if is.Status == StatusDone {
		is.SprintID = nil
		is.UpdatedAt = now
		return is
	}
	return detachToBacklog(is, now)
}

// releaseFromCompletedSprint drops the link to a completed sprint once the
// issue is no longer DONE. The reopened issue shows up in the backlog.
func releaseFromCompletedSprint(s Snapshot, is Issue) Issue {
	if is.Status == StatusDone || is.SprintID == nil {
		return is
	}
	if sp, ok := s.Sprint(*is.SprintID); ok && sp.Status == SprintCompleted {
		is.SprintID = nil
	}
	return is
}

func addToSprint(tx *txn, sprintID string, issueIDs []string) ([]Issue, error) {
	sp, ok := tx.snap.Sprint(sprintID)
	if !ok {
		return nil, notFound(KindSprint, sprintID)
	}
	if sp.Status == SprintCompleted {
		return nil, invariant("cannot add issues to completed sprint %q", sp.Name)
	}
	out := make([]Issue, 0, len(issueIDs))
	for _, id := range issueIDs {
		i := tx.snap.issueIndex(id)
		if i < 0 {
			return nil, notFound(KindIssue, id)
		}
		is := tx.snap.Issues[i]
		if !is.InSprint(sprintID) {
			is = attachToSprint(is, sprintID, tx.now)
			tx.put(i, is)
		}
		out = append(out, is)
	}
	return out, nil
}

func moveToBacklog(tx *txn, issueIDs []string) ([]Issue, error) {
	out := make([]Issue, 0, len(issueIDs))
	for _, id := range issueIDs {
		i := tx.snap.issueIndex(id)
		if i < 0 {
			return nil, notFound(KindIssue, id)
		}
		is := detachToBacklog(tx.snap.Issues[i], tx.now)
		tx.put(i, is)
		out = append(out, is)
	}
	return out, nil
}
