package tracker

import "strings"

func updateIssueStatus(tx *txn, issueID string, to Status) (Issue, error) {
	if !IsValidStatus(to) {
		return Issue{}, invalid("status", "unknown value %q", to)
	}
	i := tx.snap.issueIndex(issueID)
	if i < 0 {
		return Issue{}, notFound(KindIssue, issueID)
	}
	cur := tx.snap.Issues[i]
	if tx.opts.StrictTransitions {
		if err := ValidateTransition(cur.Status, to); err != nil {
			return Issue{}, err
		}
	}
	next := releaseFromCompletedSprint(tx.snap, withStatus(cur, to, tx.now))
	tx.put(i, next)
	return next, nil
}

// updateIssue replaces the mutable fields of an issue. Identity, key, project
// and comments always come from the stored issue.
func updateIssue(tx *txn, in Issue) (Issue, error) {
	i := tx.snap.issueIndex(in.ID)
	if i < 0 {
		return Issue{}, notFound(KindIssue, in.ID)
	}
	cur := tx.snap.Issues[i]

	next := cur
	next.Title = strings.TrimSpace(in.Title)
	next.Description = trimmedOrNil(in.Description)
	next.Status = in.Status
	next.Priority = in.Priority
	next.Type = in.Type
	next.StoryPoints = in.StoryPoints
	next.SprintID = cloneStrPtr(in.SprintID)
	next.ParentID = cloneStrPtr(in.ParentID)
	next.UpdatedAt = tx.now

	if err := validateFields(next); err != nil {
		return Issue{}, err
	}
	if tx.opts.StrictTransitions {
		if err := ValidateTransition(cur.Status, next.Status); err != nil {
			return Issue{}, err
		}
	}
	if cur.Type == TypeEpic && next.Type != TypeEpic && len(tx.snap.Children(cur.ID)) > 0 {
		return Issue{}, invariant("epic %s still has children", cur.Key)
	}
	if err := checkParent(tx.snap, next, next.ParentID); err != nil {
		return Issue{}, err
	}
	if !sameRef(cur.SprintID, next.SprintID) {
		if err := checkSprintLink(tx.snap, next.SprintID); err != nil {
			return Issue{}, err
		}
		// A sprint move without an explicit status change follows the
		// membership rules.
		if next.Status == cur.Status {
			if next.SprintID != nil {
				next = attachToSprint(next, *next.SprintID, tx.now)
			} else {
				next = unlinkSprint(next, tx.now)
			}
		}
	}

	next = releaseFromCompletedSprint(tx.snap, next)
	tx.put(i, next)
	return next, nil
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
