package tracker

import "time"

// RecomputeEpicCompletion runs the epic completion rule for the parent of the
// issue identified by triggerID. When every child of that parent is DONE and
// the parent is an EPIC not yet DONE, the parent is forced to DONE. Otherwise
// s is returned unchanged.
//
// Completion is one-directional: reopening a child never reopens the epic.
func RecomputeEpicCompletion(s Snapshot, triggerID string, now time.Time) Snapshot {
	trigger, ok := s.Issue(triggerID)
	if !ok || trigger.ParentID == nil {
		return s
	}
	return recomputeInvariants(s, now, false, *trigger.ParentID)
}

// recomputeInvariants settles every epic in epicIDs against its current
// children. It is the single consistency step run after each mutation.
func recomputeInvariants(s Snapshot, now time.Time, reopen bool, epicIDs ...string) Snapshot {
	out := s
	copied := false
	for _, id := range epicIDs {
		next, changed := settleEpic(out, id, now, reopen)
		if !changed {
			continue
		}
		if !copied {
			out = out.clone()
			copied = true
		}
		out.Issues[out.issueIndex(id)] = next
	}
	return out
}

// settleEpic returns the epic as it should look given its children, and
// whether that differs from what s holds.
func settleEpic(s Snapshot, epicID string, now time.Time, reopen bool) (Issue, bool) {
	epic, ok := s.Issue(epicID)
	if !ok || epic.Type != TypeEpic {
		return Issue{}, false
	}
	children := s.Children(epicID)
	if len(children) == 0 {
		return Issue{}, false
	}
	allDone := true
	for _, ch := range children {
		if ch.Status != StatusDone {
			allDone = false
			break
		}
	}
	switch {
	case allDone && epic.Status != StatusDone:
		return withStatus(epic, StatusDone, now), true
	case reopen && !allDone && epic.Status == StatusDone:
		return withStatus(epic, StatusInProgress, now), true
	}
	return Issue{}, false
}
