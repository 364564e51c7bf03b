package tracker

import "time"

// txn is the working copy for one command. It owns snap exclusively, records
// which epics the command touched, and settles them once at the end.
type txn struct {
	snap  Snapshot
	now   time.Time
	newID func() string
	opts  Options

	epics []string
	seen  map[string]bool
}

func newTxn(base Snapshot, now time.Time, newID func() string, opts Options) *txn {
	return &txn{
		snap:  base.clone(),
		now:   now,
		newID: newID,
		opts:  opts,
		seen:  make(map[string]bool),
	}
}

// touchParent marks parentID for re-evaluation by the consistency pass.
func (tx *txn) touchParent(parentID *string) {
	if parentID == nil || tx.seen[*parentID] {
		return
	}
	tx.seen[*parentID] = true
	tx.epics = append(tx.epics, *parentID)
}

// put replaces the issue at index i and marks its parent as touched. An epic
// is touched itself, so a direct edit cannot leave it out of step with its
// children.
func (tx *txn) put(i int, is Issue) {
	tx.touchParent(tx.snap.Issues[i].ParentID)
	tx.snap.Issues[i] = is
	tx.touchParent(is.ParentID)
	if is.Type == TypeEpic {
		tx.touchParent(&is.ID)
	}
}

// removeIssues drops every issue for which drop returns true and marks the
// parents of the removed issues as touched.
func (tx *txn) removeIssues(drop func(Issue) bool) []string {
	var removed []string
	kept := tx.snap.Issues[:0]
	for _, is := range tx.snap.Issues {
		if drop(is) {
			removed = append(removed, is.ID)
			tx.touchParent(is.ParentID)
			continue
		}
		kept = append(kept, is)
	}
	tx.snap.Issues = kept
	return removed
}

func (tx *txn) settle() Snapshot {
	return recomputeInvariants(tx.snap, tx.now, tx.opts.ReopenEpics, tx.epics...)
}
