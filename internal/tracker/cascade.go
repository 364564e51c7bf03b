package tracker

// deleteIssue removes the issue and, for an epic, every child. The parent of
// the removed issue is touched so its remaining children are re-evaluated.
func deleteIssue(tx *txn, issueID string) ([]string, error) {
	if tx.snap.issueIndex(issueID) < 0 {
		return nil, notFound(KindIssue, issueID)
	}
	removed := tx.removeIssues(func(is Issue) bool {
		return is.ID == issueID || is.ChildOf(issueID)
	})
	return removed, nil
}
