package tracker

// Entity store operations: creation with id assignment and key minting.

func createProject(tx *txn, in ProjectInput) (Project, error) {
	p, err := NewProject(tx.newID(), in)
	if err != nil {
		return Project{}, err
	}
	if _, taken := tx.snap.ProjectByKey(p.Key); taken {
		return Project{}, invariant("project key %s is already in use", p.Key)
	}
	tx.snap.Projects = append(tx.snap.Projects, p)
	return p, nil
}

func createSprint(tx *txn, in SprintInput) (Sprint, error) {
	sp, err := NewSprint(tx.newID(), in, tx.now)
	if err != nil {
		return Sprint{}, err
	}
	tx.snap.Sprints = append(tx.snap.Sprints, sp)
	return sp, nil
}

// createIssue mints KEY-N from the project's counter and bumps the counter in
// the same working copy, so keys never repeat or skip.
func createIssue(tx *txn, projectID string, in IssueInput) (Issue, error) {
	pi := tx.snap.projectIndex(projectID)
	if pi < 0 {
		return Issue{}, notFound(KindProject, projectID)
	}
	p := tx.snap.Projects[pi]

	is, err := NewIssue(tx.newID(), p, in, tx.now)
	if err != nil {
		return Issue{}, err
	}
	if err := checkParent(tx.snap, is, is.ParentID); err != nil {
		return Issue{}, err
	}
	if err := checkSprintLink(tx.snap, is.SprintID); err != nil {
		return Issue{}, err
	}

	p.IssueCount++
	tx.snap.Projects[pi] = p
	tx.snap.Issues = append(tx.snap.Issues, is)
	tx.touchParent(is.ParentID)
	return is, nil
}

func addComment(tx *txn, author Author, issueID, content string) (Comment, error) {
	i := tx.snap.issueIndex(issueID)
	if i < 0 {
		return Comment{}, notFound(KindIssue, issueID)
	}
	c, err := NewComment(tx.newID(), issueID, author, content, tx.now)
	if err != nil {
		return Comment{}, err
	}
	is := tx.snap.Issues[i]
	comments := make([]Comment, 0, len(is.Comments)+1)
	comments = append(comments, is.Comments...)
	is.Comments = append(comments, c)
	tx.snap.Issues[i] = is
	return c, nil
}

// deleteProject removes the project and all of its issues. Every epic touched
// here is removed too, so the consistency pass has nothing to settle.
func deleteProject(tx *txn, projectID string) ([]string, error) {
	pi := tx.snap.projectIndex(projectID)
	if pi < 0 {
		return nil, notFound(KindProject, projectID)
	}
	tx.snap.Projects = append(tx.snap.Projects[:pi], tx.snap.Projects[pi+1:]...)
	ids := tx.removeIssues(func(is Issue) bool { return is.ProjectID == projectID })
	return ids, nil
}
