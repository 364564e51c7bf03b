package tracker

import "regexp"

var projectKeyRe = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)

func IsValidProjectKey(key string) bool {
	return projectKeyRe.MatchString(key)
}

func IsValidType(t IssueType) bool {
	switch t {
	case TypeStory, TypeTask, TypeBug, TypeEpic:
		return true
	default:
		return false
	}
}

// canHaveParent reports whether issues of type t may reference an epic.
func canHaveParent(t IssueType) bool {
	return t != TypeEpic
}

// IsOrphan reports a non-epic issue still waiting to be filed under an epic.
func IsOrphan(is Issue) bool {
	return canHaveParent(is.Type) && is.ParentID == nil
}

// checkParent validates that parentID may become the parent of child.
func checkParent(s Snapshot, child Issue, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if !canHaveParent(child.Type) {
		return invalid("parentId", "must be empty for %s issues", TypeEpic)
	}
	if *parentID == child.ID && child.ID != "" {
		return invalid("parentId", "cannot reference the issue itself")
	}
	parent, ok := s.Issue(*parentID)
	if !ok {
		return notFound(KindIssue, *parentID)
	}
	if parent.Type != TypeEpic {
		return invariant("parent %s is a %s, not an %s", parent.Key, parent.Type, TypeEpic)
	}
	if parent.ProjectID != child.ProjectID {
		return invariant("parent %s belongs to another project", parent.Key)
	}
	return nil
}

// checkSprintLink validates that the issue may be linked to sprintID.
func checkSprintLink(s Snapshot, sprintID *string) error {
	if sprintID == nil {
		return nil
	}
	sp, ok := s.Sprint(*sprintID)
	if !ok {
		return notFound(KindSprint, *sprintID)
	}
	if sp.Status == SprintCompleted {
		return invariant("sprint %q is completed", sp.Name)
	}
	return nil
}
