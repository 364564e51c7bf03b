package tracker

import (
	"sort"
	"strings"
)

// Snapshot is one immutable, consistent view of every project, sprint and
// issue. Values handed out by the Engine are never mutated afterwards; every
// command builds a fresh copy. Pointer fields on entities are replaced, never
// written through.
type Snapshot struct {
	Version  int64     `json:"version"`
	Projects []Project `json:"projects"`
	Sprints  []Sprint  `json:"sprints"`
	Issues   []Issue   `json:"issues"`
}

// clone copies the collections so the result can be edited without touching s.
func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Version:  s.Version,
		Projects: append([]Project(nil), s.Projects...),
		Sprints:  append([]Sprint(nil), s.Sprints...),
		Issues:   append([]Issue(nil), s.Issues...),
	}
}

func (s Snapshot) projectIndex(id string) int {
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			return i
		}
	}
	return -1
}

func (s Snapshot) sprintIndex(id string) int {
	for i := range s.Sprints {
		if s.Sprints[i].ID == id {
			return i
		}
	}
	return -1
}

func (s Snapshot) issueIndex(id string) int {
	for i := range s.Issues {
		if s.Issues[i].ID == id {
			return i
		}
	}
	return -1
}

func (s Snapshot) Project(id string) (Project, bool) {
	if i := s.projectIndex(id); i >= 0 {
		return s.Projects[i], true
	}
	return Project{}, false
}

// ProjectByKey looks a project up by its key, case-insensitively.
func (s Snapshot) ProjectByKey(key string) (Project, bool) {
	key = strings.ToUpper(strings.TrimSpace(key))
	for _, p := range s.Projects {
		if p.Key == key {
			return p, true
		}
	}
	return Project{}, false
}

func (s Snapshot) Sprint(id string) (Sprint, bool) {
	if i := s.sprintIndex(id); i >= 0 {
		return s.Sprints[i], true
	}
	return Sprint{}, false
}

func (s Snapshot) Issue(id string) (Issue, bool) {
	if i := s.issueIndex(id); i >= 0 {
		return s.Issues[i], true
	}
	return Issue{}, false
}

// IssueByKey resolves a human-readable key such as "PROJ-3".
func (s Snapshot) IssueByKey(key string) (Issue, bool) {
	key = strings.ToUpper(strings.TrimSpace(key))
	for _, is := range s.Issues {
		if is.Key == key {
			return is, true
		}
	}
	return Issue{}, false
}

// ActiveSprint returns the single ACTIVE sprint, if any.
func (s Snapshot) ActiveSprint() (Sprint, bool) {
	for _, sp := range s.Sprints {
		if sp.Status == SprintActive {
			return sp, true
		}
	}
	return Sprint{}, false
}

func (s Snapshot) Children(parentID string) []Issue {
	return s.filter(func(is Issue) bool { return is.ChildOf(parentID) })
}

func (s Snapshot) ProjectIssues(projectID string) []Issue {
	return s.filter(func(is Issue) bool { return is.ProjectID == projectID })
}

func (s Snapshot) SprintIssues(sprintID string) []Issue {
	return s.filter(func(is Issue) bool { return is.InSprint(sprintID) })
}

// Backlog lists the project's unscheduled, unfinished issues.
func (s Snapshot) Backlog(projectID string) []Issue {
	return s.filter(func(is Issue) bool {
		return is.ProjectID == projectID && is.SprintID == nil && is.Status != StatusDone
	})
}

// Orphans lists non-epic issues of the project that have no epic yet.
func (s Snapshot) Orphans(projectID string) []Issue {
	return s.filter(func(is Issue) bool { return is.ProjectID == projectID && IsOrphan(is) })
}

// Board groups a sprint's issues into status columns, highest priority first.
func (s Snapshot) Board(sprintID string) []Column {
	byStatus := make(map[Status][]Issue, len(Statuses))
	for _, is := range s.SprintIssues(sprintID) {
		byStatus[is.Status] = append(byStatus[is.Status], is)
	}
	out := make([]Column, 0, len(Statuses))
	for _, st := range Statuses {
		col := byStatus[st]
		sort.SliceStable(col, func(i, j int) bool {
			return priorityRank(col[i].Priority) > priorityRank(col[j].Priority)
		})
		out = append(out, Column{Status: st, Issues: col})
	}
	return out
}

func (s Snapshot) EpicProgress(epicID string) (EpicProgress, error) {
	epic, ok := s.Issue(epicID)
	if !ok {
		return EpicProgress{}, notFound(KindIssue, epicID)
	}
	if epic.Type != TypeEpic {
		return EpicProgress{}, invalid("epicId", "%s is not an %s", epic.Key, TypeEpic)
	}
	p := EpicProgress{EpicID: epicID}
	for _, ch := range s.Children(epicID) {
		p.Total++
		p.TotalPoints += ch.StoryPoints
		if ch.Status == StatusDone {
			p.Done++
			p.DonePoints += ch.StoryPoints
		}
	}
	p.AllChildDone = p.Total > 0 && p.Done == p.Total
	return p, nil
}

func (s Snapshot) filter(keep func(Issue) bool) []Issue {
	var out []Issue
	for _, is := range s.Issues {
		if keep(is) {
			out = append(out, is)
		}
	}
	return out
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}
