package tracker

import "time"

type Status string

const (
	StatusBacklog    Status = "BACKLOG"
	StatusSelected   Status = "SELECTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusInReview   Status = "IN_REVIEW"
	StatusDone       Status = "DONE"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusBacklog, StatusSelected, StatusInProgress, StatusInReview, StatusDone}

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

type IssueType string

const (
	TypeStory IssueType = "STORY"
	TypeTask  IssueType = "TASK"
	TypeBug   IssueType = "BUG"
	TypeEpic  IssueType = "EPIC"
)

type SprintStatus string

const (
	SprintPlanned   SprintStatus = "PLANNED"
	SprintActive    SprintStatus = "ACTIVE"
	SprintCompleted SprintStatus = "COMPLETED"
)

type Project struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IssueCount  int    `json:"issue_count"`
}

type Sprint struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Status    SprintStatus `json:"status"`
	Goal      *string      `json:"goal,omitempty"`
}

type Issue struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	Type        IssueType `json:"type"`
	StoryPoints int       `json:"story_points"`
	SprintID    *string   `json:"sprint_id,omitempty"`
	ProjectID   string    `json:"project_id"`
	ParentID    *string   `json:"parent_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
	Comments    []Comment `json:"comments"`
}

// Comment is append-only; it is never edited once attached to its issue.
type Comment struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issue_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Author identifies the caller for comment authorship. It comes from the
// auth/session layer and is treated as read-only input.
type Author struct {
	ID   string
	Name string
}

// InSprint reports whether the issue is linked to sprintID.
func (is Issue) InSprint(sprintID string) bool {
	return is.SprintID != nil && *is.SprintID == sprintID
}

// ChildOf reports whether the issue's parent is parentID.
func (is Issue) ChildOf(parentID string) bool {
	return is.ParentID != nil && *is.ParentID == parentID
}

// Duration is the planned length of the sprint.
func (s Sprint) Duration() time.Duration {
	return s.EndDate.Sub(s.StartDate)
}

// EpicProgress summarizes an epic's children.
type EpicProgress struct {
	EpicID       string `json:"epic_id"`
	Total        int    `json:"total"`
	Done         int    `json:"done"`
	TotalPoints  int    `json:"total_points"`
	DonePoints   int    `json:"done_points"`
	AllChildDone bool   `json:"all_children_done"`
}

// Column is one status lane of a sprint board.
type Column struct {
	Status Status  `json:"status"`
	Issues []Issue `json:"issues"`
}

func strPtr(s string) *string {
	return &s
}

func cloneStrPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
