package tracker

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTitle          = "Untitled"
	DefaultPriority       = PriorityMedium
	DefaultType           = TypeTask
	DefaultStatus         = StatusBacklog
	DefaultStoryPoints    = 0
	DefaultSprintDuration = 14 * 24 * time.Hour
)

type ProjectInput struct {
	Key         string
	Name        string
	Description string
}

type SprintInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Goal      *string
}

// IssueInput carries the caller-supplied fields for a new issue. A nil field
// takes its default.
type IssueInput struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	Type        *IssueType
	StoryPoints *int
	SprintID    *string
	ParentID    *string
}

func NewProject(id string, in ProjectInput) (Project, error) {
	key := strings.ToUpper(strings.TrimSpace(in.Key))
	name := strings.TrimSpace(in.Name)
	if !IsValidProjectKey(key) {
		return Project{}, invalid("key", "must be 2-10 uppercase alphanumeric chars starting with a letter")
	}
	if name == "" {
		return Project{}, invalid("name", "is required")
	}
	return Project{
		ID:          id,
		Key:         key,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		IssueCount:  0,
	}, nil
}

// NewSprint builds a PLANNED sprint. A zero start date means today; a zero
// end date means DefaultSprintDuration after the start.
func NewSprint(id string, in SprintInput, now time.Time) (Sprint, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Sprint{}, invalid("name", "is required")
	}
	start := in.StartDate
	if start.IsZero() {
		start = startOfDay(now)
	}
	end := in.EndDate
	if end.IsZero() {
		end = start.Add(DefaultSprintDuration)
	}
	if end.Before(start) {
		return Sprint{}, invalid("endDate", "must not precede startDate")
	}
	return Sprint{
		ID:        id,
		Name:      name,
		StartDate: start,
		EndDate:   end,
		Status:    SprintPlanned,
		Goal:      trimmedOrNil(in.Goal),
	}, nil
}

// NewIssue builds an issue for project p with every default spelled out.
// The key is minted from the project's counter; the caller is responsible for
// storing the incremented counter in the same step.
func NewIssue(id string, p Project, in IssueInput, now time.Time) (Issue, error) {
	is := Issue{
		ID:          id,
		Key:         mintKey(p),
		Title:       DefaultTitle,
		Description: trimmedOrNil(in.Description),
		Status:      DefaultStatus,
		Priority:    DefaultPriority,
		Type:        DefaultType,
		StoryPoints: DefaultStoryPoints,
		SprintID:    cloneStrPtr(in.SprintID),
		ProjectID:   p.ID,
		ParentID:    cloneStrPtr(in.ParentID),
		UpdatedAt:   now,
		Comments:    []Comment{},
	}
	if in.Title != nil {
		is.Title = strings.TrimSpace(*in.Title)
	}
	if in.Type != nil {
		is.Type = *in.Type
	}
	if in.Priority != nil {
		is.Priority = *in.Priority
	}
	if in.StoryPoints != nil {
		is.StoryPoints = *in.StoryPoints
	}
	switch {
	case in.Status != nil:
		is.Status = *in.Status
	case in.SprintID != nil:
		is.Status = StatusSelected
	}
	if err := validateFields(is); err != nil {
		return Issue{}, err
	}
	return is, nil
}

func NewComment(id, issueID string, author Author, content string, now time.Time) (Comment, error) {
	if strings.TrimSpace(author.ID) == "" {
		return Comment{}, invalid("userId", "is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, invalid("content", "is required")
	}
	name := strings.TrimSpace(author.Name)
	if name == "" {
		name = author.ID
	}
	return Comment{
		ID:        id,
		IssueID:   issueID,
		UserID:    author.ID,
		UserName:  name,
		Content:   content,
		CreatedAt: now,
	}, nil
}

// validateFields checks the issue on its own, without looking at references.
func validateFields(is Issue) error {
	if strings.TrimSpace(is.Title) == "" {
		return invalid("title", "is required")
	}
	if !IsValidStatus(is.Status) {
		return invalid("status", "unknown value %q", is.Status)
	}
	if !IsValidPriority(is.Priority) {
		return invalid("priority", "unknown value %q", is.Priority)
	}
	if !IsValidType(is.Type) {
		return invalid("type", "unknown value %q", is.Type)
	}
	if is.StoryPoints < 0 {
		return invalid("storyPoints", "must not be negative")
	}
	if is.Type == TypeEpic && is.ParentID != nil {
		return invalid("parentId", "must be empty for %s issues", TypeEpic)
	}
	return nil
}

func mintKey(p Project) string {
	return p.Key + "-" + strconv.Itoa(p.IssueCount+1)
}

func trimmedOrNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
