package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/satyaki-up/sprintboard/internal/tracker"
)

// resolveProject accepts a project key, falling back to the configured
// default project when key is empty.
func resolveProject(snap tracker.Snapshot, key string) (tracker.Project, error) {
	if strings.TrimSpace(key) == "" {
		key = app.cfg.Project
	}
	if strings.TrimSpace(key) == "" {
		return tracker.Project{}, &tracker.ValidationError{Field: "project", Reason: "is required (pass --project or set project in " + configName() + ")"}
	}
	if p, ok := snap.ProjectByKey(key); ok {
		return p, nil
	}
	if p, ok := snap.Project(key); ok {
		return p, nil
	}
	return tracker.Project{}, &tracker.NotFoundError{Kind: tracker.KindProject, ID: key}
}

// resolveIssue accepts an issue key such as WEB-3 or a raw id.
func resolveIssue(snap tracker.Snapshot, ref string) (tracker.Issue, error) {
	if is, ok := snap.IssueByKey(ref); ok {
		return is, nil
	}
	if is, ok := snap.Issue(ref); ok {
		return is, nil
	}
	return tracker.Issue{}, &tracker.NotFoundError{Kind: tracker.KindIssue, ID: ref}
}

func resolveIssues(snap tracker.Snapshot, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		is, err := resolveIssue(snap, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, is.ID)
	}
	return ids, nil
}

// resolveSprint accepts a sprint id or a unique, case-insensitive name.
func resolveSprint(snap tracker.Snapshot, ref string) (tracker.Sprint, error) {
	if sp, ok := snap.Sprint(ref); ok {
		return sp, nil
	}
	var matches []tracker.Sprint
	for _, sp := range snap.Sprints {
		if strings.EqualFold(sp.Name, strings.TrimSpace(ref)) {
			matches = append(matches, sp)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return tracker.Sprint{}, &tracker.NotFoundError{Kind: tracker.KindSprint, ID: ref}
	default:
		return tracker.Sprint{}, &tracker.ValidationError{Field: "sprint", Reason: fmt.Sprintf("%q matches %d sprints; use the id", ref, len(matches))}
	}
}

// activeOrNamed returns the named sprint, or the active one when ref is empty.
func activeOrNamed(snap tracker.Snapshot, ref string) (tracker.Sprint, error) {
	if strings.TrimSpace(ref) != "" {
		return resolveSprint(snap, ref)
	}
	if sp, ok := snap.ActiveSprint(); ok {
		return sp, nil
	}
	return tracker.Sprint{}, &tracker.NotFoundError{Kind: tracker.KindSprint, ID: "active"}
}

func configName() string {
	if app.cfg != nil && app.cfg.Path != "" {
		return app.cfg.Path
	}
	return ".sprintboard.yaml"
}

func parseDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return nil, &tracker.ValidationError{Field: field, Reason: "must be YYYY-MM-DD"}
	}
	return &t, nil
}

func optional(value string, set bool) *string {
	if !set {
		return nil
	}
	return &value
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func sprintName(snap tracker.Snapshot, id *string) string {
	if id == nil {
		return "backlog"
	}
	if sp, ok := snap.Sprint(*id); ok {
		return sp.Name
	}
	return *id
}

func issueKey(snap tracker.Snapshot, id *string) string {
	if id == nil {
		return "-"
	}
	if is, ok := snap.Issue(*id); ok {
		return is.Key
	}
	return *id
}

func printIssueLine(snap tracker.Snapshot, is tracker.Issue) {
	fmt.Printf("%s\t%s\t%s\t%s\t%dpt\t%s\t%s\n",
		is.Key, is.Type, is.Status, is.Priority, is.StoryPoints, sprintName(snap, is.SprintID), is.Title)
}

func printIssue(snap tracker.Snapshot, is tracker.Issue) {
	fmt.Printf("key: %s\n", is.Key)
	fmt.Printf("id: %s\n", is.ID)
	fmt.Printf("title: %s\n", is.Title)
	fmt.Printf("type: %s\n", is.Type)
	fmt.Printf("status: %s\n", is.Status)
	fmt.Printf("priority: %s\n", is.Priority)
	fmt.Printf("points: %d\n", is.StoryPoints)
	fmt.Printf("sprint: %s\n", sprintName(snap, is.SprintID))
	fmt.Printf("parent: %s\n", issueKey(snap, is.ParentID))
	if is.Description != nil {
		fmt.Printf("description: %s\n", *is.Description)
	}
	fmt.Printf("updated: %s (%s)\n", is.UpdatedAt.Format(time.RFC3339), ago(is.UpdatedAt))
	for _, c := range is.Comments {
		fmt.Printf("  [%s] %s: %s\n", ago(c.CreatedAt), c.UserName, c.Content)
	}
}

func printSprint(sp tracker.Sprint) {
	goal := deref(sp.Goal)
	if goal != "" {
		goal = "\t" + goal
	}
	fmt.Printf("%s\t%s\t%s..%s\t%s%s\n", sp.ID, sp.Status,
		sp.StartDate.Format(time.DateOnly), sp.EndDate.Format(time.DateOnly), sp.Name, goal)
}
