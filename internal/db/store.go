package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/satyaki-up/sprintboard/internal/tracker"
)

const busyRetryMaxElapsed = 5 * time.Second

// SnapshotStore persists whole tracker snapshots. Every Save rewrites the
// tables inside one transaction guarded by the meta version row.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) Load(ctx context.Context) (tracker.Snapshot, error) {
	var snap tracker.Snapshot
	err := s.retry(ctx, func() error {
		var err error
		snap, err = s.load(ctx)
		return err
	})
	return snap, err
}

// Save replaces the stored snapshot with next. It fails with
// tracker.ErrConflict when the stored version is not prev.Version.
func (s *SnapshotStore) Save(ctx context.Context, prev, next tracker.Snapshot) error {
	return s.retry(ctx, func() error {
		return s.save(ctx, prev, next)
	})
}

func (s *SnapshotStore) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = busyRetryMaxElapsed
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
}

func (s *SnapshotStore) load(ctx context.Context) (tracker.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tracker.Snapshot{}, err
	}
	defer tx.Rollback()

	var snap tracker.Snapshot
	if err := tx.QueryRowContext(ctx, `SELECT version FROM meta WHERE id = 1`).Scan(&snap.Version); err != nil {
		return tracker.Snapshot{}, fmt.Errorf("read version: %w", err)
	}
	if snap.Projects, err = loadProjects(ctx, tx); err != nil {
		return tracker.Snapshot{}, err
	}
	if snap.Sprints, err = loadSprints(ctx, tx); err != nil {
		return tracker.Snapshot{}, err
	}
	if snap.Issues, err = loadIssues(ctx, tx); err != nil {
		return tracker.Snapshot{}, err
	}
	if err := attachComments(ctx, tx, snap.Issues); err != nil {
		return tracker.Snapshot{}, err
	}
	return snap, nil
}

func (s *SnapshotStore) save(ctx context.Context, prev, next tracker.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE meta SET version = ? WHERE id = 1 AND version = ?`, next.Version, prev.Version)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: stale write; expected version %d", tracker.ErrConflict, prev.Version)
	}

	for _, stmt := range []string{"DELETE FROM comments", "DELETE FROM issues", "DELETE FROM sprints", "DELETE FROM projects"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear tables: %w", err)
		}
	}
	for i, p := range next.Projects {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projects(id, key, name, description, issue_count, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`, p.ID, p.Key, p.Name, p.Description, p.IssueCount, i); err != nil {
			return fmt.Errorf("insert project %s: %w", p.Key, err)
		}
	}
	for i, sp := range next.Sprints {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sprints(id, name, start_date, end_date, status, goal, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, sp.ID, sp.Name, formatTime(sp.StartDate), formatTime(sp.EndDate), string(sp.Status), nullable(sp.Goal), i); err != nil {
			return fmt.Errorf("insert sprint %q: %w", sp.Name, err)
		}
	}
	pos := 0
	for i, is := range next.Issues {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO issues(id, key, title, description, status, priority, type, story_points, sprint_id, project_id, parent_id, updated_at, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, is.ID, is.Key, is.Title, nullable(is.Description), string(is.Status), string(is.Priority), string(is.Type),
			is.StoryPoints, nullable(is.SprintID), is.ProjectID, nullable(is.ParentID), formatTime(is.UpdatedAt), i); err != nil {
			return fmt.Errorf("insert issue %s: %w", is.Key, err)
		}
		for _, c := range is.Comments {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO comments(id, issue_id, user_id, user_name, content, created_at, position)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, c.ID, is.ID, c.UserID, c.UserName, c.Content, formatTime(c.CreatedAt), pos); err != nil {
				return fmt.Errorf("insert comment on %s: %w", is.Key, err)
			}
			pos++
		}
	}
	return tx.Commit()
}

func loadProjects(ctx context.Context, tx *sql.Tx) ([]tracker.Project, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, key, name, description, issue_count FROM projects ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tracker.Project
	for rows.Next() {
		var p tracker.Project
		if err := rows.Scan(&p.ID, &p.Key, &p.Name, &p.Description, &p.IssueCount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func loadSprints(ctx context.Context, tx *sql.Tx) ([]tracker.Sprint, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name, start_date, end_date, status, goal FROM sprints ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tracker.Sprint
	for rows.Next() {
		var sp tracker.Sprint
		var start, end string
		var goal sql.NullString
		if err := rows.Scan(&sp.ID, &sp.Name, &start, &end, &sp.Status, &goal); err != nil {
			return nil, err
		}
		if sp.StartDate, err = parseTime(start); err != nil {
			return nil, err
		}
		if sp.EndDate, err = parseTime(end); err != nil {
			return nil, err
		}
		sp.Goal = fromNull(goal)
		out = append(out, sp)
	}
	return out, rows.Err()
}

func loadIssues(ctx context.Context, tx *sql.Tx) ([]tracker.Issue, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, key, title, description, status, priority, type, story_points, sprint_id, project_id, parent_id, updated_at
		FROM issues
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tracker.Issue
	for rows.Next() {
		var is tracker.Issue
		var description, sprintID, parentID sql.NullString
		var updated string
		if err := rows.Scan(&is.ID, &is.Key, &is.Title, &description, &is.Status, &is.Priority, &is.Type,
			&is.StoryPoints, &sprintID, &is.ProjectID, &parentID, &updated); err != nil {
			return nil, err
		}
		if is.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		is.Description = fromNull(description)
		is.SprintID = fromNull(sprintID)
		is.ParentID = fromNull(parentID)
		is.Comments = []tracker.Comment{}
		out = append(out, is)
	}
	return out, rows.Err()
}

func attachComments(ctx context.Context, tx *sql.Tx, issues []tracker.Issue) error {
	index := make(map[string]int, len(issues))
	for i, is := range issues {
		index[is.ID] = i
	}
	rows, err := tx.QueryContext(ctx, `
		SELECT id, issue_id, user_id, user_name, content, created_at
		FROM comments
		ORDER BY position ASC
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c tracker.Comment
		var created string
		if err := rows.Scan(&c.ID, &c.IssueID, &c.UserID, &c.UserName, &c.Content, &created); err != nil {
			return err
		}
		if c.CreatedAt, err = parseTime(created); err != nil {
			return err
		}
		i, ok := index[c.IssueID]
		if !ok {
			continue
		}
		issues[i].Comments = append(issues[i].Comments, c)
	}
	return rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", value, err)
	}
	return t, nil
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func fromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func isBusy(err error) bool {
	if err == nil || errors.Is(err, tracker.ErrConflict) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}
