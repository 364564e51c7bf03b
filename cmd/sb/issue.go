package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satyaki-up/sprintboard/internal/tracker"
)

var (
	issueProject     string
	issueTitle       string
	issueDescription string
	issueType        string
	issuePriority    string
	issueStatus      string
	issuePoints      int
	issueSprint      string
	issueParent      string
	issueNoSprint    bool
	issueNoParent    bool
	issueListStatus  string
)

var issueCmd = &cobra.Command{
	Use:     "issue",
	Aliases: []string{"i"},
	Short:   "Create, edit and move issues",
}

var issueCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an issue",
	Long: `Create an issue in the project. Unset fields take defaults: title
"Untitled", type TASK, priority MEDIUM, 0 points, status BACKLOG (SELECTED when
--sprint is given).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		p, err := resolveProject(snap, issueProject)
		if err != nil {
			return err
		}
		in := tracker.IssueInput{
			Title:       optional(issueTitle, cmd.Flags().Changed("title")),
			Description: optional(issueDescription, cmd.Flags().Changed("description")),
		}
		if cmd.Flags().Changed("type") {
			t := tracker.IssueType(strings.ToUpper(issueType))
			in.Type = &t
		}
		if cmd.Flags().Changed("priority") {
			pr := tracker.Priority(strings.ToUpper(issuePriority))
			in.Priority = &pr
		}
		if cmd.Flags().Changed("status") {
			st := parseStatus(issueStatus)
			in.Status = &st
		}
		if cmd.Flags().Changed("points") {
			in.StoryPoints = &issuePoints
		}
		if cmd.Flags().Changed("sprint") {
			sp, err := resolveSprint(snap, issueSprint)
			if err != nil {
				return err
			}
			in.SprintID = &sp.ID
		}
		if cmd.Flags().Changed("parent") {
			parent, err := resolveIssue(snap, issueParent)
			if err != nil {
				return err
			}
			in.ParentID = &parent.ID
		}

		is, err := app.engine.CreateIssue(cmd.Context(), p.ID, in)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(is)
		}
		fmt.Printf("created %s %s\n", is.Key, is.Title)
		return nil
	},
}

var issueUpdateCmd = &cobra.Command{
	Use:   "update ISSUE",
	Short: "Edit an issue's fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		is, err := resolveIssue(snap, args[0])
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("title") {
			is.Title = issueTitle
		}
		if flags.Changed("description") {
			is.Description = &issueDescription
		}
		if flags.Changed("type") {
			is.Type = tracker.IssueType(strings.ToUpper(issueType))
		}
		if flags.Changed("priority") {
			is.Priority = tracker.Priority(strings.ToUpper(issuePriority))
		}
		if flags.Changed("status") {
			is.Status = parseStatus(issueStatus)
		}
		if flags.Changed("points") {
			is.StoryPoints = issuePoints
		}
		switch {
		case issueNoSprint:
			is.SprintID = nil
		case flags.Changed("sprint"):
			sp, err := resolveSprint(snap, issueSprint)
			if err != nil {
				return err
			}
			is.SprintID = &sp.ID
		}
		switch {
		case issueNoParent:
			is.ParentID = nil
		case flags.Changed("parent"):
			parent, err := resolveIssue(snap, issueParent)
			if err != nil {
				return err
			}
			is.ParentID = &parent.ID
		}

		updated, err := app.engine.UpdateIssue(cmd.Context(), is)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(updated)
		}
		printIssue(app.engine.Snapshot(), updated)
		return nil
	},
}

var issueStatusCmd = &cobra.Command{
	Use:   "status ISSUE STATUS",
	Short: "Move an issue to another status",
	Long: `Move an issue to BACKLOG, SELECTED, IN_PROGRESS, IN_REVIEW or DONE.
When the last open child of an epic becomes DONE the epic is completed too.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		before := app.engine.Snapshot()
		is, err := resolveIssue(before, args[0])
		if err != nil {
			return err
		}
		updated, err := app.engine.UpdateIssueStatus(cmd.Context(), is.ID, parseStatus(args[1]))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(updated)
		}
		fmt.Printf("%s: %s -> %s\n", updated.Key, is.Status, updated.Status)
		if is.ParentID != nil {
			was, _ := before.Issue(*is.ParentID)
			now, ok := app.engine.Snapshot().Issue(*is.ParentID)
			if ok && was.Status != now.Status {
				fmt.Printf("%s: %s -> %s\n", now.Key, was.Status, now.Status)
			}
		}
		return nil
	},
}

var issueDeleteCmd = &cobra.Command{
	Use:   "delete ISSUE",
	Short: "Delete an issue; deleting an epic deletes its children",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		is, err := resolveIssue(snap, args[0])
		if err != nil {
			return err
		}
		removed, err := app.engine.DeleteIssue(cmd.Context(), is.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(removed)
		}
		for _, id := range removed {
			gone, _ := snap.Issue(id)
			fmt.Printf("deleted %s %s\n", gone.Key, gone.Title)
		}
		return nil
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show ISSUE",
	Short: "Show an issue with its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		is, err := resolveIssue(snap, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(is)
		}
		printIssue(snap, is)
		return nil
	},
}

var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's issues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		p, err := resolveProject(snap, issueProject)
		if err != nil {
			return err
		}
		list := snap.ProjectIssues(p.ID)
		if issueListStatus != "" {
			want := parseStatus(issueListStatus)
			filtered := list[:0:0]
			for _, is := range list {
				if is.Status == want {
					filtered = append(filtered, is)
				}
			}
			list = filtered
		}
		if jsonOutput {
			return printJSON(list)
		}
		for _, is := range list {
			printIssueLine(snap, is)
		}
		return nil
	},
}

func parseStatus(v string) tracker.Status {
	return tracker.Status(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(v)), "-", "_"))
}

func init() {
	for _, c := range []*cobra.Command{issueCreateCmd, issueListCmd} {
		c.Flags().StringVarP(&issueProject, "project", "p", "", "Project key (defaults to config)")
	}
	for _, c := range []*cobra.Command{issueCreateCmd, issueUpdateCmd} {
		c.Flags().StringVarP(&issueTitle, "title", "t", "", "Title")
		c.Flags().StringVarP(&issueDescription, "description", "d", "", "Description")
		c.Flags().StringVar(&issueType, "type", "", "story|task|bug|epic")
		c.Flags().StringVar(&issuePriority, "priority", "", "low|medium|high|critical")
		c.Flags().StringVar(&issueStatus, "status", "", "backlog|selected|in_progress|in_review|done")
		c.Flags().IntVar(&issuePoints, "points", 0, "Story points")
		c.Flags().StringVar(&issueSprint, "sprint", "", "Sprint id or name")
		c.Flags().StringVar(&issueParent, "parent", "", "Parent epic key")
	}
	issueUpdateCmd.Flags().BoolVar(&issueNoSprint, "no-sprint", false, "Move the issue to the backlog")
	issueUpdateCmd.Flags().BoolVar(&issueNoParent, "no-parent", false, "Detach the issue from its epic")
	issueUpdateCmd.MarkFlagsMutuallyExclusive("sprint", "no-sprint")
	issueUpdateCmd.MarkFlagsMutuallyExclusive("parent", "no-parent")
	issueListCmd.Flags().StringVar(&issueListStatus, "status", "", "Only issues in this status")

	issueCmd.AddCommand(issueCreateCmd)
	issueCmd.AddCommand(issueUpdateCmd)
	issueCmd.AddCommand(issueStatusCmd)
	issueCmd.AddCommand(issueDeleteCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueListCmd)
}
