package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satyaki-up/sprintboard/internal/tracker"
)

var (
	boardSprint  string
	boardProject string
)

var commentCmd = &cobra.Command{
	Use:   "comment ISSUE TEXT...",
	Short: "Add a comment to an issue",
	Long: `Add a comment as the configured user (user.id / user.name in
.sprintboard.yaml, or SB_USER_ID / SB_USER_NAME).`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		is, err := resolveIssue(app.engine.Snapshot(), args[0])
		if err != nil {
			return err
		}
		author := tracker.Author{ID: app.cfg.User.ID, Name: app.cfg.User.Name}
		c, err := app.engine.AddComment(cmd.Context(), author, is.ID, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(c)
		}
		fmt.Printf("commented on %s as %s\n", is.Key, c.UserName)
		return nil
	},
}

var backlogCmd = &cobra.Command{
	Use:   "backlog",
	Short: "Show the backlog or move issues between backlog and sprint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		p, err := resolveProject(snap, boardProject)
		if err != nil {
			return err
		}
		list := snap.Backlog(p.ID)
		if jsonOutput {
			return printJSON(list)
		}
		for _, is := range list {
			printIssueLine(snap, is)
		}
		return nil
	},
}

var backlogAddCmd = &cobra.Command{
	Use:   "add ISSUE...",
	Short: "Pull issues into a sprint (the active one by default)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		sp, err := activeOrNamed(snap, boardSprint)
		if err != nil {
			return err
		}
		ids, err := resolveIssues(snap, args)
		if err != nil {
			return err
		}
		moved, err := app.engine.AddToSprint(cmd.Context(), sp.ID, ids...)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(moved)
		}
		for _, is := range moved {
			fmt.Printf("%s -> %q (%s)\n", is.Key, sp.Name, is.Status)
		}
		return nil
	},
}

var backlogRemoveCmd = &cobra.Command{
	Use:   "remove ISSUE...",
	Short: "Return issues to the backlog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := resolveIssues(app.engine.Snapshot(), args)
		if err != nil {
			return err
		}
		moved, err := app.engine.MoveToBacklog(cmd.Context(), ids...)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(moved)
		}
		for _, is := range moved {
			fmt.Printf("%s -> backlog\n", is.Key)
		}
		return nil
	},
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show a sprint board (the active sprint by default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		sp, err := activeOrNamed(snap, boardSprint)
		if err != nil {
			return err
		}
		board := snap.Board(sp.ID)
		if jsonOutput {
			return printJSON(map[string]any{"sprint": sp, "columns": board})
		}
		fmt.Printf("%s (%s, ends %s)\n", sp.Name, sp.Status, ago(sp.EndDate))
		for _, col := range board {
			fmt.Printf("\n%s (%d)\n", col.Status, len(col.Issues))
			for _, is := range col.Issues {
				fmt.Printf("  %s\t%s\t%dpt\t%s\n", is.Key, is.Priority, is.StoryPoints, is.Title)
			}
		}
		return nil
	},
}

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List issues that are not filed under an epic",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		p, err := resolveProject(snap, boardProject)
		if err != nil {
			return err
		}
		list := snap.Orphans(p.ID)
		if jsonOutput {
			return printJSON(list)
		}
		for _, is := range list {
			printIssueLine(snap, is)
		}
		return nil
	},
}

var epicCmd = &cobra.Command{
	Use:   "epic EPIC",
	Short: "Show an epic's children and progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		epic, err := resolveIssue(snap, args[0])
		if err != nil {
			return err
		}
		progress, err := snap.EpicProgress(epic.ID)
		if err != nil {
			return err
		}
		children := snap.Children(epic.ID)
		if jsonOutput {
			return printJSON(map[string]any{"epic": epic, "progress": progress, "children": children})
		}
		fmt.Printf("%s %s [%s]\n", epic.Key, epic.Title, epic.Status)
		fmt.Printf("%d/%d done, %d/%d points\n", progress.Done, progress.Total, progress.DonePoints, progress.TotalPoints)
		for _, ch := range children {
			printIssueLine(snap, ch)
		}
		return nil
	},
}

// treeNode is one epic with its children, or a lone issue.
type treeNode struct {
	Issue    tracker.Issue   `json:"issue"`
	Children []tracker.Issue `json:"children,omitempty"`
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show a project's epics with their children",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		p, err := resolveProject(snap, boardProject)
		if err != nil {
			return err
		}
		var nodes []treeNode
		for _, is := range snap.ProjectIssues(p.ID) {
			switch {
			case is.Type == tracker.TypeEpic:
				nodes = append(nodes, treeNode{Issue: is, Children: snap.Children(is.ID)})
			case is.ParentID == nil:
				nodes = append(nodes, treeNode{Issue: is})
			}
		}
		if jsonOutput {
			return printJSON(nodes)
		}
		for _, n := range nodes {
			fmt.Printf("- %s (%s) [%s] %s\n", n.Issue.Key, n.Issue.Type, n.Issue.Status, n.Issue.Title)
			for _, ch := range n.Children {
				fmt.Printf("  - %s (%s) [%s] %s\n", ch.Key, ch.Type, ch.Status, ch.Title)
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{backlogCmd, orphansCmd, treeCmd} {
		c.Flags().StringVarP(&boardProject, "project", "p", "", "Project key (defaults to config)")
	}
	for _, c := range []*cobra.Command{backlogAddCmd, boardCmd} {
		c.Flags().StringVarP(&boardSprint, "sprint", "s", "", "Sprint id or name (defaults to the active sprint)")
	}
	backlogCmd.AddCommand(backlogAddCmd)
	backlogCmd.AddCommand(backlogRemoveCmd)
}
