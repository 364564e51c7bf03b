package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/satyaki-up/sprintboard/internal/tracker"
)

var (
	sprintStart       string
	sprintEnd         string
	sprintGoal        string
	sprintNewName     string
	sprintRebaseDates bool
)

var sprintCmd = &cobra.Command{
	Use:   "sprint",
	Short: "Plan, start and complete sprints",
}

var sprintCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a planned sprint",
	Long: `Create a PLANNED sprint. --start defaults to today and --end to two weeks
after the start.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseDate("startDate", sprintStart)
		if err != nil {
			return err
		}
		end, err := parseDate("endDate", sprintEnd)
		if err != nil {
			return err
		}
		in := tracker.SprintInput{Name: args[0], Goal: optional(sprintGoal, cmd.Flags().Changed("goal"))}
		if start != nil {
			in.StartDate = *start
		}
		if end != nil {
			in.EndDate = *end
		}
		sp, err := app.engine.CreateSprint(cmd.Context(), in)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(sp)
		}
		fmt.Printf("created sprint %q (%s)\n", sp.Name, sp.ID)
		return nil
	},
}

var sprintUpdateCmd = &cobra.Command{
	Use:   "update SPRINT",
	Short: "Rename a sprint or change its goal and dates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := resolveSprint(app.engine.Snapshot(), args[0])
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("name") {
			sp.Name = sprintNewName
		}
		if cmd.Flags().Changed("goal") {
			sp.Goal = &sprintGoal
		}
		start, err := parseDate("startDate", sprintStart)
		if err != nil {
			return err
		}
		end, err := parseDate("endDate", sprintEnd)
		if err != nil {
			return err
		}
		if start != nil {
			sp.StartDate = *start
		}
		if end != nil {
			sp.EndDate = *end
		}
		updated, err := app.engine.UpdateSprint(cmd.Context(), sp)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(updated)
		}
		printSprint(updated)
		return nil
	},
}

var sprintStartCmd = &cobra.Command{
	Use:   "start SPRINT",
	Short: "Start a planned sprint",
	Long: `Start a PLANNED sprint. Any other ACTIVE sprint goes back to PLANNED and
every issue in the started sprint moves to SELECTED.

--rebase-dates shifts the sprint to begin today while keeping its length.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		sp, err := resolveSprint(snap, args[0])
		if err != nil {
			return err
		}
		var opts tracker.StartOptions
		if sprintRebaseDates {
			opts, _ = tracker.AdjustForDrift(sp, time.Now())
		}
		if opts.StartDate, err = overrideDate("startDate", sprintStart, opts.StartDate); err != nil {
			return err
		}
		if opts.EndDate, err = overrideDate("endDate", sprintEnd, opts.EndDate); err != nil {
			return err
		}

		var demoted *tracker.Sprint
		if active, ok := snap.ActiveSprint(); ok && active.ID != sp.ID {
			demoted = &active
		}
		started, err := app.engine.StartSprint(cmd.Context(), sp.ID, opts)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(started)
		}
		if demoted != nil {
			fmt.Printf("moved %q back to PLANNED\n", demoted.Name)
		}
		fmt.Printf("started %q with %d issues\n", started.Name, len(app.engine.Snapshot().SprintIssues(started.ID)))
		return nil
	},
}

var sprintCompleteCmd = &cobra.Command{
	Use:   "complete SPRINT",
	Short: "Complete the active sprint",
	Long: `Complete an ACTIVE sprint. DONE issues stay linked to it; everything else
returns to the backlog.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := resolveSprint(app.engine.Snapshot(), args[0])
		if err != nil {
			return err
		}
		done, err := app.engine.CompleteSprint(cmd.Context(), sp.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(done)
		}
		fmt.Printf("completed %q: %d issues done\n", done.Name, len(app.engine.Snapshot().SprintIssues(done.ID)))
		return nil
	},
}

var sprintDeleteCmd = &cobra.Command{
	Use:   "delete SPRINT",
	Short: "Delete a sprint and return its issues to the backlog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := resolveSprint(app.engine.Snapshot(), args[0])
		if err != nil {
			return err
		}
		unlinked, err := app.engine.DeleteSprint(cmd.Context(), sp.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(unlinked)
		}
		fmt.Printf("deleted %q; %d issues unlinked\n", sp.Name, len(unlinked))
		return nil
	},
}

var sprintListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sprints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		if jsonOutput {
			return printJSON(snap.Sprints)
		}
		for _, sp := range snap.Sprints {
			printSprint(sp)
		}
		return nil
	},
}

func overrideDate(field, value string, fallback *time.Time) (*time.Time, error) {
	t, err := parseDate(field, value)
	if err != nil || t == nil {
		return fallback, err
	}
	return t, nil
}

func init() {
	for _, c := range []*cobra.Command{sprintCreateCmd, sprintUpdateCmd, sprintStartCmd} {
		c.Flags().StringVar(&sprintStart, "start", "", "Start date (YYYY-MM-DD)")
		c.Flags().StringVar(&sprintEnd, "end", "", "End date (YYYY-MM-DD)")
	}
	sprintCreateCmd.Flags().StringVar(&sprintGoal, "goal", "", "Sprint goal")
	sprintUpdateCmd.Flags().StringVar(&sprintGoal, "goal", "", "Sprint goal (empty clears it)")
	sprintUpdateCmd.Flags().StringVar(&sprintNewName, "name", "", "New sprint name")
	sprintStartCmd.Flags().BoolVar(&sprintRebaseDates, "rebase-dates", false, "Shift the sprint to start today, keeping its length")

	sprintCmd.AddCommand(sprintCreateCmd)
	sprintCmd.AddCommand(sprintUpdateCmd)
	sprintCmd.AddCommand(sprintStartCmd)
	sprintCmd.AddCommand(sprintCompleteCmd)
	sprintCmd.AddCommand(sprintDeleteCmd)
	sprintCmd.AddCommand(sprintListCmd)
}
