package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satyaki-up/sprintboard/internal/tracker"
)

var (
	projectName        string
	projectDescription string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create KEY",
	Short: "Create a project",
	Long: `Create a project. KEY is 2-10 uppercase letters or digits and prefixes
every issue key in the project (KEY-1, KEY-2, ...).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := app.engine.CreateProject(cmd.Context(), tracker.ProjectInput{
			Key:         args[0],
			Name:        projectName,
			Description: projectDescription,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(p)
		}
		fmt.Printf("created project %s (%s)\n", p.Key, p.Name)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := app.engine.Snapshot()
		if jsonOutput {
			return printJSON(snap.Projects)
		}
		for _, p := range snap.Projects {
			fmt.Printf("%s\t%d issues\t%s\n", p.Key, len(snap.ProjectIssues(p.ID)), p.Name)
		}
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Delete a project with all of its issues and comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProject(app.engine.Snapshot(), args[0])
		if err != nil {
			return err
		}
		removed, err := app.engine.DeleteProject(cmd.Context(), p.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{"project": p.Key, "removed_issues": removed})
		}
		fmt.Printf("deleted project %s and %d issues\n", p.Key, len(removed))
		return nil
	},
}

func init() {
	projectCreateCmd.Flags().StringVar(&projectName, "name", "", "Project name (required)")
	projectCreateCmd.Flags().StringVar(&projectDescription, "description", "", "Project description")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}
