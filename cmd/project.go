package cmd

import (
	"context"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "project commands",
}

var levelCmd = &cobra.Command{
	Use:   "level",
	Short: "project level commands",
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	projectCmd.AddCommand(createProjectCmd())
	projectCmd.AddCommand(listProjectsCmd())
	projectCmd.AddCommand(activateProjectCmd())
	projectCmd.AddCommand(deleteProjectCmd())
	projectCmd.AddCommand(projectStartsCmd())

	projectCmd.AddCommand(levelCmd)
	levelCmd.AddCommand(createLevelCmd())
	levelCmd.AddCommand(renameLevelCmd())
	levelCmd.AddCommand(listLevelsCmd())
}

func createProjectCmd() *cobra.Command {
	var name string
	var description string

	command := &cobra.Command{
		Use:   "create",
		Short: "create an active project",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "name") {
				return
			}

			ctx := context.Background()
			project, err := newServices(ctx).projects.CreateProject(ctx, name, description)
			if err != nil {
				fail(err)
			}

			color.Green("created project %s", project.ID)
		},
	}

	command.Flags().StringVarP(&name, "name", "n", "", "project name")
	command.Flags().StringVarP(&description, "description", "d", "", "project description")

	return command
}

func listProjectsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list projects, newest first",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			projects, err := newServices(ctx).projects.ListProjects(ctx)
			if err != nil {
				fail(err)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Active", "Levels", "Start"})
			for _, project := range projects {
				table.Append([]string{
					project.ID,
					project.Name,
					strconv.FormatBool(project.IsActive),
					strconv.Itoa(len(project.LevelList())),
					lo.FromPtr(project.StartPanophotoID),
				})
			}
			table.Render()
		},
	}

	return command
}

func activateProjectCmd() *cobra.Command {
	var projectID string

	command := &cobra.Command{
		Use:   "activate",
		Short: "make a project the active one",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "project-id") {
				return
			}

			ctx := context.Background()
			if _, err := newServices(ctx).projects.ActivateProject(ctx, projectID); err != nil {
				fail(err)
			}

			color.Green("activated project %s", projectID)
		},
	}

	command.Flags().StringVarP(&projectID, "project-id", "p", "", "project id")

	return command
}

func deleteProjectCmd() *cobra.Command {
	var projectID string
	var force bool

	command := &cobra.Command{
		Use:   "delete",
		Short: "delete a project",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "project-id") {
				return
			}

			ctx := context.Background()
			result, err := newServices(ctx).projects.DeleteProject(ctx, projectID, force)
			if err != nil {
				fail(err)
			}

			printWarnings(result)
			color.Green("deleted project %s", projectID)
		},
	}

	command.Flags().StringVarP(&projectID, "project-id", "p", "", "project id")
	command.Flags().BoolVarP(&force, "force", "f", false, "also delete the panophotos of the project")

	return command
}

func projectStartsCmd() *cobra.Command {
	var projectID string

	command := &cobra.Command{
		Use:   "starts",
		Short: "show the resolved start photos",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "project-id") {
				return
			}

			ctx := context.Background()
			starts, err := newServices(ctx).projects.ResolveStarts(ctx, projectID)
			if err != nil {
				fail(err)
			}

			printJSON(starts)
		},
	}

	command.Flags().StringVarP(&projectID, "project-id", "p", "", "project id")

	return command
}

func createLevelCmd() *cobra.Command {
	var projectID string
	var name string

	command := &cobra.Command{
		Use:   "create",
		Short: "append a level to a project",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "project-id") {
				return
			}

			ctx := context.Background()
			_, level, err := newServices(ctx).projects.CreateLevel(ctx, projectID, name)
			if err != nil {
				fail(err)
			}

			color.Green("created level %s (%s)", level.ID, level.Name)
		},
	}

	command.Flags().StringVarP(&projectID, "project-id", "p", "", "project id")
	command.Flags().StringVarP(&name, "name", "n", "", "level name")

	return command
}

func renameLevelCmd() *cobra.Command {
	var projectID string
	var levelID string
	var name string

	command := &cobra.Command{
		Use:   "rename",
		Short: "rename a level",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "project-id", "level-id", "name") {
				return
			}

			ctx := context.Background()
			if _, err := newServices(ctx).projects.RenameLevel(ctx, projectID, levelID, name); err != nil {
				fail(err)
			}

			color.Green("renamed level %s", levelID)
		},
	}

	command.Flags().StringVarP(&projectID, "project-id", "p", "", "project id")
	command.Flags().StringVarP(&levelID, "level-id", "l", "", "level id")
	command.Flags().StringVarP(&name, "name", "n", "", "new level name")

	return command
}

func listLevelsCmd() *cobra.Command {
	var projectID string

	command := &cobra.Command{
		Use:   "list",
		Short: "list the levels of a project",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "project-id") {
				return
			}

			ctx := context.Background()
			project, err := newServices(ctx).projects.GetProject(ctx, projectID)
			if err != nil {
				fail(err)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Index", "ID", "Name", "Start", "Background"})
			for _, level := range project.LevelList() {
				background, _ := project.LevelBackground(level)
				table.Append([]string{
					strconv.Itoa(level.Index),
					level.ID,
					level.Name,
					lo.FromPtr(level.StartPanophotoID),
					lo.FromPtr(background),
				})
			}
			table.Render()
		},
	}

	command.Flags().StringVarP(&projectID, "project-id", "p", "", "project id")

	return command
}
