package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planerhq/planer/internal/planning"
	"github.com/planerhq/planer/internal/types"
)

var (
	updateTitle       string
	updateDescription string
	updateAddTasks    []string
)

var updateCmd = &cobra.Command{
	Use:   "update <plan-id>",
	Short: "Update a plan's info or add tasks",
	Long: `Change a plan's title or description, or append new tasks to the end of
its task list. Added tasks start pending with medium priority.

Example:
  planer update 3 --title "Launch blog v2"
  planer update 3 --add-task "Write launch post" --add-task "Set up analytics"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		planID, err := parseID(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if updateTitle == "" && !cmd.Flags().Changed("description") && len(updateAddTasks) == 0 {
			fmt.Fprintln(os.Stderr, "Error: nothing to update (use --title, --description, or --add-task)")
			os.Exit(1)
		}

		if updateTitle != "" || cmd.Flags().Changed("description") {
			var title, description *string
			if updateTitle != "" {
				title = &updateTitle
			}
			if cmd.Flags().Changed("description") {
				description = &updateDescription
			}
			ok, err := store.UpdatePlanInfo(ctx, planID, title, description)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if !ok {
				fmt.Fprintf(os.Stderr, "Plan with ID %d not found.\n", planID)
				os.Exit(1)
			}
		}

		if len(updateAddTasks) > 0 {
			tasks := make([]*types.Task, 0, len(updateAddTasks))
			for _, title := range updateAddTasks {
				tasks = append(tasks, &types.Task{
					Title:    title,
					Status:   types.StatusPending,
					Priority: types.PriorityMedium,
				})
			}
			if _, err := store.AddTasksToPlan(ctx, planID, tasks); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		plan, err := store.GetPlan(ctx, planID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if plan == nil {
			fmt.Fprintf(os.Stderr, "Plan with ID %d not found.\n", planID)
			os.Exit(1)
		}

		fmt.Println("Plan updated successfully!")
		fmt.Println()
		fmt.Println(planning.FormatPlanDetailed(plan))
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateTitle, "title", "", "new plan title")
	updateCmd.Flags().StringVar(&updateDescription, "description", "", "new plan description (empty clears it)")
	updateCmd.Flags().StringArrayVar(&updateAddTasks, "add-task", nil, "task title to append (repeatable)")
	rootCmd.AddCommand(updateCmd)
}
