package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planerhq/planer/internal/planning"
	"github.com/planerhq/planer/internal/types"
)

var (
	tasksPlanID int64
	tasksNotes  string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks <status> <task-id>...",
	Short: "Update the status of one or more tasks",
	Long: `Transition tasks to a new status: pending, in_progress, completed, or
deleted. Plan progress counters are recomputed automatically; deleted
tasks drop out of the totals.

With --plan the updated plan is printed afterwards.

Example:
  planer tasks completed 4 5 --notes "shipped in v0.2"
  planer tasks in_progress 7 --plan 2`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		status, err := types.ParseStatus(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		taskIDs := make([]int64, 0, len(args)-1)
		for _, arg := range args[1:] {
			id, err := parseID(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			taskIDs = append(taskIDs, id)
		}

		ok, err := store.UpdateTaskStatus(ctx, taskIDs, status, tasksNotes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Failed to update tasks. Check task IDs.")
			os.Exit(1)
		}

		fmt.Printf("Updated %s to %s.\n", pluralize(len(taskIDs), "task"), status)

		if tasksPlanID > 0 {
			plan, err := store.GetPlan(ctx, tasksPlanID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if plan == nil {
				fmt.Fprintf(os.Stderr, "Tasks updated, but plan %d was not found.\n", tasksPlanID)
				os.Exit(1)
			}
			fmt.Println()
			fmt.Println(planning.FormatPlanDetailed(plan))
		}
	},
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func init() {
	tasksCmd.Flags().Int64Var(&tasksPlanID, "plan", 0, "print this plan after updating")
	tasksCmd.Flags().StringVar(&tasksNotes, "notes", "", "notes recorded with the status change")
	rootCmd.AddCommand(tasksCmd)
}
