package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <plan-id>",
	Short: "Permanently delete a plan and all its tasks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		planID, err := parseID(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		plan, err := store.GetPlan(ctx, planID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if plan == nil {
			fmt.Fprintf(os.Stderr, "Plan %d not found.\n", planID)
			os.Exit(1)
		}

		ok, err := store.DeletePlan(ctx, planID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "Failed to delete plan %d.\n", planID)
			os.Exit(1)
		}

		fmt.Printf("Plan '%s' (ID: %d) has been permanently deleted.\n", plan.Title, planID)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
