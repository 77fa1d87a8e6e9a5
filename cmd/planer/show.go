package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planerhq/planer/internal/planning"
)

var showEvents bool

var showCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Show a plan with its full task list",
	Long: `Show a plan's details, tasks, and progress. With --events the plan's
change history is printed as well.

Example:
  planer show 3
  planer show 3 --events`,
	Args: cobra.ExactArgs(1),
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
			fmt.Fprintf(os.Stderr, "Plan with ID %d not found.\n", planID)
			os.Exit(1)
		}

		fmt.Println(planning.FormatPlanDetailed(plan))

		if showEvents {
			events, err := store.GetEvents(ctx, planID, 50)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			yellow := color.New(color.FgYellow).SprintFunc()
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("\n%s\n", yellow("History:"))
			for _, ev := range events {
				line := fmt.Sprintf("  %s  %s", ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.EventType)
				if len(ev.TaskIDs) > 0 {
					ids := make([]string, len(ev.TaskIDs))
					for i, id := range ev.TaskIDs {
						ids[i] = strconv.FormatInt(id, 10)
					}
					line += fmt.Sprintf(" (tasks %s)", strings.Join(ids, ", "))
				}
				fmt.Println(line)
				if ev.Notes != "" {
					fmt.Printf("    %s\n", gray(ev.Notes))
				}
			}
		}
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: must be a number", s)
	}
	return id, nil
}

func init() {
	showCmd.Flags().BoolVar(&showEvents, "events", false, "include the plan's change history")
	rootCmd.AddCommand(showCmd)
}
