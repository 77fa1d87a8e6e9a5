package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planerhq/planer/internal/planning"
	"github.com/planerhq/planer/internal/types"
)

var (
	listAll  bool
	listPage int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List plans",
	Long: `List plans, most recently updated first. Fully completed plans are
hidden unless --all is given. Results are paginated 30 per page.

Example:
  planer list
  planer list --all --page 2`,
	Run: func(cmd *cobra.Command, args []string) {
		plans, err := store.ListPlans(cmd.Context(), types.PlanFilter{
			IncludeCompleted: listAll,
			Page:             listPage,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(plans) == 0 {
			if listAll {
				fmt.Println("No plans found.")
			} else {
				fmt.Println("No active plans found (use --all to include completed plans).")
			}
			return
		}

		fmt.Print(planning.FormatPlansList(plans))
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Println(gray(fmt.Sprintf("Page %d | Showing %d plans | Use --page %d for more", listPage, len(plans), listPage+1)))
	},
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "include completed plans")
	listCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	rootCmd.AddCommand(listCmd)
}
