package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planerhq/planer/internal/types"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the valid categories, statuses, and priorities",
	Run: func(cmd *cobra.Command, args []string) {
		yellow := color.New(color.FgYellow).SprintFunc()

		fmt.Printf("%s\n", yellow("Categories:"))
		for _, c := range types.CategoryValues() {
			fmt.Printf("  %s\n", c)
		}

		fmt.Printf("\n%s\n", yellow("Task statuses:"))
		for _, s := range types.StatusValues() {
			fmt.Printf("  %s\n", s)
		}

		fmt.Printf("\n%s\n", yellow("Priorities:"))
		for _, p := range types.PriorityValues() {
			fmt.Printf("  %s\n", p)
		}
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
