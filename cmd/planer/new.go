package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planerhq/planer/internal/ai"
	"github.com/planerhq/planer/internal/elicit"
	"github.com/planerhq/planer/internal/planning"
	"github.com/planerhq/planer/internal/types"
)

var (
	newGoal        string
	newCategory    string
	newDescription string
	newContext     string
)

var newCmd = &cobra.Command{
	Use:   "new <title>",
	Short: "Create a new plan with AI task breakdown",
	Long: `Create a new plan. The model analyzes the goal, asks for clarification
only when needed, generates a task breakdown, and shows a preview for
confirmation before saving.

At the preview you can type 'yes' to save, describe changes to regenerate
the task list once, or type 'cancel' to abort.

Example:
  planer new "Launch blog" --goal "Ship a personal blog on my own domain" --category project
  planer new "Learn Rust" --goal "Read the book and build a CLI" --category learning`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		category, err := types.ParseCategory(newCategory)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		retry := ai.DefaultRetryConfig()
		retry.MaxRetries = cfg.MaxRetries
		retry.Timeout = cfg.CallTimeout
		retry.MaxConcurrentCalls = cfg.MaxConcurrentCalls

		client, err := ai.NewClient(&ai.Config{
			Model: cfg.Model,
			Retry: retry,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		orch := planning.NewOrchestrator(client, store, elicit.NewConsole())
		plan, err := orch.CreatePlan(ctx, planning.Request{
			Title:             args[0],
			Goal:              newGoal,
			Category:          category,
			Description:       newDescription,
			AdditionalContext: newContext,
		})
		if errors.Is(err, planning.ErrCancelled) {
			fmt.Println("Plan creation cancelled.")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", green(fmt.Sprintf("Plan created successfully! (ID: %d)", plan.ID)))
		fmt.Println(planning.FormatPlanDetailed(plan))
	},
}

func init() {
	newCmd.Flags().StringVar(&newGoal, "goal", "", "main goal or objective (required)")
	newCmd.Flags().StringVar(&newCategory, "category", "", fmt.Sprintf("plan category (required): %s", strings.Join(types.CategoryValues(), ", ")))
	newCmd.Flags().StringVar(&newDescription, "description", "", "detailed description")
	newCmd.Flags().StringVar(&newContext, "context", "", "additional context for better planning")
	newCmd.MarkFlagRequired("goal")
	newCmd.MarkFlagRequired("category")
	rootCmd.AddCommand(newCmd)
}
