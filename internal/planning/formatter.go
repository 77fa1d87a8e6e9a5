package planning

import (
	"fmt"
	"strings"

	"github.com/planerhq/planer/internal/types"
)

var statusIcons = map[types.Status]string{
	types.StatusPending:    "⏳",
	types.StatusInProgress: "🔄",
	types.StatusCompleted:  "✅",
	types.StatusDeleted:    "🗑️",
}

var priorityIcons = map[types.Priority]string{
	types.PriorityLow:      "🟢",
	types.PriorityMedium:   "🟡",
	types.PriorityHigh:     "🟠",
	types.PriorityCritical: "🔴",
}

// FormatPlanSummary renders the plan header with progress
func FormatPlanSummary(plan *types.Plan) string {
	icon, ok := statusIcons[plan.Status]
	if !ok {
		icon = "📋"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", icon, plan.Title)
	fmt.Fprintf(&b, "Category: %s\n", strings.ToUpper(string(plan.Category)))
	fmt.Fprintf(&b, "Goal: %s\n", plan.Goal)
	fmt.Fprintf(&b, "Progress: %d/%d tasks (%.1f%%)\n",
		plan.CompletedTasks, plan.TotalTasks, plan.ProgressPercentage())
	return b.String()
}

// FormatPlanDetailed renders the plan header plus its full task list
func FormatPlanDetailed(plan *types.Plan) string {
	var b strings.Builder
	b.WriteString(FormatPlanSummary(plan))

	if plan.Description != "" {
		fmt.Fprintf(&b, "\nDescription: %s\n", plan.Description)
	}

	if len(plan.Tasks) > 0 {
		b.WriteString("\n📝 Tasks:\n")
		for i, task := range plan.Tasks {
			statusIcon, ok := statusIcons[task.Status]
			if !ok {
				statusIcon = "•"
			}
			fmt.Fprintf(&b, "\n%d. %s %s %s", i+1, statusIcon, priorityIcons[task.Priority], task.Title)
			if task.Description != "" {
				fmt.Fprintf(&b, "\n   %s", task.Description)
			}
			if len(task.Dependencies) > 0 {
				deps := make([]string, len(task.Dependencies))
				for j, d := range task.Dependencies {
					deps[j] = fmt.Sprintf("%d", d+1)
				}
				fmt.Fprintf(&b, "\n   Dependencies: %s", strings.Join(deps, ", "))
			}
		}
	}
	return b.String()
}

// FormatPlansList renders a compact listing of plan summaries
func FormatPlansList(plans []*types.Plan) string {
	if len(plans) == 0 {
		return "No plans found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d plan(s):\n\n", len(plans))
	for _, plan := range plans {
		fmt.Fprintf(&b, "ID %d: %s\n", plan.ID, plan.Title)
		fmt.Fprintf(&b, "  Category: %s | Progress: %.0f%%\n", plan.Category, plan.ProgressPercentage())
		fmt.Fprintf(&b, "  Status: %s | Tasks: %d/%d\n\n", plan.Status, plan.CompletedTasks, plan.TotalTasks)
	}
	return b.String()
}
