package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planerhq/planer/internal/types"
)

func TestMaterializeTasksDefaults(t *testing.T) {
	tasks := MaterializeTasks([]GeneratedTask{
		{Title: "Set up repo", Priority: "high", Dependencies: []int{2}},
		{Description: "no title supplied"},
		{Title: "Deploy", Priority: "urgent!!"},
	})
	require.Len(t, tasks, 3)

	assert.Equal(t, "Set up repo", tasks[0].Title)
	assert.Equal(t, types.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, []int{2}, tasks[0].Dependencies)

	// Positional placeholder title and medium fallback priority
	assert.Equal(t, "Task 2", tasks[1].Title)
	assert.Equal(t, types.PriorityMedium, tasks[1].Priority)
	assert.Equal(t, []int{}, tasks[1].Dependencies)

	// Unrecognized priority never errors
	assert.Equal(t, types.PriorityMedium, tasks[2].Priority)

	for i, task := range tasks {
		assert.Equal(t, i, task.OrderIndex)
		assert.Equal(t, types.StatusPending, task.Status)
	}
}

func TestFormatPlanDetailed(t *testing.T) {
	plan := &types.Plan{
		Title:          "Launch service",
		Description:    "Backend rollout",
		Category:       types.CategoryProject,
		Goal:           "Ship v1",
		Status:         types.StatusInProgress,
		TotalTasks:     2,
		CompletedTasks: 1,
		Tasks: []*types.Task{
			{Title: "Design schema", Status: types.StatusCompleted, Priority: types.PriorityHigh},
			{Title: "Build API", Status: types.StatusPending, Priority: types.PriorityMedium, Dependencies: []int{0}},
		},
	}

	out := FormatPlanDetailed(plan)
	assert.Contains(t, out, "Launch service")
	assert.Contains(t, out, "Category: PROJECT")
	assert.Contains(t, out, "Progress: 1/2 tasks (50.0%)")
	assert.Contains(t, out, "Description: Backend rollout")
	assert.Contains(t, out, "1. ✅ 🟠 Design schema")
	// Dependencies render 1-based
	assert.Contains(t, out, "Dependencies: 1")
}

func TestFormatPlansListEmpty(t *testing.T) {
	assert.Equal(t, "No plans found.", FormatPlansList(nil))
}
