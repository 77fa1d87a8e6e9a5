package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanValidate(t *testing.T) {
	plan := &Plan{
		Title:    "Ship the importer",
		Category: CategoryProject,
		Goal:     "Import legacy data without downtime",
		Status:   StatusPending,
	}
	assert.NoError(t, plan.Validate())

	missing := *plan
	missing.Title = ""
	assert.Error(t, missing.Validate())

	badCategory := *plan
	badCategory.Category = "gardening"
	err := badCategory.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid category")

	longGoal := *plan
	longGoal.Goal = string(make([]byte, 501))
	assert.Error(t, longGoal.Validate())
}

func TestPlanValidateRejectsInvalidTask(t *testing.T) {
	plan := &Plan{
		Title:    "Plan",
		Category: CategoryCode,
		Goal:     "Goal",
		Status:   StatusPending,
		Tasks: []*Task{
			{Title: "ok", Status: StatusPending, Priority: PriorityMedium},
			{Title: "", Status: StatusPending, Priority: PriorityMedium},
		},
	}
	err := plan.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "task 2")
}

func TestProgressPercentage(t *testing.T) {
	plan := &Plan{TotalTasks: 0, CompletedTasks: 0}
	assert.Equal(t, 0.0, plan.ProgressPercentage())
	assert.False(t, plan.IsCompleted())

	plan = &Plan{TotalTasks: 4, CompletedTasks: 1}
	assert.InDelta(t, 25.0, plan.ProgressPercentage(), 0.001)
	assert.False(t, plan.IsCompleted())

	plan = &Plan{TotalTasks: 3, CompletedTasks: 3}
	assert.InDelta(t, 100.0, plan.ProgressPercentage(), 0.001)
	assert.True(t, plan.IsCompleted())
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, ParsePriority("high"))
	assert.Equal(t, PriorityCritical, ParsePriority(" CRITICAL "))
	// Unknown or missing priorities silently default to medium
	assert.Equal(t, PriorityMedium, ParsePriority("urgent"))
	assert.Equal(t, PriorityMedium, ParsePriority(""))
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("system_design")
	assert.NoError(t, err)
	assert.Equal(t, CategorySystemDesign, c)

	_, err = ParseCategory("cooking")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "feature_development")
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("in_progress")
	assert.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("done")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "completed")
}
