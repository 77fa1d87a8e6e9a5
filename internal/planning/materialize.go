package planning

import (
	"fmt"

	"github.com/planerhq/planer/internal/types"
)

// GeneratedTask is the shape of one task object in a model response.
// Every field is optional; materialization supplies defaults.
type GeneratedTask struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Priority     string `json:"priority"`
	Dependencies []int  `json:"dependencies"`
}

// MaterializeTasks converts extracted task objects into domain tasks.
// Missing titles get a positional placeholder, unrecognized priorities
// default to medium, order index is the position in the generated
// sequence, and the dependency index list passes through unvalidated.
func MaterializeTasks(generated []GeneratedTask) []*types.Task {
	tasks := make([]*types.Task, 0, len(generated))
	for i, g := range generated {
		title := g.Title
		if title == "" {
			title = fmt.Sprintf("Task %d", i+1)
		}
		deps := g.Dependencies
		if deps == nil {
			deps = []int{}
		}
		tasks = append(tasks, &types.Task{
			Title:        title,
			Description:  g.Description,
			Status:       types.StatusPending,
			Priority:     types.ParsePriority(g.Priority),
			OrderIndex:   i,
			Dependencies: deps,
		})
	}
	return tasks
}
