package types

import (
	"fmt"
	"strings"
	"time"
)

// Plan is a titled goal with an ordered, owned collection of tasks and
// derived progress aggregates. Values returned by storage are detached
// snapshots; mutating them has no effect until passed back through a
// storage operation.
type Plan struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Category       Category  `json:"category"`
	Goal           string    `json:"goal"`
	Status         Status    `json:"status"`
	TotalTasks     int       `json:"total_tasks"`
	CompletedTasks int       `json:"completed_tasks"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Tasks          []*Task   `json:"tasks,omitempty"`
}

// Validate checks if the plan has valid field values
func (p *Plan) Validate() error {
	if len(p.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(p.Title) > 200 {
		return fmt.Errorf("title must be 200 characters or less (got %d)", len(p.Title))
	}
	if len(p.Description) > 1000 {
		return fmt.Errorf("description must be 1000 characters or less (got %d)", len(p.Description))
	}
	if len(p.Goal) == 0 {
		return fmt.Errorf("goal is required")
	}
	if len(p.Goal) > 500 {
		return fmt.Errorf("goal must be 500 characters or less (got %d)", len(p.Goal))
	}
	if !p.Category.IsValid() {
		return fmt.Errorf("invalid category: %s (valid: %s)", p.Category, strings.Join(CategoryValues(), ", "))
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("invalid status: %s (valid: %s)", p.Status, strings.Join(StatusValues(), ", "))
	}
	for i, task := range p.Tasks {
		if err := task.Validate(); err != nil {
			return fmt.Errorf("task %d invalid: %w", i+1, err)
		}
	}
	return nil
}

// ProgressPercentage returns completion as a percentage of total tasks.
// A plan with no tasks is 0%, not a division error.
func (p *Plan) ProgressPercentage() float64 {
	if p.TotalTasks == 0 {
		return 0.0
	}
	return float64(p.CompletedTasks) / float64(p.TotalTasks) * 100
}

// IsCompleted reports whether every task in a non-empty plan is completed
func (p *Plan) IsCompleted() bool {
	return p.TotalTasks > 0 && p.CompletedTasks == p.TotalTasks
}

// Task is one unit of work owned by exactly one plan.
//
// Dependencies are 0-based positions into the plan's task list as it stood
// at generation time, not task IDs. They are informational and are not
// rewritten when tasks are later reordered or deleted.
type Task struct {
	ID           int64      `json:"id"`
	PlanID       int64      `json:"plan_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority"`
	OrderIndex   int        `json:"order_index"`
	Dependencies []int      `json:"dependencies"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Validate checks if the task has valid field values
func (t *Task) Validate() error {
	if len(t.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(t.Title) > 200 {
		return fmt.Errorf("title must be 200 characters or less (got %d)", len(t.Title))
	}
	if len(t.Description) > 1000 {
		return fmt.Errorf("description must be 1000 characters or less (got %d)", len(t.Description))
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid status: %s (valid: %s)", t.Status, strings.Join(StatusValues(), ", "))
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s (valid: %s)", t.Priority, strings.Join(PriorityValues(), ", "))
	}
	return nil
}

// Status represents the current state of a plan or task
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDeleted    Status = "deleted"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusDeleted:
		return true
	}
	return false
}

// StatusValues returns all valid status tokens in declaration order
func StatusValues() []string {
	return []string{
		string(StatusPending),
		string(StatusInProgress),
		string(StatusCompleted),
		string(StatusDeleted),
	}
}

// Priority categorizes how urgent a task is
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid checks if the priority value is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ParsePriority returns the priority for a token from the generative
// service, defaulting to medium on anything unrecognized. Bad priorities
// from the model are never an error.
func ParsePriority(s string) Priority {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p.IsValid() {
		return p
	}
	return PriorityMedium
}

// PriorityValues returns all valid priority tokens in declaration order
func PriorityValues() []string {
	return []string{
		string(PriorityLow),
		string(PriorityMedium),
		string(PriorityHigh),
		string(PriorityCritical),
	}
}

// Category is the planning domain a plan belongs to
type Category string

const (
	CategoryProject            Category = "project"
	CategoryPersonal           Category = "personal"
	CategoryLearning           Category = "learning"
	CategoryBusiness           Category = "business"
	CategoryCreative           Category = "creative"
	CategoryResearch           Category = "research"
	CategoryMaintenance        Category = "maintenance"
	CategoryCode               Category = "code"
	CategoryDebugging          Category = "debugging"
	CategoryBackend            Category = "backend"
	CategoryFrontend           Category = "frontend"
	CategorySystemDesign       Category = "system_design"
	CategoryFeatureDevelopment Category = "feature_development"
)

// IsValid checks if the category value is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryProject, CategoryPersonal, CategoryLearning, CategoryBusiness,
		CategoryCreative, CategoryResearch, CategoryMaintenance, CategoryCode,
		CategoryDebugging, CategoryBackend, CategoryFrontend, CategorySystemDesign,
		CategoryFeatureDevelopment:
		return true
	}
	return false
}

// CategoryValues returns all valid category tokens in declaration order
func CategoryValues() []string {
	return []string{
		string(CategoryProject),
		string(CategoryPersonal),
		string(CategoryLearning),
		string(CategoryBusiness),
		string(CategoryCreative),
		string(CategoryResearch),
		string(CategoryMaintenance),
		string(CategoryCode),
		string(CategoryDebugging),
		string(CategoryBackend),
		string(CategoryFrontend),
		string(CategorySystemDesign),
		string(CategoryFeatureDevelopment),
	}
}

// ParseCategory returns the category for a caller-supplied token, or an
// error enumerating the valid vocabulary. Unlike priority, a bad category
// is rejected at the boundary.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid category: %s (valid: %s)", s, strings.Join(CategoryValues(), ", "))
	}
	return c, nil
}

// ParseStatus returns the status for a caller-supplied token, or an error
// enumerating the valid vocabulary.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("invalid status: %s (valid: %s)", s, strings.Join(StatusValues(), ", "))
	}
	return st, nil
}

// PlanFilter is used to filter and paginate plan listings
type PlanFilter struct {
	IncludeCompleted bool
	Page             int // 1-based; values below 1 are treated as 1
	PageSize         int // defaults to DefaultPageSize when <= 0
}

// DefaultPageSize is the listing page size when the caller does not supply one
const DefaultPageSize = 30

// Event is an audit trail entry recorded alongside plan/task mutations
type Event struct {
	ID        int64     `json:"id"`
	PlanID    int64     `json:"plan_id"`
	EventType EventType `json:"event_type"`
	TaskIDs   []int64   `json:"task_ids,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType categorizes audit trail events
type EventType string

const (
	EventPlanCreated   EventType = "plan_created"
	EventPlanUpdated   EventType = "plan_updated"
	EventTasksAdded    EventType = "tasks_added"
	EventStatusChanged EventType = "status_changed"
)
