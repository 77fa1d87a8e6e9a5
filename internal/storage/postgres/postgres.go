// Package postgres implements the plan store on PostgreSQL with pgx
// connection pooling. The contract matches the sqlite backend exactly;
// serialization of competing aggregate updates relies on row locks taken
// by the UPDATE statements inside each transaction.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/planerhq/planer/internal/types"
)

// PostgresStorage implements the Storage interface using PostgreSQL
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL storage backend with connection pooling
func New(ctx context.Context, dsn string) (*PostgresStorage, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// CreatePlan atomically persists a plan and its tasks in one transaction
func (s *PostgresStorage) CreatePlan(ctx context.Context, plan *types.Plan) (*types.Plan, error) {
	if plan.Status == "" {
		plan.Status = types.StatusPending
	}
	for _, task := range plan.Tasks {
		if task.Status == "" {
			task.Status = types.StatusPending
		}
		if task.Priority == "" {
			task.Priority = types.PriorityMedium
		}
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	completed := 0
	for _, task := range plan.Tasks {
		if task.Status == types.StatusCompleted {
			completed++
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var planID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO plans (title, description, category, goal, status, total_tasks, completed_tasks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, plan.Title, plan.Description, plan.Category, plan.Goal, plan.Status,
		len(plan.Tasks), completed, now, now).Scan(&planID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert plan: %w", err)
	}

	for i, task := range plan.Tasks {
		deps, err := encodeDependencies(task.Dependencies)
		if err != nil {
			return nil, err
		}
		var taskID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO tasks (plan_id, title, description, status, priority, order_index, dependencies, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, planID, task.Title, task.Description, task.Status, task.Priority, i, deps, now, now).Scan(&taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert task %d: %w", i+1, err)
		}
		task.ID = taskID
		task.PlanID = planID
		task.OrderIndex = i
		task.CreatedAt = now
		task.UpdatedAt = now
	}

	if err := recordEvent(ctx, tx, planID, types.EventPlanCreated, nil, ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	plan.ID = planID
	plan.TotalTasks = len(plan.Tasks)
	plan.CompletedTasks = completed
	plan.CreatedAt = now
	plan.UpdatedAt = now

	return plan, nil
}

// GetPlan retrieves a plan with its tasks in order_index order
func (s *PostgresStorage) GetPlan(ctx context.Context, id int64) (*types.Plan, error) {
	var plan types.Plan
	var description *string

	err := s.pool.QueryRow(ctx, `
		SELECT id, title, description, category, goal, status,
		       total_tasks, completed_tasks, created_at, updated_at
		FROM plans
		WHERE id = $1
	`, id).Scan(
		&plan.ID, &plan.Title, &description, &plan.Category, &plan.Goal,
		&plan.Status, &plan.TotalTasks, &plan.CompletedTasks,
		&plan.CreatedAt, &plan.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if description != nil {
		plan.Description = *description
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, plan_id, title, description, status, priority, order_index,
		       dependencies, created_at, updated_at, completed_at
		FROM tasks
		WHERE plan_id = $1
		ORDER BY order_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var task types.Task
		var desc *string
		var deps string
		var completedAt *time.Time

		if err := rows.Scan(
			&task.ID, &task.PlanID, &task.Title, &desc, &task.Status,
			&task.Priority, &task.OrderIndex, &deps,
			&task.CreatedAt, &task.UpdatedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if desc != nil {
			task.Description = *desc
		}
		task.CompletedAt = completedAt
		task.Dependencies, err = decodeDependencies(deps)
		if err != nil {
			return nil, err
		}
		plan.Tasks = append(plan.Tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return &plan, nil
}

// ListPlans returns plan summaries ordered by most recently updated
func (s *PostgresStorage) ListPlans(ctx context.Context, filter types.PlanFilter) ([]*types.Plan, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = types.DefaultPageSize
	}

	whereSQL := ""
	if !filter.IncludeCompleted {
		whereSQL = "WHERE total_tasks = 0 OR completed_tasks < total_tasks"
	}

	querySQL := fmt.Sprintf(`
		SELECT id, title, description, category, goal, status,
		       total_tasks, completed_tasks, created_at, updated_at
		FROM plans
		%s
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, whereSQL)

	rows, err := s.pool.Query(ctx, querySQL, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*types.Plan
	for rows.Next() {
		var plan types.Plan
		var description *string
		if err := rows.Scan(
			&plan.ID, &plan.Title, &description, &plan.Category, &plan.Goal,
			&plan.Status, &plan.TotalTasks, &plan.CompletedTasks,
			&plan.CreatedAt, &plan.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		if description != nil {
			plan.Description = *description
		}
		plans = append(plans, &plan)
	}
	return plans, rows.Err()
}

// UpdateTaskStatus bulk-transitions tasks and recomputes plan aggregates
func (s *PostgresStorage) UpdateTaskStatus(ctx context.Context, taskIDs []int64, status types.Status, notes string) (bool, error) {
	if !status.IsValid() {
		return false, fmt.Errorf("invalid status: %s (valid: %s)", status, strings.Join(types.StatusValues(), ", "))
	}
	if len(taskIDs) == 0 {
		return false, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, "SELECT id, plan_id FROM tasks WHERE id = ANY($1) FOR UPDATE", taskIDs)
	if err != nil {
		return false, fmt.Errorf("failed to find tasks: %w", err)
	}
	var matchedIDs []int64
	planIDs := make(map[int64]bool)
	for rows.Next() {
		var taskID, planID int64
		if err := rows.Scan(&taskID, &planID); err != nil {
			rows.Close()
			return false, fmt.Errorf("failed to scan task: %w", err)
		}
		matchedIDs = append(matchedIDs, taskID)
		planIDs[planID] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	if len(matchedIDs) == 0 {
		return false, nil
	}

	now := time.Now()
	if status == types.StatusCompleted {
		_, err = tx.Exec(ctx, `
			UPDATE tasks SET status = $1, updated_at = $2, completed_at = COALESCE(completed_at, $2)
			WHERE id = ANY($3)
		`, status, now, matchedIDs)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE tasks SET status = $1, updated_at = $2
			WHERE id = ANY($3)
		`, status, now, matchedIDs)
	}
	if err != nil {
		return false, fmt.Errorf("failed to update tasks: %w", err)
	}

	for planID := range planIDs {
		if err := recomputePlanProgress(ctx, tx, planID, now); err != nil {
			return false, err
		}
		if err := recordEvent(ctx, tx, planID, types.EventStatusChanged, matchedIDs, notes); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// AddTasksToPlan appends tasks continuing from the current maximum order index
func (s *PostgresStorage) AddTasksToPlan(ctx context.Context, planID int64, tasks []*types.Task) (bool, error) {
	if len(tasks) == 0 {
		return false, nil
	}
	for _, task := range tasks {
		if task.Status == "" {
			task.Status = types.StatusPending
		}
		if task.Priority == "" {
			task.Priority = types.PriorityMedium
		}
		if err := task.Validate(); err != nil {
			return false, fmt.Errorf("validation failed: %w", err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var next int
	err = tx.QueryRow(ctx,
		"SELECT COALESCE(MAX(order_index), -1) + 1 FROM tasks WHERE plan_id = $1", planID).Scan(&next)
	if err != nil {
		return false, fmt.Errorf("failed to query max order index: %w", err)
	}

	now := time.Now()
	var taskIDs []int64
	for i, task := range tasks {
		deps, err := encodeDependencies(task.Dependencies)
		if err != nil {
			return false, err
		}
		var taskID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO tasks (plan_id, title, description, status, priority, order_index, dependencies, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, planID, task.Title, task.Description, task.Status, task.Priority, next+i, deps, now, now).Scan(&taskID)
		if err != nil {
			return false, fmt.Errorf("failed to insert task: %w", err)
		}
		task.ID = taskID
		task.PlanID = planID
		task.OrderIndex = next + i
		task.CreatedAt = now
		task.UpdatedAt = now
		taskIDs = append(taskIDs, taskID)
	}

	if err := recomputePlanProgress(ctx, tx, planID, now); err != nil {
		return false, err
	}
	if err := recordEvent(ctx, tx, planID, types.EventTasksAdded, taskIDs, ""); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// UpdatePlanInfo partially updates plan title/description
func (s *PostgresStorage) UpdatePlanInfo(ctx context.Context, planID int64, title, description *string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists int64
	err = tx.QueryRow(ctx, "SELECT id FROM plans WHERE id = $1 FOR UPDATE", planID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check plan: %w", err)
	}

	setClauses := []string{"updated_at = $1"}
	args := []any{time.Now()}

	if title != nil && *title != "" {
		if len(*title) > 200 {
			return false, fmt.Errorf("title must be 200 characters or less (got %d)", len(*title))
		}
		args = append(args, *title)
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", len(args)))
	}
	if description != nil {
		if len(*description) > 1000 {
			return false, fmt.Errorf("description must be 1000 characters or less (got %d)", len(*description))
		}
		args = append(args, *description)
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", len(args)))
	}
	args = append(args, planID)

	query := fmt.Sprintf("UPDATE plans SET %s WHERE id = $%d", strings.Join(setClauses, ", "), len(args))
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return false, fmt.Errorf("failed to update plan: %w", err)
	}

	if err := recordEvent(ctx, tx, planID, types.EventPlanUpdated, nil, ""); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// DeletePlan removes the plan; the foreign key cascades to its tasks
func (s *PostgresStorage) DeletePlan(ctx context.Context, planID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM plans WHERE id = $1", planID)
	if err != nil {
		return false, fmt.Errorf("failed to delete plan: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetEvents returns the most recent audit trail entries for a plan
func (s *PostgresStorage) GetEvents(ctx context.Context, planID int64, limit int) ([]*types.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, plan_id, event_type, task_ids, notes, created_at
		FROM events
		WHERE plan_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, planID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []*types.Event
	for rows.Next() {
		var ev types.Event
		var taskIDs, notes *string
		if err := rows.Scan(&ev.ID, &ev.PlanID, &ev.EventType, &taskIDs, &notes, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if taskIDs != nil && *taskIDs != "" {
			if err := json.Unmarshal([]byte(*taskIDs), &ev.TaskIDs); err != nil {
				return nil, fmt.Errorf("failed to decode event task ids: %w", err)
			}
		}
		if notes != nil {
			ev.Notes = *notes
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// Close releases the connection pool
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

func recomputePlanProgress(ctx context.Context, tx pgx.Tx, planID int64, now time.Time) error {
	var total, completed int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0)
		FROM tasks
		WHERE plan_id = $1 AND status != 'deleted'
	`, planID).Scan(&total, &completed)
	if err != nil {
		return fmt.Errorf("failed to count tasks: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE plans SET total_tasks = $1, completed_tasks = $2, updated_at = $3
		WHERE id = $4
	`, total, completed, now, planID)
	if err != nil {
		return fmt.Errorf("failed to update plan progress: %w", err)
	}
	return nil
}

func recordEvent(ctx context.Context, tx pgx.Tx, planID int64, eventType types.EventType, taskIDs []int64, notes string) error {
	var taskIDsJSON *string
	if len(taskIDs) > 0 {
		encoded, err := json.Marshal(taskIDs)
		if err != nil {
			return fmt.Errorf("failed to encode event task ids: %w", err)
		}
		s := string(encoded)
		taskIDsJSON = &s
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO events (plan_id, event_type, task_ids, notes)
		VALUES ($1, $2, $3, $4)
	`, planID, eventType, taskIDsJSON, notes)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

func encodeDependencies(deps []int) (string, error) {
	if deps == nil {
		deps = []int{}
	}
	encoded, err := json.Marshal(deps)
	if err != nil {
		return "", fmt.Errorf("failed to encode dependencies: %w", err)
	}
	return string(encoded), nil
}

func decodeDependencies(raw string) ([]int, error) {
	if raw == "" {
		return []int{}, nil
	}
	var deps []int
	if err := json.Unmarshal([]byte(raw), &deps); err != nil {
		return nil, fmt.Errorf("failed to decode dependencies: %w", err)
	}
	if deps == nil {
		deps = []int{}
	}
	return deps, nil
}
