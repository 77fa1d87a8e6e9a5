// Package sqlite implements the plan store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/planerhq/planer/internal/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage backend
func New(path string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// execQueryer is satisfied by both *sql.Conn and *sql.Tx so transaction
// helpers can run inside either
type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreatePlan atomically persists a plan and its tasks in one transaction
func (s *SQLiteStorage) CreatePlan(ctx context.Context, plan *types.Plan) (*types.Plan, error) {
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

	// Acquire a dedicated connection for the transaction. We need raw
	// "BEGIN IMMEDIATE" to take the write lock up front, and database/sql's
	// pool would otherwise route statements to different connections.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, fmt.Errorf("failed to begin immediate transaction: %w", err)
	}

	// Use context.Background() for ROLLBACK so cleanup happens even if ctx
	// is canceled mid-transaction
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	completed := 0
	for _, task := range plan.Tasks {
		if task.Status == types.StatusCompleted {
			completed++
		}
	}

	res, err := conn.ExecContext(ctx, `
		INSERT INTO plans (title, description, category, goal, status, total_tasks, completed_tasks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, plan.Title, plan.Description, plan.Category, plan.Goal, plan.Status,
		len(plan.Tasks), completed, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert plan: %w", err)
	}
	planID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get plan id: %w", err)
	}

	for i, task := range plan.Tasks {
		deps, err := encodeDependencies(task.Dependencies)
		if err != nil {
			return nil, err
		}
		res, err := conn.ExecContext(ctx, `
			INSERT INTO tasks (plan_id, title, description, status, priority, order_index, dependencies, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, planID, task.Title, task.Description, task.Status, task.Priority, i, deps, now, now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert task %d: %w", i+1, err)
		}
		taskID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get task id: %w", err)
		}
		task.ID = taskID
		task.PlanID = planID
		task.OrderIndex = i
		task.CreatedAt = now
		task.UpdatedAt = now
	}

	if err := recordEvent(ctx, conn, planID, types.EventPlanCreated, nil, ""); err != nil {
		return nil, err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	plan.ID = planID
	plan.TotalTasks = len(plan.Tasks)
	plan.CompletedTasks = completed
	plan.CreatedAt = now
	plan.UpdatedAt = now

	return plan, nil
}

// GetPlan retrieves a plan with its tasks in order_index order.
// Returns (nil, nil) when the plan does not exist.
func (s *SQLiteStorage) GetPlan(ctx context.Context, id int64) (*types.Plan, error) {
	var plan types.Plan
	var description sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, category, goal, status,
		       total_tasks, completed_tasks, created_at, updated_at
		FROM plans
		WHERE id = ?
	`, id).Scan(
		&plan.ID, &plan.Title, &description, &plan.Category, &plan.Goal,
		&plan.Status, &plan.TotalTasks, &plan.CompletedTasks,
		&plan.CreatedAt, &plan.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if description.Valid {
		plan.Description = description.String
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, title, description, status, priority, order_index,
		       dependencies, created_at, updated_at, completed_at
		FROM tasks
		WHERE plan_id = ?
		ORDER BY order_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var task types.Task
		var desc sql.NullString
		var deps string
		var completedAt sql.NullTime

		if err := rows.Scan(
			&task.ID, &task.PlanID, &task.Title, &desc, &task.Status,
			&task.Priority, &task.OrderIndex, &deps,
			&task.CreatedAt, &task.UpdatedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if desc.Valid {
			task.Description = desc.String
		}
		if completedAt.Valid {
			task.CompletedAt = &completedAt.Time
		}
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
func (s *SQLiteStorage) ListPlans(ctx context.Context, filter types.PlanFilter) ([]*types.Plan, error) {
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
		LIMIT ? OFFSET ?
	`, whereSQL)

	rows, err := s.db.QueryContext(ctx, querySQL, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*types.Plan
	for rows.Next() {
		var plan types.Plan
		var description sql.NullString
		if err := rows.Scan(
			&plan.ID, &plan.Title, &description, &plan.Category, &plan.Goal,
			&plan.Status, &plan.TotalTasks, &plan.CompletedTasks,
			&plan.CreatedAt, &plan.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		if description.Valid {
			plan.Description = description.String
		}
		plans = append(plans, &plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}

	return plans, nil
}

// UpdateTaskStatus bulk-transitions tasks and recomputes aggregates for
// every distinct plan touched, all in one transaction
func (s *SQLiteStorage) UpdateTaskStatus(ctx context.Context, taskIDs []int64, status types.Status, notes string) (bool, error) {
	if !status.IsValid() {
		return false, fmt.Errorf("invalid status: %s (valid: %s)", status, strings.Join(types.StatusValues(), ", "))
	}
	if len(taskIDs) == 0 {
		return false, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return false, fmt.Errorf("failed to begin immediate transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(taskIDs)), ",")
	args := make([]any, len(taskIDs))
	for i, id := range taskIDs {
		args[i] = id
	}

	rows, err := conn.QueryContext(ctx,
		fmt.Sprintf("SELECT id, plan_id FROM tasks WHERE id IN (%s)", placeholders), args...)
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

	// Partial match is accepted silently; only a fully unmatched batch
	// is a no-op failure
	if len(matchedIDs) == 0 {
		return false, nil
	}

	// One consistent timestamp for the whole batch
	now := time.Now()

	matchedPlaceholders := strings.TrimSuffix(strings.Repeat("?,", len(matchedIDs)), ",")
	updateArgs := []any{status, now}
	updateSQL := fmt.Sprintf("UPDATE tasks SET status = ?, updated_at = ? WHERE id IN (%s)", matchedPlaceholders)
	if status == types.StatusCompleted {
		// completed_at is set on first entry to completed and never
		// rewritten or cleared afterwards
		updateSQL = fmt.Sprintf("UPDATE tasks SET status = ?, updated_at = ?, completed_at = COALESCE(completed_at, ?) WHERE id IN (%s)", matchedPlaceholders)
		updateArgs = append(updateArgs, now)
	}
	for _, id := range matchedIDs {
		updateArgs = append(updateArgs, id)
	}
	if _, err := conn.ExecContext(ctx, updateSQL, updateArgs...); err != nil {
		return false, fmt.Errorf("failed to update tasks: %w", err)
	}

	for planID := range planIDs {
		if err := recomputePlanProgress(ctx, conn, planID, now); err != nil {
			return false, err
		}
		if err := recordEvent(ctx, conn, planID, types.EventStatusChanged, matchedIDs, notes); err != nil {
			return false, err
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	return true, nil
}

// AddTasksToPlan appends tasks continuing from the current maximum order index
func (s *SQLiteStorage) AddTasksToPlan(ctx context.Context, planID int64, tasks []*types.Task) (bool, error) {
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

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return false, fmt.Errorf("failed to begin immediate transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	var maxIndex sql.NullInt64
	err = conn.QueryRowContext(ctx,
		"SELECT MAX(order_index) FROM tasks WHERE plan_id = ?", planID).Scan(&maxIndex)
	if err != nil {
		return false, fmt.Errorf("failed to query max order index: %w", err)
	}
	next := 0
	if maxIndex.Valid {
		next = int(maxIndex.Int64) + 1
	}

	now := time.Now()
	var taskIDs []int64
	for i, task := range tasks {
		deps, err := encodeDependencies(task.Dependencies)
		if err != nil {
			return false, err
		}
		res, err := conn.ExecContext(ctx, `
			INSERT INTO tasks (plan_id, title, description, status, priority, order_index, dependencies, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, planID, task.Title, task.Description, task.Status, task.Priority, next+i, deps, now, now)
		if err != nil {
			return false, fmt.Errorf("failed to insert task: %w", err)
		}
		taskID, err := res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("failed to get task id: %w", err)
		}
		task.ID = taskID
		task.PlanID = planID
		task.OrderIndex = next + i
		task.CreatedAt = now
		task.UpdatedAt = now
		taskIDs = append(taskIDs, taskID)
	}

	if err := recomputePlanProgress(ctx, conn, planID, now); err != nil {
		return false, err
	}
	if err := recordEvent(ctx, conn, planID, types.EventTasksAdded, taskIDs, ""); err != nil {
		return false, err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	return true, nil
}

// UpdatePlanInfo partially updates plan title/description
func (s *SQLiteStorage) UpdatePlanInfo(ctx context.Context, planID int64, title, description *string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM plans WHERE id = ?", planID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check plan: %w", err)
	}

	setClauses := []string{"updated_at = ?"}
	args := []any{time.Now()}

	// An empty title is skipped, preserving the existing one; an empty
	// description explicitly clears it
	if title != nil && *title != "" {
		if len(*title) > 200 {
			return false, fmt.Errorf("title must be 200 characters or less (got %d)", len(*title))
		}
		setClauses = append(setClauses, "title = ?")
		args = append(args, *title)
	}
	if description != nil {
		if len(*description) > 1000 {
			return false, fmt.Errorf("description must be 1000 characters or less (got %d)", len(*description))
		}
		setClauses = append(setClauses, "description = ?")
		args = append(args, *description)
	}
	args = append(args, planID)

	query := fmt.Sprintf("UPDATE plans SET %s WHERE id = ?", strings.Join(setClauses, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("failed to update plan: %w", err)
	}

	if err := recordEvent(ctx, tx, planID, types.EventPlanUpdated, nil, ""); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// DeletePlan removes the plan; the foreign key cascades to its tasks
func (s *SQLiteStorage) DeletePlan(ctx context.Context, planID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM plans WHERE id = ?", planID)
	if err != nil {
		return false, fmt.Errorf("failed to delete plan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetEvents returns the most recent audit trail entries for a plan
func (s *SQLiteStorage) GetEvents(ctx context.Context, planID int64, limit int) ([]*types.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, event_type, task_ids, notes, created_at
		FROM events
		WHERE plan_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, planID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []*types.Event
	for rows.Next() {
		var ev types.Event
		var taskIDs, notes sql.NullString
		if err := rows.Scan(&ev.ID, &ev.PlanID, &ev.EventType, &taskIDs, &notes, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if taskIDs.Valid && taskIDs.String != "" {
			if err := json.Unmarshal([]byte(taskIDs.String), &ev.TaskIDs); err != nil {
				return nil, fmt.Errorf("failed to decode event task ids: %w", err)
			}
		}
		if notes.Valid {
			ev.Notes = notes.String
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// recomputePlanProgress derives the plan aggregates by counting current
// task rows (excluding deleted), never by incrementing in place
func recomputePlanProgress(ctx context.Context, q execQueryer, planID int64, now time.Time) error {
	var total, completed int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0)
		FROM tasks
		WHERE plan_id = ? AND status != 'deleted'
	`, planID).Scan(&total, &completed)
	if err != nil {
		return fmt.Errorf("failed to count tasks: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		UPDATE plans SET total_tasks = ?, completed_tasks = ?, updated_at = ?
		WHERE id = ?
	`, total, completed, now, planID)
	if err != nil {
		return fmt.Errorf("failed to update plan progress: %w", err)
	}
	return nil
}

// recordEvent appends an audit trail entry inside the caller's transaction
func recordEvent(ctx context.Context, q execQueryer, planID int64, eventType types.EventType, taskIDs []int64, notes string) error {
	var taskIDsJSON any
	if len(taskIDs) > 0 {
		encoded, err := json.Marshal(taskIDs)
		if err != nil {
			return fmt.Errorf("failed to encode event task ids: %w", err)
		}
		taskIDsJSON = string(encoded)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO events (plan_id, event_type, task_ids, notes)
		VALUES (?, ?, ?, ?)
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
