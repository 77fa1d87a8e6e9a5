// Package storage defines the plan store interface and backend selection.
package storage

import (
	"context"
	"fmt"

	"github.com/planerhq/planer/internal/storage/postgres"
	"github.com/planerhq/planer/internal/storage/sqlite"
	"github.com/planerhq/planer/internal/types"
)

// Storage is the consistency-preserving plan store. It is the sole mutator
// of persisted state: every multi-row mutation runs in a single transaction
// and plan aggregates are recomputed by counting, never adjusted in place.
//
// Expected not-found conditions are boolean/nil returns, not errors; errors
// are reserved for conditions the caller could not have avoided.
type Storage interface {
	// CreatePlan atomically persists a plan and its ordered tasks, assigning
	// ids, timestamps, and order indexes. No partial write on failure.
	CreatePlan(ctx context.Context, plan *types.Plan) (*types.Plan, error)

	// GetPlan loads a plan with its tasks in order_index order.
	// Returns (nil, nil) when the plan does not exist.
	GetPlan(ctx context.Context, id int64) (*types.Plan, error)

	// ListPlans returns plan summaries (tasks omitted), most recently
	// updated first. Unless IncludeCompleted is set, fully completed plans
	// are filtered out. A page past the end is an empty result, not an error.
	ListPlans(ctx context.Context, filter types.PlanFilter) ([]*types.Plan, error)

	// UpdateTaskStatus transitions every matching task to status with one
	// consistent timestamp for the batch, then recomputes aggregates for
	// each touched plan. Returns false only when none of the ids exist;
	// a partial match is accepted silently.
	UpdateTaskStatus(ctx context.Context, taskIDs []int64, status types.Status, notes string) (bool, error)

	// AddTasksToPlan appends tasks with order_index continuing from the
	// plan's current maximum and recomputes the plan's aggregates.
	AddTasksToPlan(ctx context.Context, planID int64, tasks []*types.Task) (bool, error)

	// UpdatePlanInfo partially updates title/description. A nil or empty
	// title is skipped; a non-nil description overwrites, so an empty value
	// explicitly clears it. Returns false when the plan does not exist.
	UpdatePlanInfo(ctx context.Context, planID int64, title, description *string) (bool, error)

	// DeletePlan removes the plan and cascades to all owned tasks.
	// Returns false when the plan does not exist.
	DeletePlan(ctx context.Context, planID int64) (bool, error)

	// GetEvents returns the most recent audit trail entries for a plan
	GetEvents(ctx context.Context, planID int64, limit int) ([]*types.Event, error)

	// Close releases the underlying connection
	Close() error
}

// Config holds database configuration
type Config struct {
	// Backend selects the storage implementation: "sqlite" (default) or "postgres"
	Backend string
	// Path is the SQLite database file path (default: ".planer/plans.db")
	Path string
	// DSN is the postgres connection string (required for the postgres backend)
	DSN string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: "sqlite",
		Path:    ".planer/plans.db",
	}
}

// NewStorage creates a storage backend from config
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Backend {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = ".planer/plans.db"
		}
		return sqlite.New(path)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres backend requires a DSN")
		}
		return postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
