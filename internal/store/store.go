package store

import (
	"context"

	"github.com/me/makespan/pkg/model"
)

// Store defines the persistence layer for finished solver runs.
type Store interface {
	// Run lifecycle
	CreateRun(ctx context.Context, run *model.Run) error
	FinishRun(ctx context.Context, id string, state model.RunState, upper, lower uint32) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error)

	// Solutions of a run, ranked by makespan
	SaveSolutions(ctx context.Context, runID string, sols []model.SolutionView) error
	ListSolutions(ctx context.Context, runID string) ([]model.SolutionView, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
