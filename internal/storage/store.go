package storage

import (
	"context"

	"trustevo/internal/model"
)

// Store defines persistence operations for simulation outcomes. Getters
// report absence through the bool, never through an error.
type Store interface {
	Init(ctx context.Context) error
	SaveMatches(ctx context.Context, runID string, matches []model.MatchRecord) error
	GetMatches(ctx context.Context, runID string) ([]model.MatchRecord, bool, error)
	SavePopulationSnapshot(ctx context.Context, snapshot model.PopulationSnapshot) error
	GetPopulationSnapshot(ctx context.Context, id string) (model.PopulationSnapshot, bool, error)
	SaveGenerationSummaries(ctx context.Context, runID string, summaries []model.GenerationSummary) error
	GetGenerationSummaries(ctx context.Context, runID string) ([]model.GenerationSummary, bool, error)
	SaveScoreHistory(ctx context.Context, runID string, history []int) error
	GetScoreHistory(ctx context.Context, runID string) ([]int, bool, error)
}

// Resetter is implemented by stores that can drop all persisted run data.
type Resetter interface {
	Reset(ctx context.Context) error
}
