package tournament

import (
	"context"
	"fmt"
	"math/rand"

	"trustevo/internal/game"
	"trustevo/internal/model"
)

// RoundSpec is a per-match round count: fixed when Min == Max, otherwise an
// inclusive range redrawn independently for every match.
type RoundSpec struct {
	Min int
	Max int
}

// FixedRounds is a spec that always yields n rounds.
func FixedRounds(n int) RoundSpec {
	return RoundSpec{Min: n, Max: n}
}

func (s RoundSpec) Validate() error {
	if s.Min < 0 {
		return fmt.Errorf("round count must be >= 0, got %d", s.Min)
	}
	if s.Max < s.Min {
		return fmt.Errorf("round range max %d below min %d", s.Max, s.Min)
	}
	return nil
}

// Fixed reports whether the round count is constant.
func (s RoundSpec) Fixed() bool {
	return s.Min == s.Max
}

// Draw picks a concrete round count. With a range the outcome depends on the
// random source; runs are reproducible only under a fixed seed.
func (s RoundSpec) Draw(rng *rand.Rand) int {
	if s.Fixed() {
		return s.Min
	}
	return s.Min + rng.Intn(s.Max-s.Min+1)
}

// SchedulerConfig configures a round-robin scheduler. Interrupt, when set,
// runs between matches; returning an error halts the tournament while
// keeping the records completed so far. Pause and stop signals ride on it.
type SchedulerConfig struct {
	Engine    *game.Engine
	Rand      *rand.Rand
	Interrupt func(ctx context.Context) error
}

// Scheduler plays every unique unordered pair of a population through the
// match engine exactly once per generation.
type Scheduler struct {
	engine    *game.Engine
	rng       *rand.Rand
	interrupt func(ctx context.Context) error
}

func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("match engine is required")
	}
	if cfg.Rand == nil {
		return nil, fmt.Errorf("random source is required")
	}
	return &Scheduler{engine: cfg.Engine, rng: cfg.Rand, interrupt: cfg.Interrupt}, nil
}

// Run plays one round-robin tournament: K*(K-1)/2 matches for K agents,
// each unordered pair exactly once. Cancellation between or during matches
// returns the records completed so far together with the error.
func (s *Scheduler) Run(ctx context.Context, agents []*game.Agent, spec RoundSpec, generation int) ([]model.MatchRecord, error) {
	if len(agents) < 2 {
		return nil, fmt.Errorf("round-robin needs at least 2 agents, got %d", len(agents))
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	records := make([]model.MatchRecord, 0, len(agents)*(len(agents)-1)/2)
	for i := 0; i < len(agents); i++ {
		for j := i + 1; j < len(agents); j++ {
			if s.interrupt != nil {
				if err := s.interrupt(ctx); err != nil {
					return records, err
				}
			}
			if err := ctx.Err(); err != nil {
				return records, err
			}

			rounds := spec.Draw(s.rng)
			record, err := s.engine.Play(ctx, agents[i], agents[j], rounds, generation)
			if err != nil {
				if len(record.Rounds) > 0 {
					records = append(records, record)
				}
				return records, err
			}
			records = append(records, record)
		}
	}
	return records, nil
}
