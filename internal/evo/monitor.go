package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"trustevo/internal/game"
	"trustevo/internal/model"
	"trustevo/internal/tournament"
)

// MonitorCommand is a control signal delivered to a running simulation.
// Commands are honored between rounds of play, never mid-round.
type MonitorCommand string

const (
	CommandPause    MonitorCommand = "pause"
	CommandContinue MonitorCommand = "continue"
	CommandStop     MonitorCommand = "stop"
)

// ErrStopped reports a cooperative stop. All history recorded before the
// stop remains valid.
var ErrStopped = errors.New("simulation stopped")

// MonitorConfig configures a generation loop. Control and Logger are
// optional; PacingDelay throttles match turnover for display consumers and
// has no bearing on outcomes.
type MonitorConfig struct {
	Payoffs     game.PayoffTable
	Sink        game.RoundSink
	Generations int
	Rounds      tournament.RoundSpec
	EliminateN  int
	CloneN      int
	Seed        int64
	PacingDelay time.Duration
	Control     chan MonitorCommand
	Logger      *zap.Logger
}

// RunResult is the complete outcome of a simulation. FinalPopulation holds
// the last generation's agents with their tournament scores, captured before
// the closing evolution step; FinalDistribution reflects the population
// after it.
type RunResult struct {
	BestByGeneration  []int
	Summaries         []model.GenerationSummary
	Matches           []model.MatchRecord
	FinalPopulation   []model.AgentRecord
	FinalDistribution map[string]int
	Stopped           bool
}

// Monitor drives generations: one full round-robin tournament followed by
// one evolution step, repeated.
type Monitor struct {
	cfg       MonitorConfig
	rng       *rand.Rand
	scheduler *tournament.Scheduler
	logger    *zap.Logger
}

func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("generations must be > 0")
	}
	if err := cfg.Rounds.Validate(); err != nil {
		return nil, err
	}
	if cfg.EliminateN < 0 || cfg.CloneN < 0 {
		return nil, fmt.Errorf("elimination and clone counts must be >= 0")
	}
	if cfg.EliminateN != cfg.CloneN {
		return nil, fmt.Errorf("population size must be conserved: eliminate %d != clone %d", cfg.EliminateN, cfg.CloneN)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	engine, err := game.NewEngine(game.EngineConfig{Payoffs: cfg.Payoffs, Sink: cfg.Sink})
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: cfg.Logger,
	}
	m.scheduler, err = tournament.NewScheduler(tournament.SchedulerConfig{
		Engine:    engine,
		Rand:      m.rng,
		Interrupt: m.betweenMatches,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Run executes the configured number of generations over the initial
// population. A cooperative stop returns the partial result with Stopped
// set and a nil error; context cancellation returns the partial result
// together with the context error. Either way, every match record produced
// before the halt is intact.
func (m *Monitor) Run(ctx context.Context, initial []*game.Agent) (RunResult, error) {
	if len(initial) < 2 {
		return RunResult{}, fmt.Errorf("population must have at least 2 agents, got %d", len(initial))
	}
	if m.cfg.EliminateN >= len(initial) {
		return RunResult{}, fmt.Errorf("cannot eliminate %d of %d agents", m.cfg.EliminateN, len(initial))
	}

	population := append([]*game.Agent(nil), initial...)
	result := RunResult{
		BestByGeneration: make([]int, 0, m.cfg.Generations),
		Summaries:        make([]model.GenerationSummary, 0, m.cfg.Generations),
	}

	for gen := 1; gen <= m.cfg.Generations; gen++ {
		if err := m.checkControl(ctx); err != nil {
			return m.halt(result, population, err)
		}

		matches, err := m.scheduler.Run(ctx, population, m.cfg.Rounds, gen)
		result.Matches = append(result.Matches, matches...)
		if err != nil {
			return m.halt(result, population, err)
		}

		summary := summarizeGeneration(population, matches, gen)
		result.Summaries = append(result.Summaries, summary)
		result.BestByGeneration = append(result.BestByGeneration, summary.BestScore)
		result.FinalPopulation = recordAgents(population)

		m.logger.Info("generation complete",
			zap.Int("generation", gen),
			zap.Int("matches", summary.Matches),
			zap.Int("best_score", summary.BestScore),
			zap.Float64("mean_score", summary.MeanScore),
			zap.Int("worst_score", summary.WorstScore),
		)

		population, err = Evolve(population, m.cfg.EliminateN, m.cfg.CloneN)
		if err != nil {
			return result, err
		}
	}

	result.FinalDistribution = Distribution(population)
	return result, nil
}

// halt finishes a run that was stopped before completing all generations.
// Cooperative stops are not errors; cancellation is surfaced alongside the
// partial result.
func (m *Monitor) halt(result RunResult, population []*game.Agent, err error) (RunResult, error) {
	result.Stopped = true
	result.FinalPopulation = recordAgents(population)
	result.FinalDistribution = Distribution(population)
	if errors.Is(err, ErrStopped) {
		m.logger.Info("simulation stopped", zap.Int("generations_completed", len(result.Summaries)))
		return result, nil
	}
	return result, err
}

// betweenMatches runs between consecutive matches: it honors control
// commands and applies the display pacing delay.
func (m *Monitor) betweenMatches(ctx context.Context) error {
	if err := m.checkControl(ctx); err != nil {
		return err
	}
	if m.cfg.PacingDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(m.cfg.PacingDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// checkControl drains pending commands. Pause blocks until a continue or
// stop arrives; stop yields ErrStopped.
func (m *Monitor) checkControl(ctx context.Context) error {
	if m.cfg.Control == nil {
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-m.cfg.Control:
			switch cmd {
			case CommandStop:
				return ErrStopped
			case CommandPause:
				if err := m.waitForContinue(ctx); err != nil {
					return err
				}
			}
		default:
			return nil
		}
	}
}

func (m *Monitor) waitForContinue(ctx context.Context) error {
	m.logger.Info("simulation paused")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-m.cfg.Control:
			switch cmd {
			case CommandStop:
				return ErrStopped
			case CommandContinue:
				m.logger.Info("simulation continued")
				return nil
			}
		}
	}
}

func summarizeGeneration(population []*game.Agent, matches []model.MatchRecord, generation int) model.GenerationSummary {
	summary := model.GenerationSummary{
		Generation:   generation,
		Matches:      len(matches),
		Distribution: Distribution(population),
	}
	for _, match := range matches {
		summary.Rounds += len(match.Rounds)
	}
	if len(population) == 0 {
		return summary
	}

	total := 0
	best := population[0].Score()
	worst := population[0].Score()
	for _, agent := range population {
		score := agent.Score()
		total += score
		if score > best {
			best = score
		}
		if score < worst {
			worst = score
		}
	}
	summary.BestScore = best
	summary.WorstScore = worst
	summary.MeanScore = float64(total) / float64(len(population))
	return summary
}

func recordAgents(agents []*game.Agent) []model.AgentRecord {
	out := make([]model.AgentRecord, 0, len(agents))
	for _, agent := range agents {
		out = append(out, agent.Record())
	}
	return out
}
