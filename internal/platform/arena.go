// Package platform composes the simulation stack: population seeding,
// tournament generations, external decision providers, round logging, and
// persistence behind one facade.
package platform

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"trustevo/internal/evo"
	"trustevo/internal/game"
	"trustevo/internal/model"
	"trustevo/internal/oracle"
	"trustevo/internal/roundlog"
	"trustevo/internal/storage"
	"trustevo/internal/strategy"
	"trustevo/internal/tournament"
)

type Config struct {
	Store     storage.Store
	Providers *oracle.Registry
	Logger    *zap.Logger
}

type StopReason string

const (
	StopReasonNormal   StopReason = "normal"
	StopReasonShutdown StopReason = "shutdown"
)

// SimulationConfig is one run request, fully resolved. Payoffs defaults to
// the canonical table; Provider, when set, replaces one seeded slot with an
// external participant from the registry.
type SimulationConfig struct {
	RunID          string
	PopulationSize int
	Generations    int
	MinRounds      int
	MaxRounds      int
	EliminateCount int
	CloneCount     int
	Seed           int64
	Strategies     []strategy.Kind
	Provider       string
	Payoffs        game.PayoffTable
	RoundLogPath   string
	PacingDelay    time.Duration
	Control        chan evo.MonitorCommand
}

type SimulationResult struct {
	RunID             string
	BestByGeneration  []int
	Summaries         []model.GenerationSummary
	FinalPopulation   []model.AgentRecord
	FinalDistribution map[string]int
	FinalBestScore    int
	Matches           int
	Stopped           bool
}

// Arena owns the shared pieces of a deployment: the store, the provider
// registry, and the run-control channels of in-flight simulations.
type Arena struct {
	store     storage.Store
	providers *oracle.Registry
	logger    *zap.Logger

	mu             sync.RWMutex
	started        bool
	lastStopReason StopReason
	runs           map[string]chan evo.MonitorCommand
}

func NewArena(cfg Config) *Arena {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	providers := cfg.Providers
	if providers == nil {
		providers = oracle.NewRegistry()
	}
	return &Arena{
		store:          cfg.Store,
		providers:      providers,
		logger:         logger,
		runs:           make(map[string]chan evo.MonitorCommand),
		lastStopReason: StopReasonNormal,
	}
}

func (a *Arena) Init(ctx context.Context) error {
	if a.store == nil {
		return fmt.Errorf("store is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}
	if err := a.store.Init(ctx); err != nil {
		return err
	}
	a.started = true
	return nil
}

// Reset stops active runs, clears persisted run data when the store
// supports it, and re-initializes the arena.
func (a *Arena) Reset(ctx context.Context) error {
	_ = a.StopWithReason(StopReasonShutdown)
	if resetter, ok := a.store.(storage.Resetter); ok {
		if err := resetter.Reset(ctx); err != nil {
			return err
		}
	}
	return a.Init(ctx)
}

func (a *Arena) Started() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.started
}

func (a *Arena) LastStopReason() StopReason {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastStopReason
}

func (a *Arena) Stop() {
	_ = a.StopWithReason(StopReasonNormal)
}

func (a *Arena) Shutdown() {
	_ = a.StopWithReason(StopReasonShutdown)
}

// StopWithReason tears down the arena. In-flight runs receive a stop
// command through their control channels.
func (a *Arena) StopWithReason(reason StopReason) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return nil
	}
	for runID, control := range a.runs {
		select {
		case control <- evo.CommandStop:
		default:
			a.logger.Warn("run control channel full during shutdown", zap.String("run_id", runID))
		}
	}
	a.started = false
	a.lastStopReason = reason
	a.runs = make(map[string]chan evo.MonitorCommand)
	return nil
}

// RunSimulation plays a full evolutionary run and persists its outcome.
// Partial outcomes from a stopped or cancelled run are persisted as well.
func (a *Arena) RunSimulation(ctx context.Context, cfg SimulationConfig) (SimulationResult, error) {
	if !a.Started() {
		return SimulationResult{}, fmt.Errorf("arena is not initialized")
	}
	if cfg.PopulationSize < 2 {
		return SimulationResult{}, fmt.Errorf("population size must be >= 2, got %d", cfg.PopulationSize)
	}
	if len(cfg.Strategies) == 0 {
		return SimulationResult{}, fmt.Errorf("at least one strategy is required")
	}
	payoffs := cfg.Payoffs
	if payoffs == nil {
		payoffs = game.DefaultPayoffs()
	}

	runID := cfg.RunID
	if runID == "" {
		runID = fmt.Sprintf("sim:%d:%d", cfg.PopulationSize, cfg.Seed)
	}
	control := cfg.Control
	if control == nil {
		control = make(chan evo.MonitorCommand, 16)
	}
	if err := a.registerRunControl(runID, control); err != nil {
		return SimulationResult{}, err
	}
	defer a.unregisterRunControl(runID)

	var sink game.RoundSink
	if cfg.RoundLogPath != "" {
		logger, err := roundlog.New(cfg.RoundLogPath, payoffs)
		if err != nil {
			return SimulationResult{}, err
		}
		defer logger.Close()
		sink = logger
	}

	agents, err := a.seedPopulation(cfg, payoffs)
	if err != nil {
		return SimulationResult{}, err
	}

	monitor, err := evo.NewMonitor(evo.MonitorConfig{
		Payoffs:     payoffs,
		Sink:        sink,
		Generations: cfg.Generations,
		Rounds:      tournament.RoundSpec{Min: cfg.MinRounds, Max: cfg.MaxRounds},
		EliminateN:  cfg.EliminateCount,
		CloneN:      cfg.CloneCount,
		Seed:        cfg.Seed,
		PacingDelay: cfg.PacingDelay,
		Control:     control,
		Logger:      a.logger.With(zap.String("run_id", runID)),
	})
	if err != nil {
		return SimulationResult{}, err
	}

	result, runErr := monitor.Run(ctx, agents)
	if runErr != nil && len(result.Matches) == 0 && len(result.Summaries) == 0 {
		return SimulationResult{}, runErr
	}

	if err := a.persistRun(ctx, runID, result); err != nil {
		return SimulationResult{}, errors.Join(runErr, err)
	}

	out := SimulationResult{
		RunID:             runID,
		BestByGeneration:  result.BestByGeneration,
		Summaries:         result.Summaries,
		FinalPopulation:   result.FinalPopulation,
		FinalDistribution: result.FinalDistribution,
		Matches:           len(result.Matches),
		Stopped:           result.Stopped,
	}
	if n := len(result.BestByGeneration); n > 0 {
		out.FinalBestScore = result.BestByGeneration[n-1]
	}
	return out, runErr
}

// seedPopulation draws agents from the enabled strategies. With an external
// provider configured, one slot is taken by the external participant so the
// population size is unchanged.
func (a *Arena) seedPopulation(cfg SimulationConfig, payoffs game.PayoffTable) ([]*game.Agent, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	size := cfg.PopulationSize
	if cfg.Provider != "" {
		size--
	}
	agents, err := evo.ConstructSeedPopulation(cfg.Strategies, size, rng)
	if err != nil {
		return nil, err
	}

	if cfg.Provider != "" {
		provider, err := a.providers.Get(cfg.Provider)
		if err != nil {
			return nil, err
		}
		decider, err := oracle.NewDecider(provider, payoffs)
		if err != nil {
			return nil, err
		}
		external, err := game.NewExternalAgent(provider.Name(), decider)
		if err != nil {
			return nil, err
		}
		agents = append(agents, external)
	}
	return agents, nil
}

func (a *Arena) persistRun(ctx context.Context, runID string, result evo.RunResult) error {
	if err := a.store.SaveMatches(ctx, runID, result.Matches); err != nil {
		return fmt.Errorf("save matches: %w", err)
	}
	if err := a.store.SaveGenerationSummaries(ctx, runID, result.Summaries); err != nil {
		return fmt.Errorf("save summaries: %w", err)
	}
	if err := a.store.SaveScoreHistory(ctx, runID, result.BestByGeneration); err != nil {
		return fmt.Errorf("save score history: %w", err)
	}
	snapshot := model.PopulationSnapshot{
		ID:         runID,
		Generation: len(result.Summaries),
		Agents:     result.FinalPopulation,
	}
	if err := a.store.SavePopulationSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("save population snapshot: %w", err)
	}
	return nil
}

// StartBackgroundSimulation hosts a run on the supervisor and reports the
// outcome through onDone. A transient policy re-runs the simulation after a
// failure; the run id stays stable across restarts.
func (a *Arena) StartBackgroundSimulation(sup *Supervisor, cfg SimulationConfig, restart SupervisorRestartPolicy, onDone func(SimulationResult, error)) error {
	if sup == nil {
		return fmt.Errorf("supervisor is required")
	}
	if cfg.RunID == "" {
		cfg.RunID = fmt.Sprintf("sim:%d:%d", cfg.PopulationSize, cfg.Seed)
	}
	if restart == "" {
		restart = SupervisorRestartTemporary
	}
	return sup.StartSpec(SupervisorChildSpec{Name: cfg.RunID, Restart: restart}, func(ctx context.Context) error {
		result, err := a.RunSimulation(ctx, cfg)
		if onDone != nil {
			onDone(result, err)
		}
		return err
	})
}

func (a *Arena) PauseRun(runID string) error {
	return a.sendRunCommand(runID, evo.CommandPause)
}

func (a *Arena) ContinueRun(runID string) error {
	return a.sendRunCommand(runID, evo.CommandContinue)
}

func (a *Arena) StopRun(runID string) error {
	return a.sendRunCommand(runID, evo.CommandStop)
}

func (a *Arena) registerRunControl(runID string, control chan evo.MonitorCommand) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return fmt.Errorf("arena is not initialized")
	}
	if _, exists := a.runs[runID]; exists {
		return fmt.Errorf("run already active: %s", runID)
	}
	a.runs[runID] = control
	return nil
}

func (a *Arena) unregisterRunControl(runID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.runs, runID)
}

func (a *Arena) sendRunCommand(runID string, cmd evo.MonitorCommand) error {
	a.mu.RLock()
	control, ok := a.runs[runID]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run not active: %s", runID)
	}
	select {
	case control <- cmd:
		return nil
	default:
		return fmt.Errorf("run %s is not accepting commands", runID)
	}
}

func (a *Arena) ActiveRuns() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	runs := make([]string, 0, len(a.runs))
	for runID := range a.runs {
		runs = append(runs, runID)
	}
	return runs
}

func (a *Arena) Providers() []string {
	return a.providers.Names()
}

// RegisterProvider makes an external decision provider available to
// subsequent simulations. Registering a name again replaces it.
func (a *Arena) RegisterProvider(p oracle.Provider) {
	a.providers.Register(p)
}
