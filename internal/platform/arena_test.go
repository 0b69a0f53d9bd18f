package platform

import (
	"context"
	"testing"
	"time"

	"trustevo/internal/evo"
	"trustevo/internal/model"
	"trustevo/internal/oracle"
	"trustevo/internal/storage"
	"trustevo/internal/strategy"
)

func newTestArena(t *testing.T, providers *oracle.Registry) (*Arena, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	arena := NewArena(Config{Store: store, Providers: providers})
	if err := arena.Init(context.Background()); err != nil {
		t.Fatalf("init arena: %v", err)
	}
	return arena, store
}

func baseSimulation() SimulationConfig {
	return SimulationConfig{
		RunID:          "run-1",
		PopulationSize: 4,
		Generations:    2,
		MinRounds:      2,
		MaxRounds:      2,
		EliminateCount: 1,
		CloneCount:     1,
		Seed:           7,
		Strategies:     []strategy.Kind{strategy.KindAlwaysCooperate, strategy.KindAlwaysDefect},
	}
}

func TestArenaInitRequiresStore(t *testing.T) {
	arena := NewArena(Config{})
	if err := arena.Init(context.Background()); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestArenaRunSimulationPersistsOutcome(t *testing.T) {
	arena, store := newTestArena(t, nil)
	ctx := context.Background()

	result, err := arena.RunSimulation(ctx, baseSimulation())
	if err != nil {
		t.Fatalf("run simulation: %v", err)
	}
	if result.RunID != "run-1" {
		t.Fatalf("run id = %s", result.RunID)
	}
	if len(result.Summaries) != 2 || len(result.BestByGeneration) != 2 {
		t.Fatalf("summaries = %d, history = %d, want 2 each", len(result.Summaries), len(result.BestByGeneration))
	}
	if result.Matches != 12 {
		t.Fatalf("matches = %d, want 12", result.Matches)
	}
	if result.Stopped {
		t.Fatal("completed run reported stopped")
	}

	matches, ok, err := store.GetMatches(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("persisted matches: ok=%v err=%v", ok, err)
	}
	if len(matches) != 12 {
		t.Fatalf("persisted matches = %d, want 12", len(matches))
	}
	history, ok, err := store.GetScoreHistory(ctx, "run-1")
	if err != nil || !ok || len(history) != 2 {
		t.Fatalf("persisted history: %v ok=%v err=%v", history, ok, err)
	}
	snapshot, ok, err := store.GetPopulationSnapshot(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("persisted snapshot: ok=%v err=%v", ok, err)
	}
	if snapshot.Generation != 2 || len(snapshot.Agents) != 4 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestArenaRunSimulationWithExternalProvider(t *testing.T) {
	registry := oracle.NewRegistry()
	scripted, err := oracle.NewScriptedProvider("scripted", []model.Action{model.ActionDefect})
	if err != nil {
		t.Fatalf("scripted provider: %v", err)
	}
	registry.Register(scripted)

	arena, store := newTestArena(t, registry)

	cfg := baseSimulation()
	cfg.RunID = "run-ext"
	cfg.PopulationSize = 3
	cfg.Generations = 1
	cfg.EliminateCount = 0
	cfg.CloneCount = 0
	cfg.Strategies = []strategy.Kind{strategy.KindAlwaysCooperate}
	cfg.Provider = "scripted"

	result, err := arena.RunSimulation(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run simulation: %v", err)
	}
	if len(result.FinalPopulation) != 3 {
		t.Fatalf("population = %d, want 3", len(result.FinalPopulation))
	}

	external := 0
	for _, agent := range result.FinalPopulation {
		if agent.Strategy == "scripted" {
			external++
			// Two cooperators, two rounds each: 3 points per round.
			if agent.Score != 12 {
				t.Fatalf("external agent score = %d, want 12", agent.Score)
			}
		}
	}
	if external != 1 {
		t.Fatalf("external agents = %d, want 1", external)
	}

	matches, ok, err := store.GetMatches(context.Background(), "run-ext")
	if err != nil || !ok {
		t.Fatalf("persisted matches: ok=%v err=%v", ok, err)
	}
	sawRationale := false
	for _, match := range matches {
		if match.AgentStrategy != "scripted" && match.OpponentStrategy != "scripted" {
			continue
		}
		for _, round := range match.Rounds {
			if round.Rationale != "" || round.OpponentRationale != "" {
				sawRationale = true
			}
		}
	}
	if !sawRationale {
		t.Fatal("external decisions recorded no rationale")
	}
}

func TestArenaRunSimulationValidation(t *testing.T) {
	arena, _ := newTestArena(t, nil)

	cfg := baseSimulation()
	cfg.PopulationSize = 1
	if _, err := arena.RunSimulation(context.Background(), cfg); err == nil {
		t.Fatal("expected error for tiny population")
	}

	cfg = baseSimulation()
	cfg.Strategies = nil
	if _, err := arena.RunSimulation(context.Background(), cfg); err == nil {
		t.Fatal("expected error without strategies")
	}

	cfg = baseSimulation()
	cfg.Provider = "absent"
	if _, err := arena.RunSimulation(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}

	stopped := NewArena(Config{Store: storage.NewMemoryStore()})
	if _, err := stopped.RunSimulation(context.Background(), baseSimulation()); err == nil {
		t.Fatal("expected error before init")
	}
}

func TestArenaStopCommandProducesPartialRun(t *testing.T) {
	arena, store := newTestArena(t, nil)

	control := make(chan evo.MonitorCommand, 1)
	control <- evo.CommandStop

	cfg := baseSimulation()
	cfg.RunID = "run-stop"
	cfg.Control = control

	result, err := arena.RunSimulation(context.Background(), cfg)
	if err != nil {
		t.Fatalf("stopped run should not error: %v", err)
	}
	if !result.Stopped {
		t.Fatal("result not marked stopped")
	}

	// Nothing played, but the run is still on record.
	snapshot, ok, err := store.GetPopulationSnapshot(context.Background(), "run-stop")
	if err != nil || !ok {
		t.Fatalf("persisted snapshot: ok=%v err=%v", ok, err)
	}
	if len(snapshot.Agents) != 4 {
		t.Fatalf("snapshot agents = %d, want 4", len(snapshot.Agents))
	}
}

func TestArenaRunCommandsRequireActiveRun(t *testing.T) {
	arena, _ := newTestArena(t, nil)
	if err := arena.PauseRun("absent"); err == nil {
		t.Fatal("expected error for unknown run")
	}
	if err := arena.StopRun("absent"); err == nil {
		t.Fatal("expected error for unknown run")
	}
	if runs := arena.ActiveRuns(); len(runs) != 0 {
		t.Fatalf("active runs = %v, want none", runs)
	}
}

func TestArenaBackgroundSimulation(t *testing.T) {
	arena, store := newTestArena(t, nil)
	sup := NewSupervisor(SupervisorPolicy{})

	cfg := baseSimulation()
	cfg.RunID = "run-bg"

	done := make(chan SimulationResult, 1)
	err := arena.StartBackgroundSimulation(sup, cfg, SupervisorRestartTemporary, func(result SimulationResult, err error) {
		if err != nil {
			t.Errorf("background run: %v", err)
		}
		done <- result
	})
	if err != nil {
		t.Fatalf("start background simulation: %v", err)
	}

	result := <-done
	if result.Matches != 12 {
		t.Fatalf("matches = %d, want 12", result.Matches)
	}
	waitFor(t, time.Second, func() bool { return len(sup.Tasks()) == 0 })

	if _, ok, err := store.GetMatches(context.Background(), "run-bg"); err != nil || !ok {
		t.Fatalf("persisted matches: ok=%v err=%v", ok, err)
	}
}

func TestArenaStopWithReason(t *testing.T) {
	arena, _ := newTestArena(t, nil)
	arena.Shutdown()
	if arena.Started() {
		t.Fatal("arena still started after shutdown")
	}
	if arena.LastStopReason() != StopReasonShutdown {
		t.Fatalf("stop reason = %s", arena.LastStopReason())
	}
}
