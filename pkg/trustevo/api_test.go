package trustevo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trustevo/internal/model"
	"trustevo/internal/oracle"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	base := t.TempDir()
	client, err := New(Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(base, "artifacts"),
		ExportsDir:   filepath.Join(base, "exports"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func smallRun(t *testing.T, client *Client) RunSummary {
	t.Helper()
	summary, err := client.Run(context.Background(), smallRunRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return summary
}

func smallRunRequest() RunRequest {
	return RunRequest{
		Population:     4,
		Generations:    3,
		MinRounds:      2,
		MaxRounds:      2,
		EliminateCount: 1,
		CloneCount:     1,
		Strategies:     []string{"always_cooperate", "always_defect"},
		Seed:           7,
	}
}

func TestClientRunRunsAndExport(t *testing.T) {
	client := newTestClient(t)
	summary := smallRun(t, client)

	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if len(summary.BestByGeneration) != 3 {
		t.Fatalf("unexpected generation history length: %d", len(summary.BestByGeneration))
	}
	if summary.Matches != 18 {
		t.Fatalf("unexpected match count: %d", summary.Matches)
	}
	if summary.Stopped {
		t.Fatal("run should complete normally")
	}
	if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, "config.json")); err != nil {
		t.Fatalf("expected run config on disk: %v", err)
	}

	runs, err := client.Runs(context.Background(), RunsRequest{Limit: 5})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) == 0 || runs[0].RunID != summary.RunID {
		t.Fatalf("expected latest run %s in runs list: %+v", summary.RunID, runs)
	}
	if runs[0].Population != 4 || runs[0].Generations != 3 {
		t.Fatalf("unexpected run item: %+v", runs[0])
	}

	history, err := client.History(context.Background(), HistoryRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("unexpected history length: %d", len(history))
	}

	matches, err := client.Matches(context.Background(), MatchesRequest{Latest: true, Limit: 4})
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if len(matches) != 4 {
		t.Fatalf("unexpected limited match count: %d", len(matches))
	}

	summaries, err := client.Summaries(context.Background(), SummariesRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 3 || summaries[0].Generation != 1 {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}

	dist, err := client.Distribution(context.Background(), DistributionRequest{Latest: true})
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}
	total := 0
	for _, n := range dist {
		total += n
	}
	if total != 4 {
		t.Fatalf("distribution should cover the population: %v", dist)
	}

	population, err := client.Population(context.Background(), PopulationRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("population: %v", err)
	}
	if len(population) != 4 {
		t.Fatalf("unexpected population size: %d", len(population))
	}

	export, err := client.Export(context.Background(), ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if export.RunID != summary.RunID {
		t.Fatalf("unexpected exported run: %s", export.RunID)
	}
	if _, err := os.Stat(filepath.Join(export.Directory, "score_history.json")); err != nil {
		t.Fatalf("expected exported score history: %v", err)
	}
}

func TestClientRunWithProvider(t *testing.T) {
	client := newTestClient(t)

	req := smallRunRequest()
	req.Provider = "always-cheat"
	summary, err := client.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	dist, err := client.Distribution(context.Background(), DistributionRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}
	found := false
	for name := range dist {
		if strings.Contains(name, "always-cheat") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected external participant in distribution: %v", dist)
	}
}

func TestClientRegisterProvider(t *testing.T) {
	client := newTestClient(t)

	scripted, err := oracle.NewScriptedProvider("custom", []model.Action{model.ActionCooperate, model.ActionDefect})
	if err != nil {
		t.Fatalf("scripted provider: %v", err)
	}
	if err := client.RegisterProvider(context.Background(), scripted); err != nil {
		t.Fatalf("register provider: %v", err)
	}

	providers, err := client.Providers(context.Background())
	if err != nil {
		t.Fatalf("providers: %v", err)
	}
	want := map[string]bool{"always-trust": false, "always-cheat": false, "custom": false}
	for _, name := range providers {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("expected provider %s in %v", name, providers)
		}
	}
}

func TestClientRunDefaults(t *testing.T) {
	client := newTestClient(t)

	summary, err := client.Run(context.Background(), RunRequest{
		Population:  4,
		Generations: 1,
		MinRounds:   1,
		MaxRounds:   1,
		Seed:        3,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(summary.BestByGeneration) != 1 {
		t.Fatalf("unexpected history: %v", summary.BestByGeneration)
	}

	runs, err := client.Runs(context.Background(), RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestClientQueryValidation(t *testing.T) {
	client := newTestClient(t)

	if _, err := client.Matches(context.Background(), MatchesRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected run id / latest conflict error")
	}
	if _, err := client.History(context.Background(), HistoryRequest{}); err == nil {
		t.Fatal("expected missing selector error")
	}
	if _, err := client.Distribution(context.Background(), DistributionRequest{Latest: true}); err == nil {
		t.Fatal("expected no-runs error")
	}
	if _, err := client.Matches(context.Background(), MatchesRequest{RunID: "missing"}); err == nil {
		t.Fatal("expected not-found error")
	}
	if _, err := client.Matches(context.Background(), MatchesRequest{RunID: "x", Limit: -1}); err == nil {
		t.Fatal("expected negative limit error")
	}
}

func TestClientStrategies(t *testing.T) {
	client := newTestClient(t)

	names := client.Strategies(context.Background())
	if len(names) != 8 {
		t.Fatalf("unexpected strategy count: %d", len(names))
	}
	seen := map[string]bool{}
	for _, name := range names {
		seen[name] = true
	}
	for _, want := range []string{"tit_for_tat", "grudger", "detective", "copykitten"} {
		if !seen[want] {
			t.Fatalf("missing strategy %s in %v", want, names)
		}
	}
}

func TestClientReset(t *testing.T) {
	client := newTestClient(t)
	summary := smallRun(t, client)

	if err := client.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if _, err := client.Matches(context.Background(), MatchesRequest{RunID: summary.RunID}); err == nil {
		t.Fatal("expected matches to be cleared")
	}

	// Artifacts on disk survive a store reset.
	if _, err := client.Distribution(context.Background(), DistributionRequest{RunID: summary.RunID}); err != nil {
		t.Fatalf("distribution after reset: %v", err)
	}
	history, err := client.History(context.Background(), HistoryRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("history after reset: %v", err)
	}
	if len(history) != len(summary.BestByGeneration) {
		t.Fatalf("history length after reset = %d, want %d", len(history), len(summary.BestByGeneration))
	}
}

func TestClientConfig(t *testing.T) {
	client := newTestClient(t)
	summary := smallRun(t, client)

	cfg, err := client.Config(context.Background(), ConfigRequest{Latest: true})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.RunID != summary.RunID {
		t.Fatalf("run id = %s, want %s", cfg.RunID, summary.RunID)
	}
	if cfg.PopulationSize != 4 || cfg.Generations != 3 {
		t.Fatalf("config = %d agents over %d generations, want 4 over 3", cfg.PopulationSize, cfg.Generations)
	}
	if cfg.Seed != 7 {
		t.Fatalf("seed = %d, want 7", cfg.Seed)
	}

	if _, err := client.Config(context.Background(), ConfigRequest{RunID: "missing"}); err == nil {
		t.Fatal("expected error for unknown run id")
	}
}

func TestClientUnknownStoreKind(t *testing.T) {
	if _, err := New(Options{StoreKind: "bolt"}); err == nil {
		t.Fatal("expected unsupported store error")
	}
}
