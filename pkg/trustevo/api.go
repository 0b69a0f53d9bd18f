// Package trustevo is the public entry point for running trust-game
// evolution simulations. A Client wires the store, the decision-provider
// registry, and the simulation arena behind a small request/response API.
package trustevo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"trustevo/internal/game"
	"trustevo/internal/model"
	"trustevo/internal/oracle"
	"trustevo/internal/platform"
	"trustevo/internal/stats"
	"trustevo/internal/storage"
	"trustevo/internal/strategy"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "trustevo.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *zap.Logger
}

type Client struct {
	store  storage.Store
	arena  *platform.Arena
	logger *zap.Logger

	artifactsDir string
	exportsDir   string
}

type RunRequest struct {
	Population     int
	Generations    int
	MinRounds      int
	MaxRounds      int
	EliminateCount int
	CloneCount     int
	Strategies     []string
	Provider       string
	Seed           int64
	RoundLogPath   string
	PacingDelay    time.Duration
}

type RunSummary struct {
	RunID             string
	ArtifactsDir      string
	BestByGeneration  []int
	FinalBestScore    int
	FinalDistribution map[string]int
	Matches           int
	Stopped           bool
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID          string
	CreatedAtUTC   string
	Seed           int64
	Population     int
	Generations    int
	Provider       string
	FinalBestScore int
	Stopped        bool
}

type MatchesRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type HistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type SummariesRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DistributionRequest struct {
	RunID  string
	Latest bool
}

type ConfigRequest struct {
	RunID  string
	Latest bool
}

type PopulationRequest struct {
	RunID  string
	Latest bool
}

type PopulationItem struct {
	ID       string
	Strategy string
	Score    int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		logger:       logger,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureArena(ctx)
	return err
}

// Reset drops persisted run data and reinitializes the arena. Run artifacts
// on disk are left alone.
func (c *Client) Reset(ctx context.Context) error {
	arena, err := c.ensureArena(ctx)
	if err != nil {
		return err
	}
	return arena.Reset(ctx)
}

// RegisterProvider adds an external decision provider under its own name.
// Registering again under the same name replaces the earlier provider.
func (c *Client) RegisterProvider(ctx context.Context, p oracle.Provider) error {
	arena, err := c.ensureArena(ctx)
	if err != nil {
		return err
	}
	arena.RegisterProvider(p)
	return nil
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Population <= 0 {
		req.Population = 20
	}
	if req.Generations <= 0 {
		req.Generations = 50
	}
	if req.MinRounds <= 0 {
		req.MinRounds = 3
	}
	if req.MaxRounds <= 0 {
		req.MaxRounds = 7
	}
	if req.EliminateCount <= 0 && req.CloneCount <= 0 {
		turnover := req.Population / 4
		if turnover < 1 {
			turnover = 1
		}
		req.EliminateCount = turnover
		req.CloneCount = turnover
	}
	if len(req.Strategies) == 0 {
		for _, kind := range strategy.Kinds() {
			req.Strategies = append(req.Strategies, string(kind))
		}
	}
	kinds, err := strategy.ParseAll(req.Strategies)
	if err != nil {
		return RunSummary{}, err
	}

	arena, err := c.ensureArena(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	payoffs := game.DefaultPayoffs()
	matrix, err := payoffs.Snapshot()
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("sim-%d-%d", req.Seed, now.Unix())

	result, runErr := arena.RunSimulation(ctx, platform.SimulationConfig{
		RunID:          runID,
		PopulationSize: req.Population,
		Generations:    req.Generations,
		MinRounds:      req.MinRounds,
		MaxRounds:      req.MaxRounds,
		EliminateCount: req.EliminateCount,
		CloneCount:     req.CloneCount,
		Seed:           req.Seed,
		Strategies:     kinds,
		Provider:       req.Provider,
		Payoffs:        payoffs,
		RoundLogPath:   req.RoundLogPath,
		PacingDelay:    req.PacingDelay,
	})
	if runErr != nil && result.Matches == 0 && len(result.Summaries) == 0 {
		return RunSummary{}, runErr
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:          runID,
			PopulationSize: req.Population,
			Generations:    req.Generations,
			MinRounds:      req.MinRounds,
			MaxRounds:      req.MaxRounds,
			EliminateCount: req.EliminateCount,
			CloneCount:     req.CloneCount,
			Strategies:     req.Strategies,
			Provider:       req.Provider,
			Seed:           req.Seed,
			PayoffMatrix:   matrix,
			RoundLogPath:   req.RoundLogPath,
		},
		BestByGeneration:  result.BestByGeneration,
		Summaries:         result.Summaries,
		FinalPopulation:   result.FinalPopulation,
		FinalDistribution: result.FinalDistribution,
		FinalBestScore:    result.FinalBestScore,
		Stopped:           result.Stopped,
	})
	if err != nil {
		return RunSummary{}, errors.Join(runErr, err)
	}

	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:          runID,
		PopulationSize: req.Population,
		Generations:    req.Generations,
		Provider:       req.Provider,
		Seed:           req.Seed,
		FinalBestScore: result.FinalBestScore,
		Stopped:        result.Stopped,
		CreatedAtUTC:   now.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, errors.Join(runErr, err)
	}

	return RunSummary{
		RunID:             runID,
		ArtifactsDir:      filepath.Clean(runDir),
		BestByGeneration:  append([]int(nil), result.BestByGeneration...),
		FinalBestScore:    result.FinalBestScore,
		FinalDistribution: result.FinalDistribution,
		Matches:           result.Matches,
		Stopped:           result.Stopped,
	}, runErr
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:          e.RunID,
			CreatedAtUTC:   e.CreatedAtUTC,
			Seed:           e.Seed,
			Population:     e.PopulationSize,
			Generations:    e.Generations,
			Provider:       e.Provider,
			FinalBestScore: e.FinalBestScore,
			Stopped:        e.Stopped,
		})
	}
	return out, nil
}

func (c *Client) Matches(ctx context.Context, req MatchesRequest) ([]model.MatchRecord, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "matches")
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	if _, err := c.ensureArena(ctx); err != nil {
		return nil, err
	}
	matches, ok, err := c.store.GetMatches(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("matches not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(matches) > req.Limit {
		matches = matches[:req.Limit]
	}
	return matches, nil
}

// History returns the best score per generation for a run.
func (c *Client) History(ctx context.Context, req HistoryRequest) ([]int, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "history")
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	if _, err := c.ensureArena(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetScoreHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The score series artifact outlives the store, so a reset or a
		// fresh in-memory store can still answer for archived runs.
		history, ok, err = stats.ReadScoreSeries(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("score history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]int(nil), history...), nil
}

func (c *Client) Summaries(ctx context.Context, req SummariesRequest) ([]model.GenerationSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "summaries")
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	if _, err := c.ensureArena(ctx); err != nil {
		return nil, err
	}
	summaries, ok, err := c.store.GetGenerationSummaries(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("generation summaries not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(summaries) > req.Limit {
		summaries = summaries[:req.Limit]
	}
	return summaries, nil
}

// Distribution returns the final strategy counts of a run.
func (c *Client) Distribution(_ context.Context, req DistributionRequest) (map[string]int, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "distribution")
	if err != nil {
		return nil, err
	}
	dist, ok, err := stats.ReadDistribution(c.artifactsDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("distribution not found for run id: %s", runID)
	}
	return dist, nil
}

// Config returns the configuration a run was started with, as persisted in
// its artifact directory.
func (c *Client) Config(_ context.Context, req ConfigRequest) (stats.RunConfig, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "config")
	if err != nil {
		return stats.RunConfig{}, err
	}
	cfg, ok, err := stats.ReadRunConfig(c.artifactsDir, runID)
	if err != nil {
		return stats.RunConfig{}, err
	}
	if !ok {
		return stats.RunConfig{}, fmt.Errorf("run config not found for run id: %s", runID)
	}
	return cfg, nil
}

func (c *Client) Population(ctx context.Context, req PopulationRequest) ([]PopulationItem, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "population")
	if err != nil {
		return nil, err
	}

	if _, err := c.ensureArena(ctx); err != nil {
		return nil, err
	}
	snapshot, ok, err := c.store.GetPopulationSnapshot(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("population snapshot not found for run id: %s", runID)
	}

	out := make([]PopulationItem, 0, len(snapshot.Agents))
	for _, agent := range snapshot.Agents {
		out = append(out, PopulationItem{ID: agent.ID, Strategy: agent.Strategy, Score: agent.Score})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Strategies lists the built-in decision rules available to simulations.
func (c *Client) Strategies(_ context.Context) []string {
	kinds := strategy.Kinds()
	out := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, string(kind))
	}
	return out
}

// Providers lists the registered external decision providers.
func (c *Client) Providers(ctx context.Context) ([]string, error) {
	arena, err := c.ensureArena(ctx)
	if err != nil {
		return nil, err
	}
	return arena.Providers(), nil
}

func (c *Client) PauseRun(ctx context.Context, runID string) error {
	arena, err := c.ensureArena(ctx)
	if err != nil {
		return err
	}
	return arena.PauseRun(runID)
}

func (c *Client) ContinueRun(ctx context.Context, runID string) error {
	arena, err := c.ensureArena(ctx)
	if err != nil {
		return err
	}
	return arena.ContinueRun(runID)
}

func (c *Client) StopRun(ctx context.Context, runID string) error {
	arena, err := c.ensureArena(ctx)
	if err != nil {
		return err
	}
	return arena.StopRun(runID)
}

func (c *Client) resolveRunID(runID string, latest bool, what string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) ensureArena(ctx context.Context) (*platform.Arena, error) {
	if c.arena != nil {
		return c.arena, nil
	}
	registry := oracle.NewRegistry()
	if err := registerDefaultProviders(registry); err != nil {
		return nil, err
	}
	arena := platform.NewArena(platform.Config{
		Store:     c.store,
		Providers: registry,
		Logger:    c.logger,
	})
	if err := arena.Init(ctx); err != nil {
		return nil, err
	}
	c.arena = arena
	return c.arena, nil
}

func registerDefaultProviders(registry *oracle.Registry) error {
	alwaysTrust, err := oracle.NewScriptedProvider("always-trust", []model.Action{model.ActionCooperate})
	if err != nil {
		return err
	}
	registry.Register(alwaysTrust)

	alwaysCheat, err := oracle.NewScriptedProvider("always-cheat", []model.Action{model.ActionDefect})
	if err != nil {
		return err
	}
	registry.Register(alwaysCheat)

	if os.Getenv(oracle.APIKeyEnv) != "" {
		claude, err := oracle.NewClaudeProvider(oracle.ClaudeConfig{})
		if err != nil {
			return err
		}
		registry.Register(claude)
	}
	return nil
}
