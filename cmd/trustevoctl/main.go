// Command trustevoctl runs and inspects trust-game evolution simulations.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"trustevo/internal/storage"
	trustapi "trustevo/pkg/trustevo"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "matches":
		return runMatches(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "summaries":
		return runSummaries(ctx, args[1:])
	case "distribution":
		return runDistribution(ctx, args[1:])
	case "config":
		return runConfig(ctx, args[1:])
	case "population":
		return runPopulation(ctx, args[1:])
	case "strategies":
		return runStrategies(ctx, args[1:])
	case "providers":
		return runProviders(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type commonFlags struct {
	storeKind    *string
	dbPath       *string
	artifactsDir *string
	exportsDir   *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		storeKind:    fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:       fs.String("db-path", "trustevo.db", "sqlite database path"),
		artifactsDir: fs.String("artifacts-dir", "artifacts", "run artifacts directory"),
		exportsDir:   fs.String("exports-dir", "exports", "export output directory"),
	}
}

func (f commonFlags) newClient() (*trustapi.Client, error) {
	return trustapi.New(trustapi.Options{
		StoreKind:    *f.storeKind,
		DBPath:       *f.dbPath,
		ArtifactsDir: *f.artifactsDir,
		ExportsDir:   *f.exportsDir,
	})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *common.storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *common.storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	common := addCommonFlags(fs)
	configPath := fs.String("config", "", "optional YAML run config; flags override file values")
	population := fs.Int("population", 20, "population size")
	generations := fs.Int("generations", 50, "generation count")
	minRounds := fs.Int("min-rounds", 3, "minimum rounds per match")
	maxRounds := fs.Int("max-rounds", 7, "maximum rounds per match")
	eliminate := fs.Int("eliminate", 0, "agents eliminated per generation (0 for population/4)")
	clone := fs.Int("clone", 0, "agents cloned per generation (0 for population/4)")
	strategies := fs.String("strategies", "", "comma-separated strategy names (empty for all)")
	provider := fs.String("provider", "", "external decision provider name")
	seed := fs.Int64("seed", 1, "rng seed")
	roundLog := fs.String("round-log", "", "append per-round CSV log to this path")
	pacingMS := fs.Int("pacing-ms", 0, "delay between matches in milliseconds")
	jsonOut := fs.Bool("json", false, "emit run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})
	if *configPath == "" || setFlags["population"] {
		req.Population = *population
	}
	if *configPath == "" || setFlags["generations"] {
		req.Generations = *generations
	}
	if *configPath == "" || setFlags["min-rounds"] {
		req.MinRounds = *minRounds
	}
	if *configPath == "" || setFlags["max-rounds"] {
		req.MaxRounds = *maxRounds
	}
	if *configPath == "" || setFlags["eliminate"] {
		req.EliminateCount = *eliminate
	}
	if *configPath == "" || setFlags["clone"] {
		req.CloneCount = *clone
	}
	if *configPath == "" || setFlags["strategies"] {
		req.Strategies = splitList(*strategies)
	}
	if *configPath == "" || setFlags["provider"] {
		req.Provider = *provider
	}
	if *configPath == "" || setFlags["seed"] {
		req.Seed = *seed
	}
	if *configPath == "" || setFlags["round-log"] {
		req.RoundLogPath = *roundLog
	}
	if *configPath == "" || setFlags["pacing-ms"] {
		req.PacingDelay = time.Duration(*pacingMS) * time.Millisecond
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("run_id=%s artifacts=%s\n", summary.RunID, summary.ArtifactsDir)
	fmt.Printf("matches=%s generations=%d final_best_score=%s stopped=%t\n",
		humanize.Comma(int64(summary.Matches)),
		len(summary.BestByGeneration),
		humanize.Comma(int64(summary.FinalBestScore)),
		summary.Stopped,
	)
	printDistribution(summary.FinalDistribution)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	common := addCommonFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, trustapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, item := range runs {
		created := item.CreatedAtUTC
		if at, err := time.Parse(time.RFC3339Nano, item.CreatedAtUTC); err == nil {
			created = humanize.Time(at)
		}
		fmt.Printf("run_id=%s created=%s pop=%d gens=%d seed=%d provider=%s best=%s stopped=%t\n",
			item.RunID,
			created,
			item.Population,
			item.Generations,
			item.Seed,
			displayName(item.Provider),
			humanize.Comma(int64(item.FinalBestScore)),
			item.Stopped,
		)
	}
	return nil
}

func runMatches(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("matches", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	limit := fs.Int("limit", 20, "max matches to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit matches as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	matches, err := client.Matches(ctx, trustapi.MatchesRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("no matches")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}

	for _, m := range matches {
		fmt.Printf("gen=%d match_id=%s %s vs %s rounds=%d score=%d:%d\n",
			m.Generation,
			m.ID,
			m.AgentStrategy,
			m.OpponentStrategy,
			len(m.Rounds),
			m.AgentScore(),
			m.OpponentScore(),
		)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	limit := fs.Int("limit", 50, "max generations to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit score history as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.History(ctx, trustapi.HistoryRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no score history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_score=%d\n", i+1, best)
	}
	return nil
}

func runSummaries(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summaries", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	limit := fs.Int("limit", 50, "max generations to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit generation summaries as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summaries, err := client.Summaries(ctx, trustapi.SummariesRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no generation summaries")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	for _, s := range summaries {
		fmt.Printf("generation=%d best=%d mean=%.2f worst=%d matches=%d rounds=%d\n",
			s.Generation, s.BestScore, s.MeanScore, s.WorstScore, s.Matches, s.Rounds)
	}
	return nil
}

func runDistribution(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("distribution", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	jsonOut := fs.Bool("json", false, "emit distribution as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	dist, err := client.Distribution(ctx, trustapi.DistributionRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dist)
	}

	printDistribution(dist)
	return nil
}

func runConfig(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	jsonOut := fs.Bool("json", false, "emit run config as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	cfg, err := client.Config(ctx, trustapi.ConfigRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	fmt.Printf("run_id: %s\n", cfg.RunID)
	fmt.Printf("population: %d\n", cfg.PopulationSize)
	fmt.Printf("generations: %d\n", cfg.Generations)
	fmt.Printf("rounds: %d..%d\n", cfg.MinRounds, cfg.MaxRounds)
	fmt.Printf("eliminate/clone: %d/%d\n", cfg.EliminateCount, cfg.CloneCount)
	fmt.Printf("strategies: %s\n", strings.Join(cfg.Strategies, ", "))
	if cfg.Provider != "" {
		fmt.Printf("provider: %s\n", cfg.Provider)
	}
	fmt.Printf("seed: %d\n", cfg.Seed)
	return nil
}

func runPopulation(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("population", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	jsonOut := fs.Bool("json", false, "emit population as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	population, err := client.Population(ctx, trustapi.PopulationRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if len(population) == 0 {
		fmt.Println("no population snapshot")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(population)
	}

	for _, agent := range population {
		fmt.Printf("id=%s strategy=%s score=%d\n", agent.ID, agent.Strategy, agent.Score)
	}
	return nil
}

func runStrategies(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("strategies", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	for _, name := range client.Strategies(ctx) {
		fmt.Println(name)
	}
	return nil
}

func runProviders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	providers, err := client.Providers(ctx)
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		fmt.Println("no providers registered")
		return nil
	}
	for _, name := range providers {
		fmt.Println(name)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from the run index")
	outDir := fs.String("out", "", "output directory (defaults to exports-dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, trustapi.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func printDistribution(dist map[string]int) {
	names := make([]string, 0, len(dist))
	for name := range dist {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("strategy=%s count=%d\n", name, dist[name])
	}
}

func displayName(name string) string {
	if name == "" {
		return "none"
	}
	return name
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: trustevoctl <init|reset|run|runs|matches|history|summaries|distribution|config|population|strategies|providers|export> [flags]", msg)
}
