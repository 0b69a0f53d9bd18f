// Package stats persists per-run artifacts as plain files: one directory per
// run under a base directory, plus a shared run index.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"trustevo/internal/model"
)

const runIndexFile = "run_index.json"

// RunConfig is the fully resolved configuration a run was started with.
// It is written alongside the results so any run can be reproduced.
type RunConfig struct {
	RunID          string   `json:"run_id"`
	PopulationSize int      `json:"population_size"`
	Generations    int      `json:"generations"`
	MinRounds      int      `json:"min_rounds"`
	MaxRounds      int      `json:"max_rounds"`
	EliminateCount int      `json:"eliminate_count"`
	CloneCount     int      `json:"clone_count"`
	Strategies     []string `json:"strategies"`
	Provider       string   `json:"provider,omitempty"`
	Seed           int64    `json:"seed"`
	PayoffMatrix   string   `json:"payoff_matrix,omitempty"`
	RoundLogPath   string   `json:"round_log_path,omitempty"`
	StoreKind      string   `json:"store_kind,omitempty"`
}

// RunArtifacts is everything a finished (or halted) run leaves behind.
type RunArtifacts struct {
	Config            RunConfig                 `json:"config"`
	BestByGeneration  []int                     `json:"best_by_generation"`
	Summaries         []model.GenerationSummary `json:"summaries,omitempty"`
	FinalPopulation   []model.AgentRecord       `json:"final_population,omitempty"`
	FinalDistribution map[string]int            `json:"final_distribution,omitempty"`
	FinalBestScore    int                       `json:"final_best_score"`
	Stopped           bool                      `json:"stopped,omitempty"`
}

type RunIndexEntry struct {
	RunID          string `json:"run_id"`
	PopulationSize int    `json:"population_size"`
	Generations    int    `json:"generations"`
	Provider       string `json:"provider,omitempty"`
	Seed           int64  `json:"seed"`
	FinalBestScore int    `json:"final_best_score"`
	Stopped        bool   `json:"stopped,omitempty"`
	CreatedAtUTC   string `json:"created_at_utc"`
}

// WriteRunArtifacts lays out one run directory and returns its path.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := WriteRunConfig(baseDir, artifacts.Config.RunID, artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "score_history.json"), map[string]any{
		"best_by_generation": artifacts.BestByGeneration,
		"final_best_score":   artifacts.FinalBestScore,
		"stopped":            artifacts.Stopped,
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "generation_summaries.json"), artifacts.Summaries); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "final_population.json"), artifacts.FinalPopulation); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "distribution.json"), artifacts.FinalDistribution); err != nil {
		return "", err
	}
	if err := WriteScoreSeries(runDir, artifacts.BestByGeneration); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies one run's files into outDir/<runID>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{"config.json", "score_history.json", "generation_summaries.json", "final_population.json", "distribution.json"}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	seriesPath := filepath.Join(src, "score_series.csv")
	if _, err := os.Stat(seriesPath); err == nil {
		if err := copyFile(seriesPath, filepath.Join(dst, "score_series.csv")); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func WriteRunConfig(baseDir, runID string, cfg RunConfig) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(cfg.RunID) == "" {
		cfg.RunID = strings.TrimSpace(runID)
	}
	if cfg.RunID != strings.TrimSpace(runID) {
		return fmt.Errorf("run config run id mismatch: got=%s want=%s", cfg.RunID, strings.TrimSpace(runID))
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, "config.json"), cfg)
}

func ReadDistribution(baseDir, runID string) (map[string]int, bool, error) {
	path := filepath.Join(baseDir, runID, "distribution.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var distribution map[string]int
	if err := json.Unmarshal(data, &distribution); err != nil {
		return nil, false, err
	}
	return distribution, true, nil
}

func ReadGenerationSummaries(baseDir, runID string) ([]model.GenerationSummary, bool, error) {
	path := filepath.Join(baseDir, runID, "generation_summaries.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var summaries []model.GenerationSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, false, err
	}
	return summaries, true, nil
}

// WriteScoreSeries writes the best-score curve as CSV for plotting tools.
func WriteScoreSeries(runDir string, bestByGeneration []int) error {
	path := filepath.Join(runDir, "score_series.csv")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_score"}); err != nil {
		return err
	}
	for i, best := range bestByGeneration {
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			strconv.Itoa(best),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadScoreSeries(baseDir, runID string) ([]int, bool, error) {
	path := filepath.Join(baseDir, runID, "score_series.csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []int{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("score series header must have at least 2 columns")
	}

	series := make([]int, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("score series row must have at least 2 columns")
		}
		value, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
