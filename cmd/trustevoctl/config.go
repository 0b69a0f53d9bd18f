package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	trustapi "trustevo/pkg/trustevo"
)

// runConfigFile mirrors RunRequest for YAML run configs. Unknown keys are
// rejected so typos surface instead of silently falling back to defaults.
type runConfigFile struct {
	Population     int      `yaml:"population"`
	Generations    int      `yaml:"generations"`
	MinRounds      int      `yaml:"min_rounds"`
	MaxRounds      int      `yaml:"max_rounds"`
	EliminateCount int      `yaml:"eliminate_count"`
	CloneCount     int      `yaml:"clone_count"`
	Strategies     []string `yaml:"strategies"`
	Provider       string   `yaml:"provider"`
	Seed           int64    `yaml:"seed"`
	RoundLogPath   string   `yaml:"round_log_path"`
	PacingMS       int      `yaml:"pacing_ms"`
}

func loadRunRequestFromConfig(path string) (trustapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return trustapi.RunRequest{}, err
	}

	var cfg runConfigFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return trustapi.RunRequest{}, fmt.Errorf("parse run config %s: %w", path, err)
	}

	return trustapi.RunRequest{
		Population:     cfg.Population,
		Generations:    cfg.Generations,
		MinRounds:      cfg.MinRounds,
		MaxRounds:      cfg.MaxRounds,
		EliminateCount: cfg.EliminateCount,
		CloneCount:     cfg.CloneCount,
		Strategies:     cfg.Strategies,
		Provider:       cfg.Provider,
		Seed:           cfg.Seed,
		RoundLogPath:   cfg.RoundLogPath,
		PacingDelay:    time.Duration(cfg.PacingMS) * time.Millisecond,
	}, nil
}

func loadOrDefaultRunRequest(path string) (trustapi.RunRequest, error) {
	if path == "" {
		return trustapi.RunRequest{}, nil
	}
	return loadRunRequestFromConfig(path)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
