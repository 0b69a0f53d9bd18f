package evo

import (
	"fmt"
	"math/rand"

	"trustevo/internal/game"
	"trustevo/internal/strategy"
)

// ConstructSeedPopulation builds an initial population by drawing each
// agent's strategy uniformly from the enabled kinds.
func ConstructSeedPopulation(kinds []strategy.Kind, size int, rng *rand.Rand) ([]*game.Agent, error) {
	if size <= 0 {
		return nil, fmt.Errorf("population size must be > 0, got %d", size)
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("at least one strategy kind is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	agents := make([]*game.Agent, 0, size)
	for i := 0; i < size; i++ {
		kind := kinds[rng.Intn(len(kinds))]
		agent, err := game.NewAgent(kind, rng)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, nil
}
