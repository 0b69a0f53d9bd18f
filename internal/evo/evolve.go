package evo

import (
	"fmt"
	"sort"

	"trustevo/internal/game"
)

// Evolve produces the next generation: agents are ranked ascending by
// accumulated score with a stable sort (insertion order breaks ties
// deterministically), the lowest eliminateN are dropped, and the highest
// cloneN of the original ranking are re-added as fresh clones. Every
// resulting agent is reset before the new population is returned.
//
// Population size is conserved by contract: eliminateN must equal cloneN.
// Asymmetric configurations would silently drift the population across
// generations, so they are rejected up front.
func Evolve(agents []*game.Agent, eliminateN, cloneN int) ([]*game.Agent, error) {
	if eliminateN < 0 || cloneN < 0 {
		return nil, fmt.Errorf("elimination and clone counts must be >= 0")
	}
	if eliminateN != cloneN {
		return nil, fmt.Errorf("population size must be conserved: eliminate %d != clone %d", eliminateN, cloneN)
	}
	if eliminateN >= len(agents) {
		return nil, fmt.Errorf("cannot eliminate %d of %d agents", eliminateN, len(agents))
	}

	ranked := append([]*game.Agent(nil), agents...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score() < ranked[j].Score()
	})

	survivors := ranked[eliminateN:]
	// Clones come from the top of the original ranking, overlapping with
	// survivors when eliminateN and cloneN leave room.
	best := ranked[len(ranked)-cloneN:]

	next := make([]*game.Agent, 0, len(agents))
	next = append(next, survivors...)
	for _, parent := range best {
		clone, err := parent.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone %s: %w", parent.StrategyName(), err)
		}
		next = append(next, clone)
	}

	for _, agent := range next {
		if err := agent.Reset(); err != nil {
			return nil, fmt.Errorf("reset %s: %w", agent.StrategyName(), err)
		}
	}
	return next, nil
}

// Distribution counts agents per strategy identifier.
func Distribution(agents []*game.Agent) map[string]int {
	out := make(map[string]int, len(agents))
	for _, agent := range agents {
		out[agent.StrategyName()]++
	}
	return out
}
