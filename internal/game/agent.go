package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"trustevo/internal/model"
	"trustevo/internal/strategy"
)

// Decider produces one action and an optional short rationale per round.
// Built-in strategies never fail; an external decision source may, in which
// case the match engine substitutes the safe default action.
type Decider interface {
	Decide(ctx context.Context, history []model.HistoryEntry) (model.Action, string, error)
}

type strategyDecider struct {
	strat *strategy.Strategy
}

func (d strategyDecider) Decide(_ context.Context, history []model.HistoryEntry) (model.Action, string, error) {
	return d.strat.Decide(history), "", nil
}

// Agent is a named decision source with a running score and a per-match
// history. The score accumulates over a whole generation's tournament; the
// history belongs to the current match only.
type Agent struct {
	id       string
	name     string
	kind     strategy.Kind
	rng      *rand.Rand
	decider  Decider
	external bool

	score   int
	history []model.HistoryEntry
}

// NewAgent creates an agent backed by a built-in strategy. The random source
// is retained so resets and clones can reinstantiate the strategy.
func NewAgent(kind strategy.Kind, rng *rand.Rand) (*Agent, error) {
	strat, err := strategy.New(kind, rng)
	if err != nil {
		return nil, err
	}
	return &Agent{
		id:      newAgentID(string(kind)),
		name:    string(kind),
		kind:    kind,
		rng:     rng,
		decider: strategyDecider{strat: strat},
	}, nil
}

// NewExternalAgent creates an agent whose decisions come from an external
// provider. The provider is expected to be stateless across matches.
func NewExternalAgent(name string, decider Decider) (*Agent, error) {
	if name == "" {
		return nil, fmt.Errorf("external agent name is required")
	}
	if decider == nil {
		return nil, fmt.Errorf("external agent decider is required")
	}
	return &Agent{
		id:       newAgentID(name),
		name:     name,
		decider:  decider,
		external: true,
	}, nil
}

func newAgentID(prefix string) string {
	return prefix + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func (a *Agent) ID() string { return a.id }

// StrategyName is the agent's strategy identifier: the kind name for
// built-in strategies, the provider label for external agents.
func (a *Agent) StrategyName() string { return a.name }

func (a *Agent) External() bool { return a.external }

func (a *Agent) Score() int { return a.score }

func (a *Agent) addScore(delta int) { a.score += delta }

// History returns the current match history, oldest round first.
func (a *Agent) History() []model.HistoryEntry {
	return append([]model.HistoryEntry(nil), a.history...)
}

func (a *Agent) appendHistory(opponent, own model.Action) {
	a.history = append(a.history, model.HistoryEntry{Opponent: opponent, Own: own})
}

// beginMatch clears the per-match history. The running score is untouched;
// it resets only at the generation boundary.
func (a *Agent) beginMatch() {
	a.history = a.history[:0]
}

// Reset prepares the agent for a new generation: fresh strategy state, zero
// score, empty history.
func (a *Agent) Reset() error {
	if !a.external {
		strat, err := strategy.New(a.kind, a.rng)
		if err != nil {
			return err
		}
		a.decider = strategyDecider{strat: strat}
	}
	a.score = 0
	a.history = nil
	return nil
}

// Clone produces a new agent with the same strategy identity and entirely
// fresh state. Score and history are never inherited.
func (a *Agent) Clone() (*Agent, error) {
	if a.external {
		return NewExternalAgent(a.name, a.decider)
	}
	return NewAgent(a.kind, a.rng)
}

// Record captures the agent's persisted form.
func (a *Agent) Record() model.AgentRecord {
	return model.AgentRecord{ID: a.id, Strategy: a.name, Score: a.score}
}
