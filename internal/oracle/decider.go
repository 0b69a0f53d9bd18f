package oracle

import (
	"context"
	"fmt"

	"trustevo/internal/game"
	"trustevo/internal/model"
)

// Decider adapts a provider to the match engine's decision interface. It
// reconstructs per-round payoffs from the table so the provider sees full
// outcomes, not just actions.
type Decider struct {
	provider Provider
	payoffs  game.PayoffTable
}

func NewDecider(provider Provider, payoffs game.PayoffTable) (*Decider, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if err := payoffs.Validate(); err != nil {
		return nil, err
	}
	return &Decider{provider: provider, payoffs: payoffs}, nil
}

func (d *Decider) Decide(ctx context.Context, history []model.HistoryEntry) (model.Action, string, error) {
	rounds := make([]PriorRound, 0, len(history))
	for i, entry := range history {
		own, opp := d.payoffs.Lookup(entry.Own, entry.Opponent)
		rounds = append(rounds, PriorRound{
			Round:          i + 1,
			Own:            entry.Own,
			Opponent:       entry.Opponent,
			OwnPayoff:      own,
			OpponentPayoff: opp,
		})
	}

	decision, err := d.provider.Decide(ctx, DecisionRequest{Rounds: rounds, Payoffs: d.payoffs})
	if err != nil {
		return "", "", err
	}
	return decision.Action, TruncateReason(decision.Reason), nil
}
