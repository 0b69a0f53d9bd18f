package game

import (
	"encoding/json"
	"fmt"

	"trustevo/internal/model"
)

// ActionPair keys the payoff table: the deciding side's action first.
type ActionPair struct {
	Own      model.Action
	Opponent model.Action
}

// Payoff is one cell of the table, again from the deciding side's view.
type Payoff struct {
	Own      int
	Opponent int
}

// PayoffTable maps every ordered action pair to its payoffs. A valid table
// is total over the 2x2 domain and antisymmetric under pair swap.
type PayoffTable map[ActionPair]Payoff

// DefaultPayoffs returns the canonical prisoner's-dilemma values.
func DefaultPayoffs() PayoffTable {
	return PayoffTable{
		{model.ActionCooperate, model.ActionCooperate}: {2, 2},
		{model.ActionCooperate, model.ActionDefect}:    {-1, 3},
		{model.ActionDefect, model.ActionCooperate}:    {3, -1},
		{model.ActionDefect, model.ActionDefect}:       {0, 0},
	}
}

// Validate checks totality over the action space and role-swap symmetry.
func (t PayoffTable) Validate() error {
	actions := []model.Action{model.ActionCooperate, model.ActionDefect}
	for _, own := range actions {
		for _, opp := range actions {
			cell, ok := t[ActionPair{own, opp}]
			if !ok {
				return fmt.Errorf("payoff table missing entry for (%s, %s)", own, opp)
			}
			mirror, ok := t[ActionPair{opp, own}]
			if !ok {
				return fmt.Errorf("payoff table missing entry for (%s, %s)", opp, own)
			}
			if cell.Own != mirror.Opponent || cell.Opponent != mirror.Own {
				return fmt.Errorf("payoff table is not symmetric under role swap at (%s, %s)", own, opp)
			}
		}
	}
	return nil
}

// Lookup returns both sides' payoffs for the given ordered action pair.
func (t PayoffTable) Lookup(own, opp model.Action) (int, int) {
	cell := t[ActionPair{own, opp}]
	return cell.Own, cell.Opponent
}

// Snapshot serializes the table as JSON with "own-opponent" string keys,
// suitable for embedding in log rows. Keys are emitted in sorted order.
func (t PayoffTable) Snapshot() (string, error) {
	byKey := make(map[string][2]int, len(t))
	for pair, cell := range t {
		byKey[fmt.Sprintf("%s-%s", pair.Own, pair.Opponent)] = [2]int{cell.Own, cell.Opponent}
	}
	data, err := json.Marshal(byKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
