// Package oracle integrates external decision providers as match
// participants. A provider sees the full prior history of the current match
// and answers with one action and a short rationale.
package oracle

import (
	"context"

	"trustevo/internal/game"
	"trustevo/internal/model"
)

// maxReasonLength caps stored rationales. Longer explanations are truncated,
// never rejected.
const maxReasonLength = 40

// PriorRound is one completed round from the provider's own perspective.
type PriorRound struct {
	Round          int
	Own            model.Action
	Opponent       model.Action
	OwnPayoff      int
	OpponentPayoff int
}

// DecisionRequest carries everything a provider may consider: the match
// history so far and the payoff table in force.
type DecisionRequest struct {
	Rounds  []PriorRound
	Payoffs game.PayoffTable
}

// Decision is a provider's answer for one round.
type Decision struct {
	Action model.Action
	Reason string
}

// Provider answers one decision request per round. Implementations must be
// safe for reuse across matches; per-match state arrives in the request.
type Provider interface {
	Name() string
	Decide(ctx context.Context, req DecisionRequest) (Decision, error)
}

// TruncateReason trims a rationale to the stored maximum, counted in runes
// so multi-byte text is never cut mid-character.
func TruncateReason(reason string) string {
	if len(reason) <= maxReasonLength {
		return reason
	}
	runes := []rune(reason)
	if len(runes) <= maxReasonLength {
		return reason
	}
	return string(runes[:maxReasonLength])
}
