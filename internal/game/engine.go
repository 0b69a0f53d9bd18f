package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"trustevo/internal/model"
)

// RoundSink receives every played round as it completes, with both sides'
// running totals at that point. A sink failure is fatal for the run but the
// in-memory match state remains valid.
type RoundSink interface {
	LogRound(match model.MatchRecord, round model.RoundRecord, agentTotal, opponentTotal int) error
}

// EngineConfig configures a match engine. Sink is optional.
type EngineConfig struct {
	Payoffs PayoffTable
	Sink    RoundSink
}

// Engine plays fixed-length matches between two agents.
type Engine struct {
	payoffs PayoffTable
	sink    RoundSink
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Payoffs == nil {
		return nil, fmt.Errorf("payoff table is required")
	}
	if err := cfg.Payoffs.Validate(); err != nil {
		return nil, err
	}
	return &Engine{payoffs: cfg.Payoffs, sink: cfg.Sink}, nil
}

func (e *Engine) Payoffs() PayoffTable {
	return e.payoffs
}

// Play runs a match of the given length between two agents, accumulating
// scores and histories round by round. Rounds are strictly sequential: round
// k sees only rounds 1..k-1. Zero rounds produces an empty record.
//
// On context cancellation the partially played record is returned together
// with the context error; every round recorded so far remains valid.
func (e *Engine) Play(ctx context.Context, agent, opponent *Agent, rounds, generation int) (model.MatchRecord, error) {
	if agent == nil || opponent == nil {
		return model.MatchRecord{}, fmt.Errorf("both agents are required")
	}
	if agent == opponent {
		return model.MatchRecord{}, fmt.Errorf("an agent cannot play itself")
	}
	if rounds < 0 {
		return model.MatchRecord{}, fmt.Errorf("round count must be >= 0, got %d", rounds)
	}

	agent.beginMatch()
	opponent.beginMatch()

	record := model.MatchRecord{
		ID:               uuid.NewString(),
		Generation:       generation,
		AgentStrategy:    agent.StrategyName(),
		OpponentStrategy: opponent.StrategyName(),
		Rounds:           make([]model.RoundRecord, 0, rounds),
	}

	for i := 0; i < rounds; i++ {
		if err := ctx.Err(); err != nil {
			return record, err
		}

		agentAction, agentRationale, agentDegraded := e.decide(ctx, agent)
		oppAction, oppRationale, oppDegraded := e.decide(ctx, opponent)

		agentPay, oppPay := e.payoffs.Lookup(agentAction, oppAction)
		agent.addScore(agentPay)
		opponent.addScore(oppPay)

		supplied := (agent.External() || opponent.External()) && i > 0
		round := model.RoundRecord{
			Round:             i + 1,
			AgentAction:       agentAction,
			OpponentAction:    oppAction,
			AgentPayoff:       agentPay,
			OpponentPayoff:    oppPay,
			Rationale:         agentRationale,
			OpponentRationale: oppRationale,
			HistorySupplied:   supplied,
			DecisionDegraded:  agentDegraded || oppDegraded,
		}

		agent.appendHistory(oppAction, agentAction)
		opponent.appendHistory(agentAction, oppAction)
		record.Rounds = append(record.Rounds, round)

		if e.sink != nil {
			if err := e.sink.LogRound(record, round, agent.Score(), opponent.Score()); err != nil {
				return record, fmt.Errorf("log round %d: %w", round.Round, err)
			}
		}
	}

	return record, nil
}

// decide queries one side's decision source. A failed or out-of-range
// decision degrades to cooperation with a diagnostic rationale; it never
// aborts the match.
func (e *Engine) decide(ctx context.Context, a *Agent) (model.Action, string, bool) {
	action, rationale, err := a.decider.Decide(ctx, a.history)
	if err != nil {
		return model.ActionCooperate, fmt.Sprintf("decision failed, defaulting to cooperate: %v", err), true
	}
	if !action.Valid() {
		return model.ActionCooperate, fmt.Sprintf("invalid action %q, defaulting to cooperate", action), true
	}
	return action, rationale, false
}
