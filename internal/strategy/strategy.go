package strategy

import (
	"fmt"
	"math/rand"

	"trustevo/internal/model"
)

// Kind identifies one of the built-in decision rules.
type Kind string

const (
	KindAlwaysCooperate Kind = "always_cooperate"
	KindAlwaysDefect    Kind = "always_defect"
	KindTitForTat       Kind = "tit_for_tat"
	KindGrudger         Kind = "grudger"
	KindDetective       Kind = "detective"
	KindSimpleton       Kind = "simpleton"
	KindRandom          Kind = "random"
	KindCopykitten      Kind = "copykitten"
)

// detectiveProbe is the fixed opening sequence played before the detective
// commits to exploiting or mirroring.
var detectiveProbe = [4]model.Action{
	model.ActionCooperate,
	model.ActionDefect,
	model.ActionCooperate,
	model.ActionCooperate,
}

// Strategy is a single decision rule instance. The per-kind flags live only
// for one match; a fresh instance is constructed at every match boundary.
type Strategy struct {
	kind Kind
	rng  *rand.Rand

	grudge   bool
	switched bool
}

// New constructs a fresh strategy instance. The random source is required
// only for the random kind; other kinds ignore it.
func New(kind Kind, rng *rand.Rand) (*Strategy, error) {
	if _, ok := kindSet[kind]; !ok {
		return nil, fmt.Errorf("unknown strategy kind: %s", kind)
	}
	if kind == KindRandom && rng == nil {
		return nil, fmt.Errorf("random strategy requires a random source")
	}
	return &Strategy{kind: kind, rng: rng}, nil
}

func (s *Strategy) Kind() Kind {
	return s.kind
}

// Decide maps the current match history, oldest round first, to the next
// action. Every kind cooperates on an empty history except random.
func (s *Strategy) Decide(history []model.HistoryEntry) model.Action {
	switch s.kind {
	case KindAlwaysCooperate:
		return model.ActionCooperate

	case KindAlwaysDefect:
		return model.ActionDefect

	case KindTitForTat:
		if len(history) == 0 {
			return model.ActionCooperate
		}
		return history[len(history)-1].Opponent

	case KindGrudger:
		if !s.grudge && opponentDefected(history) {
			s.grudge = true
		}
		if s.grudge {
			return model.ActionDefect
		}
		return model.ActionCooperate

	case KindDetective:
		if !s.switched && opponentDefected(history) {
			s.switched = true
		}
		if s.switched {
			if len(history) == 0 {
				return model.ActionCooperate
			}
			return history[len(history)-1].Opponent
		}
		if len(history) < len(detectiveProbe) {
			return detectiveProbe[len(history)]
		}
		// Clean probe: the opponent never retaliated, exploit from round 5 on.
		return model.ActionDefect

	case KindSimpleton:
		if len(history) == 0 {
			return model.ActionCooperate
		}
		last := history[len(history)-1]
		if last.Own == model.ActionCooperate && last.Opponent == model.ActionDefect {
			return model.ActionDefect
		}
		return last.Own

	case KindRandom:
		if s.rng.Intn(2) == 0 {
			return model.ActionCooperate
		}
		return model.ActionDefect

	case KindCopykitten:
		if len(history) < 2 {
			return model.ActionCooperate
		}
		if history[len(history)-1].Opponent == model.ActionDefect &&
			history[len(history)-2].Opponent == model.ActionDefect {
			return model.ActionDefect
		}
		return model.ActionCooperate
	}
	return model.ActionCooperate
}

func opponentDefected(history []model.HistoryEntry) bool {
	for _, h := range history {
		if h.Opponent == model.ActionDefect {
			return true
		}
	}
	return false
}
