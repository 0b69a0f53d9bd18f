package strategy

import (
	"math/rand"
	"testing"

	"trustevo/internal/model"
)

func mustNew(t *testing.T, kind Kind) *Strategy {
	t.Helper()
	s, err := New(kind, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("new %s: %v", kind, err)
	}
	return s
}

func entries(moves ...model.Action) []model.HistoryEntry {
	// Opponent moves only; own moves default to cooperate, which no rule
	// except simpleton inspects.
	out := make([]model.HistoryEntry, 0, len(moves))
	for _, m := range moves {
		out = append(out, model.HistoryEntry{Opponent: m, Own: model.ActionCooperate})
	}
	return out
}

func TestOpeningMoveCooperatesForAllDeterministicKinds(t *testing.T) {
	for _, kind := range Kinds() {
		if kind == KindRandom {
			continue
		}
		if kind == KindAlwaysDefect {
			// The one constant defector: still deterministic, never opens
			// with cooperation.
			continue
		}
		got := mustNew(t, kind).Decide(nil)
		if got != model.ActionCooperate {
			t.Errorf("%s: opening move = %s, want cooperate", kind, got)
		}
	}
	if got := mustNew(t, KindAlwaysDefect).Decide(nil); got != model.ActionDefect {
		t.Errorf("always_defect: opening move = %s, want defect", got)
	}
}

func TestTitForTatMirrorsPreviousOpponentAction(t *testing.T) {
	s := mustNew(t, KindTitForTat)
	if got := s.Decide(entries(model.ActionDefect)); got != model.ActionDefect {
		t.Fatalf("after defect: got %s, want defect", got)
	}
	if got := s.Decide(entries(model.ActionDefect, model.ActionCooperate)); got != model.ActionCooperate {
		t.Fatalf("after cooperate: got %s, want cooperate", got)
	}
}

func TestGrudgerDefectsForeverAfterFirstDefect(t *testing.T) {
	s := mustNew(t, KindGrudger)
	history := entries(model.ActionCooperate, model.ActionDefect)
	if got := s.Decide(history); got != model.ActionDefect {
		t.Fatalf("grudge onset: got %s, want defect", got)
	}
	// Later cooperation never clears the grudge within a match.
	history = append(history, entries(model.ActionCooperate, model.ActionCooperate)...)
	for i := 0; i < 5; i++ {
		if got := s.Decide(history); got != model.ActionDefect {
			t.Fatalf("round %d after grudge: got %s, want defect", i, got)
		}
	}
}

func TestGrudgerFreshInstanceForgetsGrudge(t *testing.T) {
	s := mustNew(t, KindGrudger)
	s.Decide(entries(model.ActionDefect))
	fresh := mustNew(t, KindGrudger)
	if got := fresh.Decide(nil); got != model.ActionCooperate {
		t.Fatalf("fresh grudger: got %s, want cooperate", got)
	}
}

func TestDetectiveProbeThenExploitsUnretaliatingOpponent(t *testing.T) {
	s := mustNew(t, KindDetective)
	want := []model.Action{
		model.ActionCooperate,
		model.ActionDefect,
		model.ActionCooperate,
		model.ActionCooperate,
	}
	var history []model.HistoryEntry
	for i, expect := range want {
		got := s.Decide(history)
		if got != expect {
			t.Fatalf("probe round %d: got %s, want %s", i+1, got, expect)
		}
		history = append(history, model.HistoryEntry{Opponent: model.ActionCooperate, Own: got})
	}
	// A clean probe means the opponent is exploitable.
	for round := 5; round <= 8; round++ {
		got := s.Decide(history)
		if got != model.ActionDefect {
			t.Fatalf("round %d vs pushover: got %s, want defect", round, got)
		}
		history = append(history, model.HistoryEntry{Opponent: model.ActionCooperate, Own: got})
	}
}

func TestDetectiveMirrorsAfterObservedDefect(t *testing.T) {
	s := mustNew(t, KindDetective)
	history := []model.HistoryEntry{
		{Opponent: model.ActionCooperate, Own: model.ActionCooperate},
		{Opponent: model.ActionDefect, Own: model.ActionDefect},
	}
	// Once the opponent has defected the detective mirrors the last move.
	if got := s.Decide(history); got != model.ActionDefect {
		t.Fatalf("mirror after defect: got %s, want defect", got)
	}
	history = append(history, model.HistoryEntry{Opponent: model.ActionCooperate, Own: model.ActionDefect})
	if got := s.Decide(history); got != model.ActionCooperate {
		t.Fatalf("mirror after cooperate: got %s, want cooperate", got)
	}
}

func TestSimpletonRepeatsOwnActionUnlessBetrayed(t *testing.T) {
	tests := []struct {
		name string
		last model.HistoryEntry
		want model.Action
	}{
		{"repeat cooperate", model.HistoryEntry{Opponent: model.ActionCooperate, Own: model.ActionCooperate}, model.ActionCooperate},
		{"repeat defect", model.HistoryEntry{Opponent: model.ActionCooperate, Own: model.ActionDefect}, model.ActionDefect},
		{"betrayed while cooperating", model.HistoryEntry{Opponent: model.ActionDefect, Own: model.ActionCooperate}, model.ActionDefect},
		{"mutual defection repeats", model.HistoryEntry{Opponent: model.ActionDefect, Own: model.ActionDefect}, model.ActionDefect},
	}
	for _, tt := range tests {
		s := mustNew(t, KindSimpleton)
		if got := s.Decide([]model.HistoryEntry{tt.last}); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestCopykittenRequiresTwoConsecutiveDefects(t *testing.T) {
	s := mustNew(t, KindCopykitten)
	if got := s.Decide(entries(model.ActionDefect)); got != model.ActionCooperate {
		t.Fatalf("single defect: got %s, want cooperate", got)
	}
	if got := s.Decide(entries(model.ActionDefect, model.ActionCooperate, model.ActionDefect)); got != model.ActionCooperate {
		t.Fatalf("non-consecutive defects: got %s, want cooperate", got)
	}
	if got := s.Decide(entries(model.ActionCooperate, model.ActionDefect, model.ActionDefect)); got != model.ActionDefect {
		t.Fatalf("two consecutive defects: got %s, want defect", got)
	}
}

func TestRandomOnlyProducesValidActions(t *testing.T) {
	s, err := New(KindRandom, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("new random: %v", err)
	}
	seen := map[model.Action]int{}
	for i := 0; i < 200; i++ {
		got := s.Decide(nil)
		if !got.Valid() {
			t.Fatalf("invalid action: %s", got)
		}
		seen[got]++
	}
	if len(seen) != 2 {
		t.Fatalf("expected both actions over 200 draws, got %v", seen)
	}
}

func TestRandomRequiresRandomSource(t *testing.T) {
	if _, err := New(KindRandom, nil); err == nil {
		t.Fatal("expected error for random strategy without a source")
	}
}

func TestParse(t *testing.T) {
	kind, err := Parse(" Grudger ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if kind != KindGrudger {
		t.Fatalf("parse: got %s, want %s", kind, KindGrudger)
	}
	if _, err := Parse("nice_guy"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestParseAllRejectsDuplicates(t *testing.T) {
	if _, err := ParseAll([]string{"grudger", "grudger"}); err == nil {
		t.Fatal("expected duplicate error")
	}
	kinds, err := ParseAll([]string{"tit_for_tat", "random"})
	if err != nil {
		t.Fatalf("parse all: %v", err)
	}
	if len(kinds) != 2 {
		t.Fatalf("expected 2 kinds, got %d", len(kinds))
	}
}
