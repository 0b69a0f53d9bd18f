package game

import (
	"strings"
	"testing"

	"trustevo/internal/model"
)

func TestDefaultPayoffsAreTotalAndSymmetric(t *testing.T) {
	table := DefaultPayoffs()
	if err := table.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	actions := []model.Action{model.ActionCooperate, model.ActionDefect}
	for _, own := range actions {
		for _, opp := range actions {
			ownPay, oppPay := table.Lookup(own, opp)
			mirrorOpp, mirrorOwn := table.Lookup(opp, own)
			if ownPay != mirrorOwn || oppPay != mirrorOpp {
				t.Errorf("lookup(%s,%s)=(%d,%d) is not the swap of lookup(%s,%s)=(%d,%d)",
					own, opp, ownPay, oppPay, opp, own, mirrorOpp, mirrorOwn)
			}
		}
	}
}

func TestDefaultPayoffValues(t *testing.T) {
	table := DefaultPayoffs()
	tests := []struct {
		own, opp         model.Action
		wantOwn, wantOpp int
	}{
		{model.ActionCooperate, model.ActionCooperate, 2, 2},
		{model.ActionCooperate, model.ActionDefect, -1, 3},
		{model.ActionDefect, model.ActionCooperate, 3, -1},
		{model.ActionDefect, model.ActionDefect, 0, 0},
	}
	for _, tt := range tests {
		gotOwn, gotOpp := table.Lookup(tt.own, tt.opp)
		if gotOwn != tt.wantOwn || gotOpp != tt.wantOpp {
			t.Errorf("lookup(%s,%s) = (%d,%d), want (%d,%d)", tt.own, tt.opp, gotOwn, gotOpp, tt.wantOwn, tt.wantOpp)
		}
	}
}

func TestValidateRejectsIncompleteTable(t *testing.T) {
	table := DefaultPayoffs()
	delete(table, ActionPair{model.ActionDefect, model.ActionDefect})
	if err := table.Validate(); err == nil {
		t.Fatal("expected error for incomplete table")
	}
}

func TestValidateRejectsAsymmetricTable(t *testing.T) {
	table := DefaultPayoffs()
	table[ActionPair{model.ActionCooperate, model.ActionDefect}] = Payoff{-1, 5}
	if err := table.Validate(); err == nil {
		t.Fatal("expected error for asymmetric table")
	}
}

func TestSnapshotIsStableJSON(t *testing.T) {
	snapshot, err := DefaultPayoffs().Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for _, key := range []string{
		"cooperate-cooperate", "cooperate-defect", "defect-cooperate", "defect-defect",
	} {
		if !strings.Contains(snapshot, key) {
			t.Errorf("snapshot missing key %q: %s", key, snapshot)
		}
	}
	again, err := DefaultPayoffs().Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot != again {
		t.Fatalf("snapshot not stable: %s vs %s", snapshot, again)
	}
}
