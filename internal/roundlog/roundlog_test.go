package roundlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trustevo/internal/game"
	"trustevo/internal/model"
)

func sampleMatch() model.MatchRecord {
	return model.MatchRecord{
		ID:               "match-1",
		Generation:       3,
		AgentStrategy:    "claude",
		OpponentStrategy: "tit_for_tat",
	}
}

func sampleRound() model.RoundRecord {
	return model.RoundRecord{
		Round:           2,
		AgentAction:     model.ActionDefect,
		OpponentAction:  model.ActionCooperate,
		AgentPayoff:     3,
		OpponentPayoff:  -1,
		Rationale:       "opponent cooperated last round",
		HistorySupplied: true,
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return rows
}

func TestLoggerWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.csv")
	l, err := New(path, game.DefaultPayoffs())
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	if err := l.LogRound(sampleMatch(), sampleRound(), 7, 4); err != nil {
		t.Fatalf("log round: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[0][0] != "generation" || rows[0][len(rows[0])-1] != "payoff_matrix" {
		t.Fatalf("unexpected header %v", rows[0])
	}

	row := rows[1]
	want := []string{"3", "match-1", "2", "claude", "tit_for_tat", "defect", "cooperate", "3", "-1", "7", "4",
		"opponent cooperated last round", "true", "2025-06-01T12:00:00Z"}
	for i, w := range want {
		if row[i] != w {
			t.Fatalf("column %d = %q, want %q", i, row[i], w)
		}
	}
	if !strings.Contains(row[14], `"cooperate-cooperate"`) {
		t.Fatalf("payoff matrix column = %q", row[14])
	}
}

func TestLoggerAppendsWithoutDuplicateHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.csv")

	first, err := New(path, game.DefaultPayoffs())
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if err := first.LogRound(sampleMatch(), sampleRound(), 3, -1); err != nil {
		t.Fatalf("log round: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := New(path, game.DefaultPayoffs())
	if err != nil {
		t.Fatalf("reopen logger: %v", err)
	}
	if err := second.LogRound(sampleMatch(), sampleRound(), 6, -2); err != nil {
		t.Fatalf("log round: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[1][0] == "generation" || rows[2][0] == "generation" {
		t.Fatal("header duplicated on append")
	}
}

func TestNewRejectsUnwritablePath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	if _, err := New(filepath.Join(blocker, "rounds.csv"), game.DefaultPayoffs()); err == nil {
		t.Fatal("expected error for a log path under a regular file")
	}
}

func TestLoggerRejectsInvalidPayoffs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.csv")
	if _, err := New(path, game.PayoffTable{}); err == nil {
		t.Fatal("expected error for incomplete payoff table")
	}
}
