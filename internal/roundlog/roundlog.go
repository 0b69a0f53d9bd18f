// Package roundlog appends every played round to a CSV audit file. The file
// grows across runs; the header is written only when the file is new or
// empty.
package roundlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"trustevo/internal/game"
	"trustevo/internal/model"
)

var header = []string{
	"generation",
	"match_id",
	"round",
	"agent_strategy",
	"opponent_strategy",
	"agent_action",
	"opponent_action",
	"agent_payoff",
	"opponent_payoff",
	"agent_total_score",
	"opponent_total_score",
	"rationale",
	"history_included",
	"timestamp",
	"payoff_matrix",
}

// Logger is a game.RoundSink backed by an append-only CSV file. The payoff
// matrix snapshot is stamped on every row so a file mixing runs stays
// self-describing.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	writer  *csv.Writer
	payoffs string
	now     func() time.Time
}

func New(path string, payoffs game.PayoffTable) (*Logger, error) {
	if err := payoffs.Validate(); err != nil {
		return nil, err
	}
	snapshot, err := payoffs.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot payoff table: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open round log: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat round log: %w", err)
	}

	l := &Logger{
		file:    file,
		writer:  csv.NewWriter(file),
		payoffs: snapshot,
		now:     time.Now,
	}
	if info.Size() == 0 {
		if err := l.writer.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("write round log header: %w", err)
		}
		l.writer.Flush()
		if err := l.writer.Error(); err != nil {
			file.Close()
			return nil, err
		}
	}
	return l, nil
}

// LogRound appends one row. Rows are flushed immediately so a halted run
// leaves a complete file behind.
func (l *Logger) LogRound(match model.MatchRecord, round model.RoundRecord, agentTotal, opponentTotal int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	row := []string{
		strconv.Itoa(match.Generation),
		match.ID,
		strconv.Itoa(round.Round),
		match.AgentStrategy,
		match.OpponentStrategy,
		string(round.AgentAction),
		string(round.OpponentAction),
		strconv.Itoa(round.AgentPayoff),
		strconv.Itoa(round.OpponentPayoff),
		strconv.Itoa(agentTotal),
		strconv.Itoa(opponentTotal),
		round.Rationale,
		strconv.FormatBool(round.HistorySupplied),
		l.now().UTC().Format(time.RFC3339),
		l.payoffs,
	}
	if err := l.writer.Write(row); err != nil {
		return fmt.Errorf("write round log row: %w", err)
	}
	l.writer.Flush()
	return l.writer.Error()
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
