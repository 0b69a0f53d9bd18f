package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Action is one of the two moves available each round.
type Action string

const (
	ActionCooperate Action = "cooperate"
	ActionDefect    Action = "defect"
)

// Valid reports whether the action is one of the two known moves.
func (a Action) Valid() bool {
	return a == ActionCooperate || a == ActionDefect
}

// HistoryEntry is one completed round from a single agent's perspective.
// The opponent's move comes first, matching decision-rule lookups.
type HistoryEntry struct {
	Opponent Action `json:"opponent"`
	Own      Action `json:"own"`
}

// RoundRecord is one played round inside a match record. Rationale is only
// populated when the deciding side was an external decision source.
type RoundRecord struct {
	Round             int    `json:"round"`
	AgentAction       Action `json:"agent_action"`
	OpponentAction    Action `json:"opponent_action"`
	AgentPayoff       int    `json:"agent_payoff"`
	OpponentPayoff    int    `json:"opponent_payoff"`
	Rationale         string `json:"rationale,omitempty"`
	OpponentRationale string `json:"opponent_rationale,omitempty"`
	HistorySupplied   bool   `json:"history_supplied,omitempty"`
	DecisionDegraded  bool   `json:"decision_degraded,omitempty"`
}

// MatchRecord is the complete, ordered outcome of one match. It is immutable
// once the match ends; a partially played match is still a valid record.
type MatchRecord struct {
	VersionedRecord
	ID               string        `json:"id"`
	Generation       int           `json:"generation"`
	AgentStrategy    string        `json:"agent_strategy"`
	OpponentStrategy string        `json:"opponent_strategy"`
	Rounds           []RoundRecord `json:"rounds"`
}

// AgentScore sums the agent-side payoffs over the record.
func (m MatchRecord) AgentScore() int {
	total := 0
	for _, r := range m.Rounds {
		total += r.AgentPayoff
	}
	return total
}

// OpponentScore sums the opponent-side payoffs over the record.
func (m MatchRecord) OpponentScore() int {
	total := 0
	for _, r := range m.Rounds {
		total += r.OpponentPayoff
	}
	return total
}

// AgentRecord is one population member in a persisted snapshot.
type AgentRecord struct {
	ID       string `json:"id"`
	Strategy string `json:"strategy"`
	Score    int    `json:"score"`
}

// PopulationSnapshot is the population state at a generation boundary.
type PopulationSnapshot struct {
	VersionedRecord
	ID         string        `json:"id"`
	Generation int           `json:"generation"`
	Agents     []AgentRecord `json:"agents"`
}

// GenerationSummary aggregates one generation's tournament outcome.
type GenerationSummary struct {
	Generation   int            `json:"generation"`
	BestScore    int            `json:"best_score"`
	MeanScore    float64        `json:"mean_score"`
	WorstScore   int            `json:"worst_score"`
	Matches      int            `json:"matches"`
	Rounds       int            `json:"rounds"`
	Distribution map[string]int `json:"distribution"`
}
