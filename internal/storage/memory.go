package storage

import (
	"context"
	"sync"

	"trustevo/internal/model"
)

type MemoryStore struct {
	mu        sync.RWMutex
	matches   map[string][]model.MatchRecord
	snapshots map[string]model.PopulationSnapshot
	summaries map[string][]model.GenerationSummary
	scores    map[string][]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.matches = make(map[string][]model.MatchRecord)
	s.snapshots = make(map[string]model.PopulationSnapshot)
	s.summaries = make(map[string][]model.GenerationSummary)
	s.scores = make(map[string][]int)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveMatches(_ context.Context, runID string, matches []model.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.MatchRecord, 0, len(matches))
	for _, m := range matches {
		copied = append(copied, StampMatch(m))
	}
	s.matches[runID] = copied
	return nil
}

func (s *MemoryStore) GetMatches(_ context.Context, runID string) ([]model.MatchRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, ok := s.matches[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.MatchRecord, len(matches))
	copy(copied, matches)
	return copied, true, nil
}

func (s *MemoryStore) SavePopulationSnapshot(_ context.Context, snapshot model.PopulationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot = StampSnapshot(snapshot)
	snapshot.Agents = append([]model.AgentRecord(nil), snapshot.Agents...)
	s.snapshots[snapshot.ID] = snapshot
	return nil
}

func (s *MemoryStore) GetPopulationSnapshot(_ context.Context, id string) (model.PopulationSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[id]
	if !ok {
		return model.PopulationSnapshot{}, false, nil
	}
	snapshot.Agents = append([]model.AgentRecord(nil), snapshot.Agents...)
	return snapshot, true, nil
}

func (s *MemoryStore) SaveGenerationSummaries(_ context.Context, runID string, summaries []model.GenerationSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.GenerationSummary, len(summaries))
	copy(copied, summaries)
	s.summaries[runID] = copied
	return nil
}

func (s *MemoryStore) GetGenerationSummaries(_ context.Context, runID string) ([]model.GenerationSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries, ok := s.summaries[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationSummary, len(summaries))
	copy(copied, summaries)
	return copied, true, nil
}

func (s *MemoryStore) SaveScoreHistory(_ context.Context, runID string, history []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scores[runID] = append([]int(nil), history...)
	return nil
}

func (s *MemoryStore) GetScoreHistory(_ context.Context, runID string) ([]int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.scores[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]int(nil), history...), true, nil
}
