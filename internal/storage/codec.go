package storage

import (
	"encoding/json"
	"errors"

	"trustevo/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// StampMatch fixes the record's schema and codec versions to the current
// ones. Records are stamped at save time so in-memory producers stay
// version-agnostic.
func StampMatch(m model.MatchRecord) model.MatchRecord {
	m.SchemaVersion = CurrentSchemaVersion
	m.CodecVersion = CurrentCodecVersion
	return m
}

func StampSnapshot(s model.PopulationSnapshot) model.PopulationSnapshot {
	s.SchemaVersion = CurrentSchemaVersion
	s.CodecVersion = CurrentCodecVersion
	return s
}

func EncodeMatches(matches []model.MatchRecord) ([]byte, error) {
	stamped := make([]model.MatchRecord, 0, len(matches))
	for _, m := range matches {
		stamped = append(stamped, StampMatch(m))
	}
	return json.Marshal(stamped)
}

func DecodeMatches(data []byte) ([]model.MatchRecord, error) {
	var matches []model.MatchRecord
	if err := json.Unmarshal(data, &matches); err != nil {
		return nil, err
	}
	for _, m := range matches {
		if err := checkVersion(m.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return matches, nil
}

func EncodeSnapshot(s model.PopulationSnapshot) ([]byte, error) {
	return json.Marshal(StampSnapshot(s))
}

func DecodeSnapshot(data []byte) (model.PopulationSnapshot, error) {
	var snapshot model.PopulationSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.PopulationSnapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.PopulationSnapshot{}, err
	}
	return snapshot, nil
}

func EncodeSummaries(summaries []model.GenerationSummary) ([]byte, error) {
	return json.Marshal(summaries)
}

func DecodeSummaries(data []byte) ([]model.GenerationSummary, error) {
	var summaries []model.GenerationSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func EncodeScoreHistory(history []int) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeScoreHistory(data []byte) ([]int, error) {
	var history []int
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
