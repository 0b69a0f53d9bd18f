package storage

import (
	"errors"
	"testing"

	"trustevo/internal/model"
)

func TestMatchesCodecRoundTrip(t *testing.T) {
	data, err := EncodeMatches(sampleMatches())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	matches, err := DecodeMatches(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "m1" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	if matches[0].SchemaVersion != CurrentSchemaVersion {
		t.Fatalf("encode did not stamp versions: %+v", matches[0].VersionedRecord)
	}
}

func TestDecodeMatchesRejectsVersionMismatch(t *testing.T) {
	// Encoding always restamps, so a stale payload can only come from a
	// file written by another version.
	payload := []byte(`[{"schema_version": 99, "codec_version": 1, "id": "m1"}]`)
	if _, err := DecodeMatches(payload); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("err = %v, want ErrVersionMismatch", err)
	}
}

func TestSnapshotCodecRoundTrip(t *testing.T) {
	snapshot := model.PopulationSnapshot{
		ID:         "run-1",
		Generation: 3,
		Agents:     []model.AgentRecord{{ID: "a1", Strategy: "detective", Score: 5}},
	}
	data, err := EncodeSnapshot(snapshot)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "run-1" || decoded.Agents[0].Strategy != "detective" {
		t.Fatalf("unexpected snapshot: %+v", decoded)
	}

	stale := []byte(`{"schema_version": 0, "codec_version": 0, "id": "run-1"}`)
	if _, err := DecodeSnapshot(stale); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("err = %v, want ErrVersionMismatch", err)
	}
}

func TestScoreHistoryCodecRoundTrip(t *testing.T) {
	data, err := EncodeScoreHistory([]int{1, 2, 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	history, err := DecodeScoreHistory(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(history) != 3 || history[2] != 3 {
		t.Fatalf("unexpected history: %v", history)
	}
}
