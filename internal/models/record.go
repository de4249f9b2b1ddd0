package models

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion tags every durable record so incompatible old records are
// detected and discarded on load rather than crashing the engine.
const SchemaVersion = 1

// storedRecord is the self-describing envelope every durable value is
// wrapped in.
type storedRecord struct {
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

// EncodeRecord wraps v in a versioned envelope and marshals it.
func EncodeRecord(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}
	rec, err := json.Marshal(storedRecord{SchemaVersion: SchemaVersion, Data: data})
	if err != nil {
		return "", fmt.Errorf("failed to marshal record envelope: %w", err)
	}
	return string(rec), nil
}

// DecodeRecord unwraps a versioned envelope into v. Returns ErrSchemaMismatch
// when the record was written by a different schema version.
func DecodeRecord(raw string, v any) error {
	var rec storedRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return fmt.Errorf("failed to unmarshal record envelope: %w", err)
	}
	if rec.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: got version %d, want %d", ErrSchemaMismatch, rec.SchemaVersion, SchemaVersion)
	}
	if err := json.Unmarshal(rec.Data, v); err != nil {
		return fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return nil
}
