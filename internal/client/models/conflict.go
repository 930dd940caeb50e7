package models

import (
	"encoding/json"
	"time"
)

// Resolution is the caller's decision for a detected conflict.
type Resolution string

const (
	ResolutionKeepLocal  Resolution = "keep_local"
	ResolutionKeepServer Resolution = "keep_server"
	ResolutionMerged     Resolution = "merged"
)

// FieldChange describes one diverging field between the local and server
// copies of a document. Local and Server hold the field values as JSON.
type FieldChange struct {
	Field  string          `json:"field"`
	Local  json.RawMessage `json:"local"`
	Server json.RawMessage `json:"server"`
}

// ConflictRecord pairs the local and server snapshots of a document whose
// versions diverged. Neither side is discarded until the caller resolves it.
type ConflictRecord struct {
	ID            string          `json:"id"`
	TargetType    TargetType      `json:"target_type"`
	TargetID      string          `json:"target_id"`
	LocalVersion  int64           `json:"local_version"`
	LocalPayload  json.RawMessage `json:"local_payload"`
	ServerVersion int64           `json:"server_version"`
	ServerPayload json.RawMessage `json:"server_payload"`
	FieldDiff     []FieldChange   `json:"field_diff"`
	DetectedAt    time.Time       `json:"detected_at"`
	Resolved      bool            `json:"resolved"`
	Resolution    Resolution      `json:"resolution,omitempty"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
}

// ChangedFields lists the diverging field names in diff order.
func (c *ConflictRecord) ChangedFields() []string {
	fields := make([]string, 0, len(c.FieldDiff))
	for _, fc := range c.FieldDiff {
		fields = append(fields, fc.Field)
	}
	return fields
}
