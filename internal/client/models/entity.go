// Package models defines the local shapes of catalogued entities, curations
// and the sync bookkeeping rows that travel with them.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/placekeeper/internal/common"
)

// EntityType classifies a venue kind. The set is closed; the server rejects
// anything else as a validation failure.
type EntityType string

const (
	EntityTypeRestaurant EntityType = "restaurant"
	EntityTypeCafe       EntityType = "cafe"
	EntityTypeBar        EntityType = "bar"
	EntityTypeShop       EntityType = "shop"
	EntityTypeLandmark   EntityType = "landmark"
)

// Valid reports whether t is a member of the closed type enum.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeRestaurant, EntityTypeCafe, EntityTypeBar, EntityTypeShop, EntityTypeLandmark:
		return true
	}
	return false
}

// EntityStatus is the publication state of an entity.
type EntityStatus string

const (
	StatusActive   EntityStatus = "active"
	StatusInactive EntityStatus = "inactive"
	StatusDraft    EntityStatus = "draft"
)

func (s EntityStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDraft:
		return true
	}
	return false
}

// SyncStatus is the client-only reconciliation state of a row. It is written
// exclusively by the local store.
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusConflict SyncStatus = "conflict"
)

// MetadataRecord is a typed category/value pair attached to an entity.
// Order is preserved.
type MetadataRecord struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// RecordsFromStrings parses "category=value" pairs, preserving input order.
func RecordsFromStrings(s []string) ([]MetadataRecord, error) {
	records := make([]MetadataRecord, len(s))
	for n, item := range s {
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, common.ErrIncorrectRecord
		}
		records[n] = MetadataRecord{Category: parts[0], Value: parts[1]}
	}
	return records, nil
}

// Entity is a factual venue record, independent of any curator's opinion.
type Entity struct {
	EntityID  string           `json:"entity_id"`
	Type      EntityType       `json:"type"`
	Name      string           `json:"name"`
	Status    EntityStatus     `json:"status"`
	Data      map[string]any   `json:"data"`
	Metadata  []MetadataRecord `json:"metadata"`
	Version   int64            `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	CreatedBy string           `json:"created_by,omitempty"`

	// Client-only fields, stripped before transmission.
	SyncStatus SyncStatus `json:"sync_status,omitempty"`
	ServerRef  string     `json:"server_ref,omitempty"`
}

// Validate checks the fields enforced before any local write. The same rules
// are enforced server-side; failing here just fails faster and writes nothing.
func (e *Entity) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown entity type %q", common.ErrValidation, e.Type)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", common.ErrValidation, e.Status)
	}
	n := utf8.RuneCountInString(e.Name)
	if n < 1 || n > common.MaxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", common.ErrValidation, common.MaxNameLength)
	}
	return nil
}
