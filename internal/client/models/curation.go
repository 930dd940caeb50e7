package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/common"
)

// Concept is a categorized judgement extracted from a curator's notes,
// e.g. {"cuisine", "neapolitan"} or {"vibe", "quiet"}.
type Concept struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// Notes splits curator text into a publishable part and a private part.
type Notes struct {
	Public  string `json:"public"`
	Private string `json:"private,omitempty"`
}

// Curation is a curator-authored annotation attached to one entity. A
// curation must never exist without a resolvable entity.
type Curation struct {
	CurationID string    `json:"curation_id"`
	EntityID   string    `json:"entity_id"`
	CuratorID  string    `json:"curator_id"`
	// CuratorName is denormalized at write time and may go stale; reads
	// resolve the current name through the store instead of trusting it.
	CuratorName string    `json:"curator_name"`
	Concepts    []Concept `json:"concepts"`
	Notes       Notes     `json:"notes"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	SyncStatus SyncStatus `json:"sync_status,omitempty"`
	ServerRef  string     `json:"server_ref,omitempty"`
}

// Validate checks locally enforceable fields. Referential integrity against
// the entity table is the store's job, not the model's.
func (c *Curation) Validate() error {
	if c.EntityID == "" {
		return fmt.Errorf("%w: curation requires an entity_id", common.ErrUnknownEntity)
	}
	if c.CuratorID == "" {
		return fmt.Errorf("%w: curation requires a curator", common.ErrValidation)
	}
	return nil
}
