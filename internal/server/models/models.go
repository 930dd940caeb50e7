// Package models defines the server-side shapes of curator accounts, venue
// entities and curations. JSON tags match the wire documents the clients
// exchange; timestamps marshal as RFC3339 with sub-second precision.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/placekeeper/internal/common"
)

// EntityType is the closed set of venue kinds the catalogue accepts.
type EntityType string

const (
	EntityTypeRestaurant EntityType = "restaurant"
	EntityTypeCafe       EntityType = "cafe"
	EntityTypeBar        EntityType = "bar"
	EntityTypeShop       EntityType = "shop"
	EntityTypeLandmark   EntityType = "landmark"
)

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

// MetadataRecord is a typed category/value pair attached to an entity.
type MetadataRecord struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// Concept is a categorized judgement extracted from a curator's notes.
type Concept struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// Notes splits curator text into a publishable part and a private part.
type Notes struct {
	Public  string `json:"public"`
	Private string `json:"private,omitempty"`
}

// Curator is a registered account. PasswordHash never leaves the server.
type Curator struct {
	ID           string    `json:"id"`
	Login        string    `json:"login"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CuratorRef is the nested curator object embedded in curation documents.
type CuratorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Entity is the canonical record of one venue. Version starts at 1 and grows
// by exactly one per accepted write.
type Entity struct {
	ID        string           `json:"id"`
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
}

// Validate enforces the write-time rules for an entity document.
func (e *Entity) Validate() error {
	if e.EntityID == "" {
		return fmt.Errorf("%w: entity_id is required", common.ErrValidation)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown entity type %q", common.ErrValidation, e.Type)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", common.ErrValidation, e.Status)
	}
	n := utf8.RuneCountInString(strings.TrimSpace(e.Name))
	if n < 1 || n > common.MaxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", common.ErrValidation, common.MaxNameLength)
	}
	return nil
}

// Curation is one curator's annotation of one entity.
type Curation struct {
	ID         string     `json:"id"`
	CurationID string     `json:"curation_id"`
	EntityID   string     `json:"entity_id"`
	Curator    CuratorRef `json:"curator"`
	Concepts   []Concept  `json:"concepts"`
	Notes      Notes      `json:"notes"`
	Version    int64      `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Validate enforces the write-time rules for a curation document. Whether the
// referenced entity exists is checked by the service against the repository.
func (c *Curation) Validate() error {
	if c.CurationID == "" {
		return fmt.Errorf("%w: curation_id is required", common.ErrValidation)
	}
	if c.EntityID == "" {
		return fmt.Errorf("%w: entity_id is required", common.ErrValidation)
	}
	if c.Curator.ID == "" {
		return fmt.Errorf("%w: curator is required", common.ErrValidation)
	}
	return nil
}
