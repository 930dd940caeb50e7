// Package transform maps between local models and the remote document
// shapes. All functions are pure: no clocks, no I/O, no mutation of inputs.
//
// Invariant: ToLocalEntity(ToRemoteEntity(e)) preserves every shared field
// (name, type, status, data, metadata, version, timestamps). The curator
// display name on curations round-trips as stored even when stale; refreshing
// it is a read-time concern of the store, not the transformer's.
package transform

import (
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
)

// RemoteEntity is the wire shape of an entity. ID is the server's primary
// identifier; it is empty on create requests.
type RemoteEntity struct {
	ID        string                  `json:"id,omitempty"`
	EntityID  string                  `json:"entity_id"`
	Type      string                  `json:"type"`
	Name      string                  `json:"name"`
	Status    string                  `json:"status"`
	Data      map[string]any          `json:"data"`
	Metadata  []models.MetadataRecord `json:"metadata"`
	Version   int64                   `json:"version"`
	CreatedAt string                  `json:"created_at"`
	UpdatedAt string                  `json:"updated_at"`
	CreatedBy string                  `json:"created_by,omitempty"`
}

// RemoteCurator is the nested curator object on the wire.
type RemoteCurator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RemoteCuration is the wire shape of a curation.
type RemoteCuration struct {
	ID         string           `json:"id,omitempty"`
	CurationID string           `json:"curation_id"`
	EntityID   string           `json:"entity_id"`
	Curator    RemoteCurator    `json:"curator"`
	Concepts   []models.Concept `json:"concepts"`
	Notes      models.Notes     `json:"notes"`
	Version    int64            `json:"version"`
	CreatedAt  string           `json:"created_at"`
	UpdatedAt  string           `json:"updated_at"`
}

// wireTime renders a timestamp as UTC RFC3339 with sub-second precision.
const wireTime = time.RFC3339Nano

// ToRemoteEntity converts a local entity to its wire shape, stripping the
// client-only sync fields. ServerRef becomes the remote primary id; it is
// empty (and omitted) on documents that were never pushed.
func ToRemoteEntity(e *models.Entity) *RemoteEntity {
	return &RemoteEntity{
		ID:        e.ServerRef,
		EntityID:  e.EntityID,
		Type:      string(e.Type),
		Name:      e.Name,
		Status:    string(e.Status),
		Data:      e.Data,
		Metadata:  e.Metadata,
		Version:   e.Version,
		CreatedAt: e.CreatedAt.UTC().Format(wireTime),
		UpdatedAt: e.UpdatedAt.UTC().Format(wireTime),
		CreatedBy: e.CreatedBy,
	}
}

// ToLocalEntity converts a wire entity back to the local shape. The result
// is marked synced: it reflects a server-confirmed state by definition.
func ToLocalEntity(r *RemoteEntity) (*models.Entity, error) {
	createdAt, err := parseWireTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseWireTime(r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &models.Entity{
		EntityID:   r.EntityID,
		Type:       models.EntityType(r.Type),
		Name:       r.Name,
		Status:     models.EntityStatus(r.Status),
		Data:       r.Data,
		Metadata:   r.Metadata,
		Version:    r.Version,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		CreatedBy:  r.CreatedBy,
		SyncStatus: models.SyncStatusSynced,
		ServerRef:  r.ID,
	}, nil
}

// ToRemoteCuration assembles the nested curator object from the flat local
// fields. The stored display name is sent as-is; staleness is resolved at
// read time, never silently here.
func ToRemoteCuration(c *models.Curation) *RemoteCuration {
	return &RemoteCuration{
		ID:         c.ServerRef,
		CurationID: c.CurationID,
		EntityID:   c.EntityID,
		Curator:    RemoteCurator{ID: c.CuratorID, Name: c.CuratorName},
		Concepts:   c.Concepts,
		Notes:      c.Notes,
		Version:    c.Version,
		CreatedAt:  c.CreatedAt.UTC().Format(wireTime),
		UpdatedAt:  c.UpdatedAt.UTC().Format(wireTime),
	}
}

// ToLocalCuration is the inverse of ToRemoteCuration.
func ToLocalCuration(r *RemoteCuration) (*models.Curation, error) {
	createdAt, err := parseWireTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseWireTime(r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &models.Curation{
		CurationID:  r.CurationID,
		EntityID:    r.EntityID,
		CuratorID:   r.Curator.ID,
		CuratorName: r.Curator.Name,
		Concepts:    r.Concepts,
		Notes:       r.Notes,
		Version:     r.Version,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		SyncStatus:  models.SyncStatusSynced,
		ServerRef:   r.ID,
	}, nil
}

func parseWireTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(wireTime, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
