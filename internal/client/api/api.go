// Package api is the client's typed transport wrapper around the remote
// store. It is stateless: every call carries the identity token and, for
// mutations, the caller's expected version. Callers branch on error types,
// never on message text.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/client/transform"
	"github.com/dmitrijs2005/placekeeper/internal/common"
)

// VersionConflictError reports a rejected mutation together with the
// server's current state, so the caller can build a conflict record without
// a second round-trip.
type VersionConflictError struct {
	ServerVersion int64
	ServerDoc     json.RawMessage
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: server holds version %d", e.ServerVersion)
}

func (e *VersionConflictError) Unwrap() error {
	return common.ErrVersionConflict
}

// ListFilter narrows list calls. Zero values mean "any".
type ListFilter struct {
	Type      string
	Status    string
	CuratorID string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// EntityPage is one page of a filtered entity listing.
type EntityPage struct {
	Items []*transform.RemoteEntity `json:"items"`
	Total int                       `json:"total"`
}

// CurationPage is one page of a filtered curation listing.
type CurationPage struct {
	Items []*transform.RemoteCuration `json:"items"`
	Total int                         `json:"total"`
}

// Client is the remote store contract consumed by the sync manager.
//
// CreateEntity and CreateCuration treat a server-side "already exists" as a
// success path: the canonical server copy is fetched and returned instead of
// an error. Update and delete carry the caller's expected version; a stale
// version surfaces as *VersionConflictError.
type Client interface {
	Ping(ctx context.Context) error

	CreateEntity(ctx context.Context, doc *transform.RemoteEntity) (*transform.RemoteEntity, error)
	GetEntity(ctx context.Context, entityID string) (*transform.RemoteEntity, error)
	UpdateEntity(ctx context.Context, doc *transform.RemoteEntity, expectedVersion int64) (*transform.RemoteEntity, error)
	DeleteEntity(ctx context.Context, entityID string, expectedVersion int64) error
	ListEntities(ctx context.Context, f ListFilter) (*EntityPage, error)

	CreateCuration(ctx context.Context, doc *transform.RemoteCuration) (*transform.RemoteCuration, error)
	GetCuration(ctx context.Context, curationID string) (*transform.RemoteCuration, error)
	UpdateCuration(ctx context.Context, doc *transform.RemoteCuration, expectedVersion int64) (*transform.RemoteCuration, error)
	DeleteCuration(ctx context.Context, curationID string, expectedVersion int64) error
	ListCurations(ctx context.Context, f ListFilter) (*CurationPage, error)
}
