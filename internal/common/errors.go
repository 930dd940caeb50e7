// Package common defines shared constants and sentinel errors used across
// the client and server layers of PlaceKeeper. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Optimistic-locking errors.
	ErrVersionConflict = errors.New("version conflict")
	ErrMissingVersion  = errors.New("missing expected version")
	ErrAlreadyExists   = errors.New("already exists")

	// Validation / reference errors (synchronous, nothing is written).
	ErrValidation      = errors.New("validation failed")
	ErrUnknownEntity   = errors.New("curation references unknown entity")
	ErrIncorrectRecord = errors.New("metadata record must be category=value")

	// Transport / availability errors.
	ErrUnauthorized      = errors.New("unauthorized")
	ErrServerUnavailable = errors.New("server unavailable")
	ErrNetwork           = errors.New("network error")

	// Sync lifecycle errors.
	ErrSyncStuck        = errors.New("sync item stuck, retry budget exhausted")
	ErrFieldsOverlap    = errors.New("conflicting fields overlap")
	ErrConflictResolved = errors.New("conflict already resolved")

	// Auth errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
