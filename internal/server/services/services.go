// Package services contains the server-side business logic: account
// registration and login, versioned entity and curation writes with
// optimistic locking, and presigned photo transfers.
package services

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/common"
)

// timeNow is a seam for tests that pin the clock.
var timeNow = time.Now

// ConflictError reports a rejected write together with the current server
// state, so the handler can answer with everything the client needs to build
// a conflict record.
type ConflictError struct {
	ServerVersion int64
	Document      any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: server holds version %d", e.ServerVersion)
}

func (e *ConflictError) Unwrap() error {
	return common.ErrVersionConflict
}
