package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/server/services"
)

// errorBody is the wire shape of a non-2xx response. On a version conflict it
// carries the current server document, so clients can build a conflict record
// without a second round-trip.
type errorBody struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	ServerVersion int64  `json:"server_version,omitempty"`
	Document      any    `json:"document,omitempty"`
}

const (
	codeAlreadyExists   = "already_exists"
	codeVersionConflict = "version_conflict"
	codeMissingVersion  = "missing_version"
	codeValidation      = "validation"
	codeNotFound        = "not_found"
	codeUnauthorized    = "unauthorized"
	codeInternal        = "internal"
)

// writeErr maps a service error onto the response contract.
func (s *Server) writeErr(c *gin.Context, err error) {
	var conflict *services.ConflictError
	switch {
	case errors.As(err, &conflict):
		c.AbortWithStatusJSON(http.StatusConflict, errorBody{
			Code:          codeVersionConflict,
			Message:       conflict.Error(),
			ServerVersion: conflict.ServerVersion,
			Document:      conflict.Document,
		})
	case errors.Is(err, common.ErrAlreadyExists):
		c.AbortWithStatusJSON(http.StatusConflict, errorBody{Code: codeAlreadyExists, Message: err.Error()})
	case errors.Is(err, common.ErrMissingVersion):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Code: codeMissingVersion, Message: err.Error()})
	case errors.Is(err, common.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Code: codeValidation, Message: err.Error()})
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrUnknownEntity):
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody{Code: codeNotFound, Message: err.Error()})
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: codeUnauthorized, Message: "unauthorized"})
	default:
		s.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Code: codeInternal, Message: "internal error"})
	}
}

// expectedVersion reads the version precondition header. Mutations without it
// are rejected before any version comparison happens.
func expectedVersion(c *gin.Context) (int64, error) {
	raw := c.GetHeader(common.ExpectedVersionHeader)
	if raw == "" {
		return 0, common.ErrMissingVersion
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, common.ErrMissingVersion
	}
	return v, nil
}
