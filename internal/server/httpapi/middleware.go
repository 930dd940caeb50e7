package httpapi

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/server/auth"
)

// requireAuth verifies the bearer token and stores the curator id in the
// request context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeader)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeErr(c, common.ErrUnauthorized)
			return
		}

		curatorID, err := auth.CuratorIDFromToken(token, s.cfg.SecretKey)
		if err != nil {
			s.writeErr(c, err)
			return
		}

		c.Set(curatorIDKey, curatorID)
		c.Next()
	}
}

func curatorID(c *gin.Context) string {
	return c.GetString(curatorIDKey)
}
