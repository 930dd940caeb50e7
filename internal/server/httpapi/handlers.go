package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/server/models"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/curations"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/entities"
)

func (s *Server) handlePing(c *gin.Context) {
	if s.ping != nil {
		if err := s.ping(c.Request.Context()); err != nil {
			s.logger.Error(c.Request.Context(), "storage ping failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string `json:"token"`
	CuratorID string `json:"curator_id"`
	Name      string `json:"name"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeErr(c, common.ErrValidation)
		return
	}
	sess, err := s.curators.Register(c.Request.Context(), req.Login, req.Name, req.Password)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: sess.Token, CuratorID: sess.Curator.ID, Name: sess.Curator.Name})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeErr(c, common.ErrValidation)
		return
	}
	sess, err := s.curators.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: sess.Token, CuratorID: sess.Curator.ID, Name: sess.Curator.Name})
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func (s *Server) handleCreateEntity(c *gin.Context) {
	var doc models.Entity
	if err := c.ShouldBindJSON(&doc); err != nil {
		s.writeErr(c, common.ErrValidation)
		return
	}
	created, err := s.entities.Create(c.Request.Context(), curatorID(c), &doc)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleGetEntity(c *gin.Context) {
	e, err := s.entities.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) handleUpdateEntity(c *gin.Context) {
	expected, err := expectedVersion(c)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	var doc models.Entity
	if err := c.ShouldBindJSON(&doc); err != nil {
		s.writeErr(c, common.ErrValidation)
		return
	}
	doc.EntityID = c.Param("id")
	updated, err := s.entities.Update(c.Request.Context(), &doc, expected)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteEntity(c *gin.Context) {
	expected, err := expectedVersion(c)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	if err := s.entities.Delete(c.Request.Context(), c.Param("id"), expected); err != nil {
		s.writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListEntities(c *gin.Context) {
	f := entities.Filter{
		Type:      c.Query("type"),
		Status:    c.Query("status"),
		CreatedBy: c.Query("curator"),
	}
	var err error
	if f.From, f.To, f.Limit, f.Offset, err = pageParams(c); err != nil {
		s.writeErr(c, err)
		return
	}

	items, total, err := s.entities.List(c.Request.Context(), f)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	if items == nil {
		items = []*models.Entity{}
	}
	c.JSON(http.StatusOK, listResponse[*models.Entity]{Items: items, Total: total})
}

func (s *Server) handleCreateCuration(c *gin.Context) {
	var doc models.Curation
	if err := c.ShouldBindJSON(&doc); err != nil {
		s.writeErr(c, common.ErrValidation)
		return
	}
	created, err := s.curations.Create(c.Request.Context(), curatorID(c), &doc)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleGetCuration(c *gin.Context) {
	cur, err := s.curations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cur)
}

func (s *Server) handleUpdateCuration(c *gin.Context) {
	expected, err := expectedVersion(c)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	var doc models.Curation
	if err := c.ShouldBindJSON(&doc); err != nil {
		s.writeErr(c, common.ErrValidation)
		return
	}
	doc.CurationID = c.Param("id")
	updated, err := s.curations.Update(c.Request.Context(), &doc, expected)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteCuration(c *gin.Context) {
	expected, err := expectedVersion(c)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	if err := s.curations.Delete(c.Request.Context(), c.Param("id"), expected); err != nil {
		s.writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListCurations(c *gin.Context) {
	f := curations.Filter{
		EntityID:  c.Query("entity"),
		CuratorID: c.Query("curator"),
	}
	var err error
	if f.From, f.To, f.Limit, f.Offset, err = pageParams(c); err != nil {
		s.writeErr(c, err)
		return
	}

	items, total, err := s.curations.List(c.Request.Context(), f)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	if items == nil {
		items = []*models.Curation{}
	}
	c.JSON(http.StatusOK, listResponse[*models.Curation]{Items: items, Total: total})
}

type uploadURLRequest struct {
	EntityID string `json:"entity_id"`
	Filename string `json:"filename"`
}

type presignedURLResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

func (s *Server) handleUploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.EntityID == "" || req.Filename == "" {
		s.writeErr(c, common.ErrValidation)
		return
	}
	key, url, err := s.media.PresignedPutURL(c.Request.Context(), req.EntityID, req.Filename)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, presignedURLResponse{URL: url, Key: key})
}

func (s *Server) handleDownloadURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		s.writeErr(c, common.ErrValidation)
		return
	}
	url, err := s.media.PresignedGetURL(c.Request.Context(), key)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, presignedURLResponse{URL: url, Key: key})
}

// pageParams parses the shared list query parameters.
func pageParams(c *gin.Context) (from, to time.Time, limit, offset int, err error) {
	if raw := c.Query("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return from, to, 0, 0, common.ErrValidation
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return from, to, 0, 0, common.ErrValidation
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return from, to, 0, 0, common.ErrValidation
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return from, to, 0, 0, common.ErrValidation
		}
	}
	return from, to, limit, offset, nil
}
