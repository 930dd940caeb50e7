// Package httpapi exposes the server's JSON API over HTTP (gin). All
// business rules live in the services; handlers translate between HTTP and
// service calls, including the optimistic-locking error contract.
package httpapi

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/logging"
	"github.com/dmitrijs2005/placekeeper/internal/server/config"
	"github.com/dmitrijs2005/placekeeper/internal/server/services"
)

// curatorIDKey is the gin context key the auth middleware fills in.
const curatorIDKey = "curatorID"

// Server bundles the handlers and their dependencies.
type Server struct {
	cfg    *config.Config
	logger logging.Logger

	curators  *services.CuratorService
	entities  *services.EntityService
	curations *services.CurationService
	media     *services.MediaService

	// ping reports storage health; nil means always healthy.
	ping func(ctx context.Context) error
}

func NewServer(cfg *config.Config, logger logging.Logger,
	curators *services.CuratorService, entities *services.EntityService,
	curations *services.CurationService, media *services.MediaService,
	ping func(ctx context.Context) error) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		curators:  curators,
		entities:  entities,
		curations: curations,
		media:     media,
		ping:      ping,
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", common.ExpectedVersionHeader},
		AllowCredentials: false,
	}))

	api := r.Group("/api")
	{
		api.GET("/ping", s.handlePing)
		api.POST("/auth/register", s.handleRegister)
		api.POST("/auth/login", s.handleLogin)
	}

	protected := api.Group("/")
	protected.Use(s.requireAuth())
	{
		protected.POST("/entities", s.handleCreateEntity)
		protected.GET("/entities", s.handleListEntities)
		protected.GET("/entities/:id", s.handleGetEntity)
		protected.PUT("/entities/:id", s.handleUpdateEntity)
		protected.DELETE("/entities/:id", s.handleDeleteEntity)

		protected.POST("/curations", s.handleCreateCuration)
		protected.GET("/curations", s.handleListCurations)
		protected.GET("/curations/:id", s.handleGetCuration)
		protected.PUT("/curations/:id", s.handleUpdateCuration)
		protected.DELETE("/curations/:id", s.handleDeleteCuration)

		protected.POST("/media/upload-url", s.handleUploadURL)
		protected.GET("/media/download-url", s.handleDownloadURL)
	}

	return r
}
