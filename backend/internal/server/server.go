// Package server exposes the HTTP API over gin. Handlers parse and
// validate transport concerns only; domain rules live in the services
// and reach the client through the typed error taxonomy.
package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"owing/backend/internal/casting"
	"owing/backend/internal/story"
	"owing/backend/internal/universe"
	"owing/backend/pkg/errors"
	"owing/backend/pkg/logger"
)

// Server wires the domain services to HTTP routes
type Server struct {
	castings *casting.Service
	story    *story.Service
	universe *universe.Service
	logger   *zap.Logger
}

// NewServer creates a server over the given services
func NewServer(castings *casting.Service, st *story.Service, un *universe.Service) *Server {
	return &Server{
		castings: castings,
		story:    st,
		universe: un,
		logger:   logger.Get(),
	}
}

// Router builds the gin engine with middleware and all routes
func (s *Server) Router(production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		castings := api.Group("/castings")
		{
			castings.POST("", s.createCasting)
			castings.GET("/:id", s.getCasting)
			castings.PUT("/:id", s.updateCastingInfo)
			castings.PUT("/:id/coord", s.updateCastingCoord)
			castings.DELETE("/:id", s.deleteCasting)
			castings.POST("/:id/image", s.generateCharacterImage)
			castings.POST("/:id/appearances", s.appearInPlot)
		}

		connections := api.Group("/connections")
		{
			connections.POST("", s.createConnection)
			connections.PUT("/:uuid", s.renameConnection)
			connections.DELETE("/:uuid", s.deleteConnection)
		}

		projects := api.Group("/projects")
		{
			projects.GET("/:projectId/graph", s.getProjectGraph)
			projects.POST("/:projectId/extract-cast", s.extractCast)
			projects.GET("/:projectId/plots", s.listPlots)
			projects.GET("/:projectId/folders", s.listFolders)
		}

		plots := api.Group("/plots")
		{
			plots.POST("", s.createPlot)
			plots.GET("/:id", s.getPlot)
			plots.PUT("/:id", s.updatePlot)
			plots.DELETE("/:id", s.deletePlot)
			plots.GET("/:id/blocks", s.listBlocks)
		}

		blocks := api.Group("/blocks")
		{
			blocks.POST("", s.createBlock)
			blocks.GET("/:id", s.getBlock)
			blocks.PUT("/:id", s.updateBlock)
			blocks.PUT("/:id/move", s.moveBlock)
			blocks.DELETE("/:id", s.deleteBlock)
		}

		folders := api.Group("/folders")
		{
			folders.POST("", s.createFolder)
			folders.GET("/:id", s.getFolder)
			folders.DELETE("/:id", s.deleteFolder)
			folders.POST("/:id/upload-url", s.presignUpload)
		}
	}

	return router
}

// respondError maps a service error to its HTTP response via the error
// taxonomy. Untyped errors become an opaque 500.
func (s *Server) respondError(c *gin.Context, err error) {
	if base, ok := errors.AsBaseError(err); ok {
		s.logger.Warn("request failed",
			zap.String("code", base.Code),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(base.Status, gin.H{"code": base.Code, "message": base.Message})
		return
	}

	s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "internal server error"})
}

// idParam parses a numeric path parameter
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "invalid " + name})
		return 0, false
	}
	return id, true
}
