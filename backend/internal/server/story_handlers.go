package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"owing/backend/internal/store"
)

func (s *Server) createPlot(c *gin.Context) {
	var req struct {
		ProjectID   int64  `json:"projectId" binding:"required"`
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	plot, err := s.story.CreatePlot(c.Request.Context(), req.ProjectID, req.Name, req.Description)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plot)
}

func (s *Server) getPlot(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	plot, err := s.story.GetPlot(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plot)
}

func (s *Server) listPlots(c *gin.Context) {
	projectID, ok := idParam(c, "projectId")
	if !ok {
		return
	}

	plots, err := s.story.ListPlots(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plots)
}

func (s *Server) updatePlot(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	plot, err := s.story.UpdatePlot(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plot)
}

func (s *Server) deletePlot(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := s.story.DeletePlot(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type blockRequest struct {
	StoryPlotID   int64                  `json:"storyPlotId" binding:"required"`
	ParentBlockID *int64                 `json:"parentBlockId"`
	Type          string                 `json:"type" binding:"required"`
	Props         map[string]interface{} `json:"props"`
	Contents      []store.Content        `json:"contents"`
}

func (s *Server) createBlock(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	block, err := s.story.CreateBlock(c.Request.Context(), req.StoryPlotID, req.ParentBlockID,
		req.Type, req.Props, req.Contents)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, block)
}

func (s *Server) getBlock(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	block, err := s.story.GetBlock(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}

// listBlocks returns one sibling run of a plot: the root run by default,
// or the children of ?parentId=N.
func (s *Server) listBlocks(c *gin.Context) {
	plotID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var parentID *int64
	if raw := c.Query("parentId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "invalid parentId"})
			return
		}
		parentID = &parsed
	}

	blocks, err := s.story.ListBlocks(c.Request.Context(), plotID, parentID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, blocks)
}

func (s *Server) updateBlock(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Type     string                 `json:"type" binding:"required"`
		Props    map[string]interface{} `json:"props"`
		Contents []store.Content        `json:"contents"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	block, err := s.story.UpdateBlock(c.Request.Context(), id, req.Type, req.Props, req.Contents)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}

func (s *Server) moveBlock(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		ParentBlockID *int64 `json:"parentBlockId"`
		Position      int    `json:"position" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	block, err := s.story.MoveBlock(c.Request.Context(), id, req.ParentBlockID, req.Position)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}

func (s *Server) deleteBlock(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := s.story.DeleteBlock(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
