package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"owing/backend/internal/casting"
	"owing/backend/internal/graph"
	"owing/backend/internal/store"
)

type castingRequest struct {
	Name   string `json:"name" binding:"required"`
	Age    int64  `json:"age"`
	Gender string `json:"gender"`
	Role   string `json:"role"`
	Detail string `json:"detail"`
	CoordX int    `json:"coordX"`
	CoordY int    `json:"coordY"`
}

func (s *Server) createCasting(c *gin.Context) {
	var req castingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	node, err := s.castings.CreateCasting(c.Request.Context(), &store.CastingRecord{
		Name: req.Name, Age: req.Age, Gender: req.Gender,
		Role: req.Role, Detail: req.Detail,
		CoordX: req.CoordX, CoordY: req.CoordY,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

func (s *Server) getCasting(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	rec, err := s.castings.GetCasting(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) updateCastingInfo(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Name     string `json:"name" binding:"required"`
		Age      int64  `json:"age"`
		Gender   string `json:"gender"`
		Role     string `json:"role"`
		Detail   string `json:"detail"`
		ImageURL string `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	node, err := s.castings.UpdateCastingInfo(c.Request.Context(), id,
		req.Name, req.Age, req.Gender, req.Role, req.Detail, req.ImageURL)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (s *Server) updateCastingCoord(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		CoordX int `json:"coordX"`
		CoordY int `json:"coordY"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	node, err := s.castings.UpdateCastingCoord(c.Request.Context(), id, req.CoordX, req.CoordY)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (s *Server) deleteCasting(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := s.castings.DeleteCasting(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) generateCharacterImage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	url, err := s.castings.GenerateCharacterImage(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageUrl": url})
}

func (s *Server) appearInPlot(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		PlotID int64 `json:"plotId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	if err := s.castings.AppearInPlot(c.Request.Context(), id, req.PlotID); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createConnection(c *gin.Context) {
	var req casting.ConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	conn, err := s.castings.CreateConnection(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conn)
}

func (s *Server) renameConnection(c *gin.Context) {
	var req struct {
		SourceID int64  `json:"sourceId" binding:"required"`
		TargetID int64  `json:"targetId" binding:"required"`
		Kind     string `json:"connectionType" binding:"required"`
		Label    string `json:"label" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	conn, err := s.castings.RenameConnection(c.Request.Context(), c.Param("uuid"),
		req.SourceID, req.TargetID, graph.ConnectionKind(req.Kind), req.Label)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

func (s *Server) deleteConnection(c *gin.Context) {
	if err := s.castings.DeleteConnection(c.Request.Context(), c.Param("uuid")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getProjectGraph(c *gin.Context) {
	projectID, ok := idParam(c, "projectId")
	if !ok {
		return
	}

	pg, err := s.castings.GetProjectGraph(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pg)
}

func (s *Server) extractCast(c *gin.Context) {
	projectID, ok := idParam(c, "projectId")
	if !ok {
		return
	}

	var req struct {
		Manuscript string `json:"manuscript" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	summaries, err := s.castings.ExtractCast(c.Request.Context(), projectID, req.Manuscript)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": summaries})
}
