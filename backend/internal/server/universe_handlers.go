package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) createFolder(c *gin.Context) {
	var req struct {
		ProjectID int64  `json:"projectId" binding:"required"`
		Name      string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	folder, err := s.universe.CreateFolder(c.Request.Context(), req.ProjectID, req.Name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, folder)
}

func (s *Server) getFolder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	folder, err := s.universe.GetFolder(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

func (s *Server) listFolders(c *gin.Context) {
	projectID, ok := idParam(c, "projectId")
	if !ok {
		return
	}

	folders, err := s.universe.ListFolders(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, folders)
}

func (s *Server) deleteFolder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := s.universe.DeleteFolder(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) presignUpload(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Filename string `json:"filename" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	url, err := s.universe.PresignUpload(c.Request.Context(), id, req.Filename)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploadUrl": url})
}
