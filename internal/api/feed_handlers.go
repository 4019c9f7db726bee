package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nullgrid/nullgrid/internal/apierrors"
	"github.com/nullgrid/nullgrid/internal/middleware"
)

type broadcastRequest struct {
	Text   string `json:"text" binding:"required"`
	Sprite string `json:"sprite"`
}

// HandlePostBroadcast publishes a sitewide announcement. Admin only.
// POST /api/v1/broadcasts
func (s *Server) HandlePostBroadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Error(c, apierrors.CodeInvalidRequest)
		return
	}

	b, err := s.feed.PostBroadcast(c.Request.Context(), middleware.Identity(c), req.Text, req.Sprite)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"broadcast": b})
}

// HandleListBroadcasts returns the retained announcements.
// GET /api/v1/broadcasts
func (s *Server) HandleListBroadcasts(c *gin.Context) {
	broadcasts, err := s.feed.Broadcasts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"broadcasts": broadcasts})
}

type radioRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text" binding:"required"`
}

// HandlePostRadio sends a chat line on the common band or a channel.
// POST /api/v1/radio
func (s *Server) HandlePostRadio(c *gin.Context) {
	var req radioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Error(c, apierrors.CodeInvalidRequest)
		return
	}

	m, err := s.feed.PostRadio(c.Request.Context(), middleware.Identity(c), req.Channel, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": m})
}

// HandleListRadio returns the retained chat log.
// GET /api/v1/radio
func (s *Server) HandleListRadio(c *gin.Context) {
	messages, err := s.feed.Radio(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// HandleClearRadio wipes the retained chat log. Admin only.
// DELETE /api/v1/radio
func (s *Server) HandleClearRadio(c *gin.Context) {
	if err := s.feed.ClearRadio(c.Request.Context(), middleware.Identity(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
