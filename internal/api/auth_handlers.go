package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nullgrid/nullgrid/internal/apierrors"
)

type registerRequest struct {
	Identity    string `json:"identity" binding:"required"`
	DisplayName string `json:"display_name"`
}

// HandleRegister files a registration for admin review.
// POST /api/v1/auth/register
func (s *Server) HandleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Error(c, apierrors.CodeInvalidRequest)
		return
	}

	profile, err := s.auth.Register(c.Request.Context(), req.Identity, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"profile": profile})
}

type loginRequest struct {
	Identity string `json:"identity" binding:"required"`
	Secret   string `json:"secret"`
}

// HandleLogin exchanges credentials for a bearer token.
// POST /api/v1/auth/login
func (s *Server) HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Error(c, apierrors.CodeInvalidRequest)
		return
	}

	token, profile, err := s.auth.Login(c.Request.Context(), req.Identity, req.Secret)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "profile": profile})
}
