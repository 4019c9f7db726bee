package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nullgrid/nullgrid/internal/apierrors"
	"github.com/nullgrid/nullgrid/internal/coordinator"
	"github.com/nullgrid/nullgrid/internal/middleware"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/store"
)

// HandleListUsers returns every account. Admin only.
// GET /api/v1/users
func (s *Server) HandleListUsers(c *gin.Context) {
	users, err := s.accounts.Users(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// HandleListPending returns registrations awaiting review. Admin only.
// GET /api/v1/users/pending
func (s *Server) HandleListPending(c *gin.Context) {
	users, err := s.accounts.PendingUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// HandleApproveUser activates a pending registration and returns the
// one-time temporary secret. Admin only.
// POST /api/v1/users/:identity/approve
func (s *Server) HandleApproveUser(c *gin.Context) {
	profile, secret, err := s.accounts.Approve(c.Request.Context(), c.Param("identity"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "temp_secret": secret})
}

// HandleDenyUser discards a pending registration. Admin only.
// POST /api/v1/users/:identity/deny
func (s *Server) HandleDenyUser(c *gin.Context) {
	if err := s.accounts.Deny(c.Request.Context(), c.Param("identity")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleBanUser bans an account and cuts its live sessions. Admin only.
// POST /api/v1/users/:identity/ban
func (s *Server) HandleBanUser(c *gin.Context) {
	profile, err := s.accounts.SetBan(c.Request.Context(), c.Param("identity"), true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// HandleUnbanUser reinstates a banned account. Admin only.
// POST /api/v1/users/:identity/unban
func (s *Server) HandleUnbanUser(c *gin.Context) {
	profile, err := s.accounts.SetBan(c.Request.Context(), c.Param("identity"), false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// HandleAdminUpdateProfile patches any account's profile. Admin only.
// PATCH /api/v1/users/:identity/profile
func (s *Server) HandleAdminUpdateProfile(c *gin.Context) {
	var patch models.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		apierrors.Error(c, apierrors.CodeInvalidRequest)
		return
	}

	profile, err := s.accounts.UpdateProfile(c.Request.Context(), c.Param("identity"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// HandleAdminSetPassword resets any account's secret. Admin only.
// PUT /api/v1/users/:identity/password
func (s *Server) HandleAdminSetPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Error(c, apierrors.CodeInvalidRequest)
		return
	}

	if err := s.accounts.SetPassword(c.Request.Context(), c.Param("identity"), req.Secret); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type passwordRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// HandleSetOwnPassword lets the authenticated account replace its secret.
// PUT /api/v1/me/password
func (s *Server) HandleSetOwnPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Error(c, apierrors.CodeInvalidRequest)
		return
	}

	if err := s.accounts.SetPassword(c.Request.Context(), middleware.Identity(c), req.Secret); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGetMe returns the authenticated account's profile.
// GET /api/v1/me
func (s *Server) HandleGetMe(c *gin.Context) {
	identity := middleware.Identity(c)
	var profile models.Profile
	err := s.co.View(c.Request.Context(), func(st *coordinator.State) error {
		u, ok := store.User(st.Store, identity)
		if !ok {
			return store.ErrNotFound
		}
		profile = u.Profile()
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// HandleUpdateMe patches the authenticated account's profile fields.
// PATCH /api/v1/me
func (s *Server) HandleUpdateMe(c *gin.Context) {
	var patch models.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		apierrors.Error(c, apierrors.CodeInvalidRequest)
		return
	}

	profile, err := s.accounts.UpdateProfile(c.Request.Context(), middleware.Identity(c), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// HandleOnline lists the identities currently connected.
// GET /api/v1/online
func (s *Server) HandleOnline(c *gin.Context) {
	online, err := s.sessions.Online(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": online})
}
