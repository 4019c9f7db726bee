package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nullgrid/nullgrid/internal/apierrors"
	"github.com/nullgrid/nullgrid/internal/auth"
	"github.com/nullgrid/nullgrid/internal/coordinator"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/store"
)

// Context keys set by AuthRequired.
const (
	CtxIdentity = "identity"
	CtxRole     = "role"
)

// AuthRequired verifies a bearer token and re-checks the account's
// current status, so a ban or a revoked approval takes effect on the
// very next request even for tokens that are still cryptographically
// valid.
func AuthRequired(tokens *auth.TokenIssuer, co *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ExtractToken(c)
		if raw == "" {
			apierrors.Error(c, apierrors.CodeInvalidToken)
			c.Abort()
			return
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			apierrors.Error(c, apierrors.CodeInvalidToken)
			c.Abort()
			return
		}

		var status models.Status
		err = co.View(c.Request.Context(), func(st *coordinator.State) error {
			u, ok := store.User(st.Store, claims.Identity)
			if !ok {
				return store.ErrNotFound
			}
			status = u.Status
			return nil
		})
		if err != nil {
			apierrors.Error(c, apierrors.CodeInvalidToken)
			c.Abort()
			return
		}
		switch status {
		case models.StatusBanned:
			apierrors.Error(c, apierrors.CodeBanned)
			c.Abort()
			return
		case models.StatusPending:
			apierrors.Error(c, apierrors.CodeNotApproved)
			c.Abort()
			return
		}

		c.Set(CtxIdentity, claims.Identity)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin gates a route group to admin tokens. Must run after
// AuthRequired.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Role(c) != models.RoleAdmin {
			apierrors.Error(c, apierrors.CodeForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Identity returns the authenticated identity set by AuthRequired.
func Identity(c *gin.Context) string {
	return c.GetString(CtxIdentity)
}

// Role returns the authenticated role set by AuthRequired.
func Role(c *gin.Context) models.Role {
	if v, ok := c.Get(CtxRole); ok {
		if r, ok := v.(models.Role); ok {
			return r
		}
	}
	return ""
}

// IsAdmin reports whether the request carries an admin token.
func IsAdmin(c *gin.Context) bool {
	return Role(c) == models.RoleAdmin
}

// ExtractToken pulls the bearer token from the Authorization header,
// falling back to the "token" query parameter for websocket upgrades
// where browsers cannot set headers.
func ExtractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}
