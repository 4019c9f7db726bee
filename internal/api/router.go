package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nullgrid/nullgrid/internal/middleware"
)

// Router assembles the full route tree.
func (s *Server) Router(authRateLimit int) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewRateLimiter()
	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth", limiter.RateLimitByIP(authRateLimit))
	{
		authGroup.POST("/register", s.HandleRegister)
		authGroup.POST("/login", s.HandleLogin)
	}

	authed := v1.Group("/", middleware.AuthRequired(s.tokens, s.co))
	{
		authed.GET("/me", s.HandleGetMe)
		authed.PATCH("/me", s.HandleUpdateMe)
		authed.PUT("/me/password", s.HandleSetOwnPassword)
		authed.GET("/online", s.HandleOnline)

		authed.GET("/ws", s.HandleWS)

		authed.POST("/tickets", s.HandleCreateTicket)
		authed.GET("/tickets", s.HandleListTickets)
		authed.GET("/tickets/:id", s.HandleGetTicket)
		authed.POST("/tickets/:id/close", s.HandleCloseTicket)
		authed.POST("/tickets/:id/messages", s.HandleTicketMessage)

		authed.GET("/broadcasts", s.HandleListBroadcasts)
		authed.GET("/radio", s.HandleListRadio)
		authed.POST("/radio", s.HandlePostRadio)
	}

	admin := authed.Group("/", middleware.RequireAdmin())
	{
		admin.GET("/users", s.HandleListUsers)
		admin.GET("/users/pending", s.HandleListPending)
		admin.POST("/users/:identity/approve", s.HandleApproveUser)
		admin.POST("/users/:identity/deny", s.HandleDenyUser)
		admin.POST("/users/:identity/ban", s.HandleBanUser)
		admin.POST("/users/:identity/unban", s.HandleUnbanUser)
		admin.PATCH("/users/:identity/profile", s.HandleAdminUpdateProfile)
		admin.PUT("/users/:identity/password", s.HandleAdminSetPassword)

		admin.POST("/tickets/:id/accept", s.HandleAcceptTicket)
		admin.POST("/tickets/:id/reject", s.HandleRejectTicket)

		admin.POST("/broadcasts", s.HandlePostBroadcast)
		admin.DELETE("/radio", s.HandleClearRadio)
	}

	return router
}

// handleHealthz reports liveness plus whether persistence is degraded.
// Degraded still returns 200: the process serves reads and queues writes.
func (s *Server) handleHealthz(c *gin.Context) {
	status := "ok"
	if s.co.Degraded() {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
