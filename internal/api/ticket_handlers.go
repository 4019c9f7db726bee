package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nullgrid/nullgrid/internal/apierrors"
	"github.com/nullgrid/nullgrid/internal/middleware"
)

type createTicketRequest struct {
	Subject string `json:"subject" binding:"required"`
	Text    string `json:"text" binding:"required"`
}

// HandleCreateTicket opens a ticket for the authenticated operator.
// POST /api/v1/tickets
func (s *Server) HandleCreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Error(c, apierrors.CodeInvalidRequest)
		return
	}

	ticket, err := s.tickets.Create(c.Request.Context(), middleware.Identity(c), req.Subject, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": ticket})
}

// HandleListTickets lists the caller's tickets, or all tickets for admins.
// GET /api/v1/tickets
func (s *Server) HandleListTickets(c *gin.Context) {
	tickets, err := s.tickets.List(c.Request.Context(), middleware.Identity(c), middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// HandleGetTicket fetches one ticket with its message thread.
// GET /api/v1/tickets/:id
func (s *Server) HandleGetTicket(c *gin.Context) {
	ticket, err := s.tickets.Get(c.Request.Context(), c.Param("id"), middleware.Identity(c), middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

// HandleAcceptTicket assigns the ticket to the accepting admin. Admin only.
// POST /api/v1/tickets/:id/accept
func (s *Server) HandleAcceptTicket(c *gin.Context) {
	ticket, err := s.tickets.Accept(c.Request.Context(), c.Param("id"), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

// HandleRejectTicket declines a pending ticket. Admin only.
// POST /api/v1/tickets/:id/reject
func (s *Server) HandleRejectTicket(c *gin.Context) {
	ticket, err := s.tickets.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

// HandleCloseTicket finishes an active ticket.
// POST /api/v1/tickets/:id/close
func (s *Server) HandleCloseTicket(c *gin.Context) {
	ticket, err := s.tickets.Close(c.Request.Context(), c.Param("id"), middleware.Identity(c), middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

type ticketMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// HandleTicketMessage appends to an active ticket's thread.
// POST /api/v1/tickets/:id/messages
func (s *Server) HandleTicketMessage(c *gin.Context) {
	var req ticketMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Error(c, apierrors.CodeInvalidRequest)
		return
	}

	ticket, err := s.tickets.AddMessage(c.Request.Context(), c.Param("id"), middleware.Identity(c), middleware.IsAdmin(c), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}
