package api

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/nullgrid/nullgrid/internal/apierrors"
	"github.com/nullgrid/nullgrid/internal/auth"
	"github.com/nullgrid/nullgrid/internal/coordinator"
	"github.com/nullgrid/nullgrid/internal/service"
	"github.com/nullgrid/nullgrid/internal/store"
)

// Server bundles the HTTP handlers and their dependencies.
type Server struct {
	co       *coordinator.Coordinator
	tokens   *auth.TokenIssuer
	auth     *service.AuthService
	accounts *service.AccountService
	tickets  *service.TicketService
	feed     *service.FeedService
	sessions *service.SessionService
	log      *slog.Logger
}

// NewServer creates the handler set.
func NewServer(
	co *coordinator.Coordinator,
	tokens *auth.TokenIssuer,
	authSvc *service.AuthService,
	accounts *service.AccountService,
	tickets *service.TicketService,
	feed *service.FeedService,
	sessions *service.SessionService,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		co:       co,
		tokens:   tokens,
		auth:     authSvc,
		accounts: accounts,
		tickets:  tickets,
		feed:     feed,
		sessions: sessions,
		log:      log,
	}
}

// respondError maps service and store errors onto the error code registry.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, err.Error())
	case errors.Is(err, service.ErrNotTicketParticipant):
		apierrors.Error(c, apierrors.CodeForbidden)
	case errors.Is(err, store.ErrNotFound):
		apierrors.Error(c, apierrors.CodeNotFound)
	case errors.Is(err, store.ErrDuplicateIdentity):
		apierrors.Error(c, apierrors.CodeDuplicateIdentity)
	case errors.Is(err, store.ErrBadCredentials):
		apierrors.Error(c, apierrors.CodeBadCredentials)
	case errors.Is(err, store.ErrNotApproved):
		apierrors.Error(c, apierrors.CodeNotApproved)
	case errors.Is(err, store.ErrBanned):
		apierrors.Error(c, apierrors.CodeBanned)
	case errors.Is(err, store.ErrNotPending):
		apierrors.Error(c, apierrors.CodeConflict)
	case errors.Is(err, store.ErrProtectedIdentity):
		apierrors.Error(c, apierrors.CodeForbidden)
	case errors.Is(err, store.ErrAlreadyActive):
		apierrors.Error(c, apierrors.CodeAlreadyActive)
	case errors.Is(err, store.ErrTicketClosed):
		apierrors.Error(c, apierrors.CodeTicketClosed)
	case errors.Is(err, store.ErrInvalidTransition):
		apierrors.Error(c, apierrors.CodeInvalidTransition)
	case errors.Is(err, coordinator.ErrStopped):
		apierrors.Error(c, apierrors.CodeDegraded)
	default:
		apierrors.Error(c, apierrors.CodeInternalError)
	}
}
