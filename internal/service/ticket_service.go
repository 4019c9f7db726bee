package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nullgrid/nullgrid/internal/coordinator"
	"github.com/nullgrid/nullgrid/internal/events"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/store"
)

// TicketService handles support tickets between operators and admins.
type TicketService struct {
	co  *coordinator.Coordinator
	log *slog.Logger
}

// NewTicketService creates the ticket service.
func NewTicketService(co *coordinator.Coordinator, log *slog.Logger) *TicketService {
	if log == nil {
		log = slog.Default()
	}
	return &TicketService{co: co, log: log}
}

// Create opens a ticket on behalf of requester. Admins are notified.
func (s *TicketService) Create(ctx context.Context, requester, subject, text string) (models.Ticket, error) {
	subject, err := cleanText("subject", subject, maxSubjectLen)
	if err != nil {
		return models.Ticket{}, err
	}
	text, err = cleanText("message", text, maxMessageLen)
	if err != nil {
		return models.Ticket{}, err
	}

	id := uuid.NewString()
	var out models.Ticket
	err = s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		t := store.CreateTicket(st.Store, id, requester, subject, text, time.Now().UTC())
		out = *t
		return coordinator.Result{
			Dirty: true,
			Events: []events.Event{
				{Kind: events.KindTicketCreated, Payload: out, Audience: events.Admins()},
			},
		}, nil
	})
	if err != nil {
		return models.Ticket{}, err
	}
	s.log.Info("ticket created", "id", id, "requester", requester)
	return out, nil
}

// Accept assigns a pending ticket to the accepting admin and activates it.
func (s *TicketService) Accept(ctx context.Context, id, admin string) (models.Ticket, error) {
	var out models.Ticket
	err := s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		t, err := store.AcceptTicket(st.Store, id, admin, time.Now().UTC())
		if err != nil {
			return coordinator.Result{}, err
		}
		out = *t
		return coordinator.Result{Dirty: true, Events: updateEvents(out)}, nil
	})
	return out, err
}

// Reject declines a pending ticket.
func (s *TicketService) Reject(ctx context.Context, id string) (models.Ticket, error) {
	var out models.Ticket
	err := s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		t, err := store.RejectTicket(st.Store, id, time.Now().UTC())
		if err != nil {
			return coordinator.Result{}, err
		}
		out = *t
		return coordinator.Result{Dirty: true, Events: updateEvents(out)}, nil
	})
	return out, err
}

// Close finishes an active ticket. Only the requester or an admin may
// close it.
func (s *TicketService) Close(ctx context.Context, id, actor string, actorAdmin bool) (models.Ticket, error) {
	var out models.Ticket
	err := s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		t, ok := store.Ticket(st.Store, id)
		if !ok {
			return coordinator.Result{}, store.ErrNotFound
		}
		if !actorAdmin && t.Requester != actor {
			return coordinator.Result{}, ErrNotTicketParticipant
		}
		t, err := store.CloseTicket(st.Store, id, time.Now().UTC())
		if err != nil {
			return coordinator.Result{}, err
		}
		out = *t
		return coordinator.Result{Dirty: true, Events: updateEvents(out)}, nil
	})
	return out, err
}

// AddMessage appends to an active ticket's thread. Operators may only
// write to their own tickets; the message goes to both participants.
func (s *TicketService) AddMessage(ctx context.Context, id, sender string, senderAdmin bool, text string) (models.Ticket, error) {
	text, err := cleanText("message", text, maxMessageLen)
	if err != nil {
		return models.Ticket{}, err
	}

	var out models.Ticket
	err = s.co.Apply(ctx, func(st *coordinator.State) (coordinator.Result, error) {
		t, ok := store.Ticket(st.Store, id)
		if !ok {
			return coordinator.Result{}, store.ErrNotFound
		}
		if !senderAdmin && t.Requester != sender {
			return coordinator.Result{}, ErrNotTicketParticipant
		}
		t, msg, err := store.AppendTicketMessage(st.Store, id, sender, senderAdmin, text, time.Now().UTC())
		if err != nil {
			return coordinator.Result{}, err
		}
		out = *t
		recipients := []string{t.Requester}
		if t.AssignedTo != "" {
			recipients = append(recipients, t.AssignedTo)
		}
		return coordinator.Result{
			Dirty: true,
			Events: []events.Event{{
				Kind: events.KindTicketMessage,
				Payload: map[string]any{
					"ticket_id": t.ID,
					"message":   msg,
				},
				Audience: events.To(recipients...),
			}},
		}, nil
	})
	return out, err
}

// Get fetches one ticket, enforcing that operators only read their own.
func (s *TicketService) Get(ctx context.Context, id, actor string, actorAdmin bool) (models.Ticket, error) {
	var out models.Ticket
	err := s.co.View(ctx, func(st *coordinator.State) error {
		t, ok := store.Ticket(st.Store, id)
		if !ok {
			return store.ErrNotFound
		}
		if !actorAdmin && t.Requester != actor {
			return ErrNotTicketParticipant
		}
		out = *t
		return nil
	})
	return out, err
}

// List returns the tickets visible to the actor: all of them for an
// admin, the actor's own otherwise.
func (s *TicketService) List(ctx context.Context, actor string, actorAdmin bool) ([]models.Ticket, error) {
	var out []models.Ticket
	err := s.co.View(ctx, func(st *coordinator.State) error {
		if actorAdmin {
			out = store.Tickets(st.Store)
		} else {
			out = store.TicketsFor(st.Store, actor)
		}
		return nil
	})
	return out, err
}

// updateEvents notifies admins and the requester about a status change.
func updateEvents(t models.Ticket) []events.Event {
	return []events.Event{
		{Kind: events.KindTicketUpdated, Payload: t, Audience: events.Admins()},
		{Kind: events.KindTicketUpdated, Payload: t, Audience: events.To(t.Requester)},
	}
}
