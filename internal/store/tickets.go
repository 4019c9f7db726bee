package store

import (
	"sort"
	"time"

	"github.com/nullgrid/nullgrid/internal/models"
)

// CreateTicket opens a new help request in the pending state with its
// initial message recorded.
func CreateTicket(s *models.PersistedStore, id, requester, subject, text string, now time.Time) *models.Ticket {
	t := &models.Ticket{
		ID:        id,
		Requester: requester,
		Subject:   subject,
		Status:    models.TicketPending,
		Messages: []models.TicketMessage{
			{Sender: requester, Text: text, SentAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Tickets[id] = t
	return t
}

// AcceptTicket moves a pending ticket to active and assigns the accepting
// admin as its counterpart. Because all mutations are serialized, the
// first committer wins; a later accept sees the active state and fails
// with ErrAlreadyActive.
func AcceptTicket(s *models.PersistedStore, id, admin string, now time.Time) (*models.Ticket, error) {
	t, ok := s.Tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	switch t.Status {
	case models.TicketPending:
	case models.TicketActive:
		return nil, ErrAlreadyActive
	default:
		return nil, ErrInvalidTransition
	}
	t.Status = models.TicketActive
	t.AssignedTo = admin
	t.UpdatedAt = now
	return t, nil
}

// RejectTicket terminates a pending ticket without assignment.
func RejectTicket(s *models.PersistedStore, id string, now time.Time) (*models.Ticket, error) {
	t, ok := s.Tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != models.TicketPending {
		return nil, ErrInvalidTransition
	}
	t.Status = models.TicketRejected
	t.UpdatedAt = now
	return t, nil
}

// CloseTicket terminates an active ticket.
func CloseTicket(s *models.PersistedStore, id string, now time.Time) (*models.Ticket, error) {
	t, ok := s.Tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != models.TicketActive {
		return nil, ErrInvalidTransition
	}
	t.Status = models.TicketClosed
	t.UpdatedAt = now
	return t, nil
}

// AppendTicketMessage adds a chat line to an active ticket. A closed
// ticket yields ErrTicketClosed; pending and rejected tickets have no
// chat at all and yield ErrInvalidTransition.
func AppendTicketMessage(s *models.PersistedStore, id, sender string, admin bool, text string, now time.Time) (*models.Ticket, *models.TicketMessage, error) {
	t, ok := s.Tickets[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	switch t.Status {
	case models.TicketActive:
	case models.TicketClosed:
		return nil, nil, ErrTicketClosed
	default:
		return nil, nil, ErrInvalidTransition
	}
	t.Messages = append(t.Messages, models.TicketMessage{
		Sender: sender,
		Admin:  admin,
		Text:   text,
		SentAt: now,
	})
	t.UpdatedAt = now
	return t, &t.Messages[len(t.Messages)-1], nil
}

// Ticket looks up a ticket by id.
func Ticket(s *models.PersistedStore, id string) (*models.Ticket, bool) {
	t, ok := s.Tickets[id]
	return t, ok
}

// Tickets lists all tickets, newest first.
func Tickets(s *models.PersistedStore) []models.Ticket {
	out := make([]models.Ticket, 0, len(s.Tickets))
	for _, t := range s.Tickets {
		out = append(out, *t)
	}
	sortTickets(out)
	return out
}

// TicketsFor lists the tickets raised by one requester, newest first.
func TicketsFor(s *models.PersistedStore, requester string) []models.Ticket {
	var out []models.Ticket
	for _, t := range s.Tickets {
		if t.Requester == requester {
			out = append(out, *t)
		}
	}
	sortTickets(out)
	return out
}

func sortTickets(ts []models.Ticket) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].ID < ts[j].ID
		}
		return ts[i].CreatedAt.After(ts[j].CreatedAt)
	})
}
