package models

import "time"

// TicketStatus is the lifecycle state of a help-desk ticket.
// Legal transitions: pending -> active -> closed, pending -> rejected.
type TicketStatus string

const (
	TicketPending  TicketStatus = "pending"
	TicketActive   TicketStatus = "active"
	TicketClosed   TicketStatus = "closed"
	TicketRejected TicketStatus = "rejected"
)

// TicketMessage is one chat line inside a ticket. The log is append-only
// and ordered by append time.
type TicketMessage struct {
	Sender string    `json:"sender"`
	Admin  bool      `json:"admin"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Ticket is a help request raised by an operator. AssignedTo is set when
// an admin accepts the ticket and stays set through closure.
type Ticket struct {
	ID         string          `json:"id"`
	Requester  string          `json:"requester"`
	Subject    string          `json:"subject"`
	Status     TicketStatus    `json:"status"`
	AssignedTo string          `json:"assigned_to,omitempty"`
	Messages   []TicketMessage `json:"messages"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Terminal reports whether no further transitions are possible.
func (s TicketStatus) Terminal() bool {
	return s == TicketClosed || s == TicketRejected
}
