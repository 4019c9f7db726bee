package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullgrid/nullgrid/internal/models"
)

func newTicket(s *models.PersistedStore) *models.Ticket {
	return CreateTicket(s, "t-1", "ALPHA9", "Need access", "please open the door", now)
}

func TestTicketLifecycle(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		s := models.NewStore()
		tk := newTicket(s)
		assert.Equal(t, models.TicketPending, tk.Status)
		assert.Empty(t, tk.AssignedTo)
		require.Len(t, tk.Messages, 1)
		assert.Equal(t, "please open the door", tk.Messages[0].Text)
	})

	t.Run("AcceptAssignsExactlyOneAdmin", func(t *testing.T) {
		s := models.NewStore()
		newTicket(s)

		tk, err := AcceptTicket(s, "t-1", "SYSOP", now)
		require.NoError(t, err)
		assert.Equal(t, models.TicketActive, tk.Status)
		assert.Equal(t, "SYSOP", tk.AssignedTo)

		// The losing admin of an accept race sees AlreadyActive and the
		// assignment does not change.
		_, err = AcceptTicket(s, "t-1", "SYSOP2", now)
		assert.ErrorIs(t, err, ErrAlreadyActive)
		assert.Equal(t, "SYSOP", s.Tickets["t-1"].AssignedTo)
	})

	t.Run("RejectIsTerminal", func(t *testing.T) {
		s := models.NewStore()
		newTicket(s)

		tk, err := RejectTicket(s, "t-1", now)
		require.NoError(t, err)
		assert.Equal(t, models.TicketRejected, tk.Status)

		_, err = AcceptTicket(s, "t-1", "SYSOP", now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = RejectTicket(s, "t-1", now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = CloseTicket(s, "t-1", now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("CloseRequiresActive", func(t *testing.T) {
		s := models.NewStore()
		newTicket(s)

		_, err := CloseTicket(s, "t-1", now)
		assert.ErrorIs(t, err, ErrInvalidTransition, "pending cannot close")

		_, err = AcceptTicket(s, "t-1", "SYSOP", now)
		require.NoError(t, err)
		tk, err := CloseTicket(s, "t-1", now)
		require.NoError(t, err)
		assert.Equal(t, models.TicketClosed, tk.Status)

		_, err = CloseTicket(s, "t-1", now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Messages", func(t *testing.T) {
		s := models.NewStore()
		newTicket(s)

		// pending: no chat yet
		_, _, err := AppendTicketMessage(s, "t-1", "ALPHA9", false, "hello", now)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		_, err = AcceptTicket(s, "t-1", "SYSOP", now)
		require.NoError(t, err)

		tk, msg, err := AppendTicketMessage(s, "t-1", "SYSOP", true, "state your problem", now)
		require.NoError(t, err)
		assert.True(t, msg.Admin)
		require.Len(t, tk.Messages, 2)
		assert.Equal(t, "state your problem", tk.Messages[1].Text)

		_, err = CloseTicket(s, "t-1", now)
		require.NoError(t, err)
		_, _, err = AppendTicketMessage(s, "t-1", "ALPHA9", false, "hello?", now)
		assert.ErrorIs(t, err, ErrTicketClosed)
	})

	t.Run("UnknownTicket", func(t *testing.T) {
		s := models.NewStore()
		_, err := AcceptTicket(s, "nope", "SYSOP", now)
		assert.ErrorIs(t, err, ErrNotFound)
		_, _, err = AppendTicketMessage(s, "nope", "A", false, "x", now)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTicketListings(t *testing.T) {
	s := models.NewStore()
	CreateTicket(s, "t-1", "ALPHA9", "first", "m", now)
	CreateTicket(s, "t-2", "BRAVO2", "second", "m", now.Add(time.Minute))
	CreateTicket(s, "t-3", "ALPHA9", "third", "m", now.Add(2*time.Minute))

	all := Tickets(s)
	require.Len(t, all, 3)
	assert.Equal(t, "t-3", all[0].ID, "newest first")

	mine := TicketsFor(s, "ALPHA9")
	require.Len(t, mine, 2)
	assert.Equal(t, "t-3", mine[0].ID)
	assert.Equal(t, "t-1", mine[1].ID)
}
