package support

import (
	"errors"
	"testing"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTicket(t *testing.T) *Ticket {
	t.Helper()
	customerID := uuid.New()
	ticket, err := NewTicket("T-0001", "Missing parcel", &customerID)
	require.NoError(t, err)
	return ticket
}

type message struct {
	customer bool
	internal bool
}

func TestTicketStateResolver_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		closed   bool
		internal bool
		messages []message
		expected TicketState
	}{
		{"no message", false, false, nil, TicketStateNew},
		{"customer wrote last", false, false, []message{{customer: true}}, TicketStateOpened},
		{"staff answered", false, false, []message{{customer: true}, {}}, TicketStatePending},
		{"customer replied", false, false, []message{{customer: true}, {}, {customer: true}}, TicketStateOpened},
		{"internal notes are skipped", false, false, []message{{customer: true}, {internal: true}}, TicketStateOpened},
		{"only internal notes", false, false, []message{{internal: true}, {internal: true}}, TicketStateNew},
		{"internal ticket", false, true, []message{{customer: true}}, TicketStateInternal},
		{"closed wins", true, true, []message{{customer: true}}, TicketStateClosed},
		{"closed without message", true, false, nil, TicketStateClosed},
	}

	resolver := NewTicketStateResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := newTestTicket(t)
			ticket.Closed = tt.closed
			ticket.Internal = tt.internal
			for _, m := range tt.messages {
				_, err := ticket.AddMessage("hello", "someone", m.customer, m.internal)
				require.NoError(t, err)
			}

			state, err := resolver.Resolve(ticket)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, state)
			assert.Equal(t, tt.expected, ticket.State)
		})
	}

	t.Run("nil ticket", func(t *testing.T) {
		_, err := resolver.Resolve(nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	})
}

func TestTicket(t *testing.T) {
	_, err := NewTicket("", "x", nil)
	assert.Error(t, err)
	_, err = NewTicket("T-1", "", nil)
	assert.Error(t, err)

	ticket := newTestTicket(t)
	_, err = ticket.AddMessage("", "a", true, false)
	assert.Error(t, err)
	_, err = ticket.AddMessage("note", "a", true, true)
	assert.Error(t, err)

	orderID := uuid.New()
	ticket.LinkOrder(orderID)
	ticket.LinkOrder(orderID)
	assert.Equal(t, []uuid.UUID{orderID}, ticket.OrderIDs)

	ticket.Close()
	assert.True(t, ticket.Closed)
	ticket.Reopen()
	assert.False(t, ticket.Closed)
	assert.Nil(t, LatestPublicMessage(ticket))
}
