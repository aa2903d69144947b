package support

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/support"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) FindByID(ctx context.Context, id uuid.UUID) (*support.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*support.Ticket), args.Error(1)
}

func (m *MockTicketRepository) FindByNumber(ctx context.Context, number string) (*support.Ticket, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*support.Ticket), args.Error(1)
}

func (m *MockTicketRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*support.Ticket, error) {
	args := m.Called(ctx, customerID, filter)
	return args.Get(0).([]*support.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Save(ctx context.Context, ticket *support.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		p.types = append(p.types, e.EventType())
	}
	return nil
}

func newTicketService(t *testing.T) (*TicketService, *MockTicketRepository, *recordingPublisher) {
	t.Helper()
	repo := new(MockTicketRepository)
	publisher := &recordingPublisher{}
	service := NewTicketService(repo, zaptest.NewLogger(t))
	service.SetEventPublisher(publisher)
	return service, repo, publisher
}

func TestTicketService_Open(t *testing.T) {
	service, repo, publisher := newTicketService(t)
	customerID := uuid.New()
	orderID := uuid.New()
	repo.On("FindByNumber", mock.Anything, "T-1").Return(nil, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*support.Ticket")).Return(nil)

	ticket, err := service.Open(context.Background(), "T-1", "Broken lamp", &customerID, orderID, orderID)
	require.NoError(t, err)

	assert.Equal(t, support.TicketStateNew, ticket.State)
	assert.Equal(t, []uuid.UUID{orderID}, ticket.OrderIDs)
	assert.Equal(t, []string{"ticket.post_create"}, publisher.types)
	repo.AssertExpectations(t)
}

func TestTicketService_Open_Duplicate(t *testing.T) {
	service, repo, _ := newTicketService(t)
	existing, err := support.NewTicket("T-1", "Old", nil)
	require.NoError(t, err)
	repo.On("FindByNumber", mock.Anything, "T-1").Return(existing, nil)

	_, err = service.Open(context.Background(), "T-1", "Broken lamp", nil)
	require.Error(t, err)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestTicketService_Conversation(t *testing.T) {
	ticket, err := support.NewTicket("T-2", "Where is my parcel", nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   MessageInput
		want support.TicketState
	}{
		{name: "customer asks", in: MessageInput{Content: "Any news?", Author: "jane", Customer: true}, want: support.TicketStateOpened},
		{name: "internal note keeps state", in: MessageInput{Content: "Carrier called", Author: "bob", Internal: true}, want: support.TicketStateOpened},
		{name: "staff answers", in: MessageInput{Content: "Shipped today", Author: "bob"}, want: support.TicketStatePending},
	}

	service, repo, publisher := newTicketService(t)
	repo.On("FindByID", mock.Anything, ticket.ID).Return(ticket, nil)
	repo.On("Save", mock.Anything, ticket).Return(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.PostMessage(context.Background(), ticket.ID, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ticket.State)
		})
	}
	assert.Contains(t, publisher.types, "ticket_message.post_create")
	assert.Contains(t, publisher.types, "ticket.post_update")
}

func TestTicketService_CloseAndReopen(t *testing.T) {
	ticket, err := support.NewTicket("T-3", "Refund", nil)
	require.NoError(t, err)
	service, repo, _ := newTicketService(t)
	repo.On("FindByID", mock.Anything, ticket.ID).Return(ticket, nil)
	repo.On("Save", mock.Anything, ticket).Return(nil)
	ctx := context.Background()

	_, err = service.Close(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, support.TicketStateClosed, ticket.State)

	_, err = service.Reopen(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, support.TicketStateNew, ticket.State)

	_, err = service.Close(ctx, ticket.ID)
	require.NoError(t, err)
	_, err = service.PostMessage(ctx, ticket.ID, MessageInput{Content: "Still waiting", Customer: true})
	require.NoError(t, err)
	assert.False(t, ticket.Closed)
	assert.Equal(t, support.TicketStateOpened, ticket.State)

	orderID := uuid.New()
	_, err = service.LinkOrder(ctx, ticket.ID, orderID)
	require.NoError(t, err)
	assert.Contains(t, ticket.OrderIDs, orderID)
}

func TestTicketService_Errors(t *testing.T) {
	service, repo, _ := newTicketService(t)
	missing := uuid.New()
	repo.On("FindByID", mock.Anything, missing).Return(nil, nil)

	_, err := service.Close(context.Background(), missing)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	ticket, err := support.NewTicket("T-4", "Invoice", nil)
	require.NoError(t, err)
	repo.On("FindByID", mock.Anything, ticket.ID).Return(ticket, nil)
	repo.On("Save", mock.Anything, ticket).Return(errors.New("conflict"))

	_, err = service.PostMessage(context.Background(), ticket.ID, MessageInput{Content: ""})
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = service.Close(context.Background(), ticket.ID)
	assert.ErrorContains(t, err, "failed to save ticket")
}
