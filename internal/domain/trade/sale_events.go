package trade

import (
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constants
const (
	AggregateTypeSale = "Sale"
)

// Event type constants
const (
	EventTypeSaleStateChanged = "SaleStateChanged"
)

// SaleStateChangedEvent is raised when a resolver moves a sale to a new state
type SaleStateChangedEvent struct {
	shared.BaseDomainEvent
	SaleID    uuid.UUID `json:"sale_id"`
	Number    string    `json:"number"`
	Kind      SaleKind  `json:"kind"`
	FromState SaleState `json:"from_state"`
	ToState   SaleState `json:"to_state"`
}

// NewSaleStateChangedEvent creates a new SaleStateChangedEvent
func NewSaleStateChangedEvent(sale *Sale, from, to SaleState) *SaleStateChangedEvent {
	return &SaleStateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleStateChanged, AggregateTypeSale, sale.ID),
		SaleID:          sale.ID,
		Number:          sale.Number,
		Kind:            sale.Kind,
		FromState:       from,
		ToState:         to,
	}
}
