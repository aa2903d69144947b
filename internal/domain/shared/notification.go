package shared

import (
	"strings"

	"github.com/google/uuid"
)

// NotificationKind names the lifecycle moment a persistence notification is emitted at
type NotificationKind string

const (
	NotificationInsert     NotificationKind = "insert"
	NotificationUpdate     NotificationKind = "update"
	NotificationDelete     NotificationKind = "delete"
	NotificationPreCreate  NotificationKind = "pre_create"
	NotificationPostCreate NotificationKind = "post_create"
	NotificationPreUpdate  NotificationKind = "pre_update"
	NotificationPostUpdate NotificationKind = "post_update"
	NotificationPreDelete  NotificationKind = "pre_delete"
	NotificationPostDelete NotificationKind = "post_delete"
)

// IsValid checks if the kind is one of the known notification kinds
func (k NotificationKind) IsValid() bool {
	switch k {
	case NotificationInsert, NotificationUpdate, NotificationDelete,
		NotificationPreCreate, NotificationPostCreate,
		NotificationPreUpdate, NotificationPostUpdate,
		NotificationPreDelete, NotificationPostDelete:
		return true
	}
	return false
}

// IsPre returns true for kinds emitted before the unit of work commits
func (k NotificationKind) IsPre() bool {
	return strings.HasPrefix(string(k), "pre_")
}

// Channel groups notifications per entity kind
type Channel string

const (
	ChannelAccounting     Channel = "accounting"
	ChannelTax            Channel = "tax"
	ChannelProduct        Channel = "product"
	ChannelShipmentMethod Channel = "shipment_method"
	ChannelStockUnit      Channel = "stock_unit"
	ChannelPayment        Channel = "payment"
	ChannelShipment       Channel = "shipment"
	ChannelCredit         Channel = "credit"
	ChannelInvoice        Channel = "invoice"
	ChannelSale           Channel = "sale"
	ChannelTicketMessage  Channel = "ticket_message"
	ChannelTicket         Channel = "ticket"
	ChannelCustomer       Channel = "customer"
	ChannelSupplierOrder  Channel = "supplier_order"
)

// EventName builds the event type a notification is published under, e.g. "payment.post_update"
func EventName(channel Channel, kind NotificationKind) string {
	return string(channel) + "." + string(kind)
}

// EntityNotification is a domain event announcing a persistence lifecycle moment
// of a single entity. Subject carries the entity itself.
type EntityNotification struct {
	BaseDomainEvent
	Channel Channel
	Kind    NotificationKind
	Subject any
}

// NewEntityNotification creates a notification for the given entity
func NewEntityNotification(channel Channel, kind NotificationKind, id uuid.UUID, subject any) *EntityNotification {
	return &EntityNotification{
		BaseDomainEvent: NewBaseDomainEvent(EventName(channel, kind), string(channel), id),
		Channel:         channel,
		Kind:            kind,
		Subject:         subject,
	}
}
