package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCustomerCreated EventType = "CUSTOMER_CREATED"
	EventCustomerUpdated EventType = "CUSTOMER_UPDATED"
	EventCustomerDeleted EventType = "CUSTOMER_DELETED"

	EventProductCreated      EventType = "PRODUCT_CREATED"
	EventProductUpdated      EventType = "PRODUCT_UPDATED"
	EventProductDeleted      EventType = "PRODUCT_DELETED"
	EventProductStockChanged EventType = "PRODUCT_STOCK_CHANGED"

	EventOrderCreated       EventType = "ORDER_CREATED"
	EventOrderUpdated       EventType = "ORDER_UPDATED"
	EventOrderStatusChanged EventType = "ORDER_STATUS_CHANGED"
	EventOrderDeleted       EventType = "ORDER_DELETED"

	EventInvoiceCreated EventType = "INVOICE_CREATED"
	EventInvoiceUpdated EventType = "INVOICE_UPDATED"
	EventInvoicePaid    EventType = "INVOICE_PAID"
	EventInvoiceDeleted EventType = "INVOICE_DELETED"
)

var knownEventTypes = map[EventType]struct{}{
	EventCustomerCreated: {}, EventCustomerUpdated: {}, EventCustomerDeleted: {},
	EventProductCreated: {}, EventProductUpdated: {}, EventProductDeleted: {}, EventProductStockChanged: {},
	EventOrderCreated: {}, EventOrderUpdated: {}, EventOrderStatusChanged: {}, EventOrderDeleted: {},
	EventInvoiceCreated: {}, EventInvoiceUpdated: {}, EventInvoicePaid: {}, EventInvoiceDeleted: {},
}

// Valid reports whether t is one of the declared event types.
func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// WorkspaceEvent is one entry in a workspace's append-only change log.
// Sequence numbers are assigned per workspace, strictly increasing and
// gap-free; rows are immutable once written except for the consumed flag.
type WorkspaceEvent struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID    string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_workspace_events_seq,priority:1;index:idx_workspace_events_entity,priority:1;index:idx_workspace_events_type,priority:1" json:"workspaceId"`
	Sequence       int64     `gorm:"not null;uniqueIndex:uq_workspace_events_seq,priority:2" json:"sequence"`
	EventType      EventType `gorm:"type:varchar(50);not null;index:idx_workspace_events_type,priority:2" json:"eventType"`
	EntityType     string    `gorm:"type:varchar(50);not null;index:idx_workspace_events_entity,priority:2" json:"entityType"`
	EntityID       string    `gorm:"type:varchar(64);not null;index:idx_workspace_events_entity,priority:3" json:"entityId"`
	UserID         string    `gorm:"type:varchar(64)" json:"userId,omitempty"`
	OriginDeviceID string    `gorm:"type:varchar(64);index:idx_workspace_events_origin" json:"originDeviceId,omitempty"`
	Payload        string    `gorm:"type:text" json:"payload,omitempty"`
	Consumed       bool      `gorm:"not null;default:false;index:idx_workspace_events_consumed" json:"consumed"`
	CreatedAt      time.Time `gorm:"not null" json:"createdAt"`
}

func (WorkspaceEvent) TableName() string {
	return "workspace_events"
}

// EventSequence is the per-workspace sequence counter backing atomic
// sequence assignment for WorkspaceEvent appends.
type EventSequence struct {
	WorkspaceID string `gorm:"type:varchar(64);primaryKey"`
	LastValue   int64  `gorm:"not null"`
}

func (EventSequence) TableName() string {
	return "workspace_event_sequences"
}
