package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateGigOrder     OutboxAggregateType = "gig_order"
	AggregateProductOrder OutboxAggregateType = "product_order"
	AggregateInquiry      OutboxAggregateType = "inquiry"
	AggregateInventory    OutboxAggregateType = "inventory"
	AggregateShipment     OutboxAggregateType = "shipment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateGigOrder,
	AggregateProductOrder,
	AggregateInquiry,
	AggregateInventory,
	AggregateShipment,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType names a domain event published through the outbox.
type OutboxEventType string

const (
	EventOrderCreated            OutboxEventType = "order.created"
	EventOrderStatusChanged      OutboxEventType = "order.status_changed"
	EventOrderCancelled          OutboxEventType = "order.cancelled"
	EventOrderRefundFailed       OutboxEventType = "order.refund_failed"
	EventStockDeducted           OutboxEventType = "inventory.stock_deducted"
	EventStockIn                 OutboxEventType = "inventory.stock_in"
	EventStockOut                OutboxEventType = "inventory.stock_out"
	EventInquiryAccepted         OutboxEventType = "inquiry.accepted"
	EventShipmentCreated         OutboxEventType = "shipment.created"
	EventShipmentTrackingUpdated OutboxEventType = "shipment.tracking_updated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderCancelled,
	EventOrderRefundFailed,
	EventStockDeducted,
	EventStockIn,
	EventStockOut,
	EventInquiryAccepted,
	EventShipmentCreated,
	EventShipmentTrackingUpdated,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
