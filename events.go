package eventstream

import (
	"github.com/google/uuid"

	"github.com/streamkit/eventstream/core"
)

// Fixed sources injected by the domain event builders.
const (
	SourceUserService      = "user-service"
	SourceOrderService     = "order-service"
	SourcePaymentService   = "payment-service"
	SourceInventoryService = "inventory-service"
)

// CreateEvent builds an event envelope with a fresh correlationId. Pure: no
// I/O, no mutation of the caller's maps; id and timestamp are assigned later
// by enrichment at publish time.
func CreateEvent(eventType, source string, data map[string]any, metadata map[string]string) *core.EventMessage {
	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	if _, ok := meta[core.MetaCorrelationID]; !ok {
		meta[core.MetaCorrelationID] = uuid.NewString()
	}
	d := make(map[string]any, len(data))
	for k, v := range data {
		d[k] = v
	}
	return &core.EventMessage{
		Type:     eventType,
		Source:   source,
		Data:     d,
		Metadata: meta,
	}
}

// CreateUserEvent builds a user domain event carrying the user id.
func CreateUserEvent(eventType, userID string, data map[string]any) *core.EventMessage {
	return createDomainEvent(eventType, SourceUserService, "userId", userID, data)
}

// CreateOrderEvent builds an order domain event carrying the order id.
func CreateOrderEvent(eventType, orderID string, data map[string]any) *core.EventMessage {
	return createDomainEvent(eventType, SourceOrderService, "orderId", orderID, data)
}

// CreatePaymentEvent builds a payment domain event carrying the payment id.
func CreatePaymentEvent(eventType, paymentID string, data map[string]any) *core.EventMessage {
	return createDomainEvent(eventType, SourcePaymentService, "paymentId", paymentID, data)
}

// CreateInventoryEvent builds an inventory domain event carrying the item id.
func CreateInventoryEvent(eventType, itemID string, data map[string]any) *core.EventMessage {
	return createDomainEvent(eventType, SourceInventoryService, "itemId", itemID, data)
}

func createDomainEvent(eventType, source, idKey, id string, data map[string]any) *core.EventMessage {
	msg := CreateEvent(eventType, source, data, nil)
	msg.Data[idKey] = id
	return msg
}
