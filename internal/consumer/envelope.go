package consumer

import (
	"encoding/json"
	"errors"
	"fmt"

	"stock-service/internal/service"

	"github.com/google/uuid"
)

// Закрытый набор типов событий. Тип берётся только из дискриминанта конверта —
// никакого угадывания по форме payload.
const (
	EventOrderCreated      = "order.created"
	EventOrderPlaced       = "order.placed"
	EventOrderCancelled    = "order.cancelled"
	EventOrderReturned     = "order.returned"
	EventPurchaseCompleted = "purchase.completed"
	EventPurchaseReceived  = "purchase.received"
)

var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrMalformedEvent   = errors.New("malformed event")
)

type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type lineItem struct {
	ProductID   uuid.UUID  `json:"product_id"`
	WarehouseID *uuid.UUID `json:"warehouse_id,omitempty"`
	Quantity    int32      `json:"quantity"`
}

type orderPayload struct {
	OrderID     uuid.UUID  `json:"order_id"`
	WarehouseID *uuid.UUID `json:"warehouse_id,omitempty"`
	Items       []lineItem `json:"items"`
	Reason      string     `json:"reason,omitempty"`
}

type purchasePayload struct {
	PurchaseID  uuid.UUID  `json:"purchase_id"`
	SupplierID  *uuid.UUID `json:"supplier_id,omitempty"`
	WarehouseID *uuid.UUID `json:"warehouse_id,omitempty"`
	Items       []lineItem `json:"items"`
}

func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrMalformedEvent, err)
	}
	if env.ID == "" || env.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}
	return &env, nil
}

func decodeOrderEvent(env *Envelope) (service.OrderEvent, error) {
	var p orderPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return service.OrderEvent{}, fmt.Errorf("%w: decode %s payload: %v", ErrMalformedEvent, env.Type, err)
	}
	ev := service.OrderEvent{OrderID: p.OrderID, Reason: p.Reason}
	for _, it := range p.Items {
		wid := it.WarehouseID
		if wid == nil {
			wid = p.WarehouseID // склад уровня сообщения применяется к позициям без своего
		}
		ev.Items = append(ev.Items, service.OrderLineItem{
			ProductID:   it.ProductID,
			WarehouseID: wid,
			Quantity:    it.Quantity,
		})
	}
	return ev, nil
}

func decodePurchaseEvent(env *Envelope) (service.PurchaseEvent, error) {
	var p purchasePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return service.PurchaseEvent{}, fmt.Errorf("%w: decode %s payload: %v", ErrMalformedEvent, env.Type, err)
	}
	ev := service.PurchaseEvent{PurchaseID: p.PurchaseID, SupplierID: p.SupplierID}
	for _, it := range p.Items {
		wid := it.WarehouseID
		if wid == nil {
			wid = p.WarehouseID
		}
		ev.Items = append(ev.Items, service.OrderLineItem{
			ProductID:   it.ProductID,
			WarehouseID: wid,
			Quantity:    it.Quantity,
		})
	}
	return ev, nil
}
