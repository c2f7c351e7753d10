package consumer

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"id":"evt-1","type":"order.created","payload":{"order_id":"00000000-0000-0000-0000-000000000001","items":[]}}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if env.ID != "evt-1" || env.Type != "order.created" {
		t.Fatalf("envelope mismatch: %+v", env)
	}
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"missing id", `{"type":"order.created","payload":{}}`},
		{"missing type", `{"id":"evt-1","payload":{}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tc.raw))
			if !errors.Is(err, ErrMalformedEvent) {
				t.Fatalf("expected ErrMalformedEvent, got %v", err)
			}
		})
	}
}

func TestDecodeOrderEvent_MessageLevelWarehouse(t *testing.T) {
	orderID := uuid.New()
	msgWarehouse := uuid.New()
	itemWarehouse := uuid.New()
	productA := uuid.New()
	productB := uuid.New()

	raw := fmt.Sprintf(`{"id":"evt-2","type":"order.created","payload":{
		"order_id":%q,
		"warehouse_id":%q,
		"items":[
			{"product_id":%q,"quantity":2},
			{"product_id":%q,"warehouse_id":%q,"quantity":1}
		]}}`, orderID, msgWarehouse, productA, productB, itemWarehouse)

	env, err := DecodeEnvelope([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	ev, err := decodeOrderEvent(env)
	if err != nil {
		t.Fatalf("decodeOrderEvent: %v", err)
	}
	if ev.OrderID != orderID || len(ev.Items) != 2 {
		t.Fatalf("order event mismatch: %+v", ev)
	}
	// позиция без своего склада наследует склад сообщения
	if ev.Items[0].WarehouseID == nil || *ev.Items[0].WarehouseID != msgWarehouse {
		t.Fatalf("item 0 warehouse: %v", ev.Items[0].WarehouseID)
	}
	// своя привязка позиции имеет приоритет
	if ev.Items[1].WarehouseID == nil || *ev.Items[1].WarehouseID != itemWarehouse {
		t.Fatalf("item 1 warehouse: %v", ev.Items[1].WarehouseID)
	}
}

func TestDecodeOrderEvent_BadPayload(t *testing.T) {
	env := &Envelope{ID: "evt-3", Type: EventOrderCreated, Payload: json.RawMessage(`"not an object"`)}
	if _, err := decodeOrderEvent(env); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
}

func TestDecodePurchaseEvent(t *testing.T) {
	purchaseID := uuid.New()
	supplierID := uuid.New()
	product := uuid.New()

	raw := fmt.Sprintf(`{"id":"evt-4","type":"purchase.received","payload":{
		"purchase_id":%q,"supplier_id":%q,
		"items":[{"product_id":%q,"quantity":50}]}}`, purchaseID, supplierID, product)

	env, err := DecodeEnvelope([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	ev, err := decodePurchaseEvent(env)
	if err != nil {
		t.Fatalf("decodePurchaseEvent: %v", err)
	}
	if ev.PurchaseID != purchaseID || ev.SupplierID == nil || *ev.SupplierID != supplierID {
		t.Fatalf("purchase event mismatch: %+v", ev)
	}
	if len(ev.Items) != 1 || ev.Items[0].Quantity != 50 {
		t.Fatalf("items mismatch: %+v", ev.Items)
	}
}
