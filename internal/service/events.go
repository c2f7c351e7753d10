package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type InventoryUpdatedEvent struct {
	ProductID    uuid.UUID  `json:"product_id"`
	WarehouseID  *uuid.UUID `json:"warehouse_id,omitempty"`
	Delta        int32      `json:"delta"`
	Quantity     int32      `json:"quantity"`
	Availability string     `json:"availability"`
	ChangeType   string     `json:"change_type"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type StockReservedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ProductID     uuid.UUID `json:"product_id"`
	OrderID       uuid.UUID `json:"order_id"`
	Quantity      int32     `json:"quantity"`
	ExpiresAt     time.Time `json:"expires_at"`
	ReservedAt    time.Time `json:"reserved_at"`
}

// ReservationClosedEvent публикуется как stock.reservation.fulfilled|cancelled|expired.
type ReservationClosedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ProductID     uuid.UUID `json:"product_id"`
	OrderID       uuid.UUID `json:"order_id"`
	Quantity      int32     `json:"quantity"`
	Outcome       string    `json:"outcome"`
	ClosedAt      time.Time `json:"closed_at"`
}

type TransferItemEvent struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
}

// TransferEvent публикуется как transfer.created|approved|completed|cancelled.
type TransferEvent struct {
	TransferID             uuid.UUID           `json:"transfer_id"`
	TransferNumber         string              `json:"transfer_number"`
	SourceWarehouseID      uuid.UUID           `json:"source_warehouse_id"`
	DestinationWarehouseID uuid.UUID           `json:"destination_warehouse_id"`
	Status                 string              `json:"status"`
	Action                 string              `json:"action"`
	Items                  []TransferItemEvent `json:"items"`
	OccurredAt             time.Time           `json:"occurred_at"`
}

type EventBus interface {
	PublishInventoryUpdated(ctx context.Context, e InventoryUpdatedEvent) error
	PublishStockReserved(ctx context.Context, e StockReservedEvent) error
	PublishReservationClosed(ctx context.Context, e ReservationClosedEvent) error
	PublishTransferEvent(ctx context.Context, e TransferEvent) error
}
