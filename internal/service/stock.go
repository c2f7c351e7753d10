package service

import (
	"context"
	"time"

	"stock-service/internal/models"
	"stock-service/internal/repository"

	"github.com/google/uuid"
)

type AdjustOperation string

const (
	OpSet       AdjustOperation = "set"
	OpIncrement AdjustOperation = "increment"
	OpDecrement AdjustOperation = "decrement"
)

type AdjustInput struct {
	ProductID   uuid.UUID
	Operation   AdjustOperation
	Quantity    int32 // для set — абсолютное значение, иначе величина дельты (> 0)
	WarehouseID *uuid.UUID
	Reason      string
}

// StockSnapshot — состояние леджера после операции.
type StockSnapshot struct {
	ProductID    uuid.UUID
	Quantity     int32
	Availability models.Availability
	Warehouses   []models.WarehouseStock
}

type HistoryFilter struct {
	ProductID   uuid.UUID
	WarehouseID *uuid.UUID
	ChangeType  *models.ChangeType
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

type OrderLineItem struct {
	ProductID   uuid.UUID
	WarehouseID *uuid.UUID
	Quantity    int32
}

type OrderEvent struct {
	OrderID uuid.UUID
	Items   []OrderLineItem
	Reason  string
}

type PurchaseEvent struct {
	PurchaseID uuid.UUID
	SupplierID *uuid.UUID
	Items      []OrderLineItem
}

type AlertFilter struct {
	ProductID    *uuid.UUID
	OnlyUnsolved bool
	Limit        int
	Offset       int
}

type StockService interface {
	// ручные операции леджера
	AdjustInventory(ctx context.Context, in AdjustInput) (*StockSnapshot, error)
	GetStock(ctx context.Context, productID uuid.UUID) (*StockSnapshot, error)
	GetStockHistory(ctx context.Context, f HistoryFilter) ([]models.StockChange, int64, error)

	// входные точки пайплайна (eventID — ключ идемпотентности Kafka-сообщения)
	ProcessOrderCreated(ctx context.Context, eventID string, ev OrderEvent) error
	ProcessOrderCancelled(ctx context.Context, eventID string, ev OrderEvent) error
	ProcessOrderReturned(ctx context.Context, eventID string, ev OrderEvent) error
	ProcessPurchaseReceived(ctx context.Context, eventID string, ev PurchaseEvent) error

	// алерты
	ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, int64, error)
	ResolveAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error)
}

type ReserveInput struct {
	ProductID   uuid.UUID
	WarehouseID *uuid.UUID
	OrderID     uuid.UUID
	CustomerID  uuid.UUID
	Quantity    int32
	TTL         time.Duration
}

type AvailableStock struct {
	ProductID uuid.UUID
	Total     int32
	Reserved  int32
	Available int32
}

type ReservationService interface {
	Reserve(ctx context.Context, in ReserveInput) (*models.StockReservation, error)
	Fulfill(ctx context.Context, id uuid.UUID) (*models.StockReservation, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.StockReservation, error)
	Sweep(ctx context.Context) (int, error)
	GetAvailableStock(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID) (*AvailableStock, error)
}

type TransferItemInput struct {
	ProductID uuid.UUID
	Quantity  int32
}

type CreateTransferInput struct {
	SourceWarehouseID      uuid.UUID
	DestinationWarehouseID uuid.UUID
	Items                  []TransferItemInput
	Notes                  string
}

type TransferService interface {
	CreateTransfer(ctx context.Context, in CreateTransferInput) (*models.StockTransfer, error)
	ApproveTransfer(ctx context.Context, id uuid.UUID, trackingNumber string) (*models.StockTransfer, error)
	DispatchTransfer(ctx context.Context, id uuid.UUID, trackingNumber string) (*models.StockTransfer, error)
	CompleteTransfer(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error)
	CancelTransfer(ctx context.Context, id uuid.UUID, reason string) (*models.StockTransfer, error)
	GetTransfer(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error)
	ListTransfers(ctx context.Context, f repository.TransferListFilter) ([]models.StockTransfer, int64, error)
}
