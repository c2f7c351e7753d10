package models

import (
	"time"

	"github.com/google/uuid"
)

type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
	AvailabilityLimited    Availability = "limited"
	AvailabilityScheduled  Availability = "scheduled"
)

// Product — носитель леджера: авторитетный остаток по товару.
// Version растёт на каждой мутации остатка (оптимистическая блокировка).
type Product struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SKU  string    `gorm:"type:text;not null;uniqueIndex"`
	Name string    `gorm:"type:text;not null"`

	Quantity                  int32        `gorm:"not null;default:0"`
	LowStockThreshold         int32        `gorm:"not null;default:0"`
	AllowBackorder            bool         `gorm:"not null;default:false"`
	ScheduledAvailabilityDate *time.Time   `gorm:""`
	Availability              Availability `gorm:"type:text;not null;default:'out_of_stock'"`
	Version                   int64        `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Product) TableName() string { return "products" }

// ComputeAvailability пересчитывает статус из остатка. Вызывается при каждой мутации.
func ComputeAvailability(quantity, threshold int32, scheduled *time.Time, now time.Time) Availability {
	if quantity <= 0 {
		if scheduled != nil && scheduled.After(now) {
			return AvailabilityScheduled
		}
		return AvailabilityOutOfStock
	}
	if quantity <= threshold {
		return AvailabilityLimited
	}
	return AvailabilityInStock
}

type Warehouse struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code     string    `gorm:"type:text;not null;uniqueIndex"`
	Name     string    `gorm:"type:text;not null"`
	IsActive bool      `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (Warehouse) TableName() string { return "warehouses" }

// WarehouseStock — складская разбивка. Если у товара есть хоть одна строка,
// products.quantity == сумме по строкам; без строк товар живёт в односкладском режиме.
type WarehouseStock struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_warehouse_stocks_product_warehouse"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_warehouse_stocks_product_warehouse"`

	Quantity          int32 `gorm:"not null;default:0"`
	LowStockThreshold int32 `gorm:"not null;default:0"`

	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (WarehouseStock) TableName() string { return "warehouse_stocks" }

type ChangeType string

const (
	ChangeSale        ChangeType = "sale"
	ChangeReturn      ChangeType = "return"
	ChangeRestock     ChangeType = "restock"
	ChangeAdjustment  ChangeType = "adjustment"
	ChangeTransferOut ChangeType = "transfer_out"
	ChangeTransferIn  ChangeType = "transfer_in"
)

// StockChange — append-only журнал. Инвариант: NewStock == PreviousStock + Quantity
// (минус возможен только для backorder-товаров).
// Каждая мутация леджера пишет ровно одну запись в той же транзакции.
type StockChange struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index:ix_stock_changes_product_created"`
	WarehouseID *uuid.UUID `gorm:"type:uuid;index"`

	ChangeType    ChangeType `gorm:"type:text;not null;index"`
	Quantity      int32      `gorm:"not null"`
	PreviousStock int32      `gorm:"not null"`
	NewStock      int32      `gorm:"not null"`

	Reason      string     `gorm:"type:text"`
	ReferenceID *uuid.UUID `gorm:"type:uuid;index"`
	Actor       string     `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now();index:ix_stock_changes_product_created"`
}

func (StockChange) TableName() string { return "stock_changes" }

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationFulfilled ReservationStatus = "fulfilled"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

// StockReservation — мягкий холд. Леджер НЕ мутируется: доступно = quantity − Σ active.
type StockReservation struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	WarehouseID *uuid.UUID `gorm:"type:uuid;index"`
	OrderID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	CustomerID  uuid.UUID  `gorm:"type:uuid;not null"`

	Quantity  int32             `gorm:"not null"`
	Status    ReservationStatus `gorm:"type:text;not null;default:'active';index"`
	ExpiresAt time.Time         `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (StockReservation) TableName() string { return "stock_reservations" }

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferApproved  TransferStatus = "approved"
	TransferInTransit TransferStatus = "in_transit"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

type StockTransfer struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TransferNumber string    `gorm:"type:text;not null;uniqueIndex"`

	SourceWarehouseID      uuid.UUID `gorm:"type:uuid;not null;index"`
	DestinationWarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`

	Status TransferStatus `gorm:"type:text;not null;default:'pending';index"`

	InitiatedBy    string  `gorm:"type:text;not null"`
	ApprovedBy     *string `gorm:"type:text"`
	TrackingNumber string  `gorm:"type:text"`
	Notes          string  `gorm:"type:text"`

	Items []StockTransferItem `gorm:"foreignKey:TransferID"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (StockTransfer) TableName() string { return "stock_transfers" }

type StockTransferItem struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TransferID uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null"`
	Quantity   int32     `gorm:"not null"`
}

func (StockTransferItem) TableName() string { return "stock_transfer_items" }

type AlertType string

const (
	AlertLowStock   AlertType = "low_stock"
	AlertOutOfStock AlertType = "out_of_stock"
)

type Alert struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Type      AlertType `gorm:"type:text;not null"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`

	Threshold int32  `gorm:"not null;default:0"`
	Message   string `gorm:"type:text"`

	IsResolved bool       `gorm:"not null;default:false;index"`
	ResolvedBy *string    `gorm:"type:text"`
	ResolvedAt *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Alert) TableName() string { return "alerts" }

// ProcessedEvent — ключи идемпотентности пайплайна: событие применяется один раз,
// запись делается в той же транзакции, что и мутация леджера.
type ProcessedEvent struct {
	EventID     string    `gorm:"type:text;primaryKey"`
	Topic       string    `gorm:"type:text;not null"`
	ProcessedAt time.Time `gorm:"not null;default:now()"`
}

func (ProcessedEvent) TableName() string { return "processed_events" }
