package repository

import "gorm.io/gorm"

type Repository struct {
	DB              *gorm.DB
	Products        ProductRepo
	Warehouses      WarehouseRepo
	WarehouseStocks WarehouseStockRepo
	StockChanges    StockChangeRepo
	Reservations    ReservationRepo
	Transfers       TransferRepo
	Alerts          AlertRepo
	ProcessedEvents ProcessedEventRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:              db,
		Products:        NewProductRepo(db),
		Warehouses:      NewWarehouseRepo(db),
		WarehouseStocks: NewWarehouseStockRepo(db),
		StockChanges:    NewStockChangeRepo(db),
		Reservations:    NewReservationRepo(db),
		Transfers:       NewTransferRepo(db),
		Alerts:          NewAlertRepo(db),
		ProcessedEvents: NewProcessedEventRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// Глобальная транзакция на весь набор репо
func (r *Repository) WithTx(fn func(tx *Repository) error) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
