package migrate

import (
	"context"

	"stock-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions bool // pgcrypto
	CreateChecks     bool // CHECK-constraint'ы
	CreateIndexes    bool // индексы и UNIQUE
	CreateFKsViaSQL  bool // FK через Exec после AutoMigrate
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions: true,
		CreateChecks:     true,
		CreateIndexes:    true,
		CreateFKsViaSQL:  true,
	}
}

func MigrateStockDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы склада")

	if opt.CreateExtensions {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("pgcrypto error", zap.Error(err))
			return err
		}
	}

	log.Info("Создание таблиц леджера, резерваций, переводов")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Warehouse{},
		&models.WarehouseStock{},
		&models.StockChange{},
		&models.StockReservation{},
		&models.StockTransfer{},
		&models.StockTransferItem{},
		&models.Alert{},
		&models.ProcessedEvent{},
	); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")

		// Складская разбивка не уходит в минус ни при каких мутациях
		if err := db.Exec(`
ALTER TABLE warehouse_stocks
	DROP CONSTRAINT IF EXISTS chk_warehouse_stocks_non_negative,
	ADD CONSTRAINT chk_warehouse_stocks_non_negative
	CHECK (quantity >= 0);
`).Error; err != nil {
			log.Error("chk warehouse_stocks", zap.Error(err))
			return err
		}

		// Журнал согласован: new = previous + delta. Минус допустим только
		// для backorder-товаров, поэтому неотрицательность держит сервис.
		if err := db.Exec(`
ALTER TABLE stock_changes
	DROP CONSTRAINT IF EXISTS chk_stock_changes_balance,
	ADD CONSTRAINT chk_stock_changes_balance
	CHECK (new_stock = previous_stock + quantity);
`).Error; err != nil {
			log.Error("chk stock_changes", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE stock_reservations
	DROP CONSTRAINT IF EXISTS chk_stock_reservations_quantity_gt_zero,
	ADD CONSTRAINT chk_stock_reservations_quantity_gt_zero
	CHECK (quantity > 0);
`).Error; err != nil {
			log.Error("chk stock_reservations.qty", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE stock_reservations
	DROP CONSTRAINT IF EXISTS chk_stock_reservations_status_allowed,
	ADD CONSTRAINT chk_stock_reservations_status_allowed
	CHECK (status IN ('active','fulfilled','cancelled','expired'));
`).Error; err != nil {
			log.Error("chk stock_reservations.status", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE stock_transfers
	DROP CONSTRAINT IF EXISTS chk_stock_transfers_status_allowed,
	ADD CONSTRAINT chk_stock_transfers_status_allowed
	CHECK (status IN ('pending','approved','in_transit','completed','cancelled'));
`).Error; err != nil {
			log.Error("chk stock_transfers.status", zap.Error(err))
			return err
		}

		// Перевод склада самому себе бессмысленен
		if err := db.Exec(`
ALTER TABLE stock_transfers
	DROP CONSTRAINT IF EXISTS chk_stock_transfers_distinct_warehouses,
	ADD CONSTRAINT chk_stock_transfers_distinct_warehouses
	CHECK (source_warehouse_id <> destination_warehouse_id);
`).Error; err != nil {
			log.Error("chk stock_transfers.warehouses", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE stock_transfer_items
	DROP CONSTRAINT IF EXISTS chk_stock_transfer_items_quantity_gt_zero,
	ADD CONSTRAINT chk_stock_transfer_items_quantity_gt_zero
	CHECK (quantity > 0);
`).Error; err != nil {
			log.Error("chk stock_transfer_items.qty", zap.Error(err))
			return err
		}

		log.Info("CHECK-и созданы")
	}

	if opt.CreateIndexes {
		log.Info("Создание индексов и уникальностей")

		// Дедупликация алертов: один нерешённый алерт на (товар, тип)
		if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_alerts_product_type_unresolved
ON alerts (product_id, type)
WHERE NOT is_resolved;
`).Error; err != nil {
			log.Error("ux alerts unresolved", zap.Error(err))
			return err
		}

		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_stock_changes_product_created
ON stock_changes (product_id, created_at DESC);
`).Error; err != nil {
			log.Error("ix stock_changes product_created", zap.Error(err))
			return err
		}

		// Свип просроченных холдов
		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_stock_reservations_active_expires
ON stock_reservations (expires_at)
WHERE status = 'active';
`).Error; err != nil {
			log.Error("ix stock_reservations active_expires", zap.Error(err))
			return err
		}

		log.Info("Индексы созданы")
	}

	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")

		if err := db.Exec(`
ALTER TABLE warehouse_stocks
  DROP CONSTRAINT IF EXISTS fk_warehouse_stocks_product,
  ADD CONSTRAINT fk_warehouse_stocks_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("fk warehouse_stocks.product_id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE warehouse_stocks
  DROP CONSTRAINT IF EXISTS fk_warehouse_stocks_warehouse,
  ADD CONSTRAINT fk_warehouse_stocks_warehouse
    FOREIGN KEY (warehouse_id) REFERENCES warehouses(id) ON DELETE RESTRICT;
`).Error; err != nil {
			log.Error("fk warehouse_stocks.warehouse_id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE stock_changes
  DROP CONSTRAINT IF EXISTS fk_stock_changes_product,
  ADD CONSTRAINT fk_stock_changes_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT;
`).Error; err != nil {
			log.Error("fk stock_changes.product_id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE stock_reservations
  DROP CONSTRAINT IF EXISTS fk_stock_reservations_product,
  ADD CONSTRAINT fk_stock_reservations_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT;
`).Error; err != nil {
			log.Error("fk stock_reservations.product_id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE stock_transfer_items
  DROP CONSTRAINT IF EXISTS fk_stock_transfer_items_transfer,
  ADD CONSTRAINT fk_stock_transfer_items_transfer
    FOREIGN KEY (transfer_id) REFERENCES stock_transfers(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("fk stock_transfer_items.transfer_id", zap.Error(err))
			return err
		}

		log.Info("Внешние ключи созданы")
	}

	log.Info("Миграция базы склада успешно завершена")
	return nil
}
