package repository

import (
	"context"
	"errors"

	"stock-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WarehouseStockRepo interface {
	Get(ctx context.Context, productID, warehouseID uuid.UUID) (*models.WarehouseStock, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.WarehouseStock, error)
	SumByProduct(ctx context.Context, productID uuid.UUID) (int32, error)
	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	Create(ctx context.Context, ws *models.WarehouseStock) error

	// ApplyDelta: атомарно quantity += delta, если результат не уходит в минус.
	ApplyDelta(ctx context.Context, productID, warehouseID uuid.UUID, delta int32) (bool, error)
	// AddOrCreate: увеличивает остаток, создавая строку при первом приходе на склад.
	AddOrCreate(ctx context.Context, productID, warehouseID uuid.UUID, qty int32) error
}

type warehouseStockRepo struct{ db *gorm.DB }

func NewWarehouseStockRepo(db *gorm.DB) WarehouseStockRepo { return &warehouseStockRepo{db: db} }

func (r *warehouseStockRepo) Get(ctx context.Context, productID, warehouseID uuid.UUID) (*models.WarehouseStock, error) {
	var ws models.WarehouseStock
	err := r.db.WithContext(ctx).
		First(&ws, "product_id = ? AND warehouse_id = ?", productID, warehouseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *warehouseStockRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.WarehouseStock, error) {
	var list []models.WarehouseStock
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("warehouse_id ASC").
		Find(&list).Error
	return list, err
}

func (r *warehouseStockRepo) SumByProduct(ctx context.Context, productID uuid.UUID) (int32, error) {
	var sum *int64
	err := r.db.WithContext(ctx).
		Model(&models.WarehouseStock{}).
		Where("product_id = ?", productID).
		Select("SUM(quantity)").
		Scan(&sum).Error
	if err != nil || sum == nil {
		return 0, err
	}
	return int32(*sum), nil
}

func (r *warehouseStockRepo) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&models.WarehouseStock{}).
		Where("product_id = ?", productID).
		Count(&cnt).Error
	return cnt, err
}

func (r *warehouseStockRepo) Create(ctx context.Context, ws *models.WarehouseStock) error {
	return r.db.WithContext(ctx).Select("*").Create(ws).Error
}

func (r *warehouseStockRepo) ApplyDelta(ctx context.Context, productID, warehouseID uuid.UUID, delta int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE warehouse_stocks
SET quantity = quantity + @delta,
    updated_at = now()
WHERE product_id = @pid
  AND warehouse_id = @wid
  AND quantity + @delta >= 0
`, map[string]any{
		"pid":   productID,
		"wid":   warehouseID,
		"delta": delta,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *warehouseStockRepo) AddOrCreate(ctx context.Context, productID, warehouseID uuid.UUID, qty int32) error {
	ws := models.WarehouseStock{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    qty,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "warehouse_id"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": gorm.Expr("warehouse_stocks.quantity + ?", qty)}),
		}).
		Create(&ws).Error
}
