package repository

import (
	"context"
	"time"

	"stock-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockChangeFilter struct {
	ProductID   uuid.UUID
	WarehouseID *uuid.UUID
	ChangeType  *models.ChangeType
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

type StockChangeRepo interface {
	Append(ctx context.Context, c *models.StockChange) error
	List(ctx context.Context, f StockChangeFilter) ([]models.StockChange, int64, error)
	// ListForReplay отдаёт полный журнал товара в порядке записи — для сверки леджера.
	ListForReplay(ctx context.Context, productID uuid.UUID) ([]models.StockChange, error)
}

type stockChangeRepo struct{ db *gorm.DB }

func NewStockChangeRepo(db *gorm.DB) StockChangeRepo { return &stockChangeRepo{db: db} }

func (r *stockChangeRepo) Append(ctx context.Context, c *models.StockChange) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *stockChangeRepo) List(ctx context.Context, f StockChangeFilter) ([]models.StockChange, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.StockChange{}).Where("product_id = ?", f.ProductID)

	if f.WarehouseID != nil {
		q = q.Where("warehouse_id = ?", *f.WarehouseID)
	}
	if f.ChangeType != nil {
		q = q.Where("change_type = ?", *f.ChangeType)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []models.StockChange
	if err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *stockChangeRepo) ListForReplay(ctx context.Context, productID uuid.UUID) ([]models.StockChange, error) {
	var list []models.StockChange
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}
