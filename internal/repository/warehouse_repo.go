package repository

import (
	"context"
	"errors"

	"stock-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WarehouseRepo interface {
	Create(ctx context.Context, w *models.Warehouse) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type warehouseRepo struct{ db *gorm.DB }

func NewWarehouseRepo(db *gorm.DB) WarehouseRepo { return &warehouseRepo{db: db} }

func (r *warehouseRepo) Create(ctx context.Context, w *models.Warehouse) error {
	return r.db.WithContext(ctx).Select("*").Create(w).Error
}

func (r *warehouseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	var w models.Warehouse
	err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *warehouseRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&models.Warehouse{}).
		Where("id = ? AND is_active", id).
		Count(&cnt).Error
	return cnt > 0, err
}
