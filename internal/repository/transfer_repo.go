package repository

import (
	"context"
	"errors"
	"time"

	"stock-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransferListFilter struct {
	Status      *models.TransferStatus
	WarehouseID *uuid.UUID // источник или назначение
	Limit       int
	Offset      int
}

type TransferRepo interface {
	Create(ctx context.Context, t *models.StockTransfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error)
	List(ctx context.Context, f TransferListFilter) ([]models.StockTransfer, int64, error)

	// UpdateStatus переводит статус с проверкой исходного: false — гонка/неверный переход.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.TransferStatus, fields map[string]any) (bool, error)
}

type transferRepo struct{ db *gorm.DB }

func NewTransferRepo(db *gorm.DB) TransferRepo { return &transferRepo{db: db} }

func (r *transferRepo) Create(ctx context.Context, t *models.StockTransfer) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *transferRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error) {
	var t models.StockTransfer
	err := r.db.WithContext(ctx).Preload("Items").First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error) {
	var t models.StockTransfer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Items вне FOR UPDATE: заголовок уже залочен, состав не меняется после создания.
	if err := r.db.WithContext(ctx).Where("transfer_id = ?", id).Find(&t.Items).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transferRepo) List(ctx context.Context, f TransferListFilter) ([]models.StockTransfer, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.StockTransfer{})

	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.WarehouseID != nil {
		q = q.Where("source_warehouse_id = ? OR destination_warehouse_id = ?", *f.WarehouseID, *f.WarehouseID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []models.StockTransfer
	if err := q.Preload("Items").Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *transferRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.TransferStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now()}
	for k, v := range fields {
		updates[k] = v
	}
	tx := r.db.WithContext(ctx).
		Model(&models.StockTransfer{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return tx.RowsAffected > 0, tx.Error
}
