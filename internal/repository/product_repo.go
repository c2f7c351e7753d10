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

type ProductRepo interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// GetForUpdate читает строку под FOR UPDATE — все мутации леджера идут через неё
	// внутри WithTx, чтобы previousStock не устаревал между чтением и записью.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// UpdateLedger применяет новое состояние леджера с проверкой версии.
	// false — конкурентная мутация успела раньше.
	UpdateLedger(ctx context.Context, p *models.Product) (bool, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) ProductRepo { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Select("*").Create(p).Error
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) UpdateLedger(ctx context.Context, p *models.Product) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]any{
			"quantity":     p.Quantity,
			"availability": p.Availability,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   time.Now(),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected > 0 {
		p.Version++
	}
	return tx.RowsAffected > 0, tx.Error
}
