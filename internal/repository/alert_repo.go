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

type AlertListFilter struct {
	ProductID    *uuid.UUID
	OnlyUnsolved bool
	Limit        int
	Offset       int
}

type AlertRepo interface {
	// RaiseUnresolved — upsert по (product_id, type) среди нерешённых:
	// повторное пересечение порога не плодит дубликаты.
	RaiseUnresolved(ctx context.Context, a *models.Alert) error
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	List(ctx context.Context, f AlertListFilter) ([]models.Alert, int64, error)
}

type alertRepo struct{ db *gorm.DB }

func NewAlertRepo(db *gorm.DB) AlertRepo { return &alertRepo{db: db} }

func (r *alertRepo) RaiseUnresolved(ctx context.Context, a *models.Alert) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}, {Name: "type"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				gorm.Expr("NOT is_resolved"),
			}},
			DoUpdates: clause.Assignments(map[string]any{
				"threshold":  a.Threshold,
				"message":    a.Message,
				"updated_at": time.Now(),
			}),
		}).
		Create(a).Error
}

func (r *alertRepo) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) (bool, error) {
	now := time.Now()
	tx := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ? AND NOT is_resolved", id).
		Updates(map[string]any{
			"is_resolved": true,
			"resolved_by": resolvedBy,
			"resolved_at": now,
			"updated_at":  now,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *alertRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	var a models.Alert
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *alertRepo) List(ctx context.Context, f AlertListFilter) ([]models.Alert, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Alert{})

	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.OnlyUnsolved {
		q = q.Where("NOT is_resolved")
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

	var list []models.Alert
	if err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
