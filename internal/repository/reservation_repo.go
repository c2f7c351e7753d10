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

type ReservationRepo interface {
	Create(ctx context.Context, res *models.StockReservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StockReservation, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.StockReservation, error)

	// SumActive — сумма активных холдов по товару (и складу, если задан).
	SumActive(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID) (int32, error)

	// Переходы статуса защищены условием на текущий статус: false — гонка или неверный статус.
	MarkStatus(ctx context.Context, id uuid.UUID, from, to models.ReservationStatus) (bool, error)
	// FulfillByOrder закрывает активные холды заказа (вызывается из пайплайна в одной
	// транзакции со списанием).
	FulfillByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)

	// ListExpired — активные с истёкшим сроком (для свипа).
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.StockReservation, error)
}

type reservationRepo struct{ db *gorm.DB }

func NewReservationRepo(db *gorm.DB) ReservationRepo { return &reservationRepo{db: db} }

func (r *reservationRepo) Create(ctx context.Context, res *models.StockReservation) error {
	return r.db.WithContext(ctx).Select("*").Create(res).Error
}

func (r *reservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StockReservation, error) {
	var res models.StockReservation
	err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.StockReservation, error) {
	var res models.StockReservation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&res, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepo) SumActive(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID) (int32, error) {
	q := r.db.WithContext(ctx).
		Model(&models.StockReservation{}).
		Where("product_id = ? AND status = ?", productID, models.ReservationActive)
	if warehouseID != nil {
		q = q.Where("warehouse_id = ?", *warehouseID)
	}

	var sum *int64
	err := q.Select("SUM(quantity)").Scan(&sum).Error
	if err != nil || sum == nil {
		return 0, err
	}
	return int32(*sum), nil
}

func (r *reservationRepo) MarkStatus(ctx context.Context, id uuid.UUID, from, to models.ReservationStatus) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.StockReservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	return tx.RowsAffected > 0, tx.Error
}

func (r *reservationRepo) FulfillByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.StockReservation{}).
		Where("order_id = ? AND status = ?", orderID, models.ReservationActive).
		Updates(map[string]any{"status": models.ReservationFulfilled, "updated_at": time.Now()})
	return tx.RowsAffected, tx.Error
}

func (r *reservationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.StockReservation, error) {
	if limit <= 0 {
		limit = 500
	}
	var list []models.StockReservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.ReservationActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
