package repository

import (
	"context"

	"stock-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProcessedEventRepo interface {
	// MarkProcessed пишет ключ идемпотентности. false — событие уже применялось
	// (повторная доставка), обработчик должен пропустить мутацию.
	MarkProcessed(ctx context.Context, eventID, topic string) (bool, error)
	Seen(ctx context.Context, eventID string) (bool, error)
}

type processedEventRepo struct{ db *gorm.DB }

func NewProcessedEventRepo(db *gorm.DB) ProcessedEventRepo { return &processedEventRepo{db: db} }

func (r *processedEventRepo) MarkProcessed(ctx context.Context, eventID, topic string) (bool, error) {
	rec := models.ProcessedEvent{EventID: eventID, Topic: topic}
	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec)
	return tx.RowsAffected > 0, tx.Error
}

func (r *processedEventRepo) Seen(ctx context.Context, eventID string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&models.ProcessedEvent{}).
		Where("event_id = ?", eventID).
		Count(&cnt).Error
	return cnt > 0, err
}
