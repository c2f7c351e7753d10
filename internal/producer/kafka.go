package producer

import (
	"context"
	"encoding/json"
	"time"

	"stock-service/internal/service"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaEventBus публикует исходящие события сервиса в один топик,
// ключ — productID/transferID, конверт {id, type, payload} — тот же,
// что и у входящих потоков.
type KafkaEventBus struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaEventBus(brokers []string, topic string, log *zap.Logger) *KafkaEventBus {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaEventBus{writer: w, log: log}
}

type envelope struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

func (b *KafkaEventBus) publish(ctx context.Context, eventType string, key uuid.UUID, payload any) error {
	env := envelope{
		ID:      uuid.NewString(),
		Type:    eventType,
		Payload: payload,
		SentAt:  time.Now(),
	}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}

	err = b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key.String()),
		Value: value,
	})
	if err != nil {
		b.log.Error("publish event", zap.String("type", eventType), zap.Error(err))
		return err
	}
	return nil
}

func (b *KafkaEventBus) PublishInventoryUpdated(ctx context.Context, e service.InventoryUpdatedEvent) error {
	return b.publish(ctx, "inventory.updated", e.ProductID, e)
}

func (b *KafkaEventBus) PublishStockReserved(ctx context.Context, e service.StockReservedEvent) error {
	return b.publish(ctx, "stock.reserved", e.ProductID, e)
}

func (b *KafkaEventBus) PublishReservationClosed(ctx context.Context, e service.ReservationClosedEvent) error {
	return b.publish(ctx, "stock.reservation."+e.Outcome, e.ProductID, e)
}

func (b *KafkaEventBus) PublishTransferEvent(ctx context.Context, e service.TransferEvent) error {
	return b.publish(ctx, "transfer."+e.Action, e.TransferID, e)
}

func (b *KafkaEventBus) Close() error { return b.writer.Close() }
