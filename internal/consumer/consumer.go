package consumer

import (
	"context"
	"errors"
	"time"

	"stock-service/internal/service"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StockEventConsumer читает один поток (orders или purchases) последовательно:
// один in-flight message на поток, потоки независимы друг от друга.
// Оффсет коммитится только после коммита транзакции — сбой оставляет сообщение
// недоставленным (ределивери после ретрая/перезапуска).
type StockEventConsumer struct {
	reader *kafka.Reader
	svc    service.StockService
	log    *zap.Logger
}

func newReader(brokers []string, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          10e3,
		MaxBytes:          10e6,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
}

func NewStockEventConsumer(brokers []string, groupID, topic string, svc service.StockService, log *zap.Logger) *StockEventConsumer {
	return &StockEventConsumer{
		reader: newReader(brokers, groupID, topic),
		svc:    svc,
		log:    log.With(zap.String("topic", topic)),
	}
}

func (c *StockEventConsumer) Run(ctx context.Context) error {
	c.log.Info("stock event consumer started")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("fetch message", zap.Error(err))
			continue
		}

		if err := c.handleWithRetry(ctx, m.Value); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			// сюда попадают только невосстановимые декодинг/валидация — скипаем
			c.log.Error("skip message", zap.ByteString("value", m.Value), zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("commit offset", zap.Error(err))
		}
	}
}

// handleWithRetry гоняет транзиентные ошибки с бэкоффом, не двигая оффсет.
// Идемпотентность обеспечивает processed_events: повтор применённого события — no-op.
func (c *StockEventConsumer) handleWithRetry(ctx context.Context, raw []byte) error {
	backoff := time.Second
	for {
		err := c.handle(ctx, raw)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}

		c.log.Warn("event processing failed, will retry", zap.Error(err), zap.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *StockEventConsumer) handle(ctx context.Context, raw []byte) error {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return err
	}

	switch env.Type {
	case EventOrderCreated, EventOrderPlaced:
		ev, err := decodeOrderEvent(env)
		if err != nil {
			return err
		}
		return c.svc.ProcessOrderCreated(ctx, env.ID, ev)
	case EventOrderCancelled:
		ev, err := decodeOrderEvent(env)
		if err != nil {
			return err
		}
		return c.svc.ProcessOrderCancelled(ctx, env.ID, ev)
	case EventOrderReturned:
		ev, err := decodeOrderEvent(env)
		if err != nil {
			return err
		}
		return c.svc.ProcessOrderReturned(ctx, env.ID, ev)
	case EventPurchaseCompleted, EventPurchaseReceived:
		ev, err := decodePurchaseEvent(env)
		if err != nil {
			return err
		}
		return c.svc.ProcessPurchaseReceived(ctx, env.ID, ev)
	default:
		return ErrUnknownEventType
	}
}

// isPermanent: валидация, декодинг и неизвестные типы ретраем не лечатся;
// нехватка остатка и сбои стора — транзиентные, сообщение переигрывается.
func isPermanent(err error) bool {
	return errors.Is(err, ErrUnknownEventType) ||
		errors.Is(err, ErrMalformedEvent) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrProductNotFound)
}

func (c *StockEventConsumer) Close() error { return c.reader.Close() }
