package service

import (
	"context"
	"fmt"
	"time"

	"stock-service/internal/models"
	"stock-service/internal/repository"

	"github.com/google/uuid"
)

type stockService struct {
	repo   *repository.Repository
	events EventBus
	now    func() time.Time
}

func NewStockService(repo *repository.Repository, events EventBus) *stockService {
	return &stockService{
		repo:   repo,
		events: events,
		now:    time.Now,
	}
}

// changeInput — одна мутация леджера. Либо Delta, либо Absolute (для set).
type changeInput struct {
	Delta        int32
	Absolute     *int32
	WarehouseID  *uuid.UUID
	ChangeType   models.ChangeType
	Reason       string
	ReferenceID  *uuid.UUID
	Actor        string
	ForceInStock bool
}

// applyChange выполняет мутацию внутри уже открытой транзакции:
// лочит товар (FOR UPDATE), пересчитывает остаток/разбивку/availability,
// пишет StockChange и, при пересечении порога на списании, алерт.
// Всё — одна атомарная единица работы вызывающей транзакции.
func (s *stockService) applyChange(ctx context.Context, tx *repository.Repository, productID uuid.UUID, in changeInput) (*models.Product, *models.StockChange, error) {
	p, err := tx.Products.GetForUpdate(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, ErrProductNotFound
	}

	prev := p.Quantity

	// Переход из односкладского режима: первая складская мутация приписывает
	// прежний нераспределённый остаток затронутому складу, иначе пересчёт
	// итога из разбивки затёр бы его.
	singleMode := false
	if in.WarehouseID != nil {
		cnt, err := tx.WarehouseStocks.CountByProduct(ctx, productID)
		if err != nil {
			return nil, nil, err
		}
		singleMode = cnt == 0
		if singleMode && prev > 0 {
			if err := tx.WarehouseStocks.AddOrCreate(ctx, productID, *in.WarehouseID, prev); err != nil {
				return nil, nil, err
			}
			singleMode = false
		}
	}

	delta := in.Delta
	if in.Absolute != nil {
		if in.WarehouseID != nil {
			ws, err := tx.WarehouseStocks.Get(ctx, productID, *in.WarehouseID)
			if err != nil {
				return nil, nil, err
			}
			var current int32
			if ws != nil {
				current = ws.Quantity
			}
			delta = *in.Absolute - current
		} else {
			delta = *in.Absolute - prev
		}
	}

	newTotal := prev + delta
	if newTotal < 0 && !p.AllowBackorder {
		return nil, nil, &InsufficientStockError{
			ProductID: productID,
			Requested: -delta,
			Available: prev,
			Total:     prev,
		}
	}

	var wsThresholdHit bool
	if in.WarehouseID != nil {
		switch {
		case singleMode && prev < 0:
			// Backorder-долг в строку склада не помещается (quantity >= 0):
			// приход сначала гасит долг, остаток кладётся в строку. Пока долг
			// не погашен, товар остаётся в односкладском режиме.
			if net := prev + delta; net >= 0 {
				if err := tx.WarehouseStocks.AddOrCreate(ctx, productID, *in.WarehouseID, net); err != nil {
					return nil, nil, err
				}
			}
		case delta >= 0:
			if err := tx.WarehouseStocks.AddOrCreate(ctx, productID, *in.WarehouseID, delta); err != nil {
				return nil, nil, err
			}
		default:
			ok, err := tx.WarehouseStocks.ApplyDelta(ctx, productID, *in.WarehouseID, delta)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				ws, err := tx.WarehouseStocks.Get(ctx, productID, *in.WarehouseID)
				if err != nil {
					return nil, nil, err
				}
				var avail int32
				if ws != nil {
					avail = ws.Quantity
				}
				return nil, nil, &InsufficientStockError{
					ProductID: productID,
					Requested: -delta,
					Available: avail,
					Total:     prev,
				}
			}
			ws, err := tx.WarehouseStocks.Get(ctx, productID, *in.WarehouseID)
			if err != nil {
				return nil, nil, err
			}
			if ws != nil && ws.LowStockThreshold > 0 && ws.Quantity <= ws.LowStockThreshold {
				wsThresholdHit = true
			}
		}
	} else if delta != 0 {
		// Без склада, но с разбивкой: дельта раскладывается по строкам, чтобы
		// quantity == sum(perWarehouse) держался после каждой операции.
		cnt, err := tx.WarehouseStocks.CountByProduct(ctx, productID)
		if err != nil {
			return nil, nil, err
		}
		if cnt > 0 {
			if err := s.spreadDelta(ctx, tx, productID, delta, prev); err != nil {
				return nil, nil, err
			}
		}
	}

	// Итог из разбивки, если она есть; иначе товар в односкладском режиме.
	cnt, err := tx.WarehouseStocks.CountByProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	if cnt > 0 {
		sum, err := tx.WarehouseStocks.SumByProduct(ctx, productID)
		if err != nil {
			return nil, nil, err
		}
		p.Quantity = sum
	} else {
		p.Quantity = newTotal
	}

	now := s.now()
	if in.ForceInStock {
		p.Availability = models.AvailabilityInStock
	} else {
		p.Availability = models.ComputeAvailability(p.Quantity, p.LowStockThreshold, p.ScheduledAvailabilityDate, now)
	}

	ok, err := tx.Products.UpdateLedger(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrVersionConflict
	}

	change := &models.StockChange{
		ProductID:     productID,
		WarehouseID:   in.WarehouseID,
		ChangeType:    in.ChangeType,
		Quantity:      p.Quantity - prev,
		PreviousStock: prev,
		NewStock:      p.Quantity,
		Reason:        in.Reason,
		ReferenceID:   in.ReferenceID,
		Actor:         in.Actor,
		CreatedAt:     now,
	}
	if err := tx.StockChanges.Append(ctx, change); err != nil {
		return nil, nil, err
	}

	if delta < 0 && (p.Quantity <= p.LowStockThreshold || wsThresholdHit) {
		if err := s.raiseStockAlert(ctx, tx, p); err != nil {
			return nil, nil, err
		}
	}

	return p, change, nil
}

// spreadDelta жадно раскладывает дельту по складским строкам в стабильном порядке.
func (s *stockService) spreadDelta(ctx context.Context, tx *repository.Repository, productID uuid.UUID, delta, totalAvail int32) error {
	rows, err := tx.WarehouseStocks.ListByProduct(ctx, productID)
	if err != nil {
		return err
	}

	if delta > 0 {
		// приход без склада — в первую строку разбивки
		_, err := tx.WarehouseStocks.ApplyDelta(ctx, productID, rows[0].WarehouseID, delta)
		return err
	}

	remaining := -delta
	for _, row := range rows {
		if remaining == 0 {
			break
		}
		take := row.Quantity
		if take > remaining {
			take = remaining
		}
		if take == 0 {
			continue
		}
		ok, err := tx.WarehouseStocks.ApplyDelta(ctx, productID, row.WarehouseID, -take)
		if err != nil {
			return err
		}
		if !ok {
			return &InsufficientStockError{ProductID: productID, Requested: -delta, Available: totalAvail, Total: totalAvail}
		}
		remaining -= take
	}
	if remaining > 0 {
		return &InsufficientStockError{ProductID: productID, Requested: -delta, Available: totalAvail - remaining, Total: totalAvail}
	}
	return nil
}

func (s *stockService) raiseStockAlert(ctx context.Context, tx *repository.Repository, p *models.Product) error {
	alertType := models.AlertLowStock
	msg := fmt.Sprintf("stock for %s dropped to %d (threshold %d)", p.SKU, p.Quantity, p.LowStockThreshold)
	if p.Quantity <= 0 {
		alertType = models.AlertOutOfStock
		msg = fmt.Sprintf("stock for %s is exhausted", p.SKU)
	}
	return tx.Alerts.RaiseUnresolved(ctx, &models.Alert{
		Type:      alertType,
		ProductID: p.ID,
		Threshold: p.LowStockThreshold,
		Message:   msg,
	})
}

func (s *stockService) publishUpdated(ctx context.Context, p *models.Product, c *models.StockChange) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishInventoryUpdated(ctx, InventoryUpdatedEvent{
		ProductID:    p.ID,
		WarehouseID:  c.WarehouseID,
		Delta:        c.Quantity,
		Quantity:     p.Quantity,
		Availability: string(p.Availability),
		ChangeType:   string(c.ChangeType),
		UpdatedAt:    c.CreatedAt,
	})
}

func (s *stockService) AdjustInventory(ctx context.Context, in AdjustInput) (*StockSnapshot, error) {
	ci := changeInput{
		WarehouseID: in.WarehouseID,
		ChangeType:  models.ChangeAdjustment,
		Reason:      in.Reason,
		Actor:       ActorFromContext(ctx),
	}

	switch in.Operation {
	case OpSet:
		if in.Quantity < 0 {
			return nil, ErrInvalidQuantity
		}
		abs := in.Quantity
		ci.Absolute = &abs
	case OpIncrement:
		if in.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		ci.Delta = in.Quantity
	case OpDecrement:
		if in.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		ci.Delta = -in.Quantity
	default:
		return nil, ErrInvalidOperation
	}

	var (
		p      *models.Product
		change *models.StockChange
	)
	err := s.repo.WithTx(func(tx *repository.Repository) error {
		var err error
		p, change, err = s.applyChange(ctx, tx, in.ProductID, ci)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, p, change)
	return s.snapshot(ctx, p)
}

func (s *stockService) snapshot(ctx context.Context, p *models.Product) (*StockSnapshot, error) {
	rows, err := s.repo.WarehouseStocks.ListByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &StockSnapshot{
		ProductID:    p.ID,
		Quantity:     p.Quantity,
		Availability: p.Availability,
		Warehouses:   rows,
	}, nil
}

func (s *stockService) GetStock(ctx context.Context, productID uuid.UUID) (*StockSnapshot, error) {
	p, err := s.repo.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return s.snapshot(ctx, p)
}

func (s *stockService) GetStockHistory(ctx context.Context, f HistoryFilter) ([]models.StockChange, int64, error) {
	p, err := s.repo.Products.GetByID(ctx, f.ProductID)
	if err != nil {
		return nil, 0, err
	}
	if p == nil {
		return nil, 0, ErrProductNotFound
	}
	return s.repo.StockChanges.List(ctx, repository.StockChangeFilter{
		ProductID:   f.ProductID,
		WarehouseID: f.WarehouseID,
		ChangeType:  f.ChangeType,
		From:        f.From,
		To:          f.To,
		Limit:       f.Limit,
		Offset:      f.Offset,
	})
}

func validateOrderEvent(ev OrderEvent) error {
	if len(ev.Items) == 0 {
		return ErrInvalidQuantity
	}
	for _, it := range ev.Items {
		if it.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

// processOrderItems применяет все позиции заказа одной транзакцией: сбой на любой
// позиции откатывает всё сообщение (частичного списания не бывает).
func (s *stockService) processOrderItems(ctx context.Context, eventID string, ev OrderEvent, sign int32, ct models.ChangeType, reason string, forceInStock, closeReservations bool) error {
	if err := validateOrderEvent(ev); err != nil {
		return err
	}

	var published []publishedChange
	err := s.repo.WithTx(func(tx *repository.Repository) error {
		fresh, err := tx.ProcessedEvents.MarkProcessed(ctx, eventID, "orders")
		if err != nil {
			return err
		}
		if !fresh {
			// повторная доставка — событие уже применено
			return nil
		}

		orderID := ev.OrderID
		for _, it := range ev.Items {
			p, change, err := s.applyChange(ctx, tx, it.ProductID, changeInput{
				Delta:        sign * it.Quantity,
				WarehouseID:  it.WarehouseID,
				ChangeType:   ct,
				Reason:       reason,
				ReferenceID:  &orderID,
				Actor:        "pipeline",
				ForceInStock: forceInStock,
			})
			if err != nil {
				return err
			}
			published = append(published, publishedChange{p, change})
		}

		if closeReservations {
			// закрываем холды заказа в той же транзакции, что и списание,
			// иначе active-резервация продолжит занижать available после продажи
			if _, err := tx.Reservations.FulfillByOrder(ctx, orderID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, pc := range published {
		s.publishUpdated(ctx, pc.product, pc.change)
	}
	return nil
}

type publishedChange struct {
	product *models.Product
	change  *models.StockChange
}

func (s *stockService) ProcessOrderCreated(ctx context.Context, eventID string, ev OrderEvent) error {
	return s.processOrderItems(ctx, eventID, ev, -1, models.ChangeSale, "order placed", false, true)
}

func (s *stockService) ProcessOrderCancelled(ctx context.Context, eventID string, ev OrderEvent) error {
	return s.processOrderItems(ctx, eventID, ev, +1, models.ChangeReturn, "order cancelled", false, false)
}

func (s *stockService) ProcessOrderReturned(ctx context.Context, eventID string, ev OrderEvent) error {
	reason := "order returned"
	if ev.Reason != "" {
		reason = "order returned: " + ev.Reason
	}
	// возврат безусловно переводит товар в in_stock (политика исходного потока)
	return s.processOrderItems(ctx, eventID, ev, +1, models.ChangeReturn, reason, true, false)
}

func (s *stockService) ProcessPurchaseReceived(ctx context.Context, eventID string, ev PurchaseEvent) error {
	if len(ev.Items) == 0 {
		return ErrInvalidQuantity
	}
	for _, it := range ev.Items {
		if it.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}

	var published []publishedChange
	err := s.repo.WithTx(func(tx *repository.Repository) error {
		fresh, err := tx.ProcessedEvents.MarkProcessed(ctx, eventID, "purchases")
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}

		ref := ev.PurchaseID
		for _, it := range ev.Items {
			p, change, err := s.applyChange(ctx, tx, it.ProductID, changeInput{
				Delta:        it.Quantity,
				WarehouseID:  it.WarehouseID,
				ChangeType:   models.ChangeRestock,
				Reason:       "purchase received",
				ReferenceID:  &ref,
				Actor:        "pipeline",
				ForceInStock: true,
			})
			if err != nil {
				return err
			}
			published = append(published, publishedChange{p, change})
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, pc := range published {
		s.publishUpdated(ctx, pc.product, pc.change)
	}
	return nil
}

func (s *stockService) ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, int64, error) {
	return s.repo.Alerts.List(ctx, repository.AlertListFilter{
		ProductID:    f.ProductID,
		OnlyUnsolved: f.OnlyUnsolved,
		Limit:        f.Limit,
		Offset:       f.Offset,
	})
}

func (s *stockService) ResolveAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	ok, err := s.repo.Alerts.Resolve(ctx, id, ActorFromContext(ctx))
	if err != nil {
		return nil, err
	}
	if !ok {
		a, err := s.repo.Alerts.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, ErrAlertNotFound
		}
		return a, nil // уже решён — идемпотентно
	}
	return s.repo.Alerts.GetByID(ctx, id)
}
