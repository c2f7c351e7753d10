package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"stock-service/internal/models"
	"stock-service/internal/repository"

	"github.com/google/uuid"
)

type transferService struct {
	repo   *repository.Repository
	ledger *stockService
	events EventBus
	now    func() time.Time
}

func NewTransferService(repo *repository.Repository, ledger *stockService, events EventBus) *transferService {
	return &transferService{
		repo:   repo,
		ledger: ledger,
		events: events,
		now:    time.Now,
	}
}

func newTransferNumber(now time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("TRF-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(id[:4])))
}

// CreateTransfer валидирует склады и достаточность остатка на источнике
// (только чтение; окончательная проверка — на Approve, в момент списания).
func (s *transferService) CreateTransfer(ctx context.Context, in CreateTransferInput) (*models.StockTransfer, error) {
	if in.SourceWarehouseID == in.DestinationWarehouseID {
		return nil, ErrSameWarehouse
	}
	if len(in.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	for _, id := range []uuid.UUID{in.SourceWarehouseID, in.DestinationWarehouseID} {
		ok, err := s.repo.Warehouses.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrWarehouseNotFound
		}
	}

	for _, it := range in.Items {
		p, err := s.repo.Products.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, ErrProductNotFound
		}
		ws, err := s.repo.WarehouseStocks.Get(ctx, it.ProductID, in.SourceWarehouseID)
		if err != nil {
			return nil, err
		}
		var avail int32
		if ws != nil {
			avail = ws.Quantity
		}
		if avail < it.Quantity {
			return nil, &InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: avail,
				Total:     p.Quantity,
			}
		}
	}

	now := s.now()
	t := &models.StockTransfer{
		TransferNumber:         newTransferNumber(now),
		SourceWarehouseID:      in.SourceWarehouseID,
		DestinationWarehouseID: in.DestinationWarehouseID,
		Status:                 models.TransferPending,
		InitiatedBy:            ActorFromContext(ctx),
		Notes:                  in.Notes,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	for _, it := range in.Items {
		t.Items = append(t.Items, models.StockTransferItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	if err := s.repo.Transfers.Create(ctx, t); err != nil {
		return nil, err
	}

	s.publishTransfer(ctx, t, "created")
	return t, nil
}

// ApproveTransfer списывает остаток с источника по всем позициям в одной
// транзакции. Достаточность перепроверяется в момент коммита: гонка с другим
// потребителем того же склада валит всю операцию, перевод остаётся pending.
// С трек-номером перевод сразу уходит в in_transit.
func (s *transferService) ApproveTransfer(ctx context.Context, id uuid.UUID, trackingNumber string) (*models.StockTransfer, error) {
	target := models.TransferApproved
	if trackingNumber != "" {
		target = models.TransferInTransit
	}
	approvedBy := ActorFromContext(ctx)

	err := s.repo.WithTx(func(tx *repository.Repository) error {
		t, err := tx.Transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTransferNotFound
		}
		if t.Status != models.TransferPending {
			return ErrInvalidTransition
		}

		for _, it := range t.Items {
			tid := t.ID
			if _, _, err := s.ledger.applyChange(ctx, tx, it.ProductID, changeInput{
				Delta:       -it.Quantity,
				WarehouseID: &t.SourceWarehouseID,
				ChangeType:  models.ChangeTransferOut,
				Reason:      "transfer " + t.TransferNumber,
				ReferenceID: &tid,
				Actor:       approvedBy,
			}); err != nil {
				return err
			}
		}

		fields := map[string]any{"approved_by": approvedBy}
		if trackingNumber != "" {
			fields["tracking_number"] = trackingNumber
		}
		ok, err := tx.Transfers.UpdateStatus(ctx, id, models.TransferPending, target, fields)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t, err := s.repo.Transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishTransfer(ctx, t, "approved")
	return t, nil
}

func (s *transferService) DispatchTransfer(ctx context.Context, id uuid.UUID, trackingNumber string) (*models.StockTransfer, error) {
	fields := map[string]any{}
	if trackingNumber != "" {
		fields["tracking_number"] = trackingNumber
	}
	ok, err := s.repo.Transfers.UpdateStatus(ctx, id, models.TransferApproved, models.TransferInTransit, fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		t, err := s.repo.Transfers.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, ErrTransferNotFound
		}
		return nil, ErrInvalidTransition
	}
	return s.repo.Transfers.GetByID(ctx, id)
}

// CompleteTransfer приходует позиции на склад назначения (строка создаётся,
// если товара там ещё не было). Всё — одна транзакция.
func (s *transferService) CompleteTransfer(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error) {
	err := s.repo.WithTx(func(tx *repository.Repository) error {
		t, err := tx.Transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTransferNotFound
		}
		if t.Status != models.TransferInTransit {
			return ErrInvalidTransition
		}

		for _, it := range t.Items {
			tid := t.ID
			if _, _, err := s.ledger.applyChange(ctx, tx, it.ProductID, changeInput{
				Delta:       it.Quantity,
				WarehouseID: &t.DestinationWarehouseID,
				ChangeType:  models.ChangeTransferIn,
				Reason:      "transfer " + t.TransferNumber,
				ReferenceID: &tid,
				Actor:       ActorFromContext(ctx),
			}); err != nil {
				return err
			}
		}

		ok, err := tx.Transfers.UpdateStatus(ctx, id, models.TransferInTransit, models.TransferCompleted, nil)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t, err := s.repo.Transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishTransfer(ctx, t, "completed")
	return t, nil
}

// CancelTransfer: из pending — без движения остатков; из approved/in_transit —
// возврат ранее списанного на источник (adjustment); из completed — отказ.
func (s *transferService) CancelTransfer(ctx context.Context, id uuid.UUID, reason string) (*models.StockTransfer, error) {
	err := s.repo.WithTx(func(tx *repository.Repository) error {
		t, err := tx.Transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTransferNotFound
		}

		switch t.Status {
		case models.TransferPending:
			// списания не было — откатывать нечего
		case models.TransferApproved, models.TransferInTransit:
			for _, it := range t.Items {
				tid := t.ID
				if _, _, err := s.ledger.applyChange(ctx, tx, it.ProductID, changeInput{
					Delta:       it.Quantity,
					WarehouseID: &t.SourceWarehouseID,
					ChangeType:  models.ChangeAdjustment,
					Reason:      "transfer cancelled: " + reason,
					ReferenceID: &tid,
					Actor:       ActorFromContext(ctx),
				}); err != nil {
					return err
				}
			}
		default:
			return ErrInvalidTransition
		}

		fields := map[string]any{}
		if reason != "" {
			fields["notes"] = concatNotes(t.Notes, "cancelled: "+reason)
		}
		ok, err := tx.Transfers.UpdateStatus(ctx, id, t.Status, models.TransferCancelled, fields)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t, err := s.repo.Transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishTransfer(ctx, t, "cancelled")
	return t, nil
}

func concatNotes(existing, add string) string {
	if existing == "" {
		return add
	}
	return existing + "; " + add
}

func (s *transferService) GetTransfer(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error) {
	t, err := s.repo.Transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTransferNotFound
	}
	return t, nil
}

func (s *transferService) ListTransfers(ctx context.Context, f repository.TransferListFilter) ([]models.StockTransfer, int64, error) {
	return s.repo.Transfers.List(ctx, f)
}

func (s *transferService) publishTransfer(ctx context.Context, t *models.StockTransfer, action string) {
	if s.events == nil || t == nil {
		return
	}
	ev := TransferEvent{
		TransferID:             t.ID,
		TransferNumber:         t.TransferNumber,
		SourceWarehouseID:      t.SourceWarehouseID,
		DestinationWarehouseID: t.DestinationWarehouseID,
		Status:                 string(t.Status),
		Action:                 action,
		OccurredAt:             s.now(),
	}
	for _, it := range t.Items {
		ev.Items = append(ev.Items, TransferItemEvent{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	_ = s.events.PublishTransferEvent(ctx, ev)
}
