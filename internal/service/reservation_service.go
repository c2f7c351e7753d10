package service

import (
	"context"
	"time"

	"stock-service/internal/models"
	"stock-service/internal/repository"

	"github.com/google/uuid"
)

type reservationService struct {
	repo   *repository.Repository
	events EventBus
	now    func() time.Time
}

func NewReservationService(repo *repository.Repository, events EventBus) *reservationService {
	return &reservationService{
		repo:   repo,
		events: events,
		now:    time.Now,
	}
}

const defaultReservationTTL = 15 * time.Minute

// Reserve создаёт мягкий холд. Леджер не трогается: доступность считается
// как quantity − Σ active внутри транзакции под локом товара, чтобы два
// конкурентных резерва не прошли по одному и тому же остатку.
func (s *reservationService) Reserve(ctx context.Context, in ReserveInput) (*models.StockReservation, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = defaultReservationTTL
	}

	var res *models.StockReservation
	err := s.repo.WithTx(func(tx *repository.Repository) error {
		p, err := tx.Products.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound
		}

		total := p.Quantity
		if in.WarehouseID != nil {
			ws, err := tx.WarehouseStocks.Get(ctx, in.ProductID, *in.WarehouseID)
			if err != nil {
				return err
			}
			if ws == nil {
				return ErrWarehouseNotFound
			}
			total = ws.Quantity
		}

		reserved, err := tx.Reservations.SumActive(ctx, in.ProductID, in.WarehouseID)
		if err != nil {
			return err
		}

		available := total - reserved
		if available < in.Quantity {
			return &InsufficientStockError{
				ProductID: in.ProductID,
				Requested: in.Quantity,
				Available: available,
				Total:     total,
				Reserved:  reserved,
			}
		}

		now := s.now()
		res = &models.StockReservation{
			ProductID:   in.ProductID,
			WarehouseID: in.WarehouseID,
			OrderID:     in.OrderID,
			CustomerID:  in.CustomerID,
			Quantity:    in.Quantity,
			Status:      models.ReservationActive,
			ExpiresAt:   now.Add(ttl),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.Reservations.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		_ = s.events.PublishStockReserved(ctx, StockReservedEvent{
			ReservationID: res.ID,
			ProductID:     res.ProductID,
			OrderID:       res.OrderID,
			Quantity:      res.Quantity,
			ExpiresAt:     res.ExpiresAt,
			ReservedAt:    res.CreatedAt,
		})
	}
	return res, nil
}

// Fulfill валиден только из active и до истечения срока. Леджер не мутируется:
// фактическое списание делает пайплайн по событию заказа.
func (s *reservationService) Fulfill(ctx context.Context, id uuid.UUID) (*models.StockReservation, error) {
	var res *models.StockReservation
	var lapsed bool
	err := s.repo.WithTx(func(tx *repository.Repository) error {
		var err error
		res, err = tx.Reservations.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if res == nil {
			return ErrReservationNotFound
		}
		if res.Status != models.ReservationActive {
			return ErrReservationNotActive
		}
		if res.ExpiresAt.Before(s.now()) {
			// Просроченный холд закрывается, попытка отклоняется. Ошибка из
			// колбэка откатила бы транзакцию вместе с переводом в expired,
			// поэтому наружу она возвращается уже после коммита.
			if _, err := tx.Reservations.MarkStatus(ctx, id, models.ReservationActive, models.ReservationExpired); err != nil {
				return err
			}
			res.Status = models.ReservationExpired
			lapsed = true
			return nil
		}
		ok, err := tx.Reservations.MarkStatus(ctx, id, models.ReservationActive, models.ReservationFulfilled)
		if err != nil {
			return err
		}
		if !ok {
			return ErrReservationNotActive
		}
		res.Status = models.ReservationFulfilled
		return nil
	})
	if err != nil {
		return res, err
	}

	if lapsed {
		s.publishClosed(ctx, res, "expired")
		return res, ErrReservationExpired
	}

	s.publishClosed(ctx, res, "fulfilled")
	return res, nil
}

func (s *reservationService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.StockReservation, error) {
	res, err := s.repo.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}

	ok, err := s.repo.Reservations.MarkStatus(ctx, id, models.ReservationActive, models.ReservationCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrReservationNotActive
	}
	res.Status = models.ReservationCancelled

	s.publishClosed(ctx, res, "cancelled")
	return res, nil
}

// Sweep переводит просроченные активные холды в expired. Запускается тикером.
func (s *reservationService) Sweep(ctx context.Context) (int, error) {
	expired, err := s.repo.Reservations.ListExpired(ctx, s.now(), 0)
	if err != nil {
		return 0, err
	}

	var swept int
	for i := range expired {
		res := &expired[i]
		ok, err := s.repo.Reservations.MarkStatus(ctx, res.ID, models.ReservationActive, models.ReservationExpired)
		if err != nil {
			return swept, err
		}
		if !ok {
			continue // кто-то успел закрыть холд между выборкой и апдейтом
		}
		res.Status = models.ReservationExpired
		swept++
		s.publishClosed(ctx, res, "expired")
	}
	return swept, nil
}

func (s *reservationService) GetAvailableStock(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID) (*AvailableStock, error) {
	p, err := s.repo.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}

	total := p.Quantity
	if warehouseID != nil {
		ws, err := s.repo.WarehouseStocks.Get(ctx, productID, *warehouseID)
		if err != nil {
			return nil, err
		}
		if ws == nil {
			return nil, ErrWarehouseNotFound
		}
		total = ws.Quantity
	}

	reserved, err := s.repo.Reservations.SumActive(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}

	return &AvailableStock{
		ProductID: productID,
		Total:     total,
		Reserved:  reserved,
		Available: total - reserved,
	}, nil
}

func (s *reservationService) publishClosed(ctx context.Context, res *models.StockReservation, outcome string) {
	if s.events == nil || res == nil {
		return
	}
	_ = s.events.PublishReservationClosed(ctx, ReservationClosedEvent{
		ReservationID: res.ID,
		ProductID:     res.ProductID,
		OrderID:       res.OrderID,
		Quantity:      res.Quantity,
		Outcome:       outcome,
		ClosedAt:      s.now(),
	})
}
