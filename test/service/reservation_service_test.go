package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-service/internal/models"
	"stock-service/internal/service"

	"github.com/google/uuid"
)

func TestReserve_DoesNotMutateLedger(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 100, 0, false)

	res, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:  p.ID,
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		Quantity:   30,
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if res.Status != models.ReservationActive {
		t.Fatalf("expected active, got %s", res.Status)
	}

	// Холд не трогает ни леджер, ни журнал.
	if qty := e.productQty(t, p.ID); qty != 100 {
		t.Fatalf("ledger mutated by reservation: %d", qty)
	}
	if n := e.verifyReplay(t, p.ID); n != 0 {
		t.Fatalf("reservation wrote to journal: %d entries", n)
	}

	avail, err := e.reservations.GetAvailableStock(ctx, p.ID, nil)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if avail.Total != 100 || avail.Reserved != 30 || avail.Available != 70 {
		t.Fatalf("available mismatch: %+v", avail)
	}

	if len(e.bus.reserved) != 1 || e.bus.reserved[0].ReservationID != res.ID {
		t.Fatalf("stock.reserved not published: %+v", e.bus.reserved)
	}
}

func TestReserve_InsufficientAvailable(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 50, 0, false)

	if _, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:  p.ID,
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		Quantity:   40,
	}); err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	_, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:  p.ID,
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		Quantity:   20,
	})
	var insufficient *service.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 10 || insufficient.Reserved != 40 || insufficient.Total != 50 {
		t.Fatalf("diagnostic mismatch: %+v", insufficient)
	}
}

func TestReserve_Validation(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 10, 0, false)

	if _, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:  p.ID,
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		Quantity:   0,
	}); !errors.Is(err, service.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}

	if _, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:  uuid.New(),
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		Quantity:   1,
	}); !errors.Is(err, service.ErrProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}

	missingWarehouse := uuid.New()
	if _, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:   p.ID,
		WarehouseID: &missingWarehouse,
		OrderID:     uuid.New(),
		CustomerID:  uuid.New(),
		Quantity:    1,
	}); !errors.Is(err, service.ErrWarehouseNotFound) {
		t.Fatalf("expected warehouse not found, got %v", err)
	}
}

func TestReservation_FulfillAndCancel(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 100, 0, false)

	first, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:  p.ID,
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		Quantity:   10,
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	fulfilled, err := e.reservations.Fulfill(ctx, first.ID)
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if fulfilled.Status != models.ReservationFulfilled {
		t.Fatalf("expected fulfilled, got %s", fulfilled.Status)
	}

	// Закрытый холд не отменяется.
	if _, err := e.reservations.Cancel(ctx, first.ID, "too late"); !errors.Is(err, service.ErrReservationNotActive) {
		t.Fatalf("expected not active, got %v", err)
	}

	second, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:  p.ID,
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		Quantity:   10,
	})
	if err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	cancelled, err := e.reservations.Cancel(ctx, second.ID, "customer left")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.ReservationCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	// Отменённый холд освобождает available.
	avail, err := e.reservations.GetAvailableStock(ctx, p.ID, nil)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if avail.Available != 100 {
		t.Fatalf("expected full availability back, got %+v", avail)
	}

	if _, err := e.reservations.Fulfill(ctx, uuid.New()); !errors.Is(err, service.ErrReservationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// fulfilled + cancelled события
	if len(e.bus.closed) != 2 {
		t.Fatalf("expected 2 closed events, got %d", len(e.bus.closed))
	}
}

func TestReservation_ExpiredFulfillRejected(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 100, 0, false)

	res, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:  p.ID,
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		Quantity:   10,
		TTL:        time.Millisecond,
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	_, err = e.reservations.Fulfill(ctx, res.ID)
	if !errors.Is(err, service.ErrReservationExpired) {
		t.Fatalf("expected expired, got %v", err)
	}

	// Просроченный холд закрыт и больше не считается.
	got, err := e.repos.Reservations.GetByID(ctx, res.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.ReservationExpired {
		t.Fatalf("expected expired status, got %s", got.Status)
	}
	avail, _ := e.reservations.GetAvailableStock(ctx, p.ID, nil)
	if avail.Available != 100 {
		t.Fatalf("expired hold still counted: %+v", avail)
	}

	// Перевод в expired закоммичен: уборке забирать нечего,
	// и событие закрытия ушло один раз.
	if n, err := e.reservations.Sweep(ctx); err != nil || n != 0 {
		t.Fatalf("sweep after expired fulfill: n=%d err=%v", n, err)
	}
	var outcomes []string
	for _, ev := range e.bus.closed {
		outcomes = append(outcomes, ev.Outcome)
	}
	if len(outcomes) != 1 || outcomes[0] != "expired" {
		t.Fatalf("expected single expired event, got %v", outcomes)
	}
}

func TestReservation_Sweep(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 100, 0, false)

	if _, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:  p.ID,
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		Quantity:   10,
		TTL:        time.Millisecond,
	}); err != nil {
		t.Fatalf("short reserve: %v", err)
	}
	live, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:  p.ID,
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		Quantity:   20,
		TTL:        time.Hour,
	})
	if err != nil {
		t.Fatalf("long reserve: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	swept, err := e.reservations.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept, got %d", swept)
	}

	// Живой холд остаётся.
	got, _ := e.repos.Reservations.GetByID(ctx, live.ID)
	if got.Status != models.ReservationActive {
		t.Fatalf("live hold touched by sweep: %s", got.Status)
	}

	// Повторный свип ничего не находит.
	swept, err = e.reservations.Sweep(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if swept != 0 {
		t.Fatalf("expected 0 on repeat, got %d", swept)
	}

	var expiredEvents int
	for _, ev := range e.bus.closed {
		if ev.Outcome == "expired" {
			expiredEvents++
		}
	}
	if expiredEvents != 1 {
		t.Fatalf("expected one expired event, got %d", expiredEvents)
	}
}

func TestGetAvailableStock_PerWarehouse(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 0, 0, false)
	w1 := e.createWarehouse(t)
	w2 := e.createWarehouse(t)

	for _, step := range []struct {
		wh  uuid.UUID
		qty int32
	}{{w1.ID, 60}, {w2.ID, 40}} {
		wh := step.wh
		if _, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
			ProductID:   p.ID,
			Operation:   service.OpIncrement,
			Quantity:    step.qty,
			WarehouseID: &wh,
		}); err != nil {
			t.Fatalf("seed warehouse: %v", err)
		}
	}

	if _, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:   p.ID,
		WarehouseID: &w1.ID,
		OrderID:     uuid.New(),
		CustomerID:  uuid.New(),
		Quantity:    15,
	}); err != nil {
		t.Fatalf("reserve at w1: %v", err)
	}

	atW1, err := e.reservations.GetAvailableStock(ctx, p.ID, &w1.ID)
	if err != nil {
		t.Fatalf("available w1: %v", err)
	}
	if atW1.Total != 60 || atW1.Reserved != 15 || atW1.Available != 45 {
		t.Fatalf("w1 mismatch: %+v", atW1)
	}

	// Холд на W1 не влияет на W2.
	atW2, err := e.reservations.GetAvailableStock(ctx, p.ID, &w2.ID)
	if err != nil {
		t.Fatalf("available w2: %v", err)
	}
	if atW2.Total != 40 || atW2.Reserved != 0 || atW2.Available != 40 {
		t.Fatalf("w2 mismatch: %+v", atW2)
	}
}
