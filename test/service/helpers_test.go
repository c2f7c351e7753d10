package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"stock-service/internal/migrate"
	"stock-service/internal/models"
	"stock-service/internal/repository"
	"stock-service/internal/service"
	"stock-service/pkg/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// recordingBus собирает опубликованные события для проверок.
type recordingBus struct {
	mu        sync.Mutex
	updated   []service.InventoryUpdatedEvent
	reserved  []service.StockReservedEvent
	closed    []service.ReservationClosedEvent
	transfers []service.TransferEvent
}

func (b *recordingBus) PublishInventoryUpdated(_ context.Context, e service.InventoryUpdatedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updated = append(b.updated, e)
	return nil
}

func (b *recordingBus) PublishStockReserved(_ context.Context, e service.StockReservedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reserved = append(b.reserved, e)
	return nil
}

func (b *recordingBus) PublishReservationClosed(_ context.Context, e service.ReservationClosedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, e)
	return nil
}

func (b *recordingBus) PublishTransferEvent(_ context.Context, e service.TransferEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transfers = append(b.transfers, e)
	return nil
}

type env struct {
	repos        *repository.Repository
	bus          *recordingBus
	stock        service.StockService
	reservations service.ReservationService
	transfers    service.TransferService
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestPostgres(t)
	if err := migrate.MigrateStockDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repos := repository.New(db)
	bus := &recordingBus{}
	stockSvc := service.NewStockService(repos, bus)
	return &env{
		repos:        repos,
		bus:          bus,
		stock:        stockSvc,
		reservations: service.NewReservationService(repos, bus),
		transfers:    service.NewTransferService(repos, stockSvc, bus),
	}
}

func (e *env) createProduct(t *testing.T, qty, threshold int32, backorder bool) *models.Product {
	t.Helper()
	p := &models.Product{
		SKU:               "SKU-" + uuid.NewString()[:8],
		Name:              "Test Product",
		Quantity:          qty,
		LowStockThreshold: threshold,
		AllowBackorder:    backorder,
		Availability:      models.ComputeAvailability(qty, threshold, nil, time.Now()),
	}
	if err := e.repos.Products.Create(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func (e *env) createWarehouse(t *testing.T) *models.Warehouse {
	t.Helper()
	w := &models.Warehouse{
		Code:     "WH-" + uuid.NewString()[:8],
		Name:     "Test Warehouse",
		IsActive: true,
	}
	if err := e.repos.Warehouses.Create(context.Background(), w); err != nil {
		t.Fatalf("create warehouse: %v", err)
	}
	return w
}

func (e *env) stockAt(t *testing.T, productID, warehouseID uuid.UUID) int32 {
	t.Helper()
	ws, err := e.repos.WarehouseStocks.Get(context.Background(), productID, warehouseID)
	if err != nil {
		t.Fatalf("warehouse stock: %v", err)
	}
	if ws == nil {
		return 0
	}
	return ws.Quantity
}

func (e *env) productQty(t *testing.T, productID uuid.UUID) int32 {
	t.Helper()
	p, err := e.repos.Products.GetByID(context.Background(), productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p == nil {
		t.Fatal("product disappeared")
	}
	return p.Quantity
}

// verifyReplay сверяет леджер с журналом: цепочка previous→new непрерывна,
// последний NewStock совпадает с текущим остатком. Возвращает число записей.
func (e *env) verifyReplay(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	changes, err := e.repos.StockChanges.ListForReplay(context.Background(), productID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	for i, ch := range changes {
		if ch.NewStock != ch.PreviousStock+ch.Quantity {
			t.Fatalf("journal arithmetic broken: %+v", ch)
		}
		if i > 0 && ch.PreviousStock != changes[i-1].NewStock {
			t.Fatalf("journal gap: entry %d starts at %d, previous ended at %d", i, ch.PreviousStock, changes[i-1].NewStock)
		}
	}
	if len(changes) > 0 {
		if last, qty := changes[len(changes)-1].NewStock, e.productQty(t, productID); last != qty {
			t.Fatalf("journal ends at %d, ledger says %d", last, qty)
		}
	}
	return len(changes)
}
