package service_test

import (
	"context"
	"errors"
	"testing"

	"stock-service/internal/models"
	"stock-service/internal/service"

	"github.com/google/uuid"
)

func TestAdjustInventory_Operations(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 100, 10, false)

	snap, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID: p.ID,
		Operation: service.OpDecrement,
		Quantity:  30,
		Reason:    "shrinkage",
	})
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if snap.Quantity != 70 {
		t.Fatalf("expected 70, got %d", snap.Quantity)
	}

	snap, err = e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID: p.ID,
		Operation: service.OpIncrement,
		Quantity:  5,
	})
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if snap.Quantity != 75 {
		t.Fatalf("expected 75, got %d", snap.Quantity)
	}

	snap, err = e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID: p.ID,
		Operation: service.OpSet,
		Quantity:  50,
	})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if snap.Quantity != 50 {
		t.Fatalf("expected 50, got %d", snap.Quantity)
	}

	if n := e.verifyReplay(t, p.ID); n != 3 {
		t.Fatalf("expected 3 journal entries, got %d", n)
	}

	changes, total, err := e.stock.GetStockHistory(ctx, service.HistoryFilter{ProductID: p.ID, Limit: 10})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 3 || len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", total)
	}
}

func TestAdjustInventory_Validation(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 10, 0, false)

	cases := []struct {
		name string
		in   service.AdjustInput
		want error
	}{
		{"zero increment", service.AdjustInput{ProductID: p.ID, Operation: service.OpIncrement, Quantity: 0}, service.ErrInvalidQuantity},
		{"negative set", service.AdjustInput{ProductID: p.ID, Operation: service.OpSet, Quantity: -1}, service.ErrInvalidQuantity},
		{"unknown op", service.AdjustInput{ProductID: p.ID, Operation: "divide", Quantity: 1}, service.ErrInvalidOperation},
		{"missing product", service.AdjustInput{ProductID: uuid.New(), Operation: service.OpIncrement, Quantity: 1}, service.ErrProductNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.stock.AdjustInventory(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAdjustInventory_NoNegativeStock(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 5, 0, false)

	_, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID: p.ID,
		Operation: service.OpDecrement,
		Quantity:  6,
	})
	var insufficient *service.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Requested != 6 || insufficient.Available != 5 {
		t.Fatalf("diagnostic mismatch: %+v", insufficient)
	}
	if !errors.Is(err, service.ErrInsufficientStock) {
		t.Fatal("must match ErrInsufficientStock sentinel")
	}

	// Остаток и журнал не тронуты.
	if qty := e.productQty(t, p.ID); qty != 5 {
		t.Fatalf("ledger mutated on failure: %d", qty)
	}
	if n := e.verifyReplay(t, p.ID); n != 0 {
		t.Fatalf("journal mutated on failure: %d entries", n)
	}
}

func TestAdjustInventory_BackorderAllowed(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 2, 0, true)

	snap, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID: p.ID,
		Operation: service.OpDecrement,
		Quantity:  5,
	})
	if err != nil {
		t.Fatalf("backorder decrement: %v", err)
	}
	if snap.Quantity != -3 {
		t.Fatalf("expected -3, got %d", snap.Quantity)
	}
	if snap.Availability != models.AvailabilityOutOfStock {
		t.Fatalf("expected out_of_stock, got %s", snap.Availability)
	}
}

func TestAdjustInventory_WarehouseSumInvariant(t *testing.T) {
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
			t.Fatalf("increment %s: %v", wh, err)
		}
	}

	if qty := e.productQty(t, p.ID); qty != 100 {
		t.Fatalf("total: expected 100, got %d", qty)
	}

	// Списание без склада раскладывается по строкам, сумма держится.
	snap, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID: p.ID,
		Operation: service.OpDecrement,
		Quantity:  70,
	})
	if err != nil {
		t.Fatalf("spread decrement: %v", err)
	}
	if snap.Quantity != 30 {
		t.Fatalf("total: expected 30, got %d", snap.Quantity)
	}

	var sum int32
	for _, ws := range snap.Warehouses {
		sum += ws.Quantity
	}
	if sum != snap.Quantity {
		t.Fatalf("sum invariant broken: total=%d breakdown=%d", snap.Quantity, sum)
	}
}

// Товар до первой складской операции живёт в односкладском режиме: остаток
// есть, строк разбивки нет. Первая операция со складом обязана приписать
// прежний остаток этому складу, а не затереть его суммой разбивки.
func TestAdjustInventory_SingleModeToWarehouse(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	w := e.createWarehouse(t)

	// Приход по закупке на товар с нераспределёнными 50.
	p := e.createProduct(t, 50, 0, false)
	if err := e.stock.ProcessPurchaseReceived(ctx, "evt-po-migrate", service.PurchaseEvent{
		PurchaseID: uuid.New(),
		Items:      []service.OrderLineItem{{ProductID: p.ID, WarehouseID: &w.ID, Quantity: 200}},
	}); err != nil {
		t.Fatalf("purchase received: %v", err)
	}
	if qty := e.productQty(t, p.ID); qty != 250 {
		t.Fatalf("total: expected 250, got %d", qty)
	}
	if qty := e.stockAt(t, p.ID, w.ID); qty != 250 {
		t.Fatalf("warehouse row: expected 250, got %d", qty)
	}
	changes, err := e.repos.StockChanges.ListForReplay(ctx, p.ID)
	if err != nil {
		t.Fatalf("replay list: %v", err)
	}
	if len(changes) != 1 || changes[0].PreviousStock != 50 || changes[0].NewStock != 250 {
		t.Fatalf("expected 50->250 journal entry, got %+v", changes)
	}

	// Инкремент со складом на односкладском товаре.
	p2 := e.createProduct(t, 50, 0, false)
	snap, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID:   p2.ID,
		Operation:   service.OpIncrement,
		Quantity:    10,
		WarehouseID: &w.ID,
	})
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if snap.Quantity != 60 {
		t.Fatalf("total: expected 60, got %d", snap.Quantity)
	}
	if qty := e.stockAt(t, p2.ID, w.ID); qty != 60 {
		t.Fatalf("warehouse row: expected 60, got %d", qty)
	}

	// Списание со складом тоже работает от прежнего остатка.
	p3 := e.createProduct(t, 50, 0, false)
	if _, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID:   p3.ID,
		Operation:   service.OpDecrement,
		Quantity:    20,
		WarehouseID: &w.ID,
	}); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if qty := e.productQty(t, p3.ID); qty != 30 {
		t.Fatalf("total: expected 30, got %d", qty)
	}

	// Set со складом выставляет и строку, и итог.
	p4 := e.createProduct(t, 50, 0, false)
	if _, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID:   p4.ID,
		Operation:   service.OpSet,
		Quantity:    80,
		WarehouseID: &w.ID,
	}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if qty := e.productQty(t, p4.ID); qty != 80 {
		t.Fatalf("total: expected 80, got %d", qty)
	}
	if qty := e.stockAt(t, p4.ID, w.ID); qty != 80 {
		t.Fatalf("warehouse row: expected 80, got %d", qty)
	}
}

func TestAdjustInventory_LowStockAlert(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 100, 10, false)

	if _, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID: p.ID,
		Operation: service.OpDecrement,
		Quantity:  92,
	}); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	alerts, total, err := e.stock.ListAlerts(ctx, service.AlertFilter{ProductID: &p.ID, OnlyUnsolved: true, Limit: 10})
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if total != 1 || alerts[0].Type != models.AlertLowStock {
		t.Fatalf("expected one low_stock alert, got total=%d %+v", total, alerts)
	}

	// Повторное пересечение порога не плодит дубликат low_stock.
	if _, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID: p.ID,
		Operation: service.OpDecrement,
		Quantity:  2,
	}); err != nil {
		t.Fatalf("second decrement: %v", err)
	}
	_, total, err = e.stock.ListAlerts(ctx, service.AlertFilter{ProductID: &p.ID, OnlyUnsolved: true, Limit: 10})
	if err != nil {
		t.Fatalf("alerts after second decrement: %v", err)
	}
	if total != 1 {
		t.Fatalf("unresolved low_stock duplicated: total=%d", total)
	}

	// Падение до нуля поднимает отдельный out_of_stock рядом с low_stock.
	if _, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID: p.ID,
		Operation: service.OpDecrement,
		Quantity:  6,
	}); err != nil {
		t.Fatalf("decrement to zero: %v", err)
	}

	alerts, total, err = e.stock.ListAlerts(ctx, service.AlertFilter{ProductID: &p.ID, OnlyUnsolved: true, Limit: 10})
	if err != nil {
		t.Fatalf("alerts after zero: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected low_stock + out_of_stock, got total=%d", total)
	}
	var outOfStock *models.Alert
	for i := range alerts {
		if alerts[i].Type == models.AlertOutOfStock {
			outOfStock = &alerts[i]
		}
	}
	if outOfStock == nil {
		t.Fatalf("out_of_stock alert missing: %+v", alerts)
	}

	resolved, err := e.stock.ResolveAlert(service.WithActor(ctx, "operator"), outOfStock.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.IsResolved || resolved.ResolvedBy == nil || *resolved.ResolvedBy != "operator" {
		t.Fatalf("resolve state mismatch: %+v", resolved)
	}

	// Повторный resolve идемпотентен.
	again, err := e.stock.ResolveAlert(ctx, outOfStock.ID)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if !again.IsResolved {
		t.Fatal("second resolve lost state")
	}
}

func TestProcessOrderCreated_DuplicateDelivery(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 100, 0, false)

	ev := service.OrderEvent{
		OrderID: uuid.New(),
		Items:   []service.OrderLineItem{{ProductID: p.ID, Quantity: 30}},
	}

	if err := e.stock.ProcessOrderCreated(ctx, "evt-dup-1", ev); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := e.stock.ProcessOrderCreated(ctx, "evt-dup-1", ev); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	if qty := e.productQty(t, p.ID); qty != 70 {
		t.Fatalf("duplicate applied twice: %d", qty)
	}
	if n := e.verifyReplay(t, p.ID); n != 1 {
		t.Fatalf("journal has duplicate entries: %d", n)
	}
}

func TestProcessOrderCreated_AtomicAcrossItems(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	ok := e.createProduct(t, 100, 0, false)
	short := e.createProduct(t, 1, 0, false)

	err := e.stock.ProcessOrderCreated(ctx, "evt-atomic-1", service.OrderEvent{
		OrderID: uuid.New(),
		Items: []service.OrderLineItem{
			{ProductID: ok.ID, Quantity: 10},
			{ProductID: short.ID, Quantity: 5},
		},
	})
	if !errors.Is(err, service.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// Первая позиция тоже откатилась.
	if qty := e.productQty(t, ok.ID); qty != 100 {
		t.Fatalf("partial application leaked: %d", qty)
	}

	// Идемпотентный ключ тоже откатился — следующая доставка применяется.
	seen, err := e.repos.ProcessedEvents.Seen(ctx, "evt-atomic-1")
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Fatal("failed event must not burn its idempotency key")
	}
}

func TestProcessOrderLifecycle_CancelAndReturn(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 50, 10, false)
	orderID := uuid.New()
	items := []service.OrderLineItem{{ProductID: p.ID, Quantity: 45}}

	if err := e.stock.ProcessOrderCreated(ctx, "evt-lc-1", service.OrderEvent{OrderID: orderID, Items: items}); err != nil {
		t.Fatalf("order created: %v", err)
	}
	if qty := e.productQty(t, p.ID); qty != 5 {
		t.Fatalf("after sale: %d", qty)
	}

	if err := e.stock.ProcessOrderCancelled(ctx, "evt-lc-2", service.OrderEvent{OrderID: orderID, Items: items}); err != nil {
		t.Fatalf("order cancelled: %v", err)
	}
	if qty := e.productQty(t, p.ID); qty != 50 {
		t.Fatalf("after cancel: %d", qty)
	}

	changes, _, err := e.stock.GetStockHistory(ctx, service.HistoryFilter{ProductID: p.ID, Limit: 10})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected sale + return entries, got %d", len(changes))
	}
	e.verifyReplay(t, p.ID)
}

func TestProcessOrderReturned_ForcesInStock(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 0, 10, false)

	if err := e.stock.ProcessOrderReturned(ctx, "evt-ret-1", service.OrderEvent{
		OrderID: uuid.New(),
		Items:   []service.OrderLineItem{{ProductID: p.ID, Quantity: 1}},
		Reason:  "changed mind",
	}); err != nil {
		t.Fatalf("order returned: %v", err)
	}

	got, err := e.stock.GetStock(ctx, p.ID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	// Возврат переводит товар в in_stock, минуя пороговую логику.
	if got.Availability != models.AvailabilityInStock {
		t.Fatalf("expected in_stock, got %s", got.Availability)
	}
	if got.Quantity != 1 {
		t.Fatalf("expected 1, got %d", got.Quantity)
	}
}

func TestProcessPurchaseReceived(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 0, 5, false)
	w := e.createWarehouse(t)
	supplierID := uuid.New()

	if err := e.stock.ProcessPurchaseReceived(ctx, "evt-po-1", service.PurchaseEvent{
		PurchaseID: uuid.New(),
		SupplierID: &supplierID,
		Items:      []service.OrderLineItem{{ProductID: p.ID, WarehouseID: &w.ID, Quantity: 200}},
	}); err != nil {
		t.Fatalf("purchase received: %v", err)
	}

	if qty := e.productQty(t, p.ID); qty != 200 {
		t.Fatalf("expected 200, got %d", qty)
	}
	if qty := e.stockAt(t, p.ID, w.ID); qty != 200 {
		t.Fatalf("warehouse row expected 200, got %d", qty)
	}

	changes, err := e.repos.StockChanges.ListForReplay(ctx, p.ID)
	if err != nil {
		t.Fatalf("replay list: %v", err)
	}
	if len(changes) != 1 || changes[0].ChangeType != models.ChangeRestock {
		t.Fatalf("expected one restock entry, got %+v", changes)
	}
}

func TestPipeline_PublishesInventoryUpdated(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 100, 0, false)

	if err := e.stock.ProcessOrderCreated(ctx, "evt-pub-1", service.OrderEvent{
		OrderID: uuid.New(),
		Items:   []service.OrderLineItem{{ProductID: p.ID, Quantity: 10}},
	}); err != nil {
		t.Fatalf("order created: %v", err)
	}

	if len(e.bus.updated) != 1 {
		t.Fatalf("expected one inventory.updated event, got %d", len(e.bus.updated))
	}
	ev := e.bus.updated[0]
	if ev.ProductID != p.ID || ev.Delta != -10 || ev.Quantity != 90 || ev.ChangeType != string(models.ChangeSale) {
		t.Fatalf("event mismatch: %+v", ev)
	}
}

func TestScenario_ReserveThenOrderPlaced(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 100, 10, false)
	orderID := uuid.New()

	// Холд на 30 под заказ O1 → available 70.
	if _, err := e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:  p.ID,
		OrderID:    orderID,
		CustomerID: uuid.New(),
		Quantity:   30,
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	avail, err := e.reservations.GetAvailableStock(ctx, p.ID, nil)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if avail.Available != 70 {
		t.Fatalf("expected available 70, got %d", avail.Available)
	}

	// Событие заказа списывает леджер и закрывает холд в той же транзакции.
	if err := e.stock.ProcessOrderCreated(ctx, "evt-sc-1", service.OrderEvent{
		OrderID: orderID,
		Items:   []service.OrderLineItem{{ProductID: p.ID, Quantity: 30}},
	}); err != nil {
		t.Fatalf("order placed: %v", err)
	}

	if qty := e.productQty(t, p.ID); qty != 70 {
		t.Fatalf("ledger: expected 70, got %d", qty)
	}

	// Холд не должен дальше занижать available: 70 доступно целиком.
	avail, err = e.reservations.GetAvailableStock(ctx, p.ID, nil)
	if err != nil {
		t.Fatalf("available after sale: %v", err)
	}
	if avail.Available != 70 || avail.Reserved != 0 {
		t.Fatalf("reservation double counts: %+v", avail)
	}

	// Резерв на 80 при available 70 отклоняется.
	_, err = e.reservations.Reserve(ctx, service.ReserveInput{
		ProductID:  p.ID,
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
		Quantity:   80,
	})
	if !errors.Is(err, service.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestGetStockHistory_Filters(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.createProduct(t, 100, 0, false)
	w := e.createWarehouse(t)

	if _, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID:   p.ID,
		Operation:   service.OpIncrement,
		Quantity:    10,
		WarehouseID: &w.ID,
	}); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if _, err := e.stock.AdjustInventory(ctx, service.AdjustInput{
		ProductID: p.ID,
		Operation: service.OpDecrement,
		Quantity:  5,
	}); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	byWarehouse, total, err := e.stock.GetStockHistory(ctx, service.HistoryFilter{ProductID: p.ID, WarehouseID: &w.ID, Limit: 10})
	if err != nil {
		t.Fatalf("history by warehouse: %v", err)
	}
	if total != 1 || len(byWarehouse) != 1 {
		t.Fatalf("warehouse filter: expected 1, got %d", total)
	}

	_, _, err = e.stock.GetStockHistory(ctx, service.HistoryFilter{ProductID: uuid.New()})
	if !errors.Is(err, service.ErrProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
}
