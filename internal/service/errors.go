package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrWarehouseNotFound   = errors.New("warehouse not found")
	ErrTransferNotFound    = errors.New("transfer not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAlertNotFound       = errors.New("alert not found")

	ErrReservationNotActive = errors.New("reservation is not active")
	ErrReservationExpired   = errors.New("reservation expired")

	ErrInvalidTransition = errors.New("invalid transfer transition")
	ErrSameWarehouse     = errors.New("source and destination warehouse must differ")
	ErrEmptyItems        = errors.New("transfer items empty")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidOperation  = errors.New("unknown adjust operation")

	// ErrInsufficientStock — цель для errors.Is; сам по себе не возвращается,
	// наружу уходит InsufficientStockError с диагностикой.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrVersionConflict — конкурентная мутация успела раньше (optimistic lock).
	ErrVersionConflict = errors.New("ledger version conflict")
)

type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int32
	Available int32
	Total     int32
	Reserved  int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested=%d available=%d total=%d reserved=%d",
		e.ProductID, e.Requested, e.Available, e.Total, e.Reserved)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }
