package dto

import (
	"time"

	"stock-service/internal/models"
	"stock-service/internal/service"

	"github.com/google/uuid"
)

type AdjustStockRequest struct {
	Operation   string     `json:"operation" binding:"required,oneof=set increment decrement"`
	Quantity    int32      `json:"quantity"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	Reason      string     `json:"reason"`
}

type WarehouseStockResponse struct {
	WarehouseID       uuid.UUID `json:"warehouse_id"`
	Quantity          int32     `json:"quantity"`
	LowStockThreshold int32     `json:"low_stock_threshold"`
}

type StockSnapshotResponse struct {
	ProductID    uuid.UUID                `json:"product_id"`
	Quantity     int32                    `json:"quantity"`
	Availability string                   `json:"availability"`
	Warehouses   []WarehouseStockResponse `json:"warehouses,omitempty"`
}

func ToStockSnapshotResponse(s *service.StockSnapshot) StockSnapshotResponse {
	resp := StockSnapshotResponse{
		ProductID:    s.ProductID,
		Quantity:     s.Quantity,
		Availability: string(s.Availability),
	}
	for _, ws := range s.Warehouses {
		resp.Warehouses = append(resp.Warehouses, WarehouseStockResponse{
			WarehouseID:       ws.WarehouseID,
			Quantity:          ws.Quantity,
			LowStockThreshold: ws.LowStockThreshold,
		})
	}
	return resp
}

type StockChangeResponse struct {
	ID            uuid.UUID  `json:"id"`
	ProductID     uuid.UUID  `json:"product_id"`
	WarehouseID   *uuid.UUID `json:"warehouse_id,omitempty"`
	ChangeType    string     `json:"change_type"`
	Quantity      int32      `json:"quantity"`
	PreviousStock int32      `json:"previous_stock"`
	NewStock      int32      `json:"new_stock"`
	Reason        string     `json:"reason,omitempty"`
	ReferenceID   *uuid.UUID `json:"reference_id,omitempty"`
	Actor         string     `json:"actor,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type StockHistoryResponse struct {
	Items []StockChangeResponse `json:"items"`
	Total int64                 `json:"total"`
}

func ToStockHistoryResponse(changes []models.StockChange, total int64) StockHistoryResponse {
	resp := StockHistoryResponse{Items: []StockChangeResponse{}, Total: total}
	for _, ch := range changes {
		resp.Items = append(resp.Items, StockChangeResponse{
			ID:            ch.ID,
			ProductID:     ch.ProductID,
			WarehouseID:   ch.WarehouseID,
			ChangeType:    string(ch.ChangeType),
			Quantity:      ch.Quantity,
			PreviousStock: ch.PreviousStock,
			NewStock:      ch.NewStock,
			Reason:        ch.Reason,
			ReferenceID:   ch.ReferenceID,
			Actor:         ch.Actor,
			CreatedAt:     ch.CreatedAt,
		})
	}
	return resp
}

type AvailableStockResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Total     int32     `json:"total"`
	Reserved  int32     `json:"reserved"`
	Available int32     `json:"available"`
}

type CreateReservationRequest struct {
	ProductID   uuid.UUID  `json:"product_id" binding:"required"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	OrderID     uuid.UUID  `json:"order_id" binding:"required"`
	CustomerID  uuid.UUID  `json:"customer_id" binding:"required"`
	Quantity    int32      `json:"quantity" binding:"required,gt=0"`
	TTLSeconds  int64      `json:"ttl_seconds"`
}

type CancelReservationRequest struct {
	Reason string `json:"reason"`
}

type ReservationResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   uuid.UUID  `json:"product_id"`
	WarehouseID *uuid.UUID `json:"warehouse_id,omitempty"`
	OrderID     uuid.UUID  `json:"order_id"`
	CustomerID  uuid.UUID  `json:"customer_id"`
	Quantity    int32      `json:"quantity"`
	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func ToReservationResponse(r *models.StockReservation) ReservationResponse {
	return ReservationResponse{
		ID:          r.ID,
		ProductID:   r.ProductID,
		WarehouseID: r.WarehouseID,
		OrderID:     r.OrderID,
		CustomerID:  r.CustomerID,
		Quantity:    r.Quantity,
		Status:      string(r.Status),
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
	}
}

type TransferItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int32     `json:"quantity" binding:"required,gt=0"`
}

type CreateTransferRequest struct {
	SourceWarehouseID      uuid.UUID             `json:"source_warehouse_id" binding:"required"`
	DestinationWarehouseID uuid.UUID             `json:"destination_warehouse_id" binding:"required"`
	Items                  []TransferItemRequest `json:"items" binding:"required,dive"`
	Notes                  string                `json:"notes"`
}

type ApproveTransferRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

type DispatchTransferRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

type CancelTransferRequest struct {
	Reason string `json:"reason"`
}

type TransferItemResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
}

type TransferResponse struct {
	ID                     uuid.UUID              `json:"id"`
	TransferNumber         string                 `json:"transfer_number"`
	SourceWarehouseID      uuid.UUID              `json:"source_warehouse_id"`
	DestinationWarehouseID uuid.UUID              `json:"destination_warehouse_id"`
	Status                 string                 `json:"status"`
	InitiatedBy            string                 `json:"initiated_by"`
	ApprovedBy             *string                `json:"approved_by,omitempty"`
	TrackingNumber         string                 `json:"tracking_number,omitempty"`
	Notes                  string                 `json:"notes,omitempty"`
	Items                  []TransferItemResponse `json:"items"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

func ToTransferResponse(t *models.StockTransfer) TransferResponse {
	resp := TransferResponse{
		ID:                     t.ID,
		TransferNumber:         t.TransferNumber,
		SourceWarehouseID:      t.SourceWarehouseID,
		DestinationWarehouseID: t.DestinationWarehouseID,
		Status:                 string(t.Status),
		InitiatedBy:            t.InitiatedBy,
		ApprovedBy:             t.ApprovedBy,
		TrackingNumber:         t.TrackingNumber,
		Notes:                  t.Notes,
		Items:                  []TransferItemResponse{},
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
	}
	for _, it := range t.Items {
		resp.Items = append(resp.Items, TransferItemResponse{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return resp
}

type TransferListResponse struct {
	Items []TransferResponse `json:"items"`
	Total int64              `json:"total"`
}

type AlertResponse struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	ProductID  uuid.UUID  `json:"product_id"`
	Threshold  int32      `json:"threshold"`
	Message    string     `json:"message,omitempty"`
	IsResolved bool       `json:"is_resolved"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func ToAlertResponse(a *models.Alert) AlertResponse {
	return AlertResponse{
		ID:         a.ID,
		Type:       string(a.Type),
		ProductID:  a.ProductID,
		Threshold:  a.Threshold,
		Message:    a.Message,
		IsResolved: a.IsResolved,
		ResolvedBy: a.ResolvedBy,
		ResolvedAt: a.ResolvedAt,
		CreatedAt:  a.CreatedAt,
	}
}

type AlertListResponse struct {
	Items []AlertResponse `json:"items"`
	Total int64           `json:"total"`
}
