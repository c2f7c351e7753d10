package handlers

import (
	"net/http"
	"strconv"
	"time"

	"stock-service/internal/dto"
	"stock-service/internal/models"
	"stock-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StockHandler struct {
	stock        service.StockService
	reservations service.ReservationService
	log          *zap.Logger
}

func NewStockHandler(stock service.StockService, reservations service.ReservationService, log *zap.Logger) *StockHandler {
	return &StockHandler{stock: stock, reservations: reservations, log: log}
}

// Adjust godoc
// @Summary Ручная корректировка остатка
// @Tags inventory
// @Accept json
// @Produce json
// @Param productID path string true "ID товара"
// @Param adjust body dto.AdjustStockRequest true "Операция set/increment/decrement"
// @Success 200 {object} dto.StockSnapshotResponse
// @Router /v1/inventory/{productID}/adjust [post]
func (h *StockHandler) Adjust(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid product id"))
		return
	}

	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid adjust request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body"))
		return
	}

	snap, err := h.stock.AdjustInventory(c.Request.Context(), service.AdjustInput{
		ProductID:   productID,
		Operation:   service.AdjustOperation(req.Operation),
		Quantity:    req.Quantity,
		WarehouseID: req.WarehouseID,
		Reason:      req.Reason,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToStockSnapshotResponse(snap))
}

// Get godoc
// @Summary Текущий остаток товара со складской разбивкой
// @Tags inventory
// @Produce json
// @Param productID path string true "ID товара"
// @Success 200 {object} dto.StockSnapshotResponse
// @Router /v1/inventory/{productID} [get]
func (h *StockHandler) Get(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid product id"))
		return
	}

	snap, err := h.stock.GetStock(c.Request.Context(), productID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToStockSnapshotResponse(snap))
}

// History godoc
// @Summary История движений остатка
// @Tags inventory
// @Produce json
// @Param productID path string true "ID товара"
// @Success 200 {object} dto.StockHistoryResponse
// @Router /v1/inventory/{productID}/history [get]
func (h *StockHandler) History(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid product id"))
		return
	}

	f := service.HistoryFilter{
		ProductID: productID,
		Limit:     atoiDefault(c.Query("limit"), 50),
		Offset:    atoiDefault(c.Query("offset"), 0),
	}
	if v := c.Query("warehouse_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid warehouse_id"))
			return
		}
		f.WarehouseID = &id
	}
	if v := c.Query("change_type"); v != "" {
		ct := models.ChangeType(v)
		f.ChangeType = &ct
	}
	if v := c.Query("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid from timestamp"))
			return
		}
		f.From = &ts
	}
	if v := c.Query("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid to timestamp"))
			return
		}
		f.To = &ts
	}

	changes, total, err := h.stock.GetStockHistory(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToStockHistoryResponse(changes, total))
}

// Available godoc
// @Summary Доступный остаток с учётом активных резерваций
// @Tags inventory
// @Produce json
// @Param productID path string true "ID товара"
// @Success 200 {object} dto.AvailableStockResponse
// @Router /v1/inventory/{productID}/available [get]
func (h *StockHandler) Available(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid product id"))
		return
	}

	var warehouseID *uuid.UUID
	if v := c.Query("warehouse_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid warehouse_id"))
			return
		}
		warehouseID = &id
	}

	avail, err := h.reservations.GetAvailableStock(c.Request.Context(), productID, warehouseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.AvailableStockResponse{
		ProductID: avail.ProductID,
		Total:     avail.Total,
		Reserved:  avail.Reserved,
		Available: avail.Available,
	})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
