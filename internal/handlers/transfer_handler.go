package handlers

import (
	"net/http"

	"stock-service/internal/dto"
	"stock-service/internal/models"
	"stock-service/internal/repository"
	"stock-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransferHandler struct {
	transfers service.TransferService
	log       *zap.Logger
}

func NewTransferHandler(transfers service.TransferService, log *zap.Logger) *TransferHandler {
	return &TransferHandler{transfers: transfers, log: log}
}

// Create godoc
// @Summary Создание перемещения между складами
// @Tags transfers
// @Accept json
// @Produce json
// @Param transfer body dto.CreateTransferRequest true "Параметры перемещения"
// @Success 201 {object} dto.TransferResponse
// @Router /v1/transfers [post]
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid transfer request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body"))
		return
	}

	in := service.CreateTransferInput{
		SourceWarehouseID:      req.SourceWarehouseID,
		DestinationWarehouseID: req.DestinationWarehouseID,
		Notes:                  req.Notes,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.TransferItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	t, err := h.transfers.CreateTransfer(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTransferResponse(t))
}

// Get godoc
// @Summary Перемещение по ID
// @Tags transfers
// @Produce json
// @Param id path string true "ID перемещения"
// @Success 200 {object} dto.TransferResponse
// @Router /v1/transfers/{id} [get]
func (h *TransferHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid transfer id"))
		return
	}

	t, err := h.transfers.GetTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTransferResponse(t))
}

// List godoc
// @Summary Список перемещений
// @Tags transfers
// @Produce json
// @Success 200 {object} dto.TransferListResponse
// @Router /v1/transfers [get]
func (h *TransferHandler) List(c *gin.Context) {
	f := repository.TransferListFilter{
		Limit:  atoiDefault(c.Query("limit"), 50),
		Offset: atoiDefault(c.Query("offset"), 0),
	}
	if v := c.Query("status"); v != "" {
		st := models.TransferStatus(v)
		f.Status = &st
	}
	if v := c.Query("warehouse_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid warehouse_id"))
			return
		}
		f.WarehouseID = &id
	}

	transfers, total, err := h.transfers.ListTransfers(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := dto.TransferListResponse{Items: []dto.TransferResponse{}, Total: total}
	for i := range transfers {
		resp.Items = append(resp.Items, dto.ToTransferResponse(&transfers[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Approve godoc
// @Summary Подтверждение перемещения (списывает остаток с источника)
// @Tags transfers
// @Accept json
// @Produce json
// @Param id path string true "ID перемещения"
// @Param approve body dto.ApproveTransferRequest false "Трек-номер"
// @Success 200 {object} dto.TransferResponse
// @Router /v1/transfers/{id}/approve [post]
func (h *TransferHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid transfer id"))
		return
	}

	var req dto.ApproveTransferRequest
	_ = c.ShouldBindJSON(&req)

	t, err := h.transfers.ApproveTransfer(c.Request.Context(), id, req.TrackingNumber)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTransferResponse(t))
}

// Dispatch godoc
// @Summary Отправка подтверждённого перемещения в путь
// @Tags transfers
// @Accept json
// @Produce json
// @Param id path string true "ID перемещения"
// @Param dispatch body dto.DispatchTransferRequest false "Трек-номер"
// @Success 200 {object} dto.TransferResponse
// @Router /v1/transfers/{id}/dispatch [post]
func (h *TransferHandler) Dispatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid transfer id"))
		return
	}

	var req dto.DispatchTransferRequest
	_ = c.ShouldBindJSON(&req)

	t, err := h.transfers.DispatchTransfer(c.Request.Context(), id, req.TrackingNumber)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTransferResponse(t))
}

// Complete godoc
// @Summary Завершение перемещения (зачисляет остаток на склад назначения)
// @Tags transfers
// @Produce json
// @Param id path string true "ID перемещения"
// @Success 200 {object} dto.TransferResponse
// @Router /v1/transfers/{id}/complete [post]
func (h *TransferHandler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid transfer id"))
		return
	}

	t, err := h.transfers.CompleteTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTransferResponse(t))
}

// Cancel godoc
// @Summary Отмена перемещения (возвращает списанный остаток)
// @Tags transfers
// @Accept json
// @Produce json
// @Param id path string true "ID перемещения"
// @Param cancel body dto.CancelTransferRequest false "Причина отмены"
// @Success 200 {object} dto.TransferResponse
// @Router /v1/transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid transfer id"))
		return
	}

	var req dto.CancelTransferRequest
	_ = c.ShouldBindJSON(&req)

	t, err := h.transfers.CancelTransfer(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTransferResponse(t))
}
