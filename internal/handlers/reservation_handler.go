package handlers

import (
	"net/http"
	"time"

	"stock-service/internal/dto"
	"stock-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	reservations service.ReservationService
	log          *zap.Logger
}

func NewReservationHandler(reservations service.ReservationService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, log: log}
}

// Create godoc
// @Summary Мягкий холд остатка под заказ
// @Tags reservations
// @Accept json
// @Produce json
// @Param reserve body dto.CreateReservationRequest true "Параметры резервации"
// @Success 201 {object} dto.ReservationResponse
// @Router /v1/reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	var req dto.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid reservation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body"))
		return
	}

	res, err := h.reservations.Reserve(c.Request.Context(), service.ReserveInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		OrderID:     req.OrderID,
		CustomerID:  req.CustomerID,
		Quantity:    req.Quantity,
		TTL:         time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToReservationResponse(res))
}

// Fulfill godoc
// @Summary Закрытие резервации исполнением
// @Tags reservations
// @Produce json
// @Param id path string true "ID резервации"
// @Success 200 {object} dto.ReservationResponse
// @Router /v1/reservations/{id}/fulfill [post]
func (h *ReservationHandler) Fulfill(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid reservation id"))
		return
	}

	res, err := h.reservations.Fulfill(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToReservationResponse(res))
}

// Cancel godoc
// @Summary Отмена резервации
// @Tags reservations
// @Accept json
// @Produce json
// @Param id path string true "ID резервации"
// @Param cancel body dto.CancelReservationRequest false "Причина отмены"
// @Success 200 {object} dto.ReservationResponse
// @Router /v1/reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid reservation id"))
		return
	}

	var req dto.CancelReservationRequest
	_ = c.ShouldBindJSON(&req) // тело опционально

	res, err := h.reservations.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToReservationResponse(res))
}
