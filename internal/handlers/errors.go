package handlers

import (
	"errors"
	"net/http"

	"stock-service/internal/dto"
	"stock-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError транслирует сентинелы сервисного слоя в HTTP-статусы:
// not found → 404, валидация → 400, конфликт состояния/остатка → 409,
// истёкшая резервация → 410, остальное → 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrWarehouseNotFound),
		errors.Is(err, service.ErrTransferNotFound),
		errors.Is(err, service.ErrReservationNotFound),
		errors.Is(err, service.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(err.Error()))
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidOperation),
		errors.Is(err, service.ErrSameWarehouse),
		errors.Is(err, service.ErrEmptyItems):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error()))
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrReservationNotActive),
		errors.Is(err, service.ErrVersionConflict):
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	case errors.Is(err, service.ErrReservationExpired):
		c.JSON(http.StatusGone, dto.NewGoneError(err.Error()))
	default:
		log.Error("Необработанная ошибка сервиса", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}
