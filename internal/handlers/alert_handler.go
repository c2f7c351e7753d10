package handlers

import (
	"net/http"

	"stock-service/internal/dto"
	"stock-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AlertHandler struct {
	stock service.StockService
	log   *zap.Logger
}

func NewAlertHandler(stock service.StockService, log *zap.Logger) *AlertHandler {
	return &AlertHandler{stock: stock, log: log}
}

// List godoc
// @Summary Список алертов по остаткам
// @Tags alerts
// @Produce json
// @Success 200 {object} dto.AlertListResponse
// @Router /v1/alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	f := service.AlertFilter{
		OnlyUnsolved: c.Query("unresolved") == "true",
		Limit:        atoiDefault(c.Query("limit"), 50),
		Offset:       atoiDefault(c.Query("offset"), 0),
	}
	if v := c.Query("product_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid product_id"))
			return
		}
		f.ProductID = &id
	}

	alerts, total, err := h.stock.ListAlerts(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := dto.AlertListResponse{Items: []dto.AlertResponse{}, Total: total}
	for i := range alerts {
		resp.Items = append(resp.Items, dto.ToAlertResponse(&alerts[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Resolve godoc
// @Summary Ручное закрытие алерта
// @Tags alerts
// @Produce json
// @Param id path string true "ID алерта"
// @Success 200 {object} dto.AlertResponse
// @Router /v1/alerts/{id}/resolve [post]
func (h *AlertHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid alert id"))
		return
	}

	alert, err := h.stock.ResolveAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAlertResponse(alert))
}
