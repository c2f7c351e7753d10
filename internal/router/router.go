package router

import (
	"strings"

	"stock-service/internal/handlers"
	"stock-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// actorMiddleware кладёт X-Actor в контекст запроса; без заголовка сервис
// пишет actor="system" в журнал движений.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := strings.TrimSpace(c.GetHeader("X-Actor")); actor != "" {
			c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), actor))
		}
		c.Next()
	}
}

func Router(stock service.StockService, reservations service.ReservationService, transfers service.TransferService, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Actor"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	r.Use(actorMiddleware())

	stockHandler := handlers.NewStockHandler(stock, reservations, log)
	reservationHandler := handlers.NewReservationHandler(reservations, log)
	transferHandler := handlers.NewTransferHandler(transfers, log)
	alertHandler := handlers.NewAlertHandler(stock, log)

	v1 := r.Group("/v1")
	{
		inventory := v1.Group("/inventory")
		{
			inventory.POST("/:productID/adjust", stockHandler.Adjust)
			inventory.GET("/:productID", stockHandler.Get)
			inventory.GET("/:productID/history", stockHandler.History)
			inventory.GET("/:productID/available", stockHandler.Available)
		}

		reservationsGroup := v1.Group("/reservations")
		{
			reservationsGroup.POST("", reservationHandler.Create)
			reservationsGroup.POST("/:id/fulfill", reservationHandler.Fulfill)
			reservationsGroup.POST("/:id/cancel", reservationHandler.Cancel)
		}

		transfersGroup := v1.Group("/transfers")
		{
			transfersGroup.POST("", transferHandler.Create)
			transfersGroup.GET("", transferHandler.List)
			transfersGroup.GET("/:id", transferHandler.Get)
			transfersGroup.POST("/:id/approve", transferHandler.Approve)
			transfersGroup.POST("/:id/dispatch", transferHandler.Dispatch)
			transfersGroup.POST("/:id/complete", transferHandler.Complete)
			transfersGroup.POST("/:id/cancel", transferHandler.Cancel)
		}

		alerts := v1.Group("/alerts")
		{
			alerts.GET("", alertHandler.List)
			alerts.POST("/:id/resolve", alertHandler.Resolve)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}
