package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-service/config"
	"stock-service/internal/consumer"
	"stock-service/internal/producer"
	"stock-service/internal/repository"
	"stock-service/internal/router"
	"stock-service/internal/service"
	"stock-service/pkg/database"
	"stock-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	bus := producer.NewKafkaEventBus(cfg.Kafka.Brokers, cfg.Kafka.TopicInventoryEvents, log)
	defer bus.Close()

	repos := repository.New(db)
	stockSvc := service.NewStockService(repos, bus)
	reservationSvc := service.NewReservationService(repos, bus)
	transferSvc := service.NewTransferService(repos, stockSvc, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orderConsumer := consumer.NewStockEventConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.TopicOrders, stockSvc, log)
	purchaseConsumer := consumer.NewStockEventConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.TopicPurchases, stockSvc, log)
	defer orderConsumer.Close()
	defer purchaseConsumer.Close()

	go func() {
		if err := orderConsumer.Run(ctx); err != nil {
			log.Error("order consumer stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := purchaseConsumer.Run(ctx); err != nil {
			log.Error("purchase consumer stopped", zap.Error(err))
		}
	}()

	// фоновая уборка истёкших резерваций
	go func() {
		ticker := time.NewTicker(cfg.ReservationSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := reservationSvc.Sweep(ctx)
				if err != nil {
					log.Error("reservation sweep", zap.Error(err))
					continue
				}
				if n > 0 {
					log.Info("Просроченные резервации освобождены", zap.Int("count", n))
				}
			}
		}
	}()

	r := router.Router(stockSvc, reservationSvc, transferSvc, log)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("Stock HTTP server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down Stock service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown", zap.Error(err))
	}
	log.Info("Stock service stopped gracefully")
}
