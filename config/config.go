package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"stock-service/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	Port  string
	DB    DB
	Kafka Kafka

	ReservationSweepInterval time.Duration
}

type DB struct {
	database.Config
}

type Kafka struct {
	Brokers              []string
	TopicOrders          string
	TopicPurchases       string
	TopicInventoryEvents string
	GroupID              string
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port: getEnv("APP_PORT", log),
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnv("DB_SSLMODE", log),
			},
		},
		Kafka: Kafka{
			Brokers:              splitAndTrim(getEnv("KAFKA_BROKERS", log)),
			TopicOrders:          getEnv("KAFKA_TOPIC_ORDERS", log),
			TopicPurchases:       getEnv("KAFKA_TOPIC_PURCHASES", log),
			TopicInventoryEvents: getEnv("KAFKA_TOPIC_INVENTORY_EVENTS", log),
			GroupID:              getEnv("KAFKA_GROUP_ID", log),
		},
		ReservationSweepInterval: time.Duration(atoiDefault(os.Getenv("RESERVATION_SWEEP_INTERVAL"), 60)) * time.Second,
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
