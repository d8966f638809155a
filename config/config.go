package config

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// Config holds everything main needs to assemble the storefront. Values
// come from the environment with local-dev defaults; a .env file is loaded
// when present.
type Config struct {
	ListenAddr string
	BackendURL string

	// SessionBackend picks where the session store lives: "file" or
	// "redis".
	SessionBackend string
	SessionFile    string
	RedisAddr      string

	KafkaBroker string
	OrderTopic  string

	// DetailDelay is the pause between creating an order header and
	// posting its line items.
	DetailDelay time.Duration

	// InitialURL is an optional deep link handed to the app at startup.
	InitialURL string

	TrackingBaseURL string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	return Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		BackendURL:      getEnv("BACKEND_URL", "http://localhost:5154"),
		SessionBackend:  getEnv("SESSION_BACKEND", "file"),
		SessionFile:     getEnv("SESSION_FILE", "session.json"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBroker:     os.Getenv("KAFKA_BROKER"),
		OrderTopic:      getEnv("ORDER_TOPIC", "storefront-orders"),
		DetailDelay:     getDuration("ORDER_DETAIL_DELAY", 500*time.Millisecond),
		InitialURL:      os.Getenv("INITIAL_URL"),
		TrackingBaseURL: getEnv("TRACKING_BASE_URL", "http://localhost:8080"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("ERROR: invalid duration for %s: %v", key, err)
		return defaultValue
	}
	return d
}

func MustInitRedis(addr string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	return client
}

func NewKafkaWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(broker),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}
