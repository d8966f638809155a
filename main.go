package main

import (
	"context"
	"net/http"
	"time"

	"balama-storefront/config"
	"balama-storefront/internal/api/http"
	"balama-storefront/internal/backend"
	"balama-storefront/internal/nav"
	"balama-storefront/internal/service"
	"balama-storefront/internal/session"
	"balama-storefront/internal/storage"
)

func main() {
	cfg := config.Load()

	store := newStore(cfg)

	api := backend.NewClient(cfg.BackendURL, &http.Client{Timeout: 10 * time.Second}, store)

	sessions := session.NewManager(store, api)
	sessions.Restore(context.Background())

	var publisher service.EventPublisher
	if cfg.KafkaBroker != "" {
		publisher = service.NewKafkaPublisher(config.NewKafkaWriter(cfg.KafkaBroker, cfg.OrderTopic))
	}

	shop := service.NewStorefront(sessions, api, publisher, service.NewTrackingQRGenerator(cfg.TrackingBaseURL))
	shop.DetailDelay = cfg.DetailDelay

	dispatcher := nav.NewDispatcher()
	dispatcher.SetReady()
	if cfg.InitialURL != "" {
		nav.HandleDeepLink(dispatcher, cfg.InitialURL)
	}

	handler := httpapi.NewHandler(sessions, shop, dispatcher)

	httpapi.StartServer(cfg.ListenAddr, httpapi.NewRouter(handler))
}

func newStore(cfg config.Config) storage.KV {
	if cfg.SessionBackend == "redis" {
		return &storage.RedisStore{
			Client: config.MustInitRedis(cfg.RedisAddr),
			Prefix: "storefront:",
		}
	}
	return storage.NewFileStore(cfg.SessionFile)
}
