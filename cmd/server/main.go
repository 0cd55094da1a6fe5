package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/safiridev/bus-tracking/internal/config"
	"github.com/safiridev/bus-tracking/internal/db"
	"github.com/safiridev/bus-tracking/internal/handlers"
	"github.com/safiridev/bus-tracking/internal/hub"
	"github.com/safiridev/bus-tracking/internal/metrics"
	"github.com/safiridev/bus-tracking/internal/mqtt"
	"github.com/safiridev/bus-tracking/internal/ors"
	"github.com/safiridev/bus-tracking/internal/routes"
	"github.com/safiridev/bus-tracking/internal/sim"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	client, err := db.Connect(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	log.Info("Connected to MongoDB")
	store := &db.MongoBusStore{Collection: client.Database(cfg.MongoDB).Collection("buses")}

	catalog := routes.Default()
	provider := ors.NewClient(cfg.ORSAPIKey, cfg.ORSTimeout)
	broadcast := hub.New()

	sinks := []sim.EventSink{broadcast}
	if cfg.MQTTBrokerURL != "" {
		bridge, err := mqtt.NewPublisher(cfg.MQTTBrokerURL, "bus-tracking-server", cfg.MQTTTopic)
		if err != nil {
			log.WithError(err).Warn("MQTT bridge unavailable, continuing without it")
		} else {
			defer bridge.Close()
			sinks = append(sinks, bridge)
		}
	}

	engine := sim.New(store, catalog, provider, cfg.TickInterval, sinks...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go engine.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/api/buses", handlers.WithCORS(http.HandlerFunc(handlers.NewBusHandler(store).List)))
	mux.HandleFunc("/ws", handlers.NewWSHandler(store, broadcast).Serve)
	mux.HandleFunc("/healthz", handlers.Health)
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP shutdown error")
		}
	}()

	log.WithField("port", cfg.Port).Info("Server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("HTTP server failed")
	}

	disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(disconnectCtx); err != nil {
		log.WithError(err).Warn("Mongo disconnect error")
	}
	log.Info("Server stopped")
}
