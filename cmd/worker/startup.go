package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"wordmint-backend/pkg/container"
)

const healthAddr = ":9999"

// startServices kiểm tra dependencies rồi mở health/metrics endpoint
func startServices(c *container.Container) error {
	log.Info().Msg("============================================")
	log.Info().Msg("🚀 Wordmint Worker Starting...")
	log.Info().Msg("============================================")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// worker cần DB để commit và Redis để nhận task
	if err := c.DB.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Redis.HealthCheck(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	log.Info().Msg("✓ Database and Redis reachable")

	go startHealthCheckServer(c)
	return nil
}

func startHealthCheckServer(c *container.Container) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		deps := c.HealthCheck(ctx)
		status := http.StatusOK
		if deps["database"] != "UP" || deps["redis"] != "UP" {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":       http.StatusText(status),
			"service":      "wordmint-worker",
			"dependencies": deps,
		})
	})

	log.Info().Str("addr", healthAddr).Msg("[Health] Starting health check server")
	srv := &http.Server{Addr: healthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Error().Err(err).Msg("[Health] Failed to start")
	}
}
