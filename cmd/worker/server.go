package main

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/infrastructure/queue"
	"wordmint-backend/internal/shared"
	"wordmint-backend/pkg/container"
)

type asynqServer struct {
	*asynq.Server
}

func setupAsynqServer(c *container.Container, handlers *HandlerRegistry) *asynqServer {
	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	concurrency := c.Config.Job.Concurrency
	if concurrency < 1 {
		concurrency = 5
	}

	srv := asynq.NewServer(
		queue.RedisOpt(c.Config.Redis),
		asynq.Config{
			Queues: map[string]int{
				shared.QueueCritical: 6,
				shared.QueueCoin:     3,
				shared.QueueDefault:  1,
			},
			Concurrency:     concurrency,
			ShutdownTimeout: 30 * time.Second,
			// backoff: 30s, 1m, 2m, 4m... tối đa 30m
			RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
				d := 30 * time.Second << uint(n)
				if d > 30*time.Minute || d <= 0 {
					d = 30 * time.Minute
				}
				return d
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				log.Error().Err(err).Str("type", task.Type()).Int("retry", retried).Int("max_retry", maxRetry).Msg("[Asynq] Task failed")
			}),
		},
	)

	go func() {
		log.Info().Int("concurrency", concurrency).Msg("[Worker] Starting...")
		if err := srv.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("[Worker] Failed")
		}
	}()

	return &asynqServer{Server: srv}
}

func (s *asynqServer) Shutdown() {
	log.Info().Msg("[Worker] Shutting down (waiting max 30s)...")
	s.Server.Shutdown()
	log.Info().Msg("[Worker] Gracefully stopped")
}
