package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/config"
	"wordmint-backend/internal/shared"
)

// RedisOpt builds the asynq connection option from the redis config.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Host, Password: cfg.Password, DB: cfg.DB}
}

// Client enqueue tasks cho worker
type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}
}

// EnqueueReconcile đẩy task reconcile một mint intent.
// Cùng MintID chỉ có một task đang chờ; task trùng bị bỏ qua.
func (c *Client) EnqueueReconcile(ctx context.Context, payload shared.ReconcileMintsPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal reconcile payload: %w", err)
	}

	opts := []asynq.Option{
		asynq.Queue(shared.QueueCoin),
		asynq.MaxRetry(5),
		asynq.ProcessIn(30 * time.Second),
		asynq.Timeout(2 * time.Minute),
	}
	if payload.MintID != "" {
		opts = append(opts, asynq.TaskID("reconcile:"+payload.MintID))
	}

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(shared.TypeReconcileMints, raw), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		log.Debug().Str("mint_id", payload.MintID).Msg("reconcile task already queued")
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue reconcile: %w", err)
	}

	log.Info().Str("task_id", info.ID).Str("mint_id", payload.MintID).Str("reason", payload.Reason).Msg("reconcile task enqueued")
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
