package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/domains/coin/model"
	coinService "wordmint-backend/internal/domains/coin/service"
	"wordmint-backend/internal/shared"
)

type MintReconciler interface {
	ReconcileOne(ctx context.Context, id uuid.UUID) (coinService.Action, error)
	Sweep(ctx context.Context) (coinService.SweepReport, error)
}

// ReconcileMintsHandler xử lý TypeReconcileMints: một intent cụ thể hoặc quét toàn bộ
type ReconcileMintsHandler struct {
	reconciler MintReconciler
}

func NewReconcileMintsHandler(reconciler MintReconciler) *ReconcileMintsHandler {
	return &ReconcileMintsHandler{reconciler: reconciler}
}

func (h *ReconcileMintsHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.ReconcileMintsPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			log.Error().Err(err).Msg("Failed to unmarshal ReconcileMints payload")
			return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
		}
	}

	if payload.MintID == "" {
		report, err := h.reconciler.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("sweep mints: %w", err)
		}
		log.Info().Interface("report", report).Msg("Mint sweep completed")
		return nil
	}

	id, err := uuid.Parse(payload.MintID)
	if err != nil {
		return fmt.Errorf("invalid mint id %q: %w", payload.MintID, asynq.SkipRetry)
	}

	action, err := h.reconciler.ReconcileOne(ctx, id)
	if errors.Is(err, model.ErrMintNotFound) {
		log.Warn().Str("mint_id", payload.MintID).Msg("Mint intent not found, dropping task")
		return fmt.Errorf("mint %s: %w", payload.MintID, asynq.SkipRetry)
	}
	if err != nil {
		// asynq retry với backoff; sweep định kỳ cũng sẽ nhặt lại
		log.Warn().Err(err).Str("mint_id", payload.MintID).Str("reason", payload.Reason).Msg("Mint reconcile will retry")
		return fmt.Errorf("reconcile mint: %w", err)
	}

	log.Info().Str("mint_id", payload.MintID).Str("action", string(action)).Msg("Mint reconciled")
	return nil
}
