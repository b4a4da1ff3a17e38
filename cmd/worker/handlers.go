package main

import (
	"github.com/hibiken/asynq"

	coinJob "wordmint-backend/internal/domains/coin/job"
	"wordmint-backend/internal/shared"
	"wordmint-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	reconcileMints *coinJob.ReconcileMintsHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		reconcileMints: coinJob.NewReconcileMintsHandler(c.Reconciler),
	}
}

// RegisterHandlers registers all handlers with the mux
func (r *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeReconcileMints, r.reconcileMints.ProcessTask)
}
