package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/config"
	"wordmint-backend/internal/shared"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobConfig
}

func NewScheduler(redisCfg config.RedisConfig, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		RedisOpt(redisCfg),
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

func (s *Scheduler) RegisterJobs() error {
	return s.registerReconcileMintsJob()
}

// ================================================
// Reconcile mint intents (default every 10 minutes)
// ================================================
// Sweep không có MintID: commit lại chain_confirmed intents, orphan pending_chain quá hạn.
func (s *Scheduler) registerReconcileMintsJob() error {
	payload, err := json.Marshal(shared.ReconcileMintsPayload{Reason: "scheduled"})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeReconcileMints, payload)

	_, err = s.scheduler.Register(
		s.jobConfig.ReconcileCron,
		task,
		asynq.Queue(shared.QueueCoin),
		asynq.MaxRetry(1), // lần quét sau sẽ nhặt lại
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		log.Error().Err(err).Str("cron", s.jobConfig.ReconcileCron).Msg("Failed to register ReconcileMints job")
		return err
	}

	log.Info().Str("cron", s.jobConfig.ReconcileCron).Msg("Registered ReconcileMints")
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
