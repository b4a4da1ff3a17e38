package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/domains/coin/model"
	"wordmint-backend/internal/domains/coin/repository"
	usermodel "wordmint-backend/internal/domains/user/model"
	userrepo "wordmint-backend/internal/domains/user/repository"
	"wordmint-backend/internal/shared"
	"wordmint-backend/internal/shared/session"
	"wordmint-backend/pkg/cache"
	"wordmint-backend/pkg/metrics"
)

// ReconcileEnqueuer đẩy task reconcile sau khi commit thất bại
type ReconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context, payload shared.ReconcileMintsPayload) error
}

type WorkflowConfig struct {
	MinWords              int
	ImageURI              string
	FallbackOnUnready     bool
	FallbackOnDeployError bool
	CreateLockTTL         time.Duration
}

type WorkflowDeps struct {
	Users     userrepo.Repository
	Writings  repository.WritingRepository
	Mints     repository.MintRepository
	Locks     cache.Cache // optional
	Publisher *Publisher
	Gate      *ReadinessGate
	Deployer  *Deployer
	Simulator *Simulator
	Enqueuer  ReconcileEnqueuer // optional
}

// Workflow chạy toàn bộ chuỗi: validate -> publish -> mint -> commit.
type Workflow struct {
	WorkflowDeps
	cfg WorkflowConfig
	now func() time.Time
}

func NewWorkflow(deps WorkflowDeps, cfg WorkflowConfig) *Workflow {
	if cfg.MinWords < 1 {
		cfg.MinWords = model.MinCreationWords
	}
	if cfg.CreateLockTTL <= 0 {
		cfg.CreateLockTTL = 3 * time.Minute
	}
	return &Workflow{WorkflowDeps: deps, cfg: cfg, now: time.Now}
}

// CreateCoin mints a coin for today's writing and records it.
// The session is the caller's identity; wallet is the account paying for the mint.
func (w *Workflow) CreateCoin(ctx context.Context, sess session.Session, wallet WalletSession, req model.CreateCoinRequest) (*model.CreateCoinResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewInvalidSubmission(err)
	}

	wordCount := model.CountWords(req.Content)
	if wordCount < w.cfg.MinWords {
		return nil, model.NewBelowMinWords(wordCount, w.cfg.MinWords)
	}

	// 1. Author aggregate
	author, err := w.loadAuthor(ctx, sess)
	if err != nil {
		return nil, err
	}

	now := w.now().UTC()
	day := usermodel.Day(now)

	// 2. Submission + validation
	sub := model.Submission{
		Content:        req.Content,
		WordCount:      wordCount,
		StreakDay:      author.NextStreak(day),
		AuthorFID:      sess.FID,
		AuthorAddress:  firstNonEmpty(sess.Address, author.WalletAddress),
		AuthorHandle:   firstNonEmpty(sess.Handle(), author.Username),
		PriorCoinCount: author.TotalCoins,
	}
	if err := ValidateSubmission(sub); err != nil {
		return nil, err
	}

	// 3. Dedup trước mọi thao tác tốn tiền
	if author.WroteOn(day) {
		return nil, model.NewAlreadyWroteToday()
	}
	wrote, err := w.Writings.WroteOn(ctx, sess.FID, day)
	if err != nil {
		return nil, fmt.Errorf("check wrote today: %w", err)
	}
	if wrote {
		return nil, model.NewAlreadyWroteToday()
	}

	release, err := w.acquireLock(ctx, sess.FID, day)
	if err != nil {
		return nil, err
	}
	defer release()

	// 4. Metadata
	meta := BuildMetadata(sub, now, w.cfg.ImageURI)
	uri := w.Publisher.Publish(ctx, sess.FID, meta)

	commit := model.CommitParams{
		Author: model.Author{
			FID:         sess.FID,
			Username:    firstNonEmpty(sess.Username, author.Username, sub.AuthorHandle),
			DisplayName: firstNonEmpty(sess.DisplayName, author.DisplayName),
			PfpURL:      firstNonEmpty(sess.PfpURL, author.PfpURL),
			Address:     sub.AuthorAddress,
		},
		Content:   sub.Content,
		WordCount: sub.WordCount,
		StreakDay: sub.StreakDay,
		WriteDate: day,
	}

	// 5. Mint intent được ghi trước khi chạm chain
	intent := &model.Mint{FID: sess.FID, Symbol: meta.Symbol, MetadataURI: uri, WriteDate: day, Payload: commit}
	if err := w.Mints.CreateIntent(ctx, intent); err != nil {
		log.Error().Err(err).Int64("fid", sess.FID).Str("symbol", meta.Symbol).Msg("failed to record mint intent")
		return nil, model.NewPersistenceError()
	}

	// Intent đã ghi: client ngắt kết nối không được cắt ngang deploy hay làm mất writing
	ctx = context.WithoutCancel(ctx)

	// 6. Readiness -> deploy or simulate
	result, err := w.mint(ctx, sub, meta, uri, wallet)
	if result.PendingTxHash != "" {
		return nil, w.handlePendingTx(ctx, intent.ID, result)
	}
	if err != nil {
		if markErr := w.Mints.MarkFailed(ctx, intent.ID, err.Error()); markErr != nil {
			log.Warn().Err(markErr).Str("mint_id", intent.ID.String()).Msg("failed to mark mint failed")
		}
		return nil, err
	}

	commit.Coin = &model.CoinRef{
		Address:     result.CoinAddress,
		TxHash:      result.TxHash,
		Symbol:      result.Symbol,
		Simulated:   result.Simulated(),
		MetadataURI: uri,
	}
	commit.MintID = &intent.ID

	if err := w.Mints.MarkChainConfirmed(ctx, intent.ID, result, commit); err != nil {
		// intent kẹt ở pending_chain: commit không gắn mint để writing vẫn được lưu
		log.Error().Err(err).Str("mint_id", intent.ID.String()).Msg("failed to mark mint chain_confirmed")
		commit.MintID = nil
	}

	// 7. Atomic commit
	committed, err := w.Writings.CommitWriting(ctx, commit)
	if err != nil {
		return nil, w.handleCommitFailure(ctx, intent.ID, commit, result, err)
	}

	if err := w.Users.InvalidateCache(ctx, sess.FID); err != nil {
		log.Warn().Err(err).Int64("fid", sess.FID).Msg("user cache invalidation failed")
	}

	log.Info().
		Int64("fid", sess.FID).
		Str("symbol", result.Symbol).
		Str("coin", result.CoinAddress).
		Str("kind", string(result.Kind)).
		Int("streak_day", committed.Writing.StreakDay).
		Msg("writing coin created")

	return &model.CreateCoinResponse{
		Writing: committed.Writing,
		Coin: model.CoinSummary{
			Address:     result.CoinAddress,
			TxHash:      result.TxHash,
			Symbol:      result.Symbol,
			Kind:        result.Kind,
			MetadataURI: uri,
		},
		WordCount: wordCount,
		StreakDay: committed.Writing.StreakDay,
		IsLegend:  committed.Writing.Is111Legend,
		Progress:  model.Progress(wordCount),
		User:      committed.User,
	}, nil
}

// mint applies the fallback policy. The returned error is a *model.CoinError.
func (w *Workflow) mint(ctx context.Context, sub model.Submission, meta model.CoinMetadata, uri string, wallet WalletSession) (model.DeploymentResult, error) {
	readiness, clients := w.Gate.Wait(ctx, wallet)

	switch readiness {
	case Ready:
		res := w.Deployer.Deploy(ctx, sub, meta, uri, clients)
		if res.Success {
			return res, nil
		}
		if res.PendingTxHash != "" {
			// tx đã broadcast: simulate lúc này có thể tạo hai coin cho một ngày
			return res, model.NewMintPending(res.PendingTxHash)
		}
		if !w.cfg.FallbackOnDeployError {
			return res, model.NewDeployFailed(res.Error)
		}
		log.Warn().Str("symbol", meta.Symbol).Str("error", res.Error).Msg("deployment failed, falling back to simulation")

	case NotConnected, TimedOut:
		if !w.cfg.FallbackOnUnready {
			if readiness == NotConnected {
				return model.DeploymentResult{}, model.NewWalletNotConnected()
			}
			return model.DeploymentResult{}, model.NewWalletTimeout()
		}
		log.Warn().Str("symbol", meta.Symbol).Str("readiness", readiness.String()).Msg("wallet unavailable, falling back to simulation")
	}

	res := w.Simulator.Simulate(ctx, sub, meta)
	if !res.Success {
		return res, model.NewDeployFailed(res.Error)
	}
	return res, nil
}

// handlePendingTx giữ intent ở pending_chain cùng tx hash; reconciler sẽ đọc receipt sau.
func (w *Workflow) handlePendingTx(ctx context.Context, mintID uuid.UUID, result model.DeploymentResult) error {
	log.Warn().
		Str("mint_id", mintID.String()).
		Str("symbol", result.Symbol).
		Str("tx_hash", result.PendingTxHash).
		Msg("mint broadcast without receipt, left for reconciliation")

	if err := w.Mints.RecordPendingTx(ctx, mintID, result.PendingTxHash, result.Error); err != nil {
		log.Error().Err(err).Str("mint_id", mintID.String()).Msg("failed to record pending mint tx")
	}
	if w.Enqueuer != nil {
		payload := shared.ReconcileMintsPayload{MintID: mintID.String(), Reason: "receipt_pending"}
		if err := w.Enqueuer.EnqueueReconcile(ctx, payload); err != nil {
			log.Warn().Err(err).Str("mint_id", mintID.String()).Msg("failed to enqueue reconcile")
		}
	}
	return model.NewMintPending(result.PendingTxHash)
}

func (w *Workflow) handleCommitFailure(ctx context.Context, mintID uuid.UUID, commit model.CommitParams, result model.DeploymentResult, err error) error {
	if errors.Is(err, model.ErrAlreadyWroteToday) {
		// coin đã mint nhưng ngày này đã có writing khác thắng race
		if markErr := w.Mints.MarkOrphaned(ctx, mintID, "writing already recorded for this day"); markErr != nil {
			log.Warn().Err(markErr).Str("mint_id", mintID.String()).Msg("failed to orphan duplicate mint")
		}
		return model.NewAlreadyWroteToday()
	}

	metrics.CommitFailures.Inc()
	log.Error().Err(err).
		Str("mint_id", mintID.String()).
		Int64("fid", commit.Author.FID).
		Str("coin", result.CoinAddress).
		Str("tx_hash", result.TxHash).
		Str("kind", string(result.Kind)).
		Msg("writing commit failed after mint, left for reconciliation")

	if commit.MintID != nil {
		if _, recErr := w.Mints.RecordCommitFailure(ctx, mintID, err.Error()); recErr != nil {
			log.Warn().Err(recErr).Str("mint_id", mintID.String()).Msg("failed to record commit failure")
		}
		if w.Enqueuer != nil {
			payload := shared.ReconcileMintsPayload{MintID: mintID.String(), Reason: "commit_failed"}
			if qErr := w.Enqueuer.EnqueueReconcile(ctx, payload); qErr != nil {
				log.Warn().Err(qErr).Str("mint_id", mintID.String()).Msg("failed to enqueue reconcile")
			}
		}
	}
	return model.NewPersistenceError()
}

func (w *Workflow) loadAuthor(ctx context.Context, sess session.Session) (*usermodel.User, error) {
	u, err := w.Users.GetByFID(ctx, sess.FID)
	if errors.Is(err, usermodel.ErrUserNotFound) {
		// author mới: commit sẽ tạo row
		return &usermodel.User{FID: sess.FID, Username: sess.Username, DisplayName: sess.DisplayName, PfpURL: sess.PfpURL, WalletAddress: sess.Address}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load author: %w", err)
	}
	return u, nil
}

func createLockKey(fid int64, day time.Time) string {
	return fmt.Sprintf("coin:create:%d:%s", fid, day.Format(model.DateLayout))
}

// acquireLock: Redis lỗi thì vẫn tiếp tục, unique index vẫn chặn bản ghi trùng
func (w *Workflow) acquireLock(ctx context.Context, fid int64, day time.Time) (func(), error) {
	noop := func() {}
	if w.Locks == nil {
		return noop, nil
	}

	key := createLockKey(fid, day)
	ok, err := w.Locks.SetNX(ctx, key, uuid.NewString(), w.cfg.CreateLockTTL)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("create lock unavailable, continuing without it")
		return noop, nil
	}
	if !ok {
		return nil, model.NewCreateInProgress()
	}

	return func() {
		if err := w.Locks.Delete(context.WithoutCancel(ctx), key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to release create lock")
		}
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
