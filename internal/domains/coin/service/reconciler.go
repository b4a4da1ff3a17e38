package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/domains/coin/gateway"
	"wordmint-backend/internal/domains/coin/model"
	"wordmint-backend/internal/domains/coin/repository"
	userrepo "wordmint-backend/internal/domains/user/repository"
	"wordmint-backend/pkg/metrics"
)

// Action là kết quả reconcile của một intent
type Action string

const (
	ActionPersisted Action = "persisted"
	ActionRetried   Action = "retried"
	ActionOrphaned  Action = "orphaned"
	ActionFailed    Action = "failed"
	ActionSkipped   Action = "skipped"
)

type ReconcilerConfig struct {
	Grace             time.Duration // intents trẻ hơn Grace có thể còn đang được request xử lý
	StaleAfter        time.Duration
	MaxCommitAttempts int
	BatchSize         int
}

// SweepReport đếm actions của một lần quét
type SweepReport struct {
	Persisted int `json:"persisted"`
	Retried   int `json:"retried"`
	Orphaned  int `json:"orphaned"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

func (r *SweepReport) add(a Action) {
	switch a {
	case ActionPersisted:
		r.Persisted++
	case ActionRetried:
		r.Retried++
	case ActionOrphaned:
		r.Orphaned++
	case ActionFailed:
		r.Failed++
	default:
		r.Skipped++
	}
}

// Reconciler hoàn tất hoặc đóng các mint intents bị bỏ dở:
// coin đã lên chain nhưng writing chưa được ghi, hoặc deploy không bao giờ có kết quả.
type Reconciler struct {
	writings repository.WritingRepository
	mints    repository.MintRepository
	users    userrepo.Repository // optional, để invalidate cache
	receipts gateway.DeployReceiptReader
	chain    WalletSession
	cfg      ReconcilerConfig
	now      func() time.Time
}

func NewReconciler(writings repository.WritingRepository, mints repository.MintRepository, users userrepo.Repository, cfg ReconcilerConfig) *Reconciler {
	if cfg.MaxCommitAttempts < 1 {
		cfg.MaxCommitAttempts = 3
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 30 * time.Minute
	}
	return &Reconciler{writings: writings, mints: mints, users: users, cfg: cfg, now: time.Now}
}

// WithReceipts lets the reconciler settle pending_chain intents whose tx hash is known
// by reading the deployment receipt through chain.
func (r *Reconciler) WithReceipts(receipts gateway.DeployReceiptReader, chain WalletSession) *Reconciler {
	r.receipts, r.chain = receipts, chain
	return r
}

// ReconcileOne xử lý một intent. Error != nil khi commit vẫn cần retry.
func (r *Reconciler) ReconcileOne(ctx context.Context, id uuid.UUID) (Action, error) {
	m, err := r.mints.GetByID(ctx, id)
	if err != nil {
		return ActionSkipped, err
	}
	switch {
	case m.Status == model.MintChainConfirmed:
		return r.recommit(ctx, m)
	case m.Status == model.MintPendingChain && hasTxHash(m):
		return r.resolvePending(ctx, m)
	default:
		return ActionSkipped, nil
	}
}

// Sweep quét chain_confirmed quá Grace và pending_chain quá Grace.
// pending_chain không có receipt chỉ bị orphan khi đã quá StaleAfter.
func (r *Reconciler) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := r.now()

	confirmed, err := r.mints.ListStale(ctx, model.MintChainConfirmed, now.Add(-r.cfg.Grace), r.cfg.BatchSize)
	if err != nil {
		return report, fmt.Errorf("list chain_confirmed intents: %w", err)
	}
	for _, m := range confirmed {
		action, err := r.recommit(ctx, m)
		if err != nil {
			log.Warn().Err(err).Str("mint_id", m.ID.String()).Msg("reconcile commit failed")
		}
		report.add(action)
	}

	pending, err := r.mints.ListStale(ctx, model.MintPendingChain, now.Add(-r.cfg.Grace), r.cfg.BatchSize)
	if err != nil {
		return report, fmt.Errorf("list pending_chain intents: %w", err)
	}
	for _, m := range pending {
		report.add(r.sweepPending(ctx, m, now))
	}

	log.Info().
		Int("persisted", report.Persisted).
		Int("retried", report.Retried).
		Int("orphaned", report.Orphaned).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("mint reconciliation sweep finished")
	return report, nil
}

func (r *Reconciler) sweepPending(ctx context.Context, m *model.Mint, now time.Time) Action {
	stale := m.UpdatedAt.Before(now.Add(-r.cfg.StaleAfter))

	if hasTxHash(m) {
		action, err := r.resolvePending(ctx, m)
		if err == nil {
			return action
		}
		if !stale || !errors.Is(err, gateway.ErrTxPending) {
			log.Warn().Err(err).Str("mint_id", m.ID.String()).Str("tx_hash", *m.TxHash).Msg("pending mint not resolved")
			return action
		}
		return r.orphan(ctx, m, fmt.Sprintf("tx %s not mined after %s", *m.TxHash, r.cfg.StaleAfter))
	}

	if !stale {
		return ActionSkipped
	}
	// request chết giữa chừng: không biết coin có tồn tại hay không
	return r.orphan(ctx, m, fmt.Sprintf("no chain confirmation after %s", r.cfg.StaleAfter))
}

// resolvePending đọc receipt của deployment đã broadcast.
// Mined -> chain_confirmed rồi commit; reverted -> failed; chưa mined -> error để retry.
func (r *Reconciler) resolvePending(ctx context.Context, m *model.Mint) (Action, error) {
	if r.receipts == nil || r.chain == nil {
		return ActionSkipped, fmt.Errorf("mint %s: %w", m.ID, gateway.ErrClientsNotReady)
	}
	reader := r.chain.Clients().Reader
	if reader == nil {
		return ActionSkipped, fmt.Errorf("mint %s: %w", m.ID, gateway.ErrClientsNotReady)
	}

	deployed, err := r.receipts.DeployedCoin(ctx, reader, common.HexToHash(*m.TxHash))
	switch {
	case errors.Is(err, gateway.ErrTxReverted):
		if markErr := r.mints.MarkFailed(ctx, m.ID, "deployment tx reverted"); markErr != nil {
			return ActionSkipped, fmt.Errorf("mark reverted mint failed: %w", markErr)
		}
		metrics.ReconcileActions.WithLabelValues(string(ActionFailed)).Inc()
		log.Warn().Str("mint_id", m.ID.String()).Str("tx_hash", *m.TxHash).Msg("pending mint reverted")
		return ActionFailed, nil
	case err != nil:
		return ActionSkipped, fmt.Errorf("mint %s receipt: %w", m.ID, err)
	}

	result := model.DeploymentResult{
		Success:     true,
		Kind:        model.KindReal,
		CoinAddress: deployed.Address.Hex(),
		TxHash:      deployed.TxHash.Hex(),
		Symbol:      m.Symbol,
	}
	params := m.Payload
	params.Coin = &model.CoinRef{
		Address:     result.CoinAddress,
		TxHash:      result.TxHash,
		Symbol:      m.Symbol,
		MetadataURI: m.MetadataURI,
	}
	params.MintID = &m.ID

	if err := r.mints.MarkChainConfirmed(ctx, m.ID, result, params); err != nil {
		return ActionSkipped, fmt.Errorf("confirm pending mint: %w", err)
	}
	log.Info().Str("mint_id", m.ID.String()).Str("coin", result.CoinAddress).Str("tx_hash", result.TxHash).
		Msg("pending mint confirmed from receipt")

	m.Status = model.MintChainConfirmed
	m.Payload = params
	return r.recommit(ctx, m)
}

func hasTxHash(m *model.Mint) bool {
	return m.TxHash != nil && *m.TxHash != ""
}

func (r *Reconciler) recommit(ctx context.Context, m *model.Mint) (Action, error) {
	params := m.Payload
	params.MintID = &m.ID
	if params.Author.FID == 0 {
		return r.orphan(ctx, m, "intent has no commit payload"), nil
	}

	res, err := r.writings.CommitWriting(ctx, params)
	if err == nil {
		metrics.ReconcileActions.WithLabelValues(string(ActionPersisted)).Inc()
		log.Info().Str("mint_id", m.ID.String()).Int64("fid", m.FID).Str("writing_id", res.Writing.ID.String()).Msg("mint reconciled")
		if r.users != nil {
			if cErr := r.users.InvalidateCache(ctx, params.Author.FID); cErr != nil {
				log.Warn().Err(cErr).Int64("fid", params.Author.FID).Msg("failed to invalidate user cache")
			}
		}
		return ActionPersisted, nil
	}

	if errors.Is(err, model.ErrAlreadyWroteToday) {
		return r.orphan(ctx, m, "writing already recorded for this day"), nil
	}

	attempts, recErr := r.mints.RecordCommitFailure(ctx, m.ID, err.Error())
	if recErr != nil {
		return ActionSkipped, fmt.Errorf("record commit failure: %w", recErr)
	}
	if attempts >= r.cfg.MaxCommitAttempts {
		reason := fmt.Sprintf("commit failed %d times: %s", attempts, err)
		return r.orphan(ctx, m, reason), nil
	}

	metrics.ReconcileActions.WithLabelValues(string(ActionRetried)).Inc()
	return ActionRetried, fmt.Errorf("commit attempt %d: %w", attempts, err)
}

func (r *Reconciler) orphan(ctx context.Context, m *model.Mint, reason string) Action {
	if err := r.mints.MarkOrphaned(ctx, m.ID, reason); err != nil {
		log.Warn().Err(err).Str("mint_id", m.ID.String()).Msg("failed to orphan mint")
		return ActionSkipped
	}
	metrics.ReconcileActions.WithLabelValues(string(ActionOrphaned)).Inc()
	log.Warn().Str("mint_id", m.ID.String()).Int64("fid", m.FID).Str("reason", reason).Msg("mint orphaned")
	return ActionOrphaned
}
