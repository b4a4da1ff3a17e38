package repository

import (
	"context"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"wordmint-backend/internal/domains/coin/model"
)

// DB là phần của pgxpool.Pool mà repositories dùng
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// =====================================================
// WRITING REPOSITORY
// =====================================================

type WritingRepository interface {
	// CommitWriting inserts the writing, updates the author's aggregates and
	// marks the mint intent persisted, all in one transaction.
	CommitWriting(ctx context.Context, p model.CommitParams) (*model.CommitResult, error)

	// GetByCoinAddress (case-insensitive) join với author
	GetByCoinAddress(ctx context.Context, address string) (*model.WritingWithAuthor, error)

	// ListByFID newest first
	ListByFID(ctx context.Context, fid int64, limit int) ([]*model.Writing, error)

	WroteOn(ctx context.Context, fid int64, day time.Time) (bool, error)

	GetDailyStats(ctx context.Context, day time.Time) (*model.DailyStats, error)
}

// =====================================================
// MINT INTENT REPOSITORY
// =====================================================

type MintRepository interface {
	// CreateIntent ghi intent ở trạng thái pending_chain trước khi gọi chain
	CreateIntent(ctx context.Context, m *model.Mint) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.Mint, error)

	// MarkChainConfirmed: pending_chain -> chain_confirmed, lưu payload để commit lại
	MarkChainConfirmed(ctx context.Context, id uuid.UUID, res model.DeploymentResult, payload model.CommitParams) error

	// RecordPendingTx lưu tx hash của deployment đã broadcast nhưng chưa có receipt.
	// Intent vẫn ở pending_chain cho tới khi reconciler đọc được receipt.
	RecordPendingTx(ctx context.Context, id uuid.UUID, txHash, reason string) error

	// MarkFailed: pending_chain -> failed
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error

	// MarkOrphaned: pending_chain|chain_confirmed -> orphaned
	MarkOrphaned(ctx context.Context, id uuid.UUID, reason string) error

	// RecordCommitFailure tăng attempts và lưu lỗi cuối; trả attempts mới
	RecordCommitFailure(ctx context.Context, id uuid.UUID, reason string) (int, error)

	// ListStale lists intents in status last updated before cutoff, oldest first.
	ListStale(ctx context.Context, status model.MintStatus, cutoff time.Time, limit int) ([]*model.Mint, error)
}

// =====================================================
// RELAYED SPEND LEDGER
// =====================================================

type SpendRepository interface {
	// Reserve giữ s.AmountWei trong hạn mức ngày của s.FID.
	// Trả model.ErrSpendCapExceeded khi reserved + settled + amount vượt dailyCap.
	Reserve(ctx context.Context, s *model.Spend, dailyCap *big.Int) error

	// Settle: reserved -> settled, tx đã broadcast
	Settle(ctx context.Context, id uuid.UUID, txHash string) error

	// Release: reserved -> released, trade không xảy ra
	Release(ctx context.Context, id uuid.UUID, reason string) error
}
