package repository

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wordmint-backend/internal/domains/coin/model"
	usermodel "wordmint-backend/internal/domains/user/model"
	"wordmint-backend/pkg/database"
)

type spendRepository struct {
	db DB
}

func NewSpendRepository(db DB) SpendRepository {
	return &spendRepository{db: db}
}

func (r *spendRepository) Reserve(ctx context.Context, s *model.Spend, dailyCap *big.Int) error {
	if s.AmountWei == nil || s.AmountWei.Sign() <= 0 {
		return fmt.Errorf("reserve spend: amount must be positive")
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Status = model.SpendReserved
	s.SpendDate = usermodel.Day(s.SpendDate)

	return database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		// các reservation cùng fid chạy tuần tự tới khi tx commit
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, s.FID); err != nil {
			return fmt.Errorf("lock spend ledger: %w", err)
		}

		var spentText string
		err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(amount_wei), 0)::text
			FROM relayed_spends
			WHERE fid = $1 AND spend_date = $2::date AND status <> $3`,
			s.FID, s.SpendDate, string(model.SpendReleased),
		).Scan(&spentText)
		if err != nil {
			return fmt.Errorf("sum daily spend: %w", err)
		}
		spent, ok := new(big.Int).SetString(spentText, 10)
		if !ok {
			return fmt.Errorf("sum daily spend: unexpected value %q", spentText)
		}
		if dailyCap == nil || new(big.Int).Add(spent, s.AmountWei).Cmp(dailyCap) > 0 {
			return model.ErrSpendCapExceeded
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO relayed_spends (id, fid, coin_address, amount_wei, status, spend_date)
			VALUES ($1, $2, $3, $4::text::numeric, $5, $6)
			RETURNING created_at`,
			s.ID, s.FID, s.CoinAddress, s.AmountWei.String(), string(s.Status), s.SpendDate,
		).Scan(&s.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert spend: %w", err)
		}
		return nil
	})
}

func (r *spendRepository) Settle(ctx context.Context, id uuid.UUID, txHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE relayed_spends SET status = $2, tx_hash = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, string(model.SpendSettled), txHash, string(model.SpendReserved))
	if err != nil {
		return fmt.Errorf("settle spend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("settle spend %s: not reserved", id)
	}
	return nil
}

func (r *spendRepository) Release(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE relayed_spends SET status = $2, error = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, string(model.SpendReleased), reason, string(model.SpendReserved))
	if err != nil {
		return fmt.Errorf("release spend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("release spend %s: not reserved", id)
	}
	return nil
}
