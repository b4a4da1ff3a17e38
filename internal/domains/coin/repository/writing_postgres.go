package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"wordmint-backend/internal/domains/coin/model"
	usermodel "wordmint-backend/internal/domains/user/model"
	userrepo "wordmint-backend/internal/domains/user/repository"
	"wordmint-backend/pkg/database"
)

const (
	uniqueViolation        = "23505"
	fidWriteDateConstraint = "writings_fid_write_date_key"
)

const writingColumns = `
	id, user_id, fid, content, word_count, streak_day, is_111_legend,
	coin_address, tx_hash, coin_symbol, coin_simulated, metadata_uri,
	write_date, created_at`

type writingRepository struct {
	db DB
}

func NewWritingRepository(db DB) WritingRepository {
	return &writingRepository{db: db}
}

func scanWriting(row pgx.Row, extra ...any) (*model.Writing, error) {
	var w model.Writing
	dest := []any{
		&w.ID, &w.UserID, &w.FID, &w.Content, &w.WordCount, &w.StreakDay, &w.Is111Legend,
		&w.CoinAddress, &w.TxHash, &w.CoinSymbol, &w.CoinSimulated, &w.MetadataURI,
		&w.WriteDate, &w.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &w, nil
}

// ========================================
// ATOMIC COMMIT
// ========================================

func (r *writingRepository) CommitWriting(ctx context.Context, p model.CommitParams) (*model.CommitResult, error) {
	return database.WithTransactionResult(ctx, r.db, func(tx pgx.Tx) (*model.CommitResult, error) {
		day := usermodel.Day(p.WriteDate)

		// 1. Author row phải tồn tại trước khi lock
		_, err := tx.Exec(ctx, `
			INSERT INTO users (fid, username, display_name, pfp_url, wallet_address)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (fid) DO NOTHING`,
			p.Author.FID, p.Author.Username, p.Author.DisplayName, p.Author.PfpURL, p.Author.Address)
		if err != nil {
			return nil, fmt.Errorf("ensure author: %w", err)
		}

		// 2. Lock aggregate row
		u, err := userrepo.ScanUser(tx.QueryRow(ctx,
			`SELECT `+userrepo.Columns()+` FROM users WHERE fid = $1 FOR UPDATE`, p.Author.FID))
		if err != nil {
			return nil, fmt.Errorf("lock author: %w", err)
		}
		if u.WroteOn(day) {
			return nil, model.NewAlreadyWroteToday()
		}

		streakDay := 0
		if u.Backdated(day) {
			// writing cũ hơn last_write_date: streak hiện tại không đổi
			streakDay = max(p.StreakDay, 1)
		}
		u.ApplyWriting(day, p.WordCount, p.Coin != nil)
		if streakDay == 0 {
			streakDay = u.CurrentStreak
		}

		// 3. Insert writing
		w := &model.Writing{
			ID:          uuid.New(),
			UserID:      u.ID,
			FID:         u.FID,
			Content:     p.Content,
			WordCount:   p.WordCount,
			StreakDay:   streakDay,
			Is111Legend: model.IsLegend(p.WordCount),
			WriteDate:   day,
		}
		if p.Coin != nil {
			w.CoinAddress = &p.Coin.Address
			w.TxHash = &p.Coin.TxHash
			w.CoinSymbol = &p.Coin.Symbol
			w.CoinSimulated = p.Coin.Simulated
			w.MetadataURI = &p.Coin.MetadataURI
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO writings (
				id, user_id, fid, content, word_count, streak_day, is_111_legend,
				coin_address, tx_hash, coin_symbol, coin_simulated, metadata_uri, write_date
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING created_at`,
			w.ID, w.UserID, w.FID, w.Content, w.WordCount, w.StreakDay, w.Is111Legend,
			w.CoinAddress, w.TxHash, w.CoinSymbol, w.CoinSimulated, w.MetadataURI, w.WriteDate,
		).Scan(&w.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == fidWriteDateConstraint {
				return nil, model.NewAlreadyWroteToday()
			}
			return nil, fmt.Errorf("insert writing: %w", err)
		}

		// 4. Update aggregates
		err = tx.QueryRow(ctx, `
			UPDATE users SET
				current_streak  = $2,
				longest_streak  = $3,
				total_coins     = $4,
				total_words     = $5,
				last_write_date = $6,
				updated_at      = NOW()
			WHERE id = $1
			RETURNING updated_at`,
			u.ID, u.CurrentStreak, u.LongestStreak, u.TotalCoins, u.TotalWords, u.LastWriteDate,
		).Scan(&u.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("update author aggregates: %w", err)
		}

		// 5. Mint intent -> persisted
		if p.MintID != nil {
			tag, err := tx.Exec(ctx, `
				UPDATE coin_mints
				SET status = $2, writing_id = $3, error = NULL, updated_at = NOW()
				WHERE id = $1 AND status = $4`,
				*p.MintID, model.MintPersisted, w.ID, model.MintChainConfirmed)
			if err != nil {
				return nil, fmt.Errorf("mark mint persisted: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return nil, model.NewCoinError(model.ErrCodeInvalidStatusChange,
					fmt.Sprintf("mint %s is not chain_confirmed", p.MintID), model.ErrInvalidStatusChange)
			}
		}

		return &model.CommitResult{Writing: w, User: u}, nil
	})
}

// ========================================
// QUERIES
// ========================================

func (r *writingRepository) GetByCoinAddress(ctx context.Context, address string) (*model.WritingWithAuthor, error) {
	query := `
		SELECT
			w.id, w.user_id, w.fid, w.content, w.word_count, w.streak_day, w.is_111_legend,
			w.coin_address, w.tx_hash, w.coin_symbol, w.coin_simulated, w.metadata_uri,
			w.write_date, w.created_at,
			u.fid, u.username, u.display_name, u.pfp_url, u.wallet_address
		FROM writings w
		JOIN users u ON u.id = w.user_id
		WHERE LOWER(w.coin_address) = LOWER($1)`

	var a model.Author
	w, err := scanWriting(r.db.QueryRow(ctx, query, address),
		&a.FID, &a.Username, &a.DisplayName, &a.PfpURL, &a.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrWritingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get writing by coin address: %w", err)
	}

	return &model.WritingWithAuthor{Writing: *w, Author: a}, nil
}

func (r *writingRepository) ListByFID(ctx context.Context, fid int64, limit int) ([]*model.Writing, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+writingColumns+` FROM writings WHERE fid = $1 ORDER BY created_at DESC LIMIT $2`,
		fid, limit)
	if err != nil {
		return nil, fmt.Errorf("list writings: %w", err)
	}
	defer rows.Close()

	writings := make([]*model.Writing, 0, limit)
	for rows.Next() {
		w, err := scanWriting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan writing: %w", err)
		}
		writings = append(writings, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list writings: %w", err)
	}
	return writings, nil
}

func (r *writingRepository) WroteOn(ctx context.Context, fid int64, day time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM writings WHERE fid = $1 AND write_date = $2)`,
		fid, usermodel.Day(day),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check wrote on: %w", err)
	}
	return exists, nil
}

func (r *writingRepository) GetDailyStats(ctx context.Context, day time.Time) (*model.DailyStats, error) {
	day = usermodel.Day(day)
	s := &model.DailyStats{Day: day}

	err := r.db.QueryRow(ctx, `
		SELECT day, writers, writings, total_words, avg_word_count, legend_writings
		FROM daily_stats WHERE day = $1`, day,
	).Scan(&s.Day, &s.Writers, &s.Writings, &s.TotalWords, &s.AvgWordCount, &s.LegendWritings)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily stats: %w", err)
	}
	return s, nil
}
