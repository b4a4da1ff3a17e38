package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/domains/user/model"
	"wordmint-backend/pkg/cache"
)

const profileCacheTTL = 5 * time.Minute

type postgresRepository struct {
	pool  *pgxpool.Pool
	cache cache.Cache
}

func NewPostgresRepository(pool *pgxpool.Pool, c cache.Cache) Repository {
	return &postgresRepository{pool: pool, cache: c}
}

func cacheKey(fid int64) string {
	return fmt.Sprintf("user:fid:%d", fid)
}

const userColumns = `
	id, fid, username, display_name, pfp_url, wallet_address,
	current_streak, longest_streak, total_coins, total_words,
	last_write_date, created_at, updated_at`

// ScanUser đọc một row theo thứ tự userColumns. Dùng chung với coin repository.
func ScanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.FID, &u.Username, &u.DisplayName, &u.PfpURL, &u.WalletAddress,
		&u.CurrentStreak, &u.LongestStreak, &u.TotalCoins, &u.TotalWords,
		&u.LastWriteDate, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Columns exposes the select list matching ScanUser.
func Columns() string {
	return userColumns
}

// GetByFID: cache-aside, cache miss thì đọc Postgres rồi set lại cache
func (r *postgresRepository) GetByFID(ctx context.Context, fid int64) (*model.User, error) {
	key := cacheKey(fid)

	if r.cache != nil {
		var cached model.User
		found, err := r.cache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn().Err(err).Int64("fid", fid).Msg("user cache read failed")
		}
		if found {
			return &cached, nil
		}
	}

	u, err := ScanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE fid = $1`, fid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by fid: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, u, profileCacheTTL); err != nil {
			log.Warn().Err(err).Int64("fid", fid).Msg("user cache write failed")
		}
	}
	return u, nil
}

func (r *postgresRepository) Upsert(ctx context.Context, p model.Profile) (*model.User, error) {
	query := `
		INSERT INTO users (fid, username, display_name, pfp_url, wallet_address)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fid) DO UPDATE SET
			username       = EXCLUDED.username,
			display_name   = EXCLUDED.display_name,
			pfp_url        = EXCLUDED.pfp_url,
			wallet_address = COALESCE(NULLIF(EXCLUDED.wallet_address, ''), users.wallet_address),
			updated_at     = NOW()
		RETURNING ` + userColumns

	u, err := ScanUser(r.pool.QueryRow(ctx, query, p.FID, p.Username, p.DisplayName, p.PfpURL, p.WalletAddress))
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	if err := r.InvalidateCache(ctx, p.FID); err != nil {
		log.Warn().Err(err).Int64("fid", p.FID).Msg("user cache invalidation failed")
	}
	return u, nil
}

func (r *postgresRepository) InvalidateCache(ctx context.Context, fid int64) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, cacheKey(fid))
}
