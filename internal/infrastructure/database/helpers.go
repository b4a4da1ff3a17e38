package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Ping kiểm tra database connection còn sống, timeout 5s
func (db *PostgresDB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close đóng pool. Safe to call multiple times.
func (db *PostgresDB) Close() error {
	if db.Pool == nil {
		return nil
	}

	log.Info().Msg("[DATABASE] Closing connection pool...")
	db.Pool.Close()
	db.Pool = nil
	return nil
}

// PoolStats là snapshot của pgxpool statistics, dùng cho diagnostics
type PoolStats struct {
	TotalConns        int32  `json:"total_conns"`
	IdleConns         int32  `json:"idle_conns"`
	AcquiredConns     int32  `json:"acquired_conns"`
	MaxConns          int32  `json:"max_conns"`
	AcquireCount      int64  `json:"acquire_count"`
	EmptyAcquireCount int64  `json:"empty_acquire_count"` // acquire phải chờ vì pool rỗng
	AvgAcquire        string `json:"avg_acquire"`
}

func (db *PostgresDB) Stats() (*PoolStats, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	raw := db.Pool.Stat()
	return &PoolStats{
		TotalConns:        raw.TotalConns(),
		IdleConns:         raw.IdleConns(),
		AcquiredConns:     raw.AcquiredConns(),
		MaxConns:          raw.MaxConns(),
		AcquireCount:      raw.AcquireCount(),
		EmptyAcquireCount: raw.EmptyAcquireCount(),
		AvgAcquire:        calculateAvgDuration(raw.AcquireDuration(), raw.AcquireCount()).String(),
	}, nil
}

func calculateAvgDuration(total time.Duration, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return total / time.Duration(count)
}
