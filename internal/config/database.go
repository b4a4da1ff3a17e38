package config

import (
	"fmt"
	"strconv"
	"time"

	"wordmint-backend/internal/infrastructure/database"
)

// LoadDatabaseConfig đọc config từ environment variables và trả về DBConfig
func LoadDatabaseConfig() (*database.DBConfig, error) {
	p := &envParser{}

	port := p.int("DB_PORT", "5432")
	maxConns := p.int("DB_MAX_CONNECTIONS", "25")
	minConns := p.int("DB_MIN_CONNECTIONS", "5")
	maxRetries := p.int("DB_MAX_RETRIES", "5")

	maxConnLifetime := p.duration("DB_MAX_CONN_LIFETIME", "5m")
	maxConnIdleTime := p.duration("DB_MAX_CONN_IDLE_TIME", "1m")
	healthCheckPeriod := p.duration("DB_HEALTH_CHECK_PERIOD", "1m")
	retryDelay := p.duration("DB_RETRY_DELAY", "1s")
	connectTimeout := p.duration("DB_CONNECT_TIMEOUT", "10s")

	autoMigrate, err := strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "true"))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}

	if p.err != nil {
		return nil, p.err
	}

	return &database.DBConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              port,
		Username:          getEnv("DB_USER", "wordmint"),
		Password:          getEnv("DB_PASSWORD", "secret"),
		DBName:            getEnv("DB_NAME", "wordmint_dev"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(maxConns),
		MinConns:          int32(minConns),
		MaxConnLifetime:   maxConnLifetime,
		MaxConnIdleTime:   maxConnIdleTime,
		HealthCheckPeriod: healthCheckPeriod,
		MaxRetries:        maxRetries,
		RetryDelay:        retryDelay,
		ConnectTimeout:    connectTimeout,
		AutoMigrate:       autoMigrate,
	}, nil
}

// envParser giữ lỗi đầu tiên, các lần parse sau trở thành no-op.
type envParser struct {
	err error
}

func (p *envParser) int(key, def string) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(getEnv(key, def))
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func (p *envParser) duration(key, def string) time.Duration {
	if p.err != nil {
		return 0
	}
	v, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}
