package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(8453), cfg.Chain.ChainID)
	assert.Equal(t, int64(120), cfg.Chain.GasMultiplierPct)
	assert.Equal(t, 200*time.Millisecond, cfg.Coin.ReadyInterval)
	assert.Equal(t, 25, cfg.Coin.ReadyMaxAttempts)
	assert.Equal(t, 100, cfg.Coin.MinWords)
	assert.InDelta(t, 0.05, cfg.Coin.BuySlippage, 1e-9)
	assert.InDelta(t, 0.15, cfg.Coin.SellSlippage, 1e-9)
	assert.InDelta(t, 0.05, cfg.Coin.DailyBuyCapETH, 1e-9)
	assert.True(t, cfg.Coin.FallbackOnUnready)
	assert.False(t, cfg.Coin.FallbackOnDeployError)
	assert.Equal(t, 3, cfg.Job.MaxCommitAttempts)
	assert.Empty(t, cfg.Pinata.JWT)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("COIN_READY_INTERVAL", "50ms")
	t.Setenv("COIN_FALLBACK_ON_UNREADY", "false")
	t.Setenv("COIN_BUY_SLIPPAGE", "0.1")
	t.Setenv("CHAIN_ID", "84532")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.Coin.ReadyInterval)
	assert.False(t, cfg.Coin.FallbackOnUnready)
	assert.InDelta(t, 0.1, cfg.Coin.BuySlippage, 1e-9)
	assert.Equal(t, int64(84532), cfg.Chain.ChainID)
}

func TestLoad_InvalidValuesFallBackToDefault(t *testing.T) {
	t.Setenv("COIN_READY_MAX_ATTEMPTS", "many")
	t.Setenv("COIN_FALLBACK_ON_UNREADY", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Coin.ReadyMaxAttempts)
	assert.True(t, cfg.Coin.FallbackOnUnready)
}

func TestValidate_Production(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("MINIO_SECRET_KEY", "another")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestValidate_RejectsBadSlippage(t *testing.T) {
	t.Setenv("COIN_SELL_SLIPPAGE", "1.5")

	_, err := Load()
	assert.ErrorContains(t, err, "slippage")
}

func TestValidate_RejectsNegativeTradeCap(t *testing.T) {
	t.Setenv("COIN_TRADE_DAILY_CAP_ETH", "-1")

	_, err := Load()
	assert.ErrorContains(t, err, "COIN_TRADE_DAILY_CAP_ETH")
}

func TestLoadDatabaseConfig(t *testing.T) {
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_RETRY_DELAY", "250ms")

	cfg, err := LoadDatabaseConfig()
	require.NoError(t, err)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.True(t, cfg.AutoMigrate)

	t.Setenv("DB_MAX_CONNECTIONS", "lots")
	_, err = LoadDatabaseConfig()
	assert.ErrorContains(t, err, "DB_MAX_CONNECTIONS")
}

func TestLoad_ChainOptions(t *testing.T) {
	t.Setenv("CHAIN_USE_MOCK_MINTER", "true")
	t.Setenv("CHAIN_PLATFORM_REFERRER", "0x2222222222222222222222222222222222222222")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Chain.UseMockMinter)

	t.Setenv("CHAIN_PLATFORM_REFERRER", "nobody")
	_, err = Load()
	assert.ErrorContains(t, err, "CHAIN_PLATFORM_REFERRER")
}
