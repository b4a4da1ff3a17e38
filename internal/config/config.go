package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config chứa toàn bộ application configuration
// Struct này được populate từ environment variables
type Config struct {
	App    AppConfig
	Redis  RedisConfig
	JWT    JWTConfig
	MinIO  MinIOConfig
	Pinata PinataConfig
	Chain  ChainConfig
	Coin   CoinConfig
	Job    JobConfig
	Log    LogConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry int // minutes
}

type MinIOConfig struct {
	Endpoint  string // localhost:9000
	AccessKey string // minioadmin
	SecretKey string // minioadmin
	Bucket    string // wordmint
	UseSSL    bool   // false for local
}

// =====================================================
// PINATA (IPFS pinning)
// =====================================================

type PinataConfig struct {
	JWT          string // empty = pinning disabled, placeholder URI is used
	APIURL       string
	Timeout      time.Duration
	RatePerSec   float64
	BreakerFails int
	BreakerOpen  time.Duration
}

// =====================================================
// CHAIN (relayer wallet + Zora factory)
// =====================================================

type ChainConfig struct {
	RPCURL           string
	ChainID          int64
	PrivateKey       string // hex, no 0x; empty = wallet not connected
	FactoryAddress   string
	WETHAddress      string
	TickLower        int64
	PlatformReferrer string
	GasMultiplierPct int64
	ReceiptTimeout   time.Duration
	DialRetries      int
	DialRetryDelay   time.Duration
	UseMockMinter    bool // local dev: deterministic minter, không gửi transaction
}

// =====================================================
// COIN WORKFLOW
// =====================================================

type CoinConfig struct {
	MinWords              int
	DefaultImageURI       string
	ReadyInterval         time.Duration
	ReadyMaxAttempts      int
	SimulationDelay       time.Duration
	FallbackOnUnready     bool
	FallbackOnDeployError bool
	BuySlippage           float64
	SellSlippage          float64
	DailyBuyCapETH        float64 // ETH relayer chi cho buys của một fid mỗi ngày; 0 tắt relayed buys
	CreateLockTTL         time.Duration
	DetailCacheTTL        time.Duration
	DiagnosticsCacheTTL   time.Duration
}

type JobConfig struct {
	ReconcileCron     string
	ReconcileGrace    time.Duration
	StaleAfter        time.Duration
	MaxCommitAttempts int
	BatchSize         int
	Concurrency       int
}

type LogConfig struct {
	Level string
}

// Load đọc config từ environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Wordmint API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenExpiry: getEnvInt("JWT_ACCESS_EXPIRY", 60*24), // 1 day
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "wordmint"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Pinata: PinataConfig{
			JWT:          getEnv("PINATA_JWT", ""),
			APIURL:       getEnv("PINATA_API_URL", "https://api.pinata.cloud"),
			Timeout:      getEnvDuration("PINATA_TIMEOUT", 15*time.Second),
			RatePerSec:   getEnvFloat("PINATA_RATE_PER_SEC", 3),
			BreakerFails: getEnvInt("PINATA_BREAKER_FAILURES", 5),
			BreakerOpen:  getEnvDuration("PINATA_BREAKER_OPEN", 30*time.Second),
		},
		Chain: ChainConfig{
			RPCURL:           getEnv("CHAIN_RPC_URL", "https://mainnet.base.org"),
			ChainID:          int64(getEnvInt("CHAIN_ID", 8453)), // Base mainnet
			PrivateKey:       getEnv("CHAIN_PRIVATE_KEY", ""),
			FactoryAddress:   getEnv("ZORA_FACTORY_ADDRESS", "0x777777751622c0d3258f214F9DF38E35BF45baF3"),
			WETHAddress:      getEnv("WETH_ADDRESS", "0x4200000000000000000000000000000000000006"),
			TickLower:        int64(getEnvInt("ZORA_TICK_LOWER", -208200)),
			PlatformReferrer: getEnv("CHAIN_PLATFORM_REFERRER", ""),
			GasMultiplierPct: int64(getEnvInt("CHAIN_GAS_MULTIPLIER_PCT", 120)),
			ReceiptTimeout:   getEnvDuration("CHAIN_RECEIPT_TIMEOUT", 90*time.Second),
			DialRetries:      getEnvInt("CHAIN_DIAL_RETRIES", 5),
			DialRetryDelay:   getEnvDuration("CHAIN_DIAL_RETRY_DELAY", time.Second),
			UseMockMinter:    getEnvBool("CHAIN_USE_MOCK_MINTER", false),
		},
		Coin: CoinConfig{
			MinWords:              getEnvInt("COIN_MIN_WORDS", 100),
			DefaultImageURI:       getEnv("COIN_DEFAULT_IMAGE_URI", "ipfs://bafkreifch6stfh3fn3nqv5tpxnknjpo7zulqav55f2b5pryadx6hldldwe"),
			ReadyInterval:         getEnvDuration("COIN_READY_INTERVAL", 200*time.Millisecond),
			ReadyMaxAttempts:      getEnvInt("COIN_READY_MAX_ATTEMPTS", 25),
			SimulationDelay:       getEnvDuration("COIN_SIMULATION_DELAY", 2*time.Second),
			FallbackOnUnready:     getEnvBool("COIN_FALLBACK_ON_UNREADY", true),
			FallbackOnDeployError: getEnvBool("COIN_FALLBACK_ON_DEPLOY_ERROR", false),
			BuySlippage:           getEnvFloat("COIN_BUY_SLIPPAGE", 0.05),
			SellSlippage:          getEnvFloat("COIN_SELL_SLIPPAGE", 0.15),
			DailyBuyCapETH:        getEnvFloat("COIN_TRADE_DAILY_CAP_ETH", 0.05),
			CreateLockTTL:         getEnvDuration("COIN_CREATE_LOCK_TTL", 3*time.Minute),
			DetailCacheTTL:        getEnvDuration("COIN_DETAIL_CACHE_TTL", time.Minute),
			DiagnosticsCacheTTL:   getEnvDuration("COIN_DIAGNOSTICS_CACHE_TTL", 5*time.Minute),
		},
		Job: JobConfig{
			ReconcileCron:     getEnv("JOB_RECONCILE_CRON", "*/10 * * * *"),
			ReconcileGrace:    getEnvDuration("JOB_RECONCILE_GRACE", 2*time.Minute),
			StaleAfter:        getEnvDuration("JOB_STALE_AFTER", 30*time.Minute),
			MaxCommitAttempts: getEnvInt("JOB_MAX_COMMIT_ATTEMPTS", 3),
			BatchSize:         getEnvInt("JOB_BATCH_SIZE", 50),
			Concurrency:       getEnvInt("WORKER_CONCURRENCY", 5),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	// Validate critical config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate kiểm tra config có hợp lệ không
func (c *Config) Validate() error {
	if c.Coin.ReadyMaxAttempts < 1 {
		return fmt.Errorf("COIN_READY_MAX_ATTEMPTS must be >= 1")
	}
	if c.Coin.ReadyInterval <= 0 {
		return fmt.Errorf("COIN_READY_INTERVAL must be positive")
	}
	if c.Coin.BuySlippage < 0 || c.Coin.BuySlippage >= 1 || c.Coin.SellSlippage < 0 || c.Coin.SellSlippage >= 1 {
		return fmt.Errorf("slippage must be in [0, 1)")
	}
	if c.Coin.DailyBuyCapETH < 0 {
		return fmt.Errorf("COIN_TRADE_DAILY_CAP_ETH must be >= 0")
	}
	if c.Chain.PlatformReferrer != "" && !common.IsHexAddress(c.Chain.PlatformReferrer) {
		return fmt.Errorf("CHAIN_PLATFORM_REFERRER must be a hex address")
	}
	if c.Chain.GasMultiplierPct < 100 {
		return fmt.Errorf("CHAIN_GAS_MULTIPLIER_PCT must be >= 100")
	}

	// Production environment phải có JWT secret
	if c.App.Environment == "production" {
		if c.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.MinIO.SecretKey == "minioadmin" {
			return fmt.Errorf("MINIO_SECRET_KEY must be set in production")
		}
	}

	return nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
