package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"wordmint-backend/internal/config"
	"wordmint-backend/internal/infrastructure/cache"
	"wordmint-backend/internal/infrastructure/chain"
	"wordmint-backend/internal/infrastructure/database"
	"wordmint-backend/internal/infrastructure/pinning"
	"wordmint-backend/internal/infrastructure/queue"
	"wordmint-backend/internal/infrastructure/storage"
	pkgcache "wordmint-backend/pkg/cache"
	"wordmint-backend/pkg/circuitbreaker"
	"wordmint-backend/pkg/jwt"

	coinGateway "wordmint-backend/internal/domains/coin/gateway"
	"wordmint-backend/internal/domains/coin/gateway/evm"
	"wordmint-backend/internal/domains/coin/gateway/mock"
	coinHandler "wordmint-backend/internal/domains/coin/handler"
	coinRepo "wordmint-backend/internal/domains/coin/repository"
	coinService "wordmint-backend/internal/domains/coin/service"
	userHandler "wordmint-backend/internal/domains/user/handler"
	userRepo "wordmint-backend/internal/domains/user/repository"
	userService "wordmint-backend/internal/domains/user/service"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container chứa toàn bộ dependencies của application, dùng chung cho cmd/api và cmd/worker.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config     *config.Config
	DB         *database.PostgresDB
	Redis      *cache.RedisClient
	Cache      pkgcache.Cache
	Storage    *storage.MinIOStorage // nil khi MinIO không khả dụng
	Pinata     *pinning.Client
	PinBreaker *circuitbreaker.Breaker
	Chain      *chain.Provider
	Minter     coinGateway.Minter
	CoinReader coinGateway.CoinReader
	Receipts   coinGateway.DeployReceiptReader
	Queue      *queue.Client
	JWTManager *jwt.Manager

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	UserRepo    userRepo.Repository
	WritingRepo coinRepo.WritingRepository
	MintRepo    coinRepo.MintRepository
	SpendRepo   coinRepo.SpendRepository

	// ========================================
	// SERVICE LAYER
	// ========================================
	UserService userService.ServiceInterface
	CoinService coinService.ServiceInterface
	Reconciler  *coinService.Reconciler

	// ========================================
	// HANDLER LAYER
	// ========================================
	UserHandler *userHandler.UserHandler
	CoinHandler *coinHandler.CoinHandler
}

// NewContainer tạo dependency graph theo thứ tự:
// config -> infrastructure -> repositories -> services -> handlers
func NewContainer(ctx context.Context) (*Container, error) {
	log.Info().Msg("🔧 Initializing DI Container...")

	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Info().Str("env", cfg.App.Environment).Msg("✅ Config loaded")

	// ========================================
	// STEP 2: INFRASTRUCTURE
	// ========================================
	if err := c.initInfrastructure(ctx); err != nil {
		c.Cleanup()
		return nil, err
	}

	// ========================================
	// STEP 3: REPOSITORIES
	// ========================================
	c.initRepositories()
	log.Info().Msg("✅ Repositories initialized")

	// ========================================
	// STEP 4: SERVICES
	// ========================================
	c.initServices()
	log.Info().Msg("✅ Services initialized")

	// ========================================
	// STEP 5: HANDLERS
	// ========================================
	c.initHandlers()
	log.Info().Msg("🎉 DI Container initialized successfully")

	return c, nil
}

func (c *Container) initInfrastructure(ctx context.Context) error {
	cfg := c.Config

	// PostgreSQL: bắt buộc
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}
	c.DB = database.NewPostgresDB(dbConfig)

	connectCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	if err := c.DB.Connect(connectCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Redis: không critical, cache/lock tự degrade khi Redis lỗi
	c.Redis = cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️  Redis connection failed (non-critical)")
	}
	c.Cache = cache.NewRedisCache(c.Redis.Client, "wordmint")

	// MinIO: archive metadata, optional
	c.Storage, err = storage.NewMinIOStorage(ctx, cfg.MinIO)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️  MinIO unavailable, metadata archive disabled")
		c.Storage = nil
	}

	// Pinata + circuit breaker
	c.Pinata = pinning.NewClient(cfg.Pinata)
	c.PinBreaker = circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.Pinata.BreakerFails,
		OpenTimeout:      cfg.Pinata.BreakerOpen,
		OnStateChange: func(from, to circuitbreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("pinata breaker state changed")
		},
	})
	if !c.Pinata.HasCredential() {
		log.Warn().Msg("⚠️  PINATA_JWT not set, coins will use the placeholder metadata URI")
	}

	// Chain provider: dial ở background, readiness gate sẽ chờ
	c.Chain, err = chain.NewProvider(cfg.Chain)
	if err != nil {
		return fmt.Errorf("failed to init chain provider: %w", err)
	}
	c.Chain.Start(context.Background())
	if !c.Chain.Connected() {
		log.Warn().Msg("⚠️  CHAIN_PRIVATE_KEY not set, wallet not connected")
	}

	if cfg.Chain.UseMockMinter {
		m := mock.NewMinter()
		c.Minter, c.CoinReader, c.Receipts = m, m, m
		log.Warn().Msg("⚠️  Using mock minter, no transactions will be sent")
	} else {
		m, err := evm.NewMinter(evm.Config{
			Factory:        common.HexToAddress(cfg.Chain.FactoryAddress),
			TickLower:      cfg.Chain.TickLower,
			ReceiptTimeout: cfg.Chain.ReceiptTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to init minter: %w", err)
		}
		c.Minter, c.CoinReader, c.Receipts = m, m, m
	}

	c.Queue = queue.NewClient(cfg.Redis)
	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	log.Info().Msg("✅ Infrastructure initialized")
	return nil
}

func (c *Container) initRepositories() {
	c.UserRepo = userRepo.NewPostgresRepository(c.DB.Pool, c.Cache)
	c.WritingRepo = coinRepo.NewWritingRepository(c.DB.Pool)
	c.MintRepo = coinRepo.NewMintRepository(c.DB.Pool)
	c.SpendRepo = coinRepo.NewSpendRepository(c.DB.Pool)
}

func (c *Container) initServices() {
	cfg := c.Config

	c.UserService = userService.NewUserService(c.UserRepo)

	// archiver là interface: không truyền typed nil
	var archiver coinService.Archiver
	if c.Storage != nil {
		archiver = c.Storage
	}

	gate := coinService.NewReadinessGate(cfg.Coin.ReadyInterval, cfg.Coin.ReadyMaxAttempts)

	workflow := coinService.NewWorkflow(coinService.WorkflowDeps{
		Users:     c.UserRepo,
		Writings:  c.WritingRepo,
		Mints:     c.MintRepo,
		Locks:     c.Cache,
		Publisher: coinService.NewPublisher(c.Pinata, archiver, c.PinBreaker),
		Gate:      gate,
		Deployer: coinService.NewDeployer(c.Minter, coinService.DeployerConfig{
			ChainID:          cfg.Chain.ChainID,
			Currency:         common.HexToAddress(cfg.Chain.WETHAddress),
			PlatformReferrer: common.HexToAddress(cfg.Chain.PlatformReferrer),
			GasMultiplierPct: cfg.Chain.GasMultiplierPct,
		}),
		Simulator: coinService.NewSimulator(cfg.Coin.SimulationDelay),
		Enqueuer:  c.Queue,
	}, coinService.WorkflowConfig{
		MinWords:              cfg.Coin.MinWords,
		ImageURI:              cfg.Coin.DefaultImageURI,
		FallbackOnUnready:     cfg.Coin.FallbackOnUnready,
		FallbackOnDeployError: cfg.Coin.FallbackOnDeployError,
		CreateLockTTL:         cfg.Coin.CreateLockTTL,
	})

	trader := coinService.NewTrader(c.Minter, gate, c.SpendRepo, coinService.TraderConfig{
		BuySlippage:  decimal.NewFromFloat(cfg.Coin.BuySlippage),
		SellSlippage: decimal.NewFromFloat(cfg.Coin.SellSlippage),
		DailyBuyCap:  decimal.NewFromFloat(cfg.Coin.DailyBuyCapETH).Shift(coinService.EthDecimals).BigInt(),
	})

	c.CoinService = coinService.NewCoinService(coinService.ServiceDeps{
		Workflow:       workflow,
		Trader:         trader,
		Writings:       c.WritingRepo,
		CoinReader:     c.CoinReader,
		Pinner:         c.Pinata,
		Wallet:         c.Chain,
		Cache:          c.Cache,
		DetailCacheTTL: cfg.Coin.DetailCacheTTL,

		DiagnosticsCacheTTL: cfg.Coin.DiagnosticsCacheTTL,
	})

	c.Reconciler = coinService.NewReconciler(c.WritingRepo, c.MintRepo, c.UserRepo, coinService.ReconcilerConfig{
		Grace:             cfg.Job.ReconcileGrace,
		StaleAfter:        cfg.Job.StaleAfter,
		MaxCommitAttempts: cfg.Job.MaxCommitAttempts,
		BatchSize:         cfg.Job.BatchSize,
	}).WithReceipts(c.Receipts, c.Chain)
}

func (c *Container) initHandlers() {
	c.UserHandler = userHandler.NewUserHandler(c.UserService)
	c.CoinHandler = coinHandler.NewCoinHandler(c.CoinService)
}

// HealthCheck kiểm tra các dependency bắt buộc. Redis và chain chỉ báo trạng thái.
func (c *Container) HealthCheck(ctx context.Context) map[string]string {
	status := map[string]string{}

	check := func(name string, err error) {
		if err != nil {
			status[name] = "DOWN: " + err.Error()
			return
		}
		status[name] = "UP"
	}

	check("database", c.DB.Ping(ctx))
	check("redis", c.Redis.HealthCheck(ctx))
	if c.Storage != nil {
		check("minio", c.Storage.HealthCheck(ctx))
	} else {
		status["minio"] = "DISABLED"
	}
	check("chain", c.Chain.HealthCheck(ctx))
	return status
}

// Cleanup đóng resources theo thứ tự ngược lại. Safe với container khởi tạo dở.
func (c *Container) Cleanup() {
	log.Info().Msg("🧹 Cleaning up container resources...")

	if c.Queue != nil {
		if err := c.Queue.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close queue client")
		}
	}
	if c.Chain != nil {
		c.Chain.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis")
		}
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}

	log.Info().Msg("✅ Container cleanup completed")
}
