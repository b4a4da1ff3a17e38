package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"wordmint-backend/internal/domains/coin/gateway"
	"wordmint-backend/internal/domains/coin/model"
	"wordmint-backend/internal/domains/coin/repository"
	usermodel "wordmint-backend/internal/domains/user/model"
	"wordmint-backend/internal/shared/session"
	"wordmint-backend/pkg/cache"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

type coinService struct {
	workflow *Workflow
	trader   *Trader
	writings repository.WritingRepository
	reader   gateway.CoinReader
	pinner   Pinner
	wallet   WalletSession
	cache    cache.Cache // optional
	cacheTTL time.Duration
	diagTTL  time.Duration
	now      func() time.Time
}

type ServiceDeps struct {
	Workflow       *Workflow
	Trader         *Trader
	Writings       repository.WritingRepository
	CoinReader     gateway.CoinReader
	Pinner         Pinner
	Wallet         WalletSession
	Cache          cache.Cache
	DetailCacheTTL time.Duration
	// DiagnosticsCacheTTL: thời gian giữ kết quả test pin
	DiagnosticsCacheTTL time.Duration
}

func NewCoinService(deps ServiceDeps) ServiceInterface {
	ttl := deps.DetailCacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	diagTTL := deps.DiagnosticsCacheTTL
	if diagTTL <= 0 {
		diagTTL = 5 * time.Minute
	}
	return &coinService{
		workflow: deps.Workflow,
		trader:   deps.Trader,
		writings: deps.Writings,
		reader:   deps.CoinReader,
		pinner:   deps.Pinner,
		wallet:   deps.Wallet,
		cache:    deps.Cache,
		cacheTTL: ttl,
		diagTTL:  diagTTL,
		now:      time.Now,
	}
}

func (s *coinService) CreateCoin(ctx context.Context, sess session.Session, req model.CreateCoinRequest) (*model.CreateCoinResponse, error) {
	return s.workflow.CreateCoin(ctx, sess, s.wallet, req)
}

func (s *coinService) Trade(ctx context.Context, sess session.Session, coinAddress string, req model.TradeCoinRequest) (*model.TradeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewInvalidTrade(err)
	}

	tr := model.TradeRequest{
		FID:         sess.FID,
		Owner:       sess.Address,
		CoinAddress: coinAddress,
		Amount:      req.Amount,
		Direction:   model.Direction(strings.ToLower(req.Direction)),
		Slippage:    req.Slippage,
		Recipient:   req.Recipient,
	}
	// validate trước khi chờ wallet để lỗi input trả 400 ngay
	if _, err := s.trader.PrepareTrade(tr, s.walletAddress()); err != nil {
		return nil, err
	}

	result := s.trader.Submit(ctx, s.wallet, tr)
	log.Info().Int64("fid", sess.FID).Str("coin", coinAddress).Str("direction", string(tr.Direction)).
		Bool("success", result.Success).Msg("trade requested")

	if !result.Success {
		return &result, model.NewCoinError(result.ErrorCode, result.Error, model.ErrTradeFailed)
	}
	return &result, nil
}

func (s *coinService) walletAddress() string {
	if s.wallet == nil {
		return ""
	}
	return s.wallet.Address()
}

// GetCoinDetail: DB lookup và on-chain read chạy song song, kết quả cache ngắn hạn.
func (s *coinService) GetCoinDetail(ctx context.Context, address string) (*model.CoinDetailResponse, error) {
	if !IsHexAddress(address) {
		return nil, model.NewInvalidAddress("coin address")
	}

	key := "coin:detail:" + strings.ToLower(address)
	if s.cache != nil {
		var cached model.CoinDetailResponse
		if found, err := s.cache.Get(ctx, key, &cached); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("coin detail cache read failed")
		} else if found {
			return &cached, nil
		}
	}

	var (
		writing *model.WritingWithAuthor
		info    *gateway.CoinInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.writings.GetByCoinAddress(gctx, address)
		if err != nil {
			return err
		}
		writing = w
		return nil
	})
	g.Go(func() error {
		info = s.readOnChain(gctx, address)
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, model.ErrWritingNotFound) {
			return nil, model.NewCoinError(model.ErrCodeWritingNotFound, "no writing found for this coin", err)
		}
		return nil, fmt.Errorf("coin detail: %w", err)
	}

	resp := &model.CoinDetailResponse{Writing: writing}
	if info != nil && !writing.CoinSimulated {
		resp.OnChain = &model.OnChainInfo{Name: info.Name, Symbol: info.Symbol}
		if info.TotalSupply != nil {
			resp.OnChain.TotalSupply = info.TotalSupply.String()
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("coin detail cache write failed")
		}
	}
	return resp, nil
}

// readOnChain best-effort: lỗi chỉ log, detail vẫn trả về phần DB
func (s *coinService) readOnChain(ctx context.Context, address string) *gateway.CoinInfo {
	if s.reader == nil || s.wallet == nil {
		return nil
	}
	reader := s.wallet.Clients().Reader
	if reader == nil {
		return nil
	}
	info, err := s.reader.CoinInfo(ctx, reader, common.HexToAddress(address))
	if err != nil {
		log.Debug().Err(err).Str("coin", address).Msg("on-chain coin info unavailable")
		return nil
	}
	return info
}

func (s *coinService) ListWritings(ctx context.Context, fid int64, limit int) (*model.ListWritingsResponse, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	writings, err := s.writings.ListByFID(ctx, fid, limit)
	if err != nil {
		return nil, err
	}
	if writings == nil {
		writings = []*model.Writing{}
	}
	return &model.ListWritingsResponse{Writings: writings}, nil
}

func (s *coinService) WroteToday(ctx context.Context, fid int64) (*model.WroteTodayResponse, error) {
	day := usermodel.Day(s.now())
	wrote, err := s.writings.WroteOn(ctx, fid, day)
	if err != nil {
		return nil, err
	}
	return &model.WroteTodayResponse{FID: fid, Date: day.Format(model.DateLayout), WroteToday: wrote}, nil
}

func (s *coinService) DailyStats(ctx context.Context) (*model.DailyStats, error) {
	return s.writings.GetDailyStats(ctx, s.now())
}

// Diagnostics báo credential nào đã cấu hình và thử pin một document nhỏ.
func (s *coinService) Diagnostics(ctx context.Context) (*model.DiagnosticsResponse, error) {
	now := s.now().UTC()
	resp := &model.DiagnosticsResponse{CheckedAt: now}

	if s.wallet != nil {
		resp.WalletConfigured = s.wallet.Connected()
		resp.WalletAddress = s.wallet.Address()
		resp.WalletConnected = s.wallet.Clients().Ready()
	}

	if s.pinner == nil || !s.pinner.HasCredential() {
		resp.TestPinURI = model.PlaceholderMetadataURI
		resp.TestPinPlaceholder = true
		return resp, nil
	}
	resp.PinningConfigured = true

	// mỗi test pin là một upload thật lên Pinata: kết quả được cache theo diagTTL
	var pin testPin
	found := false
	if s.cache != nil {
		var err error
		if found, err = s.cache.Get(ctx, diagnosticPinKey, &pin); err != nil {
			log.Warn().Err(err).Str("key", diagnosticPinKey).Msg("diagnostic cache read failed")
		}
	}
	if !found {
		pin = s.pinTestDocument(ctx, now)
		if s.cache != nil {
			if err := s.cache.Set(ctx, diagnosticPinKey, pin, s.diagTTL); err != nil {
				log.Warn().Err(err).Str("key", diagnosticPinKey).Msg("diagnostic cache write failed")
			}
		}
	}

	resp.TestPinURI = pin.URI
	resp.TestPinError = pin.Error
	resp.TestPinPlaceholder = pin.URI == model.PlaceholderMetadataURI
	resp.TestPinCheckedAt = pin.CheckedAt
	return resp, nil
}

const diagnosticPinKey = "coin:diagnostics:test-pin"

type testPin struct {
	URI       string    `json:"uri"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

func (s *coinService) pinTestDocument(ctx context.Context, now time.Time) testPin {
	doc := fmt.Sprintf(`{"name":"wordmint diagnostic","timestamp":%q}`, now.Format(time.RFC3339))
	cid, err := s.pinner.PinJSON(ctx, "wordmint-diagnostic.json", []byte(doc))
	if err != nil {
		log.Warn().Err(err).Msg("diagnostic pin failed")
		return testPin{URI: model.PlaceholderMetadataURI, Error: err.Error(), CheckedAt: now}
	}
	return testPin{URI: "ipfs://" + cid, CheckedAt: now}
}
