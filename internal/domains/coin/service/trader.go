package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"wordmint-backend/internal/domains/coin/gateway"
	"wordmint-backend/internal/domains/coin/model"
	"wordmint-backend/internal/domains/coin/repository"
	"wordmint-backend/pkg/metrics"
)

// EthDecimals: amount nhập vào là ETH (buy) hoặc coin units (sell), đều 18 decimals
const EthDecimals = 18

type TraderConfig struct {
	BuySlippage  decimal.Decimal
	SellSlippage decimal.Decimal
	// DailyBuyCap: ETH (wei) relayer được chi cho buys của một fid mỗi ngày UTC.
	// nil hoặc <= 0 tắt relayed buys.
	DailyBuyCap *big.Int
}

// Trader submits one buy or sell. Không retry.
// Buys được relayer wallet trả tiền trong hạn mức của fid; sells trả về tx để owner tự ký.
type Trader struct {
	minter gateway.Minter
	gate   *ReadinessGate
	spends repository.SpendRepository
	cfg    TraderConfig
	now    func() time.Time
}

func NewTrader(minter gateway.Minter, gate *ReadinessGate, spends repository.SpendRepository, cfg TraderConfig) *Trader {
	return &Trader{minter: minter, gate: gate, spends: spends, cfg: cfg, now: time.Now}
}

// PrepareTrade turns a request into SDK params. Errors are *model.CoinError.
// relayer là address của service wallet, sender của mọi buy.
func (t *Trader) PrepareTrade(req model.TradeRequest, relayer string) (gateway.TradeParams, error) {
	if !req.Direction.Valid() {
		return gateway.TradeParams{}, model.NewInvalidTrade(fmt.Errorf("direction must be buy or sell, got %q", req.Direction))
	}
	if !IsHexAddress(req.CoinAddress) {
		return gateway.TradeParams{}, model.NewInvalidAddress("coin address")
	}
	if !IsHexAddress(req.Owner) {
		return gateway.TradeParams{}, model.NewInvalidAddress("session wallet")
	}

	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return gateway.TradeParams{}, model.NewInvalidTrade(err)
	}

	slippage := t.defaultSlippage(req.Direction)
	if req.Slippage != nil {
		slippage = decimal.NewFromFloat(*req.Slippage)
		if slippage.IsNegative() || slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return gateway.TradeParams{}, model.NewInvalidTrade(fmt.Errorf("slippage must be in [0, 1), got %s", slippage))
		}
	}

	owner := common.HexToAddress(req.Owner)
	if req.Recipient != "" {
		if !IsHexAddress(req.Recipient) {
			return gateway.TradeParams{}, model.NewInvalidAddress("recipient")
		}
		if common.HexToAddress(req.Recipient) != owner {
			return gateway.TradeParams{}, model.NewInvalidTrade(model.ErrForeignRecipient)
		}
	}

	coin := gateway.ERC20(common.HexToAddress(req.CoinAddress))
	params := gateway.TradeParams{
		AmountIn:  amount,
		Slippage:  slippage,
		Recipient: owner,
	}
	if req.Direction == model.DirectionBuy {
		params.Sell, params.Buy = gateway.ETH(), coin
		params.Sender = common.HexToAddress(relayer)
	} else {
		params.Sell, params.Buy = coin, gateway.ETH()
		params.Sender = owner
	}
	return params, nil
}

// Submit chạy readiness gate rồi xử lý trade đúng một lần.
// Mọi lỗi được chuẩn hóa thành TradeResult.Error.
func (t *Trader) Submit(ctx context.Context, wallet WalletSession, req model.TradeRequest) model.TradeResult {
	result := model.TradeResult{Direction: req.Direction}

	readiness, clients := t.gate.Wait(ctx, wallet)
	switch readiness {
	case NotConnected:
		return t.fail(result, model.ErrCodeWalletNotConnected, model.ErrWalletNotConnected.Error())
	case TimedOut:
		return t.fail(result, model.ErrCodeWalletTimeout, model.ErrWalletTimeout.Error())
	}

	params, err := t.PrepareTrade(req, wallet.Address())
	if err != nil {
		code, msg := errorCode(err)
		return t.fail(result, code, msg)
	}
	result.SellAsset = describeAsset(params.Sell)
	result.BuyAsset = describeAsset(params.Buy)
	result.AmountIn = params.AmountIn.String()
	result.Slippage = params.Slippage.InexactFloat64()

	if req.Direction == model.DirectionSell {
		return t.buildSell(ctx, result, clients, req, params)
	}
	return t.relayBuy(ctx, result, clients, req, params)
}

// buildSell không gửi gì: coin nằm trong wallet của owner nên owner phải tự ký.
func (t *Trader) buildSell(ctx context.Context, result model.TradeResult, clients gateway.Clients, req model.TradeRequest, params gateway.TradeParams) model.TradeResult {
	tx, err := t.minter.BuildTrade(ctx, clients.Reader, params)
	if err != nil {
		log.Error().Err(err).
			Int64("fid", req.FID).
			Str("coin", req.CoinAddress).
			Str("amount_in", result.AmountIn).
			Msg("sell build failed")
		return t.fail(result, model.ErrCodeTradeFailed, err.Error())
	}

	value := "0"
	if tx.Value != nil {
		value = tx.Value.ToInt().String()
	}
	result.Success = true
	result.MinAmountOut = tx.MinAmountOut
	result.UnsignedTx = &model.UnsignedTx{
		From:  tx.From.Hex(),
		To:    tx.To.Hex(),
		Data:  tx.Data.String(),
		Value: value,
	}
	metrics.TradeResults.WithLabelValues(string(req.Direction), "success").Inc()
	log.Info().Int64("fid", req.FID).Str("coin", req.CoinAddress).Str("owner", tx.From.Hex()).Msg("sell prepared for owner signature")
	return result
}

func (t *Trader) relayBuy(ctx context.Context, result model.TradeResult, clients gateway.Clients, req model.TradeRequest, params gateway.TradeParams) model.TradeResult {
	limit := t.cfg.DailyBuyCap
	if t.spends == nil || limit == nil || limit.Sign() <= 0 {
		return t.fail(result, model.ErrCodeSpendCapExceeded, "relayed buys are disabled")
	}

	spend := &model.Spend{
		FID:         req.FID,
		CoinAddress: params.Buy.Address.Hex(),
		AmountWei:   params.AmountIn,
		SpendDate:   t.now().UTC(),
	}
	if err := t.spends.Reserve(ctx, spend, limit); err != nil {
		if errors.Is(err, model.ErrSpendCapExceeded) {
			ce := model.NewSpendCapExceeded(decimal.NewFromBigInt(limit, -EthDecimals).String())
			return t.fail(result, ce.Code, ce.Message)
		}
		log.Error().Err(err).Int64("fid", req.FID).Msg("spend reservation failed")
		return t.fail(result, model.ErrCodeTradeFailed, "trade ledger unavailable")
	}

	// tiền đã được giữ: client ngắt kết nối không được bỏ dở tx đã ký
	ctx = context.WithoutCancel(ctx)

	receipt, err := t.minter.TradeCoin(ctx, clients, params)
	if err != nil {
		var pending *gateway.PendingTxError
		if errors.As(err, &pending) {
			// tx đã broadcast: ETH coi như đã chi
			t.settle(ctx, spend.ID, pending.TxHash.Hex())
		} else if relErr := t.spends.Release(ctx, spend.ID, err.Error()); relErr != nil {
			log.Warn().Err(relErr).Str("spend_id", spend.ID.String()).Msg("failed to release spend")
		}
		log.Error().Err(err).
			Int64("fid", req.FID).
			Str("coin", req.CoinAddress).
			Str("amount_in", result.AmountIn).
			Msg("trade failed")
		return t.fail(result, model.ErrCodeTradeFailed, err.Error())
	}
	t.settle(ctx, spend.ID, receipt.TxHash.Hex())

	result.Success = true
	result.TxHash = receipt.TxHash.Hex()
	result.MinAmountOut = receipt.MinAmountOut
	metrics.TradeResults.WithLabelValues(string(req.Direction), "success").Inc()
	log.Info().Int64("fid", req.FID).Str("direction", string(req.Direction)).Str("coin", req.CoinAddress).Str("tx_hash", result.TxHash).Msg("trade submitted")
	return result
}

func (t *Trader) settle(ctx context.Context, id uuid.UUID, txHash string) {
	if err := t.spends.Settle(ctx, id, txHash); err != nil {
		log.Warn().Err(err).Str("spend_id", id.String()).Str("tx_hash", txHash).Msg("failed to settle spend")
	}
}

func (t *Trader) defaultSlippage(d model.Direction) decimal.Decimal {
	if d == model.DirectionBuy {
		return t.cfg.BuySlippage
	}
	return t.cfg.SellSlippage
}

func (t *Trader) fail(result model.TradeResult, code, msg string) model.TradeResult {
	dir := string(result.Direction)
	if dir == "" {
		dir = "unknown"
	}
	metrics.TradeResults.WithLabelValues(dir, "failure").Inc()
	result.Success = false
	result.Error = msg
	result.ErrorCode = code
	return result
}

// ParseAmount: decimal string -> base units (10^18). Tối đa 18 chữ số thập phân.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("amount %q is not a decimal number", s)
	}
	if !d.IsPositive() {
		return nil, errors.New("amount must be greater than zero")
	}
	if d.Exponent() < -EthDecimals && !d.Equal(d.Truncate(EthDecimals)) {
		return nil, fmt.Errorf("amount has more than %d decimal places", EthDecimals)
	}
	return d.Shift(EthDecimals).BigInt(), nil
}

func describeAsset(a gateway.Asset) string {
	if a.Type == gateway.AssetETH {
		return "ETH"
	}
	return a.Address.Hex()
}

func errorCode(err error) (string, string) {
	var ce *model.CoinError
	if errors.As(err, &ce) {
		return ce.Code, ce.Message
	}
	return model.ErrCodeInvalidTrade, err.Error()
}
