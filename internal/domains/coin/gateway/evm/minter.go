package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"wordmint-backend/internal/domains/coin/gateway"
)

type Config struct {
	Factory        common.Address
	TickLower      int64
	ReceiptTimeout time.Duration
}

// Minter talks to the coin factory and coin contracts over JSON-RPC.
type Minter struct {
	cfg        Config
	factoryABI abi.ABI
	coinABI    abi.ABI

	// relayer key dùng chung: serialize việc lấy nonce + broadcast
	sendMu sync.Mutex
}

var (
	_ gateway.Minter              = (*Minter)(nil)
	_ gateway.CoinReader          = (*Minter)(nil)
	_ gateway.DeployReceiptReader = (*Minter)(nil)
)

func NewMinter(cfg Config) (*Minter, error) {
	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}
	coinABI, err := abi.JSON(strings.NewReader(coinABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse coin abi: %w", err)
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = 90 * time.Second
	}
	return &Minter{cfg: cfg, factoryABI: factoryABI, coinABI: coinABI}, nil
}

// =====================================================
// DEPLOY
// =====================================================

func (m *Minter) DeployCoin(ctx context.Context, clients gateway.Clients, p gateway.DeployParams) (*gateway.DeployResult, error) {
	if !clients.Ready() {
		return nil, gateway.ErrClientsNotReady
	}

	// Step 1: Verify chain
	chainID, err := clients.Reader.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if p.ChainID != 0 && chainID.Int64() != p.ChainID {
		return nil, fmt.Errorf("wrong chain: connected to %s, want %d", chainID, p.ChainID)
	}

	// Step 2: Pack call + estimate gas with buffer
	args := []interface{}{
		p.PayoutRecipient,
		[]common.Address{p.PayoutRecipient},
		p.URI,
		p.Name,
		p.Symbol,
		p.PlatformReferrer,
		p.Currency,
		big.NewInt(m.cfg.TickLower),
		big.NewInt(0),
	}
	data, err := m.factoryABI.Pack("deploy", args...)
	if err != nil {
		return nil, fmt.Errorf("pack deploy: %w", err)
	}

	opts, err := clients.Signer.TransactOpts(ctx)
	if err != nil {
		return nil, fmt.Errorf("transact opts: %w", err)
	}

	factory := m.cfg.Factory
	estimated, err := clients.Reader.EstimateGas(ctx, ethereum.CallMsg{From: opts.From, To: &factory, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	opts.GasLimit = ApplyGasMultiplier(estimated, p.GasMultiplierPct)

	// Step 3: Broadcast
	contract := bind.NewBoundContract(factory, m.factoryABI, clients.Reader, clients.Reader, clients.Reader)
	tx, err := m.transact(contract, opts, "deploy", args...)
	if err != nil {
		return nil, fmt.Errorf("send deploy tx: %w", err)
	}
	log.Info().
		Str("tx_hash", tx.Hash().Hex()).
		Str("symbol", p.Symbol).
		Uint64("gas_limit", opts.GasLimit).
		Msg("coin deployment broadcast")

	// Step 4: Wait receipt + extract coin address
	receipt, err := m.waitMined(ctx, clients.Reader, tx)
	if err != nil {
		return nil, err
	}

	coin, err := m.coinFromReceipt(receipt)
	if err != nil {
		return nil, err
	}

	return &gateway.DeployResult{Address: coin, TxHash: tx.Hash()}, nil
}

// ApplyGasMultiplier returns gas * pct / 100, never below the estimate.
func ApplyGasMultiplier(gas uint64, pct int64) uint64 {
	if pct < 100 {
		pct = 100
	}
	return gas * uint64(pct) / 100
}

func (m *Minter) coinFromReceipt(receipt *types.Receipt) (common.Address, error) {
	event := m.factoryABI.Events["CoinCreated"]
	for _, l := range receipt.Logs {
		if l == nil || len(l.Topics) == 0 || l.Topics[0] != event.ID || l.Address != m.cfg.Factory {
			continue
		}
		values := map[string]interface{}{}
		if err := m.factoryABI.UnpackIntoMap(values, "CoinCreated", l.Data); err != nil {
			return common.Address{}, fmt.Errorf("decode CoinCreated: %w", err)
		}
		coin, ok := values["coin"].(common.Address)
		if !ok || coin == (common.Address{}) {
			break
		}
		return coin, nil
	}
	return common.Address{}, gateway.ErrCoinNotInReceipt
}

// DeployedCoin đọc receipt của một deploy tx đã broadcast.
func (m *Minter) DeployedCoin(ctx context.Context, reader gateway.Reader, txHash common.Hash) (*gateway.DeployResult, error) {
	if reader == nil {
		return nil, gateway.ErrClientsNotReady
	}
	receipt, err := reader.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, gateway.ErrTxPending
	}
	if err != nil {
		return nil, fmt.Errorf("fetch receipt %s: %w", txHash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", gateway.ErrTxReverted, txHash.Hex())
	}

	coin, err := m.coinFromReceipt(receipt)
	if err != nil {
		return nil, err
	}
	return &gateway.DeployResult{Address: coin, TxHash: txHash}, nil
}

// =====================================================
// TRADE
// =====================================================

// tradeCall là một buy/sell đã quote, sẵn sàng pack hoặc transact
type tradeCall struct {
	method string
	coin   common.Address
	value  *big.Int
	minOut *big.Int
	args   []interface{}
}

// quoteTrade validates params and quotes them with eth_call: minOut = quote * (1 - slippage).
func (m *Minter) quoteTrade(ctx context.Context, reader gateway.Reader, p gateway.TradeParams) (*tradeCall, error) {
	call := &tradeCall{}
	switch {
	case p.Sell.Type == gateway.AssetETH && p.Buy.Type == gateway.AssetERC20:
		call.method, call.coin, call.value = "buy", p.Buy.Address, p.AmountIn
	case p.Sell.Type == gateway.AssetERC20 && p.Buy.Type == gateway.AssetETH:
		call.method, call.coin, call.value = "sell", p.Sell.Address, big.NewInt(0)
	default:
		return nil, gateway.ErrUnsupportedPair
	}
	if p.AmountIn == nil || p.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	recipient := p.Recipient
	if recipient == (common.Address{}) {
		recipient = p.Sender
	}

	quoteData, err := m.coinABI.Pack(call.method, recipient, p.AmountIn, big.NewInt(0), big.NewInt(0), common.Address{})
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", call.method, err)
	}
	raw, err := reader.CallContract(ctx, ethereum.CallMsg{From: p.Sender, To: &call.coin, Value: call.value, Data: quoteData}, nil)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", call.method, err)
	}
	quoted, err := m.coinABI.Unpack(call.method, raw)
	if err != nil || len(quoted) != 2 {
		return nil, fmt.Errorf("decode %s quote: %v", call.method, err)
	}
	expected, _ := quoted[1].(*big.Int)
	call.minOut = MinAmountOut(expected, p.Slippage)
	call.args = []interface{}{recipient, p.AmountIn, call.minOut, big.NewInt(0), common.Address{}}
	return call, nil
}

func (m *Minter) TradeCoin(ctx context.Context, clients gateway.Clients, p gateway.TradeParams) (*gateway.TradeReceipt, error) {
	if !clients.Ready() {
		return nil, gateway.ErrClientsNotReady
	}
	if p.Sender != clients.Signer.Address() {
		return nil, fmt.Errorf("sender %s is not the signing wallet", p.Sender.Hex())
	}

	call, err := m.quoteTrade(ctx, clients.Reader, p)
	if err != nil {
		return nil, err
	}

	opts, err := clients.Signer.TransactOpts(ctx)
	if err != nil {
		return nil, fmt.Errorf("transact opts: %w", err)
	}
	opts.Value = call.value

	contract := bind.NewBoundContract(call.coin, m.coinABI, clients.Reader, clients.Reader, clients.Reader)
	tx, err := m.transact(contract, opts, call.method, call.args...)
	if err != nil {
		return nil, fmt.Errorf("send %s tx: %w", call.method, err)
	}

	if _, err := m.waitMined(ctx, clients.Reader, tx); err != nil {
		return nil, err
	}
	return &gateway.TradeReceipt{TxHash: tx.Hash(), MinAmountOut: call.minOut}, nil
}

// BuildTrade trả calldata để p.Sender tự ký bằng wallet của mình.
func (m *Minter) BuildTrade(ctx context.Context, reader gateway.Reader, p gateway.TradeParams) (*gateway.UnsignedTx, error) {
	if reader == nil {
		return nil, gateway.ErrClientsNotReady
	}
	if p.Sender == (common.Address{}) {
		return nil, fmt.Errorf("sender is required")
	}

	call, err := m.quoteTrade(ctx, reader, p)
	if err != nil {
		return nil, err
	}
	data, err := m.coinABI.Pack(call.method, call.args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", call.method, err)
	}
	return &gateway.UnsignedTx{
		From:         p.Sender,
		To:           call.coin,
		Data:         data,
		Value:        (*hexutil.Big)(call.value),
		MinAmountOut: call.minOut,
	}, nil
}

// MinAmountOut = floor(expected * (1 - slippage)); nil expected yields 0.
func MinAmountOut(expected *big.Int, slippage decimal.Decimal) *big.Int {
	if expected == nil || expected.Sign() <= 0 {
		return big.NewInt(0)
	}
	factor := decimal.NewFromInt(1).Sub(slippage)
	if factor.IsNegative() {
		return big.NewInt(0)
	}
	return decimal.NewFromBigInt(expected, 0).Mul(factor).Floor().BigInt()
}

// =====================================================
// READS
// =====================================================

func (m *Minter) CoinInfo(ctx context.Context, reader gateway.Reader, coin common.Address) (*gateway.CoinInfo, error) {
	if reader == nil {
		return nil, gateway.ErrClientsNotReady
	}
	contract := bind.NewBoundContract(coin, m.coinABI, reader, reader, reader)
	opts := &bind.CallOpts{Context: ctx}

	call := func(method string) (interface{}, error) {
		var out []interface{}
		if err := contract.Call(opts, &out, method); err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		if len(out) != 1 {
			return nil, fmt.Errorf("call %s: unexpected output", method)
		}
		return out[0], nil
	}

	name, err := call("name")
	if err != nil {
		return nil, err
	}
	symbol, err := call("symbol")
	if err != nil {
		return nil, err
	}
	supply, err := call("totalSupply")
	if err != nil {
		return nil, err
	}

	info := &gateway.CoinInfo{}
	info.Name, _ = name.(string)
	info.Symbol, _ = symbol.(string)
	info.TotalSupply, _ = supply.(*big.Int)
	return info, nil
}

// =====================================================
// HELPERS
// =====================================================

func (m *Minter) transact(contract *bind.BoundContract, opts *bind.TransactOpts, method string, args ...interface{}) (*types.Transaction, error) {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()
	return contract.Transact(opts, method, args...)
}

func (m *Minter) waitMined(ctx context.Context, backend bind.DeployBackend, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.ReceiptTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, backend, tx)
	if err != nil {
		// tx đã broadcast: kết quả chưa biết, không phải thất bại
		return nil, &gateway.PendingTxError{TxHash: tx.Hash(), Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", gateway.ErrTxReverted, tx.Hash().Hex())
	}
	return receipt, nil
}
