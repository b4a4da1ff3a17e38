package mock

import (
	"context"
	"crypto/sha256"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"wordmint-backend/internal/domains/coin/gateway"
)

// =====================================================
// MOCK MINTER FOR TESTING / LOCAL DEV
// =====================================================

// Minter derives deterministic addresses from the symbol and records every
// call. Set DeployErr / TradeErr to force failures.
type Minter struct {
	mu sync.Mutex

	DeployErr error
	TradeErr  error
	BuildErr  error
	Info      *gateway.CoinInfo

	// Receipts: deploy tx đã mined theo hash; hash không có ở đây = pending
	Receipts    map[common.Hash]*gateway.DeployResult
	ReceiptErrs map[common.Hash]error

	DeployCalls []gateway.DeployParams
	// DeployCtxErrs: ctx.Err() tại thời điểm mỗi DeployCoin được gọi
	DeployCtxErrs []error
	TradeCalls    []gateway.TradeParams
	BuildCalls    []gateway.TradeParams
}

var (
	_ gateway.Minter              = (*Minter)(nil)
	_ gateway.CoinReader          = (*Minter)(nil)
	_ gateway.DeployReceiptReader = (*Minter)(nil)
)

func NewMinter() *Minter {
	return &Minter{}
}

func (m *Minter) DeployCoin(ctx context.Context, clients gateway.Clients, p gateway.DeployParams) (*gateway.DeployResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeployCalls = append(m.DeployCalls, p)
	m.DeployCtxErrs = append(m.DeployCtxErrs, ctx.Err())
	if m.DeployErr != nil {
		return nil, m.DeployErr
	}

	seed := sha256.Sum256([]byte("deploy:" + p.Symbol + ":" + p.URI))
	return &gateway.DeployResult{
		Address: common.BytesToAddress(seed[:20]),
		TxHash:  common.BytesToHash(seed[:]),
	}, nil
}

func (m *Minter) TradeCoin(ctx context.Context, clients gateway.Clients, p gateway.TradeParams) (*gateway.TradeReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TradeCalls = append(m.TradeCalls, p)
	if m.TradeErr != nil {
		return nil, m.TradeErr
	}

	amount := "0"
	if p.AmountIn != nil {
		amount = p.AmountIn.String()
	}
	seed := sha256.Sum256([]byte("trade:" + string(p.Sell.Type) + p.Buy.Address.Hex() + p.Sell.Address.Hex() + amount))
	return &gateway.TradeReceipt{TxHash: common.BytesToHash(seed[:]), MinAmountOut: big.NewInt(0)}, nil
}

func (m *Minter) BuildTrade(ctx context.Context, reader gateway.Reader, p gateway.TradeParams) (*gateway.UnsignedTx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.BuildCalls = append(m.BuildCalls, p)
	if m.BuildErr != nil {
		return nil, m.BuildErr
	}

	to := p.Buy.Address
	value := new(big.Int)
	if p.Sell.Type == gateway.AssetERC20 {
		to = p.Sell.Address
	} else if p.AmountIn != nil {
		value.Set(p.AmountIn)
	}
	seed := sha256.Sum256([]byte("build:" + to.Hex() + p.Sender.Hex()))
	return &gateway.UnsignedTx{
		From:         p.Sender,
		To:           to,
		Data:         seed[:8],
		Value:        (*hexutil.Big)(value),
		MinAmountOut: big.NewInt(0),
	}, nil
}

func (m *Minter) DeployedCoin(ctx context.Context, reader gateway.Reader, txHash common.Hash) (*gateway.DeployResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.ReceiptErrs[txHash]; ok {
		return nil, err
	}
	if res, ok := m.Receipts[txHash]; ok {
		return res, nil
	}
	return nil, gateway.ErrTxPending
}

func (m *Minter) CoinInfo(ctx context.Context, reader gateway.Reader, coin common.Address) (*gateway.CoinInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Info != nil {
		return m.Info, nil
	}
	return &gateway.CoinInfo{Name: "Mock Coin", Symbol: "MOCK", TotalSupply: big.NewInt(1_000_000_000)}, nil
}

// DeployCount returns how many deployments were attempted.
func (m *Minter) DeployCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.DeployCalls)
}

func (m *Minter) TradeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.TradeCalls)
}

// LastTrade returns the most recent trade params; ok=false when none.
func (m *Minter) LastTrade() (gateway.TradeParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.TradeCalls) == 0 {
		return gateway.TradeParams{}, false
	}
	return m.TradeCalls[len(m.TradeCalls)-1], true
}
