package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// =====================================================
// GATEWAY INTERFACES
// =====================================================

// Minter is the token-minting boundary: deploy a new coin, trade an existing one.
type Minter interface {
	// DeployCoin submits one deployment transaction and waits for its receipt.
	// It must never be retried by callers: a retry could mint twice.
	DeployCoin(ctx context.Context, clients Clients, params DeployParams) (*DeployResult, error)

	// TradeCoin executes a single buy or sell against the coin's pool.
	TradeCoin(ctx context.Context, clients Clients, params TradeParams) (*TradeReceipt, error)

	// BuildTrade quotes and encodes a trade for params.Sender to sign itself.
	// Không ký, không broadcast.
	BuildTrade(ctx context.Context, reader Reader, params TradeParams) (*UnsignedTx, error)
}

// DeployReceiptReader resolves a deployment that was broadcast but never confirmed.
type DeployReceiptReader interface {
	// DeployedCoin returns ErrTxPending while the tx is unmined and ErrTxReverted on failure.
	DeployedCoin(ctx context.Context, reader Reader, txHash common.Hash) (*DeployResult, error)
}

// CoinReader reads ERC-20 facts about a deployed coin.
type CoinReader interface {
	CoinInfo(ctx context.Context, reader Reader, coin common.Address) (*CoinInfo, error)
}

// Signer ký transactions bằng relayer key
type Signer interface {
	Address() common.Address
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// Reader is a read client that can also broadcast signed transactions.
// *ethclient.Client satisfies it.
type Reader interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Clients là cặp (signer, reader). Cả hai nil cho tới khi provider sẵn sàng.
type Clients struct {
	Signer Signer
	Reader Reader
}

// Ready reports whether both handles are populated.
func (c Clients) Ready() bool {
	return c.Signer != nil && c.Reader != nil
}

// =====================================================
// REQUEST/RESPONSE TYPES
// =====================================================

type DeployParams struct {
	Name             string
	Symbol           string
	URI              string
	PayoutRecipient  common.Address
	PlatformReferrer common.Address
	ChainID          int64
	Currency         common.Address // pool pairing token; WETH = ETH pair
	GasMultiplierPct int64          // 120 = estimated gas * 1.2
}

type DeployResult struct {
	Address common.Address
	TxHash  common.Hash
}

// AssetType phân biệt native ETH với ERC-20
type AssetType string

const (
	AssetETH   AssetType = "eth"
	AssetERC20 AssetType = "erc20"
)

type Asset struct {
	Type    AssetType
	Address common.Address // zero for ETH
}

func ETH() Asset { return Asset{Type: AssetETH} }

func ERC20(addr common.Address) Asset { return Asset{Type: AssetERC20, Address: addr} }

type TradeParams struct {
	Sell      Asset
	Buy       Asset
	AmountIn  *big.Int // base units of the sell asset
	Slippage  decimal.Decimal
	Sender    common.Address
	Recipient common.Address
}

type TradeReceipt struct {
	TxHash       common.Hash
	MinAmountOut *big.Int
}

// UnsignedTx là calldata để wallet của user tự ký
type UnsignedTx struct {
	From         common.Address `json:"from"`
	To           common.Address `json:"to"`
	Data         hexutil.Bytes  `json:"data"`
	Value        *hexutil.Big   `json:"value"`
	MinAmountOut *big.Int       `json:"min_amount_out"`
}

type CoinInfo struct {
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	TotalSupply *big.Int `json:"total_supply"`
}

var (
	ErrClientsNotReady  = errors.New("wallet clients not ready")
	ErrUnsupportedPair  = errors.New("unsupported trade pair: exactly one side must be ETH")
	ErrCoinNotInReceipt = errors.New("coin address not found in deployment receipt")
	ErrTxReverted       = errors.New("transaction reverted")
	ErrTxPending        = errors.New("transaction not yet mined")
)

// PendingTxError: tx đã broadcast nhưng chưa biết kết quả (receipt timeout, ctx cancel).
// Caller không được coi đây là thất bại hẳn.
type PendingTxError struct {
	TxHash common.Hash
	Err    error
}

func (e *PendingTxError) Error() string {
	return fmt.Sprintf("tx %s not confirmed: %v", e.TxHash.Hex(), e.Err)
}

func (e *PendingTxError) Unwrap() error {
	return e.Err
}
