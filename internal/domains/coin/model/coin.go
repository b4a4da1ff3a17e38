package model

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Submission là input của workflow tạo coin, dùng một lần.
type Submission struct {
	Content        string
	WordCount      int
	StreakDay      int
	AuthorFID      int64
	AuthorAddress  string
	AuthorHandle   string
	PriorCoinCount int
}

// Index is the 1-based number of the coin about to be minted.
func (s Submission) Index() int {
	return s.PriorCoinCount + 1
}

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// CoinMetadata is the document published to IPFS and referenced by the coin.
type CoinMetadata struct {
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Content     string      `json:"content"`
	Attributes  []Attribute `json:"attributes"`
}

// Kind tags how a successful deployment result was produced.
type Kind string

const (
	KindReal      Kind = "real"
	KindSimulated Kind = "simulated"
)

// DeploymentResult: Success => CoinAddress và TxHash đều hợp lệ.
type DeploymentResult struct {
	Success     bool   `json:"success"`
	Kind        Kind   `json:"kind,omitempty"`
	CoinAddress string `json:"coin_address,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
	Error       string `json:"error,omitempty"`

	// PendingTxHash: deploy tx đã broadcast nhưng chưa có receipt.
	// Khi set, coin có thể vẫn xuất hiện trên chain: không được simulate thay thế.
	PendingTxHash string `json:"pending_tx_hash,omitempty"`
}

func (r DeploymentResult) Simulated() bool {
	return r.Kind == KindSimulated
}

// =====================================================
// TRADE
// =====================================================

type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

type TradeRequest struct {
	FID         int64
	Owner       string // wallet address của session; người nhận duy nhất được phép
	CoinAddress string
	Amount      string // decimal, 18 decimals max
	Direction   Direction
	Slippage    *float64 // nil = default theo direction
	Recipient   string   // optional, phải trùng Owner
}

// UnsignedTx là sell tx để wallet của user tự ký; relayer không giữ coin của user.
type UnsignedTx struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"` // wei
}

type TradeResult struct {
	Success      bool        `json:"success"`
	Direction    Direction   `json:"direction"`
	SellAsset    string      `json:"sell_asset,omitempty"`
	BuyAsset     string      `json:"buy_asset,omitempty"`
	AmountIn     string      `json:"amount_in,omitempty"` // base units
	Slippage     float64     `json:"slippage"`
	TxHash       string      `json:"tx_hash,omitempty"`
	UnsignedTx   *UnsignedTx `json:"unsigned_tx,omitempty"`
	MinAmountOut *big.Int    `json:"min_amount_out,omitempty"`
	Error        string      `json:"error,omitempty"`
	ErrorCode    string      `json:"error_code,omitempty"`
}

// =====================================================
// PERSISTENCE
// =====================================================

// Author is the identity snapshot written alongside a writing.
type Author struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	PfpURL      string `json:"pfp_url,omitempty"`
	Address     string `json:"address,omitempty"`
}

type CoinRef struct {
	Address     string `json:"address"`
	TxHash      string `json:"tx_hash"`
	Symbol      string `json:"symbol"`
	Simulated   bool   `json:"simulated"`
	MetadataURI string `json:"metadata_uri"`
}

// CommitParams là payload của một lần commit; được lưu nguyên vẹn trên mint intent
// để reconciler có thể commit lại.
type CommitParams struct {
	MintID    *uuid.UUID `json:"mint_id,omitempty"`
	Author    Author     `json:"author"`
	Content   string     `json:"content"`
	WordCount int        `json:"word_count"`
	StreakDay int        `json:"streak_day,omitempty"` // streak day in metadata, dùng khi commit backdated
	WriteDate time.Time  `json:"write_date"`
	Coin      *CoinRef   `json:"coin,omitempty"`
}
