package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	usermodel "wordmint-backend/internal/domains/user/model"
)

// =====================================================
// CREATE COIN
// =====================================================

type CreateCoinRequest struct {
	Content string `json:"content"`
}

func (r CreateCoinRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, 20000)),
	)
}

type CoinSummary struct {
	Address     string `json:"address"`
	TxHash      string `json:"tx_hash"`
	Symbol      string `json:"symbol"`
	Kind        Kind   `json:"kind"`
	MetadataURI string `json:"metadata_uri"`
}

type CreateCoinResponse struct {
	Writing   *Writing        `json:"writing"`
	Coin      CoinSummary     `json:"coin"`
	WordCount int             `json:"word_count"`
	StreakDay int             `json:"streak_day"`
	IsLegend  bool            `json:"is_111_legend"`
	Progress  float64         `json:"progress"`
	User      *usermodel.User `json:"user"`
}

// =====================================================
// TRADE
// =====================================================

type TradeCoinRequest struct {
	Amount    string   `json:"amount"`
	Direction string   `json:"direction"`
	Slippage  *float64 `json:"slippage"`
	Recipient string   `json:"recipient"`
}

func (r TradeCoinRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Amount, validation.Required),
		validation.Field(&r.Direction, validation.Required, validation.In(string(DirectionBuy), string(DirectionSell))),
		validation.Field(&r.Slippage, validation.Min(0.0), validation.Max(1.0).Exclusive()),
	)
}

// =====================================================
// QUERIES
// =====================================================

type OnChainInfo struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	TotalSupply string `json:"total_supply"`
}

type CoinDetailResponse struct {
	Writing *WritingWithAuthor `json:"writing"`
	OnChain *OnChainInfo       `json:"on_chain,omitempty"`
}

type WroteTodayResponse struct {
	FID        int64  `json:"fid"`
	Date       string `json:"date"`
	WroteToday bool   `json:"wrote_today"`
}

type ListWritingsResponse struct {
	Writings []*Writing `json:"writings"`
}

type DiagnosticsResponse struct {
	PinningConfigured  bool      `json:"pinning_configured"`
	WalletConfigured   bool      `json:"wallet_configured"`
	WalletConnected    bool      `json:"wallet_connected"`
	WalletAddress      string    `json:"wallet_address,omitempty"`
	TestPinURI         string    `json:"test_pin_uri,omitempty"`
	TestPinPlaceholder bool      `json:"test_pin_placeholder"`
	TestPinError       string    `json:"test_pin_error,omitempty"`
	TestPinCheckedAt   time.Time `json:"test_pin_checked_at,omitzero"`
	CheckedAt          time.Time `json:"checked_at"`
}
