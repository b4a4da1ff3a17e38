package model

import (
	"math/big"
	"time"

	"github.com/google/uuid"

	usermodel "wordmint-backend/internal/domains/user/model"
)

// =====================================================
// WRITING ENTITY
// =====================================================

type Writing struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	FID           int64     `json:"fid" db:"fid"`
	Content       string    `json:"content" db:"content"`
	WordCount     int       `json:"word_count" db:"word_count"`
	StreakDay     int       `json:"streak_day" db:"streak_day"`
	Is111Legend   bool      `json:"is_111_legend" db:"is_111_legend"`
	CoinAddress   *string   `json:"coin_address,omitempty" db:"coin_address"`
	TxHash        *string   `json:"tx_hash,omitempty" db:"tx_hash"`
	CoinSymbol    *string   `json:"coin_symbol,omitempty" db:"coin_symbol"`
	CoinSimulated bool      `json:"coin_simulated" db:"coin_simulated"`
	MetadataURI   *string   `json:"metadata_uri,omitempty" db:"metadata_uri"`
	WriteDate     time.Time `json:"write_date" db:"write_date"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// WritingWithAuthor dùng cho coin detail (join users)
type WritingWithAuthor struct {
	Writing
	Author Author `json:"author"`
}

// CommitResult is what one atomic commit wrote.
type CommitResult struct {
	Writing *Writing        `json:"writing"`
	User    *usermodel.User `json:"user"`
}

// =====================================================
// MINT INTENT
// =====================================================

type MintStatus string

const (
	MintPendingChain   MintStatus = "pending_chain"
	MintChainConfirmed MintStatus = "chain_confirmed"
	MintPersisted      MintStatus = "persisted"
	MintFailed         MintStatus = "failed"
	MintOrphaned       MintStatus = "orphaned"
)

// CanTransition: pending_chain -> chain_confirmed -> persisted,
// pending_chain -> failed, pending_chain|chain_confirmed -> orphaned.
func (s MintStatus) CanTransition(to MintStatus) bool {
	switch s {
	case MintPendingChain:
		return to == MintChainConfirmed || to == MintFailed || to == MintOrphaned
	case MintChainConfirmed:
		return to == MintPersisted || to == MintOrphaned
	default:
		return false
	}
}

// Mint là bản ghi intent của một lần mint, sống lâu hơn request.
type Mint struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	FID         int64        `json:"fid" db:"fid"`
	Symbol      string       `json:"symbol" db:"symbol"`
	MetadataURI string       `json:"metadata_uri" db:"metadata_uri"`
	Status      MintStatus   `json:"status" db:"status"`
	Simulated   bool         `json:"simulated" db:"simulated"`
	CoinAddress *string      `json:"coin_address,omitempty" db:"coin_address"`
	TxHash      *string      `json:"tx_hash,omitempty" db:"tx_hash"`
	Error       *string      `json:"error,omitempty" db:"error"`
	Payload     CommitParams `json:"payload" db:"payload"`
	Attempts    int          `json:"attempts" db:"attempts"`
	WritingID   *uuid.UUID   `json:"writing_id,omitempty" db:"writing_id"`
	WriteDate   time.Time    `json:"write_date" db:"write_date"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// =====================================================
// RELAYED SPEND ENTITY
// =====================================================

type SpendStatus string

const (
	SpendReserved SpendStatus = "reserved"
	SpendSettled  SpendStatus = "settled"
	SpendReleased SpendStatus = "released"
)

// Spend là ETH relayer wallet chi cho một buy thay mặt fid.
// reserved và settled đều tính vào hạn mức ngày; released thì không.
type Spend struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	FID         int64       `json:"fid" db:"fid"`
	CoinAddress string      `json:"coin_address" db:"coin_address"`
	AmountWei   *big.Int    `json:"amount_wei" db:"amount_wei"`
	Status      SpendStatus `json:"status" db:"status"`
	TxHash      *string     `json:"tx_hash,omitempty" db:"tx_hash"`
	SpendDate   time.Time   `json:"spend_date" db:"spend_date"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// =====================================================
// STATS
// =====================================================

type DailyStats struct {
	Day            time.Time `json:"day" db:"day"`
	Writers        int       `json:"writers" db:"writers"`
	Writings       int       `json:"writings" db:"writings"`
	TotalWords     int64     `json:"total_words" db:"total_words"`
	AvgWordCount   float64   `json:"avg_word_count" db:"avg_word_count"`
	LegendWritings int       `json:"legend_writings" db:"legend_writings"`
}
