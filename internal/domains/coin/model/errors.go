package model

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrCodeInvalidSubmission   = "COIN001"
	ErrCodeBelowMinWords       = "COIN002"
	ErrCodeAlreadyWroteToday   = "COIN003"
	ErrCodeCreateInProgress    = "COIN004"
	ErrCodeWalletNotConnected  = "COIN005"
	ErrCodeWalletTimeout       = "COIN006"
	ErrCodeDeployFailed        = "COIN007"
	ErrCodePersistence         = "COIN008"
	ErrCodeWritingNotFound     = "COIN009"
	ErrCodeInvalidAddress      = "COIN010"
	ErrCodeInvalidTrade        = "COIN011"
	ErrCodeTradeFailed         = "COIN012"
	ErrCodeUserNotFound        = "COIN013"
	ErrCodeMintNotFound        = "COIN014"
	ErrCodeInvalidStatusChange = "COIN015"
	ErrCodeMintPending         = "COIN016"
	ErrCodeSpendCapExceeded    = "COIN017"
)

var (
	ErrInvalidSubmission  = errors.New("invalid coin parameters")
	ErrBelowMinWords      = errors.New("writing is below the minimum word count")
	ErrAlreadyWroteToday  = errors.New("already wrote today")
	ErrCreateInProgress   = errors.New("a coin for today is already being created")
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrWalletTimeout      = errors.New("wallet not ready")
	ErrDeployFailed       = errors.New("coin deployment failed")
	// ErrPersistence: message cố ý chung chung, chi tiết nằm trong log
	ErrPersistence         = errors.New("failed to save writing")
	ErrWritingNotFound     = errors.New("writing not found")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInvalidTrade        = errors.New("invalid trade request")
	ErrTradeFailed         = errors.New("trade failed")
	ErrMintNotFound        = errors.New("mint intent not found")
	ErrInvalidStatusChange = errors.New("invalid mint status transition")
	ErrMintPending         = errors.New("coin transaction sent, waiting for confirmation")
	ErrSpendCapExceeded    = errors.New("daily trade limit reached")
	ErrForeignRecipient    = errors.New("recipient must be your own wallet address")
)

// CoinError mang code cho HTTP layer
type CoinError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoinError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CoinError) Unwrap() error {
	return e.Err
}

func NewCoinError(code, message string, err error) *CoinError {
	return &CoinError{Code: code, Message: message, Err: err}
}

// ========================================
// CONSTRUCTORS
// ========================================

func NewInvalidSubmission(cause error) *CoinError {
	return &CoinError{Code: ErrCodeInvalidSubmission, Message: "invalid coin parameters: " + cause.Error(), Err: ErrInvalidSubmission}
}

func NewBelowMinWords(words, min int) *CoinError {
	return &CoinError{
		Code:    ErrCodeBelowMinWords,
		Message: fmt.Sprintf("write at least %d words to create a coin (got %d)", min, words),
		Err:     ErrBelowMinWords,
	}
}

func NewAlreadyWroteToday() *CoinError {
	return &CoinError{Code: ErrCodeAlreadyWroteToday, Message: "you already wrote today, come back tomorrow", Err: ErrAlreadyWroteToday}
}

func NewCreateInProgress() *CoinError {
	return &CoinError{Code: ErrCodeCreateInProgress, Message: ErrCreateInProgress.Error(), Err: ErrCreateInProgress}
}

func NewWalletNotConnected() *CoinError {
	return &CoinError{Code: ErrCodeWalletNotConnected, Message: ErrWalletNotConnected.Error(), Err: ErrWalletNotConnected}
}

func NewWalletTimeout() *CoinError {
	return &CoinError{Code: ErrCodeWalletTimeout, Message: "wallet not ready, please try again", Err: ErrWalletTimeout}
}

func NewDeployFailed(reason string) *CoinError {
	return &CoinError{Code: ErrCodeDeployFailed, Message: reason, Err: ErrDeployFailed}
}

func NewPersistenceError() *CoinError {
	return &CoinError{Code: ErrCodePersistence, Message: ErrPersistence.Error(), Err: ErrPersistence}
}

func NewInvalidAddress(field string) *CoinError {
	return &CoinError{Code: ErrCodeInvalidAddress, Message: field + " must be a 0x-prefixed 20-byte hex address", Err: ErrInvalidAddress}
}

func NewInvalidTrade(cause error) *CoinError {
	return &CoinError{Code: ErrCodeInvalidTrade, Message: cause.Error(), Err: ErrInvalidTrade}
}

func NewMintPending(txHash string) *CoinError {
	return &CoinError{Code: ErrCodeMintPending, Message: ErrMintPending.Error() + " (tx " + txHash + ")", Err: ErrMintPending}
}

func NewSpendCapExceeded(limit string) *CoinError {
	return &CoinError{
		Code:    ErrCodeSpendCapExceeded,
		Message: fmt.Sprintf("daily trade limit of %s ETH reached, try again tomorrow", limit),
		Err:     ErrSpendCapExceeded,
	}
}
