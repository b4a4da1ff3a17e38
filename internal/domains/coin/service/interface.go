package service

import (
	"context"

	"wordmint-backend/internal/domains/coin/model"
	"wordmint-backend/internal/shared/session"
)

// =====================================================
// COIN SERVICE INTERFACE
// =====================================================

type ServiceInterface interface {
	// CreateCoin tạo writing + coin cho ngày hôm nay của author
	CreateCoin(ctx context.Context, sess session.Session, req model.CreateCoinRequest) (*model.CreateCoinResponse, error)

	// Trade buy/sell một coin bằng relayer wallet
	Trade(ctx context.Context, sess session.Session, coinAddress string, req model.TradeCoinRequest) (*model.TradeResult, error)

	GetCoinDetail(ctx context.Context, address string) (*model.CoinDetailResponse, error)
	ListWritings(ctx context.Context, fid int64, limit int) (*model.ListWritingsResponse, error)
	WroteToday(ctx context.Context, fid int64) (*model.WroteTodayResponse, error)
	DailyStats(ctx context.Context) (*model.DailyStats, error)
	Diagnostics(ctx context.Context) (*model.DiagnosticsResponse, error)
}
