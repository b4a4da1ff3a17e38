package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordmint-backend/internal/domains/coin/gateway/mock"
	"wordmint-backend/internal/domains/coin/model"
)

// jsonCache giữ values đã encode, giống RedisCache
type jsonCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (c *jsonCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *jsonCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	c.sets++
	return nil
}

func (c *jsonCache) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}
func (c *jsonCache) Delete(context.Context, ...string) error { return nil }
func (c *jsonCache) Ping(context.Context) error              { return nil }

type queryWritings struct {
	fakeWritings
	mu       sync.Mutex
	byCoin   map[string]*model.WritingWithAuthor
	lookups  int
	limit    int
	dayAsked time.Time
}

func (q *queryWritings) GetByCoinAddress(_ context.Context, addr string) (*model.WritingWithAuthor, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lookups++
	w, ok := q.byCoin[strings.ToLower(addr)]
	if !ok {
		return nil, model.ErrWritingNotFound
	}
	return w, nil
}

func (q *queryWritings) ListByFID(_ context.Context, _ int64, limit int) ([]*model.Writing, error) {
	q.limit = limit
	return nil, nil
}

func (q *queryWritings) WroteOn(_ context.Context, _ int64, day time.Time) (bool, error) {
	q.dayAsked = day
	return q.wrote, nil
}

type serviceHarness struct {
	svc      *coinService
	minter   *mock.Minter
	writings *queryWritings
	cache    *jsonCache
	pinner   *fakePinner
	wallet   *pollingWallet
}

func newServiceHarness() *serviceHarness {
	h := &serviceHarness{
		minter:   mock.NewMinter(),
		writings: &queryWritings{byCoin: map[string]*model.WritingWithAuthor{}},
		cache:    &jsonCache{data: map[string][]byte{}},
		pinner:   &fakePinner{},
		wallet:   readyWallet(),
	}
	trader := newTestTrader(h.minter, newFakeSpends())
	h.svc = NewCoinService(ServiceDeps{
		Trader:     trader,
		Writings:   h.writings,
		CoinReader: h.minter,
		Pinner:     h.pinner,
		Wallet:     h.wallet,
		Cache:      h.cache,
	}).(*coinService)
	h.svc.now = func() time.Time { return workflowNow }
	return h
}

func (h *serviceHarness) addWriting(addr string, simulated bool) {
	a := addr
	h.writings.byCoin[strings.ToLower(addr)] = &model.WritingWithAuthor{
		Writing: model.Writing{FID: 42, WordCount: 120, StreakDay: 3, CoinAddress: &a, CoinSimulated: simulated},
		Author:  model.Author{FID: 42, Username: "alice"},
	}
}

// =====================================================
// COIN DETAIL
// =====================================================

func TestGetCoinDetail_MergesOnChainInfo(t *testing.T) {
	h := newServiceHarness()
	h.addWriting(coinAddr, false)

	resp, err := h.svc.GetCoinDetail(context.Background(), coinAddr)
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Writing.Author.Username)
	require.NotNil(t, resp.OnChain)
	assert.Equal(t, "MOCK", resp.OnChain.Symbol)
	assert.Equal(t, "1000000000", resp.OnChain.TotalSupply)
}

func TestGetCoinDetail_SimulatedCoinHasNoOnChainInfo(t *testing.T) {
	h := newServiceHarness()
	h.addWriting(coinAddr, true)

	resp, err := h.svc.GetCoinDetail(context.Background(), coinAddr)
	require.NoError(t, err)
	assert.Nil(t, resp.OnChain)
}

func TestGetCoinDetail_WalletDisconnectedStillServesDB(t *testing.T) {
	h := newServiceHarness()
	h.wallet.readyAfter = 0
	h.addWriting(coinAddr, false)

	resp, err := h.svc.GetCoinDetail(context.Background(), coinAddr)
	require.NoError(t, err)
	assert.Nil(t, resp.OnChain)
	assert.Equal(t, 120, resp.Writing.WordCount)
}

func TestGetCoinDetail_ServedFromCache(t *testing.T) {
	h := newServiceHarness()
	h.addWriting(coinAddr, false)

	_, err := h.svc.GetCoinDetail(context.Background(), coinAddr)
	require.NoError(t, err)
	second, err := h.svc.GetCoinDetail(context.Background(), coinAddr)
	require.NoError(t, err)

	assert.Equal(t, 1, h.writings.lookups)
	assert.Equal(t, 1, h.cache.sets)
	assert.Equal(t, "alice", second.Writing.Author.Username)
	_, ok := h.cache.data["coin:detail:"+coinAddr]
	assert.True(t, ok)
}

func TestGetCoinDetail_Errors(t *testing.T) {
	h := newServiceHarness()

	_, err := h.svc.GetCoinDetail(context.Background(), "0x1234")
	assert.ErrorIs(t, err, model.ErrInvalidAddress)

	_, err = h.svc.GetCoinDetail(context.Background(), coinAddr)
	assert.ErrorIs(t, err, model.ErrWritingNotFound)
	var ce *model.CoinError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, model.ErrCodeWritingNotFound, ce.Code)
	assert.Empty(t, h.cache.data)
}

// =====================================================
// QUERIES
// =====================================================

func TestListWritings_ClampsLimit(t *testing.T) {
	h := newServiceHarness()

	resp, err := h.svc.ListWritings(context.Background(), 42, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, h.writings.limit)
	assert.NotNil(t, resp.Writings)

	_, err = h.svc.ListWritings(context.Background(), 42, 5000)
	require.NoError(t, err)
	assert.Equal(t, 100, h.writings.limit)
}

func TestWroteToday_UsesUTCDay(t *testing.T) {
	h := newServiceHarness()
	h.writings.wrote = true

	resp, err := h.svc.WroteToday(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, resp.WroteToday)
	assert.Equal(t, "2025-03-10", resp.Date)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), h.writings.dayAsked)
}

// =====================================================
// TRADE
// =====================================================

func TestServiceTrade(t *testing.T) {
	h := newServiceHarness()

	res, err := h.svc.Trade(context.Background(), aliceSession(), coinAddr, model.TradeCoinRequest{Amount: "0.01", Direction: "buy"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, h.minter.TradeCount())

	p, _ := h.minter.LastTrade()
	assert.Equal(t, common.HexToAddress(aliceAddr), p.Recipient)
}

func TestServiceTrade_SessionWithoutWallet(t *testing.T) {
	h := newServiceHarness()
	sess := aliceSession()
	sess.Address = ""

	_, err := h.svc.Trade(context.Background(), sess, coinAddr, model.TradeCoinRequest{Amount: "0.01", Direction: "buy"})
	var ce *model.CoinError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.ErrCodeInvalidAddress, ce.Code)
	assert.Zero(t, h.minter.TradeCount())
}

func TestServiceTrade_InvalidInputRejectedBeforeWallet(t *testing.T) {
	h := newServiceHarness()

	cases := map[string]model.TradeCoinRequest{
		"no amount":     {Direction: "buy"},
		"bad direction": {Amount: "1", Direction: "hold"},
		"slippage at 1": {Amount: "1", Direction: "sell", Slippage: floatPtr(1)},
		"bad amount":    {Amount: "-3", Direction: "buy"},
		"bad recipient": {Amount: "1", Direction: "buy", Recipient: "bob"},
		"other wallet":  {Amount: "1", Direction: "buy", Recipient: ownerAddr},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.svc.Trade(context.Background(), aliceSession(), coinAddr, req)
			require.Error(t, err)
			var ce *model.CoinError
			require.True(t, errors.As(err, &ce))
			assert.Contains(t, []string{model.ErrCodeInvalidTrade, model.ErrCodeInvalidAddress}, ce.Code)
		})
	}
	assert.Zero(t, h.minter.TradeCount())
	assert.Zero(t, h.wallet.Polls())
}

func TestServiceTrade_FailureCarriesResult(t *testing.T) {
	h := newServiceHarness()
	h.minter.BuildErr = errors.New("execution reverted")

	res, err := h.svc.Trade(context.Background(), aliceSession(), coinAddr, model.TradeCoinRequest{Amount: "1", Direction: "sell"})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, model.ErrCodeTradeFailed, res.ErrorCode)
	assert.ErrorIs(t, err, model.ErrTradeFailed)
}

func TestServiceTrade_WalletNotConnected(t *testing.T) {
	h := newServiceHarness()
	h.wallet.connected = false

	_, err := h.svc.Trade(context.Background(), aliceSession(), coinAddr, model.TradeCoinRequest{Amount: "1", Direction: "buy"})
	var ce *model.CoinError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, model.ErrCodeWalletNotConnected, ce.Code)
}

func floatPtr(f float64) *float64 { return &f }

// =====================================================
// DIAGNOSTICS
// =====================================================

func TestDiagnostics_NoPinningCredential(t *testing.T) {
	h := newServiceHarness()

	resp, err := h.svc.Diagnostics(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.PinningConfigured)
	assert.True(t, resp.TestPinPlaceholder)
	assert.Equal(t, model.PlaceholderMetadataURI, resp.TestPinURI)
	assert.True(t, resp.WalletConfigured)
	assert.True(t, resp.WalletConnected)
	assert.Equal(t, aliceAddr, resp.WalletAddress)
	assert.Zero(t, h.pinner.calls)
}

func TestDiagnostics_TestPin(t *testing.T) {
	h := newServiceHarness()
	h.pinner.cred = true
	h.pinner.cid = "bafydiag"

	resp, err := h.svc.Diagnostics(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.PinningConfigured)
	assert.Equal(t, "ipfs://bafydiag", resp.TestPinURI)
	assert.False(t, resp.TestPinPlaceholder)
	require.Len(t, h.pinner.docs, 1)
	assert.True(t, json.Valid(h.pinner.docs[0]))

	h.pinner.err = errors.New("401 unauthorized")
	h.cache.data = map[string][]byte{}
	resp, err = h.svc.Diagnostics(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.TestPinPlaceholder)
	assert.Contains(t, resp.TestPinError, "401")
}

func TestDiagnostics_TestPinIsCached(t *testing.T) {
	h := newServiceHarness()
	h.pinner.cred = true
	h.pinner.cid = "bafydiag"

	first, err := h.svc.Diagnostics(context.Background())
	require.NoError(t, err)

	h.svc.now = func() time.Time { return workflowNow.Add(time.Minute) }
	second, err := h.svc.Diagnostics(context.Background())
	require.NoError(t, err)

	// lần gọi thứ hai không upload thêm
	assert.Len(t, h.pinner.docs, 1)
	assert.Equal(t, first.TestPinURI, second.TestPinURI)
	assert.Equal(t, workflowNow.UTC(), second.TestPinCheckedAt)
	assert.Equal(t, workflowNow.Add(time.Minute).UTC(), second.CheckedAt)
}
