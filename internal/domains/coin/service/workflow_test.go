package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordmint-backend/internal/domains/coin/gateway"
	"wordmint-backend/internal/domains/coin/gateway/mock"
	"wordmint-backend/internal/domains/coin/model"
	usermodel "wordmint-backend/internal/domains/user/model"
	"wordmint-backend/internal/shared"
	"wordmint-backend/internal/shared/session"
)

// =====================================================
// FAKES
// =====================================================

type memCache struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (c *memCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (c *memCache) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}

func (c *memCache) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = value
	return true, nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) Ping(context.Context) error { return nil }

type fakeUsers struct {
	users       map[int64]*usermodel.User
	invalidated []int64
}

func (f *fakeUsers) GetByFID(_ context.Context, fid int64) (*usermodel.User, error) {
	u, ok := f.users[fid]
	if !ok {
		return nil, usermodel.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Upsert(context.Context, usermodel.Profile) (*usermodel.User, error) {
	return nil, errors.New("not used")
}

func (f *fakeUsers) InvalidateCache(_ context.Context, fid int64) error {
	f.invalidated = append(f.invalidated, fid)
	return nil
}

type fakeMints struct {
	mu       sync.Mutex
	mints    map[uuid.UUID]*model.Mint
	attempts map[uuid.UUID]int
}

func newFakeMints() *fakeMints {
	return &fakeMints{mints: map[uuid.UUID]*model.Mint{}, attempts: map[uuid.UUID]int{}}
}

func (f *fakeMints) CreateIntent(_ context.Context, m *model.Mint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = uuid.New()
	m.Status = model.MintPendingChain
	cp := *m
	f.mints[m.ID] = &cp
	return nil
}

func (f *fakeMints) GetByID(_ context.Context, id uuid.UUID) (*model.Mint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mints[id]
	if !ok {
		return nil, model.ErrMintNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMints) move(id uuid.UUID, to model.MintStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mints[id]
	if !ok {
		return model.ErrMintNotFound
	}
	if !m.Status.CanTransition(to) {
		return model.ErrInvalidStatusChange
	}
	m.Status = to
	return nil
}

func (f *fakeMints) MarkChainConfirmed(_ context.Context, id uuid.UUID, res model.DeploymentResult, payload model.CommitParams) error {
	if err := f.move(id, model.MintChainConfirmed); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mints[id].Simulated = res.Simulated()
	f.mints[id].Payload = payload
	return nil
}

func (f *fakeMints) RecordPendingTx(_ context.Context, id uuid.UUID, txHash, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mints[id]
	if !ok {
		return model.ErrMintNotFound
	}
	if m.Status != model.MintPendingChain {
		return model.ErrInvalidStatusChange
	}
	m.TxHash, m.Error = &txHash, &reason
	return nil
}

func (f *fakeMints) MarkFailed(_ context.Context, id uuid.UUID, _ string) error {
	return f.move(id, model.MintFailed)
}

func (f *fakeMints) MarkOrphaned(_ context.Context, id uuid.UUID, _ string) error {
	return f.move(id, model.MintOrphaned)
}

func (f *fakeMints) RecordCommitFailure(_ context.Context, id uuid.UUID, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[id]++
	return f.attempts[id], nil
}

func (f *fakeMints) ListStale(_ context.Context, status model.MintStatus, cutoff time.Time, limit int) ([]*model.Mint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Mint
	for _, m := range f.mints {
		if m.Status == status && m.UpdatedAt.Before(cutoff) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// put seeds an intent directly, bypassing CreateIntent
func (f *fakeMints) put(m *model.Mint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	f.mints[m.ID] = &cp
}

func (f *fakeMints) status(id uuid.UUID) model.MintStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mints[id].Status
}

func (f *fakeMints) only(t *testing.T) *model.Mint {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.mints, 1)
	for _, m := range f.mints {
		return m
	}
	return nil
}

type fakeWritings struct {
	users     *fakeUsers
	mints     *fakeMints
	commitErr error
	wrote     bool
	commits   []model.CommitParams
	saved     []*model.Writing
}

func (f *fakeWritings) CommitWriting(ctx context.Context, p model.CommitParams) (*model.CommitResult, error) {
	f.commits = append(f.commits, p)
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	u, ok := f.users.users[p.Author.FID]
	if !ok {
		u = &usermodel.User{FID: p.Author.FID, Username: p.Author.Username}
		f.users.users[p.Author.FID] = u
	}
	backdated := u.Backdated(p.WriteDate)
	u.ApplyWriting(p.WriteDate, p.WordCount, p.Coin != nil)
	w := &model.Writing{ID: uuid.New(), FID: p.Author.FID, WordCount: p.WordCount, StreakDay: u.CurrentStreak, Is111Legend: model.IsLegend(p.WordCount), WriteDate: p.WriteDate}
	if backdated {
		w.StreakDay = max(p.StreakDay, 1)
	}
	if p.Coin != nil {
		w.CoinAddress, w.CoinSymbol, w.CoinSimulated = &p.Coin.Address, &p.Coin.Symbol, p.Coin.Simulated
	}
	if p.MintID != nil {
		if err := f.mints.move(*p.MintID, model.MintPersisted); err != nil {
			return nil, err
		}
	}
	f.saved = append(f.saved, w)
	cp := *u
	return &model.CommitResult{Writing: w, User: &cp}, nil
}

func (f *fakeWritings) GetByCoinAddress(context.Context, string) (*model.WritingWithAuthor, error) {
	return nil, model.ErrWritingNotFound
}

func (f *fakeWritings) ListByFID(context.Context, int64, int) ([]*model.Writing, error) {
	return nil, nil
}

func (f *fakeWritings) WroteOn(context.Context, int64, time.Time) (bool, error) { return f.wrote, nil }

func (f *fakeWritings) GetDailyStats(context.Context, time.Time) (*model.DailyStats, error) {
	return &model.DailyStats{}, nil
}

type fakeEnqueuer struct {
	payloads []shared.ReconcileMintsPayload
}

func (f *fakeEnqueuer) EnqueueReconcile(_ context.Context, p shared.ReconcileMintsPayload) error {
	f.payloads = append(f.payloads, p)
	return nil
}

// =====================================================
// HARNESS
// =====================================================

type harness struct {
	wf       *Workflow
	minter   *mock.Minter
	users    *fakeUsers
	mints    *fakeMints
	writings *fakeWritings
	locks    *memCache
	queue    *fakeEnqueuer
}

var workflowNow = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

func newHarness(cfg WorkflowConfig) *harness {
	h := &harness{
		minter: mock.NewMinter(),
		users:  &fakeUsers{users: map[int64]*usermodel.User{}},
		mints:  newFakeMints(),
		locks:  newMemCache(),
		queue:  &fakeEnqueuer{},
	}
	h.writings = &fakeWritings{users: h.users, mints: h.mints}

	h.wf = NewWorkflow(WorkflowDeps{
		Users:     h.users,
		Writings:  h.writings,
		Mints:     h.mints,
		Locks:     h.locks,
		Publisher: NewPublisher(&fakePinner{}, nil, nil),
		Gate:      NewReadinessGate(time.Millisecond, 3),
		Deployer:  NewDeployer(h.minter, DeployerConfig{ChainID: 8453, Currency: wethAddr}),
		Simulator: NewSimulator(0),
		Enqueuer:  h.queue,
	}, cfg)
	h.wf.now = func() time.Time { return workflowNow }
	return h
}

func aliceSession() session.Session {
	return session.Session{FID: 42, Username: "alice", Address: aliceAddr}
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func readyWallet() *pollingWallet { return &pollingWallet{connected: true, readyAfter: 1} }

// =====================================================
// TESTS
// =====================================================

func TestCreateCoin_ScenarioA_RealDeployment(t *testing.T) {
	h := newHarness(WorkflowConfig{})

	resp, err := h.wf.CreateCoin(context.Background(), aliceSession(), readyWallet(), model.CreateCoinRequest{Content: words(150)})
	require.NoError(t, err)

	assert.Equal(t, "ALICE1", resp.Coin.Symbol)
	assert.Equal(t, model.KindReal, resp.Coin.Kind)
	assert.Equal(t, model.PlaceholderMetadataURI, resp.Coin.MetadataURI)
	assert.True(t, resp.IsLegend)
	assert.Equal(t, 150, resp.WordCount)
	assert.Equal(t, 1, resp.StreakDay)
	assert.Equal(t, 1.0, resp.Progress)
	assert.Equal(t, 1, resp.User.TotalCoins)

	require.Equal(t, 1, h.minter.DeployCount())
	assert.Equal(t, common.HexToAddress(aliceAddr), h.minter.DeployCalls[0].PayoutRecipient)

	assert.Equal(t, model.MintPersisted, h.mints.only(t).Status)
	assert.Empty(t, h.locks.data, "lock must be released")
	assert.Equal(t, []int64{42}, h.users.invalidated)
}

func TestCreateCoin_ScenarioB_WalletNeverReadyFallsBack(t *testing.T) {
	h := newHarness(WorkflowConfig{FallbackOnUnready: true})
	w := &pollingWallet{connected: true}

	resp, err := h.wf.CreateCoin(context.Background(), aliceSession(), w, model.CreateCoinRequest{Content: words(120)})
	require.NoError(t, err)

	assert.Zero(t, h.minter.DeployCount())
	assert.Equal(t, 3, w.Polls())
	assert.Equal(t, model.KindSimulated, resp.Coin.Kind)
	assert.Regexp(t, addrRegex, resp.Coin.Address)
	assert.Regexp(t, hashRegex, resp.Coin.TxHash)
	assert.True(t, resp.Writing.CoinSimulated)
	assert.True(t, h.mints.only(t).Simulated)
}

func TestCreateCoin_UnreadyWithoutFallback(t *testing.T) {
	tests := []struct {
		name   string
		wallet *pollingWallet
		want   error
	}{
		{"not connected", &pollingWallet{connected: false}, model.ErrWalletNotConnected},
		{"timed out", &pollingWallet{connected: true}, model.ErrWalletTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(WorkflowConfig{FallbackOnUnready: false})

			_, err := h.wf.CreateCoin(context.Background(), aliceSession(), tt.wallet, model.CreateCoinRequest{Content: words(120)})
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, h.minter.DeployCount())
			assert.Empty(t, h.writings.commits)
			assert.Equal(t, model.MintFailed, h.mints.only(t).Status)
			assert.Empty(t, h.locks.data)
		})
	}
}

func TestCreateCoin_DeployErrorIsNotRetried(t *testing.T) {
	h := newHarness(WorkflowConfig{FallbackOnDeployError: false})
	h.minter.DeployErr = errors.New("insufficient funds for gas")

	_, err := h.wf.CreateCoin(context.Background(), aliceSession(), readyWallet(), model.CreateCoinRequest{Content: words(120)})

	var ce *model.CoinError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.ErrCodeDeployFailed, ce.Code)
	assert.Equal(t, "insufficient funds for gas", ce.Message)
	assert.Equal(t, 1, h.minter.DeployCount())
	assert.Empty(t, h.writings.commits)
	assert.Equal(t, model.MintFailed, h.mints.only(t).Status)
}

func TestCreateCoin_DeployErrorWithFallback(t *testing.T) {
	h := newHarness(WorkflowConfig{FallbackOnDeployError: true})
	h.minter.DeployErr = errors.New("rpc timeout")

	resp, err := h.wf.CreateCoin(context.Background(), aliceSession(), readyWallet(), model.CreateCoinRequest{Content: words(120)})
	require.NoError(t, err)
	assert.Equal(t, model.KindSimulated, resp.Coin.Kind)
	assert.Equal(t, 1, h.minter.DeployCount())
}

func TestCreateCoin_RejectsBeforeSpending(t *testing.T) {
	yesterday := usermodel.Day(workflowNow.AddDate(0, 0, -1))
	today := usermodel.Day(workflowNow)

	tests := []struct {
		name  string
		setup func(*harness)
		sess  session.Session
		body  string
		code  string
	}{
		{"empty content", nil, aliceSession(), "", model.ErrCodeInvalidSubmission},
		{"below min words", nil, aliceSession(), words(99), model.ErrCodeBelowMinWords},
		{"missing address", nil, session.Session{FID: 42, Username: "alice"}, words(120), model.ErrCodeInvalidSubmission},
		{"already wrote per aggregate", func(h *harness) {
			h.users.users[42] = &usermodel.User{FID: 42, Username: "alice", LastWriteDate: &today, CurrentStreak: 1}
		}, aliceSession(), words(120), model.ErrCodeAlreadyWroteToday},
		{"already wrote per writings", func(h *harness) { h.writings.wrote = true }, aliceSession(), words(120), model.ErrCodeAlreadyWroteToday},
		{"create in progress", func(h *harness) {
			h.locks.data[createLockKey(42, today)] = "other"
		}, aliceSession(), words(120), model.ErrCodeCreateInProgress},
		{"streak fine but no handle", func(h *harness) {
			h.users.users[42] = &usermodel.User{FID: 42, LastWriteDate: &yesterday}
		}, session.Session{FID: 42, Address: aliceAddr}, words(120), model.ErrCodeInvalidSubmission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(WorkflowConfig{FallbackOnUnready: true})
			if tt.setup != nil {
				tt.setup(h)
			}

			_, err := h.wf.CreateCoin(context.Background(), tt.sess, readyWallet(), model.CreateCoinRequest{Content: tt.body})

			var ce *model.CoinError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code)
			assert.Zero(t, h.minter.DeployCount())
			assert.Empty(t, h.mints.mints)
		})
	}
}

func TestCreateCoin_ContinuesStreak(t *testing.T) {
	h := newHarness(WorkflowConfig{})
	yesterday := usermodel.Day(workflowNow.AddDate(0, 0, -1))
	h.users.users[42] = &usermodel.User{FID: 42, Username: "alice", CurrentStreak: 3, LongestStreak: 3, TotalCoins: 3, LastWriteDate: &yesterday}

	resp, err := h.wf.CreateCoin(context.Background(), aliceSession(), readyWallet(), model.CreateCoinRequest{Content: words(100)})
	require.NoError(t, err)

	assert.Equal(t, 4, resp.StreakDay)
	assert.Equal(t, "ALICE4", resp.Coin.Symbol)
	assert.False(t, resp.IsLegend)
	assert.Equal(t, "@alice Creation #4 (Day 4)", h.minter.DeployCalls[0].Name)
}

func TestCreateCoin_CommitFailureLeavesIntentForReconciliation(t *testing.T) {
	h := newHarness(WorkflowConfig{})
	h.writings.commitErr = errors.New("pq: deadlock detected")

	_, err := h.wf.CreateCoin(context.Background(), aliceSession(), readyWallet(), model.CreateCoinRequest{Content: words(120)})

	var ce *model.CoinError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.ErrCodePersistence, ce.Code)
	assert.Equal(t, model.ErrPersistence.Error(), ce.Message)
	assert.NotContains(t, ce.Message, "deadlock")

	m := h.mints.only(t)
	assert.Equal(t, model.MintChainConfirmed, m.Status)
	assert.Equal(t, 1, h.mints.attempts[m.ID])
	require.NotNil(t, m.Payload.Coin)
	assert.Equal(t, "ALICE1", m.Payload.Coin.Symbol)

	require.Len(t, h.queue.payloads, 1)
	assert.Equal(t, m.ID.String(), h.queue.payloads[0].MintID)
	assert.Empty(t, h.locks.data)
}

func TestCreateCoin_LostRaceOrphansMint(t *testing.T) {
	h := newHarness(WorkflowConfig{})
	h.writings.commitErr = model.NewAlreadyWroteToday()

	_, err := h.wf.CreateCoin(context.Background(), aliceSession(), readyWallet(), model.CreateCoinRequest{Content: words(120)})
	assert.ErrorIs(t, err, model.ErrAlreadyWroteToday)
	assert.Equal(t, model.MintOrphaned, h.mints.only(t).Status)
	assert.Empty(t, h.queue.payloads)
}

func TestCreateCoin_RedisDownStillWorks(t *testing.T) {
	h := newHarness(WorkflowConfig{})
	h.locks.err = errors.New("connection refused")

	_, err := h.wf.CreateCoin(context.Background(), aliceSession(), readyWallet(), model.CreateCoinRequest{Content: words(120)})
	assert.NoError(t, err)
}

func TestCreateCoin_CancelledRequestStillMints(t *testing.T) {
	h := newHarness(WorkflowConfig{FallbackOnUnready: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := h.wf.CreateCoin(ctx, aliceSession(), readyWallet(), model.CreateCoinRequest{Content: words(120)})
	require.NoError(t, err)

	// client bỏ đi không được biến deploy thật thành simulate
	assert.Equal(t, model.KindReal, resp.Coin.Kind)
	require.Equal(t, 1, h.minter.DeployCount())
	assert.NoError(t, h.minter.DeployCtxErrs[0])
	assert.Equal(t, model.MintPersisted, h.mints.only(t).Status)
}

func TestCreateCoin_BroadcastWithoutReceiptStaysPending(t *testing.T) {
	h := newHarness(WorkflowConfig{FallbackOnDeployError: true})
	txHash := common.HexToHash("0x" + strings.Repeat("cd", 32))
	h.minter.DeployErr = &gateway.PendingTxError{TxHash: txHash, Err: context.Canceled}

	_, err := h.wf.CreateCoin(context.Background(), aliceSession(), readyWallet(), model.CreateCoinRequest{Content: words(120)})

	var ce *model.CoinError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.ErrCodeMintPending, ce.Code)
	assert.Contains(t, ce.Message, txHash.Hex())

	// không simulate, không commit, không MarkFailed
	assert.Empty(t, h.writings.commits)
	m := h.mints.only(t)
	assert.Equal(t, model.MintPendingChain, m.Status)
	require.NotNil(t, m.TxHash)
	assert.Equal(t, txHash.Hex(), *m.TxHash)

	require.Len(t, h.queue.payloads, 1)
	assert.Equal(t, m.ID.String(), h.queue.payloads[0].MintID)
	assert.Equal(t, "receipt_pending", h.queue.payloads[0].Reason)
	assert.Empty(t, h.locks.data)

	// receipt đến sau: reconciler ghi writing với coin thật
	coin := common.HexToAddress(coinAddr)
	h.minter.Receipts = map[common.Hash]*gateway.DeployResult{txHash: {Address: coin, TxHash: txHash}}
	rec := NewReconciler(h.writings, h.mints, h.users, ReconcilerConfig{}).WithReceipts(h.minter, readyWallet())

	action, err := rec.ReconcileOne(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionPersisted, action)
	assert.Equal(t, model.MintPersisted, h.mints.status(m.ID))
	require.Len(t, h.writings.commits, 1)
	require.NotNil(t, h.writings.commits[0].Coin)
	assert.Equal(t, coin.Hex(), h.writings.commits[0].Coin.Address)
	assert.Equal(t, "ALICE1", h.writings.commits[0].Coin.Symbol)
	assert.Equal(t, 1, h.users.users[42].TotalCoins)
}
