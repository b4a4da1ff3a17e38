package service

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordmint-backend/internal/domains/coin/gateway"
)

type stubSigner struct{ addr common.Address }

func (s stubSigner) Address() common.Address { return s.addr }
func (s stubSigner) TransactOpts(context.Context) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: s.addr}, nil
}

type stubReader struct{ gateway.Reader }

func (stubReader) ChainID(context.Context) (*big.Int, error) { return big.NewInt(8453), nil }

func readyClients() gateway.Clients {
	return gateway.Clients{Signer: stubSigner{addr: common.HexToAddress(aliceAddr)}, Reader: stubReader{}}
}

// pollingWallet becomes ready on the readyAfter-th call to Clients.
type pollingWallet struct {
	mu         sync.Mutex
	connected  bool
	readyAfter int // 0 = never
	polls      int
}

func (w *pollingWallet) Connected() bool { return w.connected }
func (w *pollingWallet) Address() string { return aliceAddr }

func (w *pollingWallet) Clients() gateway.Clients {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.polls++
	if w.readyAfter > 0 && w.polls >= w.readyAfter {
		return readyClients()
	}
	return gateway.Clients{}
}

func (w *pollingWallet) Polls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polls
}

type notifyingWallet struct {
	pollingWallet
	ready chan struct{}
}

func (w *notifyingWallet) Ready() <-chan struct{} { return w.ready }

func TestReadiness_NotConnectedReturnsImmediately(t *testing.T) {
	gate := NewReadinessGate(time.Hour, 25)
	w := &pollingWallet{connected: false}

	r, clients := gate.Wait(context.Background(), w)

	assert.Equal(t, NotConnected, r)
	assert.False(t, clients.Ready())
	assert.Zero(t, w.Polls())
}

func TestReadiness_NilWallet(t *testing.T) {
	r, _ := NewReadinessGate(time.Millisecond, 1).Wait(context.Background(), nil)
	assert.Equal(t, NotConnected, r)
}

func TestReadiness_ReadyAfterThreeIntervals(t *testing.T) {
	gate := NewReadinessGate(5*time.Millisecond, 25)
	w := &pollingWallet{connected: true, readyAfter: 4}

	start := time.Now()
	r, clients := gate.Wait(context.Background(), w)

	assert.Equal(t, Ready, r)
	assert.True(t, clients.Ready())
	assert.Equal(t, 4, w.Polls())
	assert.Less(t, time.Since(start), 25*5*time.Millisecond)
}

func TestReadiness_TimesOutAfterExactlyMaxAttempts(t *testing.T) {
	gate := NewReadinessGate(time.Millisecond, 7)
	w := &pollingWallet{connected: true}

	r, clients := gate.Wait(context.Background(), w)

	assert.Equal(t, TimedOut, r)
	assert.False(t, clients.Ready())
	assert.Equal(t, 7, w.Polls())
}

func TestReadiness_ContextCancelled(t *testing.T) {
	gate := NewReadinessGate(time.Hour, 25)
	w := &pollingWallet{connected: true}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, _ := gate.Wait(ctx, w)
	assert.Equal(t, TimedOut, r)
	assert.Equal(t, 1, w.Polls())
}

func TestReadiness_EventNotifier(t *testing.T) {
	gate := NewReadinessGate(time.Second, 25)
	w := &notifyingWallet{pollingWallet: pollingWallet{connected: true, readyAfter: 1}, ready: make(chan struct{})}

	go func() {
		time.Sleep(5 * time.Millisecond)
		close(w.ready)
	}()

	r, clients := gate.Wait(context.Background(), w)
	require.Equal(t, Ready, r)
	assert.True(t, clients.Ready())
	assert.Equal(t, 1, w.Polls())
}

func TestReadiness_EventNotifierTimeout(t *testing.T) {
	gate := NewReadinessGate(time.Millisecond, 5)
	w := &notifyingWallet{pollingWallet: pollingWallet{connected: true, readyAfter: 1}, ready: make(chan struct{})}

	r, _ := gate.Wait(context.Background(), w)
	assert.Equal(t, TimedOut, r)
	assert.Zero(t, w.Polls())
}
