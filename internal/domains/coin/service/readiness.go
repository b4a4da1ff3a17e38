package service

import (
	"context"
	"time"

	"wordmint-backend/internal/domains/coin/gateway"
	"wordmint-backend/pkg/metrics"
)

// WalletSession is the wallet the orchestration acts through.
type WalletSession interface {
	Connected() bool
	Address() string
	Clients() gateway.Clients
}

// ReadyNotifier: wallet có thể báo sẵn sàng bằng event thay vì bị poll
type ReadyNotifier interface {
	Ready() <-chan struct{}
}

type Readiness int

const (
	Ready Readiness = iota
	NotConnected
	TimedOut
)

func (r Readiness) String() string {
	switch r {
	case Ready:
		return "ready"
	case NotConnected:
		return "not_connected"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// ReadinessGate chặn on-chain call cho tới khi signer + reader đều có.
type ReadinessGate struct {
	Interval    time.Duration
	MaxAttempts int
}

func NewReadinessGate(interval time.Duration, maxAttempts int) *ReadinessGate {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	if maxAttempts < 1 {
		maxAttempts = 25
	}
	return &ReadinessGate{Interval: interval, MaxAttempts: maxAttempts}
}

// Wait returns the readiness verdict and, when Ready, the clients to use.
// A cancelled ctx ends the wait as TimedOut.
func (g *ReadinessGate) Wait(ctx context.Context, wallet WalletSession) (Readiness, gateway.Clients) {
	r, clients := g.wait(ctx, wallet)
	metrics.ReadinessResults.WithLabelValues(r.String()).Inc()
	return r, clients
}

func (g *ReadinessGate) wait(ctx context.Context, wallet WalletSession) (Readiness, gateway.Clients) {
	if wallet == nil || !wallet.Connected() {
		return NotConnected, gateway.Clients{}
	}

	if n, ok := wallet.(ReadyNotifier); ok {
		return g.waitEvent(ctx, wallet, n.Ready())
	}

	ticker := time.NewTicker(g.Interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		if c := wallet.Clients(); c.Ready() {
			return Ready, c
		}
		if attempt >= g.MaxAttempts {
			return TimedOut, gateway.Clients{}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return TimedOut, gateway.Clients{}
		}
	}
}

func (g *ReadinessGate) waitEvent(ctx context.Context, wallet WalletSession, ready <-chan struct{}) (Readiness, gateway.Clients) {
	timer := time.NewTimer(g.Interval * time.Duration(g.MaxAttempts))
	defer timer.Stop()

	select {
	case <-ready:
	case <-timer.C:
		return TimedOut, gateway.Clients{}
	case <-ctx.Done():
		return TimedOut, gateway.Clients{}
	}

	if c := wallet.Clients(); c.Ready() {
		return Ready, c
	}
	return TimedOut, gateway.Clients{}
}
