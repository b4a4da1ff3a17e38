package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/config"
	"wordmint-backend/internal/domains/coin/gateway"
)

// Dialer mở RPC client; tests thay bằng fake.
type Dialer func(ctx context.Context, rawURL string) (gateway.Reader, func(), error)

func dialEthclient(ctx context.Context, rawURL string) (gateway.Reader, func(), error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// Provider owns the relayer wallet: a signing key plus an RPC read client
// that is dialed in the background. Until the dial succeeds Clients()
// returns empty handles and Ready() stays open.
type Provider struct {
	cfg    config.ChainConfig
	dial   Dialer
	signer *KeyedSigner // nil khi không cấu hình private key

	mu       sync.RWMutex
	reader   gateway.Reader
	closeRPC func()

	ready     chan struct{}
	readyOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewProvider(cfg config.ChainConfig) (*Provider, error) {
	return newProvider(cfg, dialEthclient)
}

func newProvider(cfg config.ChainConfig, dial Dialer) (*Provider, error) {
	p := &Provider{
		cfg:   cfg,
		dial:  dial,
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid CHAIN_PRIVATE_KEY: %w", err)
		}
		p.signer = NewKeyedSigner(key, big.NewInt(cfg.ChainID))
	}

	return p, nil
}

// Start dials the RPC endpoint in the background with exponential backoff.
func (p *Provider) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go func() {
		defer close(p.done)
		p.connectWithRetry(ctx)
	}()
}

func (p *Provider) connectWithRetry(ctx context.Context) {
	retries := p.cfg.DialRetries
	if retries < 1 {
		retries = 1
	}

	for attempt := 1; attempt <= retries; attempt++ {
		err := p.connect(ctx)
		if err == nil {
			log.Info().
				Int64("chain_id", p.cfg.ChainID).
				Bool("signer", p.signer != nil).
				Str("address", p.Address()).
				Msg("[CHAIN] RPC client ready")
			return
		}
		log.Warn().Err(err).Int("attempt", attempt).Int("max", retries).Msg("[CHAIN] RPC dial failed")

		if attempt < retries {
			delay := p.cfg.DialRetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
	}
	log.Error().Msg("[CHAIN] RPC client unavailable, coin creation will use simulation")
}

func (p *Provider) connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	reader, closeFn, err := p.dial(dialCtx, p.cfg.RPCURL)
	if err != nil {
		return err
	}

	chainID, err := reader.ChainID(dialCtx)
	if err != nil {
		closeFn()
		return fmt.Errorf("read chain id: %w", err)
	}
	if chainID.Int64() != p.cfg.ChainID {
		closeFn()
		return fmt.Errorf("rpc is chain %s, expected %d", chainID, p.cfg.ChainID)
	}

	p.mu.Lock()
	p.reader = reader
	p.closeRPC = closeFn
	p.mu.Unlock()

	p.readyOnce.Do(func() { close(p.ready) })
	return nil
}

// Connected reports whether a signing wallet is configured at all.
func (p *Provider) Connected() bool {
	return p.signer != nil
}

func (p *Provider) Address() string {
	if p.signer == nil {
		return ""
	}
	return p.signer.Address().Hex()
}

// Clients trả về cặp handles; interface nil (không phải typed nil) khi chưa sẵn sàng.
func (p *Provider) Clients() gateway.Clients {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var c gateway.Clients
	if p.reader != nil {
		c.Reader = p.reader
	}
	if p.reader != nil && p.signer != nil {
		c.Signer = p.signer
	}
	return c
}

// Reader is the read-only client, nil until the dial succeeds.
func (p *Provider) Reader() gateway.Reader {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reader
}

// Ready is closed once the RPC client is usable.
func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

func (p *Provider) HealthCheck(ctx context.Context) error {
	reader := p.Reader()
	if reader == nil {
		return errors.New("chain rpc not connected")
	}
	if _, err := reader.ChainID(ctx); err != nil {
		return fmt.Errorf("chain rpc: %w", err)
	}
	return nil
}

func (p *Provider) Close() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closeRPC != nil {
		p.closeRPC()
		p.closeRPC = nil
	}
	p.reader = nil
}

// =====================================================
// KEYED SIGNER
// =====================================================

type KeyedSigner struct {
	key     *ecdsa.PrivateKey
	chainID *big.Int
	address common.Address
}

var _ gateway.Signer = (*KeyedSigner)(nil)

func NewKeyedSigner(key *ecdsa.PrivateKey, chainID *big.Int) *KeyedSigner {
	return &KeyedSigner{key: key, chainID: chainID, address: crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *KeyedSigner) Address() common.Address {
	return s.address
}

func (s *KeyedSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}
