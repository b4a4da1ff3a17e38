package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordmint-backend/internal/domains/coin/gateway"
	"wordmint-backend/internal/domains/coin/gateway/mock"
	"wordmint-backend/internal/domains/coin/model"
)

var (
	wethAddr  = common.HexToAddress("0x4200000000000000000000000000000000000006")
	addrRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	hashRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

func newTestDeployer(m gateway.Minter) *Deployer {
	return NewDeployer(m, DeployerConfig{ChainID: 8453, Currency: wethAddr, GasMultiplierPct: 120})
}

type zeroMinter struct{ mock.Minter }

func (z *zeroMinter) DeployCoin(context.Context, gateway.Clients, gateway.DeployParams) (*gateway.DeployResult, error) {
	return &gateway.DeployResult{}, nil
}

func TestDeploy_Success(t *testing.T) {
	m := mock.NewMinter()
	d := newTestDeployer(m)
	sub := validSubmission()
	meta := BuildMetadata(sub, createdAt, testImage)

	res := d.Deploy(context.Background(), sub, meta, "ipfs://bafymeta", readyClients())

	require.True(t, res.Success, res.Error)
	assert.Equal(t, model.KindReal, res.Kind)
	assert.Regexp(t, addrRegex, res.CoinAddress)
	assert.Regexp(t, hashRegex, res.TxHash)
	assert.Equal(t, "ALICE1", res.Symbol)

	require.Equal(t, 1, m.DeployCount())
	p := m.DeployCalls[0]
	assert.Equal(t, "@alice Creation #1 (Day 1)", p.Name)
	assert.Equal(t, "ALICE1", p.Symbol)
	assert.Equal(t, "ipfs://bafymeta", p.URI)
	assert.Equal(t, common.HexToAddress(aliceAddr), p.PayoutRecipient)
	assert.Equal(t, int64(8453), p.ChainID)
	assert.Equal(t, wethAddr, p.Currency)
	assert.Equal(t, int64(120), p.GasMultiplierPct)
}

func TestDeploy_ErrorIsCapturedNotRetried(t *testing.T) {
	m := mock.NewMinter()
	m.DeployErr = errors.New("replacement transaction underpriced")
	d := newTestDeployer(m)
	sub := validSubmission()

	res := d.Deploy(context.Background(), sub, BuildMetadata(sub, createdAt, testImage), "ipfs://x", readyClients())

	assert.False(t, res.Success)
	assert.Equal(t, "replacement transaction underpriced", res.Error)
	assert.Empty(t, res.CoinAddress)
	assert.Equal(t, 1, m.DeployCount())
}

func TestDeploy_BroadcastWithoutReceiptKeepsHash(t *testing.T) {
	m := mock.NewMinter()
	txHash := common.HexToHash("0x0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	m.DeployErr = fmt.Errorf("deploy coin: %w", &gateway.PendingTxError{TxHash: txHash, Err: context.DeadlineExceeded})
	d := newTestDeployer(m)
	sub := validSubmission()

	res := d.Deploy(context.Background(), sub, BuildMetadata(sub, createdAt, testImage), "ipfs://bafymeta", readyClients())

	assert.False(t, res.Success)
	assert.Equal(t, txHash.Hex(), res.PendingTxHash)
	assert.Empty(t, res.CoinAddress)
	assert.Contains(t, res.Error, context.DeadlineExceeded.Error())
}

func TestDeploy_MalformedSuccessIsDowngraded(t *testing.T) {
	d := newTestDeployer(&zeroMinter{})
	sub := validSubmission()

	res := d.Deploy(context.Background(), sub, BuildMetadata(sub, createdAt, testImage), "ipfs://x", readyClients())

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "malformed")
}

func TestDeploy_DefaultsGasMultiplier(t *testing.T) {
	d := NewDeployer(mock.NewMinter(), DeployerConfig{ChainID: 8453})
	assert.Equal(t, int64(120), d.cfg.GasMultiplierPct)
}

func TestSimulate_ShapeMatchesRealResult(t *testing.T) {
	sim := NewSimulator(time.Millisecond)
	sub := validSubmission()
	meta := BuildMetadata(sub, createdAt, testImage)

	simulated := sim.Simulate(context.Background(), sub, meta)
	onChain := newTestDeployer(mock.NewMinter()).Deploy(context.Background(), sub, meta, "ipfs://x", readyClients())

	for _, res := range []model.DeploymentResult{simulated, onChain} {
		assert.True(t, res.Success)
		assert.Regexp(t, addrRegex, res.CoinAddress)
		assert.Regexp(t, hashRegex, res.TxHash)
		assert.Equal(t, "ALICE1", res.Symbol)
	}
	assert.True(t, simulated.Simulated())
	assert.False(t, onChain.Simulated())
}

func TestSimulate_RandomIdentifiers(t *testing.T) {
	sim := NewSimulator(0)
	sub := validSubmission()
	meta := BuildMetadata(sub, createdAt, testImage)

	a := sim.Simulate(context.Background(), sub, meta)
	b := sim.Simulate(context.Background(), sub, meta)
	assert.NotEqual(t, a.CoinAddress, b.CoinAddress)
	assert.NotEqual(t, a.TxHash, b.TxHash)
}

func TestSimulate_Cancelled(t *testing.T) {
	sim := NewSimulator(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := sim.Simulate(ctx, validSubmission(), testMeta())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "cancelled")
}
