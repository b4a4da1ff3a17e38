package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/domains/coin/gateway"
	"wordmint-backend/internal/domains/coin/model"
	"wordmint-backend/pkg/metrics"
)

type DeployerConfig struct {
	ChainID          int64
	Currency         common.Address // WETH = ETH pair
	PlatformReferrer common.Address
	GasMultiplierPct int64
}

// Deployer gọi minting SDK đúng một lần cho mỗi coin. Không retry.
type Deployer struct {
	minter gateway.Minter
	cfg    DeployerConfig
}

func NewDeployer(minter gateway.Minter, cfg DeployerConfig) *Deployer {
	if cfg.GasMultiplierPct < 100 {
		cfg.GasMultiplierPct = 120
	}
	return &Deployer{minter: minter, cfg: cfg}
}

// Deploy never returns an error: SDK failures come back as Success=false.
func (d *Deployer) Deploy(ctx context.Context, sub model.Submission, meta model.CoinMetadata, uri string, clients gateway.Clients) model.DeploymentResult {
	start := time.Now()
	result := d.deploy(ctx, sub, meta, uri, clients)

	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	metrics.MintResults.WithLabelValues(string(model.KindReal), outcome).Inc()
	metrics.MintDuration.WithLabelValues(string(model.KindReal)).Observe(time.Since(start).Seconds())
	return result
}

func (d *Deployer) deploy(ctx context.Context, sub model.Submission, meta model.CoinMetadata, uri string, clients gateway.Clients) model.DeploymentResult {
	if !IsHexAddress(sub.AuthorAddress) {
		return failed(meta.Symbol, "invalid payout recipient address")
	}

	params := gateway.DeployParams{
		Name:             meta.Name,
		Symbol:           meta.Symbol,
		URI:              uri,
		PayoutRecipient:  common.HexToAddress(sub.AuthorAddress),
		PlatformReferrer: d.cfg.PlatformReferrer,
		ChainID:          d.cfg.ChainID,
		Currency:         d.cfg.Currency,
		GasMultiplierPct: d.cfg.GasMultiplierPct,
	}

	res, err := d.minter.DeployCoin(ctx, clients, params)
	var pending *gateway.PendingTxError
	if errors.As(err, &pending) {
		hash := pending.TxHash.Hex()
		log.Warn().Err(pending.Err).
			Int64("fid", sub.AuthorFID).
			Str("symbol", meta.Symbol).
			Str("tx_hash", hash).
			Msg("coin deployment broadcast without receipt")
		res := failed(meta.Symbol, err.Error())
		res.PendingTxHash = hash
		return res
	}
	if err != nil {
		log.Error().Err(err).
			Int64("fid", sub.AuthorFID).
			Str("symbol", meta.Symbol).
			Str("uri", uri).
			Int64("chain_id", d.cfg.ChainID).
			Msg("coin deployment failed")
		return failed(meta.Symbol, err.Error())
	}
	if res == nil {
		return failed(meta.Symbol, "minter returned no result")
	}

	addr, hash := res.Address.Hex(), res.TxHash.Hex()
	if res.Address == (common.Address{}) || res.TxHash == (common.Hash{}) || !IsHexAddress(addr) || !IsHexHash(hash) {
		log.Error().Str("address", addr).Str("tx_hash", hash).Str("symbol", meta.Symbol).
			Msg("minter reported success with malformed identifiers")
		return failed(meta.Symbol, fmt.Sprintf("malformed deployment result (address=%s tx=%s)", addr, hash))
	}

	log.Info().Int64("fid", sub.AuthorFID).Str("symbol", meta.Symbol).Str("coin", addr).Str("tx_hash", hash).
		Msg("coin deployed")

	return model.DeploymentResult{
		Success:     true,
		Kind:        model.KindReal,
		CoinAddress: addr,
		TxHash:      hash,
		Symbol:      meta.Symbol,
	}
}

func failed(symbol, reason string) model.DeploymentResult {
	return model.DeploymentResult{Success: false, Symbol: symbol, Error: reason}
}
