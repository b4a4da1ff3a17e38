package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/domains/coin/model"
	"wordmint-backend/pkg/metrics"
)

// Simulator tạo kết quả giả (không chạm chain) với cùng shape như Deployer.
// Kind luôn là simulated để downstream phân biệt được.
type Simulator struct {
	Delay time.Duration
}

func NewSimulator(delay time.Duration) *Simulator {
	return &Simulator{Delay: delay}
}

func (s *Simulator) Simulate(ctx context.Context, sub model.Submission, meta model.CoinMetadata) model.DeploymentResult {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			metrics.MintResults.WithLabelValues(string(model.KindSimulated), "failure").Inc()
			return failed(meta.Symbol, fmt.Sprintf("simulation cancelled: %v", ctx.Err()))
		}
	}

	addr, err := randomHex(20)
	if err != nil {
		metrics.MintResults.WithLabelValues(string(model.KindSimulated), "failure").Inc()
		return failed(meta.Symbol, err.Error())
	}
	hash, err := randomHex(32)
	if err != nil {
		metrics.MintResults.WithLabelValues(string(model.KindSimulated), "failure").Inc()
		return failed(meta.Symbol, err.Error())
	}

	log.Warn().Int64("fid", sub.AuthorFID).Str("symbol", meta.Symbol).Str("coin", addr).
		Msg("coin simulated, nothing was deployed on chain")
	metrics.MintResults.WithLabelValues(string(model.KindSimulated), "success").Inc()

	return model.DeploymentResult{
		Success:     true,
		Kind:        model.KindSimulated,
		CoinAddress: addr,
		TxHash:      hash,
		Symbol:      meta.Symbol,
	}
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random identifier: %w", err)
	}
	return "0x" + hex.EncodeToString(b), nil
}
