package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/domains/coin/model"
	"wordmint-backend/pkg/circuitbreaker"
	"wordmint-backend/pkg/metrics"
)

// Pinner uploads a JSON document to content-addressed storage.
type Pinner interface {
	HasCredential() bool
	PinJSON(ctx context.Context, name string, document []byte) (string, error)
}

// Archiver giữ một bản sao metadata ngoài IPFS
type Archiver interface {
	PutJSON(ctx context.Context, key string, data []byte) error
}

type Publisher struct {
	pinner   Pinner
	archiver Archiver // optional
	breaker  *circuitbreaker.Breaker
}

func NewPublisher(pinner Pinner, archiver Archiver, breaker *circuitbreaker.Breaker) *Publisher {
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.Config{})
	}
	return &Publisher{pinner: pinner, archiver: archiver, breaker: breaker}
}

// Publish trả về "ipfs://<cid>". Mọi lỗi đều degrade về PlaceholderMetadataURI;
// hàm này không bao giờ trả error.
func (p *Publisher) Publish(ctx context.Context, fid int64, meta model.CoinMetadata) string {
	doc, err := Serialize(meta)
	if err != nil {
		log.Error().Err(err).Str("symbol", meta.Symbol).Msg("metadata serialization failed, using placeholder")
		metrics.PinResults.WithLabelValues("error").Inc()
		return model.PlaceholderMetadataURI
	}

	p.archive(ctx, fid, meta.Symbol, doc)

	if p.pinner == nil || !p.pinner.HasCredential() {
		log.Warn().Str("symbol", meta.Symbol).Msg("pinning credential not configured, using placeholder metadata")
		metrics.PinResults.WithLabelValues("no_credential").Inc()
		return model.PlaceholderMetadataURI
	}

	var cid string
	err = p.breaker.Do(func() error {
		var pinErr error
		cid, pinErr = p.pinner.PinJSON(ctx, pinName(meta), doc)
		return pinErr
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, circuitbreaker.ErrOpen) {
			outcome = "breaker_open"
		}
		log.Error().Err(err).Str("symbol", meta.Symbol).Str("breaker", p.breaker.State().String()).
			Msg("metadata pin failed, using placeholder")
		metrics.PinResults.WithLabelValues(outcome).Inc()
		return model.PlaceholderMetadataURI
	}

	metrics.PinResults.WithLabelValues("pinned").Inc()
	log.Info().Str("symbol", meta.Symbol).Str("cid", cid).Msg("metadata pinned")
	return "ipfs://" + cid
}

func (p *Publisher) archive(ctx context.Context, fid int64, symbol string, doc []byte) {
	if p.archiver == nil {
		return
	}
	key := ArchiveKey(fid, symbol)
	if err := p.archiver.PutJSON(ctx, key, doc); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("metadata archive failed")
	}
}

// ArchiveKey: metadata/<fid>/<symbol>.json
func ArchiveKey(fid int64, symbol string) string {
	return fmt.Sprintf("metadata/%d/%s.json", fid, symbol)
}

func pinName(meta model.CoinMetadata) string {
	return strings.ToLower(meta.Symbol) + "-metadata.json"
}
