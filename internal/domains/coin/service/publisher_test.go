package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordmint-backend/internal/domains/coin/model"
	"wordmint-backend/pkg/circuitbreaker"
)

type fakePinner struct {
	mu    sync.Mutex
	cred  bool
	cid   string
	err   error
	calls int
	names []string
	docs  [][]byte
}

func (f *fakePinner) HasCredential() bool { return f.cred }

func (f *fakePinner) PinJSON(_ context.Context, name string, doc []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.names = append(f.names, name)
	f.docs = append(f.docs, doc)
	if f.err != nil {
		return "", f.err
	}
	return f.cid, nil
}

type fakeArchiver struct {
	keys []string
	err  error
}

func (f *fakeArchiver) PutJSON(_ context.Context, key string, _ []byte) error {
	f.keys = append(f.keys, key)
	return f.err
}

func testMeta() model.CoinMetadata {
	return BuildMetadata(validSubmission(), createdAt, testImage)
}

func TestPublish_Pinned(t *testing.T) {
	pinner := &fakePinner{cred: true, cid: "bafyrealcid"}
	archiver := &fakeArchiver{}
	p := NewPublisher(pinner, archiver, nil)

	uri := p.Publish(context.Background(), 42, testMeta())

	assert.Equal(t, "ipfs://bafyrealcid", uri)
	assert.Equal(t, 1, pinner.calls)
	assert.Equal(t, "alice1-metadata.json", pinner.names[0])
	assert.True(t, json.Valid(pinner.docs[0]))
	assert.Equal(t, []string{"metadata/42/ALICE1.json"}, archiver.keys)
}

func TestPublish_NoCredentialMakesNoCall(t *testing.T) {
	pinner := &fakePinner{cred: false}
	p := NewPublisher(pinner, nil, nil)

	uri := p.Publish(context.Background(), 42, testMeta())

	assert.Equal(t, model.PlaceholderMetadataURI, uri)
	assert.Zero(t, pinner.calls)
}

func TestPublish_NilPinner(t *testing.T) {
	p := NewPublisher(nil, nil, nil)
	assert.Equal(t, model.PlaceholderMetadataURI, p.Publish(context.Background(), 1, testMeta()))
}

func TestPublish_FailureDegradesToPlaceholder(t *testing.T) {
	pinner := &fakePinner{cred: true, err: errors.New("status 502")}
	archiver := &fakeArchiver{err: errors.New("minio down")}
	p := NewPublisher(pinner, archiver, nil)

	var uri string
	require.NotPanics(t, func() {
		uri = p.Publish(context.Background(), 42, testMeta())
	})
	assert.Equal(t, model.PlaceholderMetadataURI, uri)
	assert.Equal(t, 1, pinner.calls)
	assert.Len(t, archiver.keys, 1)
}

func TestPublish_OpenBreakerSkipsCall(t *testing.T) {
	pinner := &fakePinner{cred: true, err: errors.New("timeout")}
	breaker := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2})
	p := NewPublisher(pinner, nil, breaker)

	for i := 0; i < 2; i++ {
		assert.Equal(t, model.PlaceholderMetadataURI, p.Publish(context.Background(), 42, testMeta()))
	}
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	pinner.err = nil
	pinner.cid = "bafyrecovered"
	assert.Equal(t, model.PlaceholderMetadataURI, p.Publish(context.Background(), 42, testMeta()))
	assert.Equal(t, 2, pinner.calls)
}
