package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"wordmint-backend/internal/config"
)

// ErrNoCredential nghĩa là PINATA_JWT chưa được cấu hình
var ErrNoCredential = errors.New("pinata credential not configured")

// =====================================================
// PINATA CLIENT
// =====================================================

type Client struct {
	baseURL    string
	jwt        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Pinata pinning client. An empty JWT yields a client
// whose Pin always returns ErrNoCredential without touching the network.
func NewClient(cfg config.PinataConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		jwt:        cfg.JWT,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *Client) HasCredential() bool {
	return c.jwt != ""
}

type pinRequest struct {
	PinataContent  json.RawMessage `json:"pinataContent"`
	PinataMetadata pinMetadata     `json:"pinataMetadata"`
}

type pinMetadata struct {
	Name string `json:"name"`
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// PinJSON pins a JSON document and returns its CID.
func (c *Client) PinJSON(ctx context.Context, name string, document []byte) (string, error) {
	if !c.HasCredential() {
		return "", ErrNoCredential
	}
	if !json.Valid(document) {
		return "", fmt.Errorf("document is not valid JSON")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("pinata rate limiter: %w", err)
	}

	// Step 1: Build request body
	body, err := json.Marshal(pinRequest{
		PinataContent:  document,
		PinataMetadata: pinMetadata{Name: name},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pinning/pinJSONToIPFS", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.jwt)

	// Step 2: Call Pinata API
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call Pinata API: %w", err)
	}
	defer resp.Body.Close()

	// Step 3: Parse response
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("pinata API error: status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var out pinResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("IpfsHash not found in response")
	}

	return out.IpfsHash, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
