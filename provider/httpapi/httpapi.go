// Package httpapi provides a provider.Adapter backed by an HTTP
// summarization endpoint. It speaks a minimal JSON contract so one
// adapter serves any vendor gateway exposing it; vendor SDKs are
// deliberately not used.
//
// Failures are classified for the scheduler: network errors, timeouts,
// 429 and 5xx responses are transient; other non-2xx responses are fatal.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xraph/digest/document"
	"github.com/xraph/digest/provider"
)

// request is the JSON body sent to the summarization endpoint. The
// endpoint owns fetching the document bytes via StorageRef.
type request struct {
	Provider   string `json:"provider"`
	DocumentID string `json:"document_id"`
	StorageRef string `json:"storage_ref"`
	Type       string `json:"type"`
	SizeBytes  int64  `json:"size_bytes"`
	MaxWords   int    `json:"max_words"`
}

// response is the JSON body returned by the summarization endpoint.
type response struct {
	Summary      string            `json:"summary"`
	KeyPoints    []string          `json:"key_points"`
	Entities     []provider.Entity `json:"entities"`
	InputTokens  int               `json:"input_tokens"`
	OutputTokens int               `json:"output_tokens"`
}

// Adapter calls an HTTP summarization endpoint.
type Adapter struct {
	endpoint string
	apiKey   string
	maxWords int
	client   *http.Client
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient sets the HTTP client. Defaults to a client with a
// 60 second timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithMaxWords sets the requested summary length in words. Defaults to 500.
func WithMaxWords(n int) Option {
	return func(a *Adapter) { a.maxWords = n }
}

// New creates an Adapter for the given endpoint. The apiKey is sent as a
// bearer token; pass an empty string for unauthenticated endpoints.
func New(endpoint, apiKey string, opts ...Option) *Adapter {
	a := &Adapter{
		endpoint: endpoint,
		apiKey:   apiKey,
		maxWords: 500,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Process implements provider.Adapter.
func (a *Adapter) Process(ctx context.Context, doc *document.Document, d provider.Descriptor) (*provider.Result, error) {
	body, err := json.Marshal(request{
		Provider:   d.ID,
		DocumentID: doc.ID.String(),
		StorageRef: doc.StorageRef,
		Type:       string(doc.Type),
		SizeBytes:  doc.SizeBytes,
		MaxWords:   a.maxWords,
	})
	if err != nil {
		return nil, provider.Fatal(d.ID, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, provider.Fatal(d.ID, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, provider.Transient(d.ID, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		cause := fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, snippet)
		if retryable(resp.StatusCode) {
			return nil, provider.Transient(d.ID, cause)
		}
		return nil, provider.Fatal(d.ID, cause)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, provider.Transient(d.ID, fmt.Errorf("decode response: %w", err))
	}

	cost := float64(out.InputTokens)/1000*d.InputCostPer1K +
		float64(out.OutputTokens)/1000*d.OutputCostPer1K

	return &provider.Result{
		Summary:    out.Summary,
		KeyPoints:  out.KeyPoints,
		Entities:   out.Entities,
		TokensUsed: out.InputTokens + out.OutputTokens,
		Cost:       cost,
		Provider:   d.ID,
	}, nil
}

// retryable reports whether an HTTP status is worth a fallback attempt.
func retryable(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}
