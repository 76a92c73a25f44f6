// Package provider defines the AI-provider capability interface: a
// Descriptor describing a configured provider, an Adapter that produces
// a summarization Result for a document, and a Registry mapping provider
// IDs to both. Adapter failures carry a transient/fatal classification
// that drives the scheduler's fallback policy.
package provider

import (
	"context"

	"github.com/xraph/digest/document"
)

// Built-in provider IDs mirroring the configured vendor models.
const (
	OpenAIGPT4      = "openai_gpt4"
	OpenAIGPT35     = "openai_gpt35"
	AnthropicClaude = "anthropic_claude"
	GoogleGemini    = "google_gemini"
)

// Descriptor describes a configured provider. Static configuration,
// never mutated by the pipeline.
type Descriptor struct {
	// ID is the stable provider identifier referenced by jobs.
	ID string `json:"id"`

	// DisplayName is the human-readable provider name.
	DisplayName string `json:"display_name"`

	// Available reports whether the provider can currently be used.
	// Unavailable providers fail job attempts with a fatal error.
	Available bool `json:"available"`

	// InputCostPer1K is the cost in dollars per 1000 input tokens.
	InputCostPer1K float64 `json:"input_cost_per_1k"`

	// OutputCostPer1K is the cost in dollars per 1000 output tokens.
	OutputCostPer1K float64 `json:"output_cost_per_1k"`
}

// Entity is a typed value extracted from a document (person, date,
// money amount, and so on).
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Result is the output of a successful summarization attempt.
type Result struct {
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"key_points"`
	Entities   []Entity `json:"entities"`
	TokensUsed int      `json:"tokens_used"`
	Cost       float64  `json:"cost"`

	// Provider is the ID of the provider that produced this result.
	Provider string `json:"provider"`
}

// Adapter produces a summarization result for a document. Implementations
// must be safe for concurrent use: no shared mutable state across calls
// beyond read-only configuration. Failures should be classified with
// Transient or Fatal; unclassified errors are treated as transient.
type Adapter interface {
	Process(ctx context.Context, doc *document.Document, d Descriptor) (*Result, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, doc *document.Document, d Descriptor) (*Result, error)

// Process implements Adapter.
func (f AdapterFunc) Process(ctx context.Context, doc *document.Document, d Descriptor) (*Result, error) {
	return f(ctx, doc, d)
}
