// Package estimate provides the deterministic cost estimator: document
// size and type plus provider unit costs in, token and dollar estimates
// out. The same inputs always produce the same outputs so that
// estimate-versus-actual variance tracking is meaningful.
package estimate

import (
	"github.com/xraph/digest/document"
	"github.com/xraph/digest/provider"
)

// Config holds the token-density heuristic. Densities are bytes per
// token, per document type: plain text tokenizes densely while scanned
// images and structured formats carry layout overhead per token of
// extractable text.
type Config struct {
	// Densities maps document type to bytes per token. Types missing
	// from the map fall back to DefaultDensity.
	Densities map[document.Type]int

	// DefaultDensity is the bytes-per-token fallback. Must be >= 1.
	DefaultDensity int

	// OutputRatio is the assumed output-to-input token ratio.
	OutputRatio float64
}

// DefaultConfig returns the reference heuristic: 4 bytes per token for
// text-like documents, coarser densities for binary formats, and output
// at 20% of input.
func DefaultConfig() Config {
	return Config{
		Densities: map[document.Type]int{
			document.TypeTXT:   4,
			document.TypeDOCX:  6,
			document.TypePDF:   8,
			document.TypeImage: 48,
		},
		DefaultDensity: 4,
		OutputRatio:    0.2,
	}
}

// Estimate is the token and cost projection for one document/provider pair.
type Estimate struct {
	Tokens int     `json:"tokens"`
	Cost   float64 `json:"cost"`
}

// Estimator computes deterministic pre-submission estimates.
type Estimator struct {
	cfg Config
}

// New creates an Estimator. Zero-value config fields are replaced with
// defaults so a partially filled Config stays usable.
func New(cfg Config) *Estimator {
	def := DefaultConfig()
	if cfg.Densities == nil {
		cfg.Densities = def.Densities
	}
	if cfg.DefaultDensity < 1 {
		cfg.DefaultDensity = def.DefaultDensity
	}
	if cfg.OutputRatio <= 0 {
		cfg.OutputRatio = def.OutputRatio
	}
	return &Estimator{cfg: cfg}
}

// Tokens returns the estimated input token count for a document.
func (e *Estimator) Tokens(doc *document.Document) int {
	density := e.cfg.Densities[doc.Type]
	if density < 1 {
		density = e.cfg.DefaultDensity
	}

	tokens := int((doc.SizeBytes + int64(density) - 1) / int64(density))
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// Estimate returns the projected token usage and cost of summarizing doc
// with the given provider. Token count covers input tokens only, matching
// what callers compare against the adapter's reported usage; cost covers
// both input and projected output.
func (e *Estimator) Estimate(doc *document.Document, d provider.Descriptor) Estimate {
	inputTokens := e.Tokens(doc)
	outputTokens := int(float64(inputTokens) * e.cfg.OutputRatio)

	cost := float64(inputTokens)/1000*d.InputCostPer1K +
		float64(outputTokens)/1000*d.OutputCostPer1K

	return Estimate{Tokens: inputTokens, Cost: cost}
}
