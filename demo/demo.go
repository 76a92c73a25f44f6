// Package demo seeds the pipeline with synthetic documents and jobs so
// the full claim/process/fallback path can be exercised without real
// uploads or provider credentials.
package demo

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/xraph/digest/document"
	"github.com/xraph/digest/id"
	"github.com/xraph/digest/job"
	"github.com/xraph/digest/provider"
)

// demoTitles name the synthetic documents.
var demoTitles = []string{
	"Annual Financial Report 2023",
	"Technical Documentation",
	"Legal Contract",
	"Research Paper",
	"Meeting Minutes",
}

// Submitter is the slice of the engine the generator needs.
type Submitter interface {
	CreateDocument(ctx context.Context, originalFilename string, sizeBytes int64, storageRef string) (*document.Document, error)
	SubmitJob(ctx context.Context, docID id.DocumentID, primary, fallback string) (*job.Job, error)
}

// Generator creates batches of demo documents and jobs with randomized
// sizes and provider assignments.
type Generator struct {
	submitter Submitter
	providers []string
	logger    *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
	seq int
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed makes the generator deterministic.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithLogger sets the logger for the generator.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// New creates a Generator submitting through s and choosing providers
// from the given IDs. With no providers given, the default descriptors
// are used.
func New(s Submitter, providers []string, opts ...Option) *Generator {
	if len(providers) == 0 {
		for _, d := range provider.DefaultDescriptors() {
			providers = append(providers, d.ID)
		}
	}

	g := &Generator{
		submitter: s,
		providers: providers,
		logger:    slog.Default(),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate creates count demo documents, each with one pending job using
// a random primary and fallback provider. It returns the created jobs.
func (g *Generator) Generate(ctx context.Context, count int) ([]*job.Job, error) {
	jobs := make([]*job.Job, 0, count)

	for i := 0; i < count; i++ {
		n, size, primary, fallback := g.draw()

		filename := fmt.Sprintf("%s %d.pdf", demoTitles[n%len(demoTitles)], n)
		storageRef := fmt.Sprintf("/demo/doc_%d.pdf", n)

		doc, err := g.submitter.CreateDocument(ctx, filename, size, storageRef)
		if err != nil {
			return jobs, fmt.Errorf("demo: create document %d: %w", n, err)
		}

		j, err := g.submitter.SubmitJob(ctx, doc.ID, primary, fallback)
		if err != nil {
			return jobs, fmt.Errorf("demo: submit job for document %s: %w", doc.ID, err)
		}
		jobs = append(jobs, j)

		g.logger.Debug("demo job generated",
			slog.String("job_id", j.ID.String()),
			slog.String("document_id", doc.ID.String()),
			slog.String("provider", primary),
			slog.String("fallback", fallback),
		)
	}

	g.logger.Info("demo jobs generated", slog.Int("count", len(jobs)))
	return jobs, nil
}

// draw picks the next sequence number, a document size between 10KB and
// 1MB, and a primary/fallback provider pair.
func (g *Generator) draw() (seq int, size int64, primary, fallback string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	seq = g.seq
	g.seq++

	size = 10_000 + g.rng.Int64N(990_001)
	primary = g.providers[g.rng.IntN(len(g.providers))]
	fallback = g.providers[g.rng.IntN(len(g.providers))]
	if fallback == primary && len(g.providers) > 1 {
		// A fallback identical to the primary would never be tried.
		fallback = g.providers[(indexOf(g.providers, primary)+1)%len(g.providers)]
	}
	return seq, size, primary, fallback
}

func indexOf(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return 0
}
