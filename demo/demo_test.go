package demo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/xraph/digest/document"
	"github.com/xraph/digest/id"
	"github.com/xraph/digest/job"
	"github.com/xraph/digest/provider"
)

// fakeSubmitter records submissions without a running engine.
type fakeSubmitter struct {
	docs []*document.Document
	jobs []*job.Job
	err  error
}

func (f *fakeSubmitter) CreateDocument(_ context.Context, originalFilename string, sizeBytes int64, storageRef string) (*document.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	d := document.New(originalFilename, sizeBytes, storageRef)
	f.docs = append(f.docs, d)
	return d, nil
}

func (f *fakeSubmitter) SubmitJob(_ context.Context, docID id.DocumentID, primary, fallback string) (*job.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	j := job.New(docID, primary, fallback)
	f.jobs = append(f.jobs, j)
	return j, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	g := New(sub, nil, WithLogger(testLogger()), WithSeed(7))

	jobs, err := g.Generate(context.Background(), 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(jobs) != 10 || len(sub.docs) != 10 || len(sub.jobs) != 10 {
		t.Fatalf("got %d jobs / %d docs, want 10 / 10", len(jobs), len(sub.docs))
	}

	known := make(map[string]bool)
	for _, d := range provider.DefaultDescriptors() {
		known[d.ID] = true
	}
	for i, j := range jobs {
		if j.Status != job.StatusPending {
			t.Fatalf("job %d: got status %q, want %q", i, j.Status, job.StatusPending)
		}
		if !known[j.Provider] || !known[j.FallbackProvider] {
			t.Fatalf("job %d: unknown providers %q/%q", i, j.Provider, j.FallbackProvider)
		}
		if j.Provider == j.FallbackProvider {
			t.Fatalf("job %d: fallback equals primary %q", i, j.Provider)
		}
	}
	for i, d := range sub.docs {
		if d.SizeBytes < 10_000 || d.SizeBytes > 1_000_000 {
			t.Fatalf("document %d: size %d outside 10KB-1MB", i, d.SizeBytes)
		}
		if !strings.HasSuffix(d.OriginalFilename, ".pdf") {
			t.Fatalf("document %d: unexpected filename %q", i, d.OriginalFilename)
		}
	}
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	run := func() []*document.Document {
		sub := &fakeSubmitter{}
		g := New(sub, nil, WithLogger(testLogger()), WithSeed(99))
		if _, err := g.Generate(context.Background(), 5); err != nil {
			t.Fatalf("Generate: %v", err)
		}
		return sub.docs
	}

	first := run()
	second := run()
	for i := range first {
		if first[i].SizeBytes != second[i].SizeBytes {
			t.Fatalf("document %d sizes differ across identically seeded runs", i)
		}
	}
}

func TestGenerateRestrictedProviders(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	g := New(sub, []string{provider.OpenAIGPT35}, WithLogger(testLogger()), WithSeed(1))

	jobs, err := g.Generate(context.Background(), 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i, j := range jobs {
		if j.Provider != provider.OpenAIGPT35 {
			t.Fatalf("job %d: got provider %q, want %q", i, j.Provider, provider.OpenAIGPT35)
		}
	}
}

func TestGenerateStopsOnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("store down")
	sub := &fakeSubmitter{err: boom}
	g := New(sub, nil, WithLogger(testLogger()))

	jobs, err := g.Generate(context.Background(), 5)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
	if len(jobs) != 0 {
		t.Fatalf("got %d jobs, want 0", len(jobs))
	}
}
