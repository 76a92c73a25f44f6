package estimate

import (
	"testing"

	"github.com/xraph/digest/document"
	"github.com/xraph/digest/provider"
)

func newDoc(name string, size int64) *document.Document {
	return document.New(name, size, "file:///tmp/"+name)
}

func TestTokens(t *testing.T) {
	t.Parallel()

	e := New(DefaultConfig())

	tests := []struct {
		name string
		doc  *document.Document
		want int
	}{
		{name: "txt 4 bytes per token", doc: newDoc("a.txt", 4000), want: 1000},
		{name: "pdf 8 bytes per token", doc: newDoc("a.pdf", 4000), want: 500},
		{name: "docx 6 bytes per token", doc: newDoc("a.docx", 600), want: 100},
		{name: "image 48 bytes per token", doc: newDoc("a.png", 4800), want: 100},
		{name: "unknown falls back to default", doc: newDoc("a.bin", 400), want: 100},
		{name: "rounds up", doc: newDoc("a.txt", 5), want: 2},
		{name: "never below one", doc: newDoc("a.txt", 0), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := e.Tokens(tt.doc); got != tt.want {
				t.Fatalf("got %d tokens, want %d", got, tt.want)
			}
		})
	}
}

func TestEstimate(t *testing.T) {
	t.Parallel()

	e := New(DefaultConfig())
	d := provider.Descriptor{
		ID:              provider.OpenAIGPT4,
		InputCostPer1K:  0.03,
		OutputCostPer1K: 0.06,
	}

	// 4000 bytes of text is 1000 input tokens and 200 output tokens.
	est := e.Estimate(newDoc("a.txt", 4000), d)
	if est.Tokens != 1000 {
		t.Fatalf("got %d tokens, want 1000", est.Tokens)
	}
	want := 1.0*0.03 + 0.2*0.06
	if diff := est.Cost - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("got cost %v, want %v", est.Cost, want)
	}
}

func TestEstimateDeterministic(t *testing.T) {
	t.Parallel()

	e := New(DefaultConfig())
	doc := newDoc("report.pdf", 123456)
	d := provider.DefaultDescriptors()[0]

	first := e.Estimate(doc, d)
	for i := 0; i < 10; i++ {
		if got := e.Estimate(doc, d); got != first {
			t.Fatalf("estimate drifted on call %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestNewFillsZeroConfig(t *testing.T) {
	t.Parallel()

	e := New(Config{})
	if got := e.Tokens(newDoc("a.txt", 400)); got != 100 {
		t.Fatalf("got %d tokens, want 100", got)
	}

	est := e.Estimate(newDoc("a.txt", 4000), provider.Descriptor{InputCostPer1K: 1, OutputCostPer1K: 1})
	if est.Tokens != 1000 {
		t.Fatalf("got %d tokens, want 1000", est.Tokens)
	}
	if est.Cost <= 1.0 {
		t.Fatalf("output ratio default not applied: cost %v", est.Cost)
	}
}
