package id

import (
	"encoding/json"
	"testing"
)

func TestNewCarriesPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		id     ID
		prefix Prefix
	}{
		{name: "document", id: NewDocumentID(), prefix: PrefixDocument},
		{name: "job", id: NewJobID(), prefix: PrefixJob},
		{name: "worker", id: NewWorkerID(), prefix: PrefixWorker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.id.IsNil() {
				t.Fatal("fresh ID is nil")
			}
			if tt.id.Prefix() != tt.prefix {
				t.Fatalf("got prefix %q, want %q", tt.id.Prefix(), tt.prefix)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	original := NewJobID()
	parsed, err := ParseJobID(original.String())
	if err != nil {
		t.Fatalf("ParseJobID: %v", err)
	}
	if parsed != original {
		t.Fatalf("got %s, want %s", parsed, original)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "garbage", input: "not an id"},
		{name: "bad suffix", input: "job_!!!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Parse(tt.input); err == nil {
				t.Fatalf("Parse(%q) = nil, want error", tt.input)
			}
		})
	}
}

func TestParseWithPrefixRejectsMismatch(t *testing.T) {
	t.Parallel()

	docID := NewDocumentID()
	if _, err := ParseJobID(docID.String()); err == nil {
		t.Fatal("job parse accepted a document ID")
	}
	if _, err := ParseDocumentID(docID.String()); err != nil {
		t.Fatalf("ParseDocumentID: %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	original := NewDocumentID()
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != original {
		t.Fatalf("got %s, want %s", decoded, original)
	}
}

func TestSQLRoundTrip(t *testing.T) {
	t.Parallel()

	original := NewJobID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var scanned ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if scanned != original {
		t.Fatalf("got %s, want %s", scanned, original)
	}
}

func TestIsNil(t *testing.T) {
	t.Parallel()

	if !Nil.IsNil() {
		t.Fatal("Nil is not nil")
	}
	if NewJobID().IsNil() {
		t.Fatal("fresh ID reports nil")
	}
}
