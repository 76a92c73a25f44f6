package document

import (
	"testing"

	"github.com/xraph/digest/id"
)

func TestDetectType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     Type
	}{
		{"report.pdf", TypePDF},
		{"REPORT.PDF", TypePDF},
		{"contract.docx", TypeDOCX},
		{"contract.doc", TypeDOCX},
		{"notes.txt", TypeTXT},
		{"readme.md", TypeTXT},
		{"scan.png", TypeImage},
		{"photo.JPEG", TypeImage},
		{"archive.zip", TypeUnknown},
		{"no-extension", TypeUnknown},
		{"", TypeUnknown},
	}
	for _, tt := range tests {
		if got := DetectType(tt.filename); got != tt.want {
			t.Errorf("DetectType(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	d := New("uploads/2024/Annual Report.pdf", 123456, "s3://bucket/key")

	if d.ID.IsNil() {
		t.Fatal("document ID not assigned")
	}
	if d.ID.Prefix() != id.PrefixDocument {
		t.Fatalf("got prefix %q, want %q", d.ID.Prefix(), id.PrefixDocument)
	}
	if d.OriginalFilename != "uploads/2024/Annual Report.pdf" {
		t.Fatalf("got original filename %q", d.OriginalFilename)
	}
	if d.Filename != "Annual Report.pdf" {
		t.Fatalf("got filename %q, want the base name", d.Filename)
	}
	if d.Type != TypePDF {
		t.Fatalf("got type %q, want %q", d.Type, TypePDF)
	}
	if d.SizeBytes != 123456 || d.StorageRef != "s3://bucket/key" {
		t.Fatalf("got %+v", d)
	}
	if d.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not stamped")
	}
}

func TestTypesListsUnknownLast(t *testing.T) {
	t.Parallel()

	types := Types()
	if len(types) == 0 || types[len(types)-1] != TypeUnknown {
		t.Fatalf("got %v", types)
	}
}
