// Package document defines the Document entity, its type detection, and
// the document persistence contract. Documents are immutable after
// creation; the upload collaborator owns the bytes behind StorageRef and
// digest only reads the metadata recorded here.
package document

import (
	"path/filepath"
	"strings"

	"github.com/xraph/digest"
	"github.com/xraph/digest/id"
)

// Type classifies a document by its content format. The type drives the
// token-density heuristic used for cost estimation.
type Type string

const (
	TypePDF     Type = "pdf"
	TypeDOCX    Type = "docx"
	TypeTXT     Type = "txt"
	TypeImage   Type = "image"
	TypeUnknown Type = "unknown"
)

// Types lists every known document type, unknown last.
func Types() []Type {
	return []Type{TypePDF, TypeDOCX, TypeTXT, TypeImage, TypeUnknown}
}

// DetectType infers the document type from a filename extension.
func DetectType(filename string) Type {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return TypePDF
	case ".docx", ".doc":
		return TypeDOCX
	case ".txt", ".md", ".text":
		return TypeTXT
	case ".png", ".jpg", ".jpeg", ".gif", ".tiff", ".bmp":
		return TypeImage
	default:
		return TypeUnknown
	}
}

// Document is an uploaded document referenced by jobs. Immutable after
// creation.
type Document struct {
	digest.Entity

	ID               id.DocumentID `json:"id"`
	Filename         string        `json:"filename"`
	OriginalFilename string        `json:"original_filename"`
	Type             Type          `json:"type"`
	SizeBytes        int64         `json:"size_bytes"`

	// StorageRef is an opaque handle owned by the upload collaborator
	// (a file path, object key, or URL). Digest never dereferences it.
	StorageRef string `json:"storage_ref"`
}

// New creates a Document with a fresh ID and a detected type.
func New(originalFilename string, sizeBytes int64, storageRef string) *Document {
	return &Document{
		Entity:           digest.NewEntity(),
		ID:               id.NewDocumentID(),
		Filename:         filepath.Base(originalFilename),
		OriginalFilename: originalFilename,
		Type:             DetectType(originalFilename),
		SizeBytes:        sizeBytes,
		StorageRef:       storageRef,
	}
}
