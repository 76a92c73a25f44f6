package document

import (
	"context"

	"github.com/xraph/digest/id"
)

// ListOpts controls pagination for document list queries.
type ListOpts struct {
	// Limit is the maximum number of documents to return. Zero means no limit.
	Limit int
	// Offset is the number of documents to skip.
	Offset int
}

// Store defines the persistence contract for documents.
type Store interface {
	// CreateDocument persists a new document.
	CreateDocument(ctx context.Context, d *Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, docID id.DocumentID) (*Document, error)

	// ListDocuments returns documents ordered by creation time descending.
	ListDocuments(ctx context.Context, opts ListOpts) ([]*Document, error)

	// CountDocuments returns the total number of documents, broken down
	// by type.
	CountDocuments(ctx context.Context) (map[Type]int64, error)
}
