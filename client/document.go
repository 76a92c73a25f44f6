package client

import (
	"context"
	"net/http"

	"github.com/xraph/digest/api"
	"github.com/xraph/digest/document"
)

// CreateDocument registers a document with the remote pipeline.
func (c *Client) CreateDocument(ctx context.Context, originalFilename string, sizeBytes int64, storageRef string) (*document.Document, error) {
	var d document.Document
	err := c.do(ctx, http.MethodPost, "/api/documents", api.CreateDocumentRequest{
		OriginalFilename: originalFilename,
		SizeBytes:        sizeBytes,
		StorageRef:       storageRef,
	}, &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDocument retrieves a document by ID.
func (c *Client) GetDocument(ctx context.Context, documentID string) (*document.Document, error) {
	var d document.Document
	if err := c.do(ctx, http.MethodGet, "/api/documents/"+documentID, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDocuments returns documents ordered by creation time descending.
func (c *Client) ListDocuments(ctx context.Context, limit, offset int) ([]*document.Document, error) {
	var docs []*document.Document
	path := "/api/documents" + listQuery(limit, offset, nil)
	if err := c.do(ctx, http.MethodGet, path, nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
