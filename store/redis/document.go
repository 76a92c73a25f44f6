package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/xraph/digest"
	"github.com/xraph/digest/document"
	"github.com/xraph/digest/id"
)

// CreateDocument stores the document as a Hash.
func (s *Store) CreateDocument(ctx context.Context, d *document.Document) error {
	dID := d.ID.String()
	key := documentKey(dID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("digest/redis: create document exists: %w", err)
	}
	if exists > 0 {
		return digest.ErrDocumentAlreadyExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, documentToMap(d))
	pipe.SAdd(ctx, documentIDsKey, dID)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("digest/redis: create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, docID id.DocumentID) (*document.Document, error) {
	return s.getDocumentByKey(ctx, documentKey(docID.String()))
}

// ListDocuments returns documents ordered by creation time descending.
func (s *Store) ListDocuments(ctx context.Context, opts document.ListOpts) ([]*document.Document, error) {
	ids, err := s.client.SMembers(ctx, documentIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("digest/redis: list documents smembers: %w", err)
	}

	docs := make([]*document.Document, 0, len(ids))
	for _, dID := range ids {
		d, getErr := s.getDocumentByKey(ctx, documentKey(dID))
		if getErr != nil {
			continue // skip missing
		}
		docs = append(docs, d)
	}

	sort.Slice(docs, func(i, k int) bool {
		if !docs[i].CreatedAt.Equal(docs[k].CreatedAt) {
			return docs[i].CreatedAt.After(docs[k].CreatedAt)
		}
		return docs[i].ID.String() > docs[k].ID.String()
	})

	return paginate(docs, opts.Offset, opts.Limit), nil
}

// CountDocuments returns the total number of documents broken down by type.
func (s *Store) CountDocuments(ctx context.Context) (map[document.Type]int64, error) {
	ids, err := s.client.SMembers(ctx, documentIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("digest/redis: count documents smembers: %w", err)
	}

	counts := make(map[document.Type]int64)
	for _, dID := range ids {
		d, getErr := s.getDocumentByKey(ctx, documentKey(dID))
		if getErr != nil {
			continue
		}
		counts[d.Type]++
	}
	return counts, nil
}

// ── helpers ──

func documentToMap(d *document.Document) map[string]interface{} {
	return map[string]interface{}{
		"id":                d.ID.String(),
		"filename":          d.Filename,
		"original_filename": d.OriginalFilename,
		"type":              string(d.Type),
		"size_bytes":        strconv.FormatInt(d.SizeBytes, 10),
		"storage_ref":       d.StorageRef,
		"created_at":        d.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":        d.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func (s *Store) getDocumentByKey(ctx context.Context, key string) (*document.Document, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("digest/redis: get document: %w", err)
	}
	if len(vals) == 0 {
		return nil, digest.ErrDocumentNotFound
	}
	return mapToDocument(vals)
}

func mapToDocument(m map[string]string) (*document.Document, error) {
	dID, err := id.ParseDocumentID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("digest/redis: parse document id: %w", err)
	}

	sizeBytes, _ := strconv.ParseInt(m["size_bytes"], 10, 64)             //nolint:errcheck // best-effort parse from trusted Redis data
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"])         //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"])         //nolint:errcheck // best-effort parse from trusted Redis data

	return &document.Document{
		Entity: digest.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		ID:               dID,
		Filename:         m["filename"],
		OriginalFilename: m["original_filename"],
		Type:             document.Type(m["type"]),
		SizeBytes:        sizeBytes,
		StorageRef:       m["storage_ref"],
	}, nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
