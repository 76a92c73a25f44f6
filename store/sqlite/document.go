package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xraph/digest"
	"github.com/xraph/digest/document"
	"github.com/xraph/digest/id"
)

// CreateDocument persists a new document.
func (s *Store) CreateDocument(ctx context.Context, d *document.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO digest_documents (
			id, filename, original_filename, type, size_bytes, storage_ref,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.Filename, d.OriginalFilename, string(d.Type),
		d.SizeBytes, d.StorageRef, toNanos(d.CreatedAt), toNanos(d.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return digest.ErrDocumentAlreadyExists
		}
		return fmt.Errorf("digest/sqlite: create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, docID id.DocumentID) (*document.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, original_filename, type, size_bytes, storage_ref,
			created_at, updated_at
		FROM digest_documents
		WHERE id = ?`,
		docID.String(),
	)

	d, err := scanDocument(row)
	if err != nil {
		if isNoRows(err) {
			return nil, digest.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("digest/sqlite: get document: %w", err)
	}
	return d, nil
}

// ListDocuments returns documents ordered by creation time descending.
func (s *Store) ListDocuments(ctx context.Context, opts document.ListOpts) ([]*document.Document, error) {
	query := `
		SELECT id, filename, original_filename, type, size_bytes, storage_ref,
			created_at, updated_at
		FROM digest_documents
		ORDER BY created_at DESC, id DESC`
	args := []interface{}{}

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET.
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("digest/sqlite: list documents: %w", err)
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		d, scanErr := scanDocument(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("digest/sqlite: scan document row: %w", scanErr)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("digest/sqlite: iterate document rows: %w", err)
	}
	return docs, nil
}

// CountDocuments returns the total number of documents broken down by type.
func (s *Store) CountDocuments(ctx context.Context) (map[document.Type]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM digest_documents GROUP BY type`,
	)
	if err != nil {
		return nil, fmt.Errorf("digest/sqlite: count documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[document.Type]int64)
	for rows.Next() {
		var (
			typeStr string
			n       int64
		)
		if scanErr := rows.Scan(&typeStr, &n); scanErr != nil {
			return nil, fmt.Errorf("digest/sqlite: scan document count: %w", scanErr)
		}
		counts[document.Type(typeStr)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("digest/sqlite: iterate document counts: %w", err)
	}
	return counts, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row rowScanner) (*document.Document, error) {
	var (
		d         document.Document
		idStr     string
		typeStr   string
		createdNs int64
		updatedNs int64
	)
	err := row.Scan(
		&idStr, &d.Filename, &d.OriginalFilename, &typeStr,
		&d.SizeBytes, &d.StorageRef, &createdNs, &updatedNs,
	)
	if err != nil {
		return nil, err
	}

	d.Type = document.Type(typeStr)
	d.CreatedAt = fromNanos(createdNs)
	d.UpdatedAt = fromNanos(updatedNs)

	parsedID, parseErr := id.ParseDocumentID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("digest/sqlite: parse document id %q: %w", idStr, parseErr)
	}
	d.ID = parsedID

	return &d, nil
}

var _ rowScanner = (*sql.Row)(nil)
