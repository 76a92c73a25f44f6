// Package memory provides a fully in-memory store backend. Safe for
// concurrent access. Intended for unit testing, development, and the demo
// binary.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/digest"
	"github.com/xraph/digest/document"
	"github.com/xraph/digest/id"
	"github.com/xraph/digest/job"
	"github.com/xraph/digest/store"
)

var _ store.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store. A single
// mutex guards both maps, which makes ClaimNextPending trivially atomic.
type Store struct {
	mu sync.RWMutex

	documents map[string]*document.Document
	jobs      map[string]*job.Job

	allowResubmission bool
}

// Option configures a Store.
type Option func(*Store)

// WithAllowResubmission controls whether a document may have more than
// one job. Enabled by default.
func WithAllowResubmission(allow bool) Option {
	return func(s *Store) { s.allowResubmission = allow }
}

// New returns a new empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		documents:         make(map[string]*document.Document),
		jobs:              make(map[string]*job.Job),
		allowResubmission: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Document Store
// ──────────────────────────────────────────────────

// CreateDocument persists a new document.
func (m *Store) CreateDocument(_ context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := d.ID.String()
	if _, exists := m.documents[key]; exists {
		return digest.ErrDocumentAlreadyExists
	}
	cp := *d
	m.documents[key] = &cp
	return nil
}

// GetDocument retrieves a document by ID.
func (m *Store) GetDocument(_ context.Context, docID id.DocumentID) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.documents[docID.String()]
	if !ok {
		return nil, digest.ErrDocumentNotFound
	}
	cp := *d
	return &cp, nil
}

// ListDocuments returns documents ordered by creation time descending.
func (m *Store) ListDocuments(_ context.Context, opts document.ListOpts) ([]*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*document.Document, 0, len(m.documents))
	for _, d := range m.documents {
		cp := *d
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		if !result[i].CreatedAt.Equal(result[k].CreatedAt) {
			return result[i].CreatedAt.After(result[k].CreatedAt)
		}
		return result[i].ID.String() > result[k].ID.String()
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

// CountDocuments returns the total number of documents broken down by type.
func (m *Store) CountDocuments(_ context.Context) (map[document.Type]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[document.Type]int64)
	for _, d := range m.documents {
		counts[d.Type]++
	}
	return counts, nil
}

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// EnqueueJob persists a new job in pending state.
func (m *Store) EnqueueJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documents[j.DocumentID.String()]; !ok {
		return digest.ErrDocumentNotFound
	}

	key := j.ID.String()
	if _, exists := m.jobs[key]; exists {
		return digest.ErrJobAlreadyExists
	}

	if !m.allowResubmission {
		for _, existing := range m.jobs {
			if existing.DocumentID == j.DocumentID {
				return digest.ErrDuplicateJob
			}
		}
	}

	cp := *j
	m.jobs[key] = &cp
	return nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, digest.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// ListJobs returns jobs ordered by creation time descending.
func (m *Store) ListJobs(_ context.Context, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if opts.Status != "" && j.Status != opts.Status {
			continue
		}
		if !opts.DocumentID.IsNil() && j.DocumentID != opts.DocumentID {
			continue
		}
		cp := *j
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		if !result[i].CreatedAt.Equal(result[k].CreatedAt) {
			return result[i].CreatedAt.After(result[k].CreatedAt)
		}
		return result[i].ID.String() > result[k].ID.String()
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

// ClaimNextPending atomically claims the oldest pending job for workerID.
// The whole claim happens under the write lock, so two concurrent claims
// can never return the same job.
func (m *Store) ClaimNextPending(_ context.Context, workerID id.WorkerID) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var oldest *job.Job
	for _, j := range m.jobs {
		if j.Status != job.StatusPending {
			continue
		}
		if oldest == nil || claimBefore(j, oldest) {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, digest.ErrNoPendingJobs
	}

	now := time.Now().UTC()
	oldest.Status = job.StatusProcessing
	oldest.WorkerID = workerID
	oldest.StartedAt = &now
	oldest.UpdatedAt = now

	cp := *oldest
	return &cp, nil
}

// claimBefore orders pending jobs oldest-first with the ID as tiebreaker.
func claimBefore(a, b *job.Job) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// UpdateTerminal transitions a processing job to its terminal status,
// applying the outcome all-or-nothing.
func (m *Store) UpdateTerminal(_ context.Context, jobID id.JobID, outcome job.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return digest.ErrJobNotFound
	}
	if !job.CanTransition(j.Status, outcome.Status) {
		return digest.ErrInvalidTransition
	}

	outcome.Apply(j, time.Now().UTC())
	return nil
}

// CancelJob transitions a pending job to cancelled.
func (m *Store) CancelJob(_ context.Context, jobID id.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return digest.ErrJobNotFound
	}
	if !job.CanTransition(j.Status, job.StatusCancelled) {
		return digest.ErrInvalidTransition
	}

	now := time.Now().UTC()
	j.Status = job.StatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// CountJobs returns the number of jobs matching the given options.
func (m *Store) CountJobs(_ context.Context, opts job.CountOpts) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, j := range m.jobs {
		if opts.Status != "" && j.Status != opts.Status {
			continue
		}
		if opts.Provider != "" && j.Provider != opts.Provider {
			continue
		}
		count++
	}
	return count, nil
}

// PurgeJobs removes terminal jobs completed before the given cutoff.
func (m *Store) PurgeJobs(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for key, j := range m.jobs {
		if !j.Status.Terminal() {
			continue
		}
		if j.CompletedAt == nil || !j.CompletedAt.Before(before) {
			continue
		}
		delete(m.jobs, key)
		removed++
	}
	return removed, nil
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
