package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/digest"
	"github.com/xraph/digest/id"
	"github.com/xraph/digest/job"
	"github.com/xraph/digest/provider"
)

const jobColumns = `
	id, document_id, provider, fallback_provider, status, retry_count,
	estimated_tokens, estimated_cost, actual_tokens, actual_cost,
	summary, key_points, entities, provider_used, error_message,
	worker_id, started_at, completed_at, processing_time,
	created_at, updated_at`

// EnqueueJob persists a new job in pending state.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM digest_documents WHERE id = ?)`,
		j.DocumentID.String(),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("digest/sqlite: check document: %w", err)
	}
	if !exists {
		return digest.ErrDocumentNotFound
	}

	keyPoints, err := json.Marshal(j.KeyPoints)
	if err != nil {
		return fmt.Errorf("digest/sqlite: marshal key points: %w", err)
	}
	entities, err := json.Marshal(j.Entities)
	if err != nil {
		return fmt.Errorf("digest/sqlite: marshal entities: %w", err)
	}

	args := []interface{}{
		j.ID.String(), j.DocumentID.String(), j.Provider, j.FallbackProvider,
		string(j.Status), j.RetryCount,
		j.EstimatedTokens, j.EstimatedCost, j.ActualTokens, j.ActualCost,
		j.Summary, string(keyPoints), string(entities), j.ProviderUsed, j.ErrorMessage,
		j.WorkerID.String(), toNullNanos(j.StartedAt), toNullNanos(j.CompletedAt),
		j.ProcessingTime.Nanoseconds(),
		toNanos(j.CreatedAt), toNanos(j.UpdatedAt),
	}

	if s.allowResubmission {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO digest_jobs (`+jobColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			args...,
		)
		if err != nil {
			if isDuplicateKey(err) {
				return digest.ErrJobAlreadyExists
			}
			if isForeignKeyViolation(err) {
				return digest.ErrDocumentNotFound
			}
			return fmt.Errorf("digest/sqlite: enqueue job: %w", err)
		}
		return nil
	}

	// Resubmission disabled: insert and the one-job-per-document check in a
	// single statement (SQLite serializes writes).
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO digest_jobs (`+jobColumns+`)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM digest_jobs WHERE document_id = ?2
		)`,
		args...,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return digest.ErrJobAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return digest.ErrDocumentNotFound
		}
		return fmt.Errorf("digest/sqlite: enqueue job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("digest/sqlite: enqueue job: %w", err)
	}
	if n == 0 {
		return digest.ErrDuplicateJob
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM digest_jobs WHERE id = ?`,
		jobID.String(),
	)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, digest.ErrJobNotFound
		}
		return nil, fmt.Errorf("digest/sqlite: get job: %w", err)
	}
	return j, nil
}

// ListJobs returns jobs ordered by creation time descending.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM digest_jobs WHERE 1=1`
	args := []interface{}{}

	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}
	if !opts.DocumentID.IsNil() {
		query += " AND document_id = ?"
		args = append(args, opts.DocumentID.String())
	}

	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("digest/sqlite: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("digest/sqlite: scan job row: %w", scanErr)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("digest/sqlite: iterate job rows: %w", err)
	}
	return jobs, nil
}

// ClaimNextPending atomically claims the oldest pending job for workerID.
// The conditional UPDATE with RETURNING runs under SQLite's single-writer
// lock, so concurrent claims are disjoint.
func (s *Store) ClaimNextPending(ctx context.Context, workerID id.WorkerID) (*job.Job, error) {
	now := time.Now().UTC()
	row := s.db.QueryRowContext(ctx, `
		UPDATE digest_jobs
		SET status = 'processing', worker_id = ?, started_at = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM digest_jobs
			WHERE status = 'pending'
			ORDER BY created_at ASC, id ASC
			LIMIT 1
		)
		RETURNING `+jobColumns,
		workerID.String(), toNanos(now), toNanos(now),
	)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, digest.ErrNoPendingJobs
		}
		return nil, fmt.Errorf("digest/sqlite: claim job: %w", err)
	}
	return j, nil
}

// UpdateTerminal transitions a processing job to its terminal status,
// applying the outcome all-or-nothing in a single conditional update.
func (s *Store) UpdateTerminal(ctx context.Context, jobID id.JobID, outcome job.Outcome) error {
	var (
		summary      string
		keyPoints    = "null"
		entities     = "null"
		actualTokens int
		actualCost   float64
		providerUsed string
		errorMessage string
	)

	if outcome.Status == job.StatusCompleted && outcome.Result != nil {
		summary = outcome.Result.Summary
		actualTokens = outcome.Result.TokensUsed
		actualCost = outcome.Result.Cost
		providerUsed = outcome.Result.Provider

		kp, err := json.Marshal(outcome.Result.KeyPoints)
		if err != nil {
			return fmt.Errorf("digest/sqlite: marshal key points: %w", err)
		}
		keyPoints = string(kp)

		ents, err := json.Marshal(outcome.Result.Entities)
		if err != nil {
			return fmt.Errorf("digest/sqlite: marshal entities: %w", err)
		}
		entities = string(ents)
	} else {
		errorMessage = outcome.ErrorMessage
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE digest_jobs SET
			status = ?, retry_count = ?, processing_time = ?,
			summary = ?, key_points = ?, entities = ?,
			actual_tokens = ?, actual_cost = ?, provider_used = ?,
			error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = 'processing'`,
		string(outcome.Status), outcome.RetryCount, outcome.ProcessingTime.Nanoseconds(),
		summary, keyPoints, entities,
		actualTokens, actualCost, providerUsed,
		errorMessage, toNanos(now), toNanos(now),
		jobID.String(),
	)
	if err != nil {
		return fmt.Errorf("digest/sqlite: update terminal: %w", err)
	}
	return s.checkTransition(ctx, jobID, res)
}

// CancelJob transitions a pending job to cancelled.
func (s *Store) CancelJob(ctx context.Context, jobID id.JobID) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE digest_jobs
		SET status = 'cancelled', completed_at = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`,
		toNanos(now), toNanos(now), jobID.String(),
	)
	if err != nil {
		return fmt.Errorf("digest/sqlite: cancel job: %w", err)
	}
	return s.checkTransition(ctx, jobID, res)
}

// checkTransition distinguishes a missing job from an illegal transition
// after a conditional update matched no rows.
func (s *Store) checkTransition(ctx context.Context, jobID id.JobID, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("digest/sqlite: rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM digest_jobs WHERE id = ?`,
		jobID.String(),
	).Scan(&status)
	if err != nil {
		if isNoRows(err) {
			return digest.ErrJobNotFound
		}
		return fmt.Errorf("digest/sqlite: check job status: %w", err)
	}
	return digest.ErrInvalidTransition
}

// CountJobs returns the number of jobs matching the given options.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	query := `SELECT COUNT(*) FROM digest_jobs WHERE 1=1`
	args := []interface{}{}

	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}
	if opts.Provider != "" {
		query += " AND provider = ?"
		args = append(args, opts.Provider)
	}

	var count int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("digest/sqlite: count jobs: %w", err)
	}
	return count, nil
}

// PurgeJobs removes terminal jobs completed before the given cutoff.
func (s *Store) PurgeJobs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM digest_jobs
		WHERE status IN ('completed', 'failed', 'cancelled')
		  AND completed_at IS NOT NULL
		  AND completed_at < ?`,
		toNanos(before),
	)
	if err != nil {
		return 0, fmt.Errorf("digest/sqlite: purge jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("digest/sqlite: purge jobs: %w", err)
	}
	return n, nil
}

// scanJob scans a single job row.
func scanJob(row rowScanner) (*job.Job, error) {
	var (
		j            job.Job
		idStr        string
		docStr       string
		statusStr    string
		keyPoints    sql.NullString
		entities     sql.NullString
		workerStr    string
		startedNs    sql.NullInt64
		completedNs  sql.NullInt64
		processingNs int64
		createdNs    int64
		updatedNs    int64
	)
	err := row.Scan(
		&idStr, &docStr, &j.Provider, &j.FallbackProvider, &statusStr, &j.RetryCount,
		&j.EstimatedTokens, &j.EstimatedCost, &j.ActualTokens, &j.ActualCost,
		&j.Summary, &keyPoints, &entities, &j.ProviderUsed, &j.ErrorMessage,
		&workerStr, &startedNs, &completedNs, &processingNs,
		&createdNs, &updatedNs,
	)
	if err != nil {
		return nil, err
	}

	j.Status = job.Status(statusStr)
	j.StartedAt = fromNullNanos(startedNs)
	j.CompletedAt = fromNullNanos(completedNs)
	j.ProcessingTime = time.Duration(processingNs)
	j.CreatedAt = fromNanos(createdNs)
	j.UpdatedAt = fromNanos(updatedNs)

	if keyPoints.Valid && keyPoints.String != "" && keyPoints.String != "null" {
		if unmarshalErr := json.Unmarshal([]byte(keyPoints.String), &j.KeyPoints); unmarshalErr != nil {
			return nil, fmt.Errorf("digest/sqlite: unmarshal key points: %w", unmarshalErr)
		}
	}
	if entities.Valid && entities.String != "" && entities.String != "null" {
		var ents []provider.Entity
		if unmarshalErr := json.Unmarshal([]byte(entities.String), &ents); unmarshalErr != nil {
			return nil, fmt.Errorf("digest/sqlite: unmarshal entities: %w", unmarshalErr)
		}
		j.Entities = ents
	}

	parsedID, parseErr := id.ParseJobID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("digest/sqlite: parse job id %q: %w", idStr, parseErr)
	}
	j.ID = parsedID

	parsedDoc, docErr := id.ParseDocumentID(docStr)
	if docErr != nil {
		return nil, fmt.Errorf("digest/sqlite: parse document id %q: %w", docStr, docErr)
	}
	j.DocumentID = parsedDoc

	if workerStr != "" {
		if parsedWorker, workerErr := id.ParseWorkerID(workerStr); workerErr == nil {
			j.WorkerID = parsedWorker
		}
	}

	return &j, nil
}
