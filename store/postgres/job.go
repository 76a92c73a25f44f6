package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

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
	keyPoints, entities, err := marshalPayload(j)
	if err != nil {
		return err
	}

	args := []interface{}{
		j.ID.String(), j.DocumentID.String(), j.Provider, j.FallbackProvider,
		string(j.Status), j.RetryCount,
		j.EstimatedTokens, j.EstimatedCost, j.ActualTokens, j.ActualCost,
		j.Summary, keyPoints, entities, j.ProviderUsed, j.ErrorMessage,
		j.WorkerID.String(), j.StartedAt, j.CompletedAt, j.ProcessingTime.Nanoseconds(),
		j.CreatedAt, j.UpdatedAt,
	}

	if s.allowResubmission {
		_, err = s.pool.Exec(ctx, `
			INSERT INTO digest_jobs (`+jobColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
				$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
			args...,
		)
		if err != nil {
			if isDuplicateKey(err) {
				return digest.ErrJobAlreadyExists
			}
			if isForeignKeyViolation(err) {
				return digest.ErrDocumentNotFound
			}
			return fmt.Errorf("digest/postgres: enqueue job: %w", err)
		}
		return nil
	}

	// Resubmission disabled: the insert and the one-job-per-document check
	// must be a single statement so concurrent submits cannot both pass.
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO digest_jobs (`+jobColumns+`)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		WHERE NOT EXISTS (
			SELECT 1 FROM digest_jobs WHERE document_id = $2
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
		return fmt.Errorf("digest/postgres: enqueue job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return digest.ErrDuplicateJob
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM digest_jobs WHERE id = $1`,
		jobID.String(),
	)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, digest.ErrJobNotFound
		}
		return nil, fmt.Errorf("digest/postgres: get job: %w", err)
	}
	return j, nil
}

// ListJobs returns jobs ordered by creation time descending.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM digest_jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if opts.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(opts.Status))
		argIdx++
	}
	if !opts.DocumentID.IsNil() {
		query += fmt.Sprintf(" AND document_id = $%d", argIdx)
		args = append(args, opts.DocumentID.String())
		argIdx++
	}

	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("digest/postgres: list jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ClaimNextPending atomically claims the oldest pending job for workerID.
// FOR UPDATE SKIP LOCKED makes concurrent claims disjoint.
func (s *Store) ClaimNextPending(ctx context.Context, workerID id.WorkerID) (*job.Job, error) {
	row := s.pool.QueryRow(ctx, `
		WITH claimed AS (
			UPDATE digest_jobs
			SET status = 'processing', worker_id = $1,
				started_at = NOW(), updated_at = NOW()
			WHERE id = (
				SELECT id FROM digest_jobs
				WHERE status = 'pending'
				ORDER BY created_at ASC, id ASC
				FOR UPDATE SKIP LOCKED
				LIMIT 1
			)
			RETURNING `+jobColumns+`
		)
		SELECT * FROM claimed`,
		workerID.String(),
	)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, digest.ErrNoPendingJobs
		}
		return nil, fmt.Errorf("digest/postgres: claim job: %w", err)
	}
	return j, nil
}

// UpdateTerminal transitions a processing job to its terminal status,
// applying the outcome all-or-nothing in a single conditional update.
func (s *Store) UpdateTerminal(ctx context.Context, jobID id.JobID, outcome job.Outcome) error {
	var (
		summary      string
		keyPoints    []byte
		entities     []byte
		actualTokens int
		actualCost   float64
		providerUsed string
		errorMessage string
		err          error
	)

	if outcome.Status == job.StatusCompleted && outcome.Result != nil {
		summary = outcome.Result.Summary
		actualTokens = outcome.Result.TokensUsed
		actualCost = outcome.Result.Cost
		providerUsed = outcome.Result.Provider

		keyPoints, err = json.Marshal(outcome.Result.KeyPoints)
		if err != nil {
			return fmt.Errorf("digest/postgres: marshal key points: %w", err)
		}
		entities, err = json.Marshal(outcome.Result.Entities)
		if err != nil {
			return fmt.Errorf("digest/postgres: marshal entities: %w", err)
		}
	} else {
		errorMessage = outcome.ErrorMessage
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE digest_jobs SET
			status = $2, retry_count = $3, processing_time = $4,
			summary = $5, key_points = $6, entities = $7,
			actual_tokens = $8, actual_cost = $9, provider_used = $10,
			error_message = $11, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'processing'`,
		jobID.String(), string(outcome.Status), outcome.RetryCount,
		outcome.ProcessingTime.Nanoseconds(),
		summary, keyPoints, entities,
		actualTokens, actualCost, providerUsed, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("digest/postgres: update terminal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionFailure(ctx, jobID)
	}
	return nil
}

// CancelJob transitions a pending job to cancelled.
func (s *Store) CancelJob(ctx context.Context, jobID id.JobID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE digest_jobs
		SET status = 'cancelled', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		jobID.String(),
	)
	if err != nil {
		return fmt.Errorf("digest/postgres: cancel job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionFailure(ctx, jobID)
	}
	return nil
}

// transitionFailure distinguishes a missing job from an illegal transition
// after a conditional update matched no rows.
func (s *Store) transitionFailure(ctx context.Context, jobID id.JobID) error {
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM digest_jobs WHERE id = $1`,
		jobID.String(),
	).Scan(&status)
	if err != nil {
		if isNoRows(err) {
			return digest.ErrJobNotFound
		}
		return fmt.Errorf("digest/postgres: check job status: %w", err)
	}
	return digest.ErrInvalidTransition
}

// CountJobs returns the number of jobs matching the given options.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	query := `SELECT COUNT(*) FROM digest_jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if opts.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(opts.Status))
		argIdx++
	}
	if opts.Provider != "" {
		query += fmt.Sprintf(" AND provider = $%d", argIdx)
		args = append(args, opts.Provider)
	}

	var count int64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("digest/postgres: count jobs: %w", err)
	}
	return count, nil
}

// PurgeJobs removes terminal jobs completed before the given cutoff.
func (s *Store) PurgeJobs(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM digest_jobs
		WHERE status IN ('completed', 'failed', 'cancelled')
		  AND completed_at IS NOT NULL
		  AND completed_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("digest/postgres: purge jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// marshalPayload serializes the JSON-typed job columns.
func marshalPayload(j *job.Job) (keyPoints, entities []byte, err error) {
	keyPoints, err = json.Marshal(j.KeyPoints)
	if err != nil {
		return nil, nil, fmt.Errorf("digest/postgres: marshal key points: %w", err)
	}
	entities, err = json.Marshal(j.Entities)
	if err != nil {
		return nil, nil, fmt.Errorf("digest/postgres: marshal entities: %w", err)
	}
	return keyPoints, entities, nil
}

// scanJob scans a single job row.
func scanJob(row pgx.Row) (*job.Job, error) {
	var (
		j            job.Job
		idStr        string
		docStr       string
		statusStr    string
		keyPoints    []byte
		entities     []byte
		workerStr    string
		processingNs int64
	)
	err := row.Scan(
		&idStr, &docStr, &j.Provider, &j.FallbackProvider, &statusStr, &j.RetryCount,
		&j.EstimatedTokens, &j.EstimatedCost, &j.ActualTokens, &j.ActualCost,
		&j.Summary, &keyPoints, &entities, &j.ProviderUsed, &j.ErrorMessage,
		&workerStr, &j.StartedAt, &j.CompletedAt, &processingNs,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.Status = job.Status(statusStr)
	j.ProcessingTime = time.Duration(processingNs)

	if len(keyPoints) > 0 {
		if unmarshalErr := json.Unmarshal(keyPoints, &j.KeyPoints); unmarshalErr != nil {
			return nil, fmt.Errorf("digest/postgres: unmarshal key points: %w", unmarshalErr)
		}
	}
	if len(entities) > 0 {
		var ents []provider.Entity
		if unmarshalErr := json.Unmarshal(entities, &ents); unmarshalErr != nil {
			return nil, fmt.Errorf("digest/postgres: unmarshal entities: %w", unmarshalErr)
		}
		j.Entities = ents
	}

	parsedID, parseErr := id.ParseJobID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("digest/postgres: parse job id %q: %w", idStr, parseErr)
	}
	j.ID = parsedID

	parsedDoc, docErr := id.ParseDocumentID(docStr)
	if docErr != nil {
		return nil, fmt.Errorf("digest/postgres: parse document id %q: %w", docStr, docErr)
	}
	j.DocumentID = parsedDoc

	if workerStr != "" {
		if parsedWorker, workerErr := id.ParseWorkerID(workerStr); workerErr == nil {
			j.WorkerID = parsedWorker
		}
	}

	return &j, nil
}

// collectJobs collects all jobs from query rows.
func collectJobs(rows pgx.Rows) ([]*job.Job, error) {
	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("digest/postgres: scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("digest/postgres: iterate job rows: %w", err)
	}
	return jobs, nil
}
