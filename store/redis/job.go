package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/digest"
	"github.com/xraph/digest/id"
	"github.com/xraph/digest/job"
	"github.com/xraph/digest/provider"
)

// EnqueueJob stores the job as a Hash and pushes it onto the pending List.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	jID := j.ID.String()
	key := jobKey(jID)

	docExists, err := s.client.Exists(ctx, documentKey(j.DocumentID.String())).Result()
	if err != nil {
		return fmt.Errorf("digest/redis: enqueue check document: %w", err)
	}
	if docExists == 0 {
		return digest.ErrDocumentNotFound
	}

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("digest/redis: enqueue check exists: %w", err)
	}
	if exists > 0 {
		return digest.ErrJobAlreadyExists
	}

	if !s.allowResubmission {
		// SAdd returns 0 when the document already has a job, which makes
		// the one-job-per-document check atomic.
		added, saddErr := s.client.SAdd(ctx, jobDocumentsKey, j.DocumentID.String()).Result()
		if saddErr != nil {
			return fmt.Errorf("digest/redis: enqueue reserve document: %w", saddErr)
		}
		if added == 0 {
			return digest.ErrDuplicateJob
		}
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, jobToMap(j))
	pipe.SAdd(ctx, jobIDsKey, jID)
	pipe.RPush(ctx, pendingKey, jID)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("digest/redis: enqueue job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return s.getJobByKey(ctx, jobKey(jobID.String()))
}

// ListJobs returns jobs ordered by creation time descending.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("digest/redis: list jobs smembers: %w", err)
	}

	jobs := make([]*job.Job, 0, len(ids))
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			continue // skip missing
		}
		if opts.Status != "" && j.Status != opts.Status {
			continue
		}
		if !opts.DocumentID.IsNil() && j.DocumentID != opts.DocumentID {
			continue
		}
		jobs = append(jobs, j)
	}

	sort.Slice(jobs, func(i, k int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
		}
		return jobs[i].ID.String() > jobs[k].ID.String()
	})

	return paginate(jobs, opts.Offset, opts.Limit), nil
}

// ClaimNextPending atomically claims the oldest pending job for workerID.
// LPop removes the ID from the pending List in a single operation, so two
// concurrent claims can never return the same job.
func (s *Store) ClaimNextPending(ctx context.Context, workerID id.WorkerID) (*job.Job, error) {
	for {
		jID, err := s.client.LPop(ctx, pendingKey).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return nil, digest.ErrNoPendingJobs
			}
			return nil, fmt.Errorf("digest/redis: claim lpop: %w", err)
		}

		key := jobKey(jID)
		now := time.Now().UTC()
		_, err = s.client.HSet(ctx, key,
			"status", string(job.StatusProcessing),
			"worker_id", workerID.String(),
			"started_at", now.Format(time.RFC3339Nano),
			"updated_at", now.Format(time.RFC3339Nano),
		).Result()
		if err != nil {
			return nil, fmt.Errorf("digest/redis: claim update: %w", err)
		}

		j, getErr := s.getJobByKey(ctx, key)
		if getErr != nil {
			if errors.Is(getErr, digest.ErrJobNotFound) {
				// Purged while queued; try the next one.
				continue
			}
			return nil, getErr
		}
		return j, nil
	}
}

// UpdateTerminal transitions a processing job to its terminal status,
// applying the outcome all-or-nothing.
func (s *Store) UpdateTerminal(ctx context.Context, jobID id.JobID, outcome job.Outcome) error {
	key := jobKey(jobID.String())

	j, err := s.getJobByKey(ctx, key)
	if err != nil {
		return err
	}
	if !job.CanTransition(j.Status, outcome.Status) {
		return digest.ErrInvalidTransition
	}

	outcome.Apply(j, time.Now().UTC())

	if _, err = s.client.HSet(ctx, key, jobToMap(j)).Result(); err != nil {
		return fmt.Errorf("digest/redis: update terminal: %w", err)
	}
	return nil
}

// CancelJob transitions a pending job to cancelled. LRem removes the ID
// from the pending List first; once removed, no worker can claim it.
func (s *Store) CancelJob(ctx context.Context, jobID id.JobID) error {
	jID := jobID.String()
	key := jobKey(jID)

	removed, err := s.client.LRem(ctx, pendingKey, 1, jID).Result()
	if err != nil {
		return fmt.Errorf("digest/redis: cancel lrem: %w", err)
	}
	if removed == 0 {
		exists, existsErr := s.client.Exists(ctx, key).Result()
		if existsErr != nil {
			return fmt.Errorf("digest/redis: cancel exists: %w", existsErr)
		}
		if exists == 0 {
			return digest.ErrJobNotFound
		}
		return digest.ErrInvalidTransition
	}

	now := time.Now().UTC()
	_, err = s.client.HSet(ctx, key,
		"status", string(job.StatusCancelled),
		"completed_at", now.Format(time.RFC3339Nano),
		"updated_at", now.Format(time.RFC3339Nano),
	).Result()
	if err != nil {
		return fmt.Errorf("digest/redis: cancel job: %w", err)
	}
	return nil
}

// CountJobs returns the number of jobs matching the given options.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("digest/redis: count smembers: %w", err)
	}

	var count int64
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			continue
		}
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
func (s *Store) PurgeJobs(ctx context.Context, before time.Time) (int64, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("digest/redis: purge smembers: %w", err)
	}

	var removed int64
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			continue
		}
		if !j.Status.Terminal() {
			continue
		}
		if j.CompletedAt == nil || !j.CompletedAt.Before(before) {
			continue
		}

		pipe := s.client.TxPipeline()
		pipe.Del(ctx, jobKey(jID))
		pipe.SRem(ctx, jobIDsKey, jID)
		if !s.allowResubmission {
			pipe.SRem(ctx, jobDocumentsKey, j.DocumentID.String())
		}
		if _, err = pipe.Exec(ctx); err != nil {
			return removed, fmt.Errorf("digest/redis: purge job %s: %w", jID, err)
		}
		removed++
	}
	return removed, nil
}

// ── helpers ──

func jobToMap(j *job.Job) map[string]interface{} {
	m := map[string]interface{}{
		"id":                j.ID.String(),
		"document_id":       j.DocumentID.String(),
		"provider":          j.Provider,
		"fallback_provider": j.FallbackProvider,
		"status":            string(j.Status),
		"retry_count":       strconv.Itoa(j.RetryCount),
		"estimated_tokens":  strconv.Itoa(j.EstimatedTokens),
		"estimated_cost":    strconv.FormatFloat(j.EstimatedCost, 'g', -1, 64),
		"actual_tokens":     strconv.Itoa(j.ActualTokens),
		"actual_cost":       strconv.FormatFloat(j.ActualCost, 'g', -1, 64),
		"summary":           j.Summary,
		"key_points":        marshalJSON(j.KeyPoints),
		"entities":          marshalJSON(j.Entities),
		"provider_used":     j.ProviderUsed,
		"error_message":     j.ErrorMessage,
		"worker_id":         j.WorkerID.String(),
		"processing_time":   strconv.FormatInt(int64(j.ProcessingTime), 10),
		"created_at":        j.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":        j.UpdatedAt.Format(time.RFC3339Nano),
	}
	if j.StartedAt != nil {
		m["started_at"] = j.StartedAt.Format(time.RFC3339Nano)
	}
	if j.CompletedAt != nil {
		m["completed_at"] = j.CompletedAt.Format(time.RFC3339Nano)
	}
	return m
}

func (s *Store) getJobByKey(ctx context.Context, key string) (*job.Job, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("digest/redis: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, digest.ErrJobNotFound
	}
	return mapToJob(vals)
}

func mapToJob(m map[string]string) (*job.Job, error) {
	jID, err := id.ParseJobID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("digest/redis: parse job id: %w", err)
	}
	docID, err := id.ParseDocumentID(m["document_id"])
	if err != nil {
		return nil, fmt.Errorf("digest/redis: parse document id: %w", err)
	}

	retryCount, _ := strconv.Atoi(m["retry_count"])                        //nolint:errcheck // best-effort parse from trusted Redis data
	estimatedTokens, _ := strconv.Atoi(m["estimated_tokens"])              //nolint:errcheck // best-effort parse from trusted Redis data
	estimatedCost, _ := strconv.ParseFloat(m["estimated_cost"], 64)        //nolint:errcheck // best-effort parse from trusted Redis data
	actualTokens, _ := strconv.Atoi(m["actual_tokens"])                    //nolint:errcheck // best-effort parse from trusted Redis data
	actualCost, _ := strconv.ParseFloat(m["actual_cost"], 64)              //nolint:errcheck // best-effort parse from trusted Redis data
	processingNs, _ := strconv.ParseInt(m["processing_time"], 10, 64)      //nolint:errcheck // best-effort parse from trusted Redis data

	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	j := &job.Job{
		Entity: digest.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		ID:               jID,
		DocumentID:       docID,
		Provider:         m["provider"],
		FallbackProvider: m["fallback_provider"],
		Status:           job.Status(m["status"]),
		RetryCount:       retryCount,
		EstimatedTokens:  estimatedTokens,
		EstimatedCost:    estimatedCost,
		ActualTokens:     actualTokens,
		ActualCost:       actualCost,
		Summary:          m["summary"],
		KeyPoints:        unmarshalStrings(m["key_points"]),
		Entities:         unmarshalEntities(m["entities"]),
		ProviderUsed:     m["provider_used"],
		ErrorMessage:     m["error_message"],
		ProcessingTime:   time.Duration(processingNs),
	}

	if wid := m["worker_id"]; wid != "" {
		j.WorkerID, _ = id.ParseWorkerID(wid) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["started_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		j.StartedAt = &t
	}
	if v := m["completed_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		j.CompletedAt = &t
	}

	return j, nil
}

// marshalJSON is a helper to marshal to JSON string.
func marshalJSON(v interface{}) string {
	b, _ := json.Marshal(v) //nolint:errcheck // marshal should not fail for basic types
	return string(b)
}

// unmarshalStrings parses a JSON array of strings.
func unmarshalStrings(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s), &out) //nolint:errcheck // best-effort parse from trusted Redis data
	return out
}

// unmarshalEntities parses a JSON array of extracted entities.
func unmarshalEntities(s string) []provider.Entity {
	if s == "" || s == "null" {
		return nil
	}
	var out []provider.Entity
	_ = json.Unmarshal([]byte(s), &out) //nolint:errcheck // best-effort parse from trusted Redis data
	return out
}
