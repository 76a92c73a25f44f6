package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/digest/job"
)

// Timeout returns middleware that enforces an optional processing
// deadline. With a zero limit no deadline is set: by default a stalled
// provider call stalls only its own worker slot. When limit is
// non-zero the context is cancelled at the deadline and the adapter
// should return the context error.
func Timeout(logger *slog.Logger, limit time.Duration) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if limit > 0 {
			logger.Debug("job deadline set",
				slog.String("job_id", j.ID.String()),
				slog.Duration("limit", limit),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, limit)
			defer cancel()
		}
		return next(ctx)
	}
}
