package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/digest/job"
)

// Logging returns middleware that logs job start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		logger.Info("job processing",
			slog.String("job_id", j.ID.String()),
			slog.String("document_id", j.DocumentID.String()),
			slog.String("provider", j.Provider),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("job failed",
				slog.String("job_id", j.ID.String()),
				slog.String("provider", j.Provider),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("job completed",
				slog.String("job_id", j.ID.String()),
				slog.String("provider_used", j.ProviderUsed),
				slog.Int("retry_count", j.RetryCount),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
