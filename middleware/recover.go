package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/digest/job"
	"github.com/xraph/digest/provider"
)

// Recover returns middleware that recovers from panics in the handler
// chain. Panics are logged with a stack trace and converted to fatal
// provider errors so a panicking adapter fails the job instead of
// killing the worker.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("job handler panicked",
					slog.String("job_id", j.ID.String()),
					slog.String("provider", j.Provider),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = provider.Fatal(j.Provider, fmt.Errorf("panic: %v", r))
			}
		}()
		return next(ctx)
	}
}
