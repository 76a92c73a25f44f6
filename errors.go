package digest

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("digest: no store configured")
	ErrStoreClosed     = errors.New("digest: store closed")
	ErrMigrationFailed = errors.New("digest: migration failed")

	// Not found errors.
	ErrJobNotFound      = errors.New("digest: job not found")
	ErrDocumentNotFound = errors.New("digest: document not found")

	// Conflict errors.
	ErrJobAlreadyExists      = errors.New("digest: job already exists")
	ErrDocumentAlreadyExists = errors.New("digest: document already exists")
	ErrDuplicateJob          = errors.New("digest: document already has a job")

	// State errors.
	ErrInvalidTransition = errors.New("digest: invalid status transition")
	ErrNoPendingJobs     = errors.New("digest: no pending jobs")

	// Provider errors.
	ErrUnknownProvider     = errors.New("digest: unknown provider")
	ErrProviderUnavailable = errors.New("digest: provider unavailable")
)
