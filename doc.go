// Package digest provides an asynchronous document-summarization pipeline
// for Go. Documents are registered, jobs are enqueued against an AI
// provider with an optional fallback, and a worker pool drives every job
// to a terminal state with cost and telemetry metadata.
//
// Digest is designed as a library, not a service. Import it, configure a
// store and a provider registry, and start the worker pool. HTTP routing,
// upload handling, and dashboards are callers of the store, not part of
// this module.
//
// # Quick Start
//
//	eng, err := engine.Build(
//	    engine.WithStore(memory.New()),
//	    engine.WithProviders(registry),
//	)
//
// # Architecture
//
// Digest follows a composable store pattern: the document and job
// subsystems each define their own store interface and a single backend
// implements both. Claiming a pending job is the only serialization
// point; it is an atomic conditional update in every backend.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package digest
