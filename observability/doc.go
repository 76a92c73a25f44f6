// Package observability provides lifecycle-hook extensions recording
// system-wide job counters and estimate-versus-actual cost variance.
//
// For per-execution tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
