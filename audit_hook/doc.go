// Package audithook is a digest extension that bridges job lifecycle
// events to an audit trail backend.
//
// Every job lifecycle hook emits a structured audit event through the
// [Recorder] interface. The extension assigns appropriate severity
// levels (info for normal operations, warning for fallbacks, critical
// for terminal failures) and rich metadata (document ID, providers,
// cost, elapsed time, errors).
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionJobFailed,
//	        audithook.ActionJobFallback,
//	    ),
//	)
package audithook
