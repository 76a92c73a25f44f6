// Package webhookhook is a digest extension that delivers job lifecycle
// events to an external HTTP endpoint as JSON webhooks.
//
// Each lifecycle hook builds a typed payload and POSTs an envelope
// carrying the event type, timestamp, and payload. Delivery is
// best-effort: a failed POST is logged and never blocks job processing.
//
// # Selective filtering
//
//	webhookhook.New("https://hooks.example.com/digest",
//	    webhookhook.WithEvents(
//	        webhookhook.EventJobCompleted,
//	        webhookhook.EventJobFailed,
//	    ),
//	)
package webhookhook
