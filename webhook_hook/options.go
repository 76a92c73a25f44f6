package webhookhook

import (
	"log/slog"
	"net/http"
)

// Option configures an Extension.
type Option func(*Extension)

// PayloadFunc builds a custom event payload for a specific event type.
// The args parameter contains the default payload and the returned
// value becomes the envelope's Data.
type PayloadFunc func(args any) (any, error)

// WithEvents restricts the extension to emit only the listed event types.
// By default all event types are enabled. Unknown types are silently
// ignored.
func WithEvents(events ...string) Option {
	return func(h *Extension) {
		h.enabled = make(map[string]bool, len(events))
		for _, e := range events {
			h.enabled[e] = true
		}
	}
}

// WithPayloadFunc registers a custom payload builder for the given event
// type. The function replaces the default JSON payload for that event.
func WithPayloadFunc(eventType string, fn PayloadFunc) Option {
	return func(h *Extension) {
		if h.payloads == nil {
			h.payloads = make(map[string]PayloadFunc)
		}
		h.payloads[eventType] = fn
	}
}

// WithHTTPClient sets a custom HTTP client for webhook delivery.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Extension) {
		if c != nil {
			h.client = c
		}
	}
}

// WithHeader adds a static header to every webhook request, for
// example an authorization token.
func WithHeader(key, value string) Option {
	return func(h *Extension) {
		if h.headers == nil {
			h.headers = make(map[string]string)
		}
		h.headers[key] = value
	}
}

// WithLogger sets a custom logger for the extension.
func WithLogger(l *slog.Logger) Option {
	return func(h *Extension) {
		if l != nil {
			h.logger = l
		}
	}
}
