// Package stream provides a real-time event broker for digest job
// lifecycle events. It bridges the ext.Extension system to connected
// clients via topic-based pub/sub.
package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	EventJobEnqueued  EventType = "job.enqueued"
	EventJobStarted   EventType = "job.started"
	EventJobFallback  EventType = "job.fallback"
	EventJobCompleted EventType = "job.completed"
	EventJobFailed    EventType = "job.failed"
	EventJobCancelled EventType = "job.cancelled"
)

// Event is the envelope sent to subscribers on a topic channel.
type Event struct {
	// Type identifies the lifecycle event.
	Type EventType `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Topic is the channel this event was published on.
	Topic string `json:"topic"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`
}

// JobEventData is the payload for job lifecycle events.
type JobEventData struct {
	JobID      string  `json:"job_id"`
	DocumentID string  `json:"document_id"`
	Provider   string  `json:"provider"`
	Status     string  `json:"status"`
	FallbackTo string  `json:"fallback_to,omitempty"`
	ActualCost float64 `json:"actual_cost,omitempty"`
	ElapsedMs  int64   `json:"elapsed_ms,omitempty"`
	Error      string  `json:"error,omitempty"`
}
