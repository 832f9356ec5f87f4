package models

import (
	"time"

	"github.com/google/uuid"
)

// Signal is an immutable record of a weighted business event about one
// entity. Once appended to the signal log it is never mutated or deleted;
// corrections arrive as new signals with negative weights.
type Signal struct {
	ID                 uuid.UUID      `json:"signal_id"`
	EntityID           uuid.UUID      `json:"entity_id"`
	SignalType         string         `json:"signal_type"`
	Source             string         `json:"source"`
	CorrelationID      string         `json:"correlation_id"`
	OccurredAt         time.Time      `json:"occurred_at"`
	RecordedAt         time.Time      `json:"recorded_at"`
	DedupDiscriminator string         `json:"dedup_discriminator,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// DedupEntry reserves a (entity, signal type, discriminator) tuple for the
// duration of its dedup window. DuplicateCount tracks how many submissions
// were swallowed while the window was open.
type DedupEntry struct {
	DedupKey        string    `json:"dedup_key"`
	EntityID        uuid.UUID `json:"entity_id"`
	SignalType      string    `json:"signal_type"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	WindowExpiresAt time.Time `json:"window_expires_at"`
	DuplicateCount  int       `json:"duplicate_count"`
}

// RejectedSignal is an error-sink entry for a submission that did not become
// a durable signal. EntityID is nil when the rejection happened before the
// entity reference could be parsed.
type RejectedSignal struct {
	ID            uuid.UUID      `json:"id"`
	CorrelationID string         `json:"correlation_id"`
	EntityID      *uuid.UUID     `json:"entity_id,omitempty"`
	Reason        string         `json:"reason"`
	Retryable     bool           `json:"retryable"`
	Context       map[string]any `json:"context,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
