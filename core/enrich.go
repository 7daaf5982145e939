package core

import (
	"time"

	"github.com/google/uuid"
)

// Metadata keys stamped during enrichment and dead-letter tagging.
const (
	MetaVersion          = "version"
	MetaSchema           = "schema"
	MetaPublishedAt      = "publishedAt"
	MetaCorrelationID    = "correlationId"
	MetaOriginalError    = "originalError"
	MetaDeadLetterReason = "deadLetterReason"

	// SchemaVersion identifies the envelope revision carried in metadata.
	SchemaVersion = "1.0"

	// DeadLetterReasonMaxRetries is the reason tag for messages whose
	// handler exhausted its retry budget.
	DeadLetterReasonMaxRetries = "max_retries_exceeded"
)

// Enrich assigns ID and Timestamp if absent and merges the fixed metadata
// fields over whatever the caller supplied. Idempotent: an already-enriched
// message keeps its ID and Timestamp on re-publish, only publishedAt is
// refreshed. The input is not mutated.
func Enrich(msg *EventMessage, now time.Time) *EventMessage {
	out := msg.Clone()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = now
	}
	if out.Metadata == nil {
		out.Metadata = make(map[string]string, 3)
	}
	if _, ok := out.Metadata[MetaVersion]; !ok {
		out.Metadata[MetaVersion] = SchemaVersion
	}
	if _, ok := out.Metadata[MetaSchema]; !ok {
		out.Metadata[MetaSchema] = out.Type
	}
	out.Metadata[MetaPublishedAt] = now.UTC().Format(time.RFC3339Nano)
	return out
}
