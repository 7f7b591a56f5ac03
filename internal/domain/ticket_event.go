package domain

import "time"

// TicketEventType captures what a timeline entry documents.
type TicketEventType string

const (
	TicketEventCreated       TicketEventType = "CREATED"
	TicketEventStatusChanged TicketEventType = "STATUS_CHANGED"
	TicketEventComment       TicketEventType = "COMMENT"
)

// MetadataNewStatus is the metadata key carrying the target status of a STATUS_CHANGED entry.
const MetadataNewStatus = "new_status"

// TicketEvent is an immutable timeline entry.
type TicketEvent struct {
	ID        string
	TenantID  string
	TicketID  string
	ActorID   *string
	Type      TicketEventType
	Message   *string
	Metadata  map[string]any
	CreatedAt time.Time
}
