package events

import (
	"time"

	"github.com/spec-kit/facility-ops/internal/domain"
)

// EventType enumerates outbound ticket notifications.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
	EventTicketCostAdded     EventType = "ticket_cost_added"
	EventTicketDeleted       EventType = "ticket_deleted"
)

// AllEventTypes lists every type the workflow publishes.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketStatusChanged,
	EventTicketCommentAdded,
	EventTicketCostAdded,
	EventTicketDeleted,
}

// Event is published after the mutation it describes has committed.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TenantID  string    `json:"tenant_id"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	PropertyID string                `json:"property_id"`
	RoomID     string                `json:"room_id"`
	ContractID *string               `json:"contract_id,omitempty"`
	Priority   domain.TicketPriority `json:"priority"`
	AssigneeID *string               `json:"assignee_id,omitempty"`
}

// TicketUpdatedPayload lists the fields present in the applied patch.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Message   *string             `json:"message,omitempty"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	EventID     string `json:"event_id"`
	BodyPreview string `json:"body_preview"`
}

// TicketCostAddedPayload payload.
type TicketCostAddedPayload struct {
	CostID string           `json:"cost_id"`
	Amount int64            `json:"amount"`
	Payer  domain.CostPayer `json:"payer"`
}
