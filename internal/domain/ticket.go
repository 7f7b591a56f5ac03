package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen         TicketStatus = "OPEN"
	TicketStatusReceived     TicketStatus = "RECEIVED"
	TicketStatusInProgress   TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingParts TicketStatus = "WAITING_PARTS"
	TicketStatusDone         TicketStatus = "DONE"
	TicketStatusCancelled    TicketStatus = "CANCELLED"
)

// TicketStatuses lists every status in workflow order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusReceived,
	TicketStatusInProgress,
	TicketStatusWaitingParts,
	TicketStatusDone,
	TicketStatusCancelled,
}

// IsValid reports whether s is one of the known statuses.
func (s TicketStatus) IsValid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsClosed reports whether s ends the workflow. closed_at is set exactly for these.
func (s TicketStatus) IsClosed() bool {
	return s == TicketStatusDone || s == TicketStatusCancelled
}

// AcceptsCosts reports whether cost entries may be recorded while a ticket is in s.
func (s TicketStatus) AcceptsCosts() bool {
	switch s {
	case TicketStatusInProgress, TicketStatusWaitingParts, TicketStatusDone:
		return true
	default:
		return false
	}
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// IsValid reports whether p is one of the known priorities.
func (p TicketPriority) IsValid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	default:
		return false
	}
}

// Text limits enforced on ticket input.
const (
	MaxCategoryLength    = 100
	MaxDescriptionLength = 5000
	MaxCommentLength     = 5000
	MaxCostNoteLength    = 1000
)

// Ticket is the aggregate for maintenance and incident records.
type Ticket struct {
	ID          string
	TenantID    string
	PropertyID  string
	RoomID      string
	ContractID  *string
	CreatedBy   string
	AssigneeID  *string
	Category    *string
	Priority    TicketPriority
	Status      TicketStatus
	Description string
	DueAt       *time.Time
	ClosedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// ApplyStatus moves the ticket to next and keeps closed_at consistent with it.
// Any status may follow any other; only the closed_at side effect depends on the pair.
func (t *Ticket) ApplyStatus(next TicketStatus, now time.Time) {
	wasClosed := t.Status.IsClosed()
	t.Status = next
	switch {
	case next.IsClosed():
		if !wasClosed || t.ClosedAt == nil {
			closedAt := now
			t.ClosedAt = &closedAt
		}
	default:
		t.ClosedAt = nil
	}
	t.UpdatedAt = now
}

// IsCreator reports whether userID opened the ticket.
func (t *Ticket) IsCreator(userID string) bool {
	return userID != "" && t.CreatedBy == userID
}

// IsAssignee reports whether userID is the current assignee.
func (t *Ticket) IsAssignee(userID string) bool {
	return userID != "" && t.AssigneeID != nil && *t.AssigneeID == userID
}
