package dto

import (
	"time"

	"github.com/spec-kit/facility-ops/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	PropertyID  string                `json:"property_id"`
	RoomID      string                `json:"room_id"`
	ContractID  *string               `json:"contract_id"`
	Category    *string               `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	AssigneeID  *string               `json:"assignee_id"`
	DueAt       *time.Time            `json:"due_at"`
	Description string                `json:"description"`
}

// UpdateTicketRequest payload. Omitted fields are left untouched; an empty string clears
// category or assignee.
type UpdateTicketRequest struct {
	Category    *string                `json:"category"`
	Priority    *domain.TicketPriority `json:"priority"`
	AssigneeID  *string                `json:"assignee_id"`
	DueAt       *time.Time             `json:"due_at"`
	ClearDueAt  bool                   `json:"clear_due_at"`
	Description *string                `json:"description"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Message *string             `json:"message"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Message string `json:"message"`
}

// AddCostRequest payload. Amount is in minor currency units.
type AddCostRequest struct {
	Amount *int64           `json:"amount"`
	Payer  domain.CostPayer `json:"payer"`
	Note   *string          `json:"note"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	PropertyID  string                `json:"property_id"`
	RoomID      string                `json:"room_id"`
	ContractID  *string               `json:"contract_id"`
	CreatedBy   string                `json:"created_by"`
	AssigneeID  *string               `json:"assignee_id"`
	Category    *string               `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Description string                `json:"description"`
	DueAt       *time.Time            `json:"due_at"`
	ClosedAt    *time.Time            `json:"closed_at"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TicketEventResponse represents a timeline entry.
type TicketEventResponse struct {
	ID        string                 `json:"id"`
	Type      domain.TicketEventType `json:"type"`
	ActorID   *string                `json:"actor_id"`
	Message   *string                `json:"message"`
	Metadata  map[string]any         `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// TicketCostResponse represents a cost ledger entry.
type TicketCostResponse struct {
	ID         string           `json:"id"`
	Amount     int64            `json:"amount"`
	Payer      domain.CostPayer `json:"payer"`
	Note       *string          `json:"note"`
	RecordedBy string           `json:"recorded_by"`
	CreatedAt  time.Time        `json:"created_at"`
}

// CostSummaryResponse totals the ledger per payer.
type CostSummaryResponse struct {
	Total       int64 `json:"total"`
	OwnerTotal  int64 `json:"owner_total"`
	TenantTotal int64 `json:"tenant_total"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketResponse
	Events      []TicketEventResponse `json:"events"`
	Costs       []TicketCostResponse  `json:"costs"`
	CostSummary CostSummaryResponse   `json:"cost_summary"`
}

// PageResponse describes the returned window of a listing.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}
