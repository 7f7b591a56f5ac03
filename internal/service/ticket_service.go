package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/facility-ops/internal/authz"
	"github.com/spec-kit/facility-ops/internal/domain"
	"github.com/spec-kit/facility-ops/internal/events"
	"github.com/spec-kit/facility-ops/internal/repository"
	apperrors "github.com/spec-kit/facility-ops/pkg/util/errorutil"
)

// Authorizer decides whether an identity may act on a ticket. Every rule the service
// applies goes through Decide.
type Authorizer interface {
	Decide(roles []domain.Role, rel authz.Relationship, action authz.Action, status domain.TicketStatus) authz.Decision
}

// TicketService is the only writer of tickets, their timeline and their cost ledger.
// Every mutation runs in one transaction together with its ledger append.
type TicketService struct {
	tickets    repository.TicketRepository
	events     repository.TicketEventRepository
	costs      repository.TicketCostRepository
	references repository.ReferenceRepository
	tx         repository.Transactor
	gate       Authorizer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	pageSizes  PageSizes
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	EventRepo  repository.TicketEventRepository
	CostRepo   repository.TicketCostRepository
	References repository.ReferenceRepository
	Transactor repository.Transactor
	Gate       Authorizer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
	PageSizes  PageSizes
}

// PageSizes bounds list pagination.
type PageSizes struct {
	Default int
	Max     int
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	PropertyID  string
	RoomID      string
	ContractID  *string
	Category    *string
	Priority    domain.TicketPriority
	AssigneeID  *string
	DueAt       *time.Time
	Description string
}

// TicketPatch carries the fields to change. Nil means untouched; an empty Category or
// AssigneeID clears the value, as does ClearDueAt.
type TicketPatch struct {
	Category    *string
	Priority    *domain.TicketPriority
	AssigneeID  *string
	DueAt       *time.Time
	ClearDueAt  bool
	Description *string
}

// IsEmpty reports whether the patch changes nothing.
func (p TicketPatch) IsEmpty() bool {
	return p.Category == nil && p.Priority == nil && p.AssigneeID == nil &&
		p.DueAt == nil && !p.ClearDueAt && p.Description == nil
}

// CostInput describes a cost ledger entry.
type CostInput struct {
	Amount int64
	Payer  domain.CostPayer
	Note   *string
}

// TicketListFilter describes list filters. Statuses and priorities are raw values so that
// unknown ones surface as validation errors.
type TicketListFilter struct {
	PropertyID *string
	RoomID     *string
	AssigneeID *string
	ContractID *string
	Statuses   []string
	Priorities []string
	SortBy     string
	Ascending  bool
	Limit      int
	Offset     int
}

// TicketPage is one page of a ticket listing.
type TicketPage struct {
	Items  []domain.Ticket
	Limit  int
	Offset int
}

// TicketDetail is a ticket with its timeline and cost ledger.
type TicketDetail struct {
	Ticket  *domain.Ticket
	Events  []domain.TicketEvent
	Costs   []domain.TicketCost
	Summary domain.CostSummary
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	pageSizes := deps.PageSizes
	if pageSizes.Max <= 0 {
		pageSizes.Max = 100
	}
	if pageSizes.Default <= 0 || pageSizes.Default > pageSizes.Max {
		pageSizes.Default = min(20, pageSizes.Max)
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		events:     deps.EventRepo,
		costs:      deps.CostRepo,
		references: deps.References,
		tx:         deps.Transactor,
		gate:       deps.Gate,
		dispatcher: deps.Dispatcher,
		logger:     logger.Named("ticket.service"),
		now:        now,
		pageSizes:  pageSizes,
	}
}

// Create opens a ticket in tenant scope and records its CREATED event.
func (s *TicketService) Create(ctx context.Context, identity domain.Identity, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if decision := s.gate.Decide(identity.Roles, authz.RelationshipNone, authz.ActionCreate, ""); decision != authz.Allow {
		return nil, s.deny(identity, "", authz.ActionCreate, decision, "")
	}

	propertyID := strings.TrimSpace(input.PropertyID)
	roomID := strings.TrimSpace(input.RoomID)
	description := strings.TrimSpace(input.Description)
	category := trimOptional(input.Category)
	contractID := trimOptional(input.ContractID)
	assigneeID := trimOptional(input.AssigneeID)

	if propertyID == "" {
		return nil, apperrors.NewValidationError("property_id is required", map[string]any{"field": "property_id"})
	}
	if roomID == "" {
		return nil, apperrors.NewValidationError("room_id is required", map[string]any{"field": "room_id"})
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.IsValid() {
		return nil, invalidPriority(string(priority))
	}
	if assigneeID != nil || input.DueAt != nil {
		if decision := s.gate.Decide(identity.Roles, authz.RelationshipNone, authz.ActionPlan, ""); decision != authz.Allow {
			return nil, s.deny(identity, "", authz.ActionPlan, decision, "assignee and due date require the update capability")
		}
	}

	now := s.now()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		TenantID:    identity.TenantID,
		PropertyID:  propertyID,
		RoomID:      roomID,
		ContractID:  contractID,
		CreatedBy:   identity.UserID,
		AssigneeID:  assigneeID,
		Category:    category,
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		Description: description,
		DueAt:       input.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.checkPlacement(ctx, ticket); err != nil {
			return err
		}
		if ticket.AssigneeID != nil {
			if err := s.checkMember(ctx, ticket.TenantID, *ticket.AssigneeID); err != nil {
				return err
			}
		}
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return s.events.Append(ctx, s.newEvent(ticket, identity.UserID, domain.TicketEventCreated, nil, nil))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket created",
		zap.String("tenant_id", ticket.TenantID),
		zap.String("ticket_id", ticket.ID),
		zap.String("actor_id", identity.UserID),
		zap.String("priority", string(ticket.Priority)),
	)
	s.publish(ctx, ticket, identity.UserID, events.EventTicketCreated, events.TicketCreatedPayload{
		PropertyID: ticket.PropertyID,
		RoomID:     ticket.RoomID,
		ContractID: ticket.ContractID,
		Priority:   ticket.Priority,
		AssigneeID: ticket.AssigneeID,
	})
	return ticket, nil
}

// UpdateFields applies patch to the ticket. Status and closed_at are never touched here.
func (s *TicketService) UpdateFields(ctx context.Context, identity domain.Identity, ticketID string, patch TicketPatch) (*domain.Ticket, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	var (
		ticket  *domain.Ticket
		changed []string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.load(ctx, identity.TenantID, ticketID, true)
		if err != nil {
			return err
		}
		if decision := s.decide(identity, ticket, authz.ActionUpdate); decision != authz.Allow {
			return s.deny(identity, ticket.ID, authz.ActionUpdate, decision, "")
		}
		if patch.IsEmpty() {
			return apperrors.NewValidationError("no fields to update", nil)
		}

		if patch.Description != nil {
			description := strings.TrimSpace(*patch.Description)
			if err := validateDescription(description); err != nil {
				return err
			}
			ticket.Description = description
			changed = append(changed, "description")
		}
		if patch.Category != nil {
			category := trimOptional(patch.Category)
			if err := validateCategory(category); err != nil {
				return err
			}
			ticket.Category = category
			changed = append(changed, "category")
		}
		if patch.Priority != nil {
			if !patch.Priority.IsValid() {
				return invalidPriority(string(*patch.Priority))
			}
			ticket.Priority = *patch.Priority
			changed = append(changed, "priority")
		}
		if patch.AssigneeID != nil {
			assigneeID := trimOptional(patch.AssigneeID)
			if assigneeID != nil {
				if err := s.checkMember(ctx, ticket.TenantID, *assigneeID); err != nil {
					return err
				}
			}
			ticket.AssigneeID = assigneeID
			changed = append(changed, "assignee_id")
		}
		if patch.ClearDueAt {
			ticket.DueAt = nil
			changed = append(changed, "due_at")
		} else if patch.DueAt != nil {
			dueAt := *patch.DueAt
			ticket.DueAt = &dueAt
			changed = append(changed, "due_at")
		}

		ticket.UpdatedAt = s.now()
		return s.tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket updated",
		zap.String("tenant_id", ticket.TenantID),
		zap.String("ticket_id", ticket.ID),
		zap.String("actor_id", identity.UserID),
		zap.Strings("fields", changed),
	)
	s.publish(ctx, ticket, identity.UserID, events.EventTicketUpdated, events.TicketUpdatedPayload{Fields: changed})
	return ticket, nil
}

// ChangeStatus moves the ticket to newStatus. Any status may follow any other; closed_at
// tracks whether the ticket is closed. A STATUS_CHANGED event is always appended, even when
// the status does not change.
func (s *TicketService) ChangeStatus(ctx context.Context, identity domain.Identity, ticketID string, newStatus domain.TicketStatus, message *string) (*domain.Ticket, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	var (
		ticket    *domain.Ticket
		oldStatus domain.TicketStatus
		note      = trimOptional(message)
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.load(ctx, identity.TenantID, ticketID, true)
		if err != nil {
			return err
		}
		if decision := s.decide(identity, ticket, authz.ActionChangeStatus); decision != authz.Allow {
			return s.deny(identity, ticket.ID, authz.ActionChangeStatus, decision, "")
		}
		if !newStatus.IsValid() {
			return apperrors.NewInvalidStatus(string(newStatus))
		}
		if note != nil && utf8.RuneCountInString(*note) > domain.MaxCommentLength {
			return tooLong("message", domain.MaxCommentLength)
		}

		oldStatus = ticket.Status
		ticket.ApplyStatus(newStatus, s.now())
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		metadata := map[string]any{domain.MetadataNewStatus: string(newStatus)}
		return s.events.Append(ctx, s.newEvent(ticket, identity.UserID, domain.TicketEventStatusChanged, note, metadata))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket status changed",
		zap.String("tenant_id", ticket.TenantID),
		zap.String("ticket_id", ticket.ID),
		zap.String("actor_id", identity.UserID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(newStatus)),
	)
	s.publish(ctx, ticket, identity.UserID, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Message:   note,
	})
	return ticket, nil
}

// AddComment appends a COMMENT event to the ticket timeline.
func (s *TicketService) AddComment(ctx context.Context, identity domain.Identity, ticketID, message string) (*domain.TicketEvent, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	body := strings.TrimSpace(message)
	var (
		ticket *domain.Ticket
		event  *domain.TicketEvent
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.load(ctx, identity.TenantID, ticketID, false)
		if err != nil {
			return err
		}
		if decision := s.decide(identity, ticket, authz.ActionComment); decision != authz.Allow {
			return s.deny(identity, ticket.ID, authz.ActionComment, decision, "")
		}
		if body == "" {
			return apperrors.NewValidationError("message is required", map[string]any{"field": "message"})
		}
		if utf8.RuneCountInString(body) > domain.MaxCommentLength {
			return tooLong("message", domain.MaxCommentLength)
		}
		event = s.newEvent(ticket, identity.UserID, domain.TicketEventComment, &body, nil)
		return s.events.Append(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ticket, identity.UserID, events.EventTicketCommentAdded, events.TicketCommentAddedPayload{
		EventID:     event.ID,
		BodyPreview: preview(body, 140),
	})
	return event, nil
}

// AddCost records a cost entry while the ticket is being worked or has just finished.
func (s *TicketService) AddCost(ctx context.Context, identity domain.Identity, ticketID string, input CostInput) (*domain.TicketCost, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	var (
		ticket *domain.Ticket
		cost   *domain.TicketCost
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.load(ctx, identity.TenantID, ticketID, true)
		if err != nil {
			return err
		}
		if decision := s.decide(identity, ticket, authz.ActionAddCost); decision != authz.Allow {
			return s.deny(identity, ticket.ID, authz.ActionAddCost, decision, "")
		}
		if input.Amount < 0 {
			return apperrors.NewValidationError("amount must not be negative", map[string]any{"field": "amount"})
		}
		if !input.Payer.IsValid() {
			return apperrors.NewValidationError("invalid payer", map[string]any{"field": "payer", "value": string(input.Payer)})
		}
		note := trimOptional(input.Note)
		if note != nil && utf8.RuneCountInString(*note) > domain.MaxCostNoteLength {
			return tooLong("note", domain.MaxCostNoteLength)
		}

		cost = &domain.TicketCost{
			ID:         uuid.NewString(),
			TenantID:   ticket.TenantID,
			TicketID:   ticket.ID,
			Amount:     input.Amount,
			Payer:      input.Payer,
			Note:       note,
			RecordedBy: identity.UserID,
			CreatedAt:  s.now(),
		}
		return s.costs.Append(ctx, cost)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket cost recorded",
		zap.String("tenant_id", ticket.TenantID),
		zap.String("ticket_id", ticket.ID),
		zap.String("actor_id", identity.UserID),
		zap.Int64("amount", cost.Amount),
		zap.String("payer", string(cost.Payer)),
	)
	s.publish(ctx, ticket, identity.UserID, events.EventTicketCostAdded, events.TicketCostAddedPayload{
		CostID: cost.ID,
		Amount: cost.Amount,
		Payer:  cost.Payer,
	})
	return cost, nil
}

// Delete soft-deletes the ticket; its events and costs disappear with it.
func (s *TicketService) Delete(ctx context.Context, identity domain.Identity, ticketID string) error {
	if err := requireIdentity(identity); err != nil {
		return err
	}

	var ticket *domain.Ticket
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.load(ctx, identity.TenantID, ticketID, true)
		if err != nil {
			return err
		}
		if decision := s.decide(identity, ticket, authz.ActionDelete); decision != authz.Allow {
			return s.deny(identity, ticket.ID, authz.ActionDelete, decision, "")
		}
		if err := s.tickets.SoftDelete(ctx, ticket.TenantID, ticket.ID, s.now()); err != nil {
			return s.mapNotFound(err, ticket.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("ticket deleted",
		zap.String("tenant_id", ticket.TenantID),
		zap.String("ticket_id", ticket.ID),
		zap.String("actor_id", identity.UserID),
	)
	s.publish(ctx, ticket, identity.UserID, events.EventTicketDeleted, nil)
	return nil
}

// List returns tickets in tenant scope. Callers without tenant-wide visibility only see
// tickets they created, whatever filters they pass.
func (s *TicketService) List(ctx context.Context, identity domain.Identity, filter TicketListFilter) (*TicketPage, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	repoFilter := repository.TicketFilter{
		TenantID:   identity.TenantID,
		PropertyID: trimOptional(filter.PropertyID),
		RoomID:     trimOptional(filter.RoomID),
		AssigneeID: trimOptional(filter.AssigneeID),
		ContractID: trimOptional(filter.ContractID),
		Ascending:  filter.Ascending,
		Offset:     max(filter.Offset, 0),
	}
	if s.gate.Decide(identity.Roles, authz.RelationshipNone, authz.ActionListAll, "") != authz.Allow {
		creator := identity.UserID
		repoFilter.CreatedBy = &creator
	}

	for _, raw := range filter.Statuses {
		status := domain.TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
		if !status.IsValid() {
			return nil, apperrors.NewInvalidStatus(raw)
		}
		repoFilter.Statuses = append(repoFilter.Statuses, status)
	}
	for _, raw := range filter.Priorities {
		priority := domain.TicketPriority(strings.ToUpper(strings.TrimSpace(raw)))
		if !priority.IsValid() {
			return nil, invalidPriority(raw)
		}
		repoFilter.Priorities = append(repoFilter.Priorities, priority)
	}

	switch filter.SortBy {
	case "", repository.SortByCreatedAt:
		repoFilter.SortBy = repository.SortByCreatedAt
	case repository.SortByUpdatedAt:
		repoFilter.SortBy = repository.SortByUpdatedAt
	default:
		return nil, apperrors.NewValidationError("invalid sort field", map[string]any{"field": "sort", "value": filter.SortBy})
	}

	repoFilter.Limit = s.clampPageSize(filter.Limit)

	items, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Ticket{}
	}
	return &TicketPage{Items: items, Limit: repoFilter.Limit, Offset: repoFilter.Offset}, nil
}

// Get returns the ticket with its chronological timeline, cost ledger and cost totals.
func (s *TicketService) Get(ctx context.Context, identity domain.Identity, ticketID string) (*TicketDetail, error) {
	ticket, err := s.loadVisible(ctx, identity, ticketID)
	if err != nil {
		return nil, err
	}
	timeline, err := s.events.ListByTicket(ctx, ticket.TenantID, ticket.ID)
	if err != nil {
		return nil, err
	}
	costs, err := s.costs.ListByTicket(ctx, ticket.TenantID, ticket.ID)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{
		Ticket:  ticket,
		Events:  nonNilEvents(timeline),
		Costs:   nonNilCosts(costs),
		Summary: domain.SummarizeCosts(costs),
	}, nil
}

// ListEvents returns the ticket timeline in creation order.
func (s *TicketService) ListEvents(ctx context.Context, identity domain.Identity, ticketID string) ([]domain.TicketEvent, error) {
	ticket, err := s.loadVisible(ctx, identity, ticketID)
	if err != nil {
		return nil, err
	}
	timeline, err := s.events.ListByTicket(ctx, ticket.TenantID, ticket.ID)
	if err != nil {
		return nil, err
	}
	return nonNilEvents(timeline), nil
}

// ListCosts returns the cost ledger in creation order.
func (s *TicketService) ListCosts(ctx context.Context, identity domain.Identity, ticketID string) ([]domain.TicketCost, error) {
	ticket, err := s.loadVisible(ctx, identity, ticketID)
	if err != nil {
		return nil, err
	}
	costs, err := s.costs.ListByTicket(ctx, ticket.TenantID, ticket.ID)
	if err != nil {
		return nil, err
	}
	return nonNilCosts(costs), nil
}

func (s *TicketService) loadVisible(ctx context.Context, identity domain.Identity, ticketID string) (*domain.Ticket, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	ticket, err := s.load(ctx, identity.TenantID, ticketID, false)
	if err != nil {
		return nil, err
	}
	if decision := s.decide(identity, ticket, authz.ActionView); decision != authz.Allow {
		return nil, s.deny(identity, ticket.ID, authz.ActionView, decision, "")
	}
	return ticket, nil
}

// load fetches a live ticket in tenant scope. A ticket of another tenant is reported
// exactly like a missing one.
func (s *TicketService) load(ctx context.Context, tenantID, ticketID string, forUpdate bool) (*domain.Ticket, error) {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	var (
		ticket *domain.Ticket
		err    error
	)
	if forUpdate {
		ticket, err = s.tickets.GetForUpdate(ctx, tenantID, ticketID)
	} else {
		ticket, err = s.tickets.GetByID(ctx, tenantID, ticketID)
	}
	if err != nil {
		return nil, s.mapNotFound(err, ticketID)
	}
	return ticket, nil
}

func (s *TicketService) mapNotFound(err error, ticketID string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return err
}

func (s *TicketService) decide(identity domain.Identity, ticket *domain.Ticket, action authz.Action) authz.Decision {
	return s.gate.Decide(identity.Roles, authz.RelationshipOf(ticket, identity.UserID), action, ticket.Status)
}

func (s *TicketService) deny(identity domain.Identity, ticketID string, action authz.Action, decision authz.Decision, reason string) error {
	s.logger.Warn("ticket action denied",
		zap.String("tenant_id", identity.TenantID),
		zap.String("ticket_id", ticketID),
		zap.String("actor_id", identity.UserID),
		zap.String("action", string(action)),
		zap.Stringer("decision", decision),
	)
	if decision == authz.DenyInvalidState {
		return apperrors.NewInvalidState(
			"costs may only be recorded while the ticket is being worked or has just finished",
			map[string]any{"ticket_id": ticketID},
		)
	}
	if reason == "" {
		reason = fmt.Sprintf("not allowed to %s ticket", strings.ReplaceAll(string(action), "_", " "))
	}
	return apperrors.NewForbidden(reason)
}

// checkPlacement resolves property, room and contract inside the ticket's tenant and
// attaches the room's only active contract when none was supplied.
func (s *TicketService) checkPlacement(ctx context.Context, ticket *domain.Ticket) error {
	ok, err := s.references.PropertyExists(ctx, ticket.TenantID, ticket.PropertyID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewInvalidReference("property_id", ticket.PropertyID)
	}

	ok, err = s.references.RoomExists(ctx, ticket.TenantID, ticket.PropertyID, ticket.RoomID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewInvalidReference("room_id", ticket.RoomID)
	}

	if ticket.ContractID != nil {
		ok, err = s.references.ContractExists(ctx, ticket.TenantID, ticket.RoomID, *ticket.ContractID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewInvalidReference("contract_id", *ticket.ContractID)
		}
		return nil
	}

	contractID, err := s.references.ActiveContractForRoom(ctx, ticket.TenantID, ticket.RoomID)
	if err != nil {
		return err
	}
	ticket.ContractID = contractID
	return nil
}

func (s *TicketService) checkMember(ctx context.Context, tenantID, userID string) error {
	ok, err := s.references.MemberExists(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewInvalidReference("assignee_id", userID)
	}
	return nil
}

func (s *TicketService) clampPageSize(limit int) int {
	if limit <= 0 {
		return s.pageSizes.Default
	}
	return min(limit, s.pageSizes.Max)
}

func (s *TicketService) newEvent(ticket *domain.Ticket, actorID string, eventType domain.TicketEventType, message *string, metadata map[string]any) *domain.TicketEvent {
	actor := actorID
	return &domain.TicketEvent{
		ID:        uuid.NewString(),
		TenantID:  ticket.TenantID,
		TicketID:  ticket.ID,
		ActorID:   &actor,
		Type:      eventType,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: s.now(),
	}
}

// publish fans out a committed change. Failures are logged; the change stays committed.
func (s *TicketService) publish(ctx context.Context, ticket *domain.Ticket, actorID string, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TenantID:  ticket.TenantID,
		TicketID:  ticket.ID,
		ActorID:   actorID,
		Timestamp: s.now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("ticket event publish failed",
			zap.String("tenant_id", ticket.TenantID),
			zap.String("ticket_id", ticket.ID),
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}

func requireIdentity(identity domain.Identity) error {
	if identity.TenantID == "" || identity.UserID == "" {
		return apperrors.NewUnauthorized("missing caller identity")
	}
	return nil
}

func validateDescription(description string) error {
	if description == "" {
		return apperrors.NewValidationError("description is required", map[string]any{"field": "description"})
	}
	if utf8.RuneCountInString(description) > domain.MaxDescriptionLength {
		return tooLong("description", domain.MaxDescriptionLength)
	}
	return nil
}

func validateCategory(category *string) error {
	if category != nil && utf8.RuneCountInString(*category) > domain.MaxCategoryLength {
		return tooLong("category", domain.MaxCategoryLength)
	}
	return nil
}

func invalidPriority(value string) error {
	return apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority", "value": value})
}

func tooLong(field string, limit int) error {
	return apperrors.NewValidationError(fmt.Sprintf("%s exceeds %d characters", field, limit),
		map[string]any{"field": field, "max_length": limit})
}

// trimOptional trims v and maps blank values to nil.
func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func preview(body string, limit int) string {
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	return string(runes[:limit]) + "…"
}

func nonNilEvents(list []domain.TicketEvent) []domain.TicketEvent {
	if list == nil {
		return []domain.TicketEvent{}
	}
	return list
}

func nonNilCosts(list []domain.TicketCost) []domain.TicketCost {
	if list == nil {
		return []domain.TicketCost{}
	}
	return list
}
