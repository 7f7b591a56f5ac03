package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/facility-ops/internal/api/dto"
	"github.com/spec-kit/facility-ops/internal/auth"
	"github.com/spec-kit/facility-ops/internal/domain"
	"github.com/spec-kit/facility-ops/internal/service"
	apperrors "github.com/spec-kit/facility-ops/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket workflow over HTTP.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.Create(c.UserContext(), identity, service.TicketCreateInput{
		PropertyID:  req.PropertyID,
		RoomID:      req.RoomID,
		ContractID:  req.ContractID,
		Category:    req.Category,
		Priority:    domain.TicketPriority(strings.ToUpper(string(req.Priority))),
		AssigneeID:  req.AssigneeID,
		DueAt:       req.DueAt,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), identity, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ticketResponse(&page.Items[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"page": dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Count: len(items)},
	})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Get(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetailResponse{
		TicketResponse: ticketResponse(detail.Ticket),
		Events:         eventResponses(detail.Events),
		Costs:          costResponses(detail.Costs),
		CostSummary: dto.CostSummaryResponse{
			Total:       detail.Summary.Total,
			OwnerTotal:  detail.Summary.OwnerTotal,
			TenantTotal: detail.Summary.TenantTotal,
		},
	}})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Priority != nil {
		upper := domain.TicketPriority(strings.ToUpper(string(*req.Priority)))
		req.Priority = &upper
	}

	ticket, err := h.service.UpdateFields(c.UserContext(), identity, c.Params("id"), service.TicketPatch{
		Category:    req.Category,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		DueAt:       req.DueAt,
		ClearDueAt:  req.ClearDueAt,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), identity, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status := domain.TicketStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))

	ticket, err := h.service.ChangeStatus(c.UserContext(), identity, c.Params("id"), status, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	event, err := h.service.AddComment(c.UserContext(), identity, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": eventResponse(event)})
}

// ListEvents GET /tickets/:id/events.
func (h *TicketsHandler) ListEvents(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	list, err := h.service.ListEvents(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponses(list)})
}

// AddCost POST /tickets/:id/costs.
func (h *TicketsHandler) AddCost(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.AddCostRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Amount == nil {
		return apperrors.NewValidationError("amount is required", map[string]any{"field": "amount"})
	}
	cost, err := h.service.AddCost(c.UserContext(), identity, c.Params("id"), service.CostInput{
		Amount: *req.Amount,
		Payer:  domain.CostPayer(strings.ToUpper(strings.TrimSpace(string(req.Payer)))),
		Note:   req.Note,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": costResponse(cost)})
}

// ListCosts GET /tickets/:id/costs.
func (h *TicketsHandler) ListCosts(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	list, err := h.service.ListCosts(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": costResponses(list)})
}

func callerIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return *identity, nil
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{
		PropertyID: optionalQuery(c, "property_id"),
		RoomID:     optionalQuery(c, "room_id"),
		AssigneeID: optionalQuery(c, "assignee_id"),
		ContractID: optionalQuery(c, "contract_id"),
		Statuses:   splitCSV(c.Query("status")),
		Priorities: splitCSV(c.Query("priority")),
		SortBy:     strings.ToLower(strings.TrimSpace(c.Query("sort"))),
		Limit:      parseInt(c.Query("limit"), 0),
		Offset:     parseInt(c.Query("offset"), 0),
	}
	switch strings.ToLower(strings.TrimSpace(c.Query("order"))) {
	case "", "desc":
	case "asc":
		filter.Ascending = true
	default:
		return filter, apperrors.NewValidationError("order must be asc or desc", map[string]any{"field": "order"})
	}
	return filter, nil
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func splitCSV(val string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:          ticket.ID,
		PropertyID:  ticket.PropertyID,
		RoomID:      ticket.RoomID,
		ContractID:  ticket.ContractID,
		CreatedBy:   ticket.CreatedBy,
		AssigneeID:  ticket.AssigneeID,
		Category:    ticket.Category,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		Description: ticket.Description,
		DueAt:       ticket.DueAt,
		ClosedAt:    ticket.ClosedAt,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func eventResponse(event *domain.TicketEvent) dto.TicketEventResponse {
	return dto.TicketEventResponse{
		ID:        event.ID,
		Type:      event.Type,
		ActorID:   event.ActorID,
		Message:   event.Message,
		Metadata:  event.Metadata,
		CreatedAt: event.CreatedAt,
	}
}

func eventResponses(list []domain.TicketEvent) []dto.TicketEventResponse {
	resp := make([]dto.TicketEventResponse, 0, len(list))
	for i := range list {
		resp = append(resp, eventResponse(&list[i]))
	}
	return resp
}

func costResponse(cost *domain.TicketCost) dto.TicketCostResponse {
	return dto.TicketCostResponse{
		ID:         cost.ID,
		Amount:     cost.Amount,
		Payer:      cost.Payer,
		Note:       cost.Note,
		RecordedBy: cost.RecordedBy,
		CreatedAt:  cost.CreatedAt,
	}
}

func costResponses(list []domain.TicketCost) []dto.TicketCostResponse {
	resp := make([]dto.TicketCostResponse, 0, len(list))
	for i := range list {
		resp = append(resp, costResponse(&list[i]))
	}
	return resp
}
