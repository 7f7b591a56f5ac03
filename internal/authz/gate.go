package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/spec-kit/facility-ops/internal/domain"
)

//go:embed model.conf
var modelText string

const objectTicket = "ticket"

// Capability is a named permission granted to roles.
type Capability string

const (
	CapTicketCreate       Capability = "ticket.create"
	CapTicketViewAny      Capability = "ticket.view_any"
	CapTicketUpdate       Capability = "ticket.update"
	CapTicketChangeStatus Capability = "ticket.change_status"
	CapTicketAddCost      Capability = "ticket.add_cost"
	CapTicketDelete       Capability = "ticket.delete"
)

// Action is an operation requested against a ticket.
type Action string

const (
	ActionCreate       Action = "create"
	ActionListAll      Action = "list_all"
	ActionPlan         Action = "plan"
	ActionView         Action = "view"
	ActionUpdate       Action = "update"
	ActionChangeStatus Action = "change_status"
	ActionComment      Action = "comment"
	ActionAddCost      Action = "add_cost"
	ActionDelete       Action = "delete"
)

// Relationship describes how the actor relates to a ticket.
type Relationship string

const (
	RelationshipCreator  Relationship = "creator"
	RelationshipAssignee Relationship = "assignee"
	RelationshipNone     Relationship = "none"
)

// RelationshipOf derives the actor's relationship to t. Creator wins over assignee.
func RelationshipOf(t *domain.Ticket, userID string) Relationship {
	if t == nil {
		return RelationshipNone
	}
	switch {
	case t.IsCreator(userID):
		return RelationshipCreator
	case t.IsAssignee(userID):
		return RelationshipAssignee
	default:
		return RelationshipNone
	}
}

// Decision is the outcome of a gate check.
type Decision int

const (
	Allow Decision = iota
	DenyForbidden
	DenyInvalidState
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyForbidden:
		return "deny_forbidden"
	case DenyInvalidState:
		return "deny_invalid_state"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Policy holds the deployment-level knobs of the capability matrix.
type Policy struct {
	StaffCanAddCost bool
}

// DefaultPolicy grants cost recording to staff.
func DefaultPolicy() Policy {
	return Policy{StaffCanAddCost: true}
}

// Gate decides whether an actor may perform an action on a ticket.
type Gate struct {
	enforcer *casbin.SyncedEnforcer
}

// NewGate builds the role/capability matrix for policy.
func NewGate(policy Policy) (*Gate, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("load authorization model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicies(seedPolicies(policy)); err != nil {
		return nil, fmt.Errorf("seed policies: %w", err)
	}
	if _, err := enforcer.AddGroupingPolicies(roleHierarchy()); err != nil {
		return nil, fmt.Errorf("seed role hierarchy: %w", err)
	}
	return &Gate{enforcer: enforcer}, nil
}

// Can reports whether any of roles grants capability.
func (g *Gate) Can(roles []domain.Role, capability Capability) bool {
	for _, role := range roles {
		allowed, err := g.enforcer.Enforce(subject(role), objectTicket, string(capability))
		if err == nil && allowed {
			return true
		}
	}
	return false
}

// Decide maps roles, relationship, action and the ticket's current status to a decision.
// status is ignored for actions that do not depend on it.
func (g *Gate) Decide(roles []domain.Role, rel Relationship, action Action, status domain.TicketStatus) Decision {
	switch action {
	case ActionCreate:
		return g.require(roles, CapTicketCreate)
	case ActionListAll:
		return g.require(roles, CapTicketViewAny)
	case ActionPlan:
		return g.require(roles, CapTicketUpdate)
	case ActionView, ActionComment:
		if rel == RelationshipCreator || g.Can(roles, CapTicketViewAny) {
			return Allow
		}
		return DenyForbidden
	case ActionUpdate:
		return g.require(roles, CapTicketUpdate)
	case ActionChangeStatus:
		return g.require(roles, CapTicketChangeStatus)
	case ActionAddCost:
		if !g.Can(roles, CapTicketAddCost) {
			return DenyForbidden
		}
		if !status.AcceptsCosts() {
			return DenyInvalidState
		}
		return Allow
	case ActionDelete:
		return g.require(roles, CapTicketDelete)
	default:
		return DenyForbidden
	}
}

func (g *Gate) require(roles []domain.Role, capability Capability) Decision {
	if g.Can(roles, capability) {
		return Allow
	}
	return DenyForbidden
}

func subject(role domain.Role) string {
	return "role:" + strings.ToLower(string(role))
}

func seedPolicies(policy Policy) [][]string {
	policies := [][]string{
		{subject(domain.RoleTenant), objectTicket, string(CapTicketCreate)},

		{subject(domain.RoleStaff), objectTicket, string(CapTicketCreate)},
		{subject(domain.RoleStaff), objectTicket, string(CapTicketViewAny)},
		{subject(domain.RoleStaff), objectTicket, string(CapTicketUpdate)},
		{subject(domain.RoleStaff), objectTicket, string(CapTicketChangeStatus)},

		{subject(domain.RoleManager), objectTicket, string(CapTicketAddCost)},
		{subject(domain.RoleManager), objectTicket, string(CapTicketDelete)},
	}
	if policy.StaffCanAddCost {
		policies = append(policies, []string{subject(domain.RoleStaff), objectTicket, string(CapTicketAddCost)})
	}
	return policies
}

// roleHierarchy lists (member, inherited) pairs: owner > admin > manager > staff.
func roleHierarchy() [][]string {
	return [][]string{
		{subject(domain.RoleOwner), subject(domain.RoleAdmin)},
		{subject(domain.RoleAdmin), subject(domain.RoleManager)},
		{subject(domain.RoleManager), subject(domain.RoleStaff)},
	}
}
