package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/facility-ops/internal/domain"
)

func newTestGate(t *testing.T, policy Policy) *Gate {
	t.Helper()
	gate, err := NewGate(policy)
	require.NoError(t, err)
	return gate
}

func roles(r ...domain.Role) []domain.Role {
	return r
}

func TestGate_CapabilityMatrix(t *testing.T) {
	gate := newTestGate(t, DefaultPolicy())

	tests := []struct {
		name       string
		roles      []domain.Role
		capability Capability
		want       bool
	}{
		{"tenant creates", roles(domain.RoleTenant), CapTicketCreate, true},
		{"tenant cannot view any", roles(domain.RoleTenant), CapTicketViewAny, false},
		{"tenant cannot update", roles(domain.RoleTenant), CapTicketUpdate, false},
		{"tenant cannot change status", roles(domain.RoleTenant), CapTicketChangeStatus, false},
		{"tenant cannot add cost", roles(domain.RoleTenant), CapTicketAddCost, false},
		{"tenant cannot delete", roles(domain.RoleTenant), CapTicketDelete, false},

		{"staff views any", roles(domain.RoleStaff), CapTicketViewAny, true},
		{"staff updates", roles(domain.RoleStaff), CapTicketUpdate, true},
		{"staff changes status", roles(domain.RoleStaff), CapTicketChangeStatus, true},
		{"staff adds cost by default", roles(domain.RoleStaff), CapTicketAddCost, true},
		{"staff cannot delete", roles(domain.RoleStaff), CapTicketDelete, false},

		{"manager deletes", roles(domain.RoleManager), CapTicketDelete, true},
		{"manager inherits staff update", roles(domain.RoleManager), CapTicketUpdate, true},
		{"admin deletes", roles(domain.RoleAdmin), CapTicketDelete, true},
		{"owner deletes", roles(domain.RoleOwner), CapTicketDelete, true},
		{"owner views any", roles(domain.RoleOwner), CapTicketViewAny, true},

		{"mixed roles take the union", roles(domain.RoleTenant, domain.RoleManager), CapTicketDelete, true},
		{"no roles", nil, CapTicketCreate, false},
		{"unknown role", roles(domain.Role("JANITOR")), CapTicketCreate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.Can(tt.roles, tt.capability))
		})
	}
}

func TestGate_StaffCostPolicy(t *testing.T) {
	gate := newTestGate(t, Policy{StaffCanAddCost: false})

	assert.False(t, gate.Can(roles(domain.RoleStaff), CapTicketAddCost))
	assert.True(t, gate.Can(roles(domain.RoleManager), CapTicketAddCost))
	assert.True(t, gate.Can(roles(domain.RoleOwner), CapTicketAddCost))
}

func TestGate_Decide(t *testing.T) {
	gate := newTestGate(t, DefaultPolicy())

	tests := []struct {
		name   string
		roles  []domain.Role
		rel    Relationship
		action Action
		status domain.TicketStatus
		want   Decision
	}{
		{"tenant views own ticket", roles(domain.RoleTenant), RelationshipCreator, ActionView, domain.TicketStatusOpen, Allow},
		{"tenant views foreign ticket", roles(domain.RoleTenant), RelationshipNone, ActionView, domain.TicketStatusOpen, DenyForbidden},
		{"tenant assignee gets no view right", roles(domain.RoleTenant), RelationshipAssignee, ActionView, domain.TicketStatusOpen, DenyForbidden},
		{"tenant comments on own ticket", roles(domain.RoleTenant), RelationshipCreator, ActionComment, domain.TicketStatusDone, Allow},
		{"tenant comments on foreign ticket", roles(domain.RoleTenant), RelationshipNone, ActionComment, domain.TicketStatusOpen, DenyForbidden},
		{"staff comments anywhere", roles(domain.RoleStaff), RelationshipNone, ActionComment, domain.TicketStatusOpen, Allow},
		{"creator without capability cannot update", roles(domain.RoleTenant), RelationshipCreator, ActionUpdate, domain.TicketStatusOpen, DenyForbidden},
		{"creator without capability cannot change status", roles(domain.RoleTenant), RelationshipCreator, ActionChangeStatus, domain.TicketStatusOpen, DenyForbidden},
		{"staff changes status", roles(domain.RoleStaff), RelationshipNone, ActionChangeStatus, domain.TicketStatusCancelled, Allow},
		{"tenant adds cost", roles(domain.RoleTenant), RelationshipCreator, ActionAddCost, domain.TicketStatusInProgress, DenyForbidden},
		{"staff adds cost in progress", roles(domain.RoleStaff), RelationshipNone, ActionAddCost, domain.TicketStatusInProgress, Allow},
		{"staff adds cost waiting parts", roles(domain.RoleStaff), RelationshipNone, ActionAddCost, domain.TicketStatusWaitingParts, Allow},
		{"staff adds cost done", roles(domain.RoleStaff), RelationshipNone, ActionAddCost, domain.TicketStatusDone, Allow},
		{"cost on open ticket", roles(domain.RoleStaff), RelationshipNone, ActionAddCost, domain.TicketStatusOpen, DenyInvalidState},
		{"cost on received ticket", roles(domain.RoleManager), RelationshipNone, ActionAddCost, domain.TicketStatusReceived, DenyInvalidState},
		{"cost on cancelled ticket", roles(domain.RoleOwner), RelationshipNone, ActionAddCost, domain.TicketStatusCancelled, DenyInvalidState},
		{"forbidden wins over invalid state", roles(domain.RoleTenant), RelationshipCreator, ActionAddCost, domain.TicketStatusOpen, DenyForbidden},
		{"staff cannot delete", roles(domain.RoleStaff), RelationshipNone, ActionDelete, domain.TicketStatusOpen, DenyForbidden},
		{"manager deletes", roles(domain.RoleManager), RelationshipNone, ActionDelete, domain.TicketStatusOpen, Allow},
		{"tenant creates", roles(domain.RoleTenant), RelationshipNone, ActionCreate, "", Allow},
		{"tenant cannot list all", roles(domain.RoleTenant), RelationshipNone, ActionListAll, "", DenyForbidden},
		{"staff lists all", roles(domain.RoleStaff), RelationshipNone, ActionListAll, "", Allow},
		{"tenant cannot plan", roles(domain.RoleTenant), RelationshipNone, ActionPlan, "", DenyForbidden},
		{"staff plans", roles(domain.RoleStaff), RelationshipNone, ActionPlan, "", Allow},
		{"unknown action", roles(domain.RoleOwner), RelationshipNone, Action("archive"), domain.TicketStatusOpen, DenyForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.Decide(tt.roles, tt.rel, tt.action, tt.status))
		})
	}
}

func TestRelationshipOf(t *testing.T) {
	assignee := "u-2"
	ticket := &domain.Ticket{CreatedBy: "u-1", AssigneeID: &assignee}

	assert.Equal(t, RelationshipCreator, RelationshipOf(ticket, "u-1"))
	assert.Equal(t, RelationshipAssignee, RelationshipOf(ticket, "u-2"))
	assert.Equal(t, RelationshipNone, RelationshipOf(ticket, "u-3"))
	assert.Equal(t, RelationshipNone, RelationshipOf(ticket, ""))
	assert.Equal(t, RelationshipNone, RelationshipOf(nil, "u-1"))
}
