package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStatus_IsValid(t *testing.T) {
	for _, status := range TicketStatuses {
		assert.True(t, status.IsValid(), status)
	}
	assert.False(t, TicketStatus("RESOLVED").IsValid())
	assert.False(t, TicketStatus("").IsValid())
	assert.False(t, TicketStatus("open").IsValid())
}

func TestTicketStatus_AcceptsCosts(t *testing.T) {
	want := map[TicketStatus]bool{
		TicketStatusOpen:         false,
		TicketStatusReceived:     false,
		TicketStatusInProgress:   true,
		TicketStatusWaitingParts: true,
		TicketStatusDone:         true,
		TicketStatusCancelled:    false,
	}
	for status, accepts := range want {
		assert.Equal(t, accepts, status.AcceptsCosts(), status)
	}
}

func TestTicket_ApplyStatus_ClosedAtInvariant(t *testing.T) {
	earlier := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	now := earlier.Add(3 * time.Hour)

	for _, from := range TicketStatuses {
		for _, to := range TicketStatuses {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				ticket := &Ticket{Status: from}
				if from.IsClosed() {
					ticket.ClosedAt = &earlier
				}

				ticket.ApplyStatus(to, now)

				assert.Equal(t, to, ticket.Status)
				assert.Equal(t, to.IsClosed(), ticket.ClosedAt != nil)
				assert.Equal(t, now, ticket.UpdatedAt)
				if from.IsClosed() && to.IsClosed() {
					require.NotNil(t, ticket.ClosedAt)
					assert.Equal(t, earlier, *ticket.ClosedAt, "closing an already closed ticket keeps closed_at")
				}
				if !from.IsClosed() && to.IsClosed() {
					require.NotNil(t, ticket.ClosedAt)
					assert.Equal(t, now, *ticket.ClosedAt)
				}
			})
		}
	}
}

func TestTicket_ApplyStatus_RepairsMissingClosedAt(t *testing.T) {
	now := time.Now().UTC()
	ticket := &Ticket{Status: TicketStatusDone}

	ticket.ApplyStatus(TicketStatusDone, now)

	require.NotNil(t, ticket.ClosedAt)
	assert.Equal(t, now, *ticket.ClosedAt)
}

func TestTicket_Relationships(t *testing.T) {
	assignee := "staff-1"
	ticket := &Ticket{CreatedBy: "tenant-1", AssigneeID: &assignee}

	assert.True(t, ticket.IsCreator("tenant-1"))
	assert.False(t, ticket.IsCreator(""))
	assert.True(t, ticket.IsAssignee("staff-1"))
	assert.False(t, ticket.IsAssignee("tenant-1"))

	ticket.AssigneeID = nil
	assert.False(t, ticket.IsAssignee("staff-1"))
}

func TestSummarizeCosts(t *testing.T) {
	summary := SummarizeCosts([]TicketCost{
		{Amount: 100000, Payer: CostPayerOwner},
		{Amount: 2500, Payer: CostPayerTenant},
		{Amount: 500, Payer: CostPayerOwner},
	})

	assert.Equal(t, CostSummary{Total: 103000, OwnerTotal: 100500, TenantTotal: 2500}, summary)
	assert.Equal(t, CostSummary{}, SummarizeCosts(nil))
}

func TestIdentity_HasRole(t *testing.T) {
	id := Identity{Roles: []Role{RoleTenant, RoleStaff}}
	assert.True(t, id.HasRole(RoleStaff))
	assert.False(t, id.HasRole(RoleOwner))
}
