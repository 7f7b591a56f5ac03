package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/facility-ops/internal/domain"
	"github.com/spec-kit/facility-ops/internal/persistence"
	"github.com/spec-kit/facility-ops/internal/repository"
)

// openTestPool connects to TEST_POSTGRES_DSN and applies migrations. Each test gets a
// fresh tenant id so runs never collide.
func openTestPool(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(pool, zap.NewNop()))

	tenant := "it-" + uuid.NewString()
	seed := []string{
		`INSERT INTO properties (id, tenant_id) VALUES ('p-1', $1)`,
		`INSERT INTO rooms (id, tenant_id, property_id) VALUES ('r-1', $1, 'p-1')`,
		`INSERT INTO rooms (id, tenant_id, property_id) VALUES ('r-2', $1, 'p-1')`,
		`INSERT INTO contracts (id, tenant_id, room_id, status) VALUES ('c-1', $1, 'r-1', 'ACTIVE')`,
		`INSERT INTO contracts (id, tenant_id, room_id, status) VALUES ('c-2', $1, 'r-2', 'ACTIVE')`,
		`INSERT INTO contracts (id, tenant_id, room_id, status) VALUES ('c-3', $1, 'r-2', 'ACTIVE')`,
		`INSERT INTO tenant_members (tenant_id, user_id) VALUES ($1, 'staff-1')`,
	}
	for _, stmt := range seed {
		_, err := pool.Exec(ctx, stmt, tenant)
		require.NoError(t, err)
	}
	return pool, tenant
}

func newTicket(tenant string, at time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:          uuid.NewString(),
		TenantID:    tenant,
		PropertyID:  "p-1",
		RoomID:      "r-1",
		CreatedBy:   "occupant-1",
		Priority:    domain.TicketPriorityMedium,
		Status:      domain.TicketStatusOpen,
		Description: "leaking tap",
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func TestPostgres_References(t *testing.T) {
	pool, tenant := openTestPool(t)
	refs := repository.NewReferenceRepository(pool)
	ctx := context.Background()

	ok, err := refs.PropertyExists(ctx, tenant, "p-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = refs.RoomExists(ctx, "other-tenant", "p-1", "r-1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = refs.MemberExists(ctx, tenant, "staff-1")
	require.NoError(t, err)
	assert.True(t, ok)

	contract, err := refs.ActiveContractForRoom(ctx, tenant, "r-1")
	require.NoError(t, err)
	require.NotNil(t, contract)
	assert.Equal(t, "c-1", *contract)

	contract, err = refs.ActiveContractForRoom(ctx, tenant, "r-2")
	require.NoError(t, err)
	assert.Nil(t, contract)
}

func TestPostgres_TicketLifecycle(t *testing.T) {
	pool, tenant := openTestPool(t)
	tickets := repository.NewTicketRepository(pool)
	eventsRepo := repository.NewTicketEventRepository(pool)
	costs := repository.NewTicketCostRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	ticket := newTicket(tenant, now)
	require.NoError(t, tickets.Create(ctx, ticket))

	actor := "occupant-1"
	require.NoError(t, eventsRepo.Append(ctx, &domain.TicketEvent{
		ID: uuid.NewString(), TenantID: tenant, TicketID: ticket.ID, ActorID: &actor,
		Type: domain.TicketEventCreated, Metadata: map[string]any{}, CreatedAt: now,
	}))
	require.NoError(t, costs.Append(ctx, &domain.TicketCost{
		ID: uuid.NewString(), TenantID: tenant, TicketID: ticket.ID, Amount: 1500,
		Payer: domain.CostPayerOwner, RecordedBy: "staff-1", CreatedAt: now,
	}))

	ticket.ApplyStatus(domain.TicketStatusDone, now.Add(time.Minute))
	require.NoError(t, tickets.Update(ctx, ticket))

	loaded, err := tickets.GetByID(ctx, tenant, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDone, loaded.Status)
	require.NotNil(t, loaded.ClosedAt)

	_, err = tickets.GetByID(ctx, "other-tenant", ticket.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	evs, err := eventsRepo.ListByTicket(ctx, tenant, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, evs, 1)

	require.NoError(t, tickets.SoftDelete(ctx, tenant, ticket.ID, now.Add(2*time.Minute)))
	_, err = tickets.GetByID(ctx, tenant, ticket.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, tickets.SoftDelete(ctx, tenant, ticket.ID, now), repository.ErrNotFound)

	lines, err := costs.ListByTicket(ctx, tenant, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestPostgres_TransactorRollsBack(t *testing.T) {
	pool, tenant := openTestPool(t)
	tickets := repository.NewTicketRepository(pool)
	tx := repository.NewTransactor(pool)
	ctx := context.Background()

	ticket := newTicket(tenant, time.Now().UTC())
	boom := errors.New("boom")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = tickets.GetByID(ctx, tenant, ticket.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostgres_ListFiltersAndPages(t *testing.T) {
	pool, tenant := openTestPool(t)
	tickets := repository.NewTicketRepository(pool)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	var ids []string
	for i := 0; i < 3; i++ {
		ticket := newTicket(tenant, base.Add(time.Duration(i)*time.Second))
		if i == 2 {
			ticket.Priority = domain.TicketPriorityUrgent
		}
		require.NoError(t, tickets.Create(ctx, ticket))
		ids = append(ids, ticket.ID)
	}

	page, err := tickets.List(ctx, repository.TicketFilter{TenantID: tenant, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	page, err = tickets.List(ctx, repository.TicketFilter{TenantID: tenant, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	urgent, err := tickets.List(ctx, repository.TicketFilter{
		TenantID:   tenant,
		Priorities: []domain.TicketPriority{domain.TicketPriorityUrgent},
	})
	require.NoError(t, err)
	require.Len(t, urgent, 1)
	assert.Equal(t, ids[2], urgent[0].ID)
}
