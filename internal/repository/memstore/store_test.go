package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/facility-ops/internal/domain"
	"github.com/spec-kit/facility-ops/internal/repository"
)

func seedTicket(ctx context.Context, t *testing.T, s *Store, tenantID, id string, createdAt time.Time) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		ID:          id,
		TenantID:    tenantID,
		PropertyID:  "p-1",
		RoomID:      "r-1",
		CreatedBy:   "u-1",
		Priority:    domain.TicketPriorityMedium,
		Status:      domain.TicketStatusOpen,
		Description: "leaking tap",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, s.Tickets().Create(ctx, ticket))
	return ticket
}

func TestStore_TenantScoping(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedTicket(ctx, t, s, "tenant-a", "t-1", time.Now())

	_, err := s.Tickets().GetByID(ctx, "tenant-b", "t-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := s.Tickets().GetByID(ctx, "tenant-a", "t-1")
	require.NoError(t, err)
	assert.Equal(t, "leaking tap", got.Description)

	list, err := s.Tickets().List(ctx, repository.TicketFilter{TenantID: "tenant-b"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_SoftDeleteHidesTicketAndLedgers(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	seedTicket(ctx, t, s, "tenant-a", "t-1", now)
	require.NoError(t, s.Events().Append(ctx, &domain.TicketEvent{ID: "e-1", TenantID: "tenant-a", TicketID: "t-1", Type: domain.TicketEventCreated, CreatedAt: now}))

	require.NoError(t, s.Tickets().SoftDelete(ctx, "tenant-a", "t-1", now))

	_, err := s.Tickets().GetByID(ctx, "tenant-a", "t-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.Tickets().SoftDelete(ctx, "tenant-a", "t-1", now), repository.ErrNotFound)

	events, err := s.Events().ListByTicket(ctx, "tenant-a", "t-1")
	require.NoError(t, err)
	assert.Empty(t, events)

	err = s.Costs().Append(ctx, &domain.TicketCost{ID: "c-1", TenantID: "tenant-a", TicketID: "t-1", Amount: 1, Payer: domain.CostPayerOwner})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_WithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		seedTicket(ctx, t, s, "tenant-a", "t-1", time.Now())
		_, err := s.Tickets().GetByID(ctx, "tenant-a", "t-1")
		require.NoError(t, err)
		// nested calls join the outer transaction
		return s.WithinTx(ctx, func(ctx context.Context) error {
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Tickets().GetByID(ctx, "tenant-a", "t-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_WithinTxCommits(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		ticket := &domain.Ticket{ID: "t-1", TenantID: "tenant-a", Status: domain.TicketStatusOpen}
		if err := s.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		return s.Events().Append(ctx, &domain.TicketEvent{ID: "e-1", TenantID: "tenant-a", TicketID: "t-1", Type: domain.TicketEventCreated})
	})
	require.NoError(t, err)

	events, err := s.Events().ListByTicket(ctx, "tenant-a", "t-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestStore_ListFiltersSortsAndPages(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"t-1", "t-2", "t-3"} {
		seedTicket(ctx, t, s, "tenant-a", id, base.Add(time.Duration(i)*time.Hour))
	}
	other := seedTicket(ctx, t, s, "tenant-a", "t-4", base.Add(4*time.Hour))
	other.Status = domain.TicketStatusDone
	require.NoError(t, s.Tickets().Update(ctx, other))

	newestFirst, err := s.Tickets().List(ctx, repository.TicketFilter{TenantID: "tenant-a", Limit: 10})
	require.NoError(t, err)
	require.Len(t, newestFirst, 4)
	assert.Equal(t, "t-4", newestFirst[0].ID)

	open, err := s.Tickets().List(ctx, repository.TicketFilter{
		TenantID:  "tenant-a",
		Statuses:  []domain.TicketStatus{domain.TicketStatusOpen},
		Ascending: true,
		Limit:     2,
		Offset:    1,
	})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "t-2", open[0].ID)
	assert.Equal(t, "t-3", open[1].ID)
}

func TestStore_ActiveContractForRoom(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddContract("tenant-a", "r-1", "c-1", repository.ContractStatusActive)
	s.AddContract("tenant-a", "r-1", "c-old", "ENDED")
	s.AddContract("tenant-b", "r-1", "c-b", repository.ContractStatusActive)

	id, err := s.References().ActiveContractForRoom(ctx, "tenant-a", "r-1")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "c-1", *id)

	s.AddContract("tenant-a", "r-1", "c-2", repository.ContractStatusActive)
	id, err = s.References().ActiveContractForRoom(ctx, "tenant-a", "r-1")
	require.NoError(t, err)
	assert.Nil(t, id, "ambiguous active contracts attach nothing")
}

func TestStore_References(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddProperty("tenant-a", "p-1")
	s.AddRoom("tenant-a", "p-1", "r-1")
	s.AddContract("tenant-a", "r-1", "c-1", repository.ContractStatusActive)
	s.AddMember("tenant-a", "u-1")
	refs := s.References()

	ok, _ := refs.PropertyExists(ctx, "tenant-a", "p-1")
	assert.True(t, ok)
	ok, _ = refs.PropertyExists(ctx, "tenant-b", "p-1")
	assert.False(t, ok)
	ok, _ = refs.RoomExists(ctx, "tenant-a", "p-1", "r-1")
	assert.True(t, ok)
	ok, _ = refs.RoomExists(ctx, "tenant-a", "p-2", "r-1")
	assert.False(t, ok)
	ok, _ = refs.ContractExists(ctx, "tenant-a", "r-1", "c-1")
	assert.True(t, ok)
	ok, _ = refs.ContractExists(ctx, "tenant-a", "r-2", "c-1")
	assert.False(t, ok)
	ok, _ = refs.MemberExists(ctx, "tenant-a", "u-1")
	assert.True(t, ok)
	ok, _ = refs.MemberExists(ctx, "tenant-b", "u-1")
	assert.False(t, ok)
}

func TestStore_TenantIDsAreComparedExactly(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddProperty("acme|x", "p")
	s.AddRoom("acme|x", "p", "r-1")
	s.AddContract("acme|x", "r-1", "c-foreign", repository.ContractStatusActive)
	s.AddMember("acme|x", "u")
	seedTicket(ctx, t, s, "acme|x", "t", time.Now())
	refs := s.References()

	ok, err := refs.PropertyExists(ctx, "acme", "x|p")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, _ = refs.RoomExists(ctx, "acme", "p", "x|r-1")
	assert.False(t, ok)
	ok, _ = refs.MemberExists(ctx, "acme", "x|u")
	assert.False(t, ok)

	id, err := refs.ActiveContractForRoom(ctx, "acme", "r-1")
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = s.Tickets().GetByID(ctx, "acme", "x|t")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	id, err = refs.ActiveContractForRoom(ctx, "acme|x", "r-1")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "c-foreign", *id)
}
