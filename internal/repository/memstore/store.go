// Package memstore keeps tickets and their ledgers in process memory. It implements the
// repository interfaces and Transactor so the workflow can run without Postgres.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/facility-ops/internal/domain"
	"github.com/spec-kit/facility-ops/internal/repository"
)

type ticketRecord struct {
	ticket domain.Ticket
	seq    int64
}

type contractRecord struct {
	roomID string
	status string
}

// scopedKey identifies a record inside one tenant. Lookups compare both fields.
type scopedKey struct {
	tenantID string
	id       string
}

type state struct {
	tickets    map[scopedKey]ticketRecord
	events     []domain.TicketEvent
	costs      []domain.TicketCost
	properties map[scopedKey]struct{}
	rooms      map[scopedKey]string
	contracts  map[scopedKey]contractRecord
	members    map[scopedKey]struct{}
	seq        int64
}

func newState() state {
	return state{
		tickets:    make(map[scopedKey]ticketRecord),
		properties: make(map[scopedKey]struct{}),
		rooms:      make(map[scopedKey]string),
		contracts:  make(map[scopedKey]contractRecord),
		members:    make(map[scopedKey]struct{}),
	}
}

func (s state) clone() state {
	return state{
		tickets:    maps.Clone(s.tickets),
		events:     append([]domain.TicketEvent(nil), s.events...),
		costs:      append([]domain.TicketCost(nil), s.costs...),
		properties: maps.Clone(s.properties),
		rooms:      maps.Clone(s.rooms),
		contracts:  maps.Clone(s.contracts),
		members:    maps.Clone(s.members),
		seq:        s.seq,
	}
}

// Store is safe for concurrent use. Transactions are serialized store-wide.
type Store struct {
	mu    sync.Mutex
	state state
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState()}
}

type txKey struct{}

// WithinTx runs fn under the store lock and restores the previous state if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) == s
}

// lock acquires the store lock unless ctx already holds it through WithinTx.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Events returns the timeline repository view.
func (s *Store) Events() repository.TicketEventRepository { return eventRepo{s} }

// Costs returns the cost ledger repository view.
func (s *Store) Costs() repository.TicketCostRepository { return costRepo{s} }

// References returns the reference lookup view.
func (s *Store) References() repository.ReferenceRepository { return referenceRepo{s} }

// AddProperty registers a property for tenantID.
func (s *Store) AddProperty(tenantID, propertyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.properties[key(tenantID, propertyID)] = struct{}{}
}

// AddRoom registers a room inside a property of tenantID.
func (s *Store) AddRoom(tenantID, propertyID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.rooms[key(tenantID, roomID)] = propertyID
}

// AddContract registers a contract for a room of tenantID.
func (s *Store) AddContract(tenantID, roomID, contractID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.contracts[key(tenantID, contractID)] = contractRecord{roomID: roomID, status: status}
}

// AddMember registers userID as a member of tenantID.
func (s *Store) AddMember(tenantID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.members[key(tenantID, userID)] = struct{}{}
}

func key(tenantID, id string) scopedKey {
	return scopedKey{tenantID: tenantID, id: id}
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	defer r.s.lock(ctx)()
	k := key(ticket.TenantID, ticket.ID)
	if _, exists := r.s.state.tickets[k]; exists {
		return fmt.Errorf("ticket %s already exists", ticket.ID)
	}
	r.s.state.seq++
	r.s.state.tickets[k] = ticketRecord{ticket: *ticket, seq: r.s.state.seq}
	return nil
}

func (r ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	defer r.s.lock(ctx)()
	k := key(ticket.TenantID, ticket.ID)
	rec, ok := r.s.state.tickets[k]
	if !ok || rec.ticket.DeletedAt != nil {
		return repository.ErrNotFound
	}
	updated := rec.ticket
	updated.AssigneeID = ticket.AssigneeID
	updated.Category = ticket.Category
	updated.Priority = ticket.Priority
	updated.Status = ticket.Status
	updated.Description = ticket.Description
	updated.DueAt = ticket.DueAt
	updated.ClosedAt = ticket.ClosedAt
	updated.UpdatedAt = ticket.UpdatedAt
	rec.ticket = updated
	r.s.state.tickets[k] = rec
	return nil
}

func (r ticketRepo) GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	defer r.s.lock(ctx)()
	return r.s.liveTicket(tenantID, id)
}

func (r ticketRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r ticketRepo) SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error {
	defer r.s.lock(ctx)()
	k := key(tenantID, id)
	rec, ok := r.s.state.tickets[k]
	if !ok || rec.ticket.DeletedAt != nil {
		return repository.ErrNotFound
	}
	deletedAt := at
	rec.ticket.DeletedAt = &deletedAt
	rec.ticket.UpdatedAt = at
	r.s.state.tickets[k] = rec
	return nil
}

func (r ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	defer r.s.lock(ctx)()

	var matched []ticketRecord
	for _, rec := range r.s.state.tickets {
		if matchesFilter(rec.ticket, filter) {
			matched = append(matched, rec)
		}
	}

	sortTime := func(t domain.Ticket) time.Time { return t.CreatedAt }
	if filter.SortBy == repository.SortByUpdatedAt {
		sortTime = func(t domain.Ticket) time.Time { return t.UpdatedAt }
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := sortTime(matched[i].ticket), sortTime(matched[j].ticket)
		if !a.Equal(b) {
			if filter.Ascending {
				return a.Before(b)
			}
			return a.After(b)
		}
		if filter.Ascending {
			return matched[i].seq < matched[j].seq
		}
		return matched[i].seq > matched[j].seq
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	result := make([]domain.Ticket, 0, end-offset)
	for _, rec := range matched[offset:end] {
		result = append(result, rec.ticket)
	}
	return result, nil
}

func matchesFilter(t domain.Ticket, f repository.TicketFilter) bool {
	if t.TenantID != f.TenantID || t.DeletedAt != nil {
		return false
	}
	if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.PropertyID != nil && t.PropertyID != *f.PropertyID {
		return false
	}
	if f.RoomID != nil && t.RoomID != *f.RoomID {
		return false
	}
	if f.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID) {
		return false
	}
	if f.ContractID != nil && (t.ContractID == nil || *t.ContractID != *f.ContractID) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, t.Priority) {
		return false
	}
	return true
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}

// liveTicket must be called with the lock held.
func (s *Store) liveTicket(tenantID, id string) (*domain.Ticket, error) {
	rec, ok := s.state.tickets[key(tenantID, id)]
	if !ok || rec.ticket.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	ticket := rec.ticket
	return &ticket, nil
}

type eventRepo struct{ s *Store }

func (r eventRepo) Append(ctx context.Context, event *domain.TicketEvent) error {
	defer r.s.lock(ctx)()
	if _, err := r.s.liveTicket(event.TenantID, event.TicketID); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	stored := *event
	stored.Metadata = maps.Clone(event.Metadata)
	r.s.state.events = append(r.s.state.events, stored)
	return nil
}

func (r eventRepo) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketEvent, error) {
	defer r.s.lock(ctx)()
	if _, err := r.s.liveTicket(tenantID, ticketID); err != nil {
		return nil, nil
	}
	var result []domain.TicketEvent
	for _, event := range r.s.state.events {
		if event.TenantID == tenantID && event.TicketID == ticketID {
			copied := event
			copied.Metadata = maps.Clone(event.Metadata)
			result = append(result, copied)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

type costRepo struct{ s *Store }

func (r costRepo) Append(ctx context.Context, cost *domain.TicketCost) error {
	defer r.s.lock(ctx)()
	if _, err := r.s.liveTicket(cost.TenantID, cost.TicketID); err != nil {
		return fmt.Errorf("append cost: %w", err)
	}
	r.s.state.costs = append(r.s.state.costs, *cost)
	return nil
}

func (r costRepo) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketCost, error) {
	defer r.s.lock(ctx)()
	if _, err := r.s.liveTicket(tenantID, ticketID); err != nil {
		return nil, nil
	}
	var result []domain.TicketCost
	for _, cost := range r.s.state.costs {
		if cost.TenantID == tenantID && cost.TicketID == ticketID {
			result = append(result, cost)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

type referenceRepo struct{ s *Store }

func (r referenceRepo) PropertyExists(ctx context.Context, tenantID, propertyID string) (bool, error) {
	defer r.s.lock(ctx)()
	_, ok := r.s.state.properties[key(tenantID, propertyID)]
	return ok, nil
}

func (r referenceRepo) RoomExists(ctx context.Context, tenantID, propertyID, roomID string) (bool, error) {
	defer r.s.lock(ctx)()
	owner, ok := r.s.state.rooms[key(tenantID, roomID)]
	return ok && owner == propertyID, nil
}

func (r referenceRepo) ContractExists(ctx context.Context, tenantID, roomID, contractID string) (bool, error) {
	defer r.s.lock(ctx)()
	contract, ok := r.s.state.contracts[key(tenantID, contractID)]
	return ok && contract.roomID == roomID, nil
}

func (r referenceRepo) MemberExists(ctx context.Context, tenantID, userID string) (bool, error) {
	defer r.s.lock(ctx)()
	_, ok := r.s.state.members[key(tenantID, userID)]
	return ok, nil
}

func (r referenceRepo) ActiveContractForRoom(ctx context.Context, tenantID, roomID string) (*string, error) {
	defer r.s.lock(ctx)()
	var found []string
	for k, contract := range r.s.state.contracts {
		if k.tenantID != tenantID {
			continue
		}
		if contract.roomID == roomID && contract.status == repository.ContractStatusActive {
			found = append(found, k.id)
		}
	}
	if len(found) != 1 {
		return nil, nil
	}
	return &found[0], nil
}
