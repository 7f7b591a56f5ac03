package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/facility-ops/internal/domain"
)

// Sort keys accepted by TicketFilter.
const (
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
)

// TicketFilter captures list parameters. TenantID is mandatory.
type TicketFilter struct {
	TenantID   string
	CreatedBy  *string
	PropertyID *string
	RoomID     *string
	AssigneeID *string
	ContractID *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SortBy     string
	Ascending  bool
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (*domain.Ticket, error)
	SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, tenant_id, property_id, room_id, contract_id, created_by, assignee_id,
               category, priority, status, description, due_at, closed_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, tenant_id, property_id, room_id, contract_id, created_by, assignee_id,
            category, priority, status, description, due_at, closed_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		ticket.ID,
		ticket.TenantID,
		ticket.PropertyID,
		ticket.RoomID,
		ticket.ContractID,
		ticket.CreatedBy,
		ticket.AssigneeID,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.Description,
		ticket.DueAt,
		ticket.ClosedAt,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET assignee_id=$1, category=$2, priority=$3, status=$4, description=$5,
            due_at=$6, closed_at=$7, updated_at=$8
        WHERE tenant_id=$9 AND id=$10 AND deleted_at IS NULL`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		ticket.AssigneeID,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.Description,
		ticket.DueAt,
		ticket.ClosedAt,
		ticket.UpdatedAt,
		ticket.TenantID,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets WHERE tenant_id=$1 AND id=$2 AND deleted_at IS NULL`
	return r.fetchSingle(ctx, query, tenantID, id)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets WHERE tenant_id=$1 AND id=$2 AND deleted_at IS NULL FOR UPDATE`
	return r.fetchSingle(ctx, query, tenantID, id)
}

func (r *ticketRepository) SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error {
	const query = `
        UPDATE tickets SET deleted_at=$1, updated_at=$1
        WHERE tenant_id=$2 AND id=$3 AND deleted_at IS NULL`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, at, tenantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	ticket, err := scanTicket(conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"tenant_id=$1", "deleted_at IS NULL"}
	args := []any{filter.TenantID}

	optional := []struct {
		column string
		value  *string
	}{
		{"created_by", filter.CreatedBy},
		{"property_id", filter.PropertyID},
		{"room_id", filter.RoomID},
		{"assignee_id", filter.AssigneeID},
		{"contract_id", filter.ContractID},
	}
	for _, opt := range optional {
		if opt.value == nil {
			continue
		}
		args = append(args, *opt.value)
		clauses = append(clauses, fmt.Sprintf("%s=$%d", opt.column, len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}

	sortColumn := SortByCreatedAt
	if filter.SortBy == SortByUpdatedAt {
		sortColumn = SortByUpdatedAt
	}
	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s %s, id %s LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), sortColumn, direction, direction, limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.PropertyID,
		&ticket.RoomID,
		&ticket.ContractID,
		&ticket.CreatedBy,
		&ticket.AssigneeID,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Description,
		&ticket.DueAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
