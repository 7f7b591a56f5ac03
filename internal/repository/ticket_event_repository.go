package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/facility-ops/internal/domain"
)

// TicketEventRepository stores the append-only ticket timeline.
type TicketEventRepository interface {
	Append(ctx context.Context, event *domain.TicketEvent) error
	ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketEvent, error)
}

type ticketEventRepository struct {
	pool *pgxpool.Pool
}

// NewTicketEventRepository builds repository.
func NewTicketEventRepository(pool *pgxpool.Pool) TicketEventRepository {
	return &ticketEventRepository{pool: pool}
}

func (r *ticketEventRepository) Append(ctx context.Context, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (id, tenant_id, ticket_id, actor_id, event_type, message, metadata, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		event.ID,
		event.TenantID,
		event.TicketID,
		event.ActorID,
		event.Type,
		event.Message,
		event.Metadata,
		event.CreatedAt,
	)
	return err
}

func (r *ticketEventRepository) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketEvent, error) {
	const query = `
        SELECT e.id, e.tenant_id, e.ticket_id, e.actor_id, e.event_type, e.message, e.metadata, e.created_at
        FROM ticket_events e
        JOIN tickets t ON t.tenant_id = e.tenant_id AND t.id = e.ticket_id AND t.deleted_at IS NULL
        WHERE e.tenant_id=$1 AND e.ticket_id=$2
        ORDER BY e.created_at ASC, e.seq ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketEvent
	for rows.Next() {
		var event domain.TicketEvent
		if err := rows.Scan(
			&event.ID,
			&event.TenantID,
			&event.TicketID,
			&event.ActorID,
			&event.Type,
			&event.Message,
			&event.Metadata,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
