package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/facility-ops/internal/domain"
)

// TicketCostRepository stores the append-only cost ledger.
type TicketCostRepository interface {
	Append(ctx context.Context, cost *domain.TicketCost) error
	ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketCost, error)
}

type ticketCostRepository struct {
	pool *pgxpool.Pool
}

// NewTicketCostRepository builds repository.
func NewTicketCostRepository(pool *pgxpool.Pool) TicketCostRepository {
	return &ticketCostRepository{pool: pool}
}

func (r *ticketCostRepository) Append(ctx context.Context, cost *domain.TicketCost) error {
	const query = `
        INSERT INTO ticket_costs (id, tenant_id, ticket_id, amount, payer, note, recorded_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		cost.ID,
		cost.TenantID,
		cost.TicketID,
		cost.Amount,
		cost.Payer,
		cost.Note,
		cost.RecordedBy,
		cost.CreatedAt,
	)
	return err
}

func (r *ticketCostRepository) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketCost, error) {
	const query = `
        SELECT c.id, c.tenant_id, c.ticket_id, c.amount, c.payer, c.note, c.recorded_by, c.created_at
        FROM ticket_costs c
        JOIN tickets t ON t.tenant_id = c.tenant_id AND t.id = c.ticket_id AND t.deleted_at IS NULL
        WHERE c.tenant_id=$1 AND c.ticket_id=$2
        ORDER BY c.created_at ASC, c.seq ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketCost
	for rows.Next() {
		var cost domain.TicketCost
		if err := rows.Scan(
			&cost.ID,
			&cost.TenantID,
			&cost.TicketID,
			&cost.Amount,
			&cost.Payer,
			&cost.Note,
			&cost.RecordedBy,
			&cost.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, cost)
	}
	return result, rows.Err()
}
