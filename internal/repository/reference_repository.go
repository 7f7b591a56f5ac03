package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ContractStatusActive marks a contract currently in force for its room.
const ContractStatusActive = "ACTIVE"

// ReferenceRepository answers existence questions about records owned by other
// subsystems. Every check is scoped to a tenant.
type ReferenceRepository interface {
	PropertyExists(ctx context.Context, tenantID, propertyID string) (bool, error)
	RoomExists(ctx context.Context, tenantID, propertyID, roomID string) (bool, error)
	ContractExists(ctx context.Context, tenantID, roomID, contractID string) (bool, error)
	MemberExists(ctx context.Context, tenantID, userID string) (bool, error)
	// ActiveContractForRoom returns the room's contract when exactly one is ACTIVE.
	ActiveContractForRoom(ctx context.Context, tenantID, roomID string) (*string, error)
}

type referenceRepository struct {
	pool *pgxpool.Pool
}

// NewReferenceRepository builds repository.
func NewReferenceRepository(pool *pgxpool.Pool) ReferenceRepository {
	return &referenceRepository{pool: pool}
}

func (r *referenceRepository) PropertyExists(ctx context.Context, tenantID, propertyID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM properties WHERE tenant_id=$1 AND id=$2 AND deleted_at IS NULL)`
	return r.exists(ctx, query, tenantID, propertyID)
}

func (r *referenceRepository) RoomExists(ctx context.Context, tenantID, propertyID, roomID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM rooms WHERE tenant_id=$1 AND property_id=$2 AND id=$3 AND deleted_at IS NULL)`
	return r.exists(ctx, query, tenantID, propertyID, roomID)
}

func (r *referenceRepository) ContractExists(ctx context.Context, tenantID, roomID, contractID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM contracts WHERE tenant_id=$1 AND room_id=$2 AND id=$3 AND deleted_at IS NULL)`
	return r.exists(ctx, query, tenantID, roomID, contractID)
}

func (r *referenceRepository) MemberExists(ctx context.Context, tenantID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM tenant_members WHERE tenant_id=$1 AND user_id=$2)`
	return r.exists(ctx, query, tenantID, userID)
}

func (r *referenceRepository) ActiveContractForRoom(ctx context.Context, tenantID, roomID string) (*string, error) {
	const query = `
        SELECT id FROM contracts
        WHERE tenant_id=$1 AND room_id=$2 AND status=$3 AND deleted_at IS NULL
        LIMIT 2`
	rows, err := conn(ctx, r.pool).Query(ctx, query, tenantID, roomID, ContractStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) != 1 {
		return nil, nil
	}
	return &ids[0], nil
}

func (r *referenceRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}
