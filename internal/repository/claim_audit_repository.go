package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/claim-service/internal/domain"
)

// ClaimAuditRepository stores immutable audit trail entries.
type ClaimAuditRepository interface {
	Create(ctx context.Context, audit *domain.ClaimAudit) error
	ListByClaim(ctx context.Context, claimID string) ([]domain.ClaimAudit, error)
}

type claimAuditRepository struct {
	pool *pgxpool.Pool
}

// NewClaimAuditRepository builds repository.
func NewClaimAuditRepository(pool *pgxpool.Pool) ClaimAuditRepository {
	return &claimAuditRepository{pool: pool}
}

func (r *claimAuditRepository) Create(ctx context.Context, audit *domain.ClaimAudit) error {
	const query = `
        INSERT INTO claim_audit (claim_id, action, actor_role, actor_id, notes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		audit.ClaimID,
		audit.Action,
		audit.ActorRole,
		audit.ActorID,
		audit.Notes,
	).Scan(&audit.ID, &audit.CreatedAt)
}

func (r *claimAuditRepository) ListByClaim(ctx context.Context, claimID string) ([]domain.ClaimAudit, error) {
	const query = `
        SELECT id, claim_id, action, actor_role, actor_id, notes, created_at
        FROM claim_audit WHERE claim_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ClaimAudit
	for rows.Next() {
		var audit domain.ClaimAudit
		if err := rows.Scan(
			&audit.ID,
			&audit.ClaimID,
			&audit.Action,
			&audit.ActorRole,
			&audit.ActorID,
			&audit.Notes,
			&audit.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, audit)
	}
	return result, rows.Err()
}
