package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/claim-service/internal/domain"
)

// ClaimFilter captures listing parameters.
type ClaimFilter struct {
	LecturerName *string
	Month        *string
	Statuses     []domain.ClaimStatus
	Limit        int
	Offset       int
}

// MonthlySummaryRow is one lecturer's aggregate for a month.
type MonthlySummaryRow struct {
	LecturerName string
	TotalHours   decimal.Decimal
	AverageRate  decimal.Decimal
	TotalAmount  decimal.Decimal
}

// ClaimRepository encapsulates claim persistence.
type ClaimRepository interface {
	Create(ctx context.Context, claim *domain.Claim) error
	GetByID(ctx context.Context, id string) (*domain.Claim, error)
	// UpdateStatus performs a compare-and-swap on the status column. It
	// returns false without error when the row is no longer in the expected
	// from status, which keeps concurrent transition attempts serialized by
	// the store rather than by in-process locking.
	UpdateStatus(ctx context.Context, id string, from, to domain.ClaimStatus) (bool, error)
	SetAttachment(ctx context.Context, id, fileName, storedName string) error
	ExistsForLecturerMonth(ctx context.Context, lecturerName, month string) (bool, error)
	ListByStatus(ctx context.Context, status domain.ClaimStatus, limit, offset int) ([]domain.Claim, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Claim, error)
	ListApproved(ctx context.Context, month *string) ([]domain.Claim, error)
	DistinctApprovedMonths(ctx context.Context) ([]string, error)
	MonthlySummary(ctx context.Context, month string) ([]MonthlySummaryRow, error)
	InvoiceLines(ctx context.Context, lecturerName, month string) ([]domain.Claim, error)
}

type claimRepository struct {
	pool *pgxpool.Pool
}

// NewClaimRepository instantiates repository.
func NewClaimRepository(pool *pgxpool.Pool) ClaimRepository {
	return &claimRepository{pool: pool}
}

const claimColumns = `id, lecturer_id, lecturer_name, month, hours_worked, hourly_rate,
               notes, attachment_file_name, attachment_stored_name, status, created_at, updated_at`

func (r *claimRepository) Create(ctx context.Context, claim *domain.Claim) error {
	const query = `
        INSERT INTO claims (lecturer_id, lecturer_name, month, hours_worked, hourly_rate, notes, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		claim.LecturerID,
		claim.LecturerName,
		claim.Month,
		claim.HoursWorked,
		claim.HourlyRate,
		claim.Notes,
		claim.Status,
	).Scan(&claim.ID, &claim.CreatedAt, &claim.UpdatedAt)
}

func (r *claimRepository) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanClaim(row)
}

func (r *claimRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ClaimStatus) (bool, error) {
	const query = `
        UPDATE claims SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *claimRepository) SetAttachment(ctx context.Context, id, fileName, storedName string) error {
	const query = `
        UPDATE claims SET attachment_file_name=$1, attachment_stored_name=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, fileName, storedName, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ExistsForLecturerMonth reports whether a non-rejected claim already exists
// for the exact (name, month) strings. The match is case-sensitive on the
// stored values.
func (r *claimRepository) ExistsForLecturerMonth(ctx context.Context, lecturerName, month string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM claims
            WHERE lecturer_name=$1 AND month=$2 AND status <> $3
        )`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, lecturerName, month, domain.ClaimStatusRejected).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *claimRepository) ListByStatus(ctx context.Context, status domain.ClaimStatus, limit, offset int) ([]domain.Claim, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM claims WHERE status=$1 ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		claimColumns, limit, offset)
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClaims(rows)
}

func (r *claimRepository) ListRecent(ctx context.Context, limit int) ([]domain.Claim, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM claims ORDER BY created_at DESC LIMIT %d`, claimColumns, limit)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClaims(rows)
}

func (r *claimRepository) ListApproved(ctx context.Context, month *string) ([]domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE status=$1`
	args := []any{domain.ClaimStatusApproved}
	if month != nil && strings.TrimSpace(*month) != "" {
		args = append(args, *month)
		query += fmt.Sprintf(" AND month=$%d", len(args))
	}
	query += " ORDER BY month, lecturer_name, created_at"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClaims(rows)
}

func (r *claimRepository) DistinctApprovedMonths(ctx context.Context) ([]string, error) {
	const query = `
        SELECT DISTINCT month FROM claims
        WHERE status=$1 AND month <> ''
        ORDER BY month`
	rows, err := r.pool.Query(ctx, query, domain.ClaimStatusApproved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var month string
		if err := rows.Scan(&month); err != nil {
			return nil, err
		}
		months = append(months, month)
	}
	return months, rows.Err()
}

func (r *claimRepository) MonthlySummary(ctx context.Context, month string) ([]MonthlySummaryRow, error) {
	const query = `
        SELECT lecturer_name,
               SUM(hours_worked),
               AVG(hourly_rate),
               SUM(hours_worked * hourly_rate)
        FROM claims
        WHERE status=$1 AND month=$2
        GROUP BY lecturer_name
        ORDER BY lecturer_name`
	rows, err := r.pool.Query(ctx, query, domain.ClaimStatusApproved, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MonthlySummaryRow
	for rows.Next() {
		var row MonthlySummaryRow
		if err := rows.Scan(&row.LecturerName, &row.TotalHours, &row.AverageRate, &row.TotalAmount); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *claimRepository) InvoiceLines(ctx context.Context, lecturerName, month string) ([]domain.Claim, error) {
	query := `SELECT ` + claimColumns + `
        FROM claims
        WHERE status=$1 AND lecturer_name=$2 AND month=$3
        ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, domain.ClaimStatusApproved, lecturerName, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClaims(rows)
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var claim domain.Claim
	if err := row.Scan(
		&claim.ID,
		&claim.LecturerID,
		&claim.LecturerName,
		&claim.Month,
		&claim.HoursWorked,
		&claim.HourlyRate,
		&claim.Notes,
		&claim.AttachmentFileName,
		&claim.AttachmentStoredName,
		&claim.Status,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &claim, nil
}

func scanClaims(rows pgx.Rows) ([]domain.Claim, error) {
	var result []domain.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *claim)
	}
	return result, rows.Err()
}
