package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/claim-service/internal/domain"
)

// LecturerFilter defines query params for directory listing.
type LecturerFilter struct {
	Active     *bool
	Department *string
	Limit      int
	Offset     int
}

// LecturerRepository handles persistence for the lecturer directory.
type LecturerRepository interface {
	Create(ctx context.Context, lecturer *domain.Lecturer) error
	Update(ctx context.Context, lecturer *domain.Lecturer) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Lecturer, error)
	// GetByName matches the name case-insensitively and exactly.
	GetByName(ctx context.Context, name string) (*domain.Lecturer, error)
	ListActive(ctx context.Context) ([]domain.Lecturer, error)
	List(ctx context.Context, filter LecturerFilter) ([]domain.Lecturer, error)
}

type lecturerRepository struct {
	pool *pgxpool.Pool
}

// NewLecturerRepository instantiates the repository.
func NewLecturerRepository(pool *pgxpool.Pool) LecturerRepository {
	return &lecturerRepository{pool: pool}
}

const lecturerColumns = `id, name, email, phone, department, hourly_rate, active_flag, created_at, updated_at`

func (r *lecturerRepository) Create(ctx context.Context, lecturer *domain.Lecturer) error {
	const query = `
        INSERT INTO lecturers (name, email, phone, department, hourly_rate, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		lecturer.Name,
		lecturer.Email,
		lecturer.Phone,
		lecturer.Department,
		lecturer.HourlyRate,
		lecturer.Active,
	).Scan(&lecturer.ID, &lecturer.CreatedAt, &lecturer.UpdatedAt)
}

func (r *lecturerRepository) Update(ctx context.Context, lecturer *domain.Lecturer) error {
	const query = `
        UPDATE lecturers
        SET name=$1, email=$2, phone=$3, department=$4, hourly_rate=$5, active_flag=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		lecturer.Name,
		lecturer.Email,
		lecturer.Phone,
		lecturer.Department,
		lecturer.HourlyRate,
		lecturer.Active,
		lecturer.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *lecturerRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM lecturers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *lecturerRepository) GetByID(ctx context.Context, id string) (*domain.Lecturer, error) {
	query := `SELECT ` + lecturerColumns + ` FROM lecturers WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *lecturerRepository) GetByName(ctx context.Context, name string) (*domain.Lecturer, error) {
	query := `SELECT ` + lecturerColumns + ` FROM lecturers WHERE LOWER(name)=LOWER($1)`
	return r.fetchSingle(ctx, query, strings.TrimSpace(name))
}

func (r *lecturerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Lecturer, error) {
	var lecturer domain.Lecturer
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&lecturer.ID,
		&lecturer.Name,
		&lecturer.Email,
		&lecturer.Phone,
		&lecturer.Department,
		&lecturer.HourlyRate,
		&lecturer.Active,
		&lecturer.CreatedAt,
		&lecturer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &lecturer, nil
}

func (r *lecturerRepository) ListActive(ctx context.Context) ([]domain.Lecturer, error) {
	query := `SELECT ` + lecturerColumns + ` FROM lecturers WHERE active_flag=TRUE ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLecturers(rows)
}

func (r *lecturerRepository) List(ctx context.Context, filter LecturerFilter) ([]domain.Lecturer, error) {
	query := `SELECT ` + lecturerColumns + ` FROM lecturers`
	args := []any{}
	clauses := []string{}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY name"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLecturers(rows)
}

func scanLecturers(rows pgx.Rows) ([]domain.Lecturer, error) {
	var result []domain.Lecturer
	for rows.Next() {
		var lecturer domain.Lecturer
		if err := rows.Scan(
			&lecturer.ID,
			&lecturer.Name,
			&lecturer.Email,
			&lecturer.Phone,
			&lecturer.Department,
			&lecturer.HourlyRate,
			&lecturer.Active,
			&lecturer.CreatedAt,
			&lecturer.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, lecturer)
	}
	return result, rows.Err()
}
