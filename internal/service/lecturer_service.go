package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/claim-service/internal/domain"
	"github.com/spec-kit/claim-service/internal/events"
	"github.com/spec-kit/claim-service/internal/repository"
	apperrors "github.com/spec-kit/claim-service/pkg/util"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// LecturerService maintains the HR-owned lecturer directory. Claims snapshot
// directory values at submission time, so edits here never rewrite history.
type LecturerService struct {
	lecturers  repository.LecturerRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewLecturerService constructs the service.
func NewLecturerService(lecturers repository.LecturerRepository, dispatcher events.Dispatcher, logger *zap.Logger) *LecturerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LecturerService{lecturers: lecturers, dispatcher: dispatcher, logger: logger}
}

// LecturerInput carries directory fields for create and update.
type LecturerInput struct {
	Name       string
	Email      *string
	Phone      *string
	Department *string
	HourlyRate decimal.Decimal
	Active     *bool
}

// Create registers a lecturer in the directory.
func (s *LecturerService) Create(ctx context.Context, input LecturerInput) (*domain.Lecturer, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	lecturer := &domain.Lecturer{
		Name:       input.Name,
		Email:      input.Email,
		Phone:      input.Phone,
		Department: input.Department,
		HourlyRate: input.HourlyRate,
		Active:     active,
	}
	if err := s.lecturers.Create(ctx, lecturer); err != nil {
		s.logger.Error("create lecturer", zap.Error(err))
		return nil, apperrors.MapError(err)
	}

	s.publishLecturerEvent(ctx, events.EventLecturerCreated, lecturer)
	return lecturer, nil
}

// Update replaces the directory record's fields.
func (s *LecturerService) Update(ctx context.Context, id string, input LecturerInput) (*domain.Lecturer, error) {
	lecturer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	lecturer.Name = input.Name
	lecturer.Email = input.Email
	lecturer.Phone = input.Phone
	lecturer.Department = input.Department
	lecturer.HourlyRate = input.HourlyRate
	if input.Active != nil {
		lecturer.Active = *input.Active
	}
	if err := s.lecturers.Update(ctx, lecturer); err != nil {
		s.logger.Error("update lecturer", zap.String("lecturer_id", id), zap.Error(err))
		return nil, apperrors.MapError(err)
	}
	lecturer.UpdatedAt = time.Now()

	s.publishLecturerEvent(ctx, events.EventLecturerUpdated, lecturer)
	return lecturer, nil
}

// Deactivate flags the lecturer inactive without touching existing claims.
func (s *LecturerService) Deactivate(ctx context.Context, id string) (*domain.Lecturer, error) {
	lecturer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lecturer.Active {
		return lecturer, nil
	}
	lecturer.Active = false
	if err := s.lecturers.Update(ctx, lecturer); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishLecturerEvent(ctx, events.EventLecturerUpdated, lecturer)
	return lecturer, nil
}

// Delete removes the directory record.
func (s *LecturerService) Delete(ctx context.Context, id string) error {
	if err := s.lecturers.Delete(ctx, id); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("lecturer", map[string]any{"lecturer_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// Get fetches one lecturer by id.
func (s *LecturerService) Get(ctx context.Context, id string) (*domain.Lecturer, error) {
	lecturer, err := s.lecturers.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("lecturer", map[string]any{"lecturer_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return lecturer, nil
}

// List returns directory records matching the filter.
func (s *LecturerService) List(ctx context.Context, filter repository.LecturerFilter) ([]domain.Lecturer, error) {
	lecturers, err := s.lecturers.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return lecturers, nil
}

// ListActive returns the active directory, the set offered to claim intake.
func (s *LecturerService) ListActive(ctx context.Context) ([]domain.Lecturer, error) {
	lecturers, err := s.lecturers.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return lecturers, nil
}

func (s *LecturerService) validate(input *LecturerInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return apperrors.NewFieldValidationError("name", "Name is required.")
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			input.Email = nil
		} else {
			if !emailPattern.MatchString(email) {
				return apperrors.NewFieldValidationError("email", "Email address is not valid.")
			}
			input.Email = &email
		}
	}
	if input.HourlyRate.Sign() < 0 {
		return apperrors.NewFieldValidationError("hourly_rate", "Hourly rate cannot be negative.")
	}
	return nil
}

func (s *LecturerService) publishLecturerEvent(ctx context.Context, eventType events.EventType, lecturer *domain.Lecturer) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload: events.LecturerPayload{
			LecturerID: lecturer.ID,
			Name:       lecturer.Name,
			Active:     lecturer.Active,
		},
	})
}
