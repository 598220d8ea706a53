package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/claim-service/internal/domain"
	"github.com/spec-kit/claim-service/internal/events"
	apperrors "github.com/spec-kit/claim-service/pkg/util"
)

func newLecturerFixture(lecturers ...*domain.Lecturer) (*LecturerService, *fakeLecturerRepo) {
	repo := newFakeLecturerRepo(lecturers...)
	return NewLecturerService(repo, events.NewInMemoryDispatcher(), nil), repo
}

func TestLecturerCreateDefaultsActive(t *testing.T) {
	svc, _ := newLecturerFixture()
	lecturer, err := svc.Create(context.Background(), LecturerInput{
		Name:       "Dr. Amara Okafor",
		HourlyRate: decimal.NewFromInt(250),
	})
	require.NoError(t, err)
	assert.True(t, lecturer.Active)
	assert.NotEmpty(t, lecturer.ID)
}

func TestLecturerCreateRequiresName(t *testing.T) {
	svc, _ := newLecturerFixture()
	_, err := svc.Create(context.Background(), LecturerInput{Name: "   "})
	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "name")
}

func TestLecturerCreateRejectsBadEmail(t *testing.T) {
	svc, _ := newLecturerFixture()
	email := "not-an-email"
	_, err := svc.Create(context.Background(), LecturerInput{Name: "A", Email: &email})
	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "email")
}

func TestLecturerCreateRejectsNegativeRate(t *testing.T) {
	svc, _ := newLecturerFixture()
	_, err := svc.Create(context.Background(), LecturerInput{
		Name:       "A",
		HourlyRate: decimal.NewFromInt(-1),
	})
	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "hourly_rate")
}

func TestLecturerUpdateNotFound(t *testing.T) {
	svc, _ := newLecturerFixture()
	_, err := svc.Update(context.Background(), "missing", LecturerInput{Name: "A"})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestLecturerDeactivateIsIdempotent(t *testing.T) {
	svc, repo := newLecturerFixture(&domain.Lecturer{
		ID:     "lect-1",
		Name:   "Dr. Gone",
		Active: true,
	})
	ctx := context.Background()

	lecturer, err := svc.Deactivate(ctx, "lect-1")
	require.NoError(t, err)
	assert.False(t, lecturer.Active)

	again, err := svc.Deactivate(ctx, "lect-1")
	require.NoError(t, err)
	assert.False(t, again.Active)
	assert.False(t, repo.lecturers["lect-1"].Active)
}

func TestLecturerDeleteNotFound(t *testing.T) {
	svc, _ := newLecturerFixture()
	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestLecturerListActiveFiltersInactive(t *testing.T) {
	svc, _ := newLecturerFixture(
		&domain.Lecturer{ID: "a", Name: "Active One", Active: true},
		&domain.Lecturer{ID: "b", Name: "Inactive One", Active: false},
	)
	active, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Active One", active[0].Name)
}
