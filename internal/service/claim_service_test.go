package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/claim-service/internal/domain"
	"github.com/spec-kit/claim-service/internal/events"
	"github.com/spec-kit/claim-service/internal/policy"
	"github.com/spec-kit/claim-service/internal/repository"
	apperrors "github.com/spec-kit/claim-service/pkg/util"
)

type fakeClaimRepo struct {
	claims map[string]*domain.Claim
	nextID int
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{claims: map[string]*domain.Claim{}}
}

func (r *fakeClaimRepo) Create(_ context.Context, claim *domain.Claim) error {
	r.nextID++
	claim.ID = fmt.Sprintf("claim-%d", r.nextID)
	claim.CreatedAt = time.Now()
	claim.UpdatedAt = claim.CreatedAt
	stored := *claim
	r.claims[claim.ID] = &stored
	return nil
}

func (r *fakeClaimRepo) GetByID(_ context.Context, id string) (*domain.Claim, error) {
	claim, ok := r.claims[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *claim
	return &copied, nil
}

func (r *fakeClaimRepo) UpdateStatus(_ context.Context, id string, from, to domain.ClaimStatus) (bool, error) {
	claim, ok := r.claims[id]
	if !ok || claim.Status != from {
		return false, nil
	}
	claim.Status = to
	claim.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeClaimRepo) SetAttachment(_ context.Context, id, fileName, storedName string) error {
	claim, ok := r.claims[id]
	if !ok {
		return pgx.ErrNoRows
	}
	claim.AttachmentFileName = &fileName
	claim.AttachmentStoredName = &storedName
	return nil
}

func (r *fakeClaimRepo) ExistsForLecturerMonth(_ context.Context, lecturerName, month string) (bool, error) {
	for _, claim := range r.claims {
		if claim.LecturerName == lecturerName && claim.Month == month && claim.Status != domain.ClaimStatusRejected {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeClaimRepo) ListByStatus(_ context.Context, status domain.ClaimStatus, _, _ int) ([]domain.Claim, error) {
	var result []domain.Claim
	for _, claim := range r.claims {
		if claim.Status == status {
			result = append(result, *claim)
		}
	}
	return result, nil
}

func (r *fakeClaimRepo) ListRecent(_ context.Context, _ int) ([]domain.Claim, error) {
	var result []domain.Claim
	for _, claim := range r.claims {
		result = append(result, *claim)
	}
	return result, nil
}

func (r *fakeClaimRepo) ListApproved(_ context.Context, month *string) ([]domain.Claim, error) {
	var result []domain.Claim
	for _, claim := range r.claims {
		if claim.Status != domain.ClaimStatusApproved {
			continue
		}
		if month != nil && claim.Month != *month {
			continue
		}
		result = append(result, *claim)
	}
	return result, nil
}

func (r *fakeClaimRepo) DistinctApprovedMonths(_ context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var months []string
	for _, claim := range r.claims {
		if claim.Status != domain.ClaimStatusApproved {
			continue
		}
		if _, ok := seen[claim.Month]; ok {
			continue
		}
		seen[claim.Month] = struct{}{}
		months = append(months, claim.Month)
	}
	return months, nil
}

func (r *fakeClaimRepo) MonthlySummary(_ context.Context, month string) ([]repository.MonthlySummaryRow, error) {
	type acc struct {
		hours  decimal.Decimal
		amount decimal.Decimal
		rates  decimal.Decimal
		count  int64
	}
	byName := map[string]*acc{}
	var names []string
	for _, claim := range r.claims {
		if claim.Status != domain.ClaimStatusApproved || claim.Month != month {
			continue
		}
		a, ok := byName[claim.LecturerName]
		if !ok {
			a = &acc{}
			byName[claim.LecturerName] = a
			names = append(names, claim.LecturerName)
		}
		a.hours = a.hours.Add(claim.HoursWorked)
		a.amount = a.amount.Add(claim.Amount())
		a.rates = a.rates.Add(claim.HourlyRate)
		a.count++
	}
	var rows []repository.MonthlySummaryRow
	for _, name := range names {
		a := byName[name]
		rows = append(rows, repository.MonthlySummaryRow{
			LecturerName: name,
			TotalHours:   a.hours,
			AverageRate:  a.rates.Div(decimal.NewFromInt(a.count)),
			TotalAmount:  a.amount,
		})
	}
	return rows, nil
}

func (r *fakeClaimRepo) InvoiceLines(_ context.Context, lecturerName, month string) ([]domain.Claim, error) {
	var result []domain.Claim
	for _, claim := range r.claims {
		if claim.Status == domain.ClaimStatusApproved && claim.LecturerName == lecturerName && claim.Month == month {
			result = append(result, *claim)
		}
	}
	return result, nil
}

type fakeLecturerRepo struct {
	lecturers map[string]*domain.Lecturer
}

func newFakeLecturerRepo(lecturers ...*domain.Lecturer) *fakeLecturerRepo {
	repo := &fakeLecturerRepo{lecturers: map[string]*domain.Lecturer{}}
	for _, lecturer := range lecturers {
		repo.lecturers[lecturer.ID] = lecturer
	}
	return repo
}

func (r *fakeLecturerRepo) Create(_ context.Context, lecturer *domain.Lecturer) error {
	if lecturer.ID == "" {
		lecturer.ID = fmt.Sprintf("lect-%d", len(r.lecturers)+1)
	}
	r.lecturers[lecturer.ID] = lecturer
	return nil
}

func (r *fakeLecturerRepo) Update(_ context.Context, lecturer *domain.Lecturer) error {
	if _, ok := r.lecturers[lecturer.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.lecturers[lecturer.ID] = lecturer
	return nil
}

func (r *fakeLecturerRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.lecturers[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.lecturers, id)
	return nil
}

func (r *fakeLecturerRepo) GetByID(_ context.Context, id string) (*domain.Lecturer, error) {
	lecturer, ok := r.lecturers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return lecturer, nil
}

func (r *fakeLecturerRepo) GetByName(_ context.Context, name string) (*domain.Lecturer, error) {
	for _, lecturer := range r.lecturers {
		if strings.EqualFold(lecturer.Name, name) {
			return lecturer, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeLecturerRepo) ListActive(_ context.Context) ([]domain.Lecturer, error) {
	var result []domain.Lecturer
	for _, lecturer := range r.lecturers {
		if lecturer.Active {
			result = append(result, *lecturer)
		}
	}
	return result, nil
}

func (r *fakeLecturerRepo) List(_ context.Context, _ repository.LecturerFilter) ([]domain.Lecturer, error) {
	var result []domain.Lecturer
	for _, lecturer := range r.lecturers {
		result = append(result, *lecturer)
	}
	return result, nil
}

type fakeAuditRepo struct {
	entries []domain.ClaimAudit
}

func (r *fakeAuditRepo) Create(_ context.Context, audit *domain.ClaimAudit) error {
	audit.ID = fmt.Sprintf("audit-%d", len(r.entries)+1)
	audit.CreatedAt = time.Now()
	r.entries = append(r.entries, *audit)
	return nil
}

func (r *fakeAuditRepo) ListByClaim(_ context.Context, claimID string) ([]domain.ClaimAudit, error) {
	var result []domain.ClaimAudit
	for _, entry := range r.entries {
		if entry.ClaimID == claimID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeAuditRepo) actions(claimID string) []domain.AuditAction {
	var actions []domain.AuditAction
	for _, entry := range r.entries {
		if entry.ClaimID == claimID {
			actions = append(actions, entry.Action)
		}
	}
	return actions
}

type fakeAttachmentStore struct {
	saved map[string]string
	blobs map[string][]byte
	fail  bool
}

func (s *fakeAttachmentStore) Save(claimID, originalName string, data []byte) (string, error) {
	if s.fail {
		return "", fmt.Errorf("disk full")
	}
	if s.saved == nil {
		s.saved = map[string]string{}
		s.blobs = map[string][]byte{}
	}
	stored := "stored-" + originalName
	s.saved[claimID] = stored
	s.blobs[claimID+"/"+stored] = data
	return stored, nil
}

func (s *fakeAttachmentStore) Open(claimID, storedName string) ([]byte, error) {
	data, ok := s.blobs[claimID+"/"+storedName]
	if !ok {
		return nil, fmt.Errorf("no such blob")
	}
	return data, nil
}

func testBounds() policy.Bounds {
	return policy.Bounds{
		MaxHoursPerMonth:     decimal.NewFromInt(180),
		MinHourlyRate:        decimal.NewFromInt(100),
		MaxHourlyRate:        decimal.NewFromInt(1000),
		AutoApproveThreshold: decimal.NewFromInt(5000),
	}
}

type claimFixture struct {
	service   *ClaimService
	claims    *fakeClaimRepo
	lecturers *fakeLecturerRepo
	audits    *fakeAuditRepo
	saver     *fakeAttachmentStore
}

func newClaimFixture(lecturers ...*domain.Lecturer) *claimFixture {
	claims := newFakeClaimRepo()
	lecturerRepo := newFakeLecturerRepo(lecturers...)
	audits := &fakeAuditRepo{}
	saver := &fakeAttachmentStore{}
	svc := NewClaimService(ClaimDependencies{
		ClaimRepo:    claims,
		LecturerRepo: lecturerRepo,
		AuditRepo:    audits,
		Attachments:  saver,
		Bounds:       testBounds(),
		Dispatcher:   events.NewInMemoryDispatcher(),
	})
	return &claimFixture{service: svc, claims: claims, lecturers: lecturerRepo, audits: audits, saver: saver}
}

func lecturerActor() Actor {
	id := "acct-lect"
	return Actor{Role: domain.RoleLecturer, AccountID: &id}
}

func coordinatorActor() Actor {
	id := "acct-coord"
	return Actor{Role: domain.RoleCoordinator, AccountID: &id}
}

func managerActor() Actor {
	id := "acct-mgr"
	return Actor{Role: domain.RoleManager, AccountID: &id}
}

func submitInput(name, month string, hours, rate int64) SubmitClaimInput {
	return SubmitClaimInput{
		LecturerName: name,
		Month:        month,
		HoursWorked:  decimal.NewFromInt(hours),
		HourlyRate:   decimal.NewFromInt(rate),
	}
}

func TestSubmitThenAutoApprove(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	claim, err := fix.service.Submit(ctx, lecturerActor(), submitInput("Dr. Smith", "March 2025", 10, 150))
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusSubmitted, claim.Status)
	assert.Equal(t, "1500", claim.Amount().String())

	updated, res, err := fix.service.CoordinatorApprove(ctx, coordinatorActor(), claim.ID)
	require.NoError(t, err)
	assert.True(t, res.AutoApprove)
	assert.Equal(t, domain.ClaimStatusApproved, updated.Status)

	stored, err := fix.service.GetClaim(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusApproved, stored.Status)
	assert.Equal(t,
		[]domain.AuditAction{domain.AuditActionSubmitted, domain.AuditActionAutoApproved},
		fix.audits.actions(claim.ID))
}

func TestSubmitForwardedThenManagerApprove(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	claim, err := fix.service.Submit(ctx, lecturerActor(), submitInput("Dr. Jones", "March 2025", 100, 200))
	require.NoError(t, err)

	forwarded, res, err := fix.service.CoordinatorApprove(ctx, coordinatorActor(), claim.ID)
	require.NoError(t, err)
	assert.False(t, res.AutoApprove)
	assert.Equal(t, domain.ClaimStatusPendingReview, forwarded.Status)

	approved, _, err := fix.service.ManagerApprove(ctx, managerActor(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusApproved, approved.Status)
	assert.Equal(t,
		[]domain.AuditAction{domain.AuditActionSubmitted, domain.AuditActionForwarded, domain.AuditActionApproved},
		fix.audits.actions(claim.ID))
}

func TestSubmitRejectsExcessiveHoursWithoutRecord(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	_, err := fix.service.Submit(ctx, lecturerActor(), submitInput("Dr. Smith", "March 2025", 200, 150))
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Contains(t, domainErr.Details, "hours_worked")
	assert.Empty(t, fix.claims.claims)
	assert.Empty(t, fix.audits.entries)
}

func TestSubmitDuplicateMonthConflicts(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	_, err := fix.service.Submit(ctx, lecturerActor(), submitInput("A", "March 2025", 10, 150))
	require.NoError(t, err)

	_, err = fix.service.Submit(ctx, lecturerActor(), submitInput("A", "March 2025", 12, 150))
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	assert.Len(t, fix.claims.claims, 1)
}

func TestSubmitDuplicateCheckIsCaseSensitiveOnStoredStrings(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	_, err := fix.service.Submit(ctx, lecturerActor(), submitInput("A", "March 2025", 10, 150))
	require.NoError(t, err)

	// The duplicate check compares the stored strings exactly; a
	// differently-cased ad-hoc name or month label is a distinct claim.
	lower, err := fix.service.Submit(ctx, lecturerActor(), submitInput("a", "March 2025", 10, 150))
	require.NoError(t, err)
	assert.Equal(t, "a", lower.LecturerName)

	_, err = fix.service.Submit(ctx, lecturerActor(), submitInput("A", "march 2025", 10, 150))
	require.NoError(t, err)
	assert.Len(t, fix.claims.claims, 3)
}

func TestSubmitDirectoryCanonicalizationStillConflicts(t *testing.T) {
	fix := newClaimFixture(&domain.Lecturer{
		ID:         "lect-1",
		Name:       "Dr. Amara Okafor",
		HourlyRate: decimal.NewFromInt(250),
		Active:     true,
	})
	ctx := context.Background()

	_, err := fix.service.Submit(ctx, lecturerActor(), submitInput("dr. amara okafor", "May 2025", 10, 150))
	require.NoError(t, err)

	// Both spellings resolve to the directory record's canonical name before
	// the duplicate check, so the second submission conflicts.
	_, err = fix.service.Submit(ctx, lecturerActor(), submitInput("DR. AMARA OKAFOR", "May 2025", 12, 150))
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	assert.Len(t, fix.claims.claims, 1)
}

func TestSubmitAfterRejectionAllowed(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	first, err := fix.service.Submit(ctx, lecturerActor(), submitInput("A", "March 2025", 10, 150))
	require.NoError(t, err)
	_, err = fix.service.CoordinatorReject(ctx, coordinatorActor(), first.ID, nil)
	require.NoError(t, err)

	second, err := fix.service.Submit(ctx, lecturerActor(), submitInput("A", "March 2025", 12, 150))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCoordinatorApproveOnPendingReviewFails(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	claim, err := fix.service.Submit(ctx, lecturerActor(), submitInput("Dr. Lee", "April 2025", 100, 200))
	require.NoError(t, err)
	_, _, err = fix.service.CoordinatorApprove(ctx, coordinatorActor(), claim.ID)
	require.NoError(t, err)

	_, _, err = fix.service.CoordinatorApprove(ctx, coordinatorActor(), claim.ID)
	require.Error(t, err)
	assert.Equal(t, "ILLEGAL_TRANSITION", apperrors.ToDomainError(err).Code)

	stored, err := fix.service.GetClaim(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusPendingReview, stored.Status)
}

func TestManagerRejectIsTerminal(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	claim, err := fix.service.Submit(ctx, lecturerActor(), submitInput("Dr. Lee", "April 2025", 100, 200))
	require.NoError(t, err)
	_, _, err = fix.service.CoordinatorApprove(ctx, coordinatorActor(), claim.ID)
	require.NoError(t, err)

	reason := "Insufficient evidence"
	rejected, err := fix.service.ManagerReject(ctx, managerActor(), claim.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusRejected, rejected.Status)

	_, _, err = fix.service.ManagerApprove(ctx, managerActor(), claim.ID)
	require.Error(t, err)
	assert.Equal(t, "ILLEGAL_TRANSITION", apperrors.ToDomainError(err).Code)
}

func TestSubmitDirectoryLecturerSnapshotsNameAndRate(t *testing.T) {
	fix := newClaimFixture(&domain.Lecturer{
		ID:         "lect-1",
		Name:       "Dr. Amara Okafor",
		HourlyRate: decimal.NewFromInt(250),
		Active:     true,
	})
	ctx := context.Background()

	input := submitInput("dr. amara okafor", "May 2025", 20, 150)
	claim, err := fix.service.Submit(ctx, lecturerActor(), input)
	require.NoError(t, err)

	// The directory match wins: canonical name, directory rate.
	assert.Equal(t, "Dr. Amara Okafor", claim.LecturerName)
	assert.Equal(t, "250", claim.HourlyRate.String())
	require.NotNil(t, claim.LecturerID)
	assert.Equal(t, "lect-1", *claim.LecturerID)
}

func TestSubmitInactiveLecturerByIDRejected(t *testing.T) {
	fix := newClaimFixture(&domain.Lecturer{
		ID:         "lect-1",
		Name:       "Dr. Gone",
		HourlyRate: decimal.NewFromInt(250),
		Active:     false,
	})
	ctx := context.Background()

	id := "lect-1"
	input := submitInput("Dr. Gone", "May 2025", 20, 150)
	input.LecturerID = &id
	_, err := fix.service.Submit(ctx, lecturerActor(), input)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestSubmitUnmatchedNameCreatesAdHocClaim(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	claim, err := fix.service.Submit(ctx, lecturerActor(), submitInput("Visiting Prof", "June 2025", 10, 150))
	require.NoError(t, err)
	assert.Nil(t, claim.LecturerID)
	assert.Equal(t, "Visiting Prof", claim.LecturerName)
}

func TestSubmitBadMonthLabel(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	for _, month := range []string{"", "2025-03", "March", "March 25 2025"} {
		_, err := fix.service.Submit(ctx, lecturerActor(), submitInput("A", month, 10, 150))
		require.Error(t, err, "month %q", month)
		assert.Contains(t, apperrors.ToDomainError(err).Details, "month")
	}
}

func TestSubmitDisallowedAttachmentExtension(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	input := submitInput("A", "March 2025", 10, 150)
	input.Attachment = &AttachmentInput{FileName: "evil.exe", Data: []byte("x")}
	_, err := fix.service.Submit(ctx, lecturerActor(), input)
	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "file")
	assert.Empty(t, fix.claims.claims)
}

func TestSubmitStoresAttachmentAfterClaim(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	input := submitInput("A", "March 2025", 10, 150)
	input.Attachment = &AttachmentInput{FileName: "timesheet.pdf", Data: []byte("pdf bytes")}
	claim, err := fix.service.Submit(ctx, lecturerActor(), input)
	require.NoError(t, err)

	require.NotNil(t, claim.AttachmentFileName)
	assert.Equal(t, "timesheet.pdf", *claim.AttachmentFileName)
	assert.Equal(t, "stored-timesheet.pdf", fix.saver.saved[claim.ID])
	assert.Contains(t, fix.audits.actions(claim.ID), domain.AuditActionAttachmentAdded)
}

func TestSubmitAttachmentFailureStillCreatesClaim(t *testing.T) {
	fix := newClaimFixture()
	fix.saver.fail = true
	ctx := context.Background()

	input := submitInput("A", "March 2025", 10, 150)
	input.Attachment = &AttachmentInput{FileName: "timesheet.pdf", Data: []byte("pdf bytes")}
	claim, err := fix.service.Submit(ctx, lecturerActor(), input)
	require.NoError(t, err)

	stored, err := fix.service.GetClaim(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusSubmitted, stored.Status)
	assert.Nil(t, stored.AttachmentFileName)
}

func TestDownloadAttachmentRoundTrip(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	input := submitInput("A", "March 2025", 10, 150)
	input.Attachment = &AttachmentInput{FileName: "timesheet.pdf", Data: []byte("pdf bytes")}
	claim, err := fix.service.Submit(ctx, lecturerActor(), input)
	require.NoError(t, err)

	fileName, data, err := fix.service.DownloadAttachment(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, "timesheet.pdf", fileName)
	assert.Equal(t, []byte("pdf bytes"), data)
}

func TestDownloadAttachmentMissing(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	claim, err := fix.service.Submit(ctx, lecturerActor(), submitInput("A", "March 2025", 10, 150))
	require.NoError(t, err)

	_, _, err = fix.service.DownloadAttachment(ctx, claim.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestCoordinatorApproveNotFound(t *testing.T) {
	fix := newClaimFixture()
	_, _, err := fix.service.CoordinatorApprove(context.Background(), coordinatorActor(), "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestAuditTrailOrdersEntries(t *testing.T) {
	fix := newClaimFixture()
	ctx := context.Background()

	claim, err := fix.service.Submit(ctx, lecturerActor(), submitInput("A", "March 2025", 100, 200))
	require.NoError(t, err)
	_, _, err = fix.service.CoordinatorApprove(ctx, coordinatorActor(), claim.ID)
	require.NoError(t, err)

	trail, err := fix.service.AuditTrail(ctx, claim.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, domain.AuditActionSubmitted, trail[0].Action)
	assert.Equal(t, domain.AuditActionForwarded, trail[1].Action)
}
