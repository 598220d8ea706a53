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
	"github.com/spec-kit/claim-service/internal/policy"
	"github.com/spec-kit/claim-service/internal/repository"
	"github.com/spec-kit/claim-service/internal/storage"
	apperrors "github.com/spec-kit/claim-service/pkg/util"
)

// Months are stored as free-text labels like "March 2025".
var monthPattern = regexp.MustCompile(`^[A-Za-z]+\s+\d{4}$`)

// Actor identifies who triggered an operation.
type Actor struct {
	Role      domain.Role
	AccountID *string
}

// AttachmentBlobs is the blob store contract the service needs.
type AttachmentBlobs interface {
	Save(claimID, originalName string, data []byte) (string, error)
	Open(claimID, storedName string) ([]byte, error)
}

// ClaimService coordinates the claim lifecycle: intake validation, the
// role-gated status transitions, and the audit trail.
type ClaimService struct {
	claims      repository.ClaimRepository
	lecturers   repository.LecturerRepository
	audits      repository.ClaimAuditRepository
	attachments AttachmentBlobs
	bounds      policy.Bounds
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// ClaimDependencies bundles collaborators for the claim service.
type ClaimDependencies struct {
	ClaimRepo    repository.ClaimRepository
	LecturerRepo repository.LecturerRepository
	AuditRepo    repository.ClaimAuditRepository
	Attachments  AttachmentBlobs
	Bounds       policy.Bounds
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewClaimService constructs the service.
func NewClaimService(deps ClaimDependencies) *ClaimService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimService{
		claims:      deps.ClaimRepo,
		lecturers:   deps.LecturerRepo,
		audits:      deps.AuditRepo,
		attachments: deps.Attachments,
		bounds:      deps.Bounds,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// AttachmentInput carries an uploaded supporting document.
type AttachmentInput struct {
	FileName string
	Data     []byte
}

// SubmitClaimInput describes a lecturer's submission.
type SubmitClaimInput struct {
	LecturerID   *string
	LecturerName string
	Month        string
	HoursWorked  decimal.Decimal
	HourlyRate   decimal.Decimal
	Notes        *string
	Attachment   *AttachmentInput
}

// Submit runs intake validation and creates the claim in SUBMITTED state.
// Checks run in a fixed order and the first failure short-circuits the rest.
func (s *ClaimService) Submit(ctx context.Context, actor Actor, input SubmitClaimInput) (*domain.Claim, error) {
	lecturerName := strings.TrimSpace(input.LecturerName)
	month := strings.TrimSpace(input.Month)
	hours := input.HoursWorked
	rate := input.HourlyRate

	if month == "" || !monthPattern.MatchString(month) {
		return nil, apperrors.NewFieldValidationError("month", `Use a month label like "October 2025".`)
	}

	var lecturerID *string
	resolved, err := s.resolveLecturer(ctx, input.LecturerID, lecturerName)
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		// Snapshot the directory values; later edits to the lecturer record
		// must not affect this claim.
		lecturerID = &resolved.ID
		lecturerName = resolved.Name
		rate = resolved.HourlyRate
	}
	if lecturerName == "" {
		return nil, apperrors.NewFieldValidationError("lecturer_name", "Lecturer name is required.")
	}

	exists, err := s.claims.ExistsForLecturerMonth(ctx, lecturerName, month)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if exists {
		return nil, apperrors.NewConflict(
			"A claim for this lecturer and month already exists and is under review or already submitted.",
			map[string]any{"month": "Duplicate for this month."},
		)
	}

	if hours.Sign() <= 0 || hours.GreaterThan(s.bounds.MaxHoursPerMonth) {
		return nil, apperrors.NewFieldValidationError("hours_worked",
			"Hours must be greater than 0 and no more than "+s.bounds.MaxHoursPerMonth.String()+" for a month.")
	}
	if rate.LessThan(s.bounds.MinHourlyRate) || rate.GreaterThan(s.bounds.MaxHourlyRate) {
		return nil, apperrors.NewFieldValidationError("hourly_rate",
			"Hourly rate must be between "+s.bounds.MinHourlyRate.String()+" and "+s.bounds.MaxHourlyRate.String()+".")
	}
	if hours.Mul(rate).Sign() <= 0 {
		return nil, apperrors.NewValidationError("Calculated amount must be greater than zero.", nil)
	}

	if input.Attachment != nil {
		if !storage.ExtensionAllowed(input.Attachment.FileName) {
			return nil, apperrors.NewFieldValidationError("file", "Only .pdf, .docx, or .xlsx files are allowed.")
		}
		if storage.TooLarge(int64(len(input.Attachment.Data))) {
			return nil, apperrors.NewFieldValidationError("file", "File too large (max 10 MiB).")
		}
	}

	claim := &domain.Claim{
		LecturerID:   lecturerID,
		LecturerName: lecturerName,
		Month:        month,
		HoursWorked:  hours,
		HourlyRate:   rate,
		Notes:        normalizeNotes(input.Notes),
		Status:       domain.ClaimStatusSubmitted,
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		s.logger.Error("create claim", zap.Error(err))
		return nil, apperrors.MapError(err)
	}

	s.recordAudit(ctx, claim.ID, domain.AuditActionSubmitted, actor, nil)
	s.publishEvent(ctx, events.Event{
		Type:    events.EventClaimSubmitted,
		ClaimID: claim.ID,
		Actor:   eventActor(actor),
		Payload: events.ClaimSubmittedPayload{
			LecturerName: claim.LecturerName,
			Month:        claim.Month,
			Amount:       claim.Amount().String(),
		},
	})

	// The attachment is stored only after the claim row exists, keyed by the
	// claim id. A failure here leaves a valid claim without an attachment.
	if input.Attachment != nil {
		if err := s.storeAttachment(ctx, claim, actor, input.Attachment); err != nil {
			s.logger.Error("store attachment", zap.String("claim_id", claim.ID), zap.Error(err))
		}
	}

	return claim, nil
}

// AttachDocument adds a supporting document to an existing claim.
func (s *ClaimService) AttachDocument(ctx context.Context, actor Actor, claimID string, attachment AttachmentInput) (*domain.Claim, error) {
	claim, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !storage.ExtensionAllowed(attachment.FileName) {
		return nil, apperrors.NewFieldValidationError("file", "Only .pdf, .docx, or .xlsx files are allowed.")
	}
	if storage.TooLarge(int64(len(attachment.Data))) {
		return nil, apperrors.NewFieldValidationError("file", "File too large (max 10 MiB).")
	}
	if err := s.storeAttachment(ctx, claim, actor, &attachment); err != nil {
		s.logger.Error("store attachment", zap.String("claim_id", claim.ID), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	return claim, nil
}

// DownloadAttachment returns the original filename and bytes of a claim's
// supporting document.
func (s *ClaimService) DownloadAttachment(ctx context.Context, claimID string) (string, []byte, error) {
	claim, err := s.getClaim(ctx, claimID)
	if err != nil {
		return "", nil, err
	}
	if claim.AttachmentFileName == nil || claim.AttachmentStoredName == nil {
		return "", nil, apperrors.NewNotFound("attachment", map[string]any{"claim_id": claimID})
	}
	data, err := s.attachments.Open(claim.ID, *claim.AttachmentStoredName)
	if err != nil {
		s.logger.Error("open attachment", zap.String("claim_id", claim.ID), zap.Error(err))
		return "", nil, apperrors.NewInternalError(err)
	}
	return *claim.AttachmentFileName, data, nil
}

// CoordinatorApprove re-runs the policy check and either auto-approves the
// claim or forwards it for manager review. A policy rejection surfaces the
// specific reason and no transition is attempted.
func (s *ClaimService) CoordinatorApprove(ctx context.Context, actor Actor, claimID string) (*domain.Claim, policy.Result, error) {
	claim, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, policy.Result{}, err
	}

	res := policy.Validate(claim.HoursWorked, claim.HourlyRate, s.bounds)
	if !res.Accepted {
		s.recordAudit(ctx, claim.ID, domain.AuditActionValidationStopped, actor, &res.Reason)
		return nil, res, apperrors.NewValidationError("Auto-check failed: "+res.Reason, nil)
	}

	target := domain.ClaimStatusPendingReview
	action := domain.AuditActionForwarded
	if res.AutoApprove {
		target = domain.ClaimStatusApproved
		action = domain.AuditActionAutoApproved
	}

	if err := s.transition(ctx, claim, domain.ClaimStatusSubmitted, target,
		"Only newly submitted claims can be processed by the coordinator."); err != nil {
		return nil, res, err
	}

	s.recordAudit(ctx, claim.ID, action, actor, &res.Reason)
	s.publishStatusChange(ctx, claim, domain.ClaimStatusSubmitted, target, actor, res.Reason)
	return claim, res, nil
}

// CoordinatorReject rejects a submitted claim at the coordinator's discretion.
func (s *ClaimService) CoordinatorReject(ctx context.Context, actor Actor, claimID string, reason *string) (*domain.Claim, error) {
	claim, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, claim, domain.ClaimStatusSubmitted, domain.ClaimStatusRejected,
		"Only newly submitted claims can be rejected by the coordinator."); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, claim.ID, domain.AuditActionRejected, actor, reason)
	s.publishStatusChange(ctx, claim, domain.ClaimStatusSubmitted, domain.ClaimStatusRejected, actor, stringOrEmpty(reason))
	return claim, nil
}

// ManagerApprove approves a forwarded claim. The policy must still accept the
// figures; the auto-approve flag is irrelevant once a human has reviewed.
func (s *ClaimService) ManagerApprove(ctx context.Context, actor Actor, claimID string) (*domain.Claim, policy.Result, error) {
	claim, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, policy.Result{}, err
	}

	res := policy.Validate(claim.HoursWorked, claim.HourlyRate, s.bounds)
	if !res.Accepted {
		s.recordAudit(ctx, claim.ID, domain.AuditActionValidationStopped, actor, &res.Reason)
		return nil, res, apperrors.NewValidationError("Auto-check failed: "+res.Reason, nil)
	}

	if err := s.transition(ctx, claim, domain.ClaimStatusPendingReview, domain.ClaimStatusApproved,
		"Only claims pending review can be approved by the manager."); err != nil {
		return nil, res, err
	}

	s.recordAudit(ctx, claim.ID, domain.AuditActionApproved, actor, &res.Reason)
	s.publishStatusChange(ctx, claim, domain.ClaimStatusPendingReview, domain.ClaimStatusApproved, actor, res.Reason)
	return claim, res, nil
}

// ManagerReject rejects a forwarded claim at the manager's discretion.
func (s *ClaimService) ManagerReject(ctx context.Context, actor Actor, claimID string, reason *string) (*domain.Claim, error) {
	claim, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, claim, domain.ClaimStatusPendingReview, domain.ClaimStatusRejected,
		"Only claims pending review can be rejected by the manager."); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, claim.ID, domain.AuditActionRejected, actor, reason)
	s.publishStatusChange(ctx, claim, domain.ClaimStatusPendingReview, domain.ClaimStatusRejected, actor, stringOrEmpty(reason))
	return claim, nil
}

// CoordinatorQueue lists claims awaiting coordinator triage.
func (s *ClaimService) CoordinatorQueue(ctx context.Context, limit, offset int) ([]domain.Claim, error) {
	claims, err := s.claims.ListByStatus(ctx, domain.ClaimStatusSubmitted, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return claims, nil
}

// ManagerQueue lists claims awaiting manager review.
func (s *ClaimService) ManagerQueue(ctx context.Context, limit, offset int) ([]domain.Claim, error) {
	claims, err := s.claims.ListByStatus(ctx, domain.ClaimStatusPendingReview, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return claims, nil
}

// GetClaim fetches a single claim.
func (s *ClaimService) GetClaim(ctx context.Context, claimID string) (*domain.Claim, error) {
	return s.getClaim(ctx, claimID)
}

// ListRecent lists the most recent claims regardless of status.
func (s *ClaimService) ListRecent(ctx context.Context, limit int) ([]domain.Claim, error) {
	claims, err := s.claims.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return claims, nil
}

// AuditTrail lists the audit entries recorded for a claim.
func (s *ClaimService) AuditTrail(ctx context.Context, claimID string) ([]domain.ClaimAudit, error) {
	if _, err := s.getClaim(ctx, claimID); err != nil {
		return nil, err
	}
	entries, err := s.audits.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// transition applies the CAS write for a status move. The in-memory claim is
// mutated only through TryTransition, and the store refuses the write when a
// concurrent actor already moved the claim; either failure surfaces the same
// illegal-transition outcome with the claim left unchanged.
func (s *ClaimService) transition(ctx context.Context, claim *domain.Claim, from, to domain.ClaimStatus, notice string) error {
	if !claim.TryTransition(from, to) {
		return apperrors.NewIllegalTransition(notice)
	}
	ok, err := s.claims.UpdateStatus(ctx, claim.ID, from, to)
	if err != nil {
		s.logger.Error("update claim status",
			zap.String("claim_id", claim.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
		return apperrors.MapError(err)
	}
	if !ok {
		return apperrors.NewIllegalTransition(notice)
	}
	claim.UpdatedAt = time.Now()
	return nil
}

func (s *ClaimService) resolveLecturer(ctx context.Context, id *string, name string) (*domain.Lecturer, error) {
	if id != nil && strings.TrimSpace(*id) != "" {
		lecturer, err := s.lecturers.GetByID(ctx, strings.TrimSpace(*id))
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, apperrors.NewFieldValidationError("lecturer_id", "Selected lecturer not found or not active.")
			}
			return nil, apperrors.MapError(err)
		}
		if !lecturer.Active {
			return nil, apperrors.NewFieldValidationError("lecturer_id", "Selected lecturer not found or not active.")
		}
		return lecturer, nil
	}

	if name == "" {
		return nil, nil
	}
	lecturer, err := s.lecturers.GetByName(ctx, name)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Intentional: an unmatched free-text name still produces a
			// claim, supporting ad-hoc submissions.
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	if !lecturer.Active {
		return nil, nil
	}
	return lecturer, nil
}

func (s *ClaimService) storeAttachment(ctx context.Context, claim *domain.Claim, actor Actor, attachment *AttachmentInput) error {
	storedName, err := s.attachments.Save(claim.ID, attachment.FileName, attachment.Data)
	if err != nil {
		return err
	}
	if err := s.claims.SetAttachment(ctx, claim.ID, attachment.FileName, storedName); err != nil {
		return err
	}
	fileName := attachment.FileName
	claim.AttachmentFileName = &fileName
	claim.AttachmentStoredName = &storedName

	s.recordAudit(ctx, claim.ID, domain.AuditActionAttachmentAdded, actor, &fileName)
	s.publishEvent(ctx, events.Event{
		Type:    events.EventClaimAttachmentAdded,
		ClaimID: claim.ID,
		Actor:   eventActor(actor),
		Payload: events.ClaimAttachmentAddedPayload{
			FileName:   fileName,
			StoredName: storedName,
			SizeBytes:  int64(len(attachment.Data)),
		},
	})
	return nil
}

func (s *ClaimService) getClaim(ctx context.Context, claimID string) (*domain.Claim, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("claim", map[string]any{"claim_id": claimID})
		}
		s.logger.Error("load claim", zap.String("claim_id", claimID), zap.Error(err))
		return nil, apperrors.MapError(err)
	}
	return claim, nil
}

func (s *ClaimService) recordAudit(ctx context.Context, claimID string, action domain.AuditAction, actor Actor, notes *string) {
	if s.audits == nil {
		return
	}
	entry := &domain.ClaimAudit{
		ClaimID:   claimID,
		Action:    action,
		ActorRole: actor.Role,
		ActorID:   actor.AccountID,
		Notes:     notes,
	}
	if err := s.audits.Create(ctx, entry); err != nil {
		s.logger.Error("record audit", zap.String("claim_id", claimID), zap.Error(err))
	}
}

func (s *ClaimService) publishStatusChange(ctx context.Context, claim *domain.Claim, from, to domain.ClaimStatus, actor Actor, reason string) {
	s.publishEvent(ctx, events.Event{
		Type:    events.EventClaimStatusChanged,
		ClaimID: claim.ID,
		Actor:   eventActor(actor),
		Payload: events.ClaimStatusChangedPayload{
			OldStatus: from,
			NewStatus: to,
			Month:     claim.Month,
			Reason:    reason,
		},
	})
}

func (s *ClaimService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func eventActor(actor Actor) events.Actor {
	return events.Actor{Role: actor.Role, AccountID: actor.AccountID}
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
