package handlers

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/claim-service/internal/api/dto"
	"github.com/spec-kit/claim-service/internal/auth"
	"github.com/spec-kit/claim-service/internal/domain"
	"github.com/spec-kit/claim-service/internal/service"
	"github.com/spec-kit/claim-service/internal/storage"
	apperrors "github.com/spec-kit/claim-service/pkg/util"
)

// ClaimsHandler manages lecturer-facing claim endpoints.
type ClaimsHandler struct {
	service *service.ClaimService
}

// NewClaimsHandler constructs handler.
func NewClaimsHandler(claimService *service.ClaimService) *ClaimsHandler {
	return &ClaimsHandler{service: claimService}
}

// Submit POST /claims. The body is multipart form data so the optional
// supporting document can travel with the figures.
func (h *ClaimsHandler) Submit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var form dto.SubmitClaimForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewValidationError("invalid form payload", nil)
	}

	hours, err := decimal.NewFromString(strings.TrimSpace(form.HoursWorked))
	if err != nil {
		return apperrors.NewFieldValidationError("hours_worked", "Hours worked must be a number.")
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(form.HourlyRate))
	if err != nil {
		return apperrors.NewFieldValidationError("hourly_rate", "Hourly rate must be a number.")
	}

	input := service.SubmitClaimInput{
		LecturerID:   form.LecturerID,
		LecturerName: form.LecturerName,
		Month:        form.Month,
		HoursWorked:  hours,
		HourlyRate:   rate,
		Notes:        form.Notes,
	}

	attachment, err := readAttachment(c)
	if err != nil {
		return err
	}
	input.Attachment = attachment

	claim, err := h.service.Submit(c.Context(), actorFromPrincipal(principal), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": claimResponse(claim)})
}

// Get GET /claims/:id.
func (h *ClaimsHandler) Get(c *fiber.Ctx) error {
	claim, err := h.service.GetClaim(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimResponse(claim)})
}

// ListRecent GET /claims.
func (h *ClaimsHandler) ListRecent(c *fiber.Ctx) error {
	limit := parseQueryInt(c.Query("limit"), 100)
	claims, err := h.service.ListRecent(c.Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimResponses(claims)})
}

// Attach POST /claims/:id/attachment.
func (h *ClaimsHandler) Attach(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	attachment, err := readAttachment(c)
	if err != nil {
		return err
	}
	if attachment == nil {
		return apperrors.NewFieldValidationError("file", "A file is required.")
	}
	claim, err := h.service.AttachDocument(c.Context(), actorFromPrincipal(principal), c.Params("id"), *attachment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimResponse(claim)})
}

// DownloadAttachment GET /claims/:id/attachment.
func (h *ClaimsHandler) DownloadAttachment(c *fiber.Ctx) error {
	fileName, data, err := h.service.DownloadAttachment(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return c.Send(data)
}

// AuditTrail GET /claims/:id/audit.
func (h *ClaimsHandler) AuditTrail(c *fiber.Ctx) error {
	entries, err := h.service.AuditTrail(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ClaimAuditResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.ClaimAuditResponse{
			ID:        entry.ID,
			Action:    entry.Action,
			ActorRole: entry.ActorRole,
			ActorID:   entry.ActorID,
			Notes:     entry.Notes,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func readAttachment(c *fiber.Ctx) (*service.AttachmentInput, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		// Missing file part is fine; the attachment is optional.
		return nil, nil
	}
	if fileHeader.Size > storage.MaxAttachmentBytes {
		return nil, apperrors.NewFieldValidationError("file", "File too large (max 10 MiB).")
	}
	data, err := readMultipartFile(fileHeader)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &service.AttachmentInput{FileName: fileHeader.Filename, Data: data}, nil
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, storage.MaxAttachmentBytes+1))
}

func actorFromPrincipal(principal *auth.Principal) service.Actor {
	actor := service.Actor{Role: principal.Role}
	if principal.Account != nil {
		id := principal.Account.ID
		actor.AccountID = &id
	}
	return actor
}

func parseQueryInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func claimResponse(claim *domain.Claim) dto.ClaimResponse {
	return dto.ClaimResponse{
		ID:                 claim.ID,
		LecturerID:         claim.LecturerID,
		LecturerName:       claim.LecturerName,
		Month:              claim.Month,
		HoursWorked:        claim.HoursWorked.String(),
		HourlyRate:         claim.HourlyRate.String(),
		Amount:             claim.Amount().String(),
		Notes:              claim.Notes,
		AttachmentFileName: claim.AttachmentFileName,
		Status:             claim.Status,
		CreatedAt:          claim.CreatedAt,
		UpdatedAt:          claim.UpdatedAt,
	}
}

func claimResponses(claims []domain.Claim) []dto.ClaimResponse {
	items := make([]dto.ClaimResponse, 0, len(claims))
	for i := range claims {
		items = append(items, claimResponse(&claims[i]))
	}
	return items
}
