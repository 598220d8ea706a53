package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/claim-service/internal/api/dto"
	"github.com/spec-kit/claim-service/internal/domain"
	"github.com/spec-kit/claim-service/internal/repository"
	"github.com/spec-kit/claim-service/internal/service"
	apperrors "github.com/spec-kit/claim-service/pkg/util"
)

// LecturersHandler manages the HR-owned lecturer directory endpoints.
type LecturersHandler struct {
	service *service.LecturerService
}

// NewLecturersHandler constructs handler.
func NewLecturersHandler(lecturerService *service.LecturerService) *LecturersHandler {
	return &LecturersHandler{service: lecturerService}
}

// Create POST /hr/lecturers.
func (h *LecturersHandler) Create(c *fiber.Ctx) error {
	input, err := parseLecturerRequest(c)
	if err != nil {
		return err
	}
	lecturer, err := h.service.Create(c.Context(), *input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": lecturerResponse(lecturer)})
}

// Update PUT /hr/lecturers/:id.
func (h *LecturersHandler) Update(c *fiber.Ctx) error {
	input, err := parseLecturerRequest(c)
	if err != nil {
		return err
	}
	lecturer, err := h.service.Update(c.Context(), c.Params("id"), *input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lecturerResponse(lecturer)})
}

// Deactivate POST /hr/lecturers/:id/deactivate.
func (h *LecturersHandler) Deactivate(c *fiber.Ctx) error {
	lecturer, err := h.service.Deactivate(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lecturerResponse(lecturer)})
}

// Delete DELETE /hr/lecturers/:id.
func (h *LecturersHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Get GET /hr/lecturers/:id.
func (h *LecturersHandler) Get(c *fiber.Ctx) error {
	lecturer, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lecturerResponse(lecturer)})
}

// List GET /hr/lecturers.
func (h *LecturersHandler) List(c *fiber.Ctx) error {
	filter := repository.LecturerFilter{
		Limit:  parseQueryInt(c.Query("limit"), 100),
		Offset: parseQueryInt(c.Query("offset"), 0),
	}
	if activeStr := c.Query("active"); activeStr != "" {
		active := strings.EqualFold(activeStr, "true")
		filter.Active = &active
	}
	if dept := c.Query("department"); dept != "" {
		filter.Department = &dept
	}
	lecturers, err := h.service.List(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lecturerResponses(lecturers)})
}

// ListActive GET /lecturers/active. Offered to claim intake forms, so any
// authenticated caller may read it.
func (h *LecturersHandler) ListActive(c *fiber.Ctx) error {
	lecturers, err := h.service.ListActive(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lecturerResponses(lecturers)})
}

func parseLecturerRequest(c *fiber.Ctx) (*service.LecturerInput, error) {
	var req dto.LecturerRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}
	rate := decimal.Zero
	if strings.TrimSpace(req.HourlyRate) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(req.HourlyRate))
		if err != nil {
			return nil, apperrors.NewFieldValidationError("hourly_rate", "Hourly rate must be a number.")
		}
		rate = parsed
	}
	return &service.LecturerInput{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Department: req.Department,
		HourlyRate: rate,
		Active:     req.Active,
	}, nil
}

func lecturerResponse(lecturer *domain.Lecturer) dto.LecturerResponse {
	return dto.LecturerResponse{
		ID:         lecturer.ID,
		Name:       lecturer.Name,
		Email:      lecturer.Email,
		Phone:      lecturer.Phone,
		Department: lecturer.Department,
		HourlyRate: lecturer.HourlyRate.String(),
		Active:     lecturer.Active,
		CreatedAt:  lecturer.CreatedAt,
		UpdatedAt:  lecturer.UpdatedAt,
	}
}

func lecturerResponses(lecturers []domain.Lecturer) []dto.LecturerResponse {
	items := make([]dto.LecturerResponse, 0, len(lecturers))
	for i := range lecturers {
		items = append(items, lecturerResponse(&lecturers[i]))
	}
	return items
}
