package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/claim-service/internal/api/dto"
	"github.com/spec-kit/claim-service/internal/auth"
	"github.com/spec-kit/claim-service/internal/service"
	apperrors "github.com/spec-kit/claim-service/pkg/util"
)

// ReviewHandler manages coordinator triage and manager review endpoints.
type ReviewHandler struct {
	service *service.ClaimService
}

// NewReviewHandler constructs handler.
func NewReviewHandler(claimService *service.ClaimService) *ReviewHandler {
	return &ReviewHandler{service: claimService}
}

// CoordinatorQueue GET /review/coordinator/claims.
func (h *ReviewHandler) CoordinatorQueue(c *fiber.Ctx) error {
	limit := parseQueryInt(c.Query("limit"), 50)
	offset := parseQueryInt(c.Query("offset"), 0)
	claims, err := h.service.CoordinatorQueue(c.Context(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimResponses(claims)})
}

// CoordinatorApprove POST /review/coordinator/claims/:id/approve.
func (h *ReviewHandler) CoordinatorApprove(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	claim, res, err := h.service.CoordinatorApprove(c.Context(), actorFromPrincipal(principal), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DecisionResponse{Claim: claimResponse(claim), Reason: res.Reason}})
}

// CoordinatorReject POST /review/coordinator/claims/:id/reject.
func (h *ReviewHandler) CoordinatorReject(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RejectClaimRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	claim, err := h.service.CoordinatorReject(c.Context(), actorFromPrincipal(principal), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimResponse(claim)})
}

// ManagerQueue GET /review/manager/claims.
func (h *ReviewHandler) ManagerQueue(c *fiber.Ctx) error {
	limit := parseQueryInt(c.Query("limit"), 50)
	offset := parseQueryInt(c.Query("offset"), 0)
	claims, err := h.service.ManagerQueue(c.Context(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimResponses(claims)})
}

// ManagerApprove POST /review/manager/claims/:id/approve.
func (h *ReviewHandler) ManagerApprove(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	claim, res, err := h.service.ManagerApprove(c.Context(), actorFromPrincipal(principal), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DecisionResponse{Claim: claimResponse(claim), Reason: res.Reason}})
}

// ManagerReject POST /review/manager/claims/:id/reject.
func (h *ReviewHandler) ManagerReject(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RejectClaimRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	claim, err := h.service.ManagerReject(c.Context(), actorFromPrincipal(principal), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimResponse(claim)})
}
