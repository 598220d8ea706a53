package dto

import (
	"time"

	"github.com/spec-kit/claim-service/internal/domain"
)

// SubmitClaimForm captures the multipart fields of a claim submission. The
// attachment travels as the "file" form part alongside these values.
type SubmitClaimForm struct {
	LecturerID   *string `form:"lecturer_id"`
	LecturerName string  `form:"lecturer_name"`
	Month        string  `form:"month"`
	HoursWorked  string  `form:"hours_worked"`
	HourlyRate   string  `form:"hourly_rate"`
	Notes        *string `form:"notes"`
}

// RejectClaimRequest payload.
type RejectClaimRequest struct {
	Reason *string `json:"reason"`
}

// ClaimResponse is the external claim representation.
type ClaimResponse struct {
	ID                 string             `json:"id"`
	LecturerID         *string            `json:"lecturer_id,omitempty"`
	LecturerName       string             `json:"lecturer_name"`
	Month              string             `json:"month"`
	HoursWorked        string             `json:"hours_worked"`
	HourlyRate         string             `json:"hourly_rate"`
	Amount             string             `json:"amount"`
	Notes              *string            `json:"notes,omitempty"`
	AttachmentFileName *string            `json:"attachment_file_name,omitempty"`
	Status             domain.ClaimStatus `json:"status"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// DecisionResponse wraps a claim after a review action, carrying the policy
// outcome that drove it.
type DecisionResponse struct {
	Claim  ClaimResponse `json:"claim"`
	Reason string        `json:"reason,omitempty"`
}

// ClaimAuditResponse is one trail entry.
type ClaimAuditResponse struct {
	ID        string             `json:"id"`
	Action    domain.AuditAction `json:"action"`
	ActorRole domain.Role        `json:"actor_role"`
	ActorID   *string            `json:"actor_id,omitempty"`
	Notes     *string            `json:"notes,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}
