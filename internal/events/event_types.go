package events

import (
	"time"

	"github.com/spec-kit/claim-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventClaimSubmitted       EventType = "claim_submitted"
	EventClaimStatusChanged   EventType = "claim_status_changed"
	EventClaimAttachmentAdded EventType = "claim_attachment_added"
	EventLecturerCreated      EventType = "lecturer_created"
	EventLecturerUpdated      EventType = "lecturer_updated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role      domain.Role `json:"role"`
	AccountID *string     `json:"account_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ClaimID   string      `json:"claim_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ClaimSubmittedPayload payload.
type ClaimSubmittedPayload struct {
	LecturerName string `json:"lecturer_name"`
	Month        string `json:"month"`
	Amount       string `json:"amount"`
}

// ClaimStatusChangedPayload payload.
type ClaimStatusChangedPayload struct {
	OldStatus domain.ClaimStatus `json:"old_status"`
	NewStatus domain.ClaimStatus `json:"new_status"`
	Month     string             `json:"month,omitempty"`
	Reason    string             `json:"reason,omitempty"`
}

// ClaimAttachmentAddedPayload payload.
type ClaimAttachmentAddedPayload struct {
	FileName   string `json:"file_name"`
	StoredName string `json:"stored_name"`
	SizeBytes  int64  `json:"size_bytes"`
}

// LecturerPayload payload for directory events.
type LecturerPayload struct {
	LecturerID string `json:"lecturer_id"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`
}
