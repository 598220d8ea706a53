package domain

import "time"

// AuditAction captures what happened to a claim.
type AuditAction string

const (
	AuditActionSubmitted         AuditAction = "SUBMITTED"
	AuditActionAutoApproved      AuditAction = "AUTO_APPROVED"
	AuditActionForwarded         AuditAction = "FORWARDED_FOR_REVIEW"
	AuditActionApproved          AuditAction = "APPROVED"
	AuditActionRejected          AuditAction = "REJECTED"
	AuditActionAttachmentAdded   AuditAction = "ATTACHMENT_ADDED"
	AuditActionValidationStopped AuditAction = "VALIDATION_STOPPED"
)

// ClaimAudit is an immutable trail entry written for every submission,
// transition, and attachment.
type ClaimAudit struct {
	ID        string
	ClaimID   string
	Action    AuditAction
	ActorRole Role
	ActorID   *string
	Notes     *string
	CreatedAt time.Time
}
