package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus enumerates lifecycle states for lecturer claims.
type ClaimStatus string

const (
	// ClaimStatusDraft is reserved; no current flow creates drafts.
	ClaimStatusDraft         ClaimStatus = "DRAFT"
	ClaimStatusSubmitted     ClaimStatus = "SUBMITTED"
	ClaimStatusPendingReview ClaimStatus = "PENDING_REVIEW"
	ClaimStatusApproved      ClaimStatus = "APPROVED"
	ClaimStatusRejected      ClaimStatus = "REJECTED"
)

// IsTerminal reports whether no further transition is permitted from the status.
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimStatusApproved || s == ClaimStatusRejected
}

// Claim is the aggregate for a lecturer's monthly hours submission.
type Claim struct {
	ID string
	// LecturerID references the directory record when one matched at submission.
	LecturerID *string
	// LecturerName is a snapshot taken at submission time; later directory
	// edits do not affect historical claims.
	LecturerName string
	// Month is a free-text label such as "March 2025".
	Month       string
	HoursWorked decimal.Decimal
	HourlyRate  decimal.Decimal
	Notes       *string
	// AttachmentFileName keeps the original upload name; AttachmentStoredName
	// is the opaque name under which the blob store keeps the bytes.
	AttachmentFileName   *string
	AttachmentStoredName *string
	Status               ClaimStatus
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Amount is always recomputed from hours and rate, never stored independently.
func (c *Claim) Amount() decimal.Decimal {
	return c.HoursWorked.Mul(c.HourlyRate)
}

// TryTransition moves the claim from one status to another. It is the sole
// mutator of Status: it succeeds only when the claim currently sits in the
// expected from status and that status is not terminal, and leaves the claim
// untouched otherwise. A false return is an expected outcome, not an error.
func (c *Claim) TryTransition(from, to ClaimStatus) bool {
	if c.Status.IsTerminal() || c.Status != from {
		return false
	}
	c.Status = to
	return true
}
