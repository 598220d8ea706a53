package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lecturer is directory reference data owned by HR. Claims snapshot the name
// and rate at submission time, so deactivating or editing a lecturer never
// invalidates historical claims.
type Lecturer struct {
	ID         string
	Name       string
	Email      *string
	Phone      *string
	Department *string
	// HourlyRate is the default suggested rate copied onto new claims.
	HourlyRate decimal.Decimal
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
