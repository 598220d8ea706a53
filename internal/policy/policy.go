// Package policy holds the pure validation rules applied to claim figures,
// both at intake and again at every approval gate.
package policy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bounds carries the configured policy limits. Loaded once at startup and
// immutable for the process lifetime.
type Bounds struct {
	MaxHoursPerMonth     decimal.Decimal
	MinHourlyRate        decimal.Decimal
	MaxHourlyRate        decimal.Decimal
	AutoApproveThreshold decimal.Decimal
}

// Result is the outcome of a policy check.
type Result struct {
	Accepted    bool
	Reason      string
	AutoApprove bool
}

// Validate checks hours and rate against the bounds. Checks run in a fixed
// order and the first failure wins; reasons are never aggregated. The function
// has no side effects and is safe to call concurrently.
func Validate(hours, rate decimal.Decimal, b Bounds) Result {
	if hours.Sign() <= 0 || rate.Sign() <= 0 {
		return Result{Reason: "Hours or rate cannot be zero or negative."}
	}
	if hours.GreaterThan(b.MaxHoursPerMonth) {
		return Result{Reason: fmt.Sprintf("Hours exceed %s for the month.", b.MaxHoursPerMonth)}
	}
	if rate.LessThan(b.MinHourlyRate) || rate.GreaterThan(b.MaxHourlyRate) {
		return Result{Reason: fmt.Sprintf("Rate must be between %s and %s.", b.MinHourlyRate, b.MaxHourlyRate)}
	}

	amount := hours.Mul(rate)
	if amount.LessThanOrEqual(b.AutoApproveThreshold) {
		return Result{
			Accepted:    true,
			Reason:      fmt.Sprintf("Low-risk amount <= %s.", b.AutoApproveThreshold),
			AutoApprove: true,
		}
	}
	return Result{Accepted: true, Reason: "OK"}
}
