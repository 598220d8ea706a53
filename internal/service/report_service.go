package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/claim-service/internal/domain"
	"github.com/spec-kit/claim-service/internal/events"
	"github.com/spec-kit/claim-service/internal/repository"
	apperrors "github.com/spec-kit/claim-service/pkg/util"
)

const summaryCacheKeyPrefix = "claims:summary:"

// ReportCache is the projection cache contract. A nil value on Get means a
// cache miss.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SummaryRow is one lecturer's aggregate for the selected month.
type SummaryRow struct {
	LecturerName string          `json:"lecturer_name"`
	TotalHours   decimal.Decimal `json:"total_hours"`
	AverageRate  decimal.Decimal `json:"average_rate"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// MonthlySummary is the HR reporting projection for one month.
type MonthlySummary struct {
	SelectedMonth    string          `json:"selected_month"`
	AvailableMonths  []string        `json:"available_months"`
	Rows             []SummaryRow    `json:"rows"`
	GrandTotalHours  decimal.Decimal `json:"grand_total_hours"`
	GrandTotalAmount decimal.Decimal `json:"grand_total_amount"`
}

// ReportService aggregates approved claims for HR. It only reads the claim
// store; it never touches the state machine.
type ReportService struct {
	claims   repository.ClaimRepository
	cache    ReportCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(claims repository.ClaimRepository, cache ReportCache, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{claims: claims, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// RegisterInvalidation evicts cached summaries whenever a claim reaches a
// terminal decision for a month.
func (s *ReportService) RegisterInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventClaimStatusChanged, func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.ClaimStatusChangedPayload)
		if !ok || payload.NewStatus != domain.ClaimStatusApproved {
			return nil
		}
		s.invalidate(ctx, payload.Month)
		return nil
	})
}

// Monthly returns the summary for the requested month; with an empty month it
// falls back to the earliest month carrying approved claims, then to the
// current month label.
func (s *ReportService) Monthly(ctx context.Context, month string) (*MonthlySummary, error) {
	months, err := s.claims.DistinctApprovedMonths(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	month = strings.TrimSpace(month)
	if month == "" {
		if len(months) > 0 {
			month = months[0]
		} else {
			month = time.Now().UTC().Format("January 2006")
		}
	}

	if cached := s.cachedSummary(ctx, month); cached != nil {
		cached.AvailableMonths = months
		return cached, nil
	}

	rows, err := s.claims.MonthlySummary(ctx, month)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	summary := &MonthlySummary{
		SelectedMonth:    month,
		AvailableMonths:  months,
		Rows:             make([]SummaryRow, 0, len(rows)),
		GrandTotalHours:  decimal.Zero,
		GrandTotalAmount: decimal.Zero,
	}
	for _, row := range rows {
		summary.Rows = append(summary.Rows, SummaryRow{
			LecturerName: row.LecturerName,
			TotalHours:   row.TotalHours,
			AverageRate:  row.AverageRate,
			TotalAmount:  row.TotalAmount,
		})
		summary.GrandTotalHours = summary.GrandTotalHours.Add(row.TotalHours)
		summary.GrandTotalAmount = summary.GrandTotalAmount.Add(row.TotalAmount)
	}

	s.cacheSummary(ctx, month, summary)
	return summary, nil
}

// Months lists every month with at least one approved claim.
func (s *ReportService) Months(ctx context.Context) ([]string, error) {
	months, err := s.claims.DistinctApprovedMonths(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return months, nil
}

// Invoice returns the approved claim lines for one lecturer and month.
func (s *ReportService) Invoice(ctx context.Context, lecturerName, month string) ([]domain.Claim, error) {
	lecturerName = strings.TrimSpace(lecturerName)
	month = strings.TrimSpace(month)
	if lecturerName == "" || month == "" {
		return nil, apperrors.NewValidationError("lecturer and month are required", nil)
	}
	lines, err := s.claims.InvoiceLines(ctx, lecturerName, month)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(lines) == 0 {
		return nil, apperrors.NewNotFound("invoice", map[string]any{"lecturer": lecturerName, "month": month})
	}
	return lines, nil
}

// ExportApprovedCSV renders approved claims as UTF-8 CSV with a BOM so
// spreadsheet tools detect the encoding. It returns the bytes and a
// timestamped filename.
func (s *ReportService) ExportApprovedCSV(ctx context.Context, month *string) ([]byte, string, error) {
	rows, err := s.claims.ListApproved(ctx, month)
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}

	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Id", "Lecturer", "Month", "Hours", "Rate", "Amount", "Status", "Attachment"}); err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	for _, claim := range rows {
		attachment := ""
		if claim.AttachmentFileName != nil {
			attachment = *claim.AttachmentFileName
		}
		record := []string{
			claim.ID,
			claim.LecturerName,
			claim.Month,
			claim.HoursWorked.String(),
			claim.HourlyRate.String(),
			claim.Amount().String(),
			string(claim.Status),
			attachment,
		}
		if err := writer.Write(record); err != nil {
			return nil, "", apperrors.NewInternalError(err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}

	label := "All"
	if month != nil && strings.TrimSpace(*month) != "" {
		label = strings.ReplaceAll(strings.TrimSpace(*month), " ", "_")
	}
	fileName := fmt.Sprintf("ApprovedClaims_%s_%s.csv", label, time.Now().UTC().Format("20060102150405"))
	return buf.Bytes(), fileName, nil
}

func (s *ReportService) cachedSummary(ctx context.Context, month string) *MonthlySummary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, summaryCacheKeyPrefix+month)
	if err != nil {
		s.logger.Warn("summary cache read", zap.String("month", month), zap.Error(err))
		return nil
	}
	if raw == nil {
		return nil
	}
	var summary MonthlySummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		s.logger.Warn("summary cache decode", zap.String("month", month), zap.Error(err))
		return nil
	}
	return &summary
}

func (s *ReportService) cacheSummary(ctx context.Context, month string, summary *MonthlySummary) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, summaryCacheKeyPrefix+month, raw, s.cacheTTL); err != nil {
		s.logger.Warn("summary cache write", zap.String("month", month), zap.Error(err))
	}
}

func (s *ReportService) invalidate(ctx context.Context, month string) {
	if s.cache == nil || month == "" {
		return
	}
	if err := s.cache.Delete(ctx, summaryCacheKeyPrefix+month); err != nil {
		s.logger.Warn("summary cache evict", zap.String("month", month), zap.Error(err))
	}
}
