package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/claim-service/internal/api/dto"
	"github.com/spec-kit/claim-service/internal/service"
)

// HRHandler serves the HR reporting endpoints over approved claims.
type HRHandler struct {
	reports *service.ReportService
}

// NewHRHandler constructs handler.
func NewHRHandler(reportService *service.ReportService) *HRHandler {
	return &HRHandler{reports: reportService}
}

// MonthlySummary GET /hr/reports/monthly?month=March+2025.
func (h *HRHandler) MonthlySummary(c *fiber.Ctx) error {
	summary, err := h.reports.Monthly(c.Context(), c.Query("month"))
	if err != nil {
		return err
	}
	rows := make([]dto.SummaryRowResponse, 0, len(summary.Rows))
	for _, row := range summary.Rows {
		rows = append(rows, dto.SummaryRowResponse{
			LecturerName: row.LecturerName,
			TotalHours:   row.TotalHours.String(),
			AverageRate:  row.AverageRate.String(),
			TotalAmount:  row.TotalAmount.String(),
		})
	}
	return c.JSON(fiber.Map{"data": dto.MonthlySummaryResponse{
		SelectedMonth:    summary.SelectedMonth,
		AvailableMonths:  summary.AvailableMonths,
		Rows:             rows,
		GrandTotalHours:  summary.GrandTotalHours.String(),
		GrandTotalAmount: summary.GrandTotalAmount.String(),
	}})
}

// Months GET /hr/reports/months.
func (h *HRHandler) Months(c *fiber.Ctx) error {
	months, err := h.reports.Months(c.Context())
	if err != nil {
		return err
	}
	if months == nil {
		months = []string{}
	}
	return c.JSON(fiber.Map{"data": months})
}

// Invoice GET /hr/reports/invoice?lecturer=...&month=....
func (h *HRHandler) Invoice(c *fiber.Ctx) error {
	lecturer := c.Query("lecturer")
	month := c.Query("month")
	lines, err := h.reports.Invoice(c.Context(), lecturer, month)
	if err != nil {
		return err
	}
	total := decimal.Zero
	for i := range lines {
		total = total.Add(lines[i].Amount())
	}
	return c.JSON(fiber.Map{"data": dto.InvoiceResponse{
		LecturerName: lines[0].LecturerName,
		Month:        month,
		Lines:        claimResponses(lines),
		TotalAmount:  total.String(),
	}})
}

// ExportApprovedCSV GET /hr/reports/approved.csv?month=....
func (h *HRHandler) ExportApprovedCSV(c *fiber.Ctx) error {
	var month *string
	if q := c.Query("month"); q != "" {
		month = &q
	}
	data, fileName, err := h.reports.ExportApprovedCSV(c.Context(), month)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return c.Send(data)
}
