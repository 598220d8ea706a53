package dto

// SummaryRowResponse is one lecturer's aggregate for a month.
type SummaryRowResponse struct {
	LecturerName string `json:"lecturer_name"`
	TotalHours   string `json:"total_hours"`
	AverageRate  string `json:"average_rate"`
	TotalAmount  string `json:"total_amount"`
}

// MonthlySummaryResponse is the HR monthly report.
type MonthlySummaryResponse struct {
	SelectedMonth    string               `json:"selected_month"`
	AvailableMonths  []string             `json:"available_months"`
	Rows             []SummaryRowResponse `json:"rows"`
	GrandTotalHours  string               `json:"grand_total_hours"`
	GrandTotalAmount string               `json:"grand_total_amount"`
}

// InvoiceResponse groups a lecturer's approved lines for one month.
type InvoiceResponse struct {
	LecturerName string          `json:"lecturer_name"`
	Month        string          `json:"month"`
	Lines        []ClaimResponse `json:"lines"`
	TotalAmount  string          `json:"total_amount"`
}
