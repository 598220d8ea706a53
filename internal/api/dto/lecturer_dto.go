package dto

import "time"

// LecturerRequest payload for create and update.
type LecturerRequest struct {
	Name       string  `json:"name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
	HourlyRate string  `json:"hourly_rate"`
	Active     *bool   `json:"active"`
}

// LecturerResponse is the external directory representation.
type LecturerResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      *string   `json:"email,omitempty"`
	Phone      *string   `json:"phone,omitempty"`
	Department *string   `json:"department,omitempty"`
	HourlyRate string    `json:"hourly_rate"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
