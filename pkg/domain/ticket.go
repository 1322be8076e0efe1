package domain

import (
	"regexp"
	"strings"
	"time"
)

// Ticket is a single event ticket as stored by the ticket API.
type Ticket struct {
	TicketID   string     `json:"ticketID"`
	Email      string     `json:"email,omitempty"`
	IsAssigned bool       `json:"isAssigned"`
	IsUsed     bool       `json:"isUsed"`
	IssuedBy   string     `json:"issuedBy,omitempty"`
	IssuedAt   *time.Time `json:"issuedAt,omitempty"`
	UsedAt     *time.Time `json:"usedAt,omitempty"`
}

// ValidationResult is returned by the API when a scanned code is accepted.
// All fields are passed through to the scan view untouched.
type ValidationResult struct {
	TicketID string    `json:"ticketID"`
	Email    string    `json:"email"`
	UsedAt   time.Time `json:"usedAt"`
	IssuedBy string    `json:"issuedBy,omitempty"`
}

// TicketStats holds the dashboard counters.
type TicketStats struct {
	Global   GlobalTicketStats    `json:"global"`
	Personal *PersonalTicketStats `json:"personal,omitempty"`
}

// GlobalTicketStats counts tickets across the whole event.
type GlobalTicketStats struct {
	Total     int `json:"total"`
	Sent      int `json:"sent"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// PersonalTicketStats counts what the logged-in issuer has done.
type PersonalTicketStats struct {
	TicketsIssued  int `json:"ticketsIssued"`
	TicketsScanned int `json:"ticketsScanned"`
}

// TicketFilter narrows a ticket listing. Zero values are omitted.
type TicketFilter struct {
	Status string // "assigned", "used", "available"
	Email  string
	Page   int
	Limit  int
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lower-cases an address before it is sent to the API.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email looks like an address the API will accept.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
