package domain

import "time"

// Activity actions recorded by the API.
const (
	ActionTicketIssued    = "ticket_issued"
	ActionTicketValidated = "ticket_validated"
	ActionUserCreated     = "user_created"
	ActionUserDeleted     = "user_deleted"
	ActionLogin           = "login"
	ActionLogout          = "logout"
)

// ActivityActions lists the filterable actions in display order.
var ActivityActions = []string{
	ActionTicketIssued,
	ActionTicketValidated,
	ActionUserCreated,
	ActionUserDeleted,
	ActionLogin,
	ActionLogout,
}

// ActivityLog is one audit record.
type ActivityLog struct {
	ID        string          `json:"_id"`
	Action    string          `json:"action"`
	User      *UserRef        `json:"user,omitempty"`
	Details   ActivityDetails `json:"details"`
	Result    string          `json:"result"` // "success" or "failure"
	Timestamp time.Time       `json:"timestamp"`
}

// ActivityDetails carries the optional context of an activity record.
type ActivityDetails struct {
	TicketID    string `json:"ticketID,omitempty"`
	TicketEmail string `json:"ticketEmail,omitempty"`
	TargetUser  string `json:"targetUser,omitempty"`
}

// ActivityFilter narrows an activity listing. Zero values are omitted.
type ActivityFilter struct {
	Action    string
	StartDate time.Time
	EndDate   time.Time
	Page      int
}

// SystemStats summarises activity across all staff.
type SystemStats struct {
	ActionBreakdown map[string]int `json:"actionBreakdown"`
	TopUsers        []TopUser      `json:"topUsers"`
}

// TopUser is a staff member ranked by activity count.
type TopUser struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Count    int    `json:"count"`
}

// TotalActions sums the action breakdown.
func (s SystemStats) TotalActions() int {
	total := 0
	for _, n := range s.ActionBreakdown {
		total += n
	}
	return total
}
