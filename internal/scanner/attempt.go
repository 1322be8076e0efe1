package scanner

import (
	"time"

	"github.com/google/uuid"

	"github.com/ticketdawg/checkin/pkg/domain"
)

// Status is the resolution of a validation attempt.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusRejected
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusRejected:
		return "rejected"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// RejectReason says why the API refused a ticket.
type RejectReason string

const (
	RejectNotATicket  RejectReason = "not_a_ticket"
	RejectUnassigned  RejectReason = "unassigned"
	RejectAlreadyUsed RejectReason = "already_used"
)

// Attempt is one call to validate a decoded payload.
type Attempt struct {
	ID         uuid.UUID
	Payload    string
	Status     Status
	Reason     RejectReason
	Result     *domain.ValidationResult
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Retryable reports whether scanning the same code again could succeed.
// The attempt itself is never retried.
func (a Attempt) Retryable() bool {
	return a.Status == StatusErrored
}

// Duration is how long the validation call took.
func (a Attempt) Duration() time.Duration {
	if a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}
