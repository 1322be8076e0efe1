package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ticketdawg/checkin/pkg/domain"
)

// DefaultValidateTimeout bounds a single validation call.
const DefaultValidateTimeout = 10 * time.Second

// Validator checks a decoded payload against the ticket API.
type Validator interface {
	ValidateTicket(ctx context.Context, qrCode string) (*domain.ValidationResult, error)
}

// Dispatcher sends decoded payloads for validation, one at a time.
type Dispatcher struct {
	v       Validator
	timeout time.Duration
	pending atomic.Bool
	now     func() time.Time
}

// NewDispatcher returns a dispatcher. A non-positive timeout uses
// DefaultValidateTimeout.
func NewDispatcher(v Validator, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultValidateTimeout
	}
	return &Dispatcher{v: v, timeout: timeout, now: time.Now}
}

// Pending reports whether a validation call is in flight.
func (d *Dispatcher) Pending() bool {
	return d.pending.Load()
}

// Submit validates payload with exactly one API call. It returns ErrBusy
// without calling the API when another attempt is still pending. The
// returned Attempt is always resolved; a rejected or errored ticket is
// not a Go error.
func (d *Dispatcher) Submit(ctx context.Context, payload string) (Attempt, error) {
	if !d.pending.CompareAndSwap(false, true) {
		return Attempt{}, ErrBusy
	}
	defer d.pending.Store(false)

	a := Attempt{
		ID:        uuid.New(),
		Payload:   payload,
		Status:    StatusPending,
		StartedAt: d.now(),
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.v.ValidateTicket(callCtx, payload)
	a.FinishedAt = d.now()

	switch {
	case err == nil && res == nil:
		a.Status = StatusErrored
		a.Err = fmt.Errorf("scanner.Submit: empty validation result")
	case err == nil:
		a.Status = StatusSuccess
		a.Result = res
	default:
		a.Status, a.Reason = Classify(err)
		if a.Status == StatusErrored {
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("scanner.Submit: validation timed out after %s: %w", d.timeout, err)
			}
			a.Err = err
		}
	}

	ev := log.Info().
		Str("attemptId", a.ID.String()).
		Str("status", a.Status.String()).
		Dur("took", a.Duration())
	if a.Reason != "" {
		ev = ev.Str("reason", string(a.Reason))
	}
	if a.Err != nil {
		ev = ev.Err(a.Err)
	}
	ev.Msg("ticket validation")

	return a, nil
}
