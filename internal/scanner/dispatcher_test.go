package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketdawg/checkin/pkg/client"
	"github.com/ticketdawg/checkin/pkg/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus Status
		wantReason RejectReason
	}{
		{"nil", nil, StatusSuccess, ""},
		{"invalid code", &client.HTTPError{StatusCode: 400, Message: "Invalid QR code"}, StatusRejected, RejectNotATicket},
		{"unassigned", &client.HTTPError{StatusCode: 400, Message: "Ticket not assigned"}, StatusRejected, RejectUnassigned},
		{"already used", &client.HTTPError{StatusCode: 400, Message: "Ticket already used"}, StatusRejected, RejectAlreadyUsed},
		{"case insensitive", &client.HTTPError{StatusCode: 409, Message: "TICKET ALREADY USED"}, StatusRejected, RejectAlreadyUsed},
		{"wrapped", fmt.Errorf("client.ValidateTicket: %w", &client.HTTPError{StatusCode: 400, Message: "Invalid QR code"}), StatusRejected, RejectNotATicket},
		{"unknown reason", &client.HTTPError{StatusCode: 400, Message: "Event closed"}, StatusErrored, ""},
		{"server error", &client.HTTPError{StatusCode: 502, Message: "already used"}, StatusErrored, ""},
		{"timeout", context.DeadlineExceeded, StatusErrored, ""},
		{"transport", errors.New("connection refused"), StatusErrored, ""},
		{"empty body", client.ErrEmptyResponse, StatusErrored, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, reason := Classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestDispatcherSuccess(t *testing.T) {
	want := &domain.ValidationResult{TicketID: "42", Email: "a@b.com"}
	v := &fakeValidator{fn: func(_ context.Context, code string) (*domain.ValidationResult, error) {
		assert.Equal(t, "TICKET-42", code)
		return want, nil
	}}
	d := NewDispatcher(v, time.Second)

	a, err := d.Submit(context.Background(), "TICKET-42")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, a.Status)
	assert.Same(t, want, a.Result)
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.False(t, a.Retryable())
	assert.False(t, d.Pending())
}

func TestDispatcherNilResultIsErrored(t *testing.T) {
	v := &fakeValidator{fn: func(context.Context, string) (*domain.ValidationResult, error) {
		return nil, nil
	}}
	a, err := NewDispatcher(v, time.Second).Submit(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, StatusErrored, a.Status)
	assert.Error(t, a.Err)
	assert.True(t, a.Retryable())
}

func TestDispatcherTimeout(t *testing.T) {
	v := &fakeValidator{fn: func(ctx context.Context, _ string) (*domain.ValidationResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	d := NewDispatcher(v, 10*time.Millisecond)

	a, err := d.Submit(context.Background(), "TICKET-1")
	require.NoError(t, err)
	assert.Equal(t, StatusErrored, a.Status)
	assert.ErrorIs(t, a.Err, context.DeadlineExceeded)
	assert.Equal(t, 1, v.callCount(), "no internal retry")
	assert.False(t, d.Pending())
}

func TestDispatcherSingleFlight(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	v := &fakeValidator{fn: func(context.Context, string) (*domain.ValidationResult, error) {
		close(entered)
		<-unblock
		return &domain.ValidationResult{TicketID: "1"}, nil
	}}
	d := NewDispatcher(v, time.Second)

	first := make(chan Attempt, 1)
	go func() {
		a, err := d.Submit(context.Background(), "TICKET-1")
		assert.NoError(t, err)
		first <- a
	}()
	<-entered
	assert.True(t, d.Pending())

	var wg sync.WaitGroup
	busy := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Submit(context.Background(), "TICKET-1")
			busy <- err
		}()
	}
	wg.Wait()
	close(busy)
	for err := range busy {
		assert.ErrorIs(t, err, ErrBusy)
	}

	close(unblock)
	a := <-first
	assert.Equal(t, StatusSuccess, a.Status)
	assert.Equal(t, 1, v.callCount())
	assert.False(t, d.Pending())
}

func TestDispatcherRejectedNotRetried(t *testing.T) {
	v := &fakeValidator{fn: func(context.Context, string) (*domain.ValidationResult, error) {
		return nil, fmt.Errorf("client.ValidateTicket: %w", &client.HTTPError{StatusCode: http.StatusBadRequest, Message: "Ticket already used"})
	}}
	a, err := NewDispatcher(v, time.Second).Submit(context.Background(), "TICKET-7")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, a.Status)
	assert.Equal(t, RejectAlreadyUsed, a.Reason)
	assert.NoError(t, a.Err)
	assert.False(t, a.Retryable())
	assert.Equal(t, 1, v.callCount())
}

func TestPresent(t *testing.T) {
	tests := []struct {
		name      string
		attempt   Attempt
		wantTone  Tone
		wantTitle string
	}{
		{"success", Attempt{Status: StatusSuccess, Result: &domain.ValidationResult{TicketID: "42", Email: "a@b.com"}}, ToneSuccess, "Ticket Validated"},
		{"unassigned", Attempt{Status: StatusRejected, Reason: RejectUnassigned}, ToneWarning, "Unassigned Ticket"},
		{"used", Attempt{Status: StatusRejected, Reason: RejectAlreadyUsed}, ToneError, "Already Used"},
		{"invalid", Attempt{Status: StatusRejected, Reason: RejectNotATicket}, ToneError, "Invalid Ticket"},
		{"errored", Attempt{Status: StatusErrored}, ToneError, "Validation Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Present(tt.attempt)
			assert.Equal(t, tt.wantTone, n.Tone)
			assert.Equal(t, tt.wantTitle, n.Title)
			assert.NotEmpty(t, n.Message)
		})
	}

	n := Present(Attempt{Status: StatusSuccess, Result: &domain.ValidationResult{TicketID: "42", Email: "a@b.com"}})
	assert.Contains(t, n.Message, "42")
	assert.Contains(t, n.Message, "a@b.com")
}

func TestStartErrorMessage(t *testing.T) {
	assert.Empty(t, StartErrorMessage(nil))
	assert.Contains(t, StartErrorMessage(fmt.Errorf("open: %w", ErrPermissionDenied)), "permission denied")
	assert.Contains(t, StartErrorMessage(ErrSurfaceUnavailable), "Viewfinder")
	assert.Contains(t, StartErrorMessage(errors.New("no such device")), "no such device")
}
