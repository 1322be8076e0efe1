package scanner

import (
	"context"
	"sync"

	"github.com/ticketdawg/checkin/pkg/domain"
)

// fakeDevice counts acquisitions and releases and tracks how many handles
// are held at once.
type fakeDevice struct {
	mu        sync.Mutex
	deny      bool
	attachErr error
	gate      chan struct{} // when set, Acquire waits for it and ignores ctx
	entered   chan struct{} // signalled when Acquire is called

	acquired  int
	released  int
	held      int
	maxHeld   int
	handles   []*fakeHandle
	lastGrant *fakeHandle
}

func (d *fakeDevice) Acquire(ctx context.Context) (Handle, error) {
	if d.entered != nil {
		select {
		case d.entered <- struct{}{}:
		default:
		}
	}
	if d.gate != nil {
		<-d.gate
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deny {
		return nil, ErrPermissionDenied
	}
	d.acquired++
	d.held++
	if d.held > d.maxHeld {
		d.maxHeld = d.held
	}
	h := &fakeHandle{dev: d, attachErr: d.attachErr}
	d.handles = append(d.handles, h)
	d.lastGrant = h
	return h, nil
}

func (d *fakeDevice) counts() (acquired, released, held, maxHeld int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquired, d.released, d.held, d.maxHeld
}

func (d *fakeDevice) latest() *fakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastGrant
}

type fakeHandle struct {
	dev       *fakeDevice
	attachErr error

	mu       sync.Mutex
	onDecode DecodeFunc
	stops    int
	clears   int
}

func (h *fakeHandle) Attach(_ context.Context, _ string, onDecode DecodeFunc) error {
	if h.attachErr != nil {
		return h.attachErr
	}
	h.mu.Lock()
	h.onDecode = onDecode
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) Stop() error {
	h.mu.Lock()
	h.stops++
	first := h.stops == 1
	h.onDecode = nil
	h.mu.Unlock()
	if first {
		h.dev.mu.Lock()
		h.dev.released++
		h.dev.held--
		h.dev.mu.Unlock()
	}
	return nil
}

func (h *fakeHandle) Clear() {
	h.mu.Lock()
	h.clears++
	h.mu.Unlock()
}

// frame simulates the decode loop reporting payload. It returns false when
// no loop is attached.
func (h *fakeHandle) frame(payload string) bool {
	h.mu.Lock()
	fn := h.onDecode
	h.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(payload)
	return true
}

func (h *fakeHandle) stopCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stops
}

type alwaysReady struct{}

func (alwaysReady) Ready(string) bool { return true }

// fakeValidator answers from fn and counts calls.
type fakeValidator struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, qrCode string) (*domain.ValidationResult, error)
}

func (v *fakeValidator) ValidateTicket(ctx context.Context, qrCode string) (*domain.ValidationResult, error) {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	return v.fn(ctx, qrCode)
}

func (v *fakeValidator) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// recordingSink keeps every published attempt.
type recordingSink struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (s *recordingSink) Publish(_ context.Context, a Attempt) error {
	s.mu.Lock()
	s.attempts = append(s.attempts, a)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) published() []Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Attempt(nil), s.attempts...)
}
