package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSurfaceID is the id of the viewfinder surface the decode loop attaches to.
const DefaultSurfaceID = "qr-reader"

// Controller defaults.
const (
	DefaultAttachAttempts = 20
	DefaultAttachDelay    = 100 * time.Millisecond
	DefaultReleaseTimeout = 2 * time.Second
)

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	SurfaceID      string
	AttachAttempts int
	AttachDelay    time.Duration

	// ReleaseGrace is how long to wait after stopping a handle that cannot
	// report its own release. ReleaseTimeout bounds the wait on handles that can.
	ReleaseGrace   time.Duration
	ReleaseTimeout time.Duration

	// OnStateChange is called with the controller lock held; it must not
	// call back into the Controller.
	OnStateChange func(State)

	// OnDecode receives the single payload of a session after the device
	// has been released.
	OnDecode func(payload string)
}

func (o ControllerOptions) withDefaults() ControllerOptions {
	if o.SurfaceID == "" {
		o.SurfaceID = DefaultSurfaceID
	}
	if o.AttachAttempts <= 0 {
		o.AttachAttempts = DefaultAttachAttempts
	}
	if o.AttachDelay <= 0 {
		o.AttachDelay = DefaultAttachDelay
	}
	if o.ReleaseTimeout <= 0 {
		o.ReleaseTimeout = DefaultReleaseTimeout
	}
	if o.ReleaseGrace < 0 {
		o.ReleaseGrace = 0
	}
	return o
}

// Controller owns the camera for one scan session at a time.
//
// Every transition goes through the controller lock and bumps epoch when a
// session ends, so work started for an older session (a late permission
// grant, an attach retry, a frame callback) can tell it has been superseded.
type Controller struct {
	device   Device
	surfaces Surfaces
	opts     ControllerOptions

	mu      sync.Mutex
	state   State
	epoch   uint64
	handle  *ownedHandle
	lastErr error
	abort   context.CancelFunc

	// decodedEpoch is the last session ended by a decoded payload.
	decodedEpoch uint64

	// settling is non-nil while a release or an abandoned acquisition is
	// still in flight, and is closed when it finishes.
	settling chan struct{}
}

// NewController returns an idle controller.
func NewController(device Device, surfaces Surfaces, opts ControllerOptions) *Controller {
	return &Controller{
		device:   device,
		surfaces: surfaces,
		opts:     opts.withDefaults(),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error that ended the most recent start attempt, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Start acquires the device and attaches the decode loop. It returns once
// the controller is scanning (or has already decoded a payload), or with
// ErrPermissionDenied, ErrSurfaceUnavailable, ErrStopped, ErrActive or a
// context error.
// The controller stops itself after the first decoded payload.
func (c *Controller) Start(ctx context.Context) error {
	ctx, cancel, epoch, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	h, err := c.device.Acquire(ctx)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.settleAbandoned(h)
		return ErrStopped
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrPermissionDenied):
			c.lastErr = err
		case ctx.Err() != nil:
			err = ctx.Err()
		default:
			err = fmt.Errorf("scanner.Start: acquire device: %w", err)
			c.lastErr = err
		}
		c.setStateLocked(StateIdle)
		c.mu.Unlock()
		log.Warn().Err(err).Msg("scanner start failed")
		return err
	}
	owned := &ownedHandle{h: h}
	c.handle = owned
	c.setStateLocked(StateStarting)
	c.mu.Unlock()

	err = c.attach(ctx, epoch, owned)

	c.mu.Lock()
	if c.epoch != epoch {
		decoded := c.decodedEpoch == epoch
		c.mu.Unlock()
		if decoded {
			return nil
		}
		return ErrStopped
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if ctx.Err() == nil {
			c.lastErr = err
		}
		done := c.beginStopLocked()
		c.mu.Unlock()
		c.finishStop(owned, done)
		log.Warn().Err(err).Msg("scanner start failed")
		return err
	}
	c.setStateLocked(StateScanning)
	c.mu.Unlock()
	return nil
}

// begin waits for any previous session to finish releasing, then moves to
// RequestingPermission under a fresh epoch.
func (c *Controller) begin(ctx context.Context) (context.Context, context.CancelFunc, uint64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, 0, err
		}
		c.mu.Lock()
		if wait := c.settling; wait != nil {
			c.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, nil, 0, ctx.Err()
			}
		}
		if c.state != StateIdle {
			c.mu.Unlock()
			return nil, nil, 0, ErrActive
		}
		sessCtx, cancel := context.WithCancel(ctx)
		c.epoch++
		c.abort = cancel
		c.lastErr = nil
		c.setStateLocked(StateRequestingPermission)
		epoch := c.epoch
		c.mu.Unlock()
		return sessCtx, cancel, epoch, nil
	}
}

func (c *Controller) attach(ctx context.Context, epoch uint64, h *ownedHandle) error {
	id := c.opts.SurfaceID
	var cause error
	for attempt := 1; attempt <= c.opts.AttachAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 1 {
			timer := time.NewTimer(c.opts.AttachDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if !c.surfaces.Ready(id) {
			cause = fmt.Errorf("surface %q not mounted", id)
			continue
		}
		if err := h.h.Attach(ctx, id, c.decoded(epoch)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cause = err
			log.Debug().Err(err).Int("attempt", attempt).Msg("scanner attach failed")
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v after %d attempts", ErrSurfaceUnavailable, cause, c.opts.AttachAttempts)
}

// decoded returns the decode callback for one session. The first payload
// seen while the handle is attached moves the controller to Stopping; that
// includes a frame delivered before Attach has returned. Anything after that
// or from an older session is dropped.
func (c *Controller) decoded(epoch uint64) DecodeFunc {
	return func(payload string) {
		c.mu.Lock()
		if c.epoch != epoch || c.handle == nil || (c.state != StateScanning && c.state != StateStarting) {
			c.mu.Unlock()
			return
		}
		h := c.handle
		c.decodedEpoch = epoch
		done := c.beginStopLocked()
		c.mu.Unlock()

		// Released off the decode goroutine: Handle.Stop may wait for it.
		go func() {
			c.finishStop(h, done)
			log.Debug().Int("len", len(payload)).Msg("scanner decoded payload")
			if c.opts.OnDecode != nil {
				c.opts.OnDecode(payload)
			}
		}()
	}
}

// Stop ends the current session. It is a no-op when idle, waits for an
// in-flight release when stopping, and otherwise returns after the device
// has been released. A stop during the permission request cancels it and
// returns immediately without waiting for a late grant: a handle granted
// afterwards is released on arrival, and the next Start waits for that
// release before acquiring again.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.mu.Unlock()
		return nil
	case StateRequestingPermission:
		c.epoch++
		c.cancelLocked()
		c.settling = make(chan struct{})
		c.setStateLocked(StateIdle)
		c.mu.Unlock()
		return nil
	case StateStopping:
		done := c.settling
		c.mu.Unlock()
		if done == nil {
			return nil
		}
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h := c.handle
	done := c.beginStopLocked()
	c.mu.Unlock()
	c.finishStop(h, done)
	return nil
}

func (c *Controller) beginStopLocked() chan struct{} {
	c.epoch++
	c.cancelLocked()
	c.handle = nil
	done := make(chan struct{})
	c.settling = done
	c.setStateLocked(StateStopping)
	return done
}

func (c *Controller) finishStop(h *ownedHandle, done chan struct{}) {
	if h != nil {
		h.release(c.opts)
	}
	c.mu.Lock()
	c.setStateLocked(StateIdle)
	if c.settling == done {
		c.settling = nil
	}
	c.mu.Unlock()
	close(done)
}

// settleAbandoned releases a handle granted to a start that was stopped
// while the permission request was outstanding.
func (c *Controller) settleAbandoned(h Handle) {
	if h != nil {
		log.Debug().Msg("scanner releasing handle granted after stop")
		(&ownedHandle{h: h}).release(c.opts)
	}
	c.mu.Lock()
	if c.settling != nil {
		close(c.settling)
		c.settling = nil
	}
	c.mu.Unlock()
}

func (c *Controller) cancelLocked() {
	if c.abort != nil {
		c.abort()
		c.abort = nil
	}
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	log.Debug().Str("from", c.state.String()).Str("to", s.String()).Msg("scanner state")
	c.state = s
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}

// ownedHandle releases its handle exactly once.
type ownedHandle struct {
	h    Handle
	once sync.Once
}

func (o *ownedHandle) release(opts ControllerOptions) {
	o.once.Do(func() {
		if err := o.h.Stop(); err != nil {
			log.Warn().Err(err).Msg("scanner device stop failed")
		}
		o.h.Clear()

		if n, ok := o.h.(ReleaseNotifier); ok {
			timer := time.NewTimer(opts.ReleaseTimeout)
			defer timer.Stop()
			select {
			case <-n.Released():
			case <-timer.C:
				log.Warn().Dur("timeout", opts.ReleaseTimeout).Msg("scanner device did not confirm release")
			}
			return
		}
		if opts.ReleaseGrace > 0 {
			time.Sleep(opts.ReleaseGrace)
		}
	})
}
