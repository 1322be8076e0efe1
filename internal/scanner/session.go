package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const eventBuffer = 32

// EventKind identifies a session event.
type EventKind int

const (
	EventState EventKind = iota
	EventValidating
	EventOutcome
	EventError
)

// Event is delivered to the front-end on Session.Events.
type Event struct {
	Kind    EventKind
	State   State
	Attempt Attempt
	Err     error
}

// Sink receives every resolved attempt, e.g. an outcome feed.
type Sink interface {
	Publish(ctx context.Context, a Attempt) error
}

// SessionConfig wires a Session.
type SessionConfig struct {
	Device          Device
	Surfaces        Surfaces
	Validator       Validator
	Controller      ControllerOptions
	ValidateTimeout time.Duration
	Sinks           []Sink
}

// Counters tally what a session has seen since it was created.
type Counters struct {
	Scanned  int `json:"scanned"`
	Success  int `json:"success"`
	Rejected int `json:"rejected"`
	Errored  int `json:"errored"`
	Busy     int `json:"busy"`
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	State      State
	Validating bool
	Last       *Attempt
	Counters   Counters
	LastError  error
}

// Session ties the camera controller to the validation dispatcher: each
// decoded payload is validated once, recorded as the last outcome and
// fanned out to the configured sinks. Scanning does not resume on its own.
type Session struct {
	ctrl   *Controller
	disp   *Dispatcher
	sinks  []Sink
	events chan Event

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	last     *Attempt
	counters Counters

	// queue holds events not yet taken by the front-end. State changes are
	// always queued; other events are dropped once eventBuffer are waiting.
	qmu   sync.Mutex
	queue []Event
	wake  chan struct{}
}

// NewSession builds a session around cfg.Device.
func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		sinks:  cfg.Sinks,
		events: make(chan Event),
		wake:   make(chan struct{}, 1),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.deliver()

	opts := cfg.Controller
	onState := opts.OnStateChange
	opts.OnStateChange = func(st State) {
		if onState != nil {
			onState(st)
		}
		s.emit(Event{Kind: EventState, State: st})
	}
	opts.OnDecode = s.handleDecode

	s.ctrl = NewController(cfg.Device, cfg.Surfaces, opts)
	s.disp = NewDispatcher(cfg.Validator, cfg.ValidateTimeout)
	return s
}

// Events returns the channel of session events. It is never closed.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the controller state.
func (s *Session) State() State {
	return s.ctrl.State()
}

// Start begins a scan session. See Controller.Start.
func (s *Session) Start(ctx context.Context) error {
	err := s.ctrl.Start(ctx)
	if err != nil && !errors.Is(err, ErrStopped) && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("scan session did not start")
	}
	return err
}

// Stop ends the current scan session, if any.
func (s *Session) Stop(ctx context.Context) error {
	return s.ctrl.Stop(ctx)
}

// Reset clears the last outcome. An active session is stopped and fully
// released before a new one is started.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()

	if !s.ctrl.State().Active() {
		return nil
	}
	if err := s.ctrl.Stop(ctx); err != nil {
		return err
	}
	return s.Start(ctx)
}

// Close stops scanning and cancels any validation still in flight.
func (s *Session) Close(ctx context.Context) error {
	err := s.ctrl.Stop(ctx)
	s.cancel()
	return err
}

// LastAttempt returns the most recent resolved attempt.
func (s *Session) LastAttempt() (Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Attempt{}, false
	}
	return *s.last, true
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{Counters: s.counters}
	if s.last != nil {
		last := *s.last
		snap.Last = &last
	}
	s.mu.Unlock()

	snap.State = s.ctrl.State()
	snap.LastError = s.ctrl.LastError()
	snap.Validating = s.disp.Pending()
	return snap
}

func (s *Session) handleDecode(payload string) {
	s.mu.Lock()
	s.counters.Scanned++
	s.mu.Unlock()
	s.emit(Event{Kind: EventValidating})

	a, err := s.disp.Submit(s.ctx, payload)
	if err != nil {
		s.mu.Lock()
		s.counters.Busy++
		s.mu.Unlock()
		log.Warn().Err(err).Msg("decoded payload dropped")
		s.emit(Event{Kind: EventError, Err: err})
		return
	}

	s.mu.Lock()
	s.last = &a
	switch a.Status {
	case StatusSuccess:
		s.counters.Success++
	case StatusRejected:
		s.counters.Rejected++
	default:
		s.counters.Errored++
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventOutcome, Attempt: a})

	for _, sink := range s.sinks {
		if err := sink.Publish(s.ctx, a); err != nil {
			log.Warn().Err(err).Str("attemptId", a.ID.String()).Msg("failed to publish outcome")
		}
	}
}

func (s *Session) emit(ev Event) {
	s.qmu.Lock()
	if len(s.queue) >= eventBuffer {
		if ev.Kind != EventState {
			s.qmu.Unlock()
			log.Warn().Int("kind", int(ev.Kind)).Msg("session event buffer full, dropping event")
			return
		}
		// Only the newest of several undelivered state changes matters.
		if n := len(s.queue); s.queue[n-1].Kind == EventState {
			s.queue[n-1] = ev
			s.qmu.Unlock()
			return
		}
	}
	s.queue = append(s.queue, ev)
	s.qmu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// deliver moves queued events onto the events channel in order until the
// session is closed.
func (s *Session) deliver() {
	for {
		select {
		case <-s.wake:
		case <-s.ctx.Done():
			return
		}
		for {
			s.qmu.Lock()
			if len(s.queue) == 0 {
				s.qmu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.qmu.Unlock()

			select {
			case s.events <- ev:
			case <-s.ctx.Done():
				return
			}
		}
	}
}
