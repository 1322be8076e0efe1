package scanner

import (
	"context"
	"sync"
)

// DecodeFunc receives one decoded payload from a decode loop.
type DecodeFunc func(payload string)

// Device requests access to a code-reading camera.
type Device interface {
	// Acquire blocks until access is granted or refused. A refusal must
	// return an error that wraps ErrPermissionDenied. The Handle is nil
	// whenever the error is not.
	Acquire(ctx context.Context) (Handle, error)
}

// Handle is an acquired device.
//
// Attach starts a decode loop bound to the surface with the given id and
// returns once the loop is running. The loop delivers decoded payloads to
// onDecode one at a time from a single goroutine; frames without a code are
// not reported. Stop and Clear must be safe to call more than once and while
// Attach is in progress.
type Handle interface {
	Attach(ctx context.Context, surfaceID string, onDecode DecodeFunc) error
	Stop() error
	Clear()
}

// ReleaseNotifier is implemented by handles that can tell when the
// underlying device has really been let go of.
type ReleaseNotifier interface {
	Released() <-chan struct{}
}

// Surfaces reports whether a rendering surface is mounted.
type Surfaces interface {
	Ready(id string) bool
}

// SurfaceRegistry is a concurrency-safe set of mounted surface ids.
type SurfaceRegistry struct {
	mu      sync.RWMutex
	mounted map[string]bool
}

// NewSurfaceRegistry returns an empty registry.
func NewSurfaceRegistry() *SurfaceRegistry {
	return &SurfaceRegistry{mounted: make(map[string]bool)}
}

// Mount marks the surface as present.
func (r *SurfaceRegistry) Mount(id string) {
	r.mu.Lock()
	r.mounted[id] = true
	r.mu.Unlock()
}

// Unmount removes the surface.
func (r *SurfaceRegistry) Unmount(id string) {
	r.mu.Lock()
	delete(r.mounted, id)
	r.mu.Unlock()
}

// Ready implements Surfaces.
func (r *SurfaceRegistry) Ready(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mounted[id]
}
