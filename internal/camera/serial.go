package camera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ticketdawg/checkin/internal/scanner"
)

// Serial is a hardware code reader that types one payload per line, such
// as a USB scanner in CDC-ACM mode.
type Serial struct {
	Device string

	open func(name string) (io.ReadCloser, error)
}

func openDevice(name string) (io.ReadCloser, error) {
	return os.OpenFile(name, os.O_RDONLY, 0)
}

// Acquire opens the serial device.
func (s *Serial) Acquire(ctx context.Context) (scanner.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	open := s.open
	if open == nil {
		open = openDevice
	}
	rc, err := open(s.Device)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("camera.Acquire: %s: %w", s.Device, scanner.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("camera.Acquire: %w", err)
	}
	log.Debug().Str("device", s.Device).Msg("serial reader acquired")
	return &serialHandle{rc: rc, released: make(chan struct{})}, nil
}

type serialHandle struct {
	rc       io.ReadCloser
	released chan struct{}

	mu       sync.Mutex
	stopped  bool
	attached bool
	closed   sync.Once
}

func (h *serialHandle) Attach(_ context.Context, surfaceID string, onDecode scanner.DecodeFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return errHandleStopped
	}
	if h.attached {
		return fmt.Errorf("camera.Attach: already attached")
	}
	h.attached = true
	go h.read(onDecode)
	log.Debug().Str("surface", surfaceID).Msg("serial read loop started")
	return nil
}

func (h *serialHandle) read(onDecode scanner.DecodeFunc) {
	defer close(h.released)
	sc := bufio.NewScanner(h.rc)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		h.mu.Lock()
		stopped := h.stopped
		h.mu.Unlock()
		if stopped {
			return
		}
		onDecode(line)
	}
	h.mu.Lock()
	stopped := h.stopped
	h.mu.Unlock()
	if err := sc.Err(); err != nil && !stopped {
		log.Warn().Err(err).Msg("serial read failed")
	}
	h.close()
}

// Stop closes the device, which unblocks the read loop.
func (h *serialHandle) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	attached := h.attached
	h.mu.Unlock()

	err := h.close()
	if !attached {
		close(h.released)
	}
	return err
}

func (h *serialHandle) close() error {
	var err error
	h.closed.Do(func() {
		err = h.rc.Close()
	})
	return err
}

func (h *serialHandle) Clear() {
	_ = h.Stop()
}

func (h *serialHandle) Released() <-chan struct{} {
	return h.released
}
