package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ticketdawg/checkin/internal/scanner"
)

// DefaultFPS is how often the decode loop grabs a frame.
const DefaultFPS = 10

var errHandleStopped = errors.New("device handle stopped")

// Grabber captures a single frame.
type Grabber interface {
	Grab(ctx context.Context) (image.Image, error)
}

// CommandGrabber runs an external capture command that writes one PNG or
// JPEG frame to stdout.
type CommandGrabber struct {
	Command []string
}

// DefaultCaptureCommand grabs one PNG frame from a V4L2 device with ffmpeg.
func DefaultCaptureCommand(device string) []string {
	return []string{
		"ffmpeg", "-hide_banner", "-loglevel", "error",
		"-f", "v4l2", "-i", device,
		"-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-",
	}
}

func (g CommandGrabber) Grab(ctx context.Context) (image.Image, error) {
	if len(g.Command) == 0 {
		return nil, errors.New("camera.Grab: no capture command")
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.Command[0], g.Command[1:]...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("camera.Grab: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("camera.Grab: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("camera.Grab: decode frame: %w", err)
	}
	return img, nil
}

// Camera is a V4L2 camera. The device node is held open for as long as a
// session owns it.
type Camera struct {
	Device  string
	FPS     int
	Grabber Grabber
}

// Acquire opens the device node. An access error is reported as
// scanner.ErrPermissionDenied.
func (c *Camera) Acquire(ctx context.Context) (scanner.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(c.Device, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("camera.Acquire: %s: %w", c.Device, scanner.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("camera.Acquire: %w", err)
	}

	fps := c.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	grab := c.Grabber
	if grab == nil {
		grab = CommandGrabber{Command: DefaultCaptureCommand(c.Device)}
	}
	log.Debug().Str("device", c.Device).Int("fps", fps).Msg("camera acquired")
	return &cameraHandle{
		file:     f,
		grab:     grab,
		interval: time.Second / time.Duration(fps),
		released: make(chan struct{}),
	}, nil
}

type cameraHandle struct {
	file     *os.File
	grab     Grabber
	interval time.Duration
	released chan struct{}

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func (h *cameraHandle) Attach(_ context.Context, surfaceID string, onDecode scanner.DecodeFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return errHandleStopped
	}
	if h.cancel != nil {
		return fmt.Errorf("camera.Attach: already attached")
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.loop(ctx, onDecode, h.done)
	log.Debug().Str("surface", surfaceID).Dur("interval", h.interval).Msg("camera decode loop started")
	return nil
}

func (h *cameraHandle) loop(ctx context.Context, onDecode scanner.DecodeFunc, done chan struct{}) {
	defer close(done)
	dec := NewDecoder()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		img, err := h.grab.Grab(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Debug().Err(err).Msg("camera frame grab failed")
			continue
		}
		if text, ok := dec.Decode(img); ok {
			onDecode(text)
		}
	}
}

// Stop ends the decode loop. The device node is closed once the loop has
// exited, which Released reports.
func (h *cameraHandle) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	cancel, done := h.cancel, h.done
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	go func() {
		if done != nil {
			<-done
		}
		if err := h.file.Close(); err != nil {
			log.Warn().Err(err).Msg("camera close failed")
		}
		close(h.released)
	}()
	return nil
}

func (h *cameraHandle) Clear() {
	_ = h.Stop()
}

func (h *cameraHandle) Released() <-chan struct{} {
	return h.released
}
