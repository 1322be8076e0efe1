package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketdawg/checkin/internal/scanner"
)

func qrImage(t *testing.T, text string) image.Image {
	t.Helper()
	m, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, 240, 240, nil)
	require.NoError(t, err)
	return m
}

func blankImage() image.Image {
	img := image.NewGray(image.Rect(0, 0, 120, 120))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func TestDecoderRoundTrip(t *testing.T) {
	d := NewDecoder()
	text, ok := d.Decode(qrImage(t, "TICKET-42"))
	require.True(t, ok)
	assert.Equal(t, "TICKET-42", text)

	_, ok = d.Decode(blankImage())
	assert.False(t, ok)
}

// sequenceGrabber serves blank frames until a QR frame is due.
type sequenceGrabber struct {
	blanks int32
	code   image.Image
	calls  atomic.Int32
}

func (g *sequenceGrabber) Grab(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := g.calls.Add(1)
	if n == 1 {
		return nil, errors.New("frame dropped")
	}
	if n <= g.blanks+1 {
		return blankImage(), nil
	}
	return g.code, nil
}

func tempDevice(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video0")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return path
}

func TestCameraDecodeLoop(t *testing.T) {
	g := &sequenceGrabber{blanks: 2, code: qrImage(t, "TICKET-7")}
	cam := &Camera{Device: tempDevice(t), FPS: 200, Grabber: g}

	h, err := cam.Acquire(context.Background())
	require.NoError(t, err)

	got := make(chan string, 1)
	require.NoError(t, h.Attach(context.Background(), scanner.DefaultSurfaceID, func(p string) {
		select {
		case got <- p:
		default:
		}
	}))

	select {
	case p := <-got:
		assert.Equal(t, "TICKET-7", p)
	case <-time.After(2 * time.Second):
		t.Fatal("no payload decoded")
	}
	assert.GreaterOrEqual(t, g.calls.Load(), int32(4))

	require.NoError(t, h.Stop())
	require.NoError(t, h.Stop())
	h.Clear()

	rn, ok := h.(scanner.ReleaseNotifier)
	require.True(t, ok)
	select {
	case <-rn.Released():
	case <-time.After(time.Second):
		t.Fatal("camera not released")
	}
	assert.ErrorIs(t, h.Attach(context.Background(), scanner.DefaultSurfaceID, func(string) {}), errHandleStopped)
}

func TestCameraStopWithoutAttach(t *testing.T) {
	cam := &Camera{Device: tempDevice(t), Grabber: &sequenceGrabber{}}
	h, err := cam.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.Stop())

	select {
	case <-h.(scanner.ReleaseNotifier).Released():
	case <-time.After(time.Second):
		t.Fatal("camera not released")
	}
}

func TestCameraAcquireErrors(t *testing.T) {
	cam := &Camera{Device: filepath.Join(t.TempDir(), "missing")}
	_, err := cam.Acquire(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, scanner.ErrPermissionDenied)

	if os.Geteuid() == 0 {
		t.Skip("root ignores device permissions")
	}
	path := filepath.Join(t.TempDir(), "video0")
	require.NoError(t, os.WriteFile(path, nil, 0o000))
	_, err = (&Camera{Device: path}).Acquire(context.Background())
	assert.ErrorIs(t, err, scanner.ErrPermissionDenied)
}

func TestCommandGrabber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, toGray(qrImage(t, "TICKET-9"))))
	require.NoError(t, f.Close())

	img, err := CommandGrabber{Command: []string{"cat", path}}.Grab(context.Background())
	require.NoError(t, err)
	text, ok := NewDecoder().Decode(img)
	require.True(t, ok)
	assert.Equal(t, "TICKET-9", text)

	_, err = CommandGrabber{Command: []string{"sh", "-c", "echo no camera >&2; exit 1"}}.Grab(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no camera")

	_, err = CommandGrabber{}.Grab(context.Background())
	assert.Error(t, err)
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return dst
}

type pipeOpener struct {
	r *os.File
}

func (p pipeOpener) open(string) (io.ReadCloser, error) { return p.r, nil }

func TestSerialReadsLines(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()

	s := &Serial{Device: "/dev/ttyACM0", open: pipeOpener{r}.open}
	h, err := s.Acquire(context.Background())
	require.NoError(t, err)

	got := make(chan string, 4)
	require.NoError(t, h.Attach(context.Background(), scanner.DefaultSurfaceID, func(p string) { got <- p }))

	_, err = w.Write([]byte("\n  \nTICKET-42\r\n"))
	require.NoError(t, err)
	select {
	case p := <-got:
		assert.Equal(t, "TICKET-42", p)
	case <-time.After(time.Second):
		t.Fatal("no line read")
	}

	require.NoError(t, h.Stop())
	select {
	case <-h.(scanner.ReleaseNotifier).Released():
	case <-time.After(time.Second):
		t.Fatal("serial reader not released")
	}
	assert.NoError(t, h.Stop())
	assert.Len(t, got, 0)
}

func TestSerialAcquirePermission(t *testing.T) {
	s := &Serial{Device: "/dev/ttyACM0", open: func(string) (io.ReadCloser, error) {
		return nil, &os.PathError{Op: "open", Path: "/dev/ttyACM0", Err: os.ErrPermission}
	}}
	_, err := s.Acquire(context.Background())
	assert.ErrorIs(t, err, scanner.ErrPermissionDenied)
}

func TestSerialWithController(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()

	got := make(chan string, 2)
	c := scanner.NewController(&Serial{open: pipeOpener{r}.open}, alwaysMounted{}, scanner.ControllerOptions{
		OnDecode: func(p string) { got <- p },
	})
	require.NoError(t, c.Start(context.Background()))
	_, err = w.Write([]byte("TICKET-1\nTICKET-2\n"))
	require.NoError(t, err)

	select {
	case p := <-got:
		assert.Equal(t, "TICKET-1", p)
	case <-time.After(2 * time.Second):
		t.Fatal("no payload")
	}
	assert.Equal(t, scanner.StateIdle, c.State())
	select {
	case p := <-got:
		t.Fatalf("unexpected second payload %q", p)
	case <-time.After(20 * time.Millisecond):
	}
}

type alwaysMounted struct{}

func (alwaysMounted) Ready(string) bool { return true }
