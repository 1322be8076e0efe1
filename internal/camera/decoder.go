// Package camera provides the code-reading devices behind a scan session:
// a V4L2 camera whose frames are decoded locally, and line-oriented
// hardware scanners on a serial port.
package camera

import (
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Decoder finds a QR code in a frame. It is not safe for concurrent use.
type Decoder struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

// NewDecoder returns a QR decoder tuned for camera frames.
func NewDecoder() *Decoder {
	return &Decoder{
		reader: qrcode.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode returns the text of the code in img. A frame without a readable
// code is not an error; ok is false.
func (d *Decoder) Decode(img image.Image) (text string, ok bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}
	res, err := d.reader.Decode(bmp, d.hints)
	if err != nil {
		return "", false
	}
	text = res.GetText()
	return text, text != ""
}
