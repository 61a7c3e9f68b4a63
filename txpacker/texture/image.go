package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/noxpeteam/TXPacker/txpacker/optimize"
)

var ErrDecode = errors.New("texture: cannot decode image")

// ToNRGBA returns img as non-premultiplied RGBA, converting only when needed.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Bounds(), img, b.Min, draw.Src)
	return n
}

// ProcessPNG decodes a PNG, optimizes its pixels and encodes the result.
func ProcessPNG(opt *optimize.Optimizer, src []byte) ([]byte, error) {
	return processPNG(opt, src, MemoryProfile{})
}

func processPNG(opt *optimize.Optimizer, src []byte, p MemoryProfile) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	n := ToNRGBA(img)
	optimizeInPlace(opt, n.Pix, p)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
