package photoproof

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// solidPNG encodes a w×h PNG filled with one color.
func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return encodePNG(t, img)
}

// rampPNG encodes a w×h PNG whose brightness ramps across columns:
// ascending from black to white left to right, or the reverse.
func rampPNG(t *testing.T, w, h int, ascending bool) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			if !ascending {
				v = 255 - v
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return encodePNG(t, img)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding PNG: %v", err)
	}
	return buf.Bytes()
}

// solidBuffer builds a PixelBuffer filled with one color, bypassing decode.
func solidBuffer(w, h int, r, g, b uint8) *PixelBuffer {
	pb := &PixelBuffer{Width: w, Height: h, Pix: make([]uint8, w*h*4)}
	for i := 0; i < len(pb.Pix); i += 4 {
		pb.Pix[i] = r
		pb.Pix[i+1] = g
		pb.Pix[i+2] = b
		pb.Pix[i+3] = 255
	}
	return pb
}

// rampBuffer builds a PixelBuffer whose brightness ramps across columns.
func rampBuffer(w, h int, ascending bool) *PixelBuffer {
	pb := &PixelBuffer{Width: w, Height: h, Pix: make([]uint8, w*h*4)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			if !ascending {
				v = 255 - v
			}
			i := (y*w + x) * 4
			pb.Pix[i] = v
			pb.Pix[i+1] = v
			pb.Pix[i+2] = v
			pb.Pix[i+3] = 255
		}
	}
	return pb
}
