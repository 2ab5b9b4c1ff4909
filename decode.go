package photoproof

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// PixelBuffer is a decoded image as a row-major grid of 8-bit RGBA samples
// (4 bytes per pixel). Buffers are created per validation call and discarded
// after feature extraction; the extraction that created one owns it.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// DecodeError reports a failure to turn bytes or a URL into a PixelBuffer.
type DecodeError struct {
	Op  string // "decode", "resize", or "fetch"
	Err error
}

func (e *DecodeError) Error() string {
	return "photoproof: " + e.Op + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeBytes decodes raw image bytes (JPEG, PNG, GIF, or WebP) and resizes
// them to w×h. Resampling is Lanczos, so a given input always produces the
// same buffer. No caching happens at this layer.
func DecodeBytes(data []byte, w, h int) (*PixelBuffer, error) {
	if w <= 0 || h <= 0 {
		return nil, &DecodeError{Op: "resize", Err: fmt.Errorf("degenerate target dimensions %dx%d", w, h)}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Op: "decode", Err: err}
	}

	// imaging.Resize returns an NRGBA image anchored at (0,0) with stride
	// 4*w, so Pix already has the PixelBuffer layout.
	resized := imaging.Resize(img, w, h, imaging.Lanczos)

	return &PixelBuffer{Width: w, Height: h, Pix: resized.Pix}, nil
}

// DecodeURL fetches the image at url and decodes it to w×h.
// Network and HTTP failures surface as *DecodeError, not as a degraded
// result: a reference image the engine cannot read is fatal to the
// submission being validated.
func (cfg *Config) DecodeURL(ctx context.Context, url string, w, h int) (*PixelBuffer, error) {
	res, err := cfg.Download(ctx, url, DownloadOpts{})
	if err != nil {
		return nil, &DecodeError{Op: "fetch", Err: err}
	}
	return DecodeBytes(res.Data, w, h)
}
