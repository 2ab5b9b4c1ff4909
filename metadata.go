package photoproof

import (
	"bytes"
	"strings"
	"time"

	"github.com/bep/imagemeta"
)

// CaptureMetadata holds the EXIF capture fields recorded alongside a
// submission. Neither field is required for validation; they only enrich
// stored records.
type CaptureMetadata struct {
	TakenAt time.Time // DateTimeOriginal
	Camera  string    // Model
}

// exifTimeLayout is the timestamp format EXIF writers use.
const exifTimeLayout = "2006:01:02 15:04:05"

// wantedCaptureTags limits decoding to the two EXIF tags we keep.
var wantedCaptureTags = map[string]bool{
	"DateTimeOriginal": true,
	"Model":            true,
}

// ExtractCaptureMetadata parses EXIF capture fields from raw image bytes.
// Returns nil if the data is empty, cannot be parsed, or carries neither
// wanted tag. Graceful degradation: never returns an error.
func ExtractCaptureMetadata(data []byte) *CaptureMetadata {
	if len(data) == 0 {
		return nil
	}

	meta := &CaptureMetadata{}
	found := false

	err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return wantedCaptureTags[ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			switch ti.Tag {
			case "DateTimeOriginal":
				if t, ok := captureTime(ti.Value); ok {
					meta.TakenAt = t
					found = true
				}
			case "Model":
				if s, ok := ti.Value.(string); ok {
					if s = strings.TrimSpace(s); s != "" {
						meta.Camera = s
						found = true
					}
				}
			}
			return nil
		},
	})

	if err != nil || !found {
		return nil
	}
	return meta
}

// captureTime extracts a timestamp from a tag value. Decoders hand
// DateTimeOriginal back either as time.Time or as the raw EXIF string.
func captureTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case string:
		t, err := time.Parse(exifTimeLayout, strings.TrimSpace(val))
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}
