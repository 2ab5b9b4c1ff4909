package photoproof

import "math"

const (
	histogramChannels = 3 // R, G, B
	histogramBuckets  = 4 // buckets of width 64
	histogramShift    = 6 // bucket = value >> histogramShift
)

// Histogram is a normalized color distribution: for each of R, G, B, four
// bucket frequencies summing to 1.0, concatenated into a length-12 vector.
// Captures coarse color distribution, robust to framing and crop
// differences, insensitive to fine structure.
type Histogram []float64

// ExtractHistogram buckets every sample of pb per channel and normalizes
// each channel's counts by total pixel count. Pure and deterministic.
func ExtractHistogram(pb *PixelBuffer) Histogram {
	h := make(Histogram, histogramChannels*histogramBuckets)

	for i := 0; i+3 < len(pb.Pix); i += 4 {
		h[0*histogramBuckets+int(pb.Pix[i]>>histogramShift)]++
		h[1*histogramBuckets+int(pb.Pix[i+1]>>histogramShift)]++
		h[2*histogramBuckets+int(pb.Pix[i+2]>>histogramShift)]++
	}

	total := float64(pb.Width * pb.Height)
	for i := range h {
		h[i] /= total
	}

	return h
}

// Similarity is histogram intersection — the sum of min(a[i], b[i]) over all
// buckets — averaged over the three channels and clamped to 1. Nil or
// length-mismatched inputs score 0, the same fail-closed policy as
// Fingerprint.Similarity. Symmetric in its arguments.
func (h Histogram) Similarity(other Histogram) float64 {
	if len(h) == 0 || len(h) != len(other) {
		return 0
	}

	sum := 0.0
	for i := range h {
		sum += math.Min(h[i], other[i])
	}

	return math.Min(1, sum/histogramChannels)
}
