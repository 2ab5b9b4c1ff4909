package photoproof

import "math/bits"

// Luma weights applied to both sides of every comparison. Fingerprints
// produced with a different weighting are never compared against these.
const (
	lumaR = 0.3
	lumaG = 0.59
	lumaB = 0.11
)

// Fingerprint is a difference-hash bit sequence: one bit per adjacent
// horizontal pixel pair in a downsampled grayscale grid, set when the left
// pixel is brighter than the right. A w×h buffer yields (w−1)×h bits.
//
// This is a gradient fingerprint: robust to uniform brightness shifts and
// mild compression artifacts, sensitive to content structure. Comparison is
// only meaningful between fingerprints of the same length.
type Fingerprint struct {
	bits []uint64
	n    int
}

// ExtractFingerprint computes the difference hash of pb. Pure and
// deterministic: equal buffers always yield equal fingerprints.
func ExtractFingerprint(pb *PixelBuffer) *Fingerprint {
	n := (pb.Width - 1) * pb.Height
	f := &Fingerprint{bits: make([]uint64, (n+63)/64), n: n}

	i := 0
	for y := 0; y < pb.Height; y++ {
		row := pb.Pix[y*pb.Width*4:]
		for x := 0; x < pb.Width-1; x++ {
			if luma(row[x*4:]) > luma(row[(x+1)*4:]) {
				f.bits[i/64] |= 1 << uint(i%64)
			}
			i++
		}
	}

	return f
}

func luma(px []uint8) float64 {
	return lumaR*float64(px[0]) + lumaG*float64(px[1]) + lumaB*float64(px[2])
}

// Len returns the number of bits in the fingerprint.
func (f *Fingerprint) Len() int {
	if f == nil {
		return 0
	}
	return f.n
}

// Bit reports whether bit i is set. Bits are ordered row by row, one per
// adjacent column pair.
func (f *Fingerprint) Bit(i int) bool {
	return f.bits[i/64]&(1<<uint(i%64)) != 0
}

// Similarity returns 1 − hammingDistance/length in [0,1]. Nil or
// length-mismatched inputs score 0 rather than erroring: a missing
// fingerprint must never silently pass. Symmetric in its arguments.
func (f *Fingerprint) Similarity(other *Fingerprint) float64 {
	if f == nil || other == nil || f.n == 0 || f.n != other.n {
		return 0
	}

	dist := 0
	for i := range f.bits {
		dist += bits.OnesCount64(f.bits[i] ^ other.bits[i])
	}

	return 1 - float64(dist)/float64(f.n)
}
