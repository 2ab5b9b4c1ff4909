package photoproof

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidInput reports a blank landmark name or a missing image. It is
// raised synchronously, before any network activity.
var ErrInvalidInput = errors.New("photoproof: invalid input")

// Verdict is the terminal outcome of a validation.
type Verdict int

const (
	VerdictRejected Verdict = iota
	VerdictApproved
)

func (v Verdict) String() string {
	if v == VerdictApproved {
		return "approved"
	}
	return "rejected"
}

// Reason explains a rejection. ReasonNoReference is deliberately distinct
// from ReasonScore: a landmark with no reference image is a hard rejection
// that never reaches scoring.
type Reason int

const (
	ReasonNone        Reason = iota // approved
	ReasonScore                     // one or both scores below their floors
	ReasonNoReference               // no reference image available
	ReasonUnreadable                // user or reference image failed to decode
)

func (r Reason) String() string {
	switch r {
	case ReasonScore:
		return "similarity below threshold"
	case ReasonNoReference:
		return "no reference image available"
	case ReasonUnreadable:
		return "image unreadable"
	default:
		return ""
	}
}

// Submission is one user upload to validate.
type Submission struct {
	Identity string // opaque caller identity
	Landmark string // attraction name used for reference resolution
	City     string
	Image    []byte // raw image bytes as uploaded
}

// ValidationResult is the immutable outcome of a validation. Scores are
// reported for rejected submissions too, except on the no-reference and
// unreadable paths where no comparison ever happened.
type ValidationResult struct {
	DHashScore float64 // fingerprint similarity in [0,1]
	HistScore  float64 // histogram similarity in [0,1]
	Verdict    Verdict
	Reason     Reason
}

// Validate runs the full pipeline for one submission: resolve a reference
// image for the landmark, decode both images, extract a fingerprint and a
// histogram from each, score the two pairs, and apply the threshold policy.
//
// The four decode/extract operations run concurrently with no shared state;
// the caller can abandon the task by cancelling ctx. Nothing is persisted
// here — the verdict crosses to a store only after it exists. No internal
// deadline is imposed beyond per-request network timeouts; wrap ctx to
// bound the whole validation.
//
// Once inputs are present the engine always produces a verdict: network and
// decode problems surface as rejection reasons, never as errors. The only
// error return is ErrInvalidInput.
func (cfg *Config) Validate(ctx context.Context, sub Submission) (*ValidationResult, error) {
	if isBlank(sub.Landmark) {
		return nil, fmt.Errorf("%w: blank landmark name", ErrInvalidInput)
	}
	if len(sub.Image) == 0 {
		return nil, fmt.Errorf("%w: missing image", ErrInvalidInput)
	}
	cfg.defaults()

	refURL, found, err := cfg.ResolveReference(ctx, sub.Landmark)
	if err != nil {
		return nil, err
	}
	if !found {
		return &ValidationResult{Verdict: VerdictRejected, Reason: ReasonNoReference}, nil
	}

	// Fetch the reference bytes once; both reference extractions decode
	// from this buffer.
	ref, err := cfg.Download(ctx, refURL, DownloadOpts{})
	if err != nil {
		slog.Debug("photoproof: reference image unreadable", "landmark", sub.Landmark, "url", refURL, "error", err.Error())
		return &ValidationResult{Verdict: VerdictRejected, Reason: ReasonUnreadable}, nil
	}

	fp := cfg.FingerprintSize
	hs := cfg.HistogramSize

	var (
		userFP, refFP     *Fingerprint
		userHist, refHist Histogram
	)

	// The 2-image × 2-extractor matrix runs concurrently. Each branch
	// decodes its own PixelBuffer and writes its own output, so no locking
	// is needed.
	var g errgroup.Group
	g.Go(func() error {
		pb, err := DecodeBytes(sub.Image, fp, fp)
		if err != nil {
			return err
		}
		userFP = ExtractFingerprint(pb)
		return nil
	})
	g.Go(func() error {
		pb, err := DecodeBytes(sub.Image, hs, hs)
		if err != nil {
			return err
		}
		userHist = ExtractHistogram(pb)
		return nil
	})
	g.Go(func() error {
		pb, err := DecodeBytes(ref.Data, fp, fp)
		if err != nil {
			return err
		}
		refFP = ExtractFingerprint(pb)
		return nil
	})
	g.Go(func() error {
		pb, err := DecodeBytes(ref.Data, hs, hs)
		if err != nil {
			return err
		}
		refHist = ExtractHistogram(pb)
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.Debug("photoproof: extraction failed", "landmark", sub.Landmark, "error", err.Error())
		return &ValidationResult{Verdict: VerdictRejected, Reason: ReasonUnreadable}, nil
	}

	res := &ValidationResult{
		DHashScore: userFP.Similarity(refFP),
		HistScore:  userHist.Similarity(refHist),
	}
	if cfg.Policy.approves(res.DHashScore, res.HistScore) {
		res.Verdict = VerdictApproved
	} else {
		res.Verdict = VerdictRejected
		res.Reason = ReasonScore
	}
	return res, nil
}
