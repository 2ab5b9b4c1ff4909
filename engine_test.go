package photoproof

import (
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// newValidationConfig wires a fake wiki and an image server so Validate can
// run end to end. refImage is what the "encyclopedia thumbnail" serves;
// imageFetches counts hits on the image server.
func newValidationConfig(t *testing.T, landmark string, refImage []byte, imageFetches *atomic.Int32) *Config {
	t.Helper()

	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if imageFetches != nil {
			imageFetches.Add(1)
		}
		if refImage == nil {
			http.NotFound(w, nil)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(refImage)
	}))
	t.Cleanup(imgSrv.Close)

	wiki := &fakeWiki{titleHits: map[string]string{landmark: imgSrv.URL + "/thumb.png"}}
	wikiSrv := httptest.NewServer(wiki.handler())
	t.Cleanup(wikiSrv.Close)

	return &Config{
		HTTPClient:   http.DefaultClient,
		WikipediaURL: wikiSrv.URL,
		Cache:        NewMemoryCache(),
	}
}

func TestValidate_IdenticalImagesApproved(t *testing.T) {
	t.Parallel()

	photo := rampPNG(t, 64, 48, true)
	cfg := newValidationConfig(t, "Eiffel Tower", photo, nil)

	res, err := cfg.Validate(context.Background(), Submission{
		Identity: "alice",
		Landmark: "Eiffel Tower",
		City:     "Paris",
		Image:    photo,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DHashScore != 1.0 {
		t.Errorf("DHashScore = %v, want exactly 1.0 for identical images", res.DHashScore)
	}
	if res.HistScore != 1.0 {
		t.Errorf("HistScore = %v, want exactly 1.0 for identical images", res.HistScore)
	}
	if res.Verdict != VerdictApproved || res.Reason != ReasonNone {
		t.Errorf("verdict = %v (%v), want approved", res.Verdict, res.Reason)
	}
}

func TestValidate_DisjointColorsRejected(t *testing.T) {
	t.Parallel()

	red := solidPNG(t, 8, 8, color.NRGBA{R: 255, A: 255})
	blue := solidPNG(t, 8, 8, color.NRGBA{B: 255, A: 255})
	cfg := newValidationConfig(t, "Blue Mosque", blue, nil)

	res, err := cfg.Validate(context.Background(), Submission{
		Identity: "alice",
		Landmark: "Blue Mosque",
		Image:    red,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Verdict != VerdictRejected || res.Reason != ReasonScore {
		t.Fatalf("verdict = %v (%v), want score-based rejection", res.Verdict, res.Reason)
	}
	// Both images are flat, so the gradient fingerprints agree; the color
	// histograms land in disjoint R/B buckets and only overlap on green.
	if res.DHashScore != 1.0 {
		t.Errorf("DHashScore = %v, want 1.0 for two flat images", res.DHashScore)
	}
	if res.HistScore >= 0.5 {
		t.Errorf("HistScore = %v, want < 0.5 for disjoint colors", res.HistScore)
	}
}

func TestValidate_FingerprintOnlyPolicy(t *testing.T) {
	t.Parallel()

	red := solidPNG(t, 8, 8, color.NRGBA{R: 255, A: 255})
	blue := solidPNG(t, 8, 8, color.NRGBA{B: 255, A: 255})
	cfg := newValidationConfig(t, "Blue Mosque", blue, nil)
	cfg.Policy = Policy{FingerprintFloor: 0.5, FingerprintOnly: true}

	res, err := cfg.Validate(context.Background(), Submission{
		Identity: "alice",
		Landmark: "Blue Mosque",
		Image:    red,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Verdict != VerdictApproved {
		t.Errorf("verdict = %v (%v), want approved under the legacy fingerprint-only policy", res.Verdict, res.Reason)
	}
}

func TestValidate_NoReferenceIsHardRejection(t *testing.T) {
	t.Parallel()

	var imageFetches atomic.Int32
	photo := rampPNG(t, 32, 32, true)
	cfg := newValidationConfig(t, "Some Other Landmark", photo, &imageFetches)

	res, err := cfg.Validate(context.Background(), Submission{
		Identity: "alice",
		Landmark: "Xqzzt Nonsense Qpwf",
		Image:    photo,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Verdict != VerdictRejected || res.Reason != ReasonNoReference {
		t.Errorf("verdict = %v (%v), want rejection with no-reference reason", res.Verdict, res.Reason)
	}
	if res.DHashScore != 0 || res.HistScore != 0 {
		t.Errorf("scores = (%v, %v), want zero — no comparison happened", res.DHashScore, res.HistScore)
	}
	if got := imageFetches.Load(); got != 0 {
		t.Errorf("image server hit %d times, want 0 — no extraction without a reference", got)
	}
}

func TestValidate_InvalidInput(t *testing.T) {
	t.Parallel()

	wiki := &fakeWiki{}
	cfg, _ := newWikiConfig(t, wiki)
	photo := rampPNG(t, 16, 16, true)

	tests := []struct {
		name string
		sub  Submission
	}{
		{name: "blank landmark", sub: Submission{Landmark: "  ", Image: photo}},
		{name: "missing image", sub: Submission{Landmark: "Eiffel Tower"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := cfg.Validate(context.Background(), tc.sub)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("error = %v, want ErrInvalidInput", err)
			}
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
		})
	}
	if got := wiki.callCount(); got != 0 {
		t.Errorf("API calls = %d for invalid inputs, want 0", got)
	}
}

func TestValidate_UnreadableUserImage(t *testing.T) {
	t.Parallel()

	ref := rampPNG(t, 32, 32, true)
	cfg := newValidationConfig(t, "Eiffel Tower", ref, nil)

	res, err := cfg.Validate(context.Background(), Submission{
		Identity: "alice",
		Landmark: "Eiffel Tower",
		Image:    []byte("these bytes are no raster format"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Verdict != VerdictRejected || res.Reason != ReasonUnreadable {
		t.Errorf("verdict = %v (%v), want rejection with unreadable reason", res.Verdict, res.Reason)
	}
}

func TestValidate_UnreadableReferenceImage(t *testing.T) {
	t.Parallel()

	cfg := newValidationConfig(t, "Eiffel Tower", nil, nil) // image server 404s

	res, err := cfg.Validate(context.Background(), Submission{
		Identity: "alice",
		Landmark: "Eiffel Tower",
		Image:    rampPNG(t, 16, 16, true),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Verdict != VerdictRejected || res.Reason != ReasonUnreadable {
		t.Errorf("verdict = %v (%v), want rejection with unreadable reason", res.Verdict, res.Reason)
	}
}

func TestValidate_ConcurrentSubmissions(t *testing.T) {
	t.Parallel()

	photo := rampPNG(t, 64, 48, true)
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(photo)
	}))
	t.Cleanup(imgSrv.Close)

	wiki := &fakeWiki{titleHits: map[string]string{"Eiffel Tower": imgSrv.URL + "/thumb.png"}}
	wikiSrv := httptest.NewServer(wiki.handler())
	t.Cleanup(wikiSrv.Close)

	// Everything but the endpoint is left zero so normalization happens
	// while validations are already in flight.
	cfg := &Config{WikipediaURL: wikiSrv.URL, Cache: NewMemoryCache()}

	const workers = 4
	results := make([]*ValidationResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cfg.Validate(context.Background(), Submission{
				Identity: "alice",
				Landmark: "Eiffel Tower",
				Image:    photo,
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: unexpected error: %v", i, errs[i])
		}
		if results[i].Verdict != VerdictApproved {
			t.Errorf("worker %d: verdict = %v (%v), want approved", i, results[i].Verdict, results[i].Reason)
		}
	}
}

func TestPolicy_Approves(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		policy      Policy
		dhash, hist float64
		want        bool
	}{
		{name: "both above floors", policy: DefaultPolicy, dhash: 0.8, hist: 0.6, want: true},
		{name: "exactly at floors", policy: DefaultPolicy, dhash: 0.5, hist: 0.5, want: true},
		{name: "fingerprint below floor", policy: DefaultPolicy, dhash: 0.49, hist: 0.9, want: false},
		{name: "histogram below floor", policy: DefaultPolicy, dhash: 0.9, hist: 0.49, want: false},
		{name: "strict dual floors", policy: Policy{FingerprintFloor: 0.62, HistogramFloor: 0.5}, dhash: 0.6, hist: 0.9, want: false},
		{name: "fingerprint-only ignores histogram", policy: Policy{FingerprintFloor: 0.5, FingerprintOnly: true}, dhash: 0.7, hist: 0.0, want: true},
		{name: "fingerprint-only still gates fingerprint", policy: Policy{FingerprintFloor: 0.5, FingerprintOnly: true}, dhash: 0.3, hist: 1.0, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.policy.approves(tc.dhash, tc.hist); got != tc.want {
				t.Errorf("approves(%v, %v) = %v, want %v", tc.dhash, tc.hist, got, tc.want)
			}
		})
	}
}
