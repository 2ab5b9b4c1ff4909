// Package photoproof validates user-submitted photographs of named
// real-world landmarks. It resolves a reference image for the landmark from
// Wikipedia, derives a perceptual fingerprint and a coarse color histogram
// from both images, and approves or rejects the submission based on two
// bounded similarity scores.
//
// This is a heuristic similarity gate tolerant of lighting, angle, and crop
// differences. It is not a cryptographic proof of provenance: it trusts
// client-supplied data and a determined adversary can bypass it.
package photoproof

import (
	"context"
	"net/http"
	"sync"
)

// Default downsample dimensions for the two feature extractors.
const (
	DefaultFingerprintSize = 8  // 8x8 grayscale grid, 56-bit fingerprint
	DefaultHistogramSize   = 16 // 16x16 grid, 4 buckets per channel
)

// DefaultWikipediaURL is the MediaWiki API endpoint used for reference
// image resolution.
const DefaultWikipediaURL = "https://en.wikipedia.org/w/api.php"

// Cache abstracts key-value caching (sync.Map, Redis, etc.)
type Cache interface {
	Key(prefix, value string) string
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any)
}

// Policy holds the similarity floors for the approval decision.
type Policy struct {
	FingerprintFloor float64 // minimum fingerprint similarity
	HistogramFloor   float64 // minimum histogram similarity

	// FingerprintOnly gates approval on the fingerprint score alone,
	// matching the legacy single-score upload flow. HistogramFloor is
	// ignored when set.
	FingerprintOnly bool
}

// DefaultPolicy requires both scores to clear a 0.5 floor.
var DefaultPolicy = Policy{FingerprintFloor: 0.5, HistogramFloor: 0.5}

// approves applies the threshold policy to a score pair.
func (p Policy) approves(dhash, hist float64) bool {
	if dhash < p.FingerprintFloor {
		return false
	}
	return p.FingerprintOnly || hist >= p.HistogramFloor
}

// Config holds all dependencies injected by the consumer.
type Config struct {
	Cache        Cache        // reference lookup cache (nil = shared in-memory default)
	HTTPClient   *http.Client // nil = http.DefaultClient
	WikipediaURL string       // MediaWiki API endpoint (default: DefaultWikipediaURL)
	UserAgent    string       // default: "Mozilla/5.0 (compatible; go-photoproof/1.0)"
	Policy       Policy       // zero value = DefaultPolicy

	FingerprintSize int // downsample grid side for fingerprints (default: 8)
	HistogramSize   int // downsample grid side for histograms (default: 16)

	// OnReferenceLookup is an optional metrics callback fired once per
	// network resolution (cache hits don't count).
	OnReferenceLookup func()

	defaultsOnce sync.Once
}

// defaultCache backs every Config that doesn't inject its own cache. It
// lives for the process lifetime with no eviction, which is acceptable for
// typical session-sized workloads.
var defaultCache = NewMemoryCache()

// defaults fills zero-value fields with sensible defaults. Normalization
// happens exactly once per Config so that concurrent validations never
// observe a half-filled struct; configure all fields before first use.
func (c *Config) defaults() {
	c.defaultsOnce.Do(func() {
		if c.Cache == nil {
			c.Cache = defaultCache
		}
		if c.HTTPClient == nil {
			c.HTTPClient = http.DefaultClient
		}
		if c.WikipediaURL == "" {
			c.WikipediaURL = DefaultWikipediaURL
		}
		if c.UserAgent == "" {
			c.UserAgent = "Mozilla/5.0 (compatible; go-photoproof/1.0)"
		}
		if c.Policy == (Policy{}) {
			c.Policy = DefaultPolicy
		}
		if c.FingerprintSize <= 0 {
			c.FingerprintSize = DefaultFingerprintSize
		}
		if c.HistogramSize <= 0 {
			c.HistogramSize = DefaultHistogramSize
		}
	})
}
