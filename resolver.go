package photoproof

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// thumbnailSize is the pithumbsize requested from the pageimages API.
const thumbnailSize = 400

// maxAPIResponse caps the size of a MediaWiki API response body.
const maxAPIResponse = 1 << 20

// referenceEntry is the cache value for a landmark lookup. Found=false marks
// a name known to have no reference, so repeat lookups skip the network.
type referenceEntry struct {
	URL   string
	Found bool
}

// ResolveReference maps a free-text landmark name to a reference image URL.
//
// Protocol: in-memory cache first; then an exact-title pageimages thumbnail
// lookup; then a single-result full-text search followed by a thumbnail
// lookup on the best hit's canonical title. A name that still has no
// thumbnail is cached as not-found so repeat lookups cost no network.
//
// Transport, HTTP, and decode failures at every step are logged and
// downgraded to not-found. The only error a caller can see is
// ErrInvalidInput for a blank name. Concurrent lookups for the same uncached
// name may issue duplicate API calls; the reads are idempotent and the last
// writer wins, so this is an inefficiency, not a correctness problem.
func (cfg *Config) ResolveReference(ctx context.Context, name string) (string, bool, error) {
	if isBlank(name) {
		return "", false, fmt.Errorf("%w: blank landmark name", ErrInvalidInput)
	}
	cfg.defaults()

	cacheKey := cfg.Cache.Key("wiki_ref", name)
	var cached referenceEntry
	if cfg.Cache.Get(ctx, cacheKey, &cached) {
		return cached.URL, cached.Found, nil
	}

	if cfg.OnReferenceLookup != nil {
		cfg.OnReferenceLookup()
	}

	if thumb := cfg.pageThumbnail(ctx, name); thumb != "" {
		cfg.Cache.Set(ctx, cacheKey, referenceEntry{URL: thumb, Found: true})
		return thumb, true, nil
	}

	if title := cfg.searchBestTitle(ctx, name); title != "" {
		if thumb := cfg.pageThumbnail(ctx, title); thumb != "" {
			cfg.Cache.Set(ctx, cacheKey, referenceEntry{URL: thumb, Found: true})
			return thumb, true, nil
		}
	}

	cfg.Cache.Set(ctx, cacheKey, referenceEntry{})
	return "", false, nil
}

type pageImagesResponse struct {
	Query struct {
		Pages map[string]struct {
			Thumbnail struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

// pageThumbnail looks up the lead-image thumbnail for an exact page title.
// Returns "" when the page has no image or the call fails.
func (cfg *Config) pageThumbnail(ctx context.Context, title string) string {
	q := url.Values{
		"action":      {"query"},
		"titles":      {title},
		"prop":        {"pageimages"},
		"pithumbsize": {strconv.Itoa(thumbnailSize)},
		"format":      {"json"},
		"origin":      {"*"},
	}

	var out pageImagesResponse
	if !cfg.apiGet(ctx, q, &out) {
		return ""
	}

	for _, page := range out.Query.Pages {
		if page.Thumbnail.Source != "" {
			return page.Thumbnail.Source
		}
	}
	return ""
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// searchBestTitle runs a full-text search limited to the single best-ranked
// hit and returns its canonical title, or "" on no hit or failure.
func (cfg *Config) searchBestTitle(ctx context.Context, name string) string {
	q := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {name},
		"srlimit":  {"1"},
		"format":   {"json"},
		"origin":   {"*"},
	}

	var out searchResponse
	if !cfg.apiGet(ctx, q, &out) {
		return ""
	}

	if len(out.Query.Search) == 0 {
		return ""
	}
	return out.Query.Search[0].Title
}

// apiGet performs one MediaWiki API call and decodes the JSON response into
// dest. Returns false on any transport, status, or decode failure.
func (cfg *Config) apiGet(ctx context.Context, q url.Values, dest any) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.WikipediaURL+"?"+q.Encode(), nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := cfg.HTTPClient.Do(req)
	if err != nil {
		slog.Warn("photoproof: reference lookup failed", "action", q.Get("action"), "error", err.Error())
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("photoproof: reference lookup failed", "action", q.Get("action"), "status", resp.StatusCode)
		return false
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAPIResponse)).Decode(dest); err != nil {
		slog.Warn("photoproof: reference response invalid", "action", q.Get("action"), "error", err.Error())
		return false
	}
	return true
}
