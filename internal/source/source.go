// Package source contains one acquisition strategy per upstream system.
// A Source turns raw upstream content into a canonical Chapter; it never
// decides freshness and never writes to the cache — that is the resolver's
// job.
package source

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/scriptura/internal/catalog"
	"github.com/sells-group/scriptura/internal/model"
)

// Error taxonomy. The resolver maps these onto user-facing reasons;
// nothing below this package distinguishes them further.
var (
	// ErrNotSeeded means a local-only edition has no seeded text for the key.
	ErrNotSeeded = eris.New("source: local text not seeded")
	// ErrMissingCredential is a configuration failure, not a transient one.
	ErrMissingCredential = eris.New("source: missing API credential")
	// ErrUpstreamUnavailable covers transport errors, non-success statuses
	// and empty payloads.
	ErrUpstreamUnavailable = eris.New("source: upstream unavailable")
	// ErrMalformedContent means well-formed HTTP that produced zero verses.
	ErrMalformedContent = eris.New("source: upstream content unparseable")
)

// ChapterRef addresses one chapter of one edition.
type ChapterRef struct {
	Work    catalog.Work
	Chapter int
	Edition catalog.Edition
}

// Source fetches and parses one chapter from its upstream.
type Source interface {
	Name() string
	// Available reports whether the source is usable at all; false means
	// a missing credential or equivalent configuration gap.
	Available() bool
	// TTL is how long resolved chapters from this source stay fresh.
	// Zero means they never expire.
	TTL() time.Duration
	Fetch(ctx context.Context, ref ChapterRef) (*model.Chapter, error)
}

// collapseWhitespace trims and folds internal runs of whitespace,
// including newlines, into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

const (
	retryAttempts  = 3
	retryBaseDelay = 250 * time.Millisecond
	retryAfterCap  = 5 * time.Second
)

// retryAfterDelay parses a Retry-After header given in seconds, capped so
// a hostile or misconfigured upstream cannot pin the request.
func retryAfterDelay(raw string) (time.Duration, bool) {
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs < 0 {
		return 0, false
	}
	d := time.Duration(secs) * time.Second
	if d > retryAfterCap {
		d = retryAfterCap
	}
	return d, true
}

// retryDo executes an HTTP request, retrying transient failures (429, 500,
// 502, 503 and transport errors) with exponential backoff. A throttling
// upstream that names its own window via Retry-After overrides the backoff.
// Returns the body and status of the first conclusive response, or the
// last error once attempts are exhausted.
func retryDo(ctx context.Context, client *http.Client, req *http.Request) ([]byte, int, error) {
	var lastErr error
	delay := retryBaseDelay

	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "source: read response body")
		}
		if !retryableStatusCode(resp.StatusCode) {
			return body, resp.StatusCode, nil
		}

		lastErr = eris.Errorf("source: status %d: %s", resp.StatusCode, string(body))
		if wait, ok := retryAfterDelay(resp.Header.Get("Retry-After")); ok {
			delay = wait
		}
	}

	return nil, 0, lastErr
}
