// Package locator turns a resolved artifact filename into a download URL
// by probing an ordered list of candidate base locations.
package locator

import (
	"context"
	"log"
	"net/http"
	"net/url"
)

// Locator probes candidate bases for artifact availability. Bases are
// tried strictly in order; the first base is also the best-effort
// default when every probe fails.
type Locator struct {
	client *http.Client
	bases  []string
}

// New creates a locator over the given candidate bases. The first base
// doubles as the default. client may be nil.
func New(client *http.Client, bases []string) *Locator {
	if client == nil {
		client = http.DefaultClient
	}
	return &Locator{client: client, bases: bases}
}

// Locate returns the first candidate URL whose existence probe succeeds.
// Probes run sequentially so the first success short-circuits the rest —
// one probe round trip per candidate, no retries. When all probes fail
// the default base URL is returned anyway; the download may still 404
// client-side, which is surfaced at download time rather than here.
func (l *Locator) Locate(ctx context.Context, filename string) string {
	escaped := url.PathEscape(filename)

	for _, base := range l.bases {
		u := base + escaped
		ok := l.probe(ctx, u)
		log.Printf("locator: probe %s -> %v", u, ok)
		if ok {
			return u
		}
	}

	return l.bases[0] + escaped
}

// probe checks whether a URL serves content. HEAD is tried first; if the
// serving layer answers HEAD with anything other than success, one GET
// settles it. A transport error fails the candidate outright.
func (l *Locator) probe(ctx context.Context, u string) bool {
	ok, err := l.request(ctx, http.MethodHead, u)
	if err != nil {
		return false
	}
	if ok {
		return true
	}
	ok, err = l.request(ctx, http.MethodGet, u)
	return err == nil && ok
}

func (l *Locator) request(ctx context.Context, method, u string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
