package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// fetchResult is one HTTP exchange, body truncated to the configured
// limit.
type fetchResult struct {
	Status      int
	ContentType string
	Body        []byte
}

// fetcher performs the page GETs. robots.txt fetches go through the
// politeness controller instead, so every request made here has already
// passed the gate.
type fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64

	// headersFor returns extra request headers for a hostname, nil when
	// there are none. Populated from the config file's domain overrides.
	headersFor func(host string) map[string]string
}

// fetch GETs pageURL and reads at most maxBodySize bytes of the body.
// Non-2xx responses are not errors; the caller records the status.
func (f *fetcher) fetch(ctx context.Context, pageURL, host string) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if f.headersFor != nil {
		for k, v := range f.headersFor(host) {
			req.Header.Set(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	return &fetchResult{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
