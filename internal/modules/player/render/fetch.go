package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FetchError wraps a failed artwork fetch. It is transient by definition:
// the pipeline retries once and then degrades to placeholder art instead
// of failing the render.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch artwork %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ArtworkFetcher retrieves artwork bytes for a track.
type ArtworkFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

const (
	fetchTimeout    = 10 * time.Second
	retryBackoff    = 500 * time.Millisecond
	maxArtworkBytes = 16 << 20
)

// HTTPFetcher fetches artwork over HTTP with a single retry. The client
// is shared across all sessions; http.Client is internally pooled and
// safe for concurrent use.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with a sane default client.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// Fetch retrieves the artwork at url, retrying once after a short backoff.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, err := f.fetchOnce(ctx, url)
	if err == nil {
		return data, nil
	}

	select {
	case <-ctx.Done():
		return nil, &FetchError{URL: url, Err: ctx.Err()}
	case <-time.After(retryBackoff):
	}

	data, err = f.fetchOnce(ctx, url)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtworkBytes))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return data, nil
}

// Ensure HTTPFetcher implements ArtworkFetcher.
var _ ArtworkFetcher = (*HTTPFetcher)(nil)
