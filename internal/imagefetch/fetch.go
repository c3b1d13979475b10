// Package imagefetch downloads source images for the generate-from-URL flow.
package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var ErrFetch = errors.New("image fetch failed")

type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	// MaxBytes caps the downloaded body; zero means unlimited.
	MaxBytes int64
}

type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

func New(opts Options) *Fetcher {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Fetcher{httpClient: client, maxBytes: opts.MaxBytes}
}

// Fetch downloads rawURL fully into memory. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned http %d", ErrFetch, rawURL, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrFetch, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrFetch, f.maxBytes)
	}

	mt := mimetype.Detect(data)
	if mt.Is("text/html") {
		return nil, fmt.Errorf("%w: %s returned an html page, not an image", ErrFetch, rawURL)
	}

	slog.Debug("fetched image", "url", rawURL, "size", len(data), "detected_type", mt.String())
	return data, nil
}
