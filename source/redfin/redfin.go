// Package redfin retrieves the Redfin ZIP-code market tracker archive.
package redfin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"zip-market-etl/config"
	"zip-market-etl/utils"
)

// ErrTransport marks a failed request, a non-2xx response, or a broken body.
var ErrTransport = errors.New("transport error")

// Fetcher opens the remote archive as a stream of compressed bytes.
type Fetcher struct {
	cfg    *config.Config
	logger *utils.Logger
	client *http.Client
	retry  *utils.RetryConfig
}

// New creates a ready-to-use Fetcher.
func New(cfg *config.Config, logger *utils.Logger) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second},
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.DownloadMaxAttempts,
			BaseDelay:   5 * time.Second,
			Logger:      logger,
		},
	}
}

// Open issues the GET request and returns the response body. Only opening
// the stream is retried; a failure while reading the body surfaces as
// ErrTransport to the caller. The caller must Close the returned body.
func (f *Fetcher) Open(ctx context.Context) (*Body, error) {
	f.logger.Info("[redfin] Downloading %s", f.cfg.SourceURL)

	var resp *http.Response
	err := f.retry.Do(ctx, "redfin-download", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.SourceURL, nil)
		if err != nil {
			return fmt.Errorf("%w: build request: %v", ErrTransport, err)
		}

		r, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		if r.StatusCode < 200 || r.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 4096))
			_ = r.Body.Close()
			return fmt.Errorf("%w: GET %s: %s", ErrTransport, f.cfg.SourceURL, r.Status)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resp.ContentLength > 0 {
		f.logger.Info("[redfin] Archive size: %s", humanize.Bytes(uint64(resp.ContentLength)))
	}

	every := int64(f.cfg.ProgressEveryMB) * 1024 * 1024
	return &Body{rc: resp.Body, logger: f.logger, every: every, next: every}, nil
}

// Body is the response stream. It counts the bytes read, logs progress at
// coarse intervals, and tags read failures with ErrTransport.
type Body struct {
	rc     io.ReadCloser
	logger *utils.Logger
	n      int64
	every  int64
	next   int64
}

func (b *Body) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	b.n += int64(n)
	if b.every > 0 && b.n >= b.next {
		b.logger.Info("[redfin] Downloaded %s", humanize.Bytes(uint64(b.n)))
		for b.next <= b.n {
			b.next += b.every
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: read body after %d bytes: %v", ErrTransport, b.n, err)
	}
	return n, err
}

// BytesRead reports how many compressed bytes have been received.
func (b *Body) BytesRead() int64 {
	return b.n
}

func (b *Body) Close() error {
	return b.rc.Close()
}
