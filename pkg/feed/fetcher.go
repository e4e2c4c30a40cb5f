package feed

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"

	"github.com/umputun/feedpipe/pkg/domain"
)

// Reporter receives the result of each logical fetch
type Reporter interface {
	RecordSuccess(source string)
	RecordFailure(source string)
}

// FetcherConfig holds fetcher settings
type FetcherConfig struct {
	Timeout       time.Duration // per request
	Retries       int           // attempts per logical fetch
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	MaxSize       int64
	UserAgent     string
	Reporter      Reporter     // optional
	Client        *http.Client // optional, made from Timeout if nil
}

// Fetcher retrieves raw feed payloads over HTTP with retries
type Fetcher struct {
	client        *http.Client
	timeout       time.Duration
	retries       int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	maxSize       int64
	userAgent     string
	reporter      Reporter
}

// NewFetcher creates a new feed fetcher
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 1 {
		cfg.Retries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = 5 * time.Second
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10 << 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Feedpipe/1.0"
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Fetcher{
		client:        client,
		timeout:       cfg.Timeout,
		retries:       cfg.Retries,
		retryDelay:    cfg.RetryDelay,
		maxRetryDelay: cfg.MaxRetryDelay,
		maxSize:       cfg.MaxSize,
		userAgent:     cfg.UserAgent,
		reporter:      cfg.Reporter,
	}
}

// Fetch retrieves the source payload. Transient failures are retried with backoff,
// the result is reported to the breaker once, after all attempts.
func (f *Fetcher) Fetch(ctx context.Context, src domain.Source) (*domain.RawPayload, error) {
	var payload *domain.RawPayload
	attempt := 0
	rpt := repeater.NewBackoff(f.retries, f.retryDelay, repeater.WithMaxDelay(f.maxRetryDelay), repeater.WithJitter(0.1))
	err := rpt.Do(ctx, func() error {
		attempt++
		p, err := f.fetchOnce(ctx, src)
		if err != nil {
			lgr.Printf("[DEBUG] fetch attempt %d/%d for source=%s failed: %v", attempt, f.retries, src.Name, err)
			return err
		}
		payload = p
		return nil
	}, errPermanent)

	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			// canceled between attempts
			fe = &FetchError{Kind: KindTimeout, URL: src.URL, Err: err}
		}
		f.report(src.Name, false)
		return nil, fe
	}
	f.report(src.Name, true)
	return payload, nil
}

func (f *Fetcher) report(source string, ok bool) {
	if f.reporter == nil {
		return
	}
	if ok {
		f.reporter.RecordSuccess(source)
		return
	}
	f.reporter.RecordFailure(source)
}

// fetchOnce makes a single HTTP request bounded by the per-request timeout
func (f *Fetcher) fetchOnce(ctx context.Context, src domain.Source) (*domain.RawPayload, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, http.NoBody)
	if err != nil {
		return nil, &FetchError{Kind: KindConnectionRefused, URL: src.URL, Err: fmt.Errorf("create request: %w", err), permanent: true}
	}
	req.Header.Set("User-Agent", f.userAgent)
	addBrowserHeaders(req, src.Parser)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Kind: KindHTTPStatus, URL: src.URL, StatusCode: resp.StatusCode,
			permanent: resp.StatusCode < 500}
	}

	body, err := readLimited(resp.Body, f.maxSize)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.URL = src.URL
			return nil, fe
		}
		return nil, classifyTransportError(src.URL, err)
	}

	// some publishers serve gzipped files as is, e.g. application/x-gzip
	if isGzip(body) {
		unpacked, gzErr := gunzip(body, f.maxSize)
		var fe *FetchError
		switch {
		case errors.As(gzErr, &fe):
			fe.URL = src.URL
			return nil, fe
		case gzErr != nil:
			// leave the body as is, parser reports it if it is not a feed
			lgr.Printf("[WARN] can't gunzip payload of source=%s: %v", src.Name, gzErr)
		default:
			body = unpacked
		}
	}

	return &domain.RawPayload{
		Source:      src.Name,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// readLimited reads up to limit bytes, payloads above the limit are rejected
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, &FetchError{Kind: KindTooLarge, Err: fmt.Errorf("payload exceeds %d bytes", limit), permanent: true}
	}
	return body, nil
}

func isGzip(body []byte) bool {
	return len(body) > 2 && body[0] == 0x1f && body[1] == 0x8b
}

func gunzip(body []byte, limit int64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return readLimited(zr, limit)
}

// classifyTransportError maps client errors to timeout or connection_refused, both retryable
func classifyTransportError(url string, err error) *FetchError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{Kind: KindTimeout, URL: url, Err: err}
	}
	return &FetchError{Kind: KindConnectionRefused, URL: url, Err: err}
}
