package feed

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedpipe/pkg/domain"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>Test Feed</title>
		<link>https://example.com</link>
		<item>
			<title>Test Article 1</title>
			<link>https://example.com/article1</link>
			<pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
		</item>
	</channel>
</rss>`

type recordingReporter struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (r *recordingReporter) RecordSuccess(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, source)
}

func (r *recordingReporter) RecordFailure(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, source)
}

func newTestFetcher(rep Reporter) *Fetcher {
	return NewFetcher(FetcherConfig{
		Timeout:       time.Second,
		Retries:       3,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 5 * time.Millisecond,
		MaxSize:       1024,
		UserAgent:     "test-agent",
		Reporter:      rep,
	})
}

func TestFetcher_Fetch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotUA, gotAccept string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotAccept = r.Header.Get("Accept")
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(testRSS))
		}))
		defer server.Close()

		rep := &recordingReporter{}
		payload, err := newTestFetcher(rep).Fetch(context.Background(), domain.Source{Name: "src", URL: server.URL, Parser: domain.ParserRSS})
		require.NoError(t, err)

		assert.Equal(t, "src", payload.Source)
		assert.Equal(t, testRSS, string(payload.Body))
		assert.Equal(t, "application/rss+xml", payload.ContentType)
		assert.Equal(t, http.StatusOK, payload.StatusCode)
		assert.False(t, payload.FetchedAt.IsZero())
		assert.Equal(t, "test-agent", gotUA)
		assert.Contains(t, gotAccept, "application/rss+xml")
		assert.Equal(t, []string{"src"}, rep.successes)
		assert.Empty(t, rep.failures)
	})

	t.Run("server error retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		rep := &recordingReporter{}
		_, err := newTestFetcher(rep).Fetch(context.Background(), domain.Source{Name: "src", URL: server.URL})
		require.Error(t, err)

		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, KindHTTPStatus, fe.Kind)
		assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
		assert.True(t, fe.Retryable())
		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, []string{"src"}, rep.failures, "one report per logical fetch")
		assert.Empty(t, rep.successes)
	})

	t.Run("recovers after transient error", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(testRSS))
		}))
		defer server.Close()

		rep := &recordingReporter{}
		payload, err := newTestFetcher(rep).Fetch(context.Background(), domain.Source{Name: "src", URL: server.URL})
		require.NoError(t, err)
		assert.NotEmpty(t, payload.Body)
		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, []string{"src"}, rep.successes)
		assert.Empty(t, rep.failures)
	})

	t.Run("client error not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		rep := &recordingReporter{}
		_, err := newTestFetcher(rep).Fetch(context.Background(), domain.Source{Name: "src", URL: server.URL})
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, KindHTTPStatus, fe.Kind)
		assert.Equal(t, http.StatusNotFound, fe.StatusCode)
		assert.False(t, fe.Retryable())
		assert.Equal(t, int32(1), calls.Load())
		assert.Len(t, rep.failures, 1)
	})

	t.Run("too large not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
		}))
		defer server.Close()

		_, err := newTestFetcher(nil).Fetch(context.Background(), domain.Source{Name: "src", URL: server.URL})
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, KindTooLarge, fe.Kind)
		assert.Equal(t, "too_large", fe.ErrorKind())
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("gzipped payload", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(testRSS))
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/x-gzip")
			_, _ = w.Write(buf.Bytes())
		}))
		defer server.Close()

		payload, err := newTestFetcher(nil).Fetch(context.Background(), domain.Source{Name: "src", URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, testRSS, string(payload.Body))
	})

	t.Run("gzipped payload too large after decompression", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(strings.Repeat("a", 4096)))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.Less(t, buf.Len(), 1024)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(buf.Bytes())
		}))
		defer server.Close()

		_, err = newTestFetcher(nil).Fetch(context.Background(), domain.Source{Name: "src", URL: server.URL})
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, KindTooLarge, fe.Kind)
	})

	t.Run("timeout", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer server.Close()

		f := NewFetcher(FetcherConfig{Timeout: 20 * time.Millisecond, Retries: 2, RetryDelay: time.Millisecond})
		_, err := f.Fetch(context.Background(), domain.Source{Name: "src", URL: server.URL})
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, KindTimeout, fe.Kind)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		addr := server.URL
		server.Close()

		rep := &recordingReporter{}
		_, err := newTestFetcher(rep).Fetch(context.Background(), domain.Source{Name: "src", URL: addr})
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, KindConnectionRefused, fe.Kind)
		assert.Len(t, rep.failures, 1)
	})

	t.Run("invalid url not retried", func(t *testing.T) {
		_, err := newTestFetcher(nil).Fetch(context.Background(), domain.Source{Name: "src", URL: "http://[::1"})
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.False(t, fe.Retryable())
		assert.True(t, errors.Is(err, errPermanent))
	})

	t.Run("canceled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rep := &recordingReporter{}
		_, err := newTestFetcher(rep).Fetch(ctx, domain.Source{Name: "src", URL: server.URL})
		require.Error(t, err)
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Len(t, rep.failures, 1)
	})
}
