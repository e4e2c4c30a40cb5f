package ingest

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedpipe/pkg/dedup"
	"github.com/umputun/feedpipe/pkg/domain"
	"github.com/umputun/feedpipe/pkg/feed"
	"github.com/umputun/feedpipe/pkg/ingest/mocks"
)

type testDeps struct {
	gate       *mocks.GateMock
	fetcher    *mocks.FetcherMock
	parser     *mocks.ParserMock
	reconciler *mocks.ReconcilerMock
	articles   *mocks.ArticleWriterMock
	indexer    *mocks.IndexerMock
	runs       *mocks.RunLogMock
	metrics    *mocks.RunObserverMock

	mu       sync.Mutex
	appended []domain.IngestionRun
}

func (d *testDeps) config() Config {
	return Config{Gate: d.gate, Fetcher: d.fetcher, Parser: d.parser, Reconciler: d.reconciler,
		Articles: d.articles, Indexer: d.indexer, Runs: d.runs, Metrics: d.metrics, MaxWorkers: 2, RunTimeout: time.Second}
}

// newTestDeps makes mocks for a happy path: every parsed article is new and saved
func newTestDeps(articles ...domain.ParsedArticle) *testDeps {
	d := &testDeps{}
	var nextID atomic.Int64
	d.gate = &mocks.GateMock{AllowFunc: func(source string) bool { return true }}
	d.fetcher = &mocks.FetcherMock{FetchFunc: func(ctx context.Context, src domain.Source) (*domain.RawPayload, error) {
		return &domain.RawPayload{Source: src.Name, Body: []byte("payload"), FetchedAt: time.Now()}, nil
	}}
	d.parser = &mocks.ParserMock{ParseFunc: func(payload *domain.RawPayload, kind domain.ParserKind) (iter.Seq[domain.ParsedArticle], error) {
		return slices.Values(articles), nil
	}}
	d.reconciler = &mocks.ReconcilerMock{
		ReconcileFunc: func(ctx context.Context, source string, seq iter.Seq[domain.ParsedArticle]) (dedup.Result, error) {
			var res dedup.Result
			for a := range seq {
				res.New = append(res.New, domain.Article{Source: source, Fingerprint: dedup.Fingerprint(dedup.ModeFull, a),
					Title: a.Title, URL: a.URL, Published: a.Published})
			}
			return res, nil
		},
		RememberFunc: func(ctx context.Context, articles []domain.Article) {},
	}
	d.articles = &mocks.ArticleWriterMock{UpsertArticleFunc: func(ctx context.Context, article *domain.Article) error {
		article.ID = nextID.Add(1)
		article.CreatedAt = time.Now()
		return nil
	}}
	d.indexer = &mocks.IndexerMock{IndexArticlesFunc: func(ctx context.Context, docs []domain.SearchDocument) error { return nil }}
	d.runs = &mocks.RunLogMock{AppendRunFunc: func(ctx context.Context, run domain.IngestionRun) error {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.appended = append(d.appended, run)
		return nil
	}}
	d.metrics = &mocks.RunObserverMock{ObserveRunFunc: func(run domain.IngestionRun) {}}
	return d
}

func article(title, url string) domain.ParsedArticle {
	return domain.ParsedArticle{Title: title, URL: url, Published: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

var testSource = domain.Source{Name: "src", Title: "Test Source", URL: "https://example.com/rss", Parser: domain.ParserRSS}

func TestOrchestrator_RunOnce_Success(t *testing.T) {
	d := newTestDeps(article("One", "https://e.com/1"), article("Two", "https://e.com/2"))
	o := New(d.config())

	run := o.RunOnce(context.Background(), testSource)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "src", run.Source)
	assert.Equal(t, domain.OutcomeSuccess, run.Outcome)
	assert.Empty(t, run.FailedStage)
	assert.Equal(t, 2, run.ArticlesFetched)
	assert.Equal(t, 2, run.ArticlesNew)
	assert.Zero(t, run.ArticlesFailed)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	require.Len(t, d.indexer.IndexArticlesCalls(), 1)
	docs := d.indexer.IndexArticlesCalls()[0].Docs
	require.Len(t, docs, 2)
	assert.Equal(t, "Test Source", docs[0].SourceName)
	assert.NotZero(t, docs[0].ID)

	require.Len(t, d.reconciler.RememberCalls(), 1)
	assert.Len(t, d.reconciler.RememberCalls()[0].Articles, 2)

	require.Len(t, d.appended, 1)
	assert.Equal(t, run, d.appended[0])
	assert.Equal(t, domain.ParserRSS, d.parser.ParseCalls()[0].Kind)
}

func TestOrchestrator_RunOnce_ObservesMetrics(t *testing.T) {
	d := newTestDeps(article("One", "https://e.com/1"))
	o := New(d.config())

	okRun := o.RunOnce(context.Background(), testSource)
	d.fetcher.FetchFunc = func(ctx context.Context, src domain.Source) (*domain.RawPayload, error) {
		return nil, errors.New("connection refused")
	}
	failedRun := o.RunOnce(context.Background(), testSource)
	d.gate.AllowFunc = func(source string) bool { return false }
	skippedRun := o.RunOnce(context.Background(), testSource)

	calls := d.metrics.ObserveRunCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, okRun, calls[0].Run)
	assert.Equal(t, domain.StageFetching, calls[1].Run.FailedStage)
	assert.Equal(t, failedRun, calls[1].Run)
	assert.Equal(t, domain.OutcomeSkipped, calls[2].Run.Outcome)
	assert.Equal(t, skippedRun, calls[2].Run)

	// metrics are optional
	cfg := d.config()
	cfg.Metrics = nil
	run := New(cfg).RunOnce(context.Background(), testSource)
	assert.Equal(t, domain.OutcomeSkipped, run.Outcome)
}

func TestOrchestrator_RunOnce_UpdatedAndUnchanged(t *testing.T) {
	d := newTestDeps()
	d.reconciler.ReconcileFunc = func(ctx context.Context, source string, seq iter.Seq[domain.ParsedArticle]) (dedup.Result, error) {
		return dedup.Result{Updated: []domain.Article{{ID: 7, Title: "upd"}}, Unchanged: 4}, nil
	}
	run := New(d.config()).RunOnce(context.Background(), testSource)
	assert.Equal(t, domain.OutcomeSuccess, run.Outcome)
	assert.Equal(t, 1, run.ArticlesUpdated)
	assert.Equal(t, 4, run.ArticlesUnchanged)
	assert.Zero(t, run.ArticlesNew)
}

func TestOrchestrator_RunOnce_GateClosed(t *testing.T) {
	d := newTestDeps(article("One", "https://e.com/1"))
	d.gate.AllowFunc = func(source string) bool { return false }

	run := New(d.config()).RunOnce(context.Background(), testSource)

	assert.Equal(t, domain.OutcomeSkipped, run.Outcome)
	assert.Empty(t, run.FailedStage)
	assert.Empty(t, d.fetcher.FetchCalls())
	assert.Len(t, d.appended, 1, "skipped runs are recorded")
}

func TestOrchestrator_RunOnce_StageFailures(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		d := newTestDeps()
		d.fetcher.FetchFunc = func(ctx context.Context, src domain.Source) (*domain.RawPayload, error) {
			return nil, &feed.FetchError{Kind: feed.KindTimeout, URL: src.URL, Err: context.DeadlineExceeded}
		}
		run := New(d.config()).RunOnce(context.Background(), testSource)
		assert.Equal(t, domain.OutcomeFailed, run.Outcome)
		assert.Equal(t, domain.StageFetching, run.FailedStage)
		assert.Equal(t, "timeout", run.ErrorKind)
		assert.NotEmpty(t, run.Error)
		assert.Empty(t, d.parser.ParseCalls())
		assert.Len(t, d.appended, 1)
	})

	t.Run("parse", func(t *testing.T) {
		d := newTestDeps()
		d.parser.ParseFunc = func(payload *domain.RawPayload, kind domain.ParserKind) (iter.Seq[domain.ParsedArticle], error) {
			return nil, &feed.ParseError{Kind: feed.KindMalformedXML, Err: errors.New("bad xml")}
		}
		run := New(d.config()).RunOnce(context.Background(), testSource)
		assert.Equal(t, domain.OutcomeFailed, run.Outcome)
		assert.Equal(t, domain.StageParsing, run.FailedStage)
		assert.Equal(t, "malformed_xml", run.ErrorKind)
		assert.Empty(t, d.reconciler.ReconcileCalls())
	})

	t.Run("reconcile", func(t *testing.T) {
		d := newTestDeps(article("One", "https://e.com/1"))
		d.reconciler.ReconcileFunc = func(ctx context.Context, source string, seq iter.Seq[domain.ParsedArticle]) (dedup.Result, error) {
			return dedup.Result{}, errors.New("db down")
		}
		run := New(d.config()).RunOnce(context.Background(), testSource)
		assert.Equal(t, domain.OutcomeFailed, run.Outcome)
		assert.Equal(t, domain.StageReconciling, run.FailedStage)
		assert.Equal(t, "internal", run.ErrorKind)
		assert.Empty(t, d.articles.UpsertArticleCalls())
	})
}

func TestOrchestrator_RunOnce_PartialPersistence(t *testing.T) {
	d := newTestDeps(article("One", "https://e.com/1"), article("Two", "https://e.com/2"), article("Three", "https://e.com/3"))
	saveOK := d.articles.UpsertArticleFunc
	d.articles.UpsertArticleFunc = func(ctx context.Context, a *domain.Article) error {
		if a.Title == "Two" {
			return errors.New("constraint failed")
		}
		return saveOK(ctx, a)
	}

	run := New(d.config()).RunOnce(context.Background(), testSource)

	assert.Equal(t, domain.OutcomePartial, run.Outcome)
	assert.Equal(t, 2, run.ArticlesNew)
	assert.Equal(t, 1, run.ArticlesFailed)
	require.Len(t, d.indexer.IndexArticlesCalls(), 1)
	assert.Len(t, d.indexer.IndexArticlesCalls()[0].Docs, 2, "only persisted articles are indexed")
}

func TestOrchestrator_RunOnce_AllPersistenceFailed(t *testing.T) {
	d := newTestDeps(article("One", "https://e.com/1"), article("Two", "https://e.com/2"))
	d.articles.UpsertArticleFunc = func(ctx context.Context, a *domain.Article) error { return errors.New("disk full") }

	run := New(d.config()).RunOnce(context.Background(), testSource)

	assert.Equal(t, domain.OutcomeFailed, run.Outcome)
	assert.Equal(t, domain.StagePersisting, run.FailedStage)
	assert.Equal(t, 2, run.ArticlesFailed)
	assert.Contains(t, run.Error, "disk full")
	assert.Empty(t, d.indexer.IndexArticlesCalls())
}

func TestOrchestrator_RunOnce_IndexError(t *testing.T) {
	d := newTestDeps(article("One", "https://e.com/1"))
	d.indexer.IndexArticlesFunc = func(ctx context.Context, docs []domain.SearchDocument) error {
		return errors.New("index unavailable")
	}

	run := New(d.config()).RunOnce(context.Background(), testSource)

	assert.Equal(t, domain.OutcomeSuccess, run.Outcome, "index errors don't change the outcome")
	assert.Equal(t, "index unavailable", run.IndexError)
	assert.Equal(t, 1, run.ArticlesNew)
}

func TestOrchestrator_RunOnce_TimeoutBeforePersisting(t *testing.T) {
	d := newTestDeps(article("One", "https://e.com/1"))
	reconcile := d.reconciler.ReconcileFunc
	d.reconciler.ReconcileFunc = func(ctx context.Context, source string, seq iter.Seq[domain.ParsedArticle]) (dedup.Result, error) {
		res, err := reconcile(ctx, source, seq)
		<-ctx.Done()
		return res, err
	}
	var appendErr error
	d.runs.AppendRunFunc = func(ctx context.Context, run domain.IngestionRun) error {
		appendErr = ctx.Err()
		return nil
	}
	cfg := d.config()
	cfg.RunTimeout = 20 * time.Millisecond

	run := New(cfg).RunOnce(context.Background(), testSource)

	assert.Equal(t, domain.OutcomeFailed, run.Outcome)
	assert.Equal(t, domain.StagePersisting, run.FailedStage)
	assert.Equal(t, "timeout", run.ErrorKind)
	assert.Empty(t, d.articles.UpsertArticleCalls(), "nothing written after timeout")
	require.Len(t, d.runs.AppendRunCalls(), 1, "run recorded with detached context")
	assert.NoError(t, appendErr)
}

func TestOrchestrator_RunOnce_RunLogError(t *testing.T) {
	d := newTestDeps(article("One", "https://e.com/1"))
	d.runs.AppendRunFunc = func(ctx context.Context, run domain.IngestionRun) error { return errors.New("locked") }
	run := New(d.config()).RunOnce(context.Background(), testSource)
	assert.Equal(t, domain.OutcomeSuccess, run.Outcome)
}

func TestOrchestrator_RunAll_Isolation(t *testing.T) {
	d := newTestDeps(article("One", "https://e.com/1"))
	d.fetcher.FetchFunc = func(ctx context.Context, src domain.Source) (*domain.RawPayload, error) {
		if src.Name == "a" {
			return nil, &feed.FetchError{Kind: feed.KindHTTPStatus, StatusCode: 503}
		}
		return &domain.RawPayload{Source: src.Name, Body: []byte("ok")}, nil
	}

	srcA := domain.Source{Name: "a", URL: "https://a.example.com", Parser: domain.ParserRSS}
	srcB := domain.Source{Name: "b", URL: "https://b.example.com", Parser: domain.ParserRSS}
	runs := New(d.config()).RunAll(context.Background(), []domain.Source{srcA, srcB})

	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].Source)
	assert.Equal(t, domain.OutcomeFailed, runs[0].Outcome)
	assert.Equal(t, domain.StageFetching, runs[0].FailedStage)
	assert.Equal(t, "http_status", runs[0].ErrorKind)

	assert.Equal(t, "b", runs[1].Source)
	assert.Equal(t, domain.OutcomeSuccess, runs[1].Outcome)
	assert.Equal(t, 1, runs[1].ArticlesNew)

	require.Len(t, d.articles.UpsertArticleCalls(), 1)
	assert.Equal(t, "b", d.articles.UpsertArticleCalls()[0].Article.Source)
	assert.Len(t, d.appended, 2)
}

func TestOrchestrator_RunAll_BoundedConcurrency(t *testing.T) {
	d := newTestDeps()
	var inFlight, maxInFlight atomic.Int32
	d.fetcher.FetchFunc = func(ctx context.Context, src domain.Source) (*domain.RawPayload, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return &domain.RawPayload{Source: src.Name}, nil
	}

	sources := make([]domain.Source, 6)
	for i := range sources {
		sources[i] = domain.Source{Name: string(rune('a' + i)), Parser: domain.ParserRSS}
	}
	runs := New(d.config()).RunAll(context.Background(), sources)

	require.Len(t, runs, 6)
	for i, r := range runs {
		assert.Equal(t, sources[i].Name, r.Source, "results in input order")
	}
	assert.LessOrEqual(t, maxInFlight.Load(), int32(2))
	assert.Equal(t, int32(2), maxInFlight.Load())
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "too_large", errorKind(&feed.FetchError{Kind: feed.KindTooLarge}))
	assert.Equal(t, "missing_required_field", errorKind(&feed.ParseError{Kind: feed.KindMissingRequiredField}))
	assert.Equal(t, "timeout", errorKind(context.DeadlineExceeded))
	assert.Equal(t, "canceled", errorKind(context.Canceled))
	assert.Equal(t, "internal", errorKind(errors.New("boom")))
}
