// Package ingest runs the per-source ingestion pipeline: breaker gate, fetch, parse,
// reconcile, persist and index. Sources are processed concurrently by a bounded pool,
// stages of one source run sequentially and a failure never leaves its source pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/feedpipe/pkg/dedup"
	"github.com/umputun/feedpipe/pkg/domain"
)

//go:generate moq -out mocks/gate.go -pkg mocks -skip-ensure -fmt goimports . Gate
//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher
//go:generate moq -out mocks/parser.go -pkg mocks -skip-ensure -fmt goimports . Parser
//go:generate moq -out mocks/reconciler.go -pkg mocks -skip-ensure -fmt goimports . Reconciler
//go:generate moq -out mocks/article_writer.go -pkg mocks -skip-ensure -fmt goimports . ArticleWriter
//go:generate moq -out mocks/indexer.go -pkg mocks -skip-ensure -fmt goimports . Indexer
//go:generate moq -out mocks/run_log.go -pkg mocks -skip-ensure -fmt goimports . RunLog
//go:generate moq -out mocks/run_observer.go -pkg mocks -skip-ensure -fmt goimports . RunObserver

// Gate decides whether a source may be fetched, the circuit breaker
type Gate interface {
	Allow(source string) bool
}

// Fetcher retrieves raw payloads
type Fetcher interface {
	Fetch(ctx context.Context, src domain.Source) (*domain.RawPayload, error)
}

// Parser decodes payloads into articles
type Parser interface {
	Parse(payload *domain.RawPayload, kind domain.ParserKind) (iter.Seq[domain.ParsedArticle], error)
}

// Reconciler classifies parsed articles against stored ones
type Reconciler interface {
	Reconcile(ctx context.Context, source string, seq iter.Seq[domain.ParsedArticle]) (dedup.Result, error)
	Remember(ctx context.Context, articles []domain.Article)
}

// ArticleWriter persists articles
type ArticleWriter interface {
	UpsertArticle(ctx context.Context, article *domain.Article) error
}

// Indexer sends persisted articles to the search index
type Indexer interface {
	IndexArticles(ctx context.Context, docs []domain.SearchDocument) error
}

// RunLog stores finished runs
type RunLog interface {
	AppendRun(ctx context.Context, run domain.IngestionRun) error
}

// RunObserver receives every finished run, used for metrics
type RunObserver interface {
	ObserveRun(run domain.IngestionRun)
}

// Config holds orchestrator dependencies and limits
type Config struct {
	Gate       Gate
	Fetcher    Fetcher
	Parser     Parser
	Reconciler Reconciler
	Articles   ArticleWriter
	Indexer    Indexer // optional
	Runs       RunLog      // optional
	Metrics    RunObserver // optional
	MaxWorkers int
	RunTimeout time.Duration
}

// Orchestrator drives ingestion runs
type Orchestrator struct {
	gate       Gate
	fetcher    Fetcher
	parser     Parser
	reconciler Reconciler
	articles   ArticleWriter
	indexer    Indexer
	runs       RunLog
	metrics    RunObserver
	maxWorkers int
	runTimeout time.Duration
	newID      func() string
	now        func() time.Time
}

// errorKinded is implemented by fetch and parse errors
type errorKinded interface {
	ErrorKind() string
}

// New makes an orchestrator
func New(cfg Config) *Orchestrator {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 5
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	return &Orchestrator{
		gate:       cfg.Gate,
		fetcher:    cfg.Fetcher,
		parser:     cfg.Parser,
		reconciler: cfg.Reconciler,
		articles:   cfg.Articles,
		indexer:    cfg.Indexer,
		runs:       cfg.Runs,
		metrics:    cfg.Metrics,
		maxWorkers: cfg.MaxWorkers,
		runTimeout: cfg.RunTimeout,
		newID:      uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RunAll runs all sources concurrently, at most MaxWorkers at a time.
// Results are in the order of sources, one run per source.
func (o *Orchestrator) RunAll(ctx context.Context, sources []domain.Source) []domain.IngestionRun {
	res := make([]domain.IngestionRun, len(sources))
	var g errgroup.Group
	g.SetLimit(o.maxWorkers)

	for i, src := range sources {
		g.Go(func() error {
			res[i] = o.RunOnce(ctx, src)
			return nil
		})
	}
	_ = g.Wait() // runs never return errors

	var failed, skipped int
	for _, r := range res {
		switch r.Outcome {
		case domain.OutcomeFailed:
			failed++
		case domain.OutcomeSkipped:
			skipped++
		}
	}
	lgr.Printf("[INFO] ingestion of %d sources completed, failed %d, skipped %d", len(sources), failed, skipped)
	return res
}

// RunOnce runs the pipeline for one source and records the run. It never fails,
// the outcome and the failed stage are reported in the returned run.
func (o *Orchestrator) RunOnce(ctx context.Context, src domain.Source) domain.IngestionRun {
	run := domain.IngestionRun{ID: o.newID(), Source: src.Name, StartedAt: o.now()}

	runCtx, cancel := context.WithTimeout(ctx, o.runTimeout)
	defer cancel()
	stage := o.execute(runCtx, src, &run)

	run.FinishedAt = o.now()
	lgr.Printf("[INFO] run=%s source=%s stage=%s outcome=%s fetched=%d new=%d updated=%d unchanged=%d failed=%d in %v",
		run.ID, run.Source, stage, run.Outcome, run.ArticlesFetched, run.ArticlesNew, run.ArticlesUpdated,
		run.ArticlesUnchanged, run.ArticlesFailed, run.Duration())

	if o.metrics != nil {
		o.metrics.ObserveRun(run)
	}
	o.appendRun(ctx, run)
	return run
}

// execute walks the stages, returns the final one
func (o *Orchestrator) execute(ctx context.Context, src domain.Source, run *domain.IngestionRun) domain.Stage {
	fail := func(stage domain.Stage, err error) domain.Stage {
		run.Outcome = domain.OutcomeFailed
		run.FailedStage = stage
		run.ErrorKind = errorKind(err)
		run.Error = err.Error()
		lgr.Printf("[WARN] run=%s source=%s stage=%s kind=%s: %v", run.ID, src.Name, stage, run.ErrorKind, err)
		return domain.StageFailed
	}

	// fetch_gated
	if o.gate != nil && !o.gate.Allow(src.Name) {
		run.Outcome = domain.OutcomeSkipped
		lgr.Printf("[INFO] run=%s source=%s skipped, circuit open", run.ID, src.Name)
		return domain.StageFetchGated
	}

	payload, err := o.fetcher.Fetch(ctx, src)
	if err != nil {
		return fail(domain.StageFetching, err)
	}

	seq, err := o.parser.Parse(payload, src.Parser)
	if err != nil {
		return fail(domain.StageParsing, err)
	}

	fetched := 0
	counted := func(yield func(domain.ParsedArticle) bool) {
		for a := range seq {
			fetched++
			if !yield(a) {
				return
			}
		}
	}
	result, err := o.reconciler.Reconcile(ctx, src.Name, counted)
	run.ArticlesFetched = fetched
	if err != nil {
		return fail(domain.StageReconciling, err)
	}
	run.ArticlesUnchanged = result.Unchanged

	// nothing is written once the run is canceled or timed out
	if err := ctx.Err(); err != nil {
		return fail(domain.StagePersisting, err)
	}

	persisted, lastErr := o.persist(ctx, run, result)
	total := len(result.New) + len(result.Updated)
	switch {
	case total > 0 && run.ArticlesFailed == total:
		return fail(domain.StagePersisting, fmt.Errorf("all %d articles failed: %w", total, lastErr))
	case run.ArticlesFailed > 0:
		run.Outcome = domain.OutcomePartial
	default:
		run.Outcome = domain.OutcomeSuccess
	}
	o.reconciler.Remember(ctx, persisted)

	if err := o.index(ctx, src, persisted); err != nil {
		run.IndexError = err.Error()
		lgr.Printf("[WARN] run=%s source=%s stage=%s: %v", run.ID, src.Name, domain.StageIndexing, err)
	}
	return domain.StageCompleted
}

// persist upserts new and updated articles one by one, failures are counted and logged
func (o *Orchestrator) persist(ctx context.Context, run *domain.IngestionRun, result dedup.Result) (persisted []domain.Article, lastErr error) {
	save := func(a domain.Article) bool {
		if err := o.articles.UpsertArticle(ctx, &a); err != nil {
			run.ArticlesFailed++
			lastErr = err
			lgr.Printf("[WARN] run=%s source=%s can't save article %q: %v", run.ID, run.Source, a.Title, err)
			return false
		}
		persisted = append(persisted, a)
		return true
	}

	for _, a := range result.New {
		if save(a) {
			run.ArticlesNew++
		}
	}
	for _, a := range result.Updated {
		if save(a) {
			run.ArticlesUpdated++
		}
	}
	return persisted, lastErr
}

func (o *Orchestrator) index(ctx context.Context, src domain.Source, articles []domain.Article) error {
	if o.indexer == nil || len(articles) == 0 {
		return nil
	}
	docs := make([]domain.SearchDocument, 0, len(articles))
	for _, a := range articles {
		docs = append(docs, domain.NewSearchDocument(a, src.DisplayName()))
	}
	return o.indexer.IndexArticles(ctx, docs)
}

// appendRun records the run even if the run context is already canceled
func (o *Orchestrator) appendRun(ctx context.Context, run domain.IngestionRun) {
	if o.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.runs.AppendRun(ctx, run); err != nil {
		lgr.Printf("[ERROR] run=%s source=%s can't record run: %v", run.ID, run.Source, err)
	}
}

func errorKind(err error) string {
	var k errorKinded
	switch {
	case errors.As(err, &k):
		return k.ErrorKind()
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
