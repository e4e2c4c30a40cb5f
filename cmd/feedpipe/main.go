package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/feedpipe/pkg/breaker"
	"github.com/umputun/feedpipe/pkg/cache"
	"github.com/umputun/feedpipe/pkg/config"
	"github.com/umputun/feedpipe/pkg/dedup"
	"github.com/umputun/feedpipe/pkg/domain"
	"github.com/umputun/feedpipe/pkg/feed"
	"github.com/umputun/feedpipe/pkg/ingest"
	"github.com/umputun/feedpipe/pkg/metrics"
	"github.com/umputun/feedpipe/pkg/repository"
	"github.com/umputun/feedpipe/pkg/scheduler"
	"github.com/umputun/feedpipe/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"feedpipe.yml" description:"configuration file"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`
	Once   bool   `long:"once" description:"ingest all enabled sources once and exit"`

	// common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	if opts.NoColor {
		color.NoColor = true
	}
	SetupLog(opts.Debug)

	log.Printf("[INFO] starting feedpipe version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()

	if err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run wires all components and blocks until ctx is canceled, or until the single pass is done in once mode
func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	if secs := logSecrets(cfg); len(secs) > 0 {
		SetupLog(opts.Debug, secs...)
	}

	repos, err := repository.NewRepositories(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			log.Printf("[WARN] failed to close database: %v", err)
		}
	}()

	sources := cfg.DomainSources()
	if err := repos.Source.SyncSources(ctx, sources); err != nil {
		return fmt.Errorf("failed to sync sources: %w", err)
	}
	log.Printf("[INFO] registered %d sources", len(sources))

	fpCache, closeCache, err := makeCache(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to make cache: %w", err)
	}
	defer closeCache()

	stats := metrics.New()
	breakers := breaker.New(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Window:           cfg.Breaker.Window,
		Cooldown:         cfg.Breaker.Cooldown,
	}, breaker.WithObserver(stats))

	fetcher := feed.NewFetcher(feed.FetcherConfig{
		Timeout:       cfg.Fetch.Timeout,
		Retries:       cfg.Fetch.Retries,
		RetryDelay:    cfg.Fetch.RetryDelay,
		MaxRetryDelay: cfg.Fetch.MaxRetryDelay,
		MaxSize:       cfg.Fetch.MaxSize,
		UserAgent:     cfg.Fetch.UserAgent,
		Reporter:      breakers,
	})

	orchestrator := ingest.New(ingest.Config{
		Gate:       breakers,
		Fetcher:    fetcher,
		Parser:     feed.NewParser(),
		Reconciler: dedup.New(dedup.Config{Store: repos.Article, Cache: fpCache, Mode: dedup.Mode(cfg.Dedup.Fingerprint)}),
		Articles:   repos.Article,
		Indexer:    repos.Search,
		Runs:       repos.Run,
		Metrics:    stats,
		MaxWorkers: cfg.Schedule.MaxWorkers,
		RunTimeout: cfg.Schedule.RunTimeout,
	})

	sched := scheduler.NewScheduler(scheduler.Params{
		Sources:    repos.Source,
		Runner:     orchestrator,
		Tick:       cfg.Schedule.Tick,
		MaxWorkers: cfg.Schedule.MaxWorkers,
	})

	if opts.Once {
		runs, err := sched.TriggerAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to run ingestion: %w", err)
		}
		reportRuns(runs)
		return nil
	}

	sched.Start(ctx)
	defer sched.Stop()

	srv := server.New(cfg, server.NewRepositoryAdapter(repos), sched, breakers, stats.Handler(), revision, opts.Debug)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// makeCache returns the fingerprint cache for the configured backend, nil for none
func makeCache(ctx context.Context, cfg config.CacheConfig) (dedup.Cache, func(), error) {
	noop := func() {}
	switch cfg.Type {
	case "", "none":
		return nil, noop, nil
	case "memory":
		c := cache.NewMemory(cache.MemoryOpts{TTL: cfg.TTL, MaxKeys: cfg.MaxKeys})
		return c, func() { _ = c.Close() }, nil
	case "redis":
		c, err := cache.NewRedis(ctx, cache.RedisOpts{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB, TTL: cfg.TTL})
		if err != nil {
			return nil, noop, err
		}
		log.Printf("[INFO] using redis cache at %s", cfg.Addr)
		return c, func() {
			if err := c.Close(); err != nil {
				log.Printf("[WARN] failed to close redis cache: %v", err)
			}
		}, nil
	default:
		return nil, noop, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}

// logSecrets returns non-empty config values to be masked in logs
func logSecrets(cfg *config.Config) []string {
	var res []string
	if cfg.Cache.Password != "" {
		res = append(res, cfg.Cache.Password)
	}
	return res
}

// reportRuns prints a one-line summary per run in once mode
func reportRuns(runs []domain.IngestionRun) {
	for _, r := range runs {
		line := fmt.Sprintf("%-20s %-8s new=%d updated=%d unchanged=%d failed=%d in %v",
			r.Source, r.Outcome, r.ArticlesNew, r.ArticlesUpdated, r.ArticlesUnchanged, r.ArticlesFailed,
			r.Duration().Round(time.Millisecond))
		if r.FailedStage != "" {
			line += fmt.Sprintf(", failed at %s: %s", r.FailedStage, r.ErrorKind)
		}
		fmt.Println(line)
	}
}

// SetupLog configures lgr and redirects std log to it
func SetupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
