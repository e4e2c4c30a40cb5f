// Package scheduler triggers ingestion runs for sources whose polling interval has elapsed
// and serves on-demand triggers. A source never has two runs in flight.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/feedpipe/pkg/domain"
)

//go:generate moq -out mocks/source_store.go -pkg mocks -skip-ensure -fmt goimports . SourceStore
//go:generate moq -out mocks/runner.go -pkg mocks -skip-ensure -fmt goimports . Runner

// ErrInFlight is returned by TriggerNow when the source run is already in progress
var ErrInFlight = errors.New("run already in progress")

// ErrDisabled is returned by TriggerNow for disabled sources
var ErrDisabled = errors.New("source disabled")

// SourceStore provides the source registry
type SourceStore interface {
	GetSources(ctx context.Context, enabledOnly bool) ([]domain.Source, error)
	GetSource(ctx context.Context, name string) (*domain.Source, error)
}

// Runner executes ingestion runs
type Runner interface {
	RunOnce(ctx context.Context, src domain.Source) domain.IngestionRun
	RunAll(ctx context.Context, sources []domain.Source) []domain.IngestionRun
}

// Params contains all dependencies and configuration for the scheduler
type Params struct {
	Sources SourceStore
	Runner     Runner
	Tick       time.Duration // how often due sources are checked
	MaxWorkers int           // concurrent scheduled runs
}

// Scheduler manages periodic ingestion
type Scheduler struct {
	sources SourceStore
	runner  Runner
	tick    time.Duration
	now     func() time.Time
	slots   chan struct{} // bounds scheduled runs

	mu       sync.Mutex
	lastRun  map[string]time.Time
	inFlight map[string]bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewScheduler creates a new scheduler instance
func NewScheduler(params Params) *Scheduler {
	if params.Tick == 0 {
		params.Tick = time.Minute
	}
	if params.MaxWorkers <= 0 {
		params.MaxWorkers = 5
	}
	return &Scheduler{
		sources:  params.Sources,
		runner:   params.Runner,
		tick:     params.Tick,
		now:      time.Now,
		slots:    make(chan struct{}, params.MaxWorkers),
		lastRun:  make(map[string]time.Time),
		inFlight: make(map[string]bool),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.ingestWorker(ctx)

	lgr.Printf("[INFO] scheduler started with tick %v", s.tick)
}

// Stop gracefully stops the scheduler, waiting for active runs
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

// TriggerNow runs one source immediately, regardless of its interval
func (s *Scheduler) TriggerNow(ctx context.Context, name string) (domain.IngestionRun, error) {
	src, err := s.sources.GetSource(ctx, name)
	if err != nil {
		return domain.IngestionRun{}, fmt.Errorf("get source: %w", err)
	}
	if !src.Enabled {
		return domain.IngestionRun{}, fmt.Errorf("source %s: %w", name, ErrDisabled)
	}

	claimed := s.claim([]domain.Source{*src}, false)
	if len(claimed) == 0 {
		return domain.IngestionRun{}, fmt.Errorf("source %s: %w", name, ErrInFlight)
	}
	defer s.release(claimed)

	return s.runner.RunOnce(ctx, *src), nil
}

// TriggerAll runs all enabled sources immediately, sources with a run in flight are skipped
func (s *Scheduler) TriggerAll(ctx context.Context) ([]domain.IngestionRun, error) {
	sources, err := s.sources.GetSources(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("get enabled sources: %w", err)
	}
	claimed := s.claim(sources, false)
	if len(claimed) == 0 {
		return []domain.IngestionRun{}, nil
	}
	defer s.release(claimed)
	return s.runner.RunAll(ctx, claimed), nil
}

// ingestWorker periodically runs due sources
func (s *Scheduler) ingestWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	// run immediately on start
	s.runDue(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// runDue starts a run for every enabled source whose interval has elapsed since its last run.
// Each source runs in its own goroutine, so a slow source doesn't hold back the next tick.
func (s *Scheduler) runDue(ctx context.Context) {
	sources, err := s.sources.GetSources(ctx, true)
	if err != nil {
		lgr.Printf("[ERROR] failed to get enabled sources: %v", err)
		return
	}

	due := s.claim(sources, true)
	if len(due) == 0 {
		lgr.Printf("[DEBUG] no sources due, %d enabled", len(sources))
		return
	}

	lgr.Printf("[INFO] ingesting %d of %d sources", len(due), len(sources))
	for _, src := range due {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release([]domain.Source{src})

			select {
			case s.slots <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-s.slots }()
			s.runner.RunOnce(ctx, src)
		}()
	}
}

// claim marks sources as in flight and returns the claimed ones.
// With dueOnly set, sources triggered less than their interval ago are left out.
func (s *Scheduler) claim(sources []domain.Source, dueOnly bool) []domain.Source {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	res := make([]domain.Source, 0, len(sources))
	for _, src := range sources {
		if s.inFlight[src.Name] {
			lgr.Printf("[DEBUG] source=%s run in flight, skipped", src.Name)
			continue
		}
		if last, ok := s.lastRun[src.Name]; dueOnly && ok && now.Sub(last) < src.Interval {
			continue
		}
		s.inFlight[src.Name] = true
		s.lastRun[src.Name] = now
		res = append(res, src)
	}
	return res
}

func (s *Scheduler) release(sources []domain.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, src := range sources {
		delete(s.inFlight, src.Name)
	}
}
