package server

import (
	"context"

	"github.com/umputun/feedpipe/pkg/domain"
	"github.com/umputun/feedpipe/pkg/repository"
)

// RepositoryAdapter adapts repositories to server.Database interface
type RepositoryAdapter struct {
	repos *repository.Repositories
}

// NewRepositoryAdapter creates a new repository adapter
func NewRepositoryAdapter(repos *repository.Repositories) *RepositoryAdapter {
	return &RepositoryAdapter{repos: repos}
}

// GetSources returns sources from the registry
func (r *RepositoryAdapter) GetSources(ctx context.Context, enabledOnly bool) ([]domain.Source, error) {
	return r.repos.Source.GetSources(ctx, enabledOnly)
}

// ListRuns returns recent runs, all sources when source is empty
func (r *RepositoryAdapter) ListRuns(ctx context.Context, source string, limit int) ([]domain.IngestionRun, error) {
	return r.repos.Run.ListRuns(ctx, source, limit)
}

// Search queries the full-text index
func (r *RepositoryAdapter) Search(ctx context.Context, query string, limit int) ([]domain.SearchDocument, error) {
	return r.repos.Search.Search(ctx, query, limit)
}
