package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedpipe/pkg/domain"
)

// setupTestDB creates in-memory repositories with registered test sources
func setupTestDB(t *testing.T, sources ...string) (repos *Repositories, cleanup func()) {
	t.Helper()
	cfg := Config{
		DSN:             ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Second,
	}
	repos, err := NewRepositories(context.Background(), cfg)
	require.NoError(t, err)

	if len(sources) > 0 {
		srcs := make([]domain.Source, 0, len(sources))
		for _, name := range sources {
			srcs = append(srcs, domain.Source{Name: name, Title: name, URL: "https://" + name + ".example.com/rss",
				Parser: domain.ParserRSS, Interval: time.Minute, Enabled: true})
		}
		require.NoError(t, repos.Source.SyncSources(context.Background(), srcs))
	}

	return repos, func() { assert.NoError(t, repos.Close()) }
}

func TestRepositories_Integration(t *testing.T) {
	repos, cleanup := setupTestDB(t, "borsen")
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repos.Ping(ctx))

	article := &domain.Article{Source: "borsen", Fingerprint: "fp1", Title: "Title", URL: "https://borsen.example.com/1",
		Published: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	require.NoError(t, repos.Article.UpsertArticle(ctx, article))
	assert.NotZero(t, article.ID)

	require.NoError(t, repos.Search.IndexArticles(ctx, []domain.SearchDocument{domain.NewSearchDocument(*article, "Børsen")}))
	docs, err := repos.Search.Search(ctx, "title", 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, article.ID, docs[0].ID)

	run := domain.IngestionRun{ID: "run-1", Source: "borsen", StartedAt: time.Now(), FinishedAt: time.Now(),
		Outcome: domain.OutcomeSuccess, ArticlesNew: 1}
	require.NoError(t, repos.Run.AppendRun(ctx, run))
	runs, err := repos.Run.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestNewRepositories_InvalidDSN(t *testing.T) {
	cfg := Config{
		DSN: "invalid://database/url",
	}

	_, err := NewRepositories(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRepositories_Close(t *testing.T) {
	cfg := Config{
		DSN:             ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Second,
	}

	repos, err := NewRepositories(context.Background(), cfg)
	require.NoError(t, err)

	// close should not error
	assert.NoError(t, repos.Close())

	// second close should not error
	assert.NoError(t, repos.Close())
}

func TestWithLockRetry(t *testing.T) {
	t.Run("retries lock errors", func(t *testing.T) {
		calls := 0
		err := withLockRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("SQLITE_BUSY: database is locked")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on other errors", func(t *testing.T) {
		calls := 0
		origErr := errors.New("constraint failed")
		err := withLockRetry(context.Background(), func() error {
			calls++
			return fmt.Errorf("insert: %w", origErr)
		})
		require.ErrorIs(t, err, origErr)
		assert.Equal(t, 1, calls)
		var ce *criticalError
		assert.False(t, errors.As(err, &ce), "critical wrapper is removed")
	})
}

func TestIsLockError(t *testing.T) {
	assert.True(t, isLockError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, isLockError(errors.New("database table is locked")))
	assert.False(t, isLockError(errors.New("no such table")))
	assert.False(t, isLockError(nil))
}
