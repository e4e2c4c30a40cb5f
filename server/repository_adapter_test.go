package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedpipe/pkg/domain"
	"github.com/umputun/feedpipe/pkg/repository"
)

func TestRepositoryAdapter(t *testing.T) {
	ctx := context.Background()
	repos, err := repository.NewRepositories(ctx, repository.Config{DSN: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	defer repos.Close()

	require.NoError(t, repos.Source.SyncSources(ctx, []domain.Source{
		{Name: "hn", URL: "https://news.example.com/rss", Parser: domain.ParserRSS, Interval: time.Minute, Enabled: true},
		{Name: "lwn", URL: "https://lwn.example.com/atom", Parser: domain.ParserAtom, Interval: time.Hour, Enabled: true},
	}))

	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, src := range []string{"hn", "lwn", "hn"} {
		require.NoError(t, repos.Run.AppendRun(ctx, domain.IngestionRun{ID: src + string(rune('a'+i)), Source: src,
			StartedAt: started.Add(time.Duration(i) * time.Minute), FinishedAt: started.Add(time.Duration(i)*time.Minute + time.Second),
			Outcome: domain.OutcomeSuccess}))
	}
	require.NoError(t, repos.Search.IndexArticles(ctx, []domain.SearchDocument{
		{ID: 1, Title: "Kernel release notes", SourceName: "lwn", URL: "https://lwn.example.com/1", Published: started},
	}))

	adapter := NewRepositoryAdapter(repos)

	sources, err := adapter.GetSources(ctx, true)
	require.NoError(t, err)
	assert.Len(t, sources, 2)

	runs, err := adapter.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "hnc", runs[0].ID, "newest first")

	runs, err = adapter.ListRuns(ctx, "hn", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	docs, err := adapter.Search(ctx, "kernel", 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(1), docs[0].ID)
}
