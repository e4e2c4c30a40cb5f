package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/umputun/feedpipe/pkg/domain"
)

// RunRepository handles the append-only ingestion run log
type RunRepository struct {
	db *sqlx.DB
}

// runSQL represents an ingestion run for SQL operations
type runSQL struct {
	ID                string    `db:"id"`
	Source            string    `db:"source"`
	StartedAt         time.Time `db:"started_at"`
	FinishedAt        time.Time `db:"finished_at"`
	ArticlesFetched   int       `db:"articles_fetched"`
	ArticlesNew       int       `db:"articles_new"`
	ArticlesUpdated   int       `db:"articles_updated"`
	ArticlesUnchanged int       `db:"articles_unchanged"`
	ArticlesFailed    int       `db:"articles_failed"`
	Outcome           string    `db:"outcome"`
	FailedStage       string    `db:"failed_stage"`
	ErrorKind         string    `db:"error_kind"`
	Error             string    `db:"error"`
	IndexError        string    `db:"index_error"`
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// AppendRun stores a finished run
func (r *RunRepository) AppendRun(ctx context.Context, run domain.IngestionRun) error {
	row := runSQL{
		ID:                run.ID,
		Source:            run.Source,
		StartedAt:         run.StartedAt.UTC(),
		FinishedAt:        run.FinishedAt.UTC(),
		ArticlesFetched:   run.ArticlesFetched,
		ArticlesNew:       run.ArticlesNew,
		ArticlesUpdated:   run.ArticlesUpdated,
		ArticlesUnchanged: run.ArticlesUnchanged,
		ArticlesFailed:    run.ArticlesFailed,
		Outcome:           string(run.Outcome),
		FailedStage:       string(run.FailedStage),
		ErrorKind:         run.ErrorKind,
		Error:             run.Error,
		IndexError:        run.IndexError,
	}

	query := `
		INSERT INTO ingestion_runs (
			id, source, started_at, finished_at, articles_fetched, articles_new, articles_updated,
			articles_unchanged, articles_failed, outcome, failed_stage, error_kind, error, index_error
		) VALUES (
			:id, :source, :started_at, :finished_at, :articles_fetched, :articles_new, :articles_updated,
			:articles_unchanged, :articles_failed, :outcome, :failed_stage, :error_kind, :error, :index_error
		)
	`
	return withLockRetry(ctx, func() error {
		if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("append run %s: %w", run.ID, err)
		}
		return nil
	})
}

// ListRuns returns recent runs, newest first, optionally filtered by source
func (r *RunRepository) ListRuns(ctx context.Context, source string, limit int) ([]domain.IngestionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT * FROM ingestion_runs`
	args := []any{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	var rows []runSQL
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	res := make([]domain.IngestionRun, 0, len(rows))
	for _, row := range rows {
		res = append(res, domain.IngestionRun{
			ID:                row.ID,
			Source:            row.Source,
			StartedAt:         row.StartedAt.UTC(),
			FinishedAt:        row.FinishedAt.UTC(),
			ArticlesFetched:   row.ArticlesFetched,
			ArticlesNew:       row.ArticlesNew,
			ArticlesUpdated:   row.ArticlesUpdated,
			ArticlesUnchanged: row.ArticlesUnchanged,
			ArticlesFailed:    row.ArticlesFailed,
			Outcome:           domain.Outcome(row.Outcome),
			FailedStage:       domain.Stage(row.FailedStage),
			ErrorKind:         row.ErrorKind,
			Error:             row.Error,
			IndexError:        row.IndexError,
		})
	}
	return res, nil
}
