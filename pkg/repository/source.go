package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/umputun/feedpipe/pkg/domain"
)

// SourceRepository handles the source registry
type SourceRepository struct {
	db *sqlx.DB
}

// sourceSQL represents a source for SQL operations
type sourceSQL struct {
	Name        string    `db:"name"`
	Title       string    `db:"title"`
	URL         string    `db:"url"`
	Parser      string    `db:"parser"`
	IntervalSec int64     `db:"interval_sec"`
	Enabled     bool      `db:"enabled"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// NewSourceRepository creates a new source repository
func NewSourceRepository(db *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// SyncSources makes the registry match the configured sources. Sources missing from the
// list are disabled, not removed, so their articles and runs stay referenced.
func (r *SourceRepository) SyncSources(ctx context.Context, sources []domain.Source) error {
	return withLockRetry(ctx, func() error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		query := `
			INSERT INTO sources (name, title, url, parser, interval_sec, enabled, created_at, updated_at)
			VALUES (:name, :title, :url, :parser, :interval_sec, :enabled, :created_at, :updated_at)
			ON CONFLICT(name) DO UPDATE SET
				title = excluded.title,
				url = excluded.url,
				parser = excluded.parser,
				interval_sec = excluded.interval_sec,
				enabled = excluded.enabled,
				updated_at = excluded.updated_at
		`
		now := time.Now().UTC()
		names := make([]string, 0, len(sources))
		for _, s := range sources {
			row := toSourceSQL(s)
			row.CreatedAt, row.UpdatedAt = now, now
			if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
				return fmt.Errorf("upsert source %s: %w", s.Name, err)
			}
			names = append(names, s.Name)
		}

		disable := `UPDATE sources SET enabled = 0, updated_at = ? WHERE enabled = 1`
		args := []any{now}
		if len(names) > 0 {
			q, inArgs, err := sqlx.In(disable+` AND name NOT IN (?)`, now, names)
			if err != nil {
				return fmt.Errorf("build disable query: %w", err)
			}
			disable, args = q, inArgs
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(disable), args...); err != nil {
			return fmt.Errorf("disable removed sources: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit sources: %w", err)
		}
		return nil
	})
}

// GetSources returns registered sources ordered by name
func (r *SourceRepository) GetSources(ctx context.Context, enabledOnly bool) ([]domain.Source, error) {
	query := `SELECT * FROM sources`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY name`

	var rows []sourceSQL
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("get sources: %w", err)
	}

	res := make([]domain.Source, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.toDomain())
	}
	return res, nil
}

// GetSource returns a source by name, domain.ErrNotFound if it isn't registered
func (r *SourceRepository) GetSource(ctx context.Context, name string) (*domain.Source, error) {
	var row sourceSQL
	err := r.db.GetContext(ctx, &row, `SELECT * FROM sources WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", name, err)
	}
	src := row.toDomain()
	return &src, nil
}

func toSourceSQL(s domain.Source) sourceSQL {
	return sourceSQL{
		Name:        s.Name,
		Title:       s.Title,
		URL:         s.URL,
		Parser:      string(s.Parser),
		IntervalSec: int64(s.Interval / time.Second),
		Enabled:     s.Enabled,
	}
}

func (s sourceSQL) toDomain() domain.Source {
	return domain.Source{
		Name:     s.Name,
		Title:    s.Title,
		URL:      s.URL,
		Parser:   domain.ParserKind(s.Parser),
		Interval: time.Duration(s.IntervalSec) * time.Second,
		Enabled:  s.Enabled,
	}
}
