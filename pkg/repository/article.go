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

// ArticleRepository handles article persistence
type ArticleRepository struct {
	db *sqlx.DB
}

// articleSQL represents an article for SQL operations
type articleSQL struct {
	ID          int64     `db:"id"`
	Source      string    `db:"source"`
	Fingerprint string    `db:"fingerprint"`
	Title       string    `db:"title"`
	URL         string    `db:"url"`
	Author      string    `db:"author"`
	Description string    `db:"description"`
	Published   time.Time `db:"published"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// GetArticle returns the article by source and fingerprint, domain.ErrNotFound if absent
func (r *ArticleRepository) GetArticle(ctx context.Context, source, fingerprint string) (*domain.Article, error) {
	var row articleSQL
	err := r.db.GetContext(ctx, &row, `SELECT * FROM articles WHERE source = ? AND fingerprint = ?`, source, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	res := row.toDomain()
	return &res, nil
}

// UpsertArticle inserts the article or updates the stored one with the same source and
// fingerprint. created_at of an existing row is never changed. ID, CreatedAt and UpdatedAt
// of the passed article are set from the stored row.
func (r *ArticleRepository) UpsertArticle(ctx context.Context, article *domain.Article) error {
	now := time.Now().UTC()
	row := articleSQL{
		Source:      article.Source,
		Fingerprint: article.Fingerprint,
		Title:       article.Title,
		URL:         article.URL,
		Author:      article.Author,
		Description: article.Description,
		Published:   article.Published.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `
		INSERT INTO articles (source, fingerprint, title, url, author, description, published, created_at, updated_at)
		VALUES (:source, :fingerprint, :title, :url, :author, :description, :published, :created_at, :updated_at)
		ON CONFLICT(source, fingerprint) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			author = excluded.author,
			description = excluded.description,
			published = excluded.published,
			updated_at = excluded.updated_at
	`

	var stored articleSQL
	err := withLockRetry(ctx, func() error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("upsert article: %w", err)
		}
		if err := tx.GetContext(ctx, &stored, `SELECT * FROM articles WHERE source = ? AND fingerprint = ?`,
			row.Source, row.Fingerprint); err != nil {
			return fmt.Errorf("read upserted article: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return err
	}

	article.ID = stored.ID
	article.CreatedAt = stored.CreatedAt.UTC()
	article.UpdatedAt = stored.UpdatedAt.UTC()
	return nil
}

// ListArticles returns latest articles, optionally filtered by source
func (r *ArticleRepository) ListArticles(ctx context.Context, source string, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT * FROM articles`
	args := []any{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY published DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var rows []articleSQL
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	res := make([]domain.Article, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.toDomain())
	}
	return res, nil
}

func (a articleSQL) toDomain() domain.Article {
	return domain.Article{
		ID:          a.ID,
		Source:      a.Source,
		Fingerprint: a.Fingerprint,
		Title:       a.Title,
		URL:         a.URL,
		Author:      a.Author,
		Description: a.Description,
		Published:   a.Published.UTC(),
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}
