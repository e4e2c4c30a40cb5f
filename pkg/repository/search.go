package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/umputun/feedpipe/pkg/domain"
)

// SearchRepository maintains the full-text search index of articles
type SearchRepository struct {
	db *sqlx.DB
}

// searchSQL is a row of the FTS table, unindexed columns are stored as RFC3339 text
type searchSQL struct {
	ID          int64  `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Author      string `db:"author"`
	SourceName  string `db:"source_name"`
	URL         string `db:"url"`
	Published   string `db:"published"`
	CreatedAt   string `db:"created_at"`
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(db *sqlx.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// IndexArticles upserts documents into the index in a single transaction
func (r *SearchRepository) IndexArticles(ctx context.Context, docs []domain.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}
	return withLockRetry(ctx, func() error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, d := range docs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM articles_fts WHERE rowid = ?`, d.ID); err != nil {
				return fmt.Errorf("remove indexed article %d: %w", d.ID, err)
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO articles_fts (rowid, title, description, author, source_name, url, published, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				d.ID, d.Title, d.Description, d.Author, d.SourceName, d.URL,
				d.Published.UTC().Format(time.RFC3339), d.CreatedAt.UTC().Format(time.RFC3339))
			if err != nil {
				return fmt.Errorf("index article %d: %w", d.ID, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit index: %w", err)
		}
		return nil
	})
}

// Search returns documents matching all words of the query, best matches first
func (r *SearchRepository) Search(ctx context.Context, query string, limit int) ([]domain.SearchDocument, error) {
	match := ftsQuery(query)
	if match == "" {
		return []domain.SearchDocument{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var rows []searchSQL
	err := r.db.SelectContext(ctx, &rows, `
		SELECT rowid AS id, title, description, author, source_name, url, published, created_at
		FROM articles_fts
		WHERE articles_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	res := make([]domain.SearchDocument, 0, len(rows))
	for _, row := range rows {
		published, _ := time.Parse(time.RFC3339, row.Published)
		createdAt, _ := time.Parse(time.RFC3339, row.CreatedAt)
		res = append(res, domain.SearchDocument{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			Author:      row.Author,
			SourceName:  row.SourceName,
			URL:         row.URL,
			Published:   published.UTC(),
			CreatedAt:   createdAt.UTC(),
		})
	}
	return res, nil
}

// ftsQuery quotes each word of the user query, so FTS5 syntax characters are matched literally
func ftsQuery(q string) string {
	words := strings.Fields(q)
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
	}
	return strings.Join(words, " ")
}
