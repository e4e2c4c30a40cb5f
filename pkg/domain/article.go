package domain

import "time"

// ParsedArticle is a normalized feed entry produced by the parser
type ParsedArticle struct {
	GUID        string
	Title       string
	URL         string // canonical
	Author      string
	Description string
	Published   time.Time // always UTC
	// PublishedDefaulted is set when the entry had no usable date and Published is the fetch time
	PublishedDefaulted bool
}

// Article is a stored article, unique by (Source, Fingerprint)
type Article struct {
	ID          int64
	Source      string
	Fingerprint string
	Title       string
	URL         string
	Author      string
	Description string
	Published   time.Time
	CreatedAt   time.Time // set on first insert only
	UpdatedAt   time.Time

	PublishedDefaulted bool // not stored, see ParsedArticle
}

// SearchDocument is the article projection sent to the search index
type SearchDocument struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Published   time.Time `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	SourceName  string    `json:"source_name"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	URL         string    `json:"url"`
}

// NewSearchDocument makes the index projection of a stored article
func NewSearchDocument(a Article, sourceName string) SearchDocument {
	return SearchDocument{
		ID:          a.ID,
		Title:       a.Title,
		Published:   a.Published,
		CreatedAt:   a.CreatedAt,
		SourceName:  sourceName,
		Description: a.Description,
		Author:      a.Author,
		URL:         a.URL,
	}
}
