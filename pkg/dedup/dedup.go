// Package dedup classifies parsed articles as new, updated or unchanged against
// the article store, using a content fingerprint per source.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"
	"unicode"

	"github.com/go-pkgz/lgr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/umputun/feedpipe/pkg/domain"
)

//go:generate moq -out mocks/article_store.go -pkg mocks -skip-ensure -fmt goimports . ArticleStore
//go:generate moq -out mocks/cache.go -pkg mocks -skip-ensure -fmt goimports . Cache

// ArticleStore looks up stored articles
type ArticleStore interface {
	GetArticle(ctx context.Context, source, fingerprint string) (*domain.Article, error)
}

// Cache keeps content digests of known articles, keyed by source and fingerprint
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Mode selects the fields used for the fingerprint
type Mode string

// fingerprint modes
const (
	ModeFull Mode = "full" // normalized title, canonical url and publication date
	ModeURL  Mode = "url"  // canonical url only
)

// Config holds deduplicator dependencies
type Config struct {
	Store ArticleStore
	Cache Cache // optional
	Mode  Mode
}

// Deduplicator reconciles parsed articles with stored ones
type Deduplicator struct {
	store ArticleStore
	cache Cache
	mode  Mode
}

// Result is the classification of one payload
type Result struct {
	New       []domain.Article
	Updated   []domain.Article // carry ID and CreatedAt of the stored row
	Unchanged int
}

// New makes a deduplicator
func New(cfg Config) *Deduplicator {
	if cfg.Mode == "" {
		cfg.Mode = ModeFull
	}
	return &Deduplicator{store: cfg.Store, cache: cfg.Cache, mode: cfg.Mode}
}

// Reconcile consumes the sequence and classifies each article. Duplicates inside the
// sequence are dropped, the first occurrence wins. Store errors abort the reconciliation.
func (d *Deduplicator) Reconcile(ctx context.Context, source string, seq iter.Seq[domain.ParsedArticle]) (Result, error) {
	var res Result
	seen := map[string]bool{}

	for art := range seq {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		fp := Fingerprint(d.mode, art)
		if seen[fp] {
			continue
		}
		seen[fp] = true

		cand := newArticle(source, fp, art)
		digest := contentDigest(cand)
		if d.cachedDigest(ctx, source, fp) == digest {
			res.Unchanged++
			continue
		}

		stored, err := d.store.GetArticle(ctx, source, fp)
		if errors.Is(err, domain.ErrNotFound) {
			res.New = append(res.New, cand)
			continue
		}
		if err != nil {
			return Result{}, fmt.Errorf("lookup article %s/%s: %w", source, fp, err)
		}

		if sameContent(*stored, cand) {
			res.Unchanged++
			d.remember(ctx, source, fp, digest)
			continue
		}

		cand.ID = stored.ID
		cand.CreatedAt = stored.CreatedAt
		if cand.PublishedDefaulted {
			cand.Published = stored.Published
		}
		res.Updated = append(res.Updated, cand)
	}

	return res, nil
}

// Remember stores digests of persisted articles, so the next payload can skip store lookups
func (d *Deduplicator) Remember(ctx context.Context, articles []domain.Article) {
	for _, a := range articles {
		d.remember(ctx, a.Source, a.Fingerprint, contentDigest(a))
	}
}

func (d *Deduplicator) cachedDigest(ctx context.Context, source, fp string) string {
	if d.cache == nil {
		return ""
	}
	val, found, err := d.cache.Get(ctx, cacheKey(source, fp))
	if err != nil {
		lgr.Printf("[WARN] fingerprint cache get for source=%s: %v", source, err)
		return ""
	}
	if !found {
		return ""
	}
	return val
}

func (d *Deduplicator) remember(ctx context.Context, source, fp, digest string) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Set(ctx, cacheKey(source, fp), digest); err != nil {
		lgr.Printf("[WARN] fingerprint cache set for source=%s: %v", source, err)
	}
}

func newArticle(source, fp string, art domain.ParsedArticle) domain.Article {
	return domain.Article{
		Source:      source,
		Fingerprint: fp,
		Title:       art.Title,
		URL:         art.URL,
		Author:      art.Author,
		Description: art.Description,
		Published:   art.Published,

		PublishedDefaulted: art.PublishedDefaulted,
	}
}

// sameContent compares the mutable fields, a defaulted publication date is ignored
func sameContent(stored, cand domain.Article) bool {
	if stored.Title != cand.Title || stored.Description != cand.Description || stored.Author != cand.Author {
		return false
	}
	return cand.PublishedDefaulted || stored.Published.Equal(cand.Published)
}

// Fingerprint returns the hex SHA-256 identity of the article in the given mode.
// A publication date defaulted to the fetch time is left out, it changes on every poll.
func Fingerprint(mode Mode, art domain.ParsedArticle) string {
	var key string
	switch {
	case mode == ModeURL:
		key = art.URL
	case art.PublishedDefaulted:
		key = strings.Join([]string{NormalizeTitle(art.Title), art.URL}, "\n")
	default:
		key = strings.Join([]string{NormalizeTitle(art.Title), art.URL, art.Published.UTC().Format(time.RFC3339)}, "\n")
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// NormalizeTitle lowercases, strips diacritics and punctuation and collapses whitespace.
// Safe for concurrent use, transform chains are stateful so each call makes its own.
func NormalizeTitle(title string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(stripMarks, strings.ToLower(title))
	if err != nil {
		s = strings.ToLower(title)
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// contentDigest hashes the fields sameContent compares
func contentDigest(a domain.Article) string {
	published := ""
	if !a.PublishedDefaulted {
		published = a.Published.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{a.Title, a.Description, a.Author, published}, "\x00")))
	return hex.EncodeToString(sum[:16])
}

func cacheKey(source, fp string) string {
	return "fp:" + source + ":" + fp
}
