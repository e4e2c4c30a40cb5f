package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/umputun/feedpipe/pkg/domain"
)

// Parser converts raw payloads into normalized articles
type Parser struct {
	policy *bluemonday.Policy
}

// NewParser creates a new feed parser
func NewParser() *Parser {
	return &Parser{policy: bluemonday.StrictPolicy()}
}

// jsonEntry is an element of a bare JSON array feed
type jsonEntry struct {
	Headline    string `json:"headline"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Link        string `json:"link"`
	PublishedAt string `json:"publishedAt"`
	Published   string `json:"published"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Summary     string `json:"summary"`
	ID          string `json:"id"`
}

// Parse decodes the payload declared as kind. The payload is decoded eagerly, entries are
// converted lazily while the returned sequence is iterated. Entries without a title or link
// are skipped.
func (p *Parser) Parse(payload *domain.RawPayload, kind domain.ParserKind) (iter.Seq[domain.ParsedArticle], error) {
	body := bytes.TrimSpace(payload.Body)
	if len(body) == 0 {
		return nil, &ParseError{Kind: malformedKind(kind), Err: fmt.Errorf("empty payload")}
	}

	if body[0] == '[' {
		if kind != domain.ParserJSON {
			lgr.Printf("[WARN] source=%s declared %s, got json array", payload.Source, kind)
		}
		return p.parseJSONArray(payload, body)
	}

	detected := detectKind(body)
	if detected == "" {
		return nil, &ParseError{Kind: malformedKind(kind), Err: fmt.Errorf("unknown feed format")}
	}
	if detected != kind {
		lgr.Printf("[WARN] source=%s declared %s, detected %s", payload.Source, kind, detected)
	}

	fp := gofeed.NewParser()
	feed, err := fp.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Kind: malformedKind(detected), Err: err}
	}

	return func(yield func(domain.ParsedArticle) bool) {
		for _, item := range feed.Items {
			art, err := p.convertItem(item, feed.Link, payload.FetchedAt)
			if err != nil {
				lgr.Printf("[WARN] source=%s skip entry %q: %v", payload.Source, item.Title, err)
				continue
			}
			if !yield(art) {
				return
			}
		}
	}, nil
}

func (p *Parser) parseJSONArray(payload *domain.RawPayload, body []byte) (iter.Seq[domain.ParsedArticle], error) {
	var entries []jsonEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &ParseError{Kind: KindMalformedJSON, Err: err}
	}

	return func(yield func(domain.ParsedArticle) bool) {
		for _, e := range entries {
			art, err := p.convertJSONEntry(e, payload.FetchedAt)
			if err != nil {
				lgr.Printf("[WARN] source=%s skip entry %q: %v", payload.Source, firstNonEmpty(e.Headline, e.Title), err)
				continue
			}
			if !yield(art) {
				return
			}
		}
	}, nil
}

func (p *Parser) convertItem(item *gofeed.Item, base string, fetchedAt time.Time) (domain.ParsedArticle, error) {
	title := p.plainText(item.Title)
	if title == "" {
		return domain.ParsedArticle{}, &ParseError{Kind: KindMissingRequiredField, Field: "title"}
	}
	link := CanonicalURL(item.Link, base)
	if link == "" {
		return domain.ParsedArticle{}, &ParseError{Kind: KindMissingRequiredField, Field: "link"}
	}

	res := domain.ParsedArticle{
		GUID:        item.GUID,
		Title:       title,
		URL:         link,
		Description: p.plainText(item.Description),
		Published:   normalizeTime(fetchedAt),

		PublishedDefaulted: true,
	}
	if res.GUID == "" {
		res.GUID = link
	}
	if item.Author != nil {
		res.Author = strings.TrimSpace(item.Author.Name)
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		res.Author = strings.TrimSpace(item.Authors[0].Name)
	}

	// parse publish time
	switch {
	case item.PublishedParsed != nil:
		res.Published, res.PublishedDefaulted = normalizeTime(*item.PublishedParsed), false
	case item.UpdatedParsed != nil:
		res.Published, res.PublishedDefaulted = normalizeTime(*item.UpdatedParsed), false
	}
	return res, nil
}

func (p *Parser) convertJSONEntry(e jsonEntry, fetchedAt time.Time) (domain.ParsedArticle, error) {
	title := p.plainText(firstNonEmpty(e.Headline, e.Title))
	if title == "" {
		return domain.ParsedArticle{}, &ParseError{Kind: KindMissingRequiredField, Field: "headline"}
	}
	link := CanonicalURL(firstNonEmpty(e.URL, e.Link), "")
	if link == "" {
		return domain.ParsedArticle{}, &ParseError{Kind: KindMissingRequiredField, Field: "url"}
	}

	res := domain.ParsedArticle{
		GUID:        firstNonEmpty(e.ID, link),
		Title:       title,
		URL:         link,
		Author:      strings.TrimSpace(e.Author),
		Description: p.plainText(firstNonEmpty(e.Description, e.Summary)),
		Published:   normalizeTime(fetchedAt),

		PublishedDefaulted: true,
	}
	if raw := firstNonEmpty(e.PublishedAt, e.Published); raw != "" {
		if ts, err := parseTime(raw); err == nil {
			res.Published, res.PublishedDefaulted = normalizeTime(ts), false
		} else {
			lgr.Printf("[DEBUG] can't parse date %q of %q, using fetch time", raw, title)
		}
	}
	return res, nil
}

// plainText strips markup, unescapes entities and collapses whitespace
func (p *Parser) plainText(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(p.policy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// CanonicalURL resolves a link against base, drops the fragment and lowercases scheme and host.
// Returns empty string for links which can't be made absolute http(s) URLs.
func CanonicalURL(link, base string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if !u.IsAbs() && base != "" {
		if b, err := url.Parse(base); err == nil {
			u = b.ResolveReference(u)
		}
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown time format %q", s)
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func detectKind(body []byte) domain.ParserKind {
	switch gofeed.DetectFeedType(bytes.NewReader(body)) {
	case gofeed.FeedTypeRSS:
		return domain.ParserRSS
	case gofeed.FeedTypeAtom:
		return domain.ParserAtom
	case gofeed.FeedTypeJSON:
		return domain.ParserJSON
	default:
		return ""
	}
}

func malformedKind(kind domain.ParserKind) string {
	if kind == domain.ParserJSON {
		return KindMalformedJSON
	}
	return KindMalformedXML
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
