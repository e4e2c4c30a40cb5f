package domain

import "time"

// ParserKind identifies the feed format a source publishes
type ParserKind string

// supported parser kinds
const (
	ParserRSS  ParserKind = "rss"
	ParserAtom ParserKind = "atom"
	ParserJSON ParserKind = "json"
)

// Valid reports whether the kind is one of the supported formats
func (k ParserKind) Valid() bool {
	switch k {
	case ParserRSS, ParserAtom, ParserJSON:
		return true
	}
	return false
}

// Source represents an upstream feed provider
type Source struct {
	Name     string // identity, unique symbol of the source
	Title    string // display name
	URL      string
	Parser   ParserKind
	Interval time.Duration // polling interval
	Enabled  bool
}

// DisplayName returns the human-readable name of the source
func (s Source) DisplayName() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}

// RawPayload is the body of a single successful fetch, discarded after parsing
type RawPayload struct {
	Source      string
	Body        []byte
	ContentType string
	StatusCode  int
	FetchedAt   time.Time
}
