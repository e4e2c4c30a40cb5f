package feed

import (
	"math/rand"
	"net/http"

	"github.com/umputun/feedpipe/pkg/domain"
)

// acceptLanguages contains common browser Accept-Language values
var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"da-DK,da;q=0.9,en;q=0.8",
	"en-US,en;q=0.9,de;q=0.8",
	"en-US,en;q=0.9,fr;q=0.8",
}

// addBrowserHeaders adds browser-like headers for feed fetching,
// some publishers reject requests without them
func addBrowserHeaders(req *http.Request, kind domain.ParserKind) {
	switch kind {
	case domain.ParserJSON:
		req.Header.Set("Accept", "application/feed+json,application/json;q=0.9,*/*;q=0.5")
	default:
		req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,text/html;q=0.7,*/*;q=0.5")
	}
	req.Header.Set("Cache-Control", "no-cache")

	// randomized language
	req.Header.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))]) //nolint:gosec // non-cryptographic randomness is fine for header variation

	req.Header.Set("Connection", "keep-alive")

	// dnt - 30% chance
	if rand.Float32() < 0.3 { //nolint:gosec // non-cryptographic randomness is fine
		req.Header.Set("DNT", "1")
	}
}
