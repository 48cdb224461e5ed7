// Package maplink finds map links in free text and turns them into
// coordinates, resolving short links through their redirects when needed.
package maplink

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// urlTail matches the rest of a URL up to whitespace or a quoting character.
const urlTail = `[^\s<>"'` + "`" + `]*`

// shortID matches a short-link token plus an optional share query. Commas
// and semicolons end it so joined links split.
const shortID = `[A-Za-z0-9_-]+(?:\?[^\s,;<>"'` + "`" + `]*)?`

var linkPatterns = []*regexp.Regexp{
	// Short link domain A: https://maps.app.goo.gl/AbC123
	regexp.MustCompile(`(?i)https?://maps\.app\.goo\.gl/` + shortID),
	// Short link domain B: https://goo.gl/maps/AbC123
	regexp.MustCompile(`(?i)https?://goo\.gl/maps/` + shortID),
	// Full links: https://www.google.com/maps/place/... or google.co.id/maps?...
	regexp.MustCompile(`(?i)https?://(?:www\.)?google\.[a-z]{2,3}(?:\.[a-z]{2})?/maps` + urlTail),
	// Full links on the maps subdomain: https://maps.google.com/maps?q=...
	regexp.MustCompile(`(?i)https?://maps\.google\.[a-z]{2,3}(?:\.[a-z]{2})?(?:[/?]` + urlTail + `)?`),
}

// trailingPunct is stripped from the end of matches; descriptions often put
// links at the end of a sentence or inside parentheses.
const trailingPunct = `.,;:!?)]}*`

// FindLinks returns the supported map URLs in text, deduplicated and in the
// order they first appear.
func FindLinks(text string) []string {
	type hit struct {
		pos int
		url string
	}

	var hits []hit
	for _, re := range linkPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			link := strings.TrimRight(text[loc[0]:loc[1]], trailingPunct)
			if link == "" {
				continue
			}
			hits = append(hits, hit{pos: loc[0], url: link})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].pos < hits[j].pos
	})

	seen := make(map[string]struct{}, len(hits))
	links := make([]string, 0, len(hits))
	for _, h := range hits {
		if _, ok := seen[h.url]; ok {
			continue
		}
		seen[h.url] = struct{}{}
		links = append(links, h.url)
	}
	return links
}

// IsShortLink reports whether the URL is on one of the short-link domains and
// must be resolved before its coordinates can be read.
func IsShortLink(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch host {
	case "maps.app.goo.gl":
		return true
	case "goo.gl":
		return strings.HasPrefix(strings.ToLower(u.Path), "/maps")
	}
	return false
}
