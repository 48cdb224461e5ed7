package maplink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoCoordinates is returned when a link yields no usable coordinates.
var ErrNoCoordinates = errors.New("no coordinates in link")

// URLResolver turns a short link into the URL it redirects to.
type URLResolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// Location is what a single map link resolves to.
type Location struct {
	Coordinates
	PlaceName   string `json:"place_name,omitempty"`
	ResolvedURL string `json:"resolved_url"`
}

// Extractor resolves map links and parses their coordinates and place names.
type Extractor struct {
	resolver URLResolver
	logger   *slog.Logger
}

// NewExtractor creates an extractor that resolves short links with resolver.
func NewExtractor(resolver URLResolver, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		resolver: resolver,
		logger:   logger,
	}
}

// Extract returns the location for a single map link. Full links are parsed
// directly; short links are resolved first. Any failure means the link
// should be skipped.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Location, error) {
	target := rawURL
	if IsShortLink(rawURL) {
		resolved, err := e.resolver.Resolve(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", rawURL, err)
		}
		target = resolved
	}

	coords, ok := ParseCoordinates(target)
	if !ok {
		return nil, fmt.Errorf("parse %s: %w", target, ErrNoCoordinates)
	}

	name := ExtractPlaceName(target)
	if name == "" && target != rawURL {
		name = ExtractPlaceName(rawURL)
	}

	return &Location{
		Coordinates: coords,
		PlaceName:   name,
		ResolvedURL: target,
	}, nil
}

// ExtractAll runs Extract over every link in text, logging and skipping the
// ones that fail.
func (e *Extractor) ExtractAll(ctx context.Context, text string) []LinkLocation {
	var out []LinkLocation
	for _, link := range FindLinks(text) {
		if ctx.Err() != nil {
			break
		}
		loc, err := e.Extract(ctx, link)
		if err != nil {
			e.logger.Debug("skipping map link", "url", link, "error", err)
			continue
		}
		out = append(out, LinkLocation{URL: link, Location: *loc})
	}
	return out
}

// LinkLocation pairs the link as written with what it resolved to.
type LinkLocation struct {
	URL string
	Location
}
