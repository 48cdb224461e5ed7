package maplink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iconidentify/makanmap/internal/config"
)

var (
	// ErrTooManyRedirects is returned when a short link needs more hops than allowed.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrRedirectLoop is returned when a redirect chain revisits a URL.
	ErrRedirectLoop = errors.New("redirect loop")
)

// Resolver follows short-link redirects to the final URL.
type Resolver struct {
	// client follows redirects on its own, bounded by maxHops.
	client *http.Client
	// manual never follows redirects; used for the GET fallback.
	manual    *http.Client
	maxHops   int
	userAgent string
	logger    *slog.Logger
}

// NewResolver creates a resolver bounded by cfg.MaxHops and cfg.Timeout.
func NewResolver(cfg config.ResolverConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	maxHops := cfg.MaxHops
	if maxHops <= 0 {
		maxHops = 5
	}

	return &Resolver{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxHops {
					return ErrTooManyRedirects
				}
				return nil
			},
		},
		manual: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxHops:   maxHops,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Resolve returns the URL the short link finally lands on. A HEAD request is
// tried first; some shorteners reject HEAD, so on failure the chain is walked
// with GET one hop at a time.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	final, err := r.resolveHead(ctx, rawURL)
	if err == nil {
		return final, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	r.logger.Debug("head resolution failed, walking redirects",
		"url", rawURL,
		"error", err,
	)
	return r.resolveManual(ctx, rawURL)
}

func (r *Resolver) resolveHead(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Request.URL.String(), nil
}

func (r *Resolver) resolveManual(ctx context.Context, rawURL string) (string, error) {
	current := rawURL
	seen := map[string]struct{}{current: {}}

	for hops := 0; ; hops++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		r.setHeaders(req)

		resp, err := r.manual.Do(req)
		if err != nil {
			return "", fmt.Errorf("send request: %w", err)
		}
		resp.Body.Close()

		location := resp.Header.Get("Location")
		if isRedirect(resp.StatusCode) && location != "" {
			if hops >= r.maxHops {
				return "", fmt.Errorf("resolve %s: %w", rawURL, ErrTooManyRedirects)
			}
			next, err := req.URL.Parse(location)
			if err != nil {
				return "", fmt.Errorf("parse location %q: %w", location, err)
			}
			current = next.String()
			if _, ok := seen[current]; ok {
				return "", fmt.Errorf("resolve %s: %w", rawURL, ErrRedirectLoop)
			}
			seen[current] = struct{}{}
			continue
		}

		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return current, nil
	}
}

func (r *Resolver) setHeaders(req *http.Request) {
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
