// Package sources turns user queries into playable tracks and tracks into
// inputs ffmpeg can open.
package sources

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"encore/internal/music"
)

var (
	// ErrSearchUnavailable is returned for free-text queries when no
	// searchable backend is configured.
	ErrSearchUnavailable = errors.New("search is not available, use a link")
	ErrEmptyQuery        = errors.New("empty query")
	ErrUnknownSource     = errors.New("no resolver owns this source")
)

// Resolver is one backend able to produce tracks.
type Resolver interface {
	Name() string
	// Match reports whether the resolver handles a user query.
	Match(query string) bool
	Resolve(ctx context.Context, query string) (music.Track, error)
	// Owns reports whether a track's SourceURL was produced by this resolver.
	Owns(sourceURL string) bool
	StreamURL(ctx context.Context, t music.Track) (string, error)
}

// Registry tries resolvers in order.
type Registry struct {
	resolvers []Resolver
}

func NewRegistry(resolvers ...Resolver) *Registry {
	return &Registry{resolvers: resolvers}
}

// Resolve turns query into a track requested by requestedBy. Failures are
// *music.ResolutionError.
func (r *Registry) Resolve(ctx context.Context, query, requestedBy string) (music.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return music.Track{}, &music.ResolutionError{Query: query, Err: ErrEmptyQuery}
	}

	for _, res := range r.resolvers {
		if !res.Match(query) {
			continue
		}
		t, err := res.Resolve(ctx, query)
		if err != nil {
			log.Printf("[SOURCES] %s failed to resolve %q: %v", res.Name(), query, err)
			var rerr *music.ResolutionError
			if errors.As(err, &rerr) {
				return music.Track{}, err
			}
			return music.Track{}, &music.ResolutionError{Query: query, Err: err}
		}
		t.RequestedBy = requestedBy
		if err := t.Validate(); err != nil {
			return music.Track{}, &music.ResolutionError{Query: query, Err: err}
		}
		log.Printf("[SOURCES] %s resolved %q to %q", res.Name(), query, t.Title)
		return t, nil
	}
	return music.Track{}, &music.ResolutionError{Query: query, Err: ErrSearchUnavailable}
}

// StreamURL dispatches to the resolver that produced t.
func (r *Registry) StreamURL(ctx context.Context, t music.Track) (string, error) {
	for _, res := range r.resolvers {
		if res.Owns(t.SourceURL) {
			return res.StreamURL(ctx, t)
		}
	}
	return "", fmt.Errorf("%s: %w", t.SourceURL, ErrUnknownSource)
}
