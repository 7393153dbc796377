package sources

import (
	"context"
	"net/url"
	"path"
	"strings"

	"encore/internal/music"
)

// Direct plays http(s) links to audio files as they are.
type Direct struct{}

func (Direct) Name() string { return "direct" }

func (Direct) Match(query string) bool { return isHTTPURL(query) }

func (Direct) Owns(sourceURL string) bool { return isHTTPURL(sourceURL) }

func (Direct) Resolve(_ context.Context, query string) (music.Track, error) {
	u, err := url.Parse(query)
	if err != nil {
		return music.Track{}, err
	}
	title := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(title); err == nil {
		title = unescaped
	}
	if title == "" || title == "/" || title == "." {
		title = u.Host
	}
	return music.Track{SourceURL: query, Title: title}, nil
}

func (Direct) StreamURL(_ context.Context, t music.Track) (string, error) {
	return t.SourceURL, nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
