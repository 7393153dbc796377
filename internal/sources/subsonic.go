package sources

import (
	"context"
	"errors"
	"strings"

	"encore/internal/music"
	"encore/internal/subsonic"
)

const (
	subsonicScheme = "subsonic:"
	coverArtSize   = 300
)

var ErrNoResults = errors.New("no results")

// Subsonic searches a Subsonic server. It matches anything that is not a
// link, so it belongs last in a Registry.
type Subsonic struct {
	client *subsonic.Client
}

func NewSubsonic(client *subsonic.Client) *Subsonic {
	return &Subsonic{client: client}
}

func (s *Subsonic) Name() string { return "subsonic" }

func (s *Subsonic) Match(query string) bool {
	return strings.HasPrefix(query, subsonicScheme) || !isHTTPURL(query)
}

func (s *Subsonic) Owns(sourceURL string) bool {
	return strings.HasPrefix(sourceURL, subsonicScheme)
}

func (s *Subsonic) Resolve(ctx context.Context, query string) (music.Track, error) {
	if id, ok := strings.CutPrefix(query, subsonicScheme); ok {
		song, err := s.client.GetSong(ctx, id)
		if err != nil {
			return music.Track{}, err
		}
		return s.track(*song), nil
	}

	songs, err := s.client.SearchSongs(ctx, query, 1)
	if err != nil {
		return music.Track{}, err
	}
	if len(songs) == 0 {
		return music.Track{}, ErrNoResults
	}
	return s.track(songs[0]), nil
}

func (s *Subsonic) StreamURL(_ context.Context, t music.Track) (string, error) {
	return s.client.StreamURL(strings.TrimPrefix(t.SourceURL, subsonicScheme)), nil
}

func (s *Subsonic) track(song subsonic.Song) music.Track {
	t := music.Track{
		SourceURL:       subsonicScheme + song.ID,
		Title:           song.DisplayTitle(),
		DurationSeconds: song.Duration,
	}
	if song.CoverArt != "" {
		t.ThumbnailURL = s.client.CoverArtURL(song.CoverArt, coverArtSize)
	}
	return t
}
