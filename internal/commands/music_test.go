package commands

import (
	"errors"
	"strings"
	"testing"

	"encore/internal/music"
	"encore/internal/sources"
)

func TestUserError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&music.ResolutionError{Query: "x", Err: sources.ErrSearchUnavailable}, "Search is not available"},
		{&music.ResolutionError{Query: "x", Err: sources.ErrNoResults}, "No results"},
		{&music.ResolutionError{Query: "lofi", Err: errors.New("boom")}, "**lofi**"},
		{&music.ConnectionError{GuildID: "g", Err: music.ErrNotConnected}, "Failed to join voice"},
		{errors.New("other"), "Something went wrong"},
	}
	for _, tc := range cases {
		if got := userError(tc.err); !strings.Contains(got, tc.want) {
			t.Errorf("userError(%v) = %q, want it to contain %q", tc.err, got, tc.want)
		}
	}
}

func TestNowPlayingEmbed(t *testing.T) {
	track := music.Track{
		SourceURL:       "https://www.youtube.com/watch?v=x",
		Title:           "Clip",
		DurationSeconds: 3725,
		ThumbnailURL:    "https://img.example.com/x.jpg",
		RequestedBy:     "alice",
	}
	embed := nowPlayingEmbed(track, 100, false)
	if embed.Title != "🎶 Now Playing" || embed.Thumbnail == nil {
		t.Errorf("embed = %+v", embed)
	}
	if embed.Fields[0].Value != "1:02:05" {
		t.Errorf("duration = %q", embed.Fields[0].Value)
	}
	if len(embed.Fields) != 3 || embed.Fields[1].Value != "alice" {
		t.Errorf("fields = %+v", embed.Fields)
	}

	if paused := nowPlayingEmbed(music.Track{Title: "Quiet"}, 0, true); paused.Title != "⏸️ Paused" {
		t.Errorf("paused title = %q", paused.Title)
	}
}
