package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"encore/internal/music"
	"encore/internal/subsonic"
)

func TestRegistryDirectLink(t *testing.T) {
	r := NewRegistry(NewYouTube(), Direct{})

	track, err := r.Resolve(context.Background(), "  https://cdn.example.com/music/My%20Song.mp3 ", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if track.Title != "My Song.mp3" || track.RequestedBy != "alice" {
		t.Errorf("track = %+v", track)
	}
	u, err := r.StreamURL(context.Background(), track)
	if err != nil || u != track.SourceURL {
		t.Errorf("StreamURL = %q, %v", u, err)
	}
}

func TestRegistryFreeTextWithoutSearch(t *testing.T) {
	r := NewRegistry(NewYouTube(), Direct{})

	_, err := r.Resolve(context.Background(), "never gonna give you up", "alice")
	var rerr *music.ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want ResolutionError", err)
	}
	if !errors.Is(err, ErrSearchUnavailable) {
		t.Errorf("err = %v, want ErrSearchUnavailable", err)
	}
}

func TestRegistryEmptyQuery(t *testing.T) {
	_, err := NewRegistry(Direct{}).Resolve(context.Background(), "   ", "alice")
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v", err)
	}
}

func TestRegistryUnknownSource(t *testing.T) {
	_, err := NewRegistry(Direct{}).StreamURL(context.Background(), music.Track{SourceURL: "subsonic:1"})
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("err = %v", err)
	}
}

func TestYouTubeMatching(t *testing.T) {
	y := NewYouTube()
	cases := map[string]bool{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ": true,
		"https://youtu.be/dQw4w9WgXcQ":                true,
		"https://music.youtube.com/watch?v=abc":       true,
		"https://example.com/watch?v=dQw4w9WgXcQ":     false,
		"rick astley":                                 false,
	}
	for q, want := range cases {
		if got := y.Match(q); got != want {
			t.Errorf("Match(%q) = %v, want %v", q, got, want)
		}
	}
}

func TestRegistryPrefersYouTubeOverDirect(t *testing.T) {
	r := NewRegistry(NewYouTube(), Direct{})
	yt := music.Track{SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}
	for _, res := range r.resolvers {
		if res.Owns(yt.SourceURL) {
			if res.Name() != "youtube" {
				t.Errorf("owner = %s, want youtube", res.Name())
			}
			return
		}
	}
	t.Fatal("no owner for youtube track")
}

func newSubsonicResolver(t *testing.T, body string) *Subsonic {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewSubsonic(subsonic.NewClient(srv.URL, "u", "p"))
}

func TestSubsonicSearch(t *testing.T) {
	s := newSubsonicResolver(t, `{"subsonic-response":{"status":"ok","searchResult3":{"song":[
		{"id":"42","title":"Windowlicker","artist":"Aphex Twin","duration":367,"coverArt":"al-7"}]}}}`)
	r := NewRegistry(NewYouTube(), Direct{}, s)

	track, err := r.Resolve(context.Background(), "windowlicker", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if track.SourceURL != "subsonic:42" || track.Title != "Aphex Twin - Windowlicker" || track.DurationSeconds != 367 {
		t.Errorf("track = %+v", track)
	}
	if !strings.Contains(track.ThumbnailURL, "getCoverArt.view") {
		t.Errorf("thumbnail = %q", track.ThumbnailURL)
	}

	u, err := r.StreamURL(context.Background(), track)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(u, "/rest/stream.view") || !strings.Contains(u, "id=42") {
		t.Errorf("stream url = %q", u)
	}
}

func TestSubsonicNoResults(t *testing.T) {
	s := newSubsonicResolver(t, `{"subsonic-response":{"status":"ok","searchResult3":{}}}`)
	_, err := NewRegistry(s).Resolve(context.Background(), "nothing", "bob")
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("err = %v", err)
	}
}

func TestSubsonicDoesNotClaimLinks(t *testing.T) {
	s := NewSubsonic(subsonic.NewClient("http://localhost", "u", "p"))
	if s.Match("https://example.com/a.mp3") {
		t.Error("subsonic matched a link")
	}
	if !s.Match("subsonic:1") || !s.Match("some song") {
		t.Error("subsonic did not match its queries")
	}
}
