package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"encore/internal/music"

	youtube "github.com/kkdai/youtube/v2"
)

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

// YouTube resolves YouTube links. The stream URL expires, so it is looked up
// again each time a track starts.
type YouTube struct {
	client *youtube.Client
}

func NewYouTube() *YouTube {
	return &YouTube{
		client: &youtube.Client{
			HTTPClient: &http.Client{Timeout: 15 * time.Second},
		},
	}
}

func (y *YouTube) Name() string { return "youtube" }

func (y *YouTube) Match(query string) bool { return isYouTubeURL(query) }

func (y *YouTube) Owns(sourceURL string) bool { return isYouTubeURL(sourceURL) }

func (y *YouTube) Resolve(ctx context.Context, query string) (music.Track, error) {
	video, err := y.video(ctx, query)
	if err != nil {
		return music.Track{}, err
	}

	t := music.Track{
		SourceURL:       "https://www.youtube.com/watch?v=" + video.ID,
		Title:           video.Title,
		DurationSeconds: int(video.Duration / time.Second),
	}
	if video.Author != "" && !strings.Contains(video.Title, video.Author) {
		t.Title = video.Author + " - " + video.Title
	}
	if len(video.Thumbnails) > 0 {
		t.ThumbnailURL = video.Thumbnails[len(video.Thumbnails)-1].URL
	}
	return t, nil
}

func (y *YouTube) StreamURL(ctx context.Context, t music.Track) (string, error) {
	video, err := y.video(ctx, t.SourceURL)
	if err != nil {
		return "", err
	}

	formats := video.Formats.Type("audio").WithAudioChannels()
	if len(formats) == 0 {
		formats = video.Formats.WithAudioChannels()
	}
	if len(formats) == 0 {
		return "", errors.New("no audio formats found for video")
	}

	link, err := y.client.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return "", fmt.Errorf("get stream url: %w", err)
	}
	return link, nil
}

func (y *YouTube) video(ctx context.Context, link string) (*youtube.Video, error) {
	id, err := youtube.ExtractVideoID(link)
	if err != nil {
		return nil, err
	}
	video, err := y.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("youtube: %w", err)
	}
	return video, nil
}

func isYouTubeURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return youtubeHosts[strings.ToLower(u.Host)]
}
