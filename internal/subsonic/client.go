package subsonic

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	apiVersion = "1.16.1"
	clientName = "encore"
)

// Client wraps the Subsonic REST API.
type Client struct {
	BaseURL  string
	User     string
	Password string
	HTTP     *http.Client
}

// NewClient creates a new Subsonic API client.
func NewClient(baseURL, user, password string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		User:     user,
		Password: password,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// authParams returns the token authentication query parameters.
func (c *Client) authParams() url.Values {
	salt := randomSalt(12)

	params := url.Values{}
	params.Set("u", c.User)
	params.Set("t", md5Hash(c.Password+salt))
	params.Set("s", salt)
	params.Set("v", apiVersion)
	params.Set("c", clientName)
	params.Set("f", "json")
	return params
}

func (c *Client) buildURL(endpoint string, extra url.Values) string {
	params := c.authParams()
	for k, vs := range extra {
		for _, v := range vs {
			params.Set(k, v)
		}
	}
	return fmt.Sprintf("%s/rest/%s?%s", c.BaseURL, endpoint, params.Encode())
}

func (c *Client) get(ctx context.Context, endpoint string, extra url.Values) (*ResponseBody, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(endpoint, extra), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		log.Printf("[SUBSONIC ERROR] Request failed: %s | Error: %v", endpoint, err)
		return nil, fmt.Errorf("subsonic request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subsonic returned HTTP %d", resp.StatusCode)
	}

	var sr SubsonicResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	body := &sr.SubsonicResponse
	if body.Status != "ok" {
		if body.Error != nil {
			log.Printf("[SUBSONIC API ERROR] Method: %s | Code: %d | Message: %s", endpoint, body.Error.Code, body.Error.Message)
			return nil, body.Error
		}
		return nil, fmt.Errorf("subsonic returned status: %s", body.Status)
	}
	return body, nil
}

// Ping verifies connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping.view", nil)
	return err
}

// SearchSongs runs a search3 query restricted to songs.
func (c *Client) SearchSongs(ctx context.Context, query string, count int) ([]Song, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("songCount", strconv.Itoa(count))
	params.Set("albumCount", "0")
	params.Set("artistCount", "0")

	resp, err := c.get(ctx, "search3.view", params)
	if err != nil {
		return nil, err
	}
	if resp.SearchResult3 == nil {
		return nil, nil
	}
	return resp.SearchResult3.Songs, nil
}

// GetSong returns metadata for a specific song.
func (c *Client) GetSong(ctx context.Context, id string) (*Song, error) {
	params := url.Values{}
	params.Set("id", id)

	resp, err := c.get(ctx, "getSong.view", params)
	if err != nil {
		return nil, err
	}
	if resp.Song == nil {
		return nil, fmt.Errorf("song %s not found", id)
	}
	return resp.Song, nil
}

// StreamURL returns the authenticated URL for streaming a song. The URL is
// handed to ffmpeg, never fetched here.
func (c *Client) StreamURL(id string) string {
	params := url.Values{}
	params.Set("id", id)
	return c.buildURL("stream.view", params)
}

// CoverArtURL returns the authenticated URL for cover art.
func (c *Client) CoverArtURL(id string, size int) string {
	params := url.Values{}
	params.Set("id", id)
	if size > 0 {
		params.Set("size", strconv.Itoa(size))
	}
	return c.buildURL("getCoverArt.view", params)
}

func md5Hash(s string) string {
	h := md5.Sum([]byte(s))
	return fmt.Sprintf("%x", h)
}

func randomSalt(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b)
}
