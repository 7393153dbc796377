package subsonic

import "fmt"

// SubsonicResponse is the top-level wrapper for all Subsonic API responses.
type SubsonicResponse struct {
	SubsonicResponse ResponseBody `json:"subsonic-response"`
}

type ResponseBody struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	Error         *APIError      `json:"error,omitempty"`
	SearchResult3 *SearchResult3 `json:"searchResult3,omitempty"`
	Song          *Song          `json:"song,omitempty"`
}

// APIError is a failed response's error element.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("subsonic error %d: %s", e.Code, e.Message)
}

type SearchResult3 struct {
	Songs []Song `json:"song,omitempty"`
}

type Song struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Album    string `json:"album,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Duration int    `json:"duration,omitempty"` // seconds
	CoverArt string `json:"coverArt,omitempty"`
}

// DisplayTitle is "Artist - Title", or just the title when the artist is unknown.
func (s Song) DisplayTitle() string {
	if s.Artist == "" {
		return s.Title
	}
	return s.Artist + " - " + s.Title
}
