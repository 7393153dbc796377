package music

import "fmt"

// Track is a resolved, playable unit of media.
type Track struct {
	SourceURL       string
	Title           string
	DurationSeconds int
	ThumbnailURL    string
	RequestedBy     string
}

// Validate rejects tracks that cannot be handed to a player.
func (t Track) Validate() error {
	if t.SourceURL == "" {
		return fmt.Errorf("%w: empty source url", ErrInvalidTrack)
	}
	if t.DurationSeconds < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrInvalidTrack, t.DurationSeconds)
	}
	return nil
}

// FormatDuration formats seconds as M:SS, or H:MM:SS past an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// TotalDuration sums the durations of tracks.
func TotalDuration(tracks []Track) int {
	total := 0
	for _, t := range tracks {
		total += t.DurationSeconds
	}
	return total
}
