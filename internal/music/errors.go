package music

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTrack is returned by Enqueue for tracks that fail Validate.
	ErrInvalidTrack = errors.New("invalid track")
	// ErrNotConnected is returned by Enqueue when the session has no voice connection.
	ErrNotConnected = errors.New("not connected to a voice channel")
)

// ConnectionError reports a voice connection that could not be established or recovered.
type ConnectionError struct {
	GuildID   string
	ChannelID string
	Err       error
}

func (e *ConnectionError) Error() string {
	if e.ChannelID == "" {
		return fmt.Sprintf("voice connection for guild %s: %v", e.GuildID, e.Err)
	}
	return fmt.Sprintf("voice connection for guild %s channel %s: %v", e.GuildID, e.ChannelID, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ResolutionError reports a query that could not be turned into a Track.
type ResolutionError struct {
	Query string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve %q: %v", e.Query, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// PlaybackError reports a track that failed mid-stream. The coordinator
// hands it to its Listener and advances; it is never returned to callers.
type PlaybackError struct {
	Track Track
	Err   error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback of %q failed: %v", e.Track.Title, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }
