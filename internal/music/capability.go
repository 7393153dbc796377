package music

import "context"

// PlayerStatus is the status an AudioPlayer reports for itself.
type PlayerStatus int

const (
	StatusIdle PlayerStatus = iota
	StatusBuffering
	StatusPlaying
	StatusPaused
)

func (s PlayerStatus) String() string {
	switch s {
	case StatusBuffering:
		return "buffering"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "idle"
	}
}

// EventKind distinguishes the notifications an AudioPlayer emits.
type EventKind int

const (
	// EventIdle means the resource stopped, either at its end or after Stop.
	EventIdle EventKind = iota
	// EventError means the resource failed mid-stream.
	EventError
)

// PlayerEvent is emitted once per resource when it stops streaming.
type PlayerEvent struct {
	Kind       EventKind
	ResourceID uint64
	Err        error
}

// Resource is one track handed to an AudioPlayer. ID is unique for the
// lifetime of the Coordinator that created it.
type Resource struct {
	ID     uint64
	Track  Track
	Volume float64
}

// Connector opens voice connections.
type Connector interface {
	Join(ctx context.Context, guildID, channelID string) (Connection, error)
}

// Connection is a live voice connection owned by one session.
type Connection interface {
	ChannelID() string
	// Disconnected is signalled when the connection drops.
	Disconnected() <-chan struct{}
	// WaitReady blocks until the connection is usable again or ctx is done.
	WaitReady(ctx context.Context) error
	// NewPlayer creates a player bound to this connection. onEvent must
	// never be invoked synchronously from Play or Stop.
	NewPlayer(onEvent func(PlayerEvent)) AudioPlayer
	Close() error
}

// AudioPlayer streams one resource at a time.
type AudioPlayer interface {
	Play(res Resource) error
	Pause() bool
	Unpause() bool
	// Stop ends the current resource; the player later emits EventIdle for it.
	Stop()
	// SetVolume applies a linear gain to the current resource. It reports
	// false when nothing is streaming.
	SetVolume(v float64) bool
	Volume() (float64, bool)
	Status() PlayerStatus
	Close()
}

// VolumeSource supplies the volume percent each new resource starts at.
type VolumeSource interface {
	DefaultVolume(guildID string) int
}

// Listener observes session activity. Calls are made without coordinator
// locks held, so implementations may call back into the Coordinator.
type Listener interface {
	TrackStarted(guildID string, t Track)
	TrackFailed(guildID string, err *PlaybackError)
	QueueEnded(guildID string)
	SessionClosed(guildID string)
}

// NopListener ignores every notification.
type NopListener struct{}

func (NopListener) TrackStarted(string, Track)         {}
func (NopListener) TrackFailed(string, *PlaybackError) {}
func (NopListener) QueueEnded(string)                  {}
func (NopListener) SessionClosed(string)               {}
