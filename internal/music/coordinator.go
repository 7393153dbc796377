package music

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultReconnectTimeout bounds the wait for a dropped connection to heal.
	DefaultReconnectTimeout = 5 * time.Second
	// MaxVolume is the highest volume percent a resource accepts.
	MaxVolume = 200
	// DefaultVolume is the percent used when no VolumeSource is configured.
	DefaultVolume = 100
)

var errSessionClosed = errors.New("session closed while connecting")

// Options configures a Coordinator. Zero values select defaults.
type Options struct {
	ReconnectTimeout time.Duration
	Volumes          VolumeSource
	Listener         Listener
}

// Coordinator owns one playback session per guild and serializes playback
// of each session's queue.
type Coordinator struct {
	connector        Connector
	volumes          VolumeSource
	listener         Listener
	reconnectTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*session

	nextResource atomic.Uint64
}

type session struct {
	mu      sync.Mutex
	guildID string
	queue   []Track
	conn    Connection
	player  AudioPlayer
	current uint64 // resource streaming queue[0]; 0 when nothing is streaming
	closed  bool
}

// NewCoordinator creates a Coordinator that joins voice channels through connector.
func NewCoordinator(connector Connector, opts Options) *Coordinator {
	c := &Coordinator{
		connector:        connector,
		volumes:          opts.Volumes,
		listener:         opts.Listener,
		reconnectTimeout: opts.ReconnectTimeout,
		sessions:         make(map[string]*session),
	}
	if c.listener == nil {
		c.listener = NopListener{}
	}
	if c.reconnectTimeout <= 0 {
		c.reconnectTimeout = DefaultReconnectTimeout
	}
	return c
}

func (c *Coordinator) lookup(guildID string) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[guildID]
}

func (c *Coordinator) getOrCreate(guildID string) (*session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[guildID]; ok {
		return s, false
	}
	s := &session{guildID: guildID}
	c.sessions[guildID] = s
	log.Printf("[MUSIC] Created session for Guild %s", guildID)
	return s, true
}

// removeIf deletes the session and releases its player and connection when
// keep reports false for it. keep may be nil.
func (c *Coordinator) removeIf(guildID string, s *session, keep func(*session) bool) bool {
	c.mu.Lock()
	if c.sessions[guildID] != s {
		c.mu.Unlock()
		return false
	}
	s.mu.Lock()
	if keep != nil && keep(s) {
		s.mu.Unlock()
		c.mu.Unlock()
		return false
	}
	delete(c.sessions, guildID)
	s.closed = true
	player, conn := s.player, s.conn
	s.player, s.conn, s.queue, s.current = nil, nil, nil, 0
	s.mu.Unlock()
	c.mu.Unlock()

	if player != nil {
		player.Stop()
		player.Close()
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			log.Printf("[MUSIC] Guild %s: closing voice connection: %v", guildID, err)
		}
	}
	log.Printf("[MUSIC] Removed session for Guild %s", guildID)
	c.listener.SessionClosed(guildID)
	return true
}

// Connect joins channelID for the guild, reusing the session's connection
// when it is already in that channel.
func (c *Coordinator) Connect(ctx context.Context, guildID, channelID string) (Connection, error) {
	s, created := c.getOrCreate(guildID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return c.Connect(ctx, guildID, channelID)
	}
	if s.conn != nil && s.conn.ChannelID() == channelID {
		conn := s.conn
		s.mu.Unlock()
		return conn, nil
	}
	s.mu.Unlock()

	conn, err := c.connector.Join(ctx, guildID, channelID)
	if err != nil {
		if created {
			c.removeIf(guildID, s, func(s *session) bool { return s.conn != nil || len(s.queue) > 0 })
		}
		return nil, &ConnectionError{GuildID: guildID, ChannelID: channelID, Err: err}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return nil, &ConnectionError{GuildID: guildID, ChannelID: channelID, Err: errSessionClosed}
	}
	old := s.conn
	s.conn = conn
	var notes []func()
	if old != nil && old != conn {
		// The old player is bound to the old connection; restart the head here.
		if s.player != nil {
			s.player.Stop()
			s.player.Close()
			s.player = nil
		}
		s.current = 0
		if len(s.queue) > 0 {
			notes = c.startHeadLocked(s)
		}
	}
	s.mu.Unlock()

	if old != nil && old != conn {
		_ = old.Close()
	}
	if old != conn {
		go c.watch(guildID, s, conn)
	}
	c.notify(notes)
	log.Printf("[MUSIC] Guild %s connected to channel %s", guildID, channelID)
	return conn, nil
}

// watch waits for conn to drop and tears the session down when it does not
// recover within the reconnect timeout. It exits when conn is closed.
func (c *Coordinator) watch(guildID string, s *session, conn Connection) {
	for {
		if _, ok := <-conn.Disconnected(); !ok {
			return
		}

		s.mu.Lock()
		owned := !s.closed && s.conn == conn
		s.mu.Unlock()
		if !owned {
			return
		}

		log.Printf("[MUSIC] Guild %s: voice connection dropped, waiting %s to recover", guildID, c.reconnectTimeout)
		ctx, cancel := context.WithTimeout(context.Background(), c.reconnectTimeout)
		err := conn.WaitReady(ctx)
		cancel()
		if err == nil {
			log.Printf("[MUSIC] Guild %s: voice connection recovered", guildID)
			continue
		}

		log.Printf("[MUSIC] Guild %s: voice connection lost: %v", guildID, err)
		c.removeIf(guildID, s, func(s *session) bool { return s.conn != conn })
		return
	}
}

// Play connects to channelID if the guild has no voice connection yet and
// enqueues track.
func (c *Coordinator) Play(ctx context.Context, guildID, channelID string, track Track) (int, error) {
	if err := track.Validate(); err != nil {
		return 0, err
	}
	if !c.Connected(guildID) {
		if _, err := c.Connect(ctx, guildID, channelID); err != nil {
			return 0, err
		}
	}
	return c.Enqueue(ctx, guildID, track)
}

// Connected reports whether the guild's session holds a voice connection.
func (c *Coordinator) Connected(guildID string) bool {
	s := c.lookup(guildID)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.conn != nil
}

// Enqueue appends track to the guild's queue. When the queue was empty
// playback starts immediately and the position is 0; otherwise the position
// is the track's distance from the one playing.
//
// Enqueue never joins voice or creates a session: without a prior Connect it
// fails with a ConnectionError wrapping ErrNotConnected. Use Play to connect
// and enqueue in one step.
func (c *Coordinator) Enqueue(_ context.Context, guildID string, track Track) (int, error) {
	if err := track.Validate(); err != nil {
		return 0, err
	}

	s := c.lookup(guildID)
	if s == nil {
		return 0, &ConnectionError{GuildID: guildID, Err: ErrNotConnected}
	}

	s.mu.Lock()
	if s.closed || s.conn == nil {
		s.mu.Unlock()
		return 0, &ConnectionError{GuildID: guildID, Err: ErrNotConnected}
	}
	s.queue = append(s.queue, track)
	if len(s.queue) > 1 {
		pos := len(s.queue) - 1
		s.mu.Unlock()
		log.Printf("[MUSIC] Guild %s: queued %q at position %d", guildID, track.Title, pos)
		return pos, nil
	}
	notes := c.startHeadLocked(s)
	s.mu.Unlock()

	c.notify(notes)
	return 0, nil
}

// startHeadLocked streams queue[0], dropping heads the player refuses.
// s.mu must be held. The returned notifications must run after unlocking.
func (c *Coordinator) startHeadLocked(s *session) []func() {
	var notes []func()
	guildID := s.guildID

	for len(s.queue) > 0 {
		if s.player == nil {
			s.player = s.conn.NewPlayer(c.eventHandler(s))
		}
		track := s.queue[0]
		res := Resource{
			ID:     c.nextResource.Add(1),
			Track:  track,
			Volume: float64(c.initialVolume(guildID)) / 100,
		}
		s.current = res.ID
		if err := s.player.Play(res); err != nil {
			log.Printf("[MUSIC] Guild %s: could not start %q: %v", guildID, track.Title, err)
			perr := &PlaybackError{Track: track, Err: err}
			notes = append(notes, func() { c.listener.TrackFailed(guildID, perr) })
			s.queue = s.queue[1:]
			s.current = 0
			continue
		}
		log.Printf("[MUSIC] Guild %s: now playing %q", guildID, track.Title)
		notes = append(notes, func() { c.listener.TrackStarted(guildID, track) })
		return notes
	}

	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
	s.queue = nil
	log.Printf("[MUSIC] Guild %s: queue ended", guildID)
	notes = append(notes, func() { c.listener.QueueEnded(guildID) })
	return notes
}

func (c *Coordinator) initialVolume(guildID string) int {
	if c.volumes == nil {
		return DefaultVolume
	}
	return clampVolume(c.volumes.DefaultVolume(guildID))
}

func (c *Coordinator) eventHandler(s *session) func(PlayerEvent) {
	return func(ev PlayerEvent) { c.handleEvent(s, ev) }
}

// handleEvent advances the queue when the resource streaming its head stops.
// Events for any other resource are stale and ignored, which makes a skip
// racing a natural finish advance only once.
func (c *Coordinator) handleEvent(s *session, ev PlayerEvent) {
	s.mu.Lock()
	if s.closed || s.current == 0 || ev.ResourceID != s.current {
		s.mu.Unlock()
		return
	}

	finished := s.queue[0]
	s.queue = s.queue[1:]
	s.current = 0

	var notes []func()
	if ev.Kind == EventError {
		guildID := s.guildID
		perr := &PlaybackError{Track: finished, Err: ev.Err}
		log.Printf("[MUSIC] Guild %s: %v", guildID, perr)
		notes = append(notes, func() { c.listener.TrackFailed(guildID, perr) })
	}
	notes = append(notes, c.startHeadLocked(s)...)
	s.mu.Unlock()

	c.notify(notes)
}

func (c *Coordinator) notify(notes []func()) {
	for _, n := range notes {
		n()
	}
}

// activePlayer returns the session's player, or nil when none is streaming.
func (c *Coordinator) activePlayer(guildID string) AudioPlayer {
	s := c.lookup(guildID)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.player
}

// Pause pauses the active player. It reports false when there is none.
func (c *Coordinator) Pause(guildID string) bool {
	p := c.activePlayer(guildID)
	if p == nil {
		return false
	}
	p.Pause()
	return true
}

// Resume unpauses the active player. It reports false when there is no
// paused player.
func (c *Coordinator) Resume(guildID string) bool {
	p := c.activePlayer(guildID)
	if p == nil {
		return false
	}
	return p.Unpause()
}

// Skip stops the current track. The queue advances when the player reports
// the track idle, not here.
func (c *Coordinator) Skip(guildID string) bool {
	p := c.activePlayer(guildID)
	if p == nil {
		return false
	}
	p.Stop()
	return true
}

// Stop ends playback, drops the queue, leaves the voice channel and removes
// the session. It reports false when the guild has no session.
func (c *Coordinator) Stop(guildID string) bool {
	s := c.lookup(guildID)
	if s == nil {
		return false
	}
	return c.removeIf(guildID, s, nil)
}

// SetVolume sets the current resource's volume in percent, clamped to [0,200].
func (c *Coordinator) SetVolume(guildID string, percent int) bool {
	p := c.activePlayer(guildID)
	if p == nil {
		return false
	}
	return p.SetVolume(float64(clampVolume(percent)) / 100)
}

// Volume returns the current resource's volume in percent.
func (c *Coordinator) Volume(guildID string) (int, bool) {
	p := c.activePlayer(guildID)
	if p == nil {
		return 0, false
	}
	v, ok := p.Volume()
	if !ok {
		return 0, false
	}
	return int(math.Round(v * 100)), true
}

func clampVolume(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > MaxVolume {
		return MaxVolume
	}
	return percent
}

// Queue returns the tracks waiting behind the current one.
func (c *Coordinator) Queue(guildID string) []Track {
	s := c.lookup(guildID)
	if s == nil {
		return []Track{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) < 2 {
		return []Track{}
	}
	q := make([]Track, len(s.queue)-1)
	copy(q, s.queue[1:])
	return q
}

// CurrentTrack returns the head of the guild's queue.
func (c *Coordinator) CurrentTrack(guildID string) (Track, bool) {
	s := c.lookup(guildID)
	if s == nil {
		return Track{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Track{}, false
	}
	return s.queue[0], true
}

// IsPlaying reports whether the guild's player says it is playing.
func (c *Coordinator) IsPlaying(guildID string) bool {
	p := c.activePlayer(guildID)
	return p != nil && p.Status() == StatusPlaying
}

// IsPaused reports whether the guild's player says it is paused.
func (c *Coordinator) IsPaused(guildID string) bool {
	p := c.activePlayer(guildID)
	return p != nil && p.Status() == StatusPaused
}

// HasSession reports whether the guild has a session.
func (c *Coordinator) HasSession(guildID string) bool {
	return c.lookup(guildID) != nil
}

// ChannelID returns the voice channel the guild's session is connected to.
func (c *Coordinator) ChannelID(guildID string) (string, bool) {
	s := c.lookup(guildID)
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return "", false
	}
	return s.conn.ChannelID(), true
}

// Shutdown stops every session.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.sessions))
	for k := range c.sessions {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	for _, k := range keys {
		c.Stop(k)
	}
}
