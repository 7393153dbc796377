package music

import (
	"context"
	"errors"
	"sync"
)

type fakeConnector struct {
	mu    sync.Mutex
	joins int
	err   error
	conns []*fakeConn
	// ready is handed to every new connection's WaitReady.
	ready error
}

func (f *fakeConnector) Join(_ context.Context, guildID, channelID string) (Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins++
	if f.err != nil {
		return nil, f.err
	}
	c := &fakeConn{
		guildID:      guildID,
		channelID:    channelID,
		disconnected: make(chan struct{}, 1),
		ready:        f.ready,
	}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeConnector) joinCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joins
}

func (f *fakeConnector) last() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

type fakeConn struct {
	guildID      string
	channelID    string
	disconnected chan struct{}
	ready        error

	mu      sync.Mutex
	closed  bool
	players []*fakePlayer
}

func (c *fakeConn) ChannelID() string             { return c.channelID }
func (c *fakeConn) Disconnected() <-chan struct{} { return c.disconnected }
func (c *fakeConn) WaitReady(ctx context.Context) error {
	if c.ready != nil {
		<-ctx.Done()
		return c.ready
	}
	return nil
}

func (c *fakeConn) NewPlayer(onEvent func(PlayerEvent)) AudioPlayer {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := &fakePlayer{onEvent: onEvent}
	c.players = append(c.players, p)
	return p
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.disconnected)
	}
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) drop() { c.disconnected <- struct{}{} }

func (c *fakeConn) playerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.players)
}

func (c *fakeConn) player(i int) *fakePlayer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.players[i]
}

var errRefused = errors.New("refused")

// fakePlayer records calls; tests emit its events explicitly.
type fakePlayer struct {
	onEvent func(PlayerEvent)

	mu      sync.Mutex
	played  []Resource
	current *Resource
	status  PlayerStatus
	volume  float64
	stops   int
	closed  bool
	refuse  map[string]bool
}

func (p *fakePlayer) Play(res Resource) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refuse[res.Track.SourceURL] {
		return errRefused
	}
	p.played = append(p.played, res)
	p.current = &res
	p.status = StatusPlaying
	p.volume = res.Volume
	return nil
}

func (p *fakePlayer) Pause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusPlaying {
		return false
	}
	p.status = StatusPaused
	return true
}

func (p *fakePlayer) Unpause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusPaused {
		return false
	}
	p.status = StatusPlaying
	return true
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

func (p *fakePlayer) SetVolume(v float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return false
	}
	p.volume = v
	return true
}

func (p *fakePlayer) Volume() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume, p.current != nil
}

func (p *fakePlayer) Status() PlayerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *fakePlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.status = StatusIdle
	p.current = nil
}

// finish emits an idle event for the resource currently playing, as the
// real player does after a natural end or after Stop.
func (p *fakePlayer) finish() {
	p.emit(EventIdle, nil)
}

func (p *fakePlayer) fail(err error) {
	p.emit(EventError, err)
}

func (p *fakePlayer) emit(kind EventKind, err error) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	id := p.current.ID
	p.current = nil
	p.status = StatusIdle
	p.mu.Unlock()
	p.onEvent(PlayerEvent{Kind: kind, ResourceID: id, Err: err})
}

func (p *fakePlayer) emitFor(id uint64) {
	p.onEvent(PlayerEvent{Kind: EventIdle, ResourceID: id})
}

func (p *fakePlayer) currentID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return 0
	}
	return p.current.ID
}

func (p *fakePlayer) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

func (p *fakePlayer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePlayer) volumeValue() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

type recordingListener struct {
	mu      sync.Mutex
	started []string
	failed  []string
	ended   int
	closed  int
}

func (l *recordingListener) TrackStarted(_ string, t Track) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, t.Title)
}

func (l *recordingListener) TrackFailed(_ string, err *PlaybackError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed = append(l.failed, err.Track.Title)
}

func (l *recordingListener) QueueEnded(string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ended++
}

func (l *recordingListener) SessionClosed(string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed++
}

type fixedVolume int

func (v fixedVolume) DefaultVolume(string) int { return int(v) }
