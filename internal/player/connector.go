package player

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"encore/internal/music"

	"github.com/bwmarrin/discordgo"
)

// joinSettle gives Discord a moment to finish the voice handshake after a join.
const joinSettle = 250 * time.Millisecond

// Connector joins voice channels through a discordgo session and tracks the
// resulting connection per guild.
type Connector struct {
	session *discordgo.Session
	source  StreamSource
	opts    EncodeOptions

	mu    sync.Mutex
	conns map[string]*Connection

	lookupChannel   func(channelID string) (*discordgo.Channel, error)
	patchVoiceState func(guildID string, patch voiceStatePatch) error
}

// voiceStatePatch is the body of a PATCH to the bot's own guild voice state.
type voiceStatePatch struct {
	ChannelID string `json:"channel_id"`
	Suppress  bool   `json:"suppress"`
}

// NewConnector creates a Connector. Players it creates resolve stream URLs through source.
func NewConnector(session *discordgo.Session, source StreamSource, opts EncodeOptions) *Connector {
	c := &Connector{
		session: session,
		source:  source,
		opts:    opts.withDefaults(),
		conns:   make(map[string]*Connection),
	}
	c.lookupChannel = c.sessionChannel
	c.patchVoiceState = c.sessionPatchVoiceState
	return c
}

func (c *Connector) sessionChannel(channelID string) (*discordgo.Channel, error) {
	if c.session.State != nil {
		if ch, err := c.session.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	return c.session.Channel(channelID)
}

func (c *Connector) sessionPatchVoiceState(guildID string, patch voiceStatePatch) error {
	endpoint := discordgo.EndpointGuildMemberVoiceState(guildID, "@me")
	_, err := c.session.RequestWithBucketID("PATCH", endpoint, patch, endpoint)
	return err
}

// speakOnStage lifts the bot's suppression when channelID is a stage channel.
// Bots join stages as audience members and cannot be heard until then.
func (c *Connector) speakOnStage(guildID, channelID string) {
	if c.lookupChannel == nil || c.patchVoiceState == nil {
		return
	}
	ch, err := c.lookupChannel(channelID)
	if err != nil {
		log.Printf("[VOICE] Could not look up channel %s in Guild %s: %v", channelID, guildID, err)
		return
	}
	if ch.Type != discordgo.ChannelTypeGuildStageVoice {
		return
	}
	if err := c.patchVoiceState(guildID, voiceStatePatch{ChannelID: channelID}); err != nil {
		log.Printf("[VOICE] Failed to become a speaker in stage %s (Guild %s): %v", channelID, guildID, err)
		return
	}
	log.Printf("[VOICE] Speaking in stage %s in Guild %s", channelID, guildID)
}

// Join joins channelID self-deafened. Joining a guild that already has a
// connection moves it and returns the same Connection.
func (c *Connector) Join(ctx context.Context, guildID, channelID string) (music.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := c.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-time.After(joinSettle):
	case <-ctx.Done():
	}
	c.speakOnStage(guildID, channelID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if conn, ok := c.conns[guildID]; ok && conn.vc == vc && !conn.isClosed() {
		conn.markReady(channelID)
		return conn, nil
	}
	conn := newConnection(c, guildID, channelID, vc)
	c.conns[guildID] = conn
	log.Printf("[VOICE] Joined channel %s in Guild %s", channelID, guildID)
	return conn, nil
}

func (c *Connector) forget(guildID string, conn *Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns[guildID] == conn {
		delete(c.conns, guildID)
	}
}

// OnVoiceStateUpdate feeds the bot's own voice state into its connections.
// Register it as a discordgo handler.
func (c *Connector) OnVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs.VoiceState == nil || s.State == nil || s.State.User == nil {
		return
	}
	if vs.UserID != s.State.User.ID {
		return
	}
	c.botVoiceState(vs.GuildID, vs.ChannelID)
	if vs.ChannelID != "" && vs.Suppress {
		c.speakOnStage(vs.GuildID, vs.ChannelID)
	}
}

// botVoiceState marks the guild's connection dropped when the bot left voice
// and ready when it is in a channel again.
func (c *Connector) botVoiceState(guildID, channelID string) {
	c.mu.Lock()
	conn := c.conns[guildID]
	c.mu.Unlock()
	if conn == nil {
		return
	}
	if channelID == "" {
		conn.markDropped()
		return
	}
	conn.markReady(channelID)
}

// Connection is one guild's voice connection.
type Connection struct {
	connector *Connector
	guildID   string
	vc        *discordgo.VoiceConnection

	mu        sync.Mutex
	channelID string
	ready     bool
	readyCh   chan struct{} // closed when the connection is usable again
	dropped   chan struct{}
	closed    bool
}

func newConnection(c *Connector, guildID, channelID string, vc *discordgo.VoiceConnection) *Connection {
	return &Connection{
		connector: c,
		guildID:   guildID,
		vc:        vc,
		channelID: channelID,
		ready:     true,
		dropped:   make(chan struct{}, 1),
	}
}

// ChannelID returns the channel the connection is in.
func (c *Connection) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

// Disconnected receives a value per drop and is closed by Close.
func (c *Connection) Disconnected() <-chan struct{} {
	return c.dropped
}

// WaitReady blocks until the bot is back in a voice channel.
func (c *Connection) WaitReady(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("connection closed")
	}
	if c.ready {
		c.mu.Unlock()
		return nil
	}
	ch := c.readyCh
	c.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connection) markDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.ready {
		return
	}
	c.ready = false
	c.readyCh = make(chan struct{})
	select {
	case c.dropped <- struct{}{}:
	default:
	}
	log.Printf("[VOICE] Connection dropped in Guild %s", c.guildID)
}

func (c *Connection) markReady(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.channelID = channelID
	if !c.ready {
		c.ready = true
		close(c.readyCh)
		log.Printf("[VOICE] Connection restored in Guild %s (channel %s)", c.guildID, channelID)
	}
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// NewPlayer creates a player that streams into this connection.
func (c *Connection) NewPlayer(onEvent func(music.PlayerEvent)) music.AudioPlayer {
	return newPlayer(c.vc, c.connector.source, c.connector.opts, onEvent)
}

// Close leaves the voice channel.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.dropped)
	c.mu.Unlock()

	c.connector.forget(c.guildID, c)
	if c.vc == nil {
		return nil
	}
	log.Printf("[VOICE] Leaving voice in Guild %s", c.guildID)
	return c.vc.Disconnect()
}
