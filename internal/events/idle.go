package events

import (
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DefaultIdleTimeout is how long the bot waits in an empty channel before leaving.
const DefaultIdleTimeout = 5 * time.Minute

// Playback is the part of the music coordinator the idle watcher drives.
type Playback interface {
	ChannelID(guildID string) (string, bool)
	Pause(guildID string) bool
	Resume(guildID string) bool
	Stop(guildID string) bool
	IsPlaying(guildID string) bool
	IsPaused(guildID string) bool
}

// VoiceTracker receives the bot's own voice state changes.
type VoiceTracker interface {
	OnVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate)
}

// IdleWatcher pauses playback when the bot's channel empties, leaves after
// the channel stays empty for the timeout, and resumes when someone returns.
type IdleWatcher struct {
	playback Playback
	voice    VoiceTracker
	timeout  time.Duration

	mu         sync.Mutex
	timers     map[string]*idleTimer
	autoPaused map[string]bool
	afterFunc  func(time.Duration, func()) *time.Timer
}

type idleTimer struct {
	t *time.Timer
}

func NewIdleWatcher(playback Playback, voice VoiceTracker, timeout time.Duration) *IdleWatcher {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &IdleWatcher{
		playback:   playback,
		voice:      voice,
		timeout:    timeout,
		timers:     make(map[string]*idleTimer),
		autoPaused: make(map[string]bool),
		afterFunc:  time.AfterFunc,
	}
}

// OnVoiceStateUpdate is registered as a discordgo handler.
func (w *IdleWatcher) OnVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs.VoiceState == nil {
		return
	}
	if w.voice != nil {
		w.voice.OnVoiceStateUpdate(s, vs)
	}

	channelID, ok := w.playback.ChannelID(vs.GuildID)
	if !ok {
		w.disarm(vs.GuildID)
		return
	}
	guild, err := s.State.Guild(vs.GuildID)
	if err != nil {
		return
	}
	w.check(vs.GuildID, listeners(s, guild, channelID))
}

// listeners counts the non-bot members in channelID.
func listeners(s *discordgo.Session, guild *discordgo.Guild, channelID string) int {
	n := 0
	for _, state := range guild.VoiceStates {
		if state.ChannelID != channelID {
			continue
		}
		if isBot(s, guild.ID, state) {
			continue
		}
		n++
	}
	return n
}

func isBot(s *discordgo.Session, guildID string, state *discordgo.VoiceState) bool {
	if s.State.User != nil && state.UserID == s.State.User.ID {
		return true
	}
	if state.Member != nil && state.Member.User != nil {
		return state.Member.User.Bot
	}
	if m, err := s.State.Member(guildID, state.UserID); err == nil && m.User != nil {
		return m.User.Bot
	}
	return false
}

// check reacts to the number of listeners left in the bot's channel.
func (w *IdleWatcher) check(guildID string, count int) {
	if count > 0 {
		w.mu.Lock()
		wasAuto := w.autoPaused[guildID]
		delete(w.autoPaused, guildID)
		w.mu.Unlock()
		w.disarm(guildID)

		if wasAuto && w.playback.IsPaused(guildID) && w.playback.Resume(guildID) {
			log.Printf("[IDLE] Auto-resumed music in Guild %s", guildID)
		}
		return
	}

	w.mu.Lock()
	_, armed := w.timers[guildID]
	if !armed {
		entry := &idleTimer{}
		entry.t = w.afterFunc(w.timeout, func() { w.expire(guildID, entry) })
		w.timers[guildID] = entry
	}
	w.mu.Unlock()
	if armed {
		return
	}

	if w.playback.IsPlaying(guildID) && w.playback.Pause(guildID) {
		w.mu.Lock()
		w.autoPaused[guildID] = true
		w.mu.Unlock()
		log.Printf("[IDLE] Auto-paused music in empty voice channel in Guild %s", guildID)
	}
}

func (w *IdleWatcher) expire(guildID string, entry *idleTimer) {
	w.mu.Lock()
	if w.timers[guildID] != entry {
		w.mu.Unlock()
		return
	}
	delete(w.timers, guildID)
	delete(w.autoPaused, guildID)
	w.mu.Unlock()

	if w.playback.Stop(guildID) {
		log.Printf("[IDLE] Auto-disconnected from empty voice channel in Guild %s", guildID)
	}
}

func (w *IdleWatcher) disarm(guildID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if entry, ok := w.timers[guildID]; ok {
		entry.t.Stop()
		delete(w.timers, guildID)
	}
}

// Close stops all pending timers.
func (w *IdleWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for guildID, entry := range w.timers {
		entry.t.Stop()
		delete(w.timers, guildID)
	}
}
