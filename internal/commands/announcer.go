package commands

import (
	"fmt"
	"log"
	"sync"

	"encore/internal/database"
	"encore/internal/music"

	"github.com/bwmarrin/discordgo"
)

type messageRef struct {
	channelID string
	messageID string
}

// messenger is the part of *discordgo.Session the Announcer talks through.
type messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer posts playback updates to the text channel a guild's music was
// started from. It implements music.Listener.
type Announcer struct {
	session messenger
	db      *database.DB

	mu         sync.Mutex
	channels   map[string]string
	nowPlaying map[string]messageRef
}

func NewAnnouncer(s messenger, db *database.DB) *Announcer {
	return &Announcer{
		session:    s,
		db:         db,
		channels:   make(map[string]string),
		nowPlaying: make(map[string]messageRef),
	}
}

// Bind sets the text channel updates for guildID are posted to.
func (a *Announcer) Bind(guildID, channelID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.channels[guildID] = channelID
}

func (a *Announcer) channel(guildID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channels[guildID]
}

// retire strips the buttons from the guild's last now-playing message.
func (a *Announcer) retire(guildID string) {
	a.mu.Lock()
	ref, ok := a.nowPlaying[guildID]
	delete(a.nowPlaying, guildID)
	a.mu.Unlock()
	if !ok {
		return
	}

	empty := []discordgo.MessageComponent{}
	_, err := a.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         ref.messageID,
		Channel:    ref.channelID,
		Components: &empty,
	})
	if err != nil {
		log.Printf("[MUSIC] Failed to retire now-playing message in Guild %s: %v", guildID, err)
	}
}

func (a *Announcer) send(guildID string, msg *discordgo.MessageSend) *discordgo.Message {
	channelID := a.channel(guildID)
	if channelID == "" {
		return nil
	}
	m, err := a.session.ChannelMessageSendComplex(channelID, msg)
	if err != nil {
		log.Printf("[MUSIC] Failed to post update in Guild %s: %v", guildID, err)
		return nil
	}
	return m
}

func (a *Announcer) TrackStarted(guildID string, t music.Track) {
	if a.db != nil {
		if err := a.db.IncrementSongsPlayed(guildID); err != nil {
			log.Printf("[DATABASE ERROR] Failed to count played song for Guild %s: %v", guildID, err)
		}
	}

	a.retire(guildID)

	volume := music.DefaultVolume
	if Music != nil {
		if v, ok := Music.Volume(guildID); ok {
			volume = v
		}
	}
	m := a.send(guildID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{nowPlayingEmbed(t, volume, false)},
		Components: playerButtons(),
	})
	if m == nil {
		return
	}
	a.mu.Lock()
	a.nowPlaying[guildID] = messageRef{channelID: m.ChannelID, messageID: m.ID}
	a.mu.Unlock()
}

func (a *Announcer) TrackFailed(guildID string, err *music.PlaybackError) {
	a.send(guildID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "⚠️ Playback failed",
			Description: fmt.Sprintf("Could not play %s, skipping.", trackLabel(err.Track)),
			Color:       colorError,
		}},
	})
}

func (a *Announcer) QueueEnded(guildID string) {
	a.retire(guildID)
	a.send(guildID, &discordgo.MessageSend{
		Content: "📭 Queue ended. Use `/play` to add more.",
	})
}

func (a *Announcer) SessionClosed(guildID string) {
	a.retire(guildID)
	a.mu.Lock()
	delete(a.channels, guildID)
	a.mu.Unlock()
}
