package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"encore/internal/music"
	"encore/internal/sources"

	"github.com/bwmarrin/discordgo"
)

const (
	buttonPause = "music_pause"
	buttonSkip  = "music_next"
	buttonStop  = "music_stop"

	// playTimeout bounds resolving a query and joining voice.
	playTimeout = 30 * time.Second
)

// Set during initialization in main.go.
var (
	Music         *music.Coordinator
	Sources       *sources.Registry
	Announcements *Announcer
)

var minVolume = 0.0
var minPage = 1.0

// MusicCommands defines all music-related slash commands.
var MusicCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "play",
		Description: "Play a song from a link or a search query",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "YouTube link, audio file link, or song name",
				Required:    true,
			},
		},
	},
	{
		Name:        "pause",
		Description: "Pause the current song",
	},
	{
		Name:        "resume",
		Description: "Resume playback",
	},
	{
		Name:        "skip",
		Description: "Skip the current song",
	},
	{
		Name:        "stop",
		Description: "Stop playback, clear queue, and leave voice",
	},
	{
		Name:        "queue",
		Description: "Show the current music queue",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "page",
				Description: "Page number of the queue",
				MinValue:    &minPage,
			},
		},
	},
	{
		Name:        "nowplaying",
		Description: "Show the currently playing song",
	},
	{
		Name:        "volume",
		Description: "Show or set playback volume",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "level",
				Description: "Volume level (0-200)",
				MinValue:    &minVolume,
				MaxValue:    music.MaxVolume,
			},
		},
	},
}

// HandleMusicCommand routes music commands to their handlers.
func HandleMusicCommand(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if Music == nil {
		respondEphemeral(s, i, "❌ Music is not available right now.")
		return
	}

	switch data.Name {
	case "play":
		handlePlay(s, i, data)
	case "queue":
		handleQueue(s, i, data)
	case "nowplaying":
		handleNowPlaying(s, i)
	default:
		if msg := checkSameChannel(s, i); msg != "" {
			respondEphemeral(s, i, msg)
			return
		}
		switch data.Name {
		case "pause":
			handlePause(s, i)
		case "resume":
			handleResume(s, i)
		case "skip":
			handleSkip(s, i)
		case "stop":
			handleStop(s, i)
		case "volume":
			handleVolume(s, i, data)
		}
	}
}

// HandleMusicComponent routes button interactions.
func HandleMusicComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if Music == nil {
		respondEphemeral(s, i, "❌ Music is not available right now.")
		return
	}
	if msg := checkSameChannel(s, i); msg != "" {
		respondEphemeral(s, i, msg)
		return
	}

	switch i.MessageComponentData().CustomID {
	case buttonPause:
		handlePauseResumeToggle(s, i)
	case buttonSkip:
		handleSkip(s, i)
	case buttonStop:
		handleStop(s, i)
	}
}

// findUserVoiceChannel finds the voice channel the command invoker is in.
func findUserVoiceChannel(s *discordgo.Session, guildID, userID string) string {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

// checkSameChannel returns a complaint when the invoker is not listening
// in the bot's voice channel.
func checkSameChannel(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	botChannel, ok := Music.ChannelID(i.GuildID)
	if !ok {
		return ""
	}
	userChannel := findUserVoiceChannel(s, i.GuildID, i.Member.User.ID)
	if userChannel == "" {
		return "❌ You must be in a voice channel to control the music."
	}
	if userChannel != botChannel {
		return fmt.Sprintf("❌ You must be in <#%s> to control the music.", botChannel)
	}
	return ""
}

func optionInt(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (int, bool) {
	for _, opt := range options {
		if opt.Name == name {
			return int(opt.IntValue()), true
		}
	}
	return 0, false
}

func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

// userError turns a coordinator or resolver error into a reply.
func userError(err error) string {
	var rerr *music.ResolutionError
	var cerr *music.ConnectionError
	switch {
	case errors.Is(err, sources.ErrSearchUnavailable):
		return "❌ Search is not available. Use a YouTube or audio file link."
	case errors.Is(err, sources.ErrNoResults):
		return "❌ No results found."
	case errors.As(err, &rerr):
		return fmt.Sprintf("❌ Could not find anything playable for **%s**.", rerr.Query)
	case errors.As(err, &cerr):
		return "❌ Failed to join voice. Check my permissions for that channel."
	case errors.Is(err, music.ErrInvalidTrack):
		return "❌ That track cannot be played."
	}
	return "❌ Something went wrong, please try again."
}

// --- Command Handlers ---

func handlePlay(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	query := optionString(data.Options, "query")

	channelID := findUserVoiceChannel(s, i.GuildID, i.Member.User.ID)
	if channelID == "" {
		respondEphemeral(s, i, "❌ You must be in a voice channel to play music.")
		return
	}
	if botChannel, ok := Music.ChannelID(i.GuildID); ok && botChannel != channelID {
		respondEphemeral(s, i, fmt.Sprintf("❌ I'm already playing in <#%s>.", botChannel))
		return
	}

	// Acknowledge immediately since resolving and joining may take a moment
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	track, err := Sources.Resolve(ctx, query, i.Member.User.Username)
	if err != nil {
		editResponse(s, i, userError(err))
		return
	}

	if Announcements != nil {
		Announcements.Bind(i.GuildID, i.ChannelID)
	}

	pos, err := Music.Play(ctx, i.GuildID, channelID, track)
	if err != nil {
		editResponse(s, i, userError(err))
		return
	}

	if pos == 0 {
		editResponse(s, i, fmt.Sprintf("🎶 Starting %s (%s)", trackLabel(track), music.FormatDuration(track.DurationSeconds)))
		return
	}
	editResponse(s, i, fmt.Sprintf("🎵 Added to queue at position **%d**: %s (%s)",
		pos, trackLabel(track), music.FormatDuration(track.DurationSeconds)))
}

func handleQueue(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	current, ok := Music.CurrentTrack(i.GuildID)
	if !ok {
		respondEphemeral(s, i, "📭 The queue is empty.")
		return
	}
	queue := Music.Queue(i.GuildID)

	embed := &discordgo.MessageEmbed{
		Title:       "📋 Queue",
		Description: "**Now Playing:**\n" + trackLabel(current),
		Color:       colorInfo,
	}

	if len(queue) == 0 {
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Up Next:", Value: "No more tracks in queue"},
		}
		respondEmbed(s, i, embed)
		return
	}

	page, _ := optionInt(data.Options, "page")
	view, err := paginateQueue(queue, page)
	if err != nil {
		respondEphemeral(s, i, "❌ "+err.Error())
		return
	}

	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Up Next:", Value: strings.Join(view.Lines, "\n")},
		{Name: "Queue Info", Value: fmt.Sprintf("Total tracks: %d\nTotal duration: %s\nPage %d/%d",
			view.Total, music.FormatDuration(view.TotalDuration), view.Page, view.Pages)},
	}
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Use /queue <page> to view different pages • %d tracks in queue", view.Total),
	}
	respondEmbed(s, i, embed)
}

func handleNowPlaying(s *discordgo.Session, i *discordgo.InteractionCreate) {
	track, ok := Music.CurrentTrack(i.GuildID)
	if !ok {
		respondEphemeral(s, i, "📭 Nothing is playing right now.")
		return
	}
	volume, _ := Music.Volume(i.GuildID)
	embed := nowPlayingEmbed(track, volume, Music.IsPaused(i.GuildID))
	respondEmbed(s, i, embed)
}

func handlePause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !Music.Pause(i.GuildID) {
		respondEphemeral(s, i, "❌ Nothing is playing right now.")
		return
	}
	respond(s, i, "⏸️ Paused.")
}

func handleResume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !Music.Resume(i.GuildID) {
		respondEphemeral(s, i, "❌ Nothing is paused right now.")
		return
	}
	respond(s, i, "▶️ Resumed.")
}

func handlePauseResumeToggle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch {
	case Music.IsPaused(i.GuildID) && Music.Resume(i.GuildID):
		respondEphemeral(s, i, "▶️ Resumed.")
	case Music.Pause(i.GuildID):
		respondEphemeral(s, i, "⏸️ Paused.")
	default:
		respondEphemeral(s, i, "❌ Nothing is playing.")
	}
}

func handleSkip(s *discordgo.Session, i *discordgo.InteractionCreate) {
	skipped, _ := Music.CurrentTrack(i.GuildID)
	if !Music.Skip(i.GuildID) {
		respondEphemeral(s, i, "❌ Nothing is playing right now.")
		return
	}
	if skipped.Title == "" {
		respond(s, i, "⏭️ Skipped.")
		return
	}
	respond(s, i, fmt.Sprintf("⏭️ Skipped %s", trackLabel(skipped)))
}

func handleStop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !Music.Stop(i.GuildID) {
		respondEphemeral(s, i, "❌ Nothing is playing right now.")
		return
	}

	if i.Type == discordgo.InteractionMessageComponent {
		s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Content:    "⏹️ Stopped playback.",
				Components: []discordgo.MessageComponent{}, // clear buttons
			},
		})
		return
	}
	respond(s, i, "⏹️ Stopped playback and left the voice channel.")
}

func handleVolume(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	level, set := optionInt(data.Options, "level")
	if !set {
		current, ok := Music.Volume(i.GuildID)
		if !ok {
			respondEphemeral(s, i, "❌ Nothing is playing right now.")
			return
		}
		respond(s, i, "Current volume: "+volumeBar(current))
		return
	}

	if level < 0 || level > music.MaxVolume {
		respondEphemeral(s, i, fmt.Sprintf("❌ Volume must be between 0 and %d.", music.MaxVolume))
		return
	}
	if !Music.SetVolume(i.GuildID, level) {
		respondEphemeral(s, i, "❌ Nothing is playing right now.")
		return
	}

	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Volume Adjusted",
		Description: fmt.Sprintf("Volume set to %d%%", level),
		Color:       colorPlaying,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Volume Level", Value: volumeBar(level), Inline: true},
		},
	})
}

func nowPlayingEmbed(t music.Track, volume int, paused bool) *discordgo.MessageEmbed {
	title := "🎶 Now Playing"
	if paused {
		title = "⏸️ Paused"
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: trackLabel(t),
		Color:       colorPlaying,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: music.FormatDuration(t.DurationSeconds), Inline: true},
		},
	}
	if t.RequestedBy != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Requested by", Value: t.RequestedBy, Inline: true,
		})
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name: "Volume", Value: volumeBar(volume),
	})
	if t.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.ThumbnailURL}
	}
	return embed
}

func playerButtons() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Pause/Play",
					Emoji:    &discordgo.ComponentEmoji{Name: "⏯️"},
					Style:    discordgo.SecondaryButton,
					CustomID: buttonPause,
				},
				discordgo.Button{
					Label:    "Stop",
					Emoji:    &discordgo.ComponentEmoji{Name: "⏹️"},
					Style:    discordgo.DangerButton,
					CustomID: buttonStop,
				},
				discordgo.Button{
					Label:    "Next",
					Emoji:    &discordgo.ComponentEmoji{Name: "⏭️"},
					Style:    discordgo.SecondaryButton,
					CustomID: buttonSkip,
				},
			},
		},
	}
}
