package commands

import (
	"fmt"
	"log"

	"encore/internal/music"

	"github.com/bwmarrin/discordgo"
)

var SettingsCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "settings",
		Description: "Manage music settings for this server",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "volume",
				Description: "Set the volume new songs start at",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "level",
						Description: "Volume level (0-200)",
						Required:    true,
						MinValue:    &minVolume,
						MaxValue:    music.MaxVolume,
					},
				},
			},
			{
				Name:        "djrole",
				Description: "Restrict playback controls to a role",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionRole,
						Name:        "role",
						Description: "The DJ role, leave empty to allow everyone",
					},
				},
			},
			{
				Name:        "show",
				Description: "Show this server's music settings",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
		},
	},
}

func HandleSettingsCommand(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if len(data.Options) == 0 {
		return
	}
	if DB == nil {
		respondError(s, i, "Database not initialized.")
		return
	}

	subcmd := data.Options[0]
	switch subcmd.Name {
	case "volume":
		handleSettingsVolume(s, i, subcmd.Options)
	case "djrole":
		handleSettingsDJRole(s, i, subcmd.Options)
	case "show":
		handleSettingsShow(s, i)
	}
}

func handleSettingsVolume(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	level, _ := optionInt(options, "level")
	if err := DB.SetDefaultVolume(i.GuildID, level); err != nil {
		log.Printf("Failed to set default volume for guild %s: %v", i.GuildID, err)
		respondError(s, i, "Failed to save the default volume.")
		return
	}
	respondSuccess(s, i, "🔊 New songs will start at "+volumeBar(level))
}

func handleSettingsDJRole(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	roleID := ""
	for _, opt := range options {
		if opt.Name == "role" {
			roleID = opt.RoleValue(s, i.GuildID).ID
		}
	}

	if err := DB.SetDJRole(i.GuildID, roleID); err != nil {
		log.Printf("Failed to set DJ role for guild %s: %v", i.GuildID, err)
		respondError(s, i, "Failed to save the DJ role.")
		return
	}
	if roleID == "" {
		respondSuccess(s, i, "🎧 DJ role cleared. Everyone can control the music.")
		return
	}
	respondSuccess(s, i, fmt.Sprintf("🎧 Only members with <@&%s> can control the music now.", roleID))
}

func handleSettingsShow(s *discordgo.Session, i *discordgo.InteractionCreate) {
	settings, err := DB.GetGuildSettings(i.GuildID)
	if err != nil {
		respondError(s, i, fmt.Sprintf("Failed to read settings: %v", err))
		return
	}

	djRole := "Everyone"
	if settings.DJRole != "" {
		djRole = fmt.Sprintf("<@&%s>", settings.DJRole)
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title: "⚙️ Music Settings",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Default volume", Value: volumeBar(settings.Volume)},
			{Name: "DJ role", Value: djRole, Inline: true},
			{Name: "Songs played", Value: fmt.Sprintf("%d", settings.SongsPlayed), Inline: true},
		},
	})
}
