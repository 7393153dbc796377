package commands

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"encore/internal/database"

	"github.com/bwmarrin/discordgo"
)

// CommandPermissionMap maps command names to their required permission node.
// Commands missing from the map are open to everyone.
var CommandPermissionMap = map[string]string{
	// Music
	"play":       "music.play",
	"pause":      "music.pause",
	"resume":     "music.resume",
	"skip":       "music.skip",
	"stop":       "music.stop",
	"queue":      "music.queue",
	"nowplaying": "music.nowplaying",
	"volume":     "music.volume",

	// Administration
	"perm":     "admin.perm",
	"settings": "admin.settings",
}

// ComponentPermissionMap maps button IDs to their required permission node.
var ComponentPermissionMap = map[string]string{
	buttonPause: "music.pause",
	buttonSkip:  "music.skip",
	buttonStop:  "music.stop",
}

// publicNodes are readable by everyone even when a guild has a DJ role.
var publicNodes = []string{"music.queue", "music.nowplaying"}

// DB instance for permission checks and guild settings.
var DB *database.DB
var OwnerID string

// Cooldowns throttles repeated commands per user. Nil disables throttling.
var Cooldowns *Cooldown

func AllCommands() []*discordgo.ApplicationCommand {
	all := make([]*discordgo.ApplicationCommand, 0, len(MusicCommands)+len(PermissionCommands)+len(SettingsCommands)+len(HelpCommands))
	all = append(all, MusicCommands...)
	all = append(all, SettingsCommands...)
	all = append(all, PermissionCommands...)
	all = append(all, HelpCommands...)
	return all
}

// RegisterCommands registers all slash commands with Discord.
func RegisterCommands(s *discordgo.Session, guildID string) {
	log.Println("Registering commands...")
	for _, cmd := range AllCommands() {
		_, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, cmd)
		if err != nil {
			log.Printf("Cannot create command '%v': %v", cmd.Name, err)
		}
	}
	log.Println("Commands registered successfully!")
}

// HandleInteraction is the central dispatcher for slash commands and buttons.
func HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		if i.Type == discordgo.InteractionApplicationCommand {
			respondEphemeral(s, i, "❌ Commands only work inside a server.")
		}
		return
	}

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		id := i.MessageComponentData().CustomID
		if !strings.HasPrefix(id, "music_") {
			return
		}
		if !hasPermission(i.GuildID, i.Member, ComponentPermissionMap[id]) {
			log.Printf("[COMMAND DENIED] User: %s (%s) | Button: %s | Reason: Low Permissions", i.Member.User.Username, i.Member.User.ID, id)
			respondEphemeral(s, i, "🚫 You do not have permission to use this button.")
			return
		}
		HandleMusicComponent(s, i)
		return
	case discordgo.InteractionApplicationCommand:
	default:
		return
	}

	data := i.ApplicationCommandData()

	if !hasPermission(i.GuildID, i.Member, CommandPermissionMap[data.Name]) {
		log.Printf("[COMMAND DENIED] User: %s (%s) | Command: %s | Reason: Low Permissions", i.Member.User.Username, i.Member.User.ID, data.Name)
		respondEphemeral(s, i, "🚫 You do not have permission to use this command.")
		return
	}

	if ok, left := Cooldowns.Allow(data.Name, i.Member.User.ID, time.Now()); !ok {
		log.Printf("[COMMAND DENIED] User: %s (%s) | Command: %s | Reason: Cooldown", i.Member.User.Username, i.Member.User.ID, data.Name)
		respondEphemeral(s, i, fmt.Sprintf("⏳ Please wait %.1f more second(s) before reusing the `%s` command.", left.Seconds(), data.Name))
		return
	}

	log.Printf("[COMMAND EXEC] User: %s (%s) | Guild: %s | Command: %s", i.Member.User.Username, i.Member.User.ID, i.GuildID, data.Name)

	switch data.Name {
	case "play", "pause", "resume", "skip", "stop", "queue", "nowplaying", "volume":
		HandleMusicCommand(s, i, data)
	case "settings":
		HandleSettingsCommand(s, i, data)
	case "perm":
		HandlePermissionCommand(s, i, data)
	case "help":
		HandleHelpCommand(s, i, data)
	}
}

func hasPermission(guildID string, member *discordgo.Member, node string) bool {
	djRole := ""
	if DB != nil && strings.HasPrefix(node, "music.") {
		settings, err := DB.GetGuildSettings(guildID)
		if err != nil {
			log.Printf("Error reading settings for guild %s: %v", guildID, err)
		} else {
			djRole = settings.DJRole
		}
	}
	if grantedWithoutNode(member, node, djRole) {
		return true
	}

	if DB == nil {
		return false // Fail safe
	}

	has, err := DB.HasPermission(guildID, member.User.ID, node)
	if err != nil {
		log.Printf("Error checking permission for user %s node %s in guild %s: %v", member.User.ID, node, guildID, err)
		return false
	}
	return has
}

// grantedWithoutNode reports access that needs no stored permission node:
// the bot owner, open commands, music commands in guilds without a DJ role
// (or for members holding it), and admin commands for members who can
// manage the server.
func grantedWithoutNode(member *discordgo.Member, node, djRole string) bool {
	if node == "" {
		return true
	}
	if OwnerID != "" && member.User.ID == OwnerID {
		return true
	}

	switch {
	case slices.Contains(publicNodes, node):
		return true
	case strings.HasPrefix(node, "music."):
		return djRole == "" || slices.Contains(member.Roles, djRole)
	case strings.HasPrefix(node, "admin."):
		return managesGuild(member)
	}
	return false
}

func managesGuild(member *discordgo.Member) bool {
	return member.Permissions&(discordgo.PermissionManageGuild|discordgo.PermissionAdministrator) != 0
}

// IsValidPermissionNode checks if a permission node exists in the map.
func IsValidPermissionNode(node string) bool {
	for _, n := range CommandPermissionMap {
		if n == node {
			return true
		}
	}
	return false
}

// GetPermissionsByCategory returns all permission nodes that start with the
// given category, so "music" yields "music.play", "music.skip" and the rest.
func GetPermissionsByCategory(category string) []string {
	var nodes []string
	prefix := category + "."
	for _, node := range CommandPermissionMap {
		if strings.HasPrefix(node, prefix) && !slices.Contains(nodes, node) {
			nodes = append(nodes, node)
		}
	}
	slices.Sort(nodes)
	return nodes
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
}

func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	respondEphemeral(s, i, "❌ "+msg)
}

func respondSuccess(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	respond(s, i, msg)
}
