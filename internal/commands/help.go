package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var HelpCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "help",
		Description: "Show all available commands",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "command",
				Description: "Get detailed help for a specific command",
			},
		},
	},
}

func HandleHelpCommand(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	name := optionString(data.Options, "command")
	if name == "" {
		respondEmbed(s, i, helpOverview())
		return
	}

	embed, ok := commandHelp(strings.TrimPrefix(name, "/"))
	if !ok {
		respondEphemeral(s, i, fmt.Sprintf("No command found named `%s`", name))
		return
	}
	respondEmbed(s, i, embed)
}

func findCommand(name string) *discordgo.ApplicationCommand {
	for _, cmd := range AllCommands() {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

// usage renders "/name <required> [optional]", or the subcommand names for
// commands that have them.
func usage(cmd *discordgo.ApplicationCommand) string {
	parts := []string{"/" + cmd.Name}
	for _, opt := range cmd.Options {
		switch {
		case opt.Type == discordgo.ApplicationCommandOptionSubCommand:
			parts = append(parts, opt.Name)
		case opt.Required:
			parts = append(parts, "<"+opt.Name+">")
		default:
			parts = append(parts, "["+opt.Name+"]")
		}
	}
	if len(cmd.Options) > 0 && cmd.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return parts[0] + " " + strings.Join(parts[1:], "|")
	}
	return strings.Join(parts, " ")
}

func commandHelp(name string) (*discordgo.MessageEmbed, bool) {
	cmd := findCommand(name)
	if cmd == nil {
		return nil, false
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Command: /" + cmd.Name,
		Description: cmd.Description,
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Usage", Value: "`" + usage(cmd) + "`"},
		},
	}
	if len(cmd.Options) > 0 {
		lines := make([]string, 0, len(cmd.Options))
		for _, opt := range cmd.Options {
			req := "(Optional)"
			if opt.Required || opt.Type == discordgo.ApplicationCommandOptionSubCommand {
				req = ""
			}
			lines = append(lines, strings.TrimSpace(fmt.Sprintf("`%s`: %s %s", opt.Name, opt.Description, req)))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Options", Value: strings.Join(lines, "\n"),
		})
	}
	return embed, true
}

func helpOverview() *discordgo.MessageEmbed {
	var musicLines, otherLines []string
	for _, cmd := range AllCommands() {
		line := fmt.Sprintf("`%s` - %s", usage(cmd), cmd.Description)
		if strings.HasPrefix(CommandPermissionMap[cmd.Name], "music.") {
			musicLines = append(musicLines, line)
		} else {
			otherLines = append(otherLines, line)
		}
	}

	return &discordgo.MessageEmbed{
		Title:       "🎵 Music Bot Commands",
		Description: "Use `/help <command>` for detailed information about a specific command.",
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🎵 Music Controls", Value: strings.Join(musicLines, "\n")},
			{Name: "📋 Other", Value: strings.Join(otherLines, "\n")},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d commands available", len(AllCommands())),
		},
	}
}
