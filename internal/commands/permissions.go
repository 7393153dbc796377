package commands

import (
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var PermissionCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "perm",
		Description: "Manage who can use the bot in this server",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "add",
				Description: "Grant a member a permission in this server",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "user",
						Description: "The member to grant to",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "node",
						Description: "A permission node (music.skip) or a category (music)",
						Required:    true,
					},
				},
			},
			{
				Name:        "remove",
				Description: "Revoke a member's permission in this server",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "user",
						Description: "The member to revoke from",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "node",
						Description: "A permission node or a category",
						Required:    true,
					},
				},
			},
			{
				Name:        "list",
				Description: "Show a member's grants in this server",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "user",
						Description: "The member to inspect",
						Required:    true,
					},
				},
			},
		},
	},
}

// permChange is a parsed /perm add or /perm remove.
type permChange struct {
	user    *discordgo.User
	input   string
	nodes   []string // nodes the caller may change
	refused []string // admin nodes the caller may not hand out
}

func HandlePermissionCommand(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if len(data.Options) == 0 {
		return
	}
	if DB == nil {
		respondError(s, i, "Database not initialized.")
		return
	}

	subcmd := data.Options[0]
	switch subcmd.Name {
	case "add", "remove":
		change, err := parsePermChange(s, i.Member, subcmd.Options)
		if err != nil {
			respondError(s, i, err.Error())
			return
		}
		if subcmd.Name == "add" {
			handlePermAdd(s, i, change)
		} else {
			handlePermRemove(s, i, change)
		}
	case "list":
		handlePermList(s, i, subcmd.Options)
	}
}

func parsePermChange(s *discordgo.Session, caller *discordgo.Member, options []*discordgo.ApplicationCommandInteractionDataOption) (*permChange, error) {
	input := optionString(options, "node")
	var user *discordgo.User
	for _, opt := range options {
		if opt.Name == "user" {
			user = opt.UserValue(s)
		}
	}
	if user == nil {
		return nil, fmt.Errorf("pick a member")
	}

	nodes := resolveNodes(input)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("invalid permission node or category: `%s`", input)
	}
	change := &permChange{user: user, input: input}
	change.nodes, change.refused = splitGrantable(caller, nodes)
	if len(change.nodes) == 0 {
		return nil, fmt.Errorf("only members with Manage Server can change `admin` permissions")
	}
	return change, nil
}

// splitGrantable separates the nodes caller may hand out from those it may
// not. Admin nodes stay with the bot owner and members who manage the server,
// so a stored admin.perm grant cannot be used to mint more admins.
func splitGrantable(caller *discordgo.Member, nodes []string) (allowed, refused []string) {
	for _, node := range nodes {
		if strings.HasPrefix(node, "admin.") && !isOwner(caller) && !managesGuild(caller) {
			refused = append(refused, node)
			continue
		}
		allowed = append(allowed, node)
	}
	return allowed, refused
}

func isOwner(m *discordgo.Member) bool {
	return OwnerID != "" && m != nil && m.User != nil && m.User.ID == OwnerID
}

func handlePermAdd(s *discordgo.Session, i *discordgo.InteractionCreate, c *permChange) {
	var granted []string
	for _, node := range c.nodes {
		if err := DB.AddPermission(i.GuildID, c.user.ID, node); err != nil {
			log.Printf("[DATABASE ERROR] Add %s for %s in guild %s: %v", node, c.user.ID, i.GuildID, err)
			continue
		}
		granted = append(granted, node)
	}
	if len(granted) == 0 {
		respondError(s, i, "Failed to add any permissions.")
		return
	}
	log.Printf("[PERMISSIONS] %s granted %v to %s in guild %s", i.Member.User.ID, granted, c.user.ID, i.GuildID)
	respondSuccess(s, i, changeSummary("✅ Granted", "to", c, granted))
}

func handlePermRemove(s *discordgo.Session, i *discordgo.InteractionCreate, c *permChange) {
	var revoked []string
	for _, node := range c.nodes {
		removed, err := DB.RemovePermission(i.GuildID, c.user.ID, node)
		if err != nil {
			log.Printf("[DATABASE ERROR] Remove %s for %s in guild %s: %v", node, c.user.ID, i.GuildID, err)
			continue
		}
		if removed {
			revoked = append(revoked, node)
		}
	}
	if len(revoked) == 0 {
		respondSuccess(s, i, fmt.Sprintf("**%s** had no `%s` grants here.", c.user.Username, c.input))
		return
	}
	log.Printf("[PERMISSIONS] %s revoked %v from %s in guild %s", i.Member.User.ID, revoked, c.user.ID, i.GuildID)
	respondSuccess(s, i, changeSummary("🗑️ Revoked", "from", c, revoked))
}

func changeSummary(verb, prep string, c *permChange, nodes []string) string {
	var b strings.Builder
	if len(nodes) == 1 {
		fmt.Fprintf(&b, "%s `%s` %s **%s**.", verb, nodes[0], prep, c.user.Username)
	} else {
		fmt.Fprintf(&b, "%s **%d** permissions %s **%s**.", verb, len(nodes), prep, c.user.Username)
	}
	if len(c.refused) > 0 {
		fmt.Fprintf(&b, "\nSkipped %s: only members with Manage Server can change admin permissions.", codeList(c.refused))
	}
	return b.String()
}

func resolveNodes(input string) []string {
	input = strings.ToLower(strings.TrimSpace(input))
	if IsValidPermissionNode(input) {
		return []string{input}
	}
	return GetPermissionsByCategory(input)
}

func handlePermList(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	user := options[0].UserValue(s)

	nodes, err := DB.ListPermissions(i.GuildID, user.ID)
	if err != nil {
		respondError(s, i, fmt.Sprintf("Failed to list permissions: %v", err))
		return
	}
	djRole := ""
	if settings, err := DB.GetGuildSettings(i.GuildID); err == nil {
		djRole = settings.DJRole
	}
	respondSuccess(s, i, permListMessage(user.Username, nodes, djRole))
}

// permListMessage describes a member's grants in one guild and how the DJ
// role interacts with them.
func permListMessage(username string, nodes []string, djRole string) string {
	var b strings.Builder
	if len(nodes) == 0 {
		fmt.Fprintf(&b, "**%s** has no grants in this server.", username)
	} else {
		fmt.Fprintf(&b, "📋 **Grants for %s in this server**: %s", username, codeList(nodes))
	}
	if djRole == "" {
		b.WriteString("\nNo DJ role is set, so music controls are open to everyone.")
	} else {
		fmt.Fprintf(&b, "\nMusic controls need <@&%s>; `music` grants let a member in without it.", djRole)
	}
	return b.String()
}

func codeList(nodes []string) string {
	quoted := make([]string, len(nodes))
	for i, n := range nodes {
		quoted[i] = "`" + n + "`"
	}
	return strings.Join(quoted, ", ")
}
