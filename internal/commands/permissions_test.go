package commands

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"encore/internal/database"

	"github.com/bwmarrin/discordgo"
)

func useTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "perm.db"))
	if err != nil {
		t.Fatal(err)
	}
	DB = db
	t.Cleanup(func() {
		DB = nil
		db.Close()
	})
	return db
}

func TestGrantsDoNotCrossGuilds(t *testing.T) {
	db := useTestDB(t)
	if err := db.SetDJRole("guildB", "dj"); err != nil {
		t.Fatal(err)
	}
	// A manager of guildA grants themselves everything there.
	for _, node := range append(resolveNodes("admin"), resolveNodes("music")...) {
		if err := db.AddPermission("guildA", "mallory", node); err != nil {
			t.Fatal(err)
		}
	}

	plain := member("mallory", nil, 0)
	for _, node := range []string{"admin.settings", "admin.perm", "music.skip"} {
		if hasPermission("guildB", plain, node) {
			t.Errorf("guildB %s granted by a guildA row", node)
		}
	}
	if !hasPermission("guildA", plain, "admin.perm") {
		t.Error("guildA grant not honoured")
	}
}

func TestStoredMusicGrantPassesDJRole(t *testing.T) {
	db := useTestDB(t)
	if err := db.SetDJRole("g1", "dj"); err != nil {
		t.Fatal(err)
	}
	plain := member("u1", nil, 0)
	if hasPermission("g1", plain, "music.skip") {
		t.Fatal("member without the DJ role may skip")
	}
	if err := db.AddPermission("g1", "u1", "music.skip"); err != nil {
		t.Fatal(err)
	}
	if !hasPermission("g1", plain, "music.skip") {
		t.Error("stored grant ignored")
	}
	if hasPermission("g1", plain, "music.stop") {
		t.Error("grant leaked to another node")
	}
}

func TestSplitGrantable(t *testing.T) {
	OwnerID = "owner"
	t.Cleanup(func() { OwnerID = "" })
	nodes := []string{"admin.perm", "music.play"}

	delegate := member("u1", nil, 0)
	allowed, refused := splitGrantable(delegate, nodes)
	if !slices.Equal(allowed, []string{"music.play"}) || !slices.Equal(refused, []string{"admin.perm"}) {
		t.Errorf("delegate: allowed %v refused %v", allowed, refused)
	}

	for _, m := range []*discordgo.Member{
		member("u2", nil, discordgo.PermissionManageGuild),
		member("u3", nil, discordgo.PermissionAdministrator),
		member("owner", nil, 0),
	} {
		allowed, refused := splitGrantable(m, nodes)
		if len(allowed) != 2 || len(refused) != 0 {
			t.Errorf("%s: allowed %v refused %v", m.User.ID, allowed, refused)
		}
	}
}

func TestParsePermChangeRefusesAdminOnly(t *testing.T) {
	opts := []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "u9"},
		{Name: "node", Type: discordgo.ApplicationCommandOptionString, Value: "admin"},
	}
	if _, err := parsePermChange(nil, member("u1", nil, 0), opts); err == nil {
		t.Error("delegate could change admin nodes")
	}

	change, err := parsePermChange(nil, member("u2", nil, discordgo.PermissionManageGuild), opts)
	if err != nil {
		t.Fatal(err)
	}
	if change.user.ID != "u9" || !slices.Equal(change.nodes, []string{"admin.perm", "admin.settings"}) {
		t.Errorf("change = %+v", change)
	}

	opts[1].Value = "games"
	if _, err := parsePermChange(nil, member("u2", nil, discordgo.PermissionManageGuild), opts); err == nil {
		t.Error("unknown category accepted")
	}
}

func TestPermListMessage(t *testing.T) {
	msg := permListMessage("alice", nil, "")
	if !strings.Contains(msg, "no grants") || !strings.Contains(msg, "open to everyone") {
		t.Errorf("empty = %q", msg)
	}
	msg = permListMessage("alice", []string{"music.play", "music.skip"}, "42")
	if !strings.Contains(msg, "`music.play`, `music.skip`") || !strings.Contains(msg, "<@&42>") {
		t.Errorf("with grants = %q", msg)
	}
}
