package database

import (
	"path/filepath"
	"slices"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPermissions(t *testing.T) {
	db := openTestDB(t)

	for _, node := range []string{"music.skip", "music.play", "music.play"} {
		if err := db.AddPermission("g1", "u1", node); err != nil {
			t.Fatal(err)
		}
	}
	ok, err := db.HasPermission("g1", "u1", "music.play")
	if err != nil || !ok {
		t.Fatalf("HasPermission = %v, %v", ok, err)
	}
	nodes, err := db.ListPermissions("g1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(nodes, []string{"music.play", "music.skip"}) {
		t.Errorf("nodes = %v", nodes)
	}

	removed, err := db.RemovePermission("g1", "u1", "music.play")
	if err != nil || !removed {
		t.Fatalf("RemovePermission = %v, %v", removed, err)
	}
	if ok, _ := db.HasPermission("g1", "u1", "music.play"); ok {
		t.Error("permission still present after removal")
	}
	if removed, _ := db.RemovePermission("g1", "u1", "music.play"); removed {
		t.Error("second removal reported a grant")
	}
}

func TestPermissionsAreScopedToGuild(t *testing.T) {
	db := openTestDB(t)

	if err := db.AddPermission("guildA", "u1", "admin.perm"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.HasPermission("guildB", "u1", "admin.perm"); ok {
		t.Error("grant from guildA applies in guildB")
	}
	nodes, err := db.ListPermissions("guildB", "u1")
	if err != nil || len(nodes) != 0 {
		t.Errorf("guildB nodes = %v, %v", nodes, err)
	}
	if removed, _ := db.RemovePermission("guildB", "u1", "admin.perm"); removed {
		t.Error("removal in guildB touched guildA's grant")
	}
	if ok, _ := db.HasPermission("guildA", "u1", "admin.perm"); !ok {
		t.Error("guildA grant lost")
	}
}

func TestGuildSettingsDefaults(t *testing.T) {
	db := openTestDB(t)

	s, err := db.GetGuildSettings("g1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Volume != FallbackVolume || s.DJRole != "" || s.SongsPlayed != 0 {
		t.Errorf("defaults = %+v", s)
	}
	if v := db.DefaultVolume("g1"); v != FallbackVolume {
		t.Errorf("DefaultVolume = %d", v)
	}
}

func TestGuildSettingsUpdates(t *testing.T) {
	db := openTestDB(t)

	if err := db.SetDefaultVolume("g1", 60); err != nil {
		t.Fatal(err)
	}
	if err := db.SetDJRole("g1", "role-1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetGuildName("g1", "Lounge"); err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if err := db.IncrementSongsPlayed("g1"); err != nil {
			t.Fatal(err)
		}
	}

	s, err := db.GetGuildSettings("g1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Volume != 60 || s.DJRole != "role-1" || s.GuildName != "Lounge" || s.SongsPlayed != 3 {
		t.Errorf("settings = %+v", s)
	}
	if s.CreatedAt.IsZero() || s.UpdatedAt.Before(s.CreatedAt) {
		t.Errorf("timestamps = %v / %v", s.CreatedAt, s.UpdatedAt)
	}
	if v := db.DefaultVolume("g1"); v != 60 {
		t.Errorf("DefaultVolume = %d", v)
	}
	if v := db.DefaultVolume("g2"); v != FallbackVolume {
		t.Errorf("other guild volume = %d", v)
	}
}

func TestFallbackVolume(t *testing.T) {
	db := openTestDB(t)
	db.SetFallbackVolume(70)
	if v := db.DefaultVolume("g1"); v != 70 {
		t.Errorf("DefaultVolume = %d, want 70", v)
	}
	if err := db.SetDJRole("g1", "dj"); err != nil {
		t.Fatal(err)
	}
	if v := db.DefaultVolume("g1"); v != 70 {
		t.Errorf("volume after saving other settings = %d, want 70", v)
	}
}

func TestSetDefaultVolumeRange(t *testing.T) {
	db := openTestDB(t)
	for _, v := range []int{-1, 201} {
		if err := db.SetDefaultVolume("g1", v); err == nil {
			t.Errorf("volume %d accepted", v)
		}
	}
}
