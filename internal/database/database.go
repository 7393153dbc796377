package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// FallbackVolume is the default volume of guilds that never changed it.
const FallbackVolume = 100

type DB struct {
	conn           *sql.DB
	fallbackVolume int
}

// New initializes the database connection and creates the schema.
func New(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{conn: db, fallbackVolume: FallbackVolume}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database connected: %s", dsn)
	return d, nil
}

func (d *DB) migrate() error {
	_, err := d.conn.Exec(`
	CREATE TABLE IF NOT EXISTS guild_permissions (
		guild_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		node TEXT NOT NULL,
		PRIMARY KEY (guild_id, user_id, node)
	);`)
	if err != nil {
		return err
	}

	_, err = d.conn.Exec(`
	CREATE TABLE IF NOT EXISTS guild_settings (
		guild_id TEXT PRIMARY KEY,
		guild_name TEXT NOT NULL DEFAULT '',
		volume INTEGER NOT NULL DEFAULT 100,
		dj_role TEXT NOT NULL DEFAULT '',
		songs_played INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

func (d *DB) Close() error {
	log.Println("Database connection closing.")
	return d.conn.Close()
}

// SetFallbackVolume changes the volume reported for guilds without settings.
func (d *DB) SetFallbackVolume(volume int) {
	d.fallbackVolume = volume
}

// AddPermission grants a permission node to a user inside one guild.
func (d *DB) AddPermission(guildID, userID, node string) error {
	_, err := d.conn.Exec("INSERT OR IGNORE INTO guild_permissions (guild_id, user_id, node) VALUES (?, ?, ?)", guildID, userID, node)
	return err
}

// RemovePermission revokes a permission node from a user inside one guild.
// It reports whether a grant was actually removed.
func (d *DB) RemovePermission(guildID, userID, node string) (bool, error) {
	res, err := d.conn.Exec("DELETE FROM guild_permissions WHERE guild_id = ? AND user_id = ? AND node = ?", guildID, userID, node)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// HasPermission checks if a user holds a node in the given guild.
func (d *DB) HasPermission(guildID, userID, node string) (bool, error) {
	var exists int
	err := d.conn.QueryRow("SELECT 1 FROM guild_permissions WHERE guild_id = ? AND user_id = ? AND node = ?", guildID, userID, node).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListPermissions returns the nodes a user holds in the given guild.
func (d *DB) ListPermissions(guildID, userID string) ([]string, error) {
	rows, err := d.conn.Query("SELECT node FROM guild_permissions WHERE guild_id = ? AND user_id = ? ORDER BY node", guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []string
	for rows.Next() {
		var node string
		if err := rows.Scan(&node); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// GuildSettings is a guild's stored preferences and counters.
type GuildSettings struct {
	GuildID     string
	GuildName   string
	Volume      int
	DJRole      string
	SongsPlayed int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GetGuildSettings returns the guild's settings, or defaults when it has none.
func (d *DB) GetGuildSettings(guildID string) (*GuildSettings, error) {
	s := &GuildSettings{GuildID: guildID, Volume: d.fallbackVolume}
	var created, updated string
	err := d.conn.QueryRow(`SELECT guild_name, volume, dj_role, songs_played, created_at, updated_at
		FROM guild_settings WHERE guild_id = ?`, guildID).Scan(
		&s.GuildName, &s.Volume, &s.DJRole, &s.SongsPlayed, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, created)
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return s, nil
}

// upsert creates the guild row if needed, then applies set (an UPDATE SET
// clause) with args.
func (d *DB) upsert(guildID, set string, args ...any) error {
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR IGNORE INTO guild_settings (guild_id, volume, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		guildID, d.fallbackVolume, now, now)
	if err != nil {
		return err
	}
	args = append(args, now, guildID)
	if _, err := tx.Exec("UPDATE guild_settings SET "+set+", updated_at = ? WHERE guild_id = ?", args...); err != nil {
		return err
	}
	return tx.Commit()
}

// SetDefaultVolume stores the volume new tracks start at.
func (d *DB) SetDefaultVolume(guildID string, volume int) error {
	if volume < 0 || volume > 200 {
		return fmt.Errorf("volume %d out of range 0-200", volume)
	}
	return d.upsert(guildID, "volume = ?", volume)
}

// SetDJRole stores the role allowed to control playback. Empty clears it.
func (d *DB) SetDJRole(guildID, roleID string) error {
	return d.upsert(guildID, "dj_role = ?", roleID)
}

// SetGuildName records the guild's display name.
func (d *DB) SetGuildName(guildID, name string) error {
	return d.upsert(guildID, "guild_name = ?", name)
}

// IncrementSongsPlayed bumps the guild's played-track counter.
func (d *DB) IncrementSongsPlayed(guildID string) error {
	return d.upsert(guildID, "songs_played = songs_played + 1")
}

// DefaultVolume returns the guild's stored volume, or the fallback volume
// when it has none or it cannot be read.
func (d *DB) DefaultVolume(guildID string) int {
	s, err := d.GetGuildSettings(guildID)
	if err != nil {
		log.Printf("[DATABASE ERROR] Failed to read settings for guild %s: %v", guildID, err)
		return d.fallbackVolume
	}
	return s.Volume
}
