package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"encore/internal/commands"
	"encore/internal/database"
	"encore/internal/discord"
	"encore/internal/events"
	"encore/internal/music"
	"encore/internal/player"
	"encore/internal/sources"
	"encore/internal/subsonic"

	"github.com/bwmarrin/discordgo"
)

func main() {
	// 1. Load Configuration
	cfg, err := discord.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// 2. Initialize Bot
	bot, err := discord.New(cfg)
	if err != nil {
		log.Fatalf("Error initializing bot: %v", err)
	}

	// 3. Initialize Database
	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer db.Close()
	db.SetFallbackVolume(cfg.DefaultVolume)

	// 4. Track sources; Subsonic search is optional
	resolvers := []sources.Resolver{sources.NewYouTube(), sources.Direct{}}
	if cfg.SubsonicEnabled() {
		subClient := subsonic.NewClient(cfg.SubsonicURL, cfg.SubsonicUser, cfg.SubsonicPassword)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := subClient.Ping(ctx); err != nil {
			log.Printf("Warning: Subsonic ping failed: %v (search may not work)", err)
		} else {
			log.Println("Subsonic server connected successfully!")
		}
		cancel()
		resolvers = append(resolvers, sources.NewSubsonic(subClient))
	} else {
		log.Println("Warning: Subsonic config not set. Search disabled, links still work.")
	}
	registry := sources.NewRegistry(resolvers...)

	// 5. Playback
	connector := player.NewConnector(bot.Session, registry, player.EncodeOptions{
		FFmpegPath:       cfg.FFmpegPath,
		Bitrate:          cfg.FFmpegBitrate,
		CompressionLevel: cfg.CompressionLevel,
	})
	announcer := commands.NewAnnouncer(bot.Session, db)
	coordinator := music.NewCoordinator(connector, music.Options{
		ReconnectTimeout: cfg.ReconnectTimeout,
		Volumes:          db,
		Listener:         announcer,
	})

	commands.DB = db
	commands.Music = coordinator
	commands.Sources = registry
	commands.Announcements = announcer
	commands.Cooldowns = commands.NewCooldown(cfg.CommandCooldown)

	// 6. Register Event Handlers
	bot.Session.AddHandler(commands.HandleInteraction)

	idle := events.NewIdleWatcher(coordinator, connector, cfg.IdleTimeout)
	defer idle.Close()
	bot.Session.AddHandler(idle.OnVoiceStateUpdate)

	bot.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
	})
	bot.Session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if err := db.SetGuildName(g.ID, g.Name); err != nil {
			log.Printf("Warning: could not record guild %s: %v", g.ID, err)
		}
	})

	// 7. Start Bot
	if err := bot.Start(); err != nil {
		log.Fatalf("Error starting bot: %v", err)
	}
	defer bot.Stop()

	if ownerID, err := bot.OwnerID(); err != nil {
		log.Printf("Warning: Could not fetch application owner: %v", err)
	} else {
		commands.OwnerID = ownerID
		log.Printf("Bot Owner ID set to: %s", ownerID)
	}

	// 8. Register Commands
	commands.RegisterCommands(bot.Session, cfg.GuildID)

	// 9. Wait for Shutdown Signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	log.Println("Bot is running. Press Ctrl+C to exit.")
	<-stop

	log.Println("Gracefully shutting down...")
	coordinator.Shutdown()
}
