package discord

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

type Bot struct {
	Session *discordgo.Session
	Config  *Config
}

func New(cfg *Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	// Voice states are needed to find listeners and track the bot itself.
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates
	session.StateEnabled = true

	return &Bot{
		Session: session,
		Config:  cfg,
	}, nil
}

func (b *Bot) Start() error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	log.Println("Bot is now running. Press CTRL-C to exit.")
	return nil
}

func (b *Bot) Stop() error {
	return b.Session.Close()
}

// OwnerID looks up the application owner, or the team owner for team apps.
func (b *Bot) OwnerID() (string, error) {
	app, err := b.Session.Application("@me")
	if err != nil {
		return "", fmt.Errorf("fetch application info: %w", err)
	}
	switch {
	case app.Owner != nil:
		return app.Owner.ID, nil
	case app.Team != nil:
		return app.Team.OwnerID, nil
	}
	return "", fmt.Errorf("application has no owner")
}
