package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/tnicklin/vouchbot/config"
	"github.com/tnicklin/vouchbot/discord"
	"github.com/tnicklin/vouchbot/logger"
	"github.com/tnicklin/vouchbot/models"
	"github.com/tnicklin/vouchbot/store"
)

func main() {
	params, err := build()
	if err != nil {
		log.Fatal(err)
	}

	if err = run(params); err != nil {
		log.Fatal(err)
	}
}

type runParams struct {
	Logger        logger.Logger
	Session       *discordgo.Session
	Store         *store.Store
	DiscordClient discord.Discord
}

func build() (runParams, error) {
	cfg, err := config.LoadWithDefaults("config/config.yaml", "config/secrets.yaml")
	if err != nil {
		return runParams{}, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return runParams{}, fmt.Errorf("initialize logger: %w", err)
	}

	persister := store.NewFilePersister(cfg.State.Path)
	st := store.New(store.Params{
		Persister: persister,
		Logger:    appLogger,
	})

	ctx := context.Background()
	if err := st.Open(ctx); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return runParams{}, writeFirstRunTemplate(ctx, persister, cfg.State.Path)
		}
		return runParams{}, fmt.Errorf("open state store: %w", err)
	}

	token := st.Token()
	if token == "" || token == models.PlaceholderToken {
		return runParams{}, fmt.Errorf("%s holds no bot token, please configure it", cfg.State.Path)
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return runParams{}, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	discordClient := discord.New(discord.Params{
		Session: session,
		Store:   st,
		Logger:  appLogger,
	})

	return runParams{
		Logger:        appLogger,
		Session:       session,
		Store:         st,
		DiscordClient: discordClient,
	}, nil
}

// writeFirstRunTemplate refuses to start without saved state: it writes a
// template and asks the operator to fill in the token. Starting with an
// empty in-memory token is never an option.
func writeFirstRunTemplate(ctx context.Context, persister store.Persister, path string) error {
	template := models.FirstRunTemplate()
	if err := persister.Save(ctx, &template); err != nil {
		return fmt.Errorf("write first-run template %s: %w", path, err)
	}
	return fmt.Errorf("no state file found; wrote template to %s, please configure it and restart", path)
}

// run starts the bot and blocks until shutdown.
func run(p runParams) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer p.Logger.Sync()

	if err := p.Session.Open(); err != nil {
		return fmt.Errorf("open discord connection: %w", err)
	}
	defer p.Session.Close()

	if err := p.DiscordClient.Start(ctx); err != nil {
		return fmt.Errorf("start discord client: %w", err)
	}

	p.Logger.InfoW("bot running, press ctrl+c to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	if err := p.DiscordClient.Stop(); err != nil {
		p.Logger.ErrorW("stop discord client", "error", err)
	}
	return nil
}
