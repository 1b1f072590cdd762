// Package main provides the guessbox game entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessbox/internal/app/game"
	"github.com/osa030/guessbox/internal/app/ledger"
	"github.com/osa030/guessbox/internal/app/round"
	"github.com/osa030/guessbox/internal/domain/challenge"
	"github.com/osa030/guessbox/internal/infra/config"
	"github.com/osa030/guessbox/internal/infra/historydb"
	"github.com/osa030/guessbox/internal/infra/logger"
	"github.com/osa030/guessbox/internal/infra/spotify"
)

var (
	app        = kingpin.New("guessbox", "Guess the song playing on Spotify")
	configPath = app.Flag("config", "Path to config file").Default(config.DefaultPath()).String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	// play command
	playCmd      = app.Command("play", "Play random tracks from a playlist").Default()
	playPlaylist = playCmd.Flag("playlist", "Playlist ID, URL, or URI").Short('p').Required().String()

	// challenge command
	challengeCmd  = app.Command("challenge", "Play a challenge file")
	challengeFile = challengeCmd.Arg("file", "Challenge file (YAML or JSON)").Required().ExistingFile()

	// playlists command
	playlistsCmd = app.Command("playlists", "List your playlists")

	// history command
	historyCmd    = app.Command("history", "Show past rounds")
	historyExport = historyCmd.Flag("export-challenge", "Write the history as a challenge file").String()
	historyName   = historyCmd.Flag("name", "Challenge name for --export-challenge").Default("guessbox history").String()
	historyClear  = historyCmd.Flag("clear", "Delete all history").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stderr", Level: "warn"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
		if !*verbose {
			loggerConfig.Level = "info"
		}
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zlog.Error().Msgf("Failed to load config: %v", err)
		fmt.Fprintln(os.Stderr, renderError(err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, cfg); err != nil && !errors.Is(err, context.Canceled) {
		zlog.Error().Msgf("guessbox: %v", err)
		fmt.Fprintln(os.Stderr, renderError(err.Error()))
		os.Exit(1)
	}
}

// loadConfig loads the config file. A missing file at the default location
// is not an error; credentials may come from the environment.
func loadConfig(path string) (*config.Config, error) {
	if path == config.DefaultPath() {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			zlog.Debug().Msgf("guessbox: no config file at %s, using environment", path)
			return config.Parse(nil)
		}
	}
	zlog.Info().Msgf("guessbox: loading config from %s", path)
	return config.Load(path)
}

// run executes the command. Using a separate function ensures deferred
// cleanups run before exiting.
func run(ctx context.Context, command string, cfg *config.Config) error {
	if command == historyCmd.FullCommand() {
		return runHistory(ctx, cfg)
	}

	client, err := spotify.New(ctx, spotify.Config{
		ClientID:        cfg.Spotify.ClientID,
		ClientSecret:    cfg.Spotify.ClientSecret,
		RefreshToken:    cfg.Spotify.RefreshToken,
		Market:          cfg.Spotify.Market,
		DeviceID:        cfg.Spotify.DeviceID,
		StartTimeout:    cfg.Game.StartTimeout(),
		ConfirmInterval: cfg.Game.ConfirmInterval(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create Spotify client")
	}

	l := ledger.New()
	store, err := openHistory(ctx, cfg, l)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	c := newConsole(cfg, os.Stdin, os.Stdout)
	gameCfg := game.Config{
		Round: round.Config{TickInterval: cfg.Game.TickInterval()},
		Messages: game.Messages{
			PlaylistsFailed:      cfg.GetMessage(config.MsgPlaylistsFailed),
			TracksFailed:         cfg.GetMessage(config.MsgTracksFailed),
			ChallengeTrackFailed: cfg.GetMessage(config.MsgChallengeTrackFailed),
		},
		Hooks: c.hooks(),
	}
	if store != nil {
		gameCfg.Store = store
	}
	orch := game.New(client, client, l, gameCfg)
	defer orch.Close()
	c.orch = orch

	switch command {
	case playlistsCmd.FullCommand():
		playlists, err := orch.ListPlaylists(ctx)
		if err != nil {
			return errors.New(game.UserMessage(err, cfg.GetMessage("")))
		}
		fmt.Print(renderPlaylists(playlists))
		return nil

	case challengeCmd.FullCommand():
		def, err := challenge.Load(*challengeFile)
		if err != nil {
			return err
		}
		err = c.run(ctx, func(ctx context.Context) (game.Outcome, error) {
			return orch.StartChallenge(ctx, def)
		})
		fmt.Println(renderStats(l.Stats()))
		return err

	default:
		err := c.run(ctx, func(ctx context.Context) (game.Outcome, error) {
			return orch.StartFree(ctx, *playPlaylist)
		})
		fmt.Println(renderStats(l.Stats()))
		return err
	}
}

// openHistory opens the history store and restores it into the ledger.
// It returns nil when history is disabled.
func openHistory(ctx context.Context, cfg *config.Config, l *ledger.Ledger) (*historydb.Store, error) {
	if !cfg.History.IsEnabled() {
		return nil, nil
	}

	path := cfg.History.Path
	if path == "" {
		p, err := historydb.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	store, err := historydb.Open(path)
	if err != nil {
		return nil, err
	}

	if l != nil {
		entries, err := store.List(ctx)
		if err != nil {
			store.Close()
			return nil, err
		}
		l.Restore(entries)
		zlog.Info().Msgf("guessbox: restored %d history entries from %s", len(entries), path)
	}
	return store, nil
}

func runHistory(ctx context.Context, cfg *config.Config) error {
	store, err := openHistory(ctx, cfg, nil)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("history is disabled")
	}
	defer store.Close()

	if *historyClear {
		return store.Clear(ctx)
	}

	entries, err := store.List(ctx)
	if err != nil {
		return err
	}

	if *historyExport != "" {
		if len(entries) == 0 {
			return errors.New("no history to export")
		}
		data, err := challenge.Marshal(challenge.FromHistory(*historyName, entries))
		if err != nil {
			return err
		}
		if err := os.WriteFile(*historyExport, data, 0o644); err != nil {
			return errors.Wrap(err, "failed to write challenge file")
		}
		fmt.Printf("Wrote %d tracks to %s\n", len(entries), *historyExport)
		return nil
	}

	fmt.Print(renderHistory(entries, time.Now()))
	l := ledger.New()
	l.Restore(entries)
	fmt.Println(renderStats(l.Stats()))
	return nil
}
