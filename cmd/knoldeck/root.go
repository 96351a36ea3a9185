package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/config"
	"github.com/conorfennell/knoldeck/internal/deck"
	"github.com/conorfennell/knoldeck/internal/storage"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "knoldeck",
		Short:   "knoldeck - a spaced repetition scheduler",
		Long:    "knoldeck keeps a deck of flashcards in SQLite and decides which card to review next.",
		Version: version,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	def := config.Default()
	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file (default "+config.DefaultFile()+")")
	flags.String("db-path", def.DBPath, "Path to the SQLite database file")
	flags.String("log-level", def.LogLevel, "Log level: debug, info, warn or error")
	flags.String("log-format", def.LogFormat, "Log format: text or json")

	cmd.AddCommand(
		newStatusCmd(),
		newNextCmd(),
		newAnswerCmd(),
		newShowCmd(),
		newAddCmd(),
		newTagCmd(),
		newTagPriorityCmd(),
		newHoldCmd("suspend", "Suspend cards until they are unsuspended", (*deck.Deck).Suspend),
		newHoldCmd("unsuspend", "Return suspended cards to their queues", (*deck.Deck).Unsuspend),
		newHoldCmd("bury", "Hide cards until the next day", (*deck.Deck).Bury),
		newHoldCmd("unbury", "Return buried cards to their queues", (*deck.Deck).Unbury),
		newLimitsCmd(),
		newOrderCmd(),
		newVerifyCmd(),
		newServeCmd(),
	)
	return cmd
}

// app bundles what a command needs to work on the deck.
type app struct {
	cfg  *config.Config
	log  *slog.Logger
	db   *storage.DB
	deck *deck.Deck
}

// openApp loads the configuration from the command's flags and opens the deck.
func openApp(cmd *cobra.Command) (*app, error) {
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.LoadOptions{File: file, Flags: cmd.Flags()})
	if err != nil {
		return nil, err
	}
	log := cfg.NewLogger(os.Stderr)
	slog.SetDefault(log)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	log.Debug("Database opened", "path", cfg.DBPath)

	d, err := deck.Open(cmd.Context(), db, deck.Options{Logger: log, Config: &cfg.Deck})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db, deck: d}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Error("Failed to close database", "error", err)
	}
}

// withApp wraps a command body with openApp and Close.
func withApp(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), cmd, a, args)
	}
}
