package main

import (
	"context"
	"database/sql"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	configPath := defaultConfigPath
	if p := os.Getenv("FOLIO_CONFIG"); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	opts := services.OptsFromConfig(config.API)
	opts.Logger = logger
	client, err := services.NewClient(opts)
	if err != nil {
		logger.Warn("API client unavailable", "error", err)
		client = nil
	}

	var api *services.APIService
	if client != nil {
		api = services.NewAPIService(client.BaseURL(), client.AuthHeader(), opts.HTTPClient)
	}

	var db *sql.DB
	if dbPath, err := shared.ExpandPath(config.Database.Path); err == nil {
		if _, err := os.Stat(dbPath); err == nil {
			if db, err = shared.OpenDatabase(config.Database); err != nil {
				logger.Warn("database unavailable, sessions will not persist", "error", err)
				db = nil
			}
		} else {
			logger.Debug("no database yet; run `folio setup`", "path", dbPath)
		}
	}
	if db != nil {
		defer db.Close()
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Client:     client,
		API:        api,
		DB:         db,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:    "folio",
		Usage:   "Read, unlock and publish serialized fiction from the terminal",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(runner.logger, log.DebugLevel)
			}
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			runner.renderNotices()
			return nil
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotAuthenticated):
			runner.logger.Error(err.Error())
			os.Exit(1)
		case errors.Is(err, shared.ErrNotImplemented):
			runner.logger.Warn("not implemented")
			os.Exit(0)
		default:
			runner.renderNotices()
			runner.logger.Fatalf("application error: %s", services.ErrorMessage(err))
		}
	}
}
