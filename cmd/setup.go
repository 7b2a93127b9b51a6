package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/folio/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded template when missing, then creates and migrates the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	dbPath, err := shared.ExpandPath(config.Database.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	r.logger.Info("initializing database", "path", dbPath)
	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", dbPath)
	r.writePlain("✓ Configuration: %s\n", configPath)
	r.writePlain("✓ Database: %s\n", dbPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set [api] base_url, username and password in %s\n", configPath)
	r.writePlain("2. Run 'folio auth login --account you@example.com' to sign in\n")
	return nil
}
