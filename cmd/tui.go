package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/folio/internal/notify"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/desertthunder/folio/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive reader.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logPath, err := shared.ExpandPath(r.config.Log.TUIFile)
	if err != nil {
		return err
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	opts := services.OptsFromConfig(r.config.API)
	opts.Logger = fileLogger
	client, err := services.NewClient(opts)
	if err != nil {
		return err
	}

	model, err := ui.NewModel(ctx, ui.Options{
		Backend:  client,
		Gate:     r.gate,
		Config:   r.config,
		Notifier: notify.NewDispatcher(0),
		Logger:   fileLogger,
	})
	if err != nil {
		return err
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return model.Err()
}
