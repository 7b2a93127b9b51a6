package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/desertthunder/folio/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) requireAPI() error {
	if r.api == nil {
		return fmt.Errorf("%w: API service not initialized; check [api] base_url", shared.ErrServiceUnavailable)
	}
	return nil
}

// APIGet makes a direct GET request to the backend
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAPI(); err != nil {
		return err
	}
	path := strings.TrimSpace(cmd.StringArg("path"))
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	r.logger.Info("GET request", "path", path)
	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, cmd.Bool("pretty"))
}

// APIPost makes a direct POST request to the backend
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAPI(); err != nil {
		return err
	}
	path := strings.TrimSpace(cmd.StringArg("path"))
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	data := cmd.String("data")
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	r.logger.Info("POST request", "path", path)
	resp, err := r.api.Post(ctx, path, []byte(data))
	if err != nil {
		return err
	}
	return r.writeResponse(resp, true)
}

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIDump snapshots everything the backend knows about the logged-in user.
func (r *Runner) APIDump(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	pretty := cmd.Bool("pretty")
	saveFile := cmd.String("save")

	r.logger.Info("dumping account state")
	r.writePlain("Fetching account state...\n\n")

	progressCh := make(chan tasks.ProgressUpdate, 20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchProfile:
				r.writePlain("👤 %s\n", update.Message)
			case tasks.FetchCoins:
				r.writePlain("🪙 %s\n", update.Message)
			case tasks.FetchHistory:
				r.writePlain("📜 %s\n", update.Message)
			case tasks.FetchNotifications:
				r.writePlain("🔔 %s\n", update.Message)
			case tasks.FetchBookmarks:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	result, err := r.engine.Dump(ctx, progressCh, r.store.Current().User, r.config.Genres)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	for _, e := range result.Errors {
		r.logger.Warn("endpoint failed", "endpoint", e.Endpoint, "error", e.Error)
	}
	r.writePlain("\n✓ Dump complete\n\n")

	data := result.Data()
	if saveFile != "" {
		out, err := shared.MarshalJSON(data, true)
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := os.WriteFile(saveFile, out, 0644); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", saveFile)
			r.writePlain("✓ Dump saved to %s\n\n", saveFile)
		}
	}

	return r.writeJSON(data, pretty)
}
