package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/formatter"
	"github.com/desertthunder/folio/internal/notify"
	"github.com/desertthunder/folio/internal/repositories"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/session"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/desertthunder/folio/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	client     *services.Client
	api        *services.APIService
	db         *sql.DB
	sessions   *repositories.SessionRepository
	prefs      *repositories.PreferenceRepository
	store      *session.Store
	gate       *session.Gate
	notifier   *notify.Dispatcher
	engine     *tasks.Engine
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Client     *services.Client
	API        *services.APIService
	DB         *sql.DB
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		client:     opts.Client,
		api:        opts.API,
		db:         opts.DB,
		notifier:   notify.NewDispatcher(0),
		output:     opts.Output,
		input:      opts.Input,
	}
	if opts.DB != nil {
		r.sessions = repositories.NewSessionRepository(opts.DB)
		r.prefs = repositories.NewPreferenceRepository(opts.DB)
	}
	r.SetLogger(opts.Logger)
	return r
}

// SetLogger swaps the logger and rebuilds the components that captured it.
// The session is not yet resolved when this runs, so rebuilding the gate loses nothing.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger

	var persist session.Persister
	if r.sessions != nil {
		persist = r.sessions
	}
	r.store = session.NewStore(persist, session.WithLogger(logger))
	r.gate = session.NewGate(r.store)

	var backend tasks.Backend
	if r.client != nil {
		backend = r.client
	}
	r.engine = tasks.NewEngine(backend, logger)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, booksCommand, episodesCommand, coinsCommand,
		historyCommand, notificationsCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// protect wraps action with the session gate. The gate is looked up per call since [Runner.SetLogger] replaces it.
func (r *Runner) protect(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		return r.gate.Guard(action)(ctx, cmd)
	}
}

// requireClient fails commands that need the backend when it could not be configured.
func (r *Runner) requireClient() error {
	if r.client == nil {
		return fmt.Errorf("%w: API client not initialized; check [api] base_url", shared.ErrServiceUnavailable)
	}
	return nil
}

// renderNotices writes queued notifications through the logger.
func (r *Runner) renderNotices() {
	r.notifier.Render(notify.LogRenderer(r.logger))
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// write renders data produced by a formatter.
func (r *Runner) write(data []byte, err error) error {
	return formatter.Write(r.output, data, err)
}

// confirm asks a yes/no question on the runner's input. Anything but y/yes is a no.
func (r *Runner) confirm(question string) (bool, error) {
	if err := r.writePlain("%s [y/N] ", question); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// formatFlag is shared by every listing command.
func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, json, csv or md",
		Value:   string(formatter.Text),
	}
}
