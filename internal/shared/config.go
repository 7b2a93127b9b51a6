package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/folio/internal/models"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override the credentials and endpoint in config.toml.
const (
	EnvAuthUser = "FOLIO_AUTH_USER"
	EnvAuthPass = "FOLIO_AUTH_PASS"
	EnvBaseURL  = "FOLIO_API_URL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Browse   BrowseConfig   `toml:"browse"`
	Log      LogConfig      `toml:"log"`
	Genres   []models.Genre `toml:"genres"`
}

// APIConfig describes the remote backend and the app-level Basic credentials.
type APIConfig struct {
	BaseURL           string        `toml:"base_url"`
	Username          string        `toml:"username"`
	Password          string        `toml:"password"`
	LoginPath         string        `toml:"login_path"`
	Timeout           time.Duration `toml:"timeout"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Burst             int           `toml:"burst"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// BrowseConfig tunes the genre browser.
type BrowseConfig struct {
	PageSize      int           `toml:"page_size"`
	Debounce      time.Duration `toml:"debounce"`
	MaxConcurrent int           `toml:"max_concurrent"`
}

// LogConfig sets the log level and where the TUI writes its log.
type LogConfig struct {
	Level   string `toml:"level"`
	TUIFile string `toml:"tui_file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults, then environment overrides are applied.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	defaultGenres := config.Genres
	// Genres in the file replace the defaults wholesale.
	config.Genres = nil

	if _, err := toml.Decode(string(data), config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}
	if len(config.Genres) == 0 {
		config.Genres = defaultGenres
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports configuration values the client cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("%w: api.base_url is empty", ErrInvalidConfig)
	case c.Browse.PageSize <= 0:
		return fmt.Errorf("%w: browse.page_size must be positive", ErrInvalidConfig)
	case c.Browse.Debounce < 0:
		return fmt.Errorf("%w: browse.debounce must not be negative", ErrInvalidConfig)
	case len(c.Genres) == 0:
		return fmt.Errorf("%w: at least one [[genres]] entry is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Genres))
	for _, g := range c.Genres {
		if g.Value == "" {
			return fmt.Errorf("%w: genre with empty value", ErrInvalidConfig)
		}
		if seen[g.Value] {
			return fmt.Errorf("%w: duplicate genre %q", ErrInvalidConfig, g.Value)
		}
		seen[g.Value] = true
	}
	return nil
}

// HasCredentials reports whether both Basic auth credentials are set.
func (c *Config) HasCredentials() bool {
	return c.API.Username != "" && c.API.Password != ""
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvAuthUser); ok {
		c.API.Username = v
	}
	if v, ok := os.LookupEnv(EnvAuthPass); ok {
		c.API.Password = v
	}
	if v, ok := os.LookupEnv(EnvBaseURL); ok && v != "" {
		c.API.BaseURL = v
	}
}
