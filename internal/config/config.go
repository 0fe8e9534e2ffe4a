package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/condenser/internal/application"
	"github.com/spf13/viper"
)

const (
	BackendWebsocket = "websocket"
	BackendMemory    = "memory"

	DefaultAppID = "word-condenser"

	configDir = ".condenser"
)

// Config holds all configuration for condenser.
type Config struct {
	Conductor ConductorConfig `mapstructure:"conductor"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Poll      PollConfig      `mapstructure:"poll"`
	Lobby     LobbyConfig     `mapstructure:"lobby"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ConductorConfig selects how condenser reaches its conductor.
type ConductorConfig struct {
	Backend        string        `mapstructure:"backend"`
	URL            string        `mapstructure:"url"`
	AppID          string        `mapstructure:"app_id"`
	Origin         string        `mapstructure:"origin"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// StatePath and Agent only apply to the memory backend.
	StatePath string `mapstructure:"state_path"`
	Agent     string `mapstructure:"agent"`
}

type StorageConfig struct {
	Path        string `mapstructure:"path"`
	FallbackDir string `mapstructure:"fallback_dir"`
}

type PollConfig struct {
	PolledAssociations   time.Duration `mapstructure:"polled_associations"`
	PolledOffers         time.Duration `mapstructure:"polled_offers"`
	Associations         time.Duration `mapstructure:"associations"`
	Offers               time.Duration `mapstructure:"offers"`
	Reflections          time.Duration `mapstructure:"reflections"`
	CommentsCount        time.Duration `mapstructure:"comments_count"`
	CommentsOnReflection time.Duration `mapstructure:"comments_on_reflection"`
}

func (p PollConfig) Intervals() application.PollIntervals {
	return application.PollIntervals{
		PolledAssociations:   p.PolledAssociations,
		PolledOffers:         p.PolledOffers,
		Associations:         p.Associations,
		Offers:               p.Offers,
		Reflections:          p.Reflections,
		CommentsCount:        p.CommentsCount,
		CommentsOnReflection: p.CommentsOnReflection,
	}
}

type LobbyConfig struct {
	JoinGrace time.Duration `mapstructure:"join_grace"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// New returns a viper instance carrying condenser's defaults, config file search path
// and CONDENSER_ environment binding.
func New() *viper.Viper {
	v := viper.New()
	dir := filepath.Join(homeDir(), configDir)

	v.SetDefault("conductor.backend", BackendWebsocket)
	v.SetDefault("conductor.url", "ws://127.0.0.1:8888")
	v.SetDefault("conductor.app_id", DefaultAppID)
	v.SetDefault("conductor.origin", "")
	v.SetDefault("conductor.request_timeout", 30*time.Second)
	v.SetDefault("conductor.state_path", filepath.Join(dir, "network.msgpack"))
	v.SetDefault("conductor.agent", "me")

	v.SetDefault("storage.path", filepath.Join(dir, "storage.toml"))
	v.SetDefault("storage.fallback_dir", filepath.Join(dir, "storage.d"))

	defaults := application.DefaultPollIntervals()
	v.SetDefault("poll.polled_associations", defaults.PolledAssociations)
	v.SetDefault("poll.polled_offers", defaults.PolledOffers)
	v.SetDefault("poll.associations", defaults.Associations)
	v.SetDefault("poll.offers", defaults.Offers)
	v.SetDefault("poll.reflections", defaults.Reflections)
	v.SetDefault("poll.comments_count", defaults.CommentsCount)
	v.SetDefault("poll.comments_on_reflection", defaults.CommentsOnReflection)

	v.SetDefault("lobby.join_grace", 3*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("metrics.addr", "")

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("CONDENSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads configuration from file and environment variables.
func Load() (*Config, *viper.Viper, error) {
	v := New()
	cfg, err := FromViper(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Conductor.Backend {
	case BackendWebsocket:
		u, err := url.Parse(c.Conductor.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("conductor.url must be a ws:// or wss:// url, got %q", c.Conductor.URL)
		}
	case BackendMemory:
		if c.Conductor.StatePath == "" {
			return errors.New("conductor.state_path must not be empty for the memory backend")
		}
		if c.Conductor.Agent == "" {
			return errors.New("conductor.agent must not be empty for the memory backend")
		}
	default:
		return fmt.Errorf("conductor.backend must be %q or %q, got %q", BackendWebsocket, BackendMemory, c.Conductor.Backend)
	}
	if c.Conductor.AppID == "" {
		return errors.New("conductor.app_id must not be empty")
	}
	if c.Conductor.RequestTimeout < 0 {
		return errors.New("conductor.request_timeout must be >= 0")
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path must not be empty")
	}

	intervals := map[string]time.Duration{
		"poll.polled_associations":    c.Poll.PolledAssociations,
		"poll.polled_offers":          c.Poll.PolledOffers,
		"poll.associations":           c.Poll.Associations,
		"poll.offers":                 c.Poll.Offers,
		"poll.reflections":            c.Poll.Reflections,
		"poll.comments_count":         c.Poll.CommentsCount,
		"poll.comments_on_reflection": c.Poll.CommentsOnReflection,
	}
	for key, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("%s must be greater than 0", key)
		}
	}

	if c.Lobby.JoinGrace < 0 {
		return errors.New("lobby.join_grace must be >= 0")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
