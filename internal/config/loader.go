package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/example/room-scheduler/internal/logging"
	"github.com/example/room-scheduler/internal/scheduler"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ROOMCTL"

// Config captures the settings of the roomctl binary.
type Config struct {
	SQLiteDSN             string `yaml:"sqlite_dsn" envconfig:"SQLITE_DSN"`
	Persist               bool   `yaml:"persist" envconfig:"PERSIST"`
	SeedDemo              bool   `yaml:"seed_demo" envconfig:"SEED_DEMO"`
	KnowledgeFile         string `yaml:"knowledge_file" envconfig:"KNOWLEDGE_FILE"`
	HighPriorityThreshold int    `yaml:"high_priority_threshold" envconfig:"HIGH_PRIORITY_THRESHOLD"`
	// CandidateSlots overrides the relocation grid, e.g. "2026-01-05T08:00..2026-01-05T10:00,...".
	CandidateSlots string `yaml:"candidate_slots" envconfig:"CANDIDATE_SLOTS"`
	LogLevel       string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat      string `yaml:"log_format" envconfig:"LOG_FORMAT"`
	Color          string `yaml:"color" envconfig:"COLOR"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SQLiteDSN:             "roomctl.db",
		Persist:               true,
		SeedDemo:              true,
		HighPriorityThreshold: 8,
		LogLevel:              "info",
		LogFormat:             "text",
		Color:                 "auto",
	}
}

// Loader layers configuration sources.
type Loader struct {
	// ConfigPath is an optional YAML file. When empty, ROOMCTL_CONFIG is consulted.
	ConfigPath string
	// EnvFile is an optional dotenv file; a missing file is not an error.
	EnvFile string
}

// Load reads configuration from path (optional), ./.env and the environment.
func Load(path string) (Config, error) {
	return Loader{ConfigPath: path, EnvFile: ".env"}.Load()
}

// Load applies defaults, the YAML file, the dotenv file and environment overrides,
// in that order of increasing precedence, then validates the result.
func (l Loader) Load() (Config, error) {
	cfg := Default()

	if l.EnvFile != "" {
		if err := godotenv.Load(l.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", l.EnvFile, err)
		}
	}

	path := l.ConfigPath
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvPrefix + "_CONFIG"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing or invalid setting in one error.
func (c Config) Validate() error {
	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if c.Persist && strings.TrimSpace(c.SQLiteDSN) == "" {
		missing = append(missing, "sqlite_dsn")
	}
	if c.HighPriorityThreshold < 1 {
		invalid = append(invalid, "high_priority_threshold")
	}
	if _, err := c.Slots(); err != nil {
		invalid = append(invalid, "candidate_slots")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		invalid = append(invalid, "log_level")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		invalid = append(invalid, "log_format")
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		invalid = append(invalid, "color")
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("config: invalid settings: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// Slots returns the configured relocation grid, or the default grid when unset.
func (c Config) Slots() ([]scheduler.Slot, error) {
	if strings.TrimSpace(c.CandidateSlots) == "" {
		return scheduler.DefaultSlots(), nil
	}
	slots, err := scheduler.ParseSlots(c.CandidateSlots)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return scheduler.DefaultSlots(), nil
	}
	return slots, nil
}
