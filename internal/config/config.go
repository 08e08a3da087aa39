package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hurou927/schemalens/internal/trace"
)

// Config represents the top-level YAML configuration.
type Config struct {
	Connection    Connection `yaml:"connection"`
	Schemas       []string   `yaml:"schemas"`
	ExcludeTables []string   `yaml:"exclude_tables"`
	Stages        Stages     `yaml:"stages"`
	Statuses      Statuses   `yaml:"statuses"`
}

// Connection holds database connection parameters.
type Connection struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Stages names the pipeline log steps of each stage.
type Stages struct {
	Extract  string `yaml:"extract"`
	Enrich   string `yaml:"enrich"`
	Validate string `yaml:"validate"`
}

// Statuses lists the log statuses meaning success and failure.
type Statuses struct {
	Success []string `yaml:"success"`
	Failure []string `yaml:"failure"`
}

// DSN builds a PostgreSQL connection string.
func (c *Connection) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode,
	)
}

// Default returns the configuration used when no file is given: the
// pipeline's own step vocabulary and connection settings from the
// environment.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML config file. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyEnv fills in empty Connection fields from environment variables.
// YAML values take precedence; env vars are used only as fallback.
func (c *Config) applyEnv() {
	conn := &c.Connection
	if conn.Host == "" {
		conn.Host = envOr("PGHOST", "POSTGRES_HOST")
	}
	if conn.Port == 0 {
		if s := envOr("PGPORT", "POSTGRES_PORT"); s != "" {
			if p, err := strconv.Atoi(s); err == nil {
				conn.Port = p
			}
		}
	}
	if conn.Database == "" {
		conn.Database = envOr("PGDATABASE", "POSTGRES_DB")
	}
	if conn.User == "" {
		conn.User = envOr("PGUSER", "POSTGRES_USER")
	}
	if conn.Password == "" {
		conn.Password = envOr("PGPASSWORD", "POSTGRES_PASSWORD")
	}
	if conn.SSLMode == "" {
		conn.SSLMode = envOr("PGSSLMODE")
	}
}

// envOr returns the first non-empty value from the given env var names.
func envOr(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) applyDefaults() {
	if c.Connection.Port == 0 {
		c.Connection.Port = 5432
	}
	if c.Connection.SSLMode == "" {
		c.Connection.SSLMode = "disable"
	}
	if len(c.Schemas) == 0 {
		c.Schemas = []string{"public"}
	}

	def := trace.DefaultVocabulary()
	if c.Stages.Extract == "" {
		c.Stages.Extract = def.Extract
	}
	if c.Stages.Enrich == "" {
		c.Stages.Enrich = def.Enrich
	}
	if c.Stages.Validate == "" {
		c.Stages.Validate = def.Validate
	}
	if len(c.Statuses.Success) == 0 {
		c.Statuses.Success = def.Success
	}
	if len(c.Statuses.Failure) == 0 {
		c.Statuses.Failure = def.Failure
	}
}

// validate checks that the step vocabulary is usable.
func (c *Config) validate() error {
	s := c.Stages
	if s.Extract == s.Enrich || s.Enrich == s.Validate || s.Extract == s.Validate {
		return fmt.Errorf("stages must name three distinct steps, got %q, %q, %q", s.Extract, s.Enrich, s.Validate)
	}
	for _, ok := range c.Statuses.Success {
		for _, bad := range c.Statuses.Failure {
			if strings.EqualFold(ok, bad) {
				return fmt.Errorf("status %q is listed as both success and failure", ok)
			}
		}
	}
	return nil
}

// ValidateForIntrospect checks the fields required to connect to PostgreSQL.
func (c *Config) ValidateForIntrospect() error {
	if c.Connection.Host == "" {
		return fmt.Errorf("connection.host is required")
	}
	if c.Connection.Database == "" {
		return fmt.Errorf("connection.database is required")
	}
	if c.Connection.User == "" {
		return fmt.Errorf("connection.user is required")
	}
	return nil
}

// Vocabulary returns the step vocabulary used to interpret pipeline logs.
func (c *Config) Vocabulary() trace.Vocabulary {
	return trace.Vocabulary{
		Extract:  c.Stages.Extract,
		Enrich:   c.Stages.Enrich,
		Validate: c.Stages.Validate,
		Success:  c.Statuses.Success,
		Failure:  c.Statuses.Failure,
	}
}

// ExcludeSet returns a set of excluded table names for O(1) lookup.
func (c *Config) ExcludeSet() map[string]bool {
	set := make(map[string]bool, len(c.ExcludeTables))
	for _, t := range c.ExcludeTables {
		set[t] = true
	}
	return set
}
