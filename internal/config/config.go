package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
	Nutrition NutritionConfig `yaml:"nutrition"`
	MCP       MCPConfig       `yaml:"mcp"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// MigrationsPath is the directory holding the SQL migrations.
	MigrationsPath string `yaml:"migrations_path"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
	// DevLogin is the identity used for requests when Tailscale is disabled.
	DevLogin string `yaml:"dev_login"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
	// Stdout also writes to stdout when File is set.
	Stdout     bool `yaml:"stdout"`
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
}

type NutritionConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether a nutrition API key is configured.
func (n NutritionConfig) Enabled() bool {
	return n.APIKey != ""
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix WOTRACKER_ and underscore-separated paths:
//
//	WOTRACKER_SERVER_HOST, WOTRACKER_SERVER_PORT,
//	WOTRACKER_DB_DRIVER, WOTRACKER_DB_HOST, WOTRACKER_DB_PORT, WOTRACKER_DB_NAME,
//	WOTRACKER_DB_USER, WOTRACKER_DB_PASSWORD, WOTRACKER_DB_SSLMODE, WOTRACKER_DB_PATH,
//	WOTRACKER_AUTH_API_KEY, WOTRACKER_TAILSCALE_ENABLED,
//	WOTRACKER_LOG_LEVEL, WOTRACKER_LOG_FORMAT, WOTRACKER_LOG_FILE,
//	WOTRACKER_NUTRITION_API_KEY, WOTRACKER_NUTRITION_MODEL, WOTRACKER_NUTRITION_BASE_URL,
//	WOTRACKER_MCP_ENABLED
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("WOTRACKER_SERVER_HOST", &cfg.Server.Host)
	num("WOTRACKER_SERVER_PORT", &cfg.Server.Port)
	str("WOTRACKER_DB_DRIVER", &cfg.Database.Driver)
	str("WOTRACKER_DB_HOST", &cfg.Database.Host)
	num("WOTRACKER_DB_PORT", &cfg.Database.Port)
	str("WOTRACKER_DB_NAME", &cfg.Database.Name)
	str("WOTRACKER_DB_USER", &cfg.Database.User)
	str("WOTRACKER_DB_PASSWORD", &cfg.Database.Password)
	str("WOTRACKER_DB_SSLMODE", &cfg.Database.SSLMode)
	str("WOTRACKER_DB_PATH", &cfg.Database.Path)
	str("WOTRACKER_AUTH_API_KEY", &cfg.Auth.APIKey)
	flag("WOTRACKER_TAILSCALE_ENABLED", &cfg.Tailscale.Enabled)
	str("WOTRACKER_LOG_LEVEL", &cfg.Log.Level)
	str("WOTRACKER_LOG_FORMAT", &cfg.Log.Format)
	str("WOTRACKER_LOG_FILE", &cfg.Log.File)
	str("WOTRACKER_NUTRITION_API_KEY", &cfg.Nutrition.APIKey)
	str("WOTRACKER_NUTRITION_MODEL", &cfg.Nutrition.Model)
	str("WOTRACKER_NUTRITION_BASE_URL", &cfg.Nutrition.BaseURL)
	flag("WOTRACKER_MCP_ENABLED", &cfg.MCP.Enabled)
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Server.MigrationsPath == "" {
		c.Server.MigrationsPath = "migrations"
	}
	if c.Auth.DevLogin == "" {
		c.Auth.DevLogin = "local"
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "wotracker"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Nutrition.Model == "" {
		c.Nutrition.Model = "gpt-4o-mini"
	}
	if c.Nutrition.Timeout == 0 {
		c.Nutrition.Timeout = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver %q is not one of postgres, sqlite", c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.StateDir == "" {
		return fmt.Errorf("tailscale.state_dir is required when tailscale is enabled")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json", c.Log.Format)
	}
	return nil
}
