// Package config loads the server configuration from a TOML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Battle   BattleConfig   `toml:"battle"`
}

type ServerConfig struct {
	Addr            string        `toml:"addr"`
	Name            string        `toml:"name"`
	ReadLimit       int64         `toml:"read_limit"`       // max websocket message size in bytes
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"` // graceful shutdown budget
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type BattleConfig struct {
	DefaultLand string `toml:"default_land"` // battleland code used when a request names none
	MaxSessions int    `toml:"max_sessions"` // concurrent live battles
}

// Load reads path over the defaults. An empty path yields the defaults.
// PORT and DB_PATH from the environment win over the file.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path is required")
	}
	if c.Battle.MaxSessions <= 0 {
		return fmt.Errorf("config: battle.max_sessions must be positive, got %d", c.Battle.MaxSessions)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Name:            "titan-battle",
			ReadLimit:       65536,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "data/battles.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Battle: BattleConfig{
			DefaultLand: "P",
			MaxSessions: 64,
		},
	}
}
