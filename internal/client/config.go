package client

import (
	"encoding/json"
	"os"
	"path/filepath"
)

var configProfile string

// SetProfile sets the config profile for multiple instances.
func SetProfile(profile string) {
	configProfile = profile
}

// Config holds client configuration.
type Config struct {
	LastServer string `json:"last_server"`

	// Player identity (persisted token for reconnecting)
	PlayerToken string `json:"player_token"`
	PlayerName  string `json:"player_name"`
	PlayerID    string `json:"player_id"`

	// Battle resumed on the next start
	LastBattle string `json:"last_battle,omitempty"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		LastServer: "localhost:8080",
	}
}

// LoadConfig loads config from the user's config directory.
func LoadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return DefaultConfig(), err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return DefaultConfig(), err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Save saves the config to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// configPath returns the path to the config file.
func configPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	filename := "config.json"
	if configProfile != "" {
		filename = "config-" + configProfile + ".json"
	}
	return filepath.Join(configDir, "titan-battle", filename), nil
}
