package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	AppName    = "Rivulet"
	AppVersion = "1.0.0"
)

// UserAgent identifies outbound feed fetches.
var UserAgent = AppName + "/" + AppVersion

// AdapterConfig enables one adapter and places it in the routing
// order. Lower priority routes earlier.
type AdapterConfig struct {
	ID       string `yaml:"id"`
	Priority int    `yaml:"priority"`
}

type Config struct {
	Addr     string          `yaml:"addr"`
	DataDir  string          `yaml:"data_dir"`
	DBPath   string          `yaml:"db_path"`
	Token    string          `yaml:"token"`
	UserID   string          `yaml:"user_id"`
	LogLevel string          `yaml:"log_level"`
	Adapters []AdapterConfig `yaml:"adapters"`
}

// Load builds the configuration from the optional YAML file named by
// RIVULET_CONFIG, with environment variables taking precedence.
func Load() (Config, error) {
	cfg := Config{
		Addr:     ":8080",
		DataDir:  "./data",
		LogLevel: "info",
		UserID:   "me",
		Adapters: []AdapterConfig{{ID: "local", Priority: 10}},
	}

	if path := os.Getenv("RIVULET_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("RIVULET_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("RIVULET_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RIVULET_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("RIVULET_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("RIVULET_USER_ID"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("RIVULET_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "rivulet.db")
	}
	cfg.DBPath = filepath.Clean(cfg.DBPath)
	cfg.DataDir = filepath.Clean(cfg.DataDir)

	return cfg, nil
}
