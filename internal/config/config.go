// Package config loads the server configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   Server   `yaml:"server" json:"server"`
	Database Database `yaml:"database" json:"database"`
	Gemini   Gemini   `yaml:"gemini" json:"gemini"`
	Engine   Engine   `yaml:"engine" json:"engine"`
	Logging  Logging  `yaml:"logging" json:"logging"`
}

type Server struct {
	Addr string `yaml:"addr" json:"addr"`
	// DevMode exposes raw error detail in API responses. Never enable
	// in production.
	DevMode bool `yaml:"dev_mode" json:"dev_mode"`
}

type Database struct {
	Path string `yaml:"path" json:"path"`
}

type Gemini struct {
	APIKey string `yaml:"api_key" json:"-"`
	Model  string `yaml:"model" json:"model"`
}

type Engine struct {
	// DefaultReadLimit bounds read steps that carry no limit of their
	// own.
	DefaultReadLimit int `yaml:"default_read_limit" json:"default_read_limit"`
}

type Logging struct {
	Level string `yaml:"level" json:"level"`
	Debug bool   `yaml:"debug" json:"debug"`
}

func Default() Config {
	return Config{
		Server:   Server{Addr: ":8080"},
		Database: Database{Path: "data/tasks.db"},
		Gemini:   Gemini{Model: "gemini-2.0-flash"},
		Engine:   Engine{DefaultReadLimit: 100},
		Logging:  Logging{Level: "info"},
	}
}

// Load reads the YAML file at path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if cfg.Engine.DefaultReadLimit <= 0 {
		cfg.Engine.DefaultReadLimit = 100
	}
	return cfg, nil
}
