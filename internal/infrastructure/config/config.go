package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries everything the client and services need. It is loaded
// once at startup and passed into constructors explicitly; nothing in
// the process reads ambient globals after that.
type Config struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	ActorID        string        `yaml:"actor_id"`
	Tool           string        `yaml:"tool"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

const (
	envBaseURL = "ROUTEKIT_BASE_URL"
	envAPIKey  = "ROUTEKIT_API_KEY"
	envActorID = "ROUTEKIT_ACTOR_ID"
)

// Load reads the config file at path (missing file is fine) and applies
// environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ActorID: "routekit",
		Tool:    "routekit",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	if v := os.Getenv(envBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(envAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(envActorID); v != "" {
		cfg.ActorID = v
	}

	return cfg, nil
}

// Validate checks the fields every store call needs.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is required (set base_url or " + envBaseURL + ")")
	}
	if c.APIKey == "" {
		return errors.New("API key is required (set api_key or " + envAPIKey + ")")
	}
	return nil
}
