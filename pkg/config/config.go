package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	// Base URL of the public site, used to build shareable referral links.
	PublicBaseURL string `yaml:"publicBaseUrl"`
}

type ProviderConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// BroadcastConfig paces admin-initiated broadcast sends so the provider
// does not throttle us.
type BroadcastConfig struct {
	MessagesPerSecond float64 `yaml:"messagesPerSecond"`
	Burst             int     `yaml:"burst"`
}

func defaults() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL: "https://api.dripsender.id",
			Timeout: 15 * time.Second,
		},
		Broadcast: BroadcastConfig{
			MessagesPerSecond: 1,
			Burst:             1,
		},
		PublicBaseURL: "https://kacamatagratis.org",
	}
}

// LoadConfig reads config.yaml when present and applies env overrides.
// A missing file is not an error; the defaults are usable as-is.
func LoadConfig(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if v := os.Getenv("DRIPSENDER_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.PublicBaseURL = v
	}
	return cfg, nil
}
