package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the client-side settings shared by the host and participant
// binaries. Values come from a YAML file, with environment variables taking
// precedence; cmd entrypoints load an optional .env first.
type Config struct {
	APIBaseURL string `yaml:"api_base_url"`
	WSBaseURL  string `yaml:"ws_base_url"`
	Token      string `yaml:"token"`

	Reconnect struct {
		Enabled  bool   `yaml:"enabled"`
		Interval string `yaml:"interval"`
	} `yaml:"reconnect"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Default() Config {
	cfg := Config{
		APIBaseURL: "http://127.0.0.1:8000/api",
		WSBaseURL:  "ws://127.0.0.1:8000",
	}
	cfg.Reconnect.Enabled = true
	cfg.Reconnect.Interval = "3s"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads YAML config from path and applies environment overrides. A
// missing file is not an error; defaults plus environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if v := os.Getenv("QUIZ_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("QUIZ_WS_URL"); v != "" {
		cfg.WSBaseURL = v
	}
	if v := os.Getenv("QUIZ_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("QUIZ_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return cfg, nil
}

// ReconnectInterval parses the configured interval, falling back to the
// given duration when unset or unparseable.
func (c Config) ReconnectInterval(fallback time.Duration) time.Duration {
	if c.Reconnect.Interval == "" {
		return fallback
	}
	if d, err := time.ParseDuration(c.Reconnect.Interval); err == nil {
		return d
	}
	return fallback
}

// SessionWSURL builds the channel endpoint for a session pin.
func (c Config) SessionWSURL(pin string) string {
	return fmt.Sprintf("%s/ws/session/%s/", c.WSBaseURL, pin)
}
