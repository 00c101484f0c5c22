package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DeviceConfig configures the offline client.
type DeviceConfig struct {
	ServerURL   string          `env:"TEMPO_SERVER_URL" yaml:"server_url" env-default:"http://localhost:8080"`
	DBPath      string          `env:"TEMPO_DB_PATH" yaml:"db_path" env-default:"~/.tempo/local.db"`
	HTTPTimeout durationSeconds `env:"TEMPO_HTTP_TIMEOUT" yaml:"http_timeout" env-default:"30s"`
	// Debounce is the coalescing window of the automatic sync trigger.
	Debounce durationSeconds `env:"TEMPO_SYNC_DEBOUNCE" yaml:"sync_debounce" env-default:"1500ms"`
	Log      LogConfig
}

// LoadDevice reads the device config from path (YAML) when given, then from
// the environment. Env values win over the file.
func LoadDevice(path string) (DeviceConfig, error) {
	var cfg DeviceConfig
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("device config: %w", err)
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	cfg.DBPath, err = expandHome(cfg.DBPath)
	if err != nil {
		return DeviceConfig{}, err
	}
	return cfg, nil
}

// DebounceWindow returns the sync coalescing window.
func (c DeviceConfig) DebounceWindow() time.Duration { return c.Debounce.Duration() }

// Timeout returns the HTTP client timeout.
func (c DeviceConfig) Timeout() time.Duration { return c.HTTPTimeout.Duration() }

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, p[1:]), nil
}
