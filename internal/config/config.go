// Package config loads an arena.Config two ways, mirroring treacherest's
// pair of loaders: a minimal YAML+env reader (this file) for simple
// deployments, and a Viper-layered one (viper_config.go) for anything
// wanting proper env/file/default precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"nostrarena"
)

// FileConfig is the YAML shape accepted by LoadConfig. Durations are
// strings ("3s", "10s") so the file stays human-editable.
type FileConfig struct {
	GameID                 string   `yaml:"gameId"`
	Relays                 []string `yaml:"relays"`
	RoomExpiry             string   `yaml:"roomExpiry"`
	MaxPlayers             int      `yaml:"maxPlayers"`
	StartMode              string   `yaml:"startMode"`
	CountdownSeconds       int      `yaml:"countdownSeconds"`
	HeartbeatInterval      string   `yaml:"heartbeatInterval"`
	DisconnectThreshold    string   `yaml:"disconnectThreshold"`
	StateThrottle          string   `yaml:"stateThrottle"`
	BaseURL                string   `yaml:"baseUrl"`
	PublishRateLimit       float64  `yaml:"publishRateLimit"`
	PublishBurst           int      `yaml:"publishBurst"`
	PresenceUpdateInterval string   `yaml:"presenceUpdateInterval"`
}

// LoadConfig reads path as YAML (if present) into a FileConfig, applies
// environment-variable overrides, and returns the resulting arena.Config.
// Fields left unset stay zero-valued; NewArena fills in the documented
// defaults. A missing file is not an error — the
// loader falls back to env vars and defaults, same as treacherest's
// plain config.go loader did for server.yaml.
func LoadConfig(path string) (arena.Config, error) {
	fc := FileConfig{}

	if path == "" {
		path = "config/arena.yaml"
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return arena.Config{}, fmt.Errorf("parse arena config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return arena.Config{}, fmt.Errorf("read arena config file: %w", err)
	}

	loadFromEnv(&fc)
	return fc.toArenaConfig()
}

func loadFromEnv(fc *FileConfig) {
	if v := os.Getenv("ARENA_GAME_ID"); v != "" {
		fc.GameID = v
	}
	if v := os.Getenv("ARENA_BASE_URL"); v != "" {
		fc.BaseURL = v
	}
	if v := os.Getenv("ARENA_START_MODE"); v != "" {
		fc.StartMode = v
	}
	if v := os.Getenv("ARENA_MAX_PLAYERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			fc.MaxPlayers = n
		}
	}
	if v := os.Getenv("ARENA_PUBLISH_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			fc.PublishRateLimit = f
		}
	}
}

func (fc FileConfig) toArenaConfig() (arena.Config, error) {
	cfg := arena.Config{
		GameID:           fc.GameID,
		Relays:           fc.Relays,
		MaxPlayers:       fc.MaxPlayers,
		CountdownSeconds: fc.CountdownSeconds,
		BaseURL:          fc.BaseURL,
		PublishRateLimit: fc.PublishRateLimit,
		PublishBurst:     fc.PublishBurst,
	}

	if mode, err := parseStartMode(fc.StartMode); err != nil {
		return arena.Config{}, err
	} else {
		cfg.StartMode = mode
	}

	durations := []struct {
		raw *string
		out *time.Duration
		name string
	}{
		{&fc.RoomExpiry, &cfg.RoomExpiry, "roomExpiry"},
		{&fc.HeartbeatInterval, &cfg.HeartbeatInterval, "heartbeatInterval"},
		{&fc.DisconnectThreshold, &cfg.DisconnectThreshold, "disconnectThreshold"},
		{&fc.StateThrottle, &cfg.StateThrottle, "stateThrottle"},
		{&fc.PresenceUpdateInterval, &cfg.PresenceUpdateInterval, "presenceUpdateInterval"},
	}
	for _, d := range durations {
		if *d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.raw)
		if err != nil {
			return arena.Config{}, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.out = parsed
	}

	return cfg, nil
}

func parseStartMode(s string) (arena.StartMode, error) {
	switch s {
	case "", "auto":
		return arena.StartModeAuto, nil
	case "ready":
		return arena.StartModeReady, nil
	case "countdown":
		return arena.StartModeCountdown, nil
	case "host":
		return arena.StartModeHost, nil
	default:
		return 0, fmt.Errorf("unknown start mode %q", s)
	}
}
