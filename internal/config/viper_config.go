package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"nostrarena"
)

// LoadViperConfig loads an arena.Config the way treacherest's
// viper_config.go loads ServerConfig: environment variables take
// priority over a config file, which takes priority over the defaults
// set on the Viper instance itself.
func LoadViperConfig(configPath string) (arena.Config, error) {
	v := viper.New()
	v.SetConfigName("arena")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/nostrarena")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("gameid", "ARENA_GAME_ID")
	v.BindEnv("baseurl", "ARENA_BASE_URL")
	v.BindEnv("startmode", "ARENA_START_MODE")
	v.BindEnv("maxplayers", "ARENA_MAX_PLAYERS")
	v.BindEnv("publishratelimit", "ARENA_PUBLISH_RATE_LIMIT")

	v.SetDefault("maxplayers", 2)
	v.SetDefault("startmode", "auto")
	v.SetDefault("countdownseconds", 3)
	v.SetDefault("roomexpiry", "1h")
	v.SetDefault("heartbeatinterval", "3s")
	v.SetDefault("disconnectthreshold", "10s")
	v.SetDefault("statethrottle", "100ms")
	v.SetDefault("presenceupdateinterval", "30s")
	v.SetDefault("publishratelimit", 50.0)
	v.SetDefault("publishburst", 20)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return arena.Config{}, fmt.Errorf("read arena config file: %w", err)
		}
	}

	if v.GetString("gameid") == "" {
		return arena.Config{}, fmt.Errorf("ARENA_GAME_ID must be set")
	}

	fc := FileConfig{
		GameID:                 v.GetString("gameid"),
		Relays:                 v.GetStringSlice("relays"),
		RoomExpiry:             v.GetString("roomexpiry"),
		MaxPlayers:             v.GetInt("maxplayers"),
		StartMode:              v.GetString("startmode"),
		CountdownSeconds:       v.GetInt("countdownseconds"),
		HeartbeatInterval:      v.GetString("heartbeatinterval"),
		DisconnectThreshold:    v.GetString("disconnectthreshold"),
		StateThrottle:          v.GetString("statethrottle"),
		BaseURL:                v.GetString("baseurl"),
		PublishRateLimit:       v.GetFloat64("publishratelimit"),
		PublishBurst:           v.GetInt("publishburst"),
		PresenceUpdateInterval: v.GetString("presenceupdateinterval"),
	}
	return fc.toArenaConfig()
}
