// Package config loads configuration via viper with sensible defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// TrackerConfig holds the polling and reconciliation settings.
type TrackerConfig struct {
	PollInterval  time.Duration `json:"pollInterval" mapstructure:"pollInterval"`
	IdleThreshold time.Duration `json:"idleThreshold" mapstructure:"idleThreshold"`
	MapSize       float64       `json:"mapSize" mapstructure:"mapSize"`
	Teams         []string      `json:"teams" mapstructure:"teams"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("tracker.pollInterval", "15s")
	viper.SetDefault("tracker.idleThreshold", "5m")
	viper.SetDefault("tracker.mapSize", 4000)
	viper.SetDefault("tracker.teams", []string{})

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("storage.type", "memory")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "teamtracker")
	viper.SetDefault("db.sqlitePath", "./teamtracker.db")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "teamtracker-metrics")
	viper.SetDefault("influx.bucket", "team_presence")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "10s")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("notify.websocket.enabled", false)
	viper.SetDefault("notify.websocket.url", "ws://localhost:5000/api/v1/notifications")
	viper.SetDefault("notify.websocket.secret", "")

	viper.SetConfigName("teamtracker.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetTrackerConfig returns the tracker settings as a struct.
func GetTrackerConfig() TrackerConfig {
	return TrackerConfig{
		PollInterval:  viper.GetDuration("tracker.pollInterval"),
		IdleThreshold: viper.GetDuration("tracker.idleThreshold"),
		MapSize:       viper.GetFloat64("tracker.mapSize"),
		Teams:         viper.GetStringSlice("tracker.teams"),
	}
}

// StorageConfig holds the storage backend selection.
type StorageConfig struct {
	Type       string `json:"type" mapstructure:"type"`
	SqlitePath string `json:"sqlitePath" mapstructure:"sqlitePath"`
}

// GetStorageConfig returns the storage settings as a struct.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:       viper.GetString("storage.type"),
		SqlitePath: viper.GetString("db.sqlitePath"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
