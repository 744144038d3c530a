// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Library struct {
		Path string `mapstructure:"path"`
		// WriteNFO enables Kodi-style NFO sidecars next to each .strm file.
		WriteNFO bool `mapstructure:"write_nfo"`
	} `mapstructure:"library"`
	Snapshots struct {
		Path      string `mapstructure:"path"`
		Retention int    `mapstructure:"retention"`
	} `mapstructure:"snapshots"`
	Provider struct {
		BaseURL  string `mapstructure:"base_url"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		// RequestDelayMs is the minimum spacing between consecutive upstream
		// requests.
		RequestDelayMs int `mapstructure:"request_delay_ms"`
		RetryCount     int `mapstructure:"retry_count"`
		RetryDelayMs   int `mapstructure:"retry_delay_ms"`
	} `mapstructure:"provider"`
	Sync struct {
		// Interval is the scheduled run interval in minutes; 0 disables the
		// scheduler.
		Interval int `mapstructure:"interval"`
		// FullSyncIntervalHours forces a full run once the last snapshot is
		// older than this.
		FullSyncIntervalHours int `mapstructure:"full_sync_interval_hours"`
		Workers               int `mapstructure:"workers"`
		// ChangeThresholdPct escalates an incremental run to a full reprocess
		// when the computed change percentage exceeds it.
		ChangeThresholdPct float64 `mapstructure:"change_threshold_pct"`
		// DeleteThresholdPct suppresses orphan deletion when more than this
		// fraction of existing artifacts would be removed.
		DeleteThresholdPct float64 `mapstructure:"delete_threshold_pct"`
	} `mapstructure:"sync"`
	LiveTV struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"livetv"`
}

// RequestDelay returns the provider request spacing as a duration.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.Provider.RequestDelayMs) * time.Millisecond
}

// RetryDelay returns the base backoff delay for throttled requests.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Provider.RetryDelayMs) * time.Millisecond
}

// FullSyncInterval returns the maximum snapshot age before a full run is forced.
func (c *Config) FullSyncInterval() time.Duration {
	return time.Duration(c.Sync.FullSyncIntervalHours) * time.Hour
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "STRMSYNC_"
	// prefix. e.g., STRMSYNC_PROVIDER_BASE_URL overrides `provider.base_url`.
	viper.SetEnvPrefix("STRMSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("port", 8080)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("database.path", "./strmsync.db")
	viper.SetDefault("library.path", "./library")
	viper.SetDefault("library.write_nfo", true)
	viper.SetDefault("snapshots.path", "./snapshots")
	viper.SetDefault("snapshots.retention", 3)
	viper.SetDefault("provider.request_delay_ms", 50)
	viper.SetDefault("provider.retry_count", 3)
	viper.SetDefault("provider.retry_delay_ms", 1000)
	viper.SetDefault("sync.interval", 360)
	viper.SetDefault("sync.full_sync_interval_hours", 168)
	viper.SetDefault("sync.workers", 8)
	viper.SetDefault("sync.change_threshold_pct", 50)
	viper.SetDefault("sync.delete_threshold_pct", 20)
	viper.SetDefault("livetv.enabled", false)
}

// Watch logs config file edits. Sync settings are read at the start of every
// run, so an edited file takes effect on the next run without a restart.
func Watch() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Str("file", e.Name).Msg("Config file changed; new sync settings apply from the next run")
	})
	viper.WatchConfig()
}
