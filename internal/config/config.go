// Package config loads runtime settings from defaults, an optional
// config file and NULLGRID_* environment variables, in that order of
// precedence (later wins).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every runtime setting of the simulator daemon.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`

	// DataFile is the encrypted state artifact. StoreKey unlocks it;
	// losing the key means losing the state.
	DataFile string `mapstructure:"data_file"`
	StoreKey string `mapstructure:"store_key"`

	JWTSecret string `mapstructure:"jwt_secret"`
	Pepper    string `mapstructure:"pepper"`

	// FlushInterval batches store writes; zero writes on every mutation.
	FlushInterval time.Duration `mapstructure:"flush_interval"`

	SessionQueueSize   int `mapstructure:"session_queue_size"`
	BroadcastRetention int `mapstructure:"broadcast_retention"`
	RadioRetention     int `mapstructure:"radio_retention"`

	AuthRateLimit int `mapstructure:"auth_rate_limit"`

	// PendingMaxAge is how long an unreviewed registration survives
	// before the maintenance sweep discards it.
	PendingMaxAge time.Duration `mapstructure:"pending_max_age"`

	BackupDir      string `mapstructure:"backup_dir"`
	BackupSchedule string `mapstructure:"backup_schedule"`

	AdminIdentity string `mapstructure:"admin_identity"`
	AdminSecret   string `mapstructure:"admin_secret"`
	AdminName     string `mapstructure:"admin_name"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration. path may be empty, in which case only
// defaults and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8337")
	v.SetDefault("data_file", "nullgrid.state")
	// Secrets default empty so AutomaticEnv can see the keys; validate
	// rejects them if they stay empty.
	v.SetDefault("store_key", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("pepper", "")
	v.SetDefault("admin_secret", "")
	v.SetDefault("flush_interval", 2*time.Second)
	v.SetDefault("session_queue_size", 64)
	v.SetDefault("broadcast_retention", 200)
	v.SetDefault("radio_retention", 500)
	v.SetDefault("auth_rate_limit", 30)
	v.SetDefault("pending_max_age", 7*24*time.Hour)
	v.SetDefault("backup_dir", "backups")
	v.SetDefault("backup_schedule", "0 3 * * *")
	v.SetDefault("admin_identity", "SYSOP")
	v.SetDefault("admin_name", "System Operator")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("NULLGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.StoreKey == "" {
		return fmt.Errorf("store_key is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.AdminSecret == "" {
		return fmt.Errorf("admin_secret is required")
	}
	if c.SessionQueueSize <= 0 {
		return fmt.Errorf("session_queue_size must be positive")
	}
	return nil
}
