package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName               string        `mapstructure:"app_name"`
	Env                   string        `mapstructure:"app_env"`
	LogLevel              string        `mapstructure:"log_level"`
	ProfilesFile          string        `mapstructure:"profiles_file"`
	DefaultProfile        string        `mapstructure:"default_profile"`
	PublishersFile        string        `mapstructure:"publishers_file"`
	PublishAttempts       uint          `mapstructure:"publish_attempts"`
	PublishRetryDelayMS   int64         `mapstructure:"publish_retry_delay_ms"`
	PublishRetryDelay     time.Duration `mapstructure:"-"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	CheckIntervalSeconds  int64         `mapstructure:"check_interval"`
	CheckInterval         time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageMaxHistory      int           `mapstructure:"storage_max_history"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "zosmf-probe")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("profiles_file", "./configs/profiles.yaml")
	v.SetDefault("default_profile", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("publish_attempts", 3)
	v.SetDefault("publish_retry_delay_ms", 500)
	v.SetDefault("request_timeout_seconds", 30)
	v.SetDefault("check_interval", 300) // seconds
	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/checks.db")
	v.SetDefault("storage_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("storage_max_history", 100)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	var err error
	if cfg.RequestTimeout, err = seconds("request_timeout_seconds", cfg.RequestTimeoutSeconds); err != nil {
		return nil, err
	}
	if cfg.CheckInterval, err = seconds("check_interval", cfg.CheckIntervalSeconds); err != nil {
		return nil, err
	}
	if cfg.StorageTTL, err = seconds("storage_ttl_seconds", cfg.StorageTTLSeconds); err != nil {
		return nil, err
	}
	if cfg.StorageCleanupInterval, err = seconds("storage_cleanup_interval_seconds", cfg.StorageCleanupSeconds); err != nil {
		return nil, err
	}

	if cfg.PublishAttempts == 0 {
		return nil, fmt.Errorf("invalid publish_attempts (must be at least 1)")
	}
	if cfg.PublishRetryDelayMS < 0 {
		return nil, fmt.Errorf("invalid publish_retry_delay_ms (must not be negative)")
	}
	cfg.PublishRetryDelay = time.Duration(cfg.PublishRetryDelayMS) * time.Millisecond

	return &cfg, nil
}

func seconds(key string, v int64) (time.Duration, error) {
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s (must be positive seconds)", key)
	}
	return time.Duration(v) * time.Second, nil
}
