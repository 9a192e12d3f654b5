package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Monitor Monitor       `mapstructure:"monitor"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// Monitor defines enforcement loop settings
type Monitor struct {
	TargetUser         string `mapstructure:"target_user"`
	RedeemFile         string `mapstructure:"redeem_file"`
	DailyLimit         string `mapstructure:"daily_limit"`
	CheckInterval      string `mapstructure:"check_interval"`
	StartupDelay       string `mapstructure:"startup_delay"`
	EarliestHour       int    `mapstructure:"earliest_hour"`
	LatestHour         int    `mapstructure:"latest_hour"`
	ShutdownDelay      string `mapstructure:"shutdown_delay"`
	NightShutdownDelay string `mapstructure:"night_shutdown_delay"`
}

// StorageConfig defines where ledgers and the secret live
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SecretFile string `mapstructure:"secret_file"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig defines the optional metrics endpoint
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("KWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Monitor defaults
	v.SetDefault("monitor.target_user", "")
	v.SetDefault("monitor.redeem_file", defaultRedeemFile)
	v.SetDefault("monitor.daily_limit", "2h")
	v.SetDefault("monitor.check_interval", "60s")
	v.SetDefault("monitor.startup_delay", "60s")
	v.SetDefault("monitor.earliest_hour", 6)
	v.SetDefault("monitor.latest_hour", 20)
	v.SetDefault("monitor.shutdown_delay", "300s")
	v.SetDefault("monitor.night_shutdown_delay", "10s")

	// Storage defaults
	v.SetDefault("storage.data_dir", defaultDataDir)
	v.SetDefault("storage.secret_file", defaultSecretFile)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.bind_address", "127.0.0.1")
	v.SetDefault("metrics.port", 9091)
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Monitor.TargetUser == "" {
		return fmt.Errorf("monitor.target_user must be set")
	}
	if cfg.Monitor.EarliestHour < 0 || cfg.Monitor.EarliestHour > 23 {
		return fmt.Errorf("invalid earliest hour: %d", cfg.Monitor.EarliestHour)
	}
	if cfg.Monitor.LatestHour < 0 || cfg.Monitor.LatestHour > 23 {
		return fmt.Errorf("invalid latest hour: %d", cfg.Monitor.LatestHour)
	}
	if cfg.Monitor.EarliestHour > cfg.Monitor.LatestHour {
		return fmt.Errorf("earliest hour %d is after latest hour %d",
			cfg.Monitor.EarliestHour, cfg.Monitor.LatestHour)
	}
	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must be set")
	}
	if d := cfg.Monitor.DailyLimitDuration(); d <= 0 {
		return fmt.Errorf("invalid daily limit: %s", cfg.Monitor.DailyLimit)
	}
	if d := cfg.Monitor.CheckIntervalDuration(); d < time.Second {
		return fmt.Errorf("check interval too short: %s", cfg.Monitor.CheckInterval)
	}
	if cfg.Metrics.Enabled && (cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", cfg.Metrics.Port)
	}
	return nil
}

// DailyLimitDuration returns the parsed daily limit, or zero if unparseable
func (m Monitor) DailyLimitDuration() time.Duration {
	return parseDuration(m.DailyLimit, 0)
}

// CheckIntervalDuration returns the parsed poll interval with a 60s fallback
func (m Monitor) CheckIntervalDuration() time.Duration {
	return parseDuration(m.CheckInterval, 60*time.Second)
}

// StartupDelayDuration returns the parsed startup delay with a 60s fallback
func (m Monitor) StartupDelayDuration() time.Duration {
	return parseDuration(m.StartupDelay, 60*time.Second)
}

// ShutdownDelayDuration returns the parsed budget shutdown delay with a 300s fallback
func (m Monitor) ShutdownDelayDuration() time.Duration {
	return parseDuration(m.ShutdownDelay, 300*time.Second)
}

// NightShutdownDelayDuration returns the parsed night shutdown delay with a 10s fallback
func (m Monitor) NightShutdownDelayDuration() time.Duration {
	return parseDuration(m.NightShutdownDelay, 10*time.Second)
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
