package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Source     SourceConfig      `yaml:"source"`
	Scheduler  SchedulerConfig   `yaml:"scheduler"`
	Audio      AudioConfig       `yaml:"audio"`
	Device     DeviceConfig      `yaml:"device"`
	Videos     map[string]string `yaml:"videos"`
	Database   DatabaseConfig    `yaml:"database"`
	Push       PushConfig        `yaml:"push"`
	WorkerPool WorkerPoolConfig  `yaml:"worker_pool"`
}

// ServerConfig holds the control-surface server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// SourceConfig describes the upstream prayer-times API request.
type SourceConfig struct {
	URL            string            `yaml:"url"`
	City           string            `yaml:"city"`
	Country        string            `yaml:"country"`
	Method         string            `yaml:"method"`
	Headers        map[string]string `yaml:"headers"`
	Timezone       string            `yaml:"timezone"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Timeout        time.Duration     `yaml:"-"` // Ignored by YAML parser
}

// SchedulerConfig holds the poll-loop configuration.
type SchedulerConfig struct {
	PollIntervalSeconds int           `yaml:"poll_interval_seconds"`
	PollInterval        time.Duration `yaml:"-"` // Ignored by YAML parser
	DailyRefreshAt      string        `yaml:"daily_refresh_at"` // "HH:MM" local time
}

// AudioConfig holds the volume-override behaviour around each firing.
type AudioConfig struct {
	DefaultVolume         int           `yaml:"default_volume"`
	RestoreOriginalVolume bool          `yaml:"restore_original_volume"`
	RestoreDelaySeconds   int           `yaml:"restore_delay_seconds"`
	SettleRetries         int           `yaml:"settle_retries"`
	SettleIntervalMs      int           `yaml:"settle_interval_ms"`
	SettleInterval        time.Duration `yaml:"-"`
	ReassertDelayMs       int           `yaml:"reassert_delay_ms"`
	ReassertDelay         time.Duration `yaml:"-"`
}

// DeviceConfig holds the OS command templates the device adapter executes.
// SetVolumeCmd may contain the placeholder {level}; PlayCmd the placeholder {url}.
type DeviceConfig struct {
	WakeCmd            []string      `yaml:"wake_cmd"`
	GetVolumeCmd       []string      `yaml:"get_volume_cmd"`
	SetVolumeCmd       []string      `yaml:"set_volume_cmd"`
	PlayCmd            []string      `yaml:"play_cmd"`
	CallTimeoutSeconds int           `yaml:"call_timeout_seconds"`
	CallTimeout        time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Source.URL == "" {
		cfg.Source.URL = "https://api.aladhan.com/v1/timingsByCity"
	}
	if cfg.Source.Method == "" {
		cfg.Source.Method = "13"
	}
	if cfg.Source.Timezone == "" {
		cfg.Source.Timezone = "Local"
	}
	if cfg.Source.TimeoutSeconds <= 0 {
		cfg.Source.TimeoutSeconds = 10
	}
	cfg.Source.Timeout = time.Duration(cfg.Source.TimeoutSeconds) * time.Second

	if cfg.Scheduler.PollIntervalSeconds <= 0 {
		cfg.Scheduler.PollIntervalSeconds = 30
	}
	cfg.Scheduler.PollInterval = time.Duration(cfg.Scheduler.PollIntervalSeconds) * time.Second
	if cfg.Scheduler.DailyRefreshAt == "" {
		cfg.Scheduler.DailyRefreshAt = "00:01"
	}

	if cfg.Audio.DefaultVolume <= 0 || cfg.Audio.DefaultVolume > 100 {
		cfg.Audio.DefaultVolume = 75
	}
	if cfg.Audio.RestoreDelaySeconds < 0 {
		cfg.Audio.RestoreDelaySeconds = 0
	}
	if cfg.Audio.SettleRetries <= 0 {
		cfg.Audio.SettleRetries = 3
	}
	if cfg.Audio.SettleIntervalMs <= 0 {
		cfg.Audio.SettleIntervalMs = 500
	}
	cfg.Audio.SettleInterval = time.Duration(cfg.Audio.SettleIntervalMs) * time.Millisecond
	if cfg.Audio.ReassertDelayMs <= 0 {
		cfg.Audio.ReassertDelayMs = 2000
	}
	cfg.Audio.ReassertDelay = time.Duration(cfg.Audio.ReassertDelayMs) * time.Millisecond

	if cfg.Device.CallTimeoutSeconds <= 0 {
		cfg.Device.CallTimeoutSeconds = 10
	}
	cfg.Device.CallTimeout = time.Duration(cfg.Device.CallTimeoutSeconds) * time.Second

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "ezan.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
