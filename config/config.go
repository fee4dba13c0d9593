package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultLabName is used when a scan does not name a lab.
const DefaultLabName = "Main Lab"

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Scanner    ScannerConfig    `yaml:"scanner"`
	Labs       []string         `yaml:"labs"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Events     EventsConfig     `yaml:"events"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// ScannerConfig holds the kiosk configuration.
type ScannerConfig struct {
	CameraURL             string        `yaml:"camera_url"`
	FrameDir              string        `yaml:"frame_dir"`
	PollIntervalMillis    int           `yaml:"poll_interval_ms"`
	PollInterval          time.Duration `yaml:"-"`
	Width                 int           `yaml:"width"`
	Height                int           `yaml:"height"`
	LabName               string        `yaml:"lab_name"`
	ServerURL             string        `yaml:"server_url"`
	RequestTimeoutSeconds int           `yaml:"request_timeout_seconds"`
	FeedbackSeconds       int           `yaml:"feedback_seconds"`
	FeedbackDuration      time.Duration `yaml:"-"`
	ChimeCommand          []string      `yaml:"chime_command"`
}

// DatabaseConfig holds the database connection configuration.
// A DSN starting with "postgres://" or containing "host=" selects PostgreSQL,
// anything else is treated as a SQLite file path.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// EventsConfig selects where transition events are published.
type EventsConfig struct {
	Redis RedisConfig `yaml:"redis"`
	MQTT  MQTTConfig  `yaml:"mqtt"`
}

// RedisConfig configures the Redis Streams publisher.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path.
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

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset field with its documented default.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "lab_tracking.db"
	}

	if cfg.Scanner.PollIntervalMillis <= 0 {
		cfg.Scanner.PollIntervalMillis = 500
	}
	cfg.Scanner.PollInterval = time.Duration(cfg.Scanner.PollIntervalMillis) * time.Millisecond
	if cfg.Scanner.Width <= 0 {
		cfg.Scanner.Width = 1280
	}
	if cfg.Scanner.Height <= 0 {
		cfg.Scanner.Height = 720
	}
	if cfg.Scanner.LabName == "" {
		cfg.Scanner.LabName = DefaultLabName
	}
	if cfg.Scanner.ServerURL == "" {
		cfg.Scanner.ServerURL = "http://localhost:5000"
	}
	if cfg.Scanner.RequestTimeoutSeconds <= 0 {
		cfg.Scanner.RequestTimeoutSeconds = 10
	}
	if cfg.Scanner.FeedbackSeconds <= 0 {
		cfg.Scanner.FeedbackSeconds = 3
	}
	cfg.Scanner.FeedbackDuration = time.Duration(cfg.Scanner.FeedbackSeconds) * time.Second

	if len(cfg.Labs) == 0 {
		cfg.Labs = []string{DefaultLabName, "Chemistry Lab", "Physics Lab", "Biology Lab", "Computer Lab"}
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Events.Redis.Stream == "" {
		cfg.Events.Redis.Stream = "lab:transitions"
	}
	if cfg.Events.MQTT.TopicPrefix == "" {
		cfg.Events.MQTT.TopicPrefix = "labs"
	}
	if cfg.Events.MQTT.ClientID == "" {
		cfg.Events.MQTT.ClientID = "labtrackd"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
