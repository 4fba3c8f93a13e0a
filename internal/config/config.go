package config

import (
	"net"
	"strconv"
	"time"
)

const (
	DefaultSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
	DefaultAPIRoot      = "https://api.telegram.org"
)

type Config struct {
	BotToken     string `yaml:"bot_token"`
	RequireToken bool   `yaml:"require_bot_token"`
	APIRoot      string `yaml:"api_root"`

	WebhookSecret       string `yaml:"webhook_secret"`
	WebhookSecretHeader string `yaml:"webhook_secret_header"`
	WebhookURL          string `yaml:"webhook_url"`

	DatabaseURL string `yaml:"database_url"`
	UserCheck   string `yaml:"user_check"`

	MediaDir       string `yaml:"media_dir"`
	PreviewMaxSide int64  `yaml:"preview_max_side"`
	PreviewSquare  bool   `yaml:"preview_square"`
	MaxFileSize    int64  `yaml:"max_file_size"`

	LogDir            string `yaml:"log_dir"`
	LogLevel          string `yaml:"log_level"`
	LogRetentionDays  int64  `yaml:"log_retention_days"`
	RetentionSchedule string `yaml:"retention_schedule"`

	ListenHost string `yaml:"listen_host"`
	ListenPort int64  `yaml:"listen_port"`

	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`

	DispatchWorkers int64 `yaml:"dispatch_workers"`
	DispatchQueue   int64 `yaml:"dispatch_queue"`
	CacheMaxEntries int64 `yaml:"cache_max_entries"`

	// Warnings collected while loading; logged once the logger exists.
	Warnings []string `yaml:"-"`
}

func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.ListenHost, strconv.FormatInt(c.ListenPort, 10))
}

func (c *Config) LogRetention() time.Duration {
	return time.Duration(c.LogRetentionDays) * 24 * time.Hour
}

func defaults() *Config {
	return &Config{
		APIRoot:             DefaultAPIRoot,
		WebhookSecretHeader: DefaultSecretHeader,
		UserCheck:           "allow",
		MediaDir:            "./media",
		MaxFileSize:         50 * 1024 * 1024,
		LogDir:              "./logs",
		LogLevel:            "info",
		LogRetentionDays:    31,
		ListenHost:          "0.0.0.0",
		ListenPort:          8000,
		HTTPTimeout:         30 * time.Second,
		DownloadTimeout:     60 * time.Second,
		DispatchWorkers:     4,
		DispatchQueue:       64,
	}
}
