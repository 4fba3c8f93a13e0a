package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. envFile is loaded into the
// process environment first when it exists.
func Load(envFile, yamlFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := defaults()

	if yamlFile == "" {
		yamlFile = os.Getenv("CONFIG_FILE")
	}
	if yamlFile != "" {
		raw, err := os.ReadFile(yamlFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", yamlFile, err)
		}
	}

	l := &loader{}

	cfg.BotToken = strings.TrimSpace(getEnv(l, "TELEGRAM_BOT_TOKEN", cfg.BotToken, parseString))
	cfg.RequireToken = getEnv(l, "REQUIRE_BOT_TOKEN", cfg.RequireToken, strconv.ParseBool)
	cfg.APIRoot = strings.TrimRight(getEnv(l, "TELEGRAM_API_ROOT", cfg.APIRoot, parseString), "/")

	cfg.WebhookSecret = strings.TrimSpace(getEnv(l, "WEBHOOK_SECRET", cfg.WebhookSecret, parseString))
	cfg.WebhookSecretHeader = getEnv(l, "WEBHOOK_SECRET_HEADER", cfg.WebhookSecretHeader, parseString)
	cfg.WebhookURL = strings.TrimSpace(getEnv(l, "WEBHOOK_URL", cfg.WebhookURL, parseString))

	cfg.DatabaseURL = strings.TrimSpace(getEnv(l, "DATABASE_URL", cfg.DatabaseURL, parseString))
	cfg.UserCheck = getEnv(l, "USER_CHECK", cfg.UserCheck, parseUserCheck)

	cfg.MediaDir = getEnv(l, "MEDIA_DIR", cfg.MediaDir, parseString)
	cfg.PreviewMaxSide = getEnv(l, "PREVIEW_MAX_SIDE", cfg.PreviewMaxSide, parseNonNegative)
	cfg.PreviewSquare = getEnv(l, "PREVIEW_SQUARE", cfg.PreviewSquare, strconv.ParseBool)
	cfg.MaxFileSize = getEnv(l, "MAX_FILE_SIZE", cfg.MaxFileSize, parsePositive)

	cfg.LogDir = getEnv(l, "LOG_DIR", cfg.LogDir, parseString)
	cfg.LogLevel = getEnv(l, "LOG_LEVEL", cfg.LogLevel, parseString)
	cfg.LogRetentionDays = getEnv(l, "LOG_RETENTION_DAYS", cfg.LogRetentionDays, parsePositive)
	cfg.RetentionSchedule = getEnv(l, "RETENTION_SCHEDULE", cfg.RetentionSchedule, parseString)

	cfg.ListenHost = getEnv(l, "LISTEN_HOST", cfg.ListenHost, parseString)
	cfg.ListenPort = getEnv(l, "LISTEN_PORT", cfg.ListenPort, parsePort)

	cfg.HTTPTimeout = getEnv(l, "HTTP_TIMEOUT", cfg.HTTPTimeout, time.ParseDuration)
	cfg.DownloadTimeout = getEnv(l, "DOWNLOAD_TIMEOUT", cfg.DownloadTimeout, time.ParseDuration)

	cfg.DispatchWorkers = getEnv(l, "DISPATCH_WORKERS", cfg.DispatchWorkers, parsePositive)
	cfg.DispatchQueue = getEnv(l, "DISPATCH_QUEUE", cfg.DispatchQueue, parseNonNegative)
	cfg.CacheMaxEntries = getEnv(l, "CACHE_MAX_ENTRIES", cfg.CacheMaxEntries, parseNonNegative)

	if cfg.BotToken == "" {
		if cfg.RequireToken {
			return nil, errors.New("TELEGRAM_BOT_TOKEN is required (REQUIRE_BOT_TOKEN=true)")
		}
		l.warn("TELEGRAM_BOT_TOKEN is not set; outbound Telegram calls will fail")
	}

	cfg.Warnings = l.warnings
	return cfg, nil
}

type loader struct {
	warnings []string
}

func (l *loader) warn(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func getEnv[T any](l *loader, key string, defaultValue T, parser func(string) (T, error)) T {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	parsed, err := parser(val)
	if err != nil {
		l.warn("invalid value for %s (%s). Using default: %v", key, val, defaultValue)
		return defaultValue
	}

	return parsed
}

func parseString(val string) (string, error) {
	return val, nil
}

func parseInt(val string) (int64, error) {
	return strconv.ParseInt(val, 10, 64)
}

func parsePositive(val string) (int64, error) {
	n, err := parseInt(val)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func parseNonNegative(val string) (int64, error) {
	n, err := parseInt(val)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", n)
	}
	return n, nil
}

func parsePort(val string) (int64, error) {
	n, err := parseInt(val)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 65535 {
		return 0, fmt.Errorf("port out of range: %d", n)
	}
	return n, nil
}

func parseUserCheck(val string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(val)); v {
	case "allow", "postgres":
		return v, nil
	default:
		return "", fmt.Errorf("unknown user check %q", val)
	}
}
