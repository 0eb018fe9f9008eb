package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config fastpay-backend configuration, loaded from environment variables.
type Config struct {
	HTTP struct {
		Addr string
	}
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		MaxIdle  int
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Firebase struct {
		DatabaseURL string
		AuthToken   string
		Env         string // "production" or "staging"
	}
	Telegram struct {
		BotToken        string
		ChatIDs         []string
		ThrottleSeconds int
	}
	SMS struct {
		APIURL     string
		APIKey     string
		Sender     string
		Recipients []string
	}
	Sync struct {
		Interval          time.Duration
		KeepMessages      int
		KeepNotifications int
		KeepContacts      int
		MessageLimit      int
	}
	Alerts struct {
		OfflineAfter        time.Duration
		LowBatteryThreshold int
		SyncStaleAfter      time.Duration
	}
	Auth struct {
		JWTSecret string
		TokenTTL  time.Duration
	}
	Logs struct {
		RetentionDays int
	}
	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from the environment. A local .env file is
// honored when present so `go run` works without exporting everything.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnv("DB_NAME", "fastpay")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Firebase.DatabaseURL = getEnv("FIREBASE_DATABASE_URL", "")
	cfg.Firebase.AuthToken = getEnv("FIREBASE_AUTH_TOKEN", "")
	cfg.Firebase.Env = getEnv("FIREBASE_ENV", "production")

	cfg.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.Telegram.ChatIDs = splitList(getEnv("TELEGRAM_CHAT_IDS", ""))
	cfg.Telegram.ThrottleSeconds = parseInt(getEnv("TELEGRAM_ALERT_THROTTLE_SECONDS", "60"), 60)

	cfg.SMS.APIURL = getEnv("BLACKSMS_API_URL", "")
	cfg.SMS.APIKey = getEnv("BLACKSMS_API_KEY", "")
	cfg.SMS.Sender = getEnv("BLACKSMS_SENDER", "FASTPAY")
	cfg.SMS.Recipients = splitList(getEnv("BLACKSMS_RECIPIENTS", ""))

	cfg.Sync.Interval = parseDuration(getEnv("FIREBASE_SYNC_INTERVAL", "5m"), 5*time.Minute)
	cfg.Sync.KeepMessages = parseInt(getEnv("FIREBASE_SYNC_KEEP_MESSAGES", "100"), 100)
	cfg.Sync.KeepNotifications = parseInt(getEnv("FIREBASE_SYNC_KEEP_NOTIFICATIONS", "100"), 100)
	cfg.Sync.KeepContacts = parseInt(getEnv("FIREBASE_SYNC_KEEP_CONTACTS", "0"), 0)
	cfg.Sync.MessageLimit = parseInt(getEnv("FIREBASE_SYNC_MESSAGE_LIMIT", "500"), 500)

	cfg.Alerts.OfflineAfter = time.Duration(parseInt(getEnv("DEVICE_OFFLINE_MINUTES", "10"), 10)) * time.Minute
	cfg.Alerts.LowBatteryThreshold = parseInt(getEnv("DEVICE_LOW_BATTERY_THRESHOLD", "20"), 20)
	cfg.Alerts.SyncStaleAfter = time.Duration(parseInt(getEnv("DEVICE_SYNC_THRESHOLD_MINUTES", "30"), 30)) * time.Minute

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "dev-secret-change-me")
	cfg.Auth.TokenTTL = parseDuration(getEnv("JWT_TOKEN_TTL", "24h"), 24*time.Hour)

	cfg.Logs.RetentionDays = parseInt(getEnv("SYNC_LOG_RETENTION_DAYS", "30"), 30)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

// DSN returns the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
