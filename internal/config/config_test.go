package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "fastpay", cfg.Database.Name)
	assert.Equal(t, "production", cfg.Firebase.Env)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 100, cfg.Sync.KeepMessages)
	assert.Equal(t, 100, cfg.Sync.KeepNotifications)
	assert.Equal(t, 0, cfg.Sync.KeepContacts)
	assert.Equal(t, 500, cfg.Sync.MessageLimit)
	assert.Equal(t, 10*time.Minute, cfg.Alerts.OfflineAfter)
	assert.Equal(t, 20, cfg.Alerts.LowBatteryThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Alerts.SyncStaleAfter)
	assert.Equal(t, 60, cfg.Telegram.ThrottleSeconds)
	assert.Equal(t, 30, cfg.Logs.RetentionDays)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("FIREBASE_ENV", "staging")
	t.Setenv("FIREBASE_SYNC_INTERVAL", "90s")
	t.Setenv("FIREBASE_SYNC_KEEP_MESSAGES", "50")
	t.Setenv("TELEGRAM_CHAT_IDS", " -100 , -200 ,")
	t.Setenv("DEVICE_OFFLINE_MINUTES", "15")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "staging", cfg.Firebase.Env)
	assert.Equal(t, 90*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 50, cfg.Sync.KeepMessages)
	assert.Equal(t, []string{"-100", "-200"}, cfg.Telegram.ChatIDs)
	assert.Equal(t, 15*time.Minute, cfg.Alerts.OfflineAfter)
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("FIREBASE_SYNC_INTERVAL", "soon")

	cfg := Load()
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
}

func TestDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "hunter2")

	cfg := Load()
	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=db.internal")
	assert.Contains(t, dsn, "password=hunter2")
	assert.Contains(t, dsn, "dbname=fastpay")
}
