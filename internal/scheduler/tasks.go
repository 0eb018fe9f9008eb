package scheduler

import (
	"context"
	"fmt"
	"time"

	"fastpay-backend/internal/config"
	"fastpay-backend/internal/domain"
	"fastpay-backend/internal/sync"

	"go.uber.org/zap"
)

// DeviceMonitor is the device-health surface the alert tasks read.
type DeviceMonitor interface {
	ListOffline(ctx context.Context, cutoffMS int64) ([]domain.Device, error)
	ListLowBattery(ctx context.Context, threshold int) ([]domain.Device, error)
	ListSyncIssues(ctx context.Context) ([]domain.Device, error)
	MarkStaleOutOfSync(ctx context.Context, cutoff time.Time) (int64, error)
}

// LogJanitor trims old sync log rows.
type LogJanitor interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Notifier is the alert surface the tasks write to.
type Notifier interface {
	Send(ctx context.Context, key, text string) error
}

// Pinger is a health-checkable dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps collects everything the standard task set needs.
type Deps struct {
	Runner  *sync.Runner
	Devices DeviceMonitor
	Logs    LogJanitor
	Alerter Notifier
	Health  map[string]Pinger // name -> dependency
	Logger  *zap.Logger
}

// Register wires the standard periodic task set into the scheduler.
func Register(s *Scheduler, cfg *config.Config, deps Deps) {
	s.Add(Task{
		Name:       "firebase-sync",
		Interval:   cfg.Sync.Interval,
		MaxRetries: 2,
		RetryDelay: 30 * time.Second,
		Run: func(ctx context.Context) error {
			opts := map[string]sync.Options{
				"messages":      {KeepLatest: cfg.Sync.KeepMessages},
				"notifications": {KeepLatest: cfg.Sync.KeepNotifications},
				"contacts":      {KeepLatest: cfg.Sync.KeepContacts},
			}
			_, err := deps.Runner.RunAll(ctx, nil, opts)
			return err
		},
	})
	s.Add(Task{
		Name:     "device-alerts",
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			return runDeviceAlerts(ctx, cfg, deps)
		},
	})
	s.Add(Task{
		Name:     "mark-stale-devices",
		Interval: 10 * time.Minute,
		Run: func(ctx context.Context) error {
			cutoff := time.Now().UTC().Add(-cfg.Alerts.SyncStaleAfter)
			n, err := deps.Devices.MarkStaleOutOfSync(ctx, cutoff)
			if err != nil {
				return err
			}
			if n > 0 {
				deps.Logger.Info("devices marked out of sync", zap.Int64("count", n))
			}
			return nil
		},
	})
	s.Add(Task{
		Name:     "sync-log-retention",
		Interval: 24 * time.Hour,
		Run: func(ctx context.Context) error {
			cutoff := time.Now().UTC().AddDate(0, 0, -cfg.Logs.RetentionDays)
			n, err := deps.Logs.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				return err
			}
			if n > 0 {
				deps.Logger.Info("old sync logs removed", zap.Int64("count", n))
			}
			return nil
		},
	})
	s.Add(Task{
		Name:     "health-check",
		Interval: time.Minute,
		Run: func(ctx context.Context) error {
			return runHealthChecks(ctx, deps)
		},
	})
}

func runDeviceAlerts(ctx context.Context, cfg *config.Config, deps Deps) error {
	now := time.Now().UTC()

	offline, err := deps.Devices.ListOffline(ctx, now.Add(-cfg.Alerts.OfflineAfter).UnixMilli())
	if err != nil {
		return fmt.Errorf("list offline devices: %w", err)
	}
	for _, d := range offline {
		text := fmt.Sprintf("Device %s is offline (last seen %s)",
			deviceLabel(&d), lastSeenText(&d, now))
		if err := deps.Alerter.Send(ctx, "offline:"+d.DeviceID, text); err != nil {
			deps.Logger.Warn("offline alert failed",
				zap.String("device_id", d.DeviceID), zap.Error(err))
		}
	}

	low, err := deps.Devices.ListLowBattery(ctx, cfg.Alerts.LowBatteryThreshold)
	if err != nil {
		return fmt.Errorf("list low battery devices: %w", err)
	}
	for _, d := range low {
		text := fmt.Sprintf("Device %s battery at %d%%", deviceLabel(&d), d.BatteryPercentage.Int64)
		if err := deps.Alerter.Send(ctx, "battery:"+d.DeviceID, text); err != nil {
			deps.Logger.Warn("battery alert failed",
				zap.String("device_id", d.DeviceID), zap.Error(err))
		}
	}

	issues, err := deps.Devices.ListSyncIssues(ctx)
	if err != nil {
		return fmt.Errorf("list sync issues: %w", err)
	}
	for _, d := range issues {
		text := fmt.Sprintf("Device %s sync status %s", deviceLabel(&d), d.SyncStatus)
		if d.SyncErrorMessage.Valid && d.SyncErrorMessage.String != "" {
			text += ": " + d.SyncErrorMessage.String
		}
		if err := deps.Alerter.Send(ctx, "sync:"+d.DeviceID, text); err != nil {
			deps.Logger.Warn("sync alert failed",
				zap.String("device_id", d.DeviceID), zap.Error(err))
		}
	}
	return nil
}

func runHealthChecks(ctx context.Context, deps Deps) error {
	for name, p := range deps.Health {
		err := p.Ping(ctx)
		if err == nil {
			continue
		}
		deps.Logger.Error("health check failed",
			zap.String("dependency", name), zap.Error(err))
		text := fmt.Sprintf("Health check failed for %s: %v", name, err)
		if aerr := deps.Alerter.Send(ctx, "health:"+name, text); aerr != nil {
			deps.Logger.Warn("health alert failed", zap.Error(aerr))
		}
	}
	return nil
}

func deviceLabel(d *domain.Device) string {
	if d.Name.Valid && d.Name.String != "" {
		return fmt.Sprintf("%s (%s)", d.Name.String, d.DeviceID)
	}
	return d.DeviceID
}

func lastSeenText(d *domain.Device, now time.Time) string {
	if !d.LastSeen.Valid {
		return "never"
	}
	seen := time.UnixMilli(d.LastSeen.Int64).UTC()
	return fmt.Sprintf("%s ago", now.Sub(seen).Truncate(time.Minute))
}
