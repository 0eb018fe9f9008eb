package sync

import (
	"context"
	"fmt"
	"time"

	"fastpay-backend/internal/firebase"

	"go.uber.org/zap"
)

// NotificationsCommand syncs app notifications for one device.
type NotificationsCommand struct {
	source        Source
	notifications NotificationStore
	devices       DeviceStore
	logger        *zap.Logger
}

func NewNotificationsCommand(source Source, notifications NotificationStore, devices DeviceStore, logger *zap.Logger) *NotificationsCommand {
	return &NotificationsCommand{source: source, notifications: notifications, devices: devices, logger: logger}
}

func (c *NotificationsCommand) Name() string { return "notifications" }

func (c *NotificationsCommand) DefaultOptions() Options { return Options{KeepLatest: 100} }

func (c *NotificationsCommand) Run(ctx context.Context, deviceID string, opts Options) (Result, error) {
	records, err := c.source.GetNotifications(ctx, deviceID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch notifications for %s: %w", deviceID, err)
	}
	records = firebase.PruneByTimestamp(records, opts.KeepLatest)

	res := IngestNotifications(ctx, c.notifications, deviceID, records, false)

	if len(res.Errors) == 0 {
		if err := c.devices.MarkEntitySynced(ctx, deviceID, "notifications", time.Now().UTC()); err != nil {
			c.logger.Warn("mark notifications synced failed",
				zap.String("device_id", deviceID), zap.Error(err))
		}
		if !opts.NoClean && opts.KeepLatest > 0 {
			cleaned, err := c.source.CleanNotifications(ctx, deviceID, opts.KeepLatest)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("clean notifications: %v", err))
			} else {
				res.Cleaned = cleaned
			}
		}
	}
	return res, nil
}
