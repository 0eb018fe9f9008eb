package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MessagesCommand syncs SMS messages for one device, then trims the
// Firebase collection to the keep-latest window.
type MessagesCommand struct {
	source   Source
	messages MessageStore
	devices  DeviceStore
	logger   *zap.Logger
}

func NewMessagesCommand(source Source, messages MessageStore, devices DeviceStore, logger *zap.Logger) *MessagesCommand {
	return &MessagesCommand{source: source, messages: messages, devices: devices, logger: logger}
}

func (c *MessagesCommand) Name() string { return "messages" }

func (c *MessagesCommand) DefaultOptions() Options { return Options{KeepLatest: 100} }

func (c *MessagesCommand) Run(ctx context.Context, deviceID string, opts Options) (Result, error) {
	records, err := c.source.GetMessages(ctx, deviceID, opts.KeepLatest)
	if err != nil {
		return Result{}, fmt.Errorf("fetch messages for %s: %w", deviceID, err)
	}

	res := IngestMessages(ctx, c.messages, deviceID, records, false)

	if len(res.Errors) == 0 {
		if err := c.devices.MarkEntitySynced(ctx, deviceID, "messages", time.Now().UTC()); err != nil {
			c.logger.Warn("mark messages synced failed",
				zap.String("device_id", deviceID), zap.Error(err))
		}
		if !opts.NoClean && opts.KeepLatest > 0 {
			cleaned, err := c.source.CleanMessages(ctx, deviceID, opts.KeepLatest)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("clean messages: %v", err))
			} else {
				res.Cleaned = cleaned
			}
		}
	}
	return res, nil
}
