package sync

import (
	"context"
	"fmt"
	"time"

	"fastpay-backend/internal/firebase"

	"go.uber.org/zap"
)

// ContactsCommand syncs the address book for one device. Contacts default
// to an unlimited window: keep_latest 0 processes everything and prunes
// nothing.
type ContactsCommand struct {
	source   Source
	contacts ContactStore
	devices  DeviceStore
	logger   *zap.Logger
}

func NewContactsCommand(source Source, contacts ContactStore, devices DeviceStore, logger *zap.Logger) *ContactsCommand {
	return &ContactsCommand{source: source, contacts: contacts, devices: devices, logger: logger}
}

func (c *ContactsCommand) Name() string { return "contacts" }

func (c *ContactsCommand) DefaultOptions() Options { return Options{KeepLatest: 0} }

func (c *ContactsCommand) Run(ctx context.Context, deviceID string, opts Options) (Result, error) {
	records, err := c.source.GetContacts(ctx, deviceID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch contacts for %s: %w", deviceID, err)
	}
	records = firebase.PruneContacts(records, opts.KeepLatest)

	res := IngestContacts(ctx, c.contacts, deviceID, records, false)

	if len(res.Errors) == 0 {
		if err := c.devices.MarkEntitySynced(ctx, deviceID, "contacts", time.Now().UTC()); err != nil {
			c.logger.Warn("mark contacts synced failed",
				zap.String("device_id", deviceID), zap.Error(err))
		}
		if !opts.NoClean && opts.KeepLatest > 0 {
			cleaned, err := c.source.CleanContacts(ctx, deviceID, opts.KeepLatest)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("clean contacts: %v", err))
			} else {
				res.Cleaned = cleaned
			}
		}
	}
	return res, nil
}
