package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fastpay-backend/internal/domain"

	"go.uber.org/zap"
)

// CopierConfig bounds one hard-sync pass.
type CopierConfig struct {
	MessageLimit int
	DryRun       bool
}

// Copier performs a hard sync: it discovers every device present in
// Firebase, upserts the device rows, and ingests all three collections
// through the same ingest path the periodic commands use. Unlike the
// periodic pass it never cleans the Firebase side.
type Copier struct {
	source        FullSource
	devices       DeviceWriter
	messages      MessageStore
	notifications NotificationStore
	contacts      ContactStore
	logs          LogStore
	logger        *zap.Logger
}

func NewCopier(source FullSource, devices DeviceWriter, messages MessageStore, notifications NotificationStore, contacts ContactStore, logs LogStore, logger *zap.Logger) *Copier {
	return &Copier{
		source:        source,
		devices:       devices,
		messages:      messages,
		notifications: notifications,
		contacts:      contacts,
		logs:          logs,
		logger:        logger,
	}
}

// Run copies every discovered device. deviceIDs narrows the pass when
// non-nil. Per-device failures are collected and never abort the rest.
func (c *Copier) Run(ctx context.Context, deviceIDs []string, cfg CopierConfig) (*Summary, error) {
	started := time.Now().UTC()

	if deviceIDs == nil {
		ids, err := c.source.ListDeviceIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover devices: %w", err)
		}
		deviceIDs = ids
	}

	summary := &Summary{
		TotalDevices: len(deviceIDs),
		Totals: map[string]EntityTotals{
			"devices":       {},
			"messages":      {},
			"notifications": {},
			"contacts":      {},
		},
		StartedAt: started,
	}

	for _, deviceID := range deviceIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		dr, errs := c.copyDevice(ctx, deviceID, cfg, summary)
		summary.DeviceResults = append(summary.DeviceResults, dr)
		if len(errs) > 0 {
			summary.DevicesFailed++
			summary.Errors = append(summary.Errors, errs...)
			continue
		}
		summary.DevicesSynced++
		if !cfg.DryRun {
			if err := c.devices.MarkHardSynced(ctx, deviceID, time.Now().UTC()); err != nil {
				c.logger.Warn("mark hard synced failed",
					zap.String("device_id", deviceID), zap.Error(err))
			}
		}
	}

	summary.FinishedAt = time.Now().UTC()
	if !cfg.DryRun {
		runner := &Runner{logs: c.logs, logger: c.logger}
		runner.writeLog(ctx, "copy", summary)
	}
	c.logger.Info("copy pass finished",
		zap.Int("total_devices", summary.TotalDevices),
		zap.Int("devices_synced", summary.DevicesSynced),
		zap.Int("devices_failed", summary.DevicesFailed),
		zap.Bool("dry_run", cfg.DryRun),
		zap.Duration("took", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary, nil
}

func (c *Copier) copyDevice(ctx context.Context, deviceID string, cfg CopierConfig, summary *Summary) (DeviceResult, []string) {
	dr := DeviceResult{DeviceID: deviceID, Commands: make(map[string]CommandStatus)}
	var errs []string

	info, err := c.source.GetDeviceInfo(ctx, deviceID)
	if err != nil {
		errs = append(errs, fmt.Sprintf("%s (device): %v", deviceID, err))
		dr.Commands["device"] = CommandStatus{Error: err.Error()}
		return dr, errs
	}

	update := deviceUpdateFromInfo(deviceID, info)
	devStatus := CommandStatus{OK: true}
	if cfg.DryRun {
		devStatus.Created++
	} else {
		created, err := c.devices.Upsert(ctx, update)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s (device): %v", deviceID, err))
			dr.Commands["device"] = CommandStatus{Error: err.Error()}
			return dr, errs
		}
		if created {
			devStatus.Created++
		} else {
			devStatus.Updated++
		}
	}
	dr.Commands["device"] = devStatus
	addTotals(summary, "devices", Result{Created: devStatus.Created, Updated: devStatus.Updated})

	steps := []struct {
		name string
		run  func() (Result, error)
	}{
		{"messages", func() (Result, error) {
			records, err := c.source.GetMessages(ctx, deviceID, cfg.MessageLimit)
			if err != nil {
				return Result{}, err
			}
			return IngestMessages(ctx, c.messages, deviceID, records, cfg.DryRun), nil
		}},
		{"notifications", func() (Result, error) {
			records, err := c.source.GetNotifications(ctx, deviceID)
			if err != nil {
				return Result{}, err
			}
			return IngestNotifications(ctx, c.notifications, deviceID, records, cfg.DryRun), nil
		}},
		{"contacts", func() (Result, error) {
			records, err := c.source.GetContacts(ctx, deviceID)
			if err != nil {
				return Result{}, err
			}
			return IngestContacts(ctx, c.contacts, deviceID, records, cfg.DryRun), nil
		}},
	}
	for _, step := range steps {
		res, err := step.run()
		status := CommandStatus{
			OK:      err == nil,
			Created: res.Created,
			Updated: res.Updated,
			Skipped: res.Skipped,
		}
		if err != nil {
			status.Error = err.Error()
			errs = append(errs, fmt.Sprintf("%s (%s): %v", deviceID, step.name, err))
		}
		// per-record errors fail the device copy as well
		if len(res.Errors) > 0 {
			status.OK = false
			for _, e := range res.Errors {
				errs = append(errs, fmt.Sprintf("%s (%s): %s", deviceID, step.name, e))
			}
		}
		dr.Commands[step.name] = status
		addTotals(summary, step.name, res)
	}
	return dr, errs
}

func addTotals(s *Summary, name string, res Result) {
	t := s.Totals[name]
	t.Created += res.Created
	t.Updated += res.Updated
	t.Skipped += res.Skipped
	t.Cleaned += res.Cleaned
	s.Totals[name] = t
}

// deviceUpdateFromInfo maps a Firebase device-info object onto a device
// upsert. Absent fields stay null so stored values survive the merge.
func deviceUpdateFromInfo(deviceID string, info map[string]any) *domain.DeviceUpdate {
	u := &domain.DeviceUpdate{DeviceID: deviceID}
	if info == nil {
		return u
	}

	u.Name = infoString(info, "name", "deviceName")
	u.Model = infoString(info, "model")
	u.Phone = infoString(info, "phone")
	u.CurrentPhone = infoString(info, "currentPhone", "phone")
	u.CurrentIdentifier = infoString(info, "currentIdentifier", "identifier")
	u.Code = infoString(info, "code")
	u.Bankcard = infoString(info, "bankcard")

	if v, ok := firstPresent(info, "isActive", "is_active"); ok {
		u.IsActive = sql.NullBool{Bool: normalizeActive(v), Valid: true}
	}
	u.LastSeen = infoEpoch(info, "time", "lastSeen", "last_seen")
	u.BatteryPercentage = infoEpoch(info, "batteryPercentage", "battery_percentage", "battery")

	if v, ok := firstPresent(info, "systemInfo", "system_info"); ok {
		if obj, ok := v.(map[string]any); ok {
			raw, err := json.Marshal(obj)
			if err == nil {
				u.SystemInfo = sql.NullString{String: string(raw), Valid: true}
			}
		}
	}
	return u
}

// normalizeActive maps the loosely-typed isActive field to a bool. String
// values are active only for a known set of spellings; unknown types are
// treated as active.
func normalizeActive(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "opened", "active", "true", "1", "yes":
			return true
		}
		return false
	case float64:
		return t != 0
	case nil:
		return false
	default:
		return true
	}
}

func firstPresent(info map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := info[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func infoString(info map[string]any, keys ...string) sql.NullString {
	for _, k := range keys {
		if v, ok := info[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return sql.NullString{String: s, Valid: true}
			}
		}
	}
	return sql.NullString{}
}

func infoEpoch(info map[string]any, keys ...string) sql.NullInt64 {
	for _, k := range keys {
		switch t := info[k].(type) {
		case float64:
			return sql.NullInt64{Int64: int64(t), Valid: true}
		case string:
			if n, err := strconv.ParseInt(t, 10, 64); err == nil {
				return sql.NullInt64{Int64: n, Valid: true}
			}
		}
	}
	return sql.NullInt64{}
}
