package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fastpay-backend/internal/domain"

	"go.uber.org/zap"
)

// CommandStatus is the per-command outcome recorded for one device.
type CommandStatus struct {
	OK      bool   `json:"ok"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
	Cleaned int    `json:"cleaned"`
	Error   string `json:"error,omitempty"`
}

// DeviceResult carries the outcome of every registered command for one
// device. A device counts as failed when any command failed.
type DeviceResult struct {
	DeviceID string                   `json:"device_id"`
	Commands map[string]CommandStatus `json:"commands"`
}

// EntityTotals aggregates one command's counters across all devices.
type EntityTotals struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Cleaned int `json:"cleaned"`
}

// Summary is the outcome of one full sync pass.
type Summary struct {
	TotalDevices  int                     `json:"total_devices"`
	DevicesSynced int                     `json:"devices_synced"`
	DevicesFailed int                     `json:"devices_failed"`
	DeviceResults []DeviceResult          `json:"device_results"`
	Totals        map[string]EntityTotals `json:"totals"`
	Errors        []string                `json:"errors,omitempty"`
	StartedAt     time.Time               `json:"started_at"`
	FinishedAt    time.Time               `json:"finished_at"`
}

// Runner drives every registered command over a set of devices and writes
// one audit log row per pass.
type Runner struct {
	registry *Registry
	devices  DeviceStore
	logs     LogStore
	logger   *zap.Logger
}

func NewRunner(registry *Registry, devices DeviceStore, logs LogStore, logger *zap.Logger) *Runner {
	return &Runner{registry: registry, devices: devices, logs: logs, logger: logger}
}

// RunAll syncs the given devices, or every known device when deviceIDs is
// nil. Options override defaults per command name; per-record errors and
// per-command failures never abort the pass.
func (r *Runner) RunAll(ctx context.Context, deviceIDs []string, optionsByName map[string]Options) (*Summary, error) {
	started := time.Now().UTC()

	if deviceIDs == nil {
		ids, err := r.devices.ListDeviceIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list devices: %w", err)
		}
		deviceIDs = ids
	}

	summary := &Summary{
		TotalDevices: len(deviceIDs),
		Totals:       make(map[string]EntityTotals),
		StartedAt:    started,
	}
	commands := r.registry.All()
	for _, cmd := range commands {
		summary.Totals[cmd.Name()] = EntityTotals{}
	}

	for _, deviceID := range deviceIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.devices.SetSyncStatus(ctx, deviceID, domain.SyncStatusSyncing, ""); err != nil {
			r.logger.Warn("set syncing status failed",
				zap.String("device_id", deviceID), zap.Error(err))
		}

		dr := DeviceResult{DeviceID: deviceID, Commands: make(map[string]CommandStatus)}
		var failures []string
		for _, cmd := range commands {
			opts := cmd.DefaultOptions()
			if o, ok := optionsByName[cmd.Name()]; ok {
				opts = o
			}
			res, err := cmd.Run(ctx, deviceID, opts)
			status := CommandStatus{
				OK:      err == nil,
				Created: res.Created,
				Updated: res.Updated,
				Skipped: res.Skipped,
				Cleaned: res.Cleaned,
			}
			if err != nil {
				status.Error = err.Error()
				failures = append(failures, fmt.Sprintf("%s (%s): %v", deviceID, cmd.Name(), err))
				r.logger.Error("sync command failed",
					zap.String("device_id", deviceID),
					zap.String("command", cmd.Name()),
					zap.Error(err))
			}
			// per-record errors also fail the device; a device is synced
			// only when every command reports zero errors
			if len(res.Errors) > 0 {
				status.OK = false
				for _, e := range res.Errors {
					failures = append(failures, fmt.Sprintf("%s (%s): %s", deviceID, cmd.Name(), e))
				}
			}
			dr.Commands[cmd.Name()] = status

			t := summary.Totals[cmd.Name()]
			t.Created += res.Created
			t.Updated += res.Updated
			t.Skipped += res.Skipped
			t.Cleaned += res.Cleaned
			summary.Totals[cmd.Name()] = t
		}
		summary.DeviceResults = append(summary.DeviceResults, dr)

		if len(failures) > 0 {
			summary.DevicesFailed++
			summary.Errors = append(summary.Errors, failures...)
			if err := r.devices.SetSyncStatus(ctx, deviceID, domain.SyncStatusFailed, strings.Join(failures, "; ")); err != nil {
				r.logger.Warn("set failed status failed",
					zap.String("device_id", deviceID), zap.Error(err))
			}
			continue
		}
		summary.DevicesSynced++
		if err := r.devices.SetSyncStatus(ctx, deviceID, domain.SyncStatusSynced, ""); err != nil {
			r.logger.Warn("set synced status failed",
				zap.String("device_id", deviceID), zap.Error(err))
		}
	}

	summary.FinishedAt = time.Now().UTC()
	r.writeLog(ctx, "full", summary)
	r.logger.Info("sync pass finished",
		zap.Int("total_devices", summary.TotalDevices),
		zap.Int("devices_synced", summary.DevicesSynced),
		zap.Int("devices_failed", summary.DevicesFailed),
		zap.Int("errors", len(summary.Errors)),
		zap.Duration("took", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary, nil
}

func (r *Runner) writeLog(ctx context.Context, syncType string, s *Summary) {
	if r.logs == nil {
		return
	}
	status := domain.SyncLogSuccess
	switch {
	case s.DevicesFailed > 0 && s.DevicesSynced == 0 && s.TotalDevices > 0:
		status = domain.SyncLogFailed
	case s.DevicesFailed > 0 || len(s.Errors) > 0:
		status = domain.SyncLogPartial
	}

	l := &domain.SyncLog{
		SyncType:             syncType,
		Status:               status,
		TotalDevices:         s.TotalDevices,
		DevicesSynced:        s.DevicesSynced,
		DevicesFailed:        s.DevicesFailed,
		MessagesCreated:      s.Totals["messages"].Created,
		NotificationsCreated: s.Totals["notifications"].Created,
		ContactsCreated:      s.Totals["contacts"].Created,
		StartedAt:            s.StartedAt,
		FinishedAt:           s.FinishedAt,
		DurationMS:           s.FinishedAt.Sub(s.StartedAt).Milliseconds(),
	}
	if len(s.Errors) > 0 {
		raw, err := json.Marshal(s.Errors)
		if err == nil {
			l.ErrorDetails = sql.NullString{String: string(raw), Valid: true}
		}
	}
	if err := r.logs.Insert(ctx, l); err != nil {
		r.logger.Warn("write sync log failed", zap.Error(err))
	}
}
