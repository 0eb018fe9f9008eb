package httpapi

import (
	"context"
	"net/http"

	"fastpay-backend/internal/domain"
	"fastpay-backend/internal/sync"

	"go.uber.org/zap"
)

// SyncRunner triggers sync passes on demand.
type SyncRunner interface {
	RunAll(ctx context.Context, deviceIDs []string, optionsByName map[string]sync.Options) (*sync.Summary, error)
}

// SyncLogsRepo reads the sync audit trail.
type SyncLogsRepo interface {
	List(ctx context.Context, limit int) ([]domain.SyncLog, error)
}

// SyncHandler serves the manual sync trigger and the audit log.
type SyncHandler struct {
	runner SyncRunner
	logs   SyncLogsRepo
	logger *zap.Logger
}

func NewSyncHandler(runner SyncRunner, logs SyncLogsRepo, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{runner: runner, logs: logs, logger: logger}
}

// Run triggers a sync pass. An empty body syncs every device; the body may
// narrow the pass to given devices and override per-command options.
func (h *SyncHandler) Run(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeviceIDs []string                `json:"device_ids"`
		Options   map[string]sync.Options `json:"options"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	summary, err := h.runner.RunAll(r.Context(), body.DeviceIDs, body.Options)
	if err != nil {
		h.logger.Error("manual sync failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("sync failed: "+err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(summary))
}

// RunDevice triggers a sync pass for a single device.
func (h *SyncHandler) RunDevice(w http.ResponseWriter, r *http.Request, deviceID string) {
	summary, err := h.runner.RunAll(r.Context(), []string{deviceID}, nil)
	if err != nil {
		h.logger.Error("device sync failed",
			zap.String("device_id", deviceID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("sync failed: "+err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(summary))
}

// Logs returns recent sync passes, newest first.
func (h *SyncHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	logs, err := h.logs.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list sync logs failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to list sync logs"))
		return
	}
	items := make([]map[string]any, 0, len(logs))
	for i := range logs {
		items = append(items, logs[i].ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}
