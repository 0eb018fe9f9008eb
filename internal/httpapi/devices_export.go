package httpapi

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"fastpay-backend/internal/domain"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var deviceExportHeader = []string{
	"Device ID",
	"Name",
	"Model",
	"Current Phone",
	"Code",
	"Active",
	"Battery %",
	"Last Seen",
	"Company",
	"Sync Status",
	"Last Sync At",
}

// Export streams the caller's visible devices as an xlsx workbook.
func (h *DevicesHandler) Export(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())

	// export ignores pagination; fetch in fixed-size batches
	var all []domain.Device
	for page := 1; ; page++ {
		batch, total, err := h.devices.List(r.Context(), companyScope(claims), page, 200)
		if err != nil {
			h.logger.Error("export device fetch failed", zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("failed to export devices"))
			return
		}
		all = append(all, batch...)
		if len(batch) == 0 || len(all) >= total {
			break
		}
	}

	data, err := buildDeviceWorkbook(all)
	if err != nil {
		h.logger.Error("export workbook build failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to build workbook"))
		return
	}

	name := fmt.Sprintf("devices-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	_, _ = w.Write(data)
}

func buildDeviceWorkbook(devices []domain.Device) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so no deferred Close on success

	const sheetName = "Devices"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	for col, header := range deviceExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("header coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header style: %w", err)
		}
	}

	for row, d := range devices {
		values := []any{
			d.DeviceID,
			d.Name.String,
			d.Model.String,
			d.CurrentPhone.String,
			d.Code.String,
			d.IsActive,
			nullInt(d.BatteryPercentage),
			lastSeenCell(d.LastSeen),
			d.CompanyID.String,
			d.SyncStatus,
			formatNullTime(d.LastSyncAt),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("row coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func nullInt(v sql.NullInt64) any {
	if !v.Valid {
		return ""
	}
	return v.Int64
}

func lastSeenCell(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return time.UnixMilli(v.Int64).UTC().Format(time.RFC3339)
}
