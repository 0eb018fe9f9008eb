package httpapi

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fastpay-backend/internal/domain"

	"go.uber.org/zap"
)

// DevicesRepo is the device read/write surface the dashboard uses.
type DevicesRepo interface {
	List(ctx context.Context, companyID string, page, size int) ([]domain.Device, int, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*domain.Device, error)
	UpdateEditable(ctx context.Context, deviceID string, name sql.NullString, isActive sql.NullBool, companyID sql.NullString) error
}

type MessagesRepo interface {
	ListByDevice(ctx context.Context, deviceID string, page, size int) ([]domain.Message, int, error)
}

type NotificationsRepo interface {
	ListByDevice(ctx context.Context, deviceID string, page, size int) ([]domain.Notification, int, error)
}

type ContactsRepo interface {
	ListByDevice(ctx context.Context, deviceID string, page, size int) ([]domain.Contact, int, error)
}

type BankCardsRepo interface {
	Create(ctx context.Context, b *domain.BankCard) error
	Update(ctx context.Context, b *domain.BankCard) error
	Delete(ctx context.Context, id string) error
	ListByDevice(ctx context.Context, deviceID string) ([]domain.BankCard, error)
}

// DevicesHandler serves the dashboard device routes.
type DevicesHandler struct {
	devices       DevicesRepo
	messages      MessagesRepo
	notifications NotificationsRepo
	contacts      ContactsRepo
	bankCards     BankCardsRepo
	logger        *zap.Logger
}

func NewDevicesHandler(devices DevicesRepo, messages MessagesRepo, notifications NotificationsRepo, contacts ContactsRepo, bankCards BankCardsRepo, logger *zap.Logger) *DevicesHandler {
	return &DevicesHandler{
		devices:       devices,
		messages:      messages,
		notifications: notifications,
		contacts:      contacts,
		bankCards:     bankCards,
		logger:        logger,
	}
}

// List returns the devices the caller may see, paginated.
func (h *DevicesHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	page, size := pageParams(r)

	devices, total, err := h.devices.List(r.Context(), companyScope(claims), page, size)
	if err != nil {
		h.logger.Error("list devices failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to list devices"))
		return
	}
	items := make([]map[string]any, 0, len(devices))
	for i := range devices {
		items = append(items, devices[i].ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": total,
		"page":  page,
		"size":  size,
	}))
}

// Get returns one device when visible to the caller.
func (h *DevicesHandler) Get(w http.ResponseWriter, r *http.Request, deviceID string) {
	d, err := h.visibleDevice(r, deviceID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, Fail("device not found"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(d.ToJSON()))
}

// Patch updates the operator-editable fields: name, is_active, company_id.
func (h *DevicesHandler) Patch(w http.ResponseWriter, r *http.Request, deviceID string) {
	if _, err := h.visibleDevice(r, deviceID); err != nil {
		writeJSON(w, http.StatusNotFound, Fail("device not found"))
		return
	}

	var body struct {
		Name      *string `json:"name"`
		IsActive  *bool   `json:"is_active"`
		CompanyID *string `json:"company_id"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if body.Name == nil && body.IsActive == nil && body.CompanyID == nil {
		writeJSON(w, http.StatusOK, Fail("nothing to update"))
		return
	}

	var name, companyID sql.NullString
	var isActive sql.NullBool
	if body.Name != nil {
		name = sql.NullString{String: *body.Name, Valid: true}
	}
	if body.IsActive != nil {
		isActive = sql.NullBool{Bool: *body.IsActive, Valid: true}
	}
	if body.CompanyID != nil {
		claims, _ := ClaimsFrom(r.Context())
		if claims == nil || claims.Role != domain.RoleAdmin {
			writeJSON(w, http.StatusForbidden, Fail("only admins may reassign devices"))
			return
		}
		companyID = sql.NullString{String: *body.CompanyID, Valid: true}
	}

	if err := h.devices.UpdateEditable(r.Context(), deviceID, name, isActive, companyID); err != nil {
		h.logger.Error("update device failed",
			zap.String("device_id", deviceID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to update device"))
		return
	}
	d, err := h.devices.GetByDeviceID(r.Context(), deviceID)
	if err != nil || d == nil {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
		return
	}
	writeJSON(w, http.StatusOK, Ok(d.ToJSON()))
}

// Messages returns one device's messages, newest first.
func (h *DevicesHandler) Messages(w http.ResponseWriter, r *http.Request, deviceID string) {
	if _, err := h.visibleDevice(r, deviceID); err != nil {
		writeJSON(w, http.StatusNotFound, Fail("device not found"))
		return
	}
	page, size := pageParams(r)
	msgs, total, err := h.messages.ListByDevice(r.Context(), deviceID, page, size)
	if err != nil {
		h.logger.Error("list messages failed",
			zap.String("device_id", deviceID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to list messages"))
		return
	}
	items := make([]map[string]any, 0, len(msgs))
	for i := range msgs {
		items = append(items, msgs[i].ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": total, "page": page, "size": size}))
}

// Notifications returns one device's notifications, newest first.
func (h *DevicesHandler) Notifications(w http.ResponseWriter, r *http.Request, deviceID string) {
	if _, err := h.visibleDevice(r, deviceID); err != nil {
		writeJSON(w, http.StatusNotFound, Fail("device not found"))
		return
	}
	page, size := pageParams(r)
	items, total, err := h.notifications.ListByDevice(r.Context(), deviceID, page, size)
	if err != nil {
		h.logger.Error("list notifications failed",
			zap.String("device_id", deviceID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to list notifications"))
		return
	}
	out := make([]map[string]any, 0, len(items))
	for i := range items {
		out = append(out, items[i].ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": total, "page": page, "size": size}))
}

// Contacts returns one device's contacts.
func (h *DevicesHandler) Contacts(w http.ResponseWriter, r *http.Request, deviceID string) {
	if _, err := h.visibleDevice(r, deviceID); err != nil {
		writeJSON(w, http.StatusNotFound, Fail("device not found"))
		return
	}
	page, size := pageParams(r)
	items, total, err := h.contacts.ListByDevice(r.Context(), deviceID, page, size)
	if err != nil {
		h.logger.Error("list contacts failed",
			zap.String("device_id", deviceID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to list contacts"))
		return
	}
	out := make([]map[string]any, 0, len(items))
	for i := range items {
		out = append(out, items[i].ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": total, "page": page, "size": size}))
}

// BankCards dispatches the per-device bank card collection routes.
func (h *DevicesHandler) BankCards(w http.ResponseWriter, r *http.Request, deviceID string) {
	if _, err := h.visibleDevice(r, deviceID); err != nil {
		writeJSON(w, http.StatusNotFound, Fail("device not found"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		cards, err := h.bankCards.ListByDevice(r.Context(), deviceID)
		if err != nil {
			h.logger.Error("list bank cards failed",
				zap.String("device_id", deviceID), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("failed to list bank cards"))
			return
		}
		items := make([]map[string]any, 0, len(cards))
		for i := range cards {
			items = append(items, cards[i].ToJSON())
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
	case http.MethodPost:
		var body struct {
			CardNumber string `json:"card_number"`
			HolderName string `json:"holder_name"`
			ExpiryDate string `json:"expiry_date"`
			BankName   string `json:"bank_name"`
			CardType   string `json:"card_type"`
		}
		if err := readBodyJSON(r, 1<<20, &body); err != nil || body.CardNumber == "" {
			writeJSON(w, http.StatusOK, Fail("card_number is required"))
			return
		}
		card := &domain.BankCard{
			DeviceID:   deviceID,
			CardNumber: body.CardNumber,
			HolderName: optString(body.HolderName),
			ExpiryDate: optString(body.ExpiryDate),
			BankName:   optString(body.BankName),
			CardType:   optString(body.CardType),
		}
		if err := h.bankCards.Create(r.Context(), card); err != nil {
			h.logger.Error("create bank card failed",
				zap.String("device_id", deviceID), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("failed to create bank card"))
			return
		}
		writeJSON(w, http.StatusOK, Ok(card.ToJSON()))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// BankCard dispatches the single bank card routes.
func (h *DevicesHandler) BankCard(w http.ResponseWriter, r *http.Request, cardID string) {
	switch r.Method {
	case http.MethodPatch:
		var body struct {
			HolderName *string `json:"holder_name"`
			ExpiryDate *string `json:"expiry_date"`
			BankName   *string `json:"bank_name"`
			CardType   *string `json:"card_type"`
		}
		if err := readBodyJSON(r, 1<<20, &body); err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid body"))
			return
		}
		card := &domain.BankCard{ID: cardID}
		if body.HolderName != nil {
			card.HolderName = optString(*body.HolderName)
		}
		if body.ExpiryDate != nil {
			card.ExpiryDate = optString(*body.ExpiryDate)
		}
		if body.BankName != nil {
			card.BankName = optString(*body.BankName)
		}
		if body.CardType != nil {
			card.CardType = optString(*body.CardType)
		}
		if err := h.bankCards.Update(r.Context(), card); err != nil {
			h.logger.Error("update bank card failed",
				zap.String("card_id", cardID), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("failed to update bank card"))
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
	case http.MethodDelete:
		if err := h.bankCards.Delete(r.Context(), cardID); err != nil {
			h.logger.Error("delete bank card failed",
				zap.String("card_id", cardID), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("failed to delete bank card"))
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// visibleDevice loads a device and enforces company scoping.
func (h *DevicesHandler) visibleDevice(r *http.Request, deviceID string) (*domain.Device, error) {
	d, err := h.devices.GetByDeviceID(r.Context(), deviceID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("device %s not found", deviceID)
	}
	claims, _ := ClaimsFrom(r.Context())
	if scope := companyScope(claims); scope != "" {
		if !d.CompanyID.Valid || d.CompanyID.String != scope {
			return nil, fmt.Errorf("device %s not visible", deviceID)
		}
	}
	return d, nil
}

func optString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(time.RFC3339)
}
