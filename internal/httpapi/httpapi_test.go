package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fastpay-backend/internal/domain"
	"fastpay-backend/internal/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUsers serves one known login.
type fakeUsers struct {
	user *domain.DashUser
}

func (f *fakeUsers) GetByUsername(ctx context.Context, username string) (*domain.DashUser, error) {
	if f.user != nil && f.user.Username == username {
		return f.user, nil
	}
	return nil, nil
}

// fakeDevicesRepo serves canned devices and records calls.
type fakeDevicesRepo struct {
	devices      map[string]*domain.Device
	listScope    string
	patchedName  sql.NullString
	patchedOwner sql.NullString
}

func (f *fakeDevicesRepo) List(ctx context.Context, companyID string, page, size int) ([]domain.Device, int, error) {
	f.listScope = companyID
	var out []domain.Device
	for _, d := range f.devices {
		if companyID == "" || (d.CompanyID.Valid && d.CompanyID.String == companyID) {
			out = append(out, *d)
		}
	}
	return out, len(out), nil
}

func (f *fakeDevicesRepo) GetByDeviceID(ctx context.Context, deviceID string) (*domain.Device, error) {
	return f.devices[deviceID], nil
}

func (f *fakeDevicesRepo) UpdateEditable(ctx context.Context, deviceID string, name sql.NullString, isActive sql.NullBool, companyID sql.NullString) error {
	f.patchedName = name
	f.patchedOwner = companyID
	if d, ok := f.devices[deviceID]; ok {
		if name.Valid {
			d.Name = name
		}
		if isActive.Valid {
			d.IsActive = isActive.Bool
		}
		if companyID.Valid {
			d.CompanyID = companyID
		}
	}
	return nil
}

type fakeMessagesRepo struct{ items []domain.Message }

func (f *fakeMessagesRepo) ListByDevice(ctx context.Context, deviceID string, page, size int) ([]domain.Message, int, error) {
	return f.items, len(f.items), nil
}

type fakeNotificationsRepo struct{ items []domain.Notification }

func (f *fakeNotificationsRepo) ListByDevice(ctx context.Context, deviceID string, page, size int) ([]domain.Notification, int, error) {
	return f.items, len(f.items), nil
}

type fakeContactsRepo struct{ items []domain.Contact }

func (f *fakeContactsRepo) ListByDevice(ctx context.Context, deviceID string, page, size int) ([]domain.Contact, int, error) {
	return f.items, len(f.items), nil
}

type fakeBankCardsRepo struct {
	cards   []domain.BankCard
	deleted []string
}

func (f *fakeBankCardsRepo) Create(ctx context.Context, b *domain.BankCard) error {
	b.ID = fmt.Sprintf("card-%d", len(f.cards)+1)
	f.cards = append(f.cards, *b)
	return nil
}

func (f *fakeBankCardsRepo) Update(ctx context.Context, b *domain.BankCard) error { return nil }

func (f *fakeBankCardsRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBankCardsRepo) ListByDevice(ctx context.Context, deviceID string) ([]domain.BankCard, error) {
	return f.cards, nil
}

type fakeSyncRunner struct {
	lastDevices []string
	summary     *sync.Summary
}

func (f *fakeSyncRunner) RunAll(ctx context.Context, deviceIDs []string, opts map[string]sync.Options) (*sync.Summary, error) {
	f.lastDevices = deviceIDs
	if f.summary != nil {
		return f.summary, nil
	}
	return &sync.Summary{TotalDevices: len(deviceIDs), DevicesSynced: len(deviceIDs)}, nil
}

type fakeSyncLogs struct{ items []domain.SyncLog }

func (f *fakeSyncLogs) List(ctx context.Context, limit int) ([]domain.SyncLog, error) {
	return f.items, nil
}

type fakeCompanies struct{ items []domain.Company }

func (f *fakeCompanies) List(ctx context.Context) ([]domain.Company, error) { return f.items, nil }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testEnv struct {
	router  *Router
	auth    *AuthHandler
	devices *fakeDevicesRepo
	cards   *fakeBankCardsRepo
	runner  *fakeSyncRunner
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithUser(t, &domain.DashUser{
		ID:           "u-1",
		Username:     "admin",
		PasswordHash: hashPassword("s3cret"),
		Role:         domain.RoleAdmin,
		IsActive:     true,
	})
}

func newTestEnvWithUser(t *testing.T, user *domain.DashUser) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	users := &fakeUsers{user: user}
	auth := NewAuthHandler(users, "test-secret", time.Hour, logger)

	devicesRepo := &fakeDevicesRepo{devices: map[string]*domain.Device{
		"dev-1": {
			DeviceID:   "dev-1",
			Name:       sql.NullString{String: "Front desk", Valid: true},
			IsActive:   true,
			SyncStatus: domain.SyncStatusSynced,
			CompanyID:  sql.NullString{String: "co-1", Valid: true},
		},
		"dev-2": {
			DeviceID:   "dev-2",
			IsActive:   true,
			SyncStatus: domain.SyncStatusNeverSynced,
			CompanyID:  sql.NullString{String: "co-2", Valid: true},
		},
	}}
	cards := &fakeBankCardsRepo{}
	dh := NewDevicesHandler(devicesRepo,
		&fakeMessagesRepo{items: []domain.Message{{DeviceID: "dev-1", Timestamp: 100, MessageType: domain.MessageReceived}}},
		&fakeNotificationsRepo{},
		&fakeContactsRepo{},
		cards, logger)

	runner := &fakeSyncRunner{}
	sh := NewSyncHandler(runner, &fakeSyncLogs{items: []domain.SyncLog{{ID: "l-1", Status: domain.SyncLogSuccess}}}, logger)
	ch := NewCompaniesHandler(&fakeCompanies{items: []domain.Company{{ID: "co-1", Code: "FASTPAY", Name: "FastPay"}}}, logger)
	hh := NewHealthHandler(map[string]Pinger{
		"database": pingFunc(func(ctx context.Context) error { return nil }),
	}, logger)

	router := NewRouter(logger)
	router.Register(auth, dh, sh, ch, hh)
	return &testEnv{router: router, auth: auth, devices: devicesRepo, cards: cards, runner: runner}
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out Result[map[string]any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, ResultSuccess, out.Code)
	token, _ := out.Result["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) Result[map[string]any] {
	t.Helper()
	var out Result[map[string]any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLoginWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/devices", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsGarbageToken(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/devices", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, ResultTokenExpired, out.Code)
}

func TestDevicesListAdminSeesAll(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "s3cret")

	rec := e.do(t, http.MethodGet, "/api/devices", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, ResultSuccess, out.Code)
	assert.Equal(t, float64(2), out.Result["total"])
	assert.Equal(t, "", e.devices.listScope)
}

func TestDeviceGet(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "s3cret")

	rec := e.do(t, http.MethodGet, "/api/devices/dev-1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, "dev-1", out.Result["device_id"])
	assert.Equal(t, "Front desk", out.Result["name"])

	rec = e.do(t, http.MethodGet, "/api/devices/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDevicePatchName(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "s3cret")

	rec := e.do(t, http.MethodPatch, "/api/devices/dev-1", token,
		map[string]any{"name": "Back office"})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, ResultSuccess, out.Code)
	assert.Equal(t, "Back office", out.Result["name"])
	assert.True(t, e.devices.patchedName.Valid)
}

func TestDeviceMessages(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "s3cret")

	rec := e.do(t, http.MethodGet, "/api/devices/dev-1/messages", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, float64(1), out.Result["total"])
}

func TestBankCardLifecycle(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "s3cret")

	rec := e.do(t, http.MethodPost, "/api/devices/dev-1/bank-cards", token,
		map[string]any{"card_number": "4111111111111111", "bank_name": "Acme"})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	require.Equal(t, ResultSuccess, out.Code)
	assert.Equal(t, "4111111111111111", out.Result["card_number"])

	rec = e.do(t, http.MethodGet, "/api/devices/dev-1/bank-cards", token, nil)
	out = decodeResult(t, rec)
	assert.Equal(t, float64(1), out.Result["total"])

	rec = e.do(t, http.MethodDelete, "/api/bank-cards/card-1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"card-1"}, e.cards.deleted)
}

func TestSyncRunForDevice(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "s3cret")

	rec := e.do(t, http.MethodPost, "/api/devices/dev-1/sync", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"dev-1"}, e.runner.lastDevices)
}

func TestSyncRunAll(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "s3cret")

	rec := e.do(t, http.MethodPost, "/api/sync/run", token,
		map[string]any{"device_ids": []string{"dev-1", "dev-2"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"dev-1", "dev-2"}, e.runner.lastDevices)
}

func TestSyncLogsList(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "s3cret")

	rec := e.do(t, http.MethodGet, "/api/sync/logs", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, float64(1), out.Result["total"])
}

func TestCompaniesList(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "s3cret")

	rec := e.do(t, http.MethodGet, "/api/companies", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, float64(1), out.Result["total"])
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func newScopedEnv(t *testing.T) *testEnv {
	return newTestEnvWithUser(t, &domain.DashUser{
		ID:           "u-2",
		Username:     "owner1",
		PasswordHash: hashPassword("pw"),
		Role:         domain.RoleOwner,
		CompanyID:    sql.NullString{String: "co-1", Valid: true},
		IsActive:     true,
	})
}

func TestCompanyScopedListFiltersByCompany(t *testing.T) {
	e := newScopedEnv(t)
	token := e.login(t, "owner1", "pw")

	rec := e.do(t, http.MethodGet, "/api/devices", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, float64(1), out.Result["total"])
	assert.Equal(t, "co-1", e.devices.listScope)
}

func TestCompanyScopedUserCannotSeeOtherCompany(t *testing.T) {
	e := newScopedEnv(t)
	token := e.login(t, "owner1", "pw")

	rec := e.do(t, http.MethodGet, "/api/devices/dev-2", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/devices/dev-1", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompanyScopedUserCannotReassignDevice(t *testing.T) {
	e := newScopedEnv(t)
	token := e.login(t, "owner1", "pw")

	rec := e.do(t, http.MethodPatch, "/api/devices/dev-1", token,
		map[string]any{"company_id": "co-2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSyncRunRequiresAdmin(t *testing.T) {
	e := newScopedEnv(t)
	token := e.login(t, "owner1", "pw")

	rec := e.do(t, http.MethodPost, "/api/sync/run", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeviceExport(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin", "s3cret")

	rec := e.do(t, http.MethodGet, "/api/devices/export", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotEmpty(t, rec.Body.Bytes())
}
