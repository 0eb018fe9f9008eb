package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fastpay-backend/internal/domain"
	"fastpay-backend/internal/firebase"
)

func rec(raw string) firebase.Record {
	return firebase.DecodeRecord(json.RawMessage(raw))
}

func recordMap(raws map[string]string) map[string]firebase.Record {
	out := make(map[string]firebase.Record, len(raws))
	for k, v := range raws {
		out[k] = rec(v)
	}
	return out
}

// fakeSource serves canned Firebase collections and records clean calls.
type fakeSource struct {
	deviceIDs     []string
	deviceInfo    map[string]map[string]any
	messages      map[string]map[string]firebase.Record
	notifications map[string]map[string]firebase.Record
	contacts      map[string]map[string]firebase.Record

	fetchErr map[string]error // keyed by "<entity>:<device>"
	cleanErr map[string]error

	cleanCalls []string // "<entity>:<device>:<keep>"
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		deviceInfo:    map[string]map[string]any{},
		messages:      map[string]map[string]firebase.Record{},
		notifications: map[string]map[string]firebase.Record{},
		contacts:      map[string]map[string]firebase.Record{},
		fetchErr:      map[string]error{},
		cleanErr:      map[string]error{},
	}
}

func (f *fakeSource) ListDeviceIDs(ctx context.Context) ([]string, error) {
	return f.deviceIDs, nil
}

func (f *fakeSource) GetDeviceInfo(ctx context.Context, deviceID string) (map[string]any, error) {
	if err := f.fetchErr["device:"+deviceID]; err != nil {
		return nil, err
	}
	return f.deviceInfo[deviceID], nil
}

func (f *fakeSource) GetMessages(ctx context.Context, deviceID string, limit int) (map[string]firebase.Record, error) {
	if err := f.fetchErr["messages:"+deviceID]; err != nil {
		return nil, err
	}
	return firebase.PruneByTimestamp(f.messages[deviceID], limit), nil
}

func (f *fakeSource) GetNotifications(ctx context.Context, deviceID string) (map[string]firebase.Record, error) {
	if err := f.fetchErr["notifications:"+deviceID]; err != nil {
		return nil, err
	}
	return f.notifications[deviceID], nil
}

func (f *fakeSource) GetContacts(ctx context.Context, deviceID string) (map[string]firebase.Record, error) {
	if err := f.fetchErr["contacts:"+deviceID]; err != nil {
		return nil, err
	}
	return f.contacts[deviceID], nil
}

func (f *fakeSource) clean(entity, deviceID string, keep int, records map[string]firebase.Record, pruned map[string]firebase.Record) (int, error) {
	if err := f.cleanErr[entity+":"+deviceID]; err != nil {
		return 0, err
	}
	f.cleanCalls = append(f.cleanCalls, fmt.Sprintf("%s:%s:%d", entity, deviceID, keep))
	return len(records) - len(pruned), nil
}

func (f *fakeSource) CleanMessages(ctx context.Context, deviceID string, keep int) (int, error) {
	all := f.messages[deviceID]
	return f.clean("messages", deviceID, keep, all, firebase.PruneByTimestamp(all, keep))
}

func (f *fakeSource) CleanNotifications(ctx context.Context, deviceID string, keep int) (int, error) {
	all := f.notifications[deviceID]
	return f.clean("notifications", deviceID, keep, all, firebase.PruneByTimestamp(all, keep))
}

func (f *fakeSource) CleanContacts(ctx context.Context, deviceID string, keep int) (int, error) {
	all := f.contacts[deviceID]
	return f.clean("contacts", deviceID, keep, all, firebase.PruneContacts(all, keep))
}

// fakeDevices records sync bookkeeping in memory.
type fakeDevices struct {
	ids          []string
	statuses     map[string][]string // device -> status history
	errMsgs      map[string]string
	entitySynced map[string][]string // device -> entity history
	upserts      []*domain.DeviceUpdate
	existing     map[string]bool // device ids treated as already stored
	hardSynced   []string
}

func newFakeDevices(ids ...string) *fakeDevices {
	return &fakeDevices{
		ids:          ids,
		statuses:     map[string][]string{},
		errMsgs:      map[string]string{},
		entitySynced: map[string][]string{},
		existing:     map[string]bool{},
	}
}

func (f *fakeDevices) ListDeviceIDs(ctx context.Context) ([]string, error) {
	return f.ids, nil
}

func (f *fakeDevices) SetSyncStatus(ctx context.Context, deviceID, status, errMsg string) error {
	f.statuses[deviceID] = append(f.statuses[deviceID], status)
	f.errMsgs[deviceID] = errMsg
	return nil
}

func (f *fakeDevices) MarkEntitySynced(ctx context.Context, deviceID, entity string, at time.Time) error {
	f.entitySynced[deviceID] = append(f.entitySynced[deviceID], entity)
	return nil
}

func (f *fakeDevices) Upsert(ctx context.Context, u *domain.DeviceUpdate) (bool, error) {
	f.upserts = append(f.upserts, u)
	created := !f.existing[u.DeviceID]
	f.existing[u.DeviceID] = true
	return created, nil
}

func (f *fakeDevices) MarkHardSynced(ctx context.Context, deviceID string, at time.Time) error {
	f.hardSynced = append(f.hardSynced, deviceID)
	return nil
}

func (f *fakeDevices) lastStatus(deviceID string) string {
	h := f.statuses[deviceID]
	if len(h) == 0 {
		return ""
	}
	return h[len(h)-1]
}

// fakeMessages stores messages keyed by (device, timestamp).
type fakeMessages struct {
	stored map[string]*domain.Message
	err    error
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{stored: map[string]*domain.Message{}}
}

func (f *fakeMessages) key(deviceID string, ts int64) string {
	return fmt.Sprintf("%s:%d", deviceID, ts)
}

func (f *fakeMessages) CreateIfAbsent(ctx context.Context, m *domain.Message) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	k := f.key(m.DeviceID, m.Timestamp)
	if _, ok := f.stored[k]; ok {
		return false, nil
	}
	f.stored[k] = m
	return true, nil
}

// fakeNotifications upserts notifications keyed by (device, timestamp).
type fakeNotifications struct {
	stored map[string]*domain.Notification
	err    error
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{stored: map[string]*domain.Notification{}}
}

func (f *fakeNotifications) Upsert(ctx context.Context, n *domain.Notification) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	k := fmt.Sprintf("%s:%d", n.DeviceID, n.Timestamp)
	_, existed := f.stored[k]
	f.stored[k] = n
	return !existed, nil
}

// fakeContacts upserts contacts keyed by (device, phone).
type fakeContacts struct {
	stored map[string]*domain.Contact
	err    error
}

func newFakeContacts() *fakeContacts {
	return &fakeContacts{stored: map[string]*domain.Contact{}}
}

func (f *fakeContacts) Upsert(ctx context.Context, c *domain.Contact) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	k := c.DeviceID + ":" + c.PhoneNumber
	_, existed := f.stored[k]
	f.stored[k] = c
	return !existed, nil
}

// fakeLogs collects written sync logs.
type fakeLogs struct {
	entries []*domain.SyncLog
}

func (f *fakeLogs) Insert(ctx context.Context, l *domain.SyncLog) error {
	f.entries = append(f.entries, l)
	return nil
}
