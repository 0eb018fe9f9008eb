package sync

import (
	"context"
	"time"

	"fastpay-backend/internal/domain"
	"fastpay-backend/internal/firebase"
)

// Options tunes one command run. KeepLatest bounds both the fetch window
// and the Firebase-side cleanup; 0 means unlimited fetch and no pruning.
type Options struct {
	KeepLatest int  `json:"keep_latest"`
	NoClean    bool `json:"no_clean"`
}

// Result is what a command reports for one device. Per-record failures are
// collected as strings; they never abort the rest of the batch.
type Result struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Cleaned int      `json:"cleaned"`
	Errors  []string `json:"errors,omitempty"`
}

// Command syncs one entity type from Firebase into the relational store
// for a single device, then optionally cleans the Firebase side.
type Command interface {
	Name() string
	DefaultOptions() Options
	Run(ctx context.Context, deviceID string, opts Options) (Result, error)
}

// Registry is an ordered command list. Commands run in registration order;
// registering a command twice makes it run twice (no collision detection).
type Registry struct {
	commands []Command
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(cmd Command) {
	r.commands = append(r.commands, cmd)
}

func (r *Registry) All() []Command {
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Source is the external-store surface the commands consume.
type Source interface {
	GetMessages(ctx context.Context, deviceID string, limit int) (map[string]firebase.Record, error)
	GetNotifications(ctx context.Context, deviceID string) (map[string]firebase.Record, error)
	GetContacts(ctx context.Context, deviceID string) (map[string]firebase.Record, error)
	CleanMessages(ctx context.Context, deviceID string, keep int) (int, error)
	CleanNotifications(ctx context.Context, deviceID string, keep int) (int, error)
	CleanContacts(ctx context.Context, deviceID string, keep int) (int, error)
}

// FullSource adds device discovery, used by the copier.
type FullSource interface {
	Source
	ListDeviceIDs(ctx context.Context) ([]string, error)
	GetDeviceInfo(ctx context.Context, deviceID string) (map[string]any, error)
}

// DeviceStore is the sync-bookkeeping surface of the devices repository.
type DeviceStore interface {
	ListDeviceIDs(ctx context.Context) ([]string, error)
	SetSyncStatus(ctx context.Context, deviceID, status, errMsg string) error
	MarkEntitySynced(ctx context.Context, deviceID, entity string, at time.Time) error
}

// DeviceWriter is the device-upsert surface used by the copier.
type DeviceWriter interface {
	Upsert(ctx context.Context, u *domain.DeviceUpdate) (bool, error)
	MarkHardSynced(ctx context.Context, deviceID string, at time.Time) error
}

type MessageStore interface {
	CreateIfAbsent(ctx context.Context, m *domain.Message) (bool, error)
}

type NotificationStore interface {
	Upsert(ctx context.Context, n *domain.Notification) (bool, error)
}

type ContactStore interface {
	Upsert(ctx context.Context, c *domain.Contact) (bool, error)
}

type LogStore interface {
	Insert(ctx context.Context, l *domain.SyncLog) error
}
