package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"fastpay-backend/internal/firebase"
)

// The ingest functions are the single place dedup and normalization
// happen; both the periodic command path and the copier/CLI path call
// them. dryRun counts what would be written without touching the store.

func sortedKeys(records map[string]firebase.Record) []string {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseInt(keys[i], 10, 64)
		b, errB := strconv.ParseInt(keys[j], 10, 64)
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	return keys
}

// IngestMessages creates messages that do not yet exist; existing
// (device, timestamp) pairs are skipped, never overwritten.
func IngestMessages(ctx context.Context, store MessageStore, deviceID string, records map[string]firebase.Record, dryRun bool) Result {
	var res Result
	for _, key := range sortedKeys(records) {
		m, err := parseMessage(deviceID, key, records[key])
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("message %s: %v", key, err))
			continue
		}
		if dryRun {
			res.Created++
			continue
		}
		created, err := store.CreateIfAbsent(ctx, m)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("message %s: %v", key, err))
			continue
		}
		if created {
			res.Created++
		} else {
			res.Skipped++
		}
	}
	return res
}

// IngestNotifications upserts notifications; records without a package
// name are counted as skipped without an error entry.
func IngestNotifications(ctx context.Context, store NotificationStore, deviceID string, records map[string]firebase.Record, dryRun bool) Result {
	var res Result
	for _, key := range sortedKeys(records) {
		n, err := parseNotification(deviceID, key, records[key])
		if err != nil {
			res.Skipped++
			if !errors.Is(err, errMissingPackage) {
				res.Errors = append(res.Errors, fmt.Sprintf("notification %s: %v", key, err))
			}
			continue
		}
		if dryRun {
			res.Created++
			continue
		}
		created, err := store.Upsert(ctx, n)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("notification %s: %v", key, err))
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res
}

// IngestContacts upserts contacts keyed by phone number.
func IngestContacts(ctx context.Context, store ContactStore, deviceID string, records map[string]firebase.Record, dryRun bool) Result {
	var res Result
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, phone := range keys {
		c, err := parseContact(deviceID, phone, records[phone])
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("contact %s: %v", phone, err))
			continue
		}
		if dryRun {
			res.Created++
			continue
		}
		created, err := store.Upsert(ctx, c)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("contact %s: %v", phone, err))
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res
}
