package firebase

import (
	"sort"
	"strconv"
)

// timestampRank interprets a node key as an epoch-ms integer. Non-numeric
// keys rank as 0 and therefore sort to the oldest end.
func timestampRank(key string) int64 {
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// lastContactedRank ranks a contact record by its lastContacted field.
// Missing or unparseable values rank as 0 (least recent).
func lastContactedRank(rec Record) int64 {
	v, ok := rec.Any("lastContacted", "last_contacted")
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// KeepLatestKeys returns the keep highest-ranked keys sorted numerically
// descending. keep <= 0 returns all keys unchanged.
func KeepLatestKeys(keys []string, keep int) []string {
	if keep <= 0 || len(keys) <= keep {
		return keys
	}
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		return timestampRank(sorted[i]) > timestampRank(sorted[j])
	})
	return sorted[:keep]
}

// PruneByTimestamp truncates a timestamp-keyed record map to the keep
// latest entries. keep == 0 means "do not prune".
func PruneByTimestamp(records map[string]Record, keep int) map[string]Record {
	if keep <= 0 || len(records) <= keep {
		return records
	}
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	kept := KeepLatestKeys(keys, keep)
	out := make(map[string]Record, len(kept))
	for _, k := range kept {
		out[k] = records[k]
	}
	return out
}

// PruneContacts truncates a phone-keyed contact map to the keep entries
// with the most recent lastContacted. keep == 0 means "do not prune".
func PruneContacts(records map[string]Record, keep int) map[string]Record {
	if keep <= 0 || len(records) <= keep {
		return records
	}
	type ranked struct {
		key  string
		rank int64
	}
	all := make([]ranked, 0, len(records))
	for k, rec := range records {
		all = append(all, ranked{key: k, rank: lastContactedRank(rec)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].rank != all[j].rank {
			return all[i].rank > all[j].rank
		}
		return all[i].key < all[j].key
	})
	out := make(map[string]Record, keep)
	for _, r := range all[:keep] {
		out[r.key] = records[r.key]
	}
	return out
}
