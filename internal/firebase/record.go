package firebase

import (
	"encoding/json"
	"strings"
)

// RecordKind tags the two shapes a source record can arrive in. Anything
// else (numbers, arrays) is Unsupported and skipped by the ingest layer.
type RecordKind int

const (
	Structured RecordKind = iota
	Delimited
	Unsupported
)

// Record is one source record, decoded exactly once at the fetch boundary.
// Downstream code switches on Kind instead of re-inspecting raw JSON.
type Record struct {
	Kind   RecordKind
	Fields map[string]any // set when Kind == Structured
	Raw    string         // set when Kind == Delimited, e.g. "sent~+1555~Hello"
}

// DecodeRecord classifies a raw JSON value as a structured map, a
// "~"-delimited string, or an unsupported shape.
func DecodeRecord(raw json.RawMessage) Record {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Record{Kind: Unsupported}
	}
	switch t := v.(type) {
	case map[string]any:
		return Record{Kind: Structured, Fields: t}
	case string:
		return Record{Kind: Delimited, Raw: t}
	default:
		return Record{Kind: Unsupported}
	}
}

// Str returns the first non-empty string value among the given field keys.
func (r Record) Str(keys ...string) string {
	for _, k := range keys {
		if v, ok := r.Fields[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// Any returns the first non-nil value among the given field keys.
func (r Record) Any(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r.Fields[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Bool reads a boolean field; JSON numbers are truthy when non-zero.
func (r Record) Bool(keys ...string) bool {
	v, ok := r.Any(keys...)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t == "true" || t == "1"
	default:
		return false
	}
}

// SplitParts splits a delimited record body on "~" into exactly n parts,
// padding missing parts with the empty string.
func SplitParts(s string, n int) []string {
	parts := strings.SplitN(s, "~", n)
	for len(parts) < n {
		parts = append(parts, "")
	}
	return parts
}
