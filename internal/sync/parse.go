package sync

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fastpay-backend/internal/domain"
	"fastpay-backend/internal/firebase"
)

// errMissingPackage marks a notification without a package name. Such
// records are counted as skipped, not as errors.
var errMissingPackage = errors.New("missing package name")

func parseTimestamp(key string) (int64, error) {
	ts, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad timestamp key %q", key)
	}
	return ts, nil
}

// parseMessage normalizes one source message record. Delimited records
// must carry all three "type~phone~body" segments.
func parseMessage(deviceID, key string, rec firebase.Record) (*domain.Message, error) {
	ts, err := parseTimestamp(key)
	if err != nil {
		return nil, err
	}

	var messageType, phone, body string
	var read bool
	switch rec.Kind {
	case firebase.Structured:
		messageType = rec.Str("type")
		phone = rec.Str("phone")
		body = rec.Str("body")
		read = rec.Bool("read")
	case firebase.Delimited:
		if strings.Count(rec.Raw, "~") < 2 {
			return nil, fmt.Errorf("malformed delimited message %q", rec.Raw)
		}
		parts := firebase.SplitParts(rec.Raw, 3)
		messageType, phone, body = parts[0], parts[1], parts[2]
	default:
		return nil, fmt.Errorf("unsupported message shape at %s", key)
	}

	if messageType != domain.MessageReceived && messageType != domain.MessageSent {
		messageType = domain.MessageReceived
	}
	return &domain.Message{
		DeviceID:    deviceID,
		Timestamp:   ts,
		MessageType: messageType,
		Phone:       phone,
		Body:        body,
		Read:        read,
	}, nil
}

// notificationCoreFields are lifted into columns; everything else lands in
// the extra JSON blob.
var notificationCoreFields = map[string]bool{
	"package": true, "packageName": true,
	"title": true, "text": true, "body": true,
}

// parseNotification normalizes one source notification record. Fields the
// record does not carry stay null so the repository merge keeps prior
// values.
func parseNotification(deviceID, key string, rec firebase.Record) (*domain.Notification, error) {
	ts, err := parseTimestamp(key)
	if err != nil {
		return nil, err
	}

	n := &domain.Notification{DeviceID: deviceID, Timestamp: ts}
	switch rec.Kind {
	case firebase.Structured:
		n.PackageName = rec.Str("package", "packageName")
		n.Title = presentString(rec, "title")
		n.Text = presentString(rec, "text", "body")
		extra := map[string]any{}
		for k, v := range rec.Fields {
			if !notificationCoreFields[k] {
				extra[k] = v
			}
		}
		if len(extra) > 0 {
			raw, err := json.Marshal(extra)
			if err == nil {
				n.Extra = sql.NullString{String: string(raw), Valid: true}
			}
		}
	case firebase.Delimited:
		parts := firebase.SplitParts(rec.Raw, 3)
		n.PackageName = parts[0]
		n.Title = sql.NullString{String: parts[1], Valid: true}
		n.Text = sql.NullString{String: parts[2], Valid: true}
	default:
		return nil, fmt.Errorf("unsupported notification shape at %s", key)
	}

	if n.PackageName == "" {
		return nil, errMissingPackage
	}
	return n, nil
}

// presentString is valid only when one of the keys exists in the record,
// so present-but-empty and absent are distinguishable.
func presentString(rec firebase.Record, keys ...string) sql.NullString {
	for _, k := range keys {
		if v, ok := rec.Fields[k]; ok {
			if s, ok := v.(string); ok {
				return sql.NullString{String: s, Valid: true}
			}
		}
	}
	return sql.NullString{}
}

// parseContact normalizes one source contact record. Non-structured
// records yield a minimal contact keyed by phone number, matching the
// source's behavior for bare values.
func parseContact(deviceID, phoneNumber string, rec firebase.Record) (*domain.Contact, error) {
	c := &domain.Contact{DeviceID: deviceID, PhoneNumber: phoneNumber}
	if rec.Kind != firebase.Structured {
		c.ContactID = sql.NullString{String: phoneNumber, Valid: true}
		return c, nil
	}

	c.ContactID = presentString(rec, "contactId", "id")
	c.Name = presentString(rec, "name")
	c.DisplayName = presentString(rec, "displayName", "display_name")
	c.Phones = presentJSONArray(rec, "phones")
	c.Emails = presentJSONArray(rec, "emails")
	c.Addresses = presentJSONArray(rec, "addresses")
	c.Websites = presentJSONArray(rec, "websites")
	c.IMAccounts = presentJSONArray(rec, "imAccounts", "im_accounts")
	c.PhotoURI = presentString(rec, "photoUri", "photo_uri")
	c.ThumbnailURI = presentString(rec, "thumbnailUri", "thumbnail_uri")
	c.Company = presentString(rec, "company")
	c.JobTitle = presentString(rec, "jobTitle", "job_title")
	c.Department = presentString(rec, "department")
	c.Birthday = presentString(rec, "birthday")
	c.Anniversary = presentString(rec, "anniversary")
	c.Notes = presentString(rec, "notes")
	c.Nickname = presentString(rec, "nickname")
	c.PhoneticName = presentString(rec, "phoneticName", "phonetic_name")
	c.LastContacted = parseEpoch(rec, "lastContacted", "last_contacted")
	c.TimesContacted = parseCount(rec, "timesContacted", "times_contacted")
	if v, ok := rec.Any("isStarred", "is_starred"); ok {
		c.IsStarred = sql.NullBool{Bool: truthy(v), Valid: true}
	}
	return c, nil
}

func presentJSONArray(rec firebase.Record, keys ...string) sql.NullString {
	for _, k := range keys {
		if v, ok := rec.Fields[k]; ok {
			if arr, ok := v.([]any); ok {
				raw, err := json.Marshal(arr)
				if err == nil {
					return sql.NullString{String: string(raw), Valid: true}
				}
			}
		}
	}
	return sql.NullString{}
}

// parseEpoch accepts numbers and digit strings; anything else stays null.
func parseEpoch(rec firebase.Record, keys ...string) sql.NullInt64 {
	v, ok := rec.Any(keys...)
	if !ok {
		return sql.NullInt64{}
	}
	switch t := v.(type) {
	case float64:
		return sql.NullInt64{Int64: int64(t), Valid: true}
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return sql.NullInt64{Int64: n, Valid: true}
		}
	}
	return sql.NullInt64{}
}

func parseCount(rec firebase.Record, keys ...string) sql.NullInt64 {
	return parseEpoch(rec, keys...)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return v != nil
	}
}
