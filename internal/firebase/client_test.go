package firebase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRTDB serves a Realtime Database tree over the REST surface the
// client talks to ({path}.json), recording PUT bodies for clean assertions.
type fakeRTDB struct {
	mu   sync.Mutex
	tree map[string]string // path (no leading slash, no .json) -> JSON
	puts map[string]string
}

func newFakeRTDB(tree map[string]string) *fakeRTDB {
	return &fakeRTDB{tree: tree, puts: map[string]string{}}
}

func (f *fakeRTDB) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		path = path[1 : len(path)-len(".json")]
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			if body, ok := f.tree[path]; ok {
				io.WriteString(w, body)
				return
			}
			io.WriteString(w, "null")
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			f.puts[path] = string(body)
			f.tree[path] = string(body)
			io.WriteString(w, string(body))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newTestClient(t *testing.T, env string, tree map[string]string) (*Client, *fakeRTDB) {
	f := newFakeRTDB(tree)
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "", env, zap.NewNop()), f
}

func TestGetMessages_PrimaryPath(t *testing.T) {
	client, _ := newTestClient(t, EnvProduction, map[string]string{
		"device/dev1/messages": `{"100":{"type":"sent","phone":"+1","body":"hi"},"200":"received~+2~yo"}`,
	})

	records, err := client.GetMessages(context.Background(), "dev1", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Structured, records["100"].Kind)
	assert.Equal(t, Delimited, records["200"].Kind)
}

func TestGetMessages_LegacyPathFallback(t *testing.T) {
	client, _ := newTestClient(t, EnvProduction, map[string]string{
		"message/dev1": `{"100":"sent~+1~legacy"}`,
	})

	records, err := client.GetMessages(context.Background(), "dev1", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "sent~+1~legacy", records["100"].Raw)
}

func TestGetMessages_LimitKeepsLatest(t *testing.T) {
	client, _ := newTestClient(t, EnvProduction, map[string]string{
		"device/dev1/messages": `{"100":"a~b~c","200":"a~b~c","300":"a~b~c"}`,
	})

	records, err := client.GetMessages(context.Background(), "dev1", 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Contains(t, records, "300")
	assert.Contains(t, records, "200")
}

func TestGetMessages_StagingPath(t *testing.T) {
	client, _ := newTestClient(t, EnvStaging, map[string]string{
		"fastpay/testing/dev1/messages": `{"1":"sent~+1~stage"}`,
		"device/dev1/messages":          `{"9":"sent~+1~prod"}`,
	})

	records, err := client.GetMessages(context.Background(), "dev1", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records, "1")
}

func TestListDeviceIDs_SkipsNonObjectNodes(t *testing.T) {
	client, _ := newTestClient(t, EnvProduction, map[string]string{
		"device":          `{"dev1":{"name":"a"},"updated_at":123}`,
		"fastpay/running": `{"dev2":{"name":"b"}}`,
	})

	ids, err := client.ListDeviceIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"dev1", "dev2"}, ids)
}

func TestGetDeviceInfo_Missing(t *testing.T) {
	client, _ := newTestClient(t, EnvProduction, map[string]string{})

	info, err := client.GetDeviceInfo(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestCleanMessages_TrimsToKeepLatest(t *testing.T) {
	client, f := newTestClient(t, EnvProduction, map[string]string{
		"device/dev1/messages": `{"100":"a","200":"b","300":"c"}`,
	})

	removed, err := client.CleanMessages(context.Background(), "dev1", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	var written map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(f.puts["device/dev1/messages"]), &written))
	assert.Len(t, written, 2)
	assert.Contains(t, written, "300")
	assert.Contains(t, written, "200")
}

func TestCleanMessages_KeepZeroIsNoop(t *testing.T) {
	client, f := newTestClient(t, EnvProduction, map[string]string{
		"device/dev1/messages": `{"100":"a","200":"b"}`,
	})

	removed, err := client.CleanMessages(context.Background(), "dev1", 0)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Empty(t, f.puts)
}

func TestCleanContacts_KeepsMostRecentlyContacted(t *testing.T) {
	client, f := newTestClient(t, EnvProduction, map[string]string{
		"device/dev1/Contact": `{"+1":{"lastContacted":100},"+2":{"lastContacted":300},"+3":{}}`,
	})

	removed, err := client.CleanContacts(context.Background(), "dev1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	var written map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(f.puts["device/dev1/Contact"]), &written))
	assert.Len(t, written, 1)
	assert.Contains(t, written, "+2")
}

func TestPing(t *testing.T) {
	client, _ := newTestClient(t, EnvProduction, map[string]string{})
	assert.NoError(t, client.Ping(context.Background()))
}
