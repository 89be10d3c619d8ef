package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/pantry/internal/agent"
	"github.com/grovetools/pantry/internal/registry"
	"github.com/grovetools/pantry/internal/session"
	"github.com/grovetools/pantry/internal/storage"
	"github.com/grovetools/pantry/internal/storage/kv/kvmap"
	"github.com/grovetools/pantry/pkg/daemon"
	"github.com/grovetools/pantry/pkg/models"
	"github.com/grovetools/pantry/testutil"
)

var alice = models.UserInfo{UUID: "11111111-1111-1111-1111-111111111111", Name: "alice"}

type fixture struct {
	srv    *Server
	http   *httptest.Server
	agent  *agent.Agent
	auth   *testutil.FakeAuth
	client *http.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := testutil.NullLogger("server")
	auth := testutil.NewFakeAuth(alice)
	machine := session.New(auth, logger, session.WithProbeOnStart(false))
	testutil.StartRunner(t, machine)
	a := agent.New(storage.New(kvmap.NewBucket(), logger), machine, logger)
	testutil.StartRunner(t, a)

	srv := New(a, machine, logger)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return &fixture{srv: srv, http: hs, agent: a, auth: auth, client: hs.Client()}
}

func (f *fixture) call(t *testing.T, method, path string, body any, token registry.Token) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.http.URL+path, rd)
	require.NoError(t, err)
	if token != 0 {
		req.Header.Set(daemon.SubscriptionHeader, strconv.FormatUint(uint64(token), 10))
	}
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, agent.Response) {
	t.Helper()
	status, data := f.call(t, method, path, body, 0)
	resp, err := agent.UnmarshalResponse(data)
	require.NoError(t, err, string(data))
	return status, resp
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	status, data := f.call(t, "POST", "/api/session/login?wait=1",
		models.UserLogin{Identifier: models.UserIdentifier{Name: "alice"}, Password: "alice-pw"}, 0)
	require.Equal(t, http.StatusOK, status, string(data))
	var st session.State
	require.NoError(t, json.Unmarshal(data, &st))
	require.Equal(t, session.StatusLoggedIn, st.Status)
}

func TestHealthAndConfig(t *testing.T) {
	f := newFixture(t)

	status, body := f.call(t, "GET", "/health", nil, 0)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", string(body))

	status, _ = f.call(t, "GET", "/api/config", nil, 0)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	f.srv.SetRunningConfig(&daemon.RunningConfig{Backend: "memory", TiersEnforced: true})
	status, body = f.call(t, "GET", "/api/config", nil, 0)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"backend":"memory"`)
}

func TestInventoryRoutes(t *testing.T) {
	f := newFixture(t)

	status, resp := f.do(t, "POST", "/api/inventories", map[string]string{"name": "Kitchen"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.IsType(t, agent.Unauthorized{}, resp)

	f.login(t)

	status, resp = f.do(t, "POST", "/api/inventories", map[string]string{"name": "Kitchen"})
	require.Equal(t, http.StatusCreated, status)
	inv := resp.(agent.NewInventoryUUID).InventoryUUID

	status, resp = f.do(t, "POST", "/api/inventories/"+inv+"/items", map[string]any{"name": "Rice", "ean": "4006381333931"})
	require.Equal(t, http.StatusCreated, status)
	item := resp.(agent.NewItemUUID).ItemUUID

	status, resp = f.do(t, "POST", "/api/inventories/"+inv+"/items/"+item+"/units", map[string]string{"name": "bag"})
	require.Equal(t, http.StatusCreated, status)
	assert.IsType(t, agent.NewUnitUUID{}, resp)

	status, resp = f.do(t, "PUT", "/api/inventories/"+inv+"/items/"+item, map[string]string{"name": "Basmati"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, agent.UpdatedItem{InventoryUUID: inv, ItemUUID: item}, resp)

	status, resp = f.do(t, "GET", "/api/inventories/"+inv+"/items/"+item, nil)
	require.Equal(t, http.StatusOK, status)
	got := resp.(agent.Item).Item
	assert.Equal(t, "Basmati", got.Name)
	assert.Nil(t, got.EAN)
	assert.Len(t, got.Units, 1)

	status, resp = f.do(t, "PUT", "/api/inventories/"+inv, map[string]any{"name": "Pantry", "owner": alice.UUID, "readables": []string{"bob"}})
	assert.Equal(t, http.StatusOK, status)
	assert.IsType(t, agent.UpdatedInventory{}, resp)

	status, resp = f.do(t, "GET", "/api/inventories/"+inv, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"bob"}, resp.(agent.Inventory).Inventory.Readables)

	status, resp = f.do(t, "DELETE", "/api/inventories/"+inv+"/items/"+item, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.IsType(t, agent.DeletedItem{}, resp)

	status, resp = f.do(t, "GET", "/api/inventories/"+inv+"/items/"+item, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.IsType(t, agent.InvalidItemUUID{}, resp)

	status, _ = f.do(t, "DELETE", "/api/inventories/"+inv, nil)
	assert.Equal(t, http.StatusOK, status)
	status, resp = f.do(t, "GET", "/api/inventories/"+inv, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.IsType(t, agent.InvalidInventoryUUID{}, resp)

	status, resp = f.do(t, "POST", "/api/inventories", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.IsType(t, agent.InvalidRequest{}, resp)
}

func TestListFiltersAndDebugRoutes(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, "POST", "/api/debug/inventory", nil)
	require.Equal(t, http.StatusCreated, status)
	f.login(t)
	f.do(t, "POST", "/api/inventories", map[string]string{"name": "Kitchen"})

	_, resp := f.do(t, "GET", "/api/inventories", nil)
	assert.Len(t, resp.(agent.Inventories).Inventories, 2)

	_, resp = f.do(t, "GET", "/api/inventories?name=Kit*", nil)
	require.Len(t, resp.(agent.Inventories).Inventories, 1)
	assert.Equal(t, "Kitchen", resp.(agent.Inventories).Inventories[0].Name)

	_, resp = f.do(t, "GET", `/api/inventories?where=`+url.QueryEscape(`Owner == "`+alice.UUID+`"`), nil)
	assert.Len(t, resp.(agent.Inventories).Inventories, 1)

	status, body := f.call(t, "GET", "/api/inventories?where="+url.QueryEscape("Owner =="), nil, 0)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "INVALID_INPUT")

	status, resp = f.do(t, "DELETE", "/api/debug/data", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, agent.Inventories{Inventories: []models.Inventory{}}, resp)
}

func TestEnvelopeRoute(t *testing.T) {
	f := newFixture(t)

	env, err := agent.EncodeRequest(agent.MakeDebugInventory{})
	require.NoError(t, err)
	status, resp := f.do(t, "POST", "/api/requests", env)
	assert.Equal(t, http.StatusCreated, status)
	assert.IsType(t, agent.NewInventoryUUID{}, resp)

	status, body := f.call(t, "POST", "/api/requests", map[string]string{"type": "nope"}, 0)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "unknown request type")
}

func TestSessionRoutes(t *testing.T) {
	f := newFixture(t)

	status, body := f.call(t, "GET", "/api/session", nil, 0)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"unknown"`)

	status, body = f.call(t, "POST", "/api/session/probe?wait=1", nil, 0)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"logged_out"`)

	status, body = f.call(t, "POST", "/api/session/login?wait=1",
		models.UserLogin{Identifier: models.UserIdentifier{Name: "alice"}, Password: "wrong"}, 0)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"error"`)

	f.login(t)
	status, body = f.call(t, "POST", "/api/session/logout?wait=1", nil, 0)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"logged_out"`)

	status, _ = f.call(t, "POST", "/api/session/teleport", nil, 0)
	assert.Equal(t, http.StatusNotFound, status)
}

// readSSE decodes data lines from an event stream onto a channel.
func readSSE(t *testing.T, body io.Reader) <-chan daemon.StateUpdate {
	ch := make(chan daemon.StateUpdate, 16)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var u daemon.StateUpdate
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &u); err != nil {
				t.Errorf("bad event %q: %v", line, err)
				return
			}
			ch <- u
		}
	}()
	return ch
}

func openStream(t *testing.T, f *fixture, topic string) (registry.Token, <-chan daemon.StateUpdate) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, "GET", f.http.URL+"/api/stream?topic="+topic, nil)
	require.NoError(t, err)
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readSSE(t, resp.Body)
	hello := testutil.Receive(t, events)
	require.Equal(t, daemon.UpdateSubscribed, hello.UpdateType)
	require.NotZero(t, hello.Token)
	assert.Equal(t, daemon.UpdateInitial, testutil.Receive(t, events).UpdateType)
	assert.Equal(t, daemon.UpdateSession, testutil.Receive(t, events).UpdateType)
	return hello.Token, events
}

func TestStreamExcludesRequester(t *testing.T) {
	f := newFixture(t)
	token, events := openStream(t, f, "changes")
	_, others := openStream(t, f, "snapshots")

	status, _ := f.call(t, "POST", "/api/debug/inventory", nil, token)
	require.Equal(t, http.StatusCreated, status)

	snap := testutil.Receive(t, others)
	assert.Equal(t, daemon.UpdateSnapshot, snap.UpdateType)
	resp, err := snap.Decode()
	require.NoError(t, err)
	assert.Len(t, resp.(agent.Inventories).Inventories, 1)

	// A one-shot mutation reaches the first stream too.
	f.call(t, "POST", "/api/debug/inventory", nil, 0)
	change := testutil.Receive(t, events)
	assert.Equal(t, daemon.UpdateChange, change.UpdateType)
	resp, err = change.Decode()
	require.NoError(t, err)
	assert.IsType(t, agent.NewInventoryUUID{}, resp)
}

func TestStreamCarriesSessionAndReloads(t *testing.T) {
	f := newFixture(t)
	_, events := openStream(t, f, "snapshots")

	f.call(t, "POST", "/api/session/probe", nil, 0)
	u := testutil.Receive(t, events)
	require.Equal(t, daemon.UpdateSession, u.UpdateType)
	assert.Equal(t, session.StatusProbing, u.Session.Status)
	assert.Equal(t, session.StatusLoggedOut, testutil.Receive(t, events).Session.Status)

	f.srv.BroadcastConfigReload("pantry.yml")
	u = testutil.Receive(t, events)
	assert.Equal(t, daemon.UpdateConfigReload, u.UpdateType)
	assert.Equal(t, "pantry.yml", u.ConfigFile)
}

func TestStreamRejectsUnknownTopic(t *testing.T) {
	f := newFixture(t)
	status, _ := f.call(t, "GET", "/api/stream?topic=gossip", nil, 0)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWebSocketRequests(t *testing.T) {
	f := newFixture(t)
	_, others := openStream(t, f, "changes")

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/api/ws?topic=changes"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var u daemon.StateUpdate
	for _, want := range []string{daemon.UpdateSubscribed, daemon.UpdateInitial, daemon.UpdateSession} {
		require.NoError(t, conn.ReadJSON(&u))
		require.Equal(t, want, u.UpdateType)
	}

	env, err := agent.EncodeRequest(agent.MakeDebugInventory{})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(env))

	require.NoError(t, conn.ReadJSON(&u))
	assert.Equal(t, daemon.UpdateReply, u.UpdateType)
	resp, err := u.Decode()
	require.NoError(t, err)
	assert.IsType(t, agent.NewInventoryUUID{}, resp)

	assert.Equal(t, daemon.UpdateChange, testutil.Receive(t, others).UpdateType)

	require.NoError(t, conn.WriteJSON(agent.Envelope{Type: "nope"}))
	require.NoError(t, conn.ReadJSON(&u))
	assert.Equal(t, daemon.UpdateError, u.UpdateType)
	assert.Contains(t, u.Error, "unknown request type")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusCreated, StatusFor(agent.NewItemUUID{}))
	assert.Equal(t, http.StatusNotFound, StatusFor(agent.InvalidItemUUID{}))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(agent.Unauthorized{}))
	assert.Equal(t, http.StatusForbidden, StatusFor(agent.Forbidden{}))
	assert.Equal(t, http.StatusBadRequest, StatusFor(agent.InvalidRequest{}))
	assert.Equal(t, http.StatusOK, StatusFor(agent.DeletedInventory{}))
}
