package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/matthewbaird/fieldops/internal/activity"
	"github.com/matthewbaird/fieldops/internal/preview"
	"github.com/matthewbaird/fieldops/internal/rules"
	"github.com/matthewbaird/fieldops/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	rs, err := rules.Load("../rules/testdata/field_service.yaml")
	require.NoError(t, err)
	srv := httptest.NewServer(NewRouter(Config{
		Store:  store.NewMemoryStore(),
		Rules:  rs,
		Logger: zaptest.NewLogger(t),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestResourcesMounted(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/v1/accounts", "/v1/locations", "/v1/contacts", "/v1/work-orders"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Post(srv.URL+"/v1/contacts", "application/json",
		bytes.NewBufferString(`{"account_id":"123","first_name":"Ada","last_name":"Lovelace"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Invalid account ID format", body["error"])
}

func TestPreviewMounted(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/preview/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, conn, preview.ClientMessage{Type: "ping", ID: "1"}))
	var msg preview.ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "pong", msg.Type)
	assert.Equal(t, "1", msg.RequestID)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{Port: port, Store: store.NewMemoryStore(), Logger: zaptest.NewLogger(t)})
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(port) + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestActivityFeed(t *testing.T) {
	rs, err := rules.Load("../rules/testdata/field_service.yaml")
	require.NoError(t, err)
	feed := activity.NewMemoryStore()
	bus := NewEventBus(feed, zaptest.NewLogger(t))
	bus.Start(context.Background())
	t.Cleanup(bus.Stop)

	srv := httptest.NewServer(NewRouter(Config{
		Store:    store.NewMemoryStore(),
		Rules:    rs,
		Logger:   zaptest.NewLogger(t),
		Events:   bus,
		Activity: feed,
	}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/accounts",
		bytes.NewBufferString(`{"account_name":"Acme","status":"Prospect"}`))
	require.NoError(t, err)
	req.Header.Set("X-Actor", "sam")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var acct map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&acct))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var feedBody struct {
		Entries []activity.Entry `json:"entries"`
	}
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/v1/accounts/" + acct["id"].(string) + "/activity")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if json.NewDecoder(resp.Body).Decode(&feedBody) != nil {
			return false
		}
		return len(feedBody.Entries) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "Account created by sam", feedBody.Entries[0].Summary)
	assert.Equal(t, []string{"assignAccountNumber", "notifySales"}, feedBody.Entries[0].Actions)
}
