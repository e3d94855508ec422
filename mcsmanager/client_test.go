package mcsmanager

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *DefaultClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(Params{
		BaseURL:    server.URL + "/",
		APIKey:     "secret",
		UserAgent:  "test/1.0",
		HTTPClient: server.Client(),
	})
}

var survival = InstanceRef{Name: "survival", UUID: "inst-1", DaemonID: "daemon-1"}

func TestOverview(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/overview", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.Equal(t, "test/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{
  "status": 200,
  "data": {
    "version": "10.2.1",
    "remote": [
      {"uuid": "daemon-1", "ip": "10.0.0.2", "port": 24444, "remarks": "EU node",
       "available": true, "version": "4.1.0", "instance": {"running": 2, "total": 5}},
      {"uuid": "daemon-2", "ip": "10.0.0.3", "port": 24444, "available": false,
       "instance": {"running": 0, "total": 1}}
    ]
  },
  "time": 1738368000000
}`))
	})

	overview, err := client.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.2.1", overview.Version)
	require.Len(t, overview.Daemons, 2)
	assert.Equal(t, Daemon{
		UUID: "daemon-1", IP: "10.0.0.2", Port: 24444, Remarks: "EU node",
		Available: true, Version: "4.1.0", RunningInstances: 2, TotalInstances: 5,
	}, overview.Daemons[0])
	assert.False(t, overview.Daemons[1].Available)
}

func TestInstance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/instance", r.URL.Path)
		assert.Equal(t, "inst-1", r.URL.Query().Get("uuid"))
		assert.Equal(t, "daemon-1", r.URL.Query().Get("daemonId"))
		_, _ = w.Write([]byte(`{"status":200,"data":{
  "instanceUuid":"inst-1","started":7,"status":3,
  "config":{"nickname":"Survival 1.21","endTime":1767225600000},
  "info":{"currentPlayers":4,"maxPlayers":20,"version":"1.21.4"}}}`))
	})

	status, err := client.Instance(context.Background(), survival)
	require.NoError(t, err)
	assert.Equal(t, "inst-1", status.UUID)
	assert.Equal(t, "Survival 1.21", status.Nickname)
	assert.Equal(t, StateRunning, status.State)
	assert.Equal(t, "4/20", status.Players())
	assert.Equal(t, "1.21.4", status.GameVersion)
	assert.Equal(t, 7, status.Started)
	assert.Equal(t, time.UnixMilli(1767225600000), status.EndTime)
}

func TestInstanceWithoutPingData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":200,"data":{"instanceUuid":"inst-1","status":0,"config":{}}}`))
	})

	status, err := client.Instance(context.Background(), survival)
	require.NoError(t, err)
	assert.Equal(t, "survival", status.Nickname)
	assert.Equal(t, StateStopped, status.State)
	assert.Equal(t, "-", status.Players())
	assert.True(t, status.EndTime.IsZero())
}

func TestDoActions(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"status":200,"data":{"instanceUuid":"inst-1"}}`))
	})

	for _, action := range []Action{ActionStart, ActionStop, ActionRestart, ActionKill} {
		require.NoError(t, client.Do(context.Background(), survival, action))
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"/api/protected_instance/open",
		"/api/protected_instance/stop",
		"/api/protected_instance/restart",
		"/api/protected_instance/kill",
	}, paths)

	err := client.Do(context.Background(), survival, Action("explode"))
	require.Error(t, err)
	assert.Len(t, paths, 4)
}

func TestSendCommand(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/protected_instance/command", r.URL.Path)
		assert.Equal(t, "say hello world", r.URL.Query().Get("command"))
		_, _ = w.Write([]byte(`{"status":200,"data":true}`))
	})

	require.NoError(t, client.SendCommand(context.Background(), survival, "say hello world"))
	require.Error(t, client.SendCommand(context.Background(), survival, "  "))
}

func TestEnvelopeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":500,"data":"Instance is already running"}`))
	})

	err := client.Do(context.Background(), survival, ActionStart)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.Status)
	assert.Equal(t, "Instance is already running", apiErr.Message)
}

func TestHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status":403,"data":"Permission denied"}`))
	})

	_, err := client.Overview(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Contains(t, err.Error(), "Permission denied")
}

func TestErrorMessageTruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", maxErrorText-1) + "é and more"

	msg := errorMessage([]byte(body))
	assert.True(t, utf8.ValidString(msg))
	assert.Equal(t, strings.Repeat("a", maxErrorText-1), msg)

	assert.Equal(t, "plain failure", errorMessage([]byte("  plain failure \n")))
}

func TestInvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := client.Overview(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestNotConfigured(t *testing.T) {
	client := New(Params{})
	_, err := client.Overview(context.Background())
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestConfigLookup(t *testing.T) {
	cfg := Config{Instances: []InstanceRef{survival, {Name: "Creative", UUID: "inst-2", DaemonID: "daemon-1"}}}

	ref, err := cfg.Lookup(" CREATIVE ")
	require.NoError(t, err)
	assert.Equal(t, "inst-2", ref.UUID)

	_, err = cfg.Lookup("skyblock")
	assert.ErrorIs(t, err, ErrUnknownInstance)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{BaseURL: "https://panel.example.com/"}
	cfg.Defaults()
	assert.Equal(t, "https://panel.example.com", cfg.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.NotNil(t, cfg.HTTPClient)
	assert.True(t, cfg.Enabled())
}

func TestInstanceStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "busy", StateBusy.String())
	assert.Equal(t, "unknown(9)", InstanceState(9).String())
}
