package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	systemhttp "github.com/devmob/onboard/internal/adapter/inbound/http/system"
	"github.com/devmob/onboard/internal/infra/config"
	"github.com/devmob/onboard/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Address:     ":0",
			EnableDebug: true,
		},
		Discord: config.DiscordConfig{
			Token:             "test-token",
			EntryChannelID:    model.Snowflake(600),
			ConnectAttempts:   1,
			ReconnectAttempts: 1,
		},
		Interview: config.InterviewConfig{
			AnswerTimeout: time.Minute,
			PollInterval:  time.Second,
			HistoryLimit:  10,
		},
		Invite:     config.InviteConfig{FallbackEnabled: true},
		Membership: config.MembershipConfig{ScanLimit: 50, NameMatch: "exact"},
		AI:         config.AIConfig{BaseURL: "http://127.0.0.1:1", Model: "test"},
		Storage: config.StorageConfig{
			Driver:      "json",
			DataDir:     t.TempDir(),
			StoriesFile: "stories.json",
			HistoryFile: "history.json",
		},
		RateLimit: config.RateLimitConfig{Enabled: true, JoinLimit: 3, JoinWindow: time.Minute},
		Log:       config.LogConfig{Level: "error", Format: "json"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Stop)
	return a
}

func get(a *App, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	a.Router().ServeHTTP(w, req)
	return w
}

func TestNew_MissingToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Discord.Token = ""

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNew_UnknownStorageDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "mongo"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestRoutes_Health(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	w := get(a, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, false, body["bot_connected"])
	assert.Equal(t, "Unknown", body["bot_name"])

	cfgFlags, ok := body["configuration"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, cfgFlags["discord_token"])
	assert.Equal(t, true, cfgFlags["city_gates"])
	assert.Equal(t, false, cfgFlags["openai_key"])
}

func TestRoutes_ReadyWhileDisconnected(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	w := get(a, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body systemhttp.ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	assert.Equal(t, systemhttp.StatusDisconnected, body.Checks["discord"])
}

func TestRoutes_Metrics(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	get(a, "/health")

	w := get(a, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "onboard_http_requests_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRoutes_DebugToggle(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	assert.Equal(t, http.StatusOK, get(a, "/debug/guilds").Code)

	cfg = testConfig(t)
	cfg.Server.EnableDebug = false
	a = newTestApp(t, cfg)
	assert.Equal(t, http.StatusNotFound, get(a, "/debug/guilds").Code)
}

func TestRoutes_SwaggerFollowsDebugToggle(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	w := get(a, "/swagger/doc.json")
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "Onboard Bot API", doc.Info.Title)
	for _, path := range []string{"/health", "/ready", "/debug/guilds", "/debug/guilds/{id}/invites"} {
		assert.Contains(t, doc.Paths, path)
	}

	cfg := testConfig(t)
	cfg.Server.EnableDebug = false
	a = newTestApp(t, cfg)
	assert.Equal(t, http.StatusNotFound, get(a, "/swagger/doc.json").Code)
}

func TestProvideStorage_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "onboard.db")

	storage, cleanup, err := ProvideStorage(cfg)
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, storage.Ping)
	assert.NoError(t, storage.Ping(t.Context()))
}

func TestProvideRateLimiter_WithoutRedis(t *testing.T) {
	assert.Nil(t, ProvideRateLimiter(nil))
}
