package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/roomsync/internal/infrastructure/configs"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/hilthontt/roomsync/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/roomsync/internal/infrastructure/ws"
	"github.com/hilthontt/roomsync/internal/persistence/repository"
	"github.com/hilthontt/roomsync/internal/presentation/handler/health"
	"github.com/hilthontt/roomsync/internal/presentation/handler/messages"
	"github.com/hilthontt/roomsync/internal/presentation/handler/realtime"
	"github.com/hilthontt/roomsync/internal/presentation/handler/rooms"
	"github.com/hilthontt/roomsync/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	hub *ws.Hub
}

func newTestServer(t *testing.T, limiter ratelimiter.Limiter) *testServer {
	t.Helper()

	cfg, err := configs.Load("")
	require.NoError(t, err)

	logger := logging.NewNopLogger()
	hub := ws.NewHub(ws.HubConfig{}, ws.HubDeps{Logger: logger})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	if limiter == nil {
		limiter = ratelimiter.New(ratelimiter.Options{MaxRatePerSecond: 1000, MaxBurst: 1000})
	}

	app := NewApplication(*cfg,
		health.NewHandler(nil),
		messages.NewHandler(repository.NewCollectionMemoryStore(100), logger),
		rooms.NewHandler(hub.Registry()),
		realtime.NewHandler(hub, []string{"*"}, logger),
		logger,
		limiter,
	)

	srv := httptest.NewServer(app.Mount())
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
		srv.Close()
	})
	return &testServer{Server: srv, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestHealthRoutes(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/api/health", "/api/ready", "/healthz", "/ready", "/live"} {
		resp, _ := srv.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestMessages_AppendThenPage(t *testing.T) {
	srv := newTestServer(t, nil)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 16; i++ {
		body := `{"senderId":"u1","content":"m","createdAt":"` + base.Add(time.Duration(i)*time.Second).Format(time.RFC3339) + `"}`
		resp, raw := srv.do(t, http.MethodPost, "/api/chats/c1/messages", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	}

	resp, raw := srv.do(t, http.MethodGet, "/api/chats/c1/messages?limit=15", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page protocol.Page
	require.NoError(t, json.Unmarshal(raw, &page))
	require.Len(t, page.Messages, 15)
	assert.True(t, page.HasMore)
	assert.True(t, page.Messages[0].CreatedAt.After(page.Messages[14].CreatedAt))

	oldest := page.Messages[14]
	resp, raw = srv.do(t, http.MethodGet,
		"/api/chats/c1/messages?limit=15&before="+oldest.CreatedAt.Format(time.RFC3339Nano), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &page))
	assert.Len(t, page.Messages, 1)
	assert.False(t, page.HasMore)

	resp, raw = srv.do(t, http.MethodGet, "/api/chats/nobody/messages", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"messages":[],"hasMore":false}`, string(raw))
}

func TestMessages_ZeroLimitUsesDefaultPage(t *testing.T) {
	srv := newTestServer(t, nil)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 16; i++ {
		body := `{"senderId":"u1","content":"m","createdAt":"` + base.Add(time.Duration(i)*time.Second).Format(time.RFC3339) + `"}`
		resp, raw := srv.do(t, http.MethodPost, "/api/chats/c1/messages", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	}

	resp, raw := srv.do(t, http.MethodGet, "/api/chats/c1/messages?limit=0", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var page protocol.Page
	require.NoError(t, json.Unmarshal(raw, &page))
	assert.Len(t, page.Messages, protocol.DefaultPageSize)
	assert.True(t, page.HasMore)
}

func TestMessages_IdempotentAppend(t *testing.T) {
	srv := newTestServer(t, nil)

	body := `{"id":"m1","senderId":"u1","content":"hello"}`
	resp, first := srv.do(t, http.MethodPost, "/api/chats/c1/messages", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, second := srv.do(t, http.MethodPost, "/api/chats/c1/messages", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, string(first), string(second))

	_, raw := srv.do(t, http.MethodGet, "/api/chats/c1/messages", "")
	var page protocol.Page
	require.NoError(t, json.Unmarshal(raw, &page))
	assert.Len(t, page.Messages, 1)
}

func TestMessages_BadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name, method, path, body, message string
	}{
		{"missing sender", http.MethodPost, "/api/chats/c1/messages", `{"content":"hi"}`, "senderId is required"},
		{"blank content", http.MethodPost, "/api/chats/c1/messages", `{"senderId":"u1","content":"   "}`, "message content is empty"},
		{"chat mismatch", http.MethodPost, "/api/chats/c1/messages", `{"chatId":"c2","senderId":"u1","content":"hi"}`, "chatId does not match the path"},
		{"unknown field", http.MethodPost, "/api/chats/c1/messages", `{"sender":"u1"}`, ""},
		{"bad limit", http.MethodGet, "/api/chats/c1/messages?limit=abc", "", "limit must be a non-negative number"},
		{"negative limit", http.MethodGet, "/api/chats/c1/messages?limit=-1", "", "limit must be a non-negative number"},
		{"bad before", http.MethodGet, "/api/chats/c1/messages?before=yesterday", "", "before must be an RFC3339 timestamp"},
		{"orphan beforeId", http.MethodGet, "/api/chats/c1/messages?beforeId=m1", "", "beforeId requires before"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := srv.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body struct {
				Error   string `json:"error"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, "Bad Request", body.Error)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	srv := newTestServer(t, ratelimiter.New(ratelimiter.Options{MaxRatePerSecond: 1, MaxBurst: 1}))

	resp, _ := srv.do(t, http.MethodGet, "/api/chats/c1/messages", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))

	resp, _ = srv.do(t, http.MethodGet, "/api/chats/c1/messages", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// health checks are never limited
	resp, _ = srv.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRealtimeAndRoomStats(t *testing.T) {
	srv := newTestServer(t, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?participantId=p1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(protocol.NewJoinRequest("1", "general")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ack protocol.Envelope
	require.NoError(t, conn.ReadJSON(&ack))
	require.True(t, ack.Ack.OK)

	resp, raw := srv.do(t, http.MethodGet, "/api/rooms/general", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"roomId":"general","members":1,"active":true}`, string(raw))

	resp, raw = srv.do(t, http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"rooms":1,"connections":1,"memberships":1}`, string(raw))

	resp, _ = srv.do(t, http.MethodGet, "/api/ws?participantId=has%20space", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRealtimeIssuesParticipantCookie(t *testing.T) {
	srv := newTestServer(t, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "participant_id" {
			found = true
			assert.NotEmpty(t, c.Value)
		}
	}
	assert.True(t, found, "handshake should set the participant cookie")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.do(t, http.MethodGet, "/api/chats/c1/messages", "")

	resp, raw := srv.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `roomsync_http_requests_total{method="GET",path="/api/chats/{chatId}/messages`)

	resp, _ = srv.do(t, http.MethodGet, "/debug/vars", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
