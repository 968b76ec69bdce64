package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) healthResponse {
	t.Helper()
	var resp healthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestGetHealth(t *testing.T) {
	h := NewHandler(nil)

	w := httptest.NewRecorder()
	h.GetHealth(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w).Status)

	h.SetHealthy(false)
	w = httptest.NewRecorder()
	h.GetHealth(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decode(t, w).Status)
}

func TestGetReady(t *testing.T) {
	redisUp := true
	h := NewHandler(map[string]Check{
		"redis": func(context.Context) error {
			if !redisUp {
				return errors.New("dial tcp: connection refused")
			}
			return nil
		},
		"store": func(context.Context) error { return nil },
	})

	w := httptest.NewRecorder()
	h.GetReady(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"redis": "ok", "store": "ok"}, decode(t, w).Checks)

	redisUp = false
	w = httptest.NewRecorder()
	h.GetReady(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "dial tcp: connection refused", resp.Checks["redis"])
}
