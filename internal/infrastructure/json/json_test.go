package json

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string `json:"name" validate:"required,max=5"`
	Comment string `json:"comment"`
}

func request(body string) (*httptest.ResponseRecorder, *http.Request) {
	return httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestRead(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"name":"ana"}`},
		{name: "empty", body: ``, wantErr: "request body is empty"},
		{name: "unknown field", body: `{"nom":"ana"}`, wantErr: "unknown field"},
		{name: "two objects", body: `{"name":"a"}{"name":"b"}`, wantErr: "single JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, r := request(tt.body)
			var dst sample
			err := Read(w, r, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadValid_TranslatesErrors(t *testing.T) {
	w, r := request(`{"comment":"x"}`)
	var dst sample
	err := ReadValid(w, r, &dst)
	require.Error(t, err)
	assert.Equal(t, "name is required", TranslateError(err))

	w, r = request(`{"name":"too long"}`)
	err = ReadValid(w, r, &dst)
	require.Error(t, err)
	assert.Equal(t, "name must be at most 5", TranslateError(err))
}

func TestWriteRateLimitError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteRateLimitError(w, 3)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too Many Requests","message":"Too many requests. Please try again later."}`, w.Body.String())
}
