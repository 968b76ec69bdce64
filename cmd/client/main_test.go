package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/api/ws"},
		{"https://chat.example.com/", "wss://chat.example.com/api/ws"},
		{"http://proxy.local/roomsync", "ws://proxy.local/roomsync/api/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := websocketURL(tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := websocketURL("ftp://example.com")
	assert.Error(t, err)
}
