package validate

import (
	"strings"
	"testing"
)

func TestRoomIDRules(t *testing.T) {
	roomID := Field("room", Required(), MaxLength(8), NoSpaces())

	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{"valid", "room-1", ""},
		{"empty", "", "required"},
		{"blank", "   ", "required"},
		{"too long", "room-12345", "no more than 8"},
		{"spaces", "a b", "spaces"},
		{"multibyte within limit", "ルーム", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := roomID(tt.value)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if !strings.HasPrefix(err.Error(), "room: ") {
				t.Fatalf("expected field label, got %v", err)
			}
		})
	}
}

func TestOneOf(t *testing.T) {
	v := Compose(Required(), OneOf("zap", "zerolog"))

	if err := v("zap"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v("logrus"); err == nil {
		t.Fatal("expected error")
	}
}
