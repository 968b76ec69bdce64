package utils

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const CookieParticipantID = "participant_id"

const participantCookieTTL = 24 * 30 * time.Hour

// ParticipantFromCookie returns the participant id remembered for this
// browser. When the request carries none, or an unreadable one, a fresh id
// is minted and returned with the cookie that stores it; otherwise the
// cookie is nil.
func ParticipantFromCookie(r *http.Request) (string, *http.Cookie) {
	if cookie, err := r.Cookie(CookieParticipantID); err == nil {
		if decoded, err := base64.RawURLEncoding.DecodeString(cookie.Value); err == nil && len(decoded) > 0 {
			return string(decoded), nil
		}
	}

	id := uuid.NewString()
	return id, participantCookie(id)
}

func participantCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieParticipantID,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(id)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(participantCookieTTL),
	}
}
