package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/roomsync/internal/infrastructure/json"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/hilthontt/roomsync/internal/infrastructure/validate"
	"github.com/hilthontt/roomsync/internal/infrastructure/ws"
	"github.com/hilthontt/roomsync/internal/presentation/utils"
)

type Handler struct {
	hub              *ws.Hub
	upgrader         websocket.Upgrader
	validParticipant validate.Validator
	logger           logging.Logger
}

// NewHandler accepts upgrades from allowedOrigins; "*" or an empty list
// accepts any origin.
func NewHandler(hub *ws.Hub, allowedOrigins []string, logger logging.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		validParticipant: validate.Field("participantId", validate.MaxLength(128), validate.NoSpaces()),
		logger:           logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ConnectHandler godoc
// @Summary      Open a realtime connection
// @Description  Upgrades to a websocket carrying join-room, leave-room, send-message and message-delivered envelopes. participantId is used for logging and echo suppression only. Without it the participant_id cookie is used, and set when missing.
// @Tags         realtime
// @Param        participantId query string false "Participant ID"
// @Success      101 "Switching protocols"
// @Failure      400 {object} json.ErrorResponse "Invalid participant ID"
// @Router       /ws [get]
func (h *Handler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	participantID := r.URL.Query().Get("participantId")
	if err := h.validParticipant(participantID); err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}

	header := http.Header{}
	if participantID == "" {
		var cookie *http.Cookie
		participantID, cookie = utils.ParticipantFromCookie(r)
		if cookie != nil {
			header.Add("Set-Cookie", cookie.String())
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		// Upgrade has already answered the client
		h.logger.Warn(logging.Realtime, logging.Connect, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.ParticipantID: participantID,
			logging.ErrorMessage:  err.Error(),
		})
		return
	}

	h.hub.Serve(conn, participantID)
}
