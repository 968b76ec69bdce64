package rooms

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/roomsync/internal/infrastructure/json"
	"github.com/hilthontt/roomsync/internal/infrastructure/ws"
)

type Handler struct {
	registry ws.RoomRegistry
}

func NewHandler(registry ws.RoomRegistry) *Handler {
	return &Handler{registry: registry}
}

// GetRoomHandler godoc
// @Summary      Get live room state
// @Description  Returns how many connections are currently joined to a room. Rooms exist only while they have members.
// @Tags         rooms
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Success      200 {object} roomResponse "Room state"
// @Router       /rooms/{roomId} [get]
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	members := h.registry.MemberCount(roomID)

	json.Write(w, http.StatusOK, roomResponse{
		RoomID:  roomID,
		Members: members,
		Active:  members > 0,
	})
}

// GetStatsHandler godoc
// @Summary      Registry totals
// @Tags         rooms
// @Produce      json
// @Success      200 {object} statsResponse "Totals across all rooms"
// @Router       /rooms [get]
func (h *Handler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := h.registry.Stats()
	json.Write(w, http.StatusOK, statsResponse{
		Rooms:       stats.Rooms,
		Connections: stats.Connections,
		Memberships: stats.Memberships,
	})
}
