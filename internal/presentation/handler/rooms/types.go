package rooms

type roomResponse struct {
	RoomID  string `json:"roomId" example:"general"`
	Members int    `json:"members" example:"3"` // Live connections currently joined
	Active  bool   `json:"active"`
}

type statsResponse struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	Memberships int `json:"memberships"`
}
