package ws

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hilthontt/roomsync/internal/infrastructure/metrics"
)

// RoomRegistry tracks which connections are members of which rooms.
//
// A room exists only while it has members. Every connection also has a
// reverse entry listing its rooms, so Purge touches only the rooms the
// connection joined.
type RoomRegistry interface {
	// Join adds conn to room and returns the member count afterwards.
	// Joining twice is a no-op.
	Join(room, conn string) int
	// Leave removes conn from room and reports whether it was a member.
	Leave(room, conn string) bool
	// Purge removes conn from every room and returns those rooms.
	Purge(conn string) []string
	MembersOf(room string) []string
	IsMember(room, conn string) bool
	RoomsOf(conn string) []string
	MemberCount(room string) int
	Stats() RegistryStats
}

type RegistryStats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	Memberships int `json:"memberships"`
}

type memoryRegistry struct {
	mu          sync.RWMutex
	rooms       map[string]mapset.Set[string] // room -> connections
	memberships map[string]mapset.Set[string] // connection -> rooms
	memberCount int
}

func NewRoomRegistry() RoomRegistry {
	return &memoryRegistry{
		rooms:       make(map[string]mapset.Set[string]),
		memberships: make(map[string]mapset.Set[string]),
	}
}

func (r *memoryRegistry) Join(room, conn string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = mapset.NewThreadUnsafeSet[string]()
		r.rooms[room] = members
		metrics.RoomsActive.Inc()
	}

	if members.Add(conn) {
		r.memberCount++
	}

	joined, ok := r.memberships[conn]
	if !ok {
		joined = mapset.NewThreadUnsafeSet[string]()
		r.memberships[conn] = joined
	}
	joined.Add(room)

	return members.Cardinality()
}

func (r *memoryRegistry) Leave(room, conn string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(room, conn)
}

func (r *memoryRegistry) removeLocked(room, conn string) bool {
	members, ok := r.rooms[room]
	if !ok || !members.Contains(conn) {
		return false
	}

	members.Remove(conn)
	r.memberCount--
	if members.Cardinality() == 0 {
		delete(r.rooms, room)
		metrics.RoomsActive.Dec()
	}

	if joined, ok := r.memberships[conn]; ok {
		joined.Remove(room)
		if joined.Cardinality() == 0 {
			delete(r.memberships, conn)
		}
	}

	return true
}

func (r *memoryRegistry) Purge(conn string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.memberships[conn]
	if !ok {
		return nil
	}

	rooms := joined.ToSlice()
	for _, room := range rooms {
		r.removeLocked(room, conn)
	}
	delete(r.memberships, conn)

	return rooms
}

func (r *memoryRegistry) MembersOf(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil
	}
	return members.ToSlice()
}

func (r *memoryRegistry) IsMember(room, conn string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	return ok && members.Contains(conn)
}

func (r *memoryRegistry) RoomsOf(conn string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined, ok := r.memberships[conn]
	if !ok {
		return nil
	}
	return joined.ToSlice()
}

func (r *memoryRegistry) MemberCount(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return 0
	}
	return members.Cardinality()
}

func (r *memoryRegistry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RegistryStats{
		Rooms:       len(r.rooms),
		Connections: len(r.memberships),
		Memberships: r.memberCount,
	}
}
