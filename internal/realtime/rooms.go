package realtime

import (
	"sort"
	"strings"
	"sync"
)

// Rooms tracks which rooms each connection has joined, indexed both ways so
// that a room can be resolved to its connections without a scan.
type Rooms struct {
	mu     sync.RWMutex
	byConn map[string]map[string]struct{}
	byRoom map[string]map[string]struct{}
}

// NewRooms creates an empty membership table.
func NewRooms() *Rooms {
	return &Rooms{
		byConn: make(map[string]map[string]struct{}),
		byRoom: make(map[string]map[string]struct{}),
	}
}

// Join adds connID to roomKey. Joining twice is a no-op.
func (r *Rooms) Join(connID, roomKey string) error {
	if strings.TrimSpace(roomKey) == "" {
		return ErrEmptyRoom
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byConn[connID] == nil {
		r.byConn[connID] = make(map[string]struct{})
	}
	r.byConn[connID][roomKey] = struct{}{}

	if r.byRoom[roomKey] == nil {
		r.byRoom[roomKey] = make(map[string]struct{})
	}
	r.byRoom[roomKey][connID] = struct{}{}
	return nil
}

// Members returns the connections in roomKey, sorted.
func (r *Rooms) Members(roomKey string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.byRoom[roomKey])
}

// RoomsOf returns the rooms connID has joined, sorted.
func (r *Rooms) RoomsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.byConn[connID])
}

// Leave removes connID from roomKey. Leaving a room not joined is a no-op.
func (r *Rooms) Leave(connID, roomKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members := r.byRoom[roomKey]; members != nil {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.byRoom, roomKey)
		}
	}
	if joined := r.byConn[connID]; joined != nil {
		delete(joined, roomKey)
		if len(joined) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// Drop forgets every membership of connID. Rooms left empty are removed.
func (r *Rooms) Drop(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomKey := range r.byConn[connID] {
		members := r.byRoom[roomKey]
		delete(members, connID)
		if len(members) == 0 {
			delete(r.byRoom, roomKey)
		}
	}
	delete(r.byConn, connID)
}

// Count returns the number of non-empty rooms.
func (r *Rooms) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRoom)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
