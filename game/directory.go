// Package game holds the process-wide directory of rooms: code to room,
// player id to room, creation and teardown. The directory's two maps
// have their own lock, held only for lookups and membership changes and
// never across a room operation.
package game

import (
	"errors"
	"sync"
	"time"

	"github.com/crewdeck/gameserver/logic"
	"github.com/crewdeck/gameserver/player"
	"github.com/crewdeck/gameserver/room"
	"github.com/crewdeck/gameserver/state"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrAlreadyInRoom = errors.New("player is already in a room")
	ErrInvalidName   = errors.New("invalid player name")
	ErrInvalidCode   = errors.New("invalid room code")
)

type Directory struct {
	mu        sync.RWMutex
	rooms     map[string]*room.Room
	occupancy map[string]string // player id -> room code
	settings  room.Settings
	ttl       time.Duration
}

func NewDirectory(settings room.Settings, inactiveTTL time.Duration) *Directory {
	return &Directory{
		rooms:     make(map[string]*room.Room),
		occupancy: make(map[string]string),
		settings:  settings,
		ttl:       inactiveTTL,
	}
}

// CreateRoom makes a new room with the caller as host and sole occupant.
func (d *Directory) CreateRoom(hostID, hostName string) (*room.Room, *player.Player, error) {
	name := logic.SanitizeName(hostName)
	if !logic.ValidName(name) {
		return nil, nil, ErrInvalidName
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.occupancy[hostID]; taken {
		return nil, nil, ErrAlreadyInRoom
	}

	code := logic.GenerateRoomCode()
	for d.rooms[code] != nil {
		code = logic.GenerateRoomCode()
	}

	r := room.New(code, hostID, d.settings)
	host := player.New(hostID, name, code)
	if err := r.AddPlayer(host); err != nil {
		return nil, nil, err
	}

	d.rooms[code] = r
	d.occupancy[hostID] = code
	return r, host, nil
}

// JoinRoom adds a player to an existing lobby.
func (d *Directory) JoinRoom(code, id, rawName string) (*room.Room, *player.Player, error) {
	name := logic.SanitizeName(rawName)
	if !logic.ValidName(name) {
		return nil, nil, ErrInvalidName
	}
	code, ok := logic.NormalizeRoomCode(code)
	if !ok {
		return nil, nil, ErrInvalidCode
	}

	d.mu.RLock()
	r := d.rooms[code]
	_, taken := d.occupancy[id]
	d.mu.RUnlock()

	if r == nil {
		return nil, nil, ErrRoomNotFound
	}
	if taken {
		return nil, nil, ErrAlreadyInRoom
	}

	p := player.New(id, name, code)
	if err := r.AddPlayer(p); err != nil {
		return nil, nil, err
	}

	d.mu.Lock()
	if d.rooms[code] != r {
		// Reaped between the lookup and the join; back out.
		d.mu.Unlock()
		r.RemovePlayer(id)
		return nil, nil, ErrRoomNotFound
	}
	d.occupancy[id] = code
	d.mu.Unlock()

	return r, p, nil
}

// Room looks a room up by code.
func (d *Directory) Room(code string) (*room.Room, bool) {
	code, ok := logic.NormalizeRoomCode(code)
	if !ok {
		return nil, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, exists := d.rooms[code]
	return r, exists
}

// Occupants returns the occupant ids of a room, or nil when the code
// is unknown. Used by the broadcaster for fan-out.
func (d *Directory) Occupants(code string) []string {
	r, ok := d.Room(code)
	if !ok {
		return nil
	}
	return r.OccupantIDs()
}

// RoomOf returns the room a player currently occupies.
func (d *Directory) RoomOf(id string) (*room.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	code, ok := d.occupancy[id]
	if !ok {
		return nil, false
	}
	r, exists := d.rooms[code]
	return r, exists
}

// RemovePlayer takes a player out of whatever room it occupies and tears
// the room down if it became empty. Returns the room the player was in
// and the room-level leave result. Never an error: a disconnect must
// always succeed.
func (d *Directory) RemovePlayer(id string) (*room.Room, room.LeaveResult, bool) {
	d.mu.Lock()
	code, ok := d.occupancy[id]
	if !ok {
		d.mu.Unlock()
		return nil, room.LeaveResult{}, false
	}
	delete(d.occupancy, id)
	r := d.rooms[code]
	d.mu.Unlock()

	if r == nil {
		return nil, room.LeaveResult{}, false
	}

	result := r.RemovePlayer(id)
	if result.Empty {
		d.mu.Lock()
		if d.rooms[code] == r && r.IsEmpty() {
			delete(d.rooms, code)
		}
		d.mu.Unlock()
	}
	return r, result, true
}

// Listings returns the lobby browser view of all joinable rooms.
func (d *Directory) Listings() []room.Listing {
	d.mu.RLock()
	rooms := make([]*room.Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		rooms = append(rooms, r)
	}
	d.mu.RUnlock()

	listings := make([]room.Listing, 0, len(rooms))
	for _, r := range rooms {
		if l, ok := r.ToListing(); ok {
			listings = append(listings, l)
		}
	}
	return listings
}

// Stats is the admin/health view of the directory.
type Stats struct {
	Rooms       int `json:"totalRooms"`
	Players     int `json:"totalPlayers"`
	ActiveGames int `json:"activeGames"`
}

func (d *Directory) Stats() Stats {
	d.mu.RLock()
	rooms := make([]*room.Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		rooms = append(rooms, r)
	}
	players := len(d.occupancy)
	d.mu.RUnlock()

	stats := Stats{Rooms: len(rooms), Players: players}
	for _, r := range rooms {
		if r.Phase() != state.PhaseLobby {
			stats.ActiveGames++
		}
	}
	return stats
}

// Reaped describes one torn-down inactive room.
type Reaped struct {
	Code      string
	Occupants []string
}

// ReapInactive tears down rooms idle longer than the inactivity window
// and evicts their occupants. Advisory cleanup, run periodically.
func (d *Directory) ReapInactive(now time.Time) []Reaped {
	d.mu.RLock()
	expired := make([]*room.Room, 0)
	for _, r := range d.rooms {
		if now.Sub(r.LastActivity()) > d.ttl {
			expired = append(expired, r)
		}
	}
	d.mu.RUnlock()

	reaped := make([]Reaped, 0, len(expired))
	for _, r := range expired {
		occupants := r.OccupantIDs()

		d.mu.Lock()
		if d.rooms[r.Code] != r {
			d.mu.Unlock()
			continue
		}
		delete(d.rooms, r.Code)
		for _, id := range occupants {
			if d.occupancy[id] == r.Code {
				delete(d.occupancy, id)
			}
		}
		d.mu.Unlock()

		reaped = append(reaped, Reaped{Code: r.Code, Occupants: occupants})
	}
	return reaped
}
