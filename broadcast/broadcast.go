// Package broadcast delivers framed messages to one connection, a whole
// room, or a room minus the sender. It holds no game state: room
// membership comes from the directory, live connections from the
// session manager.
package broadcast

import (
	"errors"

	"github.com/crewdeck/gameserver/session"
)

var ErrRoomNotFound = errors.New("room not found")

// OccupantSource resolves a room code to its occupant ids. Implemented
// by game.Directory; an interface here keeps broadcast free of a
// dependency on the game package.
type OccupantSource interface {
	Occupants(code string) []string
}

type Broadcaster interface {
	SendTo(sessionID string, msgID uint16, data []byte) error
	BroadcastToRoom(code string, msgID uint16, data []byte) error
	BroadcastToRoomExcept(code, exceptID string, msgID uint16, data []byte) error
}

type RoomBroadcaster struct {
	occupants OccupantSource
	sessions  *session.Manager
}

func NewRoomBroadcaster(occupants OccupantSource, sessions *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		occupants: occupants,
		sessions:  sessions,
	}
}

// SendTo delivers to a single connection. Unknown sessions are ignored:
// the client may have disconnected a moment ago.
func (b *RoomBroadcaster) SendTo(sessionID string, msgID uint16, data []byte) error {
	sess, exists := b.sessions.Get(sessionID)
	if !exists {
		return nil
	}
	return sess.Send(msgID, data)
}

func (b *RoomBroadcaster) BroadcastToRoom(code string, msgID uint16, data []byte) error {
	return b.BroadcastToRoomExcept(code, "", msgID, data)
}

// BroadcastToRoomExcept fans out to every occupant except exceptID. A
// send failure to one occupant never blocks delivery to the rest; the
// read loop notices the dead connection soon enough.
func (b *RoomBroadcaster) BroadcastToRoomExcept(code, exceptID string, msgID uint16, data []byte) error {
	ids := b.occupants.Occupants(code)
	if ids == nil {
		return ErrRoomNotFound
	}

	for _, id := range ids {
		if id == exceptID {
			continue
		}
		sess, exists := b.sessions.Get(id)
		if !exists {
			continue
		}
		if err := sess.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}
