package controllers

import (
	"github.com/crewdeck/gameserver/game"
	"github.com/crewdeck/gameserver/logger"
	"github.com/crewdeck/gameserver/logic"
	"github.com/crewdeck/gameserver/network"
	"github.com/crewdeck/gameserver/room"
)

// CreateRoom opens a fresh lobby with the caller as host.
func (c *Coordinator) CreateRoom(sessionID string, req network.CreateRoomRequest) {
	r, p, err := c.directory.CreateRoom(sessionID, req.Name)
	if err != nil {
		c.sendError(sessionID, err)
		return
	}

	if sess, ok := c.sessions.Get(sessionID); ok {
		sess.SetRoomCode(r.Code)
	}
	c.updateRoomGauge()

	logger.Log.Infof("Player %s (%s) created room %s", p.Name, sessionID, r.Code)
	c.sendTo(sessionID, network.MsgTypeRoomCreated, network.RoomCreatedPayload{
		RoomCode: r.Code,
		IsHost:   true,
	})
}

// JoinRoom puts the caller into an existing lobby and announces the
// arrival to everyone already there.
func (c *Coordinator) JoinRoom(sessionID string, req network.JoinRoomRequest) {
	r, p, err := c.directory.JoinRoom(req.Code, sessionID, req.Name)
	if err != nil {
		c.sendError(sessionID, err)
		return
	}

	if sess, ok := c.sessions.Get(sessionID); ok {
		sess.SetRoomCode(r.Code)
	}

	roster := r.Roster(false)
	logger.Log.Infof("Player %s (%s) joined room %s", p.Name, sessionID, r.Code)

	c.sendTo(sessionID, network.MsgTypeRoomJoined, network.RoomJoinedPayload{
		RoomCode: r.Code,
		Players:  roster,
		IsHost:   r.HostID() == sessionID,
	})
	c.broadcastRoomExcept(r.Code, sessionID, network.MsgTypePlayerJoined, network.PlayerJoinedPayload{
		Player:  p.ToSnapshot(false),
		Players: roster,
	})
}

// LeaveRoom is the explicit departure: the caller gets the same
// player-left payload the room does, as its acknowledgement.
func (c *Coordinator) LeaveRoom(sessionID string) {
	c.removeFromRoom(sessionID, true)
}

// Disconnect is the departure path for a dropped connection. It never
// fails and never answers the leaver.
func (c *Coordinator) Disconnect(sessionID string) {
	c.removeFromRoom(sessionID, false)
}

func (c *Coordinator) removeFromRoom(sessionID string, ackLeaver bool) {
	r, result, ok := c.directory.RemovePlayer(sessionID)
	if !ok {
		if ackLeaver {
			c.sendError(sessionID, room.ErrPlayerNotFound)
		}
		return
	}

	if sess, found := c.sessions.Get(sessionID); found {
		sess.SetRoomCode("")
	}
	c.updateRoomGauge()

	logger.Log.Infof("Player %s (%s) left room %s", result.Name, sessionID, r.Code)

	payload := network.PlayerLeftPayload{
		PlayerID: sessionID,
		Players:  r.Roster(false),
		NewHost:  result.NewHostID,
	}
	if !result.Empty {
		c.broadcastRoom(r.Code, network.MsgTypePlayerLeft, payload)
	}
	if ackLeaver {
		c.sendTo(sessionID, network.MsgTypePlayerLeft, payload)
	}

	// A departure can resolve a stalled meeting or decide the game.
	// Once the room is empty it has been torn down: nothing to notify,
	// and an abandonment is not a finished match.
	if result.Empty {
		c.cancelMeetingTimer(r.Code)
		return
	}
	if result.Votes != nil && result.Votes.Complete {
		c.announceVotingComplete(r, result.Votes)
	} else if result.Win != nil {
		c.finishGame(r, result.Win, 0)
	}
}

// ListRooms answers with every joinable lobby.
func (c *Coordinator) ListRooms(sessionID string) {
	c.sendTo(sessionID, network.MsgTypeRoomList, network.RoomListPayload{
		Rooms: c.directory.Listings(),
	})
}

// StartGame begins the match. Each occupant gets a private payload
// carrying their own role and nobody else's.
func (c *Coordinator) StartGame(sessionID string) {
	r, ok := c.directory.RoomOf(sessionID)
	if !ok {
		c.sendError(sessionID, game.ErrRoomNotFound)
		return
	}

	res, err := r.StartGame(sessionID)
	if err != nil {
		c.sendError(sessionID, err)
		return
	}

	if c.metrics != nil {
		c.metrics.IncGamesStarted()
	}
	logger.Log.Infof("Game started in room %s with %d impostors", r.Code, res.ImpostorCount)

	roster := r.Roster(false)
	tasks := logic.TaskLocations()
	for _, id := range r.OccupantIDs() {
		role, found := r.RoleOf(id)
		if !found {
			continue
		}
		c.sendTo(id, network.MsgTypeGameStarted, network.GameStartedPayload{
			Role:       role,
			Players:    roster,
			Phase:      r.Phase(),
			Tasks:      tasks,
			TotalTasks: c.cfg.TasksPerCrewmate,
		})
	}
}

// GetState answers with a full snapshot for reconnecting clients. Only
// the caller's own role is included.
func (c *Coordinator) GetState(sessionID string) {
	r, ok := c.directory.RoomOf(sessionID)
	if !ok {
		c.sendError(sessionID, game.ErrRoomNotFound)
		return
	}
	p, found := r.Player(sessionID)
	if !found {
		c.sendError(sessionID, room.ErrPlayerNotFound)
		return
	}

	c.sendTo(sessionID, network.MsgTypeStateSnapshot, network.StateSnapshotPayload{
		Room:   r.ToSnapshot(),
		Player: p.ToSnapshot(true),
		Tasks:  logic.TaskLocations(),
	})
}

func (c *Coordinator) updateRoomGauge() {
	if c.metrics == nil {
		return
	}
	c.metrics.SetActiveRooms(c.directory.Stats().Rooms)
}
