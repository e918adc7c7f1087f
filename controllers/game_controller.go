package controllers

import (
	"github.com/crewdeck/gameserver/game"
	"github.com/crewdeck/gameserver/logger"
	"github.com/crewdeck/gameserver/logic"
	"github.com/crewdeck/gameserver/network"
	"github.com/crewdeck/gameserver/room"
)

// in-game operations: each one resolves the caller's room first and
// answers errors privately.

func (c *Coordinator) roomOf(sessionID string) (*room.Room, bool) {
	r, ok := c.directory.RoomOf(sessionID)
	if !ok {
		c.sendError(sessionID, game.ErrRoomNotFound)
	}
	return r, ok
}

// Move repositions the caller and fans the new position out to the rest
// of the room. The mover gets no echo.
func (c *Coordinator) Move(sessionID string, req network.MoveRequest) {
	r, ok := c.roomOf(sessionID)
	if !ok {
		return
	}

	pos, err := r.Move(sessionID, logic.Position{X: req.X, Y: req.Y})
	if err != nil {
		c.sendError(sessionID, err)
		return
	}

	c.broadcastRoomExcept(r.Code, sessionID, network.MsgTypePlayerMoved, network.PlayerMovedPayload{
		PlayerID: sessionID,
		Position: pos,
	})
}

// Kill eliminates the target if the caller is an alive impostor within
// kill range.
func (c *Coordinator) Kill(sessionID string, req network.KillRequest) {
	r, ok := c.roomOf(sessionID)
	if !ok {
		return
	}

	res, err := r.Eliminate(sessionID, req.TargetID)
	if err != nil {
		c.sendError(sessionID, err)
		return
	}

	logger.Log.Infof("Player %s killed %s in room %s", sessionID, res.TargetID, r.Code)
	c.broadcastRoom(r.Code, network.MsgTypePlayerKilled, network.PlayerKilledPayload{
		KilledPlayer: res.TargetID,
		Body:         res.Body,
	})
	if res.Win != nil {
		c.finishGame(r, res.Win, 0)
	}
}

// CompleteTask credits one task to the caller. The new count goes back
// to the caller alone; task progress is private.
func (c *Coordinator) CompleteTask(sessionID string) {
	r, ok := c.roomOf(sessionID)
	if !ok {
		return
	}

	res, err := r.CompleteTask(sessionID)
	if err != nil {
		c.sendError(sessionID, err)
		return
	}

	c.sendTo(sessionID, network.MsgTypeTaskCompleted, network.TaskCompletedPayload{
		TasksCompleted: res.TasksCompleted,
	})
	if res.Win != nil {
		c.finishGame(r, res.Win, 0)
	}
}

// ReportBody calls a meeting over a logged corpse. The request carries
// the client's claimed coordinates but proximity is judged against the
// server-side position.
func (c *Coordinator) ReportBody(sessionID string, req network.ReportBodyRequest) {
	c.callMeeting(sessionID, room.MeetingReasonBody)
}

// CallMeeting calls an emergency meeting.
func (c *Coordinator) CallMeeting(sessionID string) {
	c.callMeeting(sessionID, room.MeetingReasonEmergency)
}

func (c *Coordinator) callMeeting(sessionID, reason string) {
	r, ok := c.roomOf(sessionID)
	if !ok {
		return
	}

	info, err := r.StartMeeting(sessionID, reason)
	if err != nil {
		c.sendError(sessionID, err)
		return
	}

	logger.Log.Infof("Meeting called in room %s by %s (%s)", r.Code, sessionID, reason)
	c.broadcastRoom(r.Code, network.MsgTypeMeetingCalled, network.MeetingCalledPayload{
		CallerID: info.CallerID,
		Reason:   info.Reason,
		Players:  r.Roster(false),
	})
	c.armMeetingTimer(r.Code)
}

// CastVote records the caller's ballot. A nil target is a skip. The
// progress broadcast names the voter but never the ballot.
func (c *Coordinator) CastVote(sessionID string, req network.VoteRequest) {
	r, ok := c.roomOf(sessionID)
	if !ok {
		return
	}

	target := logic.SkipVote
	if req.TargetID != nil {
		target = *req.TargetID
	}

	outcome, err := r.CastVote(sessionID, target)
	if err != nil {
		c.sendError(sessionID, err)
		return
	}

	if outcome.Complete {
		c.announceVotingComplete(r, outcome)
		return
	}
	c.broadcastRoom(r.Code, network.MsgTypeVoteCast, network.VoteCastPayload{
		VoterID: sessionID,
		Voted:   outcome.Voted,
		Total:   outcome.Total,
	})
}

// Sabotage validates the caller and alerts the whole room. Sabotage has
// no mechanical effect beyond the alert.
func (c *Coordinator) Sabotage(sessionID string, req network.SabotageRequest) {
	r, ok := c.roomOf(sessionID)
	if !ok {
		return
	}

	if err := r.ValidateSabotage(sessionID); err != nil {
		c.sendError(sessionID, err)
		return
	}

	c.broadcastRoom(r.Code, network.MsgTypeSabotageAlert, network.SabotageAlertPayload{
		Kind:     req.Kind,
		Saboteur: sessionID,
	})
}
