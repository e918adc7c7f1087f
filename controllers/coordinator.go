// Package controllers translates decoded client requests into room and
// directory operations and routes the resulting notifications: private
// replies to the caller, broadcasts to the room, and deferred work
// (meeting timeouts, end-of-game broadcasts) through the timer manager.
package controllers

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/crewdeck/gameserver/broadcast"
	"github.com/crewdeck/gameserver/game"
	"github.com/crewdeck/gameserver/logger"
	"github.com/crewdeck/gameserver/monitor"
	"github.com/crewdeck/gameserver/network"
	"github.com/crewdeck/gameserver/room"
	"github.com/crewdeck/gameserver/services"
	"github.com/crewdeck/gameserver/session"
	"github.com/crewdeck/gameserver/timer"
)

// Config carries the tunables the coordinator needs beyond what the
// directory already holds.
type Config struct {
	MeetingTimeout time.Duration
	// WinBroadcastDelay paces the game-ended broadcast after a vote so
	// clients can show the ejection result first.
	WinBroadcastDelay time.Duration
	TasksPerCrewmate  int
}

// Coordinator owns the request side of a session: every packet the
// server dispatches lands on one of its methods. The session id doubles
// as the player id for the lifetime of the connection.
type Coordinator struct {
	directory *game.Directory
	sessions  *session.Manager
	caster    broadcast.Broadcaster
	timers    *timer.Manager
	metrics   *monitor.Monitor        // optional
	records   *services.RecordService // optional
	cfg       Config

	mu            sync.Mutex
	meetingGen    uint64
	meetingTimers map[string]meetingTimer // room code -> pending timeout timer
}

// meetingTimer ties a scheduled timeout to the meeting it was armed
// for. gen disambiguates meetings in the same room: a callback the
// timer loop already holds cannot be cancelled through the heap, so it
// has to recognize on its own that its meeting is over.
type meetingTimer struct {
	id  int64
	gen uint64
}

func NewCoordinator(
	directory *game.Directory,
	sessions *session.Manager,
	caster broadcast.Broadcaster,
	timers *timer.Manager,
	metrics *monitor.Monitor,
	records *services.RecordService,
	cfg Config,
) *Coordinator {
	return &Coordinator{
		directory:     directory,
		sessions:      sessions,
		caster:        caster,
		timers:        timers,
		metrics:       metrics,
		records:       records,
		cfg:           cfg,
		meetingTimers: make(map[string]meetingTimer),
	}
}

// sendTo marshals and delivers a private payload. Send failures are the
// connection's problem, not the operation's.
func (c *Coordinator) sendTo(sessionID string, msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("Failed to marshal payload for msg %d: %v", msgID, err)
		return
	}
	if err := c.caster.SendTo(sessionID, msgID, data); err != nil {
		logger.Log.Debugf("Send to session %s failed: %v", sessionID, err)
	}
}

func (c *Coordinator) broadcastRoom(code string, msgID uint16, payload interface{}) {
	c.broadcastRoomExcept(code, "", msgID, payload)
}

func (c *Coordinator) broadcastRoomExcept(code, exceptID string, msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("Failed to marshal payload for msg %d: %v", msgID, err)
		return
	}
	if err := c.caster.BroadcastToRoomExcept(code, exceptID, msgID, data); err != nil {
		logger.Log.Debugf("Broadcast to room %s failed: %v", code, err)
	}
}

// sendError maps a domain error onto its wire kind and delivers it to
// the caller only; failures are never broadcast.
func (c *Coordinator) sendError(sessionID string, err error) {
	c.sendTo(sessionID, network.MsgTypeError, network.ErrorPayload{
		Kind:    kindOf(err),
		Message: err.Error(),
	})
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound),
		errors.Is(err, room.ErrPlayerNotFound):
		return network.KindNotFound
	case errors.Is(err, room.ErrNotHost):
		return network.KindUnauthorized
	case errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrGameInProgress),
		errors.Is(err, room.ErrNotEnoughPlayers),
		errors.Is(err, room.ErrInvalidPhase),
		errors.Is(err, room.ErrAlreadyVoted),
		errors.Is(err, room.ErrDeadPlayer),
		errors.Is(err, room.ErrCannotEliminate),
		errors.Is(err, room.ErrNoReportableBody),
		errors.Is(err, room.ErrNotImpostor),
		errors.Is(err, room.ErrNotCrewmate):
		return network.KindInvalidState
	case errors.Is(err, game.ErrInvalidName),
		errors.Is(err, game.ErrInvalidCode),
		errors.Is(err, game.ErrAlreadyInRoom):
		return network.KindInvalidInput
	default:
		// unrecognized errors are internal faults, surfaced generically
		return network.KindInvalidAction
	}
}

// armMeetingTimer schedules the vote timeout for a room, replacing any
// stale timer left from an earlier meeting.
func (c *Coordinator) armMeetingTimer(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.meetingTimers[code]; ok {
		c.timers.RemoveTimer(t.id)
	}
	c.meetingGen++
	gen := c.meetingGen
	id := c.timers.AddTimer(c.cfg.MeetingTimeout, 0, func() {
		c.resolveMeetingTimeout(code, gen)
	})
	c.meetingTimers[code] = meetingTimer{id: id, gen: gen}
}

func (c *Coordinator) cancelMeetingTimer(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.meetingTimers[code]; ok {
		c.timers.RemoveTimer(t.id)
		delete(c.meetingTimers, code)
	}
}

// resolveMeetingTimeout fires when a meeting runs out of time: every
// alive holdout is counted as a skip. The callback only acts on the
// meeting it was armed for; if that meeting already resolved (and a
// newer one may be underway), it stands down.
func (c *Coordinator) resolveMeetingTimeout(code string, gen uint64) {
	c.mu.Lock()
	current, ok := c.meetingTimers[code]
	if !ok || current.gen != gen {
		c.mu.Unlock()
		return
	}
	delete(c.meetingTimers, code)
	c.mu.Unlock()

	r, ok := c.directory.Room(code)
	if !ok {
		return
	}
	outcome, err := r.ForceResolveVotes()
	if err != nil {
		// The meeting already resolved or the game ended.
		return
	}
	logger.Log.Infof("Meeting in room %s timed out after %s", code, c.cfg.MeetingTimeout)
	c.announceVotingComplete(r, outcome)
}

// announceVotingComplete broadcasts a resolved vote and, when the vote
// decided the game, schedules the end-of-game broadcast.
func (c *Coordinator) announceVotingComplete(r *room.Room, outcome *room.VoteOutcome) {
	c.cancelMeetingTimer(r.Code)
	c.broadcastRoom(r.Code, network.MsgTypeVotingComplete, network.VotingCompletePayload{
		Result:  *outcome.Result,
		Ejected: outcome.Ejected,
	})
	if outcome.Win != nil {
		c.finishGame(r, outcome.Win, c.cfg.WinBroadcastDelay)
	}
}

// finishGame records and announces a decided game. delay paces the
// broadcast when the win came out of a vote.
func (c *Coordinator) finishGame(r *room.Room, win *room.WinResult, delay time.Duration) {
	c.cancelMeetingTimer(r.Code)

	logger.Log.Infof("Game in room %s ended: %s win (%s)", r.Code, win.Winner, win.Reason)
	if c.metrics != nil {
		c.metrics.IncGamesFinished(win.Winner)
	}

	if c.records != nil {
		record, err := services.BuildRecord(r)
		if err != nil {
			logger.Log.Errorf("Failed to build match record for room %s: %v", r.Code, err)
		} else {
			// Database IO stays off the packet path.
			go func() {
				if err := c.records.RecordMatch(record); err != nil {
					logger.Log.Errorf("Failed to persist match %s: %v", record.MatchID, err)
				}
			}()
		}
	}

	payload := network.GameEndedPayload{
		Winner:  win.Winner,
		Reason:  win.Reason,
		Players: r.Roster(true),
	}
	announce := func() {
		c.broadcastRoom(r.Code, network.MsgTypeGameEnded, payload)
	}
	if delay > 0 {
		c.timers.AddTimer(delay, 0, announce)
	} else {
		announce()
	}
}
