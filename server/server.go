package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/crewdeck/gameserver/controllers"
	"github.com/crewdeck/gameserver/game"
	"github.com/crewdeck/gameserver/logger"
	"github.com/crewdeck/gameserver/monitor"
	"github.com/crewdeck/gameserver/network"
	"github.com/crewdeck/gameserver/session"
)

// GameServer accepts websocket connections and feeds decoded packets to
// the coordinator. One goroutine per connection; the session id issued
// at upgrade time is the player id for everything that follows.
type GameServer struct {
	addr        string
	upgrader    websocket.Upgrader
	sessions    *session.Manager
	coordinator *controllers.Coordinator
	directory   *game.Directory
	metrics     *monitor.Monitor // optional

	httpServer   *http.Server
	shutdownChan chan struct{}
}

func NewGameServer(
	addr string,
	directory *game.Directory,
	sessions *session.Manager,
	coordinator *controllers.Coordinator,
	metrics *monitor.Monitor,
) *GameServer {
	s := &GameServer{
		addr:         addr,
		sessions:     sessions,
		coordinator:  coordinator,
		directory:    directory,
		metrics:      metrics,
		shutdownChan: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and unwinds the read loops.
func (s *GameServer) Shutdown(ctx context.Context) error {
	close(s.shutdownChan)
	return s.httpServer.Shutdown(ctx)
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *GameServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.directory.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"rooms":       stats.Rooms,
		"players":     stats.Players,
		"activeGames": stats.ActiveGames,
		"sessions":    s.sessions.Count(),
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessions.Add(sess)
	if s.metrics != nil {
		s.metrics.IncOnlinePlayers()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.coordinator.Disconnect(sess.GetID())
		s.sessions.Remove(sess.GetID())
		if s.metrics != nil {
			s.metrics.DecOnlinePlayers()
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.IncMessagesReceived()
		defer func() {
			s.metrics.ObserveMessageLatency(time.Since(start))
		}()
	}
	sess.Touch()

	id := sess.GetID()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		// echoed back so the client can measure round trips
		sess.Send(network.MsgTypeHeartbeat, nil)

	case network.MsgTypeCreateRoom:
		var req network.CreateRoomRequest
		if !s.decode(sess, packet.Data, &req) {
			return
		}
		s.coordinator.CreateRoom(id, req)

	case network.MsgTypeJoinRoom:
		var req network.JoinRoomRequest
		if !s.decode(sess, packet.Data, &req) {
			return
		}
		s.coordinator.JoinRoom(id, req)

	case network.MsgTypeLeaveRoom:
		s.coordinator.LeaveRoom(id)

	case network.MsgTypeListRooms:
		s.coordinator.ListRooms(id)

	case network.MsgTypeStartGame:
		s.coordinator.StartGame(id)

	case network.MsgTypeGetState:
		s.coordinator.GetState(id)

	case network.MsgTypeMove:
		var req network.MoveRequest
		if !s.decode(sess, packet.Data, &req) {
			return
		}
		s.coordinator.Move(id, req)

	case network.MsgTypeKill:
		var req network.KillRequest
		if !s.decode(sess, packet.Data, &req) {
			return
		}
		s.coordinator.Kill(id, req)

	case network.MsgTypeCompleteTask:
		s.coordinator.CompleteTask(id)

	case network.MsgTypeReportBody:
		var req network.ReportBodyRequest
		if !s.decode(sess, packet.Data, &req) {
			return
		}
		s.coordinator.ReportBody(id, req)

	case network.MsgTypeCallMeeting:
		s.coordinator.CallMeeting(id)

	case network.MsgTypeCastVote:
		var req network.VoteRequest
		if !s.decode(sess, packet.Data, &req) {
			return
		}
		s.coordinator.CastVote(id, req)

	case network.MsgTypeSabotage:
		var req network.SabotageRequest
		if !s.decode(sess, packet.Data, &req) {
			return
		}
		s.coordinator.Sabotage(id, req)

	default:
		logger.Log.Infof("Unknown message type %d from session %s", packet.MsgID, id)
		s.sendError(sess, "unknown message type")
	}
}

// decode unmarshals a request body, answering a malformed payload with
// an input error.
func (s *GameServer) decode(sess *session.Session, data []byte, v interface{}) bool {
	if len(data) == 0 {
		// an absent body decodes to the zero request
		return true
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Log.Debugf("Malformed payload from session %s: %v", sess.GetID(), err)
		s.sendError(sess, "malformed payload")
		return false
	}
	return true
}

func (s *GameServer) sendError(sess *session.Session, message string) {
	data, err := json.Marshal(network.ErrorPayload{
		Kind:    network.KindInvalidInput,
		Message: message,
	})
	if err != nil {
		return
	}
	sess.Send(network.MsgTypeError, data)
}
