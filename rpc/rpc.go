package rpc

import (
	"fmt"
	"net"
	"net/rpc"

	"github.com/crewdeck/gameserver/game"
	"github.com/crewdeck/gameserver/logger"
	"github.com/crewdeck/gameserver/models"
	"github.com/crewdeck/gameserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered separately
// via Register before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Register exposes a service over the listener.
func (s *Server) Register(service interface{}) error {
	return rpc.Register(service)
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operational queries over net/rpc: live directory
// stats plus the match history, when persistence is enabled.
type AdminService struct {
	directory *game.Directory
	records   *services.RecordService
}

// NewAdminService creates an AdminService. records may be nil when the
// server runs without a database.
func NewAdminService(directory *game.Directory, records *services.RecordService) *AdminService {
	return &AdminService{directory: directory, records: records}
}

type StatsArgs struct{}

type StatsReply struct {
	Stats game.Stats
}

// Stats reports live room and player counts.
func (a *AdminService) Stats(args *StatsArgs, reply *StatsReply) error {
	reply.Stats = a.directory.Stats()
	return nil
}

type HistoryArgs struct {
	RoomCode string // optional filter
	Limit    int
}

type HistoryReply struct {
	Matches []models.MatchRecord
}

// History returns recent finished matches, newest first.
func (a *AdminService) History(args *HistoryArgs, reply *HistoryReply) error {
	if a.records == nil {
		return fmt.Errorf("match history is not enabled")
	}
	var (
		matches []models.MatchRecord
		err     error
	)
	if args.RoomCode != "" {
		matches, err = a.records.RoomHistory(args.RoomCode, args.Limit)
	} else {
		matches, err = a.records.History(args.Limit)
	}
	if err != nil {
		return err
	}
	reply.Matches = matches
	return nil
}

type WinRatesArgs struct{}

type WinRatesReply struct {
	Tally models.WinTally
}

// WinRates reports the all-time tally by winning side.
func (a *AdminService) WinRates(args *WinRatesArgs, reply *WinRatesReply) error {
	if a.records == nil {
		return fmt.Errorf("match history is not enabled")
	}
	tally, err := a.records.WinRates()
	if err != nil {
		return err
	}
	reply.Tally = tally
	return nil
}
