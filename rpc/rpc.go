package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/models"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	rpc      *rpc.Server
}

// NewServer listens on addr. Services are added with Register before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		rpc:      rpc.NewServer(),
	}, nil
}

// Register exposes the exported methods of rcvr under its type name.
func (s *Server) Register(rcvr any) error {
	return s.rpc.Register(rcvr)
}

// Addr is the bound listener address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves connections until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// RoomCounter reports the number of live rooms.
type RoomCounter interface {
	RoomCount() int
}

// StatsSource looks up stored results for a player.
type StatsSource interface {
	PlayerStats(ctx context.Context, name string) (models.PlayerStats, error)
}

var ErrStatsUnavailable = errors.New("game history is not enabled")

const statsTimeout = 5 * time.Second

// Diagnostics is the RPC service for operators. Methods follow the net/rpc
// signature: exported args, pointer reply, error result.
type Diagnostics struct {
	rooms RoomCounter
	stats StatsSource
}

// NewDiagnostics creates the service. stats may be nil when no history store
// is configured.
func NewDiagnostics(rooms RoomCounter, stats StatsSource) *Diagnostics {
	return &Diagnostics{rooms: rooms, stats: stats}
}

type RoomCountArgs struct{}

type RoomCountReply struct {
	Count int
}

func (d *Diagnostics) RoomCount(args *RoomCountArgs, reply *RoomCountReply) error {
	reply.Count = d.rooms.RoomCount()
	return nil
}

type PlayerStatsArgs struct {
	Name string
}

type PlayerStatsReply struct {
	Stats models.PlayerStats
}

func (d *Diagnostics) PlayerStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	if d.stats == nil {
		return ErrStatsUnavailable
	}
	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	stats, err := d.stats.PlayerStats(ctx, args.Name)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}
