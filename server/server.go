package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/wfunc/bingoserver/game"
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/monitor"
	"github.com/wfunc/bingoserver/network"
	"github.com/wfunc/bingoserver/room"
)

type Options struct {
	Addr         string
	PingInterval time.Duration
	MessageRate  float64
	MessageBurst int
}

type GameServer struct {
	opts         Options
	upgrader     websocket.Upgrader
	coordinator  *game.Coordinator
	monitor      *monitor.Monitor
	httpServer   *http.Server
	conns        map[*network.WSConnection]struct{}
	mutex        sync.Mutex
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewGameServer serves coordinator over websockets. mon may be nil.
func NewGameServer(coordinator *game.Coordinator, mon *monitor.Monitor, opts Options) *GameServer {
	s := &GameServer{
		opts:         opts,
		coordinator:  coordinator,
		monitor:      mon,
		conns:        make(map[*network.WSConnection]struct{}),
		shutdownChan: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler routes /ws, /rooms/count and, with a monitor, /metrics.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/rooms/count", s.handleRoomCount)
	if s.monitor != nil {
		mux.Handle("/metrics", s.monitor.Handler())
	}
	return mux
}

// Start blocks until the server stops. A clean Shutdown returns nil.
func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.opts.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown notifies connected players, stops accepting connections and
// closes the open websockets.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		s.coordinator.Shutdown()
	})
	err := s.httpServer.Shutdown(ctx)

	s.mutex.Lock()
	conns := make([]*network.WSConnection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mutex.Unlock()
	for _, c := range conns {
		c.Close()
	}
	return err
}

func (s *GameServer) handleRoomCount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(network.RoomCountMessage{Count: s.coordinator.RoomCount()})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.shutdownChan:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

// client is the per-connection state. It is only touched by the
// connection's read goroutine.
type client struct {
	id      string
	conn    *network.WSConnection
	limiter *rate.Limiter
	players map[string]struct{}
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn, s.opts.PingInterval)
	c := &client{
		id:      uuid.NewString(),
		conn:    wsConn,
		limiter: rate.NewLimiter(rate.Limit(s.opts.MessageRate), s.opts.MessageBurst),
		players: make(map[string]struct{}),
	}

	s.mutex.Lock()
	s.conns[wsConn] = struct{}{}
	s.mutex.Unlock()

	logger.Log.Infof("New connection from %s, connection ID: %s", wsConn.RemoteAddr(), c.id)

	defer func() {
		logger.Log.Infof("Connection closed from %s, connection ID: %s", wsConn.RemoteAddr(), c.id)
		s.mutex.Lock()
		delete(s.conns, wsConn)
		s.mutex.Unlock()
		for playerID := range c.players {
			s.coordinator.Disconnect(playerID, wsConn)
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}
		packet, err := wsConn.ReadPacket()
		if errors.Is(err, io.ErrShortBuffer) {
			s.sendError(c, fmt.Errorf("%w: %v", game.ErrBadRequest, err))
			continue
		}
		if err != nil {
			return
		}
		if s.monitor != nil {
			s.monitor.IncMessagesReceived()
		}
		if !c.limiter.Allow() {
			s.sendError(c, game.ErrRateLimited)
			continue
		}
		start := time.Now()
		s.handlePacket(c, packet)
		if s.monitor != nil {
			s.monitor.ObserveMessageLatency(time.Since(start))
		}
	}
}

func (s *GameServer) handlePacket(c *client, packet *network.Packet) {
	var err error
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		err = c.conn.Send(network.MsgTypeHeartbeat, nil)
	case network.MsgTypeCreateRoom:
		err = s.handleCreateRoom(c, packet)
	case network.MsgTypeJoinRoom:
		err = s.handleJoinRoom(c, packet)
	case network.MsgTypeLeaveRoom:
		err = s.handleLeaveRoom(c, packet)
	case network.MsgTypeResume:
		err = s.handleResume(c, packet)
	case network.MsgTypeRoomCount:
		err = reply(c, network.MsgTypeRoomCount, network.RoomCountMessage{Count: s.coordinator.RoomCount()})
	case network.MsgTypeCallNumber:
		err = s.handleCallNumber(c, packet)
	default:
		err = fmt.Errorf("%w: unknown message type %d", game.ErrBadRequest, packet.MsgID)
	}
	if err != nil {
		s.sendError(c, err)
	}
}

func (s *GameServer) handleCreateRoom(c *client, packet *network.Packet) error {
	var req network.CreateRoomRequest
	if len(packet.Data) > 0 {
		if err := decode(packet, &req); err != nil {
			return err
		}
	}
	code, err := s.coordinator.CreateRoom(req.PlayerName)
	if err != nil {
		return err
	}
	return reply(c, network.MsgTypeCreateRoom, network.CreateRoomResponse{RoomCode: code})
}

// handleJoinRoom relies on the room to acknowledge the joiner.
func (s *GameServer) handleJoinRoom(c *client, packet *network.Packet) error {
	var req network.JoinRoomRequest
	if err := decode(packet, &req); err != nil {
		return err
	}
	playerID, _, err := s.coordinator.JoinRoom(req.RoomCode, req.PlayerName, c.conn)
	if err != nil {
		return err
	}
	c.players[playerID] = struct{}{}
	return nil
}

func (s *GameServer) handleLeaveRoom(c *client, packet *network.Packet) error {
	var req network.LeaveRoomRequest
	if err := decode(packet, &req); err != nil {
		return err
	}
	if req.RoomCode == "" {
		return game.ErrRoomRequired
	}
	if _, ok := c.players[req.PlayerID]; !ok {
		return room.ErrPlayerNotFound
	}
	if err := s.coordinator.LeaveRoom(req.RoomCode, req.PlayerID, c.conn); err != nil {
		return err
	}
	delete(c.players, req.PlayerID)
	return nil
}

func (s *GameServer) handleResume(c *client, packet *network.Packet) error {
	var req network.ResumeRequest
	if err := decode(packet, &req); err != nil {
		return err
	}
	if _, _, err := s.coordinator.Resume(req.PlayerID, c.conn); err != nil {
		return err
	}
	c.players[req.PlayerID] = struct{}{}
	return nil
}

func (s *GameServer) handleCallNumber(c *client, packet *network.Packet) error {
	var req network.CallNumberRequest
	if err := decode(packet, &req); err != nil {
		return err
	}
	if req.RoomCode == "" {
		return game.ErrRoomRequired
	}
	// A connection may only call for players it joined or resumed.
	if _, ok := c.players[req.PlayerID]; !ok {
		return room.ErrPlayerNotFound
	}
	_, err := s.coordinator.CallNumber(req.RoomCode, req.PlayerID, c.conn, req.Number)
	return err
}

// sendError reports err to the offending connection only.
func (s *GameServer) sendError(c *client, err error) {
	code := game.ErrorCode(err)
	if code == game.CodeInternal {
		logger.Log.Errorf("connection %s: %v", c.id, err)
	}
	if sendErr := reply(c, network.MsgTypeError, network.ErrorMessage{Code: code, Message: err.Error()}); sendErr != nil {
		logger.Log.Debugf("connection %s: error reply dropped: %v", c.id, sendErr)
	}
}

func decode(packet *network.Packet, v any) error {
	if err := json.Unmarshal(packet.Data, v); err != nil {
		return fmt.Errorf("%w: %v", game.ErrBadRequest, err)
	}
	return nil
}

func reply(c *client, msgID uint16, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.conn.Send(msgID, data)
}
