// Package game routes player actions to rooms and tears rooms down when
// they end.
package game

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/bingoserver/broadcast"
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/models"
	"github.com/wfunc/bingoserver/network"
	"github.com/wfunc/bingoserver/room"
	"github.com/wfunc/bingoserver/session"
)

// Metrics receives lifecycle counts. *monitor.Monitor satisfies it.
type Metrics interface {
	SetActiveRooms(count int)
	IncOnlinePlayers()
	DecOnlinePlayers()
	IncGamesFinished(outcome string)
	AddRoomsReaped(n int)
}

// Recorder stores finished games. Record must not block.
type Recorder interface {
	Record(record models.GameRecord)
}

type nopMetrics struct{}

func (nopMetrics) SetActiveRooms(int)      {}
func (nopMetrics) IncOnlinePlayers()       {}
func (nopMetrics) DecOnlinePlayers()       {}
func (nopMetrics) IncGamesFinished(string) {}
func (nopMetrics) AddRoomsReaped(int)      {}

type nopRecorder struct{}

func (nopRecorder) Record(models.GameRecord) {}

// Options wire optional collaborators into a Coordinator.
type Options struct {
	Room        room.Options
	Metrics     Metrics
	Recorder    Recorder
	Broadcaster broadcast.Broadcaster
}

// Coordinator owns both registries and is the only entry point for game
// actions.
type Coordinator struct {
	rooms       *room.Manager
	sessions    *session.Manager
	roomOpts    room.Options
	metrics     Metrics
	recorder    Recorder
	broadcaster broadcast.Broadcaster
}

func NewCoordinator(rooms *room.Manager, sessions *session.Manager, opts Options) *Coordinator {
	c := &Coordinator{
		rooms:       rooms,
		sessions:    sessions,
		roomOpts:    opts.Room,
		metrics:     opts.Metrics,
		recorder:    opts.Recorder,
		broadcaster: opts.Broadcaster,
	}
	if c.metrics == nil {
		c.metrics = nopMetrics{}
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	if c.broadcaster == nil {
		c.broadcaster = broadcast.NewSessionBroadcaster(sessions)
	}
	return c
}

// CreateRoom registers an empty room. The requester is not seated.
func (c *Coordinator) CreateRoom(playerName string) (string, error) {
	r, err := c.rooms.CreateRoom(c.roomOpts)
	if err != nil {
		return "", err
	}
	c.metrics.SetActiveRooms(c.rooms.Count())
	logger.Log.Infof("room %s created by %q", r.ID, playerName)
	return r.ID, nil
}

// JoinRoom seats a new player in room code and returns its player ID and slot.
func (c *Coordinator) JoinRoom(code, playerName string, conn network.Connection) (string, int, error) {
	if code == "" {
		return "", -1, ErrRoomRequired
	}
	r, ok := c.rooms.GetRoom(code)
	if !ok {
		return "", -1, room.ErrRoomNotFound
	}

	sess := session.NewSession(uuid.NewString(), strings.TrimSpace(playerName), conn)
	sess.RoomCode = code
	c.sessions.Add(sess)
	c.rooms.BindPlayer(sess.ID, code)

	slot, err := r.Join(sess)
	if err != nil {
		c.rooms.UnbindPlayer(sess.ID)
		c.sessions.Remove(sess.ID)
		return "", -1, err
	}
	c.metrics.IncOnlinePlayers()
	logger.Log.Infof("player %s (%q) joined room %s in slot %d", sess.ID, sess.Name, code, slot)
	return sess.ID, slot, nil
}

// CallNumber plays number for playerID, which must be bound to conn. A call
// that ends the game removes the room.
func (c *Coordinator) CallNumber(code, playerID string, conn network.Connection, number int) (room.CallResult, error) {
	if code == "" {
		return room.CallResult{}, ErrRoomRequired
	}
	r, ok := c.rooms.GetRoom(code)
	if !ok {
		return room.CallResult{}, room.ErrRoomNotFound
	}
	if err := c.authorize(playerID, conn); err != nil {
		return room.CallResult{}, err
	}
	res, err := r.Call(playerID, number)
	if err != nil {
		return res, err
	}
	if res.Termination != nil {
		c.teardown(code, res.Termination)
	}
	return res, nil
}

// LeaveRoom handles an explicit leave by playerID on conn.
func (c *Coordinator) LeaveRoom(code, playerID string, conn network.Connection) error {
	if code == "" {
		return ErrRoomRequired
	}
	r, ok := c.rooms.GetRoom(code)
	if !ok {
		return room.ErrRoomNotFound
	}
	if err := c.authorize(playerID, conn); err != nil {
		return err
	}
	t, err := r.Leave(playerID)
	if err != nil {
		return err
	}
	c.teardown(code, t)
	return nil
}

// Disconnect treats the loss of conn as a leave, unless playerID has
// already moved to another connection.
func (c *Coordinator) Disconnect(playerID string, conn network.Connection) {
	sess, ok := c.sessions.Get(playerID)
	if !ok || !sess.Detach(conn) {
		return
	}
	code, ok := c.rooms.PlayerRoom(playerID)
	if !ok {
		c.dropPlayer(playerID)
		return
	}
	r, ok := c.rooms.GetRoom(code)
	if !ok {
		c.dropPlayer(playerID)
		return
	}
	t, err := r.Leave(playerID)
	if err != nil {
		logger.Log.Debugf("disconnect %s from room %s: %v", playerID, code, err)
		c.dropPlayer(playerID)
		return
	}
	logger.Log.Infof("player %s disconnected from room %s", playerID, code)
	c.teardown(code, t)
}

// Resume moves playerID onto conn. The previous connection stays open for
// any other players it carries, but can no longer act for playerID and its
// disconnect is ignored. It returns the player's room code and slot.
func (c *Coordinator) Resume(playerID string, conn network.Connection) (string, int, error) {
	sess, ok := c.sessions.Get(playerID)
	if !ok {
		return "", -1, room.ErrPlayerNotFound
	}
	code, ok := c.rooms.PlayerRoom(playerID)
	if !ok {
		return "", -1, room.ErrPlayerNotFound
	}
	r, ok := c.rooms.GetRoom(code)
	if !ok {
		return "", -1, room.ErrRoomNotFound
	}

	old := sess.Rebind(conn)
	slot, err := r.Resync(playerID)
	if err != nil {
		sess.Rebind(old)
		return "", -1, err
	}
	logger.Log.Infof("player %s resumed in room %s", playerID, code)
	return code, slot, nil
}

// ReapIdleRooms closes every room idle for at least threshold and returns
// how many it closed.
func (c *Coordinator) ReapIdleRooms(now time.Time, threshold time.Duration) int {
	reaped := 0
	for _, r := range c.rooms.Rooms() {
		t := r.Expire(now, threshold)
		if t == nil {
			continue
		}
		c.teardown(r.ID, t)
		reaped++
	}
	if reaped > 0 {
		c.metrics.AddRoomsReaped(reaped)
		logger.Log.Infof("reaped %d idle rooms", reaped)
	}
	return reaped
}

func (c *Coordinator) RoomCount() int {
	return c.rooms.Count()
}

// Shutdown tells every connected player the server is going away.
func (c *Coordinator) Shutdown() {
	data, _ := json.Marshal(network.ShutdownMessage{Message: "server shutting down"})
	sent := c.broadcaster.BroadcastToAll(network.MsgTypeServerShutdown, data)
	logger.Log.Infof("shutdown notice sent to %d players", sent)
}

// authorize rejects actions for playerID that do not come from its current
// connection.
func (c *Coordinator) authorize(playerID string, conn network.Connection) error {
	sess, ok := c.sessions.Get(playerID)
	if !ok || sess.Conn() != conn {
		return room.ErrPlayerNotFound
	}
	return nil
}

func (c *Coordinator) teardown(code string, t *room.Termination) {
	for _, id := range t.PlayerIDs {
		c.dropPlayer(id)
	}
	if t.Closed {
		c.rooms.RemoveRoom(code)
	}
	if t.Record != nil {
		c.metrics.IncGamesFinished(t.Record.Outcome)
		c.recorder.Record(*t.Record)
	}
	c.metrics.SetActiveRooms(c.rooms.Count())
}

func (c *Coordinator) dropPlayer(playerID string) {
	c.rooms.UnbindPlayer(playerID)
	if c.sessions.Remove(playerID) {
		c.metrics.DecOnlinePlayers()
	}
}
