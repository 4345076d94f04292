// room/room.go
package room

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wfunc/bingoserver/card"
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/models"
	"github.com/wfunc/bingoserver/network"
	"github.com/wfunc/bingoserver/session"
	"github.com/wfunc/bingoserver/state"
)

// Player is a session seated in a room.
type Player struct {
	Slot    int
	Session *session.Session
	Card    card.Assignment
}

// Options configure a new room.
type Options struct {
	Source     card.Source
	LinesToWin int
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Source == nil {
		o.Source = card.DefaultSource()
	}
	if o.LinesToWin < 1 {
		o.LinesToWin = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Termination tells the caller what to tear down after a room ends or a
// player leaves it.
type Termination struct {
	Closed    bool     // the room is finished and must be dropped from the registry
	PlayerIDs []string // players no longer seated in this room
	Record    *models.GameRecord
}

// CallResult is the evaluation that follows an accepted call.
type CallResult struct {
	Result card.Result
	Winner int // slot, -1 unless Result is card.Winner
	Lines  [2]int
	Called []int
	*Termination
}

// Room is one two-player bingo game. All methods are safe for concurrent
// use; a single mutex serializes everything that touches the game.
type Room struct {
	ID           string
	CreatedAt    time.Time
	StateMachine state.StateMachine
	players      [2]*Player
	ledger       *state.Ledger
	startedAt    time.Time
	lastActive   time.Time
	closed       bool
	src          card.Source
	linesToWin   int
	now          func() time.Time
	mutex        sync.Mutex
}

// roomView is what the state machine sees. Guards run while the room mutex
// is held, so it reads without locking.
type roomView struct {
	r *Room
}

func (v roomView) GetID() string    { return v.r.ID }
func (v roomView) PlayerCount() int { return v.r.playerCount() }

func NewRoom(id string, opts Options) *Room {
	opts = opts.withDefaults()
	now := opts.Now()
	r := &Room{
		ID:         id,
		CreatedAt:  now,
		lastActive: now,
		src:        opts.Source,
		linesToWin: opts.LinesToWin,
		now:        opts.Now,
	}
	r.StateMachine = state.NewRoomStateMachine(roomView{r})
	return r
}

func (r *Room) GetID() string {
	return r.ID
}

func (r *Room) PlayerCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.playerCount()
}

// Started reports whether the game has left the waiting phase.
func (r *Room) Started() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.ledger != nil
}

// Join seats s in the first free slot. The joiner is acknowledged first; the
// second joiner starts the game and both players get their own card.
func (r *Room) Join(s *session.Session) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return -1, ErrRoomNotFound
	}
	if r.stateID() != state.IDWaiting {
		return -1, ErrRoomFull
	}
	slot := -1
	for i, p := range r.players {
		if p == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return -1, ErrRoomFull
	}

	r.players[slot] = &Player{Slot: slot, Session: s}
	r.touch()
	send(s, network.MsgTypeJoinRoom, network.JoinedMessage{RoomCode: r.ID, PlayerID: s.ID, Slot: slot})

	if r.playerCount() < 2 {
		send(s, network.MsgTypeWaiting, network.WaitingMessage{RoomCode: r.ID, Message: "waiting for an opponent"})
		return slot, nil
	}
	if err := r.start(); err != nil {
		r.players[slot] = nil
		return -1, err
	}
	return slot, nil
}

func (r *Room) start() error {
	ledger := state.NewLedger(r.src.IntN(2))
	if err := r.StateMachine.ChangeState(state.NewGamingState(roomView{r}, ledger)); err != nil {
		return err
	}
	r.ledger = ledger
	r.startedAt = r.now()
	for _, p := range r.players {
		p.Card = card.Generate(r.src)
	}
	for _, p := range r.players {
		r.sendStart(p)
	}
	return nil
}

func (r *Room) sendStart(p *Player) {
	send(p.Session, network.MsgTypeGameStart, network.GameStartMessage{
		RoomCode: r.ID,
		Slot:     p.Slot,
		Opponent: r.players[1-p.Slot].Session.Name,
		Grid:     p.Card.Grid(),
		YourTurn: r.ledger.Turn() == p.Slot,
		Called:   r.ledger.Called(),
	})
}

// Call records number for playerID and evaluates both cards. Rejected calls
// change nothing and notify no one.
func (r *Room) Call(playerID string, number int) (CallResult, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return CallResult{}, ErrRoomNotFound
	}
	p := r.player(playerID)
	if p == nil {
		return CallResult{}, ErrPlayerNotFound
	}
	switch r.stateID() {
	case state.IDWaiting:
		return CallResult{}, ErrGameNotStarted
	case state.IDResolved:
		return CallResult{}, ErrGameOver
	}
	if err := r.ledger.Call(number, p.Slot); err != nil {
		return CallResult{}, err
	}
	r.touch()

	var lines [2]int
	for i, pl := range r.players {
		lines[i] = card.CountLines(pl.Card, r.ledger)
	}
	result, winner := card.Decide(lines, r.linesToWin)
	res := CallResult{Result: result, Winner: winner, Lines: lines, Called: r.ledger.Called()}

	r.broadcast(network.MsgTypeCalled, network.CalledMessage{Called: res.Called, Last: number})

	switch result {
	case card.Continue:
		r.ledger.ToggleTurn()
		for _, pl := range r.players {
			send(pl.Session, network.MsgTypeTurn, network.TurnMessage{
				YourTurn: r.ledger.Turn() == pl.Slot,
				Lines:    lines[pl.Slot],
			})
		}
	case card.Winner:
		r.broadcast(network.MsgTypeWinner, network.WinnerMessage{
			WinnerSlot: winner,
			WinnerName: r.players[winner].Session.Name,
			Lines:      lines,
			Ended:      true,
		})
		var results [2]string
		results[winner] = models.ResultWin
		results[1-winner] = models.ResultLose
		res.Termination = r.terminate("winner", results)
	case card.Draw:
		r.broadcast(network.MsgTypeDraw, network.DrawMessage{Lines: lines, Ended: true})
		res.Termination = r.terminate("draw", [2]string{models.ResultDraw, models.ResultDraw})
	}
	return res, nil
}

// Leave removes playerID. Before the game starts the slot is freed and an
// empty room closes; during a game the opponent is told and the room closes.
func (r *Room) Leave(playerID string) (*Termination, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return nil, ErrRoomNotFound
	}
	p := r.player(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}

	if r.ledger == nil {
		r.players[p.Slot] = nil
		r.touch()
		if r.playerCount() > 0 {
			return &Termination{PlayerIDs: []string{playerID}}, nil
		}
		t := r.terminate("empty", [2]string{})
		t.PlayerIDs = append(t.PlayerIDs, playerID)
		return t, nil
	}

	other := r.players[1-p.Slot]
	send(other.Session, network.MsgTypeOpponentLeft, network.OpponentLeftMessage{Reason: "left", Ended: true})
	var results [2]string
	results[p.Slot] = models.ResultLeft
	results[other.Slot] = models.ResultOpponentLeft
	return r.terminate("opponent_left", results), nil
}

// Expire closes the room when it has been idle for at least threshold.
// It returns nil when the room is still live or already closed.
func (r *Room) Expire(now time.Time, threshold time.Duration) *Termination {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed || now.Sub(r.lastActive) < threshold {
		return nil
	}
	r.broadcast(network.MsgTypeOpponentLeft, network.OpponentLeftMessage{Reason: "idle", Ended: true})
	return r.terminate("idle", [2]string{models.ResultIdle, models.ResultIdle})
}

// Resync acknowledges playerID on its new connection and resends the view
// it needs: the waiting notice or its own card, turn and called numbers.
func (r *Room) Resync(playerID string) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return -1, ErrRoomNotFound
	}
	p := r.player(playerID)
	if p == nil {
		return -1, ErrPlayerNotFound
	}
	r.touch()
	send(p.Session, network.MsgTypeResume, network.JoinedMessage{RoomCode: r.ID, PlayerID: playerID, Slot: p.Slot})
	if r.ledger == nil {
		send(p.Session, network.MsgTypeWaiting, network.WaitingMessage{RoomCode: r.ID, Message: "waiting for an opponent"})
		return p.Slot, nil
	}
	r.sendStart(p)
	return p.Slot, nil
}

// terminate resolves the room. results are indexed by slot; a record is
// only produced for games that started.
func (r *Room) terminate(reason string, results [2]string) *Termination {
	if err := r.StateMachine.ChangeState(state.NewResolvedState(roomView{r}, reason)); err != nil {
		logger.Log.Errorf("room %s: resolve failed: %v", r.ID, err)
	}
	r.closed = true

	t := &Termination{Closed: true}
	for _, p := range r.players {
		if p != nil {
			t.PlayerIDs = append(t.PlayerIDs, p.Session.ID)
		}
	}
	if r.ledger == nil {
		return t
	}

	record := &models.GameRecord{
		RoomCode:  r.ID,
		Outcome:   reason,
		Called:    r.ledger.Called(),
		StartedAt: r.startedAt,
		EndedAt:   r.now(),
	}
	for _, p := range r.players {
		record.Players = append(record.Players, models.PlayerResult{
			PlayerID: p.Session.ID,
			Name:     p.Session.Name,
			Slot:     p.Slot,
			Result:   results[p.Slot],
			Lines:    card.CountLines(p.Card, r.ledger),
		})
	}
	t.Record = record
	return t
}

func (r *Room) touch() {
	r.lastActive = r.now()
}

func (r *Room) stateID() string {
	return r.StateMachine.GetCurrentState().GetID()
}

func (r *Room) playerCount() int {
	n := 0
	for _, p := range r.players {
		if p != nil {
			n++
		}
	}
	return n
}

func (r *Room) player(id string) *Player {
	for _, p := range r.players {
		if p != nil && p.Session.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) broadcast(msgID uint16, v any) {
	for _, p := range r.players {
		if p != nil {
			send(p.Session, msgID, v)
		}
	}
}

// send is best effort: a player whose connection is gone or backed up simply
// misses the notification.
func send(s *session.Session, msgID uint16, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("encode message %d: %v", msgID, err)
		return
	}
	if err := s.Send(msgID, data); err != nil {
		if errors.Is(err, network.ErrSendQueueFull) {
			logger.Log.Warnf("send %d to %s: %v", msgID, s.ID, err)
			return
		}
		logger.Log.Debugf("send %d to %s: %v", msgID, s.ID, err)
	}
}
