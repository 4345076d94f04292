package state

import (
	"errors"
	"sync"

	"github.com/wfunc/bingoserver/logger"
)

const (
	IDWaiting  = "waiting"
	IDGaming   = "gaming"
	IDResolved = "resolved"
)

// StateMachine drives a room through its phases.
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from, to string, condition func() bool) error
}

// State is one phase of a room.
type State interface {
	OnEnter()
	OnExit()
	GetID() string
}

// ErrTransitionNotAllowed is returned for unregistered or vetoed transitions.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// BaseStateMachine only follows transitions registered with AddTransition.
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	conditions, ok := sm.transitions[sm.currentState.GetID()]
	if !ok {
		return ErrTransitionNotAllowed
	}
	condition, ok := conditions[newState.GetID()]
	if !ok {
		return ErrTransitionNotAllowed
	}
	if condition != nil && !condition() {
		return ErrTransitionNotAllowed
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// AddTransition allows moving from one state ID to another. A nil condition
// always permits the move.
func (sm *BaseStateMachine) AddTransition(from, to string, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[string]func() bool)
	}
	sm.transitions[from][to] = condition
	return nil
}

// RoomStateBase carries what every room state needs.
type RoomStateBase struct {
	ID   string
	Room RoomContext
}

func (s *RoomStateBase) GetID() string {
	return s.ID
}

func (s *RoomStateBase) OnEnter() {}

func (s *RoomStateBase) OnExit() {}

// WaitingState holds a room until its second player joins.
type WaitingState struct {
	RoomStateBase
}

func NewWaitingState(room RoomContext) *WaitingState {
	return &WaitingState{RoomStateBase{ID: IDWaiting, Room: room}}
}

// GamingState owns the ledger of a game in progress.
type GamingState struct {
	RoomStateBase
	Ledger *Ledger
}

func NewGamingState(room RoomContext, ledger *Ledger) *GamingState {
	return &GamingState{
		RoomStateBase: RoomStateBase{ID: IDGaming, Room: room},
		Ledger:        ledger,
	}
}

func (s *GamingState) OnEnter() {
	logger.Log.Infof("room %s started, slot %d calls first", s.Room.GetID(), s.Ledger.Turn())
}

// ResolvedState is terminal; no transition leaves it.
type ResolvedState struct {
	RoomStateBase
	Reason string
}

func NewResolvedState(room RoomContext, reason string) *ResolvedState {
	return &ResolvedState{
		RoomStateBase: RoomStateBase{ID: IDResolved, Room: room},
		Reason:        reason,
	}
}

func (s *ResolvedState) OnEnter() {
	logger.Log.Infof("room %s resolved: %s", s.Room.GetID(), s.Reason)
}

// NewRoomStateMachine starts a room in the waiting state with the game
// transitions registered. Waiting moves to gaming only with two players.
func NewRoomStateMachine(room RoomContext) *BaseStateMachine {
	sm := NewBaseStateMachine(NewWaitingState(room))
	sm.AddTransition(IDWaiting, IDGaming, func() bool { return room.PlayerCount() == 2 })
	sm.AddTransition(IDWaiting, IDResolved, nil)
	sm.AddTransition(IDGaming, IDResolved, nil)
	return sm
}
