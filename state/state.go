package state

import (
	"errors"
	"fmt"
	"sync"
)

// Phase is the step of a room's game cycle.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseDealing  Phase = "dealing"
	PhaseBidding  Phase = "bidding"
	PhasePlaying  Phase = "playing"
	PhaseScoring  Phase = "scoring"
	PhaseFinished Phase = "finished"
)

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 状态机接口
type StateMachine interface {
	ChangeState(to Phase) error
	GetCurrentState() Phase
	AddTransition(from, to Phase, condition func() bool) error
}

// BaseStateMachine only moves along registered edges. An edge may carry a
// condition that must hold at the time of the change.
type BaseStateMachine struct {
	currentState Phase
	transitions  map[Phase]map[Phase]func() bool // fromState -> toState -> condition
	onEnter      map[Phase]func()
	mutex        sync.RWMutex
}

var _ StateMachine = (*BaseStateMachine)(nil)

func NewBaseStateMachine(initial Phase) *BaseStateMachine {
	return &BaseStateMachine{
		currentState: initial,
		transitions:  make(map[Phase]map[Phase]func() bool),
		onEnter:      make(map[Phase]func()),
	}
}

func (sm *BaseStateMachine) ChangeState(to Phase) error {
	sm.mutex.Lock()
	from := sm.currentState
	conditions, exists := sm.transitions[from]
	if !exists {
		sm.mutex.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
	}
	condition, exists := conditions[to]
	if !exists || (condition != nil && !condition()) {
		sm.mutex.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
	}
	sm.currentState = to
	hook := sm.onEnter[to]
	sm.mutex.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (sm *BaseStateMachine) GetCurrentState() Phase {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from, to Phase, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if from == to {
		return fmt.Errorf("self transition on %s", from)
	}
	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[Phase]func() bool)
	}
	sm.transitions[from][to] = condition
	return nil
}

// OnEnter registers a hook run after the machine enters phase.
func (sm *BaseStateMachine) OnEnter(phase Phase, hook func()) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.onEnter[phase] = hook
}

// NewRoundMachine returns a machine positioned at current with the game
// cycle wired in: lobby -> dealing -> bidding -> playing -> scoring, then
// either a new round or the end of the game. Any in-round phase may fall
// back to lobby when the game is abandoned.
func NewRoundMachine(current Phase) *BaseStateMachine {
	sm := NewBaseStateMachine(current)
	edges := [][2]Phase{
		{PhaseLobby, PhaseDealing},
		{PhaseDealing, PhaseBidding},
		{PhaseBidding, PhasePlaying},
		{PhasePlaying, PhaseScoring},
		{PhaseScoring, PhaseBidding},
		{PhaseScoring, PhaseFinished},
		{PhaseDealing, PhaseLobby},
		{PhaseBidding, PhaseLobby},
		{PhasePlaying, PhaseLobby},
		{PhaseScoring, PhaseLobby},
	}
	for _, e := range edges {
		_ = sm.AddTransition(e[0], e[1], nil)
	}
	return sm
}
