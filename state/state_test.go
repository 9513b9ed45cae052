package state

import (
	"errors"
	"testing"
)

func TestStateMachine_InitialState(t *testing.T) {
	sm := NewBaseStateMachine(PhaseLobby)

	if sm.GetCurrentState() != PhaseLobby {
		t.Errorf("Expected initial state lobby, got %s", sm.GetCurrentState())
	}
}

func TestStateMachine_UnregisteredTransition(t *testing.T) {
	sm := NewBaseStateMachine(PhaseLobby)

	err := sm.ChangeState(PhasePlaying)
	if !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("Expected ErrTransitionNotAllowed, got: %v", err)
	}
	if sm.GetCurrentState() != PhaseLobby {
		t.Errorf("Expected state to remain lobby, got %s", sm.GetCurrentState())
	}
}

func TestStateMachine_AddAndUseTransition(t *testing.T) {
	sm := NewBaseStateMachine(PhaseLobby)

	if err := sm.AddTransition(PhaseLobby, PhaseDealing, func() bool { return true }); err != nil {
		t.Fatalf("AddTransition failed: %v", err)
	}
	if err := sm.AddTransition(PhaseDealing, PhaseBidding, func() bool { return false }); err != nil {
		t.Fatalf("AddTransition failed: %v", err)
	}

	// --- Test valid transition ---
	if err := sm.ChangeState(PhaseDealing); err != nil {
		t.Errorf("Expected transition lobby -> dealing to be allowed, got: %v", err)
	}
	if sm.GetCurrentState() != PhaseDealing {
		t.Errorf("Expected current state dealing, got %s", sm.GetCurrentState())
	}

	// --- Test blocked transition ---
	err := sm.ChangeState(PhaseBidding)
	if !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Expected ErrTransitionNotAllowed, got: %v", err)
	}
	if sm.GetCurrentState() != PhaseDealing {
		t.Errorf("Expected state to remain dealing after a blocked transition, got %s", sm.GetCurrentState())
	}
}

func TestStateMachine_SelfTransitionRejected(t *testing.T) {
	sm := NewBaseStateMachine(PhaseLobby)
	if err := sm.AddTransition(PhaseLobby, PhaseLobby, nil); err == nil {
		t.Fatal("Expected self transition to be rejected")
	}
}

func TestStateMachine_OnEnterHook(t *testing.T) {
	sm := NewRoundMachine(PhaseLobby)
	entered := 0
	sm.OnEnter(PhaseDealing, func() { entered++ })

	if err := sm.ChangeState(PhaseDealing); err != nil {
		t.Fatalf("ChangeState failed: %v", err)
	}
	if entered != 1 {
		t.Errorf("Expected hook to run once, ran %d times", entered)
	}
}

func TestRoundMachine_FullCycle(t *testing.T) {
	sm := NewRoundMachine(PhaseLobby)
	path := []Phase{PhaseDealing, PhaseBidding, PhasePlaying, PhaseScoring, PhaseBidding,
		PhasePlaying, PhaseScoring, PhaseFinished}
	for _, p := range path {
		if err := sm.ChangeState(p); err != nil {
			t.Fatalf("transition to %s failed: %v", p, err)
		}
	}
	if err := sm.ChangeState(PhaseBidding); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Expected finished to be terminal, got: %v", err)
	}
}

func TestRoundMachine_Abandon(t *testing.T) {
	for _, from := range []Phase{PhaseDealing, PhaseBidding, PhasePlaying, PhaseScoring} {
		sm := NewRoundMachine(from)
		if err := sm.ChangeState(PhaseLobby); err != nil {
			t.Errorf("Expected %s -> lobby to be allowed, got: %v", from, err)
		}
	}
	sm := NewRoundMachine(PhaseFinished)
	if err := sm.ChangeState(PhaseLobby); err == nil {
		t.Error("Expected finished -> lobby to be rejected")
	}
}
