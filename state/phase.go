// Package state implements the room phase machine. A room moves
// lobby -> playing -> meeting -> playing -> ... until a win condition
// forces ended, which is terminal.
package state

import (
	"errors"
	"sync"
)

type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhasePlaying Phase = "playing"
	PhaseMeeting Phase = "meeting"
	PhaseEnded   Phase = "ended"
)

// ErrTransitionNotAllowed is returned when a phase transition is not allowed.
var ErrTransitionNotAllowed = errors.New("phase transition not allowed")

// transitions is the fixed legality table. Ended is reachable from every
// phase and re-entering it is a no-op, which makes endGame idempotent.
var transitions = map[Phase]map[Phase]bool{
	PhaseLobby:   {PhasePlaying: true, PhaseEnded: true},
	PhasePlaying: {PhaseMeeting: true, PhaseEnded: true},
	PhaseMeeting: {PhasePlaying: true, PhaseEnded: true},
	PhaseEnded:   {},
}

// Machine tracks one room's current phase. It has its own small lock so
// phase reads do not need the room lock, but every transition happens
// while the owning room is already serialized.
type Machine struct {
	mu      sync.RWMutex
	current Phase
}

func NewMachine() *Machine {
	return &Machine{current: PhaseLobby}
}

// Transition moves to the target phase if the table allows it.
func (m *Machine) Transition(to Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == PhaseEnded && to == PhaseEnded {
		return nil
	}
	if !transitions[m.current][to] {
		return ErrTransitionNotAllowed
	}
	m.current = to
	return nil
}

// Current returns the current phase.
func (m *Machine) Current() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is currently in the given phase.
func (m *Machine) Is(p Phase) bool {
	return m.Current() == p
}
