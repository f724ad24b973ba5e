package intake

import (
	"fmt"

	"github.com/ehr/pretest/internal/domain/enrollment"
)

// State is a submission's position in the intake lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateAllocating State = "allocating"
	StateAllocated  State = "allocated"
	StateRecording  State = "recording"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

var transitions = map[State][]State{
	StateIdle:       {StateAllocating},
	StateAllocating: {StateAllocated, StateFailed},
	StateAllocated:  {StateRecording},
	StateRecording:  {StateDone},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether from -> to is a legal step.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Tracker walks one submission through the lifecycle and rejects illegal
// steps. FailureKind is set only in StateFailed.
type Tracker struct {
	state       State
	failureKind enrollment.ErrorKind
}

func NewTracker() *Tracker {
	return &Tracker{state: StateIdle}
}

func (t *Tracker) State() State { return t.state }

func (t *Tracker) FailureKind() enrollment.ErrorKind { return t.failureKind }

func (t *Tracker) advance(to State) error {
	if !CanTransition(t.state, to) {
		return fmt.Errorf("illegal intake transition %s -> %s", t.state, to)
	}
	t.state = to
	return nil
}

func (t *Tracker) fail(kind enrollment.ErrorKind) error {
	if err := t.advance(StateFailed); err != nil {
		return err
	}
	t.failureKind = kind
	return nil
}
