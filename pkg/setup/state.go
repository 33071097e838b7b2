package setup

import "fmt"

// State is the orchestrator's position in the setup pipeline.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateAcquiring
	StateInstalling
	StateDone
	StateErrored
)

// String returns the human-readable stage name used in logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateAcquiring:
		return "acquiring"
	case StateInstalling:
		return "installing dependencies"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// forward defines the legal forward transitions. Errored is additionally
// reachable from every non-idle, non-terminal state.
var forward = map[State][]State{
	StateIdle:       {StateValidating},
	StateValidating: {StateAcquiring},
	StateAcquiring:  {StateInstalling, StateDone},
	StateInstalling: {StateDone},
}

// machine tracks the pipeline state for one run and rejects illegal
// transitions. Terminal states (Done, Errored) are final.
type machine struct {
	state       State
	failedStage State // the stage that was active when Errored was entered
}

func newMachine() *machine {
	return &machine{state: StateIdle}
}

// advance moves to the next pipeline stage.
func (m *machine) advance(to State) error {
	for _, next := range forward[m.state] {
		if next == to {
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s", m.state, to)
}

// fail enters the Errored terminal state, remembering the failing stage.
func (m *machine) fail() error {
	switch m.state {
	case StateIdle, StateDone, StateErrored:
		return fmt.Errorf("illegal transition %s -> %s", m.state, StateErrored)
	}
	m.failedStage = m.state
	m.state = StateErrored
	return nil
}

func (m *machine) current() State { return m.state }

// terminal reports whether the machine reached Done or Errored.
func (m *machine) terminal() bool {
	return m.state == StateDone || m.state == StateErrored
}
