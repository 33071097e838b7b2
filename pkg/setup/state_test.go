package setup

import "testing"

func TestMachineHappyPath(t *testing.T) {
	m := newMachine()
	for _, s := range []State{StateValidating, StateAcquiring, StateInstalling, StateDone} {
		if err := m.advance(s); err != nil {
			t.Fatalf("advance(%s): %v", s, err)
		}
	}
	if !m.terminal() {
		t.Error("machine not terminal after Done")
	}
}

func TestMachineSkipInstall(t *testing.T) {
	m := newMachine()
	for _, s := range []State{StateValidating, StateAcquiring, StateDone} {
		if err := m.advance(s); err != nil {
			t.Fatalf("advance(%s): %v", s, err)
		}
	}
	if m.current() != StateDone {
		t.Errorf("current = %s, want done", m.current())
	}
}

func TestMachineIllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []State
		to   State
	}{
		{"idle to acquiring", nil, StateAcquiring},
		{"idle to done", nil, StateDone},
		{"validating to installing", []State{StateValidating}, StateInstalling},
		{"done is final", []State{StateValidating, StateAcquiring, StateDone}, StateValidating},
		{"backwards", []State{StateValidating, StateAcquiring}, StateValidating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine()
			for _, s := range tt.path {
				if err := m.advance(s); err != nil {
					t.Fatalf("setup advance(%s): %v", s, err)
				}
			}
			if err := m.advance(tt.to); err == nil {
				t.Errorf("advance(%s) from %s succeeded, want error", tt.to, m.current())
			}
		})
	}
}

func TestMachineFail(t *testing.T) {
	for _, stage := range []State{StateValidating, StateAcquiring, StateInstalling} {
		m := newMachine()
		path := []State{StateValidating, StateAcquiring, StateInstalling}
		for _, s := range path {
			if err := m.advance(s); err != nil {
				t.Fatalf("advance(%s): %v", s, err)
			}
			if s == stage {
				break
			}
		}
		if err := m.fail(); err != nil {
			t.Fatalf("fail() from %s: %v", stage, err)
		}
		if m.current() != StateErrored || !m.terminal() {
			t.Errorf("after fail: current = %s", m.current())
		}
		if m.failedStage != stage {
			t.Errorf("failedStage = %s, want %s", m.failedStage, stage)
		}
	}
}

func TestMachineFailFromTerminal(t *testing.T) {
	m := newMachine()
	if err := m.fail(); err == nil {
		t.Error("fail() from idle succeeded, want error")
	}
	for _, s := range []State{StateValidating, StateAcquiring, StateDone} {
		if err := m.advance(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.fail(); err == nil {
		t.Error("fail() from done succeeded, want error")
	}
}
