package status

import (
	"testing"

	"github.com/matheus3301/chatsync/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, Migrating},
		{Booting, Error},
		{Migrating, Ready},
		{Migrating, Error},
		{Ready, Degraded},
		{Degraded, Ready},
		{Ready, Stopping},
		{Degraded, Stopping},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to, "test"); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Ready, ""); err == nil {
		t.Error("Transition(BOOTING -> READY) should fail; migrations run first")
	}

	walkTo(t, m, Stopping)
	if err := m.Transition(Ready, ""); err == nil {
		t.Error("Transition(STOPPING -> READY) should fail")
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Migrating, "schema v2"); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != ChangedKind {
		t.Errorf("event kind = %q, want %s", evt.Kind, ChangedKind)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Booting || change.To != Migrating || change.Reason != "schema v2" {
		t.Errorf("change = %+v", change)
	}

	st, reason, since := m.Snapshot()
	if st != Migrating || reason != "schema v2" || since.IsZero() {
		t.Errorf("Snapshot() = %s, %q, %v", st, reason, since)
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:   {},
		Migrating: {Migrating},
		Ready:     {Migrating, Ready},
		Degraded:  {Migrating, Ready, Degraded},
		Stopping:  {Migrating, Ready, Stopping},
		Error:     {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s, ""); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
