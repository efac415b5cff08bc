package status

import "testing"

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{Queued, Sending, true},
		{Queued, Failed, true},
		{Sending, Sent, true},
		{Sending, Failed, true},
		{Sending, Pending, true},
		{Pending, Sending, true},
		{Sent, Sending, false},
		{Failed, Sending, false},
		{Received, Sending, false},
		{Queued, Sent, false},
		{Pending, Sent, false},
	}
	for _, tt := range tests {
		if got := Valid(tt.from, tt.to); got != tt.want {
			t.Errorf("Valid(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []State{Sent, Failed, Received} {
		if !Terminal(s) {
			t.Errorf("Terminal(%s) = false, want true", s)
		}
	}
	for _, s := range []State{Queued, Sending, Pending} {
		if Terminal(s) {
			t.Errorf("Terminal(%s) = true, want false", s)
		}
	}
}
