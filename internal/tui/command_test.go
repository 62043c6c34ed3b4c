package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"quit", Command{Name: "quit"}},
		{"  Q ", Command{Name: "quit"}},
		{"o bob", Command{Name: "open", Args: "bob"}},
		{"open   Bob Smith ", Command{Name: "open", Args: "Bob Smith"}},
		{"call video", Command{Name: "call", Args: "video"}},
		{"", Command{}},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.in); got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
