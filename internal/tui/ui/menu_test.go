package ui

import (
	"strings"
	"testing"
)

func TestMenuLayoutColumns(t *testing.T) {
	m := NewMenu(DefaultTheme())
	var hints []MenuHint
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		hints = append(hints, MenuHint{Key: k, Description: "x"})
	}

	lines := strings.Split(strings.TrimSuffix(m.layout(hints), "\n"), "\n")
	if len(lines) != menuRows {
		t.Fatalf("got %d rows, want %d", len(lines), menuRows)
	}
	// The seventh hint wraps into the second column of the first row.
	if !strings.Contains(lines[0], "<a>") || !strings.Contains(lines[0], "<g>") {
		t.Errorf("row 0 = %q", lines[0])
	}
	if strings.Contains(lines[1], "<g>") {
		t.Errorf("row 1 = %q", lines[1])
	}
}

func TestMenuLayoutEmpty(t *testing.T) {
	m := NewMenu(DefaultTheme())
	if got := m.layout(nil); got != "" {
		t.Errorf("layout(nil) = %q", got)
	}
}
