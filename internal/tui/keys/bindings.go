package keys

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/tui/ui"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Label       string // key as shown in the menu, e.g. "Enter"
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

func (a *Action) label() string {
	if a.Label != "" {
		return a.Label
	}
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	return tcell.KeyNames[a.Key]
}

type scope struct {
	names   []string
	actions map[string]*Action
}

func (s *scope) add(name string, a *Action) {
	if s.actions == nil {
		s.actions = make(map[string]*Action)
	}
	if _, ok := s.actions[name]; !ok {
		s.names = append(s.names, name)
	}
	s.actions[name] = a
}

func (s *scope) each(fn func(*Action) bool) bool {
	for _, n := range s.names {
		if fn(s.actions[n]) {
			return true
		}
	}
	return false
}

// Registry holds keybindings organized by page. Bindings keep their
// registration order.
type Registry struct {
	global scope
	views  map[string]*scope
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string]*scope)}
}

// AddGlobal registers a global keybinding.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.global.add(name, action)
}

// AddView registers a keybinding for one page.
func (r *Registry) AddView(view, name string, action *Action) {
	s, ok := r.views[view]
	if !ok {
		s = &scope{}
		r.views[view] = s
	}
	s.add(name, action)
}

// Hints returns the visible bindings for a page, page bindings first. A
// page binding hides a global one on the same key.
func (r *Registry) Hints(view string) []ui.MenuHint {
	var hints []ui.MenuHint
	seen := make(map[string]bool)
	collect := func(a *Action) bool {
		if a.Visible && !seen[a.label()] {
			seen[a.label()] = true
			hints = append(hints, ui.MenuHint{Key: a.label(), Description: a.Description})
		}
		return false
	}
	if s, ok := r.views[view]; ok {
		s.each(collect)
	}
	r.global.each(collect)
	return hints
}

// HandleEvent dispatches a key event to the matching action for view.
// Page bindings shadow global ones. Returns true if a handler matched.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	run := func(a *Action) bool {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
		return false
	}
	if s, ok := r.views[view]; ok && s.each(run) {
		return true
	}
	return r.global.each(run)
}
