package ui

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // true for 0-9 shortcuts (displayed in a different color)
}

// Component is the lifecycle interface for the pages on the navigation stack.
type Component interface {
	Name() string
	Init()
	Start()
	Stop()
	Hints() []MenuHint
}

// Crumb is one entry of the breadcrumb trail. Page is the key the call
// coordinator knows the screen by; Label is what the user sees.
type Crumb struct {
	Page  string
	Label string
}

// Trail labels a page stack with its components' names. Pages without a
// component, such as overlays, keep their key as label.
func Trail(stack []string, components map[string]Component) []Crumb {
	trail := make([]Crumb, len(stack))
	for i, page := range stack {
		trail[i] = Crumb{Page: page, Label: page}
		if c, ok := components[page]; ok {
			trail[i].Label = c.Name()
		}
	}
	return trail
}
