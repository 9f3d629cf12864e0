package ui

import "github.com/charmbracelet/bubbles/key"

// Key bindings
var keys = struct {
	Quit      key.Binding
	NextTab   key.Binding
	Discover  key.Binding
	Saved     key.Binding
	Analytics key.Binding
	Up        key.Binding
	Down      key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Search    key.Binding
	Blur      key.Binding
	Category  key.Binding
	Sort      key.Binding
	Detail    key.Binding
	Save      key.Binding
	Refresh   key.Binding
	More      key.Binding
	Debug     key.Binding
}{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c")),
	NextTab:   key.NewBinding(key.WithKeys("tab")),
	Discover:  key.NewBinding(key.WithKeys("1")),
	Saved:     key.NewBinding(key.WithKeys("2")),
	Analytics: key.NewBinding(key.WithKeys("3")),
	Up:        key.NewBinding(key.WithKeys("k", "up")),
	Down:      key.NewBinding(key.WithKeys("j", "down")),
	Top:       key.NewBinding(key.WithKeys("g", "home")),
	Bottom:    key.NewBinding(key.WithKeys("G", "end")),
	Search:    key.NewBinding(key.WithKeys("/")),
	Blur:      key.NewBinding(key.WithKeys("esc", "enter")),
	Category:  key.NewBinding(key.WithKeys("c")),
	Sort:      key.NewBinding(key.WithKeys("o")),
	Detail:    key.NewBinding(key.WithKeys("enter")),
	Save:      key.NewBinding(key.WithKeys("s")),
	Refresh:   key.NewBinding(key.WithKeys("r")),
	More:      key.NewBinding(key.WithKeys("m", " ")),
	Debug:     key.NewBinding(key.WithKeys("D")),
}
