package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keyboard shortcuts of the table.
type KeyMap struct {
	// Browsing
	Up        key.Binding
	Down      key.Binding
	Edit      key.Binding
	CancelAll key.Binding
	Quit      key.Binding

	// Editing
	RowUp     key.Binding
	RowDown   key.Binding
	NextField key.Binding
	PrevField key.Binding
	Save      key.Binding
	Cancel    key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter", "e"),
			key.WithHelp("enter/e", "edit row"),
		),
		CancelAll: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "cancel all edits"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		RowUp: key.NewBinding(
			key.WithKeys("ctrl+up", "alt+k"),
			key.WithHelp("ctrl+↑/alt+k", "edit row above"),
		),
		RowDown: key.NewBinding(
			key.WithKeys("ctrl+down", "alt+j"),
			key.WithHelp("ctrl+↓/alt+j", "edit row below"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

func (k KeyMap) browseHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Edit, k.CancelAll, k.Quit}
}

func (k KeyMap) editHelp() []key.Binding {
	return []key.Binding{k.NextField, k.PrevField, k.RowUp, k.RowDown, k.Save, k.Cancel}
}
