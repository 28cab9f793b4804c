package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the review key bindings.
type KeyMap struct {
	Left      key.Binding
	Right     key.Binding
	Up        key.Binding
	Down      key.Binding
	Change    key.Binding
	Back      key.Binding
	Ignore    key.Binding
	Unassign  key.Binding
	JumpLeft  key.Binding
	JumpRight key.Binding
	Reset     key.Binding
	Proceed   key.Binding
	Save      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev column")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next column")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Change:    key.NewBinding(key.WithKeys("enter", "c"), key.WithHelp("enter", "change match")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Ignore:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "ignore")),
		Unassign:  key.NewBinding(key.WithKeys("u", "backspace"), key.WithHelp("u", "unassign")),
		JumpLeft:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev unmatched")),
		JumpRight: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next unmatched")),
		Reset:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset")),
		Proceed:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "import")),
		Save:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "save & quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.Change, k.Ignore, k.JumpRight, k.Proceed, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.JumpLeft, k.JumpRight},
		{k.Change, k.Up, k.Down, k.Back},
		{k.Ignore, k.Unassign, k.Reset},
		{k.Proceed, k.Save, k.Help, k.Quit},
	}
}
