package panel

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Leave   key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Dismiss key.Binding

	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	Back      key.Binding
	NextField key.Binding
	PrevField key.Binding

	Run     key.Binding
	Image   key.Binding
	Refresh key.Binding
	Search  key.Binding
	Popover key.Binding

	New     key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Toggle  key.Binding
	Add     key.Binding
	Remove  key.Binding
	Save    key.Binding
	Admin   key.Binding

	StageCode  key.Binding
	StageCases key.Binding
	ViewCode   key.Binding
	Close      key.Binding

	SwitchMode key.Binding
	Logout     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Leave:   key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		NextTab: key.NewBinding(key.WithKeys("ctrl+n", "ctrl+right"), key.WithHelp("ctrl+n", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("ctrl+p", "ctrl+left"), key.WithHelp("ctrl+p", "prev tab")),
		Dismiss: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "dismiss")),

		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),

		Run:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "run")),
		Image:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "image")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Popover: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "details")),

		New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:  key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete")),
		Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
		Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "approve")),
		Add:     key.NewBinding(key.WithKeys("a", " "), key.WithHelp("a", "add")),
		Remove:  key.NewBinding(key.WithKeys("d", "backspace"), key.WithHelp("d", "remove")),
		Save:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Admin:   key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "admin flag")),

		StageCode:  key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "load code")),
		StageCases: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "load cases")),
		ViewCode:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view code")),
		Close:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "close report")),

		SwitchMode: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "login/register")),
		Logout:     key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "log out")),
	}
}
