// Package modal drives the show/hide lifecycle of dialog overlays.
//
// A modal moves Closed → Opening → Open → Closing → Closed. Each transition
// bumps a generation counter and schedules at most one timer; a timer that
// fires after a newer transition carries a stale generation and is dropped.
package modal

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"modpanel/cli/style"
)

type State int

const (
	Closed State = iota
	Opening
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return "closed"
	}
}

const (
	EnterDelay = 10 * time.Millisecond

	DefaultExitDelay = 450 * time.Millisecond
	EditorExitDelay  = 300 * time.Millisecond
)

// TickMsg completes a pending transition.
type TickMsg struct {
	Name string
	Gen  uint64
	To   State
}

type Modal struct {
	Name      string
	ExitDelay time.Duration

	state State
	gen   uint64
}

func New(name string, exitDelay time.Duration) *Modal {
	if exitDelay <= 0 {
		exitDelay = DefaultExitDelay
	}
	return &Modal{Name: name, ExitDelay: exitDelay}
}

// Show makes the modal visible now and enters it on the next tick.
func (m *Modal) Show() tea.Cmd {
	if m.state == Opening || m.state == Open {
		return nil
	}
	m.state = Opening
	return m.schedule(EnterDelay, Open)
}

// Hide starts the exit transition now and hides the modal after ExitDelay.
func (m *Modal) Hide() tea.Cmd {
	if m.state == Closed || m.state == Closing {
		return nil
	}
	m.state = Closing
	delay := m.ExitDelay
	if delay <= 0 {
		delay = DefaultExitDelay
	}
	return m.schedule(delay, Closed)
}

func (m *Modal) schedule(d time.Duration, to State) tea.Cmd {
	m.gen++
	name, gen := m.Name, m.gen
	return tea.Tick(d, func(time.Time) tea.Msg {
		return TickMsg{Name: name, Gen: gen, To: to}
	})
}

// Update applies a TickMsg addressed to this modal. It reports whether the
// message was addressed here, stale or not.
func (m *Modal) Update(msg tea.Msg) bool {
	t, ok := msg.(TickMsg)
	if !ok || t.Name != m.Name {
		return false
	}
	if t.Gen == m.gen {
		m.state = t.To
	}
	return true
}

func (m *Modal) State() State { return m.state }

func (m *Modal) Visible() bool { return m.state != Closed }

// Entered reports whether the modal is fully shown and accepts input.
func (m *Modal) Entered() bool { return m.state == Open }

// Render frames content according to the current state.
func (m *Modal) Render(content string) string {
	switch m.state {
	case Closed:
		return ""
	case Open:
		return style.ModalStyle.Render(content)
	default:
		return style.ModalFaded.Render(content)
	}
}
