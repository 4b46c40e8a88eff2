// Package notify renders transient toast messages.
//
// Components do not hold a Center. They return Send commands, and the panel
// routes the resulting Msg into its single Center, which owns expiry.
package notify

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"modpanel/cli/style"
)

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
	Info    Kind = "info"
)

const (
	AdminDelay   = 5 * time.Second
	LandingDelay = 3 * time.Second
)

// Msg asks the panel's Center to show a toast.
type Msg struct {
	Message string
	Kind    Kind
}

// ExpiredMsg removes the toast with ID once its delay has passed.
type ExpiredMsg struct {
	ID string
}

// Send returns a command that delivers a toast request to the panel.
func Send(message string, kind Kind) tea.Cmd {
	return func() tea.Msg {
		return Msg{Message: message, Kind: kind}
	}
}

type Toast struct {
	ID      string
	Message string
	Kind    Kind
}

// Center is the toast container. The zero value is ready to use.
type Center struct {
	Delay  time.Duration
	toasts []Toast
}

// Notify adds a toast and returns the command that will expire it.
func (c *Center) Notify(message string, kind Kind) tea.Cmd {
	if c == nil {
		return nil
	}
	switch kind {
	case Success, Error, Warning, Info:
	default:
		kind = Info
	}

	delay := c.Delay
	if delay <= 0 {
		delay = AdminDelay
	}

	id := uuid.NewString()
	c.toasts = append(c.toasts, Toast{ID: id, Message: message, Kind: kind})
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ExpiredMsg{ID: id}
	})
}

// Dismiss removes a toast early. It reports whether the toast was present.
func (c *Center) Dismiss(id string) bool {
	if c == nil {
		return false
	}
	for i, t := range c.toasts {
		if t.ID == id {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// DismissNewest removes the most recent toast, if any.
func (c *Center) DismissNewest() bool {
	if c == nil || len(c.toasts) == 0 {
		return false
	}
	return c.Dismiss(c.toasts[len(c.toasts)-1].ID)
}

// Update consumes toast messages. The bool is false for messages that are not
// meant for the center.
func (c *Center) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case Msg:
		return c.Notify(msg.Message, msg.Kind), true
	case ExpiredMsg:
		c.Dismiss(msg.ID)
		return nil, true
	}
	return nil, false
}

func (c *Center) Toasts() []Toast {
	if c == nil {
		return nil
	}
	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

func (c *Center) View() string {
	if c == nil || len(c.toasts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range c.toasts {
		b.WriteString(render(t))
		b.WriteString("\n")
	}
	return b.String()
}

func render(t Toast) string {
	switch t.Kind {
	case Success:
		return style.Healthy.Render("✓ ") + t.Message
	case Error:
		return style.Unhealthy.Render("✗ ") + t.Message
	case Warning:
		return style.Warning.Render("! ") + t.Message
	default:
		return style.Info.Render("i ") + t.Message
	}
}
