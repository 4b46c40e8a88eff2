package admin

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"modpanel/cli/style"
)

type popoverExpiredMsg struct {
	name string
	gen  uint64
}

// Popover is a short-lived info card that closes itself after
// PopoverDuration unless replaced first.
type Popover struct {
	name  string
	title string
	lines []string
	open  bool
	gen   uint64
}

func (p *Popover) Show(title string, lines []string) tea.Cmd {
	p.gen++
	p.title, p.lines, p.open = title, lines, true
	return after(PopoverDuration, popoverExpiredMsg{name: p.name, gen: p.gen})
}

func (p *Popover) Close() { p.open = false }

func (p *Popover) Open() bool { return p.open }

func (p *Popover) Update(msg tea.Msg) {
	if m, ok := msg.(popoverExpiredMsg); ok && m.name == p.name && m.gen == p.gen {
		p.open = false
	}
}

func (p *Popover) View() string {
	if !p.open {
		return ""
	}
	var b strings.Builder
	b.WriteString(style.Bold.Render(p.title))
	b.WriteString("\n")
	for _, l := range p.lines {
		b.WriteString("  " + l + "\n")
	}
	return style.CardStyle.Render(strings.TrimRight(b.String(), "\n"))
}
