package admin

import (
	"strings"

	"modpanel/cli/style"
)

type Option struct {
	ID    int
	Label string
}

// MultiSelect is a list of options with a deduplicated, ordered selection.
type MultiSelect struct {
	options []Option
	chosen  []int
	cursor  int
}

func (m *MultiSelect) SetOptions(opts []Option) {
	m.options = opts
	if m.cursor >= len(opts) {
		m.cursor = 0
	}
}

// Set replaces the selection, dropping duplicates.
func (m *MultiSelect) Set(ids []int) {
	m.chosen = nil
	for _, id := range ids {
		m.Add(id)
	}
}

// Add appends id unless it is already chosen. It reports whether id was added.
func (m *MultiSelect) Add(id int) bool {
	if m.Has(id) {
		return false
	}
	m.chosen = append(m.chosen, id)
	return true
}

func (m *MultiSelect) Remove(id int) {
	for i, c := range m.chosen {
		if c == id {
			m.chosen = append(m.chosen[:i], m.chosen[i+1:]...)
			return
		}
	}
}

func (m *MultiSelect) Has(id int) bool {
	for _, c := range m.chosen {
		if c == id {
			return true
		}
	}
	return false
}

func (m *MultiSelect) Chosen() []int {
	out := make([]int, len(m.chosen))
	copy(out, m.chosen)
	return out
}

func (m *MultiSelect) Up() {
	if m.cursor > 0 {
		m.cursor--
	}
}

func (m *MultiSelect) Down() {
	if m.cursor < len(m.options)-1 {
		m.cursor++
	}
}

// Current is the option under the cursor.
func (m *MultiSelect) Current() (Option, bool) {
	if m.cursor < 0 || m.cursor >= len(m.options) {
		return Option{}, false
	}
	return m.options[m.cursor], true
}

func (m *MultiSelect) label(id int) string {
	for _, o := range m.options {
		if o.ID == id {
			return o.Label
		}
	}
	return ""
}

// ChosenLabels names the selection in order. Unknown ids are skipped.
func (m *MultiSelect) ChosenLabels() []string {
	var out []string
	for _, id := range m.chosen {
		if l := m.label(id); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (m *MultiSelect) View(focused bool) string {
	var b strings.Builder
	chosen := m.ChosenLabels()
	if len(chosen) == 0 {
		b.WriteString(style.DimText.Render("none selected"))
	} else {
		for i, l := range chosen {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(style.RoleBadge.Render(l))
		}
	}
	b.WriteString("\n")
	for i, o := range m.options {
		mark := "  "
		if m.Has(o.ID) {
			mark = "✓ "
		}
		line := mark + o.Label
		if focused && i == m.cursor {
			line = style.Selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
