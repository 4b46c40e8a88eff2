package selector

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"modpanel/cli/api"
	"modpanel/cli/style"
	"modpanel/cli/upload"
)

// Field is one named argument input.
type Field struct {
	Name  string
	Label string
	Input textinput.Model
}

// FileField accepts a comma separated list of local paths.
type FileField struct {
	Accept   string
	Multiple bool
	Input    textinput.Model

	// preview is stat'ed when the value changes, not on every render.
	seen    string
	preview []upload.FileInfo
}

// Form holds the inputs generated from a function's usage, in usage order,
// with the optional file field last.
type Form struct {
	Fields []Field
	File   *FileField
	focus  int
}

func NewForm(in api.Interaction) *Form {
	f := &Form{}
	for _, p := range in.Usage {
		ti := textinput.New()
		ti.Placeholder = "enter " + p.Name
		ti.Prompt = "› "
		ti.CharLimit = 4096
		f.Fields = append(f.Fields, Field{Name: p.Name, Label: p.Prompt, Input: ti})
	}
	if fu := in.FileUpload; fu != nil && fu.Allowed {
		ti := textinput.New()
		ti.Prompt = "› "
		ti.Placeholder = "path to file"
		if fu.Multiple {
			ti.Placeholder = "paths, comma separated"
		}
		f.File = &FileField{
			Accept:   strings.Join(fu.Types, ","),
			Multiple: fu.Multiple,
			Input:    ti,
		}
	}
	return f
}

func (f *Form) Len() int {
	n := len(f.Fields)
	if f.File != nil {
		n++
	}
	return n
}

// Focus moves input focus to the i-th input, wrapping around.
func (f *Form) Focus(i int) tea.Cmd {
	n := f.Len()
	if n == 0 {
		return nil
	}
	i = ((i % n) + n) % n
	f.focus = i
	var cmd tea.Cmd
	for j := range f.Fields {
		if j == i {
			cmd = f.Fields[j].Input.Focus()
		} else {
			f.Fields[j].Input.Blur()
		}
	}
	if f.File != nil {
		if i == len(f.Fields) {
			cmd = f.File.Input.Focus()
		} else {
			f.File.Input.Blur()
		}
	}
	return cmd
}

func (f *Form) Next() tea.Cmd { return f.Focus(f.focus + 1) }
func (f *Form) Prev() tea.Cmd { return f.Focus(f.focus - 1) }

// Set fills the named argument. It reports whether the field exists.
func (f *Form) Set(name, value string) bool {
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			f.Fields[i].Input.SetValue(value)
			return true
		}
	}
	return false
}

// SetFiles fills the file field. It is a no-op when the form takes no files.
func (f *Form) SetFiles(paths ...string) {
	if f.File == nil {
		return
	}
	if !f.File.Multiple && len(paths) > 1 {
		paths = paths[:1]
	}
	f.File.Input.SetValue(strings.Join(paths, ", "))
	f.refreshPreview()
}

func (f *Form) refreshPreview() {
	if f.File == nil || f.File.Input.Value() == f.File.seen {
		return
	}
	f.File.seen = f.File.Input.Value()
	f.File.preview = upload.Preview(f.FilePaths())
}

// Preview is the size listing for the current file paths.
func (f *Form) Preview() []upload.FileInfo {
	if f.File == nil {
		return nil
	}
	return f.File.preview
}

// Args collects every non-file field, keyed by name.
func (f *Form) Args() map[string]string {
	args := make(map[string]string, len(f.Fields))
	for _, fl := range f.Fields {
		args[fl.Name] = fl.Input.Value()
	}
	return args
}

func (f *Form) FilePaths() []string {
	if f.File == nil {
		return nil
	}
	paths := upload.SplitPaths(f.File.Input.Value())
	if !f.File.Multiple && len(paths) > 1 {
		paths = paths[:1]
	}
	return paths
}

// Update forwards key input to the focused field.
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case f.focus < len(f.Fields):
		f.Fields[f.focus].Input, cmd = f.Fields[f.focus].Input.Update(msg)
	case f.File != nil:
		f.File.Input, cmd = f.File.Input.Update(msg)
		f.refreshPreview()
	}
	return cmd
}

func (f *Form) View() string {
	var b strings.Builder
	for _, fl := range f.Fields {
		label := fl.Label
		if label == "" {
			label = fl.Name
		}
		b.WriteString(style.Bold.Render(label))
		b.WriteString("\n")
		b.WriteString(fl.Input.View())
		b.WriteString("\n\n")
	}
	if f.File != nil {
		label := "File"
		if f.File.Multiple {
			label = "Files"
		}
		if f.File.Accept != "" {
			label += style.DimText.Render(fmt.Sprintf(" (%s)", f.File.Accept))
		}
		b.WriteString(style.Bold.Render(label))
		b.WriteString("\n")
		b.WriteString(f.File.Input.View())
		b.WriteString("\n")
		b.WriteString(upload.RenderPreview(f.File.preview))
	}
	return b.String()
}
