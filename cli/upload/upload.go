// Package upload stages local files for function creation and test runs.
package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"modpanel/cli/api"
	"modpanel/cli/notify"
	"modpanel/cli/style"
)

type Slot string

const (
	Code      Slot = "code"
	TestCases Slot = "testCases"
)

// File is a staged file's name and text content. Restaging a slot replaces
// the whole value.
type File struct {
	Name    string
	Content string
}

// StagedMsg carries the outcome of an asynchronous read. Token ties it to
// the Stage call that produced it.
type StagedMsg struct {
	Slot  Slot
	Token uint64
	File  File
	Err   error
}

type Stager struct {
	files map[Slot]File
	seq   map[Slot]uint64
}

func NewStager() *Stager {
	return &Stager{files: map[Slot]File{}, seq: map[Slot]uint64{}}
}

// Stage reads path off the event loop. An empty path does nothing.
func (s *Stager) Stage(slot Slot, path string) tea.Cmd {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if s.seq == nil {
		s.seq = map[Slot]uint64{}
	}
	s.seq[slot]++
	token := s.seq[slot]
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return StagedMsg{Slot: slot, Token: token, Err: err}
		}
		return StagedMsg{
			Slot:  slot,
			Token: token,
			File:  File{Name: filepath.Base(path), Content: string(data)},
		}
	}
}

// Apply stores a staged read and returns the notification announcing it.
// Reads superseded by a later Stage of the same slot are dropped.
func (s *Stager) Apply(msg StagedMsg) tea.Cmd {
	if msg.Token != s.seq[msg.Slot] {
		return nil
	}
	if msg.Err != nil {
		return notify.Send(fmt.Sprintf("could not read file: %v", msg.Err), notify.Error)
	}
	if s.files == nil {
		s.files = map[Slot]File{}
	}
	s.files[msg.Slot] = msg.File
	return notify.Send(fmt.Sprintf("file %q loaded", msg.File.Name), notify.Success)
}

func (s *Stager) Get(slot Slot) (File, bool) {
	f, ok := s.files[slot]
	return f, ok
}

func (s *Stager) Clear(slot Slot) {
	delete(s.files, slot)
}

// View renders a staged file for the file viewer.
func (s *Stager) View(slot Slot) (string, bool) {
	f, ok := s.files[slot]
	if !ok {
		return "", false
	}
	var b strings.Builder
	b.WriteString(style.Bold.Render(f.Name))
	b.WriteString("  ")
	b.WriteString(style.DimText.Render(FormatSize(int64(len(f.Content)))))
	b.WriteString("\n\n")
	b.WriteString(style.CodeBlock.Render(f.Content))
	return b.String(), true
}

type FileInfo struct {
	Name      string
	SizeBytes int64
}

// Preview lists the selected files with their sizes. Paths that cannot be
// stat'ed are left out.
func Preview(paths []string) []FileInfo {
	var out []FileInfo
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fi, err := os.Stat(p)
		if err != nil || fi.IsDir() {
			continue
		}
		out = append(out, FileInfo{Name: fi.Name(), SizeBytes: fi.Size()})
	}
	return out
}

func RenderPreview(files []FileInfo) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range files {
		b.WriteString(fmt.Sprintf("  %s %s\n", f.Name, style.DimText.Render("("+FormatSize(f.SizeBytes)+")")))
	}
	return b.String()
}

// FormatSize renders a byte count in kilobytes with one decimal.
func FormatSize(n int64) string {
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}

// SplitPaths splits a comma separated path list, dropping blanks.
func SplitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads each path into an upload part.
func Load(paths []string) ([]api.UploadFile, error) {
	var files []api.UploadFile
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, api.UploadFile{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}
