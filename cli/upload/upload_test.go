package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modpanel/cli/notify"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestStageEmptyPathIsNoop(t *testing.T) {
	s := NewStager()
	if cmd := s.Stage(Code, "  "); cmd != nil {
		t.Error("expected nil cmd for empty path")
	}
	if _, ok := s.Get(Code); ok {
		t.Error("slot populated without a file")
	}
}

func TestStageAndApply(t *testing.T) {
	p := writeFile(t, "fn.py", "class Function:\n    pass\n")
	s := NewStager()

	msg := s.Stage(Code, p)().(StagedMsg)
	if msg.Err != nil {
		t.Fatal(msg.Err)
	}
	n := s.Apply(msg)().(notify.Msg)
	if n.Kind != notify.Success || !strings.Contains(n.Message, "fn.py") {
		t.Errorf("notification = %+v", n)
	}

	f, ok := s.Get(Code)
	if !ok {
		t.Fatal("code slot empty")
	}
	if f.Name != "fn.py" || !strings.HasPrefix(f.Content, "class Function") {
		t.Errorf("file = %+v", f)
	}
}

func TestRestageReplacesWholeFile(t *testing.T) {
	s := NewStager()
	s.Apply(StagedMsg{Slot: TestCases, File: File{Name: "a.json", Content: "[1]"}})
	s.Apply(StagedMsg{Slot: TestCases, File: File{Name: "b.yaml", Content: "- 2"}})

	f, _ := s.Get(TestCases)
	if f.Name != "b.yaml" || f.Content != "- 2" {
		t.Errorf("file = %+v", f)
	}
}

func TestApplyReadError(t *testing.T) {
	s := NewStager()
	msg := s.Stage(Code, filepath.Join(t.TempDir(), "missing.py"))().(StagedMsg)
	if msg.Err == nil {
		t.Fatal("expected read error")
	}
	n := s.Apply(msg)().(notify.Msg)
	if n.Kind != notify.Error {
		t.Errorf("Kind = %q, want error", n.Kind)
	}
	if _, ok := s.Get(Code); ok {
		t.Error("failed read populated slot")
	}
}

func TestZeroStagerApply(t *testing.T) {
	var s Stager
	s.Apply(StagedMsg{Slot: Code, File: File{Name: "x", Content: "y"}})
	if _, ok := s.Get(Code); !ok {
		t.Error("zero stager dropped file")
	}
}

func TestView(t *testing.T) {
	s := NewStager()
	if _, ok := s.View(Code); ok {
		t.Error("view of empty slot reported ok")
	}
	s.Apply(StagedMsg{Slot: Code, File: File{Name: "fn.py", Content: "def execute(self): pass"}})
	out, ok := s.View(Code)
	if !ok || !strings.Contains(out, "def execute") {
		t.Errorf("view = %q", out)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0.0 KB"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{100, "0.1 KB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.n); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	a := writeFile(t, "a.png", strings.Repeat("x", 2048))
	infos := Preview([]string{a, "", filepath.Join(t.TempDir(), "gone.png")})
	if len(infos) != 1 {
		t.Fatalf("got %d entries, want 1", len(infos))
	}
	if infos[0].Name != "a.png" || infos[0].SizeBytes != 2048 {
		t.Errorf("info = %+v", infos[0])
	}
	if !strings.Contains(RenderPreview(infos), "2.0 KB") {
		t.Errorf("preview = %q", RenderPreview(infos))
	}
}

func TestSplitPaths(t *testing.T) {
	got := SplitPaths(" a.png, ,b.png ")
	if len(got) != 2 || got[0] != "a.png" || got[1] != "b.png" {
		t.Errorf("SplitPaths = %q", got)
	}
}

func TestLoad(t *testing.T) {
	p := writeFile(t, "img.jpg", "data")
	files, err := Load([]string{p})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "img.jpg" || string(files[0].Data) != "data" {
		t.Errorf("files = %+v", files)
	}
	if _, err := Load([]string{filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSupersededReadDropped(t *testing.T) {
	first := writeFile(t, "old.py", "old")
	second := writeFile(t, "new.py", "new")
	s := NewStager()

	slow := s.Stage(Code, first)
	fast := s.Stage(Code, second)
	testCases := s.Stage(TestCases, first)

	if cmd := s.Apply(fast().(StagedMsg)); cmd == nil {
		t.Fatal("latest read not applied")
	}
	if cmd := s.Apply(slow().(StagedMsg)); cmd != nil {
		t.Errorf("superseded read announced: %+v", cmd())
	}
	if f, _ := s.Get(Code); f.Name != "new.py" {
		t.Errorf("code slot = %+v, want new.py", f)
	}

	// Tokens are per slot.
	if cmd := s.Apply(testCases().(StagedMsg)); cmd == nil {
		t.Error("test cases read dropped")
	}
}
