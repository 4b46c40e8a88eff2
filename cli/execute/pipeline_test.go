package execute

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"modpanel/cli/api"
	"modpanel/cli/selector"
)

type captured struct {
	mu          sync.Mutex
	contentType string
	body        []byte
	arguments   string
	fileNames   []string
	records     []api.ExecutionRecord
}

// fakeBackend answers execute with reply and records what it received.
func fakeBackend(t *testing.T, reply string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/function/7/execute", func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.contentType = r.Header.Get("Content-Type")
		if strings.HasPrefix(c.contentType, "multipart/") {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			c.arguments = r.FormValue("arguments")
			for _, fh := range r.MultipartForm.File["files"] {
				c.fileNames = append(c.fileNames, fh.Filename)
			}
		} else {
			c.body, _ = io.ReadAll(r.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, reply)
	})
	mux.HandleFunc("/api/function/execution", func(w http.ResponseWriter, r *http.Request) {
		var rec api.ExecutionRecord
		json.NewDecoder(r.Body).Decode(&rec)
		c.mu.Lock()
		c.records = append(c.records, rec)
		c.mu.Unlock()
		io.WriteString(w, `{"success":true}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, c
}

func runDone(t *testing.T, cmd tea.Cmd) doneMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("nil cmd")
	}
	switch msg := cmd().(type) {
	case doneMsg:
		return msg
	case tea.BatchMsg:
		for _, c := range msg {
			if c == nil {
				continue
			}
			if dm, ok := c().(doneMsg); ok {
				return dm
			}
		}
	}
	t.Fatal("no doneMsg produced")
	return doneMsg{}
}

func newForm(names ...string) *selector.Form {
	var usage api.Usage
	for _, n := range names {
		usage = append(usage, api.Param{Name: n, Prompt: n})
	}
	return selector.NewForm(api.Interaction{Usage: usage, FileUpload: &api.FileUpload{Allowed: true, Multiple: true}})
}

func TestExecuteJSONAndObjectResult(t *testing.T) {
	srv, got := fakeBackend(t, `{"success":true,"result":{"y":10}}`)
	p := New(context.Background(), api.New(srv.URL))

	form := newForm("x")
	form.Set("x", "5")
	sel := &selector.Selection{ID: 7, Name: "double"}

	if p.ActionLabel() != "run" {
		t.Errorf("ActionLabel = %q before first run", p.ActionLabel())
	}
	done := runDone(t, p.Execute(sel, form))
	if !p.Running() {
		t.Error("not running while request in flight")
	}
	rec := p.Update(done)

	if got.contentType != "application/json" {
		t.Errorf("Content-Type = %q", got.contentType)
	}
	var body map[string]map[string]string
	if err := json.Unmarshal(got.body, &body); err != nil {
		t.Fatalf("body %s: %v", got.body, err)
	}
	if body["arguments"]["x"] != "5" || len(body) != 1 {
		t.Errorf("body = %s", got.body)
	}

	out := p.Outcome()
	if out == nil || !out.Success || out.Result.Kind != KindObject {
		t.Fatalf("outcome = %+v", out)
	}
	if rows := out.Result.Rows(); len(rows) != 1 || rows[0] != "y: 10" {
		t.Errorf("rows = %q", rows)
	}
	if p.ActionLabel() != "run again" {
		t.Errorf("ActionLabel = %q after run", p.ActionLabel())
	}

	// The save call is fire-and-forget and yields no message.
	if msg := rec(); msg != nil {
		t.Errorf("record produced %T", msg)
	}
	if len(got.records) != 1 {
		t.Fatalf("records = %d, want 1", len(got.records))
	}
	r := got.records[0]
	if r.FunctionID != 7 || r.Arguments["x"] != "5" || r.Result != `{"y":10}` || !r.Success {
		t.Errorf("record = %+v", r)
	}
}

func TestExecuteWithFilesUsesMultipart(t *testing.T) {
	srv, got := fakeBackend(t, `{"success":true,"result":"done"}`)
	p := New(context.Background(), api.New(srv.URL))

	path := filepath.Join(t.TempDir(), "cat.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	form := newForm("threshold")
	form.Set("threshold", "0.5")
	form.SetFiles(path)

	p.Update(runDone(t, p.Execute(&selector.Selection{ID: 7}, form)))

	if !strings.HasPrefix(got.contentType, "multipart/form-data") {
		t.Fatalf("Content-Type = %q", got.contentType)
	}
	if len(got.fileNames) != 1 || got.fileNames[0] != "cat.jpg" {
		t.Errorf("files = %q", got.fileNames)
	}
	var args map[string]string
	if err := json.Unmarshal([]byte(got.arguments), &args); err != nil || args["threshold"] != "0.5" {
		t.Errorf("arguments = %q (%v)", got.arguments, err)
	}

	out := p.Outcome()
	if out.Result.Kind != KindText || out.Result.Text != "done" {
		t.Errorf("result = %+v", out.Result)
	}
}

func TestExecuteFailureReply(t *testing.T) {
	srv, got := fakeBackend(t, `{"success":false,"error":"division by zero"}`)
	p := New(context.Background(), api.New(srv.URL))

	rec := p.Update(runDone(t, p.Execute(&selector.Selection{ID: 7}, newForm())))
	out := p.Outcome()
	if out.Success || out.Error != "division by zero" {
		t.Errorf("outcome = %+v", out)
	}
	if !strings.Contains(p.View(), "division by zero") {
		t.Errorf("view = %q", p.View())
	}

	rec()
	if len(got.records) != 1 || got.records[0].Success || got.records[0].Result != "division by zero" {
		t.Errorf("records = %+v", got.records)
	}
}

func TestExecuteTransportFailure(t *testing.T) {
	srv, _ := fakeBackend(t, `{}`)
	client := api.New(srv.URL)
	srv.Close()

	p := New(context.Background(), client)
	p.Update(runDone(t, p.Execute(&selector.Selection{ID: 7}, newForm())))
	out := p.Outcome()
	if out == nil || out.Success || out.Error == "" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestMissingFileFailsWithoutRequest(t *testing.T) {
	srv, got := fakeBackend(t, `{"success":true,"result":1}`)
	p := New(context.Background(), api.New(srv.URL))

	form := newForm()
	form.SetFiles(filepath.Join(t.TempDir(), "nope.png"))
	p.Update(runDone(t, p.Execute(&selector.Selection{ID: 7}, form)))

	if out := p.Outcome(); out.Success {
		t.Errorf("outcome = %+v", out)
	}
	if got.contentType != "" {
		t.Error("execute endpoint was called")
	}
}

func TestStaleExecutionDiscarded(t *testing.T) {
	srv, _ := fakeBackend(t, `{"success":true,"result":{"n":1}}`)
	p := New(context.Background(), api.New(srv.URL))
	sel := &selector.Selection{ID: 7}

	first := runDone(t, p.Execute(sel, newForm()))
	second := runDone(t, p.Execute(sel, newForm()))

	if cmd := p.Update(first); cmd != nil {
		t.Error("stale reply scheduled a save")
	}
	if p.Outcome() != nil || !p.Running() {
		t.Fatal("stale reply was rendered")
	}
	p.Update(second)
	if p.Outcome() == nil || p.Running() {
		t.Error("latest reply not rendered")
	}
}

func TestDetectionRendersEveryObject(t *testing.T) {
	srv, _ := fakeBackend(t, `{"success":true,"result":{"detected_objects":[
		{"class":"cat","confidence":0.912},
		{"class":"dog","confidence":0.5},
		{"class":"car","confidence":0.0549}
	],"output_image":"out\\run1\\cat.jpg"}}`)
	p := New(context.Background(), api.New(srv.URL))
	p.Update(runDone(t, p.Execute(&selector.Selection{ID: 7}, newForm())))

	res := p.Outcome().Result
	if res.Kind != KindDetection || len(res.Detection.Objects) != 3 {
		t.Fatalf("result = %+v", res)
	}
	view := p.View()
	for _, want := range []string{"Detected objects (3)", "cat", "91.2%", "dog", "50.0%", "car", "5.5%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "/uploads/") {
		t.Error("image path shown before expanding")
	}
	p.ToggleImage()
	if !strings.Contains(p.View(), "/uploads/out/run1/cat.jpg") {
		t.Errorf("expanded view = %q", p.View())
	}
}

func TestExecuteWithoutSelection(t *testing.T) {
	p := New(context.Background(), api.New("http://127.0.0.1:0"))
	if cmd := p.Execute(nil, nil); cmd != nil {
		t.Error("expected nil cmd without a selection")
	}
}
