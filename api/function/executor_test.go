package function

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"modpanel/api/model"
)

const goodCode = `class Function:
    def interactionUser(self):
        return {"description": "x", "usage": {}}

    def execute(self, args):
        return args
`

func TestValidate(t *testing.T) {
	if err := Validate(goodCode, true); err != nil {
		t.Errorf("good code rejected: %v", err)
	}
	if err := Validate("  ", false); err == nil || !strings.Contains(err.Error(), "missing") {
		t.Errorf("empty code: err = %v", err)
	}
	noInteraction := "class Function:\n    def execute(self, args):\n        return args\n"
	if err := Validate(noInteraction, false); err != nil {
		t.Errorf("test run should not need interactionUser: %v", err)
	}
	if err := Validate(noInteraction, true); err == nil || !strings.Contains(err.Error(), "interactionUser") {
		t.Errorf("upload without interactionUser: err = %v", err)
	}
	if err := Validate("def execute(args): pass", false); err == nil || !strings.Contains(err.Error(), "class Function") {
		t.Errorf("missing class: err = %v", err)
	}
}

func TestRunEcho(t *testing.T) {
	e := NewExecutor(nil)
	out, err := e.Run(context.Background(), model.Function{Kind: model.KindEcho}, map[string]any{"x": "5"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(out)
	if string(data) != `{"x":"5"}` {
		t.Errorf("result = %s", data)
	}
}

func TestRunDetect(t *testing.T) {
	e := NewExecutor(nil)
	fn := model.Function{Kind: model.KindDetect}

	if _, err := e.Run(context.Background(), fn, nil, nil); err == nil {
		t.Error("detect without an image should fail")
	}
	if _, err := e.Run(context.Background(), fn, nil, []Upload{{Name: "evil.exe", Data: []byte("x")}}); err == nil {
		t.Error("disallowed extension accepted")
	}

	out, err := e.Run(context.Background(), fn, nil, []Upload{{Name: "cat.jpg", Data: []byte("jpeg")}})
	if err != nil {
		t.Fatal(err)
	}
	res := out.(map[string]any)
	if res["output_image"] != "detect/result_cat.jpg" {
		t.Errorf("output_image = %v", res["output_image"])
	}
	if data, err := e.File(context.Background(), "detect/result_cat.jpg"); err != nil || string(data) != "jpeg" {
		t.Errorf("output image not stored: %q %v", data, err)
	}
	if _, err := e.File(context.Background(), "detect/../detect/cat.jpg"); err != nil {
		t.Errorf("upload not stored: %v", err)
	}
}

func TestTestCases(t *testing.T) {
	cases := []Case{
		{Input: json.RawMessage(`{"a":1,"b":2}`), Expected: json.RawMessage(`{"b":2,"a":1}`)},
		{Input: json.RawMessage(`{"a":1}`), Expected: json.RawMessage(`{"a":2}`)},
		{Input: json.RawMessage(`"hi"`)},
		{},
	}
	results, stats, err := Test(goodCode, cases)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (Stats{Total: 4, Passed: 3, Failed: 1}) {
		t.Errorf("stats = %+v", stats)
	}
	if !results[0].Passed || results[1].Passed {
		t.Errorf("passed flags = %v %v", results[0].Passed, results[1].Passed)
	}
	if results[2].Expected != nil {
		t.Errorf("absent expectation echoed as %s", results[2].Expected)
	}
	if string(results[3].Input) != `{}` {
		t.Errorf("missing input = %s, want {}", results[3].Input)
	}
}

func TestTestRejectsBadCode(t *testing.T) {
	if _, _, err := Test("", nil); err == nil {
		t.Error("empty code accepted")
	}
}

func TestMemoryFilesPrune(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryFiles()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Put(ctx, "old.png", []byte("a"))
	now = now.Add(2 * time.Hour)
	m.Put(ctx, "new.png", []byte("b"))

	n, err := m.Prune(ctx, now.Add(-time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
	if _, err := m.Get(ctx, "old.png"); !errors.Is(err, ErrNoFile) {
		t.Errorf("old.png: err = %v, want ErrNoFile", err)
	}
	if data, _ := m.Get(ctx, "new.png"); string(data) != "b" {
		t.Errorf("new.png = %q", data)
	}
}
