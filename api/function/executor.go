// Package function simulates running uploaded functions. Code is checked
// for shape but never interpreted: echo functions return their arguments
// and detect functions return a fixed detection for the uploaded image.
package function

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"modpanel/api/model"
	"modpanel/cli/lint"
)

var allowedExt = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "txt": true, "py": true, "json": true,
}

// Upload is one file received with an execution.
type Upload struct {
	Name string
	Data []byte
}

type Executor struct {
	files FileStore
}

// NewExecutor keeps uploads in files, or in memory when files is nil.
func NewExecutor(files FileStore) *Executor {
	if files == nil {
		files = NewMemoryFiles()
	}
	return &Executor{files: files}
}

// CheckUpload rejects file names whose extension is not allowed.
func CheckUpload(name string) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !allowedExt[ext] {
		return fmt.Errorf("file type not allowed: %s", name)
	}
	return nil
}

// Run executes fn with args. Uploaded files are kept and listed in the
// "img_paths" argument, relative to the upload root.
func (e *Executor) Run(ctx context.Context, fn model.Function, args map[string]any, uploads []Upload) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	var paths []string
	for _, u := range uploads {
		if err := CheckUpload(u.Name); err != nil {
			return nil, err
		}
		p := path.Join(string(fn.Kind), filepath.Base(u.Name))
		if err := e.files.Put(ctx, p, u.Data); err != nil {
			return nil, fmt.Errorf("store upload: %w", err)
		}
		paths = append(paths, p)
	}
	if len(paths) > 0 {
		args["img_paths"] = paths
	}

	switch fn.Kind {
	case model.KindDetect:
		if len(paths) == 0 {
			return nil, errors.New("no image uploaded")
		}
		out := path.Join(string(fn.Kind), "result_"+path.Base(paths[0]))
		if err := e.files.Put(ctx, out, uploads[0].Data); err != nil {
			return nil, fmt.Errorf("store result: %w", err)
		}
		return map[string]any{
			"detected_objects": []map[string]any{
				{"class": "cat", "confidence": 0.973},
				{"class": "dog", "confidence": 0.412},
			},
			"output_image": out,
		}, nil
	default:
		return args, nil
	}
}

// File returns a stored upload by its path under the upload root.
func (e *Executor) File(ctx context.Context, p string) ([]byte, error) {
	return e.files.Get(ctx, path.Clean(p))
}

// Prune drops uploads stored before the cutoff.
func (e *Executor) Prune(ctx context.Context, before time.Time) (int, error) {
	return e.files.Prune(ctx, before)
}

// Validate checks that code has the Function class shape. Test runs only
// need execute; uploads also need interactionUser.
func Validate(code string, needInteraction bool) error {
	if strings.TrimSpace(code) == "" {
		return errors.New("function code is missing")
	}
	for _, r := range lint.Check(code) {
		if r.Met {
			continue
		}
		if !needInteraction && strings.Contains(r.Name, "interactionUser") {
			continue
		}
		return fmt.Errorf("code check failed: %s", r.Name)
	}
	return nil
}

type Case struct {
	Input    json.RawMessage `json:"input"`
	Expected json.RawMessage `json:"expected,omitempty"`
}

type Outcome struct {
	Input    json.RawMessage `json:"input"`
	Expected json.RawMessage `json:"expected,omitempty"`
	Output   json.RawMessage `json:"output"`
	Passed   bool            `json:"passed"`
	Error    string          `json:"error,omitempty"`
}

type Stats struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Test runs each case against the echo semantics: the output is the input,
// and a case passes when it has no expectation or the expectation equals it.
func Test(code string, cases []Case) ([]Outcome, Stats, error) {
	if err := Validate(code, false); err != nil {
		return nil, Stats{}, err
	}
	results := make([]Outcome, 0, len(cases))
	var stats Stats
	for _, c := range cases {
		input := c.Input
		if len(input) == 0 || string(input) == "null" {
			input = json.RawMessage(`{}`)
		}
		o := Outcome{Input: input, Output: input, Expected: c.Expected}
		if isAbsent(c.Expected) {
			o.Expected = nil
			o.Passed = true
		} else {
			eq, err := sameJSON(c.Expected, input)
			if err != nil {
				o.Output = json.RawMessage(`null`)
				o.Error = err.Error()
			}
			o.Passed = eq
		}
		results = append(results, o)
		stats.Total++
		if o.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
	}
	return results, stats, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func sameJSON(a, b json.RawMessage) (bool, error) {
	var x, y any
	if err := json.Unmarshal(a, &x); err != nil {
		return false, fmt.Errorf("expected: %w", err)
	}
	if err := json.Unmarshal(b, &y); err != nil {
		return false, fmt.Errorf("input: %w", err)
	}
	return reflect.DeepEqual(x, y), nil
}

// Healthy reports whether the file store is reachable. Stores without a
// health check are always healthy.
func (e *Executor) Healthy(ctx context.Context) error {
	if hc, ok := e.files.(interface{ Healthy(context.Context) error }); ok {
		return hc.Healthy(ctx)
	}
	return nil
}
