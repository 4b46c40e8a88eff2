// Package testrun submits function code with test cases and renders the
// per-case report.
package testrun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"modpanel/cli/api"
	"modpanel/cli/notify"
	"modpanel/cli/style"
)

const notSpecified = "not specified"

type Tester interface {
	TestFunction(ctx context.Context, code string, cases []api.TestCase) (*api.TestResponse, error)
}

// ParseCases reads a test-case file. JSON files parse as YAML too.
func ParseCases(content string) ([]api.TestCase, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	var cases []api.TestCase
	if err := yaml.Unmarshal([]byte(content), &cases); err != nil {
		return nil, fmt.Errorf("parse test cases: %w", err)
	}
	return cases, nil
}

type resultMsg struct {
	token uint64
	resp  *api.TestResponse
	err   error
}

type Runner struct {
	ctx    context.Context
	tester Tester

	token   uint64
	running bool
	report  *Report
}

func New(ctx context.Context, t Tester) *Runner {
	return &Runner{ctx: ctx, tester: t}
}

// Run submits code with cases. Empty code only produces a warning.
func (r *Runner) Run(code string, cases []api.TestCase) tea.Cmd {
	if strings.TrimSpace(code) == "" {
		return notify.Send("upload a function code file first", notify.Warning)
	}
	r.token++
	r.running = true
	token, ctx, t := r.token, r.ctx, r.tester
	return func() tea.Msg {
		resp, err := t.TestFunction(ctx, code, cases)
		return resultMsg{token: token, resp: resp, err: err}
	}
}

func (r *Runner) Update(msg tea.Msg) tea.Cmd {
	m, ok := msg.(resultMsg)
	if !ok || m.token != r.token {
		return nil
	}
	r.running = false
	switch {
	case m.err != nil && api.IsTransport(m.err):
		return notify.Send("network error: "+api.Message(m.err), notify.Error)
	case m.err != nil:
		return notify.Send("error: "+api.Message(m.err), notify.Error)
	case !m.resp.Success:
		if m.resp.Error == "" {
			return notify.Send("test run failed", notify.Error)
		}
		return notify.Send("error: "+m.resp.Error, notify.Error)
	}
	r.report = &Report{Stats: m.resp.Stats, Results: m.resp.Results}
	return nil
}

func (r *Runner) Running() bool   { return r.running }
func (r *Runner) Report() *Report { return r.report }

// Close drops the current report.
func (r *Runner) Close() { r.report = nil }

type Report struct {
	Stats   api.TestStats
	Results []api.TestOutcome
}

// Percentage is the rounded pass rate, 0 for an empty run.
func (r Report) Percentage() int {
	if r.Stats.Total == 0 {
		return 0
	}
	return int(math.Round(float64(r.Stats.Passed) / float64(r.Stats.Total) * 100))
}

// Render draws the stats block and one card per case.
func (r Report) Render() string {
	var b strings.Builder

	b.WriteString(style.Title.Render("Test results"))
	b.WriteString("\n")
	kv := func(k, v string) {
		b.WriteString(style.Key.Render(k))
		b.WriteString(style.Val.Render(v))
		b.WriteString("\n")
	}
	kv("Total", fmt.Sprint(r.Stats.Total))
	kv("Passed", fmt.Sprint(r.Stats.Passed))
	kv("Failed", fmt.Sprint(r.Stats.Failed))
	kv("Success rate", fmt.Sprintf("%d%%", r.Percentage()))
	b.WriteString("\n")

	for i, c := range r.Results {
		b.WriteString(renderCase(i+1, c))
		b.WriteString("\n")
	}
	return b.String()
}

func renderCase(n int, c api.TestOutcome) string {
	var b strings.Builder
	mark, status, card := "✓", style.StepDone.Render("passed"), style.CardPassed
	if !c.Passed {
		mark, status, card = "✗", style.StepFailed.Render("failed"), style.CardFailed
	}
	b.WriteString(style.Bold.Render(fmt.Sprintf("Test #%d %s", n, mark)))
	b.WriteString("  " + status + "\n")

	row := func(label, value string) {
		b.WriteString(style.DimText.Render(label) + "\n")
		b.WriteString(style.CodeBlock.Render(value) + "\n")
	}
	row("Input:", Pretty(c.Input))
	expected := notSpecified
	if !isAbsent(c.Expected) {
		expected = Pretty(c.Expected)
	}
	row("Expected:", expected)
	row("Output:", Pretty(c.Output))
	if c.Error != "" {
		b.WriteString(style.Unhealthy.Render("Error:") + "\n")
		b.WriteString(style.CodeBlock.Render(c.Error) + "\n")
	}
	return card.Render(strings.TrimRight(b.String(), "\n"))
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

// Pretty indents a value by two spaces. A string holding JSON is decoded
// first; any other string is returned as is.
func Pretty(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "null"
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(raw)
		}
		inner := bytes.TrimSpace([]byte(s))
		if len(inner) == 0 || !json.Valid(inner) {
			return s
		}
		raw = inner
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}
