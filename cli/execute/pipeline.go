// Package execute runs a selected function with the arguments from its form
// and renders the outcome.
package execute

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"modpanel/cli/api"
	"modpanel/cli/selector"
	"modpanel/cli/style"
	"modpanel/cli/upload"
)

// Runner is the part of the backend client the pipeline needs.
type Runner interface {
	Execute(ctx context.Context, id int, args map[string]string, files []api.UploadFile) (*api.ExecuteResponse, error)
	RecordExecution(ctx context.Context, rec api.ExecutionRecord) error
}

// Outcome is either a decoded result or an error message.
type Outcome struct {
	Success bool
	Result  Result
	Error   string
}

type doneMsg struct {
	token   uint64
	funcID  int
	args    map[string]string
	outcome Outcome
	raw     json.RawMessage
}

type Pipeline struct {
	ctx     context.Context
	runner  Runner
	spinner spinner.Model

	token    uint64
	running  bool
	ran      bool
	expanded bool
	outcome  *Outcome
}

func New(ctx context.Context, r Runner) *Pipeline {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.Primary)
	return &Pipeline{ctx: ctx, runner: r, spinner: s}
}

// Execute clears the previous result and runs sel with the form's values.
// Files named in the form switch the request to multipart.
func (p *Pipeline) Execute(sel *selector.Selection, form *selector.Form) tea.Cmd {
	if sel == nil || form == nil {
		return nil
	}
	p.token++
	p.running = true
	p.outcome = nil
	p.expanded = false

	token, ctx, r := p.token, p.ctx, p.runner
	id := sel.ID
	args := form.Args()
	paths := form.FilePaths()

	run := func() tea.Msg {
		out, raw := Run(ctx, r, id, args, paths)
		return doneMsg{token: token, funcID: id, args: args, outcome: out, raw: raw}
	}
	return tea.Batch(p.spinner.Tick, run)
}

// Run executes function id once, reading the named files first. It is the
// blocking half of Execute.
func Run(ctx context.Context, r Runner, id int, args map[string]string, paths []string) (Outcome, json.RawMessage) {
	files, err := upload.Load(paths)
	if err != nil {
		return Outcome{Error: err.Error()}, nil
	}
	resp, err := r.Execute(ctx, id, args, files)
	switch {
	case err != nil:
		return Outcome{Error: api.Message(err)}, nil
	case !resp.Success:
		msg := resp.Error
		if msg == "" {
			msg = "execution failed"
		}
		return Outcome{Error: msg}, nil
	}
	return Outcome{Success: true, Result: DecodeResult(resp.Result)}, resp.Result
}

// NewRecord builds the history entry for one execution.
func NewRecord(funcID int, args map[string]string, out Outcome, raw json.RawMessage) api.ExecutionRecord {
	rec := api.ExecutionRecord{
		FunctionID: funcID,
		Arguments:  args,
		Success:    out.Success,
	}
	if out.Success {
		rec.Result = RecordText(raw)
	} else {
		rec.Result = out.Error
	}
	return rec
}

func (p *Pipeline) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !p.running {
			return nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return cmd

	case doneMsg:
		if msg.token != p.token {
			return nil
		}
		p.running = false
		p.ran = true
		out := msg.outcome
		p.outcome = &out
		return p.record(msg)
	}
	return nil
}

// record stores the execution in the background. Failures only reach the log.
func (p *Pipeline) record(msg doneMsg) tea.Cmd {
	rec := NewRecord(msg.funcID, msg.args, msg.outcome, msg.raw)
	ctx, r := p.ctx, p.runner
	return func() tea.Msg {
		if err := r.RecordExecution(ctx, rec); err != nil {
			log.Warn().Err(err).Int("function_id", rec.FunctionID).Msg("save execution failed")
			return nil
		}
		log.Debug().Int("function_id", rec.FunctionID).Bool("success", rec.Success).Msg("execution saved")
		return nil
	}
}

// ToggleImage expands or collapses the detection image line.
func (p *Pipeline) ToggleImage() {
	p.expanded = !p.expanded
}

func (p *Pipeline) Running() bool     { return p.running }
func (p *Pipeline) Outcome() *Outcome { return p.outcome }

// ActionLabel is the text of the run key hint.
func (p *Pipeline) ActionLabel() string {
	if p.ran {
		return "run again"
	}
	return "run"
}

func (p *Pipeline) View() string {
	if p.running {
		return p.spinner.View() + style.DimText.Render(" Running...")
	}
	if p.outcome == nil {
		return ""
	}
	var b strings.Builder
	if p.outcome.Success {
		b.WriteString(style.StepDone.Render("Result:"))
		b.WriteString("\n")
		b.WriteString(p.outcome.Result.Render(p.expanded))
	} else {
		b.WriteString(style.StepFailed.Render("Execution error:"))
		b.WriteString("\n")
		b.WriteString(p.outcome.Error)
	}
	return b.String()
}
