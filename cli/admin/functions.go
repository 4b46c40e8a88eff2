package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"modpanel/cli/api"
	"modpanel/cli/lint"
	"modpanel/cli/modal"
	"modpanel/cli/notify"
	"modpanel/cli/style"
	"modpanel/cli/upload"
)

type functionsLoadedMsg struct {
	fns []api.FunctionSummary
	err error
}

type functionToggledMsg struct {
	id       int
	approved bool
	res      *api.ToggleResult
	err      error
}

type functionDeletedMsg struct {
	id  int
	ack *api.Ack
	err error
}

type functionRemovedMsg struct{ id int }

type functionCreatedMsg struct{ err error }

type functionUpdatedMsg struct{ err error }

type functionsReloadMsg struct{}

type executionsLoadedMsg struct {
	entries []api.ExecutionEntry
	err     error
}

type functionRow struct {
	api.FunctionSummary
	fading bool
}

// FunctionForm is the create dialog. Code and test cases come from the
// shared upload stager.
type FunctionForm struct {
	Name         textinput.Model
	Description  textinput.Model
	FunctionType textinput.Model
	focus        int
}

func newFunctionForm() *FunctionForm {
	mk := func(placeholder string) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Prompt = "› "
		return ti
	}
	f := &FunctionForm{
		Name:         mk("function name"),
		Description:  mk("description"),
		FunctionType: mk("type: text/code, image or link"),
	}
	f.Name.Focus()
	return f
}

func (f *FunctionForm) inputs() []*textinput.Model {
	return []*textinput.Model{&f.Name, &f.Description, &f.FunctionType}
}

func (f *FunctionForm) FocusNext() {
	in := f.inputs()
	in[f.focus].Blur()
	f.focus = (f.focus + 1) % len(in)
	in[f.focus].Focus()
}

func (f *FunctionForm) Update(msg tea.Msg) tea.Cmd {
	in := f.inputs()[f.focus]
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	return cmd
}

type Functions struct {
	ctx    context.Context
	be     FunctionBackend
	stager *upload.Stager

	list          []functionRow
	cursor        int
	err           string
	pendingDelete int

	Form  *FunctionForm
	Modal *modal.Modal

	executions    []api.ExecutionEntry
	executionsErr string
}

func NewFunctions(ctx context.Context, be FunctionBackend, stager *upload.Stager) *Functions {
	if stager == nil {
		stager = upload.NewStager()
	}
	return &Functions{
		ctx:    ctx,
		be:     be,
		stager: stager,
		Modal:  modal.New("function", modal.EditorExitDelay),
	}
}

func (f *Functions) Load() tea.Cmd {
	ctx, be := f.ctx, f.be
	return func() tea.Msg {
		fns, err := be.Functions(ctx)
		return functionsLoadedMsg{fns: fns, err: err}
	}
}

func (f *Functions) List() []api.FunctionSummary {
	out := make([]api.FunctionSummary, 0, len(f.list))
	for _, r := range f.list {
		out = append(out, r.FunctionSummary)
	}
	return out
}

func (f *Functions) Up() {
	if f.cursor > 0 {
		f.cursor--
	}
}

func (f *Functions) Down() {
	if f.cursor < len(f.list)-1 {
		f.cursor++
	}
}

func (f *Functions) Selected() (api.FunctionSummary, bool) {
	if f.cursor < 0 || f.cursor >= len(f.list) {
		return api.FunctionSummary{}, false
	}
	return f.list[f.cursor].FunctionSummary, true
}

func (f *Functions) row(id int) *functionRow {
	for i := range f.list {
		if f.list[i].ID == id {
			return &f.list[i]
		}
	}
	return nil
}

// Toggle flips approval locally and asks the server to follow. A failed
// request puts the switch back.
func (f *Functions) Toggle(id int) tea.Cmd {
	r := f.row(id)
	if r == nil {
		return nil
	}
	r.Approved = !r.Approved
	approved := r.Approved
	ctx, be := f.ctx, f.be
	return func() tea.Msg {
		res, err := be.ToggleFunction(ctx, id, approved)
		return functionToggledMsg{id: id, approved: approved, res: res, err: err}
	}
}

func (f *Functions) RequestDelete(id int) { f.pendingDelete = id }

func (f *Functions) PendingDelete() int { return f.pendingDelete }

func (f *Functions) CancelDelete() { f.pendingDelete = 0 }

func (f *Functions) ConfirmDelete() tea.Cmd {
	id := f.pendingDelete
	if id == 0 {
		return nil
	}
	f.pendingDelete = 0
	ctx, be := f.ctx, f.be
	return func() tea.Msg {
		ack, err := be.DeleteFunction(ctx, id)
		return functionDeletedMsg{id: id, ack: ack, err: err}
	}
}

// New opens the create dialog.
func (f *Functions) New() tea.Cmd {
	f.Form = newFunctionForm()
	return f.Modal.Show()
}

func (f *Functions) Close() tea.Cmd {
	return f.Modal.Hide()
}

// Create uploads the staged code, plus staged test cases if any.
func (f *Functions) Create() tea.Cmd {
	if f.Form == nil {
		return nil
	}
	code, ok := f.stager.Get(upload.Code)
	if !ok {
		return notify.Send("upload a function code file first", notify.Warning)
	}
	in := api.FunctionInput{
		Name:         strings.TrimSpace(f.Form.Name.Value()),
		Description:  f.Form.Description.Value(),
		FunctionType: f.Form.FunctionType.Value(),
		File:         &api.UploadFile{Name: code.Name, Data: []byte(code.Content)},
	}
	if tc, ok := f.stager.Get(upload.TestCases); ok {
		in.TestCases = tc.Content
	}
	ctx, be := f.ctx, f.be
	return func() tea.Msg {
		_, err := be.CreateFunction(ctx, in)
		return functionCreatedMsg{err: err}
	}
}

// SaveCode replaces function id's code with the staged code file.
func (f *Functions) SaveCode(id int, description string) tea.Cmd {
	code, ok := f.stager.Get(upload.Code)
	if !ok {
		return notify.Send("upload a function code file first", notify.Warning)
	}
	ctx, be := f.ctx, f.be
	return func() tea.Msg {
		return functionUpdatedMsg{err: be.UpdateFunction(ctx, id, code.Content, description)}
	}
}

// Requirements lints the staged code file.
func (f *Functions) Requirements() ([]lint.Requirement, bool) {
	code, ok := f.stager.Get(upload.Code)
	if !ok {
		return nil, false
	}
	return lint.Check(code.Content), true
}

func (f *Functions) LoadExecutions() tea.Cmd {
	ctx, be := f.ctx, f.be
	return func() tea.Msg {
		entries, err := be.Executions(ctx)
		return executionsLoadedMsg{entries: entries, err: err}
	}
}

func (f *Functions) Executions() []api.ExecutionEntry { return f.executions }

func (f *Functions) Update(msg tea.Msg) tea.Cmd {
	f.Modal.Update(msg)

	switch msg := msg.(type) {
	case functionsLoadedMsg:
		if msg.err != nil {
			f.err = api.Message(msg.err)
			return nil
		}
		f.err = ""
		f.list = f.list[:0]
		for _, fn := range msg.fns {
			f.list = append(f.list, functionRow{FunctionSummary: fn})
		}
		if f.cursor >= len(f.list) {
			f.cursor = 0
		}

	case functionsReloadMsg:
		return f.Load()

	case functionToggledMsg:
		r := f.row(msg.id)
		if msg.err != nil {
			if r != nil {
				r.Approved = !msg.approved
			}
			return failure(msg.err, "unknown error")
		}
		if r != nil {
			r.Approved = msg.res.NewStatus
		}
		return notify.Send("function status updated", notify.Success)

	case functionDeletedMsg:
		if msg.err != nil {
			return failure(msg.err, "unknown error")
		}
		if r := f.row(msg.id); r != nil {
			r.fading = true
		}
		text := msg.ack.Message
		if text == "" {
			text = "function deleted"
		}
		return tea.Batch(
			notify.Send(text, notify.Success),
			after(FadeDuration, functionRemovedMsg{id: msg.id}),
		)

	case functionRemovedMsg:
		for i := range f.list {
			if f.list[i].ID == msg.id {
				f.list = append(f.list[:i], f.list[i+1:]...)
				break
			}
		}
		if f.cursor >= len(f.list) && f.cursor > 0 {
			f.cursor = len(f.list) - 1
		}

	case functionCreatedMsg:
		if msg.err != nil {
			return failure(msg.err, "save failed")
		}
		return tea.Batch(
			notify.Send("function saved", notify.Success),
			f.Modal.Hide(),
			after(FunctionReloadDelay, functionsReloadMsg{}),
		)

	case functionUpdatedMsg:
		if msg.err != nil {
			return failure(msg.err, "save failed")
		}
		return notify.Send("function saved", notify.Success)

	case executionsLoadedMsg:
		if msg.err != nil {
			f.executionsErr = api.Message(msg.err)
			return nil
		}
		f.executionsErr = ""
		f.executions = msg.entries
	}
	return nil
}

func (f *Functions) View() string {
	var b strings.Builder
	if f.err != "" {
		b.WriteString(style.ErrorBox.Render("✗ "+f.err) + "\n")
	}
	if len(f.list) == 0 {
		b.WriteString(style.DimText.Render("No functions.") + "\n")
	} else {
		b.WriteString(style.TableHeader.Render(fmt.Sprintf("  %-4s %-24s %-10s %-12s %s", "ID", "FUNCTION", "TYPE", "STATUS", "AUTHOR")) + "\n")
		for i, r := range f.list {
			status := style.Warning.Render(fmt.Sprintf("%-12s", "pending"))
			if r.Approved {
				status = style.Healthy.Render(fmt.Sprintf("%-12s", "approved"))
			}
			line := fmt.Sprintf("  %-4d %-24s %-10s %s %s", r.ID, r.Name, r.FunctionType, status, r.Author)
			switch {
			case r.fading:
				line = style.DimText.Render(line)
			case i == f.cursor:
				line = style.Selected.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}
	if f.pendingDelete != 0 {
		b.WriteString("\n" + style.Warning.Render(fmt.Sprintf(
			"Delete function %d? It is removed from every role. (y/n)", f.pendingDelete)) + "\n")
	}
	if f.Modal.Visible() && f.Form != nil {
		b.WriteString("\n" + f.Modal.Render(f.formView()))
	}
	return b.String()
}

func (f *Functions) formView() string {
	var b strings.Builder
	b.WriteString(style.Title.Render("Create function") + "\n")
	b.WriteString(style.Bold.Render("Name") + "\n" + f.Form.Name.View() + "\n\n")
	b.WriteString(style.Bold.Render("Description") + "\n" + f.Form.Description.View() + "\n\n")
	b.WriteString(style.Bold.Render("Type") + "\n" + f.Form.FunctionType.View() + "\n\n")

	code, ok := f.stager.Get(upload.Code)
	if ok {
		b.WriteString(style.Key.Render("Code") + style.Val.Render(code.Name) + "\n")
		reqs, _ := f.Requirements()
		b.WriteString(lint.Render(reqs))
	} else {
		b.WriteString(style.Key.Render("Code") + style.DimText.Render("not uploaded") + "\n")
	}
	if tc, ok := f.stager.Get(upload.TestCases); ok {
		b.WriteString(style.Key.Render("Test cases") + style.Val.Render(tc.Name) + "\n")
	}
	return b.String()
}

// ExecutionsView renders the recent executions table.
func (f *Functions) ExecutionsView() string {
	var b strings.Builder
	if f.executionsErr != "" {
		b.WriteString(style.ErrorBox.Render("✗ "+f.executionsErr) + "\n")
	}
	if len(f.executions) == 0 {
		b.WriteString(style.DimText.Render("No executions yet.") + "\n")
		return b.String()
	}
	b.WriteString(style.TableHeader.Render(fmt.Sprintf("  %-2s %-20s %-22s %s", "", "FUNCTION", "WHEN", "RESULT")) + "\n")
	for _, e := range f.executions {
		dot := style.StatusDot(e.Success)
		result := e.Result
		if len(result) > 60 {
			result = result[:57] + "..."
		}
		b.WriteString(fmt.Sprintf("  %s  %-20s %-22s %s\n", dot, e.Function.Name, e.At, result))
	}
	return b.String()
}
