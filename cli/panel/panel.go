// Package panel is the interactive admin panel: the root bubbletea model that
// owns every component, routes messages between them and binds keys.
package panel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"modpanel/cli/admin"
	"modpanel/cli/api"
	"modpanel/cli/execute"
	"modpanel/cli/lint"
	"modpanel/cli/notify"
	"modpanel/cli/selector"
	"modpanel/cli/style"
	"modpanel/cli/testrun"
	"modpanel/cli/upload"
)

type Tab int

const (
	TabExecute Tab = iota
	TabTest
	TabUsers
	TabRoles
	TabFunctions
	TabExecutions
	TabLogin
	tabCount
)

var tabNames = [tabCount]string{"Execute", "Test", "Users", "Roles", "Functions", "Executions", "Login"}

func (t Tab) String() string {
	if t < 0 || t >= tabCount {
		return "unknown"
	}
	return tabNames[t]
}

// Backend is everything the panel asks of the server. *api.Client
// satisfies it.
type Backend interface {
	selector.Fetcher
	execute.Runner
	testrun.Tester
	admin.UserBackend
	admin.RoleBackend
	admin.FunctionBackend
	admin.AuthBackend
}

type Options struct {
	NotifyDelay    time.Duration
	StatusInterval time.Duration
	StartTab       Tab

	// OnLogin and OnLogout run off the event loop after the session changes.
	OnLogin  func() error
	OnLogout func() error
}

type pathPrompt struct {
	slot  upload.Slot
	input textinput.Model
}

type Model struct {
	ctx  context.Context
	opts Options
	keys keyMap
	help help.Model

	tab           Tab
	width, height int

	center notify.Center
	stager *upload.Stager

	selector  *selector.Selector
	pipeline  *execute.Pipeline
	tests     *testrun.Runner
	users     *admin.Users
	roles     *admin.Roles
	functions *admin.Functions
	auth      *admin.Auth

	pick       int
	formActive bool
	filtering  bool
	filter     textinput.Model
	prompt     *pathPrompt
	showCode   bool
	report     viewport.Model
	reportFor  *testrun.Report
	quitting   bool
}

func New(ctx context.Context, be Backend, opts Options) *Model {
	if opts.NotifyDelay <= 0 {
		opts.NotifyDelay = notify.AdminDelay
	}
	stager := upload.NewStager()
	filter := textinput.New()
	filter.Placeholder = "username, email or role"
	filter.Prompt = "/ "

	m := &Model{
		ctx:       ctx,
		opts:      opts,
		keys:      defaultKeys(),
		help:      help.New(),
		stager:    stager,
		selector:  selector.New(ctx, be),
		pipeline:  execute.New(ctx, be),
		tests:     testrun.New(ctx, be),
		users:     admin.NewUsers(ctx, be, opts.StatusInterval),
		roles:     admin.NewRoles(ctx, be),
		functions: admin.NewFunctions(ctx, be, stager),
		auth:      admin.NewAuth(ctx, be),
		filter:    filter,
		report:    viewport.New(80, 20),
	}
	m.center.Delay = opts.NotifyDelay
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.functions.Load(),
		m.roles.Load(),
		m.setTab(m.opts.StartTab),
	)
}

// Tab is the section on screen.
func (m *Model) Tab() Tab { return m.tab }

func (m *Model) Toasts() []notify.Toast { return m.center.Toasts() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.report.Width = max(msg.Width-4, 20)
		m.report.Height = max(msg.Height-14, 5)
		return m, nil

	case notify.Msg, notify.ExpiredMsg:
		cmd, _ := m.center.Update(msg)
		return m, cmd

	case upload.StagedMsg:
		return m, m.stager.Apply(msg)

	case admin.LoggedInMsg:
		log.Info().Str("next", msg.Next).Msg("logged in")
		return m, tea.Batch(
			hook(m.opts.OnLogin, "saving session failed"),
			m.functions.Load(),
			m.roles.Load(),
			m.setTab(TabExecute),
		)

	case admin.LoggedOutMsg:
		log.Info().Msg("logged out")
		return m, tea.Batch(
			hook(m.opts.OnLogout, "clearing session failed"),
			notify.Send("logged out", notify.Info),
		)

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, m.broadcast(msg)
}

// broadcast hands msg to every component. Each one ignores what is not
// addressed to it.
func (m *Model) broadcast(msg tea.Msg) tea.Cmd {
	cmds := []tea.Cmd{
		m.selector.Update(msg),
		m.pipeline.Update(msg),
		m.tests.Update(msg),
		m.users.Update(msg),
		m.roles.Update(msg),
		m.functions.Update(msg),
		m.auth.Update(msg),
	}
	m.syncReport()
	return tea.Batch(cmds...)
}

func (m *Model) syncReport() {
	r := m.tests.Report()
	if r == m.reportFor {
		return
	}
	m.reportFor = r
	if r != nil {
		m.report.SetContent(r.Render())
		m.report.GotoTop()
	}
}

func hook(f func() error, failed string) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		if err := f(); err != nil {
			log.Warn().Err(err).Msg(failed)
		}
		return nil
	}
}

func (m *Model) setTab(t Tab) tea.Cmd {
	m.tab = t
	m.center.Delay = m.opts.NotifyDelay
	if t == TabLogin {
		m.center.Delay = notify.LandingDelay
	}
	cmds := []tea.Cmd{m.users.SetVisible(t == TabUsers)}
	switch t {
	case TabUsers:
		cmds = append(cmds, m.users.Load())
	case TabExecutions:
		cmds = append(cmds, m.functions.LoadExecutions())
	}
	return tea.Batch(cmds...)
}

// capturing reports whether keys go to a text field, which turns off the
// single letter shortcuts.
func (m *Model) capturing() bool {
	switch m.tab {
	case TabExecute:
		return m.formActive
	case TabUsers:
		return m.filtering
	case TabRoles:
		e := m.roles.Editor
		return m.roles.Modal.Visible() && e != nil && !e.OnFunctions()
	case TabFunctions:
		return m.functions.Modal.Visible()
	case TabLogin:
		return true
	}
	return false
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	if key.Matches(msg, k.Quit) {
		m.quitting = true
		return tea.Quit
	}
	if m.prompt != nil {
		return m.promptKey(msg)
	}
	switch {
	case key.Matches(msg, k.Dismiss):
		m.center.DismissNewest()
		return nil
	case key.Matches(msg, k.NextTab):
		return m.setTab((m.tab + 1) % tabCount)
	case key.Matches(msg, k.PrevTab):
		return m.setTab((m.tab + tabCount - 1) % tabCount)
	}
	if !m.capturing() {
		if key.Matches(msg, k.Leave) {
			m.quitting = true
			return tea.Quit
		}
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] < '1'+byte(tabCount) {
			return m.setTab(Tab(s[0] - '1'))
		}
	}

	switch m.tab {
	case TabExecute:
		return m.executeKey(msg)
	case TabTest:
		return m.testKey(msg)
	case TabUsers:
		return m.usersKey(msg)
	case TabRoles:
		return m.rolesKey(msg)
	case TabFunctions:
		return m.functionsKey(msg)
	case TabExecutions:
		if key.Matches(msg, k.Refresh) {
			return m.functions.LoadExecutions()
		}
	case TabLogin:
		return m.loginKey(msg)
	}
	return nil
}

func (m *Model) openPrompt(slot upload.Slot) tea.Cmd {
	in := textinput.New()
	in.Prompt = "› "
	in.Placeholder = "path to file"
	m.prompt = &pathPrompt{slot: slot, input: in}
	return m.prompt.input.Focus()
}

func (m *Model) promptKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.prompt = nil
		return nil
	case key.Matches(msg, m.keys.Enter):
		slot, path := m.prompt.slot, m.prompt.input.Value()
		m.prompt = nil
		return m.stager.Stage(slot, path)
	}
	var cmd tea.Cmd
	m.prompt.input, cmd = m.prompt.input.Update(msg)
	return cmd
}

// runnable lists the functions that can be executed.
func (m *Model) runnable() []api.FunctionSummary {
	var out []api.FunctionSummary
	for _, f := range m.functions.List() {
		if f.Approved {
			out = append(out, f)
		}
	}
	return out
}

func (m *Model) executeKey(msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	if m.formActive {
		form := m.selector.Form()
		switch {
		case key.Matches(msg, k.Back):
			m.formActive = false
			return nil
		case key.Matches(msg, k.NextField):
			if form != nil {
				return form.Next()
			}
			return nil
		case key.Matches(msg, k.PrevField):
			if form != nil {
				return form.Prev()
			}
			return nil
		case key.Matches(msg, k.Enter):
			return m.pipeline.Execute(m.selector.Selection(), form)
		}
		return m.selector.Update(msg)
	}

	fns := m.runnable()
	switch {
	case key.Matches(msg, k.Up):
		if m.pick > 0 {
			m.pick--
		}
	case key.Matches(msg, k.Down):
		if m.pick < len(fns)-1 {
			m.pick++
		}
	case key.Matches(msg, k.Enter):
		if m.pick < len(fns) {
			m.formActive = true
			return m.selector.Select(fns[m.pick].ID)
		}
	case key.Matches(msg, k.Run):
		return m.pipeline.Execute(m.selector.Selection(), m.selector.Form())
	case key.Matches(msg, k.Image):
		m.pipeline.ToggleImage()
	case key.Matches(msg, k.Refresh):
		if m.selector.CanRetry() {
			return m.selector.Retry()
		}
		return m.functions.Load()
	}
	return nil
}

func (m *Model) testKey(msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	switch {
	case key.Matches(msg, k.StageCode):
		return m.openPrompt(upload.Code)
	case key.Matches(msg, k.StageCases):
		return m.openPrompt(upload.TestCases)
	case key.Matches(msg, k.Run):
		return m.runTests()
	case key.Matches(msg, k.ViewCode):
		m.showCode = !m.showCode
		return nil
	case key.Matches(msg, k.Close):
		m.tests.Close()
		m.syncReport()
		return nil
	}
	var cmd tea.Cmd
	m.report, cmd = m.report.Update(msg)
	return cmd
}

func (m *Model) runTests() tea.Cmd {
	code, _ := m.stager.Get(upload.Code)
	var cases []api.TestCase
	if tc, ok := m.stager.Get(upload.TestCases); ok {
		parsed, err := testrun.ParseCases(tc.Content)
		if err != nil {
			return notify.Send(fmt.Sprintf("invalid test cases: %v", err), notify.Error)
		}
		cases = parsed
	}
	return m.tests.Run(code.Content, cases)
}

func (m *Model) usersKey(msg tea.KeyMsg) tea.Cmd {
	k, u := m.keys, m.users
	if m.filtering {
		switch {
		case key.Matches(msg, k.Back), key.Matches(msg, k.Enter):
			m.filtering = false
			m.filter.Blur()
			return nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		u.SetFilter(m.filter.Value())
		return cmd
	}

	if e := u.Editor; e != nil && u.Modal.Visible() {
		switch {
		case key.Matches(msg, k.Back):
			return u.Close()
		case key.Matches(msg, k.Up):
			e.Roles.Up()
		case key.Matches(msg, k.Down):
			e.Roles.Down()
		case key.Matches(msg, k.Add):
			if o, ok := e.Roles.Current(); ok {
				return u.AddRole(o.ID)
			}
		case key.Matches(msg, k.Remove):
			if o, ok := e.Roles.Current(); ok {
				u.RemoveRole(o.ID)
			}
		case key.Matches(msg, k.Save):
			return u.Save()
		}
		return nil
	}

	switch {
	case key.Matches(msg, k.Up):
		u.Up()
	case key.Matches(msg, k.Down):
		u.Down()
	case key.Matches(msg, k.Search):
		m.filtering = true
		return m.filter.Focus()
	case key.Matches(msg, k.Enter), key.Matches(msg, k.Edit):
		if s, ok := u.Selected(); ok {
			return u.Open(s.ID)
		}
	case key.Matches(msg, k.Popover):
		if s, ok := u.Selected(); ok {
			return u.ShowRoles(s.ID)
		}
	case key.Matches(msg, k.Refresh):
		return u.Load()
	}
	return nil
}

func (m *Model) rolesKey(msg tea.KeyMsg) tea.Cmd {
	k, r := m.keys, m.roles
	if r.PendingDelete() != 0 {
		switch {
		case key.Matches(msg, k.Confirm):
			return r.ConfirmDelete()
		case key.Matches(msg, k.Cancel):
			r.CancelDelete()
		}
		return nil
	}

	if e := r.Editor; e != nil && r.Modal.Visible() {
		switch {
		case key.Matches(msg, k.Back):
			return r.Close()
		case key.Matches(msg, k.NextField):
			e.FocusNext()
			return nil
		case key.Matches(msg, k.Save):
			return r.Save()
		case key.Matches(msg, k.Admin):
			r.ToggleAdmin()
			return nil
		}
		if !e.OnFunctions() {
			return e.Update(msg)
		}
		switch {
		case key.Matches(msg, k.Up):
			e.Functions.Up()
		case key.Matches(msg, k.Down):
			e.Functions.Down()
		case key.Matches(msg, k.Add):
			if o, ok := e.Functions.Current(); ok {
				return r.AddFunction(o.ID)
			}
		case key.Matches(msg, k.Remove):
			if o, ok := e.Functions.Current(); ok {
				r.RemoveFunction(o.ID)
			}
		}
		return nil
	}

	switch {
	case key.Matches(msg, k.Up):
		r.Up()
	case key.Matches(msg, k.Down):
		r.Down()
	case key.Matches(msg, k.New):
		return r.New()
	case key.Matches(msg, k.Enter), key.Matches(msg, k.Edit):
		if s, ok := r.Selected(); ok {
			return r.Edit(s.ID)
		}
	case key.Matches(msg, k.Delete):
		if s, ok := r.Selected(); ok {
			r.RequestDelete(s.ID)
		}
	case key.Matches(msg, k.Popover):
		if s, ok := r.Selected(); ok {
			return r.ShowFunctions(s.ID)
		}
	case key.Matches(msg, k.Refresh):
		return r.Load()
	}
	return nil
}

func (m *Model) functionsKey(msg tea.KeyMsg) tea.Cmd {
	k, f := m.keys, m.functions
	if f.PendingDelete() != 0 {
		switch {
		case key.Matches(msg, k.Confirm):
			return f.ConfirmDelete()
		case key.Matches(msg, k.Cancel):
			f.CancelDelete()
		}
		return nil
	}

	if f.Form != nil && f.Modal.Visible() {
		switch {
		case key.Matches(msg, k.Back):
			return f.Close()
		case key.Matches(msg, k.NextField):
			f.Form.FocusNext()
			return nil
		case key.Matches(msg, k.Save):
			return f.Create()
		case key.Matches(msg, k.StageCode):
			return m.openPrompt(upload.Code)
		case key.Matches(msg, k.StageCases):
			return m.openPrompt(upload.TestCases)
		}
		return f.Form.Update(msg)
	}

	switch {
	case key.Matches(msg, k.Up):
		f.Up()
	case key.Matches(msg, k.Down):
		f.Down()
	case key.Matches(msg, k.Toggle):
		if s, ok := f.Selected(); ok {
			return f.Toggle(s.ID)
		}
	case key.Matches(msg, k.New):
		return f.New()
	case key.Matches(msg, k.Edit):
		if s, ok := f.Selected(); ok {
			return f.SaveCode(s.ID, s.Description)
		}
	case key.Matches(msg, k.Delete):
		if s, ok := f.Selected(); ok {
			f.RequestDelete(s.ID)
		}
	case key.Matches(msg, k.StageCode):
		return m.openPrompt(upload.Code)
	case key.Matches(msg, k.Refresh):
		return f.Load()
	}
	return nil
}

func (m *Model) loginKey(msg tea.KeyMsg) tea.Cmd {
	k, a := m.keys, m.auth
	switch {
	case key.Matches(msg, k.NextField):
		a.FocusNext()
		return nil
	case key.Matches(msg, k.SwitchMode):
		a.SwitchMode()
		return nil
	case key.Matches(msg, k.Enter):
		return a.Submit()
	case key.Matches(msg, k.Logout):
		return a.Logout()
	}
	return a.Update(msg)
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(style.Banner.Render("modpanel"))
	b.WriteString("\n")
	b.WriteString(m.tabBar())
	b.WriteString("\n\n")
	if t := m.center.View(); t != "" {
		b.WriteString(t)
		b.WriteString("\n")
	}

	switch m.tab {
	case TabExecute:
		b.WriteString(m.executeView())
	case TabTest:
		b.WriteString(m.testView())
	case TabUsers:
		if m.filtering {
			b.WriteString(m.filter.View() + "\n\n")
		}
		b.WriteString(m.users.View())
	case TabRoles:
		b.WriteString(m.roles.View())
	case TabFunctions:
		b.WriteString(m.functions.View())
	case TabExecutions:
		b.WriteString(m.functions.ExecutionsView())
	case TabLogin:
		b.WriteString(m.auth.View())
	}

	if m.prompt != nil {
		label := "Function code file"
		if m.prompt.slot == upload.TestCases {
			label = "Test cases file"
		}
		b.WriteString("\n\n" + style.Bold.Render(label) + "\n" + m.prompt.input.View())
	}
	b.WriteString("\n\n" + m.help.ShortHelpView(m.bindings()))
	return b.String()
}

func (m *Model) tabBar() string {
	parts := make([]string, 0, tabCount)
	for t := Tab(0); t < tabCount; t++ {
		label := fmt.Sprintf("%d %s", int(t)+1, t)
		if t == m.tab {
			parts = append(parts, style.TabActive.Render(label))
		} else {
			parts = append(parts, style.TabInactive.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func (m *Model) executeView() string {
	var b strings.Builder
	fns := m.runnable()
	if len(fns) == 0 {
		b.WriteString(style.DimText.Render("No functions available.") + "\n")
	}
	for i, f := range fns {
		line := fmt.Sprintf("  %-24s %s", f.Name, style.DimText.Render(f.Description))
		if i == m.pick && !m.formActive {
			line = style.Selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if v := m.selector.View(); v != "" {
		b.WriteString("\n" + v + "\n")
	}
	if v := m.pipeline.View(); v != "" {
		b.WriteString("\n" + v + "\n")
	}
	return b.String()
}

func (m *Model) testView() string {
	var b strings.Builder
	code, hasCode := m.stager.Get(upload.Code)
	if hasCode {
		b.WriteString(style.Key.Render("Code") + style.Val.Render(code.Name) + "\n")
		b.WriteString(lint.Render(lint.Check(code.Content)))
	} else {
		b.WriteString(style.Key.Render("Code") + style.DimText.Render("not uploaded") + "\n")
	}
	if tc, ok := m.stager.Get(upload.TestCases); ok {
		b.WriteString(style.Key.Render("Test cases") + style.Val.Render(tc.Name) + "\n")
	}
	if m.showCode {
		if v, ok := m.stager.View(upload.Code); ok {
			b.WriteString("\n" + v + "\n")
		}
	}
	if m.tests.Running() {
		b.WriteString("\n" + style.DimText.Render("Running tests...") + "\n")
	}
	if m.reportFor != nil {
		b.WriteString("\n" + m.report.View() + "\n")
	}
	return b.String()
}

func (m *Model) bindings() []key.Binding {
	k := m.keys
	switch m.tab {
	case TabExecute:
		if m.formActive {
			return []key.Binding{k.NextField, k.Enter, k.Back, k.Quit}
		}
		return []key.Binding{k.Up, k.Down, k.Enter, k.Run, k.Image, k.Refresh, k.NextTab, k.Leave}
	case TabTest:
		return []key.Binding{k.StageCode, k.StageCases, k.Run, k.ViewCode, k.Close, k.NextTab, k.Leave}
	case TabUsers:
		if m.users.Modal.Visible() {
			return []key.Binding{k.Up, k.Down, k.Add, k.Remove, k.Save, k.Back}
		}
		return []key.Binding{k.Up, k.Down, k.Search, k.Enter, k.Popover, k.Refresh, k.NextTab, k.Leave}
	case TabRoles:
		if m.roles.Modal.Visible() {
			return []key.Binding{k.NextField, k.Add, k.Remove, k.Admin, k.Save, k.Back}
		}
		return []key.Binding{k.Up, k.Down, k.New, k.Edit, k.Delete, k.Popover, k.NextTab, k.Leave}
	case TabFunctions:
		if m.functions.Modal.Visible() {
			return []key.Binding{k.NextField, k.StageCode, k.StageCases, k.Save, k.Back}
		}
		return []key.Binding{k.Up, k.Down, k.Toggle, k.New, k.Edit, k.Delete, k.StageCode, k.NextTab, k.Leave}
	case TabExecutions:
		return []key.Binding{k.Refresh, k.NextTab, k.Leave}
	case TabLogin:
		return []key.Binding{k.NextField, k.Enter, k.SwitchMode, k.Logout, k.NextTab, k.Quit}
	}
	return nil
}
