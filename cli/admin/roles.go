package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"modpanel/cli/api"
	"modpanel/cli/modal"
	"modpanel/cli/notify"
	"modpanel/cli/style"
)

type rolesLoadedMsg struct {
	roles []api.Role
	err   error
}

type roleOptionsMsg struct {
	fns []api.FunctionSummary
	err error
}

type roleDetailMsg struct {
	role *api.RoleDetail
	err  error
}

type roleFunctionsPopoverMsg struct {
	role *api.RoleDetail
	err  error
}

type roleSavedMsg struct{ err error }

type roleDeletedMsg struct{ err error }

type rolesReloadMsg struct{}

const (
	roleFocusName = iota
	roleFocusDescription
	roleFocusFunctions
	roleFocusCount
)

// RoleEditor is the create/edit role dialog. ID is zero for a new role.
type RoleEditor struct {
	ID          int
	Name        textinput.Model
	Description textinput.Model
	IsAdmin     bool
	Functions   MultiSelect
	focus       int
}

func newRoleEditor(id int) *RoleEditor {
	name := textinput.New()
	name.Placeholder = "role name"
	name.Prompt = "› "
	desc := textinput.New()
	desc.Placeholder = "description"
	desc.Prompt = "› "
	e := &RoleEditor{ID: id, Name: name, Description: desc}
	e.Name.Focus()
	return e
}

func (e *RoleEditor) FocusNext() {
	e.focus = (e.focus + 1) % roleFocusCount
	e.applyFocus()
}

func (e *RoleEditor) applyFocus() {
	e.Name.Blur()
	e.Description.Blur()
	switch e.focus {
	case roleFocusName:
		e.Name.Focus()
	case roleFocusDescription:
		e.Description.Focus()
	}
}

// OnFunctions reports whether the function list has focus.
func (e *RoleEditor) OnFunctions() bool { return e.focus == roleFocusFunctions }

func (e *RoleEditor) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch e.focus {
	case roleFocusName:
		e.Name, cmd = e.Name.Update(msg)
	case roleFocusDescription:
		e.Description, cmd = e.Description.Update(msg)
	}
	return cmd
}

type Roles struct {
	ctx context.Context
	be  RoleBackend

	list   []api.Role
	cursor int
	err    string

	fnOptions []Option
	fnLoaded  bool

	Editor        *RoleEditor
	Modal         *modal.Modal
	Popover       Popover
	pendingDelete int
}

func NewRoles(ctx context.Context, be RoleBackend) *Roles {
	return &Roles{
		ctx:     ctx,
		be:      be,
		Modal:   modal.New("role", modal.EditorExitDelay),
		Popover: Popover{name: "role-functions"},
	}
}

func (r *Roles) Load() tea.Cmd {
	ctx, be := r.ctx, r.be
	return func() tea.Msg {
		roles, err := be.Roles(ctx)
		return rolesLoadedMsg{roles: roles, err: err}
	}
}

func (r *Roles) List() []api.Role { return r.list }

func (r *Roles) Up() {
	if r.cursor > 0 {
		r.cursor--
	}
}

func (r *Roles) Down() {
	if r.cursor < len(r.list)-1 {
		r.cursor++
	}
}

func (r *Roles) Selected() (api.Role, bool) {
	if r.cursor < 0 || r.cursor >= len(r.list) {
		return api.Role{}, false
	}
	return r.list[r.cursor], true
}

// New opens an empty role editor.
func (r *Roles) New() tea.Cmd {
	r.Editor = newRoleEditor(0)
	r.Editor.Functions.SetOptions(r.fnOptions)
	return tea.Batch(r.Modal.Show(), r.loadOptions())
}

// Edit opens the editor filled from role id.
func (r *Roles) Edit(id int) tea.Cmd {
	r.Editor = newRoleEditor(id)
	r.Editor.Functions.SetOptions(r.fnOptions)
	ctx, be := r.ctx, r.be
	fetch := func() tea.Msg {
		role, err := be.Role(ctx, id)
		return roleDetailMsg{role: role, err: err}
	}
	return tea.Batch(r.Modal.Show(), r.loadOptions(), fetch)
}

func (r *Roles) Close() tea.Cmd {
	return r.Modal.Hide()
}

func (r *Roles) loadOptions() tea.Cmd {
	if r.fnLoaded {
		return nil
	}
	ctx, be := r.ctx, r.be
	return func() tea.Msg {
		fns, err := be.Functions(ctx)
		return roleOptionsMsg{fns: fns, err: err}
	}
}

// AddFunction selects a function for the role, warning on duplicates.
func (r *Roles) AddFunction(id int) tea.Cmd {
	if r.Editor == nil || id == 0 {
		return nil
	}
	if !r.Editor.Functions.Add(id) {
		return notify.Send("this function is already added", notify.Warning)
	}
	return nil
}

func (r *Roles) RemoveFunction(id int) {
	if r.Editor != nil {
		r.Editor.Functions.Remove(id)
	}
}

func (r *Roles) ToggleAdmin() {
	if r.Editor != nil {
		r.Editor.IsAdmin = !r.Editor.IsAdmin
	}
}

// Save creates or updates the role in the editor. A name is required.
func (r *Roles) Save() tea.Cmd {
	if r.Editor == nil {
		return nil
	}
	name := strings.TrimSpace(r.Editor.Name.Value())
	if name == "" {
		return notify.Send("enter a role name", notify.Warning)
	}
	in := api.RoleInput{
		Name:        name,
		IsAdmin:     r.Editor.IsAdmin,
		Description: r.Editor.Description.Value(),
		Functions:   []string{},
	}
	for _, id := range r.Editor.Functions.Chosen() {
		in.Functions = append(in.Functions, strconv.Itoa(id))
	}
	ctx, be, id := r.ctx, r.be, r.Editor.ID
	return func() tea.Msg {
		return roleSavedMsg{err: be.SaveRole(ctx, id, in)}
	}
}

// RequestDelete asks for confirmation before deleting role id.
func (r *Roles) RequestDelete(id int) {
	r.pendingDelete = id
}

func (r *Roles) PendingDelete() int { return r.pendingDelete }

func (r *Roles) CancelDelete() { r.pendingDelete = 0 }

func (r *Roles) ConfirmDelete() tea.Cmd {
	id := r.pendingDelete
	if id == 0 {
		return nil
	}
	r.pendingDelete = 0
	ctx, be := r.ctx, r.be
	return func() tea.Msg {
		return roleDeletedMsg{err: be.DeleteRole(ctx, id)}
	}
}

// ShowFunctions opens a popover listing the functions of role id.
func (r *Roles) ShowFunctions(id int) tea.Cmd {
	ctx, be := r.ctx, r.be
	return func() tea.Msg {
		role, err := be.Role(ctx, id)
		return roleFunctionsPopoverMsg{role: role, err: err}
	}
}

func (r *Roles) Update(msg tea.Msg) tea.Cmd {
	r.Modal.Update(msg)
	r.Popover.Update(msg)

	switch msg := msg.(type) {
	case rolesLoadedMsg:
		if msg.err != nil {
			r.err = api.Message(msg.err)
			return nil
		}
		r.err = ""
		r.list = msg.roles
		if r.cursor >= len(r.list) {
			r.cursor = 0
		}

	case rolesReloadMsg:
		return r.Load()

	case roleOptionsMsg:
		if msg.err != nil {
			return failure(msg.err, "could not load functions")
		}
		r.fnOptions = make([]Option, 0, len(msg.fns))
		for _, f := range msg.fns {
			r.fnOptions = append(r.fnOptions, Option{ID: f.ID, Label: f.Name})
		}
		r.fnLoaded = true
		if r.Editor != nil {
			r.Editor.Functions.SetOptions(r.fnOptions)
		}

	case roleDetailMsg:
		if msg.err != nil {
			return failure(msg.err, "could not load role")
		}
		if r.Editor == nil || r.Editor.ID != msg.role.ID {
			return nil
		}
		r.Editor.Name.SetValue(msg.role.Name)
		r.Editor.Description.SetValue(msg.role.Description)
		r.Editor.IsAdmin = msg.role.IsAdmin
		ids := make([]int, 0, len(msg.role.Functions))
		for _, f := range msg.role.Functions {
			ids = append(ids, f.ID)
		}
		r.Editor.Functions.Set(ids)

	case roleFunctionsPopoverMsg:
		if msg.err != nil {
			return failure(msg.err, "could not load role")
		}
		var lines []string
		for _, f := range msg.role.Functions {
			if f.Approved {
				lines = append(lines, style.StepDone.Render("✓ ")+f.Name)
			} else {
				lines = append(lines, style.DimText.Render("✗ "+f.Name))
			}
		}
		return r.Popover.Show("Functions of "+msg.role.Name, lines)

	case roleSavedMsg:
		if msg.err != nil {
			return failure(msg.err, "save failed")
		}
		return tea.Batch(
			notify.Send("role saved", notify.Success),
			r.Modal.Hide(),
			after(RoleSaveReloadDelay, rolesReloadMsg{}),
		)

	case roleDeletedMsg:
		if msg.err != nil {
			return failure(msg.err, "delete failed")
		}
		return tea.Batch(
			notify.Send("role deleted", notify.Success),
			after(RoleDeleteReloadDelay, rolesReloadMsg{}),
		)
	}
	return nil
}

func (r *Roles) View() string {
	var b strings.Builder
	if r.err != "" {
		b.WriteString(style.ErrorBox.Render("✗ "+r.err) + "\n")
	}
	if len(r.list) == 0 {
		b.WriteString(style.DimText.Render("No roles.") + "\n")
	} else {
		b.WriteString(style.TableHeader.Render(fmt.Sprintf("  %-4s %-20s %s", "ID", "ROLE", "DESCRIPTION")) + "\n")
		for i, role := range r.list {
			name := style.RoleStyle(role.IsAdmin, role.IsModerator).Render(fmt.Sprintf("%-20s", role.Name))
			line := fmt.Sprintf("  %-4d %s %s", role.ID, name, role.Description)
			if i == r.cursor {
				line = style.Selected.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}

	if r.pendingDelete != 0 {
		b.WriteString("\n" + style.Warning.Render(fmt.Sprintf(
			"Delete role %d? Its users fall back to the default role. (y/n)", r.pendingDelete)) + "\n")
	}
	if r.Modal.Visible() && r.Editor != nil {
		b.WriteString("\n" + r.Modal.Render(r.editorView()))
	}
	if pv := r.Popover.View(); pv != "" {
		b.WriteString("\n" + pv)
	}
	return b.String()
}

func (r *Roles) editorView() string {
	e := r.Editor
	var b strings.Builder
	title := "Create role"
	if e.ID != 0 {
		title = "Edit role"
	}
	b.WriteString(style.Title.Render(title) + "\n")
	b.WriteString(style.Bold.Render("Name") + "\n" + e.Name.View() + "\n\n")
	b.WriteString(style.Bold.Render("Description") + "\n" + e.Description.View() + "\n\n")
	admin := "[ ] admin"
	if e.IsAdmin {
		admin = "[x] admin"
	}
	b.WriteString(admin + "\n\n")
	b.WriteString(style.Bold.Render("Functions") + "\n")
	b.WriteString(e.Functions.View(e.OnFunctions()))
	return b.String()
}
