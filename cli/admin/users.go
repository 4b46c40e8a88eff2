package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"modpanel/cli/api"
	"modpanel/cli/modal"
	"modpanel/cli/notify"
	"modpanel/cli/style"
)

type usersLoadedMsg struct {
	users []api.UserSummary
	err   error
}

type userRolesCachedMsg struct {
	roles     []api.Role
	err       error
	openID    int
	popoverID int
}

type userLoadedMsg struct {
	user *api.User
	err  error
}

type userPopoverMsg struct {
	user *api.User
	err  error
}

type userSavedMsg struct {
	id  int
	err error
}

type usersReloadMsg struct{}

type statusTickMsg struct{ gen uint64 }

type statusMsg struct {
	gen      uint64
	statuses []api.UserStatus
	err      error
}

// UserEditor is the open role assignment dialog.
type UserEditor struct {
	ID     int
	Name   string
	Roles  MultiSelect
	Loaded bool
}

type Users struct {
	ctx context.Context
	be  UserBackend

	StatusInterval time.Duration

	list   []api.UserSummary
	filter string
	cursor int
	err    string

	roles       []api.Role
	rolesCached bool

	Editor  *UserEditor
	Modal   *modal.Modal
	Popover Popover

	visible bool
	pollGen uint64
}

func NewUsers(ctx context.Context, be UserBackend, statusInterval time.Duration) *Users {
	if statusInterval <= 0 {
		statusInterval = time.Minute
	}
	return &Users{
		ctx:            ctx,
		be:             be,
		StatusInterval: statusInterval,
		Modal:          modal.New("user", modal.EditorExitDelay),
		Popover:        Popover{name: "user-roles"},
	}
}

func (u *Users) Load() tea.Cmd {
	ctx, be := u.ctx, u.be
	return func() tea.Msg {
		users, err := be.Users(ctx)
		return usersLoadedMsg{users: users, err: err}
	}
}

// MatchUser reports whether term occurs in the user's name, email or any role
// name, ignoring case. An empty term matches everyone.
func MatchUser(user api.UserSummary, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(user.Username), term) ||
		strings.Contains(strings.ToLower(user.Email), term) {
		return true
	}
	for _, r := range user.Roles {
		if strings.Contains(strings.ToLower(r.Name), term) {
			return true
		}
	}
	return false
}

func (u *Users) SetFilter(term string) {
	u.filter = term
	u.cursor = 0
}

func (u *Users) Filter() string { return u.filter }

func (u *Users) Filtered() []api.UserSummary {
	var out []api.UserSummary
	for _, user := range u.list {
		if MatchUser(user, u.filter) {
			out = append(out, user)
		}
	}
	return out
}

func (u *Users) Up() {
	if u.cursor > 0 {
		u.cursor--
	}
}

func (u *Users) Down() {
	if u.cursor < len(u.Filtered())-1 {
		u.cursor++
	}
}

// Selected is the user under the cursor in the filtered list.
func (u *Users) Selected() (api.UserSummary, bool) {
	users := u.Filtered()
	if u.cursor < 0 || u.cursor >= len(users) {
		return api.UserSummary{}, false
	}
	return users[u.cursor], true
}

// Open shows the role editor for user id. The role list is fetched once per
// panel and reused afterwards.
func (u *Users) Open(id int) tea.Cmd {
	u.Editor = &UserEditor{ID: id}
	show := u.Modal.Show()
	if u.rolesCached {
		u.Editor.Roles.SetOptions(roleOptions(u.roles))
		return tea.Batch(show, u.fetchUser(id))
	}
	return tea.Batch(show, u.fetchRoles(id, 0))
}

func (u *Users) Close() tea.Cmd {
	return u.Modal.Hide()
}

func (u *Users) fetchRoles(openID, popoverID int) tea.Cmd {
	ctx, be := u.ctx, u.be
	return func() tea.Msg {
		roles, err := be.Roles(ctx)
		return userRolesCachedMsg{roles: roles, err: err, openID: openID, popoverID: popoverID}
	}
}

func (u *Users) fetchUser(id int) tea.Cmd {
	ctx, be := u.ctx, u.be
	return func() tea.Msg {
		user, err := be.User(ctx, id)
		return userLoadedMsg{user: user, err: err}
	}
}

// AddRole adds a role to the open editor, warning on duplicates.
func (u *Users) AddRole(id int) tea.Cmd {
	if u.Editor == nil || id == 0 {
		return nil
	}
	if !u.Editor.Roles.Add(id) {
		return notify.Send("this role is already added", notify.Warning)
	}
	return nil
}

func (u *Users) RemoveRole(id int) {
	if u.Editor != nil {
		u.Editor.Roles.Remove(id)
	}
}

func (u *Users) Save() tea.Cmd {
	if u.Editor == nil {
		return nil
	}
	ctx, be := u.ctx, u.be
	id, roles := u.Editor.ID, u.Editor.Roles.Chosen()
	return func() tea.Msg {
		_, err := be.UpdateUserRoles(ctx, id, roles)
		return userSavedMsg{id: id, err: err}
	}
}

// ShowRoles opens a popover listing user id's roles.
func (u *Users) ShowRoles(id int) tea.Cmd {
	if !u.rolesCached {
		return u.fetchRoles(0, id)
	}
	ctx, be := u.ctx, u.be
	return func() tea.Msg {
		user, err := be.User(ctx, id)
		return userPopoverMsg{user: user, err: err}
	}
}

// SetVisible starts or stops status polling. Polling runs only while the
// users section is on screen.
func (u *Users) SetVisible(v bool) tea.Cmd {
	if v == u.visible {
		return nil
	}
	u.visible = v
	u.pollGen++
	if !v {
		return nil
	}
	return after(u.StatusInterval, statusTickMsg{gen: u.pollGen})
}

func (u *Users) poll(gen uint64) tea.Cmd {
	ctx, be := u.ctx, u.be
	return func() tea.Msg {
		st, err := be.CheckStatus(ctx)
		return statusMsg{gen: gen, statuses: st, err: err}
	}
}

func (u *Users) Update(msg tea.Msg) tea.Cmd {
	u.Modal.Update(msg)
	u.Popover.Update(msg)

	switch msg := msg.(type) {
	case usersLoadedMsg:
		if msg.err != nil {
			u.err = api.Message(msg.err)
			return nil
		}
		u.err = ""
		u.list = msg.users
		if u.cursor >= len(u.Filtered()) {
			u.cursor = 0
		}

	case usersReloadMsg:
		return u.Load()

	case userRolesCachedMsg:
		if msg.err != nil {
			return failure(msg.err, "could not load roles")
		}
		u.roles, u.rolesCached = msg.roles, true
		if msg.popoverID != 0 {
			return u.ShowRoles(msg.popoverID)
		}
		if u.Editor != nil && u.Editor.ID == msg.openID {
			u.Editor.Roles.SetOptions(roleOptions(u.roles))
			return u.fetchUser(msg.openID)
		}

	case userLoadedMsg:
		if msg.err != nil {
			return failure(msg.err, "could not load user")
		}
		if u.Editor == nil || u.Editor.ID != msg.user.ID {
			return nil
		}
		u.Editor.Name = msg.user.Name
		u.Editor.Roles.Set(msg.user.Roles)
		u.Editor.Loaded = true

	case userPopoverMsg:
		if msg.err != nil {
			return failure(msg.err, "could not load user")
		}
		return u.Popover.Show("Roles of "+msg.user.Name, u.roleLines(msg.user.Roles))

	case userSavedMsg:
		if msg.err != nil {
			return failure(msg.err, "update failed")
		}
		return tea.Batch(
			notify.Send("user roles updated", notify.Success),
			u.Modal.Hide(),
			after(UserReloadDelay, usersReloadMsg{}),
		)

	case statusTickMsg:
		if msg.gen != u.pollGen || !u.visible {
			return nil
		}
		return u.poll(msg.gen)

	case statusMsg:
		if msg.gen != u.pollGen || !u.visible {
			return nil
		}
		if msg.err != nil {
			log.Debug().Err(msg.err).Msg("status poll failed")
		} else {
			u.applyStatus(msg.statuses)
		}
		return after(u.StatusInterval, statusTickMsg{gen: msg.gen})
	}
	return nil
}

func (u *Users) applyStatus(statuses []api.UserStatus) {
	byID := make(map[int]bool, len(statuses))
	for _, s := range statuses {
		byID[s.ID] = s.Status
	}
	for i := range u.list {
		if st, ok := byID[u.list[i].ID]; ok {
			u.list[i].Status = st
		}
	}
}

func (u *Users) roleLines(ids []int) []string {
	var lines []string
	for _, id := range ids {
		for _, r := range u.roles {
			if r.ID != id {
				continue
			}
			line := style.RoleStyle(r.IsAdmin, r.IsModerator).Render(r.Name)
			switch {
			case r.IsAdmin:
				line += " (Admin)"
			case r.IsModerator:
				line += " (Moderator)"
			}
			lines = append(lines, line)
		}
	}
	return lines
}

func roleOptions(roles []api.Role) []Option {
	opts := make([]Option, 0, len(roles))
	for _, r := range roles {
		opts = append(opts, Option{ID: r.ID, Label: r.Name})
	}
	return opts
}

func (u *Users) View() string {
	var b strings.Builder
	b.WriteString(style.Key.Render("Search") + style.Val.Render(u.filter) + "\n\n")

	if u.err != "" {
		b.WriteString(style.ErrorBox.Render("✗ "+u.err) + "\n")
	}

	users := u.Filtered()
	if len(users) == 0 {
		b.WriteString(style.DimText.Render("No users match.") + "\n")
	} else {
		header := fmt.Sprintf("  %-2s %-20s %-28s %s", "", "USER", "EMAIL", "ROLES")
		b.WriteString(style.TableHeader.Render(header) + "\n")
		for i, user := range users {
			var roles []string
			for _, r := range user.Roles {
				roles = append(roles, r.Name)
			}
			line := fmt.Sprintf("  %s  %-20s %-28s %s", style.StatusDot(user.Status), user.Username, user.Email, strings.Join(roles, ", "))
			if i == u.cursor {
				line = style.Selected.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}

	if u.Modal.Visible() && u.Editor != nil {
		b.WriteString("\n" + u.Modal.Render(u.editorView()))
	}
	if pv := u.Popover.View(); pv != "" {
		b.WriteString("\n" + pv)
	}
	return b.String()
}

func (u *Users) editorView() string {
	var b strings.Builder
	b.WriteString(style.Title.Render("Edit user"))
	b.WriteString("\n")
	if !u.Editor.Loaded {
		b.WriteString(style.DimText.Render("Loading..."))
		return b.String()
	}
	b.WriteString(style.Key.Render("ID") + style.Val.Render(fmt.Sprint(u.Editor.ID)) + "\n")
	b.WriteString(style.Key.Render("Login") + style.Val.Render(u.Editor.Name) + "\n\n")
	b.WriteString(u.Editor.Roles.View(true))
	return b.String()
}
