package admin

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"modpanel/cli/api"
	"modpanel/cli/notify"
)

// fakeBackend is an in-memory stand-in for *api.Client.
type fakeBackend struct {
	calls map[string]int
	errs  map[string]error

	users      []api.UserSummary
	userDetail map[int]*api.User
	statuses   []api.UserStatus
	savedRoles map[int][]int

	roles       []api.Role
	roleDetail  map[int]*api.RoleDetail
	savedRoleID int
	savedRole   *api.RoleInput
	deletedRole int

	fns          []api.FunctionSummary
	toggled      map[int]bool
	deletedFn    int
	created      *api.FunctionInput
	updatedID    int
	updatedCode  string
	updatedDesc  string
	executions   []api.ExecutionEntry
	lastCreds    api.Credentials
	loggedOut    bool
	deleteFnText string
}

func newFake() *fakeBackend {
	return &fakeBackend{
		calls:      map[string]int{},
		errs:       map[string]error{},
		userDetail: map[int]*api.User{},
		roleDetail: map[int]*api.RoleDetail{},
		savedRoles: map[int][]int{},
		toggled:    map[int]bool{},
	}
}

func (f *fakeBackend) hit(name string) error {
	f.calls[name]++
	return f.errs[name]
}

func (f *fakeBackend) Users(ctx context.Context) ([]api.UserSummary, error) {
	if err := f.hit("Users"); err != nil {
		return nil, err
	}
	return f.users, nil
}

func (f *fakeBackend) User(ctx context.Context, id int) (*api.User, error) {
	if err := f.hit("User"); err != nil {
		return nil, err
	}
	u, ok := f.userDetail[id]
	if !ok {
		return nil, &api.StatusError{Code: 404}
	}
	return u, nil
}

func (f *fakeBackend) UpdateUserRoles(ctx context.Context, id int, roles []int) (*api.Ack, error) {
	if err := f.hit("UpdateUserRoles"); err != nil {
		return nil, err
	}
	f.savedRoles[id] = roles
	return &api.Ack{Success: true}, nil
}

func (f *fakeBackend) CheckStatus(ctx context.Context) ([]api.UserStatus, error) {
	if err := f.hit("CheckStatus"); err != nil {
		return nil, err
	}
	return f.statuses, nil
}

func (f *fakeBackend) Roles(ctx context.Context) ([]api.Role, error) {
	if err := f.hit("Roles"); err != nil {
		return nil, err
	}
	return f.roles, nil
}

func (f *fakeBackend) Role(ctx context.Context, id int) (*api.RoleDetail, error) {
	if err := f.hit("Role"); err != nil {
		return nil, err
	}
	r, ok := f.roleDetail[id]
	if !ok {
		return nil, &api.StatusError{Code: 404}
	}
	return r, nil
}

func (f *fakeBackend) SaveRole(ctx context.Context, id int, in api.RoleInput) error {
	if err := f.hit("SaveRole"); err != nil {
		return err
	}
	f.savedRoleID, f.savedRole = id, &in
	return nil
}

func (f *fakeBackend) DeleteRole(ctx context.Context, id int) error {
	if err := f.hit("DeleteRole"); err != nil {
		return err
	}
	f.deletedRole = id
	return nil
}

func (f *fakeBackend) Functions(ctx context.Context) ([]api.FunctionSummary, error) {
	if err := f.hit("Functions"); err != nil {
		return nil, err
	}
	return f.fns, nil
}

func (f *fakeBackend) ToggleFunction(ctx context.Context, id int, approved bool) (*api.ToggleResult, error) {
	if err := f.hit("ToggleFunction"); err != nil {
		return nil, err
	}
	f.toggled[id] = approved
	return &api.ToggleResult{Success: true, NewStatus: approved}, nil
}

func (f *fakeBackend) DeleteFunction(ctx context.Context, id int) (*api.Ack, error) {
	if err := f.hit("DeleteFunction"); err != nil {
		return nil, err
	}
	f.deletedFn = id
	return &api.Ack{Success: true, Message: f.deleteFnText}, nil
}

func (f *fakeBackend) CreateFunction(ctx context.Context, in api.FunctionInput) (*api.Ack, error) {
	if err := f.hit("CreateFunction"); err != nil {
		return nil, err
	}
	f.created = &in
	return &api.Ack{Success: true, ID: 99}, nil
}

func (f *fakeBackend) UpdateFunction(ctx context.Context, id int, code, description string) error {
	if err := f.hit("UpdateFunction"); err != nil {
		return err
	}
	f.updatedID, f.updatedCode, f.updatedDesc = id, code, description
	return nil
}

func (f *fakeBackend) Executions(ctx context.Context) ([]api.ExecutionEntry, error) {
	if err := f.hit("Executions"); err != nil {
		return nil, err
	}
	return f.executions, nil
}

func (f *fakeBackend) Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error) {
	f.lastCreds = creds
	if err := f.hit("Login"); err != nil {
		return nil, err
	}
	return &api.AuthResult{Success: true, Next: "/admin"}, nil
}

func (f *fakeBackend) Register(ctx context.Context, creds api.Credentials) (*api.AuthResult, error) {
	f.lastCreds = creds
	if err := f.hit("Register"); err != nil {
		return nil, err
	}
	return &api.AuthResult{Success: true}, nil
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	if err := f.hit("Logout"); err != nil {
		return err
	}
	f.loggedOut = true
	return nil
}

// drain runs cmd, expanding batches. Commands that take longer than the
// wait (long timers) are dropped.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if b, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range b {
				out = append(out, drain(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}

type updater interface {
	Update(tea.Msg) tea.Cmd
}

// settle feeds every message cmd produces back into u until nothing is
// left, returning the notifications raised on the way.
func settle(u updater, cmd tea.Cmd) []notify.Msg {
	var notes []notify.Msg
	queue := drain(cmd)
	for i := 0; len(queue) > 0 && i < 50; i++ {
		msg := queue[0]
		queue = queue[1:]
		if n, ok := msg.(notify.Msg); ok {
			notes = append(notes, n)
			continue
		}
		queue = append(queue, drain(u.Update(msg))...)
	}
	return notes
}

func hasNote(notes []notify.Msg, kind notify.Kind, text string) bool {
	for _, n := range notes {
		if n.Kind == kind && n.Message == text {
			return true
		}
	}
	return false
}
