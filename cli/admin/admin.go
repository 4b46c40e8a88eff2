// Package admin holds the user, role and function management panels and the
// landing page's login and registration forms.
//
// Each panel is a small controller: methods start work and return tea.Cmds,
// Update folds the resulting messages back in, View renders. Key bindings
// live in the panel package.
package admin

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"modpanel/cli/api"
	"modpanel/cli/notify"
)

const (
	UserReloadDelay       = time.Second
	RoleSaveReloadDelay   = time.Second
	RoleDeleteReloadDelay = 1500 * time.Millisecond
	FunctionReloadDelay   = time.Second
	FadeDuration          = 300 * time.Millisecond
	PopoverDuration       = 10 * time.Second
)

type UserBackend interface {
	Users(ctx context.Context) ([]api.UserSummary, error)
	User(ctx context.Context, id int) (*api.User, error)
	UpdateUserRoles(ctx context.Context, id int, roles []int) (*api.Ack, error)
	CheckStatus(ctx context.Context) ([]api.UserStatus, error)
	Roles(ctx context.Context) ([]api.Role, error)
}

type RoleBackend interface {
	Roles(ctx context.Context) ([]api.Role, error)
	Role(ctx context.Context, id int) (*api.RoleDetail, error)
	SaveRole(ctx context.Context, id int, in api.RoleInput) error
	DeleteRole(ctx context.Context, id int) error
	Functions(ctx context.Context) ([]api.FunctionSummary, error)
}

type FunctionBackend interface {
	Functions(ctx context.Context) ([]api.FunctionSummary, error)
	ToggleFunction(ctx context.Context, id int, approved bool) (*api.ToggleResult, error)
	DeleteFunction(ctx context.Context, id int) (*api.Ack, error)
	CreateFunction(ctx context.Context, in api.FunctionInput) (*api.Ack, error)
	UpdateFunction(ctx context.Context, id int, code, description string) error
	Executions(ctx context.Context) ([]api.ExecutionEntry, error)
}

type AuthBackend interface {
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error)
	Register(ctx context.Context, creds api.Credentials) (*api.AuthResult, error)
	Logout(ctx context.Context) error
}

// failure turns err into an error toast. Server supplied messages win over
// fallback; transport failures say so.
func failure(err error, fallback string) tea.Cmd {
	if api.IsTransport(err) {
		return notify.Send("network error: "+api.Message(err), notify.Error)
	}
	var ae *api.AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return notify.Send(ae.Message, notify.Error)
	}
	return notify.Send(fallback, notify.Error)
}

// after delivers msg once d has passed.
func after(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}
