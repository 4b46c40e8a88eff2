package admin

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"modpanel/cli/api"
	"modpanel/cli/notify"
	"modpanel/cli/style"
)

type AuthMode int

const (
	ModeLogin AuthMode = iota
	ModeRegister
)

// LoggedInMsg reports a successful login; the panel persists the session.
type LoggedInMsg struct {
	Next string
}

type LoggedOutMsg struct{}

type authDoneMsg struct {
	mode AuthMode
	res  *api.AuthResult
	err  error
}

type logoutDoneMsg struct{ err error }

// Auth is the landing page's login and registration form.
type Auth struct {
	ctx context.Context
	be  AuthBackend

	Mode     AuthMode
	Username textinput.Model
	Email    textinput.Model
	Password textinput.Model
	Confirm  textinput.Model
	focus    int
	busy     bool
}

func NewAuth(ctx context.Context, be AuthBackend) *Auth {
	mk := func(placeholder string, secret bool) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Prompt = "› "
		if secret {
			ti.EchoMode = textinput.EchoPassword
		}
		return ti
	}
	a := &Auth{
		ctx:      ctx,
		be:       be,
		Username: mk("username", false),
		Email:    mk("email", false),
		Password: mk("password", true),
		Confirm:  mk("confirm password", true),
	}
	a.Username.Focus()
	return a
}

func (a *Auth) inputs() []*textinput.Model {
	if a.Mode == ModeRegister {
		return []*textinput.Model{&a.Username, &a.Email, &a.Password, &a.Confirm}
	}
	return []*textinput.Model{&a.Username, &a.Password}
}

// SwitchMode flips between login and registration.
func (a *Auth) SwitchMode() {
	if a.Mode == ModeLogin {
		a.Mode = ModeRegister
	} else {
		a.Mode = ModeLogin
	}
	a.focus = 0
	a.applyFocus()
}

func (a *Auth) FocusNext() {
	a.focus = (a.focus + 1) % len(a.inputs())
	a.applyFocus()
}

func (a *Auth) applyFocus() {
	for _, in := range []*textinput.Model{&a.Username, &a.Email, &a.Password, &a.Confirm} {
		in.Blur()
	}
	a.inputs()[a.focus].Focus()
}

func (a *Auth) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case authDoneMsg:
		a.busy = false
		if msg.err != nil {
			fallback := "login failed"
			if msg.mode == ModeRegister {
				fallback = "registration failed"
			}
			return failure(msg.err, fallback)
		}
		if msg.mode == ModeRegister {
			a.Mode = ModeLogin
			a.focus = 0
			a.applyFocus()
			return notify.Send("registration successful", notify.Success)
		}
		a.Password.SetValue("")
		return tea.Batch(
			notify.Send("login successful", notify.Success),
			func() tea.Msg { return LoggedInMsg{Next: msg.res.Next} },
		)

	case logoutDoneMsg:
		if msg.err != nil {
			return failure(msg.err, "logout failed")
		}
		return func() tea.Msg { return LoggedOutMsg{} }

	case tea.KeyMsg:
		in := a.inputs()[a.focus]
		var cmd tea.Cmd
		*in, cmd = in.Update(msg)
		return cmd
	}
	return nil
}

func (a *Auth) Credentials() api.Credentials {
	c := api.Credentials{
		Username: strings.TrimSpace(a.Username.Value()),
		Password: a.Password.Value(),
	}
	if a.Mode == ModeRegister {
		c.Email = strings.TrimSpace(a.Email.Value())
		c.ConfirmPassword = a.Confirm.Value()
	}
	return c
}

// Submit logs in or registers. Registration checks the password
// confirmation before anything is sent.
func (a *Auth) Submit() tea.Cmd {
	if a.busy {
		return nil
	}
	creds := a.Credentials()
	mode := a.Mode
	if mode == ModeRegister && creds.Password != creds.ConfirmPassword {
		return notify.Send("passwords do not match", notify.Error)
	}
	a.busy = true
	ctx, be := a.ctx, a.be
	return func() tea.Msg {
		var (
			res *api.AuthResult
			err error
		)
		if mode == ModeRegister {
			res, err = be.Register(ctx, creds)
		} else {
			res, err = be.Login(ctx, creds)
		}
		return authDoneMsg{mode: mode, res: res, err: err}
	}
}

func (a *Auth) Logout() tea.Cmd {
	ctx, be := a.ctx, a.be
	return func() tea.Msg {
		return logoutDoneMsg{err: be.Logout(ctx)}
	}
}

func (a *Auth) View() string {
	var b strings.Builder
	title := "Log in"
	if a.Mode == ModeRegister {
		title = "Register"
	}
	b.WriteString(style.Title.Render(title) + "\n")
	labels := []string{"Username", "Password"}
	if a.Mode == ModeRegister {
		labels = []string{"Username", "Email", "Password", "Confirm password"}
	}
	for i, in := range a.inputs() {
		b.WriteString(style.Bold.Render(labels[i]) + "\n" + in.View() + "\n\n")
	}
	if a.busy {
		b.WriteString(style.DimText.Render("Working..."))
	}
	return b.String()
}
