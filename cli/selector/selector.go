// Package selector loads a function's interaction schema and builds the
// argument form for it.
package selector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"modpanel/cli/api"
	"modpanel/cli/style"
)

// Fetcher is the part of the backend client the selector needs.
type Fetcher interface {
	Interaction(ctx context.Context, id int) (*api.InteractionResponse, error)
}

type Selection struct {
	ID          int
	Name        string
	Interaction api.Interaction
}

type loadedMsg struct {
	token uint64
	resp  *api.InteractionResponse
	err   error
}

type Selector struct {
	ctx     context.Context
	fetcher Fetcher
	spinner spinner.Model

	token   uint64
	loading bool
	lastID  int

	sel   *Selection
	form  *Form
	err   string
	retry bool
}

func New(ctx context.Context, f Fetcher) *Selector {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.Primary)
	return &Selector{ctx: ctx, fetcher: f, spinner: s}
}

// Select drops the current selection and fetches function id. A reply to an
// earlier Select is ignored.
func (s *Selector) Select(id int) tea.Cmd {
	s.token++
	s.loading = true
	s.lastID = id
	s.sel, s.form = nil, nil
	s.err, s.retry = "", false

	token, ctx, f := s.token, s.ctx, s.fetcher
	fetch := func() tea.Msg {
		resp, err := f.Interaction(ctx, id)
		return loadedMsg{token: token, resp: resp, err: err}
	}
	return tea.Batch(s.spinner.Tick, fetch)
}

// Retry repeats the last Select after a rate-limit failure.
func (s *Selector) Retry() tea.Cmd {
	if !s.retry {
		return nil
	}
	return s.Select(s.lastID)
}

func (s *Selector) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !s.loading {
			return nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return cmd

	case loadedMsg:
		if msg.token != s.token {
			return nil
		}
		s.loading = false
		if msg.err != nil {
			s.err, s.retry = ErrorMessage(msg.err)
			return nil
		}
		s.sel = &Selection{
			ID:          msg.resp.ID,
			Name:        msg.resp.Name,
			Interaction: msg.resp.Interaction,
		}
		if s.sel.ID == 0 {
			s.sel.ID = s.lastID
		}
		s.form = NewForm(msg.resp.Interaction)
		return s.form.Focus(0)
	}

	if s.form != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return s.form.Update(msg)
		}
	}
	return nil
}

func (s *Selector) Loading() bool         { return s.loading }
func (s *Selector) Selection() *Selection { return s.sel }
func (s *Selector) Form() *Form           { return s.form }
func (s *Selector) Err() string           { return s.err }
func (s *Selector) CanRetry() bool        { return s.retry }

// ErrorMessage maps a failed interaction fetch to the text shown in place of
// the form. retry is true when the user may try again.
func ErrorMessage(err error) (msg string, retry bool) {
	if code, ok := api.StatusCode(err); ok {
		switch code {
		case 404:
			return "module not found", false
		case 429:
			return "too many requests, try again later", true
		case 403:
			return "module is currently unavailable", false
		default:
			return fmt.Sprintf("server error (%d)", code), false
		}
	}
	var ae *api.AppError
	if errors.As(err, &ae) {
		if ae.Message == "" {
			return "unknown module error", false
		}
		return ae.Message, false
	}
	if api.IsTransport(err) {
		return "network error: " + api.Message(err), false
	}
	return err.Error(), false
}

func (s *Selector) View() string {
	var b strings.Builder
	switch {
	case s.loading:
		b.WriteString(s.spinner.View() + style.DimText.Render(" Loading module..."))
	case s.err != "":
		b.WriteString(style.ErrorBox.Render("✗ " + s.err))
		if s.retry {
			b.WriteString("\n" + style.DimText.Render("press r to retry"))
		}
	case s.sel != nil:
		b.WriteString(style.Title.Render(s.sel.Name))
		b.WriteString("\n")
		if d := s.sel.Interaction.Description; d != "" {
			b.WriteString(style.Subtitle.Render(d))
			b.WriteString("\n\n")
		}
		b.WriteString(s.form.View())
	}
	return b.String()
}
