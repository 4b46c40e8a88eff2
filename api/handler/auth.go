package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"modpanel/api/auth"
	"modpanel/api/hub"
	"modpanel/api/model"
	"modpanel/api/store"
)

type credentials struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"c_password"`
}

type authReply struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Next    string `json:"next,omitempty"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeStatus(w, http.StatusBadRequest, authReply{Message: "invalid request body"})
		return
	}
	user, ok := h.db.Authenticate(in.Username, in.Password)
	if in.Username == "" || in.Password == "" || !ok {
		writeJSON(w, authReply{Message: "invalid username or password"})
		return
	}

	h.sessions.Start(w, user.ID)
	h.db.Touch(user.ID)
	log.Info().Str("user", user.Username).Msg("login")
	h.ws.Publish(hub.Event{Type: hub.UserLogin, Payload: map[string]interface{}{"id": user.ID, "username": user.Username}}, hub.Audience{Admins: true})

	next := "/profile"
	if h.db.IsAdmin(user.ID) {
		next = "/admin"
	}
	writeJSON(w, authReply{Success: true, Message: "login successful", Next: next})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeStatus(w, http.StatusBadRequest, authReply{Message: "invalid request body"})
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	var msg string
	switch {
	case in.Username == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "":
		msg = "all fields are required"
	case len(in.Username) < 3:
		msg = "username must be at least 3 characters"
	case len(in.Password) < 6:
		msg = "password must be at least 6 characters"
	case in.Password != in.ConfirmPassword:
		msg = "passwords do not match"
	}
	if msg != "" {
		writeStatus(w, http.StatusBadRequest, authReply{Message: msg})
		return
	}

	var roles []int
	if role, err := h.db.RoleByName(model.DefaultRole); err == nil {
		roles = []int{role.ID}
	}
	user, err := h.db.CreateUser(in.Username, in.Email, in.Password, roles)
	if errors.Is(err, store.ErrUsernameTaken) || errors.Is(err, store.ErrEmailTaken) {
		writeStatus(w, http.StatusBadRequest, authReply{Message: err.Error()})
		return
	}
	if err != nil {
		writeStatus(w, http.StatusInternalServerError, authReply{Message: err.Error()})
		return
	}
	log.Info().Str("user", user.Username).Msg("registered")
	writeJSON(w, authReply{Success: true, Message: "registration successful"})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.UserID(r.Context()); ok {
		h.ws.Publish(hub.Event{Type: hub.UserLogout, Payload: map[string]interface{}{"id": id}}, hub.Audience{Admins: true})
	}
	h.sessions.End(w, r)
	writeJSON(w, authReply{Success: true, Message: "logged out"})
}
