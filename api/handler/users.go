package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"modpanel/api/store"
)

type roleRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type userSummary struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Status       bool      `json:"status"`
	RegisteredAt string    `json:"registered_at"`
	Roles        []roleRef `json:"roles"`
}

type userStatus struct {
	ID     int  `json:"id"`
	Status bool `json:"status"`
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	names := map[int]string{}
	for _, role := range h.db.Roles() {
		names[role.ID] = role.Name
	}
	online := h.db.Online(h.cfg.OnlineWindow)

	users := h.db.Users()
	out := make([]userSummary, 0, len(users))
	for _, u := range users {
		s := userSummary{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			Status:       online[u.ID],
			RegisteredAt: u.RegisteredAt.Format("2006-01-02 15:04"),
			Roles:        []roleRef{},
		}
		for _, id := range u.Roles {
			s.Roles = append(s.Roles, roleRef{ID: id, Name: names[id]})
		}
		out = append(out, s)
	}
	writeJSON(w, out)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	u, err := h.db.User(id)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	roles := u.Roles
	if roles == nil {
		roles = []int{}
	}
	writeJSON(w, map[string]interface{}{
		"id":    u.ID,
		"name":  u.Username,
		"roles": roles,
		"func":  h.db.FunctionCount(u.ID),
	})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeStatus(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "invalid user id"})
		return
	}
	var body struct {
		Roles []int `json:"roles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeStatus(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "invalid request body"})
		return
	}
	if err := h.db.SetUserRoles(id, body.Roles); errors.Is(err, store.ErrNotFound) {
		writeStatus(w, http.StatusNotFound, map[string]interface{}{"success": false, "message": "user not found"})
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "message": "user roles updated"})
}

func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	online := h.db.Online(h.cfg.OnlineWindow)
	users := h.db.Users()
	out := make([]userStatus, 0, len(users))
	for _, u := range users {
		out = append(out, userStatus{ID: u.ID, Status: online[u.ID]})
	}
	writeJSON(w, out)
}
