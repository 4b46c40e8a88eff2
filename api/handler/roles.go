package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"modpanel/api/model"
	"modpanel/api/store"
)

type functionRef struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Approved bool   `json:"approved"`
}

type roleDetail struct {
	model.Role
	FunctionRefs []functionRef `json:"functions"`
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles := h.db.Roles()
	out := make([]map[string]interface{}, 0, len(roles))
	for _, role := range roles {
		out = append(out, map[string]interface{}{
			"id":          role.ID,
			"name":        role.Name,
			"description": role.Description,
			"is_admin":    role.IsAdmin,
		})
	}
	writeJSON(w, out)
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid role id", http.StatusBadRequest)
		return
	}
	role, err := h.db.Role(id)
	if err != nil {
		http.Error(w, "role not found", http.StatusNotFound)
		return
	}
	detail := roleDetail{Role: role, FunctionRefs: []functionRef{}}
	for _, fid := range role.Functions {
		if f, err := h.db.Function(fid); err == nil {
			detail.FunctionRefs = append(detail.FunctionRefs, functionRef{ID: f.ID, Name: f.Name, Approved: f.Approved})
		}
	}
	writeJSON(w, detail)
}

// SaveRole creates a role on POST /api/role and replaces one on PUT /api/role/{id}.
func (h *Handler) SaveRole(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name        string   `json:"name"`
		IsAdmin     bool     `json:"is_admin"`
		Functions   []string `json:"functions"`
		Description string   `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		fail(w, http.StatusBadRequest, "role name is required")
		return
	}

	role := model.Role{Name: strings.TrimSpace(in.Name), IsAdmin: in.IsAdmin, Description: in.Description}
	for _, s := range in.Functions {
		if id, err := strconv.Atoi(s); err == nil {
			role.Functions = append(role.Functions, id)
		}
	}
	if r.Method == http.MethodPut {
		id, ok := idParam(r)
		if !ok {
			fail(w, http.StatusBadRequest, "invalid role id")
			return
		}
		role.ID = id
	}

	id, err := h.db.SaveRole(role)
	if errors.Is(err, store.ErrNotFound) {
		fail(w, http.StatusNotFound, "role not found")
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "id": id})
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid role id", http.StatusBadRequest)
		return
	}
	switch err := h.db.DeleteRole(id); {
	case errors.Is(err, store.ErrNotFound):
		writeStatus(w, http.StatusNotFound, map[string]string{"error": "role not found"})
	case errors.Is(err, store.ErrDefaultRole):
		writeStatus(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, map[string]string{"status": "success"})
	}
}
