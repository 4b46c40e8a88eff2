package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"modpanel/api/function"
	"modpanel/api/hub"
	"modpanel/api/model"
	"modpanel/api/store"
)

type functionSummary struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	FunctionType string `json:"function_type"`
	Approved     bool   `json:"approved"`
	Author       string `json:"author"`
}

// ListFunctions shows admins every function and other users the approved
// functions their roles grant.
func (h *Handler) ListFunctions(w http.ResponseWriter, r *http.Request) {
	uid := currentUser(r)
	admin := h.db.IsAdmin(uid)

	authors := map[int]string{}
	for _, u := range h.db.Users() {
		authors[u.ID] = u.Username
	}

	out := []functionSummary{}
	for _, f := range h.db.Functions() {
		if !admin && (!f.Approved || !h.db.CanRun(uid, f.ID)) {
			continue
		}
		out = append(out, functionSummary{
			ID:           f.ID,
			Name:         f.Name,
			Description:  f.Description,
			FunctionType: f.FunctionType,
			Approved:     f.Approved,
			Author:       authors[f.AuthorID],
		})
	}
	writeJSON(w, out)
}

func (h *Handler) CreateFunction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.cfg.MaxUpload); err != nil {
		fail(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	description := r.FormValue("description")
	fnType := r.FormValue("function_type")
	code := r.FormValue("code")

	if description == "" {
		fail(w, http.StatusBadRequest, "function description is missing")
		return
	}
	if !slices.Contains(model.FunctionTypes, fnType) {
		fail(w, http.StatusBadRequest, "unsupported function type: "+fnType)
		return
	}

	if file, hdr, err := r.FormFile("file"); err == nil {
		defer file.Close()
		if strings.HasSuffix(hdr.Filename, ".py") {
			data, err := io.ReadAll(file)
			if err != nil {
				fail(w, http.StatusBadRequest, "read file: "+err.Error())
				return
			}
			code = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(string(data))
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(hdr.Filename), ".py")
			}
		}
	}
	if name == "" || code == "" {
		fail(w, http.StatusBadRequest, "name and code are required")
		return
	}
	if err := function.Validate(code, true); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	fn := model.Function{
		Name:         name,
		Description:  description,
		FunctionType: fnType,
		AuthorID:     currentUser(r),
		Code:         code,
		TestCases:    r.FormValue("test_cases"),
		Kind:         model.KindEcho,
		Interaction: model.Interaction{
			Description: description,
			Usage:       model.Usage{{Name: "input", Prompt: "value passed to the function"}},
		},
	}
	if fnType == "image" {
		fn.Kind = model.KindDetect
		fn.Interaction.Usage = nil
		fn.Interaction.FileUpload = &model.FileUpload{Allowed: true, Types: []string{"image/png", "image/jpeg"}}
	}
	fn = h.db.CreateFunction(fn)
	log.Info().Int("id", fn.ID).Str("name", fn.Name).Msg("function created")
	h.functionChanged(fn.ID, "created")
	writeJSON(w, map[string]interface{}{"success": true, "id": fn.ID})
}

func (h *Handler) UpdateFunction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		fail(w, http.StatusBadRequest, "invalid function id")
		return
	}
	var in struct {
		Code        string  `json:"code"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := function.Validate(in.Code, true); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.db.UpdateFunction(id, in.Code, in.Description); errors.Is(err, store.ErrNotFound) {
		fail(w, http.StatusNotFound, "function not found")
		return
	}
	h.functionChanged(id, "updated")
	writeJSON(w, map[string]bool{"success": true})
}

// ToggleFunction sets the approval flag from the body, or flips it when the
// body names no state.
func (h *Handler) ToggleFunction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid function id", http.StatusBadRequest)
		return
	}
	fn, err := h.db.Function(id)
	if err != nil {
		http.Error(w, "function not found", http.StatusNotFound)
		return
	}
	var in struct {
		Approved *bool `json:"approved"`
	}
	json.NewDecoder(r.Body).Decode(&in)

	approved := !fn.Approved
	if in.Approved != nil {
		approved = *in.Approved
	}
	h.db.SetApproved(id, approved)
	change := "revoked"
	if approved {
		change = "approved"
	}
	h.functionChanged(id, change)
	writeJSON(w, map[string]interface{}{"success": true, "new_status": approved})
}

func (h *Handler) DeleteFunction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid function id", http.StatusBadRequest)
		return
	}
	if err := h.db.DeleteFunction(id); err != nil {
		http.Error(w, "function not found", http.StatusNotFound)
		return
	}
	h.functionChanged(id, "deleted")
	writeJSON(w, map[string]interface{}{"success": true, "message": "function deleted"})
}

func (h *Handler) functionChanged(id int, change string) {
	h.ws.Publish(hub.Event{Type: hub.FunctionChanged, Payload: map[string]interface{}{"function": id, "change": change}}, hub.Everyone)
}

func (h *Handler) Interaction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid function id", http.StatusBadRequest)
		return
	}
	fn, err := h.db.Function(id)
	if err != nil {
		http.Error(w, "function not found", http.StatusNotFound)
		return
	}
	if !fn.Approved {
		fail(w, http.StatusForbidden, "function is not approved")
		return
	}
	writeJSON(w, map[string]interface{}{
		"success":     true,
		"id":          fn.ID,
		"name":        fn.Name,
		"interaction": fn.Interaction,
	})
}
