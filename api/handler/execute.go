package handler

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"modpanel/api/function"
	"modpanel/api/hub"
	"modpanel/api/model"
)

func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		fail(w, http.StatusBadRequest, "invalid function id")
		return
	}
	fn, err := h.db.Function(id)
	if err != nil {
		fail(w, http.StatusNotFound, "function not found")
		return
	}
	if !fn.Approved {
		fail(w, http.StatusForbidden, "function is not approved")
		return
	}
	if !h.db.CanRun(currentUser(r), id) {
		fail(w, http.StatusForbidden, "no access to this function")
		return
	}

	args := map[string]any{}
	var uploads []function.Upload

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.cfg.MaxUpload); err != nil {
			fail(w, http.StatusBadRequest, "invalid form: "+err.Error())
			return
		}
		if raw := r.FormValue("arguments"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				fail(w, http.StatusBadRequest, "invalid arguments: "+err.Error())
				return
			}
		}
		for _, hdr := range r.MultipartForm.File["files"] {
			f, err := hdr.Open()
			if err != nil {
				fail(w, http.StatusInternalServerError, "open upload: "+err.Error())
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				fail(w, http.StatusInternalServerError, "read upload: "+err.Error())
				return
			}
			uploads = append(uploads, function.Upload{Name: hdr.Filename, Data: data})
		}
	} else {
		var body struct {
			Arguments map[string]any `json:"arguments"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			fail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Arguments != nil {
			args = body.Arguments
		}
	}

	start := time.Now()
	result, err := h.exec.Run(r.Context(), fn, args, uploads)
	h.ws.Publish(hub.Event{Type: hub.FunctionExecuted, Payload: map[string]interface{}{
		"function": fn.ID,
		"name":     fn.Name,
		"success":  err == nil,
	}}, hub.Audience{Admins: true, User: currentUser(r)})
	if err != nil {
		log.Warn().Err(err).Int("function", id).Msg("execution failed")
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Debug().Int("function", id).Dur("took", time.Since(start)).Msg("executed")
	writeJSON(w, map[string]interface{}{"success": true, "result": result})
}

func (h *Handler) RecordExecution(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FunctionID int               `json:"function_id"`
		Arguments  map[string]string `json:"arguments"`
		Result     string            `json:"result"`
		Success    bool              `json:"success"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.FunctionID == 0 {
		fail(w, http.StatusBadRequest, "not enough data")
		return
	}
	h.db.AddExecution(model.Execution{
		FunctionID: in.FunctionID,
		UserID:     currentUser(r),
		Arguments:  in.Arguments,
		Result:     in.Result,
		Success:    in.Success,
	})
	writeJSON(w, map[string]bool{"success": true})
}

type executionEntry struct {
	ID        int               `json:"id"`
	Function  functionRef       `json:"function"`
	Arguments map[string]string `json:"arguments"`
	Result    string            `json:"result"`
	Success   bool              `json:"success"`
	Timestamp string            `json:"timestamp"`
}

func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	execs := h.db.Executions(currentUser(r), 20)
	out := make([]executionEntry, 0, len(execs))
	for _, e := range execs {
		ref := functionRef{ID: e.FunctionID, Name: "deleted"}
		if f, err := h.db.Function(e.FunctionID); err == nil {
			ref = functionRef{ID: f.ID, Name: f.Name, Approved: f.Approved}
		}
		out = append(out, executionEntry{
			ID:        e.ID,
			Function:  ref,
			Arguments: e.Arguments,
			Result:    e.Result,
			Success:   e.Success,
			Timestamp: e.At.Format(time.RFC3339),
		})
	}
	writeJSON(w, map[string]interface{}{"success": true, "executions": out})
}

func (h *Handler) TestFunction(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code      string          `json:"code"`
		TestCases []function.Case `json:"test_cases"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	results, stats, err := function.Test(in.Code, in.TestCases)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "results": results, "stats": stats})
}

func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	data, err := h.exec.File(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Write(data)
}
