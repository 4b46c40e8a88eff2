package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"modpanel/api/auth"
	"modpanel/api/config"
	"modpanel/api/function"
	"modpanel/api/hub"
	"modpanel/api/store"
)

type Handler struct {
	db       *store.DB
	sessions *auth.Sessions
	exec     *function.Executor
	ws       *hub.Hub
	cfg      *config.Config
}

func New(db *store.DB, sessions *auth.Sessions, exec *function.Executor, ws *hub.Hub, cfg *config.Config) *Handler {
	return &Handler{db: db, sessions: sessions, exec: exec, ws: ws, cfg: cfg}
}

// Router serves the panel's backend contract.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.sessions.Middleware)

	r.Get("/healthz", h.Health)
	r.Post("/login", h.Login)
	r.Post("/register", h.Register)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin)

		r.Post("/logout", h.Logout)
		r.Get("/ws", h.Watch)
		r.Get("/uploads/*", h.ServeUpload)

		r.Get("/api/roles", h.ListRoles)
		r.Get("/api/role/{id}", h.GetRole)
		r.Get("/api/functions", h.ListFunctions)
		r.Post("/api/function", h.CreateFunction)
		r.Post("/api/function/test", h.TestFunction)
		r.Post("/api/function/execution", h.RecordExecution)
		r.Get("/api/function/executions", h.ListExecutions)
		r.Get("/api/function/{id}/interaction", h.Interaction)
		r.Post("/api/function/{id}/execute", h.Execute)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)

			r.Get("/api/users", h.ListUsers)
			r.Get("/get-user-data/{id}", h.GetUser)
			r.Put("/update-user/{id}", h.UpdateUser)
			r.Get("/admin/check-status", h.CheckStatus)

			r.Post("/api/role", h.SaveRole)
			r.Put("/api/role/{id}", h.SaveRole)
			r.Delete("/api/role/{id}", h.DeleteRole)

			r.Put("/api/function/{id}", h.UpdateFunction)
			r.Delete("/api/function/{id}", h.DeleteFunction)
			r.Post("/api/function/{id}/toggle", h.ToggleFunction)
		})
	})
	return r
}

// Watch streams panel events to a logged-in client.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	if h.ws == nil {
		http.Error(w, "events disabled", http.StatusServiceUnavailable)
		return
	}
	id := currentUser(r)
	h.ws.Serve(w, r, id, h.db.IsAdmin(id))
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.UserID(r.Context())
		if !h.db.IsAdmin(id) {
			fail(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	writeStatus(w, http.StatusOK, v)
}

func writeStatus(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// fail answers with the application error shape {success: false, error}.
func fail(w http.ResponseWriter, code int, msg string) {
	writeStatus(w, code, map[string]interface{}{"success": false, "error": msg})
}

func idParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

func currentUser(r *http.Request) int {
	id, _ := auth.UserID(r.Context())
	return id
}
