package store

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"modpanel/api/model"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("a user with this name already exists")
	ErrEmailTaken    = errors.New("a user with this email already exists")
	ErrDefaultRole   = errors.New("the default role cannot be deleted")
)

// DB is an in-memory store. Every getter returns copies.
type DB struct {
	mu         sync.RWMutex
	users      map[int]*model.User
	roles      map[int]*model.Role
	functions  map[int]*model.Function
	executions []model.Execution
	seq        int
	now        func() time.Time
}

func New() *DB {
	return &DB{
		users:     make(map[int]*model.User),
		roles:     make(map[int]*model.Role),
		functions: make(map[int]*model.Function),
		now:       time.Now,
	}
}

func (db *DB) nextID() int {
	db.seq++
	return db.seq
}

// --- Users ---

func hashPassword(salt, password string) string {
	sum := sha256.Sum256([]byte(salt + ":" + password))
	return salt + "$" + hex.EncodeToString(sum[:])
}

func checkPassword(hash, password string) bool {
	salt, _, ok := strings.Cut(hash, "$")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashPassword(salt, password)), []byte(hash)) == 1
}

func copyUser(u *model.User) model.User {
	out := *u
	out.Roles = slices.Clone(u.Roles)
	return out
}

func (db *DB) CreateUser(username, email, password string, roles []int) (model.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if strings.EqualFold(u.Username, username) {
			return model.User{}, ErrUsernameTaken
		}
		if email != "" && strings.EqualFold(u.Email, email) {
			return model.User{}, ErrEmailTaken
		}
	}
	u := &model.User{
		ID:           db.nextID(),
		Username:     username,
		Email:        email,
		PasswordHash: hashPassword(uuid.NewString(), password),
		Roles:        slices.Clone(roles),
		RegisteredAt: db.now(),
	}
	db.users[u.ID] = u
	return copyUser(u), nil
}

func (db *DB) Users() []model.User {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]model.User, 0, len(db.users))
	for _, u := range db.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (db *DB) User(id int) (model.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return copyUser(u), nil
}

// Authenticate returns the user when the password matches.
func (db *DB) Authenticate(username, password string) (model.User, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, u := range db.users {
		if u.Username == username && checkPassword(u.PasswordHash, password) {
			return copyUser(u), true
		}
	}
	return model.User{}, false
}

// SetUserRoles replaces the user's roles, dropping ids that name no role.
func (db *DB) SetUserRoles(id int, roles []int) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return ErrNotFound
	}
	kept := []int{}
	for _, r := range roles {
		if _, ok := db.roles[r]; ok && !slices.Contains(kept, r) {
			kept = append(kept, r)
		}
	}
	u.Roles = kept
	return nil
}

func (db *DB) Touch(id int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u, ok := db.users[id]; ok {
		u.LastSeen = db.now()
	}
}

// Online reports, per user id, whether the user was seen within window.
func (db *DB) Online(window time.Duration) map[int]bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	now := db.now()
	out := make(map[int]bool, len(db.users))
	for id, u := range db.users {
		out[id] = !u.LastSeen.IsZero() && now.Sub(u.LastSeen) < window
	}
	return out
}

func (db *DB) IsAdmin(userID int) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.isAdmin(userID)
}

func (db *DB) isAdmin(userID int) bool {
	u, ok := db.users[userID]
	if !ok {
		return false
	}
	for _, id := range u.Roles {
		if r, ok := db.roles[id]; ok && r.IsAdmin {
			return true
		}
	}
	return false
}

// CanRun reports whether one of the user's roles grants the function.
func (db *DB) CanRun(userID, funcID int) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.isAdmin(userID) {
		return true
	}
	u, ok := db.users[userID]
	if !ok {
		return false
	}
	for _, id := range u.Roles {
		if r, ok := db.roles[id]; ok && slices.Contains(r.Functions, funcID) {
			return true
		}
	}
	return false
}

// --- Roles ---

func copyRole(r *model.Role) model.Role {
	out := *r
	out.Functions = slices.Clone(r.Functions)
	if out.Functions == nil {
		out.Functions = []int{}
	}
	return out
}

func (db *DB) Roles() []model.Role {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]model.Role, 0, len(db.roles))
	for _, r := range db.roles {
		out = append(out, copyRole(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (db *DB) Role(id int) (model.Role, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	r, ok := db.roles[id]
	if !ok {
		return model.Role{}, ErrNotFound
	}
	return copyRole(r), nil
}

func (db *DB) RoleByName(name string) (model.Role, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, r := range db.roles {
		if r.Name == name {
			return copyRole(r), nil
		}
	}
	return model.Role{}, ErrNotFound
}

// SaveRole inserts the role when ID is zero and replaces it otherwise.
// Function ids that name no function are dropped.
func (db *DB) SaveRole(role model.Role) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	fns := []int{}
	for _, id := range role.Functions {
		if _, ok := db.functions[id]; ok && !slices.Contains(fns, id) {
			fns = append(fns, id)
		}
	}
	role.Functions = fns

	if role.ID == 0 {
		role.ID = db.nextID()
	} else if _, ok := db.roles[role.ID]; !ok {
		return 0, ErrNotFound
	}
	db.roles[role.ID] = &role
	return role.ID, nil
}

// DeleteRole removes the role and moves its members onto the default role.
func (db *DB) DeleteRole(id int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.roles[id]
	if !ok {
		return ErrNotFound
	}
	if r.Name == model.DefaultRole {
		return ErrDefaultRole
	}
	fallback := 0
	for _, other := range db.roles {
		if other.Name == model.DefaultRole {
			fallback = other.ID
		}
	}
	for _, u := range db.users {
		if !slices.Contains(u.Roles, id) {
			continue
		}
		u.Roles = slices.DeleteFunc(u.Roles, func(r int) bool { return r == id })
		if fallback != 0 && !slices.Contains(u.Roles, fallback) {
			u.Roles = append(u.Roles, fallback)
		}
	}
	delete(db.roles, id)
	return nil
}

// --- Functions ---

func copyFunction(f *model.Function) model.Function {
	out := *f
	out.Interaction.Usage = slices.Clone(f.Interaction.Usage)
	return out
}

func (db *DB) CreateFunction(fn model.Function) model.Function {
	db.mu.Lock()
	defer db.mu.Unlock()
	fn.ID = db.nextID()
	fn.CreatedAt = db.now()
	if fn.Kind == "" {
		fn.Kind = model.KindEcho
	}
	db.functions[fn.ID] = &fn
	return copyFunction(&fn)
}

func (db *DB) Functions() []model.Function {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]model.Function, 0, len(db.functions))
	for _, f := range db.functions {
		out = append(out, copyFunction(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (db *DB) Function(id int) (model.Function, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	f, ok := db.functions[id]
	if !ok {
		return model.Function{}, ErrNotFound
	}
	return copyFunction(f), nil
}

// FunctionCount is the number of functions authored by the user.
func (db *DB) FunctionCount(userID int) int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	n := 0
	for _, f := range db.functions {
		if f.AuthorID == userID {
			n++
		}
	}
	return n
}

// UpdateFunction replaces the code, and the description when it is non-nil.
func (db *DB) UpdateFunction(id int, code string, description *string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	f, ok := db.functions[id]
	if !ok {
		return ErrNotFound
	}
	f.Code = code
	if description != nil {
		f.Description = *description
	}
	return nil
}

func (db *DB) SetApproved(id int, approved bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	f, ok := db.functions[id]
	if !ok {
		return ErrNotFound
	}
	f.Approved = approved
	return nil
}

// DeleteFunction removes the function and every role grant of it.
func (db *DB) DeleteFunction(id int) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.functions[id]; !ok {
		return ErrNotFound
	}
	for _, r := range db.roles {
		r.Functions = slices.DeleteFunc(r.Functions, func(f int) bool { return f == id })
	}
	delete(db.functions, id)
	return nil
}

// --- Executions ---

func (db *DB) AddExecution(e model.Execution) model.Execution {
	db.mu.Lock()
	defer db.mu.Unlock()
	e.ID = db.nextID()
	e.At = db.now()
	db.executions = append(db.executions, e)
	return e
}

// Executions returns the user's most recent executions, newest first.
func (db *DB) Executions(userID, limit int) []model.Execution {
	if limit <= 0 {
		limit = 20
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []model.Execution
	for i := len(db.executions) - 1; i >= 0 && len(out) < limit; i-- {
		if e := db.executions[i]; e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// PruneExecutions drops history recorded before the cutoff.
func (db *DB) PruneExecutions(before time.Time) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	kept := db.executions[:0]
	for _, e := range db.executions {
		if !e.At.Before(before) {
			kept = append(kept, e)
		}
	}
	n := len(db.executions) - len(kept)
	db.executions = kept
	return n
}
