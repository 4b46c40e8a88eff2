package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"modpanel/api/auth"
	"modpanel/api/config"
	"github.com/gorilla/websocket"

	"modpanel/api/function"
	"modpanel/api/hub"
	"modpanel/api/store"
)

const validCode = `class Function:
    def interactionUser(self):
        return {"description": "d", "usage": {}}

    def execute(self, args):
        return args
`

// newTestServer serves a freshly seeded store; the admin is admin/secret.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := store.New()
	if err := db.Seed("admin", "secret"); err != nil {
		t.Fatal(err)
	}
	sessions := auth.NewSessions()
	sessions.OnSeen = db.Touch
	cfg := &config.Config{OnlineWindow: time.Minute, MaxUpload: 1 << 20}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ws := hub.New(nil)
	go ws.Run(ctx)
	srv := httptest.NewServer(New(db, sessions, function.NewExecutor(nil), ws, cfg).Router())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func call(t *testing.T, c *http.Client, srv *httptest.Server, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func decode(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return m
}

func login(t *testing.T, c *http.Client, srv *httptest.Server, user, password string) map[string]interface{} {
	t.Helper()
	code, body := call(t, c, srv, http.MethodPost, "/login", map[string]string{"username": user, "password": password})
	if code != http.StatusOK {
		t.Fatalf("login status = %d", code)
	}
	return decode(t, body)
}

func TestAnonymousRejected(t *testing.T) {
	srv := newTestServer(t)
	code, body := call(t, newClient(t), srv, http.MethodGet, "/api/roles", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
	if decode(t, body)["success"] != false {
		t.Errorf("body = %s", body)
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)

	if res := login(t, c, srv, "admin", "wrong"); res["success"] != false || res["message"] != "invalid username or password" {
		t.Errorf("bad password reply = %v", res)
	}
	res := login(t, c, srv, "admin", "secret")
	if res["success"] != true || res["next"] != "/admin" {
		t.Fatalf("login reply = %v", res)
	}
	if code, _ := call(t, c, srv, http.MethodGet, "/api/users", nil); code != http.StatusOK {
		t.Errorf("admin /api/users status = %d", code)
	}

	if code, _ := call(t, c, srv, http.MethodPost, "/logout", nil); code != http.StatusOK {
		t.Errorf("logout status = %d", code)
	}
	if code, _ := call(t, c, srv, http.MethodGet, "/api/users", nil); code != http.StatusUnauthorized {
		t.Errorf("after logout status = %d, want 401", code)
	}
}

func TestRegister(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)

	tests := []struct {
		name string
		in   map[string]string
		want string
	}{
		{"missing email", map[string]string{"username": "bob", "password": "secret1", "c_password": "secret1"}, "all fields are required"},
		{"short name", map[string]string{"username": "bo", "email": "b@x", "password": "secret1", "c_password": "secret1"}, "username must be at least 3 characters"},
		{"short password", map[string]string{"username": "bob", "email": "b@x", "password": "abc", "c_password": "abc"}, "password must be at least 6 characters"},
		{"mismatch", map[string]string{"username": "bob", "email": "b@x", "password": "secret1", "c_password": "secret2"}, "passwords do not match"},
		{"taken", map[string]string{"username": "admin", "email": "b@x", "password": "secret1", "c_password": "secret1"}, "a user with this name already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := call(t, c, srv, http.MethodPost, "/register", tt.in)
			if code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", code)
			}
			if msg := decode(t, body)["message"]; msg != tt.want {
				t.Errorf("message = %v, want %q", msg, tt.want)
			}
		})
	}

	code, body := call(t, c, srv, http.MethodPost, "/register", map[string]string{
		"username": "bob", "email": "bob@x", "password": "secret1", "c_password": "secret1",
	})
	if code != http.StatusOK || decode(t, body)["success"] != true {
		t.Fatalf("register: %d %s", code, body)
	}
	if res := login(t, c, srv, "bob", "secret1"); res["next"] != "/profile" {
		t.Errorf("next = %v, want /profile", res["next"])
	}
	if code, _ := call(t, c, srv, http.MethodGet, "/api/users", nil); code != http.StatusForbidden {
		t.Errorf("non-admin /api/users status = %d, want 403", code)
	}

	// bob holds the default role, which grants echo only.
	_, body = call(t, c, srv, http.MethodGet, "/api/functions", nil)
	var fns []functionSummary
	json.Unmarshal(body, &fns)
	if len(fns) != 1 || fns[0].Name != "echo" {
		t.Errorf("bob's functions = %+v", fns)
	}
	code, body = call(t, c, srv, http.MethodPost, "/api/function/2/execute", map[string]interface{}{"arguments": map[string]string{}})
	if code != http.StatusForbidden || decode(t, body)["error"] != "no access to this function" {
		t.Errorf("detect as bob: %d %s", code, body)
	}
}

func TestInteractionKeepsUsageOrder(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv, "admin", "secret")

	code, body := call(t, c, srv, http.MethodGet, "/api/function/1/interaction", nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(string(body), `"usage":{"text":"text to echo"}`) {
		t.Errorf("body = %s", body)
	}
	if code, _ := call(t, c, srv, http.MethodGet, "/api/function/99/interaction", nil); code != http.StatusNotFound {
		t.Errorf("unknown function status = %d, want 404", code)
	}
}

func TestUnapprovedFunction(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv, "admin", "secret")

	call(t, c, srv, http.MethodPost, "/api/function/1/toggle", map[string]bool{"approved": false})

	code, body := call(t, c, srv, http.MethodGet, "/api/function/1/interaction", nil)
	if code != http.StatusForbidden || decode(t, body)["error"] != "function is not approved" {
		t.Errorf("interaction: %d %s", code, body)
	}
	code, body = call(t, c, srv, http.MethodPost, "/api/function/1/execute", map[string]interface{}{"arguments": map[string]string{"text": "hi"}})
	if code != http.StatusForbidden || decode(t, body)["success"] != false {
		t.Errorf("execute: %d %s", code, body)
	}
}

func TestToggleWithoutBodyFlips(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv, "admin", "secret")

	_, body := call(t, c, srv, http.MethodPost, "/api/function/1/toggle", nil)
	if res := decode(t, body); res["new_status"] != false {
		t.Errorf("reply = %v, want new_status false", res)
	}
}

func TestExecuteMultipart(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv, "admin", "secret")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("arguments", `{"threshold":"0.5"}`)
	part, _ := mw.CreateFormFile("files", "cat.jpg")
	part.Write([]byte("jpeg-bytes"))
	mw.Close()

	resp, err := c.Post(srv.URL+"/api/function/2/execute", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	res := decode(t, data)
	if res["success"] != true {
		t.Fatalf("reply = %s", data)
	}
	result := res["result"].(map[string]interface{})
	objects := result["detected_objects"].([]interface{})
	if len(objects) != 2 {
		t.Errorf("detected_objects = %v", objects)
	}

	code, img := call(t, c, srv, http.MethodGet, "/uploads/"+result["output_image"].(string), nil)
	if code != http.StatusOK || string(img) != "jpeg-bytes" {
		t.Errorf("output image: %d %q", code, img)
	}
}

func TestExecuteDetectNeedsImage(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv, "admin", "secret")

	code, body := call(t, c, srv, http.MethodPost, "/api/function/2/execute", map[string]interface{}{"arguments": map[string]string{}})
	if code != http.StatusBadRequest || decode(t, body)["error"] != "no image uploaded" {
		t.Errorf("%d %s", code, body)
	}
}

func TestCreateFunctionValidation(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv, "admin", "secret")

	post := func(fields map[string]string, code string) (int, map[string]interface{}) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range fields {
			mw.WriteField(k, v)
		}
		if code != "" {
			part, _ := mw.CreateFormFile("file", "resize.py")
			part.Write([]byte(code))
		}
		mw.Close()
		resp, err := c.Post(srv.URL+"/api/function", mw.FormDataContentType(), &buf)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, decode(t, data)
	}

	if code, res := post(map[string]string{"function_type": "image"}, validCode); code != 400 || res["error"] != "function description is missing" {
		t.Errorf("no description: %d %v", code, res)
	}
	if code, res := post(map[string]string{"description": "d", "function_type": "video"}, validCode); code != 400 || res["error"] != "unsupported function type: video" {
		t.Errorf("bad type: %d %v", code, res)
	}
	if code, res := post(map[string]string{"description": "d", "function_type": "image"}, "print(1)"); code != 400 || !strings.Contains(res["error"].(string), "class Function") {
		t.Errorf("bad code: %d %v", code, res)
	}

	code, res := post(map[string]string{"description": "resizes", "function_type": "image"}, validCode)
	if code != 200 || res["success"] != true {
		t.Fatalf("create: %d %v", code, res)
	}
	_, body := call(t, c, srv, http.MethodGet, "/api/functions", nil)
	if !strings.Contains(string(body), `"name":"resize"`) {
		t.Errorf("name not taken from file name: %s", body)
	}
}

func TestRoles(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv, "admin", "secret")

	code, body := call(t, c, srv, http.MethodPost, "/api/role", map[string]interface{}{"name": " ", "functions": []string{}})
	if code != http.StatusBadRequest {
		t.Errorf("blank name status = %d, want 400 (%s)", code, body)
	}

	_, body = call(t, c, srv, http.MethodPost, "/api/role", map[string]interface{}{
		"name": "ops", "is_admin": false, "functions": []string{"2", "2", "x", "99"}, "description": "operators",
	})
	id := int(decode(t, body)["id"].(float64))

	_, body = call(t, c, srv, http.MethodGet, "/api/role/"+strconv.Itoa(id), nil)
	var detail struct {
		Name        string        `json:"name"`
		Permissions []int         `json:"permissions"`
		Functions   []functionRef `json:"functions"`
	}
	json.Unmarshal(body, &detail)
	if detail.Name != "ops" || len(detail.Permissions) != 1 || detail.Permissions[0] != 2 || detail.Functions[0].Name != "detect" {
		t.Errorf("detail = %s", body)
	}

	if code, _ := call(t, c, srv, http.MethodDelete, "/api/role/3", nil); code != http.StatusForbidden {
		t.Errorf("deleting default role status = %d, want 403", code)
	}
	if code, _ := call(t, c, srv, http.MethodDelete, "/api/role/"+strconv.Itoa(id), nil); code != http.StatusOK {
		t.Errorf("delete status = %d", code)
	}
	if code, _ := call(t, c, srv, http.MethodGet, "/api/role/"+strconv.Itoa(id), nil); code != http.StatusNotFound {
		t.Errorf("deleted role status = %d, want 404", code)
	}
}

func TestUsersAndStatus(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv, "admin", "secret")

	_, body := call(t, c, srv, http.MethodGet, "/api/users", nil)
	var users []userSummary
	json.Unmarshal(body, &users)
	if len(users) != 1 || users[0].Username != "admin" || len(users[0].Roles) != 2 || !users[0].Status {
		t.Fatalf("users = %s", body)
	}

	id := strconv.Itoa(users[0].ID)
	code, body := call(t, c, srv, http.MethodPut, "/update-user/"+id, map[string][]int{"roles": {4}})
	if code != http.StatusOK || decode(t, body)["message"] != "user roles updated" {
		t.Errorf("update: %d %s", code, body)
	}
	_, body = call(t, c, srv, http.MethodGet, "/get-user-data/"+id, nil)
	if res := decode(t, body); res["name"] != "admin" || res["func"].(float64) != 2 {
		t.Errorf("user data = %s", body)
	}
	code, body = call(t, c, srv, http.MethodPut, "/update-user/999", map[string][]int{"roles": {}})
	if code != http.StatusNotFound || decode(t, body)["message"] != "user not found" {
		t.Errorf("unknown user: %d %s", code, body)
	}

	_, body = call(t, c, srv, http.MethodGet, "/admin/check-status", nil)
	var statuses []userStatus
	json.Unmarshal(body, &statuses)
	if len(statuses) != 1 || !statuses[0].Status {
		t.Errorf("statuses = %s", body)
	}
}

func TestExecutionHistory(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv, "admin", "secret")

	code, body := call(t, c, srv, http.MethodPost, "/api/function/execution", map[string]interface{}{"arguments": map[string]string{}})
	if code != http.StatusBadRequest || decode(t, body)["error"] != "not enough data" {
		t.Errorf("missing id: %d %s", code, body)
	}
	call(t, c, srv, http.MethodPost, "/api/function/execution", map[string]interface{}{
		"function_id": 1, "arguments": map[string]string{"text": "hi"}, "result": `{"text":"hi"}`, "success": true,
	})

	_, body = call(t, c, srv, http.MethodGet, "/api/function/executions", nil)
	var out struct {
		Executions []executionEntry `json:"executions"`
	}
	json.Unmarshal(body, &out)
	if len(out.Executions) != 1 || out.Executions[0].Function.Name != "echo" || out.Executions[0].Arguments["text"] != "hi" {
		t.Errorf("executions = %s", body)
	}
}

func TestTestEndpoint(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv, "admin", "secret")

	code, body := call(t, c, srv, http.MethodPost, "/api/function/test", map[string]interface{}{"code": "", "test_cases": []interface{}{}})
	if code != http.StatusBadRequest || decode(t, body)["success"] != false {
		t.Errorf("empty code: %d %s", code, body)
	}

	_, body = call(t, c, srv, http.MethodPost, "/api/function/test", map[string]interface{}{
		"code": validCode,
		"test_cases": []map[string]interface{}{
			{"input": map[string]int{"a": 1}, "expected": map[string]int{"a": 1}},
			{"input": map[string]int{"a": 1}, "expected": map[string]int{"a": 2}},
		},
	})
	res := decode(t, body)
	stats := res["stats"].(map[string]interface{})
	if stats["total"].(float64) != 2 || stats["passed"].(float64) != 1 || stats["failed"].(float64) != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestWatchStreamsChanges(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	login(t, c, srv, "admin", "secret")

	dialer := websocket.Dialer{Jar: c.Jar}
	conn, _, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// The hub registers the socket asynchronously; keep toggling until an
	// event arrives.
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	got := make(chan hub.Event, 1)
	go func() {
		var evt hub.Event
		if conn.ReadJSON(&evt) == nil {
			got <- evt
		}
		close(got)
	}()
	for i := 0; i < 50; i++ {
		call(t, c, srv, http.MethodPost, "/api/function/1/toggle", nil)
		select {
		case evt, ok := <-got:
			if !ok {
				t.Fatal("no event received")
			}
			if evt.Type != hub.FunctionChanged || evt.Payload["function"] != float64(1) {
				t.Errorf("event = %+v", evt)
			}
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
	t.Fatal("no event received")
}

func TestWatchNeedsLogin(t *testing.T) {
	srv := newTestServer(t)
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err == nil {
		t.Fatal("anonymous watch accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("response = %v", resp)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	code, body := call(t, newClient(t), srv, http.MethodGet, "/healthz", nil)
	if code != http.StatusOK || decode(t, body)["status"] != "ok" {
		t.Errorf("healthz = %d %s", code, body)
	}
}
