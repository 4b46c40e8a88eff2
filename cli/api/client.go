package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// --- Users ---

func (c *Client) Users(ctx context.Context) ([]UserSummary, error) {
	var users []UserSummary
	if err := c.getJSON(ctx, "/api/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) User(ctx context.Context, id int) (*User, error) {
	var u User
	if err := c.getJSON(ctx, fmt.Sprintf("/get-user-data/%d", id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateUserRoles(ctx context.Context, id int, roles []int) (*Ack, error) {
	if roles == nil {
		roles = []int{}
	}
	resp, err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/update-user/%d", id), map[string]any{"roles": roles})
	if err != nil {
		return nil, err
	}
	var ack Ack
	if err := decodeReply(resp, &ack); err != nil {
		return nil, err
	}
	if !ack.Success {
		return nil, &AppError{Message: ack.Message}
	}
	return &ack, nil
}

func (c *Client) CheckStatus(ctx context.Context) ([]UserStatus, error) {
	var statuses []UserStatus
	if err := c.getJSON(ctx, "/admin/check-status", &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// --- Roles ---

func (c *Client) Roles(ctx context.Context) ([]Role, error) {
	var roles []Role
	if err := c.getJSON(ctx, "/api/roles", &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (c *Client) Role(ctx context.Context, id int) (*RoleDetail, error) {
	var role RoleDetail
	if err := c.getJSON(ctx, fmt.Sprintf("/api/role/%d", id), &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// SaveRole creates a role when id is zero and replaces role id otherwise.
func (c *Client) SaveRole(ctx context.Context, id int, in RoleInput) error {
	if in.Functions == nil {
		in.Functions = []string{}
	}
	method, path := http.MethodPost, "/api/role"
	if id != 0 {
		method, path = http.MethodPut, fmt.Sprintf("/api/role/%d", id)
	}
	resp, err := c.sendJSON(ctx, method, path, in)
	if err != nil {
		return err
	}
	return expectOK(resp)
}

func (c *Client) DeleteRole(ctx context.Context, id int) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/role/%d", id), "", nil)
	if err != nil {
		return err
	}
	return expectOK(resp)
}

// --- Functions ---

func (c *Client) Functions(ctx context.Context) ([]FunctionSummary, error) {
	var fns []FunctionSummary
	if err := c.getJSON(ctx, "/api/functions", &fns); err != nil {
		return nil, err
	}
	return fns, nil
}

// Interaction fetches the input schema of a function. Non-2xx replies come
// back as *StatusError so callers can map the code.
func (c *Client) Interaction(ctx context.Context, id int) (*InteractionResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/function/%d/interaction", id), "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var out InteractionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode interaction: %w", err)
	}
	if !out.Success {
		return nil, &AppError{Message: out.Error}
	}
	return &out, nil
}

// Execute runs a function. With files it sends multipart form data (files
// plus the JSON-encoded arguments); without, a JSON body {"arguments": ...}.
// A reply with success=false is returned as-is, not as an error.
func (c *Client) Execute(ctx context.Context, id int, args map[string]string, files []UploadFile) (*ExecuteResponse, error) {
	if args == nil {
		args = map[string]string{}
	}
	path := fmt.Sprintf("/api/function/%d/execute", id)

	var (
		resp *http.Response
		err  error
	)
	if len(files) > 0 {
		argsJSON, _ := json.Marshal(args)
		body, contentType, merr := buildMultipart(map[string]string{"arguments": string(argsJSON)}, "files", files)
		if merr != nil {
			return nil, merr
		}
		resp, err = c.do(ctx, http.MethodPost, path, contentType, body)
	} else {
		resp, err = c.sendJSON(ctx, http.MethodPost, path, map[string]any{"arguments": args})
	}
	if err != nil {
		return nil, err
	}

	var out ExecuteResponse
	if err := decodeReply(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecordExecution(ctx context.Context, rec ExecutionRecord) error {
	resp, err := c.sendJSON(ctx, http.MethodPost, "/api/function/execution", rec)
	if err != nil {
		return err
	}
	var ack Ack
	if err := decodeReply(resp, &ack); err != nil {
		return err
	}
	if !ack.Success {
		return &AppError{Message: ack.Error}
	}
	return nil
}

func (c *Client) Executions(ctx context.Context) ([]ExecutionEntry, error) {
	var out struct {
		Success    bool             `json:"success"`
		Executions []ExecutionEntry `json:"executions"`
	}
	if err := c.getJSON(ctx, "/api/function/executions", &out); err != nil {
		return nil, err
	}
	return out.Executions, nil
}

// TestFunction submits code and cases to the test endpoint. As with Execute,
// success=false replies are returned to the caller rather than as errors.
func (c *Client) TestFunction(ctx context.Context, code string, cases []TestCase) (*TestResponse, error) {
	if cases == nil {
		cases = []TestCase{}
	}
	resp, err := c.sendJSON(ctx, http.MethodPost, "/api/function/test", map[string]any{
		"code":       code,
		"test_cases": cases,
	})
	if err != nil {
		return nil, err
	}
	var out TestResponse
	if err := decodeReply(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateFunction(ctx context.Context, in FunctionInput) (*Ack, error) {
	fields := map[string]string{
		"name":          in.Name,
		"description":   in.Description,
		"function_type": in.FunctionType,
	}
	if in.TestCases != "" {
		fields["test_cases"] = in.TestCases
	}
	var files []UploadFile
	if in.File != nil {
		files = append(files, *in.File)
	}
	body, contentType, err := buildMultipart(fields, "file", files)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/function", contentType, body)
	if err != nil {
		return nil, err
	}
	var ack Ack
	if err := decodeReply(resp, &ack); err != nil {
		return nil, err
	}
	if !ack.Success {
		return nil, &AppError{Message: ack.Error}
	}
	return &ack, nil
}

func (c *Client) UpdateFunction(ctx context.Context, id int, code, description string) error {
	resp, err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/api/function/%d", id), map[string]string{
		"code":        code,
		"description": description,
	})
	if err != nil {
		return err
	}
	var ack Ack
	if err := decodeReply(resp, &ack); err != nil {
		return err
	}
	if !ack.Success {
		return &AppError{Message: ack.Error}
	}
	return nil
}

func (c *Client) ToggleFunction(ctx context.Context, id int, approved bool) (*ToggleResult, error) {
	resp, err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/api/function/%d/toggle", id), map[string]bool{"approved": approved})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	var out ToggleResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode toggle: %w", err)
	}
	if !out.Success {
		return nil, &AppError{Message: out.Message}
	}
	return &out, nil
}

func (c *Client) DeleteFunction(ctx context.Context, id int) (*Ack, error) {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/function/%d", id), "application/json", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	var ack Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("decode delete: %w", err)
	}
	if !ack.Success {
		return nil, &AppError{Message: ack.Message}
	}
	return &ack, nil
}

// --- Auth ---

func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	return c.auth(ctx, "/login", creds)
}

func (c *Client) Register(ctx context.Context, creds Credentials) (*AuthResult, error) {
	return c.auth(ctx, "/register", creds)
}

func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/logout", "", nil)
	if err != nil {
		return err
	}
	return expectOK(resp)
}

func (c *Client) auth(ctx context.Context, path string, creds Credentials) (*AuthResult, error) {
	resp, err := c.sendJSON(ctx, http.MethodPost, path, creds)
	if err != nil {
		return nil, err
	}
	var out AuthResult
	if err := decodeReply(resp, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &AppError{Message: out.Message}
	}
	return &out, nil
}

// --- Session cookies ---

// Cookies returns the cookies the jar holds for the backend.
func (c *Client) Cookies() []*http.Cookie {
	u, err := url.Parse(c.BaseURL)
	if err != nil || c.HTTPClient.Jar == nil {
		return nil
	}
	return c.HTTPClient.Jar.Cookies(u)
}

func (c *Client) SetCookies(cookies []*http.Cookie) {
	u, err := url.Parse(c.BaseURL)
	if err != nil || c.HTTPClient.Jar == nil {
		return
	}
	c.HTTPClient.Jar.SetCookies(u, cookies)
}

// --- Plumbing ---

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in any) (*http.Response, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(body))
}

// decodeReply reads an application reply regardless of status: the backend
// answers most failures with a JSON body carrying success=false. Only a body
// that is not JSON on an error status becomes a *StatusError.
func decodeReply(resp *http.Response, v any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		if resp.StatusCode >= 400 {
			return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func expectOK(resp *http.Response) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func buildMultipart(fields map[string]string, fileField string, files []UploadFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("multipart field %s: %w", k, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(fileField, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("multipart file %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("multipart file %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
