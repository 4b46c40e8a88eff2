package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// --- Admin entities ---

type Role struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsAdmin     bool   `json:"is_admin"`
	IsModerator bool   `json:"is_moderator,omitempty"`
}

type RoleDetail struct {
	Role
	Permissions []int         `json:"permissions"`
	Functions   []FunctionRef `json:"functions"`
}

// RoleInput is the body of a role create or update.
type RoleInput struct {
	Name        string   `json:"name"`
	IsAdmin     bool     `json:"is_admin"`
	Functions   []string `json:"functions"`
	Description string   `json:"description"`
}

type FunctionRef struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Approved bool   `json:"approved"`
}

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Roles []int  `json:"roles"`
	Func  int    `json:"func"`
}

type RoleRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type UserSummary struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Status       bool      `json:"status"`
	RegisteredAt string    `json:"registered_at"`
	Roles        []RoleRef `json:"roles"`
}

type UserStatus struct {
	ID     int  `json:"id"`
	Status bool `json:"status"`
}

type FunctionSummary struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	FunctionType string `json:"function_type"`
	Approved     bool   `json:"approved"`
	Author       string `json:"author"`
}

// --- Function interaction ---

type Param struct {
	Name   string
	Prompt string
}

// Usage maps parameter names to prompts, in the order the server sent them.
type Usage []Param

func (u *Usage) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*u = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("usage: expected object, got %v", tok)
	}

	var out Usage
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("usage %q: %w", key, err)
		}
		var prompt string
		if err := json.Unmarshal(raw, &prompt); err != nil {
			prompt = string(raw)
		}
		out = append(out, Param{Name: key, Prompt: prompt})
	}
	*u = out
	return nil
}

func (u Usage) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, p := range u {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(p.Name)
		v, _ := json.Marshal(p.Prompt)
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

type FileUpload struct {
	Allowed  bool     `json:"allowed"`
	Types    []string `json:"types"`
	Multiple bool     `json:"multiple"`
}

type Interaction struct {
	Description string      `json:"description"`
	Usage       Usage       `json:"usage"`
	FileUpload  *FileUpload `json:"file_upload,omitempty"`
}

type InteractionResponse struct {
	Success     bool        `json:"success"`
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Interaction Interaction `json:"interaction"`
	Error       string      `json:"error,omitempty"`
}

// --- Execution ---

type UploadFile struct {
	Name string
	Data []byte
}

type ExecuteResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type ExecutionRecord struct {
	FunctionID int               `json:"function_id"`
	Arguments  map[string]string `json:"arguments"`
	Result     string            `json:"result"`
	Success    bool              `json:"success"`
}

type ExecutionEntry struct {
	ID       int             `json:"id"`
	Function FunctionRef     `json:"function"`
	Args     json.RawMessage `json:"arguments"`
	Result   string          `json:"result"`
	Success  bool            `json:"success"`
	At       string          `json:"timestamp"`
}

// --- Test runs ---

// TestCase is one input/expected pair sent to the test endpoint.
type TestCase struct {
	Input    any `json:"input" yaml:"input"`
	Expected any `json:"expected,omitempty" yaml:"expected"`
}

type TestOutcome struct {
	Input    json.RawMessage `json:"input"`
	Expected json.RawMessage `json:"expected,omitempty"`
	Output   json.RawMessage `json:"output"`
	Passed   bool            `json:"passed"`
	Error    string          `json:"error,omitempty"`
}

type TestStats struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

type TestResponse struct {
	Success bool          `json:"success"`
	Results []TestOutcome `json:"results"`
	Stats   TestStats     `json:"stats"`
	Error   string        `json:"error,omitempty"`
}

// FunctionInput is the multipart body of a function upload.
type FunctionInput struct {
	Name         string
	Description  string
	FunctionType string
	File         *UploadFile
	TestCases    string
}

// --- Generic replies ---

type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	ID      int    `json:"id,omitempty"`
}

type ToggleResult struct {
	Success   bool   `json:"success"`
	NewStatus bool   `json:"new_status"`
	Message   string `json:"message,omitempty"`
}

type Credentials struct {
	Username        string `json:"username"`
	Email           string `json:"email,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"c_password,omitempty"`
}

type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Next    string `json:"next,omitempty"`
}
