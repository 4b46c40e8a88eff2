package model

import (
	"bytes"
	"encoding/json"
	"time"
)

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []int     `json:"roles"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeen     time.Time `json:"-"`
}

type Role struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsAdmin     bool   `json:"is_admin"`
	Functions   []int  `json:"permissions"`
}

// DefaultRole is assigned on registration and cannot be deleted.
const DefaultRole = "user"

// FuncKind selects how the dev executor simulates a function.
type FuncKind string

const (
	KindEcho   FuncKind = "echo"
	KindDetect FuncKind = "detect"
)

type Function struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	FunctionType string      `json:"function_type"`
	Approved     bool        `json:"approved"`
	AuthorID     int         `json:"-"`
	Code         string      `json:"-"`
	TestCases    string      `json:"-"`
	Kind         FuncKind    `json:"-"`
	Interaction  Interaction `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
}

// FunctionTypes are the accepted values of Function.FunctionType.
var FunctionTypes = []string{"text/code", "image", "link"}

type Param struct {
	Name   string
	Prompt string
}

// Usage is an ordered parameter list, encoded as a JSON object in order.
type Usage []Param

func (u Usage) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, p := range u {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Prompt)
		if err != nil {
			return nil, err
		}
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

type Execution struct {
	ID         int               `json:"id"`
	FunctionID int               `json:"function_id"`
	UserID     int               `json:"-"`
	Arguments  map[string]string `json:"arguments"`
	Result     string            `json:"result"`
	Success    bool              `json:"success"`
	At         time.Time         `json:"timestamp"`
}
