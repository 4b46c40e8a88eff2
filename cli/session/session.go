// Package session keeps the backend's session cookie in the OS keyring so a
// login survives between runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zalando/go-keyring"
)

const keyringService = "modpanel"

type cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Path  string `json:"path,omitempty"`
}

// normalizeKey folds equivalent base URLs onto one keyring entry.
func normalizeKey(baseURL string) string {
	s := strings.TrimSpace(baseURL)
	s = strings.TrimRight(s, "/")
	return strings.ToLower(s)
}

// Save stores cookies for baseURL. An empty set removes the entry.
func Save(baseURL string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return Clear(baseURL)
	}
	recs := make([]cookie, 0, len(cookies))
	for _, c := range cookies {
		recs = append(recs, cookie{Name: c.Name, Value: c.Value, Path: c.Path})
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := keyring.Set(keyringService, normalizeKey(baseURL), string(data)); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Load returns the cookies stored for baseURL, or nil when there are none.
func Load(baseURL string) ([]*http.Cookie, error) {
	data, err := keyring.Get(keyringService, normalizeKey(baseURL))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var recs []cookie
	if err := json.Unmarshal([]byte(data), &recs); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	out := make([]*http.Cookie, 0, len(recs))
	for _, r := range recs {
		out = append(out, &http.Cookie{Name: r.Name, Value: r.Value, Path: r.Path})
	}
	return out, nil
}

// Clear forgets the session for baseURL. Clearing a missing entry is fine.
func Clear(baseURL string) error {
	err := keyring.Delete(keyringService, normalizeKey(baseURL))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
