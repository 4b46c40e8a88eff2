package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
)

// Event is one panel notification pushed over the websocket.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) WebSocketURL() string {
	u := c.BaseURL
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/ws"
}

// Watch streams events to fn until ctx is done or the connection drops.
// The session cookie from the client's jar authenticates the socket.
func (c *Client) Watch(ctx context.Context, fn func(Event)) error {
	dialer := websocket.Dialer{
		Jar:              c.HTTPClient.Jar,
		HandshakeTimeout: c.HTTPClient.Timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, c.WebSocketURL(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return &StatusError{Code: resp.StatusCode}
		}
		return &TransportError{Err: err}
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ws read: %w", err)
		}
		var evt Event
		if err := json.Unmarshal(msg, &evt); err != nil {
			continue
		}
		fn(evt)
	}
}
