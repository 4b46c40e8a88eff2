package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types pushed to watchers.
const (
	UserLogin        = "user.login"
	UserLogout       = "user.logout"
	FunctionExecuted = "function.executed"
	FunctionChanged  = "function.changed"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

type Event struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// Audience selects the watchers an event is delivered to.
type Audience struct {
	All    bool
	Admins bool
	User   int // also deliver to this user's watchers; 0 for none
}

var Everyone = Audience{All: true}

type watcher struct {
	conn  *websocket.Conn
	send  chan []byte
	user  int
	admin bool
}

func (w *watcher) wants(a Audience) bool {
	return a.All || (a.Admins && w.admin) || (a.User != 0 && a.User == w.user)
}

type delivery struct {
	data []byte
	to   Audience
}

type Hub struct {
	mu       sync.RWMutex
	watchers map[*watcher]struct{}
	out      chan delivery
	join     chan *watcher
	leave    chan *watcher
	done     chan struct{}
	upgrader websocket.Upgrader
}

func New(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		watchers: make(map[*watcher]struct{}),
		out:      make(chan delivery, 256),
		join:     make(chan *watcher),
		leave:    make(chan *watcher),
		done:     make(chan struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
			return originAllowed(allowed, r.Header.Get("Origin"))
		}},
	}
}

// originAllowed accepts non-browser clients, configured origins and loopback.
func originAllowed(allowed map[string]bool, origin string) bool {
	if origin == "" || allowed[origin] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Run fans events out until ctx is done, then disconnects every watcher.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for w := range h.watchers {
				delete(h.watchers, w)
				close(w.send)
			}
			h.mu.Unlock()
			return
		case w := <-h.join:
			h.mu.Lock()
			h.watchers[w] = struct{}{}
			h.mu.Unlock()
			log.Debug().Int("user", w.user).Msg("hub: watcher joined")
		case w := <-h.leave:
			h.drop(w)
		case d := <-h.out:
			h.mu.Lock()
			for w := range h.watchers {
				if !w.wants(d.to) {
					continue
				}
				select {
				case w.send <- d.data:
				default:
					// Too slow to keep up; the write pump closes the socket.
					delete(h.watchers, w)
					close(w.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) drop(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.watchers[w]; ok {
		delete(h.watchers, w)
		close(w.send)
	}
}

// Clients is the number of connected watchers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers)
}

// Publish queues evt for the watchers in to. A nil hub drops it, and so does
// a full queue.
func (h *Hub) Publish(evt Event, to Audience) {
	if h == nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Warn().Err(err).Str("type", evt.Type).Msg("hub: marshal")
		return
	}
	select {
	case h.out <- delivery{data: data, to: to}:
	default:
		log.Warn().Str("type", evt.Type).Msg("hub: queue full, event dropped")
	}
}

// Serve upgrades the request and registers the connection as a watcher for
// user. Admin watchers also receive admin-only events.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, user int, admin bool) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("hub: upgrade")
		return
	}
	wt := &watcher{conn: conn, send: make(chan []byte, sendBuffer), user: user, admin: admin}
	select {
	case h.join <- wt:
	case <-h.done:
		conn.Close()
		return
	}

	go wt.writePump()
	go wt.readPump(h)
}

func (w *watcher) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		w.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for the peer going away; watchers never send.
func (w *watcher) readPump(h *Hub) {
	defer func() {
		select {
		case h.leave <- w:
		case <-h.done:
		}
		w.conn.Close()
	}()
	w.conn.SetReadLimit(512)
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			return
		}
	}
}
