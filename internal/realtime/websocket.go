package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wsConn serializes writes on one websocket; gorilla allows a single
// concurrent writer.
type wsConn struct {
	mu        sync.Mutex
	ws        *websocket.Conn
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, msg)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.Close()
	})
	return err
}

// Handler upgrades requests to websockets and registers them until the
// client goes away. Inbound messages are read and discarded.
type Handler struct {
	registry *Registry
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler accepts any origin when allowedOrigins is empty or contains "*".
func NewHandler(registry *Registry, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := newWSConn(ws)
	h.registry.Register(conn)
	h.logger.Debug().Str("remote", r.RemoteAddr).Int("subscribers", h.registry.Count()).Msg("subscriber connected")

	done := make(chan struct{})
	go h.keepAlive(conn, done)

	h.readUntilClosed(conn)
	close(done)

	h.registry.Unregister(conn)
	_ = conn.Close()
	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("subscriber disconnected")
}

func (h *Handler) readUntilClosed(c *wsConn) {
	c.ws.SetReadLimit(4096)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) keepAlive(c *wsConn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
