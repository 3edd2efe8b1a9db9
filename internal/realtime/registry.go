// Package realtime tracks connected notification subscribers and fans
// messages out to them.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/metrics"
)

// Conn is one subscriber. Send must be safe to call from any goroutine.
type Conn interface {
	Send(msg []byte) error
	Close() error
}

// Registry is the set of live subscribers. Delivery is at-most-once with no
// ordering across subscribers.
type Registry struct {
	mu    sync.RWMutex
	conns map[Conn]struct{}

	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewRegistry(m *metrics.Metrics, logger zerolog.Logger) *Registry {
	return &Registry{
		conns:   make(map[Conn]struct{}),
		metrics: m,
		logger:  logger,
	}
}

func (r *Registry) Register(c Conn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	n := len(r.conns)
	r.mu.Unlock()

	r.metrics.SetConnections(n)
}

// Unregister removes c. It reports whether c was registered.
func (r *Registry) Unregister(c Conn) bool {
	r.mu.Lock()
	_, ok := r.conns[c]
	delete(r.conns, c)
	n := len(r.conns)
	r.mu.Unlock()

	if ok {
		r.metrics.SetConnections(n)
	}
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast JSON-encodes v once and sends it to every subscriber. A
// subscriber whose send fails is dropped and closed. It returns the number of
// successful deliveries.
func (r *Registry) Broadcast(v any) int {
	msg, err := json.Marshal(v)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to encode broadcast")
		return 0
	}

	r.mu.RLock()
	snapshot := make([]Conn, 0, len(r.conns))
	for c := range r.conns {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range snapshot {
		if err := c.Send(msg); err != nil {
			r.logger.Debug().Err(err).Msg("dropping dead subscriber")
			if r.Unregister(c) {
				_ = c.Close()
			}
			continue
		}
		delivered++
	}
	return delivered
}

// CloseAll disconnects every subscriber. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	snapshot := r.conns
	r.conns = make(map[Conn]struct{})
	r.mu.Unlock()

	for c := range snapshot {
		_ = c.Close()
	}
	r.metrics.SetConnections(0)
}
