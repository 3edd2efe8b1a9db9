package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/metrics"
)

// Broadcaster fans a message out to connected subscribers and reports how
// many received it.
type Broadcaster interface {
	Broadcast(v any) int
}

// Claimer grants a key to exactly one caller across processes.
type Claimer interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

const (
	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second
)

type Option func(*Notifier)

func WithClaimer(c Claimer) Option {
	return func(n *Notifier) { n.claimer = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Notifier) { n.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// WithBackoff sets the restart delay bounds. A watch session that lasted at
// least max resets the delay to min.
func WithBackoff(min, max time.Duration) Option {
	return func(n *Notifier) {
		if min > 0 {
			n.minBackoff = min
		}
		if max >= n.minBackoff {
			n.maxBackoff = max
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		if now != nil {
			n.now = now
		}
	}
}

// Notifier turns appointment inserts into stored notifications and pushes
// them to realtime subscribers.
type Notifier struct {
	feed    Feed
	store   Store
	hub     Broadcaster
	claimer Claimer
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewNotifier(feed Feed, store Store, hub Broadcaster, opts ...Option) *Notifier {
	n := &Notifier{
		feed:       feed,
		store:      store,
		hub:        hub,
		logger:     zerolog.Nop(),
		now:        time.Now,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run watches the feed until ctx is cancelled, restarting the watch with
// exponential backoff whenever it fails.
func (n *Notifier) Run(ctx context.Context) error {
	backoff := n.minBackoff

	for {
		started := n.now()
		err := n.feed.Watch(ctx, n.Handle)
		if ctx.Err() != nil {
			n.logger.Info().Msg("notifier stopped")
			return ctx.Err()
		}

		if n.now().Sub(started) >= n.maxBackoff {
			backoff = n.minBackoff
		}

		n.metrics.ObserveNotifierRestart()
		n.logger.Error().Err(err).Dur("retry_in", backoff).Msg("appointment watch failed, restarting")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			n.logger.Info().Msg("notifier stopped")
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > n.maxBackoff {
			backoff = n.maxBackoff
		}
	}
}

// Handle processes one appointment insert. Failures are logged and never
// returned, so one bad event cannot stop the watch.
func (n *Notifier) Handle(ctx context.Context, ev AppointmentInserted) {
	notif := ForAppointment(ev, n.now())
	log := n.logger.With().Str("appointment_id", ev.ID.String()).Logger()

	if n.shouldPersist(ctx, ev.ID) {
		if err := n.store.Insert(ctx, notif); err != nil {
			n.metrics.ObserveNotification("store_failed")
			log.Error().Err(err).Msg("failed to store notification")
			if n.claimer != nil {
				if relErr := n.claimer.Release(ctx, claimKey(ev.ID)); relErr != nil {
					log.Warn().Err(relErr).Msg("failed to release notification claim")
				}
			}
		}
	}

	delivered := n.hub.Broadcast(notif)
	n.metrics.ObserveNotification("broadcast")
	log.Debug().Int("subscribers", delivered).Msg("notification broadcast")
}

// shouldPersist reports whether this process owns storing the notification.
// If the claim cannot be checked, store anyway; the insert is idempotent.
func (n *Notifier) shouldPersist(ctx context.Context, id uuid.UUID) bool {
	if n.claimer == nil {
		return true
	}
	ok, err := n.claimer.Claim(ctx, claimKey(id))
	if err != nil {
		n.logger.Warn().Err(err).Str("appointment_id", id.String()).Msg("notification claim unavailable")
		return true
	}
	return ok
}

func claimKey(id uuid.UUID) string {
	return "notification:" + id.String()
}

func (n *Notifier) ListRecent(ctx context.Context, limit int) ([]Notification, error) {
	return n.store.ListRecent(ctx, clampLimit(limit))
}

func (n *Notifier) MarkRead(ctx context.Context, ids []uuid.UUID) (int64, error) {
	return n.store.MarkRead(ctx, ids)
}
