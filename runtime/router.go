package runtime

import (
	"context"
	"log/slog"
	"time"

	"notifyhub/contract"
	"notifyhub/domain"
	"notifyhub/domain/event"
	"notifyhub/observability"
)

// Router delivers outbound events to the live members of a channel.
// Delivery is best-effort, at most once per live connection: members are
// resolved at publish time, nothing is buffered or retried here. Events
// published in sequence by one caller reach each sink in that order.
type Router struct {
	registry        contract.IRegistry
	log             *slog.Logger
	stats           *observability.Stats
	deliveryTimeout time.Duration
}

func NewRouter(registry contract.IRegistry, log *slog.Logger,
	stats *observability.Stats, deliveryTimeout time.Duration) *Router {
	return &Router{
		registry:        registry,
		log:             log,
		stats:           stats,
		deliveryTimeout: deliveryTimeout,
	}
}

// Publish pushes an event to every current member of the channel. A sink
// that refuses the event (full buffer, closed connection) only loses its
// own copy.
func (r *Router) Publish(channel domain.ChannelID, e event.Outbound) {
	sinks := r.registry.SinksFor(channel)
	if len(sinks) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.deliveryTimeout)
	defer cancel()

	for _, sink := range sinks {
		if err := sink.Consume(ctx, e); err != nil {
			r.stats.FrameDropped()
			r.log.Debug("event dropped for one connection",
				"channel", string(channel),
				"kind", e.Kind(),
				"error", err)
			continue
		}
		r.stats.FrameDelivered()
	}
}
