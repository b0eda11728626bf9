package auction

import (
	"context"
	"log/slog"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// Broadcaster publishes event envelopes to the bus and mirrors each one into
// the durable audit stream. Delivery failures are logged, never returned:
// broadcast is best-effort per subscriber and must not fail an accepted
// state transition.
type Broadcaster struct {
	bus    domain.EventBus
	logger *slog.Logger
}

// NewBroadcaster creates a Broadcaster over the given bus.
func NewBroadcaster(bus domain.EventBus, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		bus:    bus,
		logger: logger.With(slog.String("component", "broadcaster")),
	}
}

// Publish encodes the event and sends it on the given channel.
func (b *Broadcaster) Publish(ctx context.Context, channel string, ev domain.Event) {
	data, err := ev.Encode()
	if err != nil {
		b.logger.ErrorContext(ctx, "encode event failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := b.bus.Publish(ctx, channel, data); err != nil {
		b.logger.ErrorContext(ctx, "publish failed",
			slog.String("channel", channel),
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}

	if err := b.bus.StreamAppend(ctx, domain.EventStream, data); err != nil {
		b.logger.WarnContext(ctx, "event stream append failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}
