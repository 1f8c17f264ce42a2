package bot

import (
	"context"

	"github.com/google/uuid"

	"github.com/onnwee/chatkeeper/irc"
	"github.com/onnwee/chatkeeper/telemetry"
)

// Bot ties the decoder, router, and sender into the per-line pipeline.
type Bot struct {
	dec    *irc.Decoder
	router *Router
	sender Sender
}

// New builds the pipeline for channel.
func New(channel string, router *Router, sender Sender) *Bot {
	return &Bot{
		dec:    irc.NewDecoder(channel),
		router: router,
		sender: sender,
	}
}

// HandleLine processes one raw inbound line end to end: decode, route,
// deliver. Lines that decode to nothing are dropped. Each line gets a
// correlation id so its log records can be tied together.
func (b *Bot) HandleLine(ctx context.Context, raw string) {
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())

	telemetry.TimeFunc(telemetry.RouteDuration, func() {
		ev, ok := b.dec.Decode(raw)
		if !ok {
			count(telemetry.LinesDropped)
			return
		}
		count(telemetry.LinesDecoded)

		if actions := b.router.Route(ctx, ev); len(actions) > 0 {
			log := telemetry.LoggerWithCorr(ctx)
			log.Debug("routed line",
				"kind", int(ev.Kind),
				"user", ev.Requester.Username,
				"actions", len(actions))
			Deliver(b.sender, actions)
		}
	})
}
