// Package chat owns the Twitch IRC socket. It forwards raw inbound lines to
// the message pipeline and writes the pipeline's replies back to the channel.
package chat

import (
	"context"
	"log/slog"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// LineHandler consumes one raw inbound line.
type LineHandler func(ctx context.Context, raw string)

// Connector wraps the IRC client for one channel. Reconnects and keep-alives
// are the client's concern; the pipeline only sees raw lines.
type Connector struct {
	client  *twitch.Client
	channel string
}

// NewConnector builds a client authenticated as username. oauth is the
// "oauth:" prefixed chat token.
func NewConnector(channel, username, oauth string) *Connector {
	return &Connector{
		client:  twitch.NewClient(username, oauth),
		channel: strings.ToLower(channel),
	}
}

// Run joins the channel and blocks reading lines until ctx is cancelled.
// Each private message is handed to handle as its raw wire line.
func (c *Connector) Run(ctx context.Context, handle LineHandler) error {
	c.client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		handle(ctx, msg.Raw)
	})
	c.client.OnConnect(func() {
		slog.Info("chat connected", slog.String("channel", c.channel))
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := c.client.Disconnect(); err != nil {
			slog.Error("chat disconnect error", slog.Any("err", err))
		}
		close(done)
	}()

	c.client.Join(c.channel)
	err := c.client.Connect()
	if ctx.Err() != nil {
		<-done
		return nil
	}
	return err
}

// Say writes one message body to the channel.
func (c *Connector) Say(text string) {
	c.client.Say(c.channel, text)
}
