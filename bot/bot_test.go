package bot

import (
	"context"
	"testing"
	"time"
)

// rawLine builds a wire-format message the way the server sends it.
func rawLine(user, channel, body string) string {
	return "@badge-info=;badges=;color=;display-name=" + user +
		";emotes=;flags=;id=abc;mod=1;room-id=1;subscriber=0;tmi-sent-ts=0;turbo=0;user-id=2;user-type= :" +
		user + "!" + user + "@" + user + ".tmi.twitch.tv PRIVMSG #" + channel + " :" + body
}

func TestHandleLineEndToEnd(t *testing.T) {
	cat := newTestCatalog(t)
	r := NewRouter(cat, RouterConfig{Channel: "somechannel"})
	sender := newCaptureSender()
	b := New("somechannel", r, sender)
	ctx := context.Background()

	b.HandleLine(ctx, rawLine("themod", "somechannel", "!command-add !hi Hello there."))
	if line := sender.waitLine(t); line != "/me > Added command [!hi] : [Hello there.]" {
		t.Fatalf("line = %q", line)
	}

	b.HandleLine(ctx, rawLine("themod", "somechannel", "!command-auth !hi +a"))
	sender.waitLine(t)

	b.HandleLine(ctx, rawLine("viewer", "somechannel", "!hi"))
	if line := sender.waitLine(t); line != "/me > Hello there." {
		t.Fatalf("line = %q", line)
	}
}

func TestHandleLineDropsNoise(t *testing.T) {
	cat := newTestCatalog(t)
	r := NewRouter(cat, RouterConfig{Channel: "somechannel"})
	sender := newCaptureSender()
	b := New("somechannel", r, sender)

	b.HandleLine(context.Background(), ":tmi.twitch.tv 001 botname :Welcome, GLHF!")
	select {
	case line := <-sender.lines:
		t.Fatalf("noise produced output: %q", line)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleLinePong(t *testing.T) {
	cat := newTestCatalog(t)
	r := NewRouter(cat, RouterConfig{Channel: "somechannel"})
	sender := newCaptureSender()
	b := New("somechannel", r, sender)

	b.HandleLine(context.Background(), "PING :tmi.twitch.tv")
	if line := sender.waitLine(t); line != "PONG tmi.twitch.tv" {
		t.Fatalf("line = %q", line)
	}
}
