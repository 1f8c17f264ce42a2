// Package irc decodes the tag-annotated line feed coming from Twitch IRC into
// structured events. The decoder is deliberately defensive: the feed is
// semi-structured text and a malformed or partial line must never take down
// the read loop, so every failed lookup turns the line into silent noise.
package irc

// EventKind discriminates decoded line types.
type EventKind int

const (
	// Ping is a server keep-alive carrying an echoable payload.
	Ping EventKind = iota
	// ChatMessage is a user message with role metadata.
	ChatMessage
)

// Identity describes the author of a chat message as decoded from the
// line's tag metadata. Owner status is derived, not carried on the wire:
// a username matching the joined channel is the broadcaster.
type Identity struct {
	Username       string
	IsModerator    bool
	IsSubscriber   bool
	IsChannelOwner bool
}

// Event is one decoded inbound line. Constructed once per line and
// discarded after dispatch.
type Event struct {
	Kind      EventKind
	Requester Identity
	// Body is the message text for ChatMessage events, or the exact
	// trailing payload to echo back for Ping events.
	Body string
}
