// Package bot contains the message pipeline: command routing, authorization,
// moderation and pyramid checks, builtin handlers, and the broadcast
// scheduler for repeating commands. The pipeline consumes decoded irc events
// and produces outbound actions; it never touches the socket itself.
package bot

import (
	"fmt"
	"strings"
)

// ActionKind discriminates outbound actions.
type ActionKind int

const (
	// ActionReply is a normal channel message, wrapped in the "/me > " convention.
	ActionReply ActionKind = iota
	// ActionWhisper is a directed reply to a single user.
	ActionWhisper
	// ActionTimeout is a moderation directive naming a user, a duration, and a reason.
	ActionTimeout
	// ActionSound asks the operator's sink to play a stored sound reference.
	ActionSound
	// ActionPong echoes a keep-alive payload back to the server.
	ActionPong
)

// Action is one outbound effect produced by routing a single event.
type Action struct {
	Kind ActionKind
	// Text is the reply body, whisper body, pong payload, or sound reference.
	Text string
	// User is the whisper recipient or timeout target.
	User string
	// DurationSeconds applies to timeouts.
	DurationSeconds int
	Reason          string
}

// Reply builds a channel reply action.
func Reply(text string) Action { return Action{Kind: ActionReply, Text: text} }

// Whisper builds a directed reply to user.
func Whisper(user, text string) Action { return Action{Kind: ActionWhisper, User: user, Text: text} }

// Timeout builds a moderation timeout directive.
func Timeout(user string, seconds int, reason string) Action {
	return Action{Kind: ActionTimeout, User: user, DurationSeconds: seconds, Reason: reason}
}

// Line renders the action as the message-body text handed to the transport
// writer. The transport wraps it in the protocol framing (PRIVMSG etc.).
func (a Action) Line() string {
	switch a.Kind {
	case ActionReply:
		return "/me > " + a.Text
	case ActionWhisper:
		return ".w " + a.User + " " + a.Text
	case ActionTimeout:
		return fmt.Sprintf(".timeout %s %d %s", a.User, a.DurationSeconds, a.Reason)
	case ActionPong:
		return "PONG " + a.Text
	case ActionSound:
		return ""
	}
	return ""
}

// Sender delivers rendered lines to the chat transport and sound references
// to the operator's audio sink. Implementations must be safe for concurrent
// use: the foreground pipeline and broadcast loops share one Sender.
type Sender interface {
	SendLine(line string)
	PlaySound(ref string)
}

// Deliver sends each action through the sender.
func Deliver(s Sender, actions []Action) {
	for _, a := range actions {
		if a.Kind == ActionSound {
			s.PlaySound(a.Text)
			continue
		}
		if line := a.Line(); line != "" {
			s.SendLine(line)
		}
	}
}

// firstWord returns the text up to the first space, or all of it.
func firstWord(s string) string {
	if i := strings.Index(s, " "); i != -1 {
		return s[:i]
	}
	return s
}
