package irc

import "strings"

// actionPrefix wraps "/me" messages on the wire: \x01ACTION <text>\x01.
const actionPrefix = "ACTION "

// Decoder turns raw inbound lines into Events. The channel name is needed
// to recognize the broadcaster, who is always treated as a moderator.
type Decoder struct {
	channel string
}

// NewDecoder returns a Decoder for the given joined channel.
func NewDecoder(channel string) *Decoder {
	return &Decoder{channel: strings.ToLower(channel)}
}

// Decode parses one raw line. It returns ok=false for anything that is not
// a keep-alive or a well-formed user message; callers drop the line and
// keep reading. It never panics on malformed input.
func (d *Decoder) Decode(raw string) (Event, bool) {
	if raw == "" {
		return Event{}, false
	}

	if strings.HasPrefix(raw, "PING") {
		i := strings.Index(raw, " :")
		if i == -1 {
			return Event{}, false
		}
		return Event{Kind: Ping, Body: raw[i+2:]}, true
	}

	id, ok := d.decodeIdentity(raw)
	if !ok {
		return Event{}, false
	}

	body, ok := messageBody(raw)
	if !ok {
		return Event{}, false
	}

	return Event{Kind: ChatMessage, Requester: id, Body: stripAction(body)}, true
}

// decodeIdentity extracts the three role signals from the tag metadata.
// Any missing signal means the line cannot be trusted and is dropped.
func (d *Decoder) decodeIdentity(raw string) (Identity, bool) {
	var id Identity

	// The broadcaster badge marks the channel owner's own client, which
	// carries mod=0 on the wire but moderates trivially.
	if strings.Contains(tagSection(raw), "badges=broadcaster/1") {
		id.IsModerator = true
	}

	id.IsModerator = id.IsModerator || tagValue(raw, "mod=") == "1"
	id.IsSubscriber = tagValue(raw, "subscriber=") == "1"

	// Username sits between the ":" after the final tag and the "!" of
	// the hostmask: ...user-type= :name!name@name.tmi.twitch.tv ...
	ut := strings.Index(raw, "user-type=")
	if ut == -1 {
		return Identity{}, false
	}
	start := strings.Index(raw[ut:], ":")
	if start == -1 {
		return Identity{}, false
	}
	start += ut
	end := strings.Index(raw[start:], "!")
	if end == -1 {
		return Identity{}, false
	}
	id.Username = strings.ToLower(raw[start+1 : start+end])
	if id.Username == "" {
		return Identity{}, false
	}

	if id.Username == d.channel {
		id.IsChannelOwner = true
		id.IsModerator = true
	}
	return id, true
}

// messageBody locates the actual message text. The verb must be PRIVMSG and
// must appear before the channel marker; anything a user types lands after
// the delimiter, so searching a bounded region prevents spoofed metadata.
func messageBody(raw string) (string, bool) {
	ut := strings.Index(raw, "user-type=")
	if ut == -1 {
		return "", false
	}
	rest := raw[ut:]

	ch := strings.Index(rest, "#")
	if ch == -1 {
		return "", false
	}
	if !strings.Contains(rest[:ch], "PRIVMSG") {
		return "", false
	}
	body := strings.Index(rest[ch:], ":")
	if body == -1 {
		return "", false
	}
	return rest[ch+body+1:], true
}

// tagSection returns the leading @-tag block of the line, or the whole line
// if no space-delimited prefix is found.
func tagSection(raw string) string {
	if i := strings.Index(raw, " "); i != -1 {
		return raw[:i]
	}
	return raw
}

// tagValue returns the value of a tag like "mod=" or "subscriber=", empty
// if the tag is absent. Absence of a tag means false, never an error.
func tagValue(raw, tag string) string {
	i := strings.Index(raw, tag)
	if i == -1 {
		return ""
	}
	rest := raw[i+len(tag):]
	if j := strings.IndexAny(rest, "; "); j != -1 {
		return rest[:j]
	}
	return rest
}

// stripAction removes the \x01ACTION wrapper so an acted message
// ("/me hi") routes identically to a plain "hi".
func stripAction(body string) string {
	if !strings.Contains(body, "\x01") {
		return body
	}
	body = strings.ReplaceAll(body, "\x01", "")
	return strings.TrimPrefix(body, actionPrefix)
}
