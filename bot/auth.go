package bot

import (
	"strings"

	"github.com/onnwee/chatkeeper/irc"
)

// Authorize evaluates a command's authorization rule against a requester.
//
// The channel owner is always authorized, before any rule is consulted. An
// empty rule denies everyone else. Otherwise the rule's tokens are checked
// in a fixed precedence order, and the first matching token decides:
//
//	-<user>  deny this user        +<user>  allow this user
//	-m       deny moderators       +m       allow moderators
//	-s       deny subscribers      +s       allow subscribers
//	-a       deny everyone         +a       allow everyone
//
// The precedence is the order above, not the order tokens appear in the
// rule string: a per-user deny beats a global allow no matter how the rule
// is written. Reordering these checks changes effective permissions, so
// they must stay exactly as listed. No match means deny.
func Authorize(rule string, id irc.Identity) bool {
	if id.IsChannelOwner {
		return true
	}
	if rule == "" {
		return false
	}

	tokens := strings.Fields(strings.ToLower(rule))
	has := func(t string) bool {
		for _, tok := range tokens {
			if tok == t {
				return true
			}
		}
		return false
	}

	user := strings.ToLower(id.Username)
	switch {
	case has("-" + user):
		return false
	case has("+" + user):
		return true
	case has("-m") && id.IsModerator:
		return false
	case has("+m") && id.IsModerator:
		return true
	case has("-s") && id.IsSubscriber:
		return false
	case has("+s") && id.IsSubscriber:
		return true
	case has("-a"):
		return false
	case has("+a"):
		return true
	}
	return false
}
