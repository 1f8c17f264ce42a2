package bot

import (
	"regexp"
	"strings"

	"github.com/onnwee/chatkeeper/catalog"
)

// timeoutSeconds is the fixed duration for filter and username timeouts.
const timeoutSeconds = 600

// bannedUsername matches the throwaway-account shape: fourteen digits, or
// seven digits, one letter, seven digits.
var bannedUsername = regexp.MustCompile(`^(\d{7}[A-Za-z]\d{7}|\d{14})$`)

// usernameCaughtReason is the generic reason for the username check.
const usernameCaughtReason = "Username caught by filter"

// Moderator runs the banned-phrase and banned-username checks consulted on
// every message, command or not.
type Moderator struct {
	cat *catalog.Catalog
}

// NewModerator returns a Moderator reading filter records from the catalog.
func NewModerator(cat *catalog.Catalog) *Moderator {
	return &Moderator{cat: cat}
}

// Check returns a timeout action when either check matches. Filters are
// scanned in catalog order and the first enabled record whose pattern is a
// substring of the message wins; disabled records are skipped and the scan
// continues past them.
func (m *Moderator) Check(username, msg string) (Action, bool) {
	for _, f := range m.cat.Filters() {
		if f.Disabled {
			continue
		}
		if strings.Contains(msg, f.Name) {
			return Timeout(username, timeoutSeconds, f.Reason), true
		}
	}
	if bannedUsername.MatchString(username) {
		return Timeout(username, timeoutSeconds, usernameCaughtReason), true
	}
	return Action{}, false
}
