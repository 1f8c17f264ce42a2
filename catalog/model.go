// Package catalog holds the bot's mutable command, counter, and filter
// records and the consistency contract around them. The Catalog service is
// the single writer of truth: every mutation happens under its lock and is
// committed to the backing Datastore before being reported as successful.
package catalog

import "time"

// Trigger is the leading character identifying a line as a command invocation.
const Trigger = "!"

// ParamToken is the substitution token a command body may embed once.
const ParamToken = "%param%"

// MinRepeatInterval is the floor for repeating-command intervals. Anything
// shorter is rejected at configuration time rather than creating a tight loop.
const MinRepeatInterval = 60 * time.Second

// Command is a catalog-defined command record. Reserved (builtin) commands
// also live in the catalog so their authorization rules are editable and
// persisted; only their Text/cooldown/repeat fields are meaningful for
// custom commands.
type Command struct {
	Name string
	// Text is the reply body; it may embed ParamToken once.
	Text string
	// Auth is the ordered authorization rule string, e.g. "-troll +m +a ".
	Auth            string
	CooldownSeconds int64
	// CooldownUntil is zero when the command is immediately eligible.
	// It is runtime state: never persisted, reset on restart.
	CooldownUntil       time.Time
	Repeating           bool
	IntervalSeconds     int64
	InitialDelaySeconds int64
	Sound               string
	Disabled            bool
	// Reserved marks a builtin name. Reserved records cannot be added,
	// edited, or deleted through the custom-command operations.
	Reserved bool
}

// Counter is a named int64 tally. Overflow wraps per Go int64 semantics.
type Counter struct {
	Name  string
	Value int64
}

// Filter is a banned-phrase record. Name is the substring pattern; record
// order is evaluation order and the first enabled match wins.
type Filter struct {
	Name     string
	Reason   string
	Disabled bool
}

// Snapshot is the full persistable state of the catalog. CooldownUntil is
// deliberately absent from what implementations store.
type Snapshot struct {
	Commands []Command
	Counters []Counter
	Filters  []Filter
	// Config holds runtime-tunable settings keyed by name
	// (e.g. "recentMessageCacheSize", "pyramidResponse").
	Config map[string]string
}
