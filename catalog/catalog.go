package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/chatkeeper/telemetry"
)

// Sentinel errors for user-visible catalog outcomes. Handlers turn these
// into chat replies; anything else is an internal failure.
var (
	ErrExists   = errors.New("already exists")
	ErrNotFound = errors.New("not found")
	ErrReserved = errors.New("reserved command")
	ErrBadName  = errors.New("commands should start with " + Trigger)
	ErrInterval = errors.New("interval below minimum")
	ErrBadValue = errors.New("bad value")
)

// Config keys for the runtime-tunable settings.
const (
	ConfigMessageCacheSize = "recentMessageCacheSize"
	ConfigPyramidResponse  = "pyramidResponse"
)

const commitTimeout = 5 * time.Second

// reservedDefaults seeds the builtin command records on first start. Query
// commands default to everyone (+a), mutating commands to moderators (+m).
// The rules are editable afterwards via !command-auth (owner only for
// reserved names) and persist across restarts.
var reservedDefaults = map[string]string{
	"!uptime":              "+a ",
	"!followage":           "+a ",
	"!commands":            "+a ",
	"!command-add":         "+m ",
	"!command-delete":      "+m ",
	"!command-edit":        "+m ",
	"!command-auth":        "+m ",
	"!command-repeat":      "+m ",
	"!command-delay":       "+m ",
	"!command-interval":    "+m ",
	"!command-cooldown":    "+m ",
	"!command-sound":       "+m ",
	"!command-enable":      "+m ",
	"!command-disable":     "+m ",
	"!set-msgcache":        "+m ",
	"!set-pyramidresponse": "+m ",
	"!cnt-add":             "+m ",
	"!cnt-delete":          "+m ",
	"!cnt-set":             "+m ",
	"!cnt-current":         "+a ",
	"!countadd":            "+m ",
	"!totals":              "+a ",
	"!filter-all":          "+m ",
	"!filter-add":          "+m ",
	"!filter-delete":       "+m ",
}

// IsReserved reports whether name is a builtin command name. The check is
// case-sensitive against the lower-cased incoming token, like the router's.
func IsReserved(name string) bool {
	_, ok := reservedDefaults[name]
	return ok
}

// ReservedNames returns the builtin command names, sorted.
func ReservedNames() []string {
	names := make([]string, 0, len(reservedDefaults))
	for n := range reservedDefaults {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Catalog owns all command/counter/filter records. All mutating operations
// serialize on mu so a concurrent cooldown arm and delete can never
// interleave, and at most one trigger passes a cooldown window. Reads hand
// out copies, never references into the live slices.
type Catalog struct {
	store Datastore

	mu       sync.Mutex
	commands []Command
	counters []Counter
	filters  []Filter
	config   map[string]string
}

// Load builds a Catalog from the datastore, seeding reserved command
// records that are missing from the persisted snapshot.
func Load(ctx context.Context, store Datastore) (*Catalog, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	c := &Catalog{
		store:    store,
		commands: snap.Commands,
		counters: snap.Counters,
		filters:  snap.Filters,
		config:   snap.Config,
	}
	if c.config == nil {
		c.config = make(map[string]string)
	}
	seeded := false
	for name, auth := range reservedDefaults {
		if c.find(name) == nil {
			c.commands = append(c.commands, Command{Name: name, Auth: auth, Reserved: true})
			seeded = true
		}
	}
	// Persisted reserved flags are not trusted; the table in this binary is.
	for i := range c.commands {
		c.commands[i].Reserved = IsReserved(c.commands[i].Name)
		c.commands[i].CooldownUntil = time.Time{}
	}
	if seeded {
		sort.Slice(c.commands, func(i, j int) bool { return c.commands[i].Name < c.commands[j].Name })
		c.commit()
	}
	return c, nil
}

// find returns a pointer into the live slice; callers must hold mu or be
// inside Load before the catalog is shared.
func (c *Catalog) find(name string) *Command {
	for i := range c.commands {
		if c.commands[i].Name == name {
			return &c.commands[i]
		}
	}
	return nil
}

// commit persists the current state. A failure is logged as severe and
// counted, but the in-memory mutation is retained: the bot keeps working
// for the rest of the session and the operator is warned that persisted
// state is stale until the next successful commit. Called with mu held.
func (c *Catalog) commit() {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	snap := c.snapshotLocked()
	if err := c.store.Commit(ctx, snap); err != nil {
		telemetry.CommitFailureInc()
		slog.Error("catalog commit failed; in-memory state retained, persisted state is stale",
			slog.Any("err", err))
	}
}

func (c *Catalog) snapshotLocked() Snapshot {
	snap := Snapshot{
		Commands: make([]Command, len(c.commands)),
		Counters: make([]Counter, len(c.counters)),
		Filters:  make([]Filter, len(c.filters)),
		Config:   make(map[string]string, len(c.config)),
	}
	copy(snap.Commands, c.commands)
	copy(snap.Counters, c.counters)
	copy(snap.Filters, c.filters)
	for k, v := range c.config {
		snap.Config[k] = v
	}
	for i := range snap.Commands {
		snap.Commands[i].CooldownUntil = time.Time{}
	}
	return snap
}

// Snapshot returns a deep copy of the persistable state.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Configuration returns the stored value for key, or fallback when unset.
func (c *Catalog) Configuration(key, fallback string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.config[key]; ok {
		return v
	}
	return fallback
}

// ModifyConfiguration stores a runtime-tunable setting and commits.
func (c *Catalog) ModifyConfiguration(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config[key] = value
	c.commit()
}

// Commands returns a copy of every command record, reserved included.
func (c *Catalog) Commands() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	return out
}

// Lookup returns a copy of the named command record.
func (c *Catalog) Lookup(name string) (Command, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cmd := c.find(name); cmd != nil {
		return *cmd, true
	}
	return Command{}, false
}

// AddCommand creates a custom command. The name must carry the trigger
// prefix and may not collide with a reserved or existing name.
func (c *Catalog) AddCommand(name, text string) error {
	name = strings.ToLower(name)
	if !strings.HasPrefix(name, Trigger) {
		return ErrBadName
	}
	if IsReserved(name) {
		return ErrReserved
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.find(name) != nil {
		return ErrExists
	}
	c.commands = append(c.commands, Command{Name: name, Text: text})
	c.commit()
	return nil
}

// EditCommand replaces the body of an existing custom command.
func (c *Catalog) EditCommand(name, text string) error {
	name = strings.ToLower(name)
	if IsReserved(name) {
		return ErrReserved
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cmd := c.find(name)
	if cmd == nil {
		return ErrNotFound
	}
	cmd.Text = text
	c.commit()
	return nil
}

// DeleteCommand removes a custom command. Deleting a missing name is a
// no-op returning ErrNotFound; the catalog is left untouched.
func (c *Catalog) DeleteCommand(name string) error {
	name = strings.ToLower(name)
	if IsReserved(name) {
		return ErrReserved
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.commands {
		if c.commands[i].Name == name {
			c.commands = append(c.commands[:i], c.commands[i+1:]...)
			c.commit()
			return nil
		}
	}
	return ErrNotFound
}

// SetCommandAttribute mutates one attribute of an existing command record
// and commits. Reserved names are rejected unless allowReserved (only the
// auth attribute is ever set that way, by the owner).
func (c *Catalog) SetCommandAttribute(name, attribute, value string, allowReserved bool) error {
	name = strings.ToLower(name)
	if !allowReserved && IsReserved(name) {
		return ErrReserved
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cmd := c.find(name)
	if cmd == nil {
		return ErrNotFound
	}
	switch attribute {
	case "auth":
		cmd.Auth = value
	case "repeating":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return ErrBadValue
		}
		cmd.Repeating = b
	case "initialDelay":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return ErrBadValue
		}
		cmd.InitialDelaySeconds = n
	case "interval":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return ErrBadValue
		}
		if time.Duration(n)*time.Second < MinRepeatInterval {
			return ErrInterval
		}
		cmd.IntervalSeconds = n
	case "cooldown":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return ErrBadValue
		}
		cmd.CooldownSeconds = n
		cmd.CooldownUntil = time.Time{}
	case "sound":
		cmd.Sound = value
	case "disabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return ErrBadValue
		}
		cmd.Disabled = b
	default:
		return fmt.Errorf("unknown command attribute %q", attribute)
	}
	c.commit()
	return nil
}

// CheckAndArmCooldown is the cooldown gate. It returns true and arms
// cooldownUntil = now + cooldownSeconds when the command is eligible, false
// without mutation while it is still cooling. Check and arm happen under
// the catalog lock, so a foreground trigger and a broadcast trigger racing
// on the same record cannot both pass one window. The arm is memory-only;
// cooldown timestamps reset on restart.
func (c *Catalog) CheckAndArmCooldown(name string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cmd := c.find(name)
	if cmd == nil {
		return false
	}
	if !cmd.CooldownUntil.IsZero() && now.Before(cmd.CooldownUntil) {
		return false
	}
	cmd.CooldownUntil = now.Add(time.Duration(cmd.CooldownSeconds) * time.Second)
	return true
}

// Counters returns a copy of all counter records.
func (c *Catalog) Counters() []Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Counter, len(c.counters))
	copy(out, c.counters)
	return out
}

// GetCounter returns the current value of a counter.
func (c *Catalog) GetCounter(name string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ctr := range c.counters {
		if ctr.Name == name {
			return ctr.Value, true
		}
	}
	return 0, false
}

// AddCounter creates a counter starting at zero.
func (c *Catalog) AddCounter(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ctr := range c.counters {
		if ctr.Name == name {
			return ErrExists
		}
	}
	c.counters = append(c.counters, Counter{Name: name})
	c.commit()
	return nil
}

// DeleteCounter removes a counter.
func (c *Catalog) DeleteCounter(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.counters {
		if c.counters[i].Name == name {
			c.counters = append(c.counters[:i], c.counters[i+1:]...)
			c.commit()
			return nil
		}
	}
	return ErrNotFound
}

// SetCounter sets a counter to an absolute value.
func (c *Catalog) SetCounter(name string, value int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.counters {
		if c.counters[i].Name == name {
			c.counters[i].Value = value
			c.commit()
			return nil
		}
	}
	return ErrNotFound
}

// UpdateCounter adds delta to a counter and returns the new value.
func (c *Catalog) UpdateCounter(name string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.counters {
		if c.counters[i].Name == name {
			c.counters[i].Value += delta
			c.commit()
			return c.counters[i].Value, nil
		}
	}
	return 0, ErrNotFound
}

// Filters returns a copy of all filter records in evaluation order.
func (c *Catalog) Filters() []Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Filter, len(c.filters))
	copy(out, c.filters)
	return out
}

// AddFilter appends a filter record.
func (c *Catalog) AddFilter(f Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.filters {
		if existing.Name == f.Name {
			return ErrExists
		}
	}
	c.filters = append(c.filters, f)
	c.commit()
	return nil
}

// DeleteFilter removes a filter by its pattern.
func (c *Catalog) DeleteFilter(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.filters {
		if c.filters[i].Name == name {
			c.filters = append(c.filters[:i], c.filters[i+1:]...)
			c.commit()
			return nil
		}
	}
	return ErrNotFound
}
