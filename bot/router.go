package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/onnwee/chatkeeper/catalog"
	"github.com/onnwee/chatkeeper/config"
	"github.com/onnwee/chatkeeper/irc"
	"github.com/onnwee/chatkeeper/telemetry"
)

// StreamInfo is the stream-status collaborator behind !uptime and !followage.
type StreamInfo interface {
	// StreamUptime returns how long the channel has been live, and whether
	// it is live at all.
	StreamUptime(ctx context.Context) (time.Duration, bool, error)
	// FollowDate returns when user started following the channel, and
	// whether they follow it at all.
	FollowDate(ctx context.Context, user string) (time.Time, bool, error)
}

// TitleLookup resolves a video id to its title for the link watcher.
type TitleLookup interface {
	VideoTitle(ctx context.Context, videoID string) (title string, found bool, err error)
}

// RouterConfig carries the router's collaborators. Streams, Titles, and
// Scheduler may be nil; the corresponding features degrade to no-ops.
type RouterConfig struct {
	Channel         string
	CacheSize       int
	PyramidResponse string
	Streams         StreamInfo
	Titles          TitleLookup
	Scheduler       *Scheduler
}

// Router is the dispatcher: it receives decoded events, runs the moderation
// and pyramid checks on every message, resolves builtin and custom
// commands, and gates them through authorization and cooldown. Routing is
// synchronous and in-memory; the only shared state is the catalog.
type Router struct {
	cat     *catalog.Catalog
	channel string
	pyramid *PyramidDetector
	mod     *Moderator
	streams StreamInfo
	titles  TitleLookup
	sched   *Scheduler

	defaultCacheSize       int
	defaultPyramidResponse string

	now func() time.Time
}

// NewRouter wires a Router over the catalog.
func NewRouter(cat *catalog.Catalog, rc RouterConfig) *Router {
	if rc.CacheSize == 0 {
		rc.CacheSize = config.DefaultMessageCacheSize
	}
	if rc.PyramidResponse == "" {
		rc.PyramidResponse = config.DefaultPyramidResponse
	}
	return &Router{
		cat:                    cat,
		channel:                strings.ToLower(rc.Channel),
		pyramid:                NewPyramidDetector(),
		mod:                    NewModerator(cat),
		streams:                rc.Streams,
		titles:                 rc.Titles,
		sched:                  rc.Scheduler,
		defaultCacheSize:       rc.CacheSize,
		defaultPyramidResponse: rc.PyramidResponse,
		now:                    time.Now,
	}
}

// Route turns one decoded event into zero or more outbound actions.
func (r *Router) Route(ctx context.Context, ev irc.Event) []Action {
	if ev.Kind == irc.Ping {
		return []Action{{Kind: ActionPong, Text: ev.Body}}
	}

	id := ev.Requester
	body := ev.Body

	// Moderation short-circuits everything, including command handling.
	if a, ok := r.mod.Check(id.Username, body); ok {
		count(telemetry.TimeoutsIssued)
		return []Action{a}
	}

	var out []Action
	if r.pyramid.Observe(id.Username, body, r.cacheSize()) {
		count(telemetry.PyramidsBroken)
		out = append(out, Reply(r.pyramidResponse()))
	}

	if !strings.HasPrefix(body, catalog.Trigger) {
		return append(out, r.watchLinks(ctx, body)...)
	}

	name := strings.ToLower(firstWord(body))
	if h, ok := builtins[name]; ok {
		if !r.authorized(name, id) {
			count(telemetry.CommandsDenied)
			return out
		}
		count(telemetry.CommandsRouted)
		return append(out, h(r, ctx, id, body)...)
	}
	return append(out, r.runCustom(id, name, body)...)
}

// runCustom resolves and fires a catalog-defined command. Authorization,
// disabled, and cooldown denials are all silent so unauthorized users
// cannot probe which commands exist.
func (r *Router) runCustom(id irc.Identity, name, body string) []Action {
	cmd, ok := r.cat.Lookup(name)
	if !ok || cmd.Reserved {
		return nil
	}
	if !Authorize(cmd.Auth, id) {
		count(telemetry.CommandsDenied)
		return nil
	}
	if cmd.Disabled {
		count(telemetry.CommandsDenied)
		return nil
	}

	text := cmd.Text
	if i := strings.Index(body, " "); i != -1 {
		text = strings.ReplaceAll(text, catalog.ParamToken, body[i+1:])
	}
	if strings.Contains(text, catalog.ParamToken) {
		// No parameter supplied: error out before the cooldown arms or
		// any side effect fires.
		return []Action{Reply(name + " requires a parameter.")}
	}

	if !id.IsChannelOwner {
		if !r.cat.CheckAndArmCooldown(name, r.now()) {
			count(telemetry.CommandsDenied)
			return nil
		}
	}

	count(telemetry.CommandsRouted)
	out := []Action{Reply(text)}
	if cmd.Sound != "" {
		out = append(out, Action{Kind: ActionSound, Text: cmd.Sound})
	}
	return out
}

// authorized checks a builtin's catalog record against the requester.
func (r *Router) authorized(name string, id irc.Identity) bool {
	cmd, ok := r.cat.Lookup(name)
	if !ok {
		return id.IsChannelOwner
	}
	return Authorize(cmd.Auth, id)
}

// cacheSize reads the runtime-tunable pyramid window size.
func (r *Router) cacheSize() int {
	v := r.cat.Configuration(catalog.ConfigMessageCacheSize, "")
	if n, err := strconv.Atoi(v); err == nil && n >= config.MinMessageCacheSize && n <= config.MaxMessageCacheSize {
		return n
	}
	return r.defaultCacheSize
}

// pyramidResponse reads the runtime-tunable pyramid reply text.
func (r *Router) pyramidResponse() string {
	if v := r.cat.Configuration(catalog.ConfigPyramidResponse, ""); v != "" {
		return v
	}
	return r.defaultPyramidResponse
}

func count(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
