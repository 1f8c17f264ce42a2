package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/chatkeeper/catalog"
	"github.com/onnwee/chatkeeper/config"
	"github.com/onnwee/chatkeeper/irc"
)

// builtinHandler runs one reserved command. msg is the full message body,
// trigger token included.
type builtinHandler func(r *Router, ctx context.Context, id irc.Identity, msg string) []Action

// builtins maps the reserved command names to their handlers. Resolution is
// a table lookup on the lower-cased leading token; custom commands are only
// consulted when no builtin matches, and creation-time checks keep custom
// names from ever colliding with these.
var builtins = map[string]builtinHandler{
	"!uptime":              (*Router).uptime,
	"!followage":           (*Router).followage,
	"!commands":            (*Router).listCommands,
	"!command-add":         (*Router).commandAdd,
	"!command-delete":      (*Router).commandDelete,
	"!command-edit":        (*Router).commandEdit,
	"!command-auth":        (*Router).commandAuth,
	"!command-repeat":      (*Router).commandRepeat,
	"!command-delay":       (*Router).commandDelay,
	"!command-interval":    (*Router).commandInterval,
	"!command-cooldown":    (*Router).commandCooldown,
	"!command-sound":       (*Router).commandSound,
	"!command-enable":      (*Router).commandEnable,
	"!command-disable":     (*Router).commandDisable,
	"!set-msgcache":        (*Router).setMsgCache,
	"!set-pyramidresponse": (*Router).setPyramidResponse,
	"!cnt-add":             (*Router).counterAdd,
	"!cnt-delete":          (*Router).counterDelete,
	"!cnt-set":             (*Router).counterSet,
	"!cnt-current":         (*Router).counterCurrent,
	"!countadd":            (*Router).counterUpdate,
	"!totals":              (*Router).counterTotals,
	"!filter-all":          (*Router).filterAll,
	"!filter-add":          (*Router).filterAdd,
	"!filter-delete":       (*Router).filterDelete,
}

// inputParam extracts everything after "cmd " from msg. ok is false when a
// required parameter is missing.
func inputParam(cmd, msg string, required bool) (string, bool) {
	if len(msg) <= len(cmd)+1 {
		return "", !required
	}
	return msg[len(cmd)+1:], true
}

// splitParam splits "first rest" parameters, failing when rest is absent.
func splitParam(params string) (first, rest string, ok bool) {
	i := strings.Index(params, " ")
	if i == -1 || i+1 >= len(params) {
		return "", "", false
	}
	return params[:i], params[i+1:], true
}

func (r *Router) uptime(ctx context.Context, _ irc.Identity, _ string) []Action {
	if r.streams == nil {
		return nil
	}
	up, live, err := r.streams.StreamUptime(ctx)
	if err != nil {
		slog.Error("stream status lookup failed", slog.Any("err", err))
		return nil
	}
	if !live {
		return []Action{Reply("Stream is not currently live.")}
	}
	h := int64(up.Hours())
	m := int64(up.Minutes()) % 60
	s := int64(up.Seconds()) % 60
	return []Action{Reply(fmt.Sprintf("Stream has been up for %d hours, %d minutes, %d seconds.", h, m, s))}
}

func (r *Router) followage(ctx context.Context, id irc.Identity, _ string) []Action {
	if r.streams == nil {
		return nil
	}
	user := strings.ToLower(id.Username)
	since, following, err := r.streams.FollowDate(ctx, user)
	if err != nil {
		slog.Error("follow date lookup failed", slog.String("user", user), slog.Any("err", err))
		return nil
	}
	if !following {
		return []Action{Reply("User " + user + " is not following " + r.channel)}
	}
	days := int64(time.Since(since).Hours() / 24)
	return []Action{Reply(fmt.Sprintf("%s has been following for %d days. Starting on %s.", user, days, since.Format("2006-01-02")))}
}

func (r *Router) listCommands(_ context.Context, id irc.Identity, _ string) []Action {
	var names []string
	for _, cmd := range r.cat.Commands() {
		if Authorize(cmd.Auth, id) {
			names = append(names, cmd.Name)
		}
	}
	if len(names) == 0 {
		return []Action{Whisper(id.Username, "No commands available to you.")}
	}
	return []Action{Whisper(id.Username, "Commands available to you: "+strings.Join(names, ", "))}
}

func (r *Router) commandAdd(_ context.Context, _ irc.Identity, msg string) []Action {
	syntax := Reply("Syntax: !command-add [!command] [text].")
	params, ok := inputParam("!command-add", msg, true)
	if !ok {
		return []Action{syntax}
	}
	cmd, text, ok := splitParam(params)
	if !ok {
		return []Action{syntax}
	}
	cmd = strings.ToLower(cmd)
	switch err := r.cat.AddCommand(cmd, text); {
	case errors.Is(err, catalog.ErrReserved):
		return []Action{Reply("Failed: [" + cmd + "] is a reserved command.")}
	case errors.Is(err, catalog.ErrExists):
		return []Action{Reply("Command [" + cmd + "] already exists.")}
	case errors.Is(err, catalog.ErrBadName):
		return []Action{Reply("Commands should start with an " + catalog.Trigger)}
	case err != nil:
		return []Action{syntax}
	}
	return []Action{Reply("Added command [" + cmd + "] : [" + text + "]")}
}

func (r *Router) commandDelete(_ context.Context, _ irc.Identity, msg string) []Action {
	cmd, ok := inputParam("!command-delete", msg, true)
	if !ok {
		return []Action{Reply("Syntax: !command-delete [!command]")}
	}
	cmd = strings.ToLower(cmd)
	switch err := r.cat.DeleteCommand(cmd); {
	case errors.Is(err, catalog.ErrReserved):
		return []Action{Reply("Failed: [" + cmd + "] is a reserved command.")}
	case errors.Is(err, catalog.ErrNotFound):
		return []Action{Reply("Command [" + cmd + "] not found.")}
	}
	r.syncScheduler(cmd)
	return []Action{Reply("Command [" + cmd + "] deleted.")}
}

func (r *Router) commandEdit(_ context.Context, _ irc.Identity, msg string) []Action {
	syntax := Reply("Syntax: !command-edit [!command] [text].")
	params, ok := inputParam("!command-edit", msg, true)
	if !ok {
		return []Action{syntax}
	}
	cmd, text, ok := splitParam(params)
	if !ok {
		return []Action{syntax}
	}
	cmd = strings.ToLower(cmd)
	switch err := r.cat.EditCommand(cmd, text); {
	case errors.Is(err, catalog.ErrReserved):
		return []Action{Reply("Failed: [" + cmd + "] is a reserved command.")}
	case errors.Is(err, catalog.ErrNotFound):
		return []Action{Reply("Command [" + cmd + "] not found.")}
	}
	return []Action{Reply("Command [" + cmd + "] changed to " + text)}
}

func (r *Router) commandAuth(_ context.Context, id irc.Identity, msg string) []Action {
	syntax := Reply("Syntax: !command-auth [!command] [auth list].")
	params, ok := inputParam("!command-auth", msg, true)
	if !ok {
		return []Action{syntax}
	}
	cmd, auth, ok := splitParam(params)
	if !ok {
		return []Action{syntax}
	}
	cmd = strings.ToLower(cmd)
	// Rules are matched as space-terminated tokens; keep the trailing
	// separator the matcher expects.
	auth += " "
	if catalog.IsReserved(cmd) && !id.IsChannelOwner {
		return []Action{Reply("Failed: only the channel owner can edit the auth for reserved commands.")}
	}
	if err := r.cat.SetCommandAttribute(cmd, "auth", auth, true); err != nil {
		return []Action{Reply("Command " + cmd + " not found.")}
	}
	return []Action{Reply("Command [" + cmd + "] authorization set to [" + auth + "]")}
}

func (r *Router) commandRepeat(_ context.Context, _ irc.Identity, msg string) []Action {
	syntax := Reply("Syntax: !command-repeat [!command] [true|false].")
	params, ok := inputParam("!command-repeat", msg, true)
	if !ok {
		return []Action{syntax}
	}
	cmd, repeat, ok := splitParam(params)
	if !ok || (repeat != "true" && repeat != "false") {
		return []Action{syntax}
	}
	cmd = strings.ToLower(cmd)
	if a, ok := r.setAttribute(cmd, "repeating", repeat); !ok {
		return a
	}
	r.syncScheduler(cmd)
	return []Action{Reply("Command [" + cmd + "] repeating set to [" + repeat + "]")}
}

func (r *Router) commandDelay(_ context.Context, _ irc.Identity, msg string) []Action {
	cmd, seconds, ok := r.secondsParam("!command-delay", msg)
	if !ok {
		return []Action{Reply("Syntax: !command-delay [!command] [seconds]")}
	}
	if a, ok := r.setAttribute(cmd, "initialDelay", seconds); !ok {
		return a
	}
	return []Action{Reply("Command [" + cmd + "] set to initial delay of [" + seconds + "] seconds.")}
}

func (r *Router) commandInterval(_ context.Context, _ irc.Identity, msg string) []Action {
	cmd, seconds, ok := r.secondsParam("!command-interval", msg)
	if !ok {
		return []Action{Reply("Syntax: !command-interval [!command] [seconds]")}
	}
	if a, ok := r.setAttribute(cmd, "interval", seconds); !ok {
		return a
	}
	r.syncScheduler(cmd)
	return []Action{Reply("Command [" + cmd + "] set to repeating interval of [" + seconds + "] seconds.")}
}

func (r *Router) commandCooldown(_ context.Context, _ irc.Identity, msg string) []Action {
	cmd, seconds, ok := r.secondsParam("!command-cooldown", msg)
	if !ok {
		return []Action{Reply("Syntax: !command-cooldown [!command] [seconds]")}
	}
	if a, ok := r.setAttribute(cmd, "cooldown", seconds); !ok {
		return a
	}
	return []Action{Reply("Command [" + cmd + "] set to cooldown of [" + seconds + "] seconds.")}
}

func (r *Router) commandSound(_ context.Context, _ irc.Identity, msg string) []Action {
	syntax := Reply("Syntax: !command-sound [!command] [filename.wav]")
	params, ok := inputParam("!command-sound", msg, true)
	if !ok {
		return []Action{syntax}
	}
	cmd, soundFile, ok := splitParam(params)
	if !ok {
		return []Action{syntax}
	}
	cmd = strings.ToLower(cmd)
	if soundFile == "null" {
		soundFile = ""
	}
	if a, ok := r.setAttribute(cmd, "sound", soundFile); !ok {
		return a
	}
	return []Action{Reply("Command [" + cmd + "] set to play sound file [" + soundFile + "]")}
}

func (r *Router) commandEnable(_ context.Context, _ irc.Identity, msg string) []Action {
	cmd, ok := inputParam("!command-enable", msg, true)
	if !ok {
		return []Action{Reply("Syntax: !command-enable [!command]")}
	}
	cmd = strings.ToLower(cmd)
	if a, ok := r.setAttribute(cmd, "disabled", "false"); !ok {
		return a
	}
	return []Action{Reply("Command " + cmd + " enabled.")}
}

func (r *Router) commandDisable(_ context.Context, _ irc.Identity, msg string) []Action {
	cmd, ok := inputParam("!command-disable", msg, true)
	if !ok {
		return []Action{Reply("Syntax: !command-disable [!command]")}
	}
	cmd = strings.ToLower(cmd)
	if a, ok := r.setAttribute(cmd, "disabled", "true"); !ok {
		return a
	}
	return []Action{Reply("Command " + cmd + " disabled.")}
}

func (r *Router) setMsgCache(_ context.Context, _ irc.Identity, msg string) []Action {
	syntax := Reply("Syntax: !set-msgcache [2-100]")
	value, ok := inputParam("!set-msgcache", msg, true)
	if !ok {
		return []Action{syntax}
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < config.MinMessageCacheSize || n > config.MaxMessageCacheSize {
		return []Action{syntax}
	}
	r.cat.ModifyConfiguration(catalog.ConfigMessageCacheSize, value)
	return []Action{Reply("Cache size set to [" + value + "] messages for pyramid detection.")}
}

func (r *Router) setPyramidResponse(_ context.Context, _ irc.Identity, msg string) []Action {
	value, _ := inputParam("!set-pyramidresponse", msg, false)
	r.cat.ModifyConfiguration(catalog.ConfigPyramidResponse, value)
	return []Action{Reply("Pyramid response set to [" + value + "]")}
}

func (r *Router) counterAdd(_ context.Context, _ irc.Identity, msg string) []Action {
	name, ok := inputParam("!cnt-add", msg, true)
	if !ok {
		return []Action{Reply("Syntax: !cnt-add [name]")}
	}
	if err := r.cat.AddCounter(name); errors.Is(err, catalog.ErrExists) {
		return []Action{Reply("Counter [" + name + "] already exists.")}
	}
	return []Action{Reply("Added counter [" + name + "]")}
}

func (r *Router) counterDelete(_ context.Context, _ irc.Identity, msg string) []Action {
	name, ok := inputParam("!cnt-delete", msg, true)
	if !ok {
		return []Action{Reply("Syntax: !cnt-delete [name]")}
	}
	if err := r.cat.DeleteCounter(name); errors.Is(err, catalog.ErrNotFound) {
		return []Action{Reply("Counter [" + name + "] not found.")}
	}
	return []Action{Reply("Counter [" + name + "] deleted.")}
}

func (r *Router) counterSet(_ context.Context, _ irc.Identity, msg string) []Action {
	syntax := Reply("Syntax: !cnt-set [name] [value]")
	params, ok := inputParam("!cnt-set", msg, true)
	if !ok {
		return []Action{syntax}
	}
	name, raw, ok := splitParam(params)
	if !ok {
		return []Action{syntax}
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return []Action{syntax}
	}
	if err := r.cat.SetCounter(name, value); errors.Is(err, catalog.ErrNotFound) {
		return []Action{Reply("Counter [" + name + "] not found.")}
	}
	return []Action{Reply("Counter [" + name + "] set to [" + raw + "]")}
}

func (r *Router) counterCurrent(_ context.Context, _ irc.Identity, msg string) []Action {
	name, ok := inputParam("!cnt-current", msg, true)
	if !ok {
		return []Action{Reply("Syntax: !cnt-current [name]")}
	}
	value, found := r.cat.GetCounter(name)
	if !found {
		return []Action{Reply("Counter [" + name + "] not found.")}
	}
	return []Action{Reply("Counter [" + name + "] is currently [" + strconv.FormatInt(value, 10) + "]")}
}

func (r *Router) counterUpdate(_ context.Context, _ irc.Identity, msg string) []Action {
	syntax := Reply("Syntax: !countadd [name] [value]")
	params, ok := inputParam("!countadd", msg, true)
	if !ok {
		return []Action{syntax}
	}
	name, raw, ok := splitParam(params)
	if !ok {
		return []Action{syntax}
	}
	delta, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return []Action{syntax}
	}
	if _, err := r.cat.UpdateCounter(name, delta); errors.Is(err, catalog.ErrNotFound) {
		return []Action{Reply("Counter [" + name + "] not found.")}
	}
	return []Action{Reply(raw + " points added to [" + name + "]")}
}

func (r *Router) counterTotals(_ context.Context, _ irc.Identity, _ string) []Action {
	counters := r.cat.Counters()
	if len(counters) == 0 {
		return []Action{Reply("No counters available")}
	}
	var b strings.Builder
	b.WriteString("Current totals:")
	for _, c := range counters {
		fmt.Fprintf(&b, " [%s]: %d", c.Name, c.Value)
	}
	return []Action{Reply(b.String())}
}

func (r *Router) filterAll(_ context.Context, id irc.Identity, _ string) []Action {
	filters := r.cat.Filters()
	if len(filters) == 0 {
		return []Action{Whisper(id.Username, "No filters found.")}
	}
	names := make([]string, len(filters))
	for i, f := range filters {
		names[i] = f.Name
	}
	return []Action{Whisper(id.Username, "Current filters: ["+strings.Join(names, "], [")+"]")}
}

func (r *Router) filterAdd(_ context.Context, id irc.Identity, msg string) []Action {
	syntax := Whisper(id.Username, "Syntax: !filter-add [pattern] [reason]")
	params, ok := inputParam("!filter-add", msg, true)
	if !ok {
		return []Action{syntax}
	}
	pattern, reason, ok := splitParam(params)
	if !ok {
		return []Action{syntax}
	}
	if err := r.cat.AddFilter(catalog.Filter{Name: pattern, Reason: reason}); errors.Is(err, catalog.ErrExists) {
		return []Action{Whisper(id.Username, "Filter already exists.")}
	}
	return []Action{Whisper(id.Username, "Filter added.")}
}

func (r *Router) filterDelete(_ context.Context, id irc.Identity, msg string) []Action {
	name, ok := inputParam("!filter-delete", msg, true)
	if !ok {
		return []Action{Whisper(id.Username, "Syntax: !filter-delete [pattern]")}
	}
	if err := r.cat.DeleteFilter(name); errors.Is(err, catalog.ErrNotFound) {
		return []Action{Whisper(id.Username, "Filter not found.")}
	}
	return []Action{Whisper(id.Username, "Filter deleted.")}
}

// secondsParam parses "!cmd [!command] [seconds]" style input.
func (r *Router) secondsParam(builtin, msg string) (cmd, seconds string, ok bool) {
	params, ok := inputParam(builtin, msg, true)
	if !ok {
		return "", "", false
	}
	cmd, seconds, ok = splitParam(params)
	if !ok {
		return "", "", false
	}
	if _, err := strconv.ParseInt(seconds, 10, 64); err != nil {
		return "", "", false
	}
	return strings.ToLower(cmd), seconds, true
}

// setAttribute applies a command attribute edit, translating catalog errors
// into the corresponding replies. ok=false means the edit failed and the
// returned actions carry the failure reply.
func (r *Router) setAttribute(cmd, attribute, value string) ([]Action, bool) {
	switch err := r.cat.SetCommandAttribute(cmd, attribute, value, false); {
	case errors.Is(err, catalog.ErrReserved):
		return []Action{Reply("Failed: " + cmd + " is a reserved command.")}, false
	case errors.Is(err, catalog.ErrNotFound):
		return []Action{Reply("Command " + cmd + " not found.")}, false
	case errors.Is(err, catalog.ErrInterval):
		return []Action{Reply("Failed: repeating interval must be at least 60 seconds.")}, false
	case err != nil:
		return []Action{Reply("Failed: invalid value [" + value + "]")}, false
	}
	return nil, true
}

// syncScheduler reconciles the broadcast loop for cmd after a repeat,
// interval, or delete edit.
func (r *Router) syncScheduler(cmd string) {
	if r.sched != nil {
		r.sched.Sync(cmd)
	}
}
