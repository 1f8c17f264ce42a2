package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/chatkeeper/catalog"
	"github.com/onnwee/chatkeeper/irc"
)

func newTestRouter(t *testing.T) (*Router, *catalog.Catalog) {
	t.Helper()
	cat := newTestCatalog(t)
	r := NewRouter(cat, RouterConfig{Channel: "somechannel"})
	return r, cat
}

func chatEvent(id irc.Identity, body string) irc.Event {
	return irc.Event{Kind: irc.ChatMessage, Requester: id, Body: body}
}

var (
	viewerID = irc.Identity{Username: "viewer"}
	modID    = irc.Identity{Username: "themod", IsModerator: true}
	ownerID  = irc.Identity{Username: "somechannel", IsChannelOwner: true, IsModerator: true}
)

func TestRoutePing(t *testing.T) {
	r, _ := newTestRouter(t)
	out := r.Route(context.Background(), irc.Event{Kind: irc.Ping, Body: "tmi.twitch.tv"})
	if len(out) != 1 || out[0].Kind != ActionPong || out[0].Text != "tmi.twitch.tv" {
		t.Fatalf("unexpected actions: %+v", out)
	}
}

func TestRouteCustomCommand(t *testing.T) {
	r, cat := newTestRouter(t)
	if err := cat.AddCommand("!hello", "Hello there."); err != nil {
		t.Fatal(err)
	}
	if err := cat.SetCommandAttribute("!hello", "auth", "+a ", false); err != nil {
		t.Fatal(err)
	}

	out := r.Route(context.Background(), chatEvent(viewerID, "!hello"))
	if len(out) != 1 || out[0].Kind != ActionReply || out[0].Text != "Hello there." {
		t.Fatalf("unexpected actions: %+v", out)
	}
}

func TestRouteCustomCommandParam(t *testing.T) {
	r, cat := newTestRouter(t)
	if err := cat.AddCommand("!greet", "Hello %param%!"); err != nil {
		t.Fatal(err)
	}
	if err := cat.SetCommandAttribute("!greet", "auth", "+a ", false); err != nil {
		t.Fatal(err)
	}

	out := r.Route(context.Background(), chatEvent(viewerID, "!greet friends"))
	if len(out) != 1 || out[0].Text != "Hello friends!" {
		t.Fatalf("unexpected actions: %+v", out)
	}

	// Without the parameter the command errors out and the cooldown does
	// not arm, so an immediate retry with a parameter still fires.
	if err := cat.SetCommandAttribute("!greet", "cooldown", "30", false); err != nil {
		t.Fatal(err)
	}
	out = r.Route(context.Background(), chatEvent(viewerID, "!greet"))
	if len(out) != 1 || out[0].Text != "!greet requires a parameter." {
		t.Fatalf("unexpected actions: %+v", out)
	}
	out = r.Route(context.Background(), chatEvent(viewerID, "!greet again"))
	if len(out) != 1 || out[0].Text != "Hello again!" {
		t.Fatalf("cooldown should not have armed: %+v", out)
	}
}

func TestRouteCooldown(t *testing.T) {
	r, cat := newTestRouter(t)
	if err := cat.AddCommand("!hello", "Hello there."); err != nil {
		t.Fatal(err)
	}
	if err := cat.SetCommandAttribute("!hello", "auth", "+a ", false); err != nil {
		t.Fatal(err)
	}
	if err := cat.SetCommandAttribute("!hello", "cooldown", "10", false); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	if out := r.Route(context.Background(), chatEvent(viewerID, "!hello")); len(out) != 1 {
		t.Fatalf("first trigger should fire: %+v", out)
	}

	now = now.Add(1 * time.Second)
	if out := r.Route(context.Background(), chatEvent(viewerID, "!hello")); len(out) != 0 {
		t.Fatalf("cooling trigger should be silent: %+v", out)
	}

	now = now.Add(10 * time.Second)
	if out := r.Route(context.Background(), chatEvent(viewerID, "!hello")); len(out) != 1 {
		t.Fatalf("expired cooldown should fire: %+v", out)
	}
}

func TestRouteOwnerBypassesCooldown(t *testing.T) {
	r, cat := newTestRouter(t)
	if err := cat.AddCommand("!hello", "Hello there."); err != nil {
		t.Fatal(err)
	}
	if err := cat.SetCommandAttribute("!hello", "auth", "+a ", false); err != nil {
		t.Fatal(err)
	}
	if err := cat.SetCommandAttribute("!hello", "cooldown", "10", false); err != nil {
		t.Fatal(err)
	}

	// Repeated owner triggers all fire and never arm the window, so a
	// viewer right after the owner still gets through.
	for i := 0; i < 3; i++ {
		if out := r.Route(context.Background(), chatEvent(ownerID, "!hello")); len(out) != 1 {
			t.Fatalf("owner trigger %d should fire: %+v", i, out)
		}
	}
	if out := r.Route(context.Background(), chatEvent(viewerID, "!hello")); len(out) != 1 {
		t.Fatalf("viewer should fire after owner triggers: %+v", out)
	}
}

func TestRouteSilentDenials(t *testing.T) {
	r, cat := newTestRouter(t)
	if err := cat.AddCommand("!modonly", "secret"); err != nil {
		t.Fatal(err)
	}
	if err := cat.SetCommandAttribute("!modonly", "auth", "+m ", false); err != nil {
		t.Fatal(err)
	}

	if out := r.Route(context.Background(), chatEvent(viewerID, "!modonly")); len(out) != 0 {
		t.Fatalf("unauthorized trigger must be silent: %+v", out)
	}
	if out := r.Route(context.Background(), chatEvent(viewerID, "!nosuch")); len(out) != 0 {
		t.Fatalf("unknown command must be silent: %+v", out)
	}

	if err := cat.SetCommandAttribute("!modonly", "auth", "+a ", false); err != nil {
		t.Fatal(err)
	}
	if err := cat.SetCommandAttribute("!modonly", "disabled", "true", false); err != nil {
		t.Fatal(err)
	}
	if out := r.Route(context.Background(), chatEvent(viewerID, "!modonly")); len(out) != 0 {
		t.Fatalf("disabled trigger must be silent: %+v", out)
	}
}

func TestRouteBuiltinAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	// Mutating builtins default to moderators.
	if out := r.Route(context.Background(), chatEvent(viewerID, "!command-add !x y")); len(out) != 0 {
		t.Fatalf("viewer must not reach mutating builtins: %+v", out)
	}
	out := r.Route(context.Background(), chatEvent(modID, "!command-add !x y"))
	if len(out) != 1 || out[0].Text != "Added command [!x] : [y]" {
		t.Fatalf("unexpected actions: %+v", out)
	}
}

func TestRouteSound(t *testing.T) {
	r, cat := newTestRouter(t)
	if err := cat.AddCommand("!horn", "HONK"); err != nil {
		t.Fatal(err)
	}
	if err := cat.SetCommandAttribute("!horn", "auth", "+a ", false); err != nil {
		t.Fatal(err)
	}
	if err := cat.SetCommandAttribute("!horn", "sound", "horn.wav", false); err != nil {
		t.Fatal(err)
	}

	out := r.Route(context.Background(), chatEvent(viewerID, "!horn"))
	if len(out) != 2 {
		t.Fatalf("expected reply and sound: %+v", out)
	}
	if out[1].Kind != ActionSound || out[1].Text != "horn.wav" {
		t.Fatalf("unexpected sound action: %+v", out[1])
	}
}

func TestRouteModerationShortCircuits(t *testing.T) {
	r, cat := newTestRouter(t)
	if err := cat.AddFilter(catalog.Filter{Name: "spamlink", Reason: "spam"}); err != nil {
		t.Fatal(err)
	}
	if err := cat.AddCommand("!hello", "Hello there."); err != nil {
		t.Fatal(err)
	}
	if err := cat.SetCommandAttribute("!hello", "auth", "+a ", false); err != nil {
		t.Fatal(err)
	}

	out := r.Route(context.Background(), chatEvent(viewerID, "!hello spamlink"))
	if len(out) != 1 || out[0].Kind != ActionTimeout {
		t.Fatalf("moderation must preempt the command: %+v", out)
	}
}

func TestRoutePyramid(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	r.Route(ctx, chatEvent(viewerID, "lol"))
	r.Route(ctx, chatEvent(viewerID, "lol lol"))
	out := r.Route(ctx, chatEvent(viewerID, "lol lol lol"))
	if len(out) != 1 || out[0].Text != "No pyramids please." {
		t.Fatalf("unexpected actions: %+v", out)
	}
}

func TestRoutePyramidResponseConfigurable(t *testing.T) {
	r, cat := newTestRouter(t)
	cat.ModifyConfiguration(catalog.ConfigPyramidResponse, "Stop that.")
	ctx := context.Background()

	r.Route(ctx, chatEvent(viewerID, "lol"))
	r.Route(ctx, chatEvent(viewerID, "lol lol"))
	out := r.Route(ctx, chatEvent(viewerID, "lol lol lol"))
	if len(out) != 1 || out[0].Text != "Stop that." {
		t.Fatalf("unexpected actions: %+v", out)
	}
}

func TestBuiltinCommandLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	route := func(body string) []Action { return r.Route(ctx, chatEvent(modID, body)) }

	out := route("!command-add !hi Hello %param%!")
	if len(out) != 1 || out[0].Text != "Added command [!hi] : [Hello %param%!]" {
		t.Fatalf("add: %+v", out)
	}
	out = route("!command-add !hi again")
	if len(out) != 1 || out[0].Text != "Command [!hi] already exists." {
		t.Fatalf("duplicate add: %+v", out)
	}
	out = route("!command-add hi nope")
	if len(out) != 1 || out[0].Text != "Commands should start with an !" {
		t.Fatalf("bad name: %+v", out)
	}
	out = route("!command-add !uptime nope")
	if len(out) != 1 || out[0].Text != "Failed: [!uptime] is a reserved command." {
		t.Fatalf("reserved add: %+v", out)
	}
	out = route("!command-add")
	if len(out) != 1 || out[0].Text != "Syntax: !command-add [!command] [text]." {
		t.Fatalf("syntax: %+v", out)
	}

	out = route("!command-edit !hi Bye %param%!")
	if len(out) != 1 || out[0].Text != "Command [!hi] changed to Bye %param%!" {
		t.Fatalf("edit: %+v", out)
	}
	out = route("!command-edit !nosuch text")
	if len(out) != 1 || out[0].Text != "Command [!nosuch] not found." {
		t.Fatalf("edit missing: %+v", out)
	}

	out = route("!command-auth !hi +a")
	if len(out) != 1 || out[0].Text != "Command [!hi] authorization set to [+a ]" {
		t.Fatalf("auth: %+v", out)
	}

	out = route("!command-delete !hi")
	if len(out) != 1 || out[0].Text != "Command [!hi] deleted." {
		t.Fatalf("delete: %+v", out)
	}
	out = route("!command-delete !hi")
	if len(out) != 1 || out[0].Text != "Command [!hi] not found." {
		t.Fatalf("delete missing: %+v", out)
	}
}

func TestBuiltinReservedAuthOwnerOnly(t *testing.T) {
	r, cat := newTestRouter(t)
	ctx := context.Background()

	out := r.Route(ctx, chatEvent(modID, "!command-auth !uptime +m"))
	if len(out) != 1 || out[0].Text != "Failed: only the channel owner can edit the auth for reserved commands." {
		t.Fatalf("mod edit of reserved auth: %+v", out)
	}

	out = r.Route(ctx, chatEvent(ownerID, "!command-auth !uptime +m"))
	if len(out) != 1 || out[0].Text != "Command [!uptime] authorization set to [+m ]" {
		t.Fatalf("owner edit of reserved auth: %+v", out)
	}
	cmd, ok := cat.Lookup("!uptime")
	if !ok || cmd.Auth != "+m " {
		t.Fatalf("auth not persisted: %+v", cmd)
	}
}

func TestBuiltinIntervalMinimum(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	r.Route(ctx, chatEvent(modID, "!command-add !promo follow me"))
	out := r.Route(ctx, chatEvent(modID, "!command-interval !promo 30"))
	if len(out) != 1 || out[0].Text != "Failed: repeating interval must be at least 60 seconds." {
		t.Fatalf("short interval: %+v", out)
	}
	out = r.Route(ctx, chatEvent(modID, "!command-interval !promo 90"))
	if len(out) != 1 || out[0].Text != "Command [!promo] set to repeating interval of [90] seconds." {
		t.Fatalf("valid interval: %+v", out)
	}
}

func TestBuiltinCounters(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()
	route := func(body string) []Action { return r.Route(ctx, chatEvent(modID, body)) }

	out := route("!cnt-add deaths")
	if len(out) != 1 || out[0].Text != "Added counter [deaths]" {
		t.Fatalf("cnt-add: %+v", out)
	}
	out = route("!cnt-add deaths")
	if len(out) != 1 || out[0].Text != "Counter [deaths] already exists." {
		t.Fatalf("duplicate cnt-add: %+v", out)
	}
	out = route("!countadd deaths 3")
	if len(out) != 1 || out[0].Text != "3 points added to [deaths]" {
		t.Fatalf("countadd: %+v", out)
	}
	out = route("!cnt-current deaths")
	if len(out) != 1 || out[0].Text != "Counter [deaths] is currently [3]" {
		t.Fatalf("cnt-current: %+v", out)
	}
	out = route("!cnt-set deaths 10")
	if len(out) != 1 || out[0].Text != "Counter [deaths] set to [10]" {
		t.Fatalf("cnt-set: %+v", out)
	}
	out = route("!totals")
	if len(out) != 1 || !strings.Contains(out[0].Text, "[deaths]: 10") {
		t.Fatalf("totals: %+v", out)
	}
	out = route("!cnt-delete deaths")
	if len(out) != 1 || out[0].Text != "Counter [deaths] deleted." {
		t.Fatalf("cnt-delete: %+v", out)
	}
	out = route("!totals")
	if len(out) != 1 || out[0].Text != "No counters available" {
		t.Fatalf("totals empty: %+v", out)
	}
}

func TestBuiltinFilters(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()
	route := func(body string) []Action { return r.Route(ctx, chatEvent(modID, body)) }

	out := route("!filter-all")
	if len(out) != 1 || out[0].Kind != ActionWhisper || out[0].Text != "No filters found." {
		t.Fatalf("filter-all empty: %+v", out)
	}
	out = route("!filter-add badword too rude")
	if len(out) != 1 || out[0].Kind != ActionWhisper || out[0].Text != "Filter added." {
		t.Fatalf("filter-add: %+v", out)
	}
	out = route("!filter-add worseword even worse")
	if len(out) != 1 || out[0].Text != "Filter added." {
		t.Fatalf("filter-add second: %+v", out)
	}
	out = route("!filter-all")
	if len(out) != 1 || out[0].Text != "Current filters: [badword], [worseword]" {
		t.Fatalf("filter-all: %+v", out)
	}
	out = route("!filter-delete badword")
	if len(out) != 1 || out[0].Text != "Filter deleted." {
		t.Fatalf("filter-delete: %+v", out)
	}
	out = route("!filter-delete badword")
	if len(out) != 1 || out[0].Text != "Filter not found." {
		t.Fatalf("filter-delete missing: %+v", out)
	}
}

func TestBuiltinSetMsgCache(t *testing.T) {
	r, cat := newTestRouter(t)
	ctx := context.Background()
	route := func(body string) []Action { return r.Route(ctx, chatEvent(modID, body)) }

	out := route("!set-msgcache 20")
	if len(out) != 1 || out[0].Text != "Cache size set to [20] messages for pyramid detection." {
		t.Fatalf("set-msgcache: %+v", out)
	}
	if got := cat.Configuration(catalog.ConfigMessageCacheSize, ""); got != "20" {
		t.Fatalf("config = %q, want 20", got)
	}
	for _, bad := range []string{"!set-msgcache 1", "!set-msgcache 101", "!set-msgcache many", "!set-msgcache"} {
		out = route(bad)
		if len(out) != 1 || out[0].Text != "Syntax: !set-msgcache [2-100]" {
			t.Fatalf("%s: %+v", bad, out)
		}
	}
}
