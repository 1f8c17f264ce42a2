package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/onnwee/chatkeeper/irc"
)

type stubTitles struct {
	byID map[string]string
	err  error
	last string
}

func (s *stubTitles) VideoTitle(_ context.Context, videoID string) (string, bool, error) {
	s.last = videoID
	if s.err != nil {
		return "", false, s.err
	}
	title, ok := s.byID[videoID]
	return title, ok, nil
}

func TestVideoID(t *testing.T) {
	tests := []struct {
		text string
		id   string
		ok   bool
	}{
		{"check this https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ later", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ", true},
		{"youtube.com without a video param", "", false},
		{"https://youtu.be/short", "", false},
		{"no links here", "", false},
	}
	for _, tt := range tests {
		id, ok := videoID(tt.text)
		if id != tt.id || ok != tt.ok {
			t.Errorf("videoID(%q) = %q, %v; want %q, %v", tt.text, id, ok, tt.id, tt.ok)
		}
	}
}

func TestRouteLinkWatcher(t *testing.T) {
	cat := newTestCatalog(t)
	titles := &stubTitles{byID: map[string]string{"dQw4w9WgXcQ": "A Classic"}}
	r := NewRouter(cat, RouterConfig{Channel: "somechannel", Titles: titles})
	ctx := context.Background()

	out := r.Route(ctx, chatEvent(viewerID, "look https://youtu.be/dQw4w9WgXcQ"))
	if len(out) != 1 || out[0].Text != "A Classic" {
		t.Fatalf("unexpected actions: %+v", out)
	}

	out = r.Route(ctx, chatEvent(viewerID, "look https://youtu.be/aaaaaaaaaaa"))
	if len(out) != 1 || out[0].Text != "Video not found." {
		t.Fatalf("unexpected actions: %+v", out)
	}

	titles.err = errors.New("quota exceeded")
	out = r.Route(ctx, chatEvent(viewerID, "look https://youtu.be/dQw4w9WgXcQ"))
	if len(out) != 0 {
		t.Fatalf("lookup errors must be silent: %+v", out)
	}
}

func TestRouteLinkWatcherDisabled(t *testing.T) {
	cat := newTestCatalog(t)
	r := NewRouter(cat, RouterConfig{Channel: "somechannel"})

	out := r.Route(context.Background(), chatEvent(viewerID, "look https://youtu.be/dQw4w9WgXcQ"))
	if len(out) != 0 {
		t.Fatalf("watcher without a lookup must be silent: %+v", out)
	}
}

// Commands take precedence: a trigger-prefixed message never reaches the
// link watcher.
func TestRouteLinkWatcherSkipsCommands(t *testing.T) {
	cat := newTestCatalog(t)
	titles := &stubTitles{byID: map[string]string{"dQw4w9WgXcQ": "A Classic"}}
	r := NewRouter(cat, RouterConfig{Channel: "somechannel", Titles: titles})

	out := r.Route(context.Background(), irc.Event{
		Kind:      irc.ChatMessage,
		Requester: viewerID,
		Body:      "!share https://youtu.be/dQw4w9WgXcQ",
	})
	if len(out) != 0 {
		t.Fatalf("command path must not consult the watcher: %+v", out)
	}
	if titles.last != "" {
		t.Fatalf("watcher was consulted with %q", titles.last)
	}
}
