package bot

import (
	"context"
	"log/slog"
	"strings"
)

const videoIDLen = 11

// watchLinks scans a non-command message for a YouTube link and replies with
// the video's title. Lookup failures are logged and produce no reply.
func (r *Router) watchLinks(ctx context.Context, body string) []Action {
	if r.titles == nil {
		return nil
	}
	id, ok := videoID(body)
	if !ok {
		return nil
	}

	title, found, err := r.titles.VideoTitle(ctx, id)
	if err != nil {
		slog.Error("video title lookup failed", slog.String("video_id", id), slog.Any("err", err))
		return nil
	}
	if !found {
		return []Action{Reply("Video not found.")}
	}
	return []Action{Reply(title)}
}

// videoID extracts the eleven-character video id from a youtube.com watch
// URL or a youtu.be short link anywhere in the text.
func videoID(text string) (string, bool) {
	if i := strings.Index(text, "youtube.com"); i != -1 {
		if j := strings.Index(text[i:], "v="); j != -1 {
			return cutVideoID(text[i+j+2:])
		}
		return "", false
	}
	if i := strings.Index(text, "youtu.be/"); i != -1 {
		return cutVideoID(text[i+len("youtu.be/"):])
	}
	return "", false
}

func cutVideoID(rest string) (string, bool) {
	if len(rest) < videoIDLen {
		return "", false
	}
	return rest[:videoIDLen], true
}
