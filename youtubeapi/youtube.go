// Package youtubeapi wraps the YouTube Data API for the single purpose of
// resolving video titles for links pasted in chat. Reads use an API key, so
// no OAuth flow is involved.
package youtubeapi

import (
	"context"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// Service looks up video metadata.
type Service struct {
	apiKey string
}

// New returns a Service using apiKey for requests.
func New(apiKey string) *Service {
	return &Service{apiKey: apiKey}
}

// VideoTitle resolves a video id to its title. found is false when the id
// does not exist or is private.
func (s *Service) VideoTitle(ctx context.Context, videoID string) (string, bool, error) {
	svc, err := yt.NewService(ctx, option.WithAPIKey(s.apiKey))
	if err != nil {
		return "", false, err
	}
	res, err := svc.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", false, err
	}
	if len(res.Items) == 0 || res.Items[0].Snippet == nil {
		return "", false, nil
	}
	return res.Items[0].Snippet.Title, true, nil
}
