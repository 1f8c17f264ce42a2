// Package twitchapi contains minimal helpers to interact with Twitch Helix
// APIs for stream status and follow dates, using an app access token.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultBaseURL = "https://api.twitch.tv/helix"

// HelixClient answers the stream-status queries behind the uptime and
// follow-age commands.
type HelixClient struct {
	ClientID   string
	Channel    string
	TokenSrc   oauth2.TokenSource
	HTTPClient *http.Client
	// BaseURL overrides the Helix endpoint; tests point it at a local server.
	BaseURL string

	// userID caches the channel's resolved id.
	userID string
}

// NewHelixClient builds a client holding an app access token for the given
// credentials, scoped to channel.
func NewHelixClient(ctx context.Context, clientID, clientSecret, channel string) *HelixClient {
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     "https://id.twitch.tv/oauth2/token",
	}
	return &HelixClient{
		ClientID: clientID,
		Channel:  channel,
		TokenSrc: cc.TokenSource(ctx),
	}
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return defaultBaseURL
}

func (hc *HelixClient) get(ctx context.Context, path string, query map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+path, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	if hc.TokenSrc != nil {
		tok, err := hc.TokenSrc.Token()
		if err != nil {
			return fmt.Errorf("app token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	}
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// channelID resolves and caches the channel's user id.
func (hc *HelixClient) channelID(ctx context.Context) (string, error) {
	if hc.userID != "" {
		return hc.userID, nil
	}
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := hc.get(ctx, "/users", map[string]string{"login": hc.Channel}, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("channel %q not found", hc.Channel)
	}
	hc.userID = body.Data[0].ID
	return hc.userID, nil
}

// StreamUptime returns how long the channel has been live, and whether it is
// live at all.
func (hc *HelixClient) StreamUptime(ctx context.Context) (time.Duration, bool, error) {
	var body struct {
		Data []struct {
			StartedAt time.Time `json:"started_at"`
		} `json:"data"`
	}
	if err := hc.get(ctx, "/streams", map[string]string{"user_login": hc.Channel}, &body); err != nil {
		return 0, false, err
	}
	if len(body.Data) == 0 {
		return 0, false, nil
	}
	return time.Since(body.Data[0].StartedAt), true, nil
}

// FollowDate returns when user started following the channel, and whether
// they follow it at all.
func (hc *HelixClient) FollowDate(ctx context.Context, user string) (time.Time, bool, error) {
	chanID, err := hc.channelID(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	var lookup struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := hc.get(ctx, "/users", map[string]string{"login": user}, &lookup); err != nil {
		return time.Time{}, false, err
	}
	if len(lookup.Data) == 0 {
		return time.Time{}, false, nil
	}

	var body struct {
		Data []struct {
			FollowedAt time.Time `json:"followed_at"`
		} `json:"data"`
	}
	q := map[string]string{"broadcaster_id": chanID, "user_id": lookup.Data[0].ID}
	if err := hc.get(ctx, "/channels/followers", q, &body); err != nil {
		return time.Time{}, false, err
	}
	if len(body.Data) == 0 {
		return time.Time{}, false, nil
	}
	return body.Data[0].FollowedAt, true, nil
}
