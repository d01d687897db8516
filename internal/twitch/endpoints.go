package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/stream-insights/twitch-etl-go/internal/models"
	"github.com/stream-insights/twitch-etl-go/pkg/logger"
)

// UsersByLogin looks up users by login name, up to MaxIDsPerRequest per call.
func (c *Client) UsersByLogin(ctx context.Context, logins []string) ([]models.HelixUser, error) {
	params := url.Values{}
	for _, l := range capKeys(logins) {
		params.Add("login", l)
	}
	data, _, err := getPage[models.HelixUser](ctx, c, "/users", params)
	return data, err
}

// UsersByID looks up users by id, up to MaxIDsPerRequest per call.
func (c *Client) UsersByID(ctx context.Context, ids []string) ([]models.HelixUser, error) {
	params := url.Values{}
	for _, id := range capKeys(ids) {
		params.Add("id", id)
	}
	data, _, err := getPage[models.HelixUser](ctx, c, "/users", params)
	return data, err
}

// GamesByID looks up games by id, up to MaxIDsPerRequest per call.
func (c *Client) GamesByID(ctx context.Context, ids []string) ([]models.HelixGame, error) {
	params := url.Values{}
	for _, id := range capKeys(ids) {
		params.Add("id", id)
	}
	data, _, err := getPage[models.HelixGame](ctx, c, "/games", params)
	return data, err
}

// TopGamesPage fetches one page of the most popular games.
func (c *Client) TopGamesPage(ctx context.Context, first int, cursor string) ([]models.HelixGame, string, error) {
	params := pageParams(first, cursor)
	return getPage[models.HelixGame](ctx, c, "/games/top", params)
}

// StreamsPage fetches one page of live streams for the given broadcasters.
func (c *Client) StreamsPage(ctx context.Context, userIDs []string, first int, cursor string) ([]models.HelixStream, string, error) {
	params := pageParams(first, cursor)
	for _, id := range capKeys(userIDs) {
		params.Add("user_id", id)
	}
	return getPage[models.HelixStream](ctx, c, "/streams", params)
}

// VideosPage fetches one page of a broadcaster's videos.
func (c *Client) VideosPage(ctx context.Context, userID string, first int, cursor string) ([]models.HelixVideo, string, error) {
	params := pageParams(first, cursor)
	params.Set("user_id", userID)
	return getPage[models.HelixVideo](ctx, c, "/videos", params)
}

// ClipsPage fetches one page of a broadcaster's clips.
func (c *Client) ClipsPage(ctx context.Context, broadcasterID string, first int, cursor string) ([]models.HelixClip, string, error) {
	params := pageParams(first, cursor)
	params.Set("broadcaster_id", broadcasterID)
	return getPage[models.HelixClip](ctx, c, "/clips", params)
}

// ValidateToken checks the access token against the OAuth validate endpoint.
func (c *Client) ValidateToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authURL+"/validate", nil)
	if err != nil {
		return fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("validate token: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("validate token: status %d", res.StatusCode)
	}

	var info struct {
		Login     string `json:"login"`
		ExpiresIn int    `json:"expires_in"`
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read validate response: %w", err)
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return fmt.Errorf("decode validate response: %w", err)
	}

	logger.Log.Info("access token valid",
		zap.String("login", info.Login),
		zap.Int("expires_in_seconds", info.ExpiresIn),
	)
	return nil
}

func pageParams(first int, cursor string) url.Values {
	if first <= 0 || first > MaxIDsPerRequest {
		first = MaxIDsPerRequest
	}
	params := url.Values{}
	params.Set("first", strconv.Itoa(first))
	if cursor != "" {
		params.Set("after", cursor)
	}
	return params
}

func capKeys(keys []string) []string {
	if len(keys) > MaxIDsPerRequest {
		return keys[:MaxIDsPerRequest]
	}
	return keys
}
