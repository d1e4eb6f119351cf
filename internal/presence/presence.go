package presence

import (
	"context"
	"errors"
	"net/url"
)

// ErrEmptyUserID is returned when IsOnline is called without a user.
var ErrEmptyUserID = errors.New("empty user id")

// IsOnline reports whether userID has an open socket on the hub.
func (c *Client) IsOnline(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, ErrEmptyUserID
	}

	var resp struct {
		UserID string `json:"userId"`
		Online bool   `json:"online"`
	}
	if err := c.get(ctx, "/api/presence/"+url.PathEscape(userID), &resp); err != nil {
		return false, err
	}
	return resp.Online, nil
}

// OnlineUserIDs returns every online user, sorted.
func (c *Client) OnlineUserIDs(ctx context.Context) ([]string, error) {
	var resp struct {
		UserIDs []string `json:"userIds"`
	}
	if err := c.get(ctx, "/api/presence/", &resp); err != nil {
		return nil, err
	}
	return resp.UserIDs, nil
}
