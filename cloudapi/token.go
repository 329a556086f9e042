package cloudapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenRefreshWindow is how close to expiry a token may get before
// authenticated requests refresh it.
const tokenRefreshWindow = 24 * time.Hour

// SetAuthToken installs a previously issued auth token, decoding the
// enduserid and exp claims from it. The signature is not verified; this
// client is not the issuer and holds no key material.
//
// Returns:
//   - error: ErrInvalidAuth if the token cannot be decoded or lacks the
//     required claims
func (c *Client) SetAuthToken(token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAuth, err)
	}

	userID, _ := claims["enduserid"].(string)
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil || userID == "" {
		return fmt.Errorf("%w: token missing enduserid or exp claim", ErrInvalidAuth)
	}

	c.mu.Lock()
	c.authToken = token
	c.userID = userID
	c.tokenExp = expiry.Time
	c.mu.Unlock()
	return nil
}

// AuthToken returns the current auth token, or "" before authentication.
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// UserID returns the enduserid claim of the current token, or "" before
// authentication.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// TokenExpiry returns when the current token expires, or the zero time
// before authentication.
func (c *Client) TokenExpiry() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokenExp
}

// SetOnTokenRefreshed registers a callback invoked with every new token
// the client obtains on its own (refresh or fallback login). Callers
// typically persist the token so later sessions can skip the password
// login. The callback runs on the goroutine performing the request.
func (c *Client) SetOnTokenRefreshed(fn func(token string)) {
	c.mu.Lock()
	c.onTokenRefreshed = fn
	c.mu.Unlock()
}

// RefreshTokenIfNearExpiry exchanges the current token for a fresh one
// when it expires within 24 hours, or unconditionally when force is
// set. A refresh the backend rejects as unauthorized falls back to a
// full password login, so a long-stored token degrades gracefully.
//
// Every authenticated request calls this first; callers only need it
// directly to force a refresh.
func (c *Client) RefreshTokenIfNearExpiry(ctx context.Context, force bool) error {
	c.mu.RLock()
	token := c.authToken
	expiry := c.tokenExp
	c.mu.RUnlock()

	if expiry.IsZero() {
		return fmt.Errorf("%w: no auth token held", ErrInvalidAuth)
	}
	if !force && time.Until(expiry) > tokenRefreshWindow {
		return nil
	}

	env, err := c.request(ctx, http.MethodPost, "refreshToken/", refreshRequest{Token: token}, false)
	if errors.Is(err, ErrInvalidAuth) {
		// The backend invalidates refresh tokens aggressively; a full
		// login still works as long as the account credentials do.
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
		c.notifyTokenRefreshed()
		return nil
	}
	if err != nil {
		return err
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		return fmt.Errorf("%w: refresh response carried no token", ErrInvalidAuth)
	}
	if err := c.SetAuthToken(data.Token); err != nil {
		return err
	}
	c.notifyTokenRefreshed()
	return nil
}

func (c *Client) notifyTokenRefreshed() {
	c.mu.RLock()
	fn := c.onTokenRefreshed
	token := c.authToken
	c.mu.RUnlock()
	if fn != nil {
		fn(token)
	}
}
