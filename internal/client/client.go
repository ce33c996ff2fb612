// Package client wraps the auth engine in a stateful facade for a single
// consumer: one cached session at a time, safe for concurrent use.
package client

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/sacbeh/gatehouse/internal/models"
)

// Engine is the slice of the auth service the facade consumes
type Engine interface {
	Authenticate(ctx context.Context, email, password, ip, userAgent string) (*models.Session, error)
	VerifySession(ctx context.Context, token string) (*models.UserInfo, bool)
	Logout(ctx context.Context, token string) error
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
}

// Client holds the current session for one consumer. All accessors read the
// cached snapshot without touching storage; Login, Resume, and Refresh are
// the only paths that replace it.
type Client struct {
	engine Engine
	logger *slog.Logger

	mu   sync.RWMutex
	user *models.UserInfo
}

// NewClient creates an unauthenticated client over the engine
func NewClient(engine Engine, logger *slog.Logger) *Client {
	return &Client{
		engine: engine,
		logger: logger,
	}
}

// Login authenticates and caches the resulting session. The cache is only
// written once the fresh token verifies.
func (c *Client) Login(ctx context.Context, email, password string) (*models.UserInfo, error) {
	session, err := c.engine.Authenticate(ctx, email, password, "", "")
	if err != nil {
		return nil, err
	}

	info, ok := c.engine.VerifySession(ctx, session.Token)
	if !ok {
		c.logger.Error("fresh session failed verification")
		return nil, models.ErrSessionInvalid
	}

	c.mu.Lock()
	c.user = info
	c.mu.Unlock()

	return info, nil
}

// Logout invalidates the cached session server-side. The cache is cleared
// only when storage invalidation succeeded, so a failed logout can be
// retried with the session intact.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.RLock()
	user := c.user
	c.mu.RUnlock()

	if user == nil {
		return nil
	}

	if err := c.engine.Logout(ctx, user.SessionToken); err != nil {
		return err
	}

	c.mu.Lock()
	if c.user == user {
		c.user = nil
	}
	c.mu.Unlock()

	return nil
}

// Resume adopts an existing token after re-verifying it. The cache is left
// untouched when the token turns out invalid.
func (c *Client) Resume(ctx context.Context, token string) (*models.UserInfo, error) {
	info, ok := c.engine.VerifySession(ctx, token)
	if !ok {
		return nil, models.ErrSessionInvalid
	}

	c.mu.Lock()
	c.user = info
	c.mu.Unlock()

	return info, nil
}

// Refresh re-verifies the cached token, picking up role and permission
// changes. A session that has gone invalid drops the cache.
func (c *Client) Refresh(ctx context.Context) (*models.UserInfo, error) {
	c.mu.RLock()
	user := c.user
	c.mu.RUnlock()

	if user == nil {
		return nil, models.ErrSessionInvalid
	}

	info, ok := c.engine.VerifySession(ctx, user.SessionToken)
	if !ok {
		c.mu.Lock()
		if c.user == user {
			c.user = nil
		}
		c.mu.Unlock()
		return nil, models.ErrSessionInvalid
	}

	c.mu.Lock()
	c.user = info
	c.mu.Unlock()

	return info, nil
}

// IsAuthenticated reports whether a session is cached
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user != nil
}

// CurrentUser returns the cached snapshot, nil when unauthenticated.
// Callers must treat the result as read-only.
func (c *Client) CurrentUser() *models.UserInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// SessionToken returns the cached token, empty when unauthenticated
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return ""
	}
	return c.user.SessionToken
}

// HasPermission checks the cached permission union
func (c *Client) HasPermission(perm models.Permission) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user != nil && c.user.HasPermission(perm)
}

// HasRole checks the cached role names
func (c *Client) HasRole(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user != nil && c.user.HasRole(name)
}

// Roles returns a copy of the cached role names
func (c *Client) Roles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	return slices.Clone(c.user.Roles)
}

// Permissions returns a copy of the cached permission union
func (c *Client) Permissions() []models.Permission {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	return slices.Clone(c.user.Permissions)
}

// AccountByEmail looks up another account through the engine. It requires
// the cached user to hold user management permission and fails before
// touching storage otherwise.
func (c *Client) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	c.mu.RLock()
	allowed := c.user != nil && c.user.HasPermission(models.PermissionUserManagement)
	c.mu.RUnlock()

	if !allowed {
		return nil, models.ErrPermissionDenied
	}

	return c.engine.AccountByEmail(ctx, email)
}
