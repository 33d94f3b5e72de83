// Package auth holds the client side of authentication: persisting the
// bearer token the server issued and answering "is there a usable
// credential right now". Token issuance itself happens elsewhere.
package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/huyndq/phonecart/internal/events"
	"github.com/huyndq/phonecart/internal/kv"
	"github.com/huyndq/phonecart/internal/models"
)

type CredentialStore struct {
	kv     kv.Store
	bus    *events.Bus
	logger *slog.Logger

	mu    sync.RWMutex
	token string
}

func NewCredentialStore(store kv.Store, bus *events.Bus, logger *slog.Logger) *CredentialStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &CredentialStore{kv: store, bus: bus, logger: logger.With(slog.String("component", "auth"))}
}

// Load restores a previously persisted token. An unreadable stored token is
// treated as absent.
func (c *CredentialStore) Load(ctx context.Context) {
	var token string

	found, err := c.kv.Get(ctx, kv.AuthTokenKey, &token)
	if err != nil {
		c.logger.Warn("discarding unreadable stored token", slog.String("error", err.Error()))

		return
	}

	if !found {
		return
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the raw bearer token, or "" when none is held.
func (c *CredentialStore) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.token
}

// IsAuthenticated reports whether a usable credential is present. The token
// is parsed without signature verification (the client has no key); an
// expired or unparseable token counts as absent.
func (c *CredentialStore) IsAuthenticated() bool {
	token := c.Token()
	if token == "" {
		return false
	}

	claims := &models.Claims{}

	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		c.logger.Warn("stored token is not a valid JWT", slog.String("error", err.Error()))

		return false
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return false
	}

	return true
}

// SetToken persists the credential and announces the auth change. Emission
// happens after persistence so listeners that refetch see the new identity.
func (c *CredentialStore) SetToken(ctx context.Context, token string) error {
	if err := c.kv.Set(ctx, kv.AuthTokenKey, token); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.bus.EmitAuthChanged()

	return nil
}

// ClearToken drops the credential, persisted and in-memory.
func (c *CredentialStore) ClearToken(ctx context.Context) error {
	if err := c.kv.Delete(ctx, kv.AuthTokenKey); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()

	c.bus.EmitAuthChanged()

	return nil
}
