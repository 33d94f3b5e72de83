// Package kv is the client's durable local key-value substrate: the place
// the guest cart and the bearer credential live between runs. Values are
// JSON-encoded on the way in and decoded on the way out.
package kv

import "context"

type Store interface {
	// Get decodes the value under key into value. The boolean reports
	// whether the key was present; a present-but-undecodable value is an
	// error the caller decides how to treat.
	Get(ctx context.Context, key string, value any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Reserved keys. Exactly one key per concern; nothing else shares them.
const (
	GuestCartKey = "guest_cart"
	AuthTokenKey = "auth_token"
)
