// Package guestcart is the durable client-only cart for unauthenticated
// visitors. It is a convenience, not a guarantee: reads never fail and write
// failures are logged and swallowed, so a storage hiccup can lose the guest
// cart but never break the gesture that touched it.
package guestcart

import (
	"context"
	"log/slog"

	"github.com/huyndq/phonecart/internal/kv"
	"github.com/huyndq/phonecart/internal/metrics"
	"github.com/huyndq/phonecart/internal/models"
)

type Store struct {
	kv     kv.Store
	logger *slog.Logger
}

func NewStore(store kv.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{kv: store, logger: logger.With(slog.String("component", "guestcart"))}
}

// Get returns the persisted list. A missing or undecodable value is an
// empty cart, never an error.
func (s *Store) Get(ctx context.Context) []models.GuestCartItem {
	var items []models.GuestCartItem

	found, err := s.kv.Get(ctx, kv.GuestCartKey, &items)
	if err != nil {
		s.logger.Warn("discarding unreadable guest cart", slog.String("error", err.Error()))

		return []models.GuestCartItem{}
	}

	if !found || items == nil {
		return []models.GuestCartItem{}
	}

	return items
}

// Save replaces the persisted list. Persistence errors are logged, not
// returned.
func (s *Store) Save(ctx context.Context, items []models.GuestCartItem) {
	if err := s.kv.Set(ctx, kv.GuestCartKey, items); err != nil {
		s.logger.Warn("failed to persist guest cart", slog.String("error", err.Error()))
		metrics.ObserveCartOp("guest_save", metrics.OutcomeError)
	}
}

// Add accumulates quantity onto an existing line with the same
// (product, color) key, or appends a new line. Returns the resulting list.
func (s *Store) Add(ctx context.Context, item models.GuestCartItem) []models.GuestCartItem {
	items := s.Get(ctx)

	merged := false

	for i := range items {
		if items[i].Key() == item.Key() {
			items[i].Quantity += item.Quantity
			merged = true

			break
		}
	}

	if !merged {
		items = append(items, item)
	}

	s.Save(ctx, items)
	metrics.ObserveCartOp("guest_add", metrics.OutcomeSuccess)

	return items
}

// UpdateQuantity overwrites the quantity of the matching line, or deletes it
// when quantity drops to zero or below. An absent key is a silent no-op;
// the caller may be editing a line that raced with a removal.
func (s *Store) UpdateQuantity(ctx context.Context, key models.ItemKey, quantity int) []models.GuestCartItem {
	items := s.Get(ctx)

	for i := range items {
		if items[i].Key() != key {
			continue
		}

		if quantity <= 0 {
			items = append(items[:i], items[i+1:]...)
		} else {
			items[i].Quantity = quantity
		}

		s.Save(ctx, items)
		metrics.ObserveCartOp("guest_update_quantity", metrics.OutcomeSuccess)

		return items
	}

	return items
}

// Remove deletes the matching line; no error if absent.
func (s *Store) Remove(ctx context.Context, key models.ItemKey) []models.GuestCartItem {
	items := s.Get(ctx)

	for i := range items {
		if items[i].Key() == key {
			items = append(items[:i], items[i+1:]...)
			s.Save(ctx, items)
			metrics.ObserveCartOp("guest_remove", metrics.OutcomeSuccess)

			break
		}
	}

	return items
}

// Clear deletes the persisted key entirely.
func (s *Store) Clear(ctx context.Context) {
	if err := s.kv.Delete(ctx, kv.GuestCartKey); err != nil {
		s.logger.Warn("failed to clear guest cart", slog.String("error", err.Error()))
		metrics.ObserveCartOp("guest_clear", metrics.OutcomeError)

		return
	}

	metrics.ObserveCartOp("guest_clear", metrics.OutcomeSuccess)
}

// Count is the sum of quantities across all lines, 0 for an absent cart.
func (s *Store) Count(ctx context.Context) int {
	total := 0

	for _, item := range s.Get(ctx) {
		total += item.Quantity
	}

	return total
}
