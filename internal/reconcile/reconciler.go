// Package reconcile merges a visitor's locally accumulated guest cart into
// their newly authenticated server cart, once per login. The merge is
// best-effort: the caller gets an explicit Result it is free to ignore, and
// a failed merge must never surface as a login error.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/huyndq/phonecart/internal/events"
	"github.com/huyndq/phonecart/internal/metrics"
	"github.com/huyndq/phonecart/internal/models"
)

type Outcome string

const (
	// OutcomeSkipped: the guest cart was empty, nothing was sent.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeMerged: the server confirmed the merge and the guest cart was
	// cleared.
	OutcomeMerged Outcome = "merged"
	// OutcomeFailed: the sync call failed; the guest cart is left intact so
	// a later login can retry.
	OutcomeFailed Outcome = "failed"
)

// Result makes the "I don't care if this fails" decision visible at the
// call site instead of hiding it behind swallowed exceptions.
type Result struct {
	Outcome   Outcome
	Submitted int
	Err       error
}

type GuestStore interface {
	Get(ctx context.Context) []models.GuestCartItem
	Clear(ctx context.Context)
}

type SyncClient interface {
	SyncGuestCart(ctx context.Context, items []models.GuestCartItem) (*models.SyncResult, error)
}

type Reconciler struct {
	guest  GuestStore
	client SyncClient
	bus    *events.Bus
	logger *slog.Logger
}

func NewReconciler(guest GuestStore, client SyncClient, bus *events.Bus, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		guest:  guest,
		client: client,
		bus:    bus,
		logger: logger.With(slog.String("component", "reconcile")),
	}
}

// Run executes the merge. The caller sequences it strictly after credential
// persistence and strictly before any other cart read; Run itself assumes
// it is not invoked concurrently for the same login.
//
// The guest cart is cleared if and only if the server confirmed receipt, so
// a failed attempt leaves the same items for the next login. The server
// merge is quantity-additive, so a duplicate submission after a failed
// attempt accumulates rather than corrupts.
func (r *Reconciler) Run(ctx context.Context) Result {
	items := r.guest.Get(ctx)

	if len(items) == 0 {
		return Result{Outcome: OutcomeSkipped}
	}

	result, err := r.client.SyncGuestCart(ctx, items)
	if err != nil {
		r.logger.Warn("guest cart sync failed, keeping local items",
			slog.Int("items", len(items)),
			slog.String("error", err.Error()))
		metrics.ObserveSyncAttempt(string(OutcomeFailed))

		return Result{Outcome: OutcomeFailed, Submitted: len(items), Err: err}
	}

	r.guest.Clear(ctx)
	r.bus.EmitCartChanged()

	r.logger.Info("guest cart merged into server cart",
		slog.Int("submitted", len(items)),
		slog.Int("merged", result.MergedItems))
	metrics.ObserveSyncAttempt(string(OutcomeMerged))

	return Result{Outcome: OutcomeMerged, Submitted: len(items)}
}
