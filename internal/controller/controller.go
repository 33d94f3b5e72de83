// Package controller is the stateful glue a cart-bearing screen needs,
// independent of layout: the last snapshot, per-item in-flight markers, the
// checkout selection set and a single user-facing error slot. It is the
// error boundary of the cart core; nothing below it reaches the screen
// undigested.
package controller

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	apperrors "github.com/huyndq/phonecart/internal/errors"
	"github.com/huyndq/phonecart/internal/events"
	"github.com/huyndq/phonecart/internal/models"
	"github.com/microcosm-cc/bluemonday"
)

type CartAPI interface {
	GetCart(ctx context.Context) (*models.ServerCart, error)
	UpdateQuantity(ctx context.Context, itemID int64, quantity int) (*models.ServerCart, error)
	UpdateColor(ctx context.Context, itemID, colorID int64) (*models.ServerCart, error)
	RemoveItem(ctx context.Context, itemID int64) (*models.ServerCart, error)
	ClearCart(ctx context.Context) error
	Validate(ctx context.Context) (*models.CartValidation, error)
}

type GuestStore interface {
	Get(ctx context.Context) []models.GuestCartItem
	UpdateQuantity(ctx context.Context, key models.ItemKey, quantity int) []models.GuestCartItem
	Remove(ctx context.Context, key models.ItemKey) []models.GuestCartItem
	Clear(ctx context.Context)
}

type Credentials interface {
	IsAuthenticated() bool
}

type Controller struct {
	api       CartAPI
	guest     GuestStore
	creds     Credentials
	bus       *events.Bus
	logger    *slog.Logger
	sanitizer *bluemonday.Policy

	mu       sync.Mutex
	snapshot Snapshot
	updating map[int64]struct{}
	removing map[int64]struct{}
	selected map[int64]struct{}
	lastErr  string
}

func New(api CartAPI, guest GuestStore, creds Credentials, bus *events.Bus, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		api:       api,
		guest:     guest,
		creds:     creds,
		bus:       bus,
		logger:    logger.With(slog.String("component", "cart_controller")),
		sanitizer: bluemonday.StrictPolicy(),
		snapshot:  GuestSnapshot{},
		updating:  make(map[int64]struct{}),
		removing:  make(map[int64]struct{}),
		selected:  make(map[int64]struct{}),
	}
}

// Refresh re-derives the snapshot from the current source of truth: the
// server cart when a credential is present, the guest store otherwise.
func (c *Controller) Refresh(ctx context.Context) error {
	if !c.creds.IsAuthenticated() {
		c.setSnapshot(newGuestSnapshot(c.guest.Get(ctx)))
		c.setError("")

		return nil
	}

	cart, err := c.api.GetCart(ctx)
	if err != nil {
		c.setErrorFrom(err)

		return err
	}

	c.setSnapshot(c.sanitized(cart))
	c.setError("")

	return nil
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshot
}

// Err returns the current user-facing error message, "" when none. A single
// slot: the last error wins, and the next successful action clears it.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastErr
}

func (c *Controller) IsUpdating(itemID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.updating[itemID]

	return ok
}

func (c *Controller) IsRemoving(itemID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.removing[itemID]

	return ok
}

// UpdateQuantity changes one line's quantity. Below 1 is rejected before
// touching either backend. The authenticated branch additionally rejects a
// target above the known stock; that guard is UX only, the server stays
// authoritative. The guest branch has no product detail, so any positive
// quantity is accepted locally.
func (c *Controller) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		err := apperrors.ValidationError("Số lượng phải lớn hơn 0")
		c.setErrorFrom(err)

		return err
	}

	switch snap := c.Snapshot().(type) {
	case GuestSnapshot:
		line, ok := snap.line(itemID)
		if !ok {
			return nil
		}

		items := c.guest.UpdateQuantity(ctx, line.Key(), quantity)
		c.setSnapshot(newGuestSnapshot(items))
		c.setError("")
		c.bus.EmitCartChanged()

		return nil
	case AuthenticatedSnapshot:
		item, ok := snap.item(itemID)
		if !ok {
			return nil
		}

		if quantity > item.Product.StockQuantity {
			err := apperrors.ValidationError("Số lượng vượt quá số lượng tồn kho")
			c.setErrorFrom(err)

			return err
		}

		c.markUpdating(itemID)
		defer c.unmarkUpdating(itemID)

		if _, err := c.api.UpdateQuantity(ctx, itemID, quantity); err != nil {
			c.setErrorFrom(err)

			return err
		}

		return c.refetchAndNotify(ctx)
	}

	return nil
}

// UpdateColor switches one authenticated line to another color. Guest lines
// carry no color detail to choose from.
func (c *Controller) UpdateColor(ctx context.Context, itemID, colorID int64) error {
	switch c.Snapshot().(type) {
	case GuestSnapshot:
		err := apperrors.AuthRequiredError("Vui lòng đăng nhập để đổi màu sản phẩm")
		c.setErrorFrom(err)

		return err
	case AuthenticatedSnapshot:
		c.markUpdating(itemID)
		defer c.unmarkUpdating(itemID)

		if _, err := c.api.UpdateColor(ctx, itemID, colorID); err != nil {
			c.setErrorFrom(err)

			return err
		}

		return c.refetchAndNotify(ctx)
	}

	return nil
}

// RemoveItem deletes one line after explicit confirmation. The in-flight
// marker is released on every path, success or not.
func (c *Controller) RemoveItem(ctx context.Context, itemID int64, confirmed func() bool) error {
	if confirmed != nil && !confirmed() {
		return nil
	}

	c.markRemoving(itemID)
	defer c.unmarkRemoving(itemID)

	switch snap := c.Snapshot().(type) {
	case GuestSnapshot:
		line, ok := snap.line(itemID)
		if !ok {
			return nil
		}

		c.deselect(itemID)

		items := c.guest.Remove(ctx, line.Key())
		c.setSnapshot(newGuestSnapshot(items))
		c.setError("")
		c.bus.EmitCartChanged()

		return nil
	case AuthenticatedSnapshot:
		if _, err := c.api.RemoveItem(ctx, itemID); err != nil {
			c.setErrorFrom(err)

			return err
		}

		// the refetch prunes the removed id from the selection set in the
		// same operation
		c.deselect(itemID)

		return c.refetchAndNotify(ctx)
	}

	return nil
}

// ClearCart empties the active cart.
func (c *Controller) ClearCart(ctx context.Context) error {
	switch c.Snapshot().(type) {
	case GuestSnapshot:
		c.guest.Clear(ctx)
		c.setSnapshot(GuestSnapshot{})
		c.setError("")
		c.bus.EmitCartChanged()

		return nil
	case AuthenticatedSnapshot:
		if err := c.api.ClearCart(ctx); err != nil {
			c.setErrorFrom(err)

			return err
		}

		return c.refetchAndNotify(ctx)
	}

	return nil
}

// ToggleSelect marks or unmarks one item for checkout. Guest lines and
// unavailable items are never selectable: checkout needs known pricing and
// availability.
func (c *Controller) ToggleSelect(itemID int64) {
	snap, ok := c.Snapshot().(AuthenticatedSnapshot)
	if !ok {
		c.setError("Vui lòng đăng nhập để chọn sản phẩm thanh toán")

		return
	}

	item, found := snap.item(itemID)
	if !found || !item.IsAvailable {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, selected := c.selected[itemID]; selected {
		delete(c.selected, itemID)
	} else {
		c.selected[itemID] = struct{}{}
	}
}

// ToggleSelectAll selects every selectable item, or clears the selection
// when all of them are already selected.
func (c *Controller) ToggleSelectAll() {
	snap, ok := c.Snapshot().(AuthenticatedSnapshot)
	if !ok {
		return
	}

	selectable := make([]int64, 0, len(snap.Cart.Items))
	for _, it := range snap.Cart.Items {
		if it.IsAvailable {
			selectable = append(selectable, it.ID)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	allSelected := len(selectable) > 0

	for _, id := range selectable {
		if _, sel := c.selected[id]; !sel {
			allSelected = false
			break
		}
	}

	c.selected = make(map[int64]struct{})

	if !allSelected {
		for _, id := range selectable {
			c.selected[id] = struct{}{}
		}
	}
}

func (c *Controller) SelectedIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int64, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Total sums the server-computed line_total over selected items. The guest
// branch has no pricing, so its total is zero until the visitor logs in.
func (c *Controller) Total() float64 {
	snap, ok := c.Snapshot().(AuthenticatedSnapshot)
	if !ok {
		return 0
	}

	c.mu.Lock()
	selected := make(map[int64]struct{}, len(c.selected))
	for id := range c.selected {
		selected[id] = struct{}{}
	}
	c.mu.Unlock()

	var total float64

	for _, it := range snap.Cart.Items {
		if _, sel := selected[it.ID]; sel {
			total += it.LineTotal
		}
	}

	return total
}

// Checkout hands the selected item ids to the checkout flow. The guest
// branch refuses and the caller is expected to redirect to authentication.
func (c *Controller) Checkout() ([]int64, error) {
	if _, ok := c.Snapshot().(AuthenticatedSnapshot); !ok {
		err := apperrors.AuthRequiredError("Vui lòng đăng nhập để thanh toán")
		c.setErrorFrom(err)

		return nil, err
	}

	ids := c.SelectedIDs()
	if len(ids) == 0 {
		err := apperrors.ValidationError("Vui lòng chọn ít nhất một sản phẩm để thanh toán")
		c.setErrorFrom(err)

		return nil, err
	}

	c.setError("")

	return ids, nil
}

// refetchAndNotify is the authenticated-branch epilogue for every
// successful mutation: a full refetch (never a local patch) keeps the view
// consistent with server-computed totals, then everyone is woken up.
func (c *Controller) refetchAndNotify(ctx context.Context) error {
	cart, err := c.api.GetCart(ctx)
	if err != nil {
		c.setErrorFrom(err)

		return err
	}

	c.setSnapshot(c.sanitized(cart))
	c.setError("")
	c.bus.EmitCartChanged()

	return nil
}

// sanitized strips markup from server-supplied display strings before they
// reach any screen.
func (c *Controller) sanitized(cart *models.ServerCart) AuthenticatedSnapshot {
	snap := AuthenticatedSnapshot{Cart: *cart}

	for i := range snap.Cart.Items {
		snap.Cart.Items[i].Product.Name = c.sanitizer.Sanitize(snap.Cart.Items[i].Product.Name)
		snap.Cart.Items[i].Color.Name = c.sanitizer.Sanitize(snap.Cart.Items[i].Color.Name)
	}

	return snap
}

// setSnapshot installs a new snapshot and prunes the selection set so it
// never holds an id absent from the current items.
func (c *Controller) setSnapshot(snap Snapshot) {
	current := make(map[int64]struct{})
	for _, id := range snap.ItemIDs() {
		current[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = snap

	if _, guest := snap.(GuestSnapshot); guest {
		c.selected = make(map[int64]struct{})

		return
	}

	for id := range c.selected {
		if _, ok := current[id]; !ok {
			delete(c.selected, id)
		}
	}
}

func (c *Controller) deselect(itemID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.selected, itemID)
}

func (c *Controller) setError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastErr = message
}

func (c *Controller) setErrorFrom(err error) {
	if appErr, ok := apperrors.IsAppError(err); ok {
		c.setError(appErr.Message)

		return
	}

	c.setError("Đã xảy ra lỗi, vui lòng thử lại")
}

func (c *Controller) markUpdating(itemID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.updating[itemID] = struct{}{}
}

func (c *Controller) unmarkUpdating(itemID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.updating, itemID)
}

func (c *Controller) markRemoving(itemID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removing[itemID] = struct{}{}
}

func (c *Controller) unmarkRemoving(itemID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.removing, itemID)
}
